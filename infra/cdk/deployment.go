package cdk

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssecretsmanager"
	"github.com/aws/jsii-runtime-go"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkdataloader"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkdocpipeline"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkfrontend"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkobservability"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkstatusgateway"
)

func NewDeployment(stack awscdk.Stack, shared *Shared, deploymentIdent string) {
	pipeline := dfcdkdocpipeline.New(stack, dfcdkdocpipeline.Props{
		Encrypted: jsii.Bool(true),
	})

	// The reporting database lives outside this stack; its coordinates come
	// in through a secret the loader reads at run time.
	dbSecret := awssecretsmanager.NewSecret(stack, jsii.String("ReportingDBSecret"),
		&awssecretsmanager.SecretProps{
			Description: jsii.String("Connection credentials for the reporting database"),
			GenerateSecretString: &awssecretsmanager.SecretStringGenerator{
				SecretStringTemplate: jsii.String(`{"username":"docuflow","host":"reporting-db.internal","port":5432}`),
				GenerateStringKey:    jsii.String("password"),
				ExcludeCharacters:    jsii.String(`"@/\`),
			},
		})

	dfcdkdataloader.New(stack, dfcdkdataloader.Props{
		ScriptsPath:    jsii.String("backend/scripts"),
		Engine:         dfcdkdataloader.EnginePostgres,
		DatabaseSecret: dbSecret,
		DatabaseName:   jsii.String("docuflow"),
		Vpc:            shared.Network.Vpc(),
		VpcSubnets:     shared.Network.PrivateSubnets(),
	})

	gwProps := dfcdkstatusgateway.Props{
		Entry:        jsii.String("backend/cmd/docstatus"),
		PublicRoutes: jsii.Strings("/api/{proxy+}"),
		Environment: &map[string]*string{
			"DF_TABLE_NAME": pipeline.Table().Table().TableName(),
		},
		Authorizer: &dfcdkstatusgateway.AuthorizerProps{},
	}
	frontProps := dfcdkfrontend.Props{}

	if shared.DNS.Delegated() && shared.Certificates != nil {
		gwProps.HostedZone = shared.DNS.HostedZone()
		gwProps.Certificate = shared.Certificates.WildcardCertificate()
		gwProps.Subdomain = jsii.String("api")

		// CloudFront only accepts us-east-1 certificates; outside that
		// region the frontend stays on the default CloudFront domain.
		if shared.Certificates.UsableForCloudFront() {
			frontProps.HostedZone = shared.DNS.HostedZone()
			frontProps.Certificate = shared.Certificates.WildcardCertificate()
			frontProps.Subdomain = jsii.String("app")
		}
	}

	gateway := dfcdkstatusgateway.New(stack, gwProps)
	pipeline.Table().GrantReadData(gateway.Lambda().Function())

	dfcdkfrontend.New(stack, frontProps)

	dfcdkobservability.AttachLoggingAspect(stack)
}
