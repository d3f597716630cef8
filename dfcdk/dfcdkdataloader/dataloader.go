// Package dfcdkdataloader provides the reference-data loader construct: a Go
// Lambda function that runs a directory of SQL scripts against a relational
// database during deployment.
//
// The scripts are bundled as an S3 asset and executed in lexical order inside
// a single transaction, so a failed deploy leaves the database untouched.
// MySQL and PostgreSQL targets are supported; credentials come from a Secrets
// Manager secret.
package dfcdkdataloader

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3assets"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssecretsmanager"
	"github.com/aws/aws-cdk-go/awscdk/v2/triggers"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/cockroachdb/errors"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdklambda"
)

// Engine identifies the target database flavor.
type Engine string

const (
	EngineMySQL    Engine = "mysql"
	EnginePostgres Engine = "postgres"
)

// Environment variable names shared with the loader function.
const (
	EnvScriptsBucket = "DF_SQL_BUCKET"
	EnvScriptsKey    = "DF_SQL_KEY"
	EnvDBEngine      = "DF_DB_ENGINE"
	EnvDBSecretArn   = "DF_DB_SECRET_ARN"
	EnvDBName        = "DF_DB_NAME"
)

// DataLoader provides access to the loader function.
type DataLoader interface {
	// Lambda returns the loader Lambda construct.
	Lambda() dfcdklambda.Lambda
}

// Props configures the DataLoader construct.
type Props struct {
	// ScriptsPath is a local directory of .sql files, executed in lexical
	// order. Required.
	ScriptsPath *string
	// Engine selects the database flavor. Required.
	Engine Engine
	// DatabaseSecret holds the connection credentials (host, port, username,
	// password). Required.
	DatabaseSecret awssecretsmanager.ISecret
	// DatabaseName is the schema to load into. Required.
	DatabaseName *string
	// Vpc places the loader next to a private database. Optional.
	Vpc awsec2.IVpc
	// VpcSubnets selects the subnets when Vpc is set.
	VpcSubnets *awsec2.SubnetSelection
	// ExecuteAfter lists constructs whose deployment must complete before
	// the loader runs (typically the database and its migrations).
	ExecuteAfter *[]constructs.Construct
}

type dataLoader struct {
	lambda dfcdklambda.Lambda
}

// New creates a DataLoader construct that runs on every deployment.
//
// The loader is wired as a deployment trigger: CloudFormation invokes it
// after the constructs in ExecuteAfter stabilize. Scripts must be idempotent
// since they run on every deploy.
func New(scope constructs.Construct, props Props) DataLoader {
	if props.Engine != EngineMySQL && props.Engine != EnginePostgres {
		panic(errors.Newf("unsupported database engine %q", props.Engine))
	}

	scope = constructs.NewConstruct(scope, jsii.String("DataLoader"))
	con := &dataLoader{}

	scripts := awss3assets.NewAsset(scope, jsii.String("Scripts"), &awss3assets.AssetProps{
		Path: props.ScriptsPath,
	})

	env := map[string]*string{
		EnvScriptsBucket: scripts.S3BucketName(),
		EnvScriptsKey:    scripts.S3ObjectKey(),
		EnvDBEngine:      jsii.String(string(props.Engine)),
		EnvDBSecretArn:   props.DatabaseSecret.SecretArn(),
		EnvDBName:        props.DatabaseName,
	}

	con.lambda = dfcdklambda.New(scope, dfcdklambda.Props{
		Entry:           jsii.String("backend/cmd/dataloader"),
		PassThroughPath: jsii.String("/l/load-data"),
		Environment:     &env,
		MemorySize:      jsii.Number(256),
		Timeout:         awscdk.Duration_Minutes(jsii.Number(10)),
		Vpc:             props.Vpc,
		VpcSubnets:      props.VpcSubnets,
	})

	scripts.GrantRead(con.lambda.Function())
	props.DatabaseSecret.GrantRead(con.lambda.Function(), nil)

	triggers.NewTrigger(scope, jsii.String("LoadTrigger"), &triggers.TriggerProps{
		Handler:      con.lambda.Function(),
		ExecuteAfter: props.ExecuteAfter,
		// Re-run when the scripts change, not on unrelated deploys.
		ExecuteOnHandlerChange: jsii.Bool(true),
	})

	return con
}

func (d *dataLoader) Lambda() dfcdklambda.Lambda {
	return d.lambda
}
