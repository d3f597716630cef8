// Package dfcdkfrontend provides the static frontend hosting construct: a
// private S3 bucket served through CloudFront with origin access control,
// single-page-app error rewrites, and an optional custom domain.
package dfcdkfrontend

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscertificatemanager"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudfront"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudfrontorigins"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53targets"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3deployment"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkutil"
	"github.com/iancoleman/strcase"
)

// Frontend provides access to the static site bucket and distribution.
type Frontend interface {
	// Bucket returns the S3 bucket holding the site assets.
	Bucket() awss3.IBucket
	// Distribution returns the CloudFront distribution.
	Distribution() awscloudfront.Distribution
	// DomainName returns the custom domain name, or the CloudFront default
	// domain when no custom domain is configured.
	DomainName() *string
}

// Props configures the Frontend construct.
type Props struct {
	// Identifier distinguishes this frontend from others in the same
	// deployment. Defaults to "web".
	Identifier *string
	// AssetsPath is a local directory of built site assets to deploy to the
	// bucket on synth. Optional; when empty, assets are deployed out of band.
	AssetsPath *string

	// HostedZone is the Route53 hosted zone for the custom domain.
	// Optional; required together with Certificate and Subdomain.
	HostedZone awsroute53.IHostedZone
	// Certificate is the ACM certificate for the custom domain. CloudFront
	// requires the certificate to live in us-east-1.
	Certificate awscertificatemanager.ICertificate
	// Subdomain is the subdomain prefix (e.g., "app").
	Subdomain *string
}

type frontend struct {
	bucket       awss3.IBucket
	distribution awscloudfront.Distribution
	domainName   *string
}

// New creates a Frontend construct serving a single-page app.
//
// The bucket stays private; CloudFront reads it through origin access
// control. 403 and 404 responses rewrite to /index.html so client-side
// routing works on deep links.
func New(scope constructs.Construct, props Props) Frontend {
	identifier := "web"
	if props.Identifier != nil && *props.Identifier != "" {
		identifier = *props.Identifier
	}

	scope = constructs.NewConstruct(scope, jsii.String("Frontend"+strcase.ToCamel(identifier)))
	con := &frontend{}

	con.bucket = awss3.NewBucket(scope, jsii.String("Bucket"), &awss3.BucketProps{
		BucketName:        jsii.String(dfcdkutil.ResourceName(scope, identifier+"-site", dfcdkutil.CasingKebab)),
		Encryption:        awss3.BucketEncryption_S3_MANAGED,
		BlockPublicAccess: awss3.BlockPublicAccess_BLOCK_ALL(),
		EnforceSSL:        jsii.Bool(true),
		RemovalPolicy:     awscdk.RemovalPolicy_DESTROY,
		AutoDeleteObjects: jsii.Bool(true),
	})

	withDomain := props.HostedZone != nil && props.Certificate != nil && props.Subdomain != nil

	var domainNames *[]*string
	if withDomain {
		deploymentIdent := dfcdkutil.DeploymentIdent(scope)
		subdomain := dfcdkutil.GlobalSubdomain(deploymentIdent, *props.Subdomain)
		con.domainName = jsii.String(subdomain + "." + *props.HostedZone.ZoneName())
		domainNames = &[]*string{con.domainName}
	}

	con.distribution = awscloudfront.NewDistribution(scope, jsii.String("Distribution"),
		&awscloudfront.DistributionProps{
			DefaultBehavior: &awscloudfront.BehaviorOptions{
				Origin:               awscloudfrontorigins.S3BucketOrigin_WithOriginAccessControl(con.bucket, nil),
				ViewerProtocolPolicy: awscloudfront.ViewerProtocolPolicy_REDIRECT_TO_HTTPS,
				CachePolicy:          awscloudfront.CachePolicy_CACHING_OPTIMIZED(),
			},
			DefaultRootObject: jsii.String("index.html"),
			DomainNames:       domainNames,
			Certificate:       props.Certificate,
			ErrorResponses: &[]*awscloudfront.ErrorResponse{
				{
					HttpStatus:         jsii.Number(403),
					ResponseHttpStatus: jsii.Number(200),
					ResponsePagePath:   jsii.String("/index.html"),
					Ttl:                awscdk.Duration_Minutes(jsii.Number(5)),
				},
				{
					HttpStatus:         jsii.Number(404),
					ResponseHttpStatus: jsii.Number(200),
					ResponsePagePath:   jsii.String("/index.html"),
					Ttl:                awscdk.Duration_Minutes(jsii.Number(5)),
				},
			},
			PriceClass: awscloudfront.PriceClass_PRICE_CLASS_100,
		})

	if withDomain {
		awsroute53.NewARecord(scope, jsii.String("DnsRecord"), &awsroute53.ARecordProps{
			Zone:       props.HostedZone,
			RecordName: con.domainName,
			Target: awsroute53.RecordTarget_FromAlias(
				awsroute53targets.NewCloudFrontTarget(con.distribution)),
		})
	}

	if props.AssetsPath != nil && *props.AssetsPath != "" {
		awss3deployment.NewBucketDeployment(scope, jsii.String("Deployment"),
			&awss3deployment.BucketDeploymentProps{
				Sources:           &[]awss3deployment.ISource{awss3deployment.Source_Asset(props.AssetsPath, nil)},
				DestinationBucket: con.bucket,
				Distribution:      con.distribution,
				DistributionPaths: &[]*string{jsii.String("/*")},
			})
	}

	if con.domainName == nil {
		con.domainName = con.distribution.DistributionDomainName()
	}

	return con
}

func (f *frontend) Bucket() awss3.IBucket {
	return f.bucket
}

func (f *frontend) Distribution() awscloudfront.Distribution {
	return f.distribution
}

func (f *frontend) DomainName() *string {
	return f.domainName
}
