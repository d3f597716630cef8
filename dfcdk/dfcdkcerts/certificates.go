// Package dfcdkcerts provides the ACM certificate construct for docuflow
// custom domains.
//
// One wildcard certificate per region covers every deployment subdomain:
// deployment idents are folded into the leftmost label (stag-api.example.com,
// api.example.com), so a single *.example.com certificate serves them all.
// The zone apex is included as an alternative name for bare-domain use.
// Validation is DNS based, so the hosted zone must be delegated before this
// construct is created.
package dfcdkcerts

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscertificatemanager"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/cockroachdb/errors"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkparams"
)

const paramsNamespace = "certs"

// cloudFrontRegion is the only region CloudFront accepts certificates from.
const cloudFrontRegion = "us-east-1"

// Certificates provides access to the region's wildcard ACM certificate.
type Certificates interface {
	// WildcardCertificate returns the wildcard certificate for the zone.
	// Use it for API Gateway custom domains and ALBs in the same region.
	WildcardCertificate() awscertificatemanager.ICertificate

	// UsableForCloudFront reports whether this certificate can be attached
	// to a CloudFront distribution, which only accepts us-east-1
	// certificates regardless of where the distribution's origin lives.
	UsableForCloudFront() bool
}

// Props configures the Certificates construct.
type Props struct {
	// HostedZone is the Route53 hosted zone used for DNS validation.
	// Required.
	HostedZone awsroute53.IHostedZone
	// IncludeApex adds the bare zone name as a subject alternative name.
	// Defaults to true; the wildcard alone does not cover the apex.
	IncludeApex *bool
}

type certificates struct {
	certificate awscertificatemanager.ICertificate
	region      string
}

// New creates the Certificates construct with a wildcard certificate for the
// zone, validated through its DNS records. The certificate ARN is stored in
// SSM Parameter Store so other stacks in the region can attach it without a
// cross-stack reference.
//
// ACM certificates are regional; every region that terminates TLS for the
// domain creates its own instance of this construct against the same zone.
func New(scope constructs.Construct, props Props) Certificates {
	if props.HostedZone == nil {
		panic(errors.New("dfcdkcerts: HostedZone is required"))
	}

	scope = constructs.NewConstruct(scope, jsii.String("Certificates"))
	con := &certificates{region: *awscdk.Stack_Of(scope).Region()}

	var alternativeNames *[]*string
	if props.IncludeApex == nil || *props.IncludeApex {
		alternativeNames = &[]*string{props.HostedZone.ZoneName()}
	}

	con.certificate = awscertificatemanager.NewCertificate(scope, jsii.String("WildcardCertificate"),
		&awscertificatemanager.CertificateProps{
			DomainName:              jsii.String("*." + *props.HostedZone.ZoneName()),
			SubjectAlternativeNames: alternativeNames,
			Validation:              awscertificatemanager.CertificateValidation_FromDns(props.HostedZone),
		})

	dfcdkparams.Store(scope, "CertificateArnParam", paramsNamespace, "wildcard-cert-arn",
		con.certificate.CertificateArn())

	return con
}

// LookupCertificate retrieves the region's wildcard certificate from SSM
// Parameter Store, for stacks that need TLS without owning the construct.
func LookupCertificate(scope constructs.Construct) awscertificatemanager.ICertificate {
	certArn := dfcdkparams.LookupLocal(scope, paramsNamespace, "wildcard-cert-arn")
	return awscertificatemanager.Certificate_FromCertificateArn(scope,
		jsii.String("LookupWildcardCertificate"), certArn)
}

func (c *certificates) WildcardCertificate() awscertificatemanager.ICertificate {
	return c.certificate
}

func (c *certificates) UsableForCloudFront() bool {
	return c.region == cloudFrontRegion
}
