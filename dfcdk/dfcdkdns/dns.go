// Package dfcdkdns provides the Route53 hosted zone construct for the
// docuflow domain.
//
// The primary region owns the zone; its ID and name are stored in SSM
// Parameter Store so secondary regions reference the same zone instead of
// recreating it. A fresh zone is useless until its NS records are delegated
// from the parent domain, so the delegation state is part of the construct
// surface: DNS-validated resources check Delegated() before they exist.
package dfcdkdns

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkparams"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkutil"
)

// NameServersOutputKey is the CloudFormation output key for the hosted zone's
// NS records. After the first deploy, read this output and create the NS
// delegation in the parent domain, then set dns-delegated and deploy again.
const NameServersOutputKey = "HostedZoneNameServers"

const paramsNamespace = "dns"

// DNS provides access to the docuflow hosted zone.
type DNS interface {
	// HostedZone returns the Route53 hosted zone. In the primary region this
	// is the zone itself; in secondary regions it is a reference resolved
	// through SSM Parameter Store.
	HostedZone() awsroute53.IHostedZone

	// Delegated reports whether the zone's NS records have been delegated
	// from the parent domain. Certificates, custom API domains, and
	// CloudFront aliases must not be created while this is false, since
	// their DNS validation would never complete.
	Delegated() bool
}

// Props configures the DNS construct.
type Props struct {
	// ZoneDomainName is the domain name for the hosted zone. Defaults to the
	// base domain name from config.
	ZoneDomainName *string
}

type dns struct {
	scope      constructs.Construct
	hostedZone awsroute53.IHostedZone
}

// New creates the DNS construct.
//
// The primary region creates the hosted zone, stores its ID and name in SSM
// Parameter Store, and outputs the NS records for delegation. Secondary
// regions look the zone up from the stored parameters.
func New(scope constructs.Construct, props Props) DNS {
	scope = constructs.NewConstruct(scope, jsii.String("DNS"))
	con := &dns{scope: scope}

	zoneName := props.ZoneDomainName
	if zoneName == nil {
		zoneName = dfcdkutil.BaseDomainNamePtr(scope)
	}

	region := *awscdk.Stack_Of(scope).Region()

	if dfcdkutil.IsPrimaryRegion(scope, region) {
		hostedZone := awsroute53.NewHostedZone(scope, jsii.String("HostedZone"),
			&awsroute53.HostedZoneProps{
				ZoneName: zoneName,
			})
		con.hostedZone = hostedZone

		dfcdkparams.Store(scope, "HostedZoneIDParam", paramsNamespace, "hosted-zone-id",
			hostedZone.HostedZoneId())
		dfcdkparams.Store(scope, "HostedZoneNameParam", paramsNamespace, "hosted-zone-name",
			hostedZone.ZoneName())

		awscdk.NewCfnOutput(awscdk.Stack_Of(scope), jsii.String(NameServersOutputKey), &awscdk.CfnOutputProps{
			Value:       awscdk.Fn_Join(jsii.String(","), hostedZone.HostedZoneNameServers()),
			Description: jsii.String("Comma-separated list of NS records for DNS delegation"),
		})
	} else {
		con.hostedZone = lookupZone(scope, "HostedZone", zoneName)
	}

	return con
}

// Lookup returns a reference to the docuflow hosted zone resolved through SSM
// Parameter Store, for stacks that need the zone without owning the DNS
// construct.
func Lookup(scope constructs.Construct, zoneName *string) awsroute53.IHostedZone {
	return lookupZone(scope, "LookupHostedZone", zoneName)
}

func lookupZone(scope constructs.Construct, id string, zoneName *string) awsroute53.IHostedZone {
	hostedZoneID := dfcdkparams.Lookup(scope, id+"ID",
		paramsNamespace, "hosted-zone-id", "hosted-zone-id-lookup")

	return awsroute53.HostedZone_FromHostedZoneAttributes(scope, jsii.String(id),
		&awsroute53.HostedZoneAttributes{
			HostedZoneId: hostedZoneID,
			ZoneName:     zoneName,
		})
}

func (d *dns) HostedZone() awsroute53.IHostedZone {
	return d.hostedZone
}

func (d *dns) Delegated() bool {
	return dfcdkutil.DNSDelegated(d.scope)
}
