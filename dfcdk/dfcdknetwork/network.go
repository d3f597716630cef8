// Package dfcdknetwork provides the VPC construct for deployments that need
// network isolation, such as the data loader reaching a private relational
// database.
//
// The VPC spans two availability zones with public, private, and isolated
// subnets; database-tier resources live in the isolated tier, which has no
// route out. A gateway endpoint keeps S3 traffic off the NAT path, and
// interface endpoints for Secrets Manager and Bedrock can be enabled so
// functions in private subnets reach them without internet egress.
package dfcdknetwork

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkloggroup"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkutil"
)

// Network provides access to the deployment's VPC.
type Network interface {
	// Vpc returns the underlying VPC.
	Vpc() awsec2.IVpc

	// PrivateSubnets returns the subnet selection for workloads.
	PrivateSubnets() *awsec2.SubnetSelection

	// IsolatedSubnets returns the subnet selection for database-tier
	// resources that must have no route to the internet.
	IsolatedSubnets() *awsec2.SubnetSelection
}

// Props configures the Network construct.
type Props struct {
	// NatGateways is the number of NAT gateways. Defaults to 1; set to 0 for
	// deployments whose private workloads only talk to AWS services through
	// the VPC endpoints.
	NatGateways *float64
	// SecretsManagerEndpoint adds an interface endpoint for Secrets Manager.
	SecretsManagerEndpoint *bool
	// BedrockEndpoint adds an interface endpoint for the Bedrock runtime.
	BedrockEndpoint *bool
	// FlowLogs enables VPC flow logs to a CloudWatch log group.
	FlowLogs *bool
}

type network struct {
	vpc awsec2.IVpc
}

// New creates a Network construct with a two-AZ VPC.
//
// S3 always gets a gateway endpoint since every pipeline workload touches the
// document bucket. Interface endpoints are opt-in per deployment since each
// one carries an hourly cost.
func New(scope constructs.Construct, props Props) Network {
	scope = constructs.NewConstruct(scope, jsii.String("Network"))
	con := &network{}

	natGateways := 1.0
	if props.NatGateways != nil {
		natGateways = *props.NatGateways
	}

	vpc := awsec2.NewVpc(scope, jsii.String("Vpc"), &awsec2.VpcProps{
		VpcName:     jsii.String(dfcdkutil.ResourceName(scope, "vpc", dfcdkutil.CasingKebab)),
		MaxAzs:      jsii.Number(2),
		NatGateways: jsii.Number(natGateways),
		SubnetConfiguration: &[]*awsec2.SubnetConfiguration{
			{
				Name:       jsii.String("public"),
				SubnetType: awsec2.SubnetType_PUBLIC,
				CidrMask:   jsii.Number(24),
			},
			{
				Name:       jsii.String("private"),
				SubnetType: awsec2.SubnetType_PRIVATE_WITH_EGRESS,
				CidrMask:   jsii.Number(24),
			},
			{
				Name:       jsii.String("isolated"),
				SubnetType: awsec2.SubnetType_PRIVATE_ISOLATED,
				CidrMask:   jsii.Number(24),
			},
		},
	})
	con.vpc = vpc

	vpc.AddGatewayEndpoint(jsii.String("S3Endpoint"), &awsec2.GatewayVpcEndpointOptions{
		Service: awsec2.GatewayVpcEndpointAwsService_S3(),
	})

	if props.SecretsManagerEndpoint != nil && *props.SecretsManagerEndpoint {
		vpc.AddInterfaceEndpoint(jsii.String("SecretsManagerEndpoint"), &awsec2.InterfaceVpcEndpointOptions{
			Service: awsec2.InterfaceVpcEndpointAwsService_SECRETS_MANAGER(),
		})
	}

	if props.BedrockEndpoint != nil && *props.BedrockEndpoint {
		vpc.AddInterfaceEndpoint(jsii.String("BedrockEndpoint"), &awsec2.InterfaceVpcEndpointOptions{
			Service: awsec2.InterfaceVpcEndpointAwsService_BEDROCK_RUNTIME(),
		})
	}

	if props.FlowLogs != nil && *props.FlowLogs {
		logGroup := dfcdkloggroup.New(scope, "FlowLogs", dfcdkloggroup.Props{
			Purpose:   jsii.String("VPC flow logs"),
			Retention: awslogs.RetentionDays_ONE_MONTH,
		}).LogGroup()

		vpc.AddFlowLog(jsii.String("FlowLog"), &awsec2.FlowLogOptions{
			Destination: awsec2.FlowLogDestination_ToCloudWatchLogs(logGroup, nil),
			TrafficType: awsec2.FlowLogTrafficType_REJECT,
		})
	}

	return con
}

func (n *network) Vpc() awsec2.IVpc {
	return n.vpc
}

func (n *network) PrivateSubnets() *awsec2.SubnetSelection {
	return &awsec2.SubnetSelection{
		SubnetType: awsec2.SubnetType_PRIVATE_WITH_EGRESS,
	}
}

func (n *network) IsolatedSubnets() *awsec2.SubnetSelection {
	return &awsec2.SubnetSelection{
		SubnetType: awsec2.SubnetType_PRIVATE_ISOLATED,
	}
}
