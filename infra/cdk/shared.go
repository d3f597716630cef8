// Package cdk defines the docuflow reference deployment: the shared
// per-region foundation and the per-deployment document pipeline stacks.
package cdk

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkcerts"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkdns"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkeventbus"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkkey"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdknetwork"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkobservability"
)

// Shared holds the per-region foundation that deployments build on: the
// hosted zone, the wildcard certificate, the VPC, the region key, the
// organization event bus and account-level Bedrock invocation logging.
type Shared struct {
	DNS            dfcdkdns.DNS
	Certificates   dfcdkcerts.Certificates
	Network        dfcdknetwork.Network
	Key            dfcdkkey.Key
	EventBus       dfcdkeventbus.EventBus
	BedrockLogging dfcdkobservability.BedrockLogging
}

func NewShared(stack awscdk.Stack) *Shared {
	shared := &Shared{}

	shared.DNS = dfcdkdns.New(stack, dfcdkdns.Props{})

	shared.Network = dfcdknetwork.New(stack, dfcdknetwork.Props{
		// Workloads reach AWS services through the endpoints, so no NAT
		// gateway is needed.
		NatGateways:            jsii.Number(0),
		SecretsManagerEndpoint: jsii.Bool(true),
		BedrockEndpoint:        jsii.Bool(true),
		FlowLogs:               jsii.Bool(true),
	})

	shared.Key = dfcdkkey.New(stack, dfcdkkey.Props{
		Identifier: jsii.String("shared"),
	})

	// Organization-wide bus for events that cross deployments. Each pipeline
	// still runs its own lifecycle bus.
	shared.EventBus = dfcdkeventbus.New(stack, dfcdkeventbus.Props{
		Identifier: jsii.String("org"),
	})

	shared.BedrockLogging = dfcdkobservability.NewBedrockLogging(stack,
		dfcdkobservability.BedrockLoggingProps{})

	if !shared.DNS.Delegated() {
		// The hosted zone's NS records are not delegated yet, so DNS
		// validation cannot complete. Deploy, delegate the zone from the
		// parent, then set dns-delegated=true and deploy again.
		return shared
	}

	shared.Certificates = dfcdkcerts.New(stack, dfcdkcerts.Props{
		HostedZone: shared.DNS.HostedZone(),
	})

	return shared
}
