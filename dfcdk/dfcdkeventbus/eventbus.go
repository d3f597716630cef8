// Package dfcdkeventbus provides the EventBridge bus construct that carries
// pipeline lifecycle events (document received, classified, extracted,
// failed) between the processing functions and downstream consumers.
//
// The bus name is stored in SSM Parameter Store so other stacks and the
// backend functions can publish without cross-stack dependencies. An SNS
// topic is created alongside the bus for operator alarm notifications.
package dfcdkeventbus

import (
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2/awsevents"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssns"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssnssubscriptions"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkparams"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkutil"
)

// EventSource is the source field on every pipeline lifecycle event.
const EventSource = "docuflow.pipeline"

// Detail types published on the bus.
const (
	DetailTypeDocumentReceived   = "DocumentReceived"
	DetailTypeDocumentClassified = "DocumentClassified"
	DetailTypeDocumentExtracted  = "DocumentExtracted"
	DetailTypeDocumentFailed     = "DocumentFailed"
)

const paramsNamespace = "eventbus"

// EventBus provides access to the pipeline event bus and alarm topic.
type EventBus interface {
	// Bus returns the EventBridge event bus.
	Bus() awsevents.IEventBus

	// AlarmTopic returns the SNS topic for operator notifications.
	AlarmTopic() awssns.ITopic

	// AddPipelineRule creates a rule matching pipeline events with the given
	// detail types. Pass no detail types to match all pipeline events.
	AddPipelineRule(id string, detailTypes ...string) awsevents.Rule

	// GrantPutEvents grants permission to publish events to the bus.
	GrantPutEvents(grantee awsiam.IGrantable)
}

// Props configures the EventBus construct.
type Props struct {
	// Identifier distinguishes this bus from others in the same deployment.
	// Defaults to "pipeline".
	Identifier *string
	// AlarmEmail subscribes an email address to the alarm topic. Optional;
	// the subscription must be confirmed from the received email.
	AlarmEmail *string
}

type eventBus struct {
	scope      constructs.Construct
	bus        awsevents.IEventBus
	alarmTopic awssns.ITopic
}

// New creates an EventBus construct with an alarm topic.
func New(scope constructs.Construct, props Props) EventBus {
	identifier := "pipeline"
	if props.Identifier != nil && *props.Identifier != "" {
		identifier = *props.Identifier
	}

	constructID := "EventBus" + dfcdkutil.ResourceName(scope, identifier, dfcdkutil.CasingCamel)
	scope = constructs.NewConstruct(scope, jsii.String(constructID))
	con := &eventBus{scope: scope}

	busName := dfcdkutil.ResourceName(scope, identifier+"-bus", dfcdkutil.CasingKebab)

	con.bus = awsevents.NewEventBus(scope, jsii.String("Bus"), &awsevents.EventBusProps{
		EventBusName: jsii.String(busName),
	})

	con.alarmTopic = awssns.NewTopic(scope, jsii.String("AlarmTopic"), &awssns.TopicProps{
		TopicName: jsii.String(dfcdkutil.ResourceName(scope, identifier+"-alarms", dfcdkutil.CasingKebab)),
	})

	if props.AlarmEmail != nil && *props.AlarmEmail != "" {
		con.alarmTopic.AddSubscription(awssnssubscriptions.NewEmailSubscription(props.AlarmEmail, nil))
	}

	deploymentIdent := strings.ToLower(dfcdkutil.DeploymentIdent(scope))
	paramName := deploymentIdent + "/" + identifier + "/bus-name"
	dfcdkparams.Store(scope, "BusNameParam", paramsNamespace, paramName, jsii.String(busName))

	return con
}

// LookupBus retrieves the event bus from SSM Parameter Store.
// Use this to get a bus reference without creating cross-stack dependencies.
func LookupBus(scope constructs.Construct, identifier *string) awsevents.IEventBus {
	ident := "pipeline"
	if identifier != nil && *identifier != "" {
		ident = *identifier
	}

	deploymentIdent := strings.ToLower(dfcdkutil.DeploymentIdent(scope))
	paramName := deploymentIdent + "/" + ident + "/bus-name"
	busName := dfcdkparams.LookupLocal(scope, paramsNamespace, paramName)

	return awsevents.EventBus_FromEventBusName(scope, jsii.String("LookupBus"+ident), busName)
}

func (e *eventBus) Bus() awsevents.IEventBus {
	return e.bus
}

func (e *eventBus) AlarmTopic() awssns.ITopic {
	return e.alarmTopic
}

func (e *eventBus) AddPipelineRule(id string, detailTypes ...string) awsevents.Rule {
	pattern := &awsevents.EventPattern{
		Source: &[]*string{jsii.String(EventSource)},
	}
	if len(detailTypes) > 0 {
		types := make([]*string, 0, len(detailTypes))
		for _, dt := range detailTypes {
			types = append(types, jsii.String(dt))
		}
		pattern.DetailType = &types
	}

	return awsevents.NewRule(e.scope, jsii.String(id), &awsevents.RuleProps{
		EventBus:     e.bus,
		EventPattern: pattern,
	})
}

func (e *eventBus) GrantPutEvents(grantee awsiam.IGrantable) {
	e.bus.GrantPutEventsTo(grantee, nil)
}
