// Package dfcdkobservability provides cross-cutting observability wiring:
// a logging aspect that normalizes Lambda and log group settings across a
// stack, and a custom resource that enables Bedrock model invocation logging
// for the account.
package dfcdkobservability

import (
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/aws-cdk-go/awscdk/v2/customresources"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkloggroup"
)

// DefaultLogRetentionDays is applied to log groups that don't set a retention.
const DefaultLogRetentionDays = 7

// LoggingAspect normalizes logging and tracing settings across every
// construct in the scope it is attached to. Lambda functions get JSON log
// format, a uniform DF_LOG_LEVEL variable, and active X-Ray tracing; log
// groups get a bounded retention instead of the never-expire default.
// Log format, tracing, and retention already set on a resource are left
// alone. DF_LOG_LEVEL is set stack-wide; the aspect is its single source.
type LoggingAspect struct {
	// LogLevel is injected as DF_LOG_LEVEL on every function and used for
	// platform-side log filtering. Defaults to "info".
	LogLevel *string
	// RetentionDays is applied to log groups without an explicit retention.
	// Defaults to DefaultLogRetentionDays.
	RetentionDays *float64
	// EnableTracing turns on active tracing for functions that don't
	// configure tracing themselves. Defaults to true; set to false for
	// deployments without a tracing backend.
	EnableTracing *bool
}

var _ awscdk.IAspect = (*LoggingAspect)(nil)

// Visit implements awscdk.IAspect.
func (a *LoggingAspect) Visit(node constructs.IConstruct) {
	switch res := node.(type) {
	case awslambda.Function:
		res.AddEnvironment(jsii.String("DF_LOG_LEVEL"), jsii.String(a.logLevel()), nil)
		if a.tracingEnabled() && res.Role() != nil {
			res.Role().AddManagedPolicy(
				awsiam.ManagedPolicy_FromAwsManagedPolicyName(jsii.String("AWSXRayDaemonWriteAccess")))
		}
	case awslambda.CfnFunction:
		if res.LoggingConfig() == nil {
			res.SetLoggingConfig(&awslambda.CfnFunction_LoggingConfigProperty{
				LogFormat:           jsii.String("JSON"),
				ApplicationLogLevel: jsii.String(strings.ToUpper(a.logLevel())),
			})
		}
		if a.tracingEnabled() && res.TracingConfig() == nil {
			res.SetTracingConfig(&awslambda.CfnFunction_TracingConfigProperty{
				Mode: jsii.String("Active"),
			})
		}
	case awslogs.CfnLogGroup:
		if res.RetentionInDays() == nil {
			res.SetRetentionInDays(jsii.Number(a.retentionDays()))
		}
	}
}

func (a *LoggingAspect) logLevel() string {
	if a.LogLevel != nil && *a.LogLevel != "" {
		return *a.LogLevel
	}
	return "info"
}

func (a *LoggingAspect) retentionDays() float64 {
	if a.RetentionDays != nil {
		return *a.RetentionDays
	}
	return DefaultLogRetentionDays
}

func (a *LoggingAspect) tracingEnabled() bool {
	return a.EnableTracing == nil || *a.EnableTracing
}

// AttachLoggingAspect applies a logging aspect with default settings to all
// constructs under scope. Attach a LoggingAspect value directly to customize.
func AttachLoggingAspect(scope constructs.Construct) {
	awscdk.Aspects_Of(scope).Add(&LoggingAspect{}, nil)
}

// BedrockLogging provides access to the model invocation log group.
type BedrockLogging interface {
	// LogGroup returns the log group receiving model invocation logs.
	LogGroup() awslogs.ILogGroup
}

// BedrockLoggingProps configures the BedrockLogging construct.
type BedrockLoggingProps struct {
	// Retention for the invocation log group. Defaults to one week.
	Retention awslogs.RetentionDays
	// Override re-applies the logging configuration on every stack update,
	// replacing changes made out of band. When false the configuration is
	// written once on create. Defaults to true.
	Override *bool
}

type bedrockLogging struct {
	logGroup awslogs.ILogGroup
}

// NewBedrockLogging enables Bedrock model invocation logging for the account
// and region, writing invocation records to a dedicated log group.
//
// Model invocation logging is an account-level setting with no CloudFormation
// resource, so it is configured through an SDK-call custom resource. Only one
// deployment per account/region should create this construct.
func NewBedrockLogging(scope constructs.Construct, props BedrockLoggingProps) BedrockLogging {
	scope = constructs.NewConstruct(scope, jsii.String("BedrockLogging"))
	con := &bedrockLogging{}

	con.logGroup = dfcdkloggroup.New(scope, "InvocationLogs", dfcdkloggroup.Props{
		Purpose:   jsii.String("Bedrock model invocation logs"),
		Retention: props.Retention,
	}).LogGroup()

	role := awsiam.NewRole(scope, jsii.String("LoggingRole"), &awsiam.RoleProps{
		AssumedBy: awsiam.NewServicePrincipal(jsii.String("bedrock.amazonaws.com"), nil),
	})
	con.logGroup.GrantWrite(role)

	sdkCall := &customresources.AwsSdkCall{
		Service: jsii.String("Bedrock"),
		Action:  jsii.String("putModelInvocationLoggingConfiguration"),
		Parameters: map[string]any{
			"loggingConfig": map[string]any{
				"cloudWatchConfig": map[string]any{
					"logGroupName": con.logGroup.LogGroupName(),
					"roleArn":      role.RoleArn(),
				},
				"textDataDeliveryEnabled":      true,
				"imageDataDeliveryEnabled":     false,
				"embeddingDataDeliveryEnabled": false,
			},
		},
		PhysicalResourceId: customresources.PhysicalResourceId_Of(jsii.String("bedrock-invocation-logging")),
	}

	onUpdate := sdkCall
	if props.Override != nil && !*props.Override {
		onUpdate = nil
	}

	customresources.NewAwsCustomResource(scope, jsii.String("LoggingConfig"),
		&customresources.AwsCustomResourceProps{
			OnCreate: sdkCall,
			OnUpdate: onUpdate,
			OnDelete: &customresources.AwsSdkCall{
				Service: jsii.String("Bedrock"),
				Action:  jsii.String("deleteModelInvocationLoggingConfiguration"),
			},
			Policy: customresources.AwsCustomResourcePolicy_FromStatements(&[]awsiam.PolicyStatement{
				awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
					Actions: &[]*string{
						jsii.String("bedrock:PutModelInvocationLoggingConfiguration"),
						jsii.String("bedrock:DeleteModelInvocationLoggingConfiguration"),
					},
					Resources: &[]*string{jsii.String("*")},
				}),
				awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
					Actions:   &[]*string{jsii.String("iam:PassRole")},
					Resources: &[]*string{role.RoleArn()},
				}),
			}),
		})

	return con
}

func (b *bedrockLogging) LogGroup() awslogs.ILogGroup {
	return b.logGroup
}
