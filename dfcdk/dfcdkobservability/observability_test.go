//nolint:paralleltest // jsii runtime doesn't support parallel tests
package dfcdkobservability_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/jsii-runtime-go"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkobservability"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkutil"
)

// testConfig returns a Config for testing.
func testConfig() *dfcdkutil.Config {
	return &dfcdkutil.Config{
		Qualifier:        "testqual",
		PrimaryRegion:    "us-east-1",
		SecondaryRegions: []string{"eu-west-1"},
		Deployments:      []string{"Stag", "Prod"},
		BaseDomainName:   "example.com",
	}
}

func testStack(app awscdk.App) awscdk.Stack {
	stack := awscdk.NewStack(app, jsii.String("TestStack"), &awscdk.StackProps{
		Env: &awscdk.Environment{
			Region: jsii.String("us-east-1"),
		},
	})
	dfcdkutil.StoreDeploymentIdent(stack, "Stag")
	return stack
}

func TestLoggingAspect_SetsFunctionLogFormat(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	dfcdkutil.StoreConfig(app, testConfig())
	stack := testStack(app)

	awslambda.NewFunction(stack, jsii.String("TestFn"), &awslambda.FunctionProps{
		Runtime: awslambda.Runtime_NODEJS_22_X(),
		Handler: jsii.String("index.handler"),
		Code:    awslambda.Code_FromInline(jsii.String("exports.handler = async () => {}")),
	})

	dfcdkobservability.AttachLoggingAspect(stack)

	tmpl := synthTemplate(t, app, "TestStack")
	props := findResource(t, tmpl, "AWS::Lambda::Function")

	cfg, ok := props["LoggingConfig"].(map[string]any)
	if !ok {
		t.Fatal("function should have a LoggingConfig")
	}
	if format, _ := cfg["LogFormat"].(string); format != "JSON" {
		t.Errorf("LogFormat = %q, want JSON", format)
	}
}

func TestLoggingAspect_InjectsLogLevelAndTracing(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	dfcdkutil.StoreConfig(app, testConfig())
	stack := testStack(app)

	awslambda.NewFunction(stack, jsii.String("TestFn"), &awslambda.FunctionProps{
		Runtime: awslambda.Runtime_NODEJS_22_X(),
		Handler: jsii.String("index.handler"),
		Code:    awslambda.Code_FromInline(jsii.String("exports.handler = async () => {}")),
	})

	dfcdkobservability.AttachLoggingAspect(stack)

	tmpl := synthTemplate(t, app, "TestStack")
	props := findResource(t, tmpl, "AWS::Lambda::Function")

	env, _ := props["Environment"].(map[string]any)
	vars, _ := env["Variables"].(map[string]any)
	if level, _ := vars["DF_LOG_LEVEL"].(string); level != "info" {
		t.Errorf("DF_LOG_LEVEL = %q, want info", level)
	}

	tracing, _ := props["TracingConfig"].(map[string]any)
	if mode, _ := tracing["Mode"].(string); mode != "Active" {
		t.Errorf("TracingConfig.Mode = %q, want Active", mode)
	}

	cfg, _ := props["LoggingConfig"].(map[string]any)
	if level, _ := cfg["ApplicationLogLevel"].(string); level != "INFO" {
		t.Errorf("ApplicationLogLevel = %q, want INFO", level)
	}
}

func TestLoggingAspect_CustomLevelRetentionAndNoTracing(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	dfcdkutil.StoreConfig(app, testConfig())
	stack := testStack(app)

	awslambda.NewFunction(stack, jsii.String("TestFn"), &awslambda.FunctionProps{
		Runtime: awslambda.Runtime_NODEJS_22_X(),
		Handler: jsii.String("index.handler"),
		Code:    awslambda.Code_FromInline(jsii.String("exports.handler = async () => {}")),
	})
	awslogs.NewLogGroup(stack, jsii.String("TestLogs"), &awslogs.LogGroupProps{})

	awscdk.Aspects_Of(stack).Add(&dfcdkobservability.LoggingAspect{
		LogLevel:      jsii.String("debug"),
		RetentionDays: jsii.Number(30),
		EnableTracing: jsii.Bool(false),
	}, nil)

	tmpl := synthTemplate(t, app, "TestStack")

	fnProps := findResource(t, tmpl, "AWS::Lambda::Function")
	env, _ := fnProps["Environment"].(map[string]any)
	vars, _ := env["Variables"].(map[string]any)
	if level, _ := vars["DF_LOG_LEVEL"].(string); level != "debug" {
		t.Errorf("DF_LOG_LEVEL = %q, want debug", level)
	}
	cfg, _ := fnProps["LoggingConfig"].(map[string]any)
	if level, _ := cfg["ApplicationLogLevel"].(string); level != "DEBUG" {
		t.Errorf("ApplicationLogLevel = %q, want DEBUG", level)
	}
	if _, ok := fnProps["TracingConfig"]; ok {
		t.Error("tracing should stay off when EnableTracing is false")
	}

	lgProps := findResource(t, tmpl, "AWS::Logs::LogGroup")
	if retention, _ := lgProps["RetentionInDays"].(float64); retention != 30 {
		t.Errorf("RetentionInDays = %v, want 30", lgProps["RetentionInDays"])
	}
}

func TestLoggingAspect_SetsLogGroupRetention(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	dfcdkutil.StoreConfig(app, testConfig())
	stack := testStack(app)

	awslogs.NewLogGroup(stack, jsii.String("TestLogs"), &awslogs.LogGroupProps{})

	dfcdkobservability.AttachLoggingAspect(stack)

	tmpl := synthTemplate(t, app, "TestStack")
	props := findResource(t, tmpl, "AWS::Logs::LogGroup")

	retention, _ := props["RetentionInDays"].(float64)
	if retention != dfcdkobservability.DefaultLogRetentionDays {
		t.Errorf("RetentionInDays = %v, want %d", props["RetentionInDays"],
			dfcdkobservability.DefaultLogRetentionDays)
	}
}

func TestLoggingAspect_KeepsExplicitRetention(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	dfcdkutil.StoreConfig(app, testConfig())
	stack := testStack(app)

	awslogs.NewLogGroup(stack, jsii.String("TestLogs"), &awslogs.LogGroupProps{
		Retention: awslogs.RetentionDays_ONE_MONTH,
	})

	dfcdkobservability.AttachLoggingAspect(stack)

	tmpl := synthTemplate(t, app, "TestStack")
	props := findResource(t, tmpl, "AWS::Logs::LogGroup")

	if retention, _ := props["RetentionInDays"].(float64); retention != 30 {
		t.Errorf("RetentionInDays = %v, want 30", props["RetentionInDays"])
	}
}

func TestNewBedrockLogging(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	dfcdkutil.StoreConfig(app, testConfig())
	stack := testStack(app)

	bl := dfcdkobservability.NewBedrockLogging(stack, dfcdkobservability.BedrockLoggingProps{})

	if bl.LogGroup() == nil {
		t.Error("LogGroup() should not be nil")
	}

	tmpl := synthTemplate(t, app, "TestStack")

	raw, err := json.Marshal(tmpl["Resources"])
	if err != nil {
		t.Fatalf("failed to marshal resources: %v", err)
	}
	if !strings.Contains(string(raw), "putModelInvocationLoggingConfiguration") {
		t.Error("expected a custom resource calling putModelInvocationLoggingConfiguration")
	}
	if !strings.Contains(string(raw), "bedrock.amazonaws.com") {
		t.Error("expected a role assumable by bedrock.amazonaws.com")
	}
}

// findResource returns the properties of the first resource of the given type.
func findResource(t *testing.T, tmpl map[string]any, resourceType string) map[string]any {
	t.Helper()

	resources, ok := tmpl["Resources"].(map[string]any)
	if !ok {
		t.Fatal("template should have Resources")
	}
	for _, val := range resources {
		m, ok := val.(map[string]any)
		if !ok || m["Type"] != resourceType {
			continue
		}
		props, _ := m["Properties"].(map[string]any)
		return props
	}
	t.Fatalf("no %s resource found", resourceType)
	return nil
}

func synthTemplate(t *testing.T, app awscdk.App, stackName string) map[string]any {
	t.Helper()

	template := app.Synth(nil).GetStackByName(jsii.String(stackName)).Template()

	templateJSON, err := json.Marshal(template)
	if err != nil {
		t.Fatalf("failed to marshal template: %v", err)
	}

	var tmpl map[string]any
	if err := json.Unmarshal(templateJSON, &tmpl); err != nil {
		t.Fatalf("failed to unmarshal template: %v", err)
	}
	return tmpl
}
