//nolint:paralleltest // jsii runtime doesn't support parallel tests
package dfcdkeventbus_test

import (
	"encoding/json"
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/jsii-runtime-go"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkeventbus"
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

func TestNew_CreatesBusAndTopic(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	dfcdkutil.StoreConfig(app, testConfig())
	stack := testStack(app)

	bus := dfcdkeventbus.New(stack, dfcdkeventbus.Props{})

	if bus.Bus() == nil {
		t.Error("Bus() should not be nil")
	}
	if bus.AlarmTopic() == nil {
		t.Error("AlarmTopic() should not be nil")
	}

	tmpl := synthTemplate(t, app, "TestStack")
	if countResources(tmpl, "AWS::Events::EventBus") != 1 {
		t.Error("expected one event bus")
	}
	if countResources(tmpl, "AWS::SNS::Topic") != 1 {
		t.Error("expected one alarm topic")
	}
}

func TestNew_AlarmEmailSubscription(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	dfcdkutil.StoreConfig(app, testConfig())
	stack := testStack(app)

	dfcdkeventbus.New(stack, dfcdkeventbus.Props{
		AlarmEmail: jsii.String("oncall@example.com"),
	})

	tmpl := synthTemplate(t, app, "TestStack")

	resources, _ := tmpl["Resources"].(map[string]any)
	for _, val := range resources {
		m, ok := val.(map[string]any)
		if !ok || m["Type"] != "AWS::SNS::Subscription" {
			continue
		}
		props, _ := m["Properties"].(map[string]any)
		if protocol, _ := props["Protocol"].(string); protocol != "email" {
			t.Errorf("Protocol = %q, want email", protocol)
		}
		if endpoint, _ := props["Endpoint"].(string); endpoint != "oncall@example.com" {
			t.Errorf("Endpoint = %q, want oncall@example.com", endpoint)
		}
		return
	}
	t.Error("no AWS::SNS::Subscription resource found")
}

func TestNew_NoAlarmEmailNoSubscription(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	dfcdkutil.StoreConfig(app, testConfig())
	stack := testStack(app)

	dfcdkeventbus.New(stack, dfcdkeventbus.Props{})

	tmpl := synthTemplate(t, app, "TestStack")
	if countResources(tmpl, "AWS::SNS::Subscription") != 0 {
		t.Error("expected no subscriptions without an alarm email")
	}
}

func TestAddPipelineRule_FiltersSourceAndDetailTypes(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	dfcdkutil.StoreConfig(app, testConfig())
	stack := testStack(app)

	bus := dfcdkeventbus.New(stack, dfcdkeventbus.Props{})
	rule := bus.AddPipelineRule("FailedRule", dfcdkeventbus.DetailTypeDocumentFailed)

	if rule == nil {
		t.Fatal("AddPipelineRule should return a rule")
	}

	tmpl := synthTemplate(t, app, "TestStack")

	resources, _ := tmpl["Resources"].(map[string]any)
	for _, val := range resources {
		m, ok := val.(map[string]any)
		if !ok || m["Type"] != "AWS::Events::Rule" {
			continue
		}
		props, _ := m["Properties"].(map[string]any)
		pattern, _ := props["EventPattern"].(map[string]any)

		sources, _ := pattern["source"].([]any)
		if len(sources) != 1 || sources[0] != dfcdkeventbus.EventSource {
			t.Errorf("rule source = %v, want [%s]", sources, dfcdkeventbus.EventSource)
		}
		detailTypes, _ := pattern["detail-type"].([]any)
		if len(detailTypes) != 1 || detailTypes[0] != dfcdkeventbus.DetailTypeDocumentFailed {
			t.Errorf("rule detail-type = %v, want [%s]", detailTypes, dfcdkeventbus.DetailTypeDocumentFailed)
		}
		return
	}
	t.Error("no AWS::Events::Rule resource found")
}

func TestGrantPutEvents(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	dfcdkutil.StoreConfig(app, testConfig())
	stack := testStack(app)

	bus := dfcdkeventbus.New(stack, dfcdkeventbus.Props{})

	fn := awslambda.NewFunction(stack, jsii.String("TestFn"), &awslambda.FunctionProps{
		Runtime: awslambda.Runtime_NODEJS_22_X(),
		Handler: jsii.String("index.handler"),
		Code:    awslambda.Code_FromInline(jsii.String("exports.handler = async () => {}")),
	})

	// Should not panic
	bus.GrantPutEvents(fn)
}

func countResources(tmpl map[string]any, resourceType string) int {
	resources, _ := tmpl["Resources"].(map[string]any)
	count := 0
	for _, val := range resources {
		m, ok := val.(map[string]any)
		if ok && m["Type"] == resourceType {
			count++
		}
	}
	return count
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
