//nolint:paralleltest // jsii runtime doesn't support parallel tests
package dfcdkloggroup_test

import (
	"encoding/json"
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkloggroup"
)

func TestNew_CreatesLogGroup(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	stack := awscdk.NewStack(app, jsii.String("TestStack"), nil)

	lg := dfcdkloggroup.New(stack, "PipelineLogs", dfcdkloggroup.Props{
		Purpose: jsii.String("document pipeline state machine"),
	})

	if lg.LogGroup() == nil {
		t.Error("LogGroup() should not be nil")
	}
}

func TestNew_CreatesOutput(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	stack := awscdk.NewStack(app, jsii.String("TestStack"), nil)

	dfcdkloggroup.New(stack, "PipelineLogs", dfcdkloggroup.Props{
		Purpose: jsii.String("document pipeline state machine"),
	})

	tmpl := synthTemplate(t, app, "TestStack")

	outputs, ok := tmpl["Outputs"].(map[string]any)
	if !ok {
		t.Fatal("template should have Outputs")
	}

	found := false
	for _, val := range outputs {
		m, ok := val.(map[string]any)
		if !ok {
			continue
		}
		if desc, ok := m["Description"].(string); ok &&
			desc == "CloudWatch Log Group for document pipeline state machine" {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected a log group name output with the purpose description")
	}
}

func TestNew_RetentionDefault(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	stack := awscdk.NewStack(app, jsii.String("TestStack"), nil)

	dfcdkloggroup.New(stack, "WorkerLogs", dfcdkloggroup.Props{
		Purpose: jsii.String("worker logs"),
	})

	tmpl := synthTemplate(t, app, "TestStack")

	resources, ok := tmpl["Resources"].(map[string]any)
	if !ok {
		t.Fatal("template should have Resources")
	}

	for _, val := range resources {
		m, ok := val.(map[string]any)
		if !ok || m["Type"] != "AWS::Logs::LogGroup" {
			continue
		}
		props, _ := m["Properties"].(map[string]any)
		if retention, ok := props["RetentionInDays"].(float64); !ok || retention != 7 {
			t.Errorf("RetentionInDays = %v, want 7", props["RetentionInDays"])
		}
		return
	}
	t.Error("no AWS::Logs::LogGroup resource found")
}

// synthTemplate synthesizes the app and returns the named stack's template.
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
