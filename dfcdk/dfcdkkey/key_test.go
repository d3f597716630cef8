//nolint:paralleltest // jsii runtime doesn't support parallel tests
package dfcdkkey_test

import (
	"encoding/json"
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/jsii-runtime-go"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkkey"
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

func TestNew_DefaultIdentifier(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	dfcdkutil.StoreConfig(app, testConfig())
	stack := testStack(app)

	key := dfcdkkey.New(stack, dfcdkkey.Props{})

	if key.Key() == nil {
		t.Error("Key() should not be nil")
	}
}

func TestNew_RotationEnabled(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	dfcdkutil.StoreConfig(app, testConfig())
	stack := testStack(app)

	dfcdkkey.New(stack, dfcdkkey.Props{})

	tmpl := synthTemplate(t, app, "TestStack")

	resources, ok := tmpl["Resources"].(map[string]any)
	if !ok {
		t.Fatal("template should have Resources")
	}
	for _, val := range resources {
		m, ok := val.(map[string]any)
		if !ok || m["Type"] != "AWS::KMS::Key" {
			continue
		}
		props, _ := m["Properties"].(map[string]any)
		if rotation, ok := props["EnableKeyRotation"].(bool); !ok || !rotation {
			t.Errorf("EnableKeyRotation = %v, want true", props["EnableKeyRotation"])
		}
		return
	}
	t.Error("no AWS::KMS::Key resource found")
}

func TestNew_StoresKeyArnParam(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	dfcdkutil.StoreConfig(app, testConfig())
	stack := testStack(app)

	dfcdkkey.New(stack, dfcdkkey.Props{})

	tmpl := synthTemplate(t, app, "TestStack")

	resources, ok := tmpl["Resources"].(map[string]any)
	if !ok {
		t.Fatal("template should have Resources")
	}
	for _, val := range resources {
		m, ok := val.(map[string]any)
		if !ok || m["Type"] != "AWS::SSM::Parameter" {
			continue
		}
		props, _ := m["Properties"].(map[string]any)
		if name, ok := props["Name"].(string); ok && name == "/testqual/key/stag/data/key-arn" {
			return
		}
	}
	t.Error("expected an SSM parameter named /testqual/key/stag/data/key-arn")
}

func TestNew_GrantEncryptDecrypt(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	dfcdkutil.StoreConfig(app, testConfig())
	stack := testStack(app)

	key := dfcdkkey.New(stack, dfcdkkey.Props{})

	fn := awslambda.NewFunction(stack, jsii.String("TestFn"), &awslambda.FunctionProps{
		Runtime: awslambda.Runtime_NODEJS_22_X(),
		Handler: jsii.String("index.handler"),
		Code:    awslambda.Code_FromInline(jsii.String("exports.handler = async () => {}")),
	})

	// Should not panic
	key.GrantEncryptDecrypt(fn)
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
