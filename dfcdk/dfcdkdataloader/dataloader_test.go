//nolint:paralleltest // jsii runtime doesn't support parallel tests
package dfcdkdataloader_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssecretsmanager"
	"github.com/aws/jsii-runtime-go"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkdataloader"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkutil"
)

func init() {
	// Change to module root so CDK can find the entry and script paths.
	dir, _ := os.Getwd()
	for dir != "/" {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			_ = os.Chdir(dir)
			break
		}
		dir = filepath.Dir(dir)
	}
}

// testConfig returns a Config for testing.
func testConfig() *dfcdkutil.Config {
	return &dfcdkutil.Config{
		Qualifier:      "testqual",
		PrimaryRegion:  "us-east-1",
		Deployments:    []string{"Stag", "Prod"},
		BaseDomainName: "example.com",
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

func TestNew_CreatesLoaderAndTrigger(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	dfcdkutil.StoreConfig(app, testConfig())
	stack := testStack(app)

	secret := awssecretsmanager.NewSecret(stack, jsii.String("DbSecret"), nil)

	loader := dfcdkdataloader.New(stack, dfcdkdataloader.Props{
		ScriptsPath:    jsii.String("dfcdk/dfcdkdataloader/testdata"),
		Engine:         dfcdkdataloader.EngineMySQL,
		DatabaseSecret: secret,
		DatabaseName:   jsii.String("docuflow"),
	})

	if loader.Lambda() == nil {
		t.Fatal("Lambda() should not be nil")
	}

	tmpl := synthTemplate(t, app, "TestStack")

	raw, err := json.Marshal(tmpl["Resources"])
	if err != nil {
		t.Fatalf("failed to marshal resources: %v", err)
	}
	if !strings.Contains(string(raw), "Custom::Trigger") {
		t.Error("expected a deployment trigger resource")
	}
}

func TestNew_UnsupportedEngine(t *testing.T) {
	defer jsii.Close()

	defer func() {
		if r := recover(); r == nil {
			t.Errorf("expected panic for unsupported engine")
		}
	}()

	app := awscdk.NewApp(nil)
	dfcdkutil.StoreConfig(app, testConfig())
	stack := testStack(app)

	secret := awssecretsmanager.NewSecret(stack, jsii.String("DbSecret"), nil)

	dfcdkdataloader.New(stack, dfcdkdataloader.Props{
		ScriptsPath:    jsii.String("dfcdk/dfcdkdataloader/testdata"),
		Engine:         dfcdkdataloader.Engine("oracle"),
		DatabaseSecret: secret,
		DatabaseName:   jsii.String("docuflow"),
	})
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
