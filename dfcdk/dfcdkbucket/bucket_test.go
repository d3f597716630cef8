//nolint:paralleltest // jsii runtime doesn't support parallel tests
package dfcdkbucket_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/jsii-runtime-go"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkbucket"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkqueue"
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

func TestNew_CreatesBucket(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	dfcdkutil.StoreConfig(app, testConfig())
	stack := testStack(app)

	b := dfcdkbucket.New(stack, dfcdkbucket.Props{
		Identifier: jsii.String("documents"),
	})

	if b.Bucket() == nil {
		t.Error("Bucket() should not be nil")
	}
	if b.BucketName() == "" {
		t.Error("BucketName() should not be empty")
	}
}

func TestNew_DefaultIdentifier(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	dfcdkutil.StoreConfig(app, testConfig())
	stack := testStack(app)

	b := dfcdkbucket.New(stack, dfcdkbucket.Props{})

	if b.Bucket() == nil {
		t.Fatal("Bucket() should not be nil")
	}

	tmpl := synthTemplate(t, app, "TestStack")
	props := findResource(t, tmpl, "AWS::S3::Bucket")

	name, _ := props["BucketName"].(string)
	if !strings.Contains(name, "documents") {
		t.Errorf("BucketName = %q, want the default documents identifier", name)
	}
}

func TestNew_BlocksPublicAccess(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	dfcdkutil.StoreConfig(app, testConfig())
	stack := testStack(app)

	dfcdkbucket.New(stack, dfcdkbucket.Props{
		Identifier: jsii.String("documents"),
	})

	tmpl := synthTemplate(t, app, "TestStack")
	props := findResource(t, tmpl, "AWS::S3::Bucket")

	block, ok := props["PublicAccessBlockConfiguration"].(map[string]any)
	if !ok {
		t.Fatal("bucket should block public access")
	}
	for _, field := range []string{"BlockPublicAcls", "BlockPublicPolicy", "IgnorePublicAcls", "RestrictPublicBuckets"} {
		if v, _ := block[field].(bool); !v {
			t.Errorf("%s = %v, want true", field, block[field])
		}
	}
}

func TestNew_ChunkLifecycleRule(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	dfcdkutil.StoreConfig(app, testConfig())
	stack := testStack(app)

	dfcdkbucket.New(stack, dfcdkbucket.Props{
		Identifier: jsii.String("documents"),
	})

	tmpl := synthTemplate(t, app, "TestStack")
	props := findResource(t, tmpl, "AWS::S3::Bucket")

	lifecycle, ok := props["LifecycleConfiguration"].(map[string]any)
	if !ok {
		t.Fatal("bucket should have a lifecycle configuration")
	}
	rules, _ := lifecycle["Rules"].([]any)
	for _, val := range rules {
		rule, _ := val.(map[string]any)
		if prefix, _ := rule["Prefix"].(string); prefix != dfcdkbucket.ChunksPrefix {
			continue
		}
		if days, _ := rule["ExpirationInDays"].(float64); days != 7 {
			t.Errorf("chunk ExpirationInDays = %v, want 7", rule["ExpirationInDays"])
		}
		return
	}
	t.Error("no lifecycle rule for the chunks/ prefix found")
}

func TestNew_RawUploadNotification(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	dfcdkutil.StoreConfig(app, testConfig())
	stack := testStack(app)

	q := dfcdkqueue.New(stack, dfcdkqueue.Props{
		Identifier: jsii.String("ingest"),
	})
	dfcdkbucket.New(stack, dfcdkbucket.Props{
		Identifier:        jsii.String("documents"),
		NotificationQueue: q.Queue(),
	})

	tmpl := synthTemplate(t, app, "TestStack")

	// The notification is rendered through a custom resource; check that its
	// configuration filters on the raw/ prefix.
	resources, _ := tmpl["Resources"].(map[string]any)
	for _, val := range resources {
		m, ok := val.(map[string]any)
		if !ok || m["Type"] != "Custom::S3BucketNotifications" {
			continue
		}
		raw, err := json.Marshal(m["Properties"])
		if err != nil {
			t.Fatalf("failed to marshal notification properties: %v", err)
		}
		if !jsonContains(raw, dfcdkbucket.RawPrefix) {
			t.Error("notification configuration should filter on the raw/ prefix")
		}
		return
	}
	t.Error("no Custom::S3BucketNotifications resource found")
}

func TestNew_GrantDeleteChunks(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	dfcdkutil.StoreConfig(app, testConfig())
	stack := testStack(app)

	b := dfcdkbucket.New(stack, dfcdkbucket.Props{
		Identifier: jsii.String("documents"),
	})

	fn := awslambda.NewFunction(stack, jsii.String("TestFn"), &awslambda.FunctionProps{
		Runtime: awslambda.Runtime_NODEJS_22_X(),
		Handler: jsii.String("index.handler"),
		Code:    awslambda.Code_FromInline(jsii.String("exports.handler = async () => {}")),
	})

	b.GrantDeleteChunks(fn)

	tmpl := synthTemplate(t, app, "TestStack")

	resources, _ := tmpl["Resources"].(map[string]any)
	for _, val := range resources {
		m, ok := val.(map[string]any)
		if !ok || m["Type"] != "AWS::IAM::Policy" {
			continue
		}
		raw, err := json.Marshal(m["Properties"])
		if err != nil {
			t.Fatalf("failed to marshal policy: %v", err)
		}
		if jsonContains(raw, "s3:DeleteObject") && jsonContains(raw, dfcdkbucket.ChunksPrefix) {
			return
		}
	}
	t.Error("expected an IAM policy allowing s3:DeleteObject on the chunks/ prefix")
}

func jsonContains(raw []byte, substr string) bool {
	return strings.Contains(string(raw), substr)
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
