//nolint:paralleltest // jsii runtime doesn't support parallel tests
package dfcdknetwork_test

import (
	"encoding/json"
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdknetwork"
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

func TestNew_CreatesVpc(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	dfcdkutil.StoreConfig(app, testConfig())
	stack := testStack(app)

	net := dfcdknetwork.New(stack, dfcdknetwork.Props{})

	if net.Vpc() == nil {
		t.Error("Vpc() should not be nil")
	}
	if net.PrivateSubnets() == nil {
		t.Error("PrivateSubnets() should not be nil")
	}
	if net.IsolatedSubnets() == nil {
		t.Error("IsolatedSubnets() should not be nil")
	}
}

func TestNew_SubnetTiers(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	dfcdkutil.StoreConfig(app, testConfig())
	stack := testStack(app)

	dfcdknetwork.New(stack, dfcdknetwork.Props{})

	tmpl := synthTemplate(t, app, "TestStack")

	// Two AZs times three tiers: public, private, isolated.
	if count := countResources(tmpl, "AWS::EC2::Subnet"); count != 6 {
		t.Errorf("found %d subnets, want 6", count)
	}

	names := map[string]int{}
	resources, _ := tmpl["Resources"].(map[string]any)
	for _, val := range resources {
		m, ok := val.(map[string]any)
		if !ok || m["Type"] != "AWS::EC2::Subnet" {
			continue
		}
		props, _ := m["Properties"].(map[string]any)
		tags, _ := props["Tags"].([]any)
		for _, tv := range tags {
			tag, _ := tv.(map[string]any)
			if tag["Key"] != "aws-cdk:subnet-name" {
				continue
			}
			name, _ := tag["Value"].(string)
			names[name]++
		}
	}
	for _, tier := range []string{"public", "private", "isolated"} {
		if names[tier] != 2 {
			t.Errorf("found %d %q subnets, want 2", names[tier], tier)
		}
	}
}

func TestNew_S3GatewayEndpoint(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	dfcdkutil.StoreConfig(app, testConfig())
	stack := testStack(app)

	dfcdknetwork.New(stack, dfcdknetwork.Props{})

	tmpl := synthTemplate(t, app, "TestStack")

	count := countResources(tmpl, "AWS::EC2::VPCEndpoint")
	if count != 1 {
		t.Errorf("found %d VPC endpoints, want 1 (S3 gateway)", count)
	}
}

func TestNew_InterfaceEndpoints(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	dfcdkutil.StoreConfig(app, testConfig())
	stack := testStack(app)

	dfcdknetwork.New(stack, dfcdknetwork.Props{
		SecretsManagerEndpoint: jsii.Bool(true),
		BedrockEndpoint:        jsii.Bool(true),
	})

	tmpl := synthTemplate(t, app, "TestStack")

	count := countResources(tmpl, "AWS::EC2::VPCEndpoint")
	if count != 3 {
		t.Errorf("found %d VPC endpoints, want 3 (S3 + SecretsManager + Bedrock)", count)
	}
}

func TestNew_FlowLogs(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	dfcdkutil.StoreConfig(app, testConfig())
	stack := testStack(app)

	dfcdknetwork.New(stack, dfcdknetwork.Props{
		FlowLogs: jsii.Bool(true),
	})

	tmpl := synthTemplate(t, app, "TestStack")

	if countResources(tmpl, "AWS::EC2::FlowLog") != 1 {
		t.Error("expected a flow log resource")
	}
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
