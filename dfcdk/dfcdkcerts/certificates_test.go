//nolint:paralleltest // jsii runtime doesn't support parallel tests
package dfcdkcerts_test

import (
	"encoding/json"
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53"
	"github.com/aws/jsii-runtime-go"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkcerts"
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
		DNSDelegated:     true,
	}
}

func testStack(app awscdk.App, region string) awscdk.Stack {
	stack := awscdk.NewStack(app, jsii.String("TestStack"), &awscdk.StackProps{
		Env: &awscdk.Environment{
			Region: jsii.String(region),
		},
	})
	dfcdkutil.StoreDeploymentIdent(stack, "Stag")
	return stack
}

func testZone(stack awscdk.Stack) awsroute53.IHostedZone {
	return awsroute53.NewHostedZone(stack, jsii.String("TestZone"), &awsroute53.HostedZoneProps{
		ZoneName: jsii.String("example.com"),
	})
}

func TestNew_WildcardCoversApex(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	dfcdkutil.StoreConfig(app, testConfig())
	stack := testStack(app, "us-east-1")

	c := dfcdkcerts.New(stack, dfcdkcerts.Props{HostedZone: testZone(stack)})
	if c.WildcardCertificate() == nil {
		t.Fatal("WildcardCertificate() should not be nil")
	}

	tmpl := synthTemplate(t, app, "TestStack")
	props := findResource(t, tmpl, "AWS::CertificateManager::Certificate")

	if domain, _ := props["DomainName"].(string); domain != "*.example.com" {
		t.Errorf("DomainName = %q, want *.example.com", domain)
	}

	sans, _ := props["SubjectAlternativeNames"].([]any)
	found := false
	for _, san := range sans {
		if san == "example.com" {
			found = true
		}
	}
	if !found {
		t.Error("the zone apex should be a subject alternative name")
	}
}

func TestNew_WithoutApex(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	dfcdkutil.StoreConfig(app, testConfig())
	stack := testStack(app, "us-east-1")

	dfcdkcerts.New(stack, dfcdkcerts.Props{
		HostedZone:  testZone(stack),
		IncludeApex: jsii.Bool(false),
	})

	tmpl := synthTemplate(t, app, "TestStack")
	props := findResource(t, tmpl, "AWS::CertificateManager::Certificate")

	if _, ok := props["SubjectAlternativeNames"]; ok {
		t.Error("no subject alternative names expected when the apex is excluded")
	}
}

func TestNew_RequiresHostedZone(t *testing.T) {
	defer jsii.Close()

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected a panic")
		}
	}()

	app := awscdk.NewApp(nil)
	dfcdkutil.StoreConfig(app, testConfig())
	stack := testStack(app, "us-east-1")

	dfcdkcerts.New(stack, dfcdkcerts.Props{})
}

func TestUsableForCloudFront(t *testing.T) {
	for region, want := range map[string]bool{
		"us-east-1": true,
		"eu-west-1": false,
	} {
		t.Run(region, func(t *testing.T) {
			defer jsii.Close()

			app := awscdk.NewApp(nil)
			dfcdkutil.StoreConfig(app, testConfig())
			stack := testStack(app, region)

			c := dfcdkcerts.New(stack, dfcdkcerts.Props{HostedZone: testZone(stack)})
			if c.UsableForCloudFront() != want {
				t.Errorf("UsableForCloudFront() in %s = %v, want %v", region, c.UsableForCloudFront(), want)
			}
		})
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
