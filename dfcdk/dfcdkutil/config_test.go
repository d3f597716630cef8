//nolint:paralleltest // jsii runtime doesn't support parallel tests
package dfcdkutil_test

import (
	"strings"
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkutil"
)

func TestNewConfig(t *testing.T) {
	defer jsii.Close()

	tests := []struct {
		name        string
		context     map[string]any
		wantErr     bool
		errContains []string
	}{
		{
			name: "valid config",
			context: map[string]any{
				"df-qualifier":         "df",
				"df-primary-region":    "us-east-1",
				"df-secondary-regions": []any{"eu-west-1"},
				"df-deployments":       []any{"Dev", "Stag", "Prod"},
				"df-base-domain-name":  "example.com",
			},
			wantErr: false,
		},
		{
			name: "valid config without secondary regions",
			context: map[string]any{
				"df-qualifier":         "df",
				"df-primary-region":    "us-east-1",
				"df-secondary-regions": []any{},
				"df-deployments":       []any{"Prod"},
				"df-base-domain-name":  "example.com",
			},
			wantErr: false,
		},
		{
			name: "missing qualifier",
			context: map[string]any{
				"df-primary-region":    "us-east-1",
				"df-secondary-regions": []any{},
				"df-deployments":       []any{"Dev"},
				"df-base-domain-name":  "example.com",
			},
			wantErr:     true,
			errContains: []string{"df-qualifier", "is not set"},
		},
		{
			name: "qualifier too long",
			context: map[string]any{
				"df-qualifier":         "thisqualifieristoolong",
				"df-primary-region":    "us-east-1",
				"df-secondary-regions": []any{},
				"df-deployments":       []any{"Prod"},
				"df-base-domain-name":  "example.com",
			},
			wantErr:     true,
			errContains: []string{"Qualifier", "exceeds maximum length"},
		},
		{
			name: "invalid base domain name",
			context: map[string]any{
				"df-qualifier":         "df",
				"df-primary-region":    "us-east-1",
				"df-secondary-regions": []any{},
				"df-deployments":       []any{"Prod"},
				"df-base-domain-name":  "not a valid domain",
			},
			wantErr:     true,
			errContains: []string{"BaseDomainName", "valid domain"},
		},
		{
			name: "unknown primary region",
			context: map[string]any{
				"df-qualifier":         "df",
				"df-primary-region":    "unknown-region-1",
				"df-secondary-regions": []any{},
				"df-deployments":       []any{"Dev"},
				"df-base-domain-name":  "example.com",
			},
			wantErr:     true,
			errContains: []string{"unknown primary region"},
		},
		{
			name: "unknown secondary region",
			context: map[string]any{
				"df-qualifier":         "df",
				"df-primary-region":    "us-east-1",
				"df-secondary-regions": []any{"eu-west-1", "unknown-region-2"},
				"df-deployments":       []any{"Dev"},
				"df-base-domain-name":  "example.com",
			},
			wantErr:     true,
			errContains: []string{"unknown secondary region"},
		},
		{
			name: "multiple errors",
			context: map[string]any{
				"df-secondary-regions": []any{},
			},
			wantErr:     true,
			errContains: []string{"df-qualifier", "df-primary-region", "df-deployments"},
		},
		{
			name: "wrong type for qualifier",
			context: map[string]any{
				"df-qualifier":         123,
				"df-primary-region":    "us-east-1",
				"df-secondary-regions": []any{},
				"df-deployments":       []any{"Dev"},
				"df-base-domain-name":  "example.com",
			},
			wantErr:     true,
			errContains: []string{"df-qualifier", "must be a string"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := tt.context
			app := awscdk.NewApp(&awscdk.AppProps{Context: &ctx})

			cfg, err := dfcdkutil.NewConfig(app, dfcdkutil.AppConfig{Prefix: "df-"})
			if tt.wantErr {
				if err == nil {
					t.Fatal("NewConfig() expected error, got nil")
				}
				for _, want := range tt.errContains {
					if !strings.Contains(err.Error(), want) {
						t.Errorf("NewConfig() error %q does not contain %q", err.Error(), want)
					}
				}
				return
			}

			if err != nil {
				t.Fatalf("NewConfig() unexpected error: %v", err)
			}
			if cfg.Qualifier == "" {
				t.Error("NewConfig() returned empty qualifier")
			}
		})
	}
}

func TestConfig_AllRegions(t *testing.T) {
	defer jsii.Close()

	cfg := &dfcdkutil.Config{
		PrimaryRegion:    "us-east-1",
		SecondaryRegions: []string{"eu-west-1", "ap-southeast-2"},
	}

	got := cfg.AllRegions()
	want := []string{"us-east-1", "eu-west-1", "ap-southeast-2"}
	if len(got) != len(want) {
		t.Fatalf("AllRegions() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("AllRegions()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestConfigFromScope_NotStored(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)

	defer func() {
		if recover() == nil {
			t.Error("ConfigFromScope() should panic when config was not stored")
		}
	}()
	dfcdkutil.ConfigFromScope(app)
}
