// Package dfcdkutil provides the shared foundation for docuflow CDK applications.
//
// # Quick Start
//
// Use [SetupApp] to configure a multi-region, multi-deployment CDK application:
//
//	func main() {
//	    defer jsii.Close()
//	    app := awscdk.NewApp(nil)
//
//	    dfcdkutil.SetupApp(app, dfcdkutil.AppConfig{
//	        Prefix: "df-",
//	    },
//	        func(stack awscdk.Stack) *Shared { return NewShared(stack) },
//	        func(stack awscdk.Stack, shared *Shared, deploymentIdent string) {
//	            NewDeployment(stack, shared, deploymentIdent)
//	        },
//	    )
//
//	    app.Synth(nil)
//	}
//
// # CDK Context Configuration
//
// Configuration is read from CDK context (cdk.json). With prefix "df-":
//
//	{
//	  "df-qualifier": "df",
//	  "df-primary-region": "us-east-1",
//	  "df-secondary-regions": ["eu-west-1"],
//	  "df-deployments": ["Dev", "Stag", "Prod"],
//	  "df-base-domain-name": "example.com"
//	}
//
// All context values are read and validated upfront by [NewConfig]; constructs
// deeper in the tree retrieve the validated [Config] via [ConfigFromScope] or
// the scope-based convenience functions ([Qualifier], [IsPrimaryRegion], ...).
//
// # Stack Creation Order
//
// [SetupApp] creates stacks with the following dependency order:
//  1. Primary shared stack
//  2. Secondary shared stacks (depend on primary shared)
//  3. Primary deployment stacks (depend on primary shared)
//  4. Secondary deployment stacks (depend on primary deployment)
package dfcdkutil
