// Command docuflow is the development CLI: it wraps the CDK app, the test
// suite and the formatters so day-to-day tasks run from one place.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/docuflowhq/docuflow/cmd/internal/projcfg"
)

type App struct {
	Cdk struct {
		Bootstrap BootstrapCmd `cmd:"" help:"Bootstrap CDK in the current AWS account/region."`
		Deploy    DeployCmd    `cmd:"" help:"Deploy CDK stacks for a deployment."`
		Diff      DiffCmd      `cmd:"" help:"Show CDK diff for a deployment."`
		LogGroups LogGroupsCmd `cmd:"" name:"loggroups" help:"Show all CloudWatch log groups for a deployment."`
	} `cmd:"" help:"CDK commands."`
	Check struct {
		UnitTest UnitTestCmd `cmd:"" name:"unit-test" help:"Run all Go tests."`
	} `cmd:"" help:"Check commands."`
	Dev struct {
		Fmt FmtCmd `cmd:"" help:"Format Go files and shell scripts."`
	} `cmd:"" help:"Development commands."`
}

func main() {
	cfg, err := projcfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	var app App
	ctx := kong.Parse(&app,
		kong.Name("docuflow"),
		kong.Description("Docuflow development CLI."),
		kong.Bind(cfg),
	)
	if err := ctx.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
