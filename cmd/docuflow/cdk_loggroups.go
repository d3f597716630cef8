package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/docuflowhq/docuflow/cmd/internal/cdkctx"
	"github.com/docuflowhq/docuflow/cmd/internal/cmdexec"
	"github.com/docuflowhq/docuflow/cmd/internal/projcfg"
)

type LogGroupsCmd struct {
	Deployment string `arg:"" required:"" help:"Deployment name (e.g., Stag, Prod)."`
}

func (c *LogGroupsCmd) Run(cfg *projcfg.Config) error {
	cdkDir := cfg.CdkDir()
	ctx := context.Background()

	cctx, err := cdkctx.Load(cdkDir)
	if err != nil {
		return err
	}

	out, err := cmdexec.Output(ctx, cdkDir, "cdk", "list")
	if err != nil {
		return err
	}

	for line := range strings.SplitSeq(out, "\n") {
		stack := strings.TrimSpace(line)
		if stack == "" || !strings.HasSuffix(stack, c.Deployment) {
			continue
		}

		region, ok := cctx.ResolveStackRegion(stack)
		if !ok {
			continue
		}

		fmt.Fprintf(os.Stdout, "=== %s (%s) ===\n", stack, region)

		out, err := cmdexec.Output(ctx, cdkDir, "aws", "cloudformation", "describe-stacks",
			"--no-cli-pager",
			"--region", region,
			"--stack-name", stack,
			"--query", "Stacks[0].Outputs[?contains(OutputKey, 'LogGroup')]",
			"--output", "table",
		)
		if err != nil {
			fmt.Fprintln(os.Stdout, "(not deployed)")
		} else {
			fmt.Fprint(os.Stdout, out)
		}
		fmt.Fprintln(os.Stdout)
	}

	return nil
}
