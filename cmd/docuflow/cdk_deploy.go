package main

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/docuflowhq/docuflow/cmd/internal/cdkctx"
	"github.com/docuflowhq/docuflow/cmd/internal/cmdexec"
	"github.com/docuflowhq/docuflow/cmd/internal/projcfg"
)

type DeployCmd struct {
	Deployment string `arg:"" required:"" help:"Deployment name (e.g., Stag, Prod)."`
	Hotswap    bool   `help:"Enable CDK hotswap deployment for faster iterations."`
}

func (c *DeployCmd) Run(cfg *projcfg.Config) error {
	ctx := context.Background()

	cctx, err := cdkctx.Load(cfg.CdkDir())
	if err != nil {
		return err
	}
	if !cctx.IsValidDeployment(c.Deployment) {
		return errors.Newf("unknown deployment %q, defined: %v", c.Deployment, cctx.Deployments)
	}

	args := []string{"deploy", "--require-approval", "never"}
	if c.Hotswap {
		args = append(args, "--hotswap")
	}
	args = append(args, cctx.Qualifier+"*"+c.Deployment)

	return cmdexec.Run(ctx, cfg.CdkDir(), "cdk", args...)
}
