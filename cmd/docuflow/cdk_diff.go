package main

import (
	"context"

	"github.com/docuflowhq/docuflow/cmd/internal/cdkctx"
	"github.com/docuflowhq/docuflow/cmd/internal/cmdexec"
	"github.com/docuflowhq/docuflow/cmd/internal/projcfg"
)

type DiffCmd struct {
	Deployment string `arg:"" required:"" help:"Deployment name (e.g., Stag, Prod)."`
}

func (c *DiffCmd) Run(cfg *projcfg.Config) error {
	cctx, err := cdkctx.Load(cfg.CdkDir())
	if err != nil {
		return err
	}
	return cmdexec.Run(context.Background(), cfg.CdkDir(),
		"cdk", "diff", cctx.Qualifier+"*"+c.Deployment)
}
