package main

import (
	"context"

	"github.com/docuflowhq/docuflow/cmd/internal/cmdexec"
	"github.com/docuflowhq/docuflow/cmd/internal/projcfg"
)

type BootstrapCmd struct{}

func (c *BootstrapCmd) Run(cfg *projcfg.Config) error {
	return cmdexec.Run(context.Background(), cfg.CdkDir(), "cdk", "bootstrap")
}
