package main

import (
	"context"

	"github.com/docuflowhq/docuflow/cmd/internal/cmdexec"
	"github.com/docuflowhq/docuflow/cmd/internal/projcfg"
)

type UnitTestCmd struct{}

func (c *UnitTestCmd) Run(cfg *projcfg.Config) error {
	return cmdexec.Run(context.Background(), cfg.Root, "go", "test", "./...")
}
