package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
	"github.com/rpggio/siteledger/internal/backend"
)

type checkCmd struct {
	*app
}

func (*checkCmd) Name() string     { return "check" }
func (*checkCmd) Synopsis() string { return "validate the stored project collection" }
func (*checkCmd) Usage() string {
	return `ledger check

  Reads the stored collection without changing it and reports entries that
  would be dropped on load. Exits non-zero when any are found.
`
}

func (*checkCmd) SetFlags(*flag.FlagSet) {}

func (c *checkCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	cfg, err := c.config()
	if err != nil {
		return c.fail(err)
	}
	st, closer, err := backend.OpenStore(ctx, cfg.Storage, nil)
	if err != nil {
		return c.fail(err)
	}
	defer closer.Close()

	rep, err := st.Inspect(ctx)
	if err != nil {
		return c.fail(err)
	}
	if rep.Corrupt {
		fmt.Fprintf(c.out, "stored collection is unreadable: %s\n", rep.Reason)
		return subcommands.ExitFailure
	}

	dropped := rep.Dropped()
	fmt.Fprintf(c.out, "%d valid, %d dropped\n", len(rep.Entries)-len(dropped), len(dropped))
	for _, e := range dropped {
		fmt.Fprintf(c.out, "  entry %d: %s\n", e.Index, e.Reason)
	}
	if len(dropped) > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type clearCmd struct {
	*app
	confirm bool
}

func (*clearCmd) Name() string     { return "clear" }
func (*clearCmd) Synopsis() string { return "delete every stored project" }
func (*clearCmd) Usage() string {
	return `ledger clear -confirm

  Removes the stored collection. The backup slot is left in place.
`
}

func (c *clearCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.confirm, "confirm", false, "Required to actually clear the store")
}

func (c *clearCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if !c.confirm {
		fmt.Fprintln(c.out, "Refusing to clear without -confirm")
		return subcommands.ExitUsageError
	}
	svc, closer, _, err := c.openLedger(ctx)
	if err != nil {
		return c.fail(err)
	}
	defer closer.Close()

	count := len(svc.Projects())
	if err := svc.ClearAll(ctx); err != nil {
		return c.fail(err)
	}
	fmt.Fprintf(c.out, "Cleared %d projects\n", count)
	return subcommands.ExitSuccess
}
