// Command ledger inspects and maintains a siteledger store from the shell.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	a := &app{out: os.Stdout}
	flag.StringVar(&a.configPath, "config", "", "Path to the YAML config file (defaults to $SITELEDGER_CONFIG_PATH)")
	flag.BoolVar(&a.raw, "raw", false, "Print markdown without terminal rendering")

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	a.register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
