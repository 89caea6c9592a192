package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
	"github.com/rpggio/siteledger/internal/backend"
	"github.com/rpggio/siteledger/internal/config"
	"github.com/rpggio/siteledger/internal/ledger"
	"golang.org/x/term"
)

const (
	defaultMarkdownWidth = 80
	minMarkdownWidth     = 20
)

// app holds what every subcommand shares.
type app struct {
	configPath string
	raw        bool
	out        io.Writer
	// cfg, when set, replaces config.Load.
	cfg *config.Config
	now func() time.Time
}

func (a *app) register(c *subcommands.Commander) {
	c.Register(&listCmd{app: a}, "projects")
	c.Register(&summaryCmd{app: a}, "projects")
	c.Register(&reportCmd{app: a}, "projects")
	c.Register(&checkCmd{app: a}, "maintenance")
	c.Register(&clearCmd{app: a}, "maintenance")
}

func (a *app) config() (config.Config, error) {
	if a.cfg != nil {
		return *a.cfg, nil
	}
	if a.configPath != "" {
		if err := os.Setenv("SITELEDGER_CONFIG_PATH", a.configPath); err != nil {
			return config.Config{}, err
		}
	}
	return config.Load()
}

func (a *app) clock() time.Time {
	if a.now != nil {
		return a.now()
	}
	return time.Now()
}

func (a *app) openLedger(ctx context.Context) (*ledger.Service, io.Closer, config.Config, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, nil, config.Config{}, err
	}
	svc, closer, err := backend.OpenLedger(ctx, cfg.Storage, nil, ledger.WithClock(a.clock))
	if err != nil {
		return nil, nil, config.Config{}, err
	}
	return svc, closer, cfg, nil
}

// printMarkdown writes md rendered for the terminal, or as is with -raw.
func (a *app) printMarkdown(md string) error {
	if a.raw {
		_, err := io.WriteString(a.out, md)
		return err
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(max(terminalWidth(defaultMarkdownWidth), minMarkdownWidth)),
	)
	if err != nil {
		return err
	}
	rendered, err := renderer.Render(md)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, strings.TrimRight(rendered, "\n"))
	return err
}

func (a *app) fail(err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return subcommands.ExitFailure
}

// terminalWidth returns the current terminal width or a fallback when unavailable.
func terminalWidth(fallback int) int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if parsed, err := strconv.Atoi(cols); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}
