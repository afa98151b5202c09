package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/pflag"

	"tddebugger/internal/adapter/cdp"
	"tddebugger/internal/config"
	"tddebugger/internal/logger"
)

func parseTargets(args []string) error {
	fs := pflag.NewFlagSet("targets", pflag.ContinueOnError)
	var (
		g        globalFlags
		devtools string
	)
	g.register(fs)
	fs.StringVar(&devtools, "devtools", "", "DevTools endpoint (default from config)")
	fs.Usage = func() {
		_, _ = fmt.Fprint(os.Stderr, "Usage: tddebugger targets [--devtools URL]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(g.configPath)
	if err != nil {
		return err
	}
	if devtools == "" {
		devtools = cfg.Capture.DevToolsURL
	}
	mgr := cdp.NewClientManager(devtools, logger.NewNop())
	defer mgr.Close()

	targets, err := mgr.ListTargets(context.Background())
	if err != nil {
		return err
	}
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"id", "title", "url"})
	for _, tg := range targets {
		t.AppendRow(table.Row{string(tg.ID), tg.Title, tg.URL})
	}
	t.Render()
	return nil
}
