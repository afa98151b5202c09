package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"tddebugger/internal/adapter/har"
	"tddebugger/internal/app"
)

func parseReplay(args []string) error {
	fs := pflag.NewFlagSet("replay", pflag.ContinueOnError)
	fs.SetInterspersed(true)
	var (
		g    globalFlags
		out  outputFlags
		save bool
	)
	g.register(fs)
	out.register(fs)
	fs.BoolVar(&save, "save", false, "save replayed entries to history")

	fs.Usage = func() {
		_, _ = fmt.Fprint(os.Stderr, `Usage: tddebugger replay [options] <file.har>

Run every request of a HAR archive (plain, gzip or zstd) through the capture
pipeline and print the summaries.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errors.New("exactly one HAR file required")
	}

	ctx := context.Background()
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	archive, err := har.LoadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	c, err := a.NewCapture(ctx, app.PipelineOptions{Save: save})
	if err != nil {
		return err
	}
	n := har.Replay(ctx, c.Pipeline, archive)
	c.Close()

	fmt.Fprintf(os.Stderr, "replayed %d of %d requests (session %s)\n",
		n, len(archive.Entries), c.Pipeline.Session().ID)
	return out.render(ctx, a, os.Stdout, c.Pipeline.Session().Entries())
}
