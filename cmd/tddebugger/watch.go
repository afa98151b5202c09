package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"tddebugger/internal/adapter/cdp"
	"tddebugger/internal/app"
	"tddebugger/internal/browser"
	"tddebugger/pkg/domain"
)

func parseWatch(args []string) error {
	fs := pflag.NewFlagSet("watch", pflag.ContinueOnError)
	fs.SetInterspersed(true)
	var (
		g        globalFlags
		out      outputFlags
		devtools string
		target   string
		launch   bool
		headless bool
		startURL string
		save     bool
		quiet    bool
	)
	g.register(fs)
	out.register(fs)
	fs.StringVar(&devtools, "devtools", "", "DevTools endpoint of a running browser (default from config)")
	fs.StringVar(&target, "target", "", "target id to attach to (default: first page)")
	fs.BoolVar(&launch, "launch", false, "launch a dedicated Chrome instance")
	fs.BoolVar(&headless, "headless", false, "with --launch, run Chrome headless")
	fs.StringVar(&startURL, "url", "", "with --launch, page to open")
	fs.BoolVar(&save, "save", false, "save captured entries to history")
	fs.BoolVar(&quiet, "quiet", false, "do not stream entries while capturing")

	fs.Usage = func() {
		_, _ = fmt.Fprint(os.Stderr, `Usage: tddebugger watch [options]

Attach to a Chrome tab, stream TD requests as they complete and print the
summary table after Ctrl+C.

Examples:
  tddebugger watch --launch --url https://example.com
  tddebugger watch --devtools http://localhost:9222 --save --db web

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	if devtools == "" {
		devtools = a.Config.Capture.DevToolsURL
	}
	if launch {
		b, err := browser.Start(ctx, browser.Options{Headless: headless, StartURL: startURL}, a.Log)
		if err != nil {
			return err
		}
		defer func() { _ = b.Stop(5 * time.Second) }()
		devtools = b.DevToolsURL
	}

	var sink func(domain.Entry)
	if !quiet {
		sink = streamer(os.Stderr)
	}
	c, err := a.NewCapture(ctx, app.PipelineOptions{Sink: sink, Save: save})
	if err != nil {
		return err
	}

	mgr := cdp.NewClientManager(devtools, a.Log)
	defer mgr.Close()
	ts, err := mgr.AttachTarget(ctx, domain.TargetID(target))
	if err != nil {
		c.Close()
		return err
	}
	sess := c.Pipeline.Session()
	sess.AddTarget(ts.ID)

	obs := cdp.NewObserver(c.Pipeline, a.PendingTTL(), a.Log)
	fmt.Fprintf(os.Stderr, "watching %s (session %s), press Ctrl+C to stop\n", ts.URL, sess.ID)
	runErr := obs.Run(ctx, ts.Client)
	obs.Close()
	c.Close()
	sess.RemoveTarget(ts.ID)

	if runErr != nil {
		return runErr
	}
	fmt.Fprintf(os.Stderr, "\ncaptured %d entries\n", sess.Len())
	return out.render(context.Background(), a, os.Stdout, sess.Entries())
}

// streamer 返回逐条输出的回调，可在多个 worker 中并发调用
func streamer(w io.Writer) func(domain.Entry) {
	var mu sync.Mutex
	return func(e domain.Entry) {
		status := "pending"
		if e.HasStatus() {
			status = fmt.Sprint(e.Status)
		}
		db := e.Database()
		if db == "" {
			db = "-"
		}
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "#%-4d %s %-6s %-7s %-12s %s\n",
			e.Index, e.Time().Format("15:04:05"), e.Method, status, db, e.URL)
	}
}
