package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/pflag"

	"tddebugger/internal/app"
	"tddebugger/internal/cli"
	"tddebugger/internal/storage/repo"
	"tddebugger/pkg/domain"
	"tddebugger/pkg/errx"
)

var historySubcommands = []string{"sessions", "show", "delete", "cleanup", "clear", "help"}

func parseHistory(args []string) error {
	if len(args) < 1 {
		printHistoryUsage()
		return errors.New("subcommand required")
	}

	switch args[0] {
	case "sessions":
		return historyCommand("sessions", args[1:], 0, nil, historySessions)
	case "show":
		var out outputFlags
		return historyCommand("show", args[1:], 1, out.register, func(ctx context.Context, a *app.App, fs *pflag.FlagSet) error {
			return historyShow(ctx, a, fs.Arg(0), &out)
		})
	case "delete":
		return historyCommand("delete", args[1:], 1, nil, func(ctx context.Context, a *app.App, fs *pflag.FlagSet) error {
			n, err := a.Entries.DeleteBySession(ctx, fs.Arg(0))
			if err != nil {
				return err
			}
			fmt.Printf("deleted %d entries\n", n)
			return nil
		})
	case "cleanup":
		var days int
		register := func(fs *pflag.FlagSet) {
			fs.IntVar(&days, "days", 7, "keep entries captured within this many days")
		}
		return historyCommand("cleanup", args[1:], 0, register, func(ctx context.Context, a *app.App, _ *pflag.FlagSet) error {
			n, err := a.Entries.CleanupOld(ctx, days)
			if err != nil {
				return err
			}
			fmt.Printf("removed %d entries older than %d days\n", n, days)
			return nil
		})
	case "clear":
		var yes bool
		register := func(fs *pflag.FlagSet) {
			fs.BoolVar(&yes, "yes", false, "confirm removal of all saved sessions")
		}
		return historyCommand("clear", args[1:], 0, register, func(ctx context.Context, a *app.App, _ *pflag.FlagSet) error {
			if !yes {
				return errors.New("refusing to clear history without --yes")
			}
			return a.Entries.ClearAll(ctx)
		})
	case "help", "--help", "-h":
		printHistoryUsage()
		return nil
	default:
		return cli.UnknownSubcommandError("history", args[0], historySubcommands)
	}
}

func printHistoryUsage() {
	_, _ = fmt.Fprint(os.Stderr, `Usage: tddebugger history <subcommand> [options]

Entries captured with --save are kept in the local database.

Subcommands:
  sessions              list saved sessions
  show <session>        print the entries of a session (accepts output options)
  delete <session>      delete a session
  cleanup [--days N]    delete entries older than N days (default 7)
  clear --yes           delete every saved entry
`)
}

// historyCommand 解析子命令选项、打开应用并执行
func historyCommand(name string, args []string, nargs int, register func(*pflag.FlagSet),
	run func(context.Context, *app.App, *pflag.FlagSet) error) error {
	fs := pflag.NewFlagSet("history "+name, pflag.ContinueOnError)
	fs.SetInterspersed(true)
	var g globalFlags
	g.register(fs)
	if register != nil {
		register(fs)
	}
	fs.Usage = func() {
		printHistoryUsage()
		_, _ = fmt.Fprint(os.Stderr, "\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != nargs {
		fs.Usage()
		return fmt.Errorf("history %s expects %d argument(s)", name, nargs)
	}

	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()
	return run(context.Background(), a, fs)
}

func historySessions(ctx context.Context, a *app.App, _ *pflag.FlagSet) error {
	sessions, err := a.Entries.Sessions(ctx)
	if err != nil {
		return err
	}
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"session", "entries", "first seen", "last seen"})
	for _, s := range sessions {
		t.AppendRow(table.Row{s.SessionID, s.Count, formatMillis(s.FirstSeen), formatMillis(s.LastSeen)})
	}
	t.Render()
	return nil
}

func historyShow(ctx context.Context, a *app.App, sessionID string, out *outputFlags) error {
	const batch = 1000
	var entries []domain.Entry
	for offset := 0; ; offset += batch {
		records, total, err := a.Entries.Query(ctx, repo.EntryQuery{SessionID: sessionID, Offset: offset, Limit: batch})
		if err != nil {
			return err
		}
		for _, r := range records {
			entries = append(entries, repo.ToEntry(r))
		}
		if total == 0 {
			return errx.Wrap(errx.CodeSessionNotFound, domain.ErrSessionNotFound, sessionID)
		}
		if int64(offset+batch) >= total {
			break
		}
	}
	return out.render(ctx, a, os.Stdout, entries)
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).Local().Format(time.DateTime)
}
