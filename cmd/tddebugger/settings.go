package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"tddebugger/internal/app"
	"tddebugger/internal/cli"
	"tddebugger/internal/filter"
	"tddebugger/internal/prefs"
)

var settingsSubcommands = []string{"show", "set", "hosts", "rules", "fields", "extractors", "presets", "export", "import", "help"}

func parseSettings(args []string) error {
	if len(args) < 1 {
		printSettingsUsage()
		return errors.New("subcommand required")
	}

	switch args[0] {
	case "show":
		return settingsCommand("show", args[1:], nil, settingsShow)
	case "set":
		return settingsCommand("set", args[1:], nil, settingsSet)
	case "hosts":
		return settingsCommand("hosts", args[1:], nil, settingsHosts)
	case "rules":
		var file string
		register := func(fs *pflag.FlagSet) {
			fs.StringVarP(&file, "file", "f", "", "replace custom redaction rules with the content of this file (- for stdin)")
		}
		return settingsCommand("rules", args[1:], register, func(ctx context.Context, a *app.App, fs *pflag.FlagSet) error {
			return settingsRules(ctx, a, file)
		})
	case "fields":
		return settingsCommand("fields", args[1:], nil, func(ctx context.Context, a *app.App, fs *pflag.FlagSet) error {
			doc, err := singleFileArg(fs)
			if err != nil {
				return err
			}
			if err := a.Prefs.SaveCustomFields(ctx, doc); err != nil {
				return err
			}
			fmt.Println("custom field configuration saved")
			return nil
		})
	case "extractors":
		return settingsCommand("extractors", args[1:], nil, func(ctx context.Context, a *app.App, fs *pflag.FlagSet) error {
			doc, err := singleFileArg(fs)
			if err != nil {
				return err
			}
			if err := a.Prefs.SaveCustomExtractors(ctx, doc); err != nil {
				return err
			}
			fmt.Println("custom extractors saved")
			return nil
		})
	case "presets":
		return parsePresets(args[1:])
	case "export":
		var outPath string
		register := func(fs *pflag.FlagSet) {
			fs.StringVarP(&outPath, "out", "o", prefs.ExportFileName, "output file (- for stdout)")
		}
		return settingsCommand("export", args[1:], register, func(ctx context.Context, a *app.App, _ *pflag.FlagSet) error {
			doc, err := a.Prefs.Export(ctx)
			if err != nil {
				return err
			}
			if outPath == "-" {
				_, err = fmt.Fprintln(os.Stdout, doc)
				return err
			}
			if err := os.WriteFile(outPath, []byte(doc), 0o644); err != nil {
				return err
			}
			fmt.Printf("settings exported to %s\n", outPath)
			return nil
		})
	case "import":
		return settingsCommand("import", args[1:], nil, func(ctx context.Context, a *app.App, fs *pflag.FlagSet) error {
			doc, err := singleFileArg(fs)
			if err != nil {
				return err
			}
			keys, err := a.Prefs.Import(ctx, doc)
			if err != nil {
				return err
			}
			fmt.Printf("imported %d settings: %s\n", len(keys), strings.Join(keys, ", "))
			return nil
		})
	case "help", "--help", "-h":
		printSettingsUsage()
		return nil
	default:
		return cli.UnknownSubcommandError("settings", args[0], settingsSubcommands)
	}
}

func printSettingsUsage() {
	_, _ = fmt.Fprint(os.Stderr, `Usage: tddebugger settings <subcommand> [options]

Subcommands:
  show                       print the current settings
  set <key> <value>          set showNonTD, showPreflight, redact (on/off) or filter (text)
  hosts [h1,h2,...]          print or replace the TD host allow-list
  rules [-f FILE]            print or replace custom redaction rules ("pattern => marker" per line)
  fields <file>              replace per-extractor field configuration (JSON object)
  extractors <file>          replace custom path extractors (JSON array)
  presets list|save|delete   manage saved filter presets
  export [-o FILE]           export settings as JSON
  import <file>              import settings exported earlier
`)
}

// settingsCommand 解析子命令选项、打开应用并执行
func settingsCommand(name string, args []string, register func(*pflag.FlagSet),
	run func(context.Context, *app.App, *pflag.FlagSet) error) error {
	fs := pflag.NewFlagSet("settings "+name, pflag.ContinueOnError)
	fs.SetInterspersed(true)
	var g globalFlags
	g.register(fs)
	if register != nil {
		register(fs)
	}
	fs.Usage = func() {
		printSettingsUsage()
		_, _ = fmt.Fprint(os.Stderr, "\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()
	return run(context.Background(), a, fs)
}

func singleFileArg(fs *pflag.FlagSet) (string, error) {
	if fs.NArg() != 1 {
		return "", errors.New("exactly one file argument required (- for stdin)")
	}
	return cli.ReadInput(fs.Arg(0))
}

func settingsShow(ctx context.Context, a *app.App, _ *pflag.FlagSet) error {
	p, err := a.Prefs.Load(ctx)
	if err != nil {
		return err
	}
	rules, err := a.Prefs.LoadRedactionRuleStrings(ctx)
	if err != nil {
		return err
	}
	presets, err := a.Prefs.PresetNames(ctx)
	if err != nil {
		return err
	}
	extractors, err := a.Prefs.LoadCustomExtractors(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("hosts:          %s\n", strings.Join(p.Hosts, ", "))
	fmt.Printf("showNonTD:      %v\n", p.ShowNonTD)
	fmt.Printf("showPreflight:  %v\n", p.ShowPreflight)
	fmt.Printf("redact:         %v\n", p.Redact)
	fmt.Printf("filter:         %q\n", p.Filter)
	fmt.Printf("custom rules:   %d\n", len(rules))
	fmt.Printf("extractors:     %d custom\n", len(extractors))
	fmt.Printf("presets:        %s\n", strings.Join(presets, ", "))
	return nil
}

func settingsSet(ctx context.Context, a *app.App, fs *pflag.FlagSet) error {
	if fs.NArg() != 2 {
		return errors.New("usage: settings set <key> <value>")
	}
	key, value := fs.Arg(0), fs.Arg(1)

	p, err := a.Prefs.Load(ctx)
	if err != nil {
		return err
	}
	switch key {
	case "filter":
		p.Filter = value
	case "showNonTD", "showPreflight", "redact":
		on, err := cli.ParseSwitch(value)
		if err != nil {
			return err
		}
		switch key {
		case "showNonTD":
			p.ShowNonTD = on
		case "showPreflight":
			p.ShowPreflight = on
		default:
			p.Redact = on
		}
	default:
		if best := cli.FindClosest(key, []string{"filter", "showNonTD", "showPreflight", "redact"}); best != "" {
			return fmt.Errorf("unknown setting %q (did you mean %q?)", key, best)
		}
		return fmt.Errorf("unknown setting %q", key)
	}
	return a.Prefs.Save(ctx, p)
}

func settingsHosts(ctx context.Context, a *app.App, fs *pflag.FlagSet) error {
	if fs.NArg() == 0 {
		hosts, err := a.Prefs.LoadHostAllowList(ctx)
		if err != nil {
			return err
		}
		for _, h := range hosts {
			fmt.Println(h)
		}
		return nil
	}
	hosts, err := a.Prefs.SaveHosts(ctx, strings.Join(fs.Args(), ","))
	if err != nil {
		return err
	}
	fmt.Printf("capturing hosts: %s\n", strings.Join(hosts, ", "))
	return nil
}

func settingsRules(ctx context.Context, a *app.App, file string) error {
	if file == "" {
		rules, err := a.Prefs.LoadRedactionRuleStrings(ctx)
		if err != nil {
			return err
		}
		for _, r := range rules {
			fmt.Println(r)
		}
		return nil
	}

	text, err := cli.ReadInput(file)
	if err != nil {
		return err
	}
	v, err := a.Prefs.SaveRedactionRules(ctx, text)
	for _, e := range v.Errors {
		fmt.Fprintln(os.Stderr, e)
	}
	if err != nil {
		return err
	}
	fmt.Printf("saved %d redaction rules\n", len(v.Lines))
	return nil
}

var presetSubcommands = []string{"list", "save", "delete"}

func parsePresets(args []string) error {
	if len(args) < 1 {
		return errors.New("presets subcommand required: list, save or delete")
	}

	switch args[0] {
	case "list":
		return settingsCommand("presets list", args[1:], nil, func(ctx context.Context, a *app.App, _ *pflag.FlagSet) error {
			presets, err := a.Prefs.LoadPresets(ctx)
			if err != nil {
				return err
			}
			names, err := a.Prefs.PresetNames(ctx)
			if err != nil {
				return err
			}
			for _, n := range names {
				p := presets[n]
				fmt.Printf("%-16s filter=%q status=%s db=%s regex=%v\n", n, p.Text, p.Status, p.Database, p.Regex)
			}
			return nil
		})
	case "save":
		var p filter.Preset
		register := func(fs *pflag.FlagSet) {
			fs.StringVarP(&p.Text, "filter", "q", "", "filter text")
			fs.BoolVar(&p.Regex, "regex", false, "filter text is a regular expression")
			fs.StringVar(&p.Status, "status", "", "status class")
			fs.StringVar(&p.Database, "db", "", "TD database")
		}
		return settingsCommand("presets save", args[1:], register, func(ctx context.Context, a *app.App, fs *pflag.FlagSet) error {
			if fs.NArg() != 1 {
				return errors.New("usage: settings presets save <name> [--filter ...]")
			}
			if err := a.Prefs.SavePreset(ctx, fs.Arg(0), p); err != nil {
				return err
			}
			fmt.Printf("preset %q saved\n", fs.Arg(0))
			return nil
		})
	case "delete":
		return settingsCommand("presets delete", args[1:], nil, func(ctx context.Context, a *app.App, fs *pflag.FlagSet) error {
			if fs.NArg() != 1 {
				return errors.New("usage: settings presets delete <name>")
			}
			ok, err := a.Prefs.DeletePreset(ctx, fs.Arg(0))
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("preset %q not found", fs.Arg(0))
			}
			fmt.Printf("preset %q deleted\n", fs.Arg(0))
			return nil
		})
	default:
		return cli.UnknownSubcommandError("settings presets", args[0], presetSubcommands)
	}
}
