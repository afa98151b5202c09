package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"

	"tddebugger/internal/app"
	"tddebugger/internal/cli"
	"tddebugger/internal/compare"
	"tddebugger/internal/config"
	"tddebugger/internal/export"
	"tddebugger/internal/filter"
	"tddebugger/internal/logger"
	"tddebugger/internal/redact"
	"tddebugger/pkg/domain"
)

// globalFlags 每个子命令都接受的选项
type globalFlags struct {
	configPath string
	verbose    bool
}

func (g *globalFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&g.configPath, "config", "", "YAML configuration file")
	fs.BoolVar(&g.verbose, "verbose", false, "also log to the console")
}

// open 加载配置并初始化应用，非 verbose 模式下日志只写文件
func (g *globalFlags) open() (*app.App, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if !g.verbose {
		cfg.Log.Writer = slices.DeleteFunc(slices.Clone(cfg.Log.Writer), func(w string) bool {
			return w == "console"
		})
	}
	return app.Open(cfg, logger.New(cfg))
}

// outputFlags 条目筛选与输出选项
type outputFlags struct {
	fs        *pflag.FlagSet
	query     string
	regex     bool
	status    string
	database  string
	preset    string
	redact    bool
	page      int
	pageSize  int
	csv       bool
	json      bool
	headers   int64
	important bool
	compare   string
	noColor   bool
	width     int
}

func (o *outputFlags) register(fs *pflag.FlagSet) {
	o.fs = fs
	fs.StringVarP(&o.query, "filter", "q", "", "text or regex matched against URL and summary")
	fs.BoolVar(&o.regex, "regex", false, "treat --filter as a regular expression")
	fs.StringVar(&o.status, "status", "", "status class: 1xx, 2xx, 3xx, 4xx or 5xx")
	fs.StringVar(&o.database, "db", "", "only entries for this TD database")
	fs.StringVar(&o.preset, "preset", "", "apply a saved filter preset")
	fs.BoolVar(&o.redact, "redact", false, "redact secrets in output (default from settings)")
	fs.IntVar(&o.page, "page", 1, "page number")
	fs.IntVar(&o.pageSize, "page-size", 0, "entries per page (default from settings)")
	fs.BoolVar(&o.csv, "csv", false, "write matching entries as CSV")
	fs.BoolVar(&o.json, "json", false, "write matching entries as JSON")
	fs.Int64Var(&o.headers, "headers", -1, "show request and response headers of entry N")
	fs.BoolVar(&o.important, "important", false, "with --headers, only show important headers")
	fs.StringVar(&o.compare, "compare", "", "compare two entries, e.g. 3,7")
	fs.BoolVar(&o.noColor, "no-color", false, "disable colored table output")
	fs.IntVar(&o.width, "width", 80, "max width of the summary column")
}

// resolve 合并预设与已保存偏好，命令行显式给出的选项优先
func (o *outputFlags) resolve(ctx context.Context, a *app.App) (filter.Options, *redact.Redactor, error) {
	saved, err := a.Prefs.Load(ctx)
	if err != nil {
		return filter.Options{}, nil, err
	}
	if !o.fs.Changed("filter") {
		o.query = saved.Filter
	}

	if o.preset != "" {
		p, ok, err := a.Prefs.Preset(ctx, o.preset)
		if err != nil {
			return filter.Options{}, nil, err
		}
		if !ok {
			return filter.Options{}, nil, fmt.Errorf("preset %q not found", o.preset)
		}
		if !o.fs.Changed("filter") {
			o.query = p.Text
		}
		if !o.fs.Changed("regex") {
			o.regex = p.Regex
		}
		if !o.fs.Changed("status") {
			o.status = p.Status
		}
		if !o.fs.Changed("db") {
			o.database = p.Database
		}
	}

	enabled := saved.Redact
	if o.fs.Changed("redact") {
		enabled = o.redact
	}
	var red *redact.Redactor
	if enabled {
		if red, err = a.Prefs.Redactor(ctx); err != nil {
			return filter.Options{}, nil, err
		}
	}
	return filter.Options{StatusClass: o.status, Database: o.database, UseRegex: o.regex}, red, nil
}

// render 按输出选项输出条目
func (o *outputFlags) render(ctx context.Context, a *app.App, w io.Writer, entries []domain.Entry) error {
	opts, red, err := o.resolve(ctx, a)
	if err != nil {
		return err
	}

	switch {
	case o.headers >= 0:
		e, ok := findEntry(entries, o.headers)
		if !ok {
			return fmt.Errorf("entry #%d not found", o.headers)
		}
		export.WriteHeaders(w, e, red, o.important)
		return nil
	case o.compare != "":
		return o.writeComparison(w, entries, red)
	}

	matched := filter.NewMatcher().Apply(entries, o.query, opts)
	switch {
	case o.csv:
		if red != nil {
			for i := range matched {
				matched[i] = red.RedactEntry(matched[i])
			}
		}
		return export.WriteCSV(w, matched)
	case o.json:
		return export.WriteJSON(w, matched, red)
	}

	size := o.pageSize
	if size <= 0 {
		size = config.GetDefaultSettings().PageSize
	}
	export.WriteTable(w, filter.Paginate(matched, o.page-1, size), export.TableOptions{
		Redactor:     red,
		SummaryWidth: o.width,
		Color:        !o.noColor && isTerminal(w),
	})
	return nil
}

func (o *outputFlags) writeComparison(w io.Writer, entries []domain.Entry, red *redact.Redactor) error {
	ia, ib, err := cli.ParsePair(o.compare)
	if err != nil {
		return err
	}
	a, ok := findEntry(entries, ia)
	if !ok {
		return fmt.Errorf("entry #%d not found", ia)
	}
	b, ok := findEntry(entries, ib)
	if !ok {
		return fmt.Errorf("entry #%d not found", ib)
	}
	if red != nil {
		a, b = red.RedactEntry(a), red.RedactEntry(b)
	}

	res := compare.Diff(a, b)
	if res.Identical() {
		fmt.Fprintf(w, "#%d and #%d are identical\n", ia, ib)
	}
	for _, d := range res.Differences {
		fmt.Fprintf(w, "- %s\n", d)
	}
	fmt.Fprintf(w, "payload similarity: %.1f%%\n", res.Similarity*100)
	return nil
}

func findEntry(entries []domain.Entry, idx int64) (domain.Entry, bool) {
	for _, e := range entries {
		if e.Index == idx {
			return e, true
		}
	}
	return domain.Entry{}, false
}

func isTerminal(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
