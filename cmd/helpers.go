package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/explorrrr/boj-client/internal/app"
	"github.com/explorrrr/boj-client/internal/catalog"
	"github.com/explorrrr/boj-client/internal/model"
	"github.com/explorrrr/boj-client/internal/query"
	"github.com/explorrrr/boj-client/internal/render"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/sync/errgroup"
)

// resolveFormat returns the effective format string, falling back to "table".
func resolveFormat(cfgFormat string) string {
	if globalFlags.Format != "" {
		return globalFlags.Format
	}
	if cfgFormat != "" {
		return cfgFormat
	}
	return render.FormatTable
}

// resolveLang parses the effective response language.
func resolveLang(cfgLang string) (query.Language, error) {
	return query.ParseLanguage(cfgLang)
}

// outputWriter returns the --out file when set, otherwise def. The closer
// is always safe to call.
func outputWriter(def io.Writer) (io.Writer, func() error, error) {
	if globalFlags.Out == "" {
		return def, func() error { return nil }, nil
	}
	f, err := os.Create(globalFlags.Out)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f.Close, nil
}

// checkStrict rejects DB codes missing from the catalog when --strict is set.
func checkStrict(strict bool, dbs ...string) error {
	if !strict {
		return nil
	}
	for _, db := range dbs {
		if err := catalog.CheckDB(db); err != nil {
			return err
		}
	}
	return nil
}

// batchGetMetadata fetches metadata for multiple DBs concurrently.
// It respects deps.Config.Concurrency and collects errors as warnings.
// Results keep the order of dbs.
func batchGetMetadata(ctx context.Context, deps *app.Deps, dbs []string, lang query.Language, wire query.Format) ([]*model.MetadataResponse, []string) {
	concurrency := deps.Config.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	results := make([]*model.MetadataResponse, len(dbs))
	errs := make([]error, len(dbs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, db := range dbs {
		g.Go(func() error {
			q, err := query.NewMetadataQuery(db)
			if err != nil {
				errs[i] = err
				return nil
			}
			r, err := deps.Client.GetMetadata(gctx, q.WithFormat(wire).WithLang(lang))
			if err != nil {
				errs[i] = err
				return nil
			}
			if r.DB == "" {
				r.DB = q.DB()
			}
			results[i] = r
			return nil
		})
	}
	_ = g.Wait()

	var out []*model.MetadataResponse
	var warnings []string
	for i, r := range results {
		if errs[i] != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", dbs[i], errs[i]))
		} else if r != nil {
			out = append(out, r)
		}
	}
	return out, warnings
}

// withStore opens the local archive for the duration of fn.
func withStore(fn func(deps *app.Deps) error) error {
	deps, err := buildDeps()
	if err != nil {
		return err
	}
	if err := deps.RequireStore(); err != nil {
		return err
	}
	defer deps.Close()
	return fn(deps)
}

// printSimpleTable renders a simple table with headers using tablewriter.
// The add callback is called with row values as variadic strings.
func printSimpleTable(w io.Writer, headers []string, fill func(add func(...string))) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(headers)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)

	fill(func(cols ...string) {
		tw.Append(cols)
	})
	tw.Render()
}

// printKVTable renders a two-column FIELD/VALUE table.
func printKVTable(w io.Writer, rows [][]string) {
	printSimpleTable(w, []string{"FIELD", "VALUE"}, func(add func(...string)) {
		for _, r := range rows {
			add(r...)
		}
	})
}

var (
	okMark   = color.New(color.FgGreen).SprintFunc()
	warnMark = color.New(color.FgYellow).SprintFunc()
)

// printOK writes a success line unless --quiet is set.
func printOK(w io.Writer, format string, args ...any) {
	if globalFlags.Quiet {
		return
	}
	fmt.Fprintf(w, "%s %s\n", okMark("✓"), fmt.Sprintf(format, args...))
}

// printWarn writes a warning line to w.
func printWarn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s  %s\n", warnMark("⚠"), fmt.Sprintf(format, args...))
}

// newResult wraps data in a Result envelope.
func newResult(kind, command string, data any, items int) *model.Result {
	return &model.Result{
		Kind:        kind,
		GeneratedAt: time.Now(),
		Command:     command,
		Data:        data,
		Stats:       model.ResultStats{Items: items},
	}
}

// emit renders result to --out or stdout and prints the footer to stderr.
func emit(deps *app.Deps, result *model.Result) error {
	if err := render.RenderTo(globalFlags.Out, result, resolveFormat(deps.Config.Format)); err != nil {
		return err
	}
	if !deps.Config.Quiet {
		render.PrintFooter(os.Stderr, result, deps.Config.Verbose)
	}
	return nil
}
