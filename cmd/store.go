package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/explorrrr/boj-client/internal/model"
	"github.com/explorrrr/boj-client/internal/pipeline"
	"github.com/explorrrr/boj-client/internal/render"
	"github.com/explorrrr/boj-client/internal/store"
	"github.com/hokaccha/go-prettyjson"
	"github.com/spf13/cobra"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Inspect locally archived data",
	Long: `Commands for reading what has been archived in the local database.

Use --store on code, layer or metadata to archive data.
Use 'boj cache stats' for bucket-level storage stats.`,
}

// ─── store list ───────────────────────────────────────────────────────────────

var storeListCmd = &cobra.Command{
	Use:   "list [PREFIX]",
	Short: "List archived responses",
	Example: `  boj store list
  boj store list getDataCode
  boj store list "getDataLayer|db=MD10"`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
		}
		resps, err := deps.Store.ListResponses(prefix)
		if err != nil {
			return fmt.Errorf("reading store: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(resps) == 0 {
			fmt.Fprintln(out, "No responses in local database.")
			fmt.Fprintln(out, "  Use: boj code <DB> <CODE...> --store")
			return nil
		}

		format := resolveFormat(deps.Config.Format)
		t := &model.Table{Headers: []string{"key", "kind", "db", "items", "pages", "fetched"}}
		for _, r := range resps {
			t.Rows = append(t.Rows, []string{
				r.Key, r.Kind, r.DB,
				fmt.Sprintf("%d", r.Items), fmt.Sprintf("%d", r.Pages),
				r.FetchedAt.Format("2006-01-02 15:04"),
			})
		}
		if format != render.FormatTable {
			return render.RenderTo(globalFlags.Out, newResult(model.KindTable, "store list", t, len(t.Rows)), format)
		}
		printSimpleTable(out, []string{"KEY", "KIND", "DB", "ITEMS", "PAGES", "FETCHED"}, func(add func(...string)) {
			for _, row := range t.Rows {
				add(row...)
			}
		})
		fmt.Fprintf(out, "\n%d responses  •  %s\n", len(resps), deps.Store.Path())
		return nil
	},
}

// ─── store get ────────────────────────────────────────────────────────────────

var storeGetRaw bool

var storeGetCmd = &cobra.Command{
	Use:   "get <KEY>",
	Short: "Render an archived response",
	Long: `Render an archived response in any output format. KEY is one of the keys
shown by 'boj store list'. --raw prints the stored JSON envelope instead.`,
	Example: `  boj store get "getMetadata|db=FM08|lang=jp"
  boj store get "getDataCode|db=CO|code=TK99F1000601GCQ01000|lang=jp" --format csv`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		env, ok, err := deps.Store.GetResponse(args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no archived response for key %q\n\n  Use: boj store list", args[0])
		}

		if storeGetRaw {
			return printRawEnvelope(env)
		}

		result, err := storedResult(env)
		if err != nil {
			return err
		}
		return emit(deps, result)
	},
}

// storedResult rebuilds a typed Result from an archived envelope.
func storedResult(env store.StoredResponse) (*model.Result, error) {
	var data any
	switch env.Kind {
	case model.KindCodeData:
		data = &model.CodeResponse{}
	case model.KindLayerData:
		data = &model.LayerResponse{}
	case model.KindMetadata:
		data = &model.MetadataResponse{}
	default:
		return nil, fmt.Errorf("archived response %q has unknown kind %q", env.Key, env.Kind)
	}
	if err := json.Unmarshal(env.Data, data); err != nil {
		return nil, fmt.Errorf("decoding archived response %q: %w", env.Key, err)
	}
	result := newResult(env.Kind, "store get "+env.Key, data, env.Items)
	result.GeneratedAt = env.FetchedAt
	result.Stats.Pages = env.Pages
	result.Stats.Stored = true
	return result, nil
}

func printRawEnvelope(env store.StoredResponse) error {
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	w, closeOut, err := outputWriter(os.Stdout)
	if err != nil {
		return err
	}
	defer closeOut()

	if globalFlags.Out == "" && pipeline.IsTTY() && !globalFlags.NoColor {
		if pretty, err := prettyjson.Format(b); err == nil {
			_, err = fmt.Fprintln(w, string(pretty))
			return err
		}
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, b, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err = w.Write(buf.Bytes())
	return err
}

// ─── store series ─────────────────────────────────────────────────────────────

var storeSeriesCmd = &cobra.Command{
	Use:   "series <DB> [CODE...]",
	Short: "Read accumulated series points",
	Long: `Series archived with --store are merged by survey date across fetches.
Without CODE every series of DB is shown.`,
	Example: `  boj store series FM08
  boj store series CO TK99F1000601GCQ01000 --format csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		db := strings.ToUpper(args[0])
		var stored []store.StoredSeries
		if len(args) == 1 {
			if stored, err = deps.Store.ListSeries(db); err != nil {
				return fmt.Errorf("reading store: %w", err)
			}
		} else {
			for _, code := range args[1:] {
				s, ok, err := deps.Store.GetSeries(db, code)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("no archived series %s in %s\n\n  Use: boj code %s %s --store", code, db, db, code)
				}
				stored = append(stored, s)
			}
		}
		if len(stored) == 0 {
			return fmt.Errorf("no archived series for %s", db)
		}

		resp := &model.CodeResponse{Meta: model.ResponseMeta{Status: 200}}
		resp.Parameter.DB = &db
		for _, s := range stored {
			resp.Series = append(resp.Series, s.Series)
		}
		result := newResult(model.KindCodeData, "store series "+strings.Join(args, " "), resp, model.PointCount(resp.Series))
		result.Stats.Stored = true
		return emit(deps, result)
	},
}

// ─── store import ─────────────────────────────────────────────────────────────

var storeImportCmd = &cobra.Command{
	Use:   "import [FILE|-]",
	Short: "Merge JSONL points into the series archive",
	Long: `Read points in the shape written by --format jsonl (one object per line with
db, series_code, survey_date and value) and merge them into the archive.
Rows without a db field are rejected.`,
	Example: `  boj code CO TK99F1000601GCQ01000 --format jsonl | boj store import
  boj store import points.jsonl`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		if (path == "" || path == "-") && !pipeline.StdinPiped() {
			return fmt.Errorf("no input: pass FILE or pipe JSONL on stdin")
		}
		payload, err := pipeline.ReadPayload(path, os.Stdin)
		if err != nil {
			return err
		}
		rows, err := pipeline.ReadPoints(bytes.NewReader(payload))
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			printWarn(cmd.ErrOrStderr(), "no points in input; nothing imported")
			return nil
		}
		grouped := pipeline.GroupPoints(rows)
		if _, ok := grouped[""]; ok {
			return fmt.Errorf("input has points without a db field")
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		dbs := make([]string, 0, len(grouped))
		for db := range grouped {
			dbs = append(dbs, db)
		}
		sort.Strings(dbs)
		series := 0
		for _, db := range dbs {
			if err := deps.Store.PutSeriesBatch(db, grouped[db]); err != nil {
				return fmt.Errorf("importing %s: %w", db, err)
			}
			series += len(grouped[db])
		}
		printOK(cmd.OutOrStdout(), "Imported %d points into %d series across %d databases", len(rows), series, len(dbs))
		return nil
	},
}

// ─── store delete ─────────────────────────────────────────────────────────────

var storeDeleteCmd = &cobra.Command{
	Use:     "delete <KEY>",
	Aliases: []string{"rm"},
	Short:   "Delete an archived response",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		if _, ok, err := deps.Store.GetResponse(args[0]); err != nil {
			return err
		} else if !ok {
			return fmt.Errorf("no archived response for key %q", args[0])
		}
		if err := deps.Store.DeleteResponse(args[0]); err != nil {
			return err
		}
		printOK(cmd.OutOrStdout(), "Deleted %s", args[0])
		return nil
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.AddCommand(storeListCmd)
	storeCmd.AddCommand(storeGetCmd)
	storeCmd.AddCommand(storeSeriesCmd)
	storeCmd.AddCommand(storeImportCmd)
	storeCmd.AddCommand(storeDeleteCmd)

	storeGetCmd.Flags().BoolVar(&storeGetRaw, "raw", false, "print the stored JSON envelope")
}
