package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/explorrrr/boj-client/internal/model"
	"github.com/explorrrr/boj-client/internal/query"
	"github.com/explorrrr/boj-client/internal/util"
	"github.com/spf13/cobra"
)

var codeFlags fetchFlags

var codeCmd = &cobra.Command{
	Use:   "code <DB> <CODE...>",
	Short: "Fetch time series by series code (getDataCode)",
	Long: `Fetch one or more series from a single database by series code.

Codes may be given as separate arguments or comma-separated. At most 250
series are returned per page; the API reports the position to resume from,
which --all-pages follows automatically.`,
	Example: `  boj code CO TK99F1000601GCQ01000
  boj code CO TK99F1000601GCQ01000,TK99F2000601GCQ01000 --start 202401 --end 202504
  boj code FM08 FXERD01 --lang en --format csv --out usdjpy.csv
  boj code CO TK99F1000601GCQ01000 --wire csv --store`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		db := strings.ToUpper(args[0])
		if err := checkStrict(codeFlags.Strict, db); err != nil {
			return err
		}
		lang, err := resolveLang(deps.Config.Lang)
		if err != nil {
			return err
		}
		wire, err := codeFlags.wireFormat()
		if err != nil {
			return err
		}

		q, err := query.NewCodeQuery(db, util.SplitArgs(args[1:]))
		if err != nil {
			return err
		}
		q = q.WithFormat(wire).WithLang(lang)
		if codeFlags.Start != "" {
			if q, err = q.WithStartDate(codeFlags.Start); err != nil {
				return err
			}
		}
		if codeFlags.End != "" {
			if q, err = q.WithEndDate(codeFlags.End); err != nil {
				return err
			}
		}
		if codeFlags.StartPosition > 0 {
			if q, err = q.WithStartPosition(codeFlags.StartPosition); err != nil {
				return err
			}
		}

		start := time.Now()
		var resp *model.CodeResponse
		pages := 1
		if codeFlags.AllPages {
			resp, pages, err = deps.Client.AllCodePages(cmd.Context(), q, codeFlags.MaxPages)
		} else {
			resp, err = deps.Client.GetDataCode(cmd.Context(), q)
		}
		if err != nil {
			return err
		}

		result := newResult(model.KindCodeData, fmt.Sprintf("code %s %s", db, strings.Join(q.Codes(), ",")), resp, model.PointCount(resp.Series))
		result.Stats.Pages = pages
		result.Stats.DurationMs = time.Since(start).Milliseconds()
		result.Warnings = append(result.Warnings, noDataWarning(resp.Meta)...)
		result.Warnings = append(result.Warnings, nextPositionWarning(resp.NextPosition, codeFlags.AllPages)...)

		if codeFlags.Store {
			if err := archiveSeries(deps, q.Endpoint(), q.Params(), model.KindCodeData, db, resp.Series, pages, resp); err != nil {
				return err
			}
			result.Stats.Stored = true
		}
		return emit(deps, result)
	},
}

func init() {
	rootCmd.AddCommand(codeCmd)
	addFetchFlags(codeCmd, &codeFlags, true)
}
