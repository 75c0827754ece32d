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

var layerFlags fetchFlags

var layerCmd = &cobra.Command{
	Use:   "layer <DB> <FREQ> <LAYER...>",
	Short: "Fetch every series under a layer of a database (getDataLayer)",
	Long: `Fetch every series that sits under a position in a database's layer
hierarchy at one frequency.

LAYER is one to five levels, each a number or "*" for every entry at that
level, given as separate arguments or comma-separated. FREQ is one of
CY FY CH FH Q M W D. A layer search may match up to 1250 series and is paged
250 series at a time; --all-pages follows the pages automatically.`,
	Example: `  boj layer MD10 Q 1,2
  boj layer BP01 M 1 '*' --start 202001 --all-pages
  boj layer FM08 D 1 --lang en --format jsonl`,
	Args: cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		db := strings.ToUpper(args[0])
		if err := checkStrict(layerFlags.Strict, db); err != nil {
			return err
		}
		freq, err := query.ParseFrequency(args[1])
		if err != nil {
			return err
		}
		lang, err := resolveLang(deps.Config.Lang)
		if err != nil {
			return err
		}
		wire, err := layerFlags.wireFormat()
		if err != nil {
			return err
		}

		q, err := query.NewLayerQuery(db, freq, util.SplitArgs(args[2:]))
		if err != nil {
			return err
		}
		q = q.WithFormat(wire).WithLang(lang)
		if layerFlags.Start != "" {
			if q, err = q.WithStartDate(layerFlags.Start); err != nil {
				return err
			}
		}
		if layerFlags.End != "" {
			if q, err = q.WithEndDate(layerFlags.End); err != nil {
				return err
			}
		}
		if layerFlags.StartPosition > 0 {
			if q, err = q.WithStartPosition(layerFlags.StartPosition); err != nil {
				return err
			}
		}

		start := time.Now()
		var resp *model.LayerResponse
		pages := 1
		if layerFlags.AllPages {
			resp, pages, err = deps.Client.AllLayerPages(cmd.Context(), q, layerFlags.MaxPages)
		} else {
			resp, err = deps.Client.GetDataLayer(cmd.Context(), q)
		}
		if err != nil {
			return err
		}

		layers := make([]string, 0, len(q.Layers()))
		for _, l := range q.Layers() {
			layers = append(layers, l.String())
		}
		result := newResult(model.KindLayerData, fmt.Sprintf("layer %s %s %s", db, freq, strings.Join(layers, ",")), resp, model.PointCount(resp.Series))
		result.Stats.Pages = pages
		result.Stats.DurationMs = time.Since(start).Milliseconds()
		result.Warnings = append(result.Warnings, noDataWarning(resp.Meta)...)
		result.Warnings = append(result.Warnings, nextPositionWarning(resp.NextPosition, layerFlags.AllPages)...)

		if layerFlags.Store {
			if err := archiveSeries(deps, q.Endpoint(), q.Params(), model.KindLayerData, db, resp.Series, pages, resp); err != nil {
				return err
			}
			result.Stats.Stored = true
		}
		return emit(deps, result)
	},
}

func init() {
	rootCmd.AddCommand(layerCmd)
	addFetchFlags(layerCmd, &layerFlags, true)
}
