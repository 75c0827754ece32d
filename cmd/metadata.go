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

var metadataFlags fetchFlags

var metadataCmd = &cobra.Command{
	Use:   "metadata <DB...>",
	Short: "List the series of one or more databases (getMetadata)",
	Long: `List series codes, names, units, frequencies and layer positions for
a database. Several databases are fetched concurrently (see --concurrency);
a database that fails is reported as a warning and the rest are still shown.`,
	Example: `  boj metadata FM08
  boj metadata FM08 --lang en --format csv
  boj metadata IR01 IR02 FM01 --store`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		dbs := util.NormaliseList(util.SplitArgs(args))
		if err := checkStrict(metadataFlags.Strict, dbs...); err != nil {
			return err
		}
		lang, err := resolveLang(deps.Config.Lang)
		if err != nil {
			return err
		}
		wire, err := metadataFlags.wireFormat()
		if err != nil {
			return err
		}

		start := time.Now()
		var (
			data     any
			items    int
			warnings []string
			resps    []*model.MetadataResponse
		)
		if len(dbs) == 1 {
			q, err := query.NewMetadataQuery(dbs[0])
			if err != nil {
				return err
			}
			resp, err := deps.Client.GetMetadata(cmd.Context(), q.WithFormat(wire).WithLang(lang))
			if err != nil {
				return err
			}
			if resp.DB == "" {
				resp.DB = q.DB()
			}
			resps = []*model.MetadataResponse{resp}
			data = resp
		} else {
			resps, warnings = batchGetMetadata(cmd.Context(), deps, dbs, lang, wire)
			if len(resps) == 0 {
				return fmt.Errorf("all %d metadata requests failed:\n  %s", len(dbs), strings.Join(warnings, "\n  "))
			}
			data = resps
		}
		for _, r := range resps {
			items += len(r.Entries)
			warnings = append(warnings, noDataWarning(r.Meta)...)
		}

		result := newResult(model.KindMetadata, "metadata "+strings.Join(dbs, " "), data, items)
		result.Warnings = warnings
		result.Stats.DurationMs = time.Since(start).Milliseconds()

		if metadataFlags.Store {
			for _, r := range resps {
				q, err := query.NewMetadataQuery(r.DB)
				if err != nil {
					return err
				}
				if err := archiveMetadata(deps, q.WithFormat(wire).WithLang(lang), r); err != nil {
					return err
				}
			}
			result.Stats.Stored = true
		}
		return emit(deps, result)
	},
}

func init() {
	rootCmd.AddCommand(metadataCmd)
	addFetchFlags(metadataCmd, &metadataFlags, false)
}
