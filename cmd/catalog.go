package cmd

import (
	"fmt"
	"strings"

	"github.com/explorrrr/boj-client/internal/catalog"
	"github.com/explorrrr/boj-client/internal/model"
	"github.com/explorrrr/boj-client/internal/render"
	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Browse the built-in API reference (databases, parameters, limits, messages)",
	Long: `The catalog is a static snapshot of the API manual (` + catalog.SourceDocument + `, ` + catalog.SourceDate + `).
It works offline and is what --strict checks database codes against.`,
}

// ─── catalog dbs ──────────────────────────────────────────────────────────────

var catalogDBsCategory string

var catalogDBsCmd = &cobra.Command{
	Use:   "dbs",
	Short: "List database codes",
	Example: `  boj catalog dbs
  boj catalog dbs --category マーケット関連
  boj catalog dbs --format csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbs := catalog.Databases()
		if catalogDBsCategory != "" {
			filtered := dbs[:0]
			for _, d := range dbs {
				if strings.Contains(d.CategoryJA, catalogDBsCategory) {
					filtered = append(filtered, d)
				}
			}
			dbs = filtered
		}
		return emitCatalog(model.KindCatalogDBs, "catalog dbs", dbs, len(dbs))
	},
}

var catalogCategoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List database categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		t := &model.Table{Headers: []string{"category", "databases"}}
		for _, c := range catalog.Categories() {
			var codes []string
			for _, d := range catalog.Databases() {
				if d.CategoryJA == c {
					codes = append(codes, d.Code)
				}
			}
			t.Rows = append(t.Rows, []string{c, strings.Join(codes, " ")})
		}
		return emitCatalog(model.KindTable, "catalog categories", t, len(t.Rows))
	},
}

// ─── catalog db ───────────────────────────────────────────────────────────────

var catalogDBCmd = &cobra.Command{
	Use:     "db <CODE>",
	Short:   "Show one database entry",
	Example: `  boj catalog db fm08`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, ok := catalog.FindDB(args[0])
		if !ok {
			return catalog.CheckDB(args[0])
		}
		return emitCatalog(model.KindCatalogDBs, "catalog db "+d.Code, []catalog.Database{d}, 1)
	},
}

// ─── catalog params ───────────────────────────────────────────────────────────

var catalogParamsCmd = &cobra.Command{
	Use:   "params [NAME]",
	Short: "Show which parameters each endpoint requires, accepts or rejects",
	Example: `  boj catalog params
  boj catalog params startDate`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := catalog.Parameters()
		if len(args) == 1 {
			p, ok := catalog.FindParameter(args[0])
			if !ok {
				return fmt.Errorf("unknown parameter %q", args[0])
			}
			params = []catalog.Parameter{p}
			if globalFlags.Format == "" || globalFlags.Format == render.FormatTable {
				printParameterDetail(cmd, p)
				return nil
			}
		}
		return emitCatalog(model.KindCatalogParams, "catalog params", params, len(params))
	},
}

func printParameterDetail(cmd *cobra.Command, p catalog.Parameter) {
	rows := [][]string{
		{"Name", p.Name},
		{"Description", p.DescriptionJA},
		{"Allowed values", p.AllowedValues},
		{"getDataCode", string(p.Code)},
		{"getDataLayer", string(p.Layer)},
		{"getMetadata", string(p.Metadata)},
	}
	for _, n := range p.Notes {
		rows = append(rows, []string{"Note", n})
	}
	printKVTable(cmd.OutOrStdout(), rows)
}

// ─── catalog limits / messages / frequencies ──────────────────────────────────

var catalogLimitsCmd = &cobra.Command{
	Use:   "limits",
	Short: "Show per-request limits",
	RunE: func(cmd *cobra.Command, args []string) error {
		limits := catalog.Limits()
		return emitCatalog(model.KindCatalogLimits, "catalog limits", limits, len(limits))
	},
}

var catalogMessagesCmd = &cobra.Command{
	Use:   "messages [MESSAGE_ID]",
	Short: "Show API status codes and message IDs",
	Example: `  boj catalog messages
  boj catalog messages M181005E`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		msgs := catalog.Messages()
		if len(args) == 1 {
			m, ok := catalog.FindMessage(args[0])
			if !ok {
				return fmt.Errorf("unknown message id %q", args[0])
			}
			msgs = []catalog.Message{m}
		}
		return emitCatalog(model.KindCatalogMessages, "catalog messages", msgs, len(msgs))
	},
}

var catalogFrequenciesCmd = &cobra.Command{
	Use:     "frequencies",
	Aliases: []string{"freqs"},
	Short:   "List frequency codes accepted by the layer endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		freqs := catalog.FrequencyCodes()
		return emitCatalog(model.KindCatalogFreqs, "catalog frequencies", freqs, len(freqs))
	},
}

// ─── catalog notes ────────────────────────────────────────────────────────────

var catalogNotesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Show general usage notes and layer rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		t := &model.Table{Headers: []string{"section", "note"}}
		for _, n := range catalog.GeneralNotes() {
			t.Rows = append(t.Rows, []string{"general", n})
		}
		for _, n := range catalog.LayerRules() {
			t.Rows = append(t.Rows, []string{"layer", n})
		}
		return emitCatalog(model.KindTable, "catalog notes", t, len(t.Rows))
	},
}

// emitCatalog renders a catalog listing. The catalog is offline, so no
// config beyond output flags is consulted.
func emitCatalog(kind, command string, data any, items int) error {
	result := newResult(kind, command, data, items)
	return render.RenderTo(globalFlags.Out, result, resolveFormat(""))
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogDBsCmd)
	catalogCmd.AddCommand(catalogDBCmd)
	catalogCmd.AddCommand(catalogCategoriesCmd)
	catalogCmd.AddCommand(catalogParamsCmd)
	catalogCmd.AddCommand(catalogLimitsCmd)
	catalogCmd.AddCommand(catalogMessagesCmd)
	catalogCmd.AddCommand(catalogFrequenciesCmd)
	catalogCmd.AddCommand(catalogNotesCmd)

	catalogDBsCmd.Flags().StringVar(&catalogDBsCategory, "category", "", "only databases whose category contains this text")
}
