// Package render converts Result values into human-readable or machine-parseable
// output. Each format is a separate function; the top-level Render dispatcher
// selects based on the format string.
package render

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/explorrrr/boj-client/internal/catalog"
	"github.com/explorrrr/boj-client/internal/model"
	"github.com/olekukonko/tablewriter"
)

// Format constants matching --format flag values.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
	FormatTSV   = "tsv"
	FormatMD    = "md"
)

// Formats lists every accepted --format value.
var Formats = []string{FormatTable, FormatJSON, FormatJSONL, FormatCSV, FormatTSV, FormatMD}

// IsFormat reports whether f is a known output format.
func IsFormat(f string) bool {
	for _, known := range Formats {
		if f == known {
			return true
		}
	}
	return false
}

// Render writes result to w in the specified format.
func Render(w io.Writer, result *model.Result, format string) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, result)
	case FormatJSONL:
		return renderJSONL(w, result)
	case FormatCSV:
		return renderDelimited(w, result, ',')
	case FormatTSV:
		return renderDelimited(w, result, '\t')
	case FormatMD:
		return renderMarkdown(w, result)
	default:
		return renderTable(w, result)
	}
}

// RenderTo writes to stdout by default; if path is non-empty, writes to file.
func RenderTo(path string, result *model.Result, format string) error {
	if path == "" {
		return Render(os.Stdout, result, format)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()
	return Render(f, result, format)
}

// ─── JSON ─────────────────────────────────────────────────────────────────────

func renderJSON(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// ─── JSONL ────────────────────────────────────────────────────────────────────

func renderJSONL(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	switch data := result.Data.(type) {
	case *model.CodeResponse:
		return encodeEach(enc, model.FlattenPoints(derefOr(data.Parameter.DB, ""), data.Series))
	case *model.LayerResponse:
		return encodeEach(enc, model.FlattenPoints(derefOr(data.Parameter.DB, ""), data.Series))
	case *model.MetadataResponse:
		return encodeEach(enc, data.Entries)
	case []*model.MetadataResponse:
		type dbEntry struct {
			DB string `json:"db"`
			model.MetadataEntry
		}
		for _, r := range data {
			for _, e := range r.Entries {
				if err := enc.Encode(dbEntry{DB: r.DB, MetadataEntry: e}); err != nil {
					return err
				}
			}
		}
		return nil
	case []catalog.Database:
		return encodeEach(enc, data)
	case []catalog.Parameter:
		return encodeEach(enc, data)
	case []catalog.Limit:
		return encodeEach(enc, data)
	case []catalog.Message:
		return encodeEach(enc, data)
	case *model.Table:
		for _, row := range data.Rows {
			rec := make(map[string]string, len(data.Headers))
			for i, h := range data.Headers {
				if i < len(row) {
					rec[h] = row[i]
				}
			}
			if err := enc.Encode(rec); err != nil {
				return err
			}
		}
		return nil
	default:
		return enc.Encode(result.Data)
	}
}

func encodeEach[T any](enc *json.Encoder, items []T) error {
	for _, it := range items {
		if err := enc.Encode(it); err != nil {
			return err
		}
	}
	return nil
}

// ─── Grid ─────────────────────────────────────────────────────────────────────

// grid is the row/column view shared by the table, delimited and markdown
// renderers. right lists column indexes that should be right-aligned.
type grid struct {
	headers []string
	rows    [][]string
	right   []int
	wrap    bool
}

// gridFor converts result into a grid. missing is what an absent value
// becomes. A nil grid with nil error means the kind has no tabular view.
func gridFor(result *model.Result, missing string) (*grid, error) {
	switch result.Kind {
	case model.KindCodeData:
		r, ok := result.Data.(*model.CodeResponse)
		if !ok {
			return nil, fmt.Errorf("unexpected data type for %s", result.Kind)
		}
		return pointGrid(r.Series, missing), nil
	case model.KindLayerData:
		r, ok := result.Data.(*model.LayerResponse)
		if !ok {
			return nil, fmt.Errorf("unexpected data type for %s", result.Kind)
		}
		return pointGrid(r.Series, missing), nil
	case model.KindMetadata:
		switch r := result.Data.(type) {
		case *model.MetadataResponse:
			return metadataGrid(r), nil
		case []*model.MetadataResponse:
			g := &grid{headers: append([]string{"db"}, metadataHeaders...), wrap: true}
			for _, one := range r {
				for _, row := range metadataGrid(one).rows {
					g.rows = append(g.rows, append([]string{one.DB}, row...))
				}
			}
			return g, nil
		default:
			return nil, fmt.Errorf("unexpected data type for %s", result.Kind)
		}
	case model.KindCatalogDBs:
		dbs, ok := result.Data.([]catalog.Database)
		if !ok {
			return nil, fmt.Errorf("unexpected data type for %s", result.Kind)
		}
		g := &grid{headers: []string{"code", "category", "name"}, wrap: true}
		for _, d := range dbs {
			g.rows = append(g.rows, []string{d.Code, d.CategoryJA, d.NameJA})
		}
		return g, nil
	case model.KindCatalogParams:
		params, ok := result.Data.([]catalog.Parameter)
		if !ok {
			return nil, fmt.Errorf("unexpected data type for %s", result.Kind)
		}
		g := &grid{headers: []string{"name", "code_api", "layer_api", "metadata_api", "allowed_values"}, wrap: true}
		for _, p := range params {
			g.rows = append(g.rows, []string{p.Name, string(p.Code), string(p.Layer), string(p.Metadata), p.AllowedValues})
		}
		return g, nil
	case model.KindCatalogLimits:
		limits, ok := result.Data.([]catalog.Limit)
		if !ok {
			return nil, fmt.Errorf("unexpected data type for %s", result.Kind)
		}
		g := &grid{headers: []string{"api_scope", "target", "max_value", "overflow_behavior"}, right: []int{2}, wrap: true}
		for _, l := range limits {
			g.rows = append(g.rows, []string{l.Scope, l.Target, strconv.FormatUint(uint64(l.Max), 10), l.Overflow})
		}
		return g, nil
	case model.KindCatalogMessages:
		msgs, ok := result.Data.([]catalog.Message)
		if !ok {
			return nil, fmt.Errorf("unexpected data type for %s", result.Kind)
		}
		g := &grid{headers: []string{"status", "message_id", "message", "note"}, wrap: true}
		for _, m := range msgs {
			g.rows = append(g.rows, []string{strconv.Itoa(int(m.Status)), m.MessageID, m.Message, m.Note})
		}
		return g, nil
	case model.KindCatalogFreqs:
		codes, ok := result.Data.([]string)
		if !ok {
			return nil, fmt.Errorf("unexpected data type for %s", result.Kind)
		}
		g := &grid{headers: []string{"frequency"}}
		for _, c := range codes {
			g.rows = append(g.rows, []string{c})
		}
		return g, nil
	case model.KindTable:
		t, ok := result.Data.(*model.Table)
		if !ok {
			return nil, fmt.Errorf("unexpected data type for %s", result.Kind)
		}
		return &grid{headers: t.Headers, rows: t.Rows}, nil
	default:
		return nil, nil
	}
}

func pointGrid(series []model.Series, missing string) *grid {
	g := &grid{
		headers: []string{"series_code", "survey_date", "value"},
		right:   []int{2},
		rows:    make([][]string, 0, model.PointCount(series)),
	}
	for _, s := range series {
		for _, p := range s.Points {
			g.rows = append(g.rows, []string{s.SeriesCode, p.SurveyDate, derefOr(p.Value, missing)})
		}
	}
	return g
}

var metadataHeaders = []string{"series_code", "name", "unit", "frequency", "layers", "start", "end", "last_update"}

func metadataGrid(r *model.MetadataResponse) *grid {
	g := &grid{headers: metadataHeaders, wrap: true}
	for _, e := range r.Entries {
		g.rows = append(g.rows, []string{
			derefOr(e.SeriesCode, ""),
			localized(e.Name, e.NameJ),
			localized(e.Unit, e.UnitJ),
			derefOr(e.Frequency, ""),
			layerPath(e.Layer1, e.Layer2, e.Layer3, e.Layer4, e.Layer5),
			derefOr(e.StartOfSeries, ""),
			derefOr(e.EndOfSeries, ""),
			derefOr(e.LastUpdate, ""),
		})
	}
	return g
}

// ─── Table ────────────────────────────────────────────────────────────────────

func renderTable(w io.Writer, result *model.Result) error {
	g, err := gridFor(result, ".")
	if err != nil {
		return err
	}
	if g == nil {
		return renderJSON(w, result)
	}

	tw := tablewriter.NewWriter(w)
	tw.SetHeader(g.headers)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	if len(g.right) > 0 {
		align := make([]int, len(g.headers))
		for i := range align {
			align[i] = tablewriter.ALIGN_LEFT
		}
		for _, i := range g.right {
			align[i] = tablewriter.ALIGN_RIGHT
		}
		tw.SetColumnAlignment(align)
	}
	if g.wrap {
		tw.SetColWidth(40)
		tw.SetAutoWrapText(true)
	} else {
		tw.SetAutoWrapText(false)
	}
	tw.AppendBulk(g.rows)
	tw.Render()
	return nil
}

// ─── CSV / TSV ────────────────────────────────────────────────────────────────

func renderDelimited(w io.Writer, result *model.Result, sep rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = sep

	g, err := gridFor(result, "")
	if err != nil {
		return err
	}
	if g == nil {
		// Fallback: serialize as JSON on a single line
		b, _ := json.Marshal(result.Data)
		_ = cw.Write([]string{string(b)})
	} else {
		_ = cw.Write(g.headers)
		_ = cw.WriteAll(g.rows)
	}

	cw.Flush()
	return cw.Error()
}

// ─── Markdown ─────────────────────────────────────────────────────────────────

func renderMarkdown(w io.Writer, result *model.Result) error {
	g, err := gridFor(result, ".")
	if err != nil {
		return err
	}
	if g == nil {
		return renderJSON(w, result)
	}

	heads := make([]string, len(g.headers))
	rules := make([]string, len(g.headers))
	for i, h := range g.headers {
		heads[i] = strings.ToUpper(h)
		rules[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintf(w, "| %s |\n|%s|\n", strings.Join(heads, " | "), strings.Join(rules, "|"))
	for _, row := range g.rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = mdEscape(c)
		}
		fmt.Fprintf(w, "| %s |\n", strings.Join(cells, " | "))
	}
	return nil
}

// ─── Warnings / Stats Footer ─────────────────────────────────────────────────

// PrintFooter writes warnings and stats to w when verbose mode is on.
func PrintFooter(w io.Writer, result *model.Result, verbose bool) {
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "⚠  %s\n", warn)
	}
	if verbose {
		pages := ""
		if result.Stats.Pages > 0 {
			pages = fmt.Sprintf(" • %d pages", result.Stats.Pages)
		}
		dest := "not stored"
		if result.Stats.Stored {
			dest = "stored"
		}
		fmt.Fprintf(w, "\n[%s • %d items%s • %dms • %s]\n",
			result.GeneratedAt.Format(time.RFC3339),
			result.Stats.Items,
			pages,
			result.Stats.DurationMs,
			dest,
		)
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

// localized prefers the English field and falls back to the Japanese one.
func localized(en, ja *string) string {
	if en != nil && *en != "" {
		return *en
	}
	return derefOr(ja, "")
}

// layerPath joins the set layer numbers as "1.2.3".
func layerPath(layers ...*uint32) string {
	parts := make([]string, 0, len(layers))
	for _, l := range layers {
		if l == nil {
			break
		}
		parts = append(parts, strconv.FormatUint(uint64(*l), 10))
	}
	return strings.Join(parts, ".")
}

func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
