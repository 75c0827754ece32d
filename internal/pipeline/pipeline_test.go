package pipeline_test

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/explorrrr/boj-client/internal/model"
	"github.com/explorrrr/boj-client/internal/pipeline"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

// jsonl joins lines with newlines and appends a trailing newline.
func jsonl(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

func strp(s string) *string { return &s }

// ─── ReadPoints ───────────────────────────────────────────────────────────────

func TestReadBasic(t *testing.T) {
	input := jsonl(
		`{"db":"co","series_code":"TK99F1000601GCQ01000","survey_date":"202401","value":"12.5"}`,
		`{"db":"CO","series_code":"TK99F1000601GCQ01000","survey_date":"202402","value":-3}`,
	)
	rows, err := pipeline.ReadPoints(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].DB != "CO" {
		t.Errorf("DB: expected CO, got %q", rows[0].DB)
	}
	if rows[0].Value == nil || *rows[0].Value != "12.5" {
		t.Errorf("rows[0].Value: expected 12.5, got %v", rows[0].Value)
	}
	if rows[1].Value == nil || *rows[1].Value != "-3" {
		t.Errorf("rows[1].Value: expected -3, got %v", rows[1].Value)
	}
}

func TestReadNumberKeepsLiteral(t *testing.T) {
	rows, err := pipeline.ReadPoints(strings.NewReader(`{"series_code":"A","survey_date":"2024","value":1.50}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *rows[0].Value != "1.50" {
		t.Errorf("Value: expected literal 1.50, got %q", *rows[0].Value)
	}
}

func TestReadNullAndEmptyAreMissing(t *testing.T) {
	input := jsonl(
		`{"series_code":"A","survey_date":"202401","value":null}`,
		`{"series_code":"A","survey_date":"202402","value":""}`,
		`{"series_code":"A","survey_date":"202403"}`,
	)
	rows, err := pipeline.ReadPoints(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, r := range rows {
		if r.Value != nil {
			t.Errorf("rows[%d].Value: expected nil, got %q", i, *r.Value)
		}
	}
}

func TestReadSkipsBlankAndCommentLines(t *testing.T) {
	input := jsonl(
		"",
		"// exported by boj",
		`{"series_code":"A","survey_date":"202401","value":"1"}`,
		"   ",
	)
	rows, err := pipeline.ReadPoints(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("expected 1 row, got %d", len(rows))
	}
}

func TestReadErrors(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", "no points"},
		{"blank only", "\n\n", "no points"},
		{"invalid json", "{nope}", "line 1: invalid JSON"},
		{"missing code", `{"survey_date":"202401"}`, "line 1: missing series_code"},
		{"missing date", jsonl(`{"series_code":"A","survey_date":"1"}`, `{"series_code":"A"}`), "line 2: missing survey_date"},
		{"bad value", `{"series_code":"A","survey_date":"1","value":[1]}`, "unexpected value type"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := pipeline.ReadPoints(strings.NewReader(tc.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error: expected %q in %q", tc.want, err.Error())
			}
		})
	}
}

func TestReadLargeInput(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 5000; i++ {
		fmt.Fprintf(&b, `{"series_code":"S%d","survey_date":"2024","value":"%d"}`+"\n", i%7, i)
	}
	rows, err := pipeline.ReadPoints(strings.NewReader(b.String()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 5000 {
		t.Errorf("expected 5000 rows, got %d", len(rows))
	}
}

// ─── GroupPoints ──────────────────────────────────────────────────────────────

func TestGroupPoints(t *testing.T) {
	rows := []model.PointRow{
		{DB: "CO", SeriesCode: "B", SurveyDate: "1", Value: strp("1")},
		{DB: "CO", SeriesCode: "A", SurveyDate: "1", Value: strp("2")},
		{DB: "CO", SeriesCode: "B", SurveyDate: "2", Value: nil},
		{DB: "FM08", SeriesCode: "B", SurveyDate: "1", Value: strp("3")},
	}
	got := pipeline.GroupPoints(rows)
	if len(got) != 2 {
		t.Fatalf("expected 2 DBs, got %d", len(got))
	}
	co := got["CO"]
	if len(co) != 2 || co[0].SeriesCode != "B" || co[1].SeriesCode != "A" {
		t.Fatalf("CO series order: got %+v", co)
	}
	if len(co[0].Points) != 2 || co[0].Points[1].Value != nil {
		t.Errorf("CO/B points: got %+v", co[0].Points)
	}
	if len(got["FM08"]) != 1 {
		t.Errorf("FM08: expected 1 series, got %d", len(got["FM08"]))
	}
}

// ─── WriteJSONL ───────────────────────────────────────────────────────────────

func TestWriteOneLinePerRow(t *testing.T) {
	rows := []model.PointRow{
		{DB: "CO", SeriesCode: "A", SurveyDate: "202401", Value: strp("1.0")},
		{DB: "CO", SeriesCode: "A", SurveyDate: "202402"},
	}
	var buf bytes.Buffer
	if err := pipeline.WriteJSONL(&buf, rows); err != nil {
		t.Fatalf("WriteJSONL: %v", err)
	}
	lines := nonEmptyLines(buf.String())
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[1], `"value":null`) {
		t.Errorf("missing value should be null: %s", lines[1])
	}
}

func TestWriteEmptySlice(t *testing.T) {
	var buf bytes.Buffer
	if err := pipeline.WriteJSONL(&buf, nil); err != nil {
		t.Fatalf("WriteJSONL: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestRoundTrip(t *testing.T) {
	in := []model.PointRow{
		{DB: "FM08", SeriesCode: "FXERD01", SurveyDate: "20240101", Value: strp("141.8")},
		{DB: "FM08", SeriesCode: "FXERD01", SurveyDate: "20240102", Value: nil},
	}
	var buf bytes.Buffer
	if err := pipeline.WriteJSONL(&buf, in); err != nil {
		t.Fatalf("WriteJSONL: %v", err)
	}
	out, err := pipeline.ReadPoints(&buf)
	if err != nil {
		t.Fatalf("ReadPoints: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("expected %d rows, got %d", len(in), len(out))
	}
	if *out[0].Value != "141.8" || out[1].Value != nil {
		t.Errorf("round trip values: got %+v", out)
	}
}

// ─── ReadPayload ──────────────────────────────────────────────────────────────

func TestReadPayloadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "body.json")
	if err := os.WriteFile(path, []byte(`{"STATUS":200}`), 0o644); err != nil {
		t.Fatal(err)
	}
	b, err := pipeline.ReadPayload(path, strings.NewReader("ignored"))
	if err != nil {
		t.Fatalf("ReadPayload: %v", err)
	}
	if string(b) != `{"STATUS":200}` {
		t.Errorf("payload: got %q", b)
	}
}

func TestReadPayloadFromStdin(t *testing.T) {
	b, err := pipeline.ReadPayload("-", strings.NewReader("abc"))
	if err != nil {
		t.Fatalf("ReadPayload: %v", err)
	}
	if string(b) != "abc" {
		t.Errorf("payload: got %q", b)
	}
}

func TestReadPayloadErrors(t *testing.T) {
	if _, err := pipeline.ReadPayload("", strings.NewReader("")); err == nil {
		t.Error("expected error for empty stdin")
	}
	if _, err := pipeline.ReadPayload(filepath.Join(t.TempDir(), "missing"), nil); err == nil {
		t.Error("expected error for missing file")
	}
}
