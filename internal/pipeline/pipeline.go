// Package pipeline provides helpers for reading and writing point streams
// via stdin/stdout in JSONL format, the canonical pipe format, and for
// reading saved response payloads.
package pipeline

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/explorrrr/boj-client/internal/model"
)

// maxPayload caps how much ReadPayload will buffer.
const maxPayload = 64 << 20

// ReadPayload returns the bytes of a saved response body. An empty path or
// "-" reads stdin.
func ReadPayload(path string, stdin io.Reader) ([]byte, error) {
	var r io.Reader = stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening payload: %w", err)
		}
		defer f.Close()
		r = f
	}
	b, err := io.ReadAll(io.LimitReader(r, maxPayload+1))
	if err != nil {
		return nil, fmt.Errorf("reading payload: %w", err)
	}
	if len(b) > maxPayload {
		return nil, fmt.Errorf("payload exceeds %d bytes", maxPayload)
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("empty payload (is stdin empty?)")
	}
	return b, nil
}

// ReadPoints reads JSONL point records from r.
// Each line must be a JSON object with at least "series_code" and
// "survey_date"; "value" may be a string, a number or null.
func ReadPoints(r io.Reader) ([]model.PointRow, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	type row struct {
		DB, SeriesCode, SurveyDate string
	}

	var rows []model.PointRow
	lineNum := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lineNum++
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(line))
		dec.UseNumber()
		var raw map[string]any
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("line %d: invalid JSON: %w", lineNum, err)
		}
		rec := row{
			DB:         asString(raw["db"]),
			SeriesCode: asString(raw["series_code"]),
			SurveyDate: asString(raw["survey_date"]),
		}
		if rec.SeriesCode == "" {
			return nil, fmt.Errorf("line %d: missing series_code", lineNum)
		}
		if rec.SurveyDate == "" {
			return nil, fmt.Errorf("line %d: missing survey_date", lineNum)
		}

		pr := model.PointRow{DB: strings.ToUpper(rec.DB), SeriesCode: rec.SeriesCode, SurveyDate: rec.SurveyDate}
		switch v := raw["value"].(type) {
		case nil:
		case string:
			if v != "" {
				pr.Value = &v
			}
		case json.Number:
			s := v.String()
			pr.Value = &s
		default:
			return nil, fmt.Errorf("line %d: unexpected value type %T", lineNum, v)
		}
		rows = append(rows, pr)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no points read from input (is stdin empty?)")
	}
	return rows, nil
}

// GroupPoints regroups flat rows into series keyed by DB, keeping first-seen
// order of series and points.
func GroupPoints(rows []model.PointRow) map[string][]model.Series {
	out := make(map[string][]model.Series)
	index := make(map[string]int)
	for _, r := range rows {
		key := r.DB + "|" + r.SeriesCode
		i, ok := index[key]
		if !ok {
			out[r.DB] = append(out[r.DB], model.Series{SeriesCode: r.SeriesCode})
			i = len(out[r.DB]) - 1
			index[key] = i
		}
		s := &out[r.DB][i]
		s.Points = append(s.Points, model.DataPoint{SurveyDate: r.SurveyDate, Value: r.Value})
	}
	return out
}

// WriteJSONL writes rows as JSONL to w.
func WriteJSONL(w io.Writer, rows []model.PointRow) error {
	enc := json.NewEncoder(w)
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

// IsTTY returns true if stdout is a terminal (not a pipe).
func IsTTY() bool {
	return isCharDevice(os.Stdout)
}

// StdinPiped returns true if stdin is a pipe or file rather than a terminal.
func StdinPiped() bool {
	return !isCharDevice(os.Stdin)
}

func isCharDevice(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return ""
	}
}
