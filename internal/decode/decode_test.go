package decode_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"golang.org/x/text/encoding/japanese"

	"github.com/explorrrr/boj-client/internal/bojerr"
	"github.com/explorrrr/boj-client/internal/decode"
	"github.com/explorrrr/boj-client/internal/query"
)

// ─── Fixtures ─────────────────────────────────────────────────────────────────

const codeJSON = `{
  "STATUS": 200,
  "MESSAGEID": "M181000I",
  "MESSAGE": "正常に終了しました。",
  "DATE": "2025-01-15T09:00:00.000+09:00",
  "PARAMETER": {"FORMAT": "CSV", "LANG": "EN", "DB": "CO", "STARTDATE": "202401"},
  "NEXTPOSITION": null,
  "RESULTSET": [
    {
      "SERIES_CODE": "TK01",
      "NAME_OF_TIME_SERIES": "Tankan A",
      "UNIT": "% points",
      "FREQUENCY": "QUARTERLY",
      "LAST_UPDATE": 20250401,
      "VALUES": {"SURVEY_DATES": [202401, 202402], "VALUES": [12, 13]}
    },
    {
      "SERIES_CODE": "TK02",
      "NAME_OF_TIME_SERIES": "Tankan B",
      "UNIT": "% points",
      "FREQUENCY": "QUARTERLY",
      "LAST_UPDATE": 20250401,
      "VALUES": {"SURVEY_DATES": [202401, 202402], "VALUES": [null, -3]}
    }
  ]
}`

const codeCSV = "STATUS,200\r\n" +
	"MESSAGEID,M181000I\r\n" +
	"MESSAGE,正常に終了しました。\r\n" +
	"DATE,2025-01-15T09:00:00.000+09:00\r\n" +
	"PARAMETER,FORMAT,CSV\r\n" +
	"PARAMETER,LANG,EN\r\n" +
	"PARAMETER,DB,CO\r\n" +
	"PARAMETER,STARTDATE,202401\r\n" +
	"NEXTPOSITION,\r\n" +
	"\r\n" +
	"SERIES_CODE,NAME_OF_TIME_SERIES,UNIT,FREQUENCY,LAST_UPDATE,SURVEY_DATES,VALUES\r\n" +
	"TK01,Tankan A,% points,QUARTERLY,20250401,202401,12\r\n" +
	"TK02,Tankan B,% points,QUARTERLY,20250401,202401,\r\n" +
	"TK01,Tankan A,% points,QUARTERLY,20250401,202402,13\r\n" +
	"TK02,Tankan B,% points,QUARTERLY,20250401,202402,-3\r\n"

func wantDecodeError(t *testing.T, err error, substr string) {
	t.Helper()
	var de *bojerr.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError containing %q, got %v", substr, err)
	}
	if !strings.Contains(de.Message, substr) {
		t.Errorf("expected message containing %q, got %q", substr, de.Message)
	}
}

func str(p *string) string {
	if p == nil {
		return "<nil>"
	}
	return *p
}

// ─── Classifier ───────────────────────────────────────────────────────────────

func TestLooksStructured(t *testing.T) {
	cases := map[string]bool{
		`{"a":1}`:         true,
		" \r\n\t[1]":      true,
		"STATUS,200":      false,
		"":                false,
		"   ":             false,
		"\ufeff{\"a\":1}": false,
	}
	for in, want := range cases {
		if got := decode.LooksStructured([]byte(in)); got != want {
			t.Errorf("LooksStructured(%q): expected %v, got %v", in, want, got)
		}
	}
}

// ─── Structured ───────────────────────────────────────────────────────────────

func TestDecodeCodeJSON(t *testing.T) {
	resp, err := decode.DecodeCodeJSON([]byte(codeJSON))
	if err != nil {
		t.Fatalf("DecodeCodeJSON: %v", err)
	}
	if resp.Meta.Status != 200 || resp.Meta.MessageID != "M181000I" {
		t.Errorf("Meta: got %+v", resp.Meta)
	}
	if str(resp.Parameter.DB) != "CO" || str(resp.Parameter.StartDate) != "202401" {
		t.Errorf("Parameter: got db=%s start=%s", str(resp.Parameter.DB), str(resp.Parameter.StartDate))
	}
	if resp.NextPosition != nil {
		t.Errorf("NextPosition: expected nil, got %d", *resp.NextPosition)
	}
	if len(resp.Series) != 2 {
		t.Fatalf("Series: expected 2, got %d", len(resp.Series))
	}
	b := resp.Series[1]
	if b.SeriesCode != "TK02" || str(b.LastUpdate) != "20250401" {
		t.Errorf("Series[1]: got %+v", b)
	}
	if b.Points[0].SurveyDate != "202401" || b.Points[0].Value != nil {
		t.Errorf("Points[0]: expected 202401/<nil>, got %s/%s", b.Points[0].SurveyDate, str(b.Points[0].Value))
	}
	if str(b.Points[1].Value) != "-3" {
		t.Errorf("Points[1].Value: expected -3, got %s", str(b.Points[1].Value))
	}
	if resp.Raw != codeJSON {
		t.Error("Raw: expected decoded text to be kept")
	}
}

func TestDecodeCodeJSON_CaseInsensitiveKeysAndExtras(t *testing.T) {
	body := `{"status":"200","messageid":"M181030I","parameter":{"db":"co","startPosition":"","NEWKEY":"x"},
	"nextposition":"250",
	"resultset":[{"series_code":"A","values":{"survey_dates":["2024"],"values":["  "]},"FLAG":true,"NOTE":null}]}`
	resp, err := decode.DecodeCodeJSON([]byte(body))
	if err != nil {
		t.Fatalf("DecodeCodeJSON: %v", err)
	}
	if resp.NextPosition == nil || *resp.NextPosition != 250 {
		t.Errorf("NextPosition: expected 250")
	}
	if resp.Parameter.StartPosition != nil {
		t.Errorf("StartPosition: expected blank to be absent")
	}
	if resp.Parameter.Extras["NEWKEY"] != "x" {
		t.Errorf("Parameter.Extras: got %v", resp.Parameter.Extras)
	}
	s := resp.Series[0]
	if s.Points[0].Value != nil {
		t.Errorf("blank value: expected nil, got %q", *s.Points[0].Value)
	}
	if str(s.Extras["FLAG"]) != "true" {
		t.Errorf("Extras[FLAG]: got %s", str(s.Extras["FLAG"]))
	}
	if v, ok := s.Extras["NOTE"]; !ok || v != nil {
		t.Errorf("Extras[NOTE]: expected present and nil")
	}
}

func TestDecodeCodeJSON_NoResultSet(t *testing.T) {
	resp, err := decode.DecodeCodeJSON([]byte(`{"STATUS":200,"MESSAGEID":"M181030I","MESSAGE":"no data"}`))
	if err != nil {
		t.Fatalf("DecodeCodeJSON: %v", err)
	}
	if len(resp.Series) != 0 {
		t.Errorf("Series: expected none, got %d", len(resp.Series))
	}
}

func TestDecodeCodeJSON_Errors(t *testing.T) {
	cases := []struct {
		name string
		body string
		msg  string
	}{
		{"invalid utf8", "{\"STATUS\":\"\xff\"}", "invalid UTF-8 JSON payload"},
		{"not json", "{", "invalid JSON payload"},
		{"trailing", `{"STATUS":200} x`, "invalid JSON payload"},
		{"array root", `[1,2]`, "top-level JSON object is required"},
		{"no status", `{"MESSAGE":"x"}`, "STATUS not found"},
		{"bad status", `{"STATUS":"abc"}`, "STATUS is not a valid integer"},
		{"status overflow", `{"STATUS":70000}`, "STATUS is not a valid integer"},
		{"parameter type", `{"STATUS":200,"PARAMETER":[]}`, "PARAMETER must be an object"},
		{"resultset type", `{"STATUS":200,"RESULTSET":{}}`, "RESULTSET must be an array"},
		{"row type", `{"STATUS":200,"RESULTSET":[1]}`, "each RESULTSET element must be an object"},
		{"no series code", `{"STATUS":200,"RESULTSET":[{"VALUES":{}}]}`, "SERIES_CODE is required"},
		{"empty series code", `{"STATUS":200,"RESULTSET":[{"SERIES_CODE":" ","VALUES":{}}]}`, "SERIES_CODE must not be empty"},
		{"no values", `{"STATUS":200,"RESULTSET":[{"SERIES_CODE":"A"}]}`, "VALUES object is required"},
		{"values type", `{"STATUS":200,"RESULTSET":[{"SERIES_CODE":"A","VALUES":[]}]}`, "VALUES must be an object"},
		{"no dates", `{"STATUS":200,"RESULTSET":[{"SERIES_CODE":"A","VALUES":{"VALUES":[]}}]}`, "VALUES.SURVEY_DATES is required"},
		{"mismatch", `{"STATUS":200,"RESULTSET":[{"SERIES_CODE":"A","VALUES":{"SURVEY_DATES":[1,2],"VALUES":[1]}}]}`, "length mismatch"},
		{"null date", `{"STATUS":200,"RESULTSET":[{"SERIES_CODE":"A","VALUES":{"SURVEY_DATES":[null],"VALUES":[1]}}]}`, "survey date must be string/number and not null"},
		{"nested value", `{"STATUS":200,"RESULTSET":[{"SERIES_CODE":"A","VALUES":{"SURVEY_DATES":["2024"],"VALUES":[[1]]}}]}`, "nested array/object"},
		{"bad next", `{"STATUS":200,"NEXTPOSITION":"x"}`, "NEXTPOSITION is not a valid integer"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := decode.DecodeCodeJSON([]byte(tc.body))
			wantDecodeError(t, err, tc.msg)
		})
	}
}

func TestDecodeLayerJSON_Echo(t *testing.T) {
	body := `{"STATUS":200,"PARAMETER":{"DB":"BP01","FREQUENCY":"Q","LAYER1":"1","LAYER2":"null","LAYER3":2}}`
	resp, err := decode.DecodeLayerJSON([]byte(body))
	if err != nil {
		t.Fatalf("DecodeLayerJSON: %v", err)
	}
	p := resp.Parameter
	if str(p.Frequency) != "Q" || p.Layer1 == nil || *p.Layer1 != 1 || p.Layer2 != nil || p.Layer3 == nil || *p.Layer3 != 2 {
		t.Errorf("Parameter: got %+v", p)
	}
	if _, err := decode.DecodeLayerJSON([]byte(`{"STATUS":200,"PARAMETER":{"LAYER1":"x"}}`)); err == nil {
		t.Error("expected invalid LAYER1 to fail")
	}
}

func TestDecodeMetadataJSON(t *testing.T) {
	body := `{"STATUS":200,"MESSAGEID":"M181000I","DB":"FM08","RESULTSET":[
	  {"SERIES_CODE":"","NAME_OF_TIME_SERIES_J":"外国為替市況","LAYER1":1,"LAYER2":"","NOTES":"n","CUSTOM":"c"},
	  {"SERIES_CODE":"FXERD01","LAYER1":"1","LAYER2":"2","START_OF_THE_TIME_SERIES":"199801"}
	]}`
	resp, err := decode.DecodeMetadataJSON([]byte(body))
	if err != nil {
		t.Fatalf("DecodeMetadataJSON: %v", err)
	}
	if resp.DB != "FM08" || len(resp.Entries) != 2 {
		t.Fatalf("got db=%q entries=%d", resp.DB, len(resp.Entries))
	}
	first := resp.Entries[0]
	if first.SeriesCode != nil || first.Layer2 != nil || *first.Layer1 != 1 || str(first.Extras["CUSTOM"]) != "c" {
		t.Errorf("Entries[0]: got %+v", first)
	}
	if str(resp.Entries[1].StartOfSeries) != "199801" || *resp.Entries[1].Layer2 != 2 {
		t.Errorf("Entries[1]: got %+v", resp.Entries[1])
	}
}

// ─── Tabular ──────────────────────────────────────────────────────────────────

func TestDecodeCodeCSV_Grouping(t *testing.T) {
	resp, err := decode.DecodeCodeCSV([]byte(codeCSV), query.UTF8)
	if err != nil {
		t.Fatalf("DecodeCodeCSV: %v", err)
	}
	if len(resp.Series) != 2 {
		t.Fatalf("Series: expected 2, got %d", len(resp.Series))
	}
	a := resp.Series[0]
	if a.SeriesCode != "TK01" || len(a.Points) != 2 {
		t.Fatalf("Series[0]: got %+v", a)
	}
	if a.Points[0].SurveyDate != "202401" || a.Points[1].SurveyDate != "202402" {
		t.Errorf("Series[0] order: got %v", a.Points)
	}
	if resp.Series[1].Points[0].Value != nil {
		t.Errorf("blank CSV value: expected nil")
	}
}

func TestDecodeCodeCSV_SplitsOnOtherColumns(t *testing.T) {
	body := "STATUS,200\n" +
		"SERIES_CODE,UNIT,SURVEY_DATES,VALUES\n" +
		"A,yen,2024,1\n" +
		"A,usd,2024,2\n" +
		"A,yen,2025,3\n"
	resp, err := decode.DecodeCodeCSV([]byte(body), query.UTF8)
	if err != nil {
		t.Fatalf("DecodeCodeCSV: %v", err)
	}
	if len(resp.Series) != 2 {
		t.Fatalf("expected rows differing in UNIT to split, got %d series", len(resp.Series))
	}
	if len(resp.Series[0].Points) != 2 || str(resp.Series[1].Unit) != "usd" {
		t.Errorf("got %+v", resp.Series)
	}
}

func TestDecodeCodeCSV_BOMAndExtras(t *testing.T) {
	body := "\ufeffSTATUS,200\n" +
		"SERIES_CODE,SURVEY_DATES,VALUES,NEW_COLUMN\n" +
		"A,2024,1, x \n"
	resp, err := decode.DecodeCodeCSV([]byte(body), query.UTF8)
	if err != nil {
		t.Fatalf("DecodeCodeCSV: %v", err)
	}
	if resp.Meta.Status != 200 {
		t.Errorf("Status: expected 200, got %d", resp.Meta.Status)
	}
	if str(resp.Series[0].Extras["NEW_COLUMN"]) != "x" {
		t.Errorf("Extras: got %v", resp.Series[0].Extras)
	}
}

func TestDecodeCodeCSV_NoHeaderMeansNoSeries(t *testing.T) {
	resp, err := decode.DecodeCodeCSV([]byte("STATUS,200\nMESSAGEID,M181030I\n"), query.UTF8)
	if err != nil {
		t.Fatalf("DecodeCodeCSV: %v", err)
	}
	if len(resp.Series) != 0 {
		t.Errorf("expected no series, got %d", len(resp.Series))
	}
}

func TestDecodeCodeCSV_Errors(t *testing.T) {
	cases := []struct {
		name string
		body string
		msg  string
	}{
		{"legacy shape", "SERIES_CODE,SURVEY_DATES,VALUES\nA,2024,1\n", "STATUS not found in CSV response"},
		{"missing values column", "STATUS,200\nSERIES_CODE,SURVEY_DATES\nA,2024\n", "VALUES column is required"},
		{"missing dates column", "STATUS,200\nSERIES_CODE,VALUES\nA,1\n", "SURVEY_DATES column is required"},
		{"empty code", "STATUS,200\nSERIES_CODE,SURVEY_DATES,VALUES\n,2024,1\n", "SERIES_CODE must not be empty"},
		{"empty date", "STATUS,200\nSERIES_CODE,SURVEY_DATES,VALUES\nA,,1\n", "SURVEY_DATES must not be empty"},
		{"bad next", "STATUS,200\nNEXTPOSITION,abc\n", "NEXTPOSITION is not a valid integer"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := decode.DecodeCodeCSV([]byte(tc.body), query.UTF8)
			wantDecodeError(t, err, tc.msg)
		})
	}
}

func TestDecodeCodeCSV_ShiftJIS(t *testing.T) {
	text := "STATUS,200\nMESSAGEID,M181000I\n" +
		"SERIES_CODE,NAME_OF_TIME_SERIES_J,SURVEY_DATES,VALUES\n" +
		"A,短観業況判断,2024,1\n"
	body, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte(text))
	if err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}
	resp, err := decode.DecodeCodeCSV(body, query.ShiftJIS)
	if err != nil {
		t.Fatalf("DecodeCodeCSV: %v", err)
	}
	if got := str(resp.Series[0].NameJ); got != "短観業況判断" {
		t.Errorf("NameJ: expected 短観業況判断, got %s", got)
	}
}

func TestDecodeCodeCSV_EncodingMismatch(t *testing.T) {
	// Shift_JIS bytes are not valid UTF-8.
	_, err := decode.DecodeCodeCSV([]byte{0x82, 0xb1, 0x82, 0xf1}, query.UTF8)
	wantDecodeError(t, err, "invalid UTF-8 CSV payload")

	// A stray trail byte is invalid Shift_JIS.
	_, err = decode.DecodeCodeCSV([]byte("STATUS,200\nMESSAGE,\x82\n"), query.ShiftJIS)
	wantDecodeError(t, err, "Shift-JIS CSV payload contains invalid byte sequence")
}

func TestDecodeCodeCSV_UTF8UnderShiftJISHint(t *testing.T) {
	// Some of these happen to be valid Shift_JIS byte sequences and would
	// otherwise decode to mojibake.
	for _, msg := range []string{"短観", "日本銀行", "正常に終了しました。", "\u3000", "ドル円"} {
		t.Run(msg, func(t *testing.T) {
			resp, err := decode.DecodeCodeCSV([]byte("STATUS,200\nMESSAGE,"+msg+"\n"), query.ShiftJIS)
			if err == nil {
				t.Fatalf("expected DecodeError, got message %q", resp.Meta.Message)
			}
			wantDecodeError(t, err, "Shift-JIS CSV payload is UTF-8 encoded")
		})
	}
}

func TestDecodeCodeCSV_ASCIIUnderShiftJISHint(t *testing.T) {
	resp, err := decode.DecodeCodeCSV([]byte("STATUS,200\nMESSAGEID,M181000I\nMESSAGE,ok\n"), query.ShiftJIS)
	if err != nil {
		t.Fatalf("DecodeCodeCSV: %v", err)
	}
	if resp.Meta.Message != "ok" {
		t.Errorf("Message: expected %q, got %q", "ok", resp.Meta.Message)
	}
}

func TestDecodeLayerCSV_Echo(t *testing.T) {
	body := "STATUS,200\n" +
		"PARAMETER,frequency,M\n" +
		"PARAMETER,LAYER1,2\n" +
		"PARAMETER,EXTRA, v \n" +
		"PARAMETER,,ignored\n" +
		"NEXTPOSITION,251\n"
	resp, err := decode.DecodeLayerCSV([]byte(body), query.UTF8)
	if err != nil {
		t.Fatalf("DecodeLayerCSV: %v", err)
	}
	p := resp.Parameter
	if str(p.Frequency) != "M" || p.Layer1 == nil || *p.Layer1 != 2 || p.Extras["EXTRA"] != "v" || len(p.Extras) != 1 {
		t.Errorf("Parameter: got %+v", p)
	}
	if resp.NextPosition == nil || *resp.NextPosition != 251 {
		t.Errorf("NextPosition: expected 251")
	}
}

func TestDecodeMetadataCSV(t *testing.T) {
	body := "STATUS,200\n" +
		"PARAMETER,DB,fm08\n" +
		"SERIES_CODE,NAME_OF_TIME_SERIES,LAYER1,LAYER2,NOTES\n" +
		",Foreign exchange,1,,\n" +
		"FXERD01,USD/JPY,1,1,spot\n"
	resp, err := decode.DecodeMetadataCSV([]byte(body), query.UTF8)
	if err != nil {
		t.Fatalf("DecodeMetadataCSV: %v", err)
	}
	if resp.DB != "fm08" {
		t.Errorf("DB: expected fm08 from PARAMETER row, got %q", resp.DB)
	}
	if len(resp.Entries) != 2 || resp.Entries[0].SeriesCode != nil || str(resp.Entries[1].Notes) != "spot" {
		t.Errorf("Entries: got %+v", resp.Entries)
	}

	withDB := "STATUS,200\nDB,FM08\nPARAMETER,DB,XX\n"
	resp, err = decode.DecodeMetadataCSV([]byte(withDB), query.UTF8)
	if err != nil {
		t.Fatal(err)
	}
	if resp.DB != "FM08" {
		t.Errorf("DB: expected DB row to win, got %q", resp.DB)
	}
}

// ─── Cross-format ─────────────────────────────────────────────────────────────

func TestCrossFormatEquality(t *testing.T) {
	j, err := decode.DecodeCodeJSON([]byte(codeJSON))
	if err != nil {
		t.Fatal(err)
	}
	c, err := decode.DecodeCodeCSV([]byte(codeCSV), query.UTF8)
	if err != nil {
		t.Fatal(err)
	}
	j.Raw, c.Raw = "", ""
	if !reflect.DeepEqual(j, c) {
		t.Errorf("JSON and CSV envelopes differ:\njson %+v\n csv %+v", j, c)
	}
}

// ─── Orchestrator ─────────────────────────────────────────────────────────────

func TestDecoder_SniffWinsOverContentType(t *testing.T) {
	resp, err := decode.DecodeCode([]byte(codeJSON), "text/csv", query.ShiftJIS)
	if err != nil {
		t.Fatalf("DecodeCode: %v", err)
	}
	if len(resp.Series) != 2 {
		t.Errorf("expected JSON body to decode as JSON")
	}
}

func TestDecoder_NoContentTypeFallsBackToCSV(t *testing.T) {
	resp, err := decode.DecodeCode([]byte(codeCSV), "", query.UTF8)
	if err != nil {
		t.Fatalf("DecodeCode: %v", err)
	}
	if len(resp.Series) != 2 {
		t.Errorf("Series: expected 2, got %d", len(resp.Series))
	}
}

func TestDecoder_CSVFallbackConfigurable(t *testing.T) {
	var attempts []query.Format
	record := func(f query.Format, _ error) { attempts = append(attempts, f) }

	on := decode.New(decode.Options{FallbackToStructured: true, OnAttempt: record})
	_, err := on.DecodeCode([]byte("garbage"), "text/csv; charset=Shift_JIS", query.ShiftJIS)
	wantDecodeError(t, err, "invalid JSON payload")
	if want := []query.Format{query.FormatCSV, query.FormatJSON}; !reflect.DeepEqual(attempts, want) {
		t.Errorf("attempts: expected %v, got %v", want, attempts)
	}

	attempts = nil
	off := decode.New(decode.Options{OnAttempt: record})
	_, err = off.DecodeCode([]byte("garbage"), "TEXT/CSV", query.ShiftJIS)
	wantDecodeError(t, err, "STATUS not found in CSV response")
	if len(attempts) != 1 {
		t.Errorf("attempts: expected 1, got %v", attempts)
	}
}

func TestDecoder_JSONContentTypeNoFallback(t *testing.T) {
	_, err := decode.DecodeMetadata([]byte(codeCSV), "application/json", query.UTF8)
	wantDecodeError(t, err, "invalid JSON payload")
}
