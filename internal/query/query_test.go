package query_test

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/explorrrr/boj-client/internal/bojerr"
	"github.com/explorrrr/boj-client/internal/query"
)

// wantValidation fails unless err is a ValidationError whose message
// contains substr.
func wantValidation(t *testing.T, err error, substr string) {
	t.Helper()
	var ve *bojerr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError containing %q, got %v", substr, err)
	}
	if !strings.Contains(ve.Message, substr) {
		t.Errorf("expected message containing %q, got %q", substr, ve.Message)
	}
}

// ─── Validator ────────────────────────────────────────────────────────────────

func TestValidateIdentifier(t *testing.T) {
	if err := query.ValidateIdentifier("DB", "CO"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	wantValidation(t, query.ValidateIdentifier("DB", "   "), "DB is required")
	wantValidation(t, query.ValidateIdentifier("DB", "日本"), "ASCII characters only")
	for _, ch := range []string{"<", ">", "!", "|", `\`, ";", "'", `"`} {
		wantValidation(t, query.ValidateIdentifier("CODE", "A"+ch), "forbidden character")
	}
}

func TestValidateDB_Comma(t *testing.T) {
	wantValidation(t, query.ValidateDB("CO,FM01"), "DB must not include comma")
}

func TestValidateCodeList_Bounds(t *testing.T) {
	wantValidation(t, query.ValidateCodeList(nil), "CODE is required")

	codes := make([]string, query.MaxCodes)
	for i := range codes {
		codes[i] = fmt.Sprintf("CODE%05d", i)
	}
	if err := query.ValidateCodeList(codes); err != nil {
		t.Errorf("1250 codes: unexpected error: %v", err)
	}
	wantValidation(t, query.ValidateCodeList(append(codes, "EXTRA")), "1250 or fewer")
	wantValidation(t, query.ValidateCodeList([]string{"A,B"}), "separate items")
}

func TestParseLayerToken(t *testing.T) {
	v, err := query.ParseLayerToken("*")
	if err != nil || !v.Wildcard {
		t.Errorf("wildcard: got %+v, %v", v, err)
	}
	v, err = query.ParseLayerToken("12")
	if err != nil || v.Index != 12 {
		t.Errorf("index: got %+v, %v", v, err)
	}
	for _, bad := range []string{"0", "-1", "a", "1.5", "99999999999"} {
		wantValidation(t, query.ValidateLayerToken(bad), "positive integer")
	}
}

func TestValidateDateGeneric(t *testing.T) {
	for _, ok := range []string{"1850", "2050", "202401", "202412"} {
		if err := query.ValidateDateGeneric(ok); err != nil {
			t.Errorf("%s: unexpected error: %v", ok, err)
		}
	}
	cases := map[string]string{
		"1849":   "year must be between",
		"2051":   "year must be between",
		"202413": "suffix must be between 01 and 12",
		"202400": "suffix must be between 01 and 12",
		"20241":  "YYYY or YYYYXX",
		"2024-1": "numeric",
		"":       "YYYY or YYYYXX",
	}
	for in, msg := range cases {
		wantValidation(t, query.ValidateDateGeneric(in), msg)
	}
}

func TestValidateDateForFrequency(t *testing.T) {
	cases := []struct {
		value string
		freq  query.Frequency
		ok    bool
	}{
		{"2024", query.FreqCY, true},
		{"2024", query.FreqFY, true},
		{"202401", query.FreqCY, false},
		{"202402", query.FreqCH, true},
		{"202403", query.FreqFH, false},
		{"202404", query.FreqQ, true},
		{"202405", query.FreqQ, false},
		{"202412", query.FreqM, true},
		{"202412", query.FreqW, true},
		{"202412", query.FreqD, true},
		{"202413", query.FreqD, false},
		{"2024", query.FreqM, false},
		{"184901", query.FreqM, false},
		{"205101", query.FreqQ, false},
	}
	for _, tc := range cases {
		err := query.ValidateDateForFrequency(tc.value, tc.freq)
		if tc.ok && err != nil {
			t.Errorf("%s/%s: unexpected error: %v", tc.value, tc.freq, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%s/%s: expected error", tc.value, tc.freq)
		}
	}
	wantValidation(t, query.ValidateDateForFrequency("202405", query.FreqQ), "date suffix for Q must be between 01 and 04")
}

func TestValidateDateOrder(t *testing.T) {
	if err := query.ValidateDateOrder("202401", "202401"); err != nil {
		t.Errorf("equal dates: unexpected error: %v", err)
	}
	wantValidation(t, query.ValidateDateOrder("2024", "202401"), "formats must match")
	wantValidation(t, query.ValidateDateOrder("202402", "202401"), "earlier than or equal")
}

// ─── Builders ─────────────────────────────────────────────────────────────────

func TestCodeQuery_Params(t *testing.T) {
	q, err := query.NewCodeQuery("co", []string{"TK99F1000601GCQ01000", "TK99F2000601GCQ01000"})
	if err != nil {
		t.Fatalf("NewCodeQuery: %v", err)
	}
	q = q.WithFormat(query.FormatJSON).WithLang(query.LangJP)
	if q, err = q.WithStartDate("202401"); err != nil {
		t.Fatal(err)
	}
	if q, err = q.WithEndDate("202504"); err != nil {
		t.Fatal(err)
	}
	if q, err = q.WithStartPosition(250); err != nil {
		t.Fatal(err)
	}

	want := []query.Param{
		{Key: "format", Value: "json"},
		{Key: "lang", Value: "jp"},
		{Key: "db", Value: "CO"},
		{Key: "startDate", Value: "202401"},
		{Key: "endDate", Value: "202504"},
		{Key: "code", Value: "TK99F1000601GCQ01000,TK99F2000601GCQ01000"},
		{Key: "startPosition", Value: "250"},
	}
	if got := q.Params(); !reflect.DeepEqual(got, want) {
		t.Errorf("Params:\nexpected %v\n     got %v", want, got)
	}

	url := query.BuildURL("https://www.stat-search.boj.or.jp/", q.Endpoint(), q.Params())
	wantURL := "https://www.stat-search.boj.or.jp/api/v1/getDataCode?format=json&lang=jp&db=CO&startDate=202401&endDate=202504&code=TK99F1000601GCQ01000%2CTK99F2000601GCQ01000&startPosition=250"
	if url != wantURL {
		t.Errorf("BuildURL:\nexpected %s\n     got %s", wantURL, url)
	}
}

func TestCodeQuery_FailFastOrder(t *testing.T) {
	_, err := query.NewCodeQuery("", []string{"A,B"})
	wantValidation(t, err, "DB is required")
}

func TestCodeQuery_DateOrderEitherWay(t *testing.T) {
	q, _ := query.NewCodeQuery("CO", []string{"X"})

	a, err := q.WithStartDate("202405")
	if err != nil {
		t.Fatal(err)
	}
	_, errA := a.WithEndDate("202401")

	b, err := q.WithEndDate("202401")
	if err != nil {
		t.Fatal(err)
	}
	_, errB := b.WithStartDate("202405")

	wantValidation(t, errA, "earlier than or equal")
	wantValidation(t, errB, "earlier than or equal")
}

func TestCodeQuery_SetterLeavesQueryOnError(t *testing.T) {
	q, _ := query.NewCodeQuery("CO", []string{"X"})
	q2, err := q.WithStartPosition(0)
	wantValidation(t, err, "STARTPOSITION must be >= 1")
	if q2.StartPosition() != 0 {
		t.Errorf("StartPosition: expected 0, got %d", q2.StartPosition())
	}
}

func TestLayerQuery_Params(t *testing.T) {
	q, err := query.NewLayerQuery("bp01", query.FreqQ, []string{"1", "*", "03"})
	if err != nil {
		t.Fatalf("NewLayerQuery: %v", err)
	}
	if q, err = q.WithStartDate("202401"); err != nil {
		t.Fatal(err)
	}
	if _, err := q.WithEndDate("202405"); err == nil {
		t.Error("expected Q suffix 05 to be rejected")
	}
	want := []query.Param{
		{Key: "db", Value: "BP01"},
		{Key: "frequency", Value: "Q"},
		{Key: "layer", Value: "1,*,3"},
		{Key: "startDate", Value: "202401"},
	}
	if got := q.Params(); !reflect.DeepEqual(got, want) {
		t.Errorf("Params:\nexpected %v\n     got %v", want, got)
	}
	if q.CSVEncoding() != query.ShiftJIS {
		t.Errorf("CSVEncoding: expected Shift_JIS for default language")
	}
	if q.WithLang(query.LangEN).CSVEncoding() != query.UTF8 {
		t.Errorf("CSVEncoding: expected UTF-8 for en")
	}
}

func TestLayerQuery_FrequencyNormalized(t *testing.T) {
	for _, in := range []string{" q", "q", "Q ", "\tQ\n"} {
		q, err := query.NewLayerQuery("MD10", query.Frequency(in), []string{"1"})
		if err != nil {
			t.Fatalf("NewLayerQuery(freq=%q): %v", in, err)
		}
		if q.Frequency() != query.FreqQ {
			t.Errorf("Frequency(%q): expected %q, got %q", in, query.FreqQ, q.Frequency())
		}
		if _, err := q.WithStartDate("202001"); err != nil {
			t.Errorf("WithStartDate after freq=%q: %v", in, err)
		}
		want := query.Param{Key: "frequency", Value: "Q"}
		if got := q.Params()[1]; got != want {
			t.Errorf("Params(freq=%q): expected %v, got %v", in, want, got)
		}
	}
}

func TestLayerQuery_LayerCount(t *testing.T) {
	_, err := query.NewLayerQuery("BP01", query.FreqM, nil)
	wantValidation(t, err, "LAYER is required")
	_, err = query.NewLayerQuery("BP01", query.FreqM, []string{"1", "2", "3", "4", "5", "6"})
	wantValidation(t, err, "1 to 5 levels")
}

func TestMetadataQuery_Params(t *testing.T) {
	q, err := query.NewMetadataQuery("fm08")
	if err != nil {
		t.Fatal(err)
	}
	q = q.WithFormat(query.FormatCSV).WithLang(query.LangEN)
	want := []query.Param{
		{Key: "format", Value: "csv"},
		{Key: "lang", Value: "en"},
		{Key: "db", Value: "FM08"},
	}
	if got := q.Params(); !reflect.DeepEqual(got, want) {
		t.Errorf("Params:\nexpected %v\n     got %v", want, got)
	}
}

func TestBuildURL_EscapesSpaces(t *testing.T) {
	got := query.BuildURL("http://x", "/p", []query.Param{{Key: "a b", Value: "c d"}})
	if got != "http://x/p?a%20b=c%20d" {
		t.Errorf("got %s", got)
	}
}

// ─── Round trip ───────────────────────────────────────────────────────────────

func TestRoundTrip_Code(t *testing.T) {
	q, _ := query.NewCodeQuery("CO", []string{"tk99f1000601gcq01000", "B"})
	q = q.WithLang(query.LangEN).WithFormat(query.FormatCSV)
	q, _ = q.WithEndDate("2025")
	q, _ = q.WithStartDate("2020")
	q, _ = q.WithStartPosition(3)

	back, err := query.ParseCodeParams(q.Params())
	if err != nil {
		t.Fatalf("ParseCodeParams: %v", err)
	}
	if !reflect.DeepEqual(back, q) {
		t.Errorf("round trip mismatch:\nexpected %+v\n     got %+v", q, back)
	}
}

func TestRoundTrip_Layer(t *testing.T) {
	q, _ := query.NewLayerQuery("BP01", query.FreqM, []string{"1", "*"})
	q, _ = q.WithStartDate("202001")
	q, _ = q.WithEndDate("202012")

	back, err := query.ParseLayerParams(q.Params())
	if err != nil {
		t.Fatalf("ParseLayerParams: %v", err)
	}
	if !reflect.DeepEqual(back, q) {
		t.Errorf("round trip mismatch:\nexpected %+v\n     got %+v", q, back)
	}
}

func TestRoundTrip_Metadata(t *testing.T) {
	q, _ := query.NewMetadataQuery("PR01")
	q = q.WithLang(query.LangJP)
	back, err := query.ParseMetadataParams(q.Params())
	if err != nil {
		t.Fatalf("ParseMetadataParams: %v", err)
	}
	if !reflect.DeepEqual(back, q) {
		t.Errorf("round trip mismatch:\nexpected %+v\n     got %+v", q, back)
	}
}

func TestParseParams_RejectsUnknownKey(t *testing.T) {
	_, err := query.ParseMetadataParams([]query.Param{{Key: "db", Value: "CO"}, {Key: "startDate", Value: "2024"}})
	wantValidation(t, err, "not supported")
}
