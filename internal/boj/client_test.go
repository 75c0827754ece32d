package boj_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/explorrrr/boj-client/internal/boj"
	"github.com/explorrrr/boj-client/internal/bojerr"
	"github.com/explorrrr/boj-client/internal/metrics"
	"github.com/explorrrr/boj-client/internal/query"
	"github.com/explorrrr/boj-client/internal/retry"
)

// ─── Fixtures ─────────────────────────────────────────────────────────────────

func codeBody(next string, codes ...string) string {
	var rows []string
	for _, c := range codes {
		rows = append(rows, fmt.Sprintf(
			`{"SERIES_CODE":%q,"NAME_OF_TIME_SERIES":"name","VALUES":{"SURVEY_DATES":[202401],"VALUES":[1.5]}}`, c))
	}
	return fmt.Sprintf(`{"STATUS":200,"MESSAGEID":"M181000I","MESSAGE":"ok","NEXTPOSITION":%s,"RESULTSET":[%s]}`,
		next, strings.Join(rows, ","))
}

const errorBody = `{"STATUS":400,"MESSAGEID":"M181005E","MESSAGE":"DB名が正しくありません。"}`

const metadataBody = `{"STATUS":200,"MESSAGEID":"M181000I","MESSAGE":"ok","DB":"FM08",
"RESULTSET":[{"SERIES_CODE":"FXERD01","NAME_OF_TIME_SERIES":"USD/JPY","LAYER1":1,"LAYER2":2}]}`

func newCodeQuery(t *testing.T) query.CodeQuery {
	t.Helper()
	q, err := query.NewCodeQuery("CO", []string{"TK99F1000601GCQ01000"})
	if err != nil {
		t.Fatalf("NewCodeQuery: %v", err)
	}
	return q
}

func newClient(srvURL string, retries uint32, mc *metrics.Collector) *boj.Client {
	return boj.NewClient(boj.Options{
		BaseURL: srvURL,
		Timeout: 5 * time.Second,
		Retry:   retry.Policy{MaxRetries: retries, InitialBackoff: time.Millisecond},
		Metrics: mc,
	})
}

func gzipped(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(s)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// ─── Tests ────────────────────────────────────────────────────────────────────

func TestGetDataCode_RequestShape(t *testing.T) {
	var gotPath, gotQuery, gotUA, gotEnc string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotUA = r.Header.Get("User-Agent")
		gotEnc = r.Header.Get("Accept-Encoding")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, codeBody("null", "TK99F1000601GCQ01000"))
	}))
	defer srv.Close()

	q := newCodeQuery(t).WithFormat(query.FormatJSON)
	resp, err := newClient(srv.URL, 0, nil).GetDataCode(context.Background(), q)
	if err != nil {
		t.Fatalf("GetDataCode: %v", err)
	}
	if gotPath != "/api/v1/getDataCode" {
		t.Errorf("path: expected /api/v1/getDataCode, got %q", gotPath)
	}
	if gotQuery != "format=json&db=CO&code=TK99F1000601GCQ01000" {
		t.Errorf("query: got %q", gotQuery)
	}
	if !strings.HasPrefix(gotUA, "boj-client/") {
		t.Errorf("User-Agent: expected boj-client/ prefix, got %q", gotUA)
	}
	if gotEnc != "gzip" {
		t.Errorf("Accept-Encoding: expected gzip, got %q", gotEnc)
	}
	if len(resp.Series) != 1 || resp.Series[0].SeriesCode != "TK99F1000601GCQ01000" {
		t.Errorf("series: got %+v", resp.Series)
	}
}

func TestGetDataCode_Gzip(t *testing.T) {
	body := gzipped(t, codeBody("null", "A", "B"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Encoding", "gzip")
		w.Write(body)
	}))
	defer srv.Close()

	resp, err := newClient(srv.URL, 0, nil).GetDataCode(context.Background(), newCodeQuery(t))
	if err != nil {
		t.Fatalf("GetDataCode: %v", err)
	}
	if len(resp.Series) != 2 {
		t.Errorf("series: expected 2, got %d", len(resp.Series))
	}
}

func TestGetDataCode_BadGzipIsDecodeError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Encoding", "gzip")
		fmt.Fprint(w, "not gzip at all")
	}))
	defer srv.Close()

	_, err := newClient(srv.URL, 3, nil).GetDataCode(context.Background(), newCodeQuery(t))
	if bojerr.KindOf(err) != bojerr.KindDecode {
		t.Fatalf("expected decode error, got %v", err)
	}
	if !strings.Contains(err.Error(), "failed to decode gzip body") {
		t.Errorf("error: got %q", err.Error())
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("calls: expected 1, got %d", n)
	}
}

func TestGetDataCode_CSVRequestAnsweredWithJSONError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "text/csv; charset=Shift_JIS")
		fmt.Fprint(w, errorBody)
	}))
	defer srv.Close()

	q := newCodeQuery(t).WithFormat(query.FormatCSV)
	_, err := newClient(srv.URL, 3, nil).GetDataCode(context.Background(), q)
	var ae *bojerr.APIError
	if !errors.As(err, &ae) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if ae.Status != 400 || ae.MessageID != "M181005E" {
		t.Errorf("APIError: got status=%d id=%q", ae.Status, ae.MessageID)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("calls: 400 must not be retried, got %d calls", n)
	}
}

func TestGetDataCode_RetriesOn503(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			fmt.Fprint(w, `{"STATUS":503,"MESSAGEID":"M181091S","MESSAGE":"busy"}`)
			return
		}
		fmt.Fprint(w, codeBody("null", "A"))
	}))
	defer srv.Close()

	mc := metrics.New()
	_, err := newClient(srv.URL, 2, mc).GetDataCode(context.Background(), newCodeQuery(t))
	if err != nil {
		t.Fatalf("GetDataCode: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("calls: expected 2, got %d", n)
	}
	if n := testutil.CollectAndCount(mc.Registry(), "boj_retries_total"); n != 1 {
		t.Errorf("retries_total: expected 1 series, got %d", n)
	}
}

func TestGetDataCode_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	mc := metrics.New()
	_, err := newClient(url, 0, mc).GetDataCode(context.Background(), newCodeQuery(t))
	if bojerr.KindOf(err) != bojerr.KindTransport {
		t.Fatalf("expected transport error, got %v", err)
	}
	if n := testutil.CollectAndCount(mc.Registry(), "boj_errors_total"); n != 1 {
		t.Errorf("errors_total: expected 1 series, got %d", n)
	}
}

func TestCustomTransport_PlainErrorBecomesTransportError(t *testing.T) {
	var calls int
	tr := boj.TransportFunc(func(ctx context.Context, req boj.Request) (*boj.Response, error) {
		calls++
		return nil, errors.New("boom")
	})
	c := boj.NewClient(boj.Options{
		BaseURL:   "http://example.invalid",
		Transport: tr,
		Retry:     retry.Policy{MaxRetries: 2, InitialBackoff: time.Millisecond},
	})
	_, err := c.GetDataCode(context.Background(), newCodeQuery(t))
	if bojerr.KindOf(err) != bojerr.KindTransport {
		t.Fatalf("expected transport error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("calls: expected 3, got %d", calls)
	}
}

func TestCustomTransport_HeaderLookup(t *testing.T) {
	tr := boj.TransportFunc(func(ctx context.Context, req boj.Request) (*boj.Response, error) {
		if req.Method != "GET" {
			t.Errorf("method: expected GET, got %q", req.Method)
		}
		return &boj.Response{
			StatusCode: 200,
			Headers:    map[string]string{"content-type": "application/json"},
			Body:       []byte(metadataBody),
		}, nil
	})
	c := boj.NewClient(boj.Options{Transport: tr})
	q, err := query.NewMetadataQuery("fm08")
	if err != nil {
		t.Fatal(err)
	}
	resp, err := c.GetMetadata(context.Background(), q)
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if resp.DB != "FM08" || len(resp.Entries) != 1 {
		t.Errorf("metadata: got db=%q entries=%d", resp.DB, len(resp.Entries))
	}
	if l := resp.Entries[0].Layer2; l == nil || *l != 2 {
		t.Errorf("Layer2: expected 2, got %v", l)
	}
}

func TestResponseHeader_CaseInsensitive(t *testing.T) {
	r := &boj.Response{Headers: map[string]string{
		"Content-Type":     "text/csv; charset=UTF-8",
		"content-encoding": "gzip",
	}}
	for name, want := range map[string]string{
		"content-type":     "text/csv; charset=UTF-8",
		"CONTENT-TYPE":     "text/csv; charset=UTF-8",
		"Content-Encoding": "gzip",
		"X-Missing":        "",
	} {
		if got := r.Header(name); got != want {
			t.Errorf("Header(%q): expected %q, got %q", name, want, got)
		}
	}
}

func TestCustomTransport_CanonicalHeaderKeys(t *testing.T) {
	tr := boj.TransportFunc(func(ctx context.Context, req boj.Request) (*boj.Response, error) {
		return &boj.Response{
			StatusCode: 200,
			Headers: map[string]string{
				"Content-Type":     "application/json",
				"Content-Encoding": "gzip",
			},
			Body: gzipped(t, metadataBody),
		}, nil
	})
	c := boj.NewClient(boj.Options{Transport: tr})
	q, err := query.NewMetadataQuery("FM08")
	if err != nil {
		t.Fatal(err)
	}
	resp, err := c.GetMetadata(context.Background(), q)
	if err != nil {
		t.Fatalf("GetMetadata with gzip body and canonical header keys: %v", err)
	}
	if resp.DB != "FM08" || len(resp.Entries) != 1 {
		t.Errorf("metadata: got db=%q entries=%d", resp.DB, len(resp.Entries))
	}
}

func TestAllCodePages_FollowsNextPosition(t *testing.T) {
	var positions []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pos := r.URL.Query().Get("startPosition")
		positions = append(positions, pos)
		switch pos {
		case "":
			fmt.Fprint(w, codeBody("3", "A", "B"))
		case "3":
			fmt.Fprint(w, codeBody("5", "C", "D"))
		default:
			fmt.Fprint(w, codeBody("null", "E"))
		}
	}))
	defer srv.Close()

	resp, pages, err := newClient(srv.URL, 0, nil).AllCodePages(context.Background(), newCodeQuery(t), 0)
	if err != nil {
		t.Fatalf("AllCodePages: %v", err)
	}
	if pages != 3 {
		t.Errorf("pages: expected 3, got %d", pages)
	}
	if len(resp.Series) != 5 {
		t.Errorf("series: expected 5, got %d", len(resp.Series))
	}
	if resp.NextPosition != nil {
		t.Errorf("NextPosition: expected nil after last page, got %d", *resp.NextPosition)
	}
	if strings.Join(positions, ",") != ",3,5" {
		t.Errorf("positions: got %v", positions)
	}
}

func TestAllCodePages_MaxPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, codeBody("9", "A"))
	}))
	defer srv.Close()

	q, _ := newCodeQuery(t).WithStartPosition(1)
	resp, pages, err := newClient(srv.URL, 0, nil).AllCodePages(context.Background(), q, 2)
	if err != nil {
		t.Fatalf("AllCodePages: %v", err)
	}
	if pages != 2 {
		t.Errorf("pages: expected 2, got %d", pages)
	}
	if resp.NextPosition == nil || *resp.NextPosition != 9 {
		t.Errorf("NextPosition: expected 9 to remain, got %v", resp.NextPosition)
	}
}

func TestAllCodePages_NonAdvancingCursor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, codeBody("4", "A"))
	}))
	defer srv.Close()

	q, _ := newCodeQuery(t).WithStartPosition(4)
	_, _, err := newClient(srv.URL, 0, nil).AllCodePages(context.Background(), q, 0)
	if bojerr.KindOf(err) != bojerr.KindDecode {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestAllLayerPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/getDataLayer" {
			t.Errorf("path: got %q", r.URL.Path)
		}
		if r.URL.Query().Get("startPosition") == "" {
			fmt.Fprint(w, codeBody("2", "A"))
			return
		}
		fmt.Fprint(w, codeBody("null", "B"))
	}))
	defer srv.Close()

	q, err := query.NewLayerQuery("BP01", query.FreqM, []string{"1", "*"})
	if err != nil {
		t.Fatal(err)
	}
	resp, pages, err := newClient(srv.URL, 0, nil).AllLayerPages(context.Background(), q, 0)
	if err != nil {
		t.Fatalf("AllLayerPages: %v", err)
	}
	if pages != 2 || len(resp.Series) != 2 {
		t.Errorf("expected 2 pages and 2 series, got %d and %d", pages, len(resp.Series))
	}
}

func TestContextCancelledBeforeSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent")
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newClient(srv.URL, 0, nil).GetDataCode(ctx, newCodeQuery(t))
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
