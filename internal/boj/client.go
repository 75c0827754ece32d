// Package boj implements the HTTP client for the Bank of Japan time-series
// statistics API. All methods are context-aware, respect the shared rate
// limiter, and retry transport failures and server-side 500/503 responses.
package boj

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/explorrrr/boj-client/internal/bojerr"
	"github.com/explorrrr/boj-client/internal/decode"
	"github.com/explorrrr/boj-client/internal/metrics"
	"github.com/explorrrr/boj-client/internal/model"
	"github.com/explorrrr/boj-client/internal/query"
	"github.com/explorrrr/boj-client/internal/retry"
)

// DefaultBaseURL is the public API host.
const DefaultBaseURL = "https://www.stat-search.boj.or.jp"

// Version is reported in the User-Agent header.
var Version = "v0.1.0"

// Options configures a Client. Zero fields take their defaults.
type Options struct {
	BaseURL   string
	Timeout   time.Duration // used only when Transport is nil
	Rate      float64       // requests per second; <= 0 disables limiting
	Retry     retry.Policy
	Decode    *decode.Options // nil means decode.DefaultOptions()
	Metrics   *metrics.Collector
	Transport Transport
	UserAgent string
}

// Client is the BOJ API client. It is safe for concurrent use.
type Client struct {
	baseURL   string
	userAgent string
	transport Transport
	limiter   *rate.Limiter
	policy    retry.Policy
	decoder   *decode.Decoder
	metrics   *metrics.Collector
}

// NewClient creates a Client from opts.
func NewClient(opts Options) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = "boj-client/" + Version
	}
	tr := opts.Transport
	if tr == nil {
		tr = NewHTTPTransport(opts.Timeout)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.Rate > 0 {
		burst := int(opts.Rate)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.Rate), burst)
	}

	decOpts := decode.DefaultOptions()
	if opts.Decode != nil {
		decOpts = *opts.Decode
	}
	userHook := decOpts.OnAttempt
	mc := opts.Metrics
	decOpts.OnAttempt = func(f query.Format, err error) {
		mc.RecordDecode(string(f), err)
		if err != nil {
			slog.Debug("decode attempt failed", "format", f, "err", err)
		}
		if userHook != nil {
			userHook(f, err)
		}
	}

	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: ua,
		transport: tr,
		limiter:   limiter,
		policy:    opts.Retry,
		decoder:   decode.New(decOpts),
		metrics:   mc,
	}
}

// BaseURL returns the API host the client targets.
func (c *Client) BaseURL() string { return c.baseURL }

// ─── Endpoints ────────────────────────────────────────────────────────────────

// GetDataCode calls getDataCode.
func (c *Client) GetDataCode(ctx context.Context, q query.CodeQuery) (*model.CodeResponse, error) {
	resp, err := execute(ctx, c, q.Endpoint(), q.Params(), func(body []byte, ct string) (*model.CodeResponse, model.ResponseMeta, error) {
		r, err := c.decoder.DecodeCode(body, ct, q.CSVEncoding())
		if err != nil {
			return nil, model.ResponseMeta{}, err
		}
		return r, r.Meta, nil
	})
	if err != nil {
		return nil, fmt.Errorf("getDataCode %s: %w", q.DB(), err)
	}
	c.metrics.RecordSeries(q.Endpoint(), len(resp.Series))
	return resp, nil
}

// GetDataLayer calls getDataLayer.
func (c *Client) GetDataLayer(ctx context.Context, q query.LayerQuery) (*model.LayerResponse, error) {
	resp, err := execute(ctx, c, q.Endpoint(), q.Params(), func(body []byte, ct string) (*model.LayerResponse, model.ResponseMeta, error) {
		r, err := c.decoder.DecodeLayer(body, ct, q.CSVEncoding())
		if err != nil {
			return nil, model.ResponseMeta{}, err
		}
		return r, r.Meta, nil
	})
	if err != nil {
		return nil, fmt.Errorf("getDataLayer %s: %w", q.DB(), err)
	}
	c.metrics.RecordSeries(q.Endpoint(), len(resp.Series))
	return resp, nil
}

// GetMetadata calls getMetadata.
func (c *Client) GetMetadata(ctx context.Context, q query.MetadataQuery) (*model.MetadataResponse, error) {
	resp, err := execute(ctx, c, q.Endpoint(), q.Params(), func(body []byte, ct string) (*model.MetadataResponse, model.ResponseMeta, error) {
		r, err := c.decoder.DecodeMetadata(body, ct, q.CSVEncoding())
		if err != nil {
			return nil, model.ResponseMeta{}, err
		}
		return r, r.Meta, nil
	})
	if err != nil {
		return nil, fmt.Errorf("getMetadata %s: %w", q.DB(), err)
	}
	return resp, nil
}

// ─── Paging ───────────────────────────────────────────────────────────────────

// AllCodePages calls getDataCode repeatedly, following NextPosition, and
// returns the first page's envelope with every page's series appended.
// maxPages <= 0 means no limit. The second return value is the number of
// pages fetched.
func (c *Client) AllCodePages(ctx context.Context, q query.CodeQuery, maxPages int) (*model.CodeResponse, int, error) {
	first, err := c.GetDataCode(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	pages := 1
	next := first.NextPosition
	for next != nil && (maxPages <= 0 || pages < maxPages) {
		if err := checkAdvance(q.StartPosition(), *next); err != nil {
			return nil, pages, err
		}
		q, err = q.WithStartPosition(*next)
		if err != nil {
			return nil, pages, err
		}
		slog.Debug("fetching next page", "endpoint", q.Endpoint(), "start_position", *next)
		page, err := c.GetDataCode(ctx, q)
		if err != nil {
			return nil, pages, err
		}
		pages++
		first.Series = append(first.Series, page.Series...)
		next = page.NextPosition
	}
	first.NextPosition = next
	return first, pages, nil
}

// AllLayerPages is AllCodePages for getDataLayer.
func (c *Client) AllLayerPages(ctx context.Context, q query.LayerQuery, maxPages int) (*model.LayerResponse, int, error) {
	first, err := c.GetDataLayer(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	pages := 1
	next := first.NextPosition
	for next != nil && (maxPages <= 0 || pages < maxPages) {
		if err := checkAdvance(q.StartPosition(), *next); err != nil {
			return nil, pages, err
		}
		q, err = q.WithStartPosition(*next)
		if err != nil {
			return nil, pages, err
		}
		slog.Debug("fetching next page", "endpoint", q.Endpoint(), "start_position", *next)
		page, err := c.GetDataLayer(ctx, q)
		if err != nil {
			return nil, pages, err
		}
		pages++
		first.Series = append(first.Series, page.Series...)
		next = page.NextPosition
	}
	first.NextPosition = next
	return first, pages, nil
}

// checkAdvance guards against a server echoing a position that would loop.
func checkAdvance(current, next uint32) error {
	if next <= current {
		return bojerr.Decode("NEXTPOSITION %d does not advance past %d", next, current)
	}
	return nil
}

// ─── Internal helpers ─────────────────────────────────────────────────────────

type decodeFunc[T any] func(body []byte, contentType string) (T, model.ResponseMeta, error)

// execute runs one endpoint call under the retry policy. Each attempt waits
// on the limiter, sends the request, decodes the body, and turns a non-200
// STATUS into an *bojerr.APIError.
func execute[T any](ctx context.Context, c *Client, endpoint string, params []query.Param, dec decodeFunc[T]) (T, error) {
	reqURL := query.BuildURL(c.baseURL, endpoint, params)
	slog.Debug("boj request", "url", reqURL)

	policy := c.policy
	userHook := policy.OnRetry
	policy.OnRetry = func(attempt uint32, delay time.Duration, err error) {
		slog.Debug("retrying after backoff", "endpoint", endpoint, "attempt", attempt, "backoff", delay, "err", err)
		c.metrics.RecordRetry(endpoint, attempt)
		if userHook != nil {
			userHook(attempt, delay, err)
		}
	}

	v, err := retry.DoValue(ctx, policy, func(ctx context.Context) (T, error) {
		var zero T
		body, contentType, err := c.send(ctx, endpoint, reqURL)
		if err != nil {
			return zero, err
		}
		v, meta, err := dec(body, contentType)
		if err != nil {
			return zero, err
		}
		if !meta.OK() {
			return zero, bojerr.API(meta.Status, meta.MessageID, meta.Message)
		}
		return v, nil
	})
	if err != nil {
		c.metrics.RecordError(string(bojerr.KindOf(err)), endpoint)
	}
	return v, err
}

// send performs one rate-limited round trip and returns the normalized body
// and declared content type.
func (c *Client) send(ctx context.Context, endpoint, reqURL string) ([]byte, string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", bojerr.Transport(err, "rate limiter: %v", err)
	}

	start := time.Now()
	resp, err := c.transport.Do(ctx, Request{
		Method: "GET",
		URL:    reqURL,
		Headers: map[string]string{
			"Accept-Encoding": "gzip",
			"User-Agent":      c.userAgent,
		},
	})
	if err != nil {
		c.metrics.RecordRequest(endpoint, 0, time.Since(start))
		if bojerr.KindOf(err) == bojerr.KindNone {
			err = bojerr.Transport(err, "%v", err)
		}
		return nil, "", err
	}
	c.metrics.RecordRequest(endpoint, resp.StatusCode, time.Since(start))
	slog.Debug("boj response", "status", resp.StatusCode, "bytes", len(resp.Body))

	body, err := normalizeBody(resp)
	if err != nil {
		return nil, "", err
	}
	return body, resp.Header("content-type"), nil
}
