// Package server exposes the BOJ client as a small HTTP gateway. Each route
// parses its query string with the same validation the client applies, calls
// the upstream API and answers with the decoded envelope as JSON, or as
// MessagePack when the caller asks for it.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/explorrrr/boj-client/internal/bojerr"
	"github.com/explorrrr/boj-client/internal/metrics"
	"github.com/explorrrr/boj-client/internal/model"
	"github.com/explorrrr/boj-client/internal/query"
	"github.com/gorilla/mux"
)

// Route paths served by the gateway.
const (
	RouteCode     = "/v1/code"
	RouteLayer    = "/v1/layer"
	RouteMetadata = "/v1/metadata"
	RouteHealth   = "/healthz"
	RouteMetrics  = "/metrics"
)

// Fetcher is the subset of *boj.Client the gateway needs.
type Fetcher interface {
	GetDataCode(ctx context.Context, q query.CodeQuery) (*model.CodeResponse, error)
	GetDataLayer(ctx context.Context, q query.LayerQuery) (*model.LayerResponse, error)
	GetMetadata(ctx context.Context, q query.MetadataQuery) (*model.MetadataResponse, error)
}

// Options configures a Server.
type Options struct {
	// Lang is applied when a request does not name one.
	Lang query.Language
	// Version is reported by the health route.
	Version string
	Metrics *metrics.Collector
}

// Server routes gateway requests to a Fetcher.
type Server struct {
	fetcher Fetcher
	opts    Options
	router  *mux.Router
}

// New builds a Server and its routes.
func New(f Fetcher, opts Options) *Server {
	s := &Server{fetcher: f, opts: opts, router: mux.NewRouter()}
	s.router.StrictSlash(true)
	s.route(RouteCode, s.code)
	s.route(RouteLayer, s.layer)
	s.route(RouteMetadata, s.metadata)
	s.route(RouteHealth, s.health)
	s.router.Path(RouteMetrics).Methods(http.MethodGet).Handler(opts.Metrics.Handler())
	return s
}

// Handler returns the gateway's root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("gateway listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		slog.Info("gateway shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// route registers a GET handler that records its status code.
func (s *Server) route(path string, h http.HandlerFunc) {
	s.router.Path(path).Methods(http.MethodGet).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		h(rec, r)
		s.opts.Metrics.RecordGateway(path, rec.code)
	})
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

func (s *Server) code(w http.ResponseWriter, r *http.Request) {
	q, err := query.ParseCodeParams(query.FromValues(r.URL.Query()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if q.Lang() == "" && s.opts.Lang != "" {
		q = q.WithLang(s.opts.Lang)
	}
	resp, err := s.fetcher.GetDataCode(r.Context(), q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, resp)
}

func (s *Server) layer(w http.ResponseWriter, r *http.Request) {
	q, err := query.ParseLayerParams(query.FromValues(r.URL.Query()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if q.Lang() == "" && s.opts.Lang != "" {
		q = q.WithLang(s.opts.Lang)
	}
	resp, err := s.fetcher.GetDataLayer(r.Context(), q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, resp)
}

func (s *Server) metadata(w http.ResponseWriter, r *http.Request) {
	q, err := query.ParseMetadataParams(query.FromValues(r.URL.Query()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if q.Lang() == "" && s.opts.Lang != "" {
		q = q.WithLang(s.opts.Lang)
	}
	resp, err := s.fetcher.GetMetadata(r.Context(), q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, resp)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.opts.Version,
	})
}

// ─── Responses ────────────────────────────────────────────────────────────────

// ErrorBody is the payload written for failed requests.
type ErrorBody struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Status    uint16 `json:"status,omitempty"`
	MessageID string `json:"message_id,omitempty"`
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := StatusFor(err)
	body := ErrorBody{Kind: string(bojerr.KindOf(err)), Message: err.Error()}
	if body.Kind == "" {
		body.Kind = "internal"
	}
	var ae *bojerr.APIError
	if errors.As(err, &ae) {
		body.Status = ae.Status
		body.MessageID = ae.MessageID
	}
	slog.Warn("gateway request failed", "path", r.URL.Path, "status", code, "err", err)
	s.respond(w, r, code, body)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, code int, v any) {
	if wantsMsgpack(r) {
		w.Header().Set("Content-Type", ContentTypeMsgpack)
		w.WriteHeader(code)
		if err := writeMsgpack(w, v); err != nil {
			slog.Error("writing msgpack response", "err", err)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writing json response", "err", err)
	}
}

// StatusFor maps an error to the HTTP status the gateway answers with.
// Validation failures are the caller's fault; upstream API errors keep the
// status the API reported; decode failures are a bad gateway and transport
// failures a gateway timeout.
func StatusFor(err error) int {
	switch bojerr.KindOf(err) {
	case bojerr.KindValidation:
		return http.StatusBadRequest
	case bojerr.KindAPI:
		var ae *bojerr.APIError
		errors.As(err, &ae)
		if ae.Status >= 400 && ae.Status < 600 {
			return int(ae.Status)
		}
		return http.StatusBadGateway
	case bojerr.KindDecode:
		return http.StatusBadGateway
	case bojerr.KindTransport:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}
