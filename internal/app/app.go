// Package app wires together configuration, the API client, and other
// dependencies into a single Deps struct that commands receive at runtime.
package app

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/explorrrr/boj-client/internal/boj"
	"github.com/explorrrr/boj-client/internal/config"
	"github.com/explorrrr/boj-client/internal/metrics"
	"github.com/explorrrr/boj-client/internal/retry"
	"github.com/explorrrr/boj-client/internal/store"
)

// Deps holds all runtime dependencies injected into command Run functions.
// Store is opened lazily by RequireStore; most commands never touch it.
type Deps struct {
	Config  *config.Config
	Client  *boj.Client
	Metrics *metrics.Collector
	Store   *store.Store
}

// New builds a Deps from resolved config.
func New(cfg *config.Config) *Deps {
	return NewWithTransport(cfg, nil)
}

// NewWithTransport is New with an explicit transport; nil uses HTTP.
func NewWithTransport(cfg *config.Config, tr boj.Transport) *Deps {
	m := metrics.New()
	client := boj.NewClient(boj.Options{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
		Rate:    cfg.Rate,
		Retry: retry.Policy{
			MaxRetries:     cfg.RetryMax,
			InitialBackoff: cfg.RetryBackoff,
			OnRetry: func(attempt uint32, delay time.Duration, err error) {
				if cfg.Verbose && !cfg.Quiet {
					fmt.Fprintf(os.Stderr, "retry %d in %s: %v\n", attempt, delay, err)
				}
			},
		},
		Metrics:   m,
		Transport: tr,
	})
	return &Deps{
		Config:  cfg,
		Client:  client,
		Metrics: m,
	}
}

// RequireStore opens the bbolt archive at Config.DBPath into d.Store.
// It is a no-op when already open.
func (d *Deps) RequireStore() error {
	if d.Store != nil {
		return nil
	}
	s, err := store.Open(d.Config.DBPath)
	if err != nil {
		return fmt.Errorf("opening store %s: %w", d.Config.DBPath, err)
	}
	slog.Debug("store opened", "path", d.Config.DBPath)
	d.Store = s
	return nil
}

// Close releases the store if it was opened.
func (d *Deps) Close() error {
	if d.Store == nil {
		return nil
	}
	err := d.Store.Close()
	d.Store = nil
	return err
}
