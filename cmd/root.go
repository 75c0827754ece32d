// Package cmd implements the boj CLI command tree.
// This file defines the root command and registers all global persistent flags.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/explorrrr/boj-client/internal/app"
	"github.com/explorrrr/boj-client/internal/boj"
	"github.com/explorrrr/boj-client/internal/config"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// globalFlags holds the parsed values of all persistent (global) flags.
// Commands read from this struct via the deps they receive.
var globalFlags struct {
	BaseURL     string
	Format      string
	Out         string
	Lang        string
	Timeout     string
	Concurrency int
	Rate        float64
	Quiet       bool
	Verbose     bool
	Debug       bool
	NoColor     bool
}

// rootCmd is the base command. Running `boj` with no subcommand
// prints help.
var rootCmd = &cobra.Command{
	Use:   "boj",
	Short: "boj: Bank of Japan time-series statistics CLI",
	Long: `boj is a command-line client for the Bank of Japan time-series
statistics search API (stat-search.boj.or.jp).

It fetches series by code, walks the layer hierarchy of a database, and
lists series metadata. Responses are decoded from JSON or CSV into one
canonical shape regardless of what the server sent.

Quick start:
  boj catalog dbs                          # list database codes
  boj metadata FM08                        # series available in FM08
  boj code CO TK99F1000601GCQ01000         # fetch one series
  boj layer MD10 Q 1,2 --start 2020        # walk a layer`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if globalFlags.NoColor {
			color.NoColor = true
		}
		if globalFlags.Debug {
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
		}
	},
}

// Execute is the entry point called by main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// buildDeps resolves config and constructs the dependency container.
// Called at the start of each command's RunE.
func buildDeps() (*app.Deps, error) {
	cfg, err := resolveConfig()
	if err != nil {
		return nil, err
	}
	return app.New(cfg), nil
}

// resolveConfig loads config and applies CLI flag overrides.
func resolveConfig() (*config.Config, error) {
	cfg, err := config.Load(globalFlags.BaseURL)
	if err != nil {
		return nil, err
	}

	cfg.Quiet = globalFlags.Quiet
	cfg.Verbose = globalFlags.Verbose
	cfg.Debug = globalFlags.Debug

	if globalFlags.Format != "" {
		cfg.Format = globalFlags.Format
	}
	if globalFlags.Lang != "" {
		cfg.Lang = globalFlags.Lang
	}
	if globalFlags.Timeout != "" {
		d, err := time.ParseDuration(globalFlags.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid --timeout %q: %w", globalFlags.Timeout, err)
		}
		cfg.Timeout = d
	}
	if globalFlags.Concurrency > 0 {
		cfg.Concurrency = globalFlags.Concurrency
	}
	if globalFlags.Rate > 0 {
		cfg.Rate = globalFlags.Rate
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func init() {
	boj.Version = Version

	pf := rootCmd.PersistentFlags()

	pf.StringVar(&globalFlags.BaseURL, "base-url", "",
		"API host (overrides env BOJ_BASE_URL and config.json)")
	pf.StringVar(&globalFlags.Format, "format", "",
		"output format: table|json|jsonl|csv|tsv|md (default: table)")
	pf.StringVar(&globalFlags.Out, "out", "",
		"write output to file instead of stdout")
	pf.StringVar(&globalFlags.Lang, "lang", "",
		"response language: jp|en (default: jp)")
	pf.StringVar(&globalFlags.Timeout, "timeout", "",
		"HTTP request timeout (e.g. 30s, 2m)")
	pf.IntVar(&globalFlags.Concurrency, "concurrency", 0,
		"max parallel requests for batch operations (default: 4)")
	pf.Float64Var(&globalFlags.Rate, "rate", 0,
		"max API requests per second (default: 2.0)")
	pf.BoolVar(&globalFlags.Quiet, "quiet", false,
		"suppress all non-error output")
	pf.BoolVar(&globalFlags.Verbose, "verbose", false,
		"show paging/timing stats after output")
	pf.BoolVar(&globalFlags.Debug, "debug", false,
		"log HTTP requests, retries and decode attempts to stderr")
	pf.BoolVar(&globalFlags.NoColor, "no-color", false,
		"disable colored output")
}
