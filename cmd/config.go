package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/explorrrr/boj-client/internal/config"
	"github.com/explorrrr/boj-client/internal/model"
	"github.com/explorrrr/boj-client/internal/query"
	"github.com/explorrrr/boj-client/internal/render"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage boj configuration",
	Long:  `Read and write boj configuration stored in config.json.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a template config.json in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigFile
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config.json already exists at %s (delete it first to re-initialise)", path)
		}
		if err := config.WriteFile(path, config.Template()); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		printOK(out, "Created %s", path)
		if !globalFlags.Quiet {
			fmt.Fprintln(out, "  The API needs no key; edit lang, rate or db_path as needed.")
		}
		return nil
	},
}

// configView is the JSON shape of `config get`.
type configView struct {
	BaseURL      string  `json:"base_url"`
	Format       string  `json:"default_format"`
	Lang         string  `json:"lang"`
	Timeout      string  `json:"timeout"`
	RetryMax     uint32  `json:"retry_max"`
	RetryBackoff string  `json:"retry_backoff"`
	Rate         float64 `json:"rate"`
	Concurrency  int     `json:"concurrency"`
	DBPath       string  `json:"db_path"`
	BindAddr     string  `json:"bind_addr"`
	ConfigFile   string  `json:"config_file"`
}

func (v configView) rows() [][]string {
	return [][]string{
		{"base_url", v.BaseURL},
		{"default_format", v.Format},
		{"lang", v.Lang},
		{"timeout", v.Timeout},
		{"retry_max", strconv.FormatUint(uint64(v.RetryMax), 10)},
		{"retry_backoff", v.RetryBackoff},
		{"rate", fmt.Sprintf("%.1f req/s", v.Rate)},
		{"concurrency", strconv.Itoa(v.Concurrency)},
		{"db_path", v.DBPath},
		{"bind_addr", v.BindAddr},
		{"config_file", v.ConfigFile},
	}
}

var configGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(globalFlags.BaseURL)
		if err != nil {
			return err
		}
		src := "(not found)"
		if cfg.ConfigPath != "" {
			src = cfg.ConfigPath
		}
		view := configView{
			BaseURL:      cfg.BaseURL,
			Format:       cfg.Format,
			Lang:         cfg.Lang,
			Timeout:      cfg.Timeout.String(),
			RetryMax:     cfg.RetryMax,
			RetryBackoff: cfg.RetryBackoff.String(),
			Rate:         cfg.Rate,
			Concurrency:  cfg.Concurrency,
			DBPath:       cfg.DBPath,
			BindAddr:     cfg.BindAddr,
			ConfigFile:   src,
		}

		switch format := resolveFormat(cfg.Format); format {
		case render.FormatJSON:
			w, closeOut, err := outputWriter(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer closeOut()
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(view)
		case render.FormatTable:
			printKVTable(cmd.OutOrStdout(), view.rows())
			return nil
		default:
			t := &model.Table{Headers: []string{"key", "value"}, Rows: view.rows()}
			result := &model.Result{Kind: model.KindTable, GeneratedAt: time.Now(), Command: "config get", Data: t}
			return render.RenderTo(globalFlags.Out, result, format)
		}
	},
}

// configKeys lists the keys `config set` accepts.
var configKeys = []string{
	"base_url", "default_format", "lang", "timeout", "retry_max",
	"retry_backoff", "rate", "concurrency", "db_path", "bind_addr",
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value in config.json",
	Example: `  boj config set lang en
  boj config set rate 1
  boj config set retry_backoff 500ms`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.ToLower(args[0])

		f, path, err := loadConfigFile()
		if err != nil {
			if !os.IsNotExist(err) {
				return err
			}
			path = config.DefaultConfigFile
			tmpl := config.Template()
			f = &tmpl
		}
		if err := setConfigValue(f, key, args[1]); err != nil {
			return err
		}
		if err := config.WriteFile(path, *f); err != nil {
			return err
		}
		printOK(cmd.OutOrStdout(), "Set %s in %s", key, path)
		return nil
	},
}

// setConfigValue validates val and stores it under key in f.
func setConfigValue(f *config.File, key, val string) error {
	switch key {
	case "base_url":
		if !strings.HasPrefix(val, "http://") && !strings.HasPrefix(val, "https://") {
			return fmt.Errorf("base_url must be an http(s) URL")
		}
		f.BaseURL = val
	case "default_format", "format":
		if !render.IsFormat(val) {
			return fmt.Errorf("default_format must be one of %s", strings.Join(render.Formats, ", "))
		}
		f.DefaultFormat = val
	case "lang":
		if _, err := query.ParseLanguage(val); err != nil {
			return err
		}
		f.Lang = strings.ToLower(val)
	case "timeout", "retry_backoff":
		if _, err := time.ParseDuration(val); err != nil {
			return fmt.Errorf("%s must be a duration such as 10s: %w", key, err)
		}
		if key == "timeout" {
			f.Timeout = val
		} else {
			f.RetryBackoff = val
		}
	case "retry_max":
		n, err := strconv.ParseUint(val, 10, 32)
		if err != nil {
			return fmt.Errorf("retry_max must be a non-negative integer")
		}
		m := uint32(n)
		f.RetryMax = &m
	case "concurrency":
		n, err := strconv.Atoi(val)
		if err != nil || n < 1 {
			return fmt.Errorf("concurrency must be a positive integer")
		}
		f.Concurrency = n
	case "rate":
		r, err := strconv.ParseFloat(val, 64)
		if err != nil || r < 0 {
			return fmt.Errorf("rate must be a non-negative number")
		}
		f.Rate = r
	case "db_path":
		f.DBPath = val
	case "bind_addr":
		f.BindAddr = val
	default:
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s", key, strings.Join(configKeys, ", "))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
}

// loadConfigFile reads config.json from cwd; used by configSetCmd.
func loadConfigFile() (*config.File, string, error) {
	path := config.DefaultConfigFile
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	var f config.File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, "", fmt.Errorf("parsing %s: %w", path, err)
	}
	return &f, path, nil
}
