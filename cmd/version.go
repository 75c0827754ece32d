package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/explorrrr/boj-client/internal/boj"
	"github.com/explorrrr/boj-client/internal/catalog"
	"github.com/spf13/cobra"
)

// Version is the release string. Release builds overwrite it via:
//
//	go build -ldflags "-X github.com/explorrrr/boj-client/cmd.Version=v0.2.0"
var Version = "v0.1.0"

// BuildTime is optionally injected alongside Version:
//
//	-ldflags "-X github.com/explorrrr/boj-client/cmd.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var BuildTime = ""

// versionInfo is the structured payload for --format json output.
type versionInfo struct {
	Version   string `json:"version"`
	UserAgent string `json:"user_agent"`
	Catalog   string `json:"catalog"`
	GoVersion string `json:"go_version"`
	GOOS      string `json:"goos"`
	GOARCH    string `json:"goarch"`
	BuildTime string `json:"build_time,omitempty"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the boj version and build information",
	Long: `Print the boj version string and build metadata.

Default output is plain text. Use --format json for structured output.

Examples:
  boj version
  boj version --format json | jq .version`,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := versionInfo{
			Version:   Version,
			UserAgent: "boj-client/" + boj.Version,
			Catalog:   catalog.SourceDocument + " (" + catalog.SourceDate + ")",
			GoVersion: runtime.Version(),
			GOOS:      runtime.GOOS,
			GOARCH:    runtime.GOARCH,
			BuildTime: BuildTime,
		}
		out := cmd.OutOrStdout()

		switch globalFlags.Format {
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(info)

		case "jsonl":
			b, err := json.Marshal(info)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s\n", b)
			return nil

		default:
			fmt.Fprintf(out, "boj      %s\n", info.Version)
			fmt.Fprintf(out, "agent    %s\n", info.UserAgent)
			fmt.Fprintf(out, "catalog  %s\n", info.Catalog)
			fmt.Fprintf(out, "go       %s\n", info.GoVersion)
			fmt.Fprintf(out, "os       %s/%s\n", info.GOOS, info.GOARCH)
			if info.BuildTime != "" {
				fmt.Fprintf(out, "built    %s\n", info.BuildTime)
			}
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
