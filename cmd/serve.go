package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/explorrrr/boj-client/internal/server"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a local HTTP gateway in front of the API",
	Long: `Serve the three API endpoints over HTTP with the CLI's validation, retry
and rate limiting applied. Responses are the decoded canonical JSON, or
MessagePack when the request sends Accept: application/x-msgpack.

Routes:
  GET /v1/code?db=CO&code=TK99F1000601GCQ01000
  GET /v1/layer?db=MD10&frequency=Q&layer=1,2
  GET /v1/metadata?db=FM08
  GET /healthz
  GET /metrics             Prometheus metrics

Query parameter names follow the API (startDate, endDate, startPosition, lang).
Requests without lang use --lang or the configured default.`,
	Example: `  boj serve
  boj serve --addr 127.0.0.1:9090 --lang en`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		lang, err := resolveLang(deps.Config.Lang)
		if err != nil {
			return err
		}
		addr := serveAddr
		if addr == "" {
			addr = deps.Config.BindAddr
		}
		if !deps.Config.Debug && !deps.Config.Quiet {
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
		}

		srv := server.New(deps.Client, server.Options{
			Lang:    lang,
			Version: Version,
			Metrics: deps.Metrics,
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := srv.ListenAndServe(ctx, addr); err != nil {
			return fmt.Errorf("gateway on %s: %w", addr, err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from bind_addr, :8080)")
}

