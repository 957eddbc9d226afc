package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/tinthat/internal/server"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the verification HTTP API",
	Long: `Serve exposes the verification pipeline over HTTP:

  POST /api/v1/verify               {"title": "...", "content": "..."}
  POST /admin/claims/{id}/approve   mark a claim REAL (bearer admin token)
  POST /admin/reload                re-read nli config and swap the model (bearer admin token)
  GET  /healthz
  GET  /metrics                     Prometheus metrics

Example:
  TINTHAT_SERVER_ADMIN_TOKEN=secret tinthat serve --addr :8000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default server.address)")
	_ = viper.BindPFlag("server.address", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.New(a.cfg.Server, server.Deps{
		Verifier:      a.pipeline,
		Store:         a.store,
		Verifiers:     a.verifiers,
		BuildVerifier: a.reloadVerifier,
		Metrics:       a.metrics,
		Logger:        a.logger,
	})
	return srv.ListenAndServe(ctx)
}
