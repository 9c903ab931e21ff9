package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/verity/internal/model"
	"github.com/ppiankov/verity/internal/server"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the verification API over HTTP",
	Long: `Serve exposes the pipeline as a JSON API:
  POST /v1/preliminary   calculation fast path
  POST /v1/previous      reuse of a previous verification
  POST /v1/deep          tool verification
  POST /v1/verify        the full flow
  GET  /healthz
  GET  /metrics          when metrics are enabled

Example:
  verity serve
  verity serve --addr :9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", model.DefaultConfig().Server.Addr, "listen address")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.Default()
	st, err := buildStack(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	opts := server.Options{
		Pipeline: st.pipeline,
		Graph:    st.graph,
		Logger:   logger,
		Version:  Version,
	}
	if st.registry != nil {
		opts.Gatherer = st.registry
	}

	fmt.Fprintf(os.Stderr, "✓ Memory backend: %s\n", cfg.Memory.Backend)
	fmt.Fprintf(os.Stderr, "✓ Tools: %s\n", strings.Join(st.tools, ", "))
	fmt.Fprintf(os.Stderr, "✓ Listening on %s\n", cfg.Server.Addr)

	return server.New(opts).Run(ctx, cfg.Server.Addr)
}
