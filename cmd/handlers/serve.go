package handlers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"newsbrief/internal/config"
	"newsbrief/internal/logger"
	"newsbrief/internal/server"
	"newsbrief/internal/services"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

// NewServeCmd creates the serve command for starting the HTTP server
func NewServeCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve rendered briefs over HTTP",
		Long: `Start the brief API.

Endpoints:
  GET  /health                   liveness check
  GET  /briefs                   list rendered briefs, newest first (?topic=)
  GET  /briefs/{day}             one brief (?topic=, ?format=json|txt|md|html)
  POST /briefs/ingestion/run     build a brief now (Authorization: Bearer $ADMIN_API_KEY)

Examples:
  newsbrief serve
  newsbrief serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveRun(cmd.Context(), host, port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (default from config: 8080)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP server host (default from config: 127.0.0.1)")
	return cmd
}

func serveRun(ctx context.Context, host string, port int) error {
	cfg := config.Get()
	log := logger.For("server")

	serverCfg := server.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  config.Duration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.Duration(cfg.Server.WriteTimeout, 3*time.Minute),
		OutputDir:    cfg.Output.Directory,
		AdminAPIKey:  cfg.Server.AdminAPIKey,
		CORSOrigins:  cfg.Server.CORSOrigins,
	}
	if port != 0 {
		serverCfg.Port = port
	}
	if host != "" {
		serverCfg.Host = host
	}
	if serverCfg.AdminAPIKey == "" {
		log.Warn().Msg("ADMIN_API_KEY not set, the brief trigger endpoint is disabled")
	}

	svc := services.NewBriefService(cfg, services.WithLogger(logger.For("brief")))
	srv := server.New(serverCfg, svc, log)

	serverErrors := make(chan error, 1)
	go func() {
		log.Info().Msgf("Server listening on http://%s:%d", serverCfg.Host, serverCfg.Port)
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case sig := <-shutdown:
		log.Info().Str("signal", sig.String()).Msg("Server shutdown initiated")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
