package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/redline-tools/redline/internal/server"
)

// serveCmd starts the comparison HTTP server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for the comparison API",
	Long: `Start an HTTP server that provides REST API endpoints for document
comparison.

The server provides the following endpoints:
  POST /api/upload/ref          - Upload a reference document
  POST /api/upload/final        - Upload a final document
  POST /api/compare/images      - Run the image region comparison
  POST /api/compare/annotations - Run the annotation verification
  POST /api/compare/words       - Run the word diff
  GET  /api/download            - Download an overlay page as PNG
  GET  /ws/progress             - WebSocket progress updates
  GET  /health                  - Health check endpoint
  GET  /metrics                 - Prometheus metrics

Examples:
  redline serve
  redline serve --port 8080
  redline serve --host 0.0.0.0 --port 3000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		srvCfg := cfg.Server
		if cmd.Flags().Changed("host") {
			srvCfg.Host, _ = cmd.Flags().GetString("host")
		}
		if cmd.Flags().Changed("port") {
			srvCfg.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("cors-origin") {
			srvCfg.CORSOrigin, _ = cmd.Flags().GetString("cors-origin")
		}
		if cmd.Flags().Changed("max-upload-size") {
			srvCfg.MaxUploadMB, _ = cmd.Flags().GetInt("max-upload-size")
		}
		if cmd.Flags().Changed("timeout") {
			srvCfg.TimeoutSec, _ = cmd.Flags().GetInt("timeout")
		}
		if cmd.Flags().Changed("shutdown-timeout") {
			srvCfg.ShutdownTimeout, _ = cmd.Flags().GetInt("shutdown-timeout")
		}
		if cmd.Flags().Changed("data-dir") {
			srvCfg.DataDir, _ = cmd.Flags().GetString("data-dir")
		}
		if cmd.Flags().Changed("session-ttl") {
			srvCfg.SessionTTLMin, _ = cmd.Flags().GetInt("session-ttl")
		}
		if cmd.Flags().Changed("rate-limit") {
			srvCfg.RateLimitPerMin, _ = cmd.Flags().GetInt("rate-limit")
		}

		if srvCfg.Port < 1 || srvCfg.Port > 65535 {
			return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", srvCfg.Port)
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		srv, err := server.NewServer(server.Config{
			Server:   srvCfg,
			Engine:   cfg.Engine,
			Render:   cfg.Render,
			Verifier: cfg.Verifier,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize server: %w", err)
		}
		defer func() { _ = srv.Close() }()

		mux := http.NewServeMux()
		srv.SetupRoutes(mux)

		httpServer := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", srvCfg.Host, srvCfg.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       time.Duration(srvCfg.TimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(srvCfg.TimeoutSec) * time.Second,
		}

		go func() {
			slog.Info("Starting comparison server", "host", srvCfg.Host, "port", srvCfg.Port)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("Server error", "error", err)
				cancel()
			}
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

		select {
		case sig := <-sigChan:
			slog.Info("Received shutdown signal", "signal", sig.String())
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
			time.Duration(srvCfg.ShutdownTimeout)*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("Graceful shutdown failed", "error", err)
			return err
		}
		slog.Info("Server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().String("host", "localhost", "host to bind the server to")
	serveCmd.Flags().IntP("port", "p", 8080, "port to bind the server to")
	serveCmd.Flags().String("cors-origin", "*", "allowed CORS origin")
	serveCmd.Flags().Int("max-upload-size", 50, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", 120, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", 10, "graceful shutdown timeout in seconds")
	serveCmd.Flags().String("data-dir", "", "directory for uploaded session files (default: temp dir)")
	serveCmd.Flags().Int("session-ttl", 60, "idle session expiry in minutes")
	serveCmd.Flags().Int("rate-limit", 60, "allowed requests per client per minute (0 disables)")
	rootCmd.AddCommand(serveCmd)
}
