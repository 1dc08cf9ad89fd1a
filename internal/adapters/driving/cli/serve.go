package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/samjmc/dashchat/internal/adapters/driving/httpapi"
	"github.com/samjmc/dashchat/internal/kb"
	"github.com/samjmc/dashchat/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat widget HTTP server",
	Long: `Starts the HTTP server the chat widget talks to.

The knowledge base is seeded with the built-in chart literacy corpus on
first run. When a knowledge base directory is configured, it is watched
for new and modified documents.`,
	RunE: runServe,
}

var (
	serveHost string
	servePort int
)

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen host (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	defer closeServices()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if sqliteStore != nil {
		logger.Info("Database: %s", sqliteStore.Path())
	}

	if err := kb.Seed(ctx, documentService); err != nil {
		logger.Warn("Knowledge base seeding failed: %v", err)
	}

	if dir := configStore.GetString("kb.dir"); dir != "" {
		watcher, err := kb.NewWatcher(dir, documentService, 0)
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		defer watcher.Close()
	}

	host := serveHost
	if host == "" {
		host = configStore.GetString("server.host")
	}
	port := servePort
	if port == 0 {
		port = configStore.GetInt("server.port")
	}

	server, err := httpapi.NewServer(chatService, documentService, contextDetector, contextCache, httpapi.Config{
		Host:           host,
		Port:           port,
		AllowedOrigins: configStore.GetStringSlice("server.allowed_origins"),
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("Received %s, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
