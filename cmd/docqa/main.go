// Docqa is a multi-user document question answering server.
//
// Users upload documents through the web UI; the text is chunked, embedded,
// and stored in a shared vector index tagged with the uploader's identity.
// Questions are answered from each user's own documents only.
//
// Configuration comes from an optional YAML file plus DOCQA_* environment
// variables. See internal/config for the full surface.
//
// Usage:
//
//	# Start with defaults
//	docqa serve
//
//	# Start with a config file
//	docqa serve --config /etc/docqa/config.yaml
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqa/internal/auth"
	"github.com/fyrsmithlabs/docqa/internal/config"
	"github.com/fyrsmithlabs/docqa/internal/document"
	"github.com/fyrsmithlabs/docqa/internal/embeddings"
	"github.com/fyrsmithlabs/docqa/internal/index"
	"github.com/fyrsmithlabs/docqa/internal/logging"
	"github.com/fyrsmithlabs/docqa/internal/qa"
	"github.com/fyrsmithlabs/docqa/internal/vectorstore"
	"github.com/fyrsmithlabs/docqa/internal/web"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "docqa",
		Short:         "Multi-user document question answering server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("docqa %s (commit %s, built %s)\n", version, gitCommit, buildDate)
		},
	}
}

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	return cmd
}

func serve(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client, err := index.NewQdrantClient(&index.ClientConfig{
		Host:           cfg.Index.Host,
		Port:           cfg.Index.Port,
		UseTLS:         cfg.Index.UseTLS,
		APIKey:         cfg.Index.APIKey.Value(),
		Dimension:      cfg.Index.Dimension,
		RequestTimeout: cfg.Index.RequestTimeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("connecting to vector index: %w", err)
	}
	defer client.Close()

	embedder, err := embeddings.NewService(cfg.Embedding)
	if err != nil {
		return fmt.Errorf("creating embedding service: %w", err)
	}

	manager := vectorstore.NewManager(vectorstore.Config{
		Spec: index.Spec{
			Name:      cfg.Index.Name,
			Dimension: cfg.Index.Dimension,
			Metric:    cfg.Index.Metric,
			Cloud:     cfg.Index.Cloud,
			Region:    cfg.Index.Region,
		},
		EnumerationCap:  cfg.Index.EnumerationCap,
		DeleteBatchSize: cfg.Index.DeleteBatchSize,
		DefaultTopK:     cfg.Chat.TopK,
	}, client, embedder, logger)

	if outcome, err := manager.EnsureIndex(ctx); err != nil {
		logger.Warn(ctx, "index not provisioned yet, will retry on first upload", zap.Error(err))
	} else {
		logger.Info(ctx, "index ready", zap.String("outcome", outcome.String()))
	}

	chain, err := qa.NewChain(cfg.Chat, logger)
	if err != nil {
		return fmt.Errorf("creating qa chain: %w", err)
	}

	users, err := auth.NewStore(cfg.Auth.DatabasePath, cfg.Auth.AdminPassword.Value(), logger)
	if err != nil {
		return fmt.Errorf("opening user database: %w", err)
	}
	defer users.Close()

	sessions := auth.NewSessionManager(cfg.Auth.SessionTimeout)
	processor := document.NewProcessor(cfg.Document)

	server, err := web.NewServer(cfg.Server, manager, chain, users, sessions, processor, cfg.Chat.TopK, logger)
	if err != nil {
		return fmt.Errorf("creating web server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}

	logger.Info(context.Background(), "shutdown complete")
	return nil
}
