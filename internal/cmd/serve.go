package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/niels/page-server/pkg/config"
	"github.com/niels/page-server/pkg/logging"
	"github.com/niels/page-server/pkg/server"
	"github.com/niels/page-server/pkg/storage"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts, addr)
		},
	}

	serveCmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")

	return serveCmd
}

// runServe opens the store and serves until interrupted
func runServe(cmd *cobra.Command, opts *rootOptions, addr string) error {
	if addr != "" {
		opts.cfg.Server.Addr = addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, opts)
	if err != nil {
		logging.ErrorWith("Failed to open file store", map[string]interface{}{
			"backend": opts.cfg.Storage.Backend,
			"error":   err,
		})
		return err
	}
	defer releaseStore(closeStore, opts.cfg.Storage.Backend)

	logging.InfoWith("Starting server", map[string]interface{}{
		"addr":    opts.cfg.Server.Addr,
		"backend": opts.cfg.Storage.Backend,
		"home":    opts.cfg.Location.Home,
		"pages":   len(opts.cfg.Pages),
	})

	if err := server.New(opts.cfg, store).Run(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	logging.Info("Server stopped")
	return nil
}

// openStore returns the injected store or opens the configured backend.
// The returned function releases the store.
func openStore(ctx context.Context, opts *rootOptions) (storage.FileStore, func() error, error) {
	noop := func() error { return nil }
	if opts.store != nil {
		return opts.store, noop, nil
	}

	cfg := opts.cfg.Storage
	switch cfg.Backend {
	case config.BackendFS:
		store, err := storage.NewFSStore(cfg.PublicDir)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil
	case config.BackendBitcask:
		store, err := storage.OpenBitcaskStore(cfg.BitcaskPath)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case config.BackendS3:
		store, err := storage.NewS3StoreFromConfig(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown storage backend %q", config.ErrInvalidConfig, cfg.Backend)
	}
}

// releaseStore closes the store and logs a failure to do so
func releaseStore(closeStore func() error, backend string) {
	if err := closeStore(); err != nil {
		logging.ErrorWith("Failed to close file store", map[string]interface{}{
			"backend": backend,
			"error":   err,
		})
	}
}
