package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/FranksOps/seedcorpus/internal/config"
	"github.com/FranksOps/seedcorpus/internal/storage"
	"github.com/FranksOps/seedcorpus/internal/storage/csvbackend"
	"github.com/FranksOps/seedcorpus/internal/storage/jsonbackend"
	"github.com/FranksOps/seedcorpus/internal/storage/postgres"
	"github.com/FranksOps/seedcorpus/internal/storage/sqlite"
)

// openBackend opens the configured corpus store.
func openBackend(ctx context.Context, cfg config.Storage) (storage.Backend, error) {
	switch cfg.Backend {
	case "sqlite":
		return sqlite.New(cfg.Path)
	case "postgres":
		return postgres.New(ctx, cfg.DSN)
	case "csv":
		return csvbackend.New(cfg.Path)
	case "json":
		return jsonbackend.New(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// addStorageFlags registers the flags that select the corpus store.
func addStorageFlags(cmd *cobra.Command) {
	cmd.Flags().String("backend", "sqlite", "storage backend (sqlite|postgres|csv|json)")
	cmd.Flags().String("db", "corpus.db", "corpus file for the sqlite, csv and json backends")
	cmd.Flags().String("dsn", "", "postgres connection string")
}
