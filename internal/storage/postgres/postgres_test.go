package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/FranksOps/seedcorpus/internal/storage/storagetest"
)

func TestPostgresBackend(t *testing.T) {
	// Only run this test if SEEDCORPUS_TEST_PG_DSN is set
	dsn := os.Getenv("SEEDCORPUS_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("Skipping Postgres backend test: SEEDCORPUS_TEST_PG_DSN not set")
	}

	ctx := context.Background()
	b, err := New(ctx, dsn)
	if err != nil {
		t.Fatalf("Failed to create Postgres backend: %v", err)
	}
	defer b.Close()

	pb := b.(*postgresBackend)
	if _, err := pb.pool.Exec(ctx, `TRUNCATE corpus_pages`); err != nil {
		t.Fatalf("Failed to reset table: %v", err)
	}

	storagetest.Run(t, b)
}

func TestNew_BadDSN(t *testing.T) {
	if _, err := New(context.Background(), "postgres://invalid host/db"); err == nil {
		t.Fatal("expected error for malformed DSN")
	}
}
