package sqlite_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/fwojciec/crawlfront"
	"github.com/fwojciec/crawlfront/sqlite"
	"github.com/stretchr/testify/require"
)

// BenchmarkWALMode compares write performance between WAL and rollback journal modes.
// This simulates a crawl workload: storing extracted links and pulling batches.
func BenchmarkWALMode(b *testing.B) {
	b.Run("rollback_journal", func(b *testing.B) {
		benchmarkFrontier(b, false)
	})

	b.Run("wal_mode", func(b *testing.B) {
		benchmarkFrontier(b, true)
	})
}

func benchmarkFrontier(b *testing.B, useWAL bool) {
	b.Helper()

	tmpDir := b.TempDir()
	dbPath := filepath.Join(tmpDir, "bench.db")

	db := sqlite.NewDB(dbPath)
	require.NoError(b, db.Open())

	ctx := context.Background()
	mode := "DELETE"
	if useWAL {
		mode = "WAL"
	}
	_, err := db.ExecContext(ctx, "PRAGMA journal_mode = "+mode)
	require.NoError(b, err)

	defer func() {
		db.Close()
		os.Remove(dbPath + "-wal")
		os.Remove(dbPath + "-shm")
	}()

	f := sqlite.NewFrontier(db)
	parent := &crawlfront.FrontierRequest{URL: "https://example.com/", Method: "GET"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		links := make([]*crawlfront.FrontierRequest, 10)
		for j := range links {
			links[j] = &crawlfront.FrontierRequest{
				URL:    fmt.Sprintf("https://example.com/page/%d/%d", i, j),
				Method: "GET",
			}
		}
		require.NoError(b, f.LinksExtracted(ctx, parent, links))
		_, err := f.GetNextRequests(ctx, 5, crawlfront.KeyTypeDomain, nil)
		require.NoError(b, err)
	}
}
