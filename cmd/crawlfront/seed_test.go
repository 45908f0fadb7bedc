package main_test

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/fwojciec/crawlfront"
	main "github.com/fwojciec/crawlfront/cmd/crawlfront"
	"github.com/fwojciec/crawlfront/mock"
	"github.com/fwojciec/crawlfront/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db := sqlite.NewDB(":memory:")
	require.NoError(t, db.Open())
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSeedCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("adds URLs with priority", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		stdout := &bytes.Buffer{}
		deps := &main.Dependencies{Ctx: context.Background(), Stdout: stdout, Stderr: &bytes.Buffer{}, DB: db}

		cmd := &main.SeedCmd{URLs: []string{"https://example.com/", "https://example.com/docs"}, Priority: 5}
		err := cmd.Run(deps)

		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "Added 2 URLs (2 queued)")

		entries, err := sqlite.NewFrontier(db).FindEntries(context.Background(), sqlite.EntryFilter{})
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, 5, entries[0].Priority)
		assert.Equal(t, "example.com", entries[0].Slot)
	})

	t.Run("ignores URLs already in the frontier", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		deps := &main.Dependencies{Ctx: context.Background(), Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}, DB: db}
		require.NoError(t, (&main.SeedCmd{URLs: []string{"https://example.com/"}}).Run(deps))

		stdout := &bytes.Buffer{}
		deps.Stdout = stdout
		err := (&main.SeedCmd{URLs: []string{"https://example.com/", "https://example.com/new"}}).Run(deps)

		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "Added 1 URLs (2 queued)")
	})

	t.Run("adds sitemap URLs", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		var gotBase string
		var gotInclude *regexp.Regexp
		sitemaps := &mock.SeedSource{
			SeedsFn: func(_ context.Context, baseURL string, include *regexp.Regexp) ([]*crawlfront.Request, error) {
				gotBase, gotInclude = baseURL, include
				req := crawlfront.NewRequest("https://example.com/docs/intro")
				req.Priority = 80
				return []*crawlfront.Request{req}, nil
			},
		}
		stdout := &bytes.Buffer{}
		deps := &main.Dependencies{Ctx: context.Background(), Stdout: stdout, Stderr: &bytes.Buffer{}, DB: db, Sitemaps: sitemaps}

		cmd := &main.SeedCmd{Sitemap: "https://example.com", Include: "/docs/"}
		err := cmd.Run(deps)

		require.NoError(t, err)
		assert.Equal(t, "https://example.com", gotBase)
		require.NotNil(t, gotInclude)
		assert.Equal(t, "/docs/", gotInclude.String())
		assert.Contains(t, stdout.String(), "Found 1 URLs in sitemap")
		assert.Contains(t, stdout.String(), "Added 1 URLs")

		entries, err := sqlite.NewFrontier(db).FindEntries(context.Background(), sqlite.EntryFilter{})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, 80, entries[0].Priority)
	})

	t.Run("reports sitemap errors", func(t *testing.T) {
		t.Parallel()

		stderr := &bytes.Buffer{}
		sitemaps := &mock.SeedSource{
			SeedsFn: func(context.Context, string, *regexp.Regexp) ([]*crawlfront.Request, error) {
				return nil, errors.New("HTTP 500")
			},
		}
		deps := &main.Dependencies{Ctx: context.Background(), Stdout: &bytes.Buffer{}, Stderr: stderr, DB: setupTestDB(t), Sitemaps: sitemaps}

		err := (&main.SeedCmd{Sitemap: "https://example.com"}).Run(deps)

		require.Error(t, err)
		assert.Contains(t, stderr.String(), "HTTP 500")
	})

	t.Run("requires URLs or a sitemap", func(t *testing.T) {
		t.Parallel()

		stderr := &bytes.Buffer{}
		deps := &main.Dependencies{Ctx: context.Background(), Stdout: &bytes.Buffer{}, Stderr: stderr, DB: setupTestDB(t)}

		err := (&main.SeedCmd{}).Run(deps)

		require.Error(t, err)
		assert.Contains(t, stderr.String(), "no URLs or sitemap given")
	})

	t.Run("rejects an invalid include pattern", func(t *testing.T) {
		t.Parallel()

		stderr := &bytes.Buffer{}
		deps := &main.Dependencies{Ctx: context.Background(), Stdout: &bytes.Buffer{}, Stderr: stderr, DB: setupTestDB(t)}

		err := (&main.SeedCmd{Sitemap: "https://example.com", Include: "("}).Run(deps)

		require.Error(t, err)
		assert.Contains(t, stderr.String(), "invalid include pattern")
	})
}
