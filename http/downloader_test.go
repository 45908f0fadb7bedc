package http_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fwojciec/crawlfront"
	crawlhttp "github.com/fwojciec/crawlfront/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloader_Download(t *testing.T) {
	t.Parallel()

	t.Run("returns error statuses as responses", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Reason", "gone")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("not here"))
		}))
		t.Cleanup(srv.Close)

		d := crawlhttp.NewDownloader()
		req := crawlfront.NewRequest(srv.URL + "/missing")
		resp, err := d.Download(context.Background(), req)

		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.Status)
		assert.Equal(t, "not here", string(resp.Body))
		assert.Equal(t, "gone", resp.Headers.Get("X-Reason"))
		assert.Same(t, req, resp.Request)
	})

	t.Run("sends method, headers, cookies and body", func(t *testing.T) {
		t.Parallel()

		type captured struct {
			method, ua, accept, cookie, body string
		}
		seen := make(chan captured, 1)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var got captured
			body, _ := io.ReadAll(r.Body)
			got.method = r.Method
			got.ua = r.Header.Get("User-Agent")
			got.accept = r.Header.Get("Accept")
			if c, err := r.Cookie("session"); err == nil {
				got.cookie = c.Value
			}
			got.body = string(body)
			seen <- got
		}))
		t.Cleanup(srv.Close)

		d := crawlhttp.NewDownloader(crawlhttp.WithUserAgent("testbot"))
		req := &crawlfront.Request{
			URL:     srv.URL,
			Method:  "POST",
			Headers: crawlfront.Headers{{Name: "Accept", Values: []string{"text/html"}}},
			Cookies: crawlfront.Cookies{{Name: "session", Value: "abc"}},
			Body:    []byte("q=1"),
		}
		_, err := d.Download(context.Background(), req)

		require.NoError(t, err)
		got := <-seen
		assert.Equal(t, "POST", got.method)
		assert.Equal(t, "testbot", got.ua)
		assert.Equal(t, "text/html", got.accept)
		assert.Equal(t, "abc", got.cookie)
		assert.Equal(t, "q=1", got.body)
	})

	t.Run("reports the URL after redirects", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/new", http.StatusMovedPermanently)
		})
		mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("moved"))
		})
		srv := httptest.NewServer(mux)
		t.Cleanup(srv.Close)

		d := crawlhttp.NewDownloader()
		resp, err := d.Download(context.Background(), crawlfront.NewRequest(srv.URL+"/old"))

		require.NoError(t, err)
		assert.Equal(t, srv.URL+"/new", resp.URL)
		assert.Equal(t, http.StatusOK, resp.Status)
	})

	t.Run("returns EINVALID for malformed URLs", func(t *testing.T) {
		t.Parallel()

		d := crawlhttp.NewDownloader()
		_, err := d.Download(context.Background(), crawlfront.NewRequest("http://exa mple.com/"))

		require.Error(t, err)
		assert.Equal(t, crawlfront.EINVALID, crawlfront.ErrorCode(err))
	})

	t.Run("returns an error for unreachable hosts", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		addr := srv.URL
		srv.Close()

		d := crawlhttp.NewDownloader(crawlhttp.WithTimeout(time.Second))
		_, err := d.Download(context.Background(), crawlfront.NewRequest(addr))

		require.Error(t, err)
	})
}

func TestDownloader_Slots(t *testing.T) {
	t.Parallel()

	t.Run("counts waiting and transferring requests per destination", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
		}))
		t.Cleanup(srv.Close)

		d := crawlhttp.NewDownloader(crawlhttp.WithDomainConcurrency(1))
		assert.Equal(t, crawlfront.KeyTypeDomain, d.KeyType())

		var wg sync.WaitGroup
		for range 2 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = d.Download(context.Background(), crawlfront.NewRequest(srv.URL))
			}()
		}

		want := []crawlfront.Slot{{Key: "127.0.0.1", Concurrency: 1, Active: 2}}
		assert.Eventually(t, func() bool {
			return assert.ObjectsAreEqual(want, d.Slots())
		}, 2*time.Second, 10*time.Millisecond)

		close(release)
		wg.Wait()
		assert.Empty(t, d.Slots())
	})

	t.Run("keys slots by address in per-IP mode", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
		}))
		t.Cleanup(srv.Close)

		d := crawlhttp.NewDownloader(crawlhttp.WithIPConcurrency(3))
		assert.Equal(t, crawlfront.KeyTypeIP, d.KeyType())

		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = d.Download(context.Background(), crawlfront.NewRequest(srv.URL))
		}()

		want := []crawlfront.Slot{{Key: "127.0.0.1", Concurrency: 3, Active: 1}}
		assert.Eventually(t, func() bool {
			return assert.ObjectsAreEqual(want, d.Slots())
		}, 2*time.Second, 10*time.Millisecond)

		close(release)
		<-done
	})

	t.Run("gives up waiting for a slot when the context ends", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
		}))
		t.Cleanup(srv.Close)

		d := crawlhttp.NewDownloader(crawlhttp.WithDomainConcurrency(1))
		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = d.Download(context.Background(), crawlfront.NewRequest(srv.URL))
		}()
		assert.Eventually(t, func() bool { return len(d.Slots()) == 1 }, 2*time.Second, 10*time.Millisecond)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := d.Download(ctx, crawlfront.NewRequest(srv.URL))

		require.ErrorIs(t, err, context.DeadlineExceeded)
		close(release)
		<-done
	})
}

func TestDownloader_Delay(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	t.Cleanup(srv.Close)

	settings := crawlfront.DefaultSettings()
	settings.DownloadDelay = 100 * time.Millisecond
	d := crawlhttp.NewDownloader(crawlhttp.WithSettings(settings))

	start := time.Now()
	for range 2 {
		_, err := d.Download(context.Background(), crawlfront.NewRequest(srv.URL))
		require.NoError(t, err)
	}

	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}
