package trafilatura_test

import (
	"testing"

	"github.com/fwojciec/crawlfront"
	"github.com/fwojciec/crawlfront/trafilatura"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func htmlResponse(url, body string) *crawlfront.Response {
	return &crawlfront.Response{
		URL:     url,
		Status:  200,
		Headers: crawlfront.Headers{{Name: "Content-Type", Values: []string{"text/html"}}},
		Body:    []byte(body),
	}
}

func TestExtractor_ExtractContent(t *testing.T) {
	t.Parallel()

	t.Run("extracts title from meta tags", func(t *testing.T) {
		t.Parallel()

		resp := htmlResponse("https://example.com/docs/frontier", `<!DOCTYPE html>
<html>
<head>
<title>Frontier - Crawler Docs</title>
<meta property="og:title" content="Configuring the Frontier">
</head>
<body>
<nav>Navigation here</nav>
<main>
<h1>Configuring the Frontier</h1>
<p>The frontier decides which request is crawled next and keeps track of every URL seen so far.</p>
</main>
<footer>Footer content</footer>
</body>
</html>`)

		result, err := trafilatura.NewExtractor().ExtractContent(resp)

		require.NoError(t, err)
		assert.NotEmpty(t, result.Title)
	})

	t.Run("keeps the article and drops navigation", func(t *testing.T) {
		t.Parallel()

		resp := htmlResponse("https://example.com/docs/slots", `<!DOCTYPE html>
<html>
<head><title>Slots</title></head>
<body>
<nav class="main-nav">
<ul>
<li><a href="/">Home</a></li>
<li><a href="/docs">Documentation</a></li>
</ul>
</nav>
<article>
<h1>Download slots</h1>
<p>Every destination gets a download slot that bounds how many requests run against it at once.</p>
<pre><code>settings.ConcurrentRequestsPerDomain = 8</code></pre>
</article>
<footer><p>Copyright 2026 Example Corp</p></footer>
</body>
</html>`)

		result, err := trafilatura.NewExtractor().ExtractContent(resp)

		require.NoError(t, err)
		assert.Contains(t, result.HTML, "bounds how many requests")
		assert.Contains(t, result.HTML, "ConcurrentRequestsPerDomain")
		assert.NotContains(t, result.HTML, "main-nav")
		assert.NotContains(t, result.HTML, "Copyright 2026 Example Corp")
	})

	t.Run("handles minimal HTML without fallback", func(t *testing.T) {
		t.Parallel()

		resp := htmlResponse("https://example.com/", `<html><body><p>Simple content</p></body></html>`)

		result, err := trafilatura.NewExtractor(trafilatura.WithFallback(false)).ExtractContent(resp)

		require.NoError(t, err)
		assert.NotNil(t, result)
	})

	t.Run("rejects an empty body", func(t *testing.T) {
		t.Parallel()

		_, err := trafilatura.NewExtractor().ExtractContent(htmlResponse("https://example.com/", " \n"))

		require.Error(t, err)
		assert.Equal(t, crawlfront.EINVALID, crawlfront.ErrorCode(err))
	})
}
