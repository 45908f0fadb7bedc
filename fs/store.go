// Package fs exports crawled documents as Markdown files.
package fs

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/crawlfront"
	"gopkg.in/yaml.v3"
)

// DocumentPath maps a document URL to a relative file path under a
// directory per host:
//
//	https://example.com/docs/api      → example.com/docs/api.md
//	https://example.com/docs/         → example.com/docs/index.md
//	https://example.com/page.html?p=2 → example.com/page-<hash>.md
//
// A query string is folded into a short hash so pages differing only in
// their query do not overwrite each other. Fragments are ignored.
func DocumentPath(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", crawlfront.Errorf(crawlfront.EINVALID, "invalid document URL %q: %v", rawURL, err)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", crawlfront.Errorf(crawlfront.EINVALID, "document URL %q has no host", rawURL)
	}

	p := path.Clean("/" + u.Path)
	if p == "/" || strings.HasSuffix(u.Path, "/") {
		p = path.Join(p, "index")
	}
	if ext := path.Ext(p); ext == ".html" || ext == ".htm" {
		p = strings.TrimSuffix(p, ext)
	}
	if u.RawQuery != "" {
		p += fmt.Sprintf("-%08x", uint32(xxhash.Sum64String(u.RawQuery)))
	}
	return filepath.Join(host, filepath.FromSlash(strings.TrimPrefix(p, "/"))+".md"), nil
}

// frontmatter is the YAML header of an exported document.
type frontmatter struct {
	Source  string `yaml:"source"`
	Title   string `yaml:"title,omitempty"`
	Crawled string `yaml:"crawled"`
}

// FormatDocument renders doc as Markdown with YAML frontmatter.
func FormatDocument(doc *crawlfront.Document) (string, error) {
	header, err := yaml.Marshal(frontmatter{
		Source:  doc.URL,
		Title:   doc.Title,
		Crawled: doc.CrawledAt.UTC().Format("2006-01-02"),
	})
	if err != nil {
		return "", fmt.Errorf("encode frontmatter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(header)
	b.WriteString("---\n\n")
	b.WriteString(doc.Markdown)
	return b.String(), nil
}

// Ensure DocumentStore implements crawlfront.DocumentStore at compile time.
var _ crawlfront.DocumentStore = (*DocumentStore)(nil)

// DocumentStore writes documents into a staging directory next to its
// output directory. Commit replaces the output directory with the staged
// documents.
type DocumentStore struct {
	dir string
}

// NewDocumentStore creates a DocumentStore exporting to dir. Documents are
// staged in dir + ".tmp".
func NewDocumentStore(dir string) *DocumentStore {
	return &DocumentStore{dir: filepath.Clean(dir)}
}

func (s *DocumentStore) stagingDir() string {
	return s.dir + ".tmp"
}

// Save writes doc to the staging directory.
func (s *DocumentStore) Save(ctx context.Context, doc *crawlfront.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := doc.Validate(); err != nil {
		return err
	}

	rel, err := DocumentPath(doc.URL)
	if err != nil {
		return err
	}
	content, err := FormatDocument(doc)
	if err != nil {
		return err
	}

	full := filepath.Join(s.stagingDir(), rel)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return err
	}
	return os.WriteFile(full, []byte(content), 0644)
}

// Commit moves the staged documents to the output directory, replacing
// what was there. Committing with nothing staged leaves an empty
// output directory.
func (s *DocumentStore) Commit() error {
	if err := os.MkdirAll(s.stagingDir(), 0755); err != nil {
		return err
	}
	if err := os.RemoveAll(s.dir); err != nil {
		return err
	}
	return os.Rename(s.stagingDir(), s.dir)
}

// Abort discards the staged documents.
func (s *DocumentStore) Abort() error {
	return os.RemoveAll(s.stagingDir())
}
