// Package htmltomarkdown renders extracted page content as Markdown.
package htmltomarkdown

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/fwojciec/crawlfront"
)

// Ensure Converter implements crawlfront.MarkdownConverter at compile time.
var _ crawlfront.MarkdownConverter = (*Converter)(nil)

// Converter converts HTML to CommonMark with GFM tables.
type Converter struct {
	conv *converter.Converter
}

// NewConverter creates a new Converter.
func NewConverter() *Converter {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
	return &Converter{conv: conv}
}

// ConvertMarkdown converts html to Markdown, resolving relative links and
// images against baseURL.
func (c *Converter) ConvertMarkdown(html, baseURL string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", crawlfront.Errorf(crawlfront.EINVALID, "empty HTML input")
	}

	return c.conv.ConvertString(html, converter.WithDomain(baseURL))
}
