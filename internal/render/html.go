package render

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// markdownHTML converts markdown with GFM tables and autolinks. Raw HTML in
// the source is dropped, since narratives come from a model.
var markdownHTML = goldmark.New(
	goldmark.WithExtensions(extension.Table, extension.Linkify, extension.Strikethrough),
	goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
)

// HTML converts markdown into an HTML fragment safe to embed in a page.
func HTML(md string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdownHTML.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("render: html: %w", err)
	}
	return template.HTML(buf.String()), nil
}
