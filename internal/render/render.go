// Package render turns agent replies written in Markdown into sanitized HTML.
package render

import (
	"bytes"
	"html"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldhtml "github.com/yuin/goldmark/renderer/html"
)

var (
	once   sync.Once
	md     goldmark.Markdown
	policy *bluemonday.Policy
)

func setup() {
	md = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(goldhtml.WithHardWraps()),
	)

	policy = bluemonday.UGCPolicy()
	policy.RequireNoReferrerOnLinks(true)
	policy.AddTargetBlankToFullyQualifiedLinks(true)
}

// Markdown renders src to HTML safe to insert into the chat transcript. Raw HTML in
// src is escaped by the renderer and the output is sanitized again. If rendering
// fails the escaped source is returned.
func Markdown(src string) string {
	once.Do(setup)

	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return html.EscapeString(src)
	}
	return string(policy.SanitizeBytes(buf.Bytes()))
}
