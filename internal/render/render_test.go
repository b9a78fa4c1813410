package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkdownFormatting(t *testing.T) {
	t.Parallel()

	out := Markdown("**Error:** something broke")
	assert.Contains(t, out, "<strong>Error:</strong>")
}

func TestMarkdownStripsScripts(t *testing.T) {
	t.Parallel()

	out := Markdown("hello <script>alert(1)</script>")
	assert.NotContains(t, out, "<script>")
}

func TestMarkdownLinksOpenInNewTab(t *testing.T) {
	t.Parallel()

	out := Markdown("[docs](https://example.com/help)")
	assert.Contains(t, out, `href="https://example.com/help"`)
	assert.Contains(t, out, `target="_blank"`)
	assert.Contains(t, out, "noreferrer")
}

func TestMarkdownDropsJavascriptLinks(t *testing.T) {
	t.Parallel()

	out := Markdown("[click](javascript:alert(1))")
	assert.NotContains(t, out, "javascript:")
}
