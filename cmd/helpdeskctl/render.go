package main

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// renderMarkdown renders assistant text for the terminal. With plain set, or when
// glamour fails, the markdown is returned unchanged.
func renderMarkdown(text string, plain bool) string {
	if plain || strings.TrimSpace(text) == "" {
		return text + "\n"
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return text + "\n"
	}
	out, err := renderer.Render(text)
	if err != nil {
		return text + "\n"
	}
	return out
}
