package content

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// MarkdownToHTML converts CommonMark with the GitHub flavored extensions
// (tables, strikethrough, autolinks, and task list checkboxes) into HTML.
// Raw HTML in the input is omitted, but the output is still _not_ sanitized.
func MarkdownToHTML() TransformerFunc {
	markdown := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Typographer,
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
		),
	)

	return func(input []byte) ([]byte, error) {
		output := &bytes.Buffer{}
		if err := markdown.Convert(input, output); err != nil {
			return nil, fmt.Errorf("failed to convert markdown to HTML: %w", err)
		}
		return output.Bytes(), nil
	}
}
