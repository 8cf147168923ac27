// Package content renders task notes from Markdown into safe HTML.
package content

import (
	"crypto/sha256"
	"encoding/hex"
	"html/template"

	"github.com/die-net/lrucache"
)

const (
	maxCacheBytes = 8 * 1024 * 1024 // 8 MiB
	maxCacheAge   = 0               // unlimited, entries are keyed by content
)

var (
	// Individual transformers.
	scrubText      = ScrubText()
	markdownToHTML = MarkdownToHTML()
	sanitizeHTML   = SanitizeHTML()

	// notesPipeline turns submitted notes into HTML safe to embed in a page.
	notesPipeline = Chain(scrubText, markdownToHTML, sanitizeHTML)
)

// Renderer converts notes to HTML, caching the results by content hash so
// repeated list renders do not reparse unchanged notes.
type Renderer struct {
	pipeline Transformer
	cache    *lrucache.LruCache
}

// NewRenderer returns a Renderer with an empty cache.
func NewRenderer() *Renderer {
	return &Renderer{
		pipeline: notesPipeline,
		cache:    lrucache.New(maxCacheBytes, maxCacheAge),
	}
}

// Render returns the sanitized HTML for the Markdown notes. Empty notes
// render as empty HTML.
func (r *Renderer) Render(notes string) (template.HTML, error) {
	if notes == "" {
		return "", nil
	}
	sum := sha256.Sum256([]byte(notes))
	key := hex.EncodeToString(sum[:])
	if out, ok := r.cache.Get(key); ok {
		return template.HTML(out), nil //nolint:gosec // sanitized before caching
	}
	out, err := r.pipeline.Transform([]byte(notes))
	if err != nil {
		return "", err
	}
	r.cache.Set(key, out)
	return template.HTML(out), nil //nolint:gosec // sanitized by the pipeline
}
