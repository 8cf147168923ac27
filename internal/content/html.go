package content

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// SanitizeHTML strips every tag and attribute the notes policy does not
// allow.
func SanitizeHTML() TransformerFunc {
	policy := notesPolicy()
	return func(input []byte) ([]byte, error) {
		return policy.SanitizeBytes(input), nil
	}
}

// checkboxType only admits the read-only checkboxes of rendered task lists.
var checkboxType = regexp.MustCompile(`^checkbox$`)

// notesPolicy is a reduction of [bluemonday.UGCPolicy] for short task notes.
// Differences:
//
//   - Target _blank and noreferrer for links
//   - No images, so notes cannot hot-link or track the reader
//   - Disabled checkboxes for task list items
func notesPolicy() *bluemonday.Policy {
	policy := bluemonday.NewPolicy()

	policy.AllowStandardURLs()
	policy.RequireNoReferrerOnLinks(true)
	policy.AddTargetBlankToFullyQualifiedLinks(true)

	policy.AllowElements(
		"b",
		"blockquote",
		"br",
		"code",
		"del",
		"em",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"hr",
		"i",
		"p",
		"pre",
		"s",
		"strong",
		"sub",
		"sup",
	)

	policy.AllowAttrs("href").
		OnElements("a")

	policy.AllowAttrs("type").
		Matching(checkboxType).
		OnElements("input")
	policy.AllowAttrs("checked", "disabled").
		OnElements("input")

	policy.AllowLists()
	policy.AllowTables()

	return policy
}
