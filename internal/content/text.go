package content

import (
	"bytes"
	"regexp"
)

var (
	// utf8BOM is the byte order mark some editors paste along with text.
	utf8BOM = []byte{0xEF, 0xBB, 0xBF}

	// Trailing whitespace would otherwise turn into hard line breaks.
	trailingWhitespace = regexp.MustCompile(`(?m)[ \t]+$`)

	// More than one blank line in a row renders the same as one.
	excessiveBlankLines = regexp.MustCompile(`\n{3,}`)
)

// ScrubText cleans up submitted notes before rendering: invalid UTF-8 is
// replaced, line endings are normalized to Unix, and stray whitespace is
// trimmed.
func ScrubText() TransformerFunc {
	return func(input []byte) ([]byte, error) {
		input = bytes.TrimPrefix(input, utf8BOM)
		input = bytes.ToValidUTF8(input, []byte("�"))

		input = bytes.ReplaceAll(input, []byte("\r\n"), []byte("\n"))
		input = bytes.ReplaceAll(input, []byte("\r"), []byte("\n"))

		input = trailingWhitespace.ReplaceAll(input, nil)
		input = excessiveBlankLines.ReplaceAll(input, []byte("\n\n"))
		return bytes.TrimSpace(input), nil
	}
}
