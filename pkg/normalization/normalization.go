// Package normalization converts a raw submission payload into the unified
// markdown text the evaluate stage's rubric prompt is rendered against
// (spec.md §6 "document parsers" collaborator). Format support is
// deliberately narrow: plain text and markdown are parsed directly; richer
// office formats are recognized but rejected as unsupported until a parser
// is wired in, rather than silently mis-extracting their content.
package normalization

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ErrUnsupportedFormat is returned when the artifact ref's extension is not
// one normalize_payload can parse.
var ErrUnsupportedFormat = errors.New("normalization: unsupported format")

// ErrParseFailed wraps an underlying decode error for a recognized format.
var ErrParseFailed = errors.New("normalization: parse failed")

// supportedExtensions lists every extension this package can parse to text.
// ".docx" and ".pdf" are recognized formats with no wired extractor; a
// submission in either format fails with ErrUnsupportedFormat until one is
// added (see DESIGN.md).
var supportedExtensions = map[string]bool{
	".txt": true,
	".md":  true,
}

// ExtensionFromRef derives the lowercased file extension from an artifact
// ref, stripping any "scheme://" prefix first.
func ExtensionFromRef(artifactRef string) string {
	key := artifactRef
	if idx := strings.Index(key, "://"); idx >= 0 {
		key = key[idx+3:]
	}
	return strings.ToLower(path.Ext(key))
}

// ParseToText decodes payload for the given extension into raw text.
// Returns ErrUnsupportedFormat for an extension this package does not
// parse.
func ParseToText(extension string, payload []byte) (string, error) {
	if !supportedExtensions[extension] {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, extension)
	}
	if !utf8.Valid(payload) {
		return "", fmt.Errorf("%w: payload is not valid UTF-8", ErrParseFailed)
	}
	return string(payload), nil
}

var (
	crlfRE        = regexp.MustCompile(`\r\n?`)
	runsOfSpaceRE = regexp.MustCompile(`[ \t]+`)
	blankRunsRE   = regexp.MustCompile(`\n{3,}`)
)

// ToUnifiedMarkdown collapses line endings, repeated horizontal whitespace,
// and runs of more than one blank line, mirroring the normalization every
// parsed format is put through before it becomes the evaluate stage's
// canonical content_markdown.
func ToUnifiedMarkdown(text string) string {
	out := strings.ReplaceAll(text, "\x00", " ")
	out = crlfRE.ReplaceAllString(out, "\n")
	out = runsOfSpaceRE.ReplaceAllString(out, " ")
	out = blankRunsRE.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}
