package normalization_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artzaitsev/submission-scheduler/pkg/normalization"
)

func TestExtensionFromRef(t *testing.T) {
	assert.Equal(t, ".txt", normalization.ExtensionFromRef("raw/sub_1/essay.TXT"))
	assert.Equal(t, ".md", normalization.ExtensionFromRef("mem://raw/sub_1/essay.md"))
}

func TestParseToText_SupportedFormat(t *testing.T) {
	text, err := normalization.ParseToText(".txt", []byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
}

func TestParseToText_UnsupportedFormat(t *testing.T) {
	_, err := normalization.ParseToText(".docx", []byte("whatever"))
	assert.True(t, errors.Is(err, normalization.ErrUnsupportedFormat))
}

func TestParseToText_InvalidUTF8(t *testing.T) {
	_, err := normalization.ParseToText(".txt", []byte{0xff, 0xfe, 0xfd})
	assert.True(t, errors.Is(err, normalization.ErrParseFailed))
}

func TestToUnifiedMarkdown(t *testing.T) {
	input := "line one\r\n\r\n\r\nline   two\x00here\r\n"
	got := normalization.ToUnifiedMarkdown(input)
	assert.Equal(t, "line one\n\nline two here", got)
}
