package ids

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_HasExpectedPrefixAndLength(t *testing.T) {
	id := New(KindSubmission)
	assert.True(t, strings.HasPrefix(id, "sub_"))
	// "sub_" (4 chars) + 26-char ULID.
	assert.Len(t, id, 4+26)
}

func TestNew_IsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewCandidateID()
		assert.False(t, seen[id], "duplicate id generated: %s", id)
		seen[id] = true
	}
}

func TestNew_LexicographicallySortable(t *testing.T) {
	first := NewSubmissionID()
	second := NewSubmissionID()
	assert.LessOrEqual(t, first, second)
}

func TestKindPrefixes(t *testing.T) {
	assert.True(t, strings.HasPrefix(NewCandidateID(), "cand_"))
	assert.True(t, strings.HasPrefix(NewAssignmentID(), "asg_"))
	assert.True(t, strings.HasPrefix(NewSubmissionID(), "sub_"))
	assert.True(t, strings.HasPrefix(NewExportID(), "exp_"))
}
