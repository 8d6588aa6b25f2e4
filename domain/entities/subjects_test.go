package entities

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSubjects(t *testing.T) {
	got, err := NormalizeSubjects([]string{"World History", "world history", "  ", "Science", "history"})
	require.NoError(t, err)
	assert.Equal(t, []string{"world-history", "science", "history"}, got)

	got, err = NormalizeSubjects(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNormalizeSubjects_Limits(t *testing.T) {
	_, err := NormalizeSubjects([]string{strings.Repeat("a", MaxSubjectLength+1)})
	assert.Error(t, err)

	many := make([]string, 0, MaxSubjects+1)
	for i := 0; i <= MaxSubjects; i++ {
		many = append(many, "topic "+string(rune('a'+i)))
	}
	_, err = NormalizeSubjects(many)
	assert.Error(t, err)
}
