package ingestion

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitterKeepsShortTextWhole(t *testing.T) {
	chunks := NewSplitter(800, 120).Split("Sea views.\n\nPrivate beach access.")
	assert.Equal(t, []string{"Sea views.\n\nPrivate beach access."}, chunks)
}

func TestSplitterWordBoundaries(t *testing.T) {
	chunks := NewSplitter(10, 0).Split("aaaa bbbb cccc")
	assert.Equal(t, []string{"aaaa bbbb", "cccc"}, chunks)
}

func TestSplitterOverlapsLongText(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 300; i++ {
		fmt.Fprintf(&b, "word%03d ", i)
	}
	chunks := NewSplitter(DefaultChunkSize, DefaultChunkOverlap).Split(b.String())
	require.Greater(t, len(chunks), 2)
	for _, c := range chunks {
		assert.LessOrEqual(t, runeLen(c), DefaultChunkSize)
	}
	first := strings.Fields(chunks[1])[0]
	assert.Contains(t, chunks[0], first)
	assert.True(t, strings.HasSuffix(chunks[len(chunks)-1], "word299"))
}

func TestSplitterFallsBackToCharacters(t *testing.T) {
	chunks := NewSplitter(4, 0).Split("abcdefghij")
	assert.Equal(t, []string{"abcd", "efgh", "ij"}, chunks)
}

func TestSplitterEmpty(t *testing.T) {
	assert.Empty(t, NewSplitter(800, 120).Split("   "))
}
