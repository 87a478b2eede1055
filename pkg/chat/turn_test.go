package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFoldTranscript(t *testing.T) {
	turns := []Turn{
		{Role: RoleUser, Text: "find hiking friends"},
		{Role: RoleAssistant, Text: "Here are some hikers!"},
	}

	assert.Equal(t, "User: find hiking friends\n\nAI: Here are some hikers!", FoldTranscript(turns))
}

func TestFoldTranscriptEmpty(t *testing.T) {
	assert.Equal(t, "", FoldTranscript(nil))
}

func TestFoldTranscriptSingleTurn(t *testing.T) {
	turns := []Turn{{Role: RoleUser, Text: "hello"}}
	assert.Equal(t, "User: hello", FoldTranscript(turns))
}

func TestHistoryWindow(t *testing.T) {
	turns := make([]Turn, 8)
	for i := range turns {
		turns[i] = Turn{Role: RoleUser, Text: string(rune('a' + i))}
	}

	window := HistoryWindow(turns)
	assert.Len(t, window, 5)
	assert.Equal(t, "d", window[0].Text)
	assert.Equal(t, "h", window[4].Text)
}

func TestHistoryWindowShortTranscript(t *testing.T) {
	turns := []Turn{{Role: RoleUser, Text: "hi"}}
	assert.Len(t, HistoryWindow(turns), 1)
	assert.Empty(t, HistoryWindow(nil))
}
