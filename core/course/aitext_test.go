package course

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanAIText(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{"plain", "hello world", "hello world"},
		{"markdown", "### Heading\n**bold** text", "Heading\nbold text"},
		{"whitespace", "  padded  ", "padded"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanAIText(tt.in))
		})
	}
}

func TestDecodeSuggestions(t *testing.T) {
	t.Run("valid with fences", func(t *testing.T) {
		raw := "```json\n[{\"title\": \"Tema Uno\", \"englishTitle\": \"Topic One\"}, " +
			"{\"title\": \"Tema Dos\", \"englishTitle\": \"Topic Two\"}, " +
			"{\"title\": \"Tema Tres\", \"englishTitle\": \"Topic Three\"}]\n```"

		suggestions, err := decodeSuggestions(raw)
		require.NoError(t, err)
		require.Len(t, suggestions, 3)
		assert.Equal(t, "Tema Uno", suggestions[0].Title)
		assert.Equal(t, "Topic One", suggestions[0].EnglishTitle)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := decodeSuggestions("Sure! Here are three titles: ...")
		assert.True(t, errors.Is(err, ErrAIFormat))
	})

	t.Run("missing english title", func(t *testing.T) {
		_, err := decodeSuggestions(`[{"title": "Tema Uno"}]`)
		assert.True(t, errors.Is(err, ErrAIStructure))
	})

	t.Run("empty array", func(t *testing.T) {
		_, err := decodeSuggestions(`[]`)
		assert.True(t, errors.Is(err, ErrAIStructure))
	})
}

func TestDecodeIndex(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		raw := `{"subtopics": [
			{"title": "Basics", "englishTitle": "Basics", "lessons": [
				{"title": "Intro", "englishTitle": "Intro"},
				{"title": "Setup"}
			]}
		]}`

		idx, err := decodeIndex(raw)
		require.NoError(t, err)
		require.Len(t, idx.Subtopics, 1)
		require.Len(t, idx.Subtopics[0].Lessons, 2)
		// missing englishTitle falls back to the native title
		assert.Equal(t, "Setup", idx.Subtopics[0].Lessons[1].EnglishTitle)
	})

	t.Run("no subtopics", func(t *testing.T) {
		_, err := decodeIndex(`{"subtopics": []}`)
		assert.True(t, errors.Is(err, ErrAIStructure))
	})

	t.Run("not json", func(t *testing.T) {
		_, err := decodeIndex("here is your index")
		assert.True(t, errors.Is(err, ErrAIFormat))

		var perr *ParseError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, "here is your index", perr.Raw)
	})
}

func TestDecodeQuiz(t *testing.T) {
	valid := `[{"question": "What is Go?", "options": ["A language", "A game", "A fruit", "A city"], "correctAnswer": "A language"}]`

	t.Run("valid", func(t *testing.T) {
		quiz, err := decodeQuiz(valid)
		require.NoError(t, err)
		require.Len(t, quiz, 1)
		assert.Equal(t, "A language", quiz[0].CorrectAnswer)
	})

	t.Run("malformed json is a format error", func(t *testing.T) {
		_, err := decodeQuiz(`[{"question": "What is Go?",`)
		assert.True(t, errors.Is(err, ErrAIFormat))
		assert.False(t, errors.Is(err, ErrAIStructure))
	})

	t.Run("three options is a structure error", func(t *testing.T) {
		raw := `[{"question": "Q", "options": ["a", "b", "c"], "correctAnswer": "a"}]`
		_, err := decodeQuiz(raw)
		assert.True(t, errors.Is(err, ErrAIStructure))
		assert.False(t, errors.Is(err, ErrAIFormat))
	})

	t.Run("answer not among options is a structure error", func(t *testing.T) {
		raw := `[{"question": "Q", "options": ["a", "b", "c", "d"], "correctAnswer": "e"}]`
		_, err := decodeQuiz(raw)
		assert.True(t, errors.Is(err, ErrAIStructure))
	})

	t.Run("empty array is a structure error", func(t *testing.T) {
		_, err := decodeQuiz(`[]`)
		assert.True(t, errors.Is(err, ErrAIStructure))
	})
}
