package course

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// AI responses are untrusted input. Everything below strips the usual model
// decoration (markdown fences, stray formatting) and decodes into the exact
// shapes the workflow needs, rejecting anything structurally off.

var (
	ErrAIFormat    = errors.New("ai response is not valid JSON")
	ErrAIStructure = errors.New("ai response has invalid structure")

	markdownNoise = regexp.MustCompile(`[*#]`)
)

// ParseError wraps a decode failure together with the offending text so it
// can be logged without polluting the client-facing error.
type ParseError struct {
	Err error
	Raw string
}

func (e *ParseError) Error() string { return e.Err.Error() }
func (e *ParseError) Unwrap() error { return e.Err }

// QuizError marks a parse failure as coming from quiz generation. The API
// surfaces dedicated quiz messages for these and a generic one otherwise.
type QuizError struct {
	Err error
}

func (e *QuizError) Error() string { return e.Err.Error() }
func (e *QuizError) Unwrap() error { return e.Err }

// CleanAIText strips markdown bold/heading markers from plain-text responses.
func CleanAIText(text string) string {
	return strings.TrimSpace(markdownNoise.ReplaceAllString(text, ""))
}

// stripCodeFences removes markdown code fences around a JSON payload.
func stripCodeFences(raw string) string {
	raw = strings.ReplaceAll(raw, "```json", "")
	raw = strings.ReplaceAll(raw, "```", "")
	return strings.TrimSpace(raw)
}

type suggestionPayload struct {
	Title        string `json:"title"`
	EnglishTitle string `json:"englishTitle"`
}

// decodeSuggestions parses a JSON array of bilingual title suggestions.
// Each entry must carry both titles.
func decodeSuggestions(raw string) ([]TitleSuggestion, error) {
	cleaned := stripCodeFences(raw)

	var payload []suggestionPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, &ParseError{Err: errors.Wrap(ErrAIFormat, err.Error()), Raw: cleaned}
	}
	if len(payload) == 0 {
		return nil, &ParseError{Err: ErrAIStructure, Raw: cleaned}
	}
	suggestions := make([]TitleSuggestion, 0, len(payload))
	for _, s := range payload {
		if s.Title == "" || s.EnglishTitle == "" {
			return nil, &ParseError{Err: ErrAIStructure, Raw: cleaned}
		}
		suggestions = append(suggestions, TitleSuggestion{Title: s.Title, EnglishTitle: s.EnglishTitle})
	}
	return suggestions, nil
}

type indexPayload struct {
	Subtopics []struct {
		Title        string `json:"title"`
		EnglishTitle string `json:"englishTitle"`
		Lessons      []struct {
			Title        string `json:"title"`
			EnglishTitle string `json:"englishTitle"`
		} `json:"lessons"`
	} `json:"subtopics"`
}

// decodeIndex parses a generated course index. Missing English titles fall
// back to the native ones; the native title itself is mandatory.
func decodeIndex(raw string) (Index, error) {
	cleaned := stripCodeFences(raw)

	var payload indexPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return Index{}, &ParseError{Err: errors.Wrap(ErrAIFormat, err.Error()), Raw: cleaned}
	}
	if len(payload.Subtopics) == 0 {
		return Index{}, &ParseError{Err: ErrAIStructure, Raw: cleaned}
	}

	idx := Index{Subtopics: make([]Subtopic, 0, len(payload.Subtopics))}
	for _, sub := range payload.Subtopics {
		if sub.Title == "" {
			return Index{}, &ParseError{Err: ErrAIStructure, Raw: cleaned}
		}
		englishSub := sub.EnglishTitle
		if englishSub == "" {
			englishSub = sub.Title
		}
		lessons := make([]Lesson, 0, len(sub.Lessons))
		for _, l := range sub.Lessons {
			if l.Title == "" {
				return Index{}, &ParseError{Err: ErrAIStructure, Raw: cleaned}
			}
			englishLesson := l.EnglishTitle
			if englishLesson == "" {
				englishLesson = l.Title
			}
			lessons = append(lessons, Lesson{Title: l.Title, EnglishTitle: englishLesson})
		}
		idx.Subtopics = append(idx.Subtopics, Subtopic{Title: sub.Title, EnglishTitle: englishSub, Lessons: lessons})
	}
	return idx, nil
}

type quizPayload struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
}

// decodeQuiz parses a generated quiz. A malformed payload maps to
// ErrAIFormat, a well-formed payload with the wrong shape to ErrAIStructure;
// callers surface them as distinct client messages.
func decodeQuiz(raw string) ([]QuizQuestion, error) {
	cleaned := stripCodeFences(raw)

	var payload []quizPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, &ParseError{Err: errors.Wrap(ErrAIFormat, err.Error()), Raw: cleaned}
	}
	if len(payload) == 0 {
		return nil, &ParseError{Err: ErrAIStructure, Raw: cleaned}
	}

	quiz := make([]QuizQuestion, 0, len(payload))
	for _, q := range payload {
		if q.Question == "" || len(q.Options) != 4 || !containsString(q.Options, q.CorrectAnswer) {
			return nil, &ParseError{Err: ErrAIStructure, Raw: cleaned}
		}
		quiz = append(quiz, QuizQuestion{Question: q.Question, Options: q.Options, CorrectAnswer: q.CorrectAnswer})
	}
	return quiz, nil
}

func containsString(opts []string, s string) bool {
	for _, o := range opts {
		if o == s {
			return true
		}
	}
	return false
}
