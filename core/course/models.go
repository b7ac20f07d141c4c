package course

import (
	"strings"
	"time"

	"github.com/seekmycourse/backend/core"
)

// Course statuses
const (
	StatusActive    = "Active"
	StatusCompleted = "Completed"
)

// CompletionThreshold is the minimum quiz percentage for a Completed course.
const CompletionThreshold = 60.0

// MaxVideoChanges caps how often a lesson's video may be swapped.
const MaxVideoChanges = 3

type (
	// VideoRef identifies one video assigned to a lesson at some point.
	VideoRef struct {
		VideoURL          string `json:"video_url"`
		VideoChannelID    string `json:"video_channel_id"`
		VideoChannelTitle string `json:"video_channel_title"`
	}

	// Lesson is a leaf of the course index. Content and the initial video are
	// generated at most once; IsCompleted never goes back to false.
	Lesson struct {
		ID                string     `json:"id"`
		Title             string     `json:"title"`
		EnglishTitle      string     `json:"english_title"`
		Content           string     `json:"content"`
		VideoURL          string     `json:"video_url"`
		VideoChannelID    string     `json:"video_channel_id"`
		VideoChannelTitle string     `json:"video_channel_title"`
		VideoHistory      []VideoRef `json:"video_history"`
		VideoChangeCount  int        `json:"video_change_count"`
		IsCompleted       bool       `json:"is_completed"`
	}

	Subtopic struct {
		ID           string   `json:"id"`
		Title        string   `json:"title"`
		EnglishTitle string   `json:"english_title"`
		Lessons      []Lesson `json:"lessons"`
	}

	Index struct {
		Subtopics []Subtopic `json:"subtopics"`
	}

	QuizQuestion struct {
		Question      string   `json:"question"`
		Options       []string `json:"options"`
		CorrectAnswer string   `json:"correct_answer"`
	}

	// Course is the aggregate document. It is persisted as a whole; Version
	// backs the optimistic check closing concurrent-update races.
	Course struct {
		ID             string         `json:"id"`
		UserID         string         `json:"user_id"`
		Topic          string         `json:"topic"`
		EnglishTopic   string         `json:"english_topic"`
		Objective      string         `json:"objective"`
		Outcome        string         `json:"outcome"`
		Language       string         `json:"language"`
		LanguageName   string         `json:"language_name"`
		NativeName     string         `json:"native_name"`
		NumSubtopics   int            `json:"num_subtopics"`
		Index          Index          `json:"index"`
		Quiz           []QuizQuestion `json:"quiz"`
		Score          int            `json:"score"`
		Status         string         `json:"status"`
		Notes          string         `json:"notes"`
		ThumbnailURL   string         `json:"thumbnail_url"`
		CompletionDate *time.Time     `json:"completion_date,omitempty"`
		Version        int            `json:"-"`
		CreatedAt      time.Time      `json:"created_at"` // UTC
		UpdatedAt      time.Time      `json:"updated_at"` // UTC
	}
)

// generated sets whether this lesson's one-shot generation already ran.
func (l *Lesson) generated() bool {
	return l.Content != "" && l.VideoURL != ""
}

// hasVideoInHistory reports whether videoID already appears in the history.
func (l *Lesson) hasVideoInHistory(videoID string) bool {
	for _, v := range l.VideoHistory {
		if strings.Contains(v.VideoURL, videoID) {
			return true
		}
	}
	return false
}

// currentVideo returns the lesson's assigned video reference.
func (l *Lesson) currentVideo() VideoRef {
	return VideoRef{
		VideoURL:          l.VideoURL,
		VideoChannelID:    l.VideoChannelID,
		VideoChannelTitle: l.VideoChannelTitle,
	}
}

func (c *Course) FindSubtopic(subtopicID string) *Subtopic {
	for i := range c.Index.Subtopics {
		if c.Index.Subtopics[i].ID == subtopicID {
			return &c.Index.Subtopics[i]
		}
	}
	return nil
}

func (s *Subtopic) FindLesson(lessonID string) *Lesson {
	for i := range s.Lessons {
		if s.Lessons[i].ID == lessonID {
			return &s.Lessons[i]
		}
	}
	return nil
}

// BackfillEnglish fills missing English titles from native ones; a safeguard
// for documents created before the bilingual title pair existed.
func (c *Course) BackfillEnglish() {
	if c.EnglishTopic == "" {
		c.EnglishTopic = c.Topic
	}
	for i := range c.Index.Subtopics {
		sub := &c.Index.Subtopics[i]
		if sub.EnglishTitle == "" {
			sub.EnglishTitle = sub.Title
		}
		for j := range sub.Lessons {
			if sub.Lessons[j].EnglishTitle == "" {
				sub.Lessons[j].EnglishTitle = sub.Lessons[j].Title
			}
		}
	}
}

// QuestionCount applies the quiz sizing rule: big courses get 20 questions,
// everything else 10.
func (c *Course) QuestionCount() int {
	n := c.NumSubtopics
	if n == 0 {
		n = len(c.Index.Subtopics)
	}
	if n == 10 || n == 15 {
		return 20
	}
	return 10
}

// TitleSuggestion is one AI-suggested bilingual title.
type TitleSuggestion struct {
	Title        string `json:"title"`
	EnglishTitle string `json:"english_title"`
}

// CustomLesson is a user-supplied lesson merged into the generated index.
type CustomLesson struct {
	SubtopicIndex int    `json:"subtopic_index"`
	Title         string `json:"title" validate:"required"`
	EnglishTitle  string `json:"english_title"`
}

// Workflow inputs

type RefineTopicInput struct {
	Topic        string `json:"topic" validate:"required"`
	LanguageName string `json:"language_name" validate:"required"`
	NativeName   string `json:"native_name" validate:"required"`
}

func (in *RefineTopicInput) Validate() error {
	in.Topic = core.CleanString(in.Topic)
	return core.Validate.Struct(in)
}

type RefineLessonInput struct {
	Topic                string `json:"topic" validate:"required"`
	EnglishTopic         string `json:"english_topic"`
	SubtopicTitle        string `json:"subtopic_title" validate:"required"`
	EnglishSubtopicTitle string `json:"english_subtopic_title"`
	LessonInput          string `json:"lesson_input" validate:"required"`
	LanguageName         string `json:"language_name" validate:"required"`
	NativeName           string `json:"native_name" validate:"required"`
}

func (in *RefineLessonInput) Validate() error {
	in.LessonInput = core.CleanString(in.LessonInput)
	return core.Validate.Struct(in)
}

type GenerateObjectiveInput struct {
	Topic        string `json:"topic" validate:"required"`
	EnglishTopic string `json:"english_topic" validate:"required"`
	Language     string `json:"language" validate:"required"`
	LanguageName string `json:"language_name" validate:"required"`
	NativeName   string `json:"native_name" validate:"required"`
}

func (in *GenerateObjectiveInput) Validate() error {
	in.Topic = core.CleanString(in.Topic)
	in.EnglishTopic = core.CleanString(in.EnglishTopic)
	return core.Validate.Struct(in)
}

type GenerateOutcomeInput struct {
	CourseID string `json:"course_id" validate:"required"`
}

func (in *GenerateOutcomeInput) Validate() error { return core.Validate.Struct(in) }

type GenerateIndexInput struct {
	CourseID      string         `json:"course_id" validate:"required"`
	NumSubtopics  int            `json:"num_subtopics" validate:"required,min=1,max=15"`
	CustomLessons []CustomLesson `json:"custom_lessons" validate:"omitempty,dive"`
}

func (in *GenerateIndexInput) Validate() error { return core.Validate.Struct(in) }

// LessonRef addresses one lesson inside a course.
type LessonRef struct {
	CourseID   string `json:"course_id" validate:"required"`
	SubtopicID string `json:"subtopic_id" validate:"required"`
	LessonID   string `json:"lesson_id" validate:"required"`
}

func (in *LessonRef) Validate() error { return core.Validate.Struct(in) }

type ChatbotInput struct {
	CourseID  string `json:"course_id" validate:"required"`
	UserQuery string `json:"user_query" validate:"required"`
}

func (in *ChatbotInput) Validate() error {
	in.UserQuery = core.CleanString(in.UserQuery)
	return core.Validate.Struct(in)
}

type CompleteQuizInput struct {
	Score          int `json:"score" validate:"min=0"`
	TotalQuestions int `json:"total_questions" validate:"required,min=1"`
}

func (in *CompleteQuizInput) Validate() error { return core.Validate.Struct(in) }

// QueryFilter narrows and paginates a user's course list.
type QueryFilter struct {
	Search string `query:"search"`
	Status string `query:"status"`
	SortBy string `query:"sort_by"` // newest | oldest
	Page   int    `query:"page"`
	Limit  int    `query:"limit"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	if qf.Status != StatusActive && qf.Status != StatusCompleted {
		qf.Status = ""
	}
	if qf.SortBy != "oldest" {
		qf.SortBy = "newest"
	}
	if qf.Page < 1 {
		qf.Page = 1
	}
	if qf.Limit < 1 || qf.Limit > 100 {
		qf.Limit = 20
	}
}

// Ordering maps the sort choice onto the persisted creation timestamp.
func (qf QueryFilter) Ordering() core.DBOrdering {
	return core.DBOrdering{Field: "created_at", Ascending: qf.SortBy == "oldest"}
}

// Page is one page of a filtered course list.
type Page struct {
	Courses    []Course `json:"courses"`
	Total      int      `json:"total"`
	Page       int      `json:"page"`
	Limit      int      `json:"limit"`
	TotalPages int      `json:"total_pages"`
}

// Verification is the public certificate-verification payload.
type Verification struct {
	User struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	} `json:"user"`
	Course struct {
		Topic            string    `json:"topic"`
		Objective        string    `json:"objective"`
		Outcome          string    `json:"outcome"`
		Index            Index     `json:"index"`
		StartDate        time.Time `json:"start_date"`
		CompletionDate   time.Time `json:"completion_date"`
		PercentageScored float64   `json:"percentage_scored"`
	} `json:"course"`
}
