package course

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seekmycourse/backend/core"
	"github.com/seekmycourse/backend/core/user"
)

// ------------------------------------------------------------------------
// stubs

type stubRepo struct {
	courses map[string]Course
	// conflicts fails the next N updates with ErrVersionConflict
	conflicts int
	updates   int
}

func newStubRepo(courses ...Course) *stubRepo {
	repo := &stubRepo{courses: make(map[string]Course)}
	for _, crs := range courses {
		repo.courses[crs.ID] = crs
	}
	return repo
}

func (r *stubRepo) CreateCourse(ctx context.Context, crs Course) (Course, error) {
	r.courses[crs.ID] = crs
	return crs, nil
}

func (r *stubRepo) GetCourse(ctx context.Context, courseID, userID string) (Course, error) {
	crs, ok := r.courses[courseID]
	if !ok || crs.UserID != userID {
		return Course{}, ErrNotFound
	}
	return crs, nil
}

func (r *stubRepo) GetCourseByID(ctx context.Context, courseID string) (Course, error) {
	crs, ok := r.courses[courseID]
	if !ok {
		return Course{}, ErrNotFound
	}
	return crs, nil
}

func (r *stubRepo) FilterCourses(ctx context.Context, userID string, qf QueryFilter) (Page, error) {
	var matched []Course
	for _, crs := range r.courses {
		if crs.UserID != userID {
			continue
		}
		if qf.Status != "" && crs.Status != qf.Status {
			continue
		}
		if qf.Search != "" && !strings.Contains(strings.ToLower(crs.Topic), strings.ToLower(qf.Search)) {
			continue
		}
		matched = append(matched, crs)
	}
	return Page{Courses: matched, Total: len(matched), Page: qf.Page, Limit: qf.Limit}, nil
}

func (r *stubRepo) UpdateCourse(ctx context.Context, crs Course) (Course, error) {
	r.updates++
	if r.conflicts > 0 {
		r.conflicts--
		return Course{}, ErrVersionConflict
	}
	stored, ok := r.courses[crs.ID]
	if !ok {
		return Course{}, ErrNotFound
	}
	if stored.Version != crs.Version {
		return Course{}, ErrVersionConflict
	}
	crs.Version++
	r.courses[crs.ID] = crs
	return crs, nil
}

type stubAI struct {
	textResp   string
	jsonResp   string
	textErr    error
	jsonErr    error
	textCalls  int
	jsonCalls  int
	lastPrompt string
}

func (ai *stubAI) GenerateText(ctx context.Context, prompt string) (string, error) {
	ai.textCalls++
	ai.lastPrompt = prompt
	return ai.textResp, ai.textErr
}

func (ai *stubAI) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	ai.jsonCalls++
	ai.lastPrompt = prompt
	return ai.jsonResp, ai.jsonErr
}

type stubVideos struct {
	results []core.VideoResult
	err     error
	calls   int
}

func (v *stubVideos) SearchVideos(ctx context.Context, query string, maxResults int) ([]core.VideoResult, error) {
	v.calls++
	return v.results, v.err
}

type stubThumbs struct {
	url string
	err error
}

func (s *stubThumbs) SearchThumbnail(ctx context.Context, query string) (string, error) {
	return s.url, s.err
}

type stubPDF struct{ lastHTML string }

func (p *stubPDF) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	p.lastHTML = html
	return []byte("%PDF-1.4 stub"), nil
}

type stubUsers struct{ users map[string]user.User }

func (s *stubUsers) GetByID(ctx context.Context, id string) (user.User, error) {
	usr, ok := s.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

type nopLogger struct{}

func (nopLogger) Enable(bool)                        {}
func (nopLogger) Debug(string, ...interface{})       {}
func (nopLogger) Info(string, ...interface{})        {}
func (nopLogger) Warn(string, ...interface{})        {}
func (nopLogger) Error(string, ...interface{})       {}
func (nopLogger) Fatal(msg string, _ ...interface{}) { panic(msg) }

type deps struct {
	repo   *stubRepo
	ai     *stubAI
	videos *stubVideos
	thumbs *stubThumbs
	pdf    *stubPDF
	users  *stubUsers
}

func newTestService(courses ...Course) (*Service, *deps) {
	d := &deps{
		repo:   newStubRepo(courses...),
		ai:     &stubAI{},
		videos: &stubVideos{},
		thumbs: &stubThumbs{},
		pdf:    &stubPDF{},
		users:  &stubUsers{users: make(map[string]user.User)},
	}
	svc := NewService(d.repo, d.ai, d.videos, d.thumbs, d.pdf, d.users, nopLogger{})
	return svc, d
}

func testCourse(userID string) Course {
	now := time.Now().UTC()
	return Course{
		ID:           uuid.New().String(),
		UserID:       userID,
		Topic:        "Gen Sobre Guitarra",
		EnglishTopic: "Guitar Basics",
		Objective:    "learn chords",
		Language:     "es",
		LanguageName: "Spanish",
		NativeName:   "Español",
		Status:       StatusActive,
		Index: Index{Subtopics: []Subtopic{
			{
				ID:           "sub1",
				Title:        "Acordes",
				EnglishTitle: "Chords",
				Lessons: []Lesson{
					{ID: "les1", Title: "Mayores", EnglishTitle: "Major Chords"},
					{ID: "les2", Title: "Menores", EnglishTitle: "Minor Chords"},
				},
			},
		}},
		NumSubtopics: 1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// ------------------------------------------------------------------------
// tests

func TestGenerateObjective(t *testing.T) {
	ctx := context.Background()
	in := GenerateObjectiveInput{
		Topic:        "Gen Sobre Guitarra",
		EnglishTopic: "Guitar Basics",
		Language:     "es",
		LanguageName: "Spanish",
		NativeName:   "Español",
	}

	t.Run("creates active course with thumbnail", func(t *testing.T) {
		svc, d := newTestService()
		d.ai.textResp = "**Objective 1**\nObjective 2"
		d.thumbs.url = "https://images.pexels.com/photo.jpg"

		crs, err := svc.GenerateObjective(ctx, "user1", in)
		require.NoError(t, err)
		assert.NotEmpty(t, crs.ID)
		assert.Equal(t, "user1", crs.UserID)
		assert.Equal(t, StatusActive, crs.Status)
		assert.Equal(t, "Objective 1\nObjective 2", crs.Objective)
		assert.Equal(t, "https://images.pexels.com/photo.jpg", crs.ThumbnailURL)

		stored, err := d.repo.GetCourse(ctx, crs.ID, "user1")
		require.NoError(t, err)
		assert.Equal(t, crs.Objective, stored.Objective)
	})

	t.Run("thumbnail failure does not block creation", func(t *testing.T) {
		svc, d := newTestService()
		d.ai.textResp = "objectives"
		d.thumbs.err = errors.New("pexels down")

		crs, err := svc.GenerateObjective(ctx, "user1", in)
		require.NoError(t, err)
		assert.Empty(t, crs.ThumbnailURL)
	})
}

func TestGenerateIndex(t *testing.T) {
	ctx := context.Background()

	crs := testCourse("user1")
	crs.Index = Index{}
	crs.NumSubtopics = 0

	svc, d := newTestService(crs)
	d.ai.jsonResp = `{"subtopics": [
		{"title": "Acordes", "englishTitle": "Chords", "lessons": [
			{"title": "Mayores", "englishTitle": "Major Chords"},
			{"title": "Menores", "englishTitle": "Minor Chords"}
		]},
		{"title": "Ritmo", "englishTitle": "Rhythm", "lessons": [
			{"title": "Compás", "englishTitle": "Time Signatures"}
		]}
	]}`

	in := GenerateIndexInput{
		CourseID:     crs.ID,
		NumSubtopics: 2,
		CustomLessons: []CustomLesson{
			{SubtopicIndex: 0, Title: "Séptimas"},      // new, gets appended
			{SubtopicIndex: 1, Title: "compás"},        // duplicate ignoring case, skipped
			{SubtopicIndex: 5, Title: "Fuera de rango"}, // bad index, skipped
		},
	}

	updated, err := svc.GenerateIndex(ctx, "user1", in)
	require.NoError(t, err)
	require.Len(t, updated.Index.Subtopics, 2)
	assert.Equal(t, 2, updated.NumSubtopics)

	first := updated.Index.Subtopics[0]
	require.Len(t, first.Lessons, 3)
	assert.Equal(t, "Séptimas", first.Lessons[2].Title)
	assert.Equal(t, "Séptimas", first.Lessons[2].EnglishTitle)

	// the case-insensitive duplicate was not added
	require.Len(t, updated.Index.Subtopics[1].Lessons, 1)

	for _, sub := range updated.Index.Subtopics {
		assert.NotEmpty(t, sub.ID)
		for _, lesson := range sub.Lessons {
			assert.NotEmpty(t, lesson.ID)
		}
	}
}

func TestGenerateLessonContent(t *testing.T) {
	ctx := context.Background()
	ref := LessonRef{SubtopicID: "sub1", LessonID: "les1"}

	t.Run("first call generates content and video", func(t *testing.T) {
		crs := testCourse("user1")
		ref := LessonRef{CourseID: crs.ID, SubtopicID: "sub1", LessonID: "les1"}
		svc, d := newTestService(crs)
		d.ai.textResp = "## Welcome\nLesson body"
		d.videos.results = []core.VideoResult{
			{ID: "abc123", Title: "Guitar Basics for beginners", ChannelID: "ch1", ChannelTitle: "GuitarTeacher"},
		}

		lesson, err := svc.GenerateLessonContent(ctx, "user1", ref)
		require.NoError(t, err)
		assert.Equal(t, "Welcome\nLesson body", lesson.Content)
		assert.Equal(t, "https://www.youtube.com/embed/abc123", lesson.VideoURL)
		assert.Equal(t, "GuitarTeacher", lesson.VideoChannelTitle)
		assert.True(t, lesson.IsCompleted)
		assert.Equal(t, 0, lesson.VideoChangeCount)
		require.Len(t, lesson.VideoHistory, 1)
		assert.Equal(t, lesson.VideoURL, lesson.VideoHistory[0].VideoURL)
	})

	t.Run("second call is idempotent", func(t *testing.T) {
		crs := testCourse("user1")
		ref := LessonRef{CourseID: crs.ID, SubtopicID: "sub1", LessonID: "les1"}
		svc, d := newTestService(crs)
		d.ai.textResp = "Lesson body"
		d.videos.results = []core.VideoResult{{ID: "abc123", Title: "t", ChannelID: "ch1", ChannelTitle: "c"}}

		first, err := svc.GenerateLessonContent(ctx, "user1", ref)
		require.NoError(t, err)

		second, err := svc.GenerateLessonContent(ctx, "user1", ref)
		require.NoError(t, err)
		assert.Equal(t, first.Content, second.Content)
		assert.Equal(t, first.VideoURL, second.VideoURL)
		assert.True(t, second.IsCompleted)
		assert.Equal(t, 1, d.ai.textCalls)
		assert.Equal(t, 1, d.videos.calls)
	})

	t.Run("video search failure still saves content", func(t *testing.T) {
		crs := testCourse("user1")
		ref := LessonRef{CourseID: crs.ID, SubtopicID: "sub1", LessonID: "les1"}
		svc, d := newTestService(crs)
		d.ai.textResp = "Lesson body"
		d.videos.err = errors.New("quota exceeded")

		lesson, err := svc.GenerateLessonContent(ctx, "user1", ref)
		require.NoError(t, err)
		assert.Equal(t, "Lesson body", lesson.Content)
		assert.Empty(t, lesson.VideoURL)
		assert.Empty(t, lesson.VideoHistory)
	})

	t.Run("unknown lesson", func(t *testing.T) {
		crs := testCourse("user1")
		svc, _ := newTestService(crs)

		_, err := svc.GenerateLessonContent(ctx, "user1", LessonRef{CourseID: crs.ID, SubtopicID: "sub1", LessonID: "nope"})
		assert.True(t, errors.Is(err, ErrLessonNotFound))
	})

	t.Run("another user's course", func(t *testing.T) {
		crs := testCourse("user1")
		svc, _ := newTestService(crs)

		badRef := ref
		badRef.CourseID = crs.ID
		_, err := svc.GenerateLessonContent(ctx, "intruder", badRef)
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}

func TestChangeLessonVideo(t *testing.T) {
	ctx := context.Background()

	generated := func() Course {
		crs := testCourse("user1")
		lesson := &crs.Index.Subtopics[0].Lessons[0]
		lesson.Content = "body"
		lesson.VideoURL = "https://www.youtube.com/embed/old1"
		lesson.VideoChannelID = "ch0"
		lesson.VideoChannelTitle = "OldChannel"
		lesson.VideoHistory = []VideoRef{lesson.currentVideo()}
		return crs
	}

	t.Run("prefers unseen video matching the topic", func(t *testing.T) {
		crs := generated()
		ref := LessonRef{CourseID: crs.ID, SubtopicID: "sub1", LessonID: "les1"}
		svc, d := newTestService(crs)
		d.videos.results = []core.VideoResult{
			{ID: "old1", Title: "Guitar Basics old", ChannelID: "ch0", ChannelTitle: "OldChannel"}, // already seen
			{ID: "new1", Title: "unrelated clip", ChannelID: "ch1", ChannelTitle: "Someone"},
			{ID: "new2", Title: "Guitar Basics deep dive", ChannelID: "ch2", ChannelTitle: "GuitarPro"},
		}

		lesson, err := svc.ChangeLessonVideo(ctx, "user1", ref)
		require.NoError(t, err)
		assert.Equal(t, "https://www.youtube.com/embed/new2", lesson.VideoURL)
		assert.Equal(t, 1, lesson.VideoChangeCount)
		require.Len(t, lesson.VideoHistory, 2)
		assert.Equal(t, "https://www.youtube.com/embed/new2", lesson.VideoHistory[1].VideoURL)
	})

	t.Run("falls back to any unseen video", func(t *testing.T) {
		crs := generated()
		ref := LessonRef{CourseID: crs.ID, SubtopicID: "sub1", LessonID: "les1"}
		svc, d := newTestService(crs)
		d.videos.results = []core.VideoResult{
			{ID: "new1", Title: "unrelated clip", ChannelID: "ch1", ChannelTitle: "Someone"},
		}

		lesson, err := svc.ChangeLessonVideo(ctx, "user1", ref)
		require.NoError(t, err)
		assert.Equal(t, "https://www.youtube.com/embed/new1", lesson.VideoURL)
	})

	t.Run("no unseen candidates", func(t *testing.T) {
		crs := generated()
		ref := LessonRef{CourseID: crs.ID, SubtopicID: "sub1", LessonID: "les1"}
		svc, d := newTestService(crs)
		d.videos.results = []core.VideoResult{
			{ID: "old1", Title: "Guitar Basics old", ChannelID: "ch0", ChannelTitle: "OldChannel"},
		}

		_, err := svc.ChangeLessonVideo(ctx, "user1", ref)
		assert.True(t, errors.Is(err, ErrNoNewVideo))
	})

	t.Run("change limit reached", func(t *testing.T) {
		crs := generated()
		crs.Index.Subtopics[0].Lessons[0].VideoChangeCount = MaxVideoChanges
		ref := LessonRef{CourseID: crs.ID, SubtopicID: "sub1", LessonID: "les1"}
		svc, d := newTestService(crs)
		d.videos.results = []core.VideoResult{{ID: "newX", Title: "t", ChannelID: "c", ChannelTitle: "ct"}}

		_, err := svc.ChangeLessonVideo(ctx, "user1", ref)
		assert.True(t, errors.Is(err, ErrVideoChangeLimit))
		assert.Equal(t, 0, d.videos.calls)
	})

	t.Run("limit enforced across successive changes", func(t *testing.T) {
		crs := generated()
		ref := LessonRef{CourseID: crs.ID, SubtopicID: "sub1", LessonID: "les1"}
		svc, d := newTestService(crs)

		for i := 1; i <= MaxVideoChanges; i++ {
			d.videos.results = []core.VideoResult{
				{ID: uuid.New().String(), Title: "Guitar Basics", ChannelID: "ch", ChannelTitle: "c"},
			}
			lesson, err := svc.ChangeLessonVideo(ctx, "user1", ref)
			require.NoError(t, err)
			assert.Equal(t, i, lesson.VideoChangeCount)
		}

		_, err := svc.ChangeLessonVideo(ctx, "user1", ref)
		assert.True(t, errors.Is(err, ErrVideoChangeLimit))
	})
}

func TestGenerateQuiz(t *testing.T) {
	ctx := context.Background()

	quizJSON := func(n int) string {
		var sb strings.Builder
		sb.WriteString("[")
		for i := 0; i < n; i++ {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(`{"question": "Q", "options": ["a", "b", "c", "d"], "correctAnswer": "a"}`)
		}
		sb.WriteString("]")
		return sb.String()
	}

	t.Run("generates and caches", func(t *testing.T) {
		crs := testCourse("user1")
		svc, d := newTestService(crs)
		d.ai.textResp = quizJSON(10)

		quiz, err := svc.GenerateQuiz(ctx, "user1", crs.ID)
		require.NoError(t, err)
		require.Len(t, quiz, 10)

		again, err := svc.GenerateQuiz(ctx, "user1", crs.ID)
		require.NoError(t, err)
		assert.Equal(t, quiz, again)
		assert.Equal(t, 1, d.ai.textCalls)
	})

	t.Run("question count follows subtopic count", func(t *testing.T) {
		tests := []struct {
			numSubtopics  int
			expectedCount string
		}{
			{1, "10 questions"},
			{5, "10 questions"},
			{10, "20 questions"},
			{15, "20 questions"},
		}
		for _, tt := range tests {
			crs := testCourse("user1")
			crs.NumSubtopics = tt.numSubtopics
			svc, d := newTestService(crs)
			d.ai.textResp = quizJSON(10)

			_, err := svc.GenerateQuiz(ctx, "user1", crs.ID)
			require.NoError(t, err)
			assert.Contains(t, d.ai.lastPrompt, tt.expectedCount)
		}
	})

	t.Run("structure error is distinguishable from format error", func(t *testing.T) {
		crs := testCourse("user1")
		svc, d := newTestService(crs)
		d.ai.textResp = `[{"question": "Q", "options": ["a", "b"], "correctAnswer": "a"}]`

		_, err := svc.GenerateQuiz(ctx, "user1", crs.ID)
		assert.True(t, errors.Is(err, ErrAIStructure))

		d.repo.courses[crs.ID] = crs // reset
		d.ai.textResp = "not json at all"
		_, err = svc.GenerateQuiz(ctx, "user1", crs.ID)
		assert.True(t, errors.Is(err, ErrAIFormat))

		var qerr *QuizError
		assert.True(t, errors.As(err, &qerr))
	})

	t.Run("non-quiz parse failures are not marked as quiz errors", func(t *testing.T) {
		crs := testCourse("user1")
		svc, d := newTestService(crs)
		d.ai.jsonResp = "not json at all"

		_, err := svc.RefineTopic(ctx, RefineTopicInput{Topic: "Guitarra", LanguageName: "Spanish", NativeName: "Español"})
		assert.True(t, errors.Is(err, ErrAIFormat))

		var qerr *QuizError
		assert.False(t, errors.As(err, &qerr))
	})
}

func TestCompleteQuiz(t *testing.T) {
	ctx := context.Background()

	t.Run("passing score completes the course", func(t *testing.T) {
		crs := testCourse("user1")
		svc, _ := newTestService(crs)

		updated, err := svc.CompleteQuiz(ctx, "user1", crs.ID, CompleteQuizInput{Score: 7, TotalQuestions: 10})
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, updated.Status)
		assert.Equal(t, 7, updated.Score)
		require.NotNil(t, updated.CompletionDate)
	})

	t.Run("exactly at the threshold completes", func(t *testing.T) {
		crs := testCourse("user1")
		svc, _ := newTestService(crs)

		updated, err := svc.CompleteQuiz(ctx, "user1", crs.ID, CompleteQuizInput{Score: 6, TotalQuestions: 10})
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, updated.Status)
	})

	t.Run("failing score stays active but records the attempt", func(t *testing.T) {
		crs := testCourse("user1")
		svc, _ := newTestService(crs)

		updated, err := svc.CompleteQuiz(ctx, "user1", crs.ID, CompleteQuizInput{Score: 5, TotalQuestions: 10})
		require.NoError(t, err)
		assert.Equal(t, StatusActive, updated.Status)
		assert.Equal(t, 5, updated.Score)
		require.NotNil(t, updated.CompletionDate)
	})
}

func TestSaveNotes(t *testing.T) {
	ctx := context.Background()
	crs := testCourse("user1")
	svc, d := newTestService(crs)

	notes, err := svc.SaveNotes(ctx, "user1", crs.ID, "remember the pentatonic scale")
	require.NoError(t, err)
	assert.Equal(t, "remember the pentatonic scale", notes)

	stored, err := d.repo.GetCourse(ctx, crs.ID, "user1")
	require.NoError(t, err)
	assert.Equal(t, notes, stored.Notes)
}

func TestUpdateRetriesOnVersionConflict(t *testing.T) {
	ctx := context.Background()
	crs := testCourse("user1")
	svc, d := newTestService(crs)
	d.repo.conflicts = 1

	notes, err := svc.SaveNotes(ctx, "user1", crs.ID, "take two")
	require.NoError(t, err)
	assert.Equal(t, "take two", notes)
	assert.Equal(t, 2, d.repo.updates)
}

func TestChatbotReply(t *testing.T) {
	ctx := context.Background()
	crs := testCourse("user1")
	svc, d := newTestService(crs)
	d.ai.textResp = "**Great question!** Barre chords work like this."

	reply, err := svc.ChatbotReply(ctx, "user1", ChatbotInput{CourseID: crs.ID, UserQuery: "how do barre chords work?"})
	require.NoError(t, err)
	assert.Equal(t, "Great question! Barre chords work like this.", reply)
	assert.Contains(t, d.ai.lastPrompt, "TANISI")
	assert.Contains(t, d.ai.lastPrompt, "how do barre chords work?")
}

func TestGet(t *testing.T) {
	ctx := context.Background()

	crs := testCourse("user1")
	crs.EnglishTopic = ""
	crs.Index.Subtopics[0].EnglishTitle = ""
	crs.Index.Subtopics[0].Lessons[0].EnglishTitle = ""
	svc, _ := newTestService(crs)

	got, err := svc.Get(ctx, "user1", crs.ID)
	require.NoError(t, err)
	assert.Equal(t, got.Topic, got.EnglishTopic)
	assert.Equal(t, got.Index.Subtopics[0].Title, got.Index.Subtopics[0].EnglishTitle)
	assert.Equal(t, got.Index.Subtopics[0].Lessons[0].Title, got.Index.Subtopics[0].Lessons[0].EnglishTitle)

	_, err = svc.Get(ctx, "someone-else", crs.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestQueryFilterClean(t *testing.T) {
	tests := []struct {
		name     string
		in       QueryFilter
		expected QueryFilter
	}{
		{"defaults", QueryFilter{}, QueryFilter{SortBy: "newest", Page: 1, Limit: 20}},
		{
			"valid values pass through",
			QueryFilter{Search: " jazz ", Status: StatusCompleted, SortBy: "oldest", Page: 3, Limit: 50},
			QueryFilter{Search: "jazz", Status: StatusCompleted, SortBy: "oldest", Page: 3, Limit: 50},
		},
		{
			"bogus values reset",
			QueryFilter{Status: "Archived", SortBy: "alphabetical", Page: -1, Limit: 10000},
			QueryFilter{SortBy: "newest", Page: 1, Limit: 20},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.Clean()
			assert.Equal(t, tt.expected, tt.in)
		})
	}
}

func TestQueryFilterOrdering(t *testing.T) {
	assert.Equal(t, "created_at DESC", QueryFilter{SortBy: "newest"}.Ordering().String())
	assert.Equal(t, "created_at ASC", QueryFilter{SortBy: "oldest"}.Ordering().String())
}

func TestExportPDF(t *testing.T) {
	ctx := context.Background()

	crs := testCourse("user1")
	crs.Topic = "Gen: Sobre Guitarra!"
	lesson := &crs.Index.Subtopics[0].Lessons[0]
	lesson.Content = "Line one\nLine two"
	lesson.VideoURL = "https://www.youtube.com/embed/abc"
	lesson.VideoChannelID = "ch1"
	lesson.VideoChannelTitle = "GuitarTeacher"
	lesson.VideoHistory = []VideoRef{lesson.currentVideo()}
	svc, d := newTestService(crs)

	pdf, filename, err := svc.ExportPDF(ctx, "user1", crs.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, pdf)
	assert.Equal(t, "SeekMYCOURSE-Gen__Sobre_Guitarra_.pdf", filename)

	assert.Contains(t, d.pdf.lastHTML, "Gen: Sobre Guitarra!")
	assert.Contains(t, d.pdf.lastHTML, "Line one<br>Line two")
	assert.Contains(t, d.pdf.lastHTML, "https://www.youtube.com/channel/ch1")
}

func TestVerificationData(t *testing.T) {
	ctx := context.Background()

	completed := testCourse("user1")
	completed.Quiz = make([]QuizQuestion, 10)
	completed.Score = 8
	completed.Status = StatusCompleted
	done := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	completed.CompletionDate = &done

	svc, d := newTestService(completed)
	d.users.users["user1"] = user.User{ID: "user1", FirstName: "Jane", LastName: "Doe"}

	t.Run("valid certificate", func(t *testing.T) {
		v, err := svc.VerificationData(ctx, completed.ID, "user1")
		require.NoError(t, err)
		assert.Equal(t, "Jane", v.User.FirstName)
		assert.Equal(t, "Doe", v.User.LastName)
		assert.Equal(t, completed.Topic, v.Course.Topic)
		assert.Equal(t, 80.0, v.Course.PercentageScored)
		assert.Equal(t, done, v.Course.CompletionDate)
	})

	t.Run("owner mismatch looks like a missing course", func(t *testing.T) {
		_, err := svc.VerificationData(ctx, completed.ID, "someone-else")
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("unknown course", func(t *testing.T) {
		_, err := svc.VerificationData(ctx, uuid.New().String(), "user1")
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}
