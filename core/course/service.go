package course

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/seekmycourse/backend/core"
	"github.com/seekmycourse/backend/core/user"
)

var (
	// ErrNotFound is returned for a missing course or one owned by another user.
	ErrNotFound         = errors.New("course not found")
	ErrSubtopicNotFound = errors.New("subtopic not found")
	ErrLessonNotFound   = errors.New("lesson not found")

	// ErrVideoChangeLimit means the lesson's video swap allowance is used up.
	ErrVideoChangeLimit = errors.New("video can only be changed 3 times per lesson")
	// ErrNoNewVideo means no unwatched candidate came back from the search.
	ErrNoNewVideo = errors.New("could not find a new video")

	// ErrVersionConflict is returned by repositories when a concurrent update
	// bumped the course version between read and write.
	ErrVersionConflict = errors.New("course version conflict")
)

// maxUpdateRetries bounds re-reads after a version conflict.
const maxUpdateRetries = 2

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		// GetCourse scopes the lookup to the owning user.
		GetCourse(ctx context.Context, courseID, userID string) (Course, error)
		GetCourseByID(ctx context.Context, courseID string) (Course, error)
		FilterCourses(ctx context.Context, userID string, qf QueryFilter) (Page, error)
		// UpdateCourse persists the whole document if crs.Version still matches
		// the stored one, then bumps it. Returns ErrVersionConflict otherwise.
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
	}

	// UserGetter resolves course owners for certificate verification.
	UserGetter interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	Service struct {
		repo   Repository
		ai     core.TextGenerator
		videos core.VideoSearcher
		thumbs core.ThumbnailSearcher
		pdf    core.PDFRenderer
		users  UserGetter
		log    core.Logger
	}
)

func NewService(
	repo Repository,
	ai core.TextGenerator,
	videos core.VideoSearcher,
	thumbs core.ThumbnailSearcher,
	pdf core.PDFRenderer,
	users UserGetter,
	logger core.Logger,
) *Service {
	return &Service{
		repo:   repo,
		ai:     ai,
		videos: videos,
		thumbs: thumbs,
		pdf:    pdf,
		users:  users,
		log:    logger,
	}
}

// update applies mutate to a freshly loaded course and persists it,
// re-reading and re-applying on version conflicts.
func (svc *Service) update(ctx context.Context, courseID, userID string, mutate func(crs *Course) error) (Course, error) {
	for attempt := 0; ; attempt++ {
		crs, err := svc.repo.GetCourse(ctx, courseID, userID)
		if err != nil {
			return Course{}, err
		}
		if err = mutate(&crs); err != nil {
			return Course{}, err
		}
		crs.UpdatedAt = time.Now().UTC()

		updated, err := svc.repo.UpdateCourse(ctx, crs)
		if errors.Is(err, ErrVersionConflict) && attempt < maxUpdateRetries {
			continue
		}
		if err != nil {
			return Course{}, errors.Wrap(err, "updating course")
		}
		return updated, nil
	}
}

// RefineTopic asks for three improved bilingual course titles.
func (svc *Service) RefineTopic(ctx context.Context, in RefineTopicInput) ([]TitleSuggestion, error) {
	raw, err := svc.ai.GenerateJSON(ctx, refineTopicPrompt(in.Topic, in.LanguageName, in.NativeName))
	if err != nil {
		return nil, errors.Wrap(err, "generating topic suggestions")
	}
	suggestions, err := decodeSuggestions(raw)
	if err != nil {
		svc.logParseError("topic suggestions", err)
		return nil, err
	}
	return suggestions, nil
}

// RefineLesson asks for three improved bilingual lesson titles.
func (svc *Service) RefineLesson(ctx context.Context, in RefineLessonInput) ([]TitleSuggestion, error) {
	raw, err := svc.ai.GenerateJSON(ctx, refineLessonPrompt(in))
	if err != nil {
		return nil, errors.Wrap(err, "generating lesson suggestions")
	}
	suggestions, err := decodeSuggestions(raw)
	if err != nil {
		svc.logParseError("lesson suggestions", err)
		return nil, err
	}
	return suggestions, nil
}

// GenerateObjective creates the course document with AI-written learning
// objectives and a best-effort thumbnail.
func (svc *Service) GenerateObjective(ctx context.Context, userID string, in GenerateObjectiveInput) (Course, error) {
	raw, err := svc.ai.GenerateText(ctx, objectivePrompt(in.Topic, in.LanguageName, in.NativeName))
	if err != nil {
		return Course{}, errors.Wrap(err, "generating objectives")
	}

	// thumbnail lookup never blocks course creation
	thumbnailURL, err := svc.thumbs.SearchThumbnail(ctx, in.EnglishTopic)
	if err != nil {
		svc.log.Warn(fmt.Sprintf("thumbnail search failed for %q", in.EnglishTopic), err)
		thumbnailURL = ""
	}

	now := time.Now().UTC()
	crs := Course{
		ID:           uuid.New().String(),
		UserID:       userID,
		Topic:        in.Topic,
		EnglishTopic: in.EnglishTopic,
		Objective:    CleanAIText(raw),
		Language:     in.Language,
		LanguageName: in.LanguageName,
		NativeName:   in.NativeName,
		ThumbnailURL: thumbnailURL,
		Status:       StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	crs, err = svc.repo.CreateCourse(ctx, crs)
	if err != nil {
		return Course{}, errors.Wrap(err, "creating course")
	}
	return crs, nil
}

// GenerateOutcome writes the course's learning outcomes.
func (svc *Service) GenerateOutcome(ctx context.Context, userID string, in GenerateOutcomeInput) (Course, error) {
	crs, err := svc.repo.GetCourse(ctx, in.CourseID, userID)
	if err != nil {
		return Course{}, err
	}
	raw, err := svc.ai.GenerateText(ctx, outcomePrompt(crs.Topic, crs.Objective, crs.LanguageName, crs.NativeName))
	if err != nil {
		return Course{}, errors.Wrap(err, "generating outcomes")
	}
	outcome := CleanAIText(raw)

	return svc.update(ctx, in.CourseID, userID, func(crs *Course) error {
		crs.Outcome = outcome
		return nil
	})
}

// GenerateIndex builds the course index, then merges any user-supplied custom
// lessons into it before saving.
func (svc *Service) GenerateIndex(ctx context.Context, userID string, in GenerateIndexInput) (Course, error) {
	crs, err := svc.repo.GetCourse(ctx, in.CourseID, userID)
	if err != nil {
		return Course{}, err
	}

	raw, err := svc.ai.GenerateJSON(ctx, indexPrompt(crs, in.NumSubtopics))
	if err != nil {
		return Course{}, errors.Wrap(err, "generating index")
	}
	idx, err := decodeIndex(raw)
	if err != nil {
		svc.logParseError("course index", err)
		return Course{}, err
	}

	mergeCustomLessons(&idx, in.CustomLessons)
	assignIndexIDs(&idx)

	return svc.update(ctx, in.CourseID, userID, func(crs *Course) error {
		crs.Index = idx
		crs.NumSubtopics = in.NumSubtopics
		return nil
	})
}

// mergeCustomLessons appends user lessons to their target subtopics, skipping
// case-insensitive title duplicates and out-of-range subtopic indices.
func mergeCustomLessons(idx *Index, custom []CustomLesson) {
	for _, cl := range custom {
		if cl.SubtopicIndex < 0 || cl.SubtopicIndex >= len(idx.Subtopics) {
			continue
		}
		sub := &idx.Subtopics[cl.SubtopicIndex]

		duplicate := false
		for _, lesson := range sub.Lessons {
			if strings.EqualFold(lesson.Title, cl.Title) {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}

		englishTitle := cl.EnglishTitle
		if englishTitle == "" {
			englishTitle = cl.Title
		}
		sub.Lessons = append(sub.Lessons, Lesson{Title: cl.Title, EnglishTitle: englishTitle})
	}
}

func assignIndexIDs(idx *Index) {
	for i := range idx.Subtopics {
		idx.Subtopics[i].ID = uuid.New().String()
		for j := range idx.Subtopics[i].Lessons {
			idx.Subtopics[i].Lessons[j].ID = uuid.New().String()
		}
	}
}

// GenerateLessonContent fills in a lesson's content and tutorial video the
// first time it is opened, and marks it completed. Subsequent calls only flip
// the completion flag; generated material is never overwritten.
func (svc *Service) GenerateLessonContent(ctx context.Context, userID string, ref LessonRef) (Lesson, error) {
	crs, err := svc.repo.GetCourse(ctx, ref.CourseID, userID)
	if err != nil {
		return Lesson{}, err
	}
	lesson, err := locateLesson(&crs, ref)
	if err != nil {
		return Lesson{}, err
	}

	if lesson.generated() {
		updated, err := svc.update(ctx, ref.CourseID, userID, func(crs *Course) error {
			lesson, err := locateLesson(crs, ref)
			if err != nil {
				return err
			}
			lesson.IsCompleted = true
			return nil
		})
		if err != nil {
			return Lesson{}, err
		}
		lesson, err = locateLesson(&updated, ref)
		if err != nil {
			return Lesson{}, err
		}
		return *lesson, nil
	}

	sub := crs.FindSubtopic(ref.SubtopicID)
	video, ok := svc.searchLessonVideo(ctx, crs, *sub, *lesson, nil)

	raw, err := svc.ai.GenerateText(ctx, lessonContentPrompt(crs, *sub, *lesson))
	if err != nil {
		return Lesson{}, errors.Wrap(err, "generating lesson content")
	}
	content := CleanAIText(raw)

	updated, err := svc.update(ctx, ref.CourseID, userID, func(crs *Course) error {
		lesson, err := locateLesson(crs, ref)
		if err != nil {
			return err
		}
		if !lesson.generated() {
			lesson.Content = content
			if ok {
				lesson.VideoURL = video.VideoURL
				lesson.VideoChannelID = video.VideoChannelID
				lesson.VideoChannelTitle = video.VideoChannelTitle
				lesson.VideoHistory = []VideoRef{video}
				lesson.VideoChangeCount = 0
			}
		}
		lesson.IsCompleted = true
		return nil
	})
	if err != nil {
		return Lesson{}, err
	}
	result, err := locateLesson(&updated, ref)
	if err != nil {
		return Lesson{}, err
	}
	return *result, nil
}

// ChangeLessonVideo swaps in a video the learner has not seen yet, up to
// MaxVideoChanges times per lesson.
func (svc *Service) ChangeLessonVideo(ctx context.Context, userID string, ref LessonRef) (Lesson, error) {
	crs, err := svc.repo.GetCourse(ctx, ref.CourseID, userID)
	if err != nil {
		return Lesson{}, err
	}
	lesson, err := locateLesson(&crs, ref)
	if err != nil {
		return Lesson{}, err
	}
	if lesson.VideoChangeCount >= MaxVideoChanges {
		return Lesson{}, ErrVideoChangeLimit
	}

	// seed the history with the current video so it is never offered again
	history := lesson.VideoHistory
	if lesson.VideoURL != "" && !historyContains(history, lesson.VideoURL) {
		history = append(history, lesson.currentVideo())
	}

	sub := crs.FindSubtopic(ref.SubtopicID)
	video, ok := svc.searchLessonVideo(ctx, crs, *sub, *lesson, history)
	if !ok {
		return Lesson{}, ErrNoNewVideo
	}

	updated, err := svc.update(ctx, ref.CourseID, userID, func(crs *Course) error {
		lesson, err := locateLesson(crs, ref)
		if err != nil {
			return err
		}
		if lesson.VideoChangeCount >= MaxVideoChanges {
			return ErrVideoChangeLimit
		}
		if lesson.VideoURL != "" && !lesson.hasVideoInHistory(lesson.VideoURL) {
			lesson.VideoHistory = append(lesson.VideoHistory, lesson.currentVideo())
		}
		lesson.VideoURL = video.VideoURL
		lesson.VideoChannelID = video.VideoChannelID
		lesson.VideoChannelTitle = video.VideoChannelTitle
		lesson.VideoChangeCount++
		lesson.VideoHistory = append(lesson.VideoHistory, video)
		return nil
	})
	if err != nil {
		return Lesson{}, err
	}
	result, err := locateLesson(&updated, ref)
	if err != nil {
		return Lesson{}, err
	}
	return *result, nil
}

// searchLessonVideo finds an embeddable tutorial video, preferring results
// whose title mentions the course topic and skipping anything in exclude.
// A failed or empty search is reported with ok=false, never an error.
func (svc *Service) searchLessonVideo(ctx context.Context, crs Course, sub Subtopic, lesson Lesson, exclude []VideoRef) (VideoRef, bool) {
	crs.BackfillEnglish()
	query := videoSearchQuery(crs, sub, lesson)

	results, err := svc.videos.SearchVideos(ctx, query, 5)
	if err != nil {
		svc.log.Warn(fmt.Sprintf("video search failed for %q", query), err)
		return VideoRef{}, false
	}

	var fallback *core.VideoResult
	for i, v := range results {
		if v.ID == "" || v.ChannelTitle == "" || historyContains(exclude, v.ID) {
			continue
		}
		if strings.Contains(strings.ToLower(v.Title), strings.ToLower(crs.EnglishTopic)) {
			return videoRefFromResult(v), true
		}
		if fallback == nil {
			fallback = &results[i]
		}
	}
	if fallback != nil {
		return videoRefFromResult(*fallback), true
	}
	return VideoRef{}, false
}

func videoRefFromResult(v core.VideoResult) VideoRef {
	return VideoRef{
		VideoURL:          "https://www.youtube.com/embed/" + v.ID,
		VideoChannelID:    v.ChannelID,
		VideoChannelTitle: v.ChannelTitle,
	}
}

func historyContains(history []VideoRef, videoID string) bool {
	for _, v := range history {
		if strings.Contains(v.VideoURL, videoID) {
			return true
		}
	}
	return false
}

func locateLesson(crs *Course, ref LessonRef) (*Lesson, error) {
	sub := crs.FindSubtopic(ref.SubtopicID)
	if sub == nil {
		return nil, ErrSubtopicNotFound
	}
	lesson := sub.FindLesson(ref.LessonID)
	if lesson == nil {
		return nil, ErrLessonNotFound
	}
	return lesson, nil
}

// ChatbotReply answers a student question in the persona of the course tutor.
func (svc *Service) ChatbotReply(ctx context.Context, userID string, in ChatbotInput) (string, error) {
	crs, err := svc.repo.GetCourse(ctx, in.CourseID, userID)
	if err != nil {
		return "", err
	}
	raw, err := svc.ai.GenerateText(ctx, chatbotPrompt(crs, in.UserQuery))
	if err != nil {
		return "", errors.Wrap(err, "generating chatbot response")
	}
	return CleanAIText(raw), nil
}

// SaveNotes overwrites the course's free-form notes.
func (svc *Service) SaveNotes(ctx context.Context, userID, courseID, notes string) (string, error) {
	updated, err := svc.update(ctx, courseID, userID, func(crs *Course) error {
		crs.Notes = notes
		return nil
	})
	if err != nil {
		return "", err
	}
	return updated.Notes, nil
}

// GenerateQuiz returns the course quiz, generating and caching it on first
// call. The question count follows the quiz sizing rule.
func (svc *Service) GenerateQuiz(ctx context.Context, userID, courseID string) ([]QuizQuestion, error) {
	crs, err := svc.repo.GetCourse(ctx, courseID, userID)
	if err != nil {
		return nil, err
	}
	if len(crs.Quiz) > 0 {
		return crs.Quiz, nil
	}

	raw, err := svc.ai.GenerateText(ctx, quizPrompt(crs))
	if err != nil {
		return nil, errors.Wrap(err, "generating quiz")
	}
	quiz, err := decodeQuiz(raw)
	if err != nil {
		svc.logParseError("quiz", err)
		return nil, &QuizError{Err: err}
	}

	if _, err = svc.update(ctx, courseID, userID, func(crs *Course) error {
		if len(crs.Quiz) > 0 {
			quiz = crs.Quiz
			return nil
		}
		crs.Quiz = quiz
		return nil
	}); err != nil {
		return nil, err
	}
	return quiz, nil
}

// CompleteQuiz records a quiz attempt. Scoring at least 60% marks the course
// Completed; a lower score keeps it Active but still stamps the attempt.
func (svc *Service) CompleteQuiz(ctx context.Context, userID, courseID string, in CompleteQuizInput) (Course, error) {
	percentage := float64(in.Score) / float64(in.TotalQuestions) * 100

	return svc.update(ctx, courseID, userID, func(crs *Course) error {
		now := time.Now().UTC()
		crs.Score = in.Score
		crs.CompletionDate = &now
		if percentage >= CompletionThreshold {
			crs.Status = StatusCompleted
		} else {
			crs.Status = StatusActive
		}
		return nil
	})
}

// Get returns one of the user's courses with English titles backfilled.
func (svc *Service) Get(ctx context.Context, userID, courseID string) (Course, error) {
	crs, err := svc.repo.GetCourse(ctx, courseID, userID)
	if err != nil {
		return Course{}, err
	}
	crs.BackfillEnglish()
	return crs, nil
}

// Filter returns one page of the user's courses.
func (svc *Service) Filter(ctx context.Context, userID string, qf QueryFilter) (Page, error) {
	qf.Clean()
	page, err := svc.repo.FilterCourses(ctx, userID, qf)
	if err != nil {
		return Page{}, errors.Wrap(err, "filtering courses")
	}
	return page, nil
}

var filenameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9]`)

// ExportPDF renders the full course as a PDF and returns it with a
// download filename.
func (svc *Service) ExportPDF(ctx context.Context, userID, courseID string) ([]byte, string, error) {
	crs, err := svc.repo.GetCourse(ctx, courseID, userID)
	if err != nil {
		return nil, "", err
	}
	crs.BackfillEnglish()

	html, err := renderExportHTML(crs)
	if err != nil {
		return nil, "", errors.Wrap(err, "rendering course html")
	}
	pdf, err := svc.pdf.RenderHTML(ctx, html)
	if err != nil {
		return nil, "", errors.Wrap(err, "rendering pdf")
	}

	filename := fmt.Sprintf("SeekMYCOURSE-%s.pdf", filenameSanitizer.ReplaceAllString(crs.Topic, "_"))
	return pdf, filename, nil
}

// VerificationData returns the public certificate payload for a course and
// its claimed owner. The lookup is unauthenticated; an owner mismatch is
// indistinguishable from a missing course.
func (svc *Service) VerificationData(ctx context.Context, courseID, userID string) (Verification, error) {
	crs, err := svc.repo.GetCourseByID(ctx, courseID)
	if err != nil {
		return Verification{}, err
	}
	if crs.UserID != userID {
		return Verification{}, ErrNotFound
	}
	owner, err := svc.users.GetByID(ctx, userID)
	if err != nil {
		return Verification{}, ErrNotFound
	}

	percentage := 0.0
	if len(crs.Quiz) > 0 {
		percentage = float64(crs.Score) / float64(len(crs.Quiz)) * 100
	}
	completionDate := time.Now().UTC()
	if crs.CompletionDate != nil {
		completionDate = *crs.CompletionDate
	}

	var v Verification
	v.User.FirstName = owner.FirstName
	v.User.LastName = owner.LastName
	v.Course.Topic = crs.Topic
	v.Course.Objective = crs.Objective
	v.Course.Outcome = crs.Outcome
	v.Course.Index = crs.Index
	v.Course.StartDate = crs.CreatedAt
	v.Course.CompletionDate = completionDate
	v.Course.PercentageScored = percentage
	return v, nil
}

func (svc *Service) logParseError(what string, err error) {
	var perr *ParseError
	if errors.As(err, &perr) {
		svc.log.Error(fmt.Sprintf("failed to parse ai %s: %s", what, perr.Raw), err)
		return
	}
	svc.log.Error(fmt.Sprintf("failed to parse ai %s", what), err)
}
