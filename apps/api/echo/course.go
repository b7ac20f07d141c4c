package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/seekmycourse/backend/core"
	"github.com/seekmycourse/backend/core/course"
)

type courseApi struct {
	svc *course.Service
}

func registerCourseAPI(g *echo.Group, jwt, session echo.MiddlewareFunc, svc *course.Service) {
	api := courseApi{svc: svc}

	cg := g.Group("/courses")

	// public certificate verification
	cg.GET("/verify/:courseId/:userId", api.verify)

	// authed endpoints
	ag := cg.Group("", jwt, session)
	ag.POST("/refine-topic", api.refineTopic)
	ag.POST("/refine-lesson", api.refineLesson)
	ag.POST("/generate-objective", api.generateObjective)
	ag.POST("/generate-outcome", api.generateOutcome)
	ag.POST("/generate-index", api.generateIndex)
	ag.POST("/lessons/generate", api.generateLesson)
	ag.POST("/lessons/change-video", api.changeLessonVideo)
	ag.POST("/chatbot", api.chatbot)
	ag.POST("/quiz/generate", api.generateQuiz)
	ag.PUT("/:id/notes", api.saveNotes)
	ag.PUT("/:id/complete-quiz", api.completeQuiz)
	ag.GET("", api.query)
	ag.GET("/:id", api.retrieve)
	ag.GET("/:id/export", api.export)
}

// Handlers

func (api *courseApi) refineTopic(ctx echo.Context) error {
	var data course.RefineTopicInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RefineTopicInput")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	suggestions, err := api.svc.RefineTopic(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "refining topic")
	}
	return ctx.JSON(http.StatusOK, SuggestionsResponse{Suggestions: suggestions})
}

func (api *courseApi) refineLesson(ctx echo.Context) error {
	var data course.RefineLessonInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RefineLessonInput")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	suggestions, err := api.svc.RefineLesson(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "refining lesson")
	}
	return ctx.JSON(http.StatusOK, SuggestionsResponse{Suggestions: suggestions})
}

func (api *courseApi) generateObjective(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data course.GenerateObjectiveInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GenerateObjectiveInput")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	crs, err := api.svc.GenerateObjective(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "generating objective")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) generateOutcome(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data course.GenerateOutcomeInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GenerateOutcomeInput")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	crs, err := api.svc.GenerateOutcome(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "generating outcome")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) generateIndex(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data course.GenerateIndexInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GenerateIndexInput")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	crs, err := api.svc.GenerateIndex(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "generating index")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) generateLesson(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data course.LessonRef
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LessonRef")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	lesson, err := api.svc.GenerateLessonContent(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "generating lesson content")
	}
	return ctx.JSON(http.StatusOK, lesson)
}

func (api *courseApi) changeLessonVideo(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data course.LessonRef
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LessonRef")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	lesson, err := api.svc.ChangeLessonVideo(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "changing lesson video")
	}
	return ctx.JSON(http.StatusOK, lesson)
}

func (api *courseApi) chatbot(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data course.ChatbotInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChatbotInput")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	reply, err := api.svc.ChatbotReply(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "getting chatbot reply")
	}
	return ctx.JSON(http.StatusOK, ChatbotResponse{Reply: reply})
}

func (api *courseApi) generateQuiz(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data GenerateQuizRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GenerateQuizRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	quiz, err := api.svc.GenerateQuiz(ctx.Request().Context(), claims.Subject, data.CourseID)
	if err != nil {
		return errors.Wrap(err, "generating quiz")
	}
	return ctx.JSON(http.StatusOK, QuizResponse{Quiz: quiz})
}

func (api *courseApi) saveNotes(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data NotesRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NotesRequest")
	}

	notes, err := api.svc.SaveNotes(ctx.Request().Context(), claims.Subject, ctx.Param("id"), data.Notes)
	if err != nil {
		return errors.Wrap(err, "saving notes")
	}
	return ctx.JSON(http.StatusOK, NotesRequest{Notes: notes})
}

func (api *courseApi) completeQuiz(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data course.CompleteQuizInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CompleteQuizInput")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	crs, err := api.svc.CompleteQuiz(ctx.Request().Context(), claims.Subject, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "completing quiz")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var filter course.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}

	page, err := api.svc.Filter(ctx.Request().Context(), claims.Subject, filter)
	if err != nil {
		return errors.Wrap(err, "filtering courses")
	}
	return ctx.JSON(http.StatusOK, page)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	crs, err := api.svc.Get(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding course by ID")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) export(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	pdf, filename, err := api.svc.ExportPDF(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "exporting course")
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return ctx.Blob(http.StatusOK, "application/pdf", pdf)
}

func (api *courseApi) verify(ctx echo.Context) error {
	v, err := api.svc.VerificationData(ctx.Request().Context(), ctx.Param("courseId"), ctx.Param("userId"))
	if err != nil {
		return errors.Wrap(err, "verifying course completion")
	}
	return ctx.JSON(http.StatusOK, v)
}

type (
	SuggestionsResponse struct {
		Suggestions []course.TitleSuggestion `json:"suggestions"`
	}

	ChatbotResponse struct {
		Reply string `json:"reply"`
	}

	GenerateQuizRequest struct {
		CourseID string `json:"course_id" validate:"required"`
	}

	QuizResponse struct {
		Quiz []course.QuizQuestion `json:"quiz"`
	}

	NotesRequest struct {
		Notes string `json:"notes"`
	}
)

func (r *GenerateQuizRequest) Validate() error {
	r.CourseID = core.CleanString(r.CourseID)
	return core.Validate.Struct(r)
}
