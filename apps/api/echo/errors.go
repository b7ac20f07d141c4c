package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/seekmycourse/backend/core"
	"github.com/seekmycourse/backend/core/course"
	"github.com/seekmycourse/backend/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errSessionRevoked       = echo.NewHTTPError(http.StatusUnauthorized, "session is no longer active")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "invalid credentials")
	errPhoneNotVerified     = echo.NewHTTPError(http.StatusForbidden, "phone number not verified")
	errEmailNotVerified     = echo.NewHTTPError(http.StatusForbidden, "email address not verified")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// sessionConflictError is returned on login when an unexpired session already
// exists on another device. The payload carries the existing session details
// so the client can offer a force-login.
type sessionConflictError struct {
	Session user.Session
}

func (e *sessionConflictError) Error() string {
	return "an active session already exists on another device"
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(core.Translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *sessionConflictError:
			code = http.StatusConflict
			message = echo.Map{"error": origErr.Error(), "session": origErr.Session}
		default:
			code, message = mapDomainError(origErr)
			if code == http.StatusInternalServerError {
				var usr user.User
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					usr.ID = claims.Subject
					usr.Email = claims.Email
				}
				msg := http.StatusText(code)
				logger.Error(msg, errors.Wrap(err, msg), usr)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

// mapDomainError translates service errors into an HTTP status and message.
// Quiz generation failures keep their message keys so the frontend can
// localize them; anything unrecognized is a server error.
func mapDomainError(err error) (int, string) {
	for _, target := range []error{
		user.ErrNotFound, course.ErrNotFound, course.ErrSubtopicNotFound, course.ErrLessonNotFound,
		course.ErrNoNewVideo,
	} {
		if errors.Is(err, target) {
			return http.StatusNotFound, target.Error()
		}
	}
	for _, target := range []error{
		user.ErrOTPInvalid, user.ErrResetTokenInvalid, user.ErrPhoneNotVerified,
		core.ErrPhoneInvalid, core.ErrPhoneFraudulent,
		course.ErrVideoChangeLimit,
	} {
		if errors.Is(err, target) {
			return http.StatusBadRequest, target.Error()
		}
	}
	for _, target := range []error{user.ErrEmailExists, user.ErrPhoneExists, course.ErrVersionConflict} {
		if errors.Is(err, target) {
			return http.StatusConflict, target.Error()
		}
	}
	var qerr *course.QuizError
	if errors.As(err, &qerr) {
		if errors.Is(err, course.ErrAIFormat) {
			return http.StatusInternalServerError, "errors.quiz_generation_failed_format"
		}
		return http.StatusInternalServerError, "errors.quiz_generation_failed_structure"
	}
	return http.StatusInternalServerError, "errors.generic"
}
