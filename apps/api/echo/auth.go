package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/seekmycourse/backend/core"
	"github.com/seekmycourse/backend/core/user"
)

var (
	// appJWTConfig is the default JWT auth middleware config.
	appJWTConfig = middleware.JWTConfig{
		SigningKey:    core.Conf.SecretKey,
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    "userToken",
		Claims:        new(Claims),
	}
	contextUserKey = "user"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Email string `json:"email,omitempty"`
}

func GetUserClaims(usr user.User) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.New().String(), // timestamps have second resolution; the jti keeps back-to-back tokens distinct
			Issuer:    core.Conf.AppName,
			Subject:   usr.ID,
			ExpiresAt: now.Add(core.Conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Email: usr.Email,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(appJWTConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(appJWTConfig.SigningKey)
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(appJWTConfig.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextUser(ctx echo.Context, svc *user.Service) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.User{}, errors.Wrap(err, "getting context claims")
	}

	usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

// sessionMiddleware enforces the single active session policy: a token that
// validates but no longer matches the user's stored session token is rejected.
// It must be registered after the JWT middleware.
func sessionMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			token, ok := ctx.Get(appJWTConfig.ContextKey).(*jwt.Token)
			if !ok {
				return errUnauthorized
			}

			usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
			if err != nil {
				return errUnauthorized
			}
			if usr.ActiveSession == nil || usr.ActiveSession.Token != token.Raw {
				return errSessionRevoked
			}

			ctx.Set(contextUserKey, usr)
			return next(ctx)
		}
	}
}

func sessionExpired(session *user.Session) bool {
	return time.Now().After(session.CreatedAt.Add(core.Conf.Server.JWTExpirationDelta))
}

// startSession issues a signed token for usr and stores it as the single
// active session, stamping lastLogin.
func startSession(ctx echo.Context, svc *user.Service, usr user.User, device, location string) (string, user.User, error) {
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		return "", user.User{}, errors.Wrap(err, "generating token")
	}

	usr, err = svc.SetActiveSession(ctx.Request().Context(), usr, user.Session{
		Token:     token,
		IPAddress: ctx.RealIP(),
		Device:    device,
		Location:  location,
	})
	if err != nil {
		return "", user.User{}, errors.Wrap(err, "setting active session")
	}
	return token, usr, nil
}

func authenticate(ctx echo.Context, svc *user.Service, email, pwd string) (user.User, error) {
	usr, err := svc.GetByEmail(ctx.Request().Context(), email)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, errAuthenticationFailed
		}
		return user.User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return user.User{}, errAuthenticationFailed
	}
	if !usr.IsPhoneVerified {
		return user.User{}, errPhoneNotVerified
	}
	if !usr.IsEmailVerified {
		return user.User{}, errEmailNotVerified
	}
	return usr, nil
}
