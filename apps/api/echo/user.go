package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/seekmycourse/backend/core"
	"github.com/seekmycourse/backend/core/user"
)

type userApi struct {
	svc *user.Service
}

func registerUserAPI(g *echo.Group, jwt, session echo.MiddlewareFunc, svc *user.Service) {
	api := userApi{svc: svc}

	ug := g.Group("/users")

	// un-authed endpoints
	// TODO: rate limit `/password-reset` & the OTP endpoints
	ug.POST("/register", api.register)
	ug.POST("/login", api.login)
	ug.POST("/force-login", api.forceLogin)
	ug.POST("/verify-phone", api.verifyPhone)
	ug.POST("/verify-email", api.verifyEmail)
	ug.POST("/resend-phone-otp", api.resendPhoneOTP)
	ug.POST("/resend-email-otp", api.resendEmailOTP)
	ug.POST("/update-phone", api.updatePhone)
	ug.POST("/update-email", api.updateEmail)
	ug.POST("/check-email", api.checkEmail)
	ug.POST("/check-phone", api.checkPhone)
	ug.POST("/password-reset", api.resetPassword)
	ug.POST("/password-reset-confirm", api.confirmPasswordReset)

	// authed endpoints
	ag := ug.Group("", jwt, session)
	ag.POST("/logout", api.logout)
	ag.GET("/me", api.me)
	ag.PUT("/me", api.updateMe)
}

// Handlers

func (api *userApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) login(ctx echo.Context) error {
	return api.doLogin(ctx, false)
}

// forceLogin replaces any existing session instead of conflicting.
func (api *userApi) forceLogin(ctx echo.Context) error {
	return api.doLogin(ctx, true)
}

func (api *userApi) doLogin(ctx echo.Context, force bool) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	usr, err := authenticate(ctx, api.svc, data.Email, data.Password)
	if err != nil {
		return err
	}

	// single active session: an unexpired session on another device conflicts,
	// an expired one is silently replaced
	if !force && usr.ActiveSession != nil && !sessionExpired(usr.ActiveSession) {
		return &sessionConflictError{Session: *usr.ActiveSession}
	}

	token, usr, err := startSession(ctx, api.svc, usr, data.Device, data.Location)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: usr})
}

func (api *userApi) logout(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if _, err = api.svc.ClearActiveSession(ctx.Request().Context(), usr); err != nil {
		return errors.Wrap(err, "clearing active session")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Logged out."})
}

func (api *userApi) verifyPhone(ctx echo.Context) error {
	var data OTPCheckRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to OTPCheckRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	usr, err := api.svc.VerifyPhone(ctx.Request().Context(), data.Email, data.Code)
	if err != nil {
		return errors.Wrap(err, "verifying phone")
	}
	return ctx.JSON(http.StatusOK, usr)
}

// verifyEmail completes registration: the email OTP is checked and, on
// success, the first session token is issued right away.
func (api *userApi) verifyEmail(ctx echo.Context) error {
	var data OTPCheckRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to OTPCheckRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	usr, err := api.svc.VerifyEmail(ctx.Request().Context(), data.Email, data.Code)
	if err != nil {
		return errors.Wrap(err, "verifying email")
	}

	token, usr, err := startSession(ctx, api.svc, usr, data.Device, data.Location)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: usr})
}

func (api *userApi) resendPhoneOTP(ctx echo.Context) error {
	var data EmailRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EmailRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := api.svc.ResendPhoneOTP(ctx.Request().Context(), data.Email); err != nil {
		return errors.Wrap(err, "resending phone OTP")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "OTP sent."})
}

func (api *userApi) resendEmailOTP(ctx echo.Context) error {
	var data EmailRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EmailRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	usr, err := api.svc.GetByEmail(ctx.Request().Context(), data.Email)
	if err != nil {
		return errors.Wrap(err, "finding user by email")
	}
	if err = api.svc.SendEmailOTP(ctx.Request().Context(), usr); err != nil {
		return errors.Wrap(err, "sending email OTP")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "OTP sent."})
}

func (api *userApi) updatePhone(ctx echo.Context) error {
	var data UpdatePhoneRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePhoneRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	usr, err := api.svc.UpdatePhoneNumber(ctx.Request().Context(), data.Email, data.PhoneNumber)
	if err != nil {
		return errors.Wrap(err, "updating phone number")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) updateEmail(ctx echo.Context) error {
	var data UpdateEmailRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEmailRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	usr, err := api.svc.UpdateEmail(ctx.Request().Context(), data.Email, data.NewEmail)
	if err != nil {
		return errors.Wrap(err, "updating email")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) checkEmail(ctx echo.Context) error {
	var data EmailRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EmailRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	exists, err := api.svc.EmailExists(ctx.Request().Context(), data.Email)
	if err != nil {
		return errors.Wrap(err, "checking email existence")
	}
	return ctx.JSON(http.StatusOK, ExistsResponse{Exists: exists})
}

func (api *userApi) checkPhone(ctx echo.Context) error {
	var data PhoneRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PhoneRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	exists, err := api.svc.PhoneExists(ctx.Request().Context(), data.PhoneNumber)
	if err != nil {
		return errors.Wrap(err, "checking phone existence")
	}
	return ctx.JSON(http.StatusOK, ExistsResponse{Exists: exists})
}

func (api *userApi) resetPassword(ctx echo.Context) error {
	var data EmailRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EmailRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); !(err == nil || errors.Cause(err) == user.ErrNotFound) {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *userApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if _, err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *userApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) updateMe(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data user.UpdateProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	usr, err = api.svc.UpdateProfile(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, usr)
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
		Device   string `json:"device"`
		Location string `json:"location"`
	}

	LoginResponse struct {
		Token string    `json:"token"`
		User  user.User `json:"user"`
	}

	OTPCheckRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Code     string `json:"code" validate:"required"`
		Device   string `json:"device"`
		Location string `json:"location"`
	}

	EmailRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	PhoneRequest struct {
		PhoneNumber string `json:"phone_number" validate:"required,phone"`
	}

	UpdatePhoneRequest struct {
		Email       string `json:"email" validate:"required,email"`
		PhoneNumber string `json:"phone_number" validate:"required,phone"`
	}

	UpdateEmailRequest struct {
		Email    string `json:"email" validate:"required,email"`
		NewEmail string `json:"new_email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	ExistsResponse struct {
		Exists bool `json:"exists"`
	}
)

func (lr *LoginRequest) Validate() error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return core.Validate.Struct(lr)
}

func (r *OTPCheckRequest) Validate() error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	r.Code = core.CleanString(r.Code)
	return core.Validate.Struct(r)
}

func (r *EmailRequest) Validate() error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	return core.Validate.Struct(r)
}

func (r *PhoneRequest) Validate() error {
	r.PhoneNumber = core.CleanString(r.PhoneNumber)
	return core.Validate.Struct(r)
}

func (r *UpdatePhoneRequest) Validate() error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	r.PhoneNumber = core.CleanString(r.PhoneNumber)
	return core.Validate.Struct(r)
}

func (r *UpdateEmailRequest) Validate() error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	r.NewEmail = core.CleanString(r.NewEmail, true /* lower */)
	return core.Validate.Struct(r)
}
