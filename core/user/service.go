package user

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/seekmycourse/backend/core"
)

var (
	// errors
	ErrNotFound          = errors.New("user not found")
	ErrEmailExists       = errors.New("a user with this email already exists")
	ErrPhoneExists       = errors.New("a user with this phone number already exists")
	ErrOTPInvalid        = errors.New("OTP is invalid or has expired")
	ErrPhoneNotVerified  = errors.New("phone number not verified")
	ErrResetTokenInvalid = errors.New("password reset link is invalid or has expired")
)

type (
	Repository interface {
		// CheckUniqueness returns ErrEmailExists or ErrPhoneExists when a
		// non-excluded user already holds either value.
		CheckUniqueness(ctx context.Context, email, phoneNumber string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		GetUserByPhoneNumber(ctx context.Context, phoneNumber string) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
	}

	Service struct {
		repo  Repository
		mail  core.EmailService
		phone core.PhoneVerifier
		log   core.Logger
	}
)

func NewService(repo Repository, mailSvc core.EmailService, phoneSvc core.PhoneVerifier, logger core.Logger) *Service {
	return &Service{
		repo:  repo,
		mail:  mailSvc,
		phone: phoneSvc,
		log:   logger,
	}
}

func (svc *Service) checkUniqueness(email, phoneNumber string, exclUsers ...User) error {
	if err := svc.repo.CheckUniqueness(context.Background(), email, phoneNumber, exclUsers...); err != nil {
		var field string
		switch err {
		case ErrEmailExists:
			field = "email"
		case ErrPhoneExists:
			field = "phone_number"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

// Register creates a new unverified User and starts phone OTP verification.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		FirstName:       nu.FirstName,
		LastName:        nu.LastName,
		Email:           nu.Email,
		PhoneNumber:     nu.PhoneNumber,
		ProfilePicture:  defaultProfilePicture,
		ExperienceLevel: ExperienceBeginner,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}

	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "creating user")
	}

	if err = svc.phone.StartVerification(ctx, usr.PhoneNumber); err != nil {
		return usr, err
	}
	return usr, nil
}

// VerifyPhone checks a phone OTP; on success the email OTP is sent next.
func (svc *Service) VerifyPhone(ctx context.Context, email, code string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}

	ok, err := svc.phone.CheckVerification(ctx, usr.PhoneNumber, code)
	if err != nil {
		return User{}, errors.Wrap(err, "checking phone verification")
	}
	if !ok {
		return User{}, ErrOTPInvalid
	}

	usr.IsPhoneVerified = true
	usr.UpdatedAt = time.Now().UTC()
	if usr, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return User{}, errors.Wrap(err, "updating user")
	}

	if err = svc.SendEmailOTP(ctx, usr); err != nil {
		return User{}, err
	}
	return usr, nil
}

// SendEmailOTP generates a fresh email OTP and mails it.
func (svc *Service) SendEmailOTP(ctx context.Context, usr User) error {
	otp, err := generateOTP()
	if err != nil {
		return errors.Wrap(err, "generating OTP")
	}

	usr.EmailOTP = otp
	usr.EmailOTPExpires = time.Now().UTC().Add(core.Conf.EmailOTPTimeoutDelta)
	usr.UpdatedAt = time.Now().UTC()
	if _, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return errors.Wrap(err, "updating user")
	}

	svc.mail.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.FullName(), Address: usr.Email}},
		Subject:      "Email Verification OTP",
		TemplateName: "email-otp",
		TemplateData: struct {
			Name    string
			OTP     string
			Expires string
		}{usr.FirstName, otp, usr.EmailOTPExpires.Format(time.RFC1123)},
	})
	return nil
}

// VerifyEmail checks the email OTP and marks the email verified.
func (svc *Service) VerifyEmail(ctx context.Context, email, code string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}

	if usr.EmailOTP == "" || usr.EmailOTP != code || time.Now().UTC().After(usr.EmailOTPExpires) {
		return User{}, ErrOTPInvalid
	}

	usr.IsEmailVerified = true
	usr.EmailOTP = ""
	usr.EmailOTPExpires = time.Time{}
	usr.UpdatedAt = time.Now().UTC()
	if usr, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return User{}, errors.Wrap(err, "updating user")
	}
	return usr, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) GetByPhoneNumber(ctx context.Context, phoneNumber string) (User, error) {
	return svc.repo.GetUserByPhoneNumber(ctx, core.CleanString(phoneNumber))
}

func (svc *Service) EmailExists(ctx context.Context, email string) (bool, error) {
	if _, err := svc.GetByEmail(ctx, email); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (svc *Service) PhoneExists(ctx context.Context, phoneNumber string) (bool, error) {
	if _, err := svc.GetByPhoneNumber(ctx, phoneNumber); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// SetActiveSession installs a fresh session and stamps LastLogin.
func (svc *Service) SetActiveSession(ctx context.Context, usr User, session Session) (User, error) {
	now := time.Now().UTC()
	session.CreatedAt = now
	usr.ActiveSession = &session
	usr.LastLogin = now
	usr.UpdatedAt = now
	return svc.repo.UpdateUser(ctx, usr)
}

// ClearActiveSession drops the current session (logout or expired token).
func (svc *Service) ClearActiveSession(ctx context.Context, usr User) (User, error) {
	usr.ActiveSession = nil
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// UpdateProfile applies self-service profile changes.
func (svc *Service) UpdateProfile(ctx context.Context, usr User, up UpdateProfile) (User, error) {
	usr = up.Apply(usr)
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// UpdatePhoneNumber switches to a new number and restarts verification.
func (svc *Service) UpdatePhoneNumber(ctx context.Context, email, newPhoneNumber string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}

	newPhoneNumber = core.CleanString(newPhoneNumber)
	if err = svc.checkUniqueness(usr.Email, newPhoneNumber, usr); err != nil {
		return User{}, err
	}

	usr.PhoneNumber = newPhoneNumber
	usr.IsPhoneVerified = false
	usr.UpdatedAt = time.Now().UTC()
	if usr, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return User{}, errors.Wrap(err, "updating user")
	}

	if err = svc.phone.StartVerification(ctx, usr.PhoneNumber); err != nil {
		return usr, err
	}
	return usr, nil
}

// ResendPhoneOTP restarts phone verification for the current number.
func (svc *Service) ResendPhoneOTP(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	return svc.phone.StartVerification(ctx, usr.PhoneNumber)
}

// UpdateEmail switches to a new email address and restarts verification.
func (svc *Service) UpdateEmail(ctx context.Context, oldEmail, newEmail string) (User, error) {
	usr, err := svc.GetByEmail(ctx, oldEmail)
	if err != nil {
		return User{}, err
	}

	newEmail = core.CleanString(newEmail, true /* lower */)
	if err = svc.checkUniqueness(newEmail, usr.PhoneNumber, usr); err != nil {
		return User{}, err
	}

	usr.Email = newEmail
	usr.IsEmailVerified = false
	usr.UpdatedAt = time.Now().UTC()
	if usr, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return User{}, errors.Wrap(err, "updating user")
	}

	if err = svc.SendEmailOTP(ctx, usr); err != nil {
		return usr, err
	}
	return usr, nil
}

// RequestPasswordReset emails a signed reset link; silent on unknown email
// is the caller's choice (the API surfaces not-found per the original flow).
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	token, err := MakeToken(usr)
	if err != nil {
		return errors.Wrap(err, "making reset token")
	}

	svc.mail.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.FullName(), Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password-reset",
		TemplateData: struct {
			Name  string
			UID   string
			Token string
		}{usr.FirstName, EncodeUID(usr), token},
	})
	return nil
}

// ResetPassword verifies the reset token and installs the new password.
func (svc *Service) ResetPassword(ctx context.Context, rp ResetUserPassword) (User, error) {
	uid, err := decodeUID(rp.UID)
	if err != nil {
		return User{}, ErrResetTokenInvalid
	}
	usr, err := svc.GetByID(ctx, uid)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrResetTokenInvalid
		}
		return User{}, err
	}
	if err = verifyToken(usr, rp.Token); err != nil {
		return User{}, ErrResetTokenInvalid
	}

	if err = usr.SetPassword(rp.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	usr.ActiveSession = nil // force re-login everywhere
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// generateOTP returns a 6-digit numeric code.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
