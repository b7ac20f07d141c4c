package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/seekmycourse/backend/core"
)

const defaultProfilePicture = "https://i.imgur.com/6b6psnA.png"

// Experience levels
const (
	ExperienceBeginner     = "Beginner"
	ExperienceIntermediate = "Intermediate"
	ExperienceAdvanced     = "Advanced"
)

type (
	// Session is the single active auth session of a User.
	// At most one valid session token exists per user at a time:
	// a new login either invalidates an expired one or is rejected
	// with a conflict carrying these details.
	Session struct {
		Token     string    `json:"-"`
		IPAddress string    `json:"ip_address"`
		Device    string    `json:"device"`
		Location  string    `json:"location"`
		CreatedAt time.Time `json:"created_at"` // UTC
	}

	Address struct {
		Street  string `json:"street"`
		City    string `json:"city"`
		State   string `json:"state"`
		ZipCode string `json:"zip_code"`
		Country string `json:"country"`
	}

	SocialLinks struct {
		Facebook  string `json:"facebook"`
		Instagram string `json:"instagram"`
		Youtube   string `json:"youtube"`
		Twitter   string `json:"twitter"`
		LinkedIn  string `json:"linkedin"`
		Reddit    string `json:"reddit"`
	}

	User struct {
		ID              string     `json:"id"`
		FirstName       string     `json:"first_name"`
		LastName        string     `json:"last_name"`
		Email           string     `json:"email"`
		PhoneNumber     string     `json:"phone_number"`
		PasswordHash    []byte     `json:"-"`
		IsEmailVerified bool       `json:"is_email_verified"`
		IsPhoneVerified bool       `json:"is_phone_verified"`
		EmailOTP        string     `json:"-"`
		EmailOTPExpires time.Time  `json:"-"`
		ActiveSession   *Session   `json:"-"`
		ProfilePicture  string     `json:"profile_picture"`
		DateOfBirth     *time.Time `json:"date_of_birth,omitempty"`
		BillingAddress  Address    `json:"billing_address"`
		About           string     `json:"about"`
		SocialMedia     SocialLinks `json:"social_media"`
		LearningGoals   []string   `json:"learning_goals"`
		ResourceNeeds   []string   `json:"resource_needs"`
		ExperienceLevel string     `json:"experience_level"`
		NewSkillsTarget []string   `json:"new_skills_target"`
		AreasOfInterest []string   `json:"areas_of_interest"`
		CreatedAt       time.Time  `json:"created_at"` // UTC
		UpdatedAt       time.Time  `json:"updated_at"` // UTC
		LastLogin       time.Time  `json:"last_login"` // UTC
	}
)

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) FullName() string {
	return core.CleanString(u.FirstName + " " + u.LastName)
}

// NewUser contains information needed to register a new User.
type NewUser struct {
	FirstName       string `json:"first_name" validate:"required"`
	LastName        string `json:"last_name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	PhoneNumber     string `json:"phone_number" validate:"required,phone"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate(svc *Service) error {
	nu.FirstName = core.CleanString(nu.FirstName)
	nu.LastName = core.CleanString(nu.LastName)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.PhoneNumber = core.CleanString(nu.PhoneNumber)

	if err := core.Validate.Struct(nu); err != nil {
		return err
	}
	return svc.checkUniqueness(nu.Email, nu.PhoneNumber)
}

// UpdateProfile defines what profile information a User may modify themselves.
type UpdateProfile struct {
	FirstName       string      `json:"first_name"`
	LastName        string      `json:"last_name"`
	ProfilePicture  string      `json:"profile_picture" validate:"omitempty,url"`
	DateOfBirth     *time.Time  `json:"date_of_birth"`
	BillingAddress  *Address    `json:"billing_address"`
	About           *string     `json:"about"`
	SocialMedia     *SocialLinks `json:"social_media"`
	LearningGoals   []string    `json:"learning_goals"`
	ResourceNeeds   []string    `json:"resource_needs"`
	ExperienceLevel string      `json:"experience_level" validate:"omitempty,oneof=Beginner Intermediate Advanced"`
	NewSkillsTarget []string    `json:"new_skills_target"`
	AreasOfInterest []string    `json:"areas_of_interest"`
}

func (up *UpdateProfile) Validate() error {
	up.FirstName = core.CleanString(up.FirstName)
	up.LastName = core.CleanString(up.LastName)
	return core.Validate.Struct(up)
}

// Apply merges the provided fields into usr.
func (up UpdateProfile) Apply(usr User) User {
	if up.FirstName != "" {
		usr.FirstName = up.FirstName
	}
	if up.LastName != "" {
		usr.LastName = up.LastName
	}
	if up.ProfilePicture != "" {
		usr.ProfilePicture = up.ProfilePicture
	}
	if up.DateOfBirth != nil {
		usr.DateOfBirth = up.DateOfBirth
	}
	if up.BillingAddress != nil {
		usr.BillingAddress = *up.BillingAddress
	}
	if up.About != nil {
		usr.About = *up.About
	}
	if up.SocialMedia != nil {
		usr.SocialMedia = *up.SocialMedia
	}
	if up.LearningGoals != nil {
		usr.LearningGoals = up.LearningGoals
	}
	if up.ResourceNeeds != nil {
		usr.ResourceNeeds = up.ResourceNeeds
	}
	if up.ExperienceLevel != "" {
		usr.ExperienceLevel = up.ExperienceLevel
	}
	if up.NewSkillsTarget != nil {
		usr.NewSkillsTarget = up.NewSkillsTarget
	}
	if up.AreasOfInterest != nil {
		usr.AreasOfInterest = up.AreasOfInterest
	}
	return usr
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate() error { return core.Validate.Struct(rp) }
