package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/seekmycourse/backend/core/user"
)

// Users are stored as JSONB documents; email and phone number are mirrored
// into dedicated columns to back unique indexes and lookups.
type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sql.DB) user.Repository {
	return &userRepository{db: sqlx.NewDb(db, "postgres")}
}

type userRow struct {
	ID          string          `db:"id"`
	Email       string          `db:"email"`
	PhoneNumber string          `db:"phone_number"`
	Doc         json.RawMessage `db:"doc"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

// userDoc marshals every field including the ones the JSON API hides
// (password hash, OTPs, session token).
type userDoc struct {
	user.User
	PasswordHash    []byte      `json:"password_hash"`
	EmailOTP        string      `json:"email_otp"`
	EmailOTPExpires time.Time   `json:"email_otp_expires"`
	ActiveSession   *sessionDoc `json:"active_session"`
}

type sessionDoc struct {
	user.Session
	Token string `json:"token"`
}

func marshalUser(usr user.User) ([]byte, error) {
	doc := userDoc{
		User:            usr,
		PasswordHash:    usr.PasswordHash,
		EmailOTP:        usr.EmailOTP,
		EmailOTPExpires: usr.EmailOTPExpires,
	}
	if usr.ActiveSession != nil {
		doc.ActiveSession = &sessionDoc{Session: *usr.ActiveSession, Token: usr.ActiveSession.Token}
	}
	return json.Marshal(doc)
}

func unmarshalUser(raw []byte) (user.User, error) {
	var doc userDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return user.User{}, errors.Wrap(err, "decoding user document")
	}
	usr := doc.User
	usr.PasswordHash = doc.PasswordHash
	usr.EmailOTP = doc.EmailOTP
	usr.EmailOTPExpires = doc.EmailOTPExpires
	if doc.ActiveSession != nil {
		sess := doc.ActiveSession.Session
		sess.Token = doc.ActiveSession.Token
		usr.ActiveSession = &sess
	}
	return usr, nil
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, email, phoneNumber string, excludedUsers ...user.User) error {
	excludedIDs := make([]string, 0, len(excludedUsers))
	for _, usr := range excludedUsers {
		excludedIDs = append(excludedIDs, usr.ID)
	}
	// force a non-empty NOT IN list
	if len(excludedIDs) == 0 {
		excludedIDs = append(excludedIDs, uuid.Nil.String())
	}

	check := func(column, value string, exists error) error {
		if value == "" {
			return nil
		}
		query, args, err := sqlx.In(
			`SELECT COUNT(*) FROM users WHERE `+column+` = ? AND id NOT IN (?)`, value, excludedIDs)
		if err != nil {
			return errors.Wrap(err, "building uniqueness query")
		}
		var count int
		if err = repo.db.GetContext(ctx, &count, repo.db.Rebind(query), args...); err != nil {
			return wrapDBError(err, "checking uniqueness")
		}
		if count > 0 {
			return exists
		}
		return nil
	}

	if err := check("email", email, user.ErrEmailExists); err != nil {
		return err
	}
	return check("phone_number", phoneNumber, user.ErrPhoneExists)
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	doc, err := marshalUser(usr)
	if err != nil {
		return user.User{}, err
	}

	_, err = repo.db.ExecContext(ctx,
		`INSERT INTO users (id, email, phone_number, doc, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		usr.ID, usr.Email, usr.PhoneNumber, doc, usr.CreatedAt, usr.UpdatedAt,
	)
	if err != nil {
		return user.User{}, wrapDBError(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) getUser(ctx context.Context, where, value string) (user.User, error) {
	var row userRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT id, email, phone_number, doc, created_at, updated_at FROM users WHERE `+where+` = $1`, value)
	if err == sql.ErrNoRows {
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, wrapDBError(err, "querying user")
	}

	usr, err := unmarshalUser(row.Doc)
	if err != nil {
		return user.User{}, err
	}
	usr.ID = row.ID
	usr.CreatedAt = row.CreatedAt
	usr.UpdatedAt = row.UpdatedAt
	return usr, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return repo.getUser(ctx, "id", id)
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getUser(ctx, "email", email)
}

func (repo *userRepository) GetUserByPhoneNumber(ctx context.Context, phoneNumber string) (user.User, error) {
	return repo.getUser(ctx, "phone_number", phoneNumber)
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.UpdatedAt = time.Now().UTC()
	doc, err := marshalUser(usr)
	if err != nil {
		return user.User{}, err
	}

	res, err := repo.db.ExecContext(ctx,
		`UPDATE users SET email = $1, phone_number = $2, doc = $3, updated_at = $4 WHERE id = $5`,
		usr.Email, usr.PhoneNumber, doc, usr.UpdatedAt, usr.ID,
	)
	if err != nil {
		return user.User{}, wrapDBError(err, "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}
