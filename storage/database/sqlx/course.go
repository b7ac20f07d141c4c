package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/seekmycourse/backend/core/course"
)

// Courses are stored whole as JSONB documents. The owner, topic and status
// are mirrored into columns for filtering; version backs the optimistic
// concurrency check.
type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sql.DB) course.Repository {
	return &courseRepository{db: sqlx.NewDb(db, "postgres")}
}

type courseRow struct {
	ID        string          `db:"id"`
	UserID    string          `db:"user_id"`
	Doc       json.RawMessage `db:"doc"`
	Version   int             `db:"version"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

func (r courseRow) toCourse() (course.Course, error) {
	var crs course.Course
	if err := json.Unmarshal(r.Doc, &crs); err != nil {
		return course.Course{}, errors.Wrap(err, "decoding course document")
	}
	crs.ID = r.ID
	crs.UserID = r.UserID
	crs.Version = r.Version
	crs.CreatedAt = r.CreatedAt
	crs.UpdatedAt = r.UpdatedAt
	return crs, nil
}

const courseColumns = `id, user_id, doc, version, created_at, updated_at`

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	if crs.ID == "" {
		crs.ID = uuid.New().String()
	}
	crs.Version = 1

	doc, err := json.Marshal(crs)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "encoding course document")
	}

	_, err = repo.db.ExecContext(ctx,
		`INSERT INTO courses (id, user_id, topic, status, doc, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		crs.ID, crs.UserID, crs.Topic, crs.Status, doc, crs.Version, crs.CreatedAt, crs.UpdatedAt,
	)
	if err != nil {
		return course.Course{}, wrapDBError(err, "inserting course")
	}
	return crs, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, courseID, userID string) (course.Course, error) {
	var row courseRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT `+courseColumns+` FROM courses WHERE id = $1 AND user_id = $2`, courseID, userID)
	if err == sql.ErrNoRows {
		return course.Course{}, course.ErrNotFound
	}
	if err != nil {
		return course.Course{}, wrapDBError(err, "querying course")
	}
	return row.toCourse()
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, courseID string) (course.Course, error) {
	var row courseRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT `+courseColumns+` FROM courses WHERE id = $1`, courseID)
	if err == sql.ErrNoRows {
		return course.Course{}, course.ErrNotFound
	}
	if err != nil {
		return course.Course{}, wrapDBError(err, "querying course")
	}
	return row.toCourse()
}

func (repo *courseRepository) FilterCourses(ctx context.Context, userID string, qf course.QueryFilter) (course.Page, error) {
	where := `WHERE user_id = $1`
	args := []interface{}{userID}

	if qf.Status != "" {
		args = append(args, qf.Status)
		where += ` AND status = $2`
	}
	if qf.Search != "" {
		args = append(args, "%"+qf.Search+"%")
		where += ` AND topic ILIKE $` + strconv.Itoa(len(args))
	}

	var total int
	if err := repo.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM courses `+where, args...); err != nil {
		return course.Page{}, wrapDBError(err, "counting courses")
	}

	order := `ORDER BY ` + qf.Ordering().String()
	args = append(args, qf.Limit, (qf.Page-1)*qf.Limit)
	query := `SELECT ` + courseColumns + ` FROM courses ` + where + ` ` + order +
		` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return course.Page{}, wrapDBError(err, "querying courses")
	}

	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		crs, err := row.toCourse()
		if err != nil {
			return course.Page{}, err
		}
		courses = append(courses, crs)
	}

	return course.Page{
		Courses:    courses,
		Total:      total,
		Page:       qf.Page,
		Limit:      qf.Limit,
		TotalPages: (total + qf.Limit - 1) / qf.Limit,
	}, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	doc, err := json.Marshal(crs)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "encoding course document")
	}

	res, err := repo.db.ExecContext(ctx,
		`UPDATE courses SET topic = $1, status = $2, doc = $3, version = version + 1, updated_at = $4
		 WHERE id = $5 AND version = $6`,
		crs.Topic, crs.Status, doc, crs.UpdatedAt, crs.ID, crs.Version,
	)
	if err != nil {
		return course.Course{}, wrapDBError(err, "updating course")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// either gone or a concurrent writer bumped the version
		var exists bool
		if err = repo.db.GetContext(ctx, &exists,
			`SELECT EXISTS (SELECT 1 FROM courses WHERE id = $1)`, crs.ID); err != nil {
			return course.Course{}, wrapDBError(err, "checking course")
		}
		if !exists {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, course.ErrVersionConflict
	}

	crs.Version++
	return crs, nil
}
