package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/seekmycourse/backend/core/course"
)

type courseRepository struct {
	db *courseTable
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db.course}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if crs.ID == "" {
		crs.ID = uuid.New().String()
	}
	crs.Version = 1
	repo.db.table[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, courseID, userID string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if crs, ok := repo.db.table[courseID]; ok && crs.UserID == userID {
		return *crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, courseID string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if crs, ok := repo.db.table[courseID]; ok {
		return *crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) FilterCourses(ctx context.Context, userID string, qf course.QueryFilter) (course.Page, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	matched := make([]course.Course, 0)
	for _, crs := range repo.db.table {
		if crs.UserID != userID {
			continue
		}
		if qf.Status != "" && crs.Status != qf.Status {
			continue
		}
		if qf.Search != "" && !strings.Contains(strings.ToLower(crs.Topic), strings.ToLower(qf.Search)) {
			continue
		}
		matched = append(matched, *crs)
	}

	sort.Slice(matched, func(i, j int) bool {
		if qf.Ordering().Ascending {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	totalPages := (total + qf.Limit - 1) / qf.Limit
	start := (qf.Page - 1) * qf.Limit
	if start > total {
		start = total
	}
	end := start + qf.Limit
	if end > total {
		end = total
	}

	return course.Page{
		Courses:    matched[start:end],
		Total:      total,
		Page:       qf.Page,
		Limit:      qf.Limit,
		TotalPages: totalPages,
	}, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored, ok := repo.db.table[crs.ID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	if stored.Version != crs.Version {
		return course.Course{}, course.ErrVersionConflict
	}
	crs.Version++
	repo.db.table[crs.ID] = &crs
	return crs, nil
}
