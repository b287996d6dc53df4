package dummydb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/ecole/core/course"
)

type courseRepository struct {
	db *courseTable
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db.course}
}

func (repo *courseRepository) CreateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.byCode[c.JoinCode]; ok {
		return course.Course{}, course.ErrDuplicateCode
	}
	c.ID = uuid.New().String()
	row := c.Clone()
	repo.db.rows = append(repo.db.rows, &row)
	repo.db.byCode[row.JoinCode] = &row
	return row.Clone(), nil
}

func (repo *courseRepository) GetCourseByCode(_ context.Context, code string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.byCode[code]; ok {
		return c.Clone(), nil
	}
	return course.Course{}, course.ErrNotFound
}

// AddMember holds the write lock across the membership check and the append.
func (repo *courseRepository) AddMember(_ context.Context, code string, m course.Membership) (course.Course, bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c, ok := repo.db.byCode[code]
	if !ok {
		return course.Course{}, false, course.ErrNotFound
	}
	if c.HasMember(m.UserID) {
		return c.Clone(), false, nil
	}
	c.Members = append(c.Members, m)
	return c.Clone(), true, nil
}

func (repo *courseRepository) QueryCoursesByMember(_ context.Context, userID string, filter course.QueryFilter) ([]course.Course, error) {
	return repo.query(func(c *course.Course) bool {
		if filter.Type != "" && c.Type != filter.Type {
			return false
		}
		return c.HasMember(userID)
	}), nil
}

func (repo *courseRepository) QueryCoursesByTeacher(_ context.Context, userID string) ([]course.Course, error) {
	return repo.query(func(c *course.Course) bool {
		return c.IsTaughtBy(userID)
	}), nil
}

func (repo *courseRepository) query(match func(c *course.Course) bool) []course.Course {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := make([]course.Course, 0)
	for _, c := range repo.db.rows {
		if match(c) {
			courses = append(courses, c.Clone())
		}
	}
	return courses
}
