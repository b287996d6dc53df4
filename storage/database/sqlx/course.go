package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ecole/core"
	"github.com/trezcool/ecole/core/course"
)

const courseColumns = "c.id, c.subject, c.highschool, c.grade, c.type, c.section, c.group_label, c.join_code, c.created_at"

type (
	courseRow struct {
		ID         string      `db:"id"`
		Subject    string      `db:"subject"`
		Highschool null.String `db:"highschool"`
		Grade      string      `db:"grade"`
		Type       string      `db:"type"`
		Section    null.String `db:"section"`
		GroupLabel null.String `db:"group_label"`
		JoinCode   string      `db:"join_code"`
		CreatedAt  time.Time   `db:"created_at"`
	}

	memberRow struct {
		CourseID string `db:"course_id"`
		UserID   string `db:"user_id"`
		Username string `db:"username"`
		Role     string `db:"role"`
	}
)

type courseRepository struct {
	db core.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db core.DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo courseRepository) toRow(c course.Course) courseRow {
	return courseRow{
		ID:         c.ID,
		Subject:    c.Subject,
		Highschool: null.NewString(c.Highschool, c.Highschool != ""),
		Grade:      c.Grade,
		Type:       c.Type,
		Section:    null.NewString(c.Section, c.Section != ""),
		GroupLabel: null.NewString(c.GroupLabel, c.GroupLabel != ""),
		JoinCode:   c.JoinCode,
		CreatedAt:  c.CreatedAt.UTC(),
	}
}

func (repo courseRepository) fromRow(r courseRow) course.Course {
	return course.Course{
		ID:         r.ID,
		Subject:    r.Subject,
		Highschool: r.Highschool.String,
		Grade:      r.Grade,
		Type:       r.Type,
		Section:    r.Section.String,
		GroupLabel: r.GroupLabel.String,
		JoinCode:   r.JoinCode,
		Members:    []course.Membership{},
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

// trapNoRowsErr maps psql "no rows" err to course.ErrNotFound
func (repo courseRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return course.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

// CreateCourse inserts the course and its initial members in a single transaction.
func (repo courseRepository) CreateCourse(ctx context.Context, c course.Course) (_ course.Course, err error) {
	c.ID = uuid.New().String()

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	q := `INSERT INTO courses (id, subject, highschool, grade, type, section, group_label, join_code, created_at)
		VALUES (:id, :subject, :highschool, :grade, :type, :section, :group_label, :join_code, :created_at)`
	if _, err = sqlx.NamedExecContext(ctx, tx, q, repo.toRow(c)); err != nil {
		if uniqueViolation(err) == "courses_join_code_key" {
			return course.Course{}, course.ErrDuplicateCode
		}
		return course.Course{}, errors.Wrap(err, "inserting course")
	}

	for _, m := range c.Members {
		if _, err = tx.ExecContext(ctx,
			"INSERT INTO course_members (course_id, user_id, username, role) VALUES ($1, $2, $3, $4)",
			c.ID, m.UserID, m.Username, m.Role,
		); err != nil {
			return course.Course{}, errors.Wrap(err, "inserting course member")
		}
	}

	if err = tx.Commit(); err != nil {
		return course.Course{}, errors.Wrap(err, "committing course")
	}
	return c.Clone(), nil
}

func (repo courseRepository) GetCourseByCode(ctx context.Context, code string) (course.Course, error) {
	var r courseRow
	q := "SELECT " + courseColumns + " FROM courses c WHERE c.join_code = $1"
	if err := sqlx.GetContext(ctx, repo.db, &r, q, code); err != nil {
		return course.Course{}, repo.trapNoRowsErr(err, "getting course by code")
	}
	courses, err := repo.withMembers(ctx, []courseRow{r})
	if err != nil {
		return course.Course{}, err
	}
	return courses[0], nil
}

// AddMember relies on the (course_id, user_id) primary key: a concurrent duplicate insert is a no-op.
func (repo courseRepository) AddMember(ctx context.Context, code string, m course.Membership) (course.Course, bool, error) {
	res, err := repo.db.ExecContext(ctx,
		`INSERT INTO course_members (course_id, user_id, username, role)
		SELECT c.id, $2, $3, $4 FROM courses c WHERE c.join_code = $1
		ON CONFLICT (course_id, user_id) DO NOTHING`,
		code, m.UserID, m.Username, m.Role,
	)
	if err != nil {
		return course.Course{}, false, errors.Wrap(err, "inserting course member")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return course.Course{}, false, errors.Wrap(err, "counting inserted members")
	}

	c, err := repo.GetCourseByCode(ctx, code)
	if err != nil {
		return course.Course{}, false, err
	}
	return c, n > 0, nil
}

func (repo courseRepository) QueryCoursesByMember(ctx context.Context, userID string, filter course.QueryFilter) ([]course.Course, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return []course.Course{}, nil
	}
	q := "SELECT " + courseColumns + ` FROM courses c
		JOIN course_members m ON m.course_id = c.id
		WHERE m.user_id = $1 AND ($2 = '' OR c.type = $2)
		ORDER BY c.seq`
	return repo.query(ctx, q, userID, filter.Type)
}

func (repo courseRepository) QueryCoursesByTeacher(ctx context.Context, userID string) ([]course.Course, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return []course.Course{}, nil
	}
	q := "SELECT " + courseColumns + ` FROM courses c
		JOIN course_members m ON m.course_id = c.id
		WHERE m.user_id = $1 AND m.role = $2
		ORDER BY c.seq`
	return repo.query(ctx, q, userID, course.RoleTeacher)
}

func (repo courseRepository) query(ctx context.Context, q string, args ...interface{}) ([]course.Course, error) {
	var rows []courseRow
	if err := sqlx.SelectContext(ctx, repo.db, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting courses")
	}
	return repo.withMembers(ctx, rows)
}

// withMembers loads the members of every row, in join order.
func (repo courseRepository) withMembers(ctx context.Context, rows []courseRow) ([]course.Course, error) {
	courses := make([]course.Course, 0, len(rows))
	if len(rows) == 0 {
		return courses, nil
	}

	ids := make([]string, 0, len(rows))
	idx := make(map[string]int, len(rows))
	for i, r := range rows {
		ids = append(ids, r.ID)
		idx[r.ID] = i
		courses = append(courses, repo.fromRow(r))
	}

	q, args, err := sqlx.In("SELECT course_id, user_id, username, role FROM course_members WHERE course_id IN (?) ORDER BY seq", ids)
	if err != nil {
		return nil, errors.Wrap(err, "building members query")
	}
	var members []memberRow
	if err = sqlx.SelectContext(ctx, repo.db, &members, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "selecting course members")
	}
	for _, m := range members {
		i := idx[m.CourseID]
		courses[i].Members = append(courses[i].Members, course.Membership{UserID: m.UserID, Username: m.Username, Role: m.Role})
	}
	return courses, nil
}
