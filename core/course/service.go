package course

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/ecole/core"
	"github.com/trezcool/ecole/core/user"
)

var (
	// errors
	ErrNotFound      = errors.New("course not found")
	ErrDuplicateCode = errors.New("join code already in use")
	ErrCodeExhausted = errors.New("could not allocate a unique join code")
)

const (
	defaultCodeAttempts = 3
	defaultCodeBackoff  = 10 * time.Millisecond
)

type (
	Repository interface {
		// CreateCourse persists a new Course.
		// Returns ErrDuplicateCode if another Course already holds c.JoinCode.
		CreateCourse(ctx context.Context, c Course) (Course, error)
		GetCourseByCode(ctx context.Context, code string) (Course, error)
		// AddMember atomically appends m to the Course holding code unless m.UserID is already a member.
		// The returned bool reports whether m was appended.
		AddMember(ctx context.Context, code string, m Membership) (Course, bool, error)
		// QueryCoursesByMember returns the Courses userID belongs to, oldest first.
		QueryCoursesByMember(ctx context.Context, userID string, filter QueryFilter) ([]Course, error)
		// QueryCoursesByTeacher returns the Courses userID teaches, oldest first.
		QueryCoursesByTeacher(ctx context.Context, userID string) ([]Course, error)
	}

	// IdentityStore resolves the users referenced by memberships.
	IdentityStore interface {
		GetByID(ctx context.Context, id string) (user.User, error)
		GetManyByID(ctx context.Context, ids ...string) ([]user.User, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, nc NewCourse, creatorID string) (Course, error)
		GetByCode(ctx context.Context, code string) (Course, error)
		Join(ctx context.Context, code, joinerID string) (Course, error)
		ListForUser(ctx context.Context, userID string, filter QueryFilter) ([]CourseView, error)
		ListTaughtWithStudents(ctx context.Context, userID string) ([]RosterView, error)
	}

	Service struct {
		repo     Repository
		users    IdentityStore
		mailSvc  core.EmailService
		logger   core.Logger
		validate *validator.Validate

		codeAttempts int
		codeBackoff  time.Duration
		newCode      func() string
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(
	repo Repository,
	users IdentityStore,
	mailSvc core.EmailService,
	logger core.Logger,
	validate *validator.Validate,
	conf *core.Config,
) *Service {
	svc := &Service{
		repo:         repo,
		users:        users,
		mailSvc:      mailSvc,
		logger:       logger,
		validate:     validate,
		codeAttempts: conf.Course.CodeAttempts,
		codeBackoff:  conf.Course.CodeBackoff,
		newCode:      GenerateCode,
	}
	if svc.codeAttempts <= 0 {
		svc.codeAttempts = defaultCodeAttempts
	}
	if svc.codeBackoff < 0 {
		svc.codeBackoff = defaultCodeBackoff
	}
	return svc
}

// Create validates nc then persists a new Course with the creator as its only (teacher) member.
// A join code collision is retried with a fresh code, up to the configured number of attempts.
func (svc *Service) Create(ctx context.Context, nc NewCourse, creatorID string) (Course, error) {
	if err := nc.Validate(svc.validate); err != nil {
		return Course{}, err
	}

	creator, err := svc.users.GetByID(ctx, creatorID)
	if err != nil {
		return Course{}, pkgerrors.Wrap(err, "finding creator")
	}

	c := Course{
		Subject:    nc.Subject,
		Grade:      nc.Grade,
		Type:       nc.Type,
		Section:    nc.Section,
		Highschool: nc.Highschool,
		Members:    []Membership{{UserID: creator.ID, Username: creator.Username, Role: RoleTeacher}},
		CreatedAt:  time.Now().UTC(),
	}
	if c.Type == TypeStudyGroup {
		c.GroupLabel = nc.GroupLabel
	}

	for attempt := 1; attempt <= svc.codeAttempts; attempt++ {
		c.JoinCode = svc.newCode()

		created, err := svc.repo.CreateCourse(ctx, c)
		if err == nil {
			return created, nil
		}
		if pkgerrors.Cause(err) != ErrDuplicateCode {
			return Course{}, pkgerrors.Wrap(err, "creating course")
		}

		svc.logger.Warn(fmt.Sprintf("join code %q collided (attempt %d/%d)", c.JoinCode, attempt, svc.codeAttempts), creator)
		if attempt < svc.codeAttempts {
			if err = sleep(ctx, time.Duration(attempt)*svc.codeBackoff); err != nil {
				return Course{}, pkgerrors.Wrap(err, "waiting to retry join code")
			}
		}
	}
	return Course{}, pkgerrors.Wrapf(ErrCodeExhausted, "after %d attempts", svc.codeAttempts)
}

func (svc *Service) GetByCode(ctx context.Context, code string) (Course, error) {
	code = core.CleanString(code, true /* lower */)
	if code == "" {
		return Course{}, ErrNotFound
	}
	return svc.repo.GetCourseByCode(ctx, code)
}

// Join enrolls the joiner as a student of the Course holding code.
// Joining a Course one already belongs to leaves it unchanged.
func (svc *Service) Join(ctx context.Context, code, joinerID string) (Course, error) {
	jr := JoinRequest{Code: code}
	if err := jr.Validate(svc.validate); err != nil {
		return Course{}, err
	}

	c, err := svc.repo.GetCourseByCode(ctx, jr.Code)
	if err != nil {
		return Course{}, pkgerrors.Wrap(err, "finding course by code")
	}
	if c.HasMember(joinerID) {
		return c, nil
	}

	joiner, err := svc.users.GetByID(ctx, joinerID)
	if err != nil {
		return Course{}, pkgerrors.Wrap(err, "finding joiner")
	}

	c, added, err := svc.repo.AddMember(ctx, jr.Code, Membership{UserID: joiner.ID, Username: joiner.Username, Role: RoleStudent})
	if err != nil {
		return Course{}, pkgerrors.Wrap(err, "adding member")
	}
	if added {
		svc.notifyTeacher(ctx, c, joiner)
	}
	return c, nil
}

// ListForUser returns the Courses userID belongs to, with their teacher's name.
func (svc *Service) ListForUser(ctx context.Context, userID string, filter QueryFilter) ([]CourseView, error) {
	filter.Clean()
	if filter.Type != "" && filter.Type != TypeClassroom && filter.Type != TypeStudyGroup {
		return nil, core.NewFieldError("type", courseTypeText)
	}

	courses, err := svc.repo.QueryCoursesByMember(ctx, userID, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "querying courses by member")
	}

	views := make([]CourseView, 0, len(courses))
	for _, c := range courses {
		views = append(views, CourseView{Course: c, TeacherName: c.TeacherName()})
	}
	return views, nil
}

// ListTaughtWithStudents returns the Courses userID teaches with their students.
// Students are resolved against the identity store; one that no longer exists keeps its membership username.
func (svc *Service) ListTaughtWithStudents(ctx context.Context, userID string) ([]RosterView, error) {
	courses, err := svc.repo.QueryCoursesByTeacher(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "querying courses by teacher")
	}

	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, c := range courses {
		for _, m := range c.Students() {
			if _, ok := seen[m.UserID]; !ok {
				seen[m.UserID] = struct{}{}
				ids = append(ids, m.UserID)
			}
		}
	}

	users, err := svc.users.GetManyByID(ctx, ids...)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "resolving students")
	}
	byID := make(map[string]user.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	rosters := make([]RosterView, 0, len(courses))
	for _, c := range courses {
		members := c.Students()
		students := make([]Student, 0, len(members))
		for _, m := range members {
			st := Student{UserID: m.UserID, Username: m.Username}
			if u, ok := byID[m.UserID]; ok {
				st.Username = u.Username
				st.Email = u.Email
			}
			students = append(students, st)
		}
		rosters = append(rosters, RosterView{Course: c, Students: students})
	}
	return rosters, nil
}

// notifyTeacher emails the teacher of c that joiner enrolled. Failures are only logged.
func (svc *Service) notifyTeacher(ctx context.Context, c Course, joiner user.User) {
	if svc.mailSvc == nil {
		return
	}
	t, ok := c.Teacher()
	if !ok {
		return
	}
	teacher, err := svc.users.GetByID(ctx, t.UserID)
	if err != nil {
		if pkgerrors.Cause(err) != user.ErrNotFound {
			svc.logger.Error("finding teacher to notify", pkgerrors.Wrap(err, "notifying teacher"), joiner)
		}
		return
	}
	if teacher.Email == "" {
		return
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: teacher.Username, Address: teacher.Email}},
		Subject:      fmt.Sprintf("%s joined %s", joiner.Username, c.Subject),
		TemplateName: "course_joined",
		TemplateData: map[string]string{
			"student": joiner.Username,
			"subject": c.Subject,
			"grade":   c.Grade,
			"code":    c.JoinCode,
		},
	})
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
