package course

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ecole/core"
	"github.com/trezcool/ecole/core/user"
)

// fakeRepo rejects the codes in taken and records every CreateCourse call.
type fakeRepo struct {
	Repository
	mu     sync.Mutex
	taken  map[string]bool
	err    error
	called []string
}

func (r *fakeRepo) CreateCourse(_ context.Context, c Course) (Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.called = append(r.called, c.JoinCode)
	if r.err != nil {
		return Course{}, r.err
	}
	if r.taken[c.JoinCode] {
		return Course{}, pkgerrors.Wrap(ErrDuplicateCode, "inserting course")
	}
	c.ID = "c-" + c.JoinCode
	return c, nil
}

type fakeUsers struct {
	users map[string]user.User
}

func (s fakeUsers) GetByID(_ context.Context, id string) (user.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return user.User{}, user.ErrNotFound
}

func (s fakeUsers) GetManyByID(_ context.Context, ids ...string) ([]user.User, error) {
	users := make([]user.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

type fakeLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *fakeLogger) Debug(string, ...interface{}) {}
func (l *fakeLogger) Info(string, ...interface{})  {}
func (l *fakeLogger) Error(string, ...interface{}) {}
func (l *fakeLogger) Fatal(string, ...interface{}) {}
func (l *fakeLogger) Warn(msg string, _ ...interface{}) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

func newTestValidator() *validator.Validate {
	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	return validate
}

// codeSeq returns the given codes in order, then "ffffffff" forever.
func codeSeq(codes ...string) func() string {
	var mu sync.Mutex
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		if len(codes) == 0 {
			return "ffffffff"
		}
		c := codes[0]
		codes = codes[1:]
		return c
	}
}

func setupService(repo Repository, attempts int, backoff time.Duration) (*Service, *fakeLogger) {
	teacher := user.User{ID: "t1", Username: "mwalimu", Email: "mwalimu@test.cd", Role: user.RoleTeacher}
	logger := new(fakeLogger)
	conf := &core.Config{Course: core.CourseConfig{CodeAttempts: attempts, CodeBackoff: backoff}}
	svc := NewService(repo, fakeUsers{users: map[string]user.User{teacher.ID: teacher}}, nil, logger, newTestValidator(), conf)
	return svc, logger
}

var validCourse = NewCourse{Subject: "Math", Grade: "10", Type: TypeClassroom, Highschool: "Lycee A", Section: "S1"}

func TestNewService_defaults(t *testing.T) {
	svc, _ := setupService(&fakeRepo{}, 0, -1)
	assert.Equal(t, defaultCodeAttempts, svc.codeAttempts)
	assert.Equal(t, defaultCodeBackoff, svc.codeBackoff)

	svc, _ = setupService(&fakeRepo{}, 5, 0)
	assert.Equal(t, 5, svc.codeAttempts)
	assert.Equal(t, time.Duration(0), svc.codeBackoff)
}

func TestService_Create_codeRetry(t *testing.T) {
	tests := []struct {
		name       string
		attempts   int
		taken      []string
		codes      []string
		wantErr    error
		wantCode   string
		wantCalled int
	}{
		{name: "no collision", attempts: 3, codes: []string{"aaaaaaaa"}, wantCode: "aaaaaaaa", wantCalled: 1},
		{
			name: "one collision then success", attempts: 3, taken: []string{"aaaaaaaa"},
			codes: []string{"aaaaaaaa", "bbbbbbbb"}, wantCode: "bbbbbbbb", wantCalled: 2,
		},
		{
			name: "success on last attempt", attempts: 3, taken: []string{"aaaaaaaa", "bbbbbbbb"},
			codes: []string{"aaaaaaaa", "bbbbbbbb", "cccccccc"}, wantCode: "cccccccc", wantCalled: 3,
		},
		{
			name: "exhausted", attempts: 3, taken: []string{"aaaaaaaa", "bbbbbbbb", "cccccccc"},
			codes: []string{"aaaaaaaa", "bbbbbbbb", "cccccccc", "dddddddd"}, wantErr: ErrCodeExhausted, wantCalled: 3,
		},
		{
			name: "retry exactly once", attempts: 2, taken: []string{"aaaaaaaa", "bbbbbbbb"},
			codes: []string{"aaaaaaaa", "bbbbbbbb", "cccccccc"}, wantErr: ErrCodeExhausted, wantCalled: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeRepo{taken: make(map[string]bool)}
			for _, c := range tt.taken {
				repo.taken[c] = true
			}
			svc, logger := setupService(repo, tt.attempts, time.Millisecond)
			svc.newCode = codeSeq(tt.codes...)

			c, err := svc.Create(context.Background(), validCourse, "t1")
			assert.Len(t, repo.called, tt.wantCalled)
			assert.Len(t, logger.warns, tt.wantCalled-1+boolToInt(tt.wantErr != nil))
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, pkgerrors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, c.JoinCode)
			assert.Equal(t, []Membership{{UserID: "t1", Username: "mwalimu", Role: RoleTeacher}}, c.Members)
		})
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func TestService_Create_persistenceFailureNotRetried(t *testing.T) {
	boom := errors.New("connection reset")
	repo := &fakeRepo{err: boom}
	svc, logger := setupService(repo, 3, time.Millisecond)

	_, err := svc.Create(context.Background(), validCourse, "t1")
	assert.Equal(t, boom, pkgerrors.Cause(err))
	assert.Len(t, repo.called, 1)
	assert.Empty(t, logger.warns)
}

func TestService_Create_validationBeforePersistence(t *testing.T) {
	repo := &fakeRepo{}
	svc, _ := setupService(repo, 3, time.Millisecond)

	nc := validCourse
	nc.Section = ""
	_, err := svc.Create(context.Background(), nc, "t1")

	var vErrs validator.ValidationErrors
	require.True(t, errors.As(err, &vErrs))
	assert.Equal(t, "section", vErrs[0].Field())
	assert.Empty(t, repo.called)
}

func TestService_Create_unknownCreator(t *testing.T) {
	repo := &fakeRepo{}
	svc, _ := setupService(repo, 3, time.Millisecond)

	_, err := svc.Create(context.Background(), validCourse, "ghost")
	assert.Equal(t, user.ErrNotFound, pkgerrors.Cause(err))
	assert.Empty(t, repo.called)
}

func TestService_Create_canceledDuringBackoff(t *testing.T) {
	repo := &fakeRepo{taken: map[string]bool{"aaaaaaaa": true}}
	svc, _ := setupService(repo, 3, time.Hour)
	svc.newCode = codeSeq("aaaaaaaa", "bbbbbbbb")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := svc.Create(ctx, validCourse, "t1")
	assert.Equal(t, context.DeadlineExceeded, pkgerrors.Cause(err))
	assert.Less(t, int64(time.Since(start)), int64(time.Minute))
	assert.Len(t, repo.called, 1)
}

func TestGenerateCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		code := GenerateCode()
		assert.True(t, IsValidCode(code), "invalid code %q", code)
		assert.False(t, seen[code], "duplicate code %q", code)
		seen[code] = true
	}
	assert.False(t, IsValidCode("ABCD1234"))
	assert.False(t, IsValidCode("abc"))
}

func TestCourse_TeacherName(t *testing.T) {
	c := Course{Members: []Membership{{UserID: "s1", Username: "awe", Role: RoleStudent}}}
	assert.Equal(t, UnknownTeacher, c.TeacherName())

	c.Members = append(c.Members, Membership{UserID: "t1", Username: "mwalimu", Role: RoleTeacher})
	assert.Equal(t, "mwalimu", c.TeacherName())
	assert.True(t, c.IsTaughtBy("t1"))
	assert.False(t, c.IsTaughtBy("s1"))
	assert.Equal(t, []Membership{{UserID: "s1", Username: "awe", Role: RoleStudent}}, c.Students())
}

func TestCourse_Clone(t *testing.T) {
	c := Course{Members: []Membership{{UserID: "t1", Role: RoleTeacher}}}
	cl := c.Clone()
	cl.Members[0].UserID = "lol"
	cl.Members = append(cl.Members, Membership{UserID: "s1"})
	assert.Equal(t, "t1", c.Members[0].UserID)
	assert.Len(t, c.Members, 1)
}
