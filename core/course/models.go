package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ecole/core"
)

// Course types
const (
	TypeClassroom  = "classroom"
	TypeStudyGroup = "study_group"
)

// Membership roles
const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// UnknownTeacher is displayed when a course has no teacher member.
const UnknownTeacher = "Unknown"

var AllTypes = []string{TypeClassroom, TypeStudyGroup}

// Membership binds a user to a Course.
// Username is a snapshot taken when the membership was created; it is never synced with the user.
type Membership struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Course is a classroom or a study group. It owns its ordered Members list.
type Course struct {
	ID         string       `json:"id"`
	Subject    string       `json:"subject"`
	Highschool string       `json:"highschool,omitempty"`
	Grade      string       `json:"grade"`
	Type       string       `json:"type"`
	Section    string       `json:"section,omitempty"`
	GroupLabel string       `json:"group,omitempty"`
	JoinCode   string       `json:"code"`
	Members    []Membership `json:"members"`
	CreatedAt  time.Time    `json:"created_at"` // UTC
}

func (c Course) HasMember(userID string) bool {
	for _, m := range c.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// Teacher returns the first teacher member.
func (c Course) Teacher() (Membership, bool) {
	for _, m := range c.Members {
		if m.Role == RoleTeacher {
			return m, true
		}
	}
	return Membership{}, false
}

func (c Course) TeacherName() string {
	if t, ok := c.Teacher(); ok {
		return t.Username
	}
	return UnknownTeacher
}

func (c Course) IsTaughtBy(userID string) bool {
	for _, m := range c.Members {
		if m.UserID == userID && m.Role == RoleTeacher {
			return true
		}
	}
	return false
}

func (c Course) Students() []Membership {
	students := make([]Membership, 0, len(c.Members))
	for _, m := range c.Members {
		if m.Role == RoleStudent {
			students = append(students, m)
		}
	}
	return students
}

// Clone returns a copy of c which does not share its Members backing array.
func (c Course) Clone() Course {
	members := make([]Membership, len(c.Members))
	copy(members, c.Members)
	c.Members = members
	return c
}

// NewCourse contains information needed to create a Course.
// Highschool is required for classrooms, Section for both types and GroupLabel for study groups.
type NewCourse struct {
	Subject    string `json:"subject" validate:"required,max=128"`
	Highschool string `json:"highschool" validate:"omitempty,max=128"`
	Grade      string `json:"grade" validate:"required,max=32"`
	Type       string `json:"type" validate:"required,coursetype"`
	Section    string `json:"section" validate:"omitempty,max=32"`
	GroupLabel string `json:"group" validate:"omitempty,max=64"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Subject = core.CleanString(nc.Subject)
	nc.Highschool = core.CleanString(nc.Highschool)
	nc.Grade = core.CleanString(nc.Grade)
	nc.Type = core.CleanString(nc.Type, true /* lower */)
	nc.Section = core.CleanString(nc.Section)
	nc.GroupLabel = core.CleanString(nc.GroupLabel)

	return validate.Struct(nc)
}

// JoinRequest holds the code a user enrolls with.
type JoinRequest struct {
	Code string `json:"code" validate:"required,max=16"`
}

func (jr *JoinRequest) Validate(validate *validator.Validate) error {
	jr.Code = core.CleanString(jr.Code, true /* lower */)
	return validate.Struct(jr)
}

type QueryFilter struct {
	Type string `query:"type"`
}

func (qf *QueryFilter) Clean() {
	qf.Type = core.CleanString(qf.Type, true /* lower */)
}

// CourseView is a Course as listed to one of its members.
type CourseView struct {
	Course
	TeacherName string `json:"teacher"`
}

// Student is a student member resolved against the identity store.
type Student struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// RosterView is a taught Course with its students.
type RosterView struct {
	Course   Course    `json:"course"`
	Students []Student `json:"students"`
}
