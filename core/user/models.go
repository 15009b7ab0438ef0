package user

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Roles
const (
	// Admin
	RoleAdmin          = "admin:"
	RoleAdminOwner     = "admin:owner"
	RoleAdminPrincipal = "admin:principal"

	// Teacher
	RoleTeacher = "teacher:"
	RoleProctor = "teacher:proctor"

	// Student
	RoleStudent = "student:"
)

var (
	AdminRoles   = []string{RoleAdmin, RoleAdminOwner, RoleAdminPrincipal}
	TeacherRoles = []string{RoleTeacher, RoleProctor}
	StudentRoles = []string{RoleStudent}

	ErrNotFound = errors.New("user not found")
)

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Username  string    `json:"username,omitempty"`
	Email     string    `json:"email,omitempty"`
	IsActive  *bool     `json:"is_active,omitempty"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (u User) RoleStartsWith(prefix string) bool {
	for _, role := range u.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (u User) IsAdmin() bool {
	return u.RoleStartsWith(RoleAdmin)
}

func (u User) IsTeacher() bool {
	return u.RoleStartsWith(RoleTeacher)
}

func (u User) IsStudent() bool {
	return u.RoleStartsWith(RoleStudent)
}

// IsStaff reports whether u may proctor exams.
func (u User) IsStaff() bool {
	return u.IsAdmin() || u.IsTeacher()
}

type Repository interface {
	CreateUser(ctx context.Context, usr User) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)
}
