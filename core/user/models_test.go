package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUser_roles(t *testing.T) {
	tests := []struct {
		name                                   string
		roles                                  []string
		isAdmin, isTeacher, isStudent, isStaff bool
	}{
		{name: "no role"},
		{name: "student", roles: []string{RoleStudent}, isStudent: true},
		{name: "proctor", roles: []string{RoleProctor}, isTeacher: true, isStaff: true},
		{name: "principal", roles: []string{RoleAdminPrincipal}, isAdmin: true, isStaff: true},
		{name: "teacher and student", roles: []string{RoleTeacher, RoleStudent}, isTeacher: true, isStudent: true, isStaff: true},
		{name: "unknown role", roles: []string{"janitor:"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr := User{Roles: tt.roles}
			assert.Equal(t, tt.isAdmin, usr.IsAdmin(), "IsAdmin")
			assert.Equal(t, tt.isTeacher, usr.IsTeacher(), "IsTeacher")
			assert.Equal(t, tt.isStudent, usr.IsStudent(), "IsStudent")
			assert.Equal(t, tt.isStaff, usr.IsStaff(), "IsStaff")
		})
	}
}
