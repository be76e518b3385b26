package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUser_password(t *testing.T) {
	usr := User{}
	assert.NoError(t, usr.SetPassword("LeakedPwd25"))
	assert.NotEmpty(t, usr.PasswordHash)

	assert.NoError(t, usr.CheckPassword("LeakedPwd25"))
	assert.Error(t, usr.CheckPassword("wrong"))
}

func TestUser_roles(t *testing.T) {
	tests := []struct {
		name      string
		roles     []string
		isAdmin   bool
		isTeacher bool
		isStudent bool
	}{
		{name: "none"},
		{name: "admin", roles: []string{RoleAdmin}, isAdmin: true},
		{name: "principal", roles: []string{RoleAdminPrincipal}, isAdmin: true},
		{name: "owner", roles: []string{RoleAdminOwner}, isAdmin: true},
		{name: "teacher", roles: []string{RoleTeacher}, isTeacher: true},
		{name: "student", roles: []string{RoleStudent}, isStudent: true},
		{name: "parent", roles: []string{RoleParent}},
		{name: "mixed", roles: []string{RoleTeacher, RoleAdminPrincipal}, isAdmin: true, isTeacher: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr := User{Roles: tt.roles}
			assert.Equal(t, tt.isAdmin, usr.IsAdmin())
			assert.Equal(t, tt.isTeacher, usr.IsTeacher())
			assert.Equal(t, tt.isStudent, usr.IsStudent())
		})
	}
}
