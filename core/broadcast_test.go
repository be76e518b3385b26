package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserGroup(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		want   string
	}{
		{name: "uuid", userID: "6ba7b810-9dad-11d1-80b4-00c04fd430c8", want: "user_6ba7b810-9dad-11d1-80b4-00c04fd430c8"},
		{name: "plain", userID: "42", want: "user_42"},
		{name: "unsafe chars replaced", userID: "a b/c.d", want: "user_a_b_c_d"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserGroup(tt.userID))
		})
	}
}

func TestLogGroup(t *testing.T) {
	tests := []struct {
		name  string
		alias string
		want  string
	}{
		{name: "simple", alias: "syslog", want: "log_syslog"},
		{name: "dashes and underscores kept", alias: "app-server_1", want: "log_app-server_1"},
		{name: "path chars replaced", alias: "var/log/app.log", want: "log_var_log_app_log"},
		{name: "spaces replaced", alias: "my log", want: "log_my_log"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LogGroup(tt.alias))
		})
	}
}
