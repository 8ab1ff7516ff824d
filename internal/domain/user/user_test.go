package user

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoles_BaseRoleAlwaysPresent(t *testing.T) {
	var r Roles

	assert.True(t, r.Has(RoleUser))
	assert.False(t, r.Has(RoleAdmin))
	assert.Equal(t, []string{"ROLE_USER"}, r.List())
	assert.Empty(t, r.Extra())

	r.Remove(RoleUser)
	assert.True(t, r.Has(RoleUser))
}

func TestRoles_AddRemove(t *testing.T) {
	r := NewRoles("ROLE_USER", "ROLE_ADMIN", "ROLE_ADMIN")

	assert.Equal(t, []string{"ROLE_ADMIN"}, r.Extra())
	assert.Equal(t, []string{"ROLE_USER", "ROLE_ADMIN"}, r.List())

	r.Remove(RoleAdmin)
	assert.False(t, r.Has(RoleAdmin))
}

func TestRoles_JSON(t *testing.T) {
	u := User{Roles: NewRoles("ROLE_ADMIN")}

	b, err := json.Marshal(u.Roles)
	require.NoError(t, err)
	assert.JSONEq(t, `["ROLE_USER","ROLE_ADMIN"]`, string(b))

	var back Roles
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, back.Has(RoleAdmin))
}

func TestUser_IsAdminAndFullName(t *testing.T) {
	u := New(" Alice@Example.COM ", "hash", "Alice", "Martin", time.Now())

	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, "Alice Martin", u.FullName())
	assert.False(t, u.IsAdmin())

	u.Roles.Add(RoleAdmin)
	assert.True(t, u.IsAdmin())
}

func TestUser_Validate(t *testing.T) {
	tests := []struct {
		name    string
		u       User
		wantErr bool
	}{
		{name: "ok", u: User{Email: "a@b.fr", FirstName: "Al", LastName: "B"}},
		{name: "bad_email", u: User{Email: "nope", FirstName: "Al", LastName: "B"}, wantErr: true},
		{name: "short_first_name", u: User{Email: "a@b.fr", FirstName: "A", LastName: "B"}, wantErr: true},
		{name: "missing_last_name", u: User{Email: "a@b.fr", FirstName: "Al"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.u.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
