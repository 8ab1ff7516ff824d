package user

import (
	"encoding/json"
	"sort"
)

type Role string

const (
	RoleUser  Role = "ROLE_USER"
	RoleAdmin Role = "ROLE_ADMIN"
)

// Roles is the set of roles granted to a user. RoleUser is always a member and never stored.
type Roles struct {
	extra map[Role]struct{}
}

func NewRoles(roles ...string) Roles {
	var r Roles
	for _, s := range roles {
		r.Add(Role(s))
	}
	return r
}

func (r Roles) Has(role Role) bool {
	if role == RoleUser {
		return true
	}
	_, ok := r.extra[role]
	return ok
}

func (r *Roles) Add(role Role) {
	if role == RoleUser || role == "" {
		return
	}
	if r.extra == nil {
		r.extra = make(map[Role]struct{})
	}
	r.extra[role] = struct{}{}
}

func (r *Roles) Remove(role Role) {
	delete(r.extra, role)
}

// Extra lists the roles granted on top of RoleUser, sorted. This is what gets persisted.
func (r Roles) Extra() []string {
	out := make([]string, 0, len(r.extra))
	for role := range r.extra {
		out = append(out, string(role))
	}
	sort.Strings(out)
	return out
}

// List returns every role, RoleUser first.
func (r Roles) List() []string {
	return append([]string{string(RoleUser)}, r.Extra()...)
}

func (r Roles) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.List())
}

func (r *Roles) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = NewRoles(raw...)
	return nil
}
