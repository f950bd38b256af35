package entity

// Role represents an authorization role.
// The set is closed; anything else is rejected at the edges.
type Role string

const (
	RoleUser  Role = "ROLE_USER"
	RoleAdmin Role = "ROLE_ADMIN"
)

// Roles lists every valid role.
var Roles = []Role{RoleUser, RoleAdmin}

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }
