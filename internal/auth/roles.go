package auth

// Built-in roles. The first user of a registered organization is an admin.
const (
	RoleAdmin  int64 = 1
	RoleMember int64 = 2
)

// IsAdmin reports whether the identity may manage the organization's applications.
func (id Identity) IsAdmin() bool {
	return id.RoleID == RoleAdmin
}
