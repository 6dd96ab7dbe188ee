package auth

import "time"

// Organization is a tenant. Users, applications and licenses belong to exactly one.
type Organization struct {
	ID        int64     `json:"id"`
	Name      string    `json:"org_name"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Size      int       `json:"org_size"`
	Usage     string    `json:"usage"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User is an account operating on behalf of an organization.
//
// Refresh and reset tokens are only ever stored as digests.
type User struct {
	ID               int64
	OrganizationID   int64
	RoleID           int64
	Email            string
	PasswordHash     string
	Active           bool
	RefreshTokenHash string
	RefreshExpiresAt *time.Time
	ResetTokenHash   string
	ResetExpiresAt   *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Registration carries the fields required to create an organization and its first admin.
type Registration struct {
	OrgName   string
	FirstName string
	LastName  string
	Email     string
	Password  string
	OrgSize   int
	Usage     string
}

// Identity is the verified subject of a token.
type Identity struct {
	UserID int64
	OrgID  int64
	RoleID int64
	Email  string
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

func identityOf(u *User) Identity {
	return Identity{
		UserID: u.ID,
		OrgID:  u.OrganizationID,
		RoleID: u.RoleID,
		Email:  u.Email,
	}
}
