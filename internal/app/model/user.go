package model

// UserRole is the role claim carried in access tokens. Accounts themselves live in the
// identity service; this backend only keys rows by the token's user id.
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)
