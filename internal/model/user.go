package model

import "time"

// Role is the account role carried in the access token.
type Role string

const (
	RoleTech  Role = "TECH"
	RoleAdmin Role = "ADMIN"
)

// ParseRole maps a raw claim or column value to a Role.  Unknown values
// return false.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleTech:
		return RoleTech, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

// User represents a row of the `users` table.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique, lower-cased email address.
//  PasswordHash – bcrypt hash.
//  FullName     – display name, may be empty.
//  Role         – TECH or ADMIN.
//  IsActive     – inactive accounts cannot log in.
type User struct {
	ID           uint64
	Email        string
	PasswordHash string
	FullName     string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
