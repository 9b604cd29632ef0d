package domain

import "time"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// User is an operator account. The RFID badge is the only credential accepted at the gate.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	RFID         string
	Fullname     string
	Role         Role
	CreatedAt    time.Time
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
