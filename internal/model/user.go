package model

import (
	"strings"
	"time"
)

// User is an account that can own tasks and receive notifications.
type User struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Surname   string    `json:"surname" db:"surname"`
	Email     string    `json:"email" db:"email"`
	Password  string    `json:"-" db:"password"`
	Admin     bool      `json:"admin" db:"admin"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// HasEmail reports whether the user has a usable (non-blank) address.
func (u User) HasEmail() bool {
	return strings.TrimSpace(u.Email) != ""
}
