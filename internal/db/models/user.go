package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an account, either registered or anonymous.
type User struct {
	ID             uuid.UUID  `db:"user_id" json:"user_id"`
	Email          string     `db:"user_email" json:"email"`
	Username       string     `db:"username" json:"username"`
	DisplayName    string     `db:"display_name" json:"display_name"`
	Bio            string     `db:"bio" json:"bio"`
	HashedPassword string     `db:"hashed_password" json:"-"`
	PictureID      *uuid.UUID `db:"picture_id" json:"picture_id,omitempty"`
	Anonym         bool       `db:"anonym" json:"anonym"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// NewUser creates a User with a fresh id. DisplayName falls back to username.
func NewUser(email, username, displayName, hashedPassword string) *User {
	if displayName == "" {
		displayName = username
	}
	now := time.Now()
	return &User{
		ID:             uuid.New(),
		Email:          email,
		Username:       username,
		DisplayName:    displayName,
		HashedPassword: hashedPassword,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
