// Package domain holds the account entities shared by the auth repository,
// service and transport layers.
package domain

import "time"

type User struct {
	ID               string
	Email            string
	PasswordHash     string
	RefreshTokenHash *string
	FullName         string
	AvatarURL        string
	Bio              string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ProfileUpdate carries the mutable profile fields. Nil means "leave as is",
// so callers can change a single field without reading the rest first.
type ProfileUpdate struct {
	FullName  *string
	AvatarURL *string
	Bio       *string
}

func (u *User) HasActiveSession() bool {
	return u.RefreshTokenHash != nil && *u.RefreshTokenHash != ""
}
