package model

import "time"

// User is an account that can own articles.
//
// Users sign up with email/password or log in through GitHub. The article
// queries only ever read ID, Name and Email; the remaining fields belong to
// the auth flow.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`                  // bcrypt hash, empty for GitHub-only accounts
	GitHubID     *int64    `json:"githubId,omitempty"` // nil unless the account came through GitHub OAuth
	AvatarURL    string    `json:"avatarUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserRef is the public slice of a user shown next to their articles.
type UserRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
