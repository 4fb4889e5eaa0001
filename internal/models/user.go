package models

import (
	"strings"
	"time"
)

// Sign-in providers
const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
)

// User is a registered account and its public profile.
type User struct {
	ID           string    `json:"uid" bson:"_id"`
	Email        string    `json:"email" bson:"email"`
	DisplayName  string    `json:"displayName" bson:"display_name"`
	PhotoURL     string    `json:"photoURL" bson:"photo_url"`
	Bio          string    `json:"bio" bson:"bio"`
	Provider     string    `json:"provider" bson:"provider"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
}

// NormalizeEmail returns email in its stored form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DefaultDisplayName is the part of email before "@".
func DefaultDisplayName(email string) string {
	name, _, _ := strings.Cut(email, "@")
	return name
}

// DefaultPhotoURL is a generated avatar for uid.
func DefaultPhotoURL(uid string) string {
	return "https://api.dicebear.com/7.x/avataaars/svg?seed=" + uid
}

// ProfileUpdate holds editable profile fields. A nil field is left unchanged.
type ProfileUpdate struct {
	DisplayName *string `json:"displayName"`
	Bio         *string `json:"bio"`
	PhotoURL    *string `json:"photoURL"`
}

// Profile is a user with their posts and karma.
type Profile struct {
	User         User   `json:"user"`
	Posts        []Post `json:"posts"`
	Karma        int    `json:"karma"`
	IsOwnProfile bool   `json:"isOwnProfile"`
}
