package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/MosinFAM/synapse/internal/auth"
	"github.com/MosinFAM/synapse/internal/models"
	"github.com/MosinFAM/synapse/internal/storage"

	"github.com/google/uuid"
)

// Profile field limits.
const (
	MaxDisplayNameLength = 50
	MaxBioLength         = 500
)

// Session is returned after a successful sign-in.
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      models.User `json:"user"`
}

// Accounts manages sign-up, sign-in and profile edits.
type Accounts struct {
	store    storage.Storage
	issuer   *auth.Issuer
	sanitize sanitizer
	logger   *slog.Logger
}

// NewAccounts creates the account service.
func NewAccounts(store storage.Storage, issuer *auth.Issuer, logger *slog.Logger) *Accounts {
	return &Accounts{store: store, issuer: issuer, sanitize: newSanitizer(), logger: logger}
}

// SignUp registers an email/password user with default profile fields.
func (a *Accounts) SignUp(ctx context.Context, email, password, displayName string) (*Session, error) {
	email = models.NormalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := a.createUser(ctx, email, displayName, "", models.ProviderPassword, hash)
	if err != nil {
		return nil, err
	}
	a.logger.Info("user signed up", "user_id", user.ID)
	return a.session(user)
}

// Login checks email and password.
func (a *Accounts) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := a.store.GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return a.session(*user)
}

// EnsureProfile signs in an externally authenticated user, creating the
// profile on first sign-in. Calling it again for the same email is a no-op.
func (a *Accounts) EnsureProfile(ctx context.Context, email, displayName, photoURL, provider string) (*Session, error) {
	existing, err := a.store.GetUserByEmail(ctx, email)
	if err == nil {
		return a.session(*existing)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("get user: %w", err)
	}

	user, err := a.createUser(ctx, email, displayName, photoURL, provider, "")
	if errors.Is(err, storage.ErrConflict) {
		// Concurrent first sign-in created it already.
		existing, err = a.store.GetUserByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("get user: %w", err)
		}
		return a.session(*existing)
	}
	if err != nil {
		return nil, err
	}
	a.logger.Info("profile created", "user_id", user.ID, "provider", provider)
	return a.session(user)
}

// LoginWithGoogle signs in the user returned by the Google OAuth flow.
func (a *Accounts) LoginWithGoogle(ctx context.Context, gu *auth.GoogleUser) (*Session, error) {
	return a.EnsureProfile(ctx, gu.Email, gu.Name, gu.Picture, models.ProviderGoogle)
}

// Me returns the caller's own profile.
func (a *Accounts) Me(ctx context.Context, userID string) (*models.User, error) {
	return a.store.GetUserByID(ctx, userID)
}

// UpdateProfile edits display name, bio and photo. Nil fields are left alone.
func (a *Accounts) UpdateProfile(ctx context.Context, userID string, update models.ProfileUpdate) (*models.User, error) {
	if update.DisplayName != nil {
		name := a.sanitize.clean(*update.DisplayName)
		if name == "" || len([]rune(name)) > MaxDisplayNameLength {
			return nil, fmt.Errorf("%w: display name must be 1-%d characters", storage.ErrInvalid, MaxDisplayNameLength)
		}
		update.DisplayName = &name
	}
	if update.Bio != nil {
		bio := a.sanitize.clean(*update.Bio)
		if len([]rune(bio)) > MaxBioLength {
			return nil, fmt.Errorf("%w: bio must be at most %d characters", storage.ErrInvalid, MaxBioLength)
		}
		update.Bio = &bio
	}
	if update.PhotoURL != nil {
		photo := strings.TrimSpace(*update.PhotoURL)
		if !validPhotoURL(photo) {
			return nil, fmt.Errorf("%w: photo URL must be an http(s) URL", storage.ErrInvalid)
		}
		update.PhotoURL = &photo
	}
	return a.store.UpdateUser(ctx, userID, update)
}

func (a *Accounts) createUser(ctx context.Context, email, displayName, photoURL, provider, hash string) (models.User, error) {
	id := uuid.New().String()
	displayName = a.sanitize.clean(displayName)
	if displayName == "" {
		displayName = models.DefaultDisplayName(email)
	}
	if photoURL == "" {
		photoURL = models.DefaultPhotoURL(id)
	}
	return a.store.CreateUser(ctx, models.User{
		ID:           id,
		Email:        email,
		DisplayName:  displayName,
		PhotoURL:     photoURL,
		Provider:     provider,
		PasswordHash: hash,
	})
}

func (a *Accounts) session(user models.User) (*Session, error) {
	token, expires, err := a.issuer.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expires, User: user}, nil
}

func validPhotoURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
