package service

import (
	"context"
	"testing"

	"github.com/MosinFAM/synapse/internal/auth"
	"github.com/MosinFAM/synapse/internal/models"
	"github.com/MosinFAM/synapse/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignUp_Defaults(t *testing.T) {
	f := newFixture(t)

	session, err := f.accounts.SignUp(context.Background(), " Ada@Example.com ", "password1", "")

	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "ada@example.com", session.User.Email)
	assert.Equal(t, "ada", session.User.DisplayName)
	assert.Equal(t, models.DefaultPhotoURL(session.User.ID), session.User.PhotoURL)
	assert.Empty(t, session.User.Bio)
	assert.Equal(t, models.ProviderPassword, session.User.Provider)
}

func TestSignUp_Duplicate(t *testing.T) {
	f := newFixture(t)
	f.signUp(t, "ada@example.com")

	_, err := f.accounts.SignUp(context.Background(), "ADA@example.com", "password1", "")

	assert.ErrorIs(t, err, storage.ErrConflict)
}

func TestSignUp_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.accounts.SignUp(context.Background(), "not-an-email", "password1", "")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = f.accounts.SignUp(context.Background(), "ada@example.com", "123", "")
	assert.ErrorIs(t, err, auth.ErrWeakPassword)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	user := f.signUp(t, "ada@example.com")

	session, err := f.accounts.Login(context.Background(), "ada@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.User.ID)

	_, err = f.accounts.Login(context.Background(), "ada@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.accounts.Login(context.Background(), "nobody@example.com", "password1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestEnsureProfile_Idempotent(t *testing.T) {
	f := newFixture(t)
	gu := &auth.GoogleUser{Email: "g@example.com", Name: "Gee", Picture: "https://example.com/g.png", EmailVerified: true}

	first, err := f.accounts.LoginWithGoogle(context.Background(), gu)
	require.NoError(t, err)
	second, err := f.accounts.LoginWithGoogle(context.Background(), gu)
	require.NoError(t, err)

	assert.Equal(t, first.User.ID, second.User.ID)
	assert.Equal(t, "Gee", first.User.DisplayName)
	assert.Equal(t, "https://example.com/g.png", first.User.PhotoURL)
	assert.Equal(t, models.ProviderGoogle, first.User.Provider)

	// OAuth profiles have no password.
	_, err = f.accounts.Login(context.Background(), "g@example.com", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	user := f.signUp(t, "ada@example.com")
	bio := "  <script>alert(1)</script>Writes <b>prompts</b> & code  "
	name := "Ada L."

	updated, err := f.accounts.UpdateProfile(context.Background(), user.ID, models.ProfileUpdate{Bio: &bio, DisplayName: &name})

	require.NoError(t, err)
	assert.Equal(t, "Writes prompts & code", updated.Bio)
	assert.Equal(t, "Ada L.", updated.DisplayName)
	assert.Equal(t, user.PhotoURL, updated.PhotoURL)
}

func TestUpdateProfile_Invalid(t *testing.T) {
	f := newFixture(t)
	user := f.signUp(t, "ada@example.com")
	empty := "   "
	badURL := "javascript:alert(1)"

	_, err := f.accounts.UpdateProfile(context.Background(), user.ID, models.ProfileUpdate{DisplayName: &empty})
	assert.ErrorIs(t, err, storage.ErrInvalid)

	_, err = f.accounts.UpdateProfile(context.Background(), user.ID, models.ProfileUpdate{PhotoURL: &badURL})
	assert.ErrorIs(t, err, storage.ErrInvalid)
}
