package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)

	assert.NotEqual(t, "hunter22", hash)
	assert.True(t, CheckPassword("hunter22", hash))
	assert.False(t, CheckPassword("hunter23", hash))
	assert.False(t, CheckPassword("hunter22", ""))
}

func TestHashPassword_TooShort(t *testing.T) {
	_, err := HashPassword("abc")

	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestIssuer_RoundTrip(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)

	token, expires, err := issuer.Issue("u1", "a@example.com")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "a@example.com", claims.Email)
}

func TestIssuer_Expired(t *testing.T) {
	issuer := NewIssuer("secret", time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, _, err := issuer.Issue("u1", "a@example.com")
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.Parse(token)

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuer_WrongSecret(t *testing.T) {
	token, _, err := NewIssuer("secret", time.Hour).Issue("u1", "a@example.com")
	require.NoError(t, err)

	_, err = NewIssuer("other", time.Hour).Parse(token)

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func newAuthRouter(issuer *Issuer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := func(c *gin.Context) {
		id, ok := UserID(c)
		c.JSON(http.StatusOK, gin.H{"userId": id, "authenticated": ok})
	}
	r.GET("/private", RequireAuth(issuer), handler)
	r.GET("/public", OptionalAuth(issuer), handler)
	return r
}

func doGet(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)
	r := newAuthRouter(issuer)
	token, _, err := issuer.Issue("u1", "a@example.com")
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, doGet(r, "/private", "").Code)
	assert.Equal(t, http.StatusUnauthorized, doGet(r, "/private", "garbage").Code)

	w := doGet(r, "/private", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"userId":"u1"`)

	// WebSocket clients pass the token as a query parameter.
	w = doGet(r, "/private?access_token="+token, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOptionalAuth(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)
	r := newAuthRouter(issuer)

	w := doGet(r, "/public", "garbage")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":false`)
}

func TestUserIDFromContext(t *testing.T) {
	_, ok := UserIDFromContext(context.Background())
	assert.False(t, ok)

	_, ok = UserIDFromContext(WithUserID(context.Background(), ""))
	assert.False(t, ok)

	id, ok := UserIDFromContext(WithUserID(context.Background(), "u1"))
	assert.True(t, ok)
	assert.Equal(t, "u1", id)
}

func newFakeGoogle(t *testing.T, verified bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"google-token","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer google-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(GoogleUser{
			Subject:       "123",
			Email:         "g@example.com",
			EmailVerified: verified,
			Name:          "Gee",
			Picture:       "https://example.com/g.png",
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestGoogleProvider(srv *httptest.Server) *GoogleProvider {
	p := NewGoogleProvider("client", "secret", "http://localhost/auth/google/callback")
	p.config.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token", AuthStyle: oauth2.AuthStyleInParams}
	p.userInfoURL = srv.URL + "/userinfo"
	return p
}

func TestGoogleProvider_Exchange(t *testing.T) {
	p := newTestGoogleProvider(newFakeGoogle(t, true))

	user, err := p.Exchange(context.Background(), "the-code")

	require.NoError(t, err)
	assert.Equal(t, "g@example.com", user.Email)
	assert.Equal(t, "Gee", user.Name)
}

func TestGoogleProvider_Unverified(t *testing.T) {
	p := newTestGoogleProvider(newFakeGoogle(t, false))

	_, err := p.Exchange(context.Background(), "the-code")

	assert.ErrorIs(t, err, ErrEmailNotVerified)
}

func TestGoogleProvider_AuthCodeURL(t *testing.T) {
	p := NewGoogleProvider("client", "secret", "http://localhost/cb")
	state, err := NewState()
	require.NoError(t, err)

	url := p.AuthCodeURL(state)

	assert.True(t, strings.HasPrefix(url, "https://accounts.google.com/"))
	assert.Contains(t, url, "state="+state)
	assert.Contains(t, url, "client_id=client")
}
