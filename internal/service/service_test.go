package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/MosinFAM/synapse/internal/auth"
	"github.com/MosinFAM/synapse/internal/models"
	"github.com/MosinFAM/synapse/internal/storage"

	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeLLM replies with a fixed text or error and records what it was sent.
type fakeLLM struct {
	mu      sync.Mutex
	reply   string
	err     error
	block   chan struct{}
	waiting int
	calls   int
	history []models.Message
}

func (f *fakeLLM) Complete(_ context.Context, _ string, messages []models.Message) (string, error) {
	if f.block != nil {
		f.mu.Lock()
		f.waiting++
		f.mu.Unlock()
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.history = models.CloneMessages(messages)
	return f.reply, f.err
}

type fixture struct {
	store    *storage.MemoryStorage
	llm      *fakeLLM
	accounts *Accounts
	chat     *Chat
	feed     *Feed
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := storage.NewMemoryStorage(testLogger)
	fake := &fakeLLM{reply: "Hello from the model"}
	return &fixture{
		store:    store,
		llm:      fake,
		accounts: NewAccounts(store, auth.NewIssuer("secret", time.Hour), testLogger),
		chat:     NewChat(store, fake, "gpt-3.5-turbo", "GPT-3.5", testLogger),
		feed:     NewFeed(store, 20, testLogger),
	}
}

func (f *fixture) signUp(t *testing.T, email string) models.User {
	t.Helper()
	session, err := f.accounts.SignUp(context.Background(), email, "password1", "")
	require.NoError(t, err)
	return session.User
}

func (f *fixture) share(t *testing.T, userID string, messages ...models.Message) *models.Post {
	t.Helper()
	post, err := f.chat.Share(context.Background(), userID, ShareRequest{Messages: messages})
	require.NoError(t, err)
	return post
}

var errLLMDown = errors.New("llm down")
