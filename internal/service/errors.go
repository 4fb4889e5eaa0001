// Package service holds the application logic between the HTTP/GraphQL
// layers and storage: accounts, chat sessions, the public feed and profiles.
package service

import (
	"errors"
	"fmt"

	"github.com/MosinFAM/synapse/internal/storage"
)

// Validation failures wrap storage.ErrInvalid so callers can map every bad
// input to a single status.
var (
	ErrEmptyMessage    = fmt.Errorf("%w: message is empty", storage.ErrInvalid)
	ErrEmptyComment    = fmt.Errorf("%w: comment is empty", storage.ErrInvalid)
	ErrInvalidEmail    = fmt.Errorf("%w: invalid email address", storage.ErrInvalid)
	ErrInvalidRole     = fmt.Errorf("%w: invalid message role", storage.ErrInvalid)
	ErrInvalidForkMode = fmt.Errorf("%w: fork mode must be %q or %q", storage.ErrInvalid, ForkPrompt, ForkTranscript)
	ErrNothingToFork   = fmt.Errorf("%w: post has no user message", storage.ErrInvalid)
	ErrNothingToShare  = fmt.Errorf("%w: conversation is empty", storage.ErrInvalid)
)

var (
	// ErrInvalidCredentials is returned by Login for any unknown email or wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrBusy is returned while a reply is still being generated for the same conversation.
	ErrBusy = errors.New("a reply is already being generated for this conversation")
)
