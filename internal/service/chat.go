package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/MosinFAM/synapse/internal/llm"
	"github.com/MosinFAM/synapse/internal/models"
	"github.com/MosinFAM/synapse/internal/storage"
)

// FallbackReply is stored as the assistant message when the model call fails.
const FallbackReply = "Sorry, there was an error. Please try again."

// Fork modes.
const (
	ForkPrompt     = "prompt"
	ForkTranscript = "transcript"
)

// SendResult is the outcome of one chat turn. Error is set when the model
// call failed and Reply holds FallbackReply.
type SendResult struct {
	Conversation *models.Conversation `json:"conversation"`
	Reply        models.Message       `json:"reply"`
	Error        string               `json:"error,omitempty"`
}

// ShareRequest publishes either a saved conversation or a client-held transcript.
type ShareRequest struct {
	ConversationID string           `json:"conversationId"`
	Messages       []models.Message `json:"messages"`
}

// ForkResult carries the prompt to seed a new chat with and, in transcript
// mode, the conversation created from the post.
type ForkResult struct {
	Prompt       string               `json:"prompt"`
	Conversation *models.Conversation `json:"conversation,omitempty"`
}

// Chat runs conversations with the language model and publishes them.
type Chat struct {
	store      storage.Storage
	client     llm.Client
	model      string
	modelLabel string
	logger     *slog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewChat creates the chat service. model is sent to the provider and
// modelLabel is stored on shared posts.
func NewChat(store storage.Storage, client llm.Client, model, modelLabel string, logger *slog.Logger) *Chat {
	return &Chat{
		store:      store,
		client:     client,
		model:      model,
		modelLabel: modelLabel,
		logger:     logger,
		inflight:   make(map[string]struct{}),
	}
}

// acquire marks a conversation as busy. The returned func releases it.
func (c *Chat) acquire(key string) (func(), bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inflight[key]; busy {
		return nil, false
	}
	c.inflight[key] = struct{}{}
	return func() {
		c.mu.Lock()
		delete(c.inflight, key)
		c.mu.Unlock()
	}, true
}

// Send appends the user's message, asks the model for a reply with the whole
// history and saves the conversation. An empty conversationID starts a new one.
func (c *Chat) Send(ctx context.Context, userID, conversationID, text string) (*SendResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	// New conversations have nothing to serialize against.
	if conversationID != "" {
		release, ok := c.acquire(userID + "/" + conversationID)
		if !ok {
			return nil, ErrBusy
		}
		defer release()
	}

	var history []models.Message
	if conversationID != "" {
		convo, err := c.store.GetConversation(ctx, conversationID, userID)
		if err != nil {
			return nil, err
		}
		history = convo.Messages
	}
	history = append(history, models.Message{Role: models.RoleUser, Content: text})

	result := &SendResult{}
	reply, err := c.client.Complete(ctx, c.model, history)
	if err != nil {
		c.logger.Error("llm completion failed", "user_id", userID, "conversation_id", conversationID, "error", err)
		reply = FallbackReply
		result.Error = "llm request failed"
	}
	result.Reply = models.Message{Role: models.RoleAssistant, Content: reply}
	history = append(history, result.Reply)

	convo, err := c.Save(ctx, userID, conversationID, history)
	if err != nil {
		return nil, fmt.Errorf("save conversation: %w", err)
	}
	result.Conversation = convo
	return result, nil
}

// Save stores a transcript, creating the conversation when conversationID is empty.
func (c *Chat) Save(ctx context.Context, userID, conversationID string, messages []models.Message) (*models.Conversation, error) {
	if len(messages) == 0 {
		return nil, ErrEmptyMessage
	}
	for _, m := range messages {
		if !models.ValidRole(m.Role) {
			return nil, ErrInvalidRole
		}
	}
	if conversationID == "" {
		return c.store.CreateConversation(ctx, userID, messages)
	}
	return c.store.UpdateConversation(ctx, conversationID, userID, messages)
}

// List returns the user's conversations, most recently updated first.
func (c *Chat) List(ctx context.Context, userID string) ([]models.Conversation, error) {
	return c.store.ListConversations(ctx, userID)
}

// Get returns one of the user's conversations.
func (c *Chat) Get(ctx context.Context, userID, conversationID string) (*models.Conversation, error) {
	return c.store.GetConversation(ctx, conversationID, userID)
}

// Delete removes one of the user's conversations.
func (c *Chat) Delete(ctx context.Context, userID, conversationID string) error {
	return c.store.DeleteConversation(ctx, conversationID, userID)
}

// Share publishes a transcript to the feed with a snapshot of the author's profile.
func (c *Chat) Share(ctx context.Context, userID string, req ShareRequest) (*models.Post, error) {
	messages := req.Messages
	if req.ConversationID != "" {
		convo, err := c.store.GetConversation(ctx, req.ConversationID, userID)
		if err != nil {
			return nil, err
		}
		messages = convo.Messages
	}
	if len(messages) == 0 {
		return nil, ErrNothingToShare
	}
	for _, m := range messages {
		if !models.ValidRole(m.Role) {
			return nil, ErrInvalidRole
		}
	}

	author, err := c.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get author: %w", err)
	}
	name := author.DisplayName
	if name == "" {
		name = author.Email
	}

	post, err := c.store.AddPost(ctx, models.Post{
		AuthorID:    author.ID,
		AuthorEmail: author.Email,
		AuthorName:  name,
		AuthorPhoto: author.PhotoURL,
		Messages:    messages,
		Model:       c.modelLabel,
	})
	if err != nil {
		return nil, fmt.Errorf("add post: %w", err)
	}
	c.logger.Info("conversation shared", "user_id", userID, "post_id", post.ID)
	return &post, nil
}

// Fork seeds a new chat from a post. In prompt mode only the post's first
// user message is returned; in transcript mode the whole transcript is copied
// into a new conversation owned by the caller.
func (c *Chat) Fork(ctx context.Context, userID, postID, mode string) (*ForkResult, error) {
	if mode == "" {
		mode = ForkPrompt
	}
	if mode != ForkPrompt && mode != ForkTranscript {
		return nil, ErrInvalidForkMode
	}

	post, err := c.store.GetPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	first, ok := models.FirstUserMessage(post.Messages)
	if !ok {
		return nil, ErrNothingToFork
	}

	result := &ForkResult{Prompt: first.Content}
	if mode == ForkTranscript {
		convo, err := c.store.CreateConversation(ctx, userID, post.Messages)
		if err != nil {
			return nil, fmt.Errorf("create conversation: %w", err)
		}
		result.Conversation = convo
	}
	return result, nil
}
