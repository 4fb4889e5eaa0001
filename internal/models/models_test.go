package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConversationTitle(t *testing.T) {
	assert.Equal(t, "Untitled", ConversationTitle(nil))
	assert.Equal(t, "Untitled", ConversationTitle([]Message{{Role: RoleUser, Content: "   "}}))
	assert.Equal(t, "short prompt", ConversationTitle([]Message{{Role: RoleUser, Content: "short prompt"}}))

	long := strings.Repeat("я", 60)
	title := ConversationTitle([]Message{{Role: RoleUser, Content: long}})
	assert.Equal(t, strings.Repeat("я", 50)+"...", title)
}

func TestConversationTitle_EllipsisOnlyWhenTruncated(t *testing.T) {
	exact := strings.Repeat("a", titleLength)
	assert.Equal(t, exact, ConversationTitle([]Message{{Role: RoleUser, Content: exact}}))

	over := exact + "b"
	assert.Equal(t, exact+"...", ConversationTitle([]Message{{Role: RoleUser, Content: over}}))
}

func TestFirstUserMessage(t *testing.T) {
	msgs := []Message{
		{Role: RoleSystem, Content: "be nice"},
		{Role: RoleUser, Content: "first"},
		{Role: RoleAssistant, Content: "answer"},
		{Role: RoleUser, Content: "second"},
	}
	m, ok := FirstUserMessage(msgs)
	assert.True(t, ok)
	assert.Equal(t, "first", m.Content)

	_, ok = FirstUserMessage([]Message{{Role: RoleAssistant, Content: "x"}})
	assert.False(t, ok)
}

func TestKarma(t *testing.T) {
	posts := []Post{{Likes: 5, Dislikes: 1}, {Likes: 0, Dislikes: 3}}
	assert.Equal(t, 1, Karma(posts))
	assert.Equal(t, 0, Karma(nil))
}

func TestVoteKindColumn(t *testing.T) {
	col, err := VoteLike.Column()
	assert.NoError(t, err)
	assert.Equal(t, "likes", col)

	col, err = VoteDislike.Column()
	assert.NoError(t, err)
	assert.Equal(t, "dislikes", col)

	_, err = VoteKind("love").Column()
	assert.Error(t, err)
}

func TestProfileDefaults(t *testing.T) {
	assert.Equal(t, "alice", DefaultDisplayName("alice@example.com"))
	assert.Equal(t, "alice@example.com", NormalizeEmail("  Alice@Example.COM "))
	assert.True(t, strings.HasSuffix(DefaultPhotoURL("u1"), "seed=u1"))
}
