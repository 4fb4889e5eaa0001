package graph

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/MosinFAM/synapse/internal/auth"
	"github.com/MosinFAM/synapse/internal/models"
	"github.com/MosinFAM/synapse/internal/service"
	"github.com/MosinFAM/synapse/internal/storage"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gqlError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path"`
	Extensions map[string]any `json:"extensions"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

func (r gqlResponse) data(t *testing.T) map[string]any {
	t.Helper()
	var data map[string]any
	require.NoError(t, json.Unmarshal(r.Data, &data))
	return data
}

type fixture struct {
	handler  http.Handler
	resolver *Resolver
	issuer   *auth.Issuer
	store    *storage.MemoryStorage
	user     models.User
	post     models.Post
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := storage.NewMemoryStorage(logger)
	issuer := auth.NewIssuer("secret", time.Hour)
	resolver := &Resolver{
		Accounts: service.NewAccounts(store, issuer, logger),
		Chat:     service.NewChat(store, nil, "model", "Model", logger),
		Feed:     service.NewFeed(store, 20, logger),
	}

	ctx := context.Background()
	user, err := store.CreateUser(ctx, models.User{Email: "ada@example.com", DisplayName: "ada"})
	require.NoError(t, err)
	post, err := store.AddPost(ctx, models.Post{
		AuthorID:    user.ID,
		AuthorEmail: user.Email,
		AuthorName:  user.DisplayName,
		Model:       "GPT-3.5",
		Messages: []models.Message{
			{Role: models.RoleUser, Content: "Explain channels"},
			{Role: models.RoleAssistant, Content: "Typed pipes."},
		},
	})
	require.NoError(t, err)
	return &fixture{
		handler:  NewHandler(resolver, issuer, logger),
		resolver: resolver,
		issuer:   issuer,
		store:    store,
		user:     user,
		post:     post,
	}
}

// as identifies requests the way the api middleware does.
func as(userID string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
	})
}

func post(t *testing.T, h http.Handler, query string, vars map[string]any) (int, gqlResponse) {
	t.Helper()
	body, err := json.Marshal(map[string]any{"query": query, "variables": vars})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var resp gqlResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

func (f *fixture) query(t *testing.T, query string, vars map[string]any) gqlResponse {
	t.Helper()
	code, resp := post(t, f.handler, query, vars)
	require.Equal(t, http.StatusOK, code)
	return resp
}

func TestQuery_PostsProjection(t *testing.T) {
	f := newFixture(t)

	resp := f.query(t, `{
		posts(limit: 5) {
			posts { id model messages { role content } }
			cursor
		}
	}`, nil)

	assert.Empty(t, resp.Errors)
	page := resp.data(t)["posts"].(map[string]any)
	posts := page["posts"].([]any)
	require.Len(t, posts, 1)
	p := posts[0].(map[string]any)
	assert.Equal(t, f.post.ID, p["id"])
	assert.Equal(t, "GPT-3.5", p["model"])
	assert.Len(t, p, 3)
	assert.Nil(t, page["cursor"])
	assert.Equal(t, "user", p["messages"].([]any)[0].(map[string]any)["role"])
}

func TestQuery_FieldOrderFollowsQuery(t *testing.T) {
	f := newFixture(t)

	resp := f.query(t, `query($id: ID!) { post(id: $id) { model id likes } }`, map[string]any{"id": f.post.ID})

	assert.JSONEq(t, `{"post":{"model":"GPT-3.5","id":"`+f.post.ID+`","likes":0}}`, string(resp.Data))
	assert.True(t, strings.HasPrefix(string(resp.Data), `{"post":{"model"`))
}

func TestQuery_AliasesFragmentsTypename(t *testing.T) {
	f := newFixture(t)

	resp := f.query(t, `
		query Feed($id: ID!) {
			first: post(id: $id) { ...PostFields }
			second: post(id: $id) { __typename ... on Post { votes: likes } }
			missing: post(id: "nope") { id }
		}
		fragment PostFields on Post { id authorName }
	`, map[string]any{"id": f.post.ID})

	assert.Empty(t, resp.Errors)
	data := resp.data(t)
	assert.Equal(t, map[string]any{"id": f.post.ID, "authorName": "ada"}, data["first"])
	assert.Equal(t, map[string]any{"__typename": "Post", "votes": float64(0)}, data["second"])
	assert.Contains(t, data, "missing")
	assert.Nil(t, data["missing"])
}

func TestQuery_SkipInclude(t *testing.T) {
	f := newFixture(t)

	resp := f.query(t, `
		query($withModel: Boolean!) {
			post(id: "`+f.post.ID+`") {
				id @skip(if: true)
				model @include(if: $withModel)
				likes @include(if: false)
			}
		}
	`, map[string]any{"withModel": true})

	assert.Equal(t, map[string]any{"model": "GPT-3.5"}, resp.data(t)["post"])
}

func TestMutation_AddCommentThenNestedComments(t *testing.T) {
	f := newFixture(t)

	_, resp := post(t, as(f.user.ID, f.handler),
		`mutation($post: ID!) { addComment(postId: $post, text: "<i>first</i>") { id text } }`,
		map[string]any{"post": f.post.ID})
	require.Empty(t, resp.Errors)

	resp = f.query(t, `query($id: ID!) {
		post(id: $id) { commentCount comments(limit: 10) { text authorEmail parentId } }
	}`, map[string]any{"id": f.post.ID})

	require.Empty(t, resp.Errors)
	p := resp.data(t)["post"].(map[string]any)
	assert.Equal(t, float64(1), p["commentCount"])
	assert.Equal(t, []any{map[string]any{"text": "first", "authorEmail": "ada@example.com", "parentId": nil}}, p["comments"])
}

func TestMutation_AddCommentUnknownParent(t *testing.T) {
	f := newFixture(t)

	_, resp := post(t, as(f.user.ID, f.handler),
		`mutation($post: ID!) { addComment(postId: $post, text: "reply", parentId: "nope") { id } }`,
		map[string]any{"post": f.post.ID})

	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "BAD_USER_INPUT", resp.Errors[0].Extensions["code"])
	assert.Equal(t, "null", string(resp.Data))
}

func TestMutation_LikeRequiresAuth(t *testing.T) {
	f := newFixture(t)
	query := `mutation($id: ID!) { likePost(id: $id) { likes } }`

	resp := f.query(t, query, map[string]any{"id": f.post.ID})
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "UNAUTHENTICATED", resp.Errors[0].Extensions["code"])
	assert.Equal(t, []any{"likePost"}, resp.Errors[0].Path)
	assert.Equal(t, "null", string(resp.Data))

	_, resp = post(t, as(f.user.ID, f.handler), query, map[string]any{"id": f.post.ID})
	require.Empty(t, resp.Errors)
	assert.Equal(t, map[string]any{"likes": float64(1)}, resp.data(t)["likePost"])

	p, err := f.store.GetPostByID(context.Background(), f.post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Likes)
}

func TestMutation_NonNullErrorNullsData(t *testing.T) {
	f := newFixture(t)

	_, resp := post(t, as(f.user.ID, f.handler), `mutation { likePost(id: "missing") { id } }`, nil)

	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "NOT_FOUND", resp.Errors[0].Extensions["code"])
	assert.Equal(t, []any{"likePost"}, resp.Errors[0].Path)
	assert.Equal(t, "null", string(resp.Data))
}

func TestMutation_DislikeUnknownPost(t *testing.T) {
	f := newFixture(t)

	_, resp := post(t, as(f.user.ID, f.handler), `mutation { dislikePost(id: "nope") { id } }`, nil)

	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "NOT_FOUND", resp.Errors[0].Extensions["code"])
}

func TestQuery_ProfileAndMe(t *testing.T) {
	f := newFixture(t)

	_, resp := post(t, as(f.user.ID, f.handler), `query($id: ID!) {
		me { email }
		user(id: $id) { karma isOwnProfile user { displayName } posts { id } }
	}`, map[string]any{"id": f.user.ID})

	require.Empty(t, resp.Errors)
	data := resp.data(t)
	assert.Equal(t, map[string]any{"email": "ada@example.com"}, data["me"])
	profile := data["user"].(map[string]any)
	assert.Equal(t, true, profile["isOwnProfile"])
	assert.Equal(t, float64(0), profile["karma"])
	assert.Len(t, profile["posts"], 1)

	resp = f.query(t, `{ me { email } }`, nil)
	assert.Nil(t, resp.data(t)["me"])
}

func TestQuery_Conversations(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.CreateConversation(context.Background(), f.user.ID, []models.Message{{Role: models.RoleUser, Content: "hello there"}})
	require.NoError(t, err)

	_, resp := post(t, as(f.user.ID, f.handler), `{ conversations { title messages { content } } }`, nil)

	require.Empty(t, resp.Errors)
	assert.Equal(t, []any{map[string]any{
		"title":    "hello there",
		"messages": []any{map[string]any{"content": "hello there"}},
	}}, resp.data(t)["conversations"])
}

func TestQuery_ConversationsRequireAuth(t *testing.T) {
	f := newFixture(t)

	resp := f.query(t, `{ posts { cursor } conversations { id } }`, nil)

	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "UNAUTHENTICATED", resp.Errors[0].Extensions["code"])
	assert.Equal(t, "null", string(resp.Data))
}

func TestQuery_Invalid(t *testing.T) {
	f := newFixture(t)

	code, resp := post(t, f.handler, `{ posts { nope } }`, nil)

	assert.Equal(t, http.StatusUnprocessableEntity, code)
	require.NotEmpty(t, resp.Errors)
	assert.Empty(t, resp.Data)
}

func TestQuery_NegativeLimit(t *testing.T) {
	f := newFixture(t)

	resp := f.query(t, `{ comments(postId: "`+f.post.ID+`", limit: -1) { id } }`, nil)

	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "BAD_USER_INPUT", resp.Errors[0].Extensions["code"])
}

func TestQuery_Introspection(t *testing.T) {
	f := newFixture(t)

	resp := f.query(t, `{
		__schema { queryType { name } mutationType { name } subscriptionType { name } }
		__type(name: "Post") { kind fields { name } }
	}`, nil)

	require.Empty(t, resp.Errors)
	data := resp.data(t)
	schema := data["__schema"].(map[string]any)
	assert.Equal(t, map[string]any{"name": "Query"}, schema["queryType"])
	assert.Equal(t, map[string]any{"name": "Mutation"}, schema["mutationType"])
	assert.Equal(t, map[string]any{"name": "Subscription"}, schema["subscriptionType"])

	postType := data["__type"].(map[string]any)
	assert.Equal(t, "OBJECT", postType["kind"])
	assert.Contains(t, postType["fields"], map[string]any{"name": "likes"})
}

func TestGET(t *testing.T) {
	f := newFixture(t)
	get := func(params url.Values) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/query?"+params.Encode(), nil)
		w := httptest.NewRecorder()
		as(f.user.ID, f.handler).ServeHTTP(w, req)
		return w
	}

	w := get(url.Values{"query": {`{ posts(limit: 1) { posts { id } } }`}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), f.post.ID)

	w = get(url.Values{"query": {`mutation { likePost(id: "` + f.post.ID + `") { id } }`}})
	assert.Equal(t, http.StatusNotAcceptable, w.Code)

	w = get(url.Values{
		"query":         {`query A { posts { cursor } } mutation B { likePost(id: "` + f.post.ID + `") { likes } }`},
		"operationName": {"B"},
	})
	assert.Equal(t, http.StatusNotAcceptable, w.Code)

	p, err := f.store.GetPostByID(context.Background(), f.post.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Likes)
}

// subscribedResolver reports each opened subscription on ready.
type subscribedResolver struct {
	*Resolver
	ready chan struct{}
}

func (r *subscribedResolver) Subscription() SubscriptionResolver {
	return &subscribedStream{SubscriptionResolver: r.Resolver.Subscription(), ready: r.ready}
}

type subscribedStream struct {
	SubscriptionResolver
	ready chan struct{}
}

func (s *subscribedStream) CommentAdded(ctx context.Context, postID string) (<-chan *models.Comment, error) {
	ch, err := s.SubscriptionResolver.CommentAdded(ctx, postID)
	s.ready <- struct{}{}
	return ch, err
}

func (s *subscribedStream) FeedUpdated(ctx context.Context) (<-chan models.FeedEvent, error) {
	ch, err := s.SubscriptionResolver.FeedUpdated(ctx)
	s.ready <- struct{}{}
	return ch, err
}

type wsMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func dialSubscription(t *testing.T, f *fixture, query string, vars map[string]any) (*websocket.Conn, chan struct{}) {
	t.Helper()
	ready := make(chan struct{}, 1)
	h := NewHandler(&subscribedResolver{Resolver: f.resolver, ready: ready}, f.issuer, slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	dialer := websocket.Dialer{Subprotocols: []string{"graphql-transport-ws"}}
	conn, _, err := dialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, conn.WriteJSON(wsMessage{Type: "connection_init"}))
	assert.Equal(t, "connection_ack", readMessage(t, conn).Type)

	payload, err := json.Marshal(map[string]any{"query": query, "variables": vars})
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(wsMessage{ID: "1", Type: "subscribe", Payload: payload}))
	return conn, ready
}

func readMessage(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg wsMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type != "ping" && msg.Type != "pong" {
			return msg
		}
	}
}

func waitReady(t *testing.T, ready chan struct{}) {
	t.Helper()
	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		t.Fatal("subscription was not opened")
	}
}

func TestSubscription_CommentAdded(t *testing.T) {
	f := newFixture(t)
	conn, ready := dialSubscription(t, f,
		`subscription($id: ID!) { added: commentAdded(postId: $id) { text authorEmail } }`,
		map[string]any{"id": f.post.ID})
	waitReady(t, ready)

	_, err := f.resolver.Feed.AddComment(context.Background(), f.user.ID, f.post.ID, "live", nil)
	require.NoError(t, err)

	msg := readMessage(t, conn)
	assert.Equal(t, "next", msg.Type)
	assert.Equal(t, "1", msg.ID)
	assert.JSONEq(t, `{"data":{"added":{"text":"live","authorEmail":"ada@example.com"}}}`, string(msg.Payload))
}

func TestSubscription_FeedUpdated(t *testing.T) {
	f := newFixture(t)
	conn, ready := dialSubscription(t, f, `subscription { feedUpdated { type post { id likes } } }`, nil)
	waitReady(t, ready)

	_, err := f.resolver.Feed.Like(context.Background(), f.post.ID)
	require.NoError(t, err)

	msg := readMessage(t, conn)
	assert.Equal(t, "next", msg.Type)
	assert.JSONEq(t, `{"data":{"feedUpdated":{"type":"`+models.EventPostUpdated+`","post":{"id":"`+f.post.ID+`","likes":1}}}}`, string(msg.Payload))
}

func TestSubscription_UnknownPost(t *testing.T) {
	f := newFixture(t)
	conn, _ := dialSubscription(t, f, `subscription { commentAdded(postId: "nope") { id } }`, nil)

	msg := readMessage(t, conn)
	assert.Equal(t, "next", msg.Type)
	var resp gqlResponse
	require.NoError(t, json.Unmarshal(msg.Payload, &resp))
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "NOT_FOUND", resp.Errors[0].Extensions["code"])
	assert.Equal(t, "complete", readMessage(t, conn).Type)
}
