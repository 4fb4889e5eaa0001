package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MosinFAM/synapse/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	usersCollection         = "users"
	conversationsCollection = "conversations"
	postsCollection         = "posts"
	commentsCollection      = "comments"
)

// MongoStorage stores data in MongoDB. Events stay in process.
type MongoStorage struct {
	db     *mongo.Database
	hub    *Hub
	logger *slog.Logger
}

// NewMongoStorage stores data in db. Call EnsureIndexes before serving.
func NewMongoStorage(db *mongo.Database, logger *slog.Logger) *MongoStorage {
	if logger == nil {
		logger = slog.Default()
	}
	return &MongoStorage{db: db, hub: NewHub(logger), logger: logger}
}

// EnsureIndexes creates the indexes the queries rely on.
func (s *MongoStorage) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		conversationsCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "updated_at", Value: -1}}},
		},
		postsCollection: {
			{Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
			{Keys: bson.D{{Key: "author_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		commentsCollection: {
			{Keys: bson.D{{Key: "post_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
	}
	for name, idx := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

func (s *MongoStorage) collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func (s *MongoStorage) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	user.Email = models.NormalizeEmail(user.Email)
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = timestamp()
	}
	if _, err := s.collection(usersCollection).InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.User{}, fmt.Errorf("user %s: %w", user.Email, ErrConflict)
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *MongoStorage) findUser(ctx context.Context, filter bson.M, key string) (*models.User, error) {
	var user models.User
	err := s.collection(usersCollection).FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("user %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error finding user: %w", err)
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}

func (s *MongoStorage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"_id": id}, id)
}

func (s *MongoStorage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"email": models.NormalizeEmail(email)}, email)
}

// UpdateUser applies a profile update.
func (s *MongoStorage) UpdateUser(ctx context.Context, id string, update models.ProfileUpdate) (*models.User, error) {
	set := bson.M{}
	if update.DisplayName != nil {
		set["display_name"] = *update.DisplayName
	}
	if update.Bio != nil {
		set["bio"] = *update.Bio
	}
	if update.PhotoURL != nil {
		set["photo_url"] = *update.PhotoURL
	}
	if len(set) > 0 {
		res, err := s.collection(usersCollection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
		if err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		if res.MatchedCount == 0 {
			return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
	}
	return s.GetUserByID(ctx, id)
}

func (s *MongoStorage) CreateConversation(ctx context.Context, userID string, messages []models.Message) (*models.Conversation, error) {
	now := timestamp()
	convo := &models.Conversation{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     models.ConversationTitle(messages),
		Messages:  models.CloneMessages(messages),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if convo.Messages == nil {
		convo.Messages = []models.Message{}
	}
	if _, err := s.collection(conversationsCollection).InsertOne(ctx, convo); err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}
	return convo, nil
}

// UpdateConversation replaces the messages of an owned conversation.
func (s *MongoStorage) UpdateConversation(ctx context.Context, id, userID string, messages []models.Message) (*models.Conversation, error) {
	if _, err := s.GetConversation(ctx, id, userID); err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []models.Message{}
	}
	_, err := s.collection(conversationsCollection).UpdateOne(ctx,
		bson.M{"_id": id, "user_id": userID},
		bson.M{"$set": bson.M{
			"messages":   messages,
			"title":      models.ConversationTitle(messages),
			"updated_at": timestamp(),
		}})
	if err != nil {
		return nil, fmt.Errorf("update conversation: %w", err)
	}
	return s.GetConversation(ctx, id, userID)
}

// GetConversation returns a conversation owned by userID.
func (s *MongoStorage) GetConversation(ctx context.Context, id, userID string) (*models.Conversation, error) {
	var convo models.Conversation
	err := s.collection(conversationsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&convo)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	if convo.UserID != userID {
		return nil, fmt.Errorf("conversation %s: %w", id, ErrForbidden)
	}
	convo.CreatedAt, convo.UpdatedAt = convo.CreatedAt.UTC(), convo.UpdatedAt.UTC()
	return &convo, nil
}

// ListConversations returns the user's conversations, most recently updated first.
func (s *MongoStorage) ListConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.collection(conversationsCollection).Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch conversations: %w", err)
	}
	defer cursor.Close(ctx)

	convos := []models.Conversation{}
	if err := cursor.All(ctx, &convos); err != nil {
		return nil, fmt.Errorf("failed to decode conversations: %w", err)
	}
	for i := range convos {
		convos[i].CreatedAt, convos[i].UpdatedAt = convos[i].CreatedAt.UTC(), convos[i].UpdatedAt.UTC()
	}
	return convos, nil
}

func (s *MongoStorage) DeleteConversation(ctx context.Context, id, userID string) error {
	if _, err := s.GetConversation(ctx, id, userID); err != nil {
		return err
	}
	if _, err := s.collection(conversationsCollection).DeleteOne(ctx, bson.M{"_id": id, "user_id": userID}); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

func (s *MongoStorage) AddPost(ctx context.Context, post models.Post) (models.Post, error) {
	post.ID = uuid.New().String()
	post.Messages = models.CloneMessages(post.Messages)
	if post.Messages == nil {
		post.Messages = []models.Message{}
	}
	post.Likes, post.Dislikes, post.CommentCount = 0, 0, 0
	if post.CreatedAt.IsZero() {
		post.CreatedAt = timestamp()
	}
	post.CreatedAt = post.CreatedAt.UTC().Truncate(time.Millisecond)

	if _, err := s.collection(postsCollection).InsertOne(ctx, post); err != nil {
		return models.Post{}, fmt.Errorf("insert post: %w", err)
	}

	published := post
	s.hub.PublishFeed(models.FeedEvent{Type: models.EventPostCreated, Post: &published})
	return post, nil
}

// GetPosts returns the page after cursor, newest first.
func (s *MongoStorage) GetPosts(ctx context.Context, limit int, cursor string) (models.PostPage, error) {
	limit = normalizeLimit(limit, defaultPageSize, maxPageSize)

	filter, err := feedFilter(cursor)
	if err != nil {
		return models.PostPage{}, err
	}
	opts := options.Find().
		SetSort(feedSort).
		SetLimit(int64(limit + 1))
	posts, err := s.findPosts(ctx, filter, opts)
	if err != nil {
		return models.PostPage{}, err
	}

	page := models.PostPage{Posts: posts}
	if len(posts) > limit {
		page.Posts = posts[:limit]
		page.Cursor = encodeCursor(page.Posts[limit-1])
	}
	return page, nil
}

// feedSort orders posts newest first with the id as a tie-breaker.
var feedSort = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

// feedFilter selects posts strictly after cursor in feedSort order.
func feedFilter(cursor string) (bson.M, error) {
	if cursor == "" {
		return bson.M{}, nil
	}
	at, id, err := parseCursor(cursor)
	if err != nil {
		return nil, err
	}
	return bson.M{"$or": bson.A{
		bson.M{"created_at": bson.M{"$lt": at}},
		bson.M{"created_at": at, "_id": bson.M{"$lt": id}},
	}}, nil
}

func (s *MongoStorage) findPosts(ctx context.Context, filter bson.M, opts *options.FindOptionsBuilder) ([]models.Post, error) {
	cursor, err := s.collection(postsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch posts: %w", err)
	}
	defer cursor.Close(ctx)

	posts := []models.Post{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("failed to decode posts: %w", err)
	}
	for i := range posts {
		if err := s.fillCommentCount(ctx, &posts[i]); err != nil {
			return nil, err
		}
	}
	return posts, nil
}

func (s *MongoStorage) fillCommentCount(ctx context.Context, post *models.Post) error {
	n, err := s.collection(commentsCollection).CountDocuments(ctx, bson.M{"post_id": post.ID})
	if err != nil {
		return fmt.Errorf("count comments: %w", err)
	}
	post.CommentCount = int(n)
	post.CreatedAt = post.CreatedAt.UTC()
	return nil
}

func (s *MongoStorage) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	err := s.collection(postsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find post: %w", err)
	}
	if err := s.fillCommentCount(ctx, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// GetPostsByAuthor returns an author's posts, newest first.
func (s *MongoStorage) GetPostsByAuthor(ctx context.Context, authorID string) ([]models.Post, error) {
	opts := options.Find().SetSort(feedSort)
	return s.findPosts(ctx, bson.M{"author_id": authorID}, opts)
}

// IncrementVote adds one vote with $inc.
func (s *MongoStorage) IncrementVote(ctx context.Context, postID string, kind models.VoteKind) (*models.Post, error) {
	column, err := kind.Column()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	var post models.Post
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = s.collection(postsCollection).
		FindOneAndUpdate(ctx, bson.M{"_id": postID}, bson.M{"$inc": bson.M{column: 1}}, opts).
		Decode(&post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("post %s: %w", postID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("increment %s: %w", column, err)
	}
	if err := s.fillCommentCount(ctx, &post); err != nil {
		return nil, err
	}

	published := post
	s.hub.PublishFeed(models.FeedEvent{Type: models.EventPostUpdated, Post: &published})
	return &post, nil
}

// AddComment stores a comment on an existing post. A parent must be on the same post.
func (s *MongoStorage) AddComment(ctx context.Context, comment models.Comment) (*models.Comment, error) {
	n, err := s.collection(postsCollection).CountDocuments(ctx, bson.M{"_id": comment.PostID})
	if err != nil {
		return nil, fmt.Errorf("find post: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("post %s: %w", comment.PostID, ErrNotFound)
	}
	if len([]rune(comment.Text)) > models.MaxCommentLength {
		return nil, fmt.Errorf("%w: comment is too long", ErrInvalid)
	}
	if comment.ParentID != nil {
		n, err := s.collection(commentsCollection).CountDocuments(ctx, bson.M{"_id": *comment.ParentID, "post_id": comment.PostID})
		if err != nil {
			return nil, fmt.Errorf("find parent comment: %w", err)
		}
		if n == 0 {
			return nil, parentError(*comment.ParentID, comment.PostID)
		}
	}

	comment.ID = uuid.New().String()
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = timestamp()
	}
	if _, err := s.collection(commentsCollection).InsertOne(ctx, comment); err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}

	s.hub.PublishComment(&comment)
	return &comment, nil
}

// GetCommentsByPostID returns a post's comments, newest first.
func (s *MongoStorage) GetCommentsByPostID(ctx context.Context, postID string, limit, offset int) ([]*models.Comment, error) {
	if _, err := s.GetPostByID(ctx, postID); err != nil {
		return nil, err
	}

	limit = normalizeLimit(limit, defaultCommentPage, maxCommentPage)
	if offset < 0 {
		offset = 0
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cursor, err := s.collection(commentsCollection).Find(ctx, bson.M{"post_id": postID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch comments: %w", err)
	}
	defer cursor.Close(ctx)

	comments := []*models.Comment{}
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, fmt.Errorf("failed to decode comments: %w", err)
	}
	for _, c := range comments {
		c.CreatedAt = c.CreatedAt.UTC()
	}
	return comments, nil
}

func (s *MongoStorage) SubscribeToComments(ctx context.Context, postID string) (<-chan *models.Comment, error) {
	return s.hub.SubscribeComments(ctx, postID), nil
}

func (s *MongoStorage) SubscribeToFeed(ctx context.Context) (<-chan models.FeedEvent, error) {
	return s.hub.SubscribeFeed(ctx), nil
}

var (
	_ Storage = (*MemoryStorage)(nil)
	_ Storage = (*PostgresStorage)(nil)
	_ Storage = (*SQLiteStorage)(nil)
	_ Storage = (*MongoStorage)(nil)
)
