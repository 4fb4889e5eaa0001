package graph

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/MosinFAM/synapse/internal/models"
	"github.com/MosinFAM/synapse/internal/storage"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2/ast"
)

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

var postImplementors = []string{"Post"}

func (ec *executionContext) _Post(ctx context.Context, sel ast.SelectionSet, obj *models.Post) graphql.Marshaler {
	fields := graphql.CollectFields(ec.OperationContext, sel, postImplementors)

	out := graphql.NewFieldSet(fields)
	for i, field := range fields {
		switch field.Name {
		case "__typename":
			out.Values[i] = graphql.MarshalString("Post")
		case "id":
			out.Values[i] = graphql.MarshalID(obj.ID)
		case "authorId":
			out.Values[i] = graphql.MarshalID(obj.AuthorID)
		case "authorEmail":
			out.Values[i] = graphql.MarshalString(obj.AuthorEmail)
		case "authorName":
			out.Values[i] = graphql.MarshalString(obj.AuthorName)
		case "authorPhoto":
			out.Values[i] = graphql.MarshalString(obj.AuthorPhoto)
		case "messages":
			ctx := graphql.WithFieldContext(ctx, ec.fieldContext("Post", field, false))
			out.Values[i] = marshalList(ctx, field.Selections, obj.Messages, ec.marshalNMessage)
		case "model":
			out.Values[i] = graphql.MarshalString(obj.Model)
		case "likes":
			out.Values[i] = graphql.MarshalInt(obj.Likes)
		case "dislikes":
			out.Values[i] = graphql.MarshalInt(obj.Dislikes)
		case "score":
			out.Values[i] = graphql.MarshalInt(obj.Score())
		case "commentCount":
			out.Values[i] = graphql.MarshalInt(obj.CommentCount)
		case "createdAt":
			out.Values[i] = graphql.MarshalString(formatTime(obj.CreatedAt))
		case "comments":
			out.Concurrently(i, func(ctx context.Context) graphql.Marshaler {
				res := ec._Post_comments(ctx, field, obj)
				if res == graphql.Null {
					atomic.AddUint32(&out.Invalids, 1)
				}
				return res
			})
			continue
		default:
			panic("unknown field " + strconv.Quote(field.Name))
		}
		if out.Values[i] == graphql.Null {
			out.Invalids++
		}
	}
	out.Dispatch(ctx)
	if out.Invalids > 0 {
		return graphql.Null
	}
	return out
}

func (ec *executionContext) _Post_comments(ctx context.Context, field graphql.CollectedField, obj *models.Post) graphql.Marshaler {
	fc := ec.fieldContext("Post", field, true)
	return resolveField(ctx, ec, fc, func(ctx context.Context) ([]*models.Comment, error) {
		limit, offset, err := pageArgs(fc.Args)
		if err != nil {
			return nil, err
		}
		return ec.resolvers.Post().Comments(ctx, obj, limit, offset)
	}, ec.marshalNCommentList)
}

var postPageImplementors = []string{"PostPage"}

func (ec *executionContext) _PostPage(ctx context.Context, sel ast.SelectionSet, obj *models.PostPage) graphql.Marshaler {
	fields := graphql.CollectFields(ec.OperationContext, sel, postPageImplementors)

	out := graphql.NewFieldSet(fields)
	for i, field := range fields {
		switch field.Name {
		case "__typename":
			out.Values[i] = graphql.MarshalString("PostPage")
		case "posts":
			ctx := graphql.WithFieldContext(ctx, ec.fieldContext("PostPage", field, false))
			out.Values[i] = marshalList(ctx, field.Selections, obj.Posts, ec.marshalNPostValue)
			if out.Values[i] == graphql.Null {
				out.Invalids++
			}
		case "cursor":
			if obj.Cursor == "" {
				out.Values[i] = graphql.Null
			} else {
				out.Values[i] = graphql.MarshalString(obj.Cursor)
			}
		default:
			panic("unknown field " + strconv.Quote(field.Name))
		}
	}
	out.Dispatch(ctx)
	if out.Invalids > 0 {
		return graphql.Null
	}
	return out
}

var commentImplementors = []string{"Comment"}

func (ec *executionContext) _Comment(ctx context.Context, sel ast.SelectionSet, obj *models.Comment) graphql.Marshaler {
	fields := graphql.CollectFields(ec.OperationContext, sel, commentImplementors)

	out := graphql.NewFieldSet(fields)
	for i, field := range fields {
		switch field.Name {
		case "__typename":
			out.Values[i] = graphql.MarshalString("Comment")
		case "id":
			out.Values[i] = graphql.MarshalID(obj.ID)
		case "postId":
			out.Values[i] = graphql.MarshalID(obj.PostID)
		case "parentId":
			if obj.ParentID == nil {
				out.Values[i] = graphql.Null
			} else {
				out.Values[i] = graphql.MarshalID(*obj.ParentID)
			}
		case "authorId":
			out.Values[i] = graphql.MarshalID(obj.AuthorID)
		case "authorEmail":
			out.Values[i] = graphql.MarshalString(obj.AuthorEmail)
		case "text":
			out.Values[i] = graphql.MarshalString(obj.Text)
		case "createdAt":
			out.Values[i] = graphql.MarshalString(formatTime(obj.CreatedAt))
		default:
			panic("unknown field " + strconv.Quote(field.Name))
		}
	}
	out.Dispatch(ctx)
	return out
}

var userImplementors = []string{"User"}

func (ec *executionContext) _User(ctx context.Context, sel ast.SelectionSet, obj *models.User) graphql.Marshaler {
	fields := graphql.CollectFields(ec.OperationContext, sel, userImplementors)

	out := graphql.NewFieldSet(fields)
	for i, field := range fields {
		switch field.Name {
		case "__typename":
			out.Values[i] = graphql.MarshalString("User")
		case "id":
			out.Values[i] = graphql.MarshalID(obj.ID)
		case "email":
			out.Values[i] = graphql.MarshalString(obj.Email)
		case "displayName":
			out.Values[i] = graphql.MarshalString(obj.DisplayName)
		case "photoURL":
			out.Values[i] = graphql.MarshalString(obj.PhotoURL)
		case "bio":
			out.Values[i] = graphql.MarshalString(obj.Bio)
		case "createdAt":
			out.Values[i] = graphql.MarshalString(formatTime(obj.CreatedAt))
		default:
			panic("unknown field " + strconv.Quote(field.Name))
		}
	}
	out.Dispatch(ctx)
	return out
}

var profileImplementors = []string{"Profile"}

func (ec *executionContext) _Profile(ctx context.Context, sel ast.SelectionSet, obj *models.Profile) graphql.Marshaler {
	fields := graphql.CollectFields(ec.OperationContext, sel, profileImplementors)

	out := graphql.NewFieldSet(fields)
	for i, field := range fields {
		ctx := graphql.WithFieldContext(ctx, ec.fieldContext("Profile", field, false))
		switch field.Name {
		case "__typename":
			out.Values[i] = graphql.MarshalString("Profile")
		case "user":
			out.Values[i] = ec._User(ctx, field.Selections, &obj.User)
		case "posts":
			out.Values[i] = marshalList(ctx, field.Selections, obj.Posts, ec.marshalNPostValue)
		case "karma":
			out.Values[i] = graphql.MarshalInt(obj.Karma)
		case "isOwnProfile":
			out.Values[i] = graphql.MarshalBoolean(obj.IsOwnProfile)
		default:
			panic("unknown field " + strconv.Quote(field.Name))
		}
		if out.Values[i] == graphql.Null {
			out.Invalids++
		}
	}
	out.Dispatch(ctx)
	if out.Invalids > 0 {
		return graphql.Null
	}
	return out
}

var conversationImplementors = []string{"Conversation"}

func (ec *executionContext) _Conversation(ctx context.Context, sel ast.SelectionSet, obj *models.Conversation) graphql.Marshaler {
	fields := graphql.CollectFields(ec.OperationContext, sel, conversationImplementors)

	out := graphql.NewFieldSet(fields)
	for i, field := range fields {
		switch field.Name {
		case "__typename":
			out.Values[i] = graphql.MarshalString("Conversation")
		case "id":
			out.Values[i] = graphql.MarshalID(obj.ID)
		case "title":
			out.Values[i] = graphql.MarshalString(obj.Title)
		case "messages":
			ctx := graphql.WithFieldContext(ctx, ec.fieldContext("Conversation", field, false))
			out.Values[i] = marshalList(ctx, field.Selections, obj.Messages, ec.marshalNMessage)
		case "createdAt":
			out.Values[i] = graphql.MarshalString(formatTime(obj.CreatedAt))
		case "updatedAt":
			out.Values[i] = graphql.MarshalString(formatTime(obj.UpdatedAt))
		default:
			panic("unknown field " + strconv.Quote(field.Name))
		}
		if out.Values[i] == graphql.Null {
			out.Invalids++
		}
	}
	out.Dispatch(ctx)
	if out.Invalids > 0 {
		return graphql.Null
	}
	return out
}

var messageImplementors = []string{"Message"}

func (ec *executionContext) _Message(ctx context.Context, sel ast.SelectionSet, obj *models.Message) graphql.Marshaler {
	fields := graphql.CollectFields(ec.OperationContext, sel, messageImplementors)

	out := graphql.NewFieldSet(fields)
	for i, field := range fields {
		switch field.Name {
		case "__typename":
			out.Values[i] = graphql.MarshalString("Message")
		case "role":
			out.Values[i] = graphql.MarshalString(obj.Role)
		case "content":
			out.Values[i] = graphql.MarshalString(obj.Content)
		default:
			panic("unknown field " + strconv.Quote(field.Name))
		}
	}
	out.Dispatch(ctx)
	return out
}

var feedEventImplementors = []string{"FeedEvent"}

func (ec *executionContext) _FeedEvent(ctx context.Context, sel ast.SelectionSet, obj *models.FeedEvent) graphql.Marshaler {
	fields := graphql.CollectFields(ec.OperationContext, sel, feedEventImplementors)

	out := graphql.NewFieldSet(fields)
	for i, field := range fields {
		switch field.Name {
		case "__typename":
			out.Values[i] = graphql.MarshalString("FeedEvent")
		case "type":
			out.Values[i] = graphql.MarshalString(obj.Type)
		case "post":
			ctx := graphql.WithFieldContext(ctx, ec.fieldContext("FeedEvent", field, false))
			out.Values[i] = ec.marshalNPost(ctx, field.Selections, obj.Post)
		default:
			panic("unknown field " + strconv.Quote(field.Name))
		}
		if out.Values[i] == graphql.Null {
			out.Invalids++
		}
	}
	out.Dispatch(ctx)
	if out.Invalids > 0 {
		return graphql.Null
	}
	return out
}

func (ec *executionContext) marshalNPost(ctx context.Context, sel ast.SelectionSet, v *models.Post) graphql.Marshaler {
	if v == nil {
		return nullNotAllowed(ctx)
	}
	return ec._Post(ctx, sel, v)
}

func (ec *executionContext) marshalOPost(ctx context.Context, sel ast.SelectionSet, v *models.Post) graphql.Marshaler {
	if v == nil {
		return graphql.Null
	}
	return ec._Post(ctx, sel, v)
}

func (ec *executionContext) marshalNPostValue(ctx context.Context, sel ast.SelectionSet, v models.Post) graphql.Marshaler {
	return ec._Post(ctx, sel, &v)
}

func (ec *executionContext) marshalNPostPage(ctx context.Context, sel ast.SelectionSet, v models.PostPage) graphql.Marshaler {
	return ec._PostPage(ctx, sel, &v)
}

func (ec *executionContext) marshalNComment(ctx context.Context, sel ast.SelectionSet, v *models.Comment) graphql.Marshaler {
	if v == nil {
		return nullNotAllowed(ctx)
	}
	return ec._Comment(ctx, sel, v)
}

func (ec *executionContext) marshalNCommentList(ctx context.Context, sel ast.SelectionSet, v []*models.Comment) graphql.Marshaler {
	return marshalList(ctx, sel, v, ec.marshalNComment)
}

func (ec *executionContext) marshalOUser(ctx context.Context, sel ast.SelectionSet, v *models.User) graphql.Marshaler {
	if v == nil {
		return graphql.Null
	}
	return ec._User(ctx, sel, v)
}

func (ec *executionContext) marshalOProfile(ctx context.Context, sel ast.SelectionSet, v *models.Profile) graphql.Marshaler {
	if v == nil {
		return graphql.Null
	}
	return ec._Profile(ctx, sel, v)
}

func (ec *executionContext) marshalNConversationList(ctx context.Context, sel ast.SelectionSet, v []models.Conversation) graphql.Marshaler {
	return marshalList(ctx, sel, v, func(ctx context.Context, sel ast.SelectionSet, c models.Conversation) graphql.Marshaler {
		return ec._Conversation(ctx, sel, &c)
	})
}

func (ec *executionContext) marshalNMessage(ctx context.Context, sel ast.SelectionSet, v models.Message) graphql.Marshaler {
	return ec._Message(ctx, sel, &v)
}

func (ec *executionContext) marshalNFeedEvent(ctx context.Context, sel ast.SelectionSet, v models.FeedEvent) graphql.Marshaler {
	return ec._FeedEvent(ctx, sel, &v)
}

// marshalList marshals a non-null list of non-null items. A null item
// nulls the whole list.
func marshalList[T any](ctx context.Context, sel ast.SelectionSet, v []T, item func(ctx context.Context, sel ast.SelectionSet, v T) graphql.Marshaler) graphql.Marshaler {
	ret := make(graphql.Array, len(v))
	for i := range v {
		ctx := graphql.WithFieldContext(ctx, &graphql.FieldContext{
			Index:  &i,
			Result: &v[i],
		})
		ret[i] = item(ctx, sel, v[i])
	}

	for _, e := range ret {
		if e == graphql.Null {
			return graphql.Null
		}
	}
	return ret
}

// marshalOList is marshalList for a nullable list.
func marshalOList[T any](ctx context.Context, sel ast.SelectionSet, v []T, item func(ctx context.Context, sel ast.SelectionSet, v T) graphql.Marshaler) graphql.Marshaler {
	if v == nil {
		return graphql.Null
	}
	return marshalList(ctx, sel, v, item)
}

func marshalOString(v *string) graphql.Marshaler {
	if v == nil {
		return graphql.Null
	}
	return graphql.MarshalString(*v)
}

func invalidArg(name string, err error) error {
	return fmt.Errorf("%w: %s: %v", storage.ErrInvalid, name, err)
}

func idArg(args map[string]any, name string) (string, error) {
	id, err := graphql.UnmarshalID(args[name])
	if err != nil {
		return "", invalidArg(name, err)
	}
	return id, nil
}

func optionalID(v any, name string) (*string, error) {
	if v == nil {
		return nil, nil
	}
	id, err := graphql.UnmarshalID(v)
	if err != nil {
		return nil, invalidArg(name, err)
	}
	return &id, nil
}

func optionalString(v any, name string) (*string, error) {
	if v == nil {
		return nil, nil
	}
	s, err := graphql.UnmarshalString(v)
	if err != nil {
		return nil, invalidArg(name, err)
	}
	return &s, nil
}

// optionalInt decodes an Int argument. Literals arrive as int64, JSON
// variables as json.Number.
func optionalInt(v any, name string) (*int, error) {
	if v == nil {
		return nil, nil
	}
	n, err := graphql.UnmarshalInt(v)
	if err != nil {
		return nil, invalidArg(name, err)
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: %s must not be negative", storage.ErrInvalid, name)
	}
	return &n, nil
}

func pageArgs(args map[string]any) (limit, offset int, err error) {
	l, err := optionalInt(args["limit"], "limit")
	if err != nil {
		return 0, 0, err
	}
	o, err := optionalInt(args["offset"], "offset")
	if err != nil {
		return 0, 0, err
	}
	if l != nil {
		limit = *l
	}
	if o != nil {
		offset = *o
	}
	return limit, offset, nil
}
