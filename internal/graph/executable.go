package graph

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"sync/atomic"

	"github.com/MosinFAM/synapse/internal/models"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

const (
	// defaultListComplexity weighs list fields called without a limit.
	defaultListComplexity = 20
	maxListComplexity     = 100
)

type Config struct {
	Resolvers ResolverRoot
}

// NewExecutableSchema creates an ExecutableSchema from the ResolverRoot interface.
func NewExecutableSchema(cfg Config) graphql.ExecutableSchema {
	return &executableSchema{schema: parsedSchema, resolvers: cfg.Resolvers}
}

type executableSchema struct {
	schema    *ast.Schema
	resolvers ResolverRoot
}

func (e *executableSchema) Schema() *ast.Schema {
	return e.schema
}

// Complexity multiplies list fields by the number of items they may return.
func (e *executableSchema) Complexity(typeName, field string, childComplexity int, args map[string]any) (int, bool) {
	switch typeName + "." + field {
	case "Query.posts", "Query.comments", "Post.comments":
		limit := defaultListComplexity
		if l, err := optionalInt(args["limit"], "limit"); err == nil && l != nil && *l > 0 {
			limit = min(*l, maxListComplexity)
		}
		return 1 + childComplexity*limit, true
	}
	return 0, false
}

func (e *executableSchema) Exec(ctx context.Context) graphql.ResponseHandler {
	opCtx := graphql.GetOperationContext(ctx)
	ec := &executionContext{opCtx, e}
	first := true

	switch opCtx.Operation.Operation {
	case ast.Query:
		return func(ctx context.Context) *graphql.Response {
			if !first {
				return nil
			}
			first = false
			data := ec._Query(ctx, opCtx.Operation.SelectionSet)
			var buf bytes.Buffer
			data.MarshalGQL(&buf)

			return &graphql.Response{Data: buf.Bytes()}
		}
	case ast.Mutation:
		return func(ctx context.Context) *graphql.Response {
			if !first {
				return nil
			}
			first = false
			data := ec._Mutation(ctx, opCtx.Operation.SelectionSet)
			var buf bytes.Buffer
			data.MarshalGQL(&buf)

			return &graphql.Response{Data: buf.Bytes()}
		}
	case ast.Subscription:
		next := ec._Subscription(ctx, opCtx.Operation.SelectionSet)

		var buf bytes.Buffer
		return func(ctx context.Context) *graphql.Response {
			if next == nil {
				return nil
			}
			buf.Reset()
			data := next(ctx)
			if data == nil {
				return nil
			}
			data.MarshalGQL(&buf)

			return &graphql.Response{Data: buf.Bytes()}
		}
	default:
		return graphql.OneShot(graphql.ErrorResponse(ctx, "unsupported GraphQL operation"))
	}
}

type executionContext struct {
	*graphql.OperationContext
	*executableSchema
}

func (ec *executionContext) fieldContext(object string, field graphql.CollectedField, isResolver bool) *graphql.FieldContext {
	return &graphql.FieldContext{
		Object:     object,
		Field:      field,
		Args:       field.ArgumentMap(ec.Variables),
		IsMethod:   true,
		IsResolver: isResolver,
	}
}

// resolveField runs resolve through the field middleware under fc and
// marshals its result. Errors are reported on the field path.
func resolveField[T any](
	ctx context.Context,
	ec *executionContext,
	fc *graphql.FieldContext,
	resolve func(ctx context.Context) (T, error),
	marshal func(ctx context.Context, sel ast.SelectionSet, v T) graphql.Marshaler,
) (ret graphql.Marshaler) {
	ctx = graphql.WithFieldContext(ctx, fc)
	defer func() {
		if r := recover(); r != nil {
			graphql.AddError(ctx, graphql.Recover(ctx, r))
			ret = graphql.Null
		}
	}()
	resTmp, err := ec.ResolverMiddleware(ctx, func(rctx context.Context) (any, error) {
		ctx = rctx
		res, err := resolve(rctx)
		return res, err
	})
	if err != nil {
		graphql.AddError(ctx, err)
		return graphql.Null
	}
	res, _ := resTmp.(T)
	fc.Result = res
	return marshal(ctx, fc.Field.Selections, res)
}

// nullNotAllowed reports a null value in a non-null position once per field.
func nullNotAllowed(ctx context.Context) graphql.Marshaler {
	if !graphql.HasFieldError(ctx, graphql.GetFieldContext(ctx)) {
		graphql.AddError(ctx, gqlerror.Errorf("the requested element is null which the schema does not allow"))
	}
	return graphql.Null
}

// rootField wraps a root resolver for FieldSet.Concurrently and counts a
// null in a non-null position as invalid.
func (ec *executionContext) rootField(ctx context.Context, out *graphql.FieldSet, field graphql.CollectedField, resolve graphql.RootResolver) func(context.Context) graphql.Marshaler {
	return func(context.Context) graphql.Marshaler {
		res := ec.RootResolverMiddleware(ctx, resolve)
		if res == graphql.Null && field.Definition.Type.NonNull {
			atomic.AddUint32(&out.Invalids, 1)
		}
		return res
	}
}

var queryImplementors = []string{"Query"}

func (ec *executionContext) _Query(ctx context.Context, sel ast.SelectionSet) graphql.Marshaler {
	fields := graphql.CollectFields(ec.OperationContext, sel, queryImplementors)
	ctx = graphql.WithFieldContext(ctx, &graphql.FieldContext{
		Object: "Query",
	})

	out := graphql.NewFieldSet(fields)
	for i, field := range fields {
		innerCtx := graphql.WithRootFieldContext(ctx, &graphql.RootFieldContext{
			Object: field.Name,
			Field:  field,
		})

		switch field.Name {
		case "__typename":
			out.Values[i] = graphql.MarshalString("Query")
		case "posts":
			out.Concurrently(i, ec.rootField(innerCtx, out, field, func(ctx context.Context) graphql.Marshaler {
				return ec._Query_posts(ctx, field)
			}))
		case "post":
			out.Concurrently(i, ec.rootField(innerCtx, out, field, func(ctx context.Context) graphql.Marshaler {
				return ec._Query_post(ctx, field)
			}))
		case "comments":
			out.Concurrently(i, ec.rootField(innerCtx, out, field, func(ctx context.Context) graphql.Marshaler {
				return ec._Query_comments(ctx, field)
			}))
		case "user":
			out.Concurrently(i, ec.rootField(innerCtx, out, field, func(ctx context.Context) graphql.Marshaler {
				return ec._Query_user(ctx, field)
			}))
		case "me":
			out.Concurrently(i, ec.rootField(innerCtx, out, field, func(ctx context.Context) graphql.Marshaler {
				return ec._Query_me(ctx, field)
			}))
		case "conversations":
			out.Concurrently(i, ec.rootField(innerCtx, out, field, func(ctx context.Context) graphql.Marshaler {
				return ec._Query_conversations(ctx, field)
			}))
		case "__schema":
			out.Values[i] = ec.RootResolverMiddleware(innerCtx, func(ctx context.Context) graphql.Marshaler {
				return ec._Query___schema(ctx, field)
			})
		case "__type":
			out.Values[i] = ec.RootResolverMiddleware(innerCtx, func(ctx context.Context) graphql.Marshaler {
				return ec._Query___type(ctx, field)
			})
		default:
			panic("unknown field " + strconv.Quote(field.Name))
		}
		if out.Values[i] == graphql.Null && field.Definition.Type.NonNull {
			out.Invalids++
		}
	}
	out.Dispatch(ctx)
	if out.Invalids > 0 {
		return graphql.Null
	}
	return out
}

func (ec *executionContext) _Query_posts(ctx context.Context, field graphql.CollectedField) graphql.Marshaler {
	fc := ec.fieldContext("Query", field, true)
	return resolveField(ctx, ec, fc, func(ctx context.Context) (models.PostPage, error) {
		limit, err := optionalInt(fc.Args["limit"], "limit")
		if err != nil {
			return models.PostPage{}, err
		}
		cursor, err := optionalString(fc.Args["cursor"], "cursor")
		if err != nil {
			return models.PostPage{}, err
		}
		return ec.resolvers.Query().Posts(ctx, limit, cursor)
	}, ec.marshalNPostPage)
}

func (ec *executionContext) _Query_post(ctx context.Context, field graphql.CollectedField) graphql.Marshaler {
	fc := ec.fieldContext("Query", field, true)
	return resolveField(ctx, ec, fc, func(ctx context.Context) (*models.Post, error) {
		id, err := idArg(fc.Args, "id")
		if err != nil {
			return nil, err
		}
		return ec.resolvers.Query().Post(ctx, id)
	}, ec.marshalOPost)
}

func (ec *executionContext) _Query_comments(ctx context.Context, field graphql.CollectedField) graphql.Marshaler {
	fc := ec.fieldContext("Query", field, true)
	return resolveField(ctx, ec, fc, func(ctx context.Context) ([]*models.Comment, error) {
		postID, err := idArg(fc.Args, "postId")
		if err != nil {
			return nil, err
		}
		limit, offset, err := pageArgs(fc.Args)
		if err != nil {
			return nil, err
		}
		return ec.resolvers.Query().Comments(ctx, postID, limit, offset)
	}, ec.marshalNCommentList)
}

func (ec *executionContext) _Query_user(ctx context.Context, field graphql.CollectedField) graphql.Marshaler {
	fc := ec.fieldContext("Query", field, true)
	return resolveField(ctx, ec, fc, func(ctx context.Context) (*models.Profile, error) {
		id, err := idArg(fc.Args, "id")
		if err != nil {
			return nil, err
		}
		return ec.resolvers.Query().User(ctx, id)
	}, ec.marshalOProfile)
}

func (ec *executionContext) _Query_me(ctx context.Context, field graphql.CollectedField) graphql.Marshaler {
	fc := ec.fieldContext("Query", field, true)
	return resolveField(ctx, ec, fc, func(ctx context.Context) (*models.User, error) {
		return ec.resolvers.Query().Me(ctx)
	}, ec.marshalOUser)
}

func (ec *executionContext) _Query_conversations(ctx context.Context, field graphql.CollectedField) graphql.Marshaler {
	fc := ec.fieldContext("Query", field, true)
	return resolveField(ctx, ec, fc, func(ctx context.Context) ([]models.Conversation, error) {
		return ec.resolvers.Query().Conversations(ctx)
	}, ec.marshalNConversationList)
}

var mutationImplementors = []string{"Mutation"}

// _Mutation runs top-level mutation fields serially in document order.
func (ec *executionContext) _Mutation(ctx context.Context, sel ast.SelectionSet) graphql.Marshaler {
	fields := graphql.CollectFields(ec.OperationContext, sel, mutationImplementors)
	ctx = graphql.WithFieldContext(ctx, &graphql.FieldContext{
		Object: "Mutation",
	})

	out := graphql.NewFieldSet(fields)
	for i, field := range fields {
		innerCtx := graphql.WithRootFieldContext(ctx, &graphql.RootFieldContext{
			Object: field.Name,
			Field:  field,
		})

		switch field.Name {
		case "__typename":
			out.Values[i] = graphql.MarshalString("Mutation")
		case "likePost":
			out.Values[i] = ec.RootResolverMiddleware(innerCtx, func(ctx context.Context) graphql.Marshaler {
				return ec._Mutation_likePost(ctx, field)
			})
		case "dislikePost":
			out.Values[i] = ec.RootResolverMiddleware(innerCtx, func(ctx context.Context) graphql.Marshaler {
				return ec._Mutation_dislikePost(ctx, field)
			})
		case "addComment":
			out.Values[i] = ec.RootResolverMiddleware(innerCtx, func(ctx context.Context) graphql.Marshaler {
				return ec._Mutation_addComment(ctx, field)
			})
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

func (ec *executionContext) _Mutation_likePost(ctx context.Context, field graphql.CollectedField) graphql.Marshaler {
	fc := ec.fieldContext("Mutation", field, true)
	return resolveField(ctx, ec, fc, func(ctx context.Context) (*models.Post, error) {
		id, err := idArg(fc.Args, "id")
		if err != nil {
			return nil, err
		}
		return ec.resolvers.Mutation().LikePost(ctx, id)
	}, ec.marshalNPost)
}

func (ec *executionContext) _Mutation_dislikePost(ctx context.Context, field graphql.CollectedField) graphql.Marshaler {
	fc := ec.fieldContext("Mutation", field, true)
	return resolveField(ctx, ec, fc, func(ctx context.Context) (*models.Post, error) {
		id, err := idArg(fc.Args, "id")
		if err != nil {
			return nil, err
		}
		return ec.resolvers.Mutation().DislikePost(ctx, id)
	}, ec.marshalNPost)
}

func (ec *executionContext) _Mutation_addComment(ctx context.Context, field graphql.CollectedField) graphql.Marshaler {
	fc := ec.fieldContext("Mutation", field, true)
	return resolveField(ctx, ec, fc, func(ctx context.Context) (*models.Comment, error) {
		postID, err := idArg(fc.Args, "postId")
		if err != nil {
			return nil, err
		}
		text, err := graphql.UnmarshalString(fc.Args["text"])
		if err != nil {
			return nil, invalidArg("text", err)
		}
		parentID, err := optionalID(fc.Args["parentId"], "parentId")
		if err != nil {
			return nil, err
		}
		return ec.resolvers.Mutation().AddComment(ctx, postID, text, parentID)
	}, ec.marshalNComment)
}

var subscriptionImplementors = []string{"Subscription"}

func (ec *executionContext) _Subscription(ctx context.Context, sel ast.SelectionSet) func(ctx context.Context) graphql.Marshaler {
	fields := graphql.CollectFields(ec.OperationContext, sel, subscriptionImplementors)
	ctx = graphql.WithFieldContext(ctx, &graphql.FieldContext{
		Object: "Subscription",
	})
	if len(fields) != 1 {
		graphql.AddError(ctx, gqlerror.Errorf("must subscribe to exactly one stream"))
		return nil
	}

	switch fields[0].Name {
	case "commentAdded":
		return ec._Subscription_commentAdded(ctx, fields[0])
	case "feedUpdated":
		return ec._Subscription_feedUpdated(ctx, fields[0])
	default:
		graphql.AddError(ctx, gqlerror.Errorf("unknown field %s", strconv.Quote(fields[0].Name)))
		return nil
	}
}

// subscribe opens the stream returned by resolve and yields one
// {"alias": value} object per event until the stream or ctx ends.
func subscribe[T any](
	ctx context.Context,
	ec *executionContext,
	fc *graphql.FieldContext,
	resolve func(ctx context.Context) (<-chan T, error),
	marshal func(ctx context.Context, sel ast.SelectionSet, v T) graphql.Marshaler,
) (ret func(ctx context.Context) graphql.Marshaler) {
	ctx = graphql.WithFieldContext(ctx, fc)
	defer func() {
		if r := recover(); r != nil {
			graphql.AddError(ctx, graphql.Recover(ctx, r))
			ret = nil
		}
	}()
	resTmp, err := ec.ResolverMiddleware(ctx, func(rctx context.Context) (any, error) {
		ch, err := resolve(rctx)
		return ch, err
	})
	if err != nil {
		graphql.AddError(ctx, err)
		return nil
	}
	ch, _ := resTmp.(<-chan T)
	if ch == nil {
		nullNotAllowed(ctx)
		return nil
	}
	field := fc.Field
	return func(ctx context.Context) graphql.Marshaler {
		select {
		case res, ok := <-ch:
			if !ok {
				return nil
			}
			return graphql.WriterFunc(func(w io.Writer) {
				w.Write([]byte{'{'})
				graphql.MarshalString(field.Alias).MarshalGQL(w)
				w.Write([]byte{':'})
				marshal(ctx, field.Selections, res).MarshalGQL(w)
				w.Write([]byte{'}'})
			})
		case <-ctx.Done():
			return nil
		}
	}
}

func (ec *executionContext) _Subscription_commentAdded(ctx context.Context, field graphql.CollectedField) func(ctx context.Context) graphql.Marshaler {
	fc := ec.fieldContext("Subscription", field, true)
	return subscribe(ctx, ec, fc, func(ctx context.Context) (<-chan *models.Comment, error) {
		postID, err := idArg(fc.Args, "postId")
		if err != nil {
			return nil, err
		}
		return ec.resolvers.Subscription().CommentAdded(ctx, postID)
	}, ec.marshalNComment)
}

func (ec *executionContext) _Subscription_feedUpdated(ctx context.Context, field graphql.CollectedField) func(ctx context.Context) graphql.Marshaler {
	fc := ec.fieldContext("Subscription", field, true)
	return subscribe(ctx, ec, fc, func(ctx context.Context) (<-chan models.FeedEvent, error) {
		return ec.resolvers.Subscription().FeedUpdated(ctx)
	}, ec.marshalNFeedEvent)
}
