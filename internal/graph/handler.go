package graph

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MosinFAM/synapse/internal/auth"
	"github.com/MosinFAM/synapse/internal/service"
	"github.com/MosinFAM/synapse/internal/storage"

	"github.com/99designs/gqlgen/graphql"
	"github.com/99designs/gqlgen/graphql/handler"
	"github.com/99designs/gqlgen/graphql/handler/extension"
	"github.com/99designs/gqlgen/graphql/handler/lru"
	"github.com/99designs/gqlgen/graphql/handler/transport"
	"github.com/99designs/gqlgen/graphql/playground"
	"github.com/gorilla/websocket"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

const complexityLimit = 10000

// NewHandler serves the schema over websocket, GET and POST. GET only runs
// queries. A websocket client may authenticate with an Authorization entry
// in its connection_init payload when issuer is set.
func NewHandler(resolvers ResolverRoot, issuer *auth.Issuer, logger *slog.Logger) *handler.Server {
	srv := handler.New(NewExecutableSchema(Config{Resolvers: resolvers}))

	ws := transport.Websocket{
		Upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		KeepAlivePingInterval: 10 * time.Second,
	}
	if issuer != nil {
		ws.InitFunc = websocketInit(issuer)
	}
	srv.AddTransport(ws)
	srv.AddTransport(transport.Options{})
	srv.AddTransport(transport.GET{})
	srv.AddTransport(transport.POST{})

	srv.SetQueryCache(lru.New[*ast.QueryDocument](1000))
	srv.Use(extension.Introspection{})
	srv.Use(extension.AutomaticPersistedQuery{Cache: lru.New[string](100)})
	srv.Use(extension.FixedComplexityLimit(complexityLimit))

	srv.SetErrorPresenter(errorPresenter(logger))
	srv.SetRecoverFunc(func(ctx context.Context, err any) error {
		logger.Error("graphql resolver panicked", "panic", err)
		return gqlerror.Errorf("internal error")
	})
	return srv
}

// Playground serves the GraphQL Playground page for endpoint.
func Playground(endpoint string) http.Handler {
	return playground.Handler("Synapse GraphQL", endpoint)
}

func websocketInit(issuer *auth.Issuer) transport.WebsocketInitFunc {
	return func(ctx context.Context, payload transport.InitPayload) (context.Context, *transport.InitPayload, error) {
		token := strings.TrimSpace(strings.TrimPrefix(payload.Authorization(), "Bearer "))
		if token == "" {
			return ctx, &payload, nil
		}
		claims, err := issuer.Parse(token)
		if err != nil {
			return ctx, nil, err
		}
		return auth.WithUserID(ctx, claims.UserID), &payload, nil
	}
}

// errorPresenter adds an extensions.code for domain errors. Errors the
// client cannot act on are logged and reported as "internal error".
func errorPresenter(logger *slog.Logger) graphql.ErrorPresenterFunc {
	return func(ctx context.Context, err error) *gqlerror.Error {
		gqlErr := graphql.DefaultErrorPresenter(ctx, err)

		var code string
		switch {
		case errors.Is(err, ErrUnauthenticated):
			code = "UNAUTHENTICATED"
		case errors.Is(err, storage.ErrNotFound):
			code = "NOT_FOUND"
		case errors.Is(err, storage.ErrForbidden):
			code = "FORBIDDEN"
		case errors.Is(err, storage.ErrInvalid), errors.Is(err, service.ErrInvalidCredentials):
			code = "BAD_USER_INPUT"
		case gqlErr.Err == nil:
			return gqlErr
		default:
			logger.Error("graphql field failed", "path", gqlErr.Path.String(), "error", err)
			gqlErr.Message = "internal error"
			return gqlErr
		}

		if gqlErr.Extensions == nil {
			gqlErr.Extensions = map[string]any{}
		}
		gqlErr.Extensions["code"] = code
		return gqlErr
	}
}
