// Package api exposes the REST, WebSocket and GraphQL endpoints over gin.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MosinFAM/synapse/internal/auth"
	"github.com/MosinFAM/synapse/internal/config"
	"github.com/MosinFAM/synapse/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"
)

// Services are the dependencies the handlers call into.
type Services struct {
	Accounts *service.Accounts
	Chat     *service.Chat
	Feed     *service.Feed
	Issuer   *auth.Issuer

	// Google is nil when Google sign-in is not configured.
	Google *auth.GoogleProvider

	// GraphQL and Playground are mounted at /query and /playground when set.
	GraphQL    http.Handler
	Playground http.Handler
}

// Server is the HTTP server for the whole API.
type Server struct {
	svc        Services
	cfg        config.ServerConfig
	logger     *slog.Logger
	limiter    *userLimiter
	upgrader   websocket.Upgrader
	router     *gin.Engine
	httpServer *http.Server
}

// NewServer builds the router and the underlying http.Server.
func NewServer(cfg config.ServerConfig, svc Services, logger *slog.Logger) *Server {
	s := &Server{
		svc:     svc,
		cfg:     cfg,
		logger:  logger,
		limiter: newUserLimiter(rate.Limit(float64(cfg.ChatRatePerMinute)/60), cfg.ChatBurst),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))
	s.routes(r)
	s.router = r

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
	})

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes(r *gin.Engine) {
	requireAuth := auth.RequireAuth(s.svc.Issuer)
	optionalAuth := auth.OptionalAuth(s.svc.Issuer)

	r.GET("/health", s.handleHealth)

	a := r.Group("/auth")
	a.POST("/signup", s.handleSignUp)
	a.POST("/login", s.handleLogin)
	a.POST("/logout", s.handleLogout)
	a.GET("/google/login", s.handleGoogleLogin)
	a.GET("/google/callback", s.handleGoogleCallback)

	me := r.Group("/me", requireAuth)
	me.GET("", s.handleGetMe)
	me.PATCH("", s.handleUpdateMe)

	convos := r.Group("/conversations", requireAuth)
	convos.GET("", s.handleListConversations)
	convos.POST("", s.handleCreateConversation)
	convos.GET("/:id", s.handleGetConversation)
	convos.PUT("/:id", s.handleSaveConversation)
	convos.DELETE("/:id", s.handleDeleteConversation)
	convos.POST("/:id/share", s.handleShareConversation)

	r.POST("/chat", requireAuth, s.rateLimit(), s.handleChat)

	posts := r.Group("/posts")
	posts.GET("", optionalAuth, s.handleListPosts)
	posts.POST("", requireAuth, s.handleCreatePost)
	posts.GET("/:id", optionalAuth, s.handleGetPost)
	posts.POST("/:id/like", requireAuth, s.handleVote(s.svc.Feed.Like))
	posts.POST("/:id/dislike", requireAuth, s.handleVote(s.svc.Feed.Dislike))
	posts.POST("/:id/fork", requireAuth, s.handleFork)
	posts.GET("/:id/comments", optionalAuth, s.handleListComments)
	posts.POST("/:id/comments", requireAuth, s.handleAddComment)

	r.GET("/users/:id", optionalAuth, s.handleGetProfile)

	r.GET("/ws/feed", optionalAuth, s.handleFeedSocket)
	r.GET("/ws/posts/:id/comments", optionalAuth, s.handleCommentsSocket)

	if s.svc.GraphQL != nil {
		r.POST("/query", optionalAuth, gin.WrapH(s.svc.GraphQL))
		r.GET("/query", optionalAuth, gin.WrapH(s.svc.GraphQL))
	}
	if s.svc.Playground != nil {
		r.GET("/playground", gin.WrapH(s.svc.Playground))
	}
}

// Handler returns the root handler with CORS applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for HTTP requests. It blocks until the server is
// shut down or an error occurs.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
