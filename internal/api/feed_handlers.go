package api

import (
	"context"
	"net/http"

	"github.com/MosinFAM/synapse/internal/auth"
	"github.com/MosinFAM/synapse/internal/models"
	"github.com/MosinFAM/synapse/internal/service"

	"github.com/gin-gonic/gin"
)

type forkRequest struct {
	Mode string `json:"mode"`
}

type commentRequest struct {
	Text     string  `json:"text"`
	ParentID *string `json:"parentId"`
}

func (s *Server) handleListPosts(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 0)
	if !ok || limit > 100 {
		badRequest(c, "limit must be between 1 and 100")
		return
	}
	page, err := s.svc.Feed.Posts(c.Request.Context(), limit, c.Query("cursor"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	if page.Posts == nil {
		page.Posts = []models.Post{}
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) handleCreatePost(c *gin.Context) {
	var req service.ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	userID, _ := auth.UserID(c)
	post, err := s.svc.Chat.Share(c.Request.Context(), userID, req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (s *Server) handleGetPost(c *gin.Context) {
	post, err := s.svc.Feed.Post(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (s *Server) handleVote(vote func(ctx context.Context, postID string) (*models.Post, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		post, err := vote(c.Request.Context(), c.Param("id"))
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, post)
	}
}

func (s *Server) handleFork(c *gin.Context) {
	var req forkRequest
	// An empty body selects the default mode.
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}
	}
	userID, _ := auth.UserID(c)
	result, err := s.svc.Chat.Fork(c.Request.Context(), userID, c.Param("id"), req.Mode)
	if err != nil {
		s.writeError(c, err)
		return
	}
	status := http.StatusOK
	if result.Conversation != nil {
		status = http.StatusCreated
	}
	c.JSON(status, result)
}

func (s *Server) handleListComments(c *gin.Context) {
	limit, okLimit := queryInt(c, "limit", 0)
	offset, okOffset := queryInt(c, "offset", 0)
	if !okLimit || !okOffset {
		badRequest(c, "limit and offset must be non-negative integers")
		return
	}
	comments, err := s.svc.Feed.Comments(c.Request.Context(), c.Param("id"), limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

func (s *Server) handleAddComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	userID, _ := auth.UserID(c)
	comment, err := s.svc.Feed.AddComment(c.Request.Context(), userID, c.Param("id"), req.Text, req.ParentID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (s *Server) handleGetProfile(c *gin.Context) {
	viewerID, _ := auth.UserID(c)
	profile, err := s.svc.Feed.Profile(c.Request.Context(), c.Param("id"), viewerID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
