package api

import (
	"net/http"

	"github.com/MosinFAM/synapse/internal/auth"
	"github.com/MosinFAM/synapse/internal/models"
	"github.com/MosinFAM/synapse/internal/service"

	"github.com/gin-gonic/gin"
)

type chatRequest struct {
	ConversationID string `json:"conversationId"`
	Message        string `json:"message"`
}

type saveRequest struct {
	Messages []models.Message `json:"messages"`
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	userID, _ := auth.UserID(c)
	result, err := s.svc.Chat.Send(c.Request.Context(), userID, req.ConversationID, req.Message)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleListConversations(c *gin.Context) {
	userID, _ := auth.UserID(c)
	convos, err := s.svc.Chat.List(c.Request.Context(), userID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if convos == nil {
		convos = []models.Conversation{}
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convos})
}

func (s *Server) handleCreateConversation(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	userID, _ := auth.UserID(c)
	convo, err := s.svc.Chat.Save(c.Request.Context(), userID, "", req.Messages)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, convo)
}

func (s *Server) handleGetConversation(c *gin.Context) {
	userID, _ := auth.UserID(c)
	convo, err := s.svc.Chat.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, convo)
}

func (s *Server) handleSaveConversation(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	userID, _ := auth.UserID(c)
	convo, err := s.svc.Chat.Save(c.Request.Context(), userID, c.Param("id"), req.Messages)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, convo)
}

func (s *Server) handleDeleteConversation(c *gin.Context) {
	userID, _ := auth.UserID(c)
	if err := s.svc.Chat.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleShareConversation(c *gin.Context) {
	userID, _ := auth.UserID(c)
	post, err := s.svc.Chat.Share(c.Request.Context(), userID, service.ShareRequest{ConversationID: c.Param("id")})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}
