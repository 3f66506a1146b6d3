package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/alkime/scribe/internal/provider"
	"github.com/alkime/scribe/internal/secret"
	"github.com/gin-gonic/gin"
)

type credentialRequest struct {
	Key string `json:"key"`
}

type credentialResponse struct {
	Configured bool   `json:"configured"`
	Masked     string `json:"masked,omitempty"`
}

func (s *Server) credentialStatus() credentialResponse {
	key, ok := s.app.Secrets.Credential()
	if !ok {
		return credentialResponse{}
	}
	return credentialResponse{Configured: true, Masked: secret.Mask(key)}
}

func (s *Server) handleGetCredential(c *gin.Context) {
	c.JSON(http.StatusOK, s.credentialStatus())
}

// handlePutCredential validates the key with the provider before storing it.
// A rejected key is never persisted.
func (s *Server) handlePutCredential(c *gin.Context) {
	var req credentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	key := strings.TrimSpace(req.Key)
	if key == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "key must not be blank"})
		return
	}

	err := s.app.SetCredential(c.Request.Context(), key)
	switch {
	case err == nil:
		s.log(c).Info("Credential updated")
		c.JSON(http.StatusOK, s.credentialStatus())
	case errors.Is(err, provider.ErrUnauthorized):
		s.log(c).Warn("Credential rejected by provider")
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid credential"})
	default:
		s.abortWithError(c, err)
	}
}

func (s *Server) handleDeleteCredential(c *gin.Context) {
	s.app.RemoveCredential()
	s.log(c).Info("Credential removed")
	c.Status(http.StatusNoContent)
}
