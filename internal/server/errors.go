package server

import (
	"errors"
	"net/http"

	"github.com/alkime/scribe/internal/provider"
	"github.com/alkime/scribe/internal/transcripts"
	"github.com/alkime/scribe/internal/upload"
	"github.com/gin-gonic/gin"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, provider.ErrNoCredential):
		return http.StatusPreconditionFailed
	case errors.Is(err, provider.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, provider.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, upload.ErrNotAudio):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, upload.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, transcripts.ErrNoSelection):
		return http.StatusConflict
	case errors.Is(err, transcripts.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) abortWithError(c *gin.Context, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.log(c).Error("Request failed", "path", c.FullPath(), "error", err)
	} else {
		s.log(c).Warn("Request rejected", "path", c.FullPath(), "status", code, "error", err)
	}

	c.AbortWithStatusJSON(code, gin.H{"error": err.Error()})
}
