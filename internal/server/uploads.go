package server

import (
	"errors"
	"net/http"

	"github.com/alkime/scribe/internal/upload"
	"github.com/gin-gonic/gin"
)

func (s *Server) handleUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.config.MaxUploadBytes)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}

	f, err := header.Open()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	defer f.Close()

	jobID, err := s.app.Uploads.Handle(detached(c), upload.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Language:    c.PostForm("language"),
		Body:        f,
	})
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"jobId": jobID})
}

func (s *Server) handleUploadProgress(c *gin.Context) {
	c.JSON(http.StatusOK, s.app.Uploads.Progress())
}
