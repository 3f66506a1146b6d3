package server

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	heartbeatInterval = 15 * time.Second
	// how long a stalled client may block delivery before it misses a notification
	eventSendTimeout = 250 * time.Millisecond
)

// handleEvents streams notifications as server-sent events until the client
// disconnects or the server stops.
func (s *Server) handleEvents(c *gin.Context) {
	notes, unsubscribe := s.app.Events.Subscribe(16, eventSendTimeout)
	defer unsubscribe()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	s.log(c).Debug("Event stream opened")
	defer func() {
		s.log(c).Debug("Event stream closed", "dropped", s.app.Events.Dropped())
	}()

	c.SSEvent("ready", gin.H{"requestId": c.GetString(requestIDKey)})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case <-s.stopping:
			return false
		case <-s.app.Events.Done():
			return false
		case n := <-notes:
			c.SSEvent("notification", n)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		}
	})
}
