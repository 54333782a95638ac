package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	// maxStreamSubscribers bounds concurrent /logs/stream connections.
	maxStreamSubscribers = 10

	// keepaliveInterval is how often an SSE comment is sent to hold idle
	// connections open through proxies.
	keepaliveInterval = 30 * time.Second
)

// streamLimiter caps concurrent stream subscribers.
type streamLimiter struct {
	active int64
	max    int64
}

func newStreamLimiter(max int64) *streamLimiter {
	return &streamLimiter{max: max}
}

// acquire reserves a slot; release must be called when the stream ends.
func (l *streamLimiter) acquire() (release func(), ok bool) {
	if atomic.AddInt64(&l.active, 1) > l.max {
		atomic.AddInt64(&l.active, -1)
		return nil, false
	}
	return func() { atomic.AddInt64(&l.active, -1) }, true
}

// streamHandler handles GET /logs/stream: a text/event-stream of job update
// events with periodic keepalives.
func (s *Server) streamHandler(c *gin.Context) {
	if s.bus == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event streaming is disabled"})
		return
	}
	release, ok := s.streams.acquire()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "too many stream subscribers"})
		return
	}
	defer release()

	updates, cancel := s.bus.Subscribe()
	defer cancel()

	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-keepalive.C:
			if _, err := fmt.Fprint(c.Writer, ": keepalive\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
		case update, open := <-updates:
			if !open {
				return
			}
			data, err := json.Marshal(update)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", data); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}
