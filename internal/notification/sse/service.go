// Package sse provides Server-Sent Events support for real-time notifications.
package sse

import (
	"encoding/json"
	"net/http"
	"sync"

	"inspection_portal_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// EventType represents different types of SSE events
type EventType string

const (
	EventNotification       EventType = "notification"
	EventAppointmentUpdated EventType = "appointment_updated"
	EventVisitResponded     EventType = "visit_responded"
)

// Event represents an SSE event payload
type Event struct {
	Type          EventType `json:"type"`
	AppointmentID string    `json:"appointmentId,omitempty"`
	Message       string    `json:"message,omitempty"`
	Data          any       `json:"data,omitempty"`
}

// client represents a connected SSE client
type client struct {
	userID   string
	branchID string
	events   chan Event
}

// Service manages SSE connections and event broadcasting
type Service struct {
	mu        sync.RWMutex
	clients   map[string][]*client // userID -> clients
	branchMap map[string][]string  // branchID -> userIDs
	log       *logger.Logger
}

// New creates a new SSE service
func New(log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		clients:   make(map[string][]*client),
		branchMap: make(map[string][]string),
		log:       log,
	}
}

func (s *Service) addClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clients[c.userID] = append(s.clients[c.userID], c)
	if c.branchID != "" {
		s.branchMap[c.branchID] = append(s.branchMap[c.branchID], c.userID)
	}
}

func (s *Service) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clients := s.clients[c.userID]
	for i, cl := range clients {
		if cl == c {
			s.clients[c.userID] = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	if len(s.clients[c.userID]) == 0 {
		delete(s.clients, c.userID)
	}

	if c.branchID != "" {
		users := s.branchMap[c.branchID]
		for i, id := range users {
			if id == c.userID {
				s.branchMap[c.branchID] = append(users[:i], users[i+1:]...)
				break
			}
		}
		if len(s.branchMap[c.branchID]) == 0 {
			delete(s.branchMap, c.branchID)
		}
	}
}

// Publish sends an event to a specific user. Full buffers drop the event.
func (s *Service) Publish(userID string, event Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.clients[userID] {
		select {
		case c.events <- event:
		default:
			s.log.Warn("sse buffer full", "userId", userID, "type", event.Type)
		}
	}
}

// PublishToBranch broadcasts an event to every connected member of a branch.
func (s *Service) PublishToBranch(branchID string, event Event) {
	s.mu.RLock()
	userIDs := append([]string(nil), s.branchMap[branchID]...)
	s.mu.RUnlock()

	seen := make(map[string]bool)
	for _, userID := range userIDs {
		if seen[userID] {
			continue
		}
		seen[userID] = true
		s.Publish(userID, event)
	}
}

// Connected returns the number of open streams for a user.
func (s *Service) Connected(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients[userID])
}

// Handler returns a Gin handler for SSE connections
func (s *Service) Handler(identify func(*gin.Context) (userID, branchID string, ok bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, branchID, ok := identify(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		cl := &client{
			userID:   userID,
			branchID: branchID,
			events:   make(chan Event, 32),
		}
		s.addClient(cl)
		defer s.removeClient(cl)

		c.SSEvent("connected", gin.H{"userId": userID})
		c.Writer.Flush()

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
				return
			case event := <-cl.events:
				data, _ := json.Marshal(event)
				c.SSEvent(string(event.Type), string(data))
				c.Writer.Flush()
			}
		}
	}
}
