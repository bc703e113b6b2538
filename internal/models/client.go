package models

import (
	"sync"

	"github.com/google/uuid"
)

type Role string

const (
	RolePresenter   Role = "presenter"
	RoleParticipant Role = "participant"
)

// Client is the live handle of one websocket connection. Outbound events are
// queued on Send and written by a single writer goroutine, so the socket is
// never written from two goroutines at once.
type Client struct {
	Id   uuid.UUID  `json:"clientid"`
	Send chan Event `json:"-"`

	mu     sync.Mutex
	closed bool
}

func NewClient(buffer int) *Client {
	if buffer <= 0 {
		buffer = 1
	}
	return &Client{
		Id:   uuid.New(),
		Send: make(chan Event, buffer),
	}
}

// Deliver queues ev without blocking. It reports false when the outbox is
// full or the client is already closed.
func (c *Client) Deliver(ev Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- ev:
		return true
	default:
		return false
	}
}

// Close closes the outbox; the writer drains what is left and exits.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}
