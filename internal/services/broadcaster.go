package services

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/latestcomment/go-live-activities/internal/models"
)

// Broadcaster fans events out to the connections present in a session room.
// Callers hold the session lock while broadcasting, which keeps the events of
// one session in the order their operations were processed.
type Broadcaster struct {
	registry *SessionRegistry
	logger   *slog.Logger
}

func NewBroadcaster(registry *SessionRegistry, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{registry: registry, logger: logger}
}

// ToRoom delivers ev to every connection in the session except the one with
// id exclude. Pass uuid.Nil to include everyone.
func (b *Broadcaster) ToRoom(code string, ev models.Event, exclude uuid.UUID) int {
	delivered := 0
	for _, c := range b.registry.Clients(code) {
		if c.Id == exclude {
			continue
		}
		if b.deliver(c, ev) {
			delivered++
		}
	}
	b.logger.Debug("broadcast", "session", code, "event", ev.Name, "delivered", delivered)
	return delivered
}

// ToClient delivers ev to one connection only.
func (b *Broadcaster) ToClient(c *models.Client, ev models.Event) bool {
	return b.deliver(c, ev)
}

func (b *Broadcaster) deliver(c *models.Client, ev models.Event) bool {
	if c.Deliver(ev) {
		return true
	}
	b.logger.Warn("dropping event for slow or closed connection", "connection", c.Id, "event", ev.Name)
	return false
}
