package models

import (
	"time"

	"github.com/google/uuid"
)

// Member is one connection's presence inside a session room.
type Member struct {
	Client        *Client
	Role          Role
	ParticipantId string
	Nickname      string
	JoinedAt      time.Time
}

func (m *Member) IsParticipant() bool {
	return m.Role == RoleParticipant
}

// Room is the presence set of one session code, keyed by connection id and
// kept in join order.
type Room struct {
	Code    string
	Members map[uuid.UUID]*Member
	order   []uuid.UUID
}

func NewRoom(code string) *Room {
	return &Room{
		Code:    code,
		Members: make(map[uuid.UUID]*Member),
	}
}

// Add inserts m, replacing any earlier entry for the same connection. A
// replaced entry keeps its original position in the join order.
func (r *Room) Add(m *Member) (replaced *Member) {
	id := m.Client.Id
	if prev, ok := r.Members[id]; ok {
		replaced = prev
	} else {
		r.order = append(r.order, id)
	}
	r.Members[id] = m
	return replaced
}

func (r *Room) Remove(id uuid.UUID) (*Member, bool) {
	m, ok := r.Members[id]
	if !ok {
		return nil, false
	}
	delete(r.Members, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return m, true
}

func (r *Room) Len() int {
	return len(r.Members)
}

func (r *Room) ParticipantCount() int {
	n := 0
	for _, m := range r.Members {
		if m.IsParticipant() {
			n++
		}
	}
	return n
}

// Participants returns the present participants in join order.
func (r *Room) Participants() []ParticipantSummary {
	out := make([]ParticipantSummary, 0, len(r.order))
	for _, id := range r.order {
		m := r.Members[id]
		if !m.IsParticipant() {
			continue
		}
		out = append(out, ParticipantSummary{
			Id:       m.ParticipantId,
			Nickname: m.Nickname,
			SocketId: id.String(),
		})
	}
	return out
}

// Clients returns every connection in the room in join order.
func (r *Room) Clients() []*Client {
	out := make([]*Client, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.Members[id].Client)
	}
	return out
}
