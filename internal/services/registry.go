package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/latestcomment/go-live-activities/internal/models"
)

// SessionRegistry is the single source of truth for who is online in which
// session. A connection belongs to at most one session at a time.
type SessionRegistry struct {
	mu    sync.RWMutex
	rooms map[string]*models.Room
	index map[uuid.UUID]string
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		rooms: make(map[string]*models.Room),
		index: make(map[uuid.UUID]string),
	}
}

// JoinResult describes what a join changed.
type JoinResult struct {
	Member *models.Member
	// Replaced is the earlier entry of the same connection in this session.
	Replaced *models.Member
	// MovedFrom is set when the connection left another session to join this one.
	MovedFrom string
}

// Join registers the connection under the session. Joining again replaces the
// previous entry for that connection; joining a different session moves it.
func (r *SessionRegistry) Join(code string, client *models.Client, role models.Role, participantId, nickname string) JoinResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res JoinResult
	if prev, ok := r.index[client.Id]; ok && prev != code {
		r.removeLocked(prev, client.Id)
		res.MovedFrom = prev
	}

	room, ok := r.rooms[code]
	if !ok {
		room = models.NewRoom(code)
		r.rooms[code] = room
	}
	m := &models.Member{
		Client:        client,
		Role:          role,
		ParticipantId: participantId,
		Nickname:      nickname,
		JoinedAt:      time.Now(),
	}
	res.Member = m
	res.Replaced = room.Add(m)
	r.index[client.Id] = code
	return res
}

// Leave removes the connection from its session. The returned code is empty
// when the connection was not present.
func (r *SessionRegistry) Leave(id uuid.UUID) (string, *models.Member) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code, ok := r.index[id]
	if !ok {
		return "", nil
	}
	return code, r.removeLocked(code, id)
}

func (r *SessionRegistry) removeLocked(code string, id uuid.UUID) *models.Member {
	delete(r.index, id)
	room, ok := r.rooms[code]
	if !ok {
		return nil
	}
	m, _ := room.Remove(id)
	if room.Len() == 0 {
		delete(r.rooms, code)
	}
	return m
}

// SessionOf returns the session the connection is joined to.
func (r *SessionRegistry) SessionOf(id uuid.UUID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	code, ok := r.index[id]
	return code, ok
}

// ParticipantCount counts present connections with the participant role.
func (r *SessionRegistry) ParticipantCount(code string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[code]
	if !ok {
		return 0
	}
	return room.ParticipantCount()
}

// ListParticipants returns the present participants in join order.
func (r *SessionRegistry) ListParticipants(code string) []models.ParticipantSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[code]
	if !ok {
		return []models.ParticipantSummary{}
	}
	return room.Participants()
}

// Clients returns every connection present in the session.
func (r *SessionRegistry) Clients(code string) []*models.Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[code]
	if !ok {
		return nil
	}
	return room.Clients()
}

func (r *SessionRegistry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

func (r *SessionRegistry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.index)
}
