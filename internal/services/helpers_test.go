package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/latestcomment/go-live-activities/internal/models"
	"github.com/latestcomment/go-live-activities/internal/store"
)

// fakeStore is an in-memory RecordStore.
type fakeStore struct {
	mu           sync.Mutex
	sessions     map[string]models.Session
	participants map[string][]models.Participant
	responses    map[string][]models.Response
	responsesErr error
	fetches      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions:     make(map[string]models.Session),
		participants: make(map[string][]models.Participant),
		responses:    make(map[string][]models.Response),
	}
}

func (f *fakeStore) addResponse(activityId, participantId, answer string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[activityId] = append(f.responses[activityId], models.Response{
		Id:            activityId + "-" + participantId,
		ActivityId:    activityId,
		ParticipantId: participantId,
		Answer:        json.RawMessage(answer),
		SubmittedAt:   time.Now(),
	})
}

func (f *fakeStore) setResponsesErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responsesErr = err
}

func (f *fakeStore) GetResponsesByActivity(_ context.Context, activityId string) ([]models.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.responsesErr != nil {
		return nil, f.responsesErr
	}
	out := append([]models.Response{}, f.responses[activityId]...)
	return out, nil
}

func (f *fakeStore) GetParticipantsBySession(_ context.Context, sessionId string) ([]models.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Participant{}, f.participants[sessionId]...), nil
}

func (f *fakeStore) GetSessionByCode(_ context.Context, code string) (models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[code]
	if !ok {
		return models.Session{}, store.ErrNotFound
	}
	return s, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, records RecordStore, timeout time.Duration) *SessionService {
	t.Helper()
	s := NewSessionService(records, Options{ActivityTimeout: timeout, Logger: quietLogger()})
	t.Cleanup(s.Close)
	return s
}

// drain returns every event queued for c without blocking.
func drain(c *models.Client) []models.Event {
	var out []models.Event
	for {
		select {
		case ev := <-c.Send:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func names(evs []models.Event) []string {
	out := make([]string, len(evs))
	for i, ev := range evs {
		out[i] = ev.Name
	}
	return out
}

func only(evs []models.Event, name string) []models.Event {
	var out []models.Event
	for _, ev := range evs {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

func pollActivity(id string) models.Activity {
	return models.Activity{
		Id:     id,
		Type:   models.ActivityPoll,
		Title:  "Favourite colour",
		Config: json.RawMessage(`{"options":["Red","Green","Blue"]}`),
	}
}

func joinParticipant(t *testing.T, s *SessionService, code, pid, nick string) *models.Client {
	t.Helper()
	c := models.NewClient(256)
	if err := s.Join(context.Background(), c, models.JoinRequest{SessionCode: code, ParticipantId: pid, Nickname: nick}); err != nil {
		t.Fatalf("join %s: %v", pid, err)
	}
	return c
}

func joinPresenter(t *testing.T, s *SessionService, code string) *models.Client {
	t.Helper()
	c := models.NewClient(256)
	if err := s.Join(context.Background(), c, models.JoinRequest{SessionCode: code, IsPresenter: true}); err != nil {
		t.Fatalf("join presenter: %v", err)
	}
	return c
}

func submit(s *SessionService, code, activityId, pid, answer string) error {
	return s.Submit(context.Background(), models.SubmitRequest{
		SessionCode:   code,
		ActivityId:    activityId,
		ParticipantId: pid,
		Answer:        json.RawMessage(answer),
	})
}
