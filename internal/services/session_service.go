package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/latestcomment/go-live-activities/internal/models"
	"github.com/latestcomment/go-live-activities/internal/store"
)

// ErrResultsUnavailable wraps store failures while fetching final or partial
// results. The tracker entry is left in place so the operation can be retried.
var ErrResultsUnavailable = errors.New("results unavailable")

var errSessionCodeRequired = errors.New("sessionCode is required")

// RecordStore is the part of the durable store the live core reads.
type RecordStore interface {
	GetResponsesByActivity(ctx context.Context, activityId string) ([]models.Response, error)
	GetParticipantsBySession(ctx context.Context, sessionId string) ([]models.Participant, error)
	GetSessionByCode(ctx context.Context, code string) (models.Session, error)
}

type Options struct {
	// ActivityTimeout stops a running activity after this long. Zero disables it.
	ActivityTimeout time.Duration
	Logger          *slog.Logger
}

// SessionService coordinates presence, activity lifecycle and response
// tallying. Every mutation of a session runs under that session's lock, and
// store reads happen outside it.
type SessionService struct {
	Registry    *SessionRegistry
	Tracker     *ActivityTracker
	Broadcaster *Broadcaster

	store   RecordStore
	locks   *sessionLocks
	logger  *slog.Logger
	timeout time.Duration

	timersMu sync.Mutex
	timers   map[string]*time.Timer
}

func NewSessionService(records RecordStore, opts Options) *SessionService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registry := NewSessionRegistry()
	return &SessionService{
		Registry:    registry,
		Tracker:     NewActivityTracker(),
		Broadcaster: NewBroadcaster(registry, logger),
		store:       records,
		locks:       newSessionLocks(),
		logger:      logger,
		timeout:     opts.ActivityTimeout,
		timers:      make(map[string]*time.Timer),
	}
}

// Join registers the client in a session room and announces the new presence.
// Presenters additionally receive the live participant list and the durable
// roster of the session.
func (s *SessionService) Join(ctx context.Context, client *models.Client, req models.JoinRequest) error {
	code := store.NormalizeCode(req.SessionCode)
	if code == "" {
		return errSessionCodeRequired
	}

	role := models.RoleParticipant
	nickname := strings.TrimSpace(req.Nickname)
	participantId := strings.TrimSpace(req.ParticipantId)
	if req.IsPresenter {
		role = models.RolePresenter
	} else if nickname == "" {
		nickname = models.DefaultNickname
	}

	if prev, ok := s.Registry.SessionOf(client.Id); ok && prev != code {
		s.Leave(client)
	}

	unlock := s.locks.Lock(code)
	res := s.Registry.Join(code, client, role, participantId, nickname)
	if res.MovedFrom != "" {
		s.logger.Warn("connection moved sessions during join", "connection", client.Id, "from", res.MovedFrom, "to", code)
	}
	if role == models.RoleParticipant && isNewParticipant(res) {
		s.Broadcaster.ToRoom(code, models.NewEvent(models.EventParticipantJoined, models.ParticipantSummary{
			Id:       participantId,
			Nickname: nickname,
			SocketId: client.Id.String(),
		}), client.Id)
	}
	if role == models.RolePresenter {
		s.Broadcaster.ToClient(client, models.NewEvent(models.EventParticipantsList, s.Registry.ListParticipants(code)))
		s.broadcastPresence(code, client.Id)
	} else {
		s.broadcastPresence(code, uuid.Nil)
	}
	unlock()

	s.logger.Info("joined session", "session", code, "connection", client.Id, "role", role)

	if role == models.RolePresenter {
		s.Broadcaster.ToClient(client, models.NewEvent(models.EventParticipantsRoster, s.roster(ctx, code)))
	}
	return nil
}

func isNewParticipant(res JoinResult) bool {
	prev := res.Replaced
	return prev == nil || !prev.IsParticipant() || prev.ParticipantId != res.Member.ParticipantId
}

// roster reads the durable participant list. Unknown sessions and store
// failures degrade to an empty list.
func (s *SessionService) roster(ctx context.Context, code string) []models.ParticipantSummary {
	out := []models.ParticipantSummary{}
	sess, err := s.store.GetSessionByCode(ctx, code)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("loading session for roster", "session", code, "error", err)
		}
		return out
	}
	participants, err := s.store.GetParticipantsBySession(ctx, sess.Id)
	if err != nil {
		s.logger.Warn("loading roster", "session", code, "error", err)
		return out
	}
	for _, p := range participants {
		out = append(out, models.ParticipantSummary{Id: p.Id, Nickname: p.Nickname})
	}
	return out
}

// Leave removes the client from its session, if any, and announces it.
func (s *SessionService) Leave(client *models.Client) {
	code, ok := s.Registry.SessionOf(client.Id)
	if !ok {
		return
	}
	unlock := s.locks.Lock(code)
	defer unlock()

	left, m := s.Registry.Leave(client.Id)
	if m == nil {
		return
	}
	if left != code {
		s.logger.Warn("connection left a different session than locked", "connection", client.Id, "session", left)
		return
	}
	if m.IsParticipant() {
		s.Broadcaster.ToRoom(code, models.NewEvent(models.EventParticipantLeft, models.ParticipantLeft{
			SocketId:      client.Id.String(),
			ParticipantId: m.ParticipantId,
		}), client.Id)
	}
	s.broadcastPresence(code, uuid.Nil)
	s.logger.Info("left session", "session", code, "connection", client.Id, "role", m.Role)
}

// broadcastPresence must be called with the session lock held. The list is
// not sent to skipList, which already received it privately.
func (s *SessionService) broadcastPresence(code string, skipList uuid.UUID) {
	s.Broadcaster.ToRoom(code, models.NewEvent(models.EventParticipantsList, s.Registry.ListParticipants(code)), skipList)
	s.Broadcaster.ToRoom(code, models.NewEvent(models.EventParticipantsCount, s.Registry.ParticipantCount(code)), uuid.Nil)
}

// StartActivity snapshots the current participant count as the expected
// number of respondents and announces the activity.
func (s *SessionService) StartActivity(ctx context.Context, req models.StartRequest) (Snapshot, error) {
	code := store.NormalizeCode(req.SessionCode)
	if code == "" {
		return Snapshot{}, errSessionCodeRequired
	}
	if req.Activity.Id == "" {
		return Snapshot{}, errors.New("activity id is required")
	}
	if _, err := models.ParseActivityType(string(req.Activity.Type)); err != nil {
		return Snapshot{}, err
	}

	unlock := s.locks.Lock(code)
	expected := s.Registry.ParticipantCount(code)
	snap := s.Tracker.Start(code, req.Activity, expected)
	s.Broadcaster.ToRoom(code, models.NewEvent(models.EventActivityStarted, models.ActivityStarted{
		Activity:      req.Activity,
		ExpectedCount: expected,
	}), uuid.Nil)
	s.arm(snap)
	unlock()

	s.logger.Info("activity started", "session", code, "activity", snap.ActivityId, "title", req.Activity.Title, "expected", expected)

	// A restart can lower the expected count to what has already been
	// received. It also supersedes any completion still running for the
	// previous run.
	if snap.Responded > 0 && snap.Responded >= snap.Expected {
		if err := s.complete(ctx, code, snap.ActivityId, snap.Run); err != nil {
			return snap, err
		}
	}
	return snap, nil
}

// StopActivity ends a running activity early and broadcasts whatever
// responses were stored so far. Stopping an untracked activity broadcasts an
// empty result.
func (s *SessionService) StopActivity(ctx context.Context, req models.StopRequest) error {
	if req.ActivityId == "" {
		return errors.New("activityId is required")
	}
	return s.stop(ctx, store.NormalizeCode(req.SessionCode), req.ActivityId, 0)
}

// stop ends the activity. A non-zero run only stops that run of the activity.
func (s *SessionService) stop(ctx context.Context, code, activityId string, run uint64) error {
	snap, tracked := s.Tracker.Lookup(activityId)
	if run != 0 && (!tracked || snap.Run != run) {
		return nil
	}
	if tracked {
		code = snap.SessionCode
	}
	if code == "" {
		return errSessionCodeRequired
	}

	responses := []models.Response{}
	if tracked {
		rs, err := s.store.GetResponsesByActivity(ctx, activityId)
		if err != nil {
			return fmt.Errorf("%w: activity %s: %w", ErrResultsUnavailable, activityId, err)
		}
		responses = rs
	}

	unlock := s.locks.Lock(code)
	defer unlock()

	if tracked {
		var retired bool
		if run != 0 {
			retired = s.Tracker.RetireRun(activityId, run)
		} else {
			retired = s.Tracker.Retire(activityId)
		}
		if !retired {
			if run != 0 {
				return nil
			}
			responses = []models.Response{}
		}
		s.disarm(activityId)
	}

	s.Broadcaster.ToRoom(code, models.NewEvent(models.EventActivityStopped, models.ActivityStopped{
		ActivityId: activityId,
		Responses:  responses,
	}), uuid.Nil)
	s.logger.Info("activity stopped", "session", code, "activity", activityId, "responses", len(responses))
	return nil
}

// Submit tallies one response. Responses for untracked activities are
// dropped silently; the durable write is the API layer's concern.
func (s *SessionService) Submit(ctx context.Context, req models.SubmitRequest) error {
	snap, ok := s.Tracker.Lookup(req.ActivityId)
	if !ok {
		s.logger.Debug("dropping response for untracked activity", "activity", req.ActivityId)
		return nil
	}
	answer, err := models.ParseAnswer(snap.Activity, req.Answer)
	if err != nil {
		return err
	}
	participantId := strings.TrimSpace(req.ParticipantId)
	if participantId == "" {
		participantId = models.AnonymousParticipant
	}

	code := snap.SessionCode
	unlock := s.locks.Lock(code)
	prog, ok := s.Tracker.Record(req.ActivityId, participantId)
	if !ok {
		unlock()
		return nil
	}
	s.Broadcaster.ToRoom(code, models.NewEvent(models.EventResponseProgress, models.ResponseProgress{
		ActivityId:     prog.ActivityId,
		RespondedCount: prog.Responded,
		ExpectedCount:  prog.Expected,
	}), uuid.Nil)
	unlock()

	s.logger.Debug("response recorded", "session", code, "activity", req.ActivityId,
		"kind", answer.Kind, "responded", prog.Responded, "expected", prog.Expected, "counted", prog.Counted)

	if !prog.Complete {
		return nil
	}
	return s.complete(ctx, code, req.ActivityId, prog.Run)
}

// complete fetches the final responses and announces them once per run.
func (s *SessionService) complete(ctx context.Context, code, activityId string, run uint64) error {
	responses, err := s.store.GetResponsesByActivity(ctx, activityId)
	if err != nil {
		return fmt.Errorf("%w: activity %s: %w", ErrResultsUnavailable, activityId, err)
	}

	unlock := s.locks.Lock(code)
	defer unlock()

	if !s.Tracker.RetireRun(activityId, run) {
		return nil
	}
	s.disarm(activityId)
	s.Broadcaster.ToRoom(code, models.NewEvent(models.EventResultsReady, models.ResultsReady{
		ActivityId: activityId,
		Responses:  responses,
	}), uuid.Nil)
	s.logger.Info("all responses received", "session", code, "activity", activityId, "responses", len(responses))
	return nil
}

// AnnounceResponse tells the room about a response stored through the API.
func (s *SessionService) AnnounceResponse(code string, r models.Response) {
	code = store.NormalizeCode(code)
	unlock := s.locks.Lock(code)
	defer unlock()
	s.Broadcaster.ToRoom(code, models.NewEvent(models.EventResponseNew, models.ResponseNew{
		ActivityId:    r.ActivityId,
		ParticipantId: r.ParticipantId,
		Answer:        r.Answer,
	}), uuid.Nil)
}

func (s *SessionService) arm(snap Snapshot) {
	if s.timeout <= 0 {
		return
	}
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if t, ok := s.timers[snap.ActivityId]; ok {
		t.Stop()
	}
	s.timers[snap.ActivityId] = time.AfterFunc(s.timeout, func() {
		s.logger.Info("activity timed out", "session", snap.SessionCode, "activity", snap.ActivityId)
		if err := s.stop(context.Background(), snap.SessionCode, snap.ActivityId, snap.Run); err != nil {
			s.logger.Warn("stopping timed out activity", "activity", snap.ActivityId, "error", err)
		}
	})
}

func (s *SessionService) disarm(activityId string) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if t, ok := s.timers[activityId]; ok {
		t.Stop()
		delete(s.timers, activityId)
	}
}

// Close stops all pending activity timers.
func (s *SessionService) Close() {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

type Stats struct {
	ActiveSessions    int `json:"activeSessions"`
	Connections       int `json:"connections"`
	TrackedActivities int `json:"trackedActivities"`
}

func (s *SessionService) Stats() Stats {
	return Stats{
		ActiveSessions:    s.Registry.SessionCount(),
		Connections:       s.Registry.ConnectionCount(),
		TrackedActivities: s.Tracker.Len(),
	}
}

// MessageReader is the read side of a websocket connection.
type MessageReader interface {
	ReadMessage() (messageType int, p []byte, err error)
}

// LoopMessages reads frames until the connection fails and dispatches each one.
func (s *SessionService) LoopMessages(ctx context.Context, conn MessageReader, client *models.Client) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.logger.Debug("connection read ended", "connection", client.Id, "error", err)
			return
		}
		s.HandleMessage(ctx, client, data)
	}
}

// HandleMessage decodes one inbound frame and routes it. Failures are
// reported to the sending client only.
func (s *SessionService) HandleMessage(ctx context.Context, client *models.Client, data []byte) {
	var env models.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.reject(client, "", fmt.Errorf("malformed frame: %w", err))
		return
	}

	var err error
	switch env.Name {
	case models.EventSessionJoin:
		var req models.JoinRequest
		if err = decode(env.Data, &req); err == nil {
			err = s.Join(ctx, client, req)
		}
	case models.EventActivityStart:
		var req models.StartRequest
		if err = decode(env.Data, &req); err == nil {
			_, err = s.StartActivity(ctx, req)
		}
	case models.EventActivityStop:
		var req models.StopRequest
		if err = decode(env.Data, &req); err == nil {
			err = s.StopActivity(ctx, req)
		}
	case models.EventResponseSubmit:
		var req models.SubmitRequest
		if err = decode(env.Data, &req); err == nil {
			err = s.Submit(ctx, req)
		}
	default:
		err = fmt.Errorf("unknown event %q", env.Name)
	}
	if err != nil {
		s.reject(client, env.Name, err)
	}
}

// Disconnect removes a closed connection from its session.
func (s *SessionService) Disconnect(client *models.Client) {
	s.Leave(client)
	s.logger.Debug("client disconnected", "connection", client.Id)
}

func (s *SessionService) reject(client *models.Client, event string, err error) {
	s.logger.Warn("rejected client event", "connection", client.Id, "event", event, "error", err)
	s.Broadcaster.ToClient(client, models.NewEvent(models.EventError, models.ErrorPayload{
		Event:   event,
		Message: err.Error(),
	}))
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errors.New("missing event data")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decoding event data: %w", err)
	}
	return nil
}
