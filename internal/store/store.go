// Package store persists sessions, participants, activities and responses in SQLite.
package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/oklog/ulid/v2"

	"github.com/latestcomment/go-live-activities/internal/models"
)

var ErrNotFound = errors.New("not found")

const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 6
	codeAttempts = 16
)

var psq = sq.StatementBuilder.PlaceholderFormat(sq.Question)

var (
	sessionColumns     = []string{"id", "code", "name", "created_at", "is_active"}
	participantColumns = []string{"id", "session_id", "nickname", "joined_at"}
	activityColumns    = []string{"id", "session_id", "type", "title", "config", "created_at", "is_active"}
	responseColumns    = []string{"id", "activity_id", "participant_id", "answer", "submitted_at"}
)

// Store is the durable record store.
type Store struct {
	db      *sql.DB
	now     func() time.Time
	newID   func() string
	newCode func() (string, error)
}

func New(db *sql.DB) *Store {
	return &Store{
		db:      db,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   func() string { return ulid.Make().String() },
		newCode: generateCode,
	}
}

func generateCode() (string, error) {
	var b strings.Builder
	limit := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < codeLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generating session code: %w", err)
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizeCode upper-cases and trims a user supplied session code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (models.Session, error) {
	var s models.Session
	if err := row.Scan(&s.Id, &s.Code, &s.Name, &s.CreatedAt, &s.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Session{}, ErrNotFound
		}
		return models.Session{}, fmt.Errorf("scanning session: %w", err)
	}
	return s, nil
}

func scanActivity(row rowScanner) (models.Activity, error) {
	var a models.Activity
	var config sql.NullString
	if err := row.Scan(&a.Id, &a.SessionId, &a.Type, &a.Title, &config, &a.CreatedAt, &a.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Activity{}, ErrNotFound
		}
		return models.Activity{}, fmt.Errorf("scanning activity: %w", err)
	}
	if config.Valid && config.String != "" {
		a.Config = json.RawMessage(config.String)
	}
	return a, nil
}

func (s *Store) querySession(ctx context.Context, qb sq.SelectBuilder) (models.Session, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return models.Session{}, fmt.Errorf("building session query: %w", err)
	}
	return scanSession(s.db.QueryRowContext(ctx, query, args...))
}

// --- sessions ---

func (s *Store) CreateSession(ctx context.Context, name string) (models.Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Session{}, errors.New("session name is required")
	}

	var code string
	for attempt := 0; ; attempt++ {
		if attempt == codeAttempts {
			return models.Session{}, errors.New("no free session code")
		}
		c, err := s.newCode()
		if err != nil {
			return models.Session{}, err
		}
		taken, err := s.codeTaken(ctx, c)
		if err != nil {
			return models.Session{}, err
		}
		if !taken {
			code = c
			break
		}
	}

	sess := models.Session{
		Id:        s.newID(),
		Code:      code,
		Name:      name,
		CreatedAt: s.now(),
		IsActive:  true,
	}
	query, args, err := psq.Insert("sessions").Columns(sessionColumns...).
		Values(sess.Id, sess.Code, sess.Name, sess.CreatedAt, sess.IsActive).ToSql()
	if err != nil {
		return models.Session{}, fmt.Errorf("building session insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return models.Session{}, fmt.Errorf("inserting session: %w", err)
	}
	return sess, nil
}

func (s *Store) codeTaken(ctx context.Context, code string) (bool, error) {
	query, args, err := psq.Select("COUNT(*)").From("sessions").Where(sq.Eq{"code": code}).ToSql()
	if err != nil {
		return false, fmt.Errorf("building code query: %w", err)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("checking session code: %w", err)
	}
	return n > 0, nil
}

// GetSessionByCode returns the active session with the given code.
func (s *Store) GetSessionByCode(ctx context.Context, code string) (models.Session, error) {
	return s.querySession(ctx, psq.Select(sessionColumns...).From("sessions").
		Where(sq.Eq{"code": NormalizeCode(code), "is_active": true}))
}

// FindSessionByCode returns the session with the given code whether or not it is active.
func (s *Store) FindSessionByCode(ctx context.Context, code string) (models.Session, error) {
	return s.querySession(ctx, psq.Select(sessionColumns...).From("sessions").
		Where(sq.Eq{"code": NormalizeCode(code)}))
}

func (s *Store) GetSessionByID(ctx context.Context, id string) (models.Session, error) {
	return s.querySession(ctx, psq.Select(sessionColumns...).From("sessions").Where(sq.Eq{"id": id}))
}

// ListSessions returns every session, newest first.
func (s *Store) ListSessions(ctx context.Context) ([]models.Session, error) {
	query, args, err := psq.Select(sessionColumns...).From("sessions").OrderBy("created_at DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("building session list: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sessions := []models.Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session rows: %w", err)
	}
	return sessions, nil
}

// SetSessionActive ends or reactivates the session with the given code.
func (s *Store) SetSessionActive(ctx context.Context, code string, active bool) error {
	query, args, err := psq.Update("sessions").Set("is_active", active).
		Where(sq.Eq{"code": NormalizeCode(code)}).ToSql()
	if err != nil {
		return fmt.Errorf("building session update: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	return requireAffected(res)
}

// DeleteSession removes a session with its participants, activities and responses.
func (s *Store) DeleteSession(ctx context.Context, code string) error {
	sess, err := s.FindSessionByCode(ctx, code)
	if err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		activityIDs := psq.Select("id").From("activities").Where(sq.Eq{"session_id": sess.Id})
		sub, subArgs, err := activityIDs.ToSql()
		if err != nil {
			return fmt.Errorf("building activity subquery: %w", err)
		}
		stmts := []sq.Sqlizer{
			psq.Delete("responses").Where(sq.Expr("activity_id IN ("+sub+")", subArgs...)),
			psq.Delete("activities").Where(sq.Eq{"session_id": sess.Id}),
			psq.Delete("participants").Where(sq.Eq{"session_id": sess.Id}),
			psq.Delete("sessions").Where(sq.Eq{"id": sess.Id}),
		}
		for _, stmt := range stmts {
			if err := execTx(ctx, tx, stmt); err != nil {
				return fmt.Errorf("deleting session: %w", err)
			}
		}
		return nil
	})
}

// --- participants ---

func (s *Store) CreateParticipant(ctx context.Context, sessionID, nickname string) (models.Participant, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		nickname = models.DefaultNickname
	}
	p := models.Participant{
		Id:        s.newID(),
		SessionId: sessionID,
		Nickname:  nickname,
		JoinedAt:  s.now(),
	}
	query, args, err := psq.Insert("participants").Columns(participantColumns...).
		Values(p.Id, p.SessionId, p.Nickname, p.JoinedAt).ToSql()
	if err != nil {
		return models.Participant{}, fmt.Errorf("building participant insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return models.Participant{}, fmt.Errorf("inserting participant: %w", err)
	}
	return p, nil
}

// GetParticipantsBySession returns the durable roster of a session in join order.
func (s *Store) GetParticipantsBySession(ctx context.Context, sessionID string) ([]models.Participant, error) {
	query, args, err := psq.Select(participantColumns...).From("participants").
		Where(sq.Eq{"session_id": sessionID}).OrderBy("joined_at ASC", "id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("building participant list: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing participants: %w", err)
	}
	defer func() { _ = rows.Close() }()

	participants := []models.Participant{}
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.Id, &p.SessionId, &p.Nickname, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("scanning participant: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating participant rows: %w", err)
	}
	return participants, nil
}

// --- activities ---

// CreateActivity stores a new, inactive activity. Id and CreatedAt are assigned here.
func (s *Store) CreateActivity(ctx context.Context, a models.Activity) (models.Activity, error) {
	a.Id = s.newID()
	a.CreatedAt = s.now()
	a.IsActive = false

	var config any
	if !isNullJSON(a.Config) {
		config = string(a.Config)
	}
	query, args, err := psq.Insert("activities").Columns(activityColumns...).
		Values(a.Id, a.SessionId, string(a.Type), a.Title, config, a.CreatedAt, a.IsActive).ToSql()
	if err != nil {
		return models.Activity{}, fmt.Errorf("building activity insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return models.Activity{}, fmt.Errorf("inserting activity: %w", err)
	}
	return a, nil
}

func (s *Store) GetActivity(ctx context.Context, id string) (models.Activity, error) {
	query, args, err := psq.Select(activityColumns...).From("activities").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return models.Activity{}, fmt.Errorf("building activity query: %w", err)
	}
	return scanActivity(s.db.QueryRowContext(ctx, query, args...))
}

// ListActivitiesBySession returns the activities of a session, newest first.
func (s *Store) ListActivitiesBySession(ctx context.Context, sessionID string) ([]models.Activity, error) {
	query, args, err := psq.Select(activityColumns...).From("activities").
		Where(sq.Eq{"session_id": sessionID}).OrderBy("created_at DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("building activity list: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing activities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	activities := []models.Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating activity rows: %w", err)
	}
	return activities, nil
}

// ActivateActivity marks the activity active after deactivating every other
// activity of its session, so at most one activity per session is active.
func (s *Store) ActivateActivity(ctx context.Context, id string) error {
	a, err := s.GetActivity(ctx, id)
	if err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := execTx(ctx, tx, psq.Update("activities").Set("is_active", false).
			Where(sq.Eq{"session_id": a.SessionId})); err != nil {
			return fmt.Errorf("deactivating activities: %w", err)
		}
		if err := execTx(ctx, tx, psq.Update("activities").Set("is_active", true).
			Where(sq.Eq{"id": id})); err != nil {
			return fmt.Errorf("activating activity: %w", err)
		}
		return nil
	})
}

func (s *Store) DeactivateActivity(ctx context.Context, id string) error {
	query, args, err := psq.Update("activities").Set("is_active", false).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("building activity update: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deactivating activity: %w", err)
	}
	return requireAffected(res)
}

// DeleteActivity removes an activity and its responses.
func (s *Store) DeleteActivity(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := execTx(ctx, tx, psq.Delete("responses").Where(sq.Eq{"activity_id": id})); err != nil {
			return fmt.Errorf("deleting responses: %w", err)
		}
		query, args, err := psq.Delete("activities").Where(sq.Eq{"id": id}).ToSql()
		if err != nil {
			return fmt.Errorf("building activity delete: %w", err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("deleting activity: %w", err)
		}
		return requireAffected(res)
	})
}

// --- responses ---

func (s *Store) CreateResponse(ctx context.Context, activityID, participantID string, answer json.RawMessage) (models.Response, error) {
	if strings.TrimSpace(participantID) == "" {
		participantID = models.AnonymousParticipant
	}
	r := models.Response{
		Id:            s.newID(),
		ActivityId:    activityID,
		ParticipantId: participantID,
		Answer:        answer,
		SubmittedAt:   s.now(),
	}
	query, args, err := psq.Insert("responses").Columns(responseColumns...).
		Values(r.Id, r.ActivityId, r.ParticipantId, string(r.Answer), r.SubmittedAt).ToSql()
	if err != nil {
		return models.Response{}, fmt.Errorf("building response insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return models.Response{}, fmt.Errorf("inserting response: %w", err)
	}
	return r, nil
}

// GetResponsesByActivity returns the responses of an activity in submission order.
func (s *Store) GetResponsesByActivity(ctx context.Context, activityID string) ([]models.Response, error) {
	query, args, err := psq.Select(responseColumns...).From("responses").
		Where(sq.Eq{"activity_id": activityID}).OrderBy("submitted_at ASC", "id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("building response list: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing responses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	responses := []models.Response{}
	for rows.Next() {
		var r models.Response
		var answer string
		if err := rows.Scan(&r.Id, &r.ActivityId, &r.ParticipantId, &answer, &r.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scanning response: %w", err)
		}
		r.Answer = json.RawMessage(answer)
		responses = append(responses, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating response rows: %w", err)
	}
	return responses, nil
}

// --- helpers ---

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func execTx(ctx context.Context, tx *sql.Tx, stmt sq.Sqlizer) error {
	query, args, err := stmt.ToSql()
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isNullJSON(raw json.RawMessage) bool {
	v := strings.TrimSpace(string(raw))
	return v == "" || v == "null"
}
