package models

import (
	"encoding/json"
	"time"
)

const (
	DefaultNickname      = "Anonyme"
	AnonymousParticipant = "anonymous"
)

type Session struct {
	Id        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	IsActive  bool      `json:"is_active"`
}

type Participant struct {
	Id        string    `json:"id"`
	SessionId string    `json:"session_id"`
	Nickname  string    `json:"nickname"`
	JoinedAt  time.Time `json:"joined_at"`
}

type Activity struct {
	Id        string          `json:"id"`
	SessionId string          `json:"session_id"`
	Type      ActivityType    `json:"type"`
	Title     string          `json:"title"`
	Config    json.RawMessage `json:"config"`
	CreatedAt time.Time       `json:"created_at"`
	IsActive  bool            `json:"is_active"`
}

// Response is append-only once stored.
type Response struct {
	Id            string          `json:"id"`
	ActivityId    string          `json:"activity_id"`
	ParticipantId string          `json:"participant_id"`
	Answer        json.RawMessage `json:"answer"`
	SubmittedAt   time.Time       `json:"submitted_at"`
}
