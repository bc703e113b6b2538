package models

import (
	"encoding/json"
	"time"
)

// Client -> server events.
const (
	EventSessionJoin    = "session:join"
	EventActivityStart  = "activity:start"
	EventActivityStop   = "activity:stop"
	EventResponseSubmit = "response:submit"
)

// Server -> client events.
const (
	EventParticipantJoined  = "participant:joined"
	EventParticipantLeft    = "participant:left"
	EventParticipantsList   = "participants:list"
	EventParticipantsCount  = "participants:count"
	EventParticipantsRoster = "participants:roster"
	EventActivityStarted    = "activity:started"
	EventActivityStopped    = "activity:stopped"
	EventResponseProgress   = "response:progress"
	EventResultsReady       = "activity:resultsReady"
	EventResponseNew        = "response:new"
	EventError              = "error"
)

// Event is the outbound frame written to a client.
type Event struct {
	Name      string    `json:"event"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEvent(name string, data any) Event {
	return Event{
		Name:      name,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// Envelope is the inbound frame read from a client.
type Envelope struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

type JoinRequest struct {
	SessionCode   string `json:"sessionCode"`
	ParticipantId string `json:"participantId,omitempty"`
	Nickname      string `json:"nickname,omitempty"`
	IsPresenter   bool   `json:"isPresenter"`
}

type StartRequest struct {
	SessionCode string   `json:"sessionCode"`
	Activity    Activity `json:"activity"`
}

type StopRequest struct {
	SessionCode string `json:"sessionCode"`
	ActivityId  string `json:"activityId"`
}

type SubmitRequest struct {
	SessionCode   string          `json:"sessionCode"`
	ActivityId    string          `json:"activityId"`
	ParticipantId string          `json:"participantId"`
	Answer        json.RawMessage `json:"answer"`
}

type ParticipantSummary struct {
	Id       string `json:"id"`
	Nickname string `json:"nickname"`
	SocketId string `json:"socketId,omitempty"`
}

type ParticipantLeft struct {
	SocketId      string `json:"socketId"`
	ParticipantId string `json:"participantId"`
}

type ActivityStarted struct {
	Activity      Activity `json:"activity"`
	ExpectedCount int      `json:"expectedCount"`
}

type ActivityStopped struct {
	ActivityId string     `json:"activityId"`
	Responses  []Response `json:"responses"`
}

type ResponseProgress struct {
	ActivityId     string `json:"activityId"`
	RespondedCount int    `json:"respondedCount"`
	ExpectedCount  int    `json:"expectedCount"`
}

type ResultsReady struct {
	ActivityId string     `json:"activityId"`
	Responses  []Response `json:"responses"`
}

type ResponseNew struct {
	ActivityId    string          `json:"activityId"`
	ParticipantId string          `json:"participantId"`
	Answer        json.RawMessage `json:"answer"`
}

type ErrorPayload struct {
	Event   string `json:"event,omitempty"`
	Message string `json:"message"`
}
