package services

import (
	"sync"

	"github.com/latestcomment/go-live-activities/internal/models"
)

type trackerEntry struct {
	sessionCode string
	activity    models.Activity
	expected    int
	responded   map[string]struct{}
	run         uint64
}

// ActivityTracker owns the respondent bookkeeping of running activities,
// keyed by activity id.
type ActivityTracker struct {
	mu      sync.Mutex
	entries map[string]*trackerEntry
	runs    uint64
}

func NewActivityTracker() *ActivityTracker {
	return &ActivityTracker{entries: make(map[string]*trackerEntry)}
}

// Snapshot is a read-only copy of one tracker entry.
type Snapshot struct {
	ActivityId  string
	SessionCode string
	Activity    models.Activity
	Expected    int
	Responded   int
	// Run changes every time the activity is (re)started.
	Run uint64
}

// Progress is the outcome of recording one response.
type Progress struct {
	ActivityId string
	Responded  int
	Expected   int
	// Counted is false when the participant had already responded.
	Counted  bool
	Complete bool
	Run      uint64
}

func (e *trackerEntry) snapshot(id string) Snapshot {
	return Snapshot{
		ActivityId:  id,
		SessionCode: e.sessionCode,
		Activity:    e.activity,
		Expected:    e.expected,
		Responded:   len(e.responded),
		Run:         e.run,
	}
}

// Start begins tracking the activity with a point-in-time expected count.
// Starting an already tracked activity re-snapshots the expected count and
// keeps the participants who already responded.
func (t *ActivityTracker) Start(code string, activity models.Activity, expected int) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.runs++
	e, ok := t.entries[activity.Id]
	if !ok {
		e = &trackerEntry{responded: make(map[string]struct{})}
		t.entries[activity.Id] = e
	}
	e.sessionCode = code
	e.activity = activity
	e.expected = expected
	e.run = t.runs
	return e.snapshot(activity.Id)
}

func (t *ActivityTracker) Lookup(activityId string) (Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[activityId]
	if !ok {
		return Snapshot{}, false
	}
	return e.snapshot(activityId), true
}

// Record adds the participant to the responded set. It reports false when
// the activity is not tracked.
func (t *ActivityTracker) Record(activityId, participantId string) (Progress, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[activityId]
	if !ok {
		return Progress{}, false
	}
	_, seen := e.responded[participantId]
	if !seen {
		e.responded[participantId] = struct{}{}
	}
	n := len(e.responded)
	return Progress{
		ActivityId: activityId,
		Responded:  n,
		Expected:   e.expected,
		Counted:    !seen,
		Complete:   n >= e.expected,
		Run:        e.run,
	}, true
}

// Retire drops the entry whatever run it is in.
func (t *ActivityTracker) Retire(activityId string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[activityId]; !ok {
		return false
	}
	delete(t.entries, activityId)
	return true
}

// RetireRun drops the entry only if it is still in the given run.
func (t *ActivityTracker) RetireRun(activityId string, run uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[activityId]
	if !ok || e.run != run {
		return false
	}
	delete(t.entries, activityId)
	return true
}

func (t *ActivityTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
