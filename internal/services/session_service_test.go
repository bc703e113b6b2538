package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latestcomment/go-live-activities/internal/models"
)

func progressOf(t *testing.T, ev models.Event) models.ResponseProgress {
	t.Helper()
	p, ok := ev.Data.(models.ResponseProgress)
	require.True(t, ok, "event %s carries %T", ev.Name, ev.Data)
	return p
}

func TestJoin_ParticipantNotifiesOthersButNotSelf(t *testing.T) {
	s := newTestService(t, newFakeStore(), 0)

	a := joinParticipant(t, s, "ABC123", "p-a", "Ada")
	assert.Equal(t, []string{models.EventParticipantsList, models.EventParticipantsCount}, names(drain(a)))

	b := joinParticipant(t, s, "abc123", "p-b", "")
	evA := drain(a)
	assert.Equal(t, []string{models.EventParticipantJoined, models.EventParticipantsList, models.EventParticipantsCount}, names(evA))
	joined := evA[0].Data.(models.ParticipantSummary)
	assert.Equal(t, "p-b", joined.Id)
	assert.Equal(t, models.DefaultNickname, joined.Nickname)
	assert.Equal(t, 2, evA[2].Data)

	assert.Equal(t, []string{models.EventParticipantsList, models.EventParticipantsCount}, names(drain(b)))
}

func TestJoin_PresenterGetsPrivateSnapshotAndRoster(t *testing.T) {
	records := newFakeStore()
	records.sessions["ABC123"] = models.Session{Id: "sess-1", Code: "ABC123", IsActive: true}
	records.participants["sess-1"] = []models.Participant{
		{Id: "p-a", SessionId: "sess-1", Nickname: "Ada"},
		{Id: "p-old", SessionId: "sess-1", Nickname: "Gone"},
	}
	s := newTestService(t, records, 0)

	a := joinParticipant(t, s, "ABC123", "p-a", "Ada")
	host := joinPresenter(t, s, "ABC123")

	evs := drain(host)
	assert.Equal(t, []string{
		models.EventParticipantsList,
		models.EventParticipantsCount,
		models.EventParticipantsRoster,
	}, names(evs), "the presenter receives the list once")
	assert.Equal(t, 1, evs[1].Data, "presenters are not counted")

	snapshot := evs[0].Data.([]models.ParticipantSummary)
	require.Len(t, snapshot, 1)
	assert.Equal(t, "p-a", snapshot[0].Id)

	roster := evs[2].Data.([]models.ParticipantSummary)
	assert.Len(t, roster, 2)

	evA := drain(a)
	assert.NotContains(t, names(evA), models.EventParticipantJoined, "presenter joins are not announced")
	assert.Len(t, only(evA, models.EventParticipantsList), 2, "own join and the presenter's join")
}

func TestJoin_PresenterRosterEmptyForUnknownSession(t *testing.T) {
	s := newTestService(t, newFakeStore(), 0)
	host := joinPresenter(t, s, "NEW999")

	rosters := only(drain(host), models.EventParticipantsRoster)
	require.Len(t, rosters, 1)
	assert.Empty(t, rosters[0].Data)
}

func TestJoin_RequiresSessionCode(t *testing.T) {
	s := newTestService(t, newFakeStore(), 0)
	err := s.Join(context.Background(), models.NewClient(4), models.JoinRequest{})
	assert.Error(t, err)
}

func TestDisconnect_AnnouncesParticipantLeft(t *testing.T) {
	s := newTestService(t, newFakeStore(), 0)
	host := joinPresenter(t, s, "ABC123")
	a := joinParticipant(t, s, "ABC123", "p-a", "Ada")
	drain(host)

	s.Disconnect(a)
	evs := drain(host)
	assert.Equal(t, []string{models.EventParticipantLeft, models.EventParticipantsList, models.EventParticipantsCount}, names(evs))
	left := evs[0].Data.(models.ParticipantLeft)
	assert.Equal(t, "p-a", left.ParticipantId)
	assert.Equal(t, a.Id.String(), left.SocketId)
	assert.Equal(t, 0, evs[2].Data)

	s.Disconnect(a)
	assert.Empty(t, drain(host), "second disconnect is a no-op")
}

func TestDisconnect_PresenterOnlyRefreshesPresence(t *testing.T) {
	s := newTestService(t, newFakeStore(), 0)
	host := joinPresenter(t, s, "ABC123")
	a := joinParticipant(t, s, "ABC123", "p-a", "Ada")
	drain(a)

	s.Disconnect(host)
	assert.Equal(t, []string{models.EventParticipantsList, models.EventParticipantsCount}, names(drain(a)))
}

func TestActivityFlow_ThreeParticipants(t *testing.T) {
	records := newFakeStore()
	s := newTestService(t, records, 0)
	ctx := context.Background()

	host := joinPresenter(t, s, "ABC123")
	joinParticipant(t, s, "ABC123", "A", "Ada")
	joinParticipant(t, s, "ABC123", "B", "Bob")
	joinParticipant(t, s, "ABC123", "C", "Cy")
	drain(host)

	snap, err := s.StartActivity(ctx, models.StartRequest{SessionCode: "ABC123", Activity: pollActivity("Q1")})
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Expected)

	started := drain(host)
	require.Equal(t, []string{models.EventActivityStarted}, names(started))
	assert.Equal(t, 3, started[0].Data.(models.ActivityStarted).ExpectedCount)

	steps := []struct {
		pid, answer string
		responded   int
	}{
		{"A", `"Red"`, 1},
		{"B", `"Blue"`, 2},
		{"B", `"Green"`, 2},
	}
	for _, st := range steps {
		records.addResponse("Q1", st.pid, st.answer)
		require.NoError(t, submit(s, "ABC123", "Q1", st.pid, st.answer))
		evs := drain(host)
		require.Equal(t, []string{models.EventResponseProgress}, names(evs))
		p := progressOf(t, evs[0])
		assert.Equal(t, st.responded, p.RespondedCount)
		assert.Equal(t, 3, p.ExpectedCount)
	}

	records.addResponse("Q1", "C", `"Red"`)
	require.NoError(t, submit(s, "ABC123", "Q1", "C", `"Red"`))
	evs := drain(host)
	require.Equal(t, []string{models.EventResponseProgress, models.EventResultsReady}, names(evs))
	assert.Equal(t, 3, progressOf(t, evs[0]).RespondedCount)
	ready := evs[1].Data.(models.ResultsReady)
	assert.Equal(t, "Q1", ready.ActivityId)
	assert.Len(t, ready.Responses, 4, "results carry every stored record")

	assert.Equal(t, 0, s.Tracker.Len())

	require.NoError(t, submit(s, "ABC123", "Q1", "A", `"Red"`))
	assert.Empty(t, drain(host), "late submissions cannot re-trigger results")
}

func TestActivity_ExpectedCountIsSnapshot(t *testing.T) {
	s := newTestService(t, newFakeStore(), 0)
	host := joinPresenter(t, s, "ABC123")
	joinParticipant(t, s, "ABC123", "A", "Ada")

	_, err := s.StartActivity(context.Background(), models.StartRequest{SessionCode: "ABC123", Activity: pollActivity("Q1")})
	require.NoError(t, err)

	joinParticipant(t, s, "ABC123", "B", "Bob")
	joinParticipant(t, s, "ABC123", "C", "Cy")
	drain(host)

	snap, ok := s.Tracker.Lookup("Q1")
	require.True(t, ok)
	assert.Equal(t, 1, snap.Expected)

	require.NoError(t, submit(s, "ABC123", "Q1", "B", `"Red"`))
	assert.Equal(t, []string{models.EventResponseProgress, models.EventResultsReady}, names(drain(host)))
}

func TestActivity_EmptyRoomCompletesOnFirstSubmit(t *testing.T) {
	s := newTestService(t, newFakeStore(), 0)
	host := joinPresenter(t, s, "ABC123")
	drain(host)

	snap, err := s.StartActivity(context.Background(), models.StartRequest{SessionCode: "ABC123", Activity: pollActivity("Q1")})
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Expected)
	drain(host)

	require.NoError(t, submit(s, "ABC123", "Q1", "late", `"Red"`))
	evs := drain(host)
	require.Equal(t, []string{models.EventResponseProgress, models.EventResultsReady}, names(evs))
	assert.Empty(t, evs[1].Data.(models.ResultsReady).Responses)
}

func TestActivity_EmptyRoomStopIsSafe(t *testing.T) {
	records := newFakeStore()
	s := newTestService(t, records, 0)
	host := joinPresenter(t, s, "ABC123")

	_, err := s.StartActivity(context.Background(), models.StartRequest{SessionCode: "ABC123", Activity: pollActivity("Q1")})
	require.NoError(t, err)
	drain(host)

	require.NoError(t, s.StopActivity(context.Background(), models.StopRequest{SessionCode: "ABC123", ActivityId: "Q1"}))
	evs := drain(host)
	require.Equal(t, []string{models.EventActivityStopped}, names(evs))
	stopped := evs[0].Data.(models.ActivityStopped)
	assert.NotNil(t, stopped.Responses)
	assert.Empty(t, stopped.Responses)
	assert.Equal(t, 0, s.Tracker.Len())
}

func TestActivity_StopBeforeCompletionBroadcastsPartialResults(t *testing.T) {
	records := newFakeStore()
	s := newTestService(t, records, 0)
	host := joinPresenter(t, s, "ABC123")
	joinParticipant(t, s, "ABC123", "A", "Ada")
	joinParticipant(t, s, "ABC123", "B", "Bob")

	_, err := s.StartActivity(context.Background(), models.StartRequest{SessionCode: "ABC123", Activity: pollActivity("Q1")})
	require.NoError(t, err)
	records.addResponse("Q1", "A", `"Red"`)
	require.NoError(t, submit(s, "ABC123", "Q1", "A", `"Red"`))
	drain(host)

	require.NoError(t, s.StopActivity(context.Background(), models.StopRequest{SessionCode: "ABC123", ActivityId: "Q1"}))
	evs := drain(host)
	require.Equal(t, []string{models.EventActivityStopped}, names(evs))
	assert.Len(t, evs[0].Data.(models.ActivityStopped).Responses, 1)

	records.addResponse("Q1", "B", `"Blue"`)
	require.NoError(t, submit(s, "ABC123", "Q1", "B", `"Blue"`))
	assert.Empty(t, drain(host), "no progress after stop")
}

func TestActivity_StopUntrackedBroadcastsEmptyResults(t *testing.T) {
	records := newFakeStore()
	s := newTestService(t, records, 0)
	host := joinPresenter(t, s, "ABC123")
	drain(host)

	require.NoError(t, s.StopActivity(context.Background(), models.StopRequest{SessionCode: "ABC123", ActivityId: "ghost"}))
	evs := drain(host)
	require.Equal(t, []string{models.EventActivityStopped}, names(evs))
	assert.Empty(t, evs[0].Data.(models.ActivityStopped).Responses)
	assert.Equal(t, 0, records.fetches)
}

func TestActivity_DisconnectDoesNotLowerExpectedCount(t *testing.T) {
	s := newTestService(t, newFakeStore(), 0)
	host := joinPresenter(t, s, "ABC123")
	joinParticipant(t, s, "ABC123", "A", "Ada")
	b := joinParticipant(t, s, "ABC123", "B", "Bob")

	_, err := s.StartActivity(context.Background(), models.StartRequest{SessionCode: "ABC123", Activity: pollActivity("Q1")})
	require.NoError(t, err)
	s.Disconnect(b)
	drain(host)

	require.NoError(t, submit(s, "ABC123", "Q1", "A", `"Red"`))
	evs := drain(host)
	require.Equal(t, []string{models.EventResponseProgress}, names(evs))
	assert.Equal(t, 2, progressOf(t, evs[0]).ExpectedCount)

	_, tracked := s.Tracker.Lookup("Q1")
	assert.True(t, tracked, "activity waits for a response that will never come")

	require.NoError(t, s.StopActivity(context.Background(), models.StopRequest{SessionCode: "ABC123", ActivityId: "Q1"}))
	assert.Equal(t, []string{models.EventActivityStopped}, names(drain(host)))
	_, tracked = s.Tracker.Lookup("Q1")
	assert.False(t, tracked)
}

func TestActivity_RestartAfterLeaveCompletesWhenAllRemainingAnswered(t *testing.T) {
	records := newFakeStore()
	s := newTestService(t, records, 0)
	ctx := context.Background()
	host := joinPresenter(t, s, "ABC123")
	joinParticipant(t, s, "ABC123", "A", "Ada")
	b := joinParticipant(t, s, "ABC123", "B", "Bob")

	_, err := s.StartActivity(ctx, models.StartRequest{SessionCode: "ABC123", Activity: pollActivity("Q1")})
	require.NoError(t, err)
	records.addResponse("Q1", "A", `"Red"`)
	require.NoError(t, submit(s, "ABC123", "Q1", "A", `"Red"`))
	s.Disconnect(b)
	drain(host)

	snap, err := s.StartActivity(ctx, models.StartRequest{SessionCode: "ABC123", Activity: pollActivity("Q1")})
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Expected)
	assert.Equal(t, 1, snap.Responded)

	evs := drain(host)
	require.Equal(t, []string{models.EventActivityStarted, models.EventResultsReady}, names(evs))
	assert.Len(t, evs[1].Data.(models.ResultsReady).Responses, 1)
	assert.Equal(t, 0, s.Tracker.Len())
}

func TestActivity_RestartWithResponsesOutstandingKeepsWaiting(t *testing.T) {
	s := newTestService(t, newFakeStore(), 0)
	ctx := context.Background()
	host := joinPresenter(t, s, "ABC123")
	joinParticipant(t, s, "ABC123", "A", "Ada")
	joinParticipant(t, s, "ABC123", "B", "Bob")

	_, err := s.StartActivity(ctx, models.StartRequest{SessionCode: "ABC123", Activity: pollActivity("Q1")})
	require.NoError(t, err)
	require.NoError(t, submit(s, "ABC123", "Q1", "A", `"Red"`))
	drain(host)

	_, err = s.StartActivity(ctx, models.StartRequest{SessionCode: "ABC123", Activity: pollActivity("Q1")})
	require.NoError(t, err)
	assert.Equal(t, []string{models.EventActivityStarted}, names(drain(host)))
	assert.Equal(t, 1, s.Tracker.Len())
}

func TestSubmit_QuizWithNoAnsweredQuestionsCounts(t *testing.T) {
	s := newTestService(t, newFakeStore(), 0)
	host := joinPresenter(t, s, "ABC123")
	joinParticipant(t, s, "ABC123", "A", "Ada")
	joinParticipant(t, s, "ABC123", "B", "Bob")

	quiz := models.Activity{
		Id:     "QZ",
		Type:   models.ActivityQuiz,
		Title:  "Warm-up",
		Config: json.RawMessage(`{"questions":[{"text":"Sky is blue","type":"truefalse","timeLimit":10}]}`),
	}
	_, err := s.StartActivity(context.Background(), models.StartRequest{SessionCode: "ABC123", Activity: quiz})
	require.NoError(t, err)
	drain(host)

	require.NoError(t, submit(s, "ABC123", "QZ", "A", `{}`))
	evs := drain(host)
	require.Equal(t, []string{models.EventResponseProgress}, names(evs))
	assert.Equal(t, 1, progressOf(t, evs[0]).RespondedCount)

	assert.ErrorIs(t, submit(s, "ABC123", "QZ", "B", `{"4":"true"}`), models.ErrInvalidAnswer)
	assert.Empty(t, drain(host))
}

func TestSubmit_StoreFailureKeepsEntryForRetry(t *testing.T) {
	records := newFakeStore()
	s := newTestService(t, records, 0)
	host := joinPresenter(t, s, "ABC123")
	joinParticipant(t, s, "ABC123", "A", "Ada")

	_, err := s.StartActivity(context.Background(), models.StartRequest{SessionCode: "ABC123", Activity: pollActivity("Q1")})
	require.NoError(t, err)
	drain(host)

	records.setResponsesErr(errors.New("database is locked"))
	err = submit(s, "ABC123", "Q1", "A", `"Red"`)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResultsUnavailable)
	assert.Equal(t, []string{models.EventResponseProgress}, names(drain(host)))
	assert.Equal(t, 1, s.Tracker.Len())

	records.setResponsesErr(nil)
	records.addResponse("Q1", "A", `"Red"`)
	require.NoError(t, submit(s, "ABC123", "Q1", "A", `"Red"`))
	evs := drain(host)
	assert.Equal(t, []string{models.EventResponseProgress, models.EventResultsReady}, names(evs))
	assert.Equal(t, 1, progressOf(t, evs[0]).RespondedCount)
}

func TestStop_StoreFailureKeepsEntry(t *testing.T) {
	records := newFakeStore()
	s := newTestService(t, records, 0)
	host := joinPresenter(t, s, "ABC123")

	_, err := s.StartActivity(context.Background(), models.StartRequest{SessionCode: "ABC123", Activity: pollActivity("Q1")})
	require.NoError(t, err)
	drain(host)

	records.setResponsesErr(errors.New("disk full"))
	err = s.StopActivity(context.Background(), models.StopRequest{SessionCode: "ABC123", ActivityId: "Q1"})
	assert.ErrorIs(t, err, ErrResultsUnavailable)
	assert.Empty(t, drain(host))
	assert.Equal(t, 1, s.Tracker.Len())
}

func TestSubmit_InvalidAnswerIsRejected(t *testing.T) {
	s := newTestService(t, newFakeStore(), 0)
	host := joinPresenter(t, s, "ABC123")
	joinParticipant(t, s, "ABC123", "A", "Ada")

	_, err := s.StartActivity(context.Background(), models.StartRequest{SessionCode: "ABC123", Activity: pollActivity("Q1")})
	require.NoError(t, err)
	drain(host)

	err = submit(s, "ABC123", "Q1", "A", `"Purple"`)
	assert.ErrorIs(t, err, models.ErrInvalidAnswer)
	assert.Empty(t, drain(host))

	snap, _ := s.Tracker.Lookup("Q1")
	assert.Equal(t, 0, snap.Responded)
}

func TestSubmit_UnknownActivityIsDropped(t *testing.T) {
	s := newTestService(t, newFakeStore(), 0)
	host := joinPresenter(t, s, "ABC123")
	drain(host)

	require.NoError(t, submit(s, "ABC123", "never-started", "A", `"Red"`))
	assert.Empty(t, drain(host))
}

func TestStart_Validation(t *testing.T) {
	s := newTestService(t, newFakeStore(), 0)
	ctx := context.Background()

	_, err := s.StartActivity(ctx, models.StartRequest{Activity: pollActivity("Q1")})
	assert.Error(t, err)

	_, err = s.StartActivity(ctx, models.StartRequest{SessionCode: "ABC123", Activity: models.Activity{Type: models.ActivityPoll}})
	assert.Error(t, err)

	_, err = s.StartActivity(ctx, models.StartRequest{SessionCode: "ABC123", Activity: models.Activity{Id: "x", Type: "bingo"}})
	assert.ErrorIs(t, err, models.ErrUnknownActivityType)
}

func TestActivityTimeout_StopsActivity(t *testing.T) {
	s := newTestService(t, newFakeStore(), 20*time.Millisecond)
	host := joinPresenter(t, s, "ABC123")
	joinParticipant(t, s, "ABC123", "A", "Ada")

	_, err := s.StartActivity(context.Background(), models.StartRequest{SessionCode: "ABC123", Activity: pollActivity("Q1")})
	require.NoError(t, err)
	drain(host)

	var got []models.Event
	require.Eventually(t, func() bool {
		got = append(got, drain(host)...)
		return len(only(got, models.EventActivityStopped)) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, s.Tracker.Len())
}

func TestActivityTimeout_DisarmedByCompletion(t *testing.T) {
	s := newTestService(t, newFakeStore(), 30*time.Millisecond)
	host := joinPresenter(t, s, "ABC123")
	joinParticipant(t, s, "ABC123", "A", "Ada")

	_, err := s.StartActivity(context.Background(), models.StartRequest{SessionCode: "ABC123", Activity: pollActivity("Q1")})
	require.NoError(t, err)
	require.NoError(t, submit(s, "ABC123", "Q1", "A", `"Red"`))
	drain(host)

	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, only(drain(host), models.EventActivityStopped))
}

func TestSubmit_ConcurrentResultsFireOnce(t *testing.T) {
	s := newTestService(t, newFakeStore(), 0)
	host := models.NewClient(4096)
	require.NoError(t, s.Join(context.Background(), host, models.JoinRequest{SessionCode: "ABC123", IsPresenter: true}))

	const n = 40
	for i := 0; i < n; i++ {
		joinParticipant(t, s, "ABC123", fmt.Sprintf("p-%d", i), "")
	}
	_, err := s.StartActivity(context.Background(), models.StartRequest{SessionCode: "ABC123", Activity: pollActivity("Q1")})
	require.NoError(t, err)
	drain(host)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		for rep := 0; rep < 2; rep++ {
			wg.Add(1)
			go func(pid string) {
				defer wg.Done()
				assert.NoError(t, submit(s, "ABC123", "Q1", pid, `"Green"`))
			}(fmt.Sprintf("p-%d", i))
		}
	}
	wg.Wait()

	evs := drain(host)
	assert.Len(t, only(evs, models.EventResultsReady), 1)

	last := 0
	for _, ev := range only(evs, models.EventResponseProgress) {
		p := progressOf(t, ev)
		assert.GreaterOrEqual(t, p.RespondedCount, last, "progress is emitted in processing order")
		assert.LessOrEqual(t, p.RespondedCount, n)
		last = p.RespondedCount
	}
	assert.Equal(t, n, last)
	assert.Equal(t, 0, s.locks.len())
}

func TestHandleMessage_Routing(t *testing.T) {
	s := newTestService(t, newFakeStore(), 0)
	ctx := context.Background()
	c := models.NewClient(16)

	s.HandleMessage(ctx, c, []byte(`{"event":"session:join","data":{"sessionCode":"ABC123","participantId":"p","nickname":"Pat"}}`))
	assert.Equal(t, []string{models.EventParticipantsList, models.EventParticipantsCount}, names(drain(c)))

	s.HandleMessage(ctx, c, []byte(`{not json`))
	errs := drain(c)
	require.Equal(t, []string{models.EventError}, names(errs))

	s.HandleMessage(ctx, c, []byte(`{"event":"session:dance","data":{}}`))
	errs = drain(c)
	require.Equal(t, []string{models.EventError}, names(errs))
	assert.Equal(t, "session:dance", errs[0].Data.(models.ErrorPayload).Event)

	s.HandleMessage(ctx, c, []byte(`{"event":"activity:stop"}`))
	assert.Equal(t, []string{models.EventError}, names(drain(c)))

	start, err := json.Marshal(models.Envelope{
		Name: models.EventActivityStart,
		Data: json.RawMessage(`{"sessionCode":"ABC123","activity":{"id":"Q1","type":"wordcloud","title":"Mood"}}`),
	})
	require.NoError(t, err)
	s.HandleMessage(ctx, c, start)
	assert.Equal(t, []string{models.EventActivityStarted}, names(drain(c)))

	s.HandleMessage(ctx, c, []byte(`{"event":"response:submit","data":{"sessionCode":"ABC123","activityId":"Q1","participantId":"p","answer":["calm"]}}`))
	assert.Equal(t, []string{models.EventResponseProgress, models.EventResultsReady}, names(drain(c)))
}

type scriptedReader struct {
	frames [][]byte
}

func (r *scriptedReader) ReadMessage() (int, []byte, error) {
	if len(r.frames) == 0 {
		return 0, nil, errors.New("closed")
	}
	f := r.frames[0]
	r.frames = r.frames[1:]
	return 1, f, nil
}

func TestLoopMessages_ProcessesUntilReadFails(t *testing.T) {
	s := newTestService(t, newFakeStore(), 0)
	c := models.NewClient(16)
	reader := &scriptedReader{frames: [][]byte{
		[]byte(`{"event":"session:join","data":{"sessionCode":"ABC123","isPresenter":true}}`),
		[]byte(`{"event":"activity:stop","data":{"sessionCode":"ABC123","activityId":"Q9"}}`),
	}}

	s.LoopMessages(context.Background(), reader, c)
	s.Disconnect(c)

	evs := drain(c)
	assert.Contains(t, names(evs), models.EventParticipantsRoster)
	assert.Contains(t, names(evs), models.EventActivityStopped)
	assert.Equal(t, Stats{}, s.Stats())
}
