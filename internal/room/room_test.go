package room

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizhall/jeopardy-server/internal/auth"
	"github.com/quizhall/jeopardy-server/internal/game"
	ws "github.com/quizhall/jeopardy-server/pkg/http/ws"
)

// fakeHub records everything the room pushes at the wire.
type fakeHub struct {
	mu         sync.Mutex
	broadcasts []ws.Message
	sends      map[uuid.UUID][]ws.Message
}

func newFakeHub() *fakeHub {
	return &fakeHub{sends: make(map[uuid.UUID][]ws.Message)}
}

func (h *fakeHub) Broadcast(code string, msg ws.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcasts = append(h.broadcasts, msg)
}

func (h *fakeHub) Send(participantID uuid.UUID, msg ws.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sends[participantID] = append(h.sends[participantID], msg)
	return nil
}

func (h *fakeHub) broadcastTypes() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	types := make([]string, len(h.broadcasts))
	for i, m := range h.broadcasts {
		types[i] = m.Type
	}
	return types
}

func (h *fakeHub) lastBroadcast(t *testing.T, msgType string) ws.Message {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := len(h.broadcasts) - 1; i >= 0; i-- {
		if h.broadcasts[i].Type == msgType {
			return h.broadcasts[i]
		}
	}
	t.Fatalf("no %q broadcast recorded", msgType)
	return ws.Message{}
}

func (h *fakeHub) sentTo(id uuid.UUID) []ws.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]ws.Message(nil), h.sends[id]...)
}

func (h *fakeHub) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcasts = nil
	h.sends = make(map[uuid.UUID][]ws.Message)
}

type fakeSink struct {
	mu      sync.Mutex
	rooms   []string
	results [][]game.FinalResult
	done    chan struct{}
}

func (s *fakeSink) RecordGame(ctx context.Context, roomCode string, results []game.FinalResult) {
	s.mu.Lock()
	s.rooms = append(s.rooms, roomCode)
	s.results = append(s.results, results)
	s.mu.Unlock()
	close(s.done)
}

func newTestRoom(t *testing.T, sinks ...ResultSink) (*Room, *fakeHub, uuid.UUID) {
	t.Helper()
	hub := newFakeHub()
	tokens := auth.NewManager(auth.TokenConfig{Secret: []byte("test-secret")})
	hostID := uuid.New()
	r, err := newRoom("123456", hostID, 3, hub, tokens, sinks, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r, hub, hostID
}

// flush waits until every previously queued intent has been processed.
func flush(t *testing.T, r *Room) {
	t.Helper()
	require.NoError(t, r.call(func() {}))
}

func payload(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func boardJSON(t *testing.T) json.RawMessage {
	t.Helper()
	b, err := game.NewBoard([]string{"Science"}, []int{100, 200})
	require.NoError(t, err)
	require.NoError(t, b.SetQuestion(0, 0, game.Media{Text: "Closest star?"}, "the sun"))
	return payload(t, b)
}

func TestJoinIssuesTokenAndBroadcastsRoster(t *testing.T) {
	r, hub, _ := newTestRoom(t)

	playerID := uuid.New()
	player, token, players, err := r.Join(playerID, "ann")
	require.NoError(t, err)
	assert.Equal(t, playerID, player.ID)
	require.Len(t, players, 1)
	assert.Equal(t, "ann", players[0].Name)

	claims, err := auth.NewManager(auth.TokenConfig{Secret: []byte("test-secret")}).Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "123456", claims.RoomCode)
	assert.Equal(t, playerID, claims.ParticipantID)
	assert.Equal(t, auth.RolePlayer, claims.Role)

	msg := hub.lastBroadcast(t, ws.TypePlayerList)
	var list ws.PlayerListPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &list))
	require.Len(t, list.Players, 1)
	assert.Equal(t, playerID.String(), list.Players[0].ID)
}

type failingIssuer struct{}

func (failingIssuer) Issue(string, uuid.UUID, string, string) (string, error) {
	return "", errors.New("signing failed")
}

func TestJoinTokenFailureLeavesNoGhost(t *testing.T) {
	hub := newFakeHub()
	r, err := newRoom("123456", uuid.New(), 3, hub, failingIssuer{}, nil, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(r.Close)

	_, _, _, err = r.Join(uuid.New(), "ann")
	require.Error(t, err)

	var roster int
	require.NoError(t, r.call(func() { roster = len(r.sess.Players()) }))
	assert.Zero(t, roster)
	assert.Empty(t, hub.broadcastTypes())
}

func TestJoinFullRoom(t *testing.T) {
	r, _, _ := newTestRoom(t)

	for _, name := range []string{"ann", "bob", "cay"} {
		_, _, _, err := r.Join(uuid.New(), name)
		require.NoError(t, err)
	}
	_, _, _, err := r.Join(uuid.New(), "dee")
	assert.ErrorIs(t, err, game.ErrRoomFull)
}

func TestLateJoinerReceivesSnapshot(t *testing.T) {
	r, hub, hostID := newTestRoom(t)
	_, _, _, err := r.Join(uuid.New(), "ann")
	require.NoError(t, err)

	r.Dispatch(hostID, ws.Message{Type: ws.TypeStartRound, Payload: payload(t, ws.StartRoundPayload{Board: boardJSON(t)})})
	flush(t, r)
	hub.reset()

	bob := uuid.New()
	_, _, _, err = r.Join(bob, "bob")
	require.NoError(t, err)
	flush(t, r)

	var snap *ws.RoomSnapshotPayload
	for _, msg := range hub.sentTo(bob) {
		if msg.Type == ws.TypeRoomSnapshot {
			snap = new(ws.RoomSnapshotPayload)
			require.NoError(t, json.Unmarshal(msg.Payload, snap))
		}
	}
	require.NotNil(t, snap, "mid-game joiner should get a room_snapshot")
	assert.Equal(t, "normal", snap.Stage)
	require.NotNil(t, snap.Board)
	assert.NotContains(t, string(snap.Board), "the sun")
}

func TestBoardBroadcastsOmitAnswers(t *testing.T) {
	r, hub, hostID := newTestRoom(t)
	_, _, _, err := r.Join(uuid.New(), "ann")
	require.NoError(t, err)

	r.Dispatch(hostID, ws.Message{Type: ws.TypeStartRound, Payload: payload(t, ws.StartRoundPayload{Board: boardJSON(t)})})
	for row := 0; row < 2; row++ {
		r.Dispatch(hostID, ws.Message{Type: ws.TypeSelectQuestion, Payload: payload(t, ws.SelectQuestionPayload{Row: row})})
		r.Dispatch(hostID, ws.Message{Type: ws.TypeCloseQuestion})
	}
	r.Dispatch(hostID, ws.Message{Type: ws.TypeAdvanceStage, Payload: payload(t, ws.AdvanceStagePayload{Stage: "double", Board: boardJSON(t)})})
	flush(t, r)

	started := hub.lastBroadcast(t, ws.TypeRoundStarted)
	assert.NotContains(t, string(started.Payload), "the sun")
	advanced := hub.lastBroadcast(t, ws.TypeStageAdvanced)
	assert.NotContains(t, string(advanced.Payload), "the sun")
}

func TestNonHostIntentsDropSilently(t *testing.T) {
	r, hub, _ := newTestRoom(t)
	playerID := uuid.New()
	_, _, _, err := r.Join(playerID, "ann")
	require.NoError(t, err)
	hub.reset()

	r.Dispatch(playerID, ws.Message{Type: ws.TypeStartRound})
	flush(t, r)

	// no error reply, no broadcast, no state change
	assert.Empty(t, hub.sentTo(playerID))
	assert.Empty(t, hub.broadcastTypes())
}

func TestValidationErrorsReplyToOriginatorOnly(t *testing.T) {
	r, hub, hostID := newTestRoom(t)

	// advancing out of setup is a validation failure
	r.Dispatch(hostID, ws.Message{
		Type:    ws.TypeAdvanceStage,
		Payload: payload(t, ws.AdvanceStagePayload{Stage: "double"}),
	})
	flush(t, r)

	sent := hub.sentTo(hostID)
	require.Len(t, sent, 1)
	assert.Equal(t, ws.TypeError, sent[0].Type)
	var errPayload ws.ErrorPayload
	require.NoError(t, json.Unmarshal(sent[0].Payload, &errPayload))
	assert.Equal(t, "bad_phase", errPayload.Code)
	assert.Empty(t, hub.broadcastTypes())
}

func TestChatBroadcastsFullLog(t *testing.T) {
	r, hub, _ := newTestRoom(t)
	playerID := uuid.New()
	_, _, _, err := r.Join(playerID, "ann")
	require.NoError(t, err)

	r.Dispatch(playerID, ws.Message{Type: ws.TypeChatMessage, Payload: payload(t, ws.ChatMessagePayload{Sender: "ann", Text: "hello"})})
	r.Dispatch(playerID, ws.Message{Type: ws.TypeChatMessage, Payload: payload(t, ws.ChatMessagePayload{Sender: "ann", Text: "anyone here?"})})
	flush(t, r)

	msg := hub.lastBroadcast(t, ws.TypeChatUpdate)
	var chat ws.ChatUpdatePayload
	require.NoError(t, json.Unmarshal(msg.Payload, &chat))
	require.Len(t, chat.Messages, 2)
	assert.Equal(t, "hello", chat.Messages[0].Text)
	assert.Equal(t, "anyone here?", chat.Messages[1].Text)
}

func TestQuestionFlowWithholdsAnswerUntilReveal(t *testing.T) {
	r, hub, hostID := newTestRoom(t)
	playerID := uuid.New()
	_, _, _, err := r.Join(playerID, "ann")
	require.NoError(t, err)

	r.Dispatch(hostID, ws.Message{Type: ws.TypeStartRound, Payload: payload(t, ws.StartRoundPayload{Board: boardJSON(t)})})
	r.Dispatch(hostID, ws.Message{Type: ws.TypeSelectQuestion, Payload: payload(t, ws.SelectQuestionPayload{CatIndex: 0, Row: 0})})
	flush(t, r)

	opened := hub.lastBroadcast(t, ws.TypeQuestionOpened)
	assert.NotContains(t, string(opened.Payload), "the sun")

	r.Dispatch(hostID, ws.Message{Type: ws.TypeRevealAnswer})
	flush(t, r)

	modal := hub.lastBroadcast(t, ws.TypeQuestionModal)
	assert.Contains(t, string(modal.Payload), "the sun")
}

func TestAllocatePointsBroadcastsSnapshot(t *testing.T) {
	r, hub, hostID := newTestRoom(t)
	playerID := uuid.New()
	_, _, _, err := r.Join(playerID, "ann")
	require.NoError(t, err)

	r.Dispatch(hostID, ws.Message{Type: ws.TypeStartRound, Payload: payload(t, ws.StartRoundPayload{Board: boardJSON(t)})})
	r.Dispatch(hostID, ws.Message{Type: ws.TypeSelectQuestion, Payload: payload(t, ws.SelectQuestionPayload{CatIndex: 0, Row: 0})})
	r.Dispatch(hostID, ws.Message{Type: ws.TypeRevealAnswer})
	r.Dispatch(hostID, ws.Message{Type: ws.TypeAllocatePoints, Payload: payload(t, ws.AllocatePointsPayload{PlayerID: playerID.String(), Delta: 100})})
	flush(t, r)

	msg := hub.lastBroadcast(t, ws.TypeScoreSnapshot)
	var snap ws.ScoreSnapshotPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &snap))
	require.Len(t, snap.Scores, 1)
	assert.Equal(t, "ann", snap.Scores[0].Name)
	assert.Equal(t, 100, snap.Scores[0].Score)
}

func TestBoardStatusGoesToHostOnly(t *testing.T) {
	r, hub, hostID := newTestRoom(t)
	playerID := uuid.New()
	_, _, _, err := r.Join(playerID, "ann")
	require.NoError(t, err)

	r.Dispatch(hostID, ws.Message{Type: ws.TypeStartRound, Payload: payload(t, ws.StartRoundPayload{Board: boardJSON(t)})})
	for row := 0; row < 2; row++ {
		r.Dispatch(hostID, ws.Message{Type: ws.TypeSelectQuestion, Payload: payload(t, ws.SelectQuestionPayload{CatIndex: 0, Row: row})})
		r.Dispatch(hostID, ws.Message{Type: ws.TypeCloseQuestion})
	}
	flush(t, r)

	var complete bool
	for _, msg := range hub.sentTo(hostID) {
		if msg.Type != ws.TypeBoardStatus {
			continue
		}
		var status ws.BoardStatusPayload
		require.NoError(t, json.Unmarshal(msg.Payload, &status))
		complete = status.Complete
	}
	assert.True(t, complete)

	for _, msg := range hub.sentTo(playerID) {
		assert.NotEqual(t, ws.TypeBoardStatus, msg.Type)
	}
}

// playRoomToFinal drives the room through both boards into the final
// phase over the wire.
func playRoomToFinal(t *testing.T, r *Room, hostID uuid.UUID) {
	t.Helper()
	r.Dispatch(hostID, ws.Message{Type: ws.TypeStartRound, Payload: payload(t, ws.StartRoundPayload{Board: boardJSON(t)})})
	for row := 0; row < 2; row++ {
		r.Dispatch(hostID, ws.Message{Type: ws.TypeSelectQuestion, Payload: payload(t, ws.SelectQuestionPayload{Row: row})})
		r.Dispatch(hostID, ws.Message{Type: ws.TypeCloseQuestion})
	}
	r.Dispatch(hostID, ws.Message{Type: ws.TypeAdvanceStage, Payload: payload(t, ws.AdvanceStagePayload{Stage: "double", Board: boardJSON(t)})})
	for row := 0; row < 2; row++ {
		r.Dispatch(hostID, ws.Message{Type: ws.TypeSelectQuestion, Payload: payload(t, ws.SelectQuestionPayload{Row: row})})
		r.Dispatch(hostID, ws.Message{Type: ws.TypeCloseQuestion})
	}
	r.Dispatch(hostID, ws.Message{Type: ws.TypeAdvanceStage, Payload: payload(t, ws.AdvanceStagePayload{Stage: "final"})})
	flush(t, r)
}

func TestFinalRoundOverWire(t *testing.T) {
	sink := &fakeSink{done: make(chan struct{})}
	r, hub, hostID := newTestRoom(t, sink)
	ann := uuid.New()
	bob := uuid.New()
	_, _, _, err := r.Join(ann, "ann")
	require.NoError(t, err)
	_, _, _, err = r.Join(bob, "bob")
	require.NoError(t, err)

	playRoomToFinal(t, r, hostID)
	hub.reset()

	r.Dispatch(hostID, ws.Message{Type: ws.TypeRevealCategory, Payload: payload(t, ws.RevealCategoryPayload{Category: "Astronomy"})})
	flush(t, r)
	cat := hub.lastBroadcast(t, ws.TypeFinalCategory)
	assert.Contains(t, string(cat.Payload), "Astronomy")

	// wager progress broadcasts track completeness
	r.Dispatch(ann, ws.Message{Type: ws.TypeSubmitFinalWager, Payload: payload(t, ws.SubmitFinalWagerPayload{Wager: 0})})
	flush(t, r)
	var wagersMsg ws.FinalWagersPayload
	require.NoError(t, json.Unmarshal(hub.lastBroadcast(t, ws.TypeFinalWagers).Payload, &wagersMsg))
	assert.False(t, wagersMsg.Complete)

	r.Dispatch(bob, ws.Message{Type: ws.TypeSubmitFinalWager, Payload: payload(t, ws.SubmitFinalWagerPayload{Wager: 0})})
	flush(t, r)
	require.NoError(t, json.Unmarshal(hub.lastBroadcast(t, ws.TypeFinalWagers).Payload, &wagersMsg))
	assert.True(t, wagersMsg.Complete)

	fq := payload(t, game.FinalQuestion{Content: game.Media{Text: "Closest star?"}, Answer: "the sun"})
	r.Dispatch(hostID, ws.Message{Type: ws.TypeStartFinalRound, Payload: payload(t, ws.StartFinalRoundPayload{Question: fq})})
	flush(t, r)

	// the final question broadcast never carries the answer
	started := hub.lastBroadcast(t, ws.TypeFinalRoundStarted)
	assert.NotContains(t, string(started.Payload), "the sun")

	r.Dispatch(ann, ws.Message{Type: ws.TypeSubmitFinalAnswer, Payload: payload(t, ws.SubmitFinalAnswerPayload{Answer: "the sun"})})
	r.Dispatch(bob, ws.Message{Type: ws.TypeSubmitFinalAnswer, Payload: payload(t, ws.SubmitFinalAnswerPayload{Answer: "proxima"})})
	flush(t, r)

	var answers ws.FinalAnswersPayload
	require.NoError(t, json.Unmarshal(hub.lastBroadcast(t, ws.TypeFinalAnswers).Payload, &answers))
	assert.True(t, answers.Complete)

	r.Dispatch(hostID, ws.Message{
		Type:    ws.TypeRevealFinalResults,
		Payload: payload(t, ws.RevealFinalResultsPayload{Verdicts: map[string]bool{ann.String(): true}}),
	})
	flush(t, r)

	results := hub.lastBroadcast(t, ws.TypeFinalResults)
	assert.Contains(t, string(results.Payload), "the sun")
	assert.Contains(t, string(results.Payload), "ann")

	select {
	case <-sink.done:
	case <-time.After(2 * time.Second):
		t.Fatal("sink never received the finished game")
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.rooms, 1)
	assert.Equal(t, "123456", sink.rooms[0])
	require.Len(t, sink.results[0], 2)
}

func TestResumeReplaysSnapshot(t *testing.T) {
	r, hub, hostID := newTestRoom(t)
	ann := uuid.New()
	_, token, _, err := r.Join(ann, "ann")
	require.NoError(t, err)

	r.Dispatch(hostID, ws.Message{Type: ws.TypeStartRound, Payload: payload(t, ws.StartRoundPayload{Board: boardJSON(t)})})
	flush(t, r)

	r.ParticipantGone(ann)
	hub.reset()

	tokens := auth.NewManager(auth.TokenConfig{Secret: []byte("test-secret")})
	claims, err := tokens.Validate(token)
	require.NoError(t, err)
	require.NoError(t, r.Resume(claims))

	sent := hub.sentTo(ann)
	require.NotEmpty(t, sent)
	assert.Equal(t, ws.TypeRoomSnapshot, sent[0].Type)

	var snap ws.RoomSnapshotPayload
	require.NoError(t, json.Unmarshal(sent[0].Payload, &snap))
	assert.Equal(t, "123456", snap.Code)
	assert.Equal(t, "normal", snap.Stage)
	require.Len(t, snap.Players, 1)
	require.Len(t, snap.Scores, 1)
	assert.Equal(t, 0, snap.Scores[0].Score)
}

func TestPlayerDropDuringWagersUnblocksStage(t *testing.T) {
	r, hub, hostID := newTestRoom(t)
	ann := uuid.New()
	bob := uuid.New()
	_, _, _, err := r.Join(ann, "ann")
	require.NoError(t, err)
	_, _, _, err = r.Join(bob, "bob")
	require.NoError(t, err)

	playRoomToFinal(t, r, hostID)
	r.Dispatch(hostID, ws.Message{Type: ws.TypeRevealCategory, Payload: payload(t, ws.RevealCategoryPayload{Category: "Astronomy"})})
	r.Dispatch(ann, ws.Message{Type: ws.TypeSubmitFinalWager, Payload: payload(t, ws.SubmitFinalWagerPayload{Wager: 0})})
	flush(t, r)

	var wagers ws.FinalWagersPayload
	require.NoError(t, json.Unmarshal(hub.lastBroadcast(t, ws.TypeFinalWagers).Payload, &wagers))
	assert.False(t, wagers.Complete)

	r.ParticipantGone(bob)

	require.NoError(t, json.Unmarshal(hub.lastBroadcast(t, ws.TypeFinalWagers).Payload, &wagers))
	assert.True(t, wagers.Complete)
}

func TestHostDropStallsWithoutRosterChange(t *testing.T) {
	r, hub, hostID := newTestRoom(t)
	ann := uuid.New()
	_, _, _, err := r.Join(ann, "ann")
	require.NoError(t, err)
	hub.reset()

	r.ParticipantGone(hostID)
	flush(t, r)

	// no roster broadcast: the host was never a player
	assert.Empty(t, hub.broadcastTypes())
	assert.Equal(t, 1, r.ConnectedCount())
}
