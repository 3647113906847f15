package room

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quizhall/jeopardy-server/internal/auth"
	"github.com/quizhall/jeopardy-server/internal/game"
	"github.com/quizhall/jeopardy-server/internal/metrics"
	httperrors "github.com/quizhall/jeopardy-server/pkg/http/errors"
	ws "github.com/quizhall/jeopardy-server/pkg/http/ws"
)

// Broadcaster is the slice of the hub the room needs: fan-out to the
// room and targeted sends. *ws.Hub satisfies it; tests substitute a
// recorder.
type Broadcaster interface {
	Broadcast(code string, msg ws.Message)
	Send(participantID uuid.UUID, msg ws.Message) error
}

// TokenIssuer mints resume tokens for joined participants.
// *auth.Manager satisfies it.
type TokenIssuer interface {
	Issue(roomCode string, participantID uuid.UUID, name, role string) (string, error)
}

// ResultSink receives the final leaderboard of a finished game.
// Implementations (archive, hall of fame) run off the actor goroutine.
type ResultSink interface {
	RecordGame(ctx context.Context, roomCode string, results []game.FinalResult)
}

// Room owns one session and serializes every intent through a single
// goroutine, which is what gives the session its one writer and every
// participant the same broadcast order. Nothing outside the loop
// touches the session.
type Room struct {
	code   string
	sess   *game.Session
	hub    Broadcaster
	tokens TokenIssuer
	sinks  []ResultSink
	logger zerolog.Logger

	inbox     chan func()
	done      chan struct{}
	closeOnce sync.Once

	lastActive atomic.Int64

	// connected is actor-owned: participants (host included) with a
	// live socket.
	connected map[uuid.UUID]bool
}

func newRoom(code string, hostID uuid.UUID, capacity int, hub Broadcaster, tokens TokenIssuer, sinks []ResultSink, logger zerolog.Logger) (*Room, error) {
	sess, err := game.NewSession(code, hostID, capacity)
	if err != nil {
		return nil, err
	}
	r := &Room{
		code:      code,
		sess:      sess,
		hub:       hub,
		tokens:    tokens,
		sinks:     sinks,
		logger:    logger.With().Str("room", code).Logger(),
		inbox:     make(chan func(), 128),
		done:      make(chan struct{}),
		connected: map[uuid.UUID]bool{hostID: true},
	}
	r.touch()
	go r.run()
	return r, nil
}

func (r *Room) run() {
	for {
		select {
		case <-r.done:
			return
		case fn := <-r.inbox:
			fn()
		}
	}
}

// Close stops the actor loop. Intents arriving afterwards are dropped.
func (r *Room) Close() {
	r.closeOnce.Do(func() { close(r.done) })
}

func (r *Room) touch() {
	r.lastActive.Store(time.Now().UnixNano())
}

// LastActive returns the time of the last processed intent.
func (r *Room) LastActive() time.Time {
	return time.Unix(0, r.lastActive.Load())
}

// Code returns the room code.
func (r *Room) Code() string {
	return r.code
}

// call runs fn on the actor goroutine and waits for it.
func (r *Room) call(fn func()) error {
	ran := make(chan struct{})
	select {
	case r.inbox <- func() { fn(); close(ran) }:
	case <-r.done:
		return errors.New("room closed")
	}
	select {
	case <-ran:
		return nil
	case <-r.done:
		return errors.New("room closed")
	}
}

// Dispatch queues an intent from a bound participant. The inbox is
// bounded; a full room drops the intent rather than blocking the
// reader.
func (r *Room) Dispatch(actorID uuid.UUID, msg ws.Message) {
	select {
	case r.inbox <- func() { r.handle(actorID, msg) }:
	case <-r.done:
	default:
		r.logger.Warn().Str("type", msg.Type).Msg("inbox full, intent dropped")
	}
}

// Join adds a player under the given connection-scoped id and returns
// their identity, a resume token, and the resulting player list for
// the join reply.
func (r *Room) Join(playerID uuid.UUID, name string) (player *game.Player, token string, players []ws.PlayerInfo, err error) {
	callErr := r.call(func() {
		// Mint the token before touching the session: a failed issue
		// must not leave a roster entry with no way to resume it.
		token, err = r.tokens.Issue(r.code, playerID, name, auth.RolePlayer)
		if err != nil {
			return
		}
		player, err = r.sess.Join(playerID, name)
		if err != nil {
			return
		}
		r.connected[player.ID] = true
		players = playerInfos(r.sess.Players())
		r.broadcastPlayerList()
		if r.sess.Phase != game.PhaseSetup {
			r.broadcastScores()
			// a late joiner needs the board and round state too
			r.sendSnapshot(player.ID)
		}
	})
	if callErr != nil {
		return nil, "", nil, callErr
	}
	return player, token, players, err
}

// Resume restores a token-carrying participant after a reconnect and
// replays the full state to them. Rejoining during a final-round
// collection stage changes the completion denominators, so those are
// re-broadcast.
func (r *Room) Resume(claims *auth.Claims) (err error) {
	callErr := r.call(func() {
		if claims.Role == auth.RoleHost {
			if claims.ParticipantID != r.sess.HostID {
				err = auth.ErrInvalidToken
				return
			}
		} else {
			if _, rejoinErr := r.sess.Rejoin(claims.ParticipantID, claims.Name); rejoinErr != nil {
				err = rejoinErr
				return
			}
		}
		r.connected[claims.ParticipantID] = true
		r.sendSnapshot(claims.ParticipantID)
		r.broadcastPlayerList()
		if r.sess.Phase == game.PhaseFinal && claims.Role == auth.RolePlayer {
			r.broadcastFinalProgress()
		}
	})
	if callErr != nil {
		return callErr
	}
	return err
}

// HostID returns the privileged participant's id.
func (r *Room) HostID() uuid.UUID {
	return r.sess.HostID
}

// ParticipantGone records a dropped connection. Players leave the
// session; the host's departure just stalls the game until they
// resume. Dropping a pending player mid-collection can flip a
// completion predicate to true, so final progress is re-broadcast.
func (r *Room) ParticipantGone(participantID uuid.UUID) {
	r.call(func() {
		delete(r.connected, participantID)
		if participantID == r.sess.HostID {
			r.logger.Info().Msg("host disconnected, game stalled until resume")
			return
		}
		r.sess.Leave(participantID)
		r.broadcastPlayerList()
		if r.sess.Phase == game.PhaseFinal && r.sess.Final != nil && !r.sess.Final.Resolved() {
			r.broadcastFinalProgress()
		}
	})
}

// ConnectedCount reports live connections, host included.
func (r *Room) ConnectedCount() (n int) {
	r.call(func() { n = len(r.connected) })
	return n
}

// handle applies one intent. Validation failures are reported to the
// originator only; permission failures (non-host host-actions,
// duplicate submissions) are dropped silently; either way no state
// changes and nothing is broadcast.
func (r *Room) handle(actorID uuid.UUID, msg ws.Message) {
	r.touch()
	metrics.IntentsTotal.WithLabelValues(msg.Type).Inc()

	var err error
	switch msg.Type {
	case ws.TypeUpdateCapacity:
		err = r.handleUpdateCapacity(actorID, msg.Payload)
	case ws.TypeChatMessage:
		err = r.handleChat(msg.Payload)
	case ws.TypeSetBoard:
		err = r.handleSetBoard(actorID, msg.Payload)
	case ws.TypeStartRound:
		err = r.handleStartRound(actorID, msg.Payload)
	case ws.TypeSelectQuestion:
		err = r.handleSelectQuestion(actorID, msg.Payload)
	case ws.TypeRevealAnswer:
		err = r.handleRevealAnswer(actorID)
	case ws.TypeAllocatePoints:
		err = r.handleAllocatePoints(actorID, msg.Payload)
	case ws.TypeCloseQuestion:
		err = r.handleCloseQuestion(actorID)
	case ws.TypeAdvanceStage:
		err = r.handleAdvanceStage(actorID, msg.Payload)
	case ws.TypeRevealCategory:
		err = r.handleRevealCategory(actorID, msg.Payload)
	case ws.TypeStartFinalRound:
		err = r.handleStartFinalRound(actorID, msg.Payload)
	case ws.TypeSubmitFinalWager:
		err = r.handleSubmitFinalWager(actorID, msg.Payload)
	case ws.TypeSubmitFinalAnswer:
		err = r.handleSubmitFinalAnswer(actorID, msg.Payload)
	case ws.TypeRevealFinalResults:
		err = r.handleRevealFinalResults(actorID, msg.Payload)
	default:
		r.replyError(actorID, httperrors.ErrCodeUnknownMessageType, "unknown message type: "+msg.Type)
		return
	}
	if err != nil {
		r.reject(actorID, err)
	}
}

func (r *Room) handleUpdateCapacity(actorID uuid.UUID, payload json.RawMessage) error {
	var req ws.UpdateCapacityPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return errBadPayload
	}
	return r.sess.SetCapacity(actorID, req.Capacity)
}

func (r *Room) handleChat(payload json.RawMessage) error {
	var req ws.ChatMessagePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return errBadPayload
	}
	if req.Text == "" {
		return nil
	}
	log := r.sess.AppendChat(req.Sender, req.Text)
	r.broadcast(ws.NewMessage(ws.TypeChatUpdate, ws.ChatUpdatePayload{Messages: chatEntries(log)}))
	return nil
}

func (r *Room) handleSetBoard(actorID uuid.UUID, payload json.RawMessage) error {
	var req ws.SetBoardPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return errBadPayload
	}
	board, err := decodeBoard(req.Board)
	if err != nil {
		return err
	}
	return r.sess.SetBoard(actorID, game.RoundKind(req.Kind), board)
}

func (r *Room) handleStartRound(actorID uuid.UUID, payload json.RawMessage) error {
	var req ws.StartRoundPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			return errBadPayload
		}
	}
	var board *game.Board
	if len(req.Board) > 0 {
		var err error
		if board, err = decodeBoard(req.Board); err != nil {
			return err
		}
	}
	if err := r.sess.StartGame(actorID, board); err != nil {
		return err
	}
	r.broadcast(ws.NewMessage(ws.TypeRoundStarted, ws.RoundStartedPayload{
		Stage:  string(game.PhaseNormal),
		Board:  boardView(r.sess.Playable()),
		Scores: r.scoreEntries(r.sess.Ledger.Snapshot()),
	}))
	r.sendBoardStatus()
	return nil
}

func (r *Room) handleSelectQuestion(actorID uuid.UUID, payload json.RawMessage) error {
	var req ws.SelectQuestionPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return errBadPayload
	}
	active, err := r.sess.SelectQuestion(actorID, req.CatIndex, req.Row)
	if err != nil {
		return err
	}
	r.broadcast(ws.NewMessage(ws.TypeCellMarked, ws.CellMarkedPayload{
		CatIndex: req.CatIndex,
		Row:      req.Row,
	}))
	r.broadcast(ws.NewMessage(ws.TypeQuestionOpened, ws.QuestionOpenedPayload{
		CatIndex: req.CatIndex,
		Row:      req.Row,
		Question: activeView(active, false),
		Revealed: false,
	}))
	return nil
}

func (r *Room) handleRevealAnswer(actorID uuid.UUID) error {
	if err := r.sess.RevealAnswer(actorID); err != nil {
		return err
	}
	r.broadcast(ws.NewMessage(ws.TypeQuestionModal, ws.QuestionModalPayload{
		Question: activeView(r.sess.Active, true),
	}))
	return nil
}

func (r *Room) handleAllocatePoints(actorID uuid.UUID, payload json.RawMessage) error {
	var req ws.AllocatePointsPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return errBadPayload
	}
	playerID, err := uuid.Parse(req.PlayerID)
	if err != nil {
		return errBadPayload
	}
	snapshot, err := r.sess.AllocatePoints(actorID, playerID, req.Delta)
	if err != nil {
		return err
	}
	r.broadcast(ws.NewMessage(ws.TypeScoreSnapshot, ws.ScoreSnapshotPayload{
		Scores: r.scoreEntries(snapshot),
	}))
	return nil
}

func (r *Room) handleCloseQuestion(actorID uuid.UUID) error {
	if err := r.sess.CloseQuestion(actorID); err != nil {
		return err
	}
	r.broadcast(ws.NewMessage(ws.TypeQuestionModal, ws.QuestionModalPayload{Question: nil}))
	r.sendBoardStatus()
	return nil
}

func (r *Room) handleAdvanceStage(actorID uuid.UUID, payload json.RawMessage) error {
	var req ws.AdvanceStagePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return errBadPayload
	}
	var board *game.Board
	if len(req.Board) > 0 {
		var err error
		if board, err = decodeBoard(req.Board); err != nil {
			return err
		}
	}
	next := game.Phase(req.Stage)
	if err := r.sess.Advance(actorID, next, board); err != nil {
		return err
	}
	out := ws.StageAdvancedPayload{Stage: string(next)}
	if pb := r.sess.Playable(); pb != nil {
		out.Board = boardView(pb)
	}
	r.broadcast(ws.NewMessage(ws.TypeStageAdvanced, out))
	if next == game.PhaseDouble {
		r.sendBoardStatus()
	}
	return nil
}

func (r *Room) handleRevealCategory(actorID uuid.UUID, payload json.RawMessage) error {
	var req ws.RevealCategoryPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return errBadPayload
	}
	if err := r.sess.RevealFinalCategory(actorID, req.Category); err != nil {
		return err
	}
	r.broadcast(ws.NewMessage(ws.TypeFinalCategory, ws.FinalCategoryPayload{Category: req.Category}))
	r.broadcastFinalProgress()
	return nil
}

func (r *Room) handleStartFinalRound(actorID uuid.UUID, payload json.RawMessage) error {
	var req ws.StartFinalRoundPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return errBadPayload
	}
	var q game.FinalQuestion
	if err := json.Unmarshal(req.Question, &q); err != nil {
		return errBadPayload
	}
	if err := r.sess.StartFinalRound(actorID, q); err != nil {
		return err
	}
	r.broadcast(ws.NewMessage(ws.TypeFinalRoundStarted, ws.FinalRoundStartedPayload{
		Question: finalQuestionView(r.sess.Final.Question),
	}))
	return nil
}

func (r *Room) handleSubmitFinalWager(actorID uuid.UUID, payload json.RawMessage) error {
	var req ws.SubmitFinalWagerPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return errBadPayload
	}
	if err := r.sess.SubmitFinalWager(actorID, req.Wager); err != nil {
		return err
	}
	r.broadcastFinalProgress()
	return nil
}

func (r *Room) handleSubmitFinalAnswer(actorID uuid.UUID, payload json.RawMessage) error {
	var req ws.SubmitFinalAnswerPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return errBadPayload
	}
	if err := r.sess.SubmitFinalAnswer(actorID, req.Answer); err != nil {
		return err
	}
	r.broadcast(ws.NewMessage(ws.TypeFinalAnswers, ws.FinalAnswersPayload{
		Complete: r.sess.Final.AnswersComplete(r.sess.PlayerIDs()),
	}))
	return nil
}

func (r *Room) handleRevealFinalResults(actorID uuid.UUID, payload json.RawMessage) error {
	var req ws.RevealFinalResultsPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			return errBadPayload
		}
	}
	verdicts := make(map[uuid.UUID]bool, len(req.Verdicts))
	for raw, correct := range req.Verdicts {
		id, err := uuid.Parse(raw)
		if err != nil {
			return errBadPayload
		}
		verdicts[id] = correct
	}
	results, err := r.sess.RevealFinalResults(actorID, verdicts)
	if err != nil {
		return err
	}
	r.broadcast(ws.NewMessage(ws.TypeFinalResults, ws.FinalResultsPayload{
		Answer:  r.sess.Final.Question.Answer,
		Results: mustJSON(results),
	}))
	metrics.GamesFinished.Inc()
	r.recordResults(results)
	return nil
}

// recordResults hands the finished game to the sinks without holding
// up the actor loop.
func (r *Room) recordResults(results []game.FinalResult) {
	if len(r.sinks) == 0 {
		return
	}
	copied := append([]game.FinalResult(nil), results...)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, sink := range r.sinks {
			sink.RecordGame(ctx, r.code, copied)
		}
	}()
}

// broadcastFinalProgress pushes the wager map and both completion
// predicates, recomputed against the currently connected players.
func (r *Room) broadcastFinalProgress() {
	f := r.sess.Final
	if f == nil {
		return
	}
	connected := r.sess.PlayerIDs()
	wagers := make(map[string]int)
	for id, w := range f.Wagers() {
		wagers[id.String()] = w
	}
	r.broadcast(ws.NewMessage(ws.TypeFinalWagers, ws.FinalWagersPayload{
		Wagers:   wagers,
		Complete: f.WagersComplete(connected),
	}))
	if f.QuestionShown {
		r.broadcast(ws.NewMessage(ws.TypeFinalAnswers, ws.FinalAnswersPayload{
			Complete: f.AnswersComplete(connected),
		}))
	}
}

func (r *Room) broadcastPlayerList() {
	r.broadcast(ws.NewMessage(ws.TypePlayerList, ws.PlayerListPayload{
		Players: playerInfos(r.sess.Players()),
	}))
}

func (r *Room) broadcastScores() {
	r.broadcast(ws.NewMessage(ws.TypeScoreSnapshot, ws.ScoreSnapshotPayload{
		Scores: r.scoreEntries(r.sess.Ledger.Snapshot()),
	}))
}

// sendBoardStatus delivers the advance affordance to the host.
func (r *Room) sendBoardStatus() {
	msg := ws.NewMessage(ws.TypeBoardStatus, ws.BoardStatusPayload{Complete: r.sess.BoardComplete()})
	if err := r.hub.Send(r.sess.HostID, msg); err != nil {
		r.logger.Debug().Err(err).Msg("board status not delivered")
	}
}

// sendSnapshot replays the entire room state to one participant.
func (r *Room) sendSnapshot(participantID uuid.UUID) {
	snap := ws.RoomSnapshotPayload{
		Code:     r.code,
		Stage:    string(r.sess.Phase),
		Players:  playerInfos(r.sess.Players()),
		Scores:   r.scoreEntries(r.sess.Ledger.Snapshot()),
		Messages: chatEntries(r.sess.Chat()),
	}
	if pb := r.sess.Playable(); pb != nil {
		snap.Board = boardView(pb)
	}
	if r.sess.Active != nil {
		snap.Active = activeView(r.sess.Active, r.sess.Active.Revealed)
	}
	if r.sess.Final != nil {
		snap.Final = finalStateView(r.sess)
	}
	if err := r.hub.Send(participantID, ws.NewMessage(ws.TypeRoomSnapshot, snap)); err != nil {
		r.logger.Warn().Err(err).Msg("snapshot not delivered")
	}
}

func (r *Room) broadcast(msg ws.Message) {
	r.hub.Broadcast(r.code, msg)
}

func (r *Room) scoreEntries(snapshot map[uuid.UUID]int) []ws.ScoreEntry {
	names := r.sess.PlayerNames()
	entries := make([]ws.ScoreEntry, 0, len(snapshot))
	// Connected players first, in join order, so clients render a
	// stable scoreboard; departed players follow.
	seen := make(map[uuid.UUID]bool, len(snapshot))
	for _, p := range r.sess.Players() {
		if score, ok := snapshot[p.ID]; ok {
			entries = append(entries, ws.ScoreEntry{PlayerID: p.ID.String(), Name: p.Name, Score: score})
			seen[p.ID] = true
		}
	}
	for id, score := range snapshot {
		if !seen[id] {
			entries = append(entries, ws.ScoreEntry{PlayerID: id.String(), Name: names[id], Score: score})
		}
	}
	return entries
}

// reject reports a failed intent to its originator. Permission
// failures are dropped without a reply: callers must not assume an
// error surfaces, only that no effect occurred.
func (r *Room) reject(actorID uuid.UUID, err error) {
	code, silent := errorCode(err)
	metrics.IntentRejections.WithLabelValues(code).Inc()
	if silent {
		r.logger.Debug().Err(err).Str("actor", actorID.String()).Msg("intent dropped")
		return
	}
	r.replyError(actorID, code, err.Error())
}

func (r *Room) replyError(actorID uuid.UUID, code, message string) {
	msg := ws.NewMessage(ws.TypeError, ws.ErrorPayload{Code: code, Message: message})
	if err := r.hub.Send(actorID, msg); err != nil {
		r.logger.Debug().Err(err).Msg("error reply not delivered")
	}
}

var errBadPayload = errors.New("malformed payload")

// errorCode maps domain errors to wire codes and decides which are
// silently dropped.
func errorCode(err error) (code string, silent bool) {
	switch {
	case errors.Is(err, game.ErrNotHost):
		return httperrors.ErrCodeValidationFailed, true
	case errors.Is(err, game.ErrDuplicateSubmission):
		return httperrors.ErrCodeDuplicateSubmit, true
	case errors.Is(err, errBadPayload):
		return httperrors.ErrCodeInvalidPayload, false
	case errors.Is(err, game.ErrRoomFull):
		return httperrors.ErrCodeRoomFull, false
	case errors.Is(err, game.ErrEmptyName):
		return httperrors.ErrCodeEmptyName, false
	case errors.Is(err, game.ErrBadCapacity):
		return httperrors.ErrCodeBadCapacity, false
	case errors.Is(err, game.ErrBadPhase), errors.Is(err, game.ErrBadRound):
		return httperrors.ErrCodeBadPhase, false
	case errors.Is(err, game.ErrAlreadyAsked):
		return httperrors.ErrCodeQuestionAsked, false
	case errors.Is(err, game.ErrQuestionOpen):
		return httperrors.ErrCodeQuestionOpen, false
	case errors.Is(err, game.ErrNoActiveQuestion), errors.Is(err, game.ErrAnswerHidden):
		return httperrors.ErrCodeNoQuestionOpen, false
	case errors.Is(err, game.ErrBadDelta):
		return httperrors.ErrCodeBadDelta, false
	case errors.Is(err, game.ErrUnknownPlayer):
		return httperrors.ErrCodeUnknownPlayer, false
	case errors.Is(err, game.ErrBoardIncomplete):
		return httperrors.ErrCodeBoardIncomplete, false
	case errors.Is(err, game.ErrEmptyBoard), errors.Is(err, game.ErrRaggedBoard), errors.Is(err, game.ErrBadPointValue), errors.Is(err, game.ErrEmptyCategory):
		return httperrors.ErrCodeBoardInvalid, false
	case errors.Is(err, game.ErrWagerOutOfRange):
		return httperrors.ErrCodeWagerOutOfRange, false
	case errors.Is(err, game.ErrWagersOpen), errors.Is(err, game.ErrAnswersOpen), errors.Is(err, game.ErrCategoryHidden), errors.Is(err, game.ErrQuestionHidden), errors.Is(err, game.ErrQuestionShown):
		return httperrors.ErrCodeCollectionOpen, false
	case errors.Is(err, game.ErrNoFinalRound):
		return httperrors.ErrCodeFinalNotStarted, false
	case errors.Is(err, game.ErrFinalClosed):
		return httperrors.ErrCodeFinalResolved, false
	default:
		return httperrors.ErrCodeInternalError, false
	}
}

// View builders. These shape what goes on the wire; notably the answer
// text stays server-side until the host reveals it.

type boardCellWire struct {
	Points  int        `json:"points"`
	Asked   bool       `json:"asked"`
	Content game.Media `json:"content"`
}

type boardColumnWire struct {
	Name      string          `json:"category"`
	Questions []boardCellWire `json:"questions"`
}

type boardWire struct {
	Categories []boardColumnWire `json:"categories"`
	Points     []int             `json:"points"`
}

// boardView serializes a board for broadcast with every answer
// stripped. Answers only travel in the reveal modal.
func boardView(b *game.Board) json.RawMessage {
	v := boardWire{Points: b.Points}
	v.Categories = make([]boardColumnWire, len(b.Categories))
	for i, cat := range b.Categories {
		col := boardColumnWire{Name: cat.Name, Questions: make([]boardCellWire, len(cat.Questions))}
		for j, q := range cat.Questions {
			col.Questions[j] = boardCellWire{Points: q.Points, Asked: q.Asked, Content: q.Content}
		}
		v.Categories[i] = col
	}
	return mustJSON(v)
}

type questionView struct {
	Points   int        `json:"points"`
	Content  game.Media `json:"content"`
	Revealed bool       `json:"revealed"`
	Answer   string     `json:"answer,omitempty"`
}

func activeView(aq *game.ActiveQuestion, includeAnswer bool) json.RawMessage {
	v := questionView{
		Points:   aq.Question.Points,
		Content:  aq.Question.Content,
		Revealed: aq.Revealed,
	}
	if includeAnswer {
		v.Answer = aq.Question.Answer
	}
	return mustJSON(v)
}

type finalQuestionWire struct {
	Category string     `json:"category"`
	Content  game.Media `json:"content"`
}

func finalQuestionView(q game.FinalQuestion) json.RawMessage {
	return mustJSON(finalQuestionWire{Category: q.Category, Content: q.Content})
}

type finalStateWire struct {
	Category      string          `json:"category,omitempty"`
	CategoryShown bool            `json:"category_shown"`
	QuestionShown bool            `json:"question_shown"`
	Question      json.RawMessage `json:"question,omitempty"`
	Wagers        map[string]int  `json:"wagers"`
	Results       json.RawMessage `json:"results,omitempty"`
}

func finalStateView(sess *game.Session) json.RawMessage {
	f := sess.Final
	wagers := make(map[string]int)
	for id, w := range f.Wagers() {
		wagers[id.String()] = w
	}
	v := finalStateWire{
		CategoryShown: f.CategoryShown,
		QuestionShown: f.QuestionShown,
		Wagers:        wagers,
	}
	if f.CategoryShown {
		v.Category = f.Question.Category
	}
	if f.QuestionShown {
		v.Question = finalQuestionView(f.Question)
	}
	if f.Resolved() {
		v.Results = mustJSON(f.Results())
	}
	return mustJSON(v)
}

func playerInfos(players []*game.Player) []ws.PlayerInfo {
	infos := make([]ws.PlayerInfo, len(players))
	for i, p := range players {
		infos[i] = ws.PlayerInfo{ID: p.ID.String(), Name: p.Name}
	}
	return infos
}

func chatEntries(log []game.ChatMessage) []ws.ChatEntry {
	entries := make([]ws.ChatEntry, len(log))
	for i, m := range log {
		entries[i] = ws.ChatEntry{Sender: m.Sender, Text: m.Text, SentAt: m.SentAt.Format(time.RFC3339)}
	}
	return entries
}

func decodeBoard(raw json.RawMessage) (*game.Board, error) {
	var b game.Board
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, errBadPayload
	}
	if len(b.Points) == 0 && len(b.Categories) > 0 {
		for _, q := range b.Categories[0].Questions {
			b.Points = append(b.Points, q.Points)
		}
	}
	return &b, nil
}

func mustJSON(v any) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}
