package game

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Phase is the global game stage. Transitions are host-initiated and
// strictly forward.
type Phase string

const (
	PhaseSetup   Phase = "setup"
	PhaseNormal  Phase = "normal"
	PhaseDouble  Phase = "double"
	PhaseFinal   Phase = "final"
	PhaseResults Phase = "results"
)

// RoundKind names the two playable boards.
type RoundKind string

const (
	RoundNormal RoundKind = "normal"
	RoundDouble RoundKind = "double"
)

var (
	ErrNotHost          = errors.New("host-only action")
	ErrRoomFull         = errors.New("room full")
	ErrEmptyName        = errors.New("name must not be empty")
	ErrBadCapacity      = errors.New("capacity must be between 2 and 10")
	ErrBadPhase         = errors.New("action not allowed in current phase")
	ErrAlreadyAsked     = errors.New("question already asked")
	ErrQuestionOpen     = errors.New("a question is already open")
	ErrNoActiveQuestion = errors.New("no question open")
	ErrAnswerHidden     = errors.New("answer not revealed")
	ErrBoardIncomplete  = errors.New("board not complete")
	ErrBadDelta         = errors.New("delta must match question value")
	ErrBadRound         = errors.New("unknown round kind")
	ErrNoFinalRound     = errors.New("final round not started")
)

const (
	MinCapacity = 2
	MaxCapacity = 10
)

// Player is a non-host participant. The host is not a Player: they
// author content and drive transitions but never hold a score.
type Player struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// ActiveQuestion is the transient currently-open question. At most one
// exists per session; nil means no question is under discussion.
type ActiveQuestion struct {
	CatIndex int      `json:"cat_index"`
	Row      int      `json:"row"`
	Question Question `json:"question"`
	Revealed bool     `json:"revealed"`
}

// ChatMessage is one line of room chat.
type ChatMessage struct {
	Sender string    `json:"sender"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sent_at"`
}

// Session is the authoritative state of one room. It is a plain state
// machine with no internal locking: the room actor owns it and applies
// every intent sequentially, which is what gives each room its single
// total order of state changes.
type Session struct {
	Code     string
	HostID   uuid.UUID
	Capacity int
	Phase    Phase

	players []*Player
	// names remembers every identity ever joined, so snapshots and
	// final results can label players who have since disconnected.
	names map[uuid.UUID]string

	NormalBoard *Board // authoring copies, editable during setup
	DoubleBoard *Board
	playable    *Board // in-play copy of the current round's board

	Active *ActiveQuestion
	Final  *FinalRound
	Ledger *Ledger

	chat []ChatMessage
}

// NewSession creates a setup-phase session with the stock boards.
func NewSession(code string, hostID uuid.UUID, capacity int) (*Session, error) {
	if capacity < MinCapacity || capacity > MaxCapacity {
		return nil, ErrBadCapacity
	}
	return &Session{
		Code:        code,
		HostID:      hostID,
		Capacity:    capacity,
		Phase:       PhaseSetup,
		NormalBoard: DefaultBoard(),
		DoubleBoard: DefaultDoubleBoard(),
		Ledger:      NewLedger(),
		names:       make(map[uuid.UUID]string),
	}, nil
}

func (s *Session) requireHost(callerID uuid.UUID) error {
	if callerID != s.HostID {
		return ErrNotHost
	}
	return nil
}

// SetCapacity adjusts the player limit during setup; it cannot drop
// below the current player count.
func (s *Session) SetCapacity(callerID uuid.UUID, capacity int) error {
	if err := s.requireHost(callerID); err != nil {
		return err
	}
	if s.Phase != PhaseSetup {
		return ErrBadPhase
	}
	if capacity < MinCapacity || capacity > MaxCapacity || capacity < len(s.players) {
		return ErrBadCapacity
	}
	s.Capacity = capacity
	return nil
}

// Join adds a player under a caller-supplied connection-scoped id.
// Late joiners (after game start) get a ledger entry at zero so
// scoring and final-round denominators stay coherent.
func (s *Session) Join(id uuid.UUID, name string) (*Player, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if len(s.players) >= s.Capacity {
		return nil, ErrRoomFull
	}
	p := &Player{ID: id, Name: name}
	s.players = append(s.players, p)
	s.names[p.ID] = name
	if s.Phase != PhaseSetup {
		s.Ledger.Init(p.ID)
	}
	return p, nil
}

// Rejoin restores a previously issued identity, used by reconnecting
// clients carrying a resume token. The ledger entry, if any, survives.
func (s *Session) Rejoin(playerID uuid.UUID, name string) (*Player, error) {
	for _, p := range s.players {
		if p.ID == playerID {
			return p, nil
		}
	}
	if len(s.players) >= s.Capacity {
		return nil, ErrRoomFull
	}
	p := &Player{ID: playerID, Name: name}
	s.players = append(s.players, p)
	s.names[p.ID] = name
	if s.Phase != PhaseSetup {
		s.Ledger.Init(p.ID)
	}
	return p, nil
}

// Leave removes a player from the connected set. Their ledger entry is
// kept so a rejoin restores the score; completion predicates stop
// counting them immediately.
func (s *Session) Leave(playerID uuid.UUID) {
	for i, p := range s.players {
		if p.ID == playerID {
			s.players = append(s.players[:i], s.players[i+1:]...)
			return
		}
	}
}

// Players returns the ordered connected player list.
func (s *Session) Players() []*Player {
	return s.players
}

// PlayerIDs returns the ids of all connected players, in join order.
func (s *Session) PlayerIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(s.players))
	for i, p := range s.players {
		ids[i] = p.ID
	}
	return ids
}

// PlayerNames maps every player id ever seen to its display name,
// disconnected players included.
func (s *Session) PlayerNames() map[uuid.UUID]string {
	names := make(map[uuid.UUID]string, len(s.names))
	for id, n := range s.names {
		names[id] = n
	}
	return names
}

// Empty reports whether no players remain.
func (s *Session) Empty() bool {
	return len(s.players) == 0
}

// SetBoard replaces an authoring board. Host-only, setup only.
func (s *Session) SetBoard(callerID uuid.UUID, kind RoundKind, b *Board) error {
	if err := s.requireHost(callerID); err != nil {
		return err
	}
	if s.Phase != PhaseSetup {
		return ErrBadPhase
	}
	if err := b.Validate(); err != nil {
		return err
	}
	switch kind {
	case RoundNormal:
		s.NormalBoard = b
	case RoundDouble:
		s.DoubleBoard = b
	default:
		return ErrBadRound
	}
	return nil
}

// StartGame transitions setup -> normal: snapshots the normal board
// into play and opens ledger entries at zero for everyone joined. An
// optional board replaces the normal authoring board first.
func (s *Session) StartGame(callerID uuid.UUID, board *Board) error {
	if err := s.requireHost(callerID); err != nil {
		return err
	}
	if s.Phase != PhaseSetup {
		return ErrBadPhase
	}
	if board != nil {
		if err := board.Validate(); err != nil {
			return err
		}
		s.NormalBoard = board
	}
	if s.NormalBoard.Empty() {
		return ErrEmptyBoard
	}
	s.playable = s.NormalBoard.InstantiateForPlay()
	for _, p := range s.players {
		s.Ledger.Init(p.ID)
	}
	s.Phase = PhaseNormal
	return nil
}

// Advance moves the phase strictly forward: normal -> double requires
// the current board complete and snapshots the double board; double ->
// final requires the same and opens the final-round sub-protocol. The
// final -> results transition belongs to RevealFinalResults.
func (s *Session) Advance(callerID uuid.UUID, next Phase, board *Board) error {
	if err := s.requireHost(callerID); err != nil {
		return err
	}
	switch {
	case s.Phase == PhaseNormal && next == PhaseDouble:
		if !s.playable.Complete() {
			return ErrBoardIncomplete
		}
		if board != nil {
			if err := board.Validate(); err != nil {
				return err
			}
			s.DoubleBoard = board
		}
		if s.DoubleBoard.Empty() {
			return ErrEmptyBoard
		}
		s.playable = s.DoubleBoard.InstantiateForPlay()
		s.Phase = PhaseDouble
	case s.Phase == PhaseDouble && next == PhaseFinal:
		if !s.playable.Complete() {
			return ErrBoardIncomplete
		}
		s.playable = nil
		s.Final = NewFinalRound()
		s.Phase = PhaseFinal
	default:
		return ErrBadPhase
	}
	return nil
}

// Playable returns the in-play board for the current round, nil outside
// normal and double phases.
func (s *Session) Playable() *Board {
	return s.playable
}

// BoardComplete is the advance gate: true iff every question on the
// current in-play board has been asked.
func (s *Session) BoardComplete() bool {
	return s.playable != nil && s.playable.Complete()
}

// SelectQuestion opens the question at (catIndex, row). Selection and
// "asked" are fused: the cell is burned immediately, so it can never be
// reselected, even before its answer is shown.
func (s *Session) SelectQuestion(callerID uuid.UUID, catIndex, row int) (*ActiveQuestion, error) {
	if err := s.requireHost(callerID); err != nil {
		return nil, err
	}
	if s.Phase != PhaseNormal && s.Phase != PhaseDouble {
		return nil, ErrBadPhase
	}
	if s.Active != nil {
		return nil, ErrQuestionOpen
	}
	q, err := s.playable.Question(catIndex, row)
	if err != nil {
		return nil, err
	}
	if q.Asked {
		return nil, ErrAlreadyAsked
	}
	q.Asked = true
	s.Active = &ActiveQuestion{
		CatIndex: catIndex,
		Row:      row,
		Question: *q,
	}
	return s.Active, nil
}

// RevealAnswer flips answer visibility on the open question.
func (s *Session) RevealAnswer(callerID uuid.UUID) error {
	if err := s.requireHost(callerID); err != nil {
		return err
	}
	if s.Active == nil {
		return ErrNoActiveQuestion
	}
	s.Active.Revealed = true
	return nil
}

// AllocatePoints applies a host-chosen delta to one player while the
// open question's answer is visible. The delta's magnitude must equal
// the question's point value; its sign encodes correct or incorrect.
// Returns the full score snapshot.
func (s *Session) AllocatePoints(callerID, playerID uuid.UUID, delta int) (map[uuid.UUID]int, error) {
	if err := s.requireHost(callerID); err != nil {
		return nil, err
	}
	if s.Active == nil {
		return nil, ErrNoActiveQuestion
	}
	if !s.Active.Revealed {
		return nil, ErrAnswerHidden
	}
	if delta != s.Active.Question.Points && delta != -s.Active.Question.Points {
		return nil, ErrBadDelta
	}
	return s.Ledger.ApplyDelta(playerID, delta)
}

// CloseQuestion clears the ActiveQuestion. No allocation is required;
// a question can close worth zero net points.
func (s *Session) CloseQuestion(callerID uuid.UUID) error {
	if err := s.requireHost(callerID); err != nil {
		return err
	}
	if s.Active == nil {
		return ErrNoActiveQuestion
	}
	s.Active = nil
	return nil
}

// RevealFinalCategory broadcasts-worthy reveal of the final category.
func (s *Session) RevealFinalCategory(callerID uuid.UUID, category string) error {
	if err := s.requireHost(callerID); err != nil {
		return err
	}
	if s.Phase != PhaseFinal || s.Final == nil {
		return ErrNoFinalRound
	}
	return s.Final.RevealCategory(category)
}

// SubmitFinalWager records a player's wager, bounded by their current
// score (floored at zero).
func (s *Session) SubmitFinalWager(playerID uuid.UUID, wager int) error {
	if s.Phase != PhaseFinal || s.Final == nil {
		return ErrNoFinalRound
	}
	score, ok := s.Ledger.Score(playerID)
	if !ok {
		return ErrUnknownPlayer
	}
	return s.Final.SubmitWager(playerID, wager, score)
}

// StartFinalRound shows the final question. Gated on every connected
// player having wagered.
func (s *Session) StartFinalRound(callerID uuid.UUID, q FinalQuestion) error {
	if err := s.requireHost(callerID); err != nil {
		return err
	}
	if s.Phase != PhaseFinal || s.Final == nil {
		return ErrNoFinalRound
	}
	if !s.Final.WagersComplete(s.PlayerIDs()) {
		return ErrWagersOpen
	}
	return s.Final.ShowQuestion(q)
}

// SubmitFinalAnswer records a player's answer, at most once.
func (s *Session) SubmitFinalAnswer(playerID uuid.UUID, answer string) error {
	if s.Phase != PhaseFinal || s.Final == nil {
		return ErrNoFinalRound
	}
	return s.Final.SubmitAnswer(playerID, answer)
}

// RevealFinalResults resolves the final round with host verdicts,
// writes score changes through the ledger, and completes the final ->
// results transition. Terminal.
func (s *Session) RevealFinalResults(callerID uuid.UUID, verdicts map[uuid.UUID]bool) ([]FinalResult, error) {
	if err := s.requireHost(callerID); err != nil {
		return nil, err
	}
	if s.Phase != PhaseFinal || s.Final == nil {
		return nil, ErrNoFinalRound
	}
	if !s.Final.AnswersComplete(s.PlayerIDs()) {
		return nil, ErrAnswersOpen
	}
	results, err := s.Final.Resolve(verdicts, s.PlayerNames(), s.Ledger)
	if err != nil {
		return nil, err
	}
	s.Phase = PhaseResults
	return results, nil
}

// AppendChat stores a chat line and returns the full log, matching the
// full-list chat broadcasts.
func (s *Session) AppendChat(sender, text string) []ChatMessage {
	s.chat = append(s.chat, ChatMessage{Sender: sender, Text: text, SentAt: time.Now()})
	return s.chat
}

// Chat returns the full chat log.
func (s *Session) Chat() []ChatMessage {
	return s.chat
}
