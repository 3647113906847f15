package ws

import "encoding/json"

// MessageType constants for the room protocol.
const (
	// Client -> Server (intents)
	TypeCreateRoom         = "create_room"
	TypeJoinRoom           = "join_room"
	TypeRejoinRoom         = "rejoin_room"
	TypeUpdateCapacity     = "update_capacity"
	TypeChatMessage        = "chat_message"
	TypeSetBoard           = "set_board"
	TypeStartRound         = "start_round"
	TypeSelectQuestion     = "select_question"
	TypeRevealAnswer       = "reveal_answer"
	TypeAllocatePoints     = "allocate_points"
	TypeCloseQuestion      = "close_question"
	TypeAdvanceStage       = "advance_stage"
	TypeRevealCategory     = "reveal_final_category"
	TypeStartFinalRound    = "start_final_round"
	TypeSubmitFinalWager   = "submit_final_wager"
	TypeSubmitFinalAnswer  = "submit_final_answer"
	TypeRevealFinalResults = "reveal_final_results"

	// Server -> Client (state broadcasts)
	TypeRoomCreated       = "room_created"
	TypeRoomJoined        = "room_joined"
	TypePlayerList        = "player_list"
	TypeChatUpdate        = "chat_update"
	TypeRoundStarted      = "round_started"
	TypeQuestionOpened    = "question_opened"
	TypeCellMarked        = "cell_marked"
	TypeQuestionModal     = "question_modal"
	TypeScoreSnapshot     = "score_snapshot"
	TypeBoardStatus       = "board_status"
	TypeStageAdvanced     = "stage_advanced"
	TypeFinalCategory     = "final_category"
	TypeFinalWagers       = "final_wagers"
	TypeFinalAnswers      = "final_answers"
	TypeFinalRoundStarted = "final_round_started"
	TypeFinalResults      = "final_results"
	TypeRoomSnapshot      = "room_snapshot"
	TypeError             = "error"
)

// Message is the wire envelope: a type tag plus a fixed payload schema
// per type. Payloads that fail to decode are rejected at the boundary.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage marshals payload into an envelope. The payload set is
// closed and always marshalable, so the error is discarded.
func NewMessage(msgType string, payload any) Message {
	msg := Message{Type: msgType}
	if payload != nil {
		msg.Payload, _ = json.Marshal(payload)
	}
	return msg
}

// Client payloads (incoming)

type CreateRoomPayload struct {
	Capacity int `json:"capacity"`
}

type JoinRoomPayload struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type RejoinRoomPayload struct {
	Token string `json:"token"`
}

type UpdateCapacityPayload struct {
	Capacity int `json:"capacity"`
}

type ChatMessagePayload struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

type SetBoardPayload struct {
	Kind  string          `json:"kind"` // "normal" or "double"
	Board json.RawMessage `json:"board"`
}

type StartRoundPayload struct {
	Board json.RawMessage `json:"board,omitempty"`
}

type SelectQuestionPayload struct {
	CatIndex int `json:"cat_index"`
	Row      int `json:"row"`
}

type AllocatePointsPayload struct {
	PlayerID string `json:"player_id"`
	Delta    int    `json:"delta"`
}

type AdvanceStagePayload struct {
	Stage string          `json:"stage"` // "double" or "final"
	Board json.RawMessage `json:"board,omitempty"`
}

type RevealCategoryPayload struct {
	Category string `json:"category"`
}

type StartFinalRoundPayload struct {
	Question json.RawMessage `json:"question"`
}

type SubmitFinalWagerPayload struct {
	Wager int `json:"wager"`
}

type SubmitFinalAnswerPayload struct {
	Answer string `json:"answer"`
}

type RevealFinalResultsPayload struct {
	// Verdicts maps player id -> correctness; players absent from the
	// map are judged incorrect.
	Verdicts map[string]bool `json:"verdicts"`
}

// Server payloads (outgoing)

type RoomCreatedPayload struct {
	Code        string `json:"code"`
	Capacity    int    `json:"capacity"`
	ResumeToken string `json:"resume_token"`
}

type RoomJoinedPayload struct {
	Code        string       `json:"code"`
	PlayerID    string       `json:"player_id"`
	ResumeToken string       `json:"resume_token"`
	Players     []PlayerInfo `json:"players"`
}

type PlayerInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type PlayerListPayload struct {
	Players []PlayerInfo `json:"players"`
}

type ChatEntry struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
	SentAt string `json:"sent_at"`
}

type ChatUpdatePayload struct {
	Messages []ChatEntry `json:"messages"`
}

type RoundStartedPayload struct {
	Stage  string          `json:"stage"`
	Board  json.RawMessage `json:"board"`
	Scores []ScoreEntry    `json:"scores"`
}

type ScoreEntry struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
}

type QuestionOpenedPayload struct {
	CatIndex int             `json:"cat_index"`
	Row      int             `json:"row"`
	Question json.RawMessage `json:"question"`
	Revealed bool            `json:"revealed"`
}

type CellMarkedPayload struct {
	CatIndex int `json:"cat_index"`
	Row      int `json:"row"`
}

// QuestionModalPayload carries the open question, or null once the
// modal closes.
type QuestionModalPayload struct {
	Question json.RawMessage `json:"question"`
}

type ScoreSnapshotPayload struct {
	Scores []ScoreEntry `json:"scores"`
}

// BoardStatusPayload tells the host whether the advance affordance is
// available.
type BoardStatusPayload struct {
	Complete bool `json:"complete"`
}

type StageAdvancedPayload struct {
	Stage string          `json:"stage"`
	Board json.RawMessage `json:"board,omitempty"`
}

type FinalCategoryPayload struct {
	Category string `json:"category"`
}

type FinalWagersPayload struct {
	Wagers   map[string]int `json:"wagers"`
	Complete bool           `json:"complete"`
}

type FinalAnswersPayload struct {
	Complete bool `json:"complete"`
}

type FinalRoundStartedPayload struct {
	Question json.RawMessage `json:"question"`
}

type FinalResultsPayload struct {
	Answer  string          `json:"answer"`
	Results json.RawMessage `json:"results"`
}

// RoomSnapshotPayload brings a reconnecting client to a consistent
// view in one message.
type RoomSnapshotPayload struct {
	Code     string          `json:"code"`
	Stage    string          `json:"stage"`
	Players  []PlayerInfo    `json:"players"`
	Scores   []ScoreEntry    `json:"scores"`
	Board    json.RawMessage `json:"board,omitempty"`
	Active   json.RawMessage `json:"active,omitempty"`
	Final    json.RawMessage `json:"final,omitempty"`
	Messages []ChatEntry     `json:"messages"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
