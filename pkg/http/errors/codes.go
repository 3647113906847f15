package errors

// Error codes for standardized error responses
const (
	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeInvalidPayload   = "invalid_payload"
	ErrCodeValidationFailed = "validation_failed"

	// Room errors
	ErrCodeRoomNotFound       = "room_not_found"
	ErrCodeRoomFull           = "room_full"
	ErrCodeRoomCreationFailed = "room_creation_failed"
	ErrCodeInvalidRoomCode    = "invalid_room_code"
	ErrCodeEmptyName          = "empty_name"
	ErrCodeJoinFailed         = "join_failed"
	ErrCodeBadCapacity        = "bad_capacity"

	// Game errors
	ErrCodeBadPhase         = "bad_phase"
	ErrCodeBoardInvalid     = "board_invalid"
	ErrCodeBoardIncomplete  = "board_incomplete"
	ErrCodeQuestionAsked    = "question_already_asked"
	ErrCodeQuestionOpen     = "question_open"
	ErrCodeNoQuestionOpen   = "no_question_open"
	ErrCodeBadDelta         = "bad_delta"
	ErrCodeUnknownPlayer    = "unknown_player"
	ErrCodeWagerOutOfRange  = "wager_out_of_range"
	ErrCodeDuplicateSubmit  = "duplicate_submission"
	ErrCodeCollectionOpen   = "collection_open"
	ErrCodeFinalNotStarted  = "final_not_started"
	ErrCodeFinalResolved    = "final_resolved"

	// Token errors
	ErrCodeInvalidToken = "invalid_token"
	ErrCodeTokenExpired = "token_expired"

	// WebSocket errors
	ErrCodeUnknownMessageType = "unknown_message_type"
	ErrCodeConnectionError    = "connection_error"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"

	// Hall of fame errors
	ErrCodeHallOfFameFetchFailed = "hall_of_fame_fetch_failed"
)
