package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeRateLimited    = "rate_limited"
	ErrCodeNotMember      = "not_member"
	ErrCodeInvalidContent = "invalid_content"
	ErrCodePersistFailed  = "persist_failed"
	ErrCodeStoreFailed    = "store_failed"
	ErrCodeDuplicate      = "duplicate_connection"
)

// User-facing reasons returned on the ack path.
const (
	MsgNotMember          = "You are not a member of this group"
	MsgMessageRateLimited = "You are sending messages too quickly. Please wait a moment and try again"
	MsgConnectRateLimited = "Too many connection attempts. Please try again later"
	MsgPersistFailed      = "Failed to send message, please try again"
	MsgMembershipFailed   = "Could not verify group membership, please try again"
	MsgWrongGroup         = "Typing indicators are only supported in the connected group"
	MsgEmptyContent       = "Message content is required"
	MsgContentTooLong     = "Message too long (max 1000 characters)"
	MsgUnsafeContent      = "Message contains disallowed content"
)

var (
	ErrDuplicateConnection = errors.New("duplicate connection")
	ErrHubStopped          = errors.New("hub stopped")
	ErrEmptyContent        = errors.New("message content is required")
	ErrContentTooLong      = errors.New("message too long")
	ErrUnsafeContent       = errors.New("message contains disallowed content")
)

// CoreError wraps a code and human-readable message. Err, when set, is the
// sentinel the code was derived from.
type CoreError struct {
	Code    string
	Message string
	Err     error
}

func (e *CoreError) Error() string {
	return e.Message
}

func (e *CoreError) Unwrap() error {
	return e.Err
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
