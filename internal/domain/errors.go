package domain

import "errors"

var (
	ErrParticipantIDEmpty   = errors.New("participant id empty")
	ErrParticipantIDTooLong = errors.New("participant id too long")
	ErrUsernameEmpty        = errors.New("username empty")
	ErrUsernameTooLong      = errors.New("username too long")

	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionEnded         = errors.New("session ended")
	ErrDuplicateParticipant = errors.New("duplicate participant")
	ErrDuplicateCoHost      = errors.New("duplicate cohost")
	ErrNotInvited           = errors.New("not invited")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrRateLimited          = errors.New("rate limited")
	ErrMalformedChunk       = errors.New("malformed media chunk")
	ErrMalformedMessage     = errors.New("malformed message")

	ErrTokenMissing     = errors.New("token missing")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenInvalid     = errors.New("token invalid")
	ErrIdentityMismatch = errors.New("identity mismatch")

	ErrBusUnavailable = errors.New("group bus unavailable")
	ErrNotFound       = errors.New("not found")
)

// ActionError is an error the client is told about with an error frame.
// Fatal errors also close the offending connection.
type ActionError struct {
	Err     error
	Message string
	Details string
	Fatal   bool
}

func (e *ActionError) Error() string { return e.Message + ": " + e.Details }

func (e *ActionError) Unwrap() error { return e.Err }

func Reject(err error, message, details string) *ActionError {
	return &ActionError{Err: err, Message: message, Details: details, Fatal: true}
}

func Inform(err error, message, details string) *ActionError {
	return &ActionError{Err: err, Message: message, Details: details}
}
