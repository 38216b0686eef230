package service

import "errors"

// Expected, recoverable failures. Transports map these to status codes and
// user-facing messages; they never crash a request.
var (
	ErrNotFound                = errors.New("not found")
	ErrInvalidStateTransition  = errors.New("invalid state transition")
	ErrStaleQuestion           = errors.New("question already advanced")
	ErrDuplicateSubmission     = errors.New("answer already submitted for this question")
	ErrValidation              = errors.New("validation failure")
	ErrCodeGenerationExhausted = errors.New("failed to generate unique session code")
	ErrInsufficientContent     = errors.New("question bank has fewer questions than requested")
	ErrNotHost                 = errors.New("player is not the session host")
	ErrInvalidToken            = errors.New("invalid or expired token")
)
