package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a quiz session does not exist or was ended.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrWrongState is returned when a transition is invoked from a state that does not allow it.
	ErrWrongState = errors.New("transition not allowed in current state")
	// ErrInvalidOption indicates a selected option index outside the current question's options.
	ErrInvalidOption = errors.New("option index out of range")
	// ErrNotAuthenticated is returned for operations that need a signed-in user.
	ErrNotAuthenticated = errors.New("authentication required")
	// ErrNothingToRetry is returned when a retry is requested but no failed submission exists.
	ErrNothingToRetry = errors.New("no failed submission to retry")
	// ErrInvalidQuiz indicates malformed quiz content.
	ErrInvalidQuiz = errors.New("invalid quiz content")
)

// ErrorKind classifies result store failures.
type ErrorKind string

const (
	KindNetwork          ErrorKind = "network"
	KindPermissionDenied ErrorKind = "permission_denied"
	KindSchema           ErrorKind = "schema"
	KindUnknown          ErrorKind = "unknown"
)

// Sentinels matched by StoreError.Is, so callers can write errors.Is(err, domain.ErrSchema).
var (
	ErrNetwork          = errors.New("network error")
	ErrPermissionDenied = errors.New("permission denied")
	ErrSchema           = errors.New("schema error")
	ErrUnknown          = errors.New("unknown store error")
)

var kindSentinels = map[ErrorKind]error{
	KindNetwork:          ErrNetwork,
	KindPermissionDenied: ErrPermissionDenied,
	KindSchema:           ErrSchema,
	KindUnknown:          ErrUnknown,
}

// StoreError is the failure outcome of every result store operation.
type StoreError struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

// NewStoreError builds a StoreError; an empty message falls back to the cause's text.
func NewStoreError(kind ErrorKind, op, message string, cause error) *StoreError {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &StoreError{Kind: kind, Op: op, Message: message, Err: cause}
}

func (e *StoreError) Error() string {
	if e.Op == "" {
		return string(e.Kind) + ": " + e.Message
	}
	return e.Op + ": " + string(e.Kind) + ": " + e.Message
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinel (ErrNetwork, ErrSchema, ...).
func (e *StoreError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// Retryable reports whether retrying may succeed without a configuration change.
func (e *StoreError) Retryable() bool {
	return e.Kind == KindNetwork
}

// AsStoreError extracts a StoreError, wrapping anything else as KindUnknown.
func AsStoreError(op string, err error) *StoreError {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return se
	}
	return NewStoreError(KindUnknown, op, "", err)
}
