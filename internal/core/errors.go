package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeNotAuthenticated   = "not_authenticated"
	ErrCodeRoomNotFound       = "room_not_found"
	ErrCodeAccessDenied       = "access_denied"
	ErrCodeNoActiveRoom       = "no_active_room"
	ErrCodeJoinSuperseded     = "join_superseded"
	ErrCodeBadRequest         = "bad_request"
	ErrCodeUnauthorized       = "unauthorized"
	ErrCodeInvalidCredentials = "invalid_credentials"
	ErrCodeRateLimited        = "rate_limited"
	ErrCodeConflict           = "conflict"
	ErrCodeInternal           = "internal"
)

var (
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrRoomNotFound       = errors.New("room not found")
	ErrAccessDenied       = errors.New("access denied")
	ErrNoActiveRoom       = errors.New("no active room")
	ErrJoinSuperseded     = errors.New("join superseded by a later request")
	ErrEmptyMessage       = errors.New("message is empty")
	ErrInvalidRoomName    = errors.New("invalid room name")
	ErrAccessCodeRequired = errors.New("private room requires an access code")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

// Code maps a domain error onto its wire code. Unknown errors are internal.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrNotAuthenticated):
		return ErrCodeNotAuthenticated
	case errors.Is(err, ErrRoomNotFound):
		return ErrCodeRoomNotFound
	case errors.Is(err, ErrAccessDenied):
		return ErrCodeAccessDenied
	case errors.Is(err, ErrNoActiveRoom):
		return ErrCodeNoActiveRoom
	case errors.Is(err, ErrJoinSuperseded):
		return ErrCodeJoinSuperseded
	case errors.Is(err, ErrEmptyMessage),
		errors.Is(err, ErrInvalidRoomName),
		errors.Is(err, ErrAccessCodeRequired):
		return ErrCodeBadRequest
	default:
		var ce *CoreError
		if errors.As(err, &ce) {
			return ce.Code
		}
		return ErrCodeInternal
	}
}

// AsCoreError converts err into its transport-facing form.
func AsCoreError(err error) *CoreError {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce
	}
	return &CoreError{Code: Code(err), Message: err.Error()}
}
