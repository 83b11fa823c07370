package verify

import "github.com/kovrenik/sessionguard/session"

// Status tags the outcome of a validation attempt.
type Status uint8

const (
	// StatusOK means the server accepted the token.
	StatusOK Status = iota
	// StatusRejected means the server answered and denied the token.
	StatusRejected
	// StatusNetworkError means no answer was obtained after all retries.
	StatusNetworkError
)

// String returns the status name used in logs and audit events.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusRejected:
		return "rejected"
	case StatusNetworkError:
		return "network_error"
	default:
		return "unknown"
	}
}

// Result is the outcome of [Client.Validate]. User is set only for
// [StatusOK]. Attempts counts network attempts actually made, so callers can
// meter retries; an offline rejection reports zero.
type Result struct {
	Status   Status
	User     *session.UserSession
	Attempts int
	Err      error
}
