package domain

import "time"

// AuthEventKind names the operation an audit entry describes.
type AuthEventKind string

const (
	EventRegister AuthEventKind = "register"
	EventLogin    AuthEventKind = "login"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// AuthEvent is a single audit trail entry. It never carries passwords,
// hashes or tokens.
type AuthEvent struct {
	Kind       AuthEventKind
	Username   string
	SubjectID  string
	Outcome    string
	Reason     string
	OccurredAt time.Time
}
