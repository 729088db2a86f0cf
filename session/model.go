package session

// Status is the lifecycle state of a login session.
type Status uint8

const (
	// StatusActive marks a live session whose refresh window has not passed.
	StatusActive Status = iota + 1
	// StatusTerminated marks a session ended by explicit logout. Terminal.
	StatusTerminated
	// StatusExpired marks a session whose refresh window lapsed. Terminal.
	StatusExpired
)

// String returns the wire name of the status.
func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusTerminated:
		return "terminated"
	case StatusExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Session is the durable record of one login event. Exactly one record exists
// per login; a user may hold multiple concurrently active sessions
// (multi-device). RefreshHash is the SHA-256 of the opaque refresh secret —
// the plaintext secret is handed out once at creation and never persisted.
type Session struct {
	SessionID  string
	UserID     string
	IPAddress  string
	Platform   string
	DeviceName string

	Status           Status
	RefreshHash      [32]byte
	RefreshExpiresAt int64 // unix seconds
	StartedAt        int64 // unix seconds
	EndedAt          int64 // unix seconds, zero until terminated
}
