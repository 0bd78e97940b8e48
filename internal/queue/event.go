// Package queue carries calendar change notifications over RabbitMQ:
// the payload, a publisher used by the HTTP handlers and a consumer
// that appends every notification to a log file.
package queue

import "time"

// Kinds of ChangeEvent.
const (
	KindEventCreated   = "event.created"
	KindEventDeleted   = "event.deleted"
	KindUserRegistered = "user.registered"
	KindUserLoggedOut  = "user.logged_out"
)

// ChangeEvent is published whenever a user's calendar or account
// changes. It has enough for downstream consumers to log or notify
// without querying the database.
type ChangeEvent struct {
	Kind       string `json:"kind"`
	UserID     string `json:"user_id"`
	EventID    string `json:"event_id,omitempty"`
	Title      string `json:"title,omitempty"`
	StartsAt   string `json:"starts_at,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

// NewChangeEvent stamps OccurredAt with the current UTC time.
func NewChangeEvent(kind, userID string) ChangeEvent {
	return ChangeEvent{Kind: kind, UserID: userID, OccurredAt: time.Now().UTC().Format(time.RFC3339)}
}
