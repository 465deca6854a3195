package outbox

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
)

// Event is a pending publication, written in the same transaction as the state
// change it announces. The relay drains pending rows and hands them to Kafka;
// a lost broker therefore delays delivery, it never loses the event.
type Event struct {
	ID         int64
	Topic      string
	Key        string
	Type       string
	Payload    []byte
	Status     Status
	RetryCount int
	LastError  *string
	CreatedAt  time.Time
}
