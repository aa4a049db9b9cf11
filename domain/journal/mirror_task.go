package journal

import (
	"time"

	"github.com/google/uuid"
)

// MirrorTask is a pending write of an entry to the secondary store
type MirrorTask struct {
	ID            string    `json:"id"`
	Entry         Entry     `json:"entry"`
	Attempts      int       `json:"attempts"`
	LastError     string    `json:"last_error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	NextAttemptAt time.Time `json:"next_attempt_at"`
}

// NewMirrorTask records a failed first attempt for entry
func NewMirrorTask(entry Entry, cause error, now time.Time) MirrorTask {
	task := MirrorTask{
		ID:            uuid.New().String(),
		Entry:         entry,
		Attempts:      1,
		CreatedAt:     now,
		NextAttemptAt: now,
	}
	if cause != nil {
		task.LastError = cause.Error()
	}
	return task
}

// Failed returns the task after another failed attempt, backed off
// exponentially from base.
func (t MirrorTask) Failed(cause error, now time.Time, base time.Duration) MirrorTask {
	t.Attempts++
	if cause != nil {
		t.LastError = cause.Error()
	}
	shift := t.Attempts - 1
	if shift > 10 {
		shift = 10
	}
	t.NextAttemptAt = now.Add(base * time.Duration(1<<shift))
	return t
}

// Due reports whether the task may be retried at now
func (t MirrorTask) Due(now time.Time) bool {
	return !t.NextAttemptAt.After(now)
}
