// Package journal holds the journal entry model and the small pieces of
// presentation logic the views share.
package journal

import (
	"slices"
	"strings"
	"time"

	apperrors "mindtrack/pkg/errors"
)

const (
	// DefaultTitle is used when a submission has no title
	DefaultTitle = "Untitled"
	// AnonymousUserID is used when a submission has no user id
	AnonymousUserID = "anonymous"
)

// ErrEntryRequired is the message for a submission without content
const ErrEntryRequired = "Entry is required"

// Entry is a journal entry as stored in the primary store
type Entry struct {
	ID        string    `json:"id,omitempty"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Insights  *string   `json:"insights"`
	MoodScore *int      `json:"mood_score,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewEntry builds an entry for submission, applying defaults. Any
// non-empty content is accepted as written.
func NewEntry(userID, title, content string, createdAt time.Time) (*Entry, error) {
	if content == "" {
		return nil, apperrors.NewValidationError(ErrEntryRequired)
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		userID = AnonymousUserID
	}

	return &Entry{
		UserID:    userID,
		Title:     title,
		Content:   content,
		CreatedAt: createdAt.UTC(),
	}, nil
}

// WithInsights returns a copy carrying the generated insight text
func (e Entry) WithInsights(insights string) Entry {
	e.Insights = &insights
	return e
}

// InsightText returns the insight or "" when none was generated
func (e Entry) InsightText() string {
	if e.Insights == nil {
		return ""
	}
	return *e.Insights
}

// SortByCreatedDesc orders entries newest first; equal timestamps keep
// their arrival order
func SortByCreatedDesc(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}
