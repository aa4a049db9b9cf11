// Package queries holds the read side: the dashboard, journal and insights
// views over a user's entries.
package queries

import (
	apperrors "mindtrack/pkg/errors"
)

const (
	// DashboardEntries is the number of entries the dashboard shows
	DashboardEntries = 3
	// DashboardPreviewRunes caps the dashboard preview text
	DashboardPreviewRunes = 100

	DefaultRecentLimit = 5
	MaxRecentLimit     = 50
)

// DashboardQuery requests the dashboard view of a user
type DashboardQuery struct {
	UserID string
	Email  string
}

// Validate validates the query
func (q DashboardQuery) Validate() error {
	if q.UserID == "" {
		return apperrors.NewValidationError("user ID is required")
	}
	return nil
}

// RecentEntriesQuery requests the journal page. A zero Limit means the
// default; larger values are clamped to MaxRecentLimit.
type RecentEntriesQuery struct {
	UserID string
	Limit  int
}

// Validate validates the query
func (q RecentEntriesQuery) Validate() error {
	if q.UserID == "" {
		return apperrors.NewValidationError("user ID is required")
	}
	if q.Limit < 0 {
		return apperrors.NewValidationError("limit cannot be negative")
	}
	return nil
}

// EffectiveLimit applies the default and the cap
func (q RecentEntriesQuery) EffectiveLimit() int {
	switch {
	case q.Limit == 0:
		return DefaultRecentLimit
	case q.Limit > MaxRecentLimit:
		return MaxRecentLimit
	default:
		return q.Limit
	}
}

// InsightsQuery requests every entry of a user together with its insight
type InsightsQuery struct {
	UserID string
}

// Validate validates the query
func (q InsightsQuery) Validate() error {
	if q.UserID == "" {
		return apperrors.NewValidationError("user ID is required")
	}
	return nil
}

// EntrySummary is an entry as the dashboard lists it
type EntrySummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Preview   string `json:"preview"`
	MoodScore *int   `json:"moodScore,omitempty"`
	MoodColor string `json:"moodColor"`
	CreatedAt string `json:"createdAt"`
}

// DashboardResult is the dashboard view
type DashboardResult struct {
	Greeting string         `json:"greeting"`
	Email    string         `json:"email,omitempty"`
	Entries  []EntrySummary `json:"entries"`
}

// EntryView is a full entry as the journal page shows it
type EntryView struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Insights  string `json:"insights,omitempty"`
	MoodScore *int   `json:"moodScore,omitempty"`
	CreatedAt string `json:"createdAt"`
}

// RecentEntriesResult is the journal page
type RecentEntriesResult struct {
	Entries []EntryView `json:"entries"`
	Limit   int         `json:"limit"`
}

// InsightView pairs an entry with its generated insight. Entries saved
// without one are listed too, with HasInsight false and empty Insights.
type InsightView struct {
	EntryID    string `json:"entryId"`
	Title      string `json:"title"`
	Insights   string `json:"insights"`
	HasInsight bool   `json:"hasInsight"`
	CreatedAt  string `json:"createdAt"`
}

// InsightsResult is the insights page
type InsightsResult struct {
	Insights   []InsightView `json:"insights"`
	TotalCount int           `json:"totalCount"`
}
