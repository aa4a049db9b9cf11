package queries

import (
	"context"
	"fmt"
	"time"

	"mindtrack/application/ports"
	"mindtrack/domain/journal"
)

// EntryQueryService answers the read-side queries from the primary store
type EntryQueryService struct {
	store   ports.PrimaryEntryStore
	logger  ports.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewEntryQueryService creates the service. timeout bounds each store read;
// zero disables it.
func NewEntryQueryService(store ports.PrimaryEntryStore, logger ports.Logger, timeout time.Duration) *EntryQueryService {
	return &EntryQueryService{
		store:   store,
		logger:  logger,
		timeout: timeout,
		now:     time.Now,
	}
}

// WithClock replaces the clock used for the greeting
func (s *EntryQueryService) WithClock(now func() time.Time) *EntryQueryService {
	s.now = now
	return s
}

// Dashboard returns the greeting and the most recent entries of a user
func (s *EntryQueryService) Dashboard(ctx context.Context, query DashboardQuery) (*DashboardResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	entries, err := s.listRecent(ctx, query.UserID, DashboardEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to load dashboard: %w", err)
	}

	summaries := make([]EntrySummary, 0, len(entries))
	for _, e := range entries {
		summaries = append(summaries, EntrySummary{
			ID:        e.ID,
			Title:     e.Title,
			Preview:   journal.Preview(e.Content, DashboardPreviewRunes),
			MoodScore: e.MoodScore,
			MoodColor: journal.MoodColor(e.MoodScore),
			CreatedAt: formatTime(e.CreatedAt),
		})
	}

	return &DashboardResult{
		Greeting: journal.Greeting(s.now()),
		Email:    query.Email,
		Entries:  summaries,
	}, nil
}

// RecentEntries returns the journal page of a user
func (s *EntryQueryService) RecentEntries(ctx context.Context, query RecentEntriesQuery) (*RecentEntriesResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	limit := query.EffectiveLimit()
	entries, err := s.listRecent(ctx, query.UserID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries: %w", err)
	}

	views := make([]EntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, EntryView{
			ID:        e.ID,
			Title:     e.Title,
			Content:   e.Content,
			Insights:  e.InsightText(),
			MoodScore: e.MoodScore,
			CreatedAt: formatTime(e.CreatedAt),
		})
	}

	return &RecentEntriesResult{Entries: views, Limit: limit}, nil
}

// Insights returns every entry of a user that carries an insight
func (s *EntryQueryService) Insights(ctx context.Context, query InsightsQuery) (*InsightsResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	entries, err := s.store.ListAll(ctx, query.UserID)
	if err != nil {
		s.logger.Errorw("Failed to list entries", "userID", query.UserID, "error", err)
		return nil, fmt.Errorf("failed to load insights: %w", err)
	}

	views := make([]InsightView, 0, len(entries))
	for _, e := range entries {
		text := e.InsightText()
		views = append(views, InsightView{
			EntryID:    e.ID,
			Title:      e.Title,
			Insights:   text,
			HasInsight: text != "",
			CreatedAt:  formatTime(e.CreatedAt),
		})
	}

	return &InsightsResult{Insights: views, TotalCount: len(views)}, nil
}

func (s *EntryQueryService) listRecent(ctx context.Context, userID string, limit int) ([]journal.Entry, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	entries, err := s.store.ListRecent(ctx, userID, limit)
	if err != nil {
		s.logger.Errorw("Failed to list recent entries", "userID", userID, "limit", limit, "error", err)
		return nil, err
	}
	return entries, nil
}

func (s *EntryQueryService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
