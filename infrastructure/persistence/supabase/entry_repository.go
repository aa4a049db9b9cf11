// Package supabase stores journal entries in the Supabase Postgres database
// through its PostgREST API.
package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"mindtrack/domain/journal"
	apperrors "mindtrack/pkg/errors"
	"mindtrack/pkg/utils"

	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// DefaultTable is the table journal entries live in
const DefaultTable = "journal_entries"

const entryColumns = "id,user_id,title,content,insights,mood_score,created_at"

// rowID accepts both uuid and bigint identity columns
type rowID string

func (id *rowID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = rowID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("unsupported id %s: %w", data, err)
	}
	*id = rowID(n.String())
	return nil
}

// entryRow is the row shape of the journal_entries table
type entryRow struct {
	ID        rowID   `json:"id,omitempty"`
	UserID    string  `json:"user_id"`
	Title     string  `json:"title"`
	Content   string  `json:"content"`
	Insights  *string `json:"insights"`
	MoodScore *int    `json:"mood_score,omitempty"`
	CreatedAt string  `json:"created_at"`
}

func toRow(e journal.Entry) entryRow {
	return entryRow{
		ID:        rowID(e.ID),
		UserID:    e.UserID,
		Title:     e.Title,
		Content:   e.Content,
		Insights:  e.Insights,
		MoodScore: e.MoodScore,
		CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func (r entryRow) toEntry() journal.Entry {
	e := journal.Entry{
		ID:        string(r.ID),
		UserID:    r.UserID,
		Title:     r.Title,
		Content:   r.Content,
		Insights:  r.Insights,
		MoodScore: r.MoodScore,
	}
	if ts, err := parseTimestamp(r.CreatedAt); err == nil {
		e.CreatedAt = ts
	}
	return e
}

// Postgres timestamptz comes back without the T separator in some setups
func parseTimestamp(s string) (time.Time, error) {
	s = strings.Replace(s, " ", "T", 1)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999-07", "2006-01-02T15:04:05.999999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// EntryRepository is the primary entry store backed by Supabase
type EntryRepository struct {
	client *supa.Client
	table  string
	logger *zap.Logger
}

// NewClient creates a Supabase client for the project at url
func NewClient(url, key string) (*supa.Client, error) {
	client, err := supa.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	return client, nil
}

// NewEntryRepository creates a repository over table; an empty table uses
// DefaultTable.
func NewEntryRepository(client *supa.Client, table string, logger *zap.Logger) *EntryRepository {
	if table == "" {
		table = DefaultTable
	}
	return &EntryRepository{
		client: client,
		table:  table,
		logger: logger,
	}
}

// Create inserts entry and returns the inserted rows
func (r *EntryRepository) Create(ctx context.Context, entry journal.Entry) ([]journal.Entry, error) {
	ctx, span := otel.Tracer("mindtrack/supabase").Start(ctx, "supabase.insert")
	defer span.End()
	span.SetAttributes(attribute.String("db.table", r.table))

	body, err := utils.RunWithContext(ctx, func() ([]byte, error) {
		data, _, err := r.client.From(r.table).
			Insert(toRow(entry), false, "", "representation", "").
			Execute()
		return data, err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.Error("Failed to insert journal entry",
			zap.String("table", r.table),
			zap.String("userID", entry.UserID),
			zap.Error(err),
		)
		return nil, apperrors.NewStoreError("insert", err)
	}

	entries, err := decodeRows(body)
	if err != nil {
		return nil, apperrors.NewStoreError("insert", err)
	}

	r.logger.Debug("Inserted journal entry",
		zap.String("userID", entry.UserID),
		zap.Int("rows", len(entries)),
	)
	return entries, nil
}

// ListRecent returns at most limit entries of userID, newest first
func (r *EntryRepository) ListRecent(ctx context.Context, userID string, limit int) ([]journal.Entry, error) {
	if limit <= 0 {
		return nil, apperrors.NewValidationError("limit must be positive")
	}
	return r.list(ctx, userID, limit)
}

// ListAll returns every entry of userID, newest first
func (r *EntryRepository) ListAll(ctx context.Context, userID string) ([]journal.Entry, error) {
	return r.list(ctx, userID, 0)
}

func (r *EntryRepository) list(ctx context.Context, userID string, limit int) ([]journal.Entry, error) {
	ctx, span := otel.Tracer("mindtrack/supabase").Start(ctx, "supabase.select")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.table", r.table),
		attribute.Int("db.limit", limit),
	)

	body, err := utils.RunWithContext(ctx, func() ([]byte, error) {
		query := r.client.From(r.table).
			Select(entryColumns, "", false).
			Eq("user_id", userID).
			Order("created_at", &postgrest.OrderOpts{Ascending: false})
		if limit > 0 {
			query = query.Limit(limit, "")
		}
		data, _, err := query.Execute()
		return data, err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, apperrors.NewStoreError("select", err)
	}

	entries, err := decodeRows(body)
	if err != nil {
		return nil, apperrors.NewStoreError("select", err)
	}

	// Never hand back another user's rows, even if a policy is misconfigured
	owned := entries[:0]
	for _, e := range entries {
		if e.UserID == userID {
			owned = append(owned, e)
		} else {
			r.logger.Warn("Dropped row with foreign user id", zap.String("entryID", e.ID))
		}
	}
	return owned, nil
}

// Ping checks that the table answers a one-row select
func (r *EntryRepository) Ping(ctx context.Context) error {
	_, err := utils.RunWithContext(ctx, func() ([]byte, error) {
		data, _, err := r.client.From(r.table).Select("id", "", false).Limit(1, "").Execute()
		return data, err
	})
	if err != nil {
		return apperrors.NewStoreError("ping", err)
	}
	return nil
}

func decodeRows(body []byte) ([]journal.Entry, error) {
	var rows []entryRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode rows: %w", err)
	}
	entries := make([]journal.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.toEntry())
	}
	return entries, nil
}
