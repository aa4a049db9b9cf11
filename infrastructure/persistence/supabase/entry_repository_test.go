package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"mindtrack/domain/journal"
	apperrors "mindtrack/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePostgrest struct {
	mu       sync.Mutex
	inserts  []map[string]interface{}
	queries  []string
	rows     []entryRow
	failCode int
	// numeric mimics a bigint identity column
	numeric bool
}

func (f *fakePostgrest) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		assert.Equal(t, "/rest/v1/journal_entries", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("apikey"))
		w.Header().Set("Content-Type", "application/json")

		if f.failCode != 0 {
			w.WriteHeader(f.failCode)
			_, _ = w.Write([]byte(`{"code":"42501","message":"permission denied for table journal_entries"}`))
			return
		}

		switch r.Method {
		case http.MethodPost:
			body, _ := io.ReadAll(r.Body)
			var row map[string]interface{}
			require.NoError(t, json.Unmarshal(body, &row))
			f.inserts = append(f.inserts, row)
			if f.numeric {
				row["id"] = 42
			} else {
				row["id"] = "row-1"
			}
			out, _ := json.Marshal([]map[string]interface{}{row})
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write(out)
		case http.MethodGet:
			f.queries = append(f.queries, r.URL.RawQuery)
			out, _ := json.Marshal(f.rows)
			_, _ = w.Write(out)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}

func newTestRepository(t *testing.T, fake *fakePostgrest) *EntryRepository {
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, "test-key")
	require.NoError(t, err)
	return NewEntryRepository(client, "", zap.NewNop())
}

func TestEntryRepository_Create(t *testing.T) {
	fake := &fakePostgrest{}
	repo := newTestRepository(t, fake)

	insights := "You seem calm."
	entry := journal.Entry{
		UserID:    "u1",
		Title:     "Day 1",
		Content:   "Felt calm today.",
		Insights:  &insights,
		CreatedAt: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
	}

	rows, err := repo.Create(context.Background(), entry)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "row-1", rows[0].ID)
	assert.Equal(t, "You seem calm.", rows[0].InsightText())
	assert.True(t, entry.CreatedAt.Equal(rows[0].CreatedAt))

	require.Len(t, fake.inserts, 1)
	assert.Equal(t, "u1", fake.inserts[0]["user_id"])
	assert.Equal(t, "Day 1", fake.inserts[0]["title"])
	assert.NotContains(t, fake.inserts[0], "id")
}

func TestEntryRepository_CreateWithNumericID(t *testing.T) {
	fake := &fakePostgrest{numeric: true}
	repo := newTestRepository(t, fake)

	rows, err := repo.Create(context.Background(), journal.Entry{UserID: "u1", Title: "Day 1", Content: "ok"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "42", rows[0].ID)
	assert.Len(t, fake.inserts, 1)
}

func TestDecodeRows_IDShapes(t *testing.T) {
	entries, err := decodeRows([]byte(`[{"id":7,"user_id":"u1"},{"id":"3f0c","user_id":"u1"},{"id":null,"user_id":"u1"}]`))
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "7", entries[0].ID)
	assert.Equal(t, "3f0c", entries[1].ID)
	assert.Equal(t, "", entries[2].ID)

	_, err = decodeRows([]byte(`[{"id":{"x":1}}]`))
	assert.Error(t, err)
}

func TestEntryRepository_CreateFailure(t *testing.T) {
	fake := &fakePostgrest{failCode: http.StatusForbidden}
	repo := newTestRepository(t, fake)

	_, err := repo.Create(context.Background(), journal.Entry{UserID: "u1", Content: "x"})
	require.Error(t, err)
	assert.True(t, apperrors.IsStore(err))
	assert.Contains(t, err.Error(), "permission denied")
}

func TestEntryRepository_ListRecent(t *testing.T) {
	fake := &fakePostgrest{rows: []entryRow{
		{ID: "2", UserID: "u1", Title: "b", CreatedAt: "2024-05-02 08:00:00+00"},
		{ID: "1", UserID: "u1", Title: "a", CreatedAt: "2024-05-01T08:00:00Z"},
		{ID: "x", UserID: "intruder", Title: "x", CreatedAt: "2024-05-03T08:00:00Z"},
	}}
	repo := newTestRepository(t, fake)

	entries, err := repo.ListRecent(context.Background(), "u1", 3)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].Title)
	assert.Equal(t, 2024, entries[0].CreatedAt.Year())

	require.Len(t, fake.queries, 1)
	assert.Contains(t, fake.queries[0], "user_id=eq.u1")
	assert.Contains(t, fake.queries[0], "order=created_at.desc")
	assert.Contains(t, fake.queries[0], "limit=3")

	_, err = repo.ListRecent(context.Background(), "u1", 0)
	assert.True(t, apperrors.IsValidation(err))
}

func TestEntryRepository_ListAllHasNoLimit(t *testing.T) {
	fake := &fakePostgrest{}
	repo := newTestRepository(t, fake)

	entries, err := repo.ListAll(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, entries)
	require.Len(t, fake.queries, 1)
	assert.NotContains(t, fake.queries[0], "limit=")
}

func TestEntryRepository_CanceledContext(t *testing.T) {
	repo := newTestRepository(t, &fakePostgrest{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Create(ctx, journal.Entry{UserID: "u1", Content: "x"})
	require.Error(t, err)
	assert.True(t, apperrors.IsStore(err))
}
