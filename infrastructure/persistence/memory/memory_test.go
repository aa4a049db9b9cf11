package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"mindtrack/domain/journal"
	apperrors "mindtrack/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entryAt(userID, title string, at time.Time) journal.Entry {
	return journal.Entry{UserID: userID, Title: title, Content: "text", CreatedAt: at}
}

func TestEntryStore_CreateAssignsID(t *testing.T) {
	store := NewEntryStore()

	rows, err := store.Create(context.Background(), entryAt("u1", "Day 1", time.Now()))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.NotEmpty(t, rows[0].ID)
	assert.Equal(t, "Day 1", rows[0].Title)
	assert.Equal(t, 1, store.CreateCalls())
}

func TestEntryStore_ListRecent(t *testing.T) {
	store := NewEntryStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		_, err := store.Create(ctx, entryAt("u1", string(rune('a'+i)), base.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)
	}
	_, err := store.Create(ctx, entryAt("u2", "other", base.Add(10*time.Hour)))
	require.NoError(t, err)

	recent, err := store.ListRecent(ctx, "u1", 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "d", recent[0].Title)
	assert.Equal(t, "c", recent[1].Title)
	assert.Equal(t, "b", recent[2].Title)

	all, err := store.ListAll(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	none, err := store.ListAll(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	_, err = store.ListRecent(ctx, "u1", 0)
	assert.True(t, apperrors.IsValidation(err))
}

func TestEntryStore_FailWith(t *testing.T) {
	store := NewEntryStore()
	store.FailWith(errors.New("connection refused"))

	_, err := store.Create(context.Background(), entryAt("u1", "x", time.Now()))
	require.Error(t, err)
	assert.True(t, apperrors.IsStore(err))
	assert.Contains(t, err.Error(), "connection refused")
	assert.Empty(t, store.Entries())
}

func TestMirrorStore_IdempotentByID(t *testing.T) {
	mirror := NewMirrorStore()
	ctx := context.Background()
	e := entryAt("u1", "Day 1", time.Now())
	e.ID = "e-1"

	require.NoError(t, mirror.Mirror(ctx, e))
	require.NoError(t, mirror.Mirror(ctx, e))

	assert.Equal(t, 2, mirror.Attempts())
	assert.Len(t, mirror.Documents(), 1)
}

func TestMirrorStore_Failure(t *testing.T) {
	mirror := NewMirrorStore()
	mirror.FailWith(errors.New("mongo down"))
	e := entryAt("u1", "Day 1", time.Now())
	e.ID = "e-1"

	err := mirror.Mirror(context.Background(), e)
	require.Error(t, err)
	assert.True(t, apperrors.IsStore(err))
	assert.Empty(t, mirror.Documents())

	mirror.FailWith(nil)
	assert.NoError(t, mirror.Mirror(context.Background(), e))
}

func TestOutbox_Lifecycle(t *testing.T) {
	ob := NewOutbox()
	ctx := context.Background()
	now := time.Now()

	first := journal.NewMirrorTask(journal.Entry{ID: "e-1"}, errors.New("boom"), now)
	second := journal.NewMirrorTask(journal.Entry{ID: "e-2"}, errors.New("boom"), now)
	require.NoError(t, ob.Enqueue(ctx, first))
	require.NoError(t, ob.Enqueue(ctx, second))

	n, err := ob.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	pending, err := ob.Pending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, first.ID, pending[0].ID)

	retried := first.Failed(errors.New("again"), now, time.Second)
	require.NoError(t, ob.Update(ctx, retried))
	pending, err = ob.Pending(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, pending[0].Attempts)

	require.NoError(t, ob.MarkDone(ctx, first.ID))
	require.NoError(t, ob.Park(ctx, second))

	n, err = ob.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	require.Len(t, ob.Parked(), 1)
	assert.Equal(t, second.ID, ob.Parked()[0].ID)
}
