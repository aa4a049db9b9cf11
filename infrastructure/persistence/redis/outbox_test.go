package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"mindtrack/domain/journal"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestOutbox(t *testing.T) (*Outbox, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client, err := NewClient("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewOutbox(client, "", zap.NewNop()), mr
}

func task(entryID string) journal.MirrorTask {
	return journal.NewMirrorTask(
		journal.Entry{ID: entryID, UserID: "u1", Title: "Day 1", Content: "text"},
		errors.New("mongo down"),
		time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
	)
}

func TestOutbox_EnqueueAndPending(t *testing.T) {
	ob, _ := newTestOutbox(t)
	ctx := context.Background()

	first, second := task("e-1"), task("e-2")
	require.NoError(t, ob.Enqueue(ctx, first))
	require.NoError(t, ob.Enqueue(ctx, second))

	n, err := ob.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	pending, err := ob.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)
	assert.Equal(t, "e-1", pending[0].Entry.ID)
	assert.Equal(t, "mongo down", pending[0].LastError)
	assert.True(t, first.CreatedAt.Equal(pending[0].CreatedAt))

	limited, err := ob.Pending(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestOutbox_EnqueueTwiceKeepsOneQueueEntry(t *testing.T) {
	ob, _ := newTestOutbox(t)
	ctx := context.Background()

	tk := task("e-1")
	require.NoError(t, ob.Enqueue(ctx, tk))
	require.NoError(t, ob.Enqueue(ctx, tk))

	n, err := ob.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOutbox_UpdateMarkDonePark(t *testing.T) {
	ob, _ := newTestOutbox(t)
	ctx := context.Background()

	a, b := task("e-1"), task("e-2")
	require.NoError(t, ob.Enqueue(ctx, a))
	require.NoError(t, ob.Enqueue(ctx, b))

	retried := a.Failed(errors.New("still down"), time.Now(), time.Second)
	require.NoError(t, ob.Update(ctx, retried))

	pending, err := ob.Pending(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, pending[0].Attempts)
	assert.Equal(t, "still down", pending[0].LastError)

	require.NoError(t, ob.MarkDone(ctx, a.ID))
	require.NoError(t, ob.Park(ctx, b))

	n, err := ob.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	parked, err := ob.ParkedCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, parked)

	// Updating a finished task must not resurrect it
	require.NoError(t, ob.Update(ctx, retried))
	pending, err = ob.Pending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestOutbox_ServerDown(t *testing.T) {
	ob, mr := newTestOutbox(t)
	mr.Close()

	err := ob.Enqueue(context.Background(), task("e-1"))
	assert.Error(t, err)
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient("http://not-redis")
	assert.Error(t, err)
}
