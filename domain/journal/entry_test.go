package journal

import (
	"errors"
	"strings"
	"testing"
	"time"

	apperrors "mindtrack/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEntry(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	t.Run("applies defaults", func(t *testing.T) {
		entry, err := NewEntry("", "", "Feeling okay today", now)
		require.NoError(t, err)
		assert.Equal(t, AnonymousUserID, entry.UserID)
		assert.Equal(t, DefaultTitle, entry.Title)
		assert.Equal(t, now, entry.CreatedAt)
		assert.Nil(t, entry.Insights)
	})

	t.Run("keeps given fields", func(t *testing.T) {
		entry, err := NewEntry("u1", "Day 1", "Feeling okay today", now)
		require.NoError(t, err)
		assert.Equal(t, "u1", entry.UserID)
		assert.Equal(t, "Day 1", entry.Title)
	})

	t.Run("rejects empty content", func(t *testing.T) {
		_, err := NewEntry("u1", "t", "", now)
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
		assert.Equal(t, ErrEntryRequired, apperrors.PublicMessage(err))
	})

	for name, content := range map[string]string{"whitespace": " \n\t ", "long": strings.Repeat("a", 50000)} {
		t.Run("keeps "+name+" content", func(t *testing.T) {
			entry, err := NewEntry("u1", "t", content, now)
			require.NoError(t, err)
			assert.Equal(t, content, entry.Content)
		})
	}
}

func TestEntry_WithInsights(t *testing.T) {
	e := Entry{Title: "x"}
	withInsight := e.WithInsights("You seem calm.")

	assert.Equal(t, "", e.InsightText(), "original untouched")
	assert.Equal(t, "You seem calm.", withInsight.InsightText())
}

func TestSortByCreatedDesc(t *testing.T) {
	base := time.Now()
	entries := []Entry{
		{ID: "a", CreatedAt: base.Add(-2 * time.Hour)},
		{ID: "b", CreatedAt: base},
		{ID: "c", CreatedAt: base.Add(-1 * time.Hour)},
	}
	SortByCreatedDesc(entries)

	ids := []string{entries[0].ID, entries[1].ID, entries[2].ID}
	assert.Equal(t, []string{"b", "c", "a"}, ids)
}

func TestSortByCreatedDesc_EqualTimestampsKeepOrder(t *testing.T) {
	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	entries := []Entry{
		{ID: "old", CreatedAt: at.Add(-time.Minute)},
		{ID: "first", CreatedAt: at},
		{ID: "second", CreatedAt: at},
		{ID: "third", CreatedAt: at},
	}
	SortByCreatedDesc(entries)

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"first", "second", "third", "old"}, ids)
}

func TestGreeting(t *testing.T) {
	at := func(h int) time.Time { return time.Date(2024, 1, 1, h, 30, 0, 0, time.UTC) }

	assert.Equal(t, "Good morning", Greeting(at(0)))
	assert.Equal(t, "Good morning", Greeting(at(11)))
	assert.Equal(t, "Good afternoon", Greeting(at(12)))
	assert.Equal(t, "Good afternoon", Greeting(at(16)))
	assert.Equal(t, "Good evening", Greeting(at(17)))
	assert.Equal(t, "Good evening", Greeting(at(23)))
}

func TestMoodColor(t *testing.T) {
	score := func(v int) *int { return &v }

	assert.Equal(t, MoodGray, MoodColor(nil))
	assert.Equal(t, MoodGreen, MoodColor(score(7)))
	assert.Equal(t, MoodGreen, MoodColor(score(10)))
	assert.Equal(t, MoodYellow, MoodColor(score(4)))
	assert.Equal(t, MoodYellow, MoodColor(score(6)))
	assert.Equal(t, MoodRed, MoodColor(score(3)))
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("short", 100))
	assert.Equal(t, "abc...", Preview("abcdef", 3))
	assert.Equal(t, "héé...", Preview("hééllo", 3))
}

func TestMirrorTask(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	task := NewMirrorTask(Entry{ID: "1"}, errors.New("mongo down"), now)

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, 1, task.Attempts)
	assert.Equal(t, "mongo down", task.LastError)
	assert.True(t, task.Due(now))

	retried := task.Failed(errors.New("still down"), now, time.Second)
	assert.Equal(t, 2, retried.Attempts)
	assert.Equal(t, "still down", retried.LastError)
	assert.Equal(t, now.Add(2*time.Second), retried.NextAttemptAt)
	assert.False(t, retried.Due(now))
	assert.True(t, retried.Due(now.Add(2*time.Second)))
}
