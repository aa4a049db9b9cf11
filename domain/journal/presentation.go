package journal

import (
	"time"
	"unicode/utf8"
)

// Mood colors used by the dashboard
const (
	MoodGreen  = "green"
	MoodYellow = "yellow"
	MoodRed    = "red"
	MoodGray   = "gray"
)

// Greeting returns the salutation for the hour of t
func Greeting(t time.Time) string {
	switch hour := t.Hour(); {
	case hour < 12:
		return "Good morning"
	case hour < 17:
		return "Good afternoon"
	default:
		return "Good evening"
	}
}

// MoodColor maps a mood score to a display color
func MoodColor(score *int) string {
	if score == nil {
		return MoodGray
	}
	switch {
	case *score >= 7:
		return MoodGreen
	case *score >= 4:
		return MoodYellow
	default:
		return MoodRed
	}
}

// Preview returns the first n runes of content, with "..." when cut
func Preview(content string, n int) string {
	if n <= 0 || utf8.RuneCountInString(content) <= n {
		return content
	}
	runes := []rune(content)
	return string(runes[:n]) + "..."
}
