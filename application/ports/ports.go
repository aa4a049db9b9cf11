// Package ports declares the collaborators the application layer depends
// on. Infrastructure packages implement them.
package ports

import (
	"context"

	"mindtrack/domain/identity"
	"mindtrack/domain/journal"
)

// InsightGenerator turns journal text into insight text
type InsightGenerator interface {
	Generate(ctx context.Context, text string) (string, error)
}

// PrimaryEntryStore is the store whose write outcome gates a submission
type PrimaryEntryStore interface {
	// Create inserts the entry and returns the created records
	Create(ctx context.Context, entry journal.Entry) ([]journal.Entry, error)

	// ListRecent returns at most limit entries of userID, newest first
	ListRecent(ctx context.Context, userID string, limit int) ([]journal.Entry, error)

	// ListAll returns every entry of userID, newest first
	ListAll(ctx context.Context, userID string) ([]journal.Entry, error)

	Ping(ctx context.Context) error
}

// SecondaryEntryStore holds a redundant copy of each entry
type SecondaryEntryStore interface {
	Mirror(ctx context.Context, entry journal.Entry) error
	Ping(ctx context.Context) error
}

// MirrorOutbox records secondary writes that still have to happen
type MirrorOutbox interface {
	Enqueue(ctx context.Context, task journal.MirrorTask) error
	// Pending returns up to limit tasks in enqueue order
	Pending(ctx context.Context, limit int) ([]journal.MirrorTask, error)
	MarkDone(ctx context.Context, taskID string) error
	// Update stores a task after a failed retry
	Update(ctx context.Context, task journal.MirrorTask) error
	// Park moves a task out of the pending set for manual follow-up
	Park(ctx context.Context, task journal.MirrorTask) error
	Len(ctx context.Context) (int, error)
}

// IdentityProvider is the hosted passwordless-auth provider
type IdentityProvider interface {
	// SendMagicLink emails a single-use sign-in link
	SendMagicLink(ctx context.Context, email, redirectTo string) error

	// SessionFromTokens establishes a session from a token pair
	SessionFromTokens(ctx context.Context, accessToken, refreshToken string) (*identity.Session, error)

	// Refresh exchanges a refresh token for a new session
	Refresh(ctx context.Context, refreshToken string) (*identity.Session, error)

	// SignOut revokes the session behind accessToken
	SignOut(ctx context.Context, accessToken string) error
}

// Logger is the logging surface the application layer uses.
// *zap.SugaredLogger satisfies it.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
}

// Metrics is the subset of the metrics collector the application layer
// reports to
type Metrics interface {
	ObserveSubmission(outcome string)
	ObserveMirror(outcome string)
}
