// Package mongodb keeps the redundant copy of journal entries in MongoDB.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"mindtrack/domain/journal"
	apperrors "mindtrack/pkg/errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const (
	DefaultDatabase   = "mindtrack"
	DefaultCollection = "entries"

	entryIDIndex = "entry_id_unique"
)

// Config holds MongoDB connection settings
type Config struct {
	URI                    string
	Database               string
	Collection             string
	ServerSelectionTimeout time.Duration
}

// entryDocument is the stored shape of a mirrored entry
type entryDocument struct {
	EntryID    string    `bson:"entry_id"`
	UserID     string    `bson:"user_id"`
	Title      string    `bson:"title"`
	Content    string    `bson:"content"`
	Insights   *string   `bson:"insights"`
	MoodScore  *int      `bson:"mood_score,omitempty"`
	CreatedAt  time.Time `bson:"created_at"`
	MirroredAt time.Time `bson:"mirrored_at"`
}

func toDocument(e journal.Entry, now time.Time) entryDocument {
	return entryDocument{
		EntryID:    e.ID,
		UserID:     e.UserID,
		Title:      e.Title,
		Content:    e.Content,
		Insights:   e.Insights,
		MoodScore:  e.MoodScore,
		CreatedAt:  e.CreatedAt.UTC(),
		MirroredAt: now.UTC(),
	}
}

// EntryMirror is the secondary entry store
type EntryMirror struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *zap.Logger
	now        func() time.Time

	indexMu sync.Mutex
	indexed bool
}

func newEntryMirror(client *mongo.Client, collection *mongo.Collection, logger *zap.Logger) *EntryMirror {
	return &EntryMirror{
		client:     client,
		collection: collection,
		logger:     logger,
		now:        time.Now,
	}
}

// Connect opens a client for cfg. The driver connects lazily, so an
// unreachable server surfaces on the first operation or Ping.
func Connect(ctx context.Context, cfg Config, logger *zap.Logger) (*EntryMirror, error) {
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.ServerSelectionTimeout == 0 {
		cfg.ServerSelectionTimeout = 5 * time.Second
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(cfg.ServerSelectionTimeout).
		SetAppName("mindtrack")

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	logger.Info("MongoDB client created",
		zap.String("database", cfg.Database),
		zap.String("collection", cfg.Collection),
	)

	m := newEntryMirror(client, client.Database(cfg.Database).Collection(cfg.Collection), logger)

	// A down server must not block startup; Mirror retries the index.
	indexCtx, cancel := context.WithTimeout(ctx, cfg.ServerSelectionTimeout)
	defer cancel()
	if err := m.EnsureIndexes(indexCtx); err != nil {
		logger.Warn("MongoDB index not created yet", zap.Error(err))
	}
	return m, nil
}

// EnsureIndexes creates the unique entry_id index. It is a no-op once it
// has succeeded.
func (m *EntryMirror) EnsureIndexes(ctx context.Context) error {
	m.indexMu.Lock()
	defer m.indexMu.Unlock()
	if m.indexed {
		return nil
	}

	_, err := m.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "entry_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName(entryIDIndex),
	})
	if err != nil {
		return fmt.Errorf("failed to create %s index: %w", entryIDIndex, err)
	}
	m.indexed = true
	return nil
}

// Mirror upserts entry keyed by its primary id
func (m *EntryMirror) Mirror(ctx context.Context, entry journal.Entry) error {
	ctx, span := otel.Tracer("mindtrack/mongodb").Start(ctx, "mongodb.mirror")
	defer span.End()
	span.SetAttributes(attribute.String("db.collection", m.collection.Name()))

	if entry.ID == "" {
		return apperrors.NewStoreError("mirror", errors.New("entry has no id"))
	}
	if err := m.EnsureIndexes(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return apperrors.NewStoreError("mirror", err)
	}

	doc := toDocument(entry, m.now())
	_, err := m.collection.ReplaceOne(ctx,
		bson.M{"entry_id": entry.ID},
		doc,
		options.Replace().SetUpsert(true),
	)
	// a concurrent upsert of the same entry won the insert
	if mongo.IsDuplicateKeyError(err) {
		m.logger.Debug("Entry already mirrored", zap.String("entryID", entry.ID))
		return nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return apperrors.NewStoreError("mirror", err)
	}
	return nil
}

// Ping checks the primary is reachable
func (m *EntryMirror) Ping(ctx context.Context) error {
	if err := m.client.Ping(ctx, readpref.Primary()); err != nil {
		return apperrors.NewStoreError("ping", err)
	}
	return nil
}

// Close disconnects the client
func (m *EntryMirror) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
