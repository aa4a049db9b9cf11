// Package redis provides a Redis-backed mirror outbox, so pending secondary
// writes survive restarts.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"mindtrack/domain/journal"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// DefaultKeyPrefix namespaces outbox keys
const DefaultKeyPrefix = "mindtrack:outbox"

// Outbox keeps task ids in a list for ordering and task bodies in a hash
type Outbox struct {
	client    *redis.Client
	queueKey  string
	tasksKey  string
	parkedKey string
	logger    *zap.Logger
}

// NewClient parses a redis:// URL and returns a client
func NewClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// NewOutbox creates an outbox under prefix; empty uses DefaultKeyPrefix
func NewOutbox(client *redis.Client, prefix string, logger *zap.Logger) *Outbox {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Outbox{
		client:    client,
		queueKey:  prefix + ":queue",
		tasksKey:  prefix + ":tasks",
		parkedKey: prefix + ":parked",
		logger:    logger,
	}
}

// Enqueue appends a task
func (o *Outbox) Enqueue(ctx context.Context, task journal.MirrorTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal mirror task: %w", err)
	}

	_, err = o.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, o.tasksKey, task.ID, data)
		pipe.LRem(ctx, o.queueKey, 0, task.ID)
		pipe.RPush(ctx, o.queueKey, task.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue mirror task: %w", err)
	}
	return nil
}

// Pending returns up to limit tasks in enqueue order
func (o *Outbox) Pending(ctx context.Context, limit int) ([]journal.MirrorTask, error) {
	if limit <= 0 {
		return []journal.MirrorTask{}, nil
	}

	ids, err := o.client.LRange(ctx, o.queueKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read outbox queue: %w", err)
	}
	if len(ids) == 0 {
		return []journal.MirrorTask{}, nil
	}

	values, err := o.client.HMGet(ctx, o.tasksKey, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read outbox tasks: %w", err)
	}

	tasks := make([]journal.MirrorTask, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Queue entry without a body; drop it
			o.logger.Warn("Outbox queue entry has no task", zap.String("taskID", ids[i]))
			o.client.LRem(ctx, o.queueKey, 0, ids[i])
			continue
		}
		var task journal.MirrorTask
		if err := json.Unmarshal([]byte(raw), &task); err != nil {
			o.logger.Error("Failed to decode outbox task", zap.String("taskID", ids[i]), zap.Error(err))
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// MarkDone removes a task
func (o *Outbox) MarkDone(ctx context.Context, taskID string) error {
	_, err := o.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, o.queueKey, 0, taskID)
		pipe.HDel(ctx, o.tasksKey, taskID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to remove mirror task: %w", err)
	}
	return nil
}

// Update replaces the body of a pending task
func (o *Outbox) Update(ctx context.Context, task journal.MirrorTask) error {
	exists, err := o.client.HExists(ctx, o.tasksKey, task.ID).Result()
	if err != nil {
		return fmt.Errorf("failed to update mirror task: %w", err)
	}
	if !exists {
		return nil
	}

	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal mirror task: %w", err)
	}
	if err := o.client.HSet(ctx, o.tasksKey, task.ID, data).Err(); err != nil {
		return fmt.Errorf("failed to update mirror task: %w", err)
	}
	return nil
}

// Park moves a task to the parked hash
func (o *Outbox) Park(ctx context.Context, task journal.MirrorTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal mirror task: %w", err)
	}

	_, err = o.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, o.queueKey, 0, task.ID)
		pipe.HDel(ctx, o.tasksKey, task.ID)
		pipe.HSet(ctx, o.parkedKey, task.ID, data)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to park mirror task: %w", err)
	}
	return nil
}

// Len returns the number of pending tasks
func (o *Outbox) Len(ctx context.Context) (int, error) {
	n, err := o.client.LLen(ctx, o.queueKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read outbox length: %w", err)
	}
	return int(n), nil
}

// ParkedCount returns the number of parked tasks
func (o *Outbox) ParkedCount(ctx context.Context) (int, error) {
	n, err := o.client.HLen(ctx, o.parkedKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read parked tasks: %w", err)
	}
	return int(n), nil
}
