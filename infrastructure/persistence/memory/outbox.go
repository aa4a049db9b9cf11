package memory

import (
	"context"
	"sync"

	"mindtrack/domain/journal"
)

// Outbox is an in-memory mirror outbox. Tasks are lost on restart; use the
// Redis outbox when that matters.
type Outbox struct {
	mu     sync.Mutex
	order  []string
	tasks  map[string]journal.MirrorTask
	parked map[string]journal.MirrorTask
}

// NewOutbox creates an empty outbox
func NewOutbox() *Outbox {
	return &Outbox{
		tasks:  make(map[string]journal.MirrorTask),
		parked: make(map[string]journal.MirrorTask),
	}
}

// Enqueue adds a task
func (o *Outbox) Enqueue(ctx context.Context, task journal.MirrorTask) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.tasks[task.ID]; !exists {
		o.order = append(o.order, task.ID)
	}
	o.tasks[task.ID] = task
	return nil
}

// Pending returns up to limit tasks in enqueue order
func (o *Outbox) Pending(ctx context.Context, limit int) ([]journal.MirrorTask, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]journal.MirrorTask, 0, min(limit, len(o.order)))
	for _, id := range o.order {
		if len(out) >= limit {
			break
		}
		out = append(out, o.tasks[id])
	}
	return out, nil
}

// MarkDone removes a task
func (o *Outbox) MarkDone(ctx context.Context, taskID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.remove(taskID)
	return nil
}

// Update replaces a pending task
func (o *Outbox) Update(ctx context.Context, task journal.MirrorTask) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.tasks[task.ID]; ok {
		o.tasks[task.ID] = task
	}
	return nil
}

// Park moves a task out of the pending set
func (o *Outbox) Park(ctx context.Context, task journal.MirrorTask) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.remove(task.ID)
	o.parked[task.ID] = task
	return nil
}

// Len returns the number of pending tasks
func (o *Outbox) Len(ctx context.Context) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.order), nil
}

// Parked returns the parked tasks
func (o *Outbox) Parked() []journal.MirrorTask {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]journal.MirrorTask, 0, len(o.parked))
	for _, t := range o.parked {
		out = append(out, t)
	}
	return out
}

func (o *Outbox) remove(taskID string) {
	if _, ok := o.tasks[taskID]; !ok {
		return
	}
	delete(o.tasks, taskID)
	for i, id := range o.order {
		if id == taskID {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
}
