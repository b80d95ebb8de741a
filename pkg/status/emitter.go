package status

import (
	"context"
	"log/slog"
	"sync"
)

// Emitter receives the status messages an executor produces.
type Emitter interface {
	Emit(ctx context.Context, msg Message)
}

// Publisher delivers a message to the realtime transport.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

type outboxItem struct {
	ctx context.Context
	msg Message
}

// Outbox forwards emitted messages to a Publisher from its own goroutine,
// preserving emit order. Publish failures are logged and reported through
// the failure hook but never reach the emitter.
type Outbox struct {
	publisher Publisher
	logger    *slog.Logger
	onFailure func(Message, error)

	mu     sync.RWMutex
	closed bool
	queue  chan outboxItem
	done   chan struct{}
}

// OutboxOption customizes an Outbox.
type OutboxOption func(*Outbox)

// WithFailureHook registers fn to be called for every failed publish.
func WithFailureHook(fn func(Message, error)) OutboxOption {
	return func(o *Outbox) {
		o.onFailure = fn
	}
}

func NewOutbox(publisher Publisher, logger *slog.Logger, size int, opts ...OutboxOption) *Outbox {
	if size <= 0 {
		size = 64
	}

	outbox := &Outbox{
		publisher: publisher,
		logger:    logger.With("module", "status_outbox"),
		queue:     make(chan outboxItem, size),
		done:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(outbox)
	}

	go outbox.drain()

	return outbox
}

// Emit enqueues msg. It blocks only while the queue is full; messages
// emitted after Close are dropped.
func (o *Outbox) Emit(ctx context.Context, msg Message) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.closed {
		o.logger.WarnContext(ctx, "Dropping status message emitted after close", "channel", msg.Channel, "node_id", msg.Data.NodeID)

		return
	}

	select {
	case o.queue <- outboxItem{ctx: context.WithoutCancel(ctx), msg: msg}:
	case <-ctx.Done():
		o.logger.WarnContext(ctx, "Dropping status message, context done", "channel", msg.Channel, "node_id", msg.Data.NodeID)
	}
}

// Close stops accepting messages and waits until queued ones are published.
func (o *Outbox) Close() {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.queue)
	}
	o.mu.Unlock()

	<-o.done
}

func (o *Outbox) drain() {
	defer close(o.done)

	for item := range o.queue {
		err := o.publisher.Publish(item.ctx, item.msg)
		if err == nil {
			continue
		}

		o.logger.ErrorContext(item.ctx, "Failed to publish status message",
			"channel", item.msg.Channel,
			"node_id", item.msg.Data.NodeID,
			"status", item.msg.Data.Status,
			"error", err,
		)

		if o.onFailure != nil {
			o.onFailure(item.msg, err)
		}
	}
}

// Recorder keeps every emitted or published message in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Emit(_ context.Context, msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = append(r.messages, msg)
}

// Publish lets a Recorder stand in for a transport.
func (r *Recorder) Publish(ctx context.Context, msg Message) error {
	r.Emit(ctx, msg)

	return nil
}

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Message(nil), r.messages...)
}

// Statuses returns the statuses recorded for nodeID, in order.
func (r *Recorder) Statuses(nodeID string) []Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	statuses := make([]Status, 0)

	for _, msg := range r.messages {
		if msg.Data.NodeID == nodeID {
			statuses = append(statuses, msg.Data.Status)
		}
	}

	return statuses
}
