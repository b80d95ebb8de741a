package status

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dukex/nodebase/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingPublisher struct {
	mu       sync.Mutex
	attempts int
}

func (p *failingPublisher) Publish(context.Context, Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.attempts++

	return errors.New("broker unavailable")
}

func TestOutbox_PreservesEmitOrder(t *testing.T) {
	recorder := NewRecorder()
	outbox := NewOutbox(recorder, log.Discard(), 2)
	channel := NewChannel(KindHTTPRequest, "wf-1", "user-1")

	ctx := context.Background()
	for _, nodeID := range []string{"a", "b", "c"} {
		outbox.Emit(ctx, NewMessage(channel, nodeID, StatusLoading))
		outbox.Emit(ctx, NewMessage(channel, nodeID, StatusSuccess))
	}

	outbox.Close()

	messages := recorder.Messages()
	require.Len(t, messages, 6)
	assert.Equal(t, "a", messages[0].Data.NodeID)
	assert.Equal(t, StatusLoading, messages[0].Data.Status)
	assert.Equal(t, "c", messages[5].Data.NodeID)
	assert.Equal(t, StatusSuccess, messages[5].Data.Status)
	assert.Equal(t, []Status{StatusLoading, StatusSuccess}, recorder.Statuses("b"))
}

func TestOutbox_PublishFailureDoesNotReachEmitter(t *testing.T) {
	publisher := &failingPublisher{}

	var failures int

	outbox := NewOutbox(publisher, log.Discard(), 4, WithFailureHook(func(Message, error) { failures++ }))
	channel := NewChannel(KindManualTrigger, "wf-1", "user-1")

	outbox.Emit(context.Background(), NewMessage(channel, "trigger", StatusLoading))
	outbox.Emit(context.Background(), NewMessage(channel, "trigger", StatusSuccess))
	outbox.Close()

	assert.Equal(t, 2, publisher.attempts)
	assert.Equal(t, 2, failures)
}

func TestOutbox_EmitAfterCloseIsDropped(t *testing.T) {
	recorder := NewRecorder()
	outbox := NewOutbox(recorder, log.Discard(), 1)
	outbox.Close()
	outbox.Close()

	outbox.Emit(context.Background(), NewMessage(NewChannel(KindManualTrigger, "wf", "u"), "n", StatusLoading))

	assert.Empty(t, recorder.Messages())
}

func TestOutbox_PublishesWithUncancelledContext(t *testing.T) {
	recorder := NewRecorder()
	outbox := NewOutbox(recorder, log.Discard(), 4)

	ctx, cancel := context.WithCancel(context.Background())
	outbox.Emit(ctx, NewMessage(NewChannel(KindManualTrigger, "wf", "u"), "n", StatusError))
	cancel()
	outbox.Close()

	assert.Equal(t, []Status{StatusError}, recorder.Statuses("n"))
}
