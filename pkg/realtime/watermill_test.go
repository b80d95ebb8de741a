package realtime

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/nodebase/pkg/channels/gochannel"
	"github.com/dukex/nodebase/pkg/log"
	"github.com/dukex/nodebase/pkg/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWatermillBroker(t *testing.T) *WatermillBroker {
	t.Helper()

	pub, sub, err := gochannel.CreateOrderedChannel(watermill.NopLogger{})
	require.NoError(t, err)

	broker := NewWatermillBroker(pub, sub, log.Discard())
	t.Cleanup(func() { _ = broker.Close() })

	return broker
}

func receive(t *testing.T, messages <-chan status.Message) status.Message {
	t.Helper()

	select {
	case msg := <-messages:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no status message received")

		return status.Message{}
	}
}

func TestWatermillBroker_DeliversOnlySubscribedChannel(t *testing.T) {
	broker := newWatermillBroker(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mine := status.NewChannel(status.KindHTTPRequest, "wf-1", "user-1")
	theirs := status.NewChannel(status.KindHTTPRequest, "wf-1", "user-2")

	messages, err := broker.Subscribe(ctx, mine.Name())
	require.NoError(t, err)

	require.NoError(t, broker.Publish(ctx, status.NewMessage(theirs, "n1", status.StatusLoading)))
	require.NoError(t, broker.Publish(ctx, status.NewMessage(mine, "n1", status.StatusLoading)))
	require.NoError(t, broker.Publish(ctx, status.NewMessage(mine, "n1", status.StatusSuccess)))

	first := receive(t, messages)
	second := receive(t, messages)

	assert.Equal(t, mine.Name(), first.Channel)
	assert.Equal(t, status.StatusLoading, first.Data.Status)
	assert.Equal(t, status.StatusSuccess, second.Data.Status)
	assert.Equal(t, status.Topic, second.Topic)
}

func TestWatermillBroker_ClosesOnContextDone(t *testing.T) {
	broker := newWatermillBroker(t)

	ctx, cancel := context.WithCancel(context.Background())

	messages, err := broker.Subscribe(ctx, "manual-trigger-execution:workflow:wf:user:u")
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-messages:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not closed")
	}
}

func TestWatermillBroker_KeepsOutboxOrderPerNode(t *testing.T) {
	broker := newWatermillBroker(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := status.NewChannel(status.KindHTTPRequest, "wf-1", "user-1")

	messages, err := broker.Subscribe(ctx, channel.Name())
	require.NoError(t, err)

	const nodes = 200

	outbox := status.NewOutbox(broker, log.Discard(), 16)

	go func() {
		defer outbox.Close()

		for i := range nodes {
			nodeID := fmt.Sprintf("node-%d", i)
			outbox.Emit(ctx, status.NewMessage(channel, nodeID, status.StatusLoading))
			outbox.Emit(ctx, status.NewMessage(channel, nodeID, status.StatusSuccess))
		}
	}()

	loaded := make(map[string]bool, nodes)

	var outOfOrder []string

	for range 2 * nodes {
		msg := receive(t, messages)

		switch msg.Data.Status {
		case status.StatusLoading:
			loaded[msg.Data.NodeID] = true
		case status.StatusSuccess:
			if !loaded[msg.Data.NodeID] {
				outOfOrder = append(outOfOrder, msg.Data.NodeID)
			}
		}
	}

	assert.Empty(t, outOfOrder, "success delivered before loading")
	assert.Len(t, loaded, nodes)
}
