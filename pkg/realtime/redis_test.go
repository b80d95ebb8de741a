package realtime

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dukex/nodebase/pkg/log"
	"github.com/dukex/nodebase/pkg/status"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) redis.UniversalClient {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
}

func TestRedisBroker_PublishSubscribe(t *testing.T) {
	broker := NewRedisBroker(setupRedis(t), log.Discard())
	defer func() { _ = broker.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	channel := status.NewChannel(status.KindGoogleFormTrigger, "wf-1", "user-1")

	messages, err := broker.Subscribe(ctx, channel.Name())
	require.NoError(t, err)

	require.NoError(t, broker.Publish(ctx, status.NewMessage(status.NewChannel(status.KindHTTPRequest, "wf-1", "user-1"), "x", status.StatusLoading)))
	require.NoError(t, broker.Publish(ctx, status.NewMessage(channel, "form", status.StatusSuccess)))

	msg := receive(t, messages)
	assert.Equal(t, channel.Name(), msg.Channel)
	assert.Equal(t, status.Event{NodeID: "form", Status: status.StatusSuccess}, msg.Data)
}
