package steps

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dukex/nodebase/pkg/models"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestRedisStore(t *testing.T) {
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

	defer func() { _ = container.Terminate(ctx) }()

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	defer func() { _ = client.Close() }()

	store := NewRedisStore(client, time.Minute)

	missing, err := store.LoadCheckpoint(ctx, "run-1", "http/http-request")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, store.SaveCheckpoint(ctx, &models.Checkpoint{
		RunID:       "run-1",
		StepName:    "http/http-request",
		Output:      models.Context{"k": "v", "httpResponse": map[string]any{"status": 200}},
		CompletedAt: time.Now().UTC(),
	}))

	loaded, err := store.LoadCheckpoint(ctx, "run-1", "http/http-request")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "v", loaded.Output["k"])
	assert.Equal(t, map[string]any{"status": float64(200)}, loaded.Output["httpResponse"])

	ttl, err := client.TTL(ctx, redisKey("run-1", "http/http-request")).Result()
	require.NoError(t, err)
	assert.Positive(t, ttl)
}
