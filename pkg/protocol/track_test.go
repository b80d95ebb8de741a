package protocol

import (
	"context"
	"errors"
	"testing"

	"github.com/dukex/nodebase/pkg/models"
	"github.com/dukex/nodebase/pkg/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrack_Success(t *testing.T) {
	recorder := status.NewRecorder()
	req := Request{NodeID: "node-1", Emitter: recorder, WorkflowID: "wf-1", UserID: "user-1"}

	out, err := Track(context.Background(), req, status.KindHTTPRequest, func() (models.Context, error) {
		return models.Context{"done": true}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, true, out["done"])
	assert.Equal(t, []status.Status{status.StatusLoading, status.StatusSuccess}, recorder.Statuses("node-1"))

	for _, msg := range recorder.Messages() {
		assert.Equal(t, "http-request-execution:workflow:wf-1:user:user-1", msg.Channel)
		assert.Equal(t, status.Topic, msg.Topic)
	}
}

func TestTrack_ErrorIsReturnedUnchanged(t *testing.T) {
	recorder := status.NewRecorder()
	req := Request{NodeID: "node-1", Emitter: recorder, WorkflowID: "wf-1", UserID: "user-1"}
	boom := errors.New("boom")

	out, err := Track(context.Background(), req, status.KindManualTrigger, func() (models.Context, error) {
		return nil, boom
	})

	assert.Nil(t, out)
	assert.Same(t, boom, err)
	assert.Equal(t, []status.Status{status.StatusLoading, status.StatusError}, recorder.Statuses("node-1"))
}
