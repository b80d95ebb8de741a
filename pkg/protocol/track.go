package protocol

import (
	"context"

	"github.com/dukex/nodebase/pkg/models"
	"github.com/dukex/nodebase/pkg/status"
)

// Track runs fn between the node's status events: loading first, then
// success or error. The error returned by fn is passed through untouched.
func Track(ctx context.Context, req Request, kind status.Kind, fn func() (models.Context, error)) (models.Context, error) {
	channel := status.NewChannel(kind, req.WorkflowID, req.UserID)

	req.Emitter.Emit(ctx, status.NewMessage(channel, req.NodeID, status.StatusLoading))

	result, err := fn()
	if err != nil {
		req.Emitter.Emit(ctx, status.NewMessage(channel, req.NodeID, status.StatusError))

		return nil, err
	}

	req.Emitter.Emit(ctx, status.NewMessage(channel, req.NodeID, status.StatusSuccess))

	return result, nil
}
