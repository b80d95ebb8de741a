// Package manualtrigger provides the node started by a user pressing "execute".
package manualtrigger

import (
	"context"

	"github.com/dukex/nodebase/pkg/models"
	"github.com/dukex/nodebase/pkg/protocol"
	"github.com/dukex/nodebase/pkg/status"
)

const StepName = "manual-trigger"

// Executor passes its upstream context through unchanged.
type Executor struct{}

func NewExecutor() *Executor {
	return &Executor{}
}

func (e *Executor) Kind() status.Kind {
	return status.KindManualTrigger
}

func (e *Executor) Execute(ctx context.Context, req protocol.Request) (models.Context, error) {
	return protocol.Track(ctx, req, e.Kind(), func() (models.Context, error) {
		return req.Step.Run(ctx, StepName, func(context.Context) (models.Context, error) {
			return req.Context, nil
		})
	})
}
