// Package googleformtrigger provides the node started by a Google Form submission.
package googleformtrigger

import (
	"context"

	"github.com/dukex/nodebase/pkg/models"
	"github.com/dukex/nodebase/pkg/protocol"
	"github.com/dukex/nodebase/pkg/status"
)

const (
	StepName = "google-form-trigger"

	// ContextKey holds the submitted form in the initial run context.
	ContextKey = "googleForm"
)

// Executor passes its upstream context through unchanged. The submission
// itself is placed in the initial context by the webhook that starts the run.
type Executor struct{}

func NewExecutor() *Executor {
	return &Executor{}
}

func (e *Executor) Kind() status.Kind {
	return status.KindGoogleFormTrigger
}

func (e *Executor) Execute(ctx context.Context, req protocol.Request) (models.Context, error) {
	return protocol.Track(ctx, req, e.Kind(), func() (models.Context, error) {
		return req.Step.Run(ctx, StepName, func(context.Context) (models.Context, error) {
			return req.Context, nil
		})
	})
}
