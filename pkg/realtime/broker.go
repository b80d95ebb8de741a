package realtime

import (
	"context"

	"github.com/dukex/nodebase/pkg/status"
)

// Broker moves status messages from workers to gateways.
type Broker interface {
	status.Publisher

	// Subscribe streams the messages published on channel until ctx is
	// done. The returned channel is closed afterwards.
	Subscribe(ctx context.Context, channel string) (<-chan status.Message, error)

	Close() error
}
