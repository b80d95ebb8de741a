package registry

import (
	"net/http"

	"github.com/dukex/nodebase/pkg/nodes/googleformtrigger"
	"github.com/dukex/nodebase/pkg/nodes/httprequest"
	"github.com/dukex/nodebase/pkg/nodes/manualtrigger"
)

// RegisterDefaultNodes registers all built-in node factories with the registry.
// The HTTP request node uses client for its outbound calls.
func (r *Registry) RegisterDefaultNodes(client *http.Client) {
	r.MustRegister(manualtrigger.NewInitialNodeFactory())
	r.MustRegister(manualtrigger.NewNodeFactory())
	r.MustRegister(googleformtrigger.NewNodeFactory())
	r.MustRegister(httprequest.NewNodeFactory(client))
}
