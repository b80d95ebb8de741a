package httprequest

import (
	"net/http"

	"github.com/dukex/nodebase/pkg/models"
	"github.com/dukex/nodebase/pkg/protocol"
)

// NodeFactory registers the HTTP request action.
type NodeFactory struct {
	executor *Executor
}

// NewNodeFactory creates a factory whose executor uses client.
func NewNodeFactory(client *http.Client) protocol.NodeFactory {
	return &NodeFactory{executor: NewExecutor(client)}
}

func (f *NodeFactory) Type() models.NodeType {
	return models.NodeTypeHTTPRequest
}

func (f *NodeFactory) Category() models.CategoryType {
	return models.CategoryTypeAction
}

func (f *NodeFactory) Name() string {
	return "HTTP Request"
}

func (f *NodeFactory) Description() string {
	return "Makes an HTTP request and adds the response to the workflow context"
}

// Schema returns the JSON schema for HTTP request node configuration.
func (f *NodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"endpoint": map[string]any{
				"type":        "string",
				"description": "URL to request",
				"minLength":   1,
				"examples":    []string{"https://api.example.com/users"},
			},
			"method": map[string]any{
				"type":        "string",
				"description": "HTTP method",
				"default":     DefaultMethod,
				"enum":        Methods,
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Request body, sent verbatim for POST, PUT and PATCH",
				"examples":    []string{`{"name": "nodebase"}`},
			},
		},
		"required": []string{"endpoint"},
	}
}

func (f *NodeFactory) Executor() protocol.Executor {
	return f.executor
}
