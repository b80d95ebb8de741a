package workflow

import (
	"errors"
	"fmt"
	"slices"

	"github.com/dukex/nodebase/pkg/models"
)

var (
	ErrCycleDetected = errors.New("workflow graph contains a cycle")
	ErrUnknownNode   = errors.New("connection references unknown node")
)

// ExecutionOrder sorts the workflow's nodes so every node comes after all of
// its upstream nodes. Among nodes that are ready at the same time, the one
// declared first in the workflow goes first.
func ExecutionOrder(workflow *models.Workflow) ([]*models.WorkflowNode, error) {
	index := make(map[string]int, len(workflow.Nodes))
	for i, node := range workflow.Nodes {
		index[node.ID] = i
	}

	indegree := make([]int, len(workflow.Nodes))
	out := make([][]int, len(workflow.Nodes))

	for _, conn := range workflow.Connections {
		from, ok := index[conn.FromNodeID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownNode, conn.FromNodeID)
		}

		to, ok := index[conn.ToNodeID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownNode, conn.ToNodeID)
		}

		out[from] = append(out[from], to)
		indegree[to]++
	}

	// Kahn, with the ready set kept sorted by declaration index
	ready := make([]int, 0, len(workflow.Nodes))
	for i, d := range indegree {
		if d == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]*models.WorkflowNode, 0, len(workflow.Nodes))

	for len(ready) > 0 {
		v := ready[0]
		ready = ready[1:]
		order = append(order, workflow.Nodes[v])

		for _, u := range out[v] {
			indegree[u]--
			if indegree[u] == 0 {
				pos, _ := slices.BinarySearch(ready, u)
				ready = slices.Insert(ready, pos, u)
			}
		}
	}

	if len(order) != len(workflow.Nodes) {
		return nil, ErrCycleDetected
	}

	return order, nil
}
