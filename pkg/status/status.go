// Package status defines the per-node execution status channels that drive
// the editor's live node badges.
package status

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies the node family a status channel belongs to.
type Kind string

const (
	KindManualTrigger     Kind = "manual-trigger"
	KindGoogleFormTrigger Kind = "google-form-trigger"
	KindHTTPRequest       Kind = "http-request"
)

// Topic is the only topic carried on a status channel.
const Topic = "status"

var ErrInvalidChannel = errors.New("invalid status channel")

// Kinds returns every known channel kind.
func Kinds() []Kind {
	return []Kind{KindManualTrigger, KindGoogleFormTrigger, KindHTTPRequest}
}

func (k Kind) Valid() bool {
	for _, known := range Kinds() {
		if k == known {
			return true
		}
	}

	return false
}

// Status is the execution state of a single node.
type Status string

const (
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Event is the payload published on the status topic.
type Event struct {
	NodeID string `json:"nodeId"`
	Status Status `json:"status"`
}

// Channel addresses one status channel instance.
type Channel struct {
	Kind       Kind
	WorkflowID string
	UserID     string
}

func NewChannel(kind Kind, workflowID, userID string) Channel {
	return Channel{Kind: kind, WorkflowID: workflowID, UserID: userID}
}

// Name renders the routing key, e.g.
// "http-request-execution:workflow:<workflowId>:user:<userId>".
func (c Channel) Name() string {
	return ChannelName(c.Kind, c.WorkflowID, c.UserID)
}

func ChannelName(kind Kind, workflowID, userID string) string {
	return fmt.Sprintf("%s-execution:workflow:%s:user:%s", kind, workflowID, userID)
}

// ParseChannel is the inverse of ChannelName.
func ParseChannel(name string) (Channel, error) {
	parts := strings.Split(name, ":")
	if len(parts) != 5 || parts[1] != "workflow" || parts[3] != "user" {
		return Channel{}, fmt.Errorf("%w: %s", ErrInvalidChannel, name)
	}

	kind := Kind(strings.TrimSuffix(parts[0], "-execution"))
	if !strings.HasSuffix(parts[0], "-execution") || !kind.Valid() {
		return Channel{}, fmt.Errorf("%w: unknown kind in %s", ErrInvalidChannel, name)
	}

	if parts[2] == "" || parts[4] == "" {
		return Channel{}, fmt.Errorf("%w: %s", ErrInvalidChannel, name)
	}

	return Channel{Kind: kind, WorkflowID: parts[2], UserID: parts[4]}, nil
}

// Message is a status event routed to a channel and topic.
type Message struct {
	Channel string `json:"channel"`
	Topic   string `json:"topic"`
	Data    Event  `json:"data"`
}

// NewMessage builds the status-topic message for nodeID on channel.
func NewMessage(channel Channel, nodeID string, status Status) Message {
	return Message{
		Channel: channel.Name(),
		Topic:   Topic,
		Data:    Event{NodeID: nodeID, Status: status},
	}
}
