package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContext_WithKeepsUpstreamKeys(t *testing.T) {
	upstream := Context{"user": "ada", "count": 2}

	next := upstream.With("httpResponse", map[string]any{"status": 200})

	assert.Equal(t, "ada", next["user"])
	assert.Equal(t, 2, next["count"])
	assert.Contains(t, next, "httpResponse")
	assert.NotContains(t, upstream, "httpResponse", "upstream context must not be mutated")
}

func TestContext_CloneNil(t *testing.T) {
	var ctx Context

	clone := ctx.Clone()

	assert.NotNil(t, clone)
	assert.Empty(t, clone)
}

func TestContext_WithOverridesSameKey(t *testing.T) {
	upstream := Context{"httpResponse": "old"}

	next := upstream.With("httpResponse", "new")

	assert.Equal(t, "new", next["httpResponse"])
	assert.Equal(t, "old", upstream["httpResponse"])
}
