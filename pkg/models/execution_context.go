package models

// Context is the key bag threaded from node to node during one run.
// Executors never mutate the context they receive; they derive a new one.
type Context map[string]any

// Clone returns a shallow copy of the context. A nil context clones to an empty one.
func (c Context) Clone() Context {
	clone := make(Context, len(c)+1)
	for k, v := range c {
		clone[k] = v
	}

	return clone
}

// With returns a copy of the context with key set to value.
func (c Context) With(key string, value any) Context {
	next := c.Clone()
	next[key] = value

	return next
}
