package runtime

import (
	"encoding/json"
)

// Context carries the data for a single invocation
type Context struct {
	// Input data (read-only)
	Args []json.RawMessage // Positional arguments, one JSON value each

	// Output data
	Result json.RawMessage // JSON encoding of the callable's return value

	done bool
}

// NewContext creates a new invocation context
func NewContext(args []json.RawMessage) *Context {
	if args == nil {
		args = []json.RawMessage{}
	}
	return &Context{Args: args}
}

// SetResult records the serialized return value
func (c *Context) SetResult(result json.RawMessage) {
	c.Result = result
	c.done = true
}

// Done reports whether a result has been recorded
func (c *Context) Done() bool {
	return c.done
}
