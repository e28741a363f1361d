package runtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContext(t *testing.T) {
	ctx := NewContext(nil)
	assert.NotNil(t, ctx.Args)
	assert.Empty(t, ctx.Args)
	assert.False(t, ctx.Done())

	ctx.SetResult(json.RawMessage("null"))
	assert.True(t, ctx.Done())
	assert.Equal(t, json.RawMessage("null"), ctx.Result)
}

func TestContextKeepsArgs(t *testing.T) {
	args := []json.RawMessage{json.RawMessage("1"), json.RawMessage(`"two"`)}
	ctx := NewContext(args)
	assert.Equal(t, args, ctx.Args)
}
