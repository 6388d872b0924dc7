package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestStatusWithoutStore(t *testing.T) {
	body, ok := NewService(nil).Status(context.Background())
	assert.True(t, ok)
	assert.Equal(t, map[string]bool{"ok": true}, body)
}

func TestStatusPingsStore(t *testing.T) {
	body, ok := NewService(pingerFunc(func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return nil
	})).Status(context.Background())
	assert.True(t, ok)
	assert.True(t, body["store"])

	body, ok = NewService(pingerFunc(func(context.Context) error {
		return errors.New("connection refused")
	})).Status(context.Background())
	assert.False(t, ok)
	assert.Equal(t, map[string]bool{"ok": false, "store": false}, body)
}
