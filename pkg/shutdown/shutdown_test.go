package shutdown

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShutdownRunsInReverseOrderOnce(t *testing.T) {
	m := NewManager()
	var order []string
	m.OnShutdown("store", func(context.Context) error {
		order = append(order, "store")
		return nil
	})
	m.OnShutdown("http", func(context.Context) error {
		order = append(order, "http")
		return errors.New("already closed")
	})

	m.Shutdown(context.Background())
	m.Shutdown(context.Background())

	assert.Equal(t, []string{"http", "store"}, order)
}

func TestShutdownSkipsAfterDeadline(t *testing.T) {
	m := NewManager()
	called := false
	m.OnShutdown("late", func(context.Context) error {
		called = true
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m.Shutdown(ctx)
	assert.False(t, called)
}
