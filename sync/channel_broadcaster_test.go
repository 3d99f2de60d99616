package sync

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/engineering-resilient-systems-on-aws/AvailableTrade/logging"
)

func TestChannelBroadcaster(t *testing.T) {
	t.Parallel()

	t.Run("delivers to every subscriber", func(t *testing.T) {
		t.Parallel()

		b := NewChannelBroadcaster[string](slog.New(slog.DiscardHandler), 1)

		ch1, err := b.Subscribe("status-api")
		require.NoError(t, err)
		ch2, err := b.Subscribe("events")
		require.NoError(t, err)
		require.Equal(t, 2, b.Len())

		require.NoError(t, b.Broadcast("degraded"))
		require.Equal(t, "degraded", <-ch1)
		require.Equal(t, "degraded", <-ch2)
	})

	t.Run("duplicate subscriber", func(t *testing.T) {
		t.Parallel()

		b := NewChannelBroadcaster[string](slog.New(slog.DiscardHandler), 1)

		_, err := b.Subscribe("events")
		require.NoError(t, err)

		_, err = b.Subscribe("events")
		require.ErrorContains(t, err, "subscriber events already exists")
	})

	t.Run("full subscriber misses message", func(t *testing.T) {
		t.Parallel()

		buf := new(bytes.Buffer)
		b := NewChannelBroadcaster[string](logging.NewLoggerWithWriter(buf), 1)

		slow, err := b.Subscribe("slow")
		require.NoError(t, err)
		fast, err := b.Subscribe("fast")
		require.NoError(t, err)

		require.NoError(t, b.Broadcast("first"))
		require.Equal(t, "first", <-fast)

		err = b.Broadcast("second")
		require.Error(t, err)
		require.Len(t, multierr.Errors(err), 1)
		require.ErrorContains(t, err, "subscriber slow is full")
		require.Contains(t, buf.String(), "errors occurred while broadcasting message")

		require.Equal(t, "first", <-slow)
		require.Equal(t, "second", <-fast)
	})

	t.Run("unsubscribe closes channel", func(t *testing.T) {
		t.Parallel()

		b := NewChannelBroadcaster[int](slog.New(slog.DiscardHandler), 4)

		ch, err := b.Subscribe("events")
		require.NoError(t, err)

		b.Unsubscribe("events")
		_, open := <-ch
		require.False(t, open)
		require.Zero(t, b.Len())

		require.NotPanics(t, func() {
			b.Unsubscribe("events")
		})
		require.NoError(t, b.Broadcast(1), "no subscribers is not an error")
	})

	t.Run("close", func(t *testing.T) {
		t.Parallel()

		b := NewChannelBroadcaster[int](slog.New(slog.DiscardHandler), 0)
		require.Equal(t, 1, b.buffer)

		ch, err := b.Subscribe("events")
		require.NoError(t, err)

		b.Close()
		b.Close()

		_, open := <-ch
		require.False(t, open)

		_, err = b.Subscribe("late")
		require.ErrorIs(t, err, ErrBroadcasterClosed)
		require.ErrorIs(t, b.Broadcast(1), ErrBroadcasterClosed)
	})
}
