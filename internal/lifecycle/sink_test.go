package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChanSink_DeliverAfterClose(t *testing.T) {
	sink := NewChanSink[int](4)
	require.NoError(t, sink.Deliver(context.Background(), 1))

	sink.Close()
	sink.Close()

	err := sink.Deliver(context.Background(), 2)
	assert.ErrorIs(t, err, ErrDeliveryClosed)
	assert.Equal(t, 1, <-sink.Events())
}

func TestChanSink_BlockedDeliverUnblocksOnClose(t *testing.T) {
	sink := NewChanSink[int](0)

	errCh := make(chan error, 1)
	go func() {
		errCh <- sink.Deliver(context.Background(), 1)
	}()

	select {
	case err := <-errCh:
		t.Fatalf("deliver returned early: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	sink.Close()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrDeliveryClosed)
	case <-time.After(time.Second):
		t.Fatal("deliver did not unblock after close")
	}
}

func TestChanSink_DeliverRespectsContext(t *testing.T) {
	sink := NewChanSink[int](0)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := sink.Deliver(ctx, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrDeliveryClosed)
}

func TestSinkFunc(t *testing.T) {
	var got []string
	sink := SinkFunc[string](func(_ context.Context, ev string) error {
		got = append(got, ev)
		return nil
	})
	require.NoError(t, sink.Deliver(context.Background(), "a"))
	require.NoError(t, sink.Deliver(context.Background(), "b"))
	assert.Equal(t, []string{"a", "b"}, got)
}
