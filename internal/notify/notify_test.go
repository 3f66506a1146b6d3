package notify_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alkime/scribe/internal/notify"
	"github.com/alkime/scribe/pkg/channels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub, err := notify.NewHub(ctx, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	a, unsubA := hub.Subscribe(4, 0)
	b, unsubB := hub.Subscribe(4, 0)
	defer unsubB()

	hub.Notify(notify.Success("Transcript ready", "").ForJob("t_1"))

	gotA := channels.ReceiveAll(a, 100*time.Millisecond, 1)
	gotB := channels.ReceiveAll(b, 100*time.Millisecond, 1)
	require.Len(t, gotA, 1)
	require.Len(t, gotB, 1)

	n := gotA[0]
	assert.Equal(t, notify.KindSuccess, n.Kind)
	assert.Equal(t, "t_1", n.JobID)
	assert.NotEmpty(t, n.ID, "hub assigns an id")
	assert.False(t, n.At.IsZero(), "hub stamps the time")
	assert.Equal(t, n.ID, gotB[0].ID)

	unsubA()
	hub.Notify(notify.Info("second", ""))

	assert.Empty(t, channels.ReceiveAll(a, 20*time.Millisecond, 0))
	assert.Len(t, channels.ReceiveAll(b, 100*time.Millisecond, 1), 1)
}

func TestHub_NotifyAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	hub, err := notify.NewHub(ctx, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	cancel()
	hub.Wait()

	select {
	case <-hub.Done():
	default:
		t.Fatal("hub not done after its context ended")
	}

	assert.NotPanics(t, func() {
		hub.Notify(notify.Failure("late", ""))
	})
}

func TestHub_SlowSubscriberDrops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub, err := notify.NewHub(ctx, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	slow, unsubscribe := hub.Subscribe(1, 10*time.Millisecond)
	defer unsubscribe()

	hub.Notify(notify.Info("first", ""))
	hub.Notify(notify.Info("second", ""))

	assert.Eventually(t, func() bool { return hub.Dropped() == 1 },
		time.Second, 5*time.Millisecond, "second notification should time out")

	got := channels.ReceiveAll(slow, 50*time.Millisecond, 0)
	require.Len(t, got, 1)
	assert.Equal(t, "first", got[0].Title)
}

func TestFunc(t *testing.T) {
	var got []notify.Notification
	var n notify.Notifier = notify.Func(func(x notify.Notification) { got = append(got, x) })

	n.Notify(notify.Failure("boom", "detail"))

	require.Len(t, got, 1)
	assert.Equal(t, notify.KindFailure, got[0].Kind)
	assert.Equal(t, "detail", got[0].Message)
}
