// Package notify delivers one-shot user notifications to whoever is listening.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alkime/scribe/pkg/channels"
	"github.com/google/uuid"
)

// Kind classifies a notification for presentation.
type Kind string

const (
	KindSuccess Kind = "success"
	KindFailure Kind = "failure"
	KindInfo    Kind = "info"
)

// Notification is a user-facing message, like a toast in a web UI.
type Notification struct {
	ID      string    `json:"id"`
	Kind    Kind      `json:"kind"`
	Title   string    `json:"title"`
	Message string    `json:"message,omitempty"`
	JobID   string    `json:"jobId,omitempty"`
	At      time.Time `json:"at"`
}

// Notifier accepts notifications.
type Notifier interface {
	Notify(n Notification)
}

// Func adapts a function to Notifier.
type Func func(Notification)

// Notify calls f.
func (f Func) Notify(n Notification) {
	f(n)
}

// Discard drops every notification.
var Discard Notifier = Func(func(Notification) {})

// Success builds a success notification.
func Success(title, message string) Notification {
	return Notification{Kind: KindSuccess, Title: title, Message: message}
}

// Failure builds a failure notification.
func Failure(title, message string) Notification {
	return Notification{Kind: KindFailure, Title: title, Message: message}
}

// Info builds an informational notification.
func Info(title, message string) Notification {
	return Notification{Kind: KindInfo, Title: title, Message: message}
}

// ForJob returns a copy of n tagged with jobID.
func (n Notification) ForJob(jobID string) Notification {
	n.JobID = jobID
	return n
}

// Hub fans notifications out to any number of subscribers.
type Hub struct {
	broadcaster *channels.Broadcaster[Notification]
	input       chan<- Notification
	logger      *slog.Logger
	now         func() time.Time
	done        <-chan struct{}
}

// NewHub starts a hub that runs until ctx is done.
func NewHub(ctx context.Context, logger *slog.Logger) (*Hub, error) {
	if logger == nil {
		logger = slog.Default()
	}

	b := channels.NewBroadcaster[Notification]()
	input, err := b.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start notification hub: %w", err)
	}

	return &Hub{
		broadcaster: b,
		input:       input,
		logger:      logger.With("component", "notify"),
		now:         time.Now,
		done:        ctx.Done(),
	}, nil
}

// Notify stamps n with an ID and time and broadcasts it.
// Notifications raised after shutdown are logged and dropped.
func (h *Hub) Notify(n Notification) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.At.IsZero() {
		n.At = h.now()
	}

	h.logger.Info("Notification", "kind", n.Kind, "title", n.Title, "job_id", n.JobID)

	if err := channels.SendWithTimeout(h.input, n, time.Second); err != nil {
		h.logger.Warn("Notification dropped", "id", n.ID, "error", err)
	}
}

// Subscribe returns a channel receiving every later notification, and a
// func that ends the subscription. With a positive timeout a full channel
// gets that long to drain before a notification is dropped for it;
// otherwise it is dropped at once.
func (h *Hub) Subscribe(buffer int, timeout time.Duration) (<-chan Notification, func()) {
	if buffer <= 0 {
		buffer = 16
	}

	ch := make(chan Notification, buffer)

	var (
		unsubscribe func()
		err         error
	)
	if timeout > 0 {
		unsubscribe, err = h.broadcaster.SubscribeWithTimeout(ch, timeout)
	} else {
		unsubscribe, err = h.broadcaster.Subscribe(ch)
	}
	if err != nil {
		// only possible for a nil channel
		panic(err)
	}

	return ch, unsubscribe
}

// Done is closed once the hub is shutting down.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the hub has drained after its context is done.
func (h *Hub) Wait() {
	h.broadcaster.Wait()
}

// Dropped sums notifications dropped across current subscribers.
func (h *Hub) Dropped() int {
	total := 0
	for _, s := range h.broadcaster.Stats() {
		total += s.Dropped
	}
	return total
}
