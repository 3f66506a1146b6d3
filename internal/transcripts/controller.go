// Package transcripts tracks known transcription jobs, the selected job,
// and keeps the selected job fresh until it finishes.
package transcripts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alkime/scribe/internal/notify"
	"github.com/alkime/scribe/internal/provider"
)

// DefaultPollInterval is how often a non-terminal selection is refreshed.
const DefaultPollInterval = 5 * time.Second

var (
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("transcript controller closed")
	// ErrNoSelection is returned by Retry when nothing is selected.
	ErrNoSelection = errors.New("no transcript selected")
)

// Gateway is the subset of the provider client the controller uses.
type Gateway interface {
	FetchStatus(ctx context.Context, id string) (provider.Job, error)
	ListAll(ctx context.Context) ([]provider.Job, error)
}

// Controller owns the job list, the selection and its poll loop.
// It is safe for concurrent use. Network calls run without the lock held.
type Controller struct {
	gateway   Gateway
	notifier  notify.Notifier
	logger    *slog.Logger
	interval  time.Duration
	newTicker TickerFunc
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	state State
	// generation changes on every new selection; responses carry the
	// generation they were issued under.
	generation       uint64
	listGeneration   uint64
	selectedInFlight int
	listInFlight     int
	notified         bool
	stopPoll         context.CancelFunc
	closed           bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithNotifier sets where user notifications go.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Controller) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPollInterval sets the refresh interval for a non-terminal selection.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithTicker replaces the ticker factory used by the poll loop.
func WithTicker(fn TickerFunc) Option {
	return func(c *Controller) {
		if fn != nil {
			c.newTicker = fn
		}
	}
}

// WithClock replaces time.Now for lastRefreshedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// NewController creates a controller reading from gateway.
func NewController(gateway Gateway, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())

	c := &Controller{
		gateway:   gateway,
		notifier:  notify.Discard,
		logger:    slog.Default(),
		interval:  DefaultPollInterval,
		newTicker: newRealTicker,
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.logger.With("component", "transcripts")

	return c
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state.clone()
}

// RefreshList replaces the job list with the provider's current page.
// On failure the previous list is kept.
func (c *Controller) RefreshList(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.listInFlight++
	c.state.LoadingList = true
	listGeneration := c.listGeneration
	c.mu.Unlock()

	jobs, err := c.gateway.ListAll(ctx)

	c.mu.Lock()
	c.listInFlight--
	c.state.LoadingList = c.listInFlight > 0
	if err == nil && listGeneration == c.listGeneration {
		c.state.Jobs = jobs
		c.state.LastRefreshedAt = c.now()
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Error("Error listing transcripts", "error", err)
		c.notifier.Notify(notify.Failure("Could not load transcripts", err.Error()))
		return fmt.Errorf("failed to refresh transcript list: %w", err)
	}

	c.logger.Debug("Transcript list refreshed", "count", len(jobs))

	return nil
}

// Select makes id the selected job and fetches it.
// Selecting the job that is already selected does nothing.
// An empty id clears the selection.
func (c *Controller) Select(ctx context.Context, id string) (provider.Status, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return provider.StatusUnknown, ErrClosed
	}
	if id == c.state.SelectedID {
		status := c.state.SelectedStatus
		c.mu.Unlock()
		return status, nil
	}
	c.selectLocked(id)
	c.mu.Unlock()

	if id == "" {
		return provider.StatusUnknown, nil
	}

	c.logger.Info("Transcript selected", "id", id)

	return c.RefreshSelected(ctx, id)
}

// Ingest selects a freshly submitted job with polling already on.
func (c *Controller) Ingest(ctx context.Context, id string) (provider.Status, error) {
	if id == "" {
		return provider.StatusUnknown, errors.New("failed to ingest transcript: empty id")
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return provider.StatusUnknown, ErrClosed
	}
	if id != c.state.SelectedID {
		c.selectLocked(id)
	}
	c.startPollingLocked()
	c.mu.Unlock()

	c.logger.Info("Transcript ingested", "id", id)

	return c.RefreshSelected(ctx, id)
}

// Retry fetches the current selection again, resuming polling if the job
// has not finished.
func (c *Controller) Retry(ctx context.Context) (provider.Status, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return provider.StatusUnknown, ErrClosed
	}
	id := c.state.SelectedID
	c.mu.Unlock()

	if id == "" {
		return provider.StatusUnknown, ErrNoSelection
	}

	return c.RefreshSelected(ctx, id)
}

// RefreshSelected fetches id and applies the result if id is still the
// selected job when the response arrives. It returns the status the
// provider reported.
func (c *Controller) RefreshSelected(ctx context.Context, id string) (provider.Status, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return provider.StatusUnknown, ErrClosed
	}
	generation := c.generation
	current := id != "" && id == c.state.SelectedID
	if current {
		c.selectedInFlight++
		c.state.LoadingSelected = true
	}
	c.mu.Unlock()

	job, err := c.gateway.FetchStatus(ctx, id)

	c.mu.Lock()
	if c.closed {
		c.state.LoadingSelected = false
		c.mu.Unlock()
		c.logger.Debug("Discarding response after close", "id", id)
		return provider.StatusUnknown, ErrClosed
	}
	if generation != c.generation || !current {
		c.mu.Unlock()
		c.logger.Debug("Discarding response for superseded selection", "id", id)
		if err != nil {
			return provider.StatusUnknown, err
		}
		return job.Status, nil
	}

	c.selectedInFlight--
	c.state.LoadingSelected = c.selectedInFlight > 0

	if err != nil {
		status := c.state.SelectedStatus
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			// caller gave up, leave polling as it is
			c.mu.Unlock()
			return status, err
		}

		c.state.FetchError = err.Error()
		c.stopPollingLocked()
		c.mu.Unlock()

		c.logger.Error("Error fetching transcript", "id", id, "error", err)
		c.notifier.Notify(notify.Failure("Could not load transcript", err.Error()).ForJob(id))

		return status, fmt.Errorf("failed to refresh transcript %s: %w", id, err)
	}

	c.state.FetchError = ""

	if c.state.SelectedStatus.IsTerminal() && !job.Status.IsTerminal() {
		status := c.state.SelectedStatus
		c.mu.Unlock()
		c.logger.Warn("Ignoring non-terminal status for finished transcript",
			"id", id, "status", job.Status, "current", status)
		return status, nil
	}

	c.state.SelectedStatus = job.Status
	c.state.SelectedText = job.Text
	c.state.SelectedError = job.ErrorDetail

	var note *notify.Notification
	if job.Status.IsTerminal() {
		c.stopPollingLocked()
		if !c.notified {
			c.notified = true
			n := terminalNotification(job)
			note = &n
		}
	} else {
		c.startPollingLocked()
	}
	c.mu.Unlock()

	c.logger.Debug("Transcript refreshed", "id", id, "status", job.Status)

	if note != nil {
		c.notifier.Notify(*note)
	}

	return job.Status, nil
}

// Reset drops the job list and the selection and stops polling, as when
// the credential that produced them goes away. Responses already in flight
// are discarded.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.selectLocked("")
	c.listGeneration++
	c.state.Jobs = nil
	c.state.LastRefreshedAt = time.Time{}

	c.logger.Debug("Transcript state reset")
}

// Close stops polling and waits for the poll loop to exit.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopPollingLocked()
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

func (c *Controller) selectLocked(id string) {
	c.generation++
	c.selectedInFlight = 0
	c.notified = false
	c.stopPollingLocked()

	c.state.SelectedID = id
	c.state.SelectedStatus = provider.StatusUnknown
	c.state.SelectedText = ""
	c.state.SelectedError = ""
	c.state.FetchError = ""
	c.state.LoadingSelected = false
}

func (c *Controller) startPollingLocked() {
	if c.closed {
		return
	}
	c.state.Polling = true
	if c.stopPoll != nil {
		return
	}

	ctx, cancel := context.WithCancel(c.ctx)
	c.stopPoll = cancel
	id := c.state.SelectedID

	c.wg.Go(func() {
		c.poll(ctx, id)
	})
}

// stopPollingLocked cancels the loop without waiting for it, so the loop
// itself may call it.
func (c *Controller) stopPollingLocked() {
	c.state.Polling = false
	if c.stopPoll != nil {
		c.stopPoll()
		c.stopPoll = nil
	}
}

func (c *Controller) poll(ctx context.Context, id string) {
	ticker := c.newTicker(c.interval)
	defer ticker.Stop()

	c.logger.Debug("Polling started", "id", id, "interval", c.interval)
	defer c.logger.Debug("Polling stopped", "id", id)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if ctx.Err() != nil {
				return
			}
			// errors already notified
			_, _ = c.RefreshSelected(ctx, id)
		}
	}
}

func terminalNotification(job provider.Job) notify.Notification {
	if job.Status == provider.StatusCompleted {
		return notify.Success("Transcription complete", job.FileName()).ForJob(job.ID)
	}

	detail := job.ErrorDetail
	if detail == "" {
		detail = job.FileName()
	}

	return notify.Failure("Transcription failed", detail).ForJob(job.ID)
}
