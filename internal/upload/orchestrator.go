// Package upload drives a single audio file through submission and hands the
// new job to whoever tracks transcripts.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"strings"
	"sync"
	"time"

	"github.com/alkime/scribe/internal/notify"
	"github.com/alkime/scribe/pkg/uictl"
	"github.com/gabriel-vasile/mimetype"
)

const (
	// DefaultStep is how often synthetic progress advances.
	DefaultStep = 100 * time.Millisecond

	progressIncrement = 10
	progressCeiling   = 90
	progressDone      = 100

	sniffLen = 3072
)

var (
	// ErrNotAudio is returned for files that are not audio. No upload happens.
	ErrNotAudio = errors.New("file is not audio")
	// ErrBusy is returned when an upload is already in progress.
	ErrBusy = errors.New("an upload is already in progress")
)

// Submitter sends audio to the provider and returns the new job ID.
type Submitter interface {
	Submit(ctx context.Context, audio io.Reader, languageHint string) (string, error)
}

// SubmittedFunc is called with the ID of each successfully submitted job.
type SubmittedFunc func(ctx context.Context, jobID string)

// File is one file to upload.
type File struct {
	Name string
	// ContentType is the declared media type. Empty or
	// application/octet-stream means detect it from the content.
	ContentType string
	Language    string
	Body        io.Reader
}

// Progress is a snapshot of the current upload.
type Progress struct {
	Active   bool   `json:"active"`
	Percent  int    `json:"percent"`
	FileName string `json:"fileName,omitempty"`
	JobID    string `json:"jobId,omitempty"`
}

// Orchestrator runs uploads one at a time.
type Orchestrator struct {
	submitter   Submitter
	onSubmitted SubmittedFunc
	notifier    notify.Notifier
	logger      *slog.Logger
	step        time.Duration

	mu       sync.Mutex
	progress Progress
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithNotifier sets where user notifications go.
func WithNotifier(n notify.Notifier) Option {
	return func(o *Orchestrator) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithStep sets how often synthetic progress advances.
func WithStep(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.step = d
		}
	}
}

// NewOrchestrator creates an orchestrator. onSubmitted may be nil.
func NewOrchestrator(submitter Submitter, onSubmitted SubmittedFunc, opts ...Option) *Orchestrator {
	if onSubmitted == nil {
		onSubmitted = func(context.Context, string) {}
	}

	o := &Orchestrator{
		submitter:   submitter,
		onSubmitted: onSubmitted,
		notifier:    notify.Discard,
		logger:      slog.Default(),
		step:        DefaultStep,
	}

	for _, opt := range opts {
		opt(o)
	}

	o.logger = o.logger.With("component", "upload")

	return o
}

// Handle validates and submits f, then calls the submitted callback.
func (o *Orchestrator) Handle(ctx context.Context, f File) (string, error) {
	body, mediaType, err := detect(f)
	if err != nil {
		return "", o.fail(f, fmt.Errorf("failed to read %s: %w", f.Name, err))
	}
	if !isAudio(mediaType) {
		o.logger.Warn("Rejected non-audio file", "file", f.Name, "media_type", mediaType)
		o.notifier.Notify(notify.Failure("Not an audio file", f.Name+" is "+mediaType))
		return "", fmt.Errorf("%w: %s is %s", ErrNotAudio, f.Name, mediaType)
	}

	o.mu.Lock()
	if o.progress.Active {
		o.mu.Unlock()
		return "", ErrBusy
	}
	o.progress = Progress{Active: true, FileName: f.Name}
	o.mu.Unlock()

	o.logger.Info("Uploading file", "file", f.Name, "media_type", mediaType, "language", f.Language)

	rampCtx, stopRamp := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Go(func() {
		o.ramp(rampCtx)
	})

	jobID, err := o.submitter.Submit(ctx, body, f.Language)

	stopRamp()
	wg.Wait()

	if err != nil {
		o.mu.Lock()
		o.progress = Progress{}
		o.mu.Unlock()

		return "", o.fail(f, fmt.Errorf("failed to submit %s: %w", f.Name, err))
	}

	o.mu.Lock()
	o.progress = Progress{Percent: progressDone, FileName: f.Name, JobID: jobID}
	o.mu.Unlock()

	o.logger.Info("File submitted", "file", f.Name, "job_id", jobID)
	o.notifier.Notify(notify.Success("Upload complete", f.Name).ForJob(jobID))

	o.onSubmitted(ctx, jobID)

	return jobID, nil
}

// Progress returns the current upload progress.
func (o *Orchestrator) Progress() Progress {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.progress
}

// Dial exposes progress as a percentage out of 100.
func (o *Orchestrator) Dial() uictl.CappedDial[int] {
	return progressDial{o}
}

func (o *Orchestrator) ramp(ctx context.Context) {
	ticker := time.NewTicker(o.step)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.mu.Lock()
			if o.progress.Active && o.progress.Percent+progressIncrement <= progressCeiling {
				o.progress.Percent += progressIncrement
			}
			o.mu.Unlock()
		}
	}
}

func (o *Orchestrator) fail(f File, err error) error {
	o.logger.Error("Upload failed", "file", f.Name, "error", err)
	o.notifier.Notify(notify.Failure("Upload failed", err.Error()))
	return err
}

type progressDial struct {
	o *Orchestrator
}

func (d progressDial) Read() int {
	return d.o.Progress().Percent
}

func (d progressDial) Cap() (int, int) {
	return d.Read(), progressDone
}

// detect returns a reader over the whole file and its media type, sniffing
// the content when the declared type says nothing.
func detect(f File) (io.Reader, string, error) {
	if f.Body == nil {
		return nil, "", errors.New("no content")
	}

	declared := f.ContentType
	if parsed, _, err := mime.ParseMediaType(declared); err == nil {
		declared = parsed
	}
	if declared != "" && declared != "application/octet-stream" {
		return f.Body, declared, nil
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f.Body, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, "", err
	}
	head = head[:n]

	sniffed := mimetype.Detect(head)
	mediaType := sniffed.String()
	for m := sniffed; m != nil; m = m.Parent() {
		if isAudio(m.String()) {
			mediaType = m.String()
			break
		}
	}

	return io.MultiReader(bytes.NewReader(head), f.Body), mediaType, nil
}

func isAudio(mediaType string) bool {
	mediaType, _, _ = strings.Cut(mediaType, ";")
	return strings.HasPrefix(strings.TrimSpace(mediaType), "audio/")
}
