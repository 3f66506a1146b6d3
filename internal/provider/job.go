package provider

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// Status is a job's state as reported by the provider.
// Values outside the known set are kept verbatim and treated as non-terminal.
type Status string

const (
	// StatusUnknown means no status has been fetched yet.
	StatusUnknown Status = ""
	// StatusQueued means the job is waiting to be processed.
	StatusQueued Status = "queued"
	// StatusProcessing means the job is being transcribed.
	StatusProcessing Status = "processing"
	// StatusCompleted means the transcript text is available.
	StatusCompleted Status = "completed"
	// StatusError means the provider gave up on the job.
	StatusError Status = "error"
)

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Label returns a human-readable badge for the status.
func (s Status) Label() string {
	switch s {
	case StatusCompleted:
		return "Completed"
	case StatusProcessing:
		return "Processing"
	case StatusQueued:
		return "Queued"
	case StatusError:
		return "Error"
	case StatusUnknown:
		return "Unknown"
	default:
		return string(s)
	}
}

// Job is one transcription request and its result.
type Job struct {
	ID          string    `json:"id"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	SourceRef   string    `json:"sourceRef"`
	Text        string    `json:"text,omitempty"`
	ErrorDetail string    `json:"errorDetail,omitempty"`
}

// FileName derives a display name from the source reference.
func (j Job) FileName() string {
	ref := strings.TrimRight(j.SourceRef, "/")
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}

	if name := path.Base(ref); ref != "" && name != "." && name != "/" {
		return name
	}

	return j.ID
}

// CreatedAgo describes the creation time relative to now, or "unknown date"
// when the provider sent none.
func (j Job) CreatedAgo(now time.Time) string {
	if j.CreatedAt.IsZero() {
		return "unknown date"
	}

	d := now.Sub(j.CreatedAt)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute") + " ago"
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hour") + " ago"
	case d < 30*24*time.Hour:
		return plural(int(d/(24*time.Hour)), "day") + " ago"
	default:
		return j.CreatedAt.Format("Jan 2, 2006")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// createdLayouts covers the timestamp shapes the provider emits.
var createdLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseCreated(s string) time.Time {
	for _, layout := range createdLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// transcriptPayload is the provider's transcript and list-item shape.
type transcriptPayload struct {
	ID       string  `json:"id"`
	Status   string  `json:"status"`
	AudioURL string  `json:"audio_url"`
	Created  string  `json:"created"`
	Text     *string `json:"text"`
	Error    *string `json:"error"`
}

// normalize maps provider field names onto Job and enforces that text only
// accompanies completed jobs and error details only accompany failed ones.
func normalize(p transcriptPayload) Job {
	job := Job{
		ID:        p.ID,
		Status:    Status(p.Status),
		CreatedAt: parseCreated(p.Created),
		SourceRef: p.AudioURL,
	}

	switch job.Status {
	case StatusCompleted:
		if p.Text != nil {
			job.Text = *p.Text
		}
	case StatusError:
		if p.Error != nil {
			job.ErrorDetail = *p.Error
		}
	}

	return job
}
