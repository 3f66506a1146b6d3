package transcripts

import (
	"slices"
	"time"

	"github.com/alkime/scribe/internal/provider"
)

// State is a point-in-time copy of what the controller is showing.
type State struct {
	Jobs            []provider.Job  `json:"jobs"`
	SelectedID      string          `json:"selectedId,omitempty"`
	SelectedStatus  provider.Status `json:"selectedStatus,omitempty"`
	SelectedText    string          `json:"selectedText,omitempty"`
	SelectedError   string          `json:"selectedError,omitempty"`
	FetchError      string          `json:"fetchError,omitempty"`
	LoadingList     bool            `json:"loadingList"`
	LoadingSelected bool            `json:"loadingSelected"`
	LastRefreshedAt time.Time       `json:"lastRefreshedAt"`
	Polling         bool            `json:"polling"`
}

// HasSelection reports whether a job is selected.
func (s State) HasSelection() bool {
	return s.SelectedID != ""
}

// Terminal reports whether the selected job has finished.
func (s State) Terminal() bool {
	return s.SelectedStatus.IsTerminal()
}

func (s State) clone() State {
	s.Jobs = slices.Clone(s.Jobs)
	return s
}

// Ticker is the part of time.Ticker the poll loop needs.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

// TickerFunc creates a Ticker firing every d.
type TickerFunc func(d time.Duration) Ticker

type realTicker struct {
	*time.Ticker
}

func (t realTicker) Chan() <-chan time.Time {
	return t.C
}

func newRealTicker(d time.Duration) Ticker {
	return realTicker{time.NewTicker(d)}
}
