package submit_test

import (
	"bytes"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alkime/scribe/internal/tui/phases"
	"github.com/alkime/scribe/internal/tui/submit"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

type dial struct {
	v atomic.Int64
}

func (d *dial) Read() int       { return int(d.v.Load()) }
func (d *dial) Cap() (int, int) { return d.Read(), 100 }

func waitForString(t *testing.T, tm *teatest.TestModel, substr string) {
	t.Helper()
	teatest.WaitFor(t, tm.Output(), func(buf []byte) bool {
		return bytes.Contains(buf, []byte(substr))
	}, teatest.WithCheckInterval(20*time.Millisecond), teatest.WithDuration(3*time.Second))
}

func TestSubmit_Success(t *testing.T) {
	d := &dial{}
	release := make(chan struct{})

	m := submit.New("memo.mp3", d, func() (string, error) {
		<-release
		return "t_1", nil
	})
	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(80, 24))

	waitForString(t, tm, "Uploading memo.mp3")

	d.v.Store(40)
	waitForString(t, tm, "40/100")

	close(release)
	tm.WaitFinished(t, teatest.WithFinalTimeout(3*time.Second))

	final, ok := tm.FinalModel(t).(submit.Model)
	require.True(t, ok)
	assert.Equal(t, "t_1", final.JobID())
	require.NoError(t, final.Err())
	assert.False(t, final.Cancelled())
}

func TestSubmit_Failure(t *testing.T) {
	m := submit.New("memo.mp3", &dial{}, func() (string, error) {
		return "", errors.New("provider down")
	})
	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(80, 24))

	tm.WaitFinished(t, teatest.WithFinalTimeout(3*time.Second))

	final, ok := tm.FinalModel(t).(submit.Model)
	require.True(t, ok)
	assert.Empty(t, final.JobID())
	require.EqualError(t, final.Err(), "provider down")
}

func TestSubmit_AdvancesToNextPhase(t *testing.T) {
	m := submit.New("memo.mp3", &dial{}, func() (string, error) {
		return "t_7", nil
	}).AdvanceOnSuccess()

	flow := phases.New([]phases.Phase{
		phases.NewPhase("submit", m),
		phases.NewPhase("after", staticView("watching t_7")),
	})
	tm := teatest.NewTestModel(t, flow, teatest.WithInitialTermSize(80, 24))

	waitForString(t, tm, "watching t_7")

	tm.Send(phases.NextPhaseMsg{})
	tm.WaitFinished(t, teatest.WithFinalTimeout(3*time.Second))

	final, ok := tm.FinalModel(t).(phases.Model)
	require.True(t, ok)
	assert.Equal(t, "after", final.CurrentPhaseName())
}

type staticView string

func (s staticView) Init() tea.Cmd                       { return nil }
func (s staticView) Update(tea.Msg) (tea.Model, tea.Cmd) { return s, nil }
func (s staticView) View() string                        { return string(s) }
