// Package channels holds generic helpers for fanning messages out over Go channels.
package channels

import (
	"errors"
	"time"
)

// Send errors.
var (
	ErrChannelClosed  = errors.New("channel closed")
	ErrChannelTimeout = errors.New("send timeout")
	ErrChannelFull    = errors.New("channel full")
)

// SendNonBlock attempts to send a message without blocking.
// Returns ErrChannelFull if nobody can take it, ErrChannelClosed if ch is closed.
func SendNonBlock[T any](ch chan<- T, msg T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrChannelClosed
		}
	}()

	select {
	case ch <- msg:
		return nil
	default:
		return ErrChannelFull
	}
}

// SendWithTimeout sends a message, giving up after timeout.
func SendWithTimeout[T any](ch chan<- T, msg T, timeout time.Duration) (err error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	defer func() {
		if r := recover(); r != nil {
			err = ErrChannelClosed
		}
	}()

	select {
	case ch <- msg:
		return nil
	case <-timer.C:
		return ErrChannelTimeout
	}
}
