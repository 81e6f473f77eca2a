package room

import (
	"context"
	"errors"
	"time"
)

// WaitingRoom closes a room that does not fill both seats in time.
type WaitingRoom struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func startWaitingRoom(parent context.Context, timeout time.Duration, onTimeout func()) *WaitingRoom {
	ctx, cancel := context.WithTimeout(parent, timeout)
	w := &WaitingRoom{ctx: ctx, cancel: cancel}

	go func() {
		<-ctx.Done()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			onTimeout()
		}
	}()
	return w
}

// TimeLeft reports the time until the room is closed.
func (w *WaitingRoom) TimeLeft() time.Duration {
	deadline, ok := w.ctx.Deadline()
	if !ok {
		return 0
	}
	if left := time.Until(deadline); left > 0 {
		return left
	}
	return 0
}

// Stop cancels the timeout, e.g. because the game started.
func (w *WaitingRoom) Stop() {
	w.cancel()
}
