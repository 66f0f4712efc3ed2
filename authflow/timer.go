package authflow

import (
	"sync"
	"time"
)

// ResendTimer gates the "resend code" action behind a fixed countdown
// window. Restart is cancel-and-reschedule: the deadline simply moves, the
// only real cancellation semantic in the console.
type ResendTimer struct {
	mu       sync.Mutex
	window   time.Duration
	deadline time.Time
	nowTime  func() time.Time
}

// NewResendTimer creates a stopped timer with the given window.
func NewResendTimer(window time.Duration) *ResendTimer {
	return &ResendTimer{window: window, nowTime: time.Now}
}

// Start opens (or reopens) the countdown from now.
func (t *ResendTimer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deadline = t.nowTime().Add(t.window)
}

// CanResend reports whether the window has elapsed.
func (t *ResendTimer) CanResend() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.nowTime().Before(t.deadline)
}

// Remaining returns how much of the window is left, floored at zero.
func (t *ResendTimer) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	left := t.deadline.Sub(t.nowTime())
	if left < 0 {
		return 0
	}
	return left
}
