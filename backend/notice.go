package backend

import (
	"sync"
	"time"
)

// ExpiryNotice is the dismissible, auto-expiring notification shown when the
// backend signals a stale session. Whether the user dismisses it early or it
// times out on its own, the terminal action (full session clear + redirect to
// login) runs exactly once.
type ExpiryNotice struct {
	Message string

	once     sync.Once
	timer    *time.Timer
	terminal func()
}

func newExpiryNotice(message string, delay time.Duration, terminal func()) *ExpiryNotice {
	n := &ExpiryNotice{Message: message, terminal: terminal}
	n.timer = time.AfterFunc(delay, n.fire)
	return n
}

// Dismiss closes the notice early and triggers the terminal action.
func (n *ExpiryNotice) Dismiss() {
	if n.timer != nil {
		n.timer.Stop()
	}
	n.fire()
}

// fire is also the timer callback and must not touch n.timer: with a short
// delay it can run before newExpiryNotice assigned the field.
func (n *ExpiryNotice) fire() {
	n.once.Do(func() {
		if n.terminal != nil {
			n.terminal()
		}
	})
}
