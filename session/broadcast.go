package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const broadcastChannel = "console:auth"

// Message is the single shape carried on the broadcast channel. Type is
// "logout" followed by the language code, so a logout in one language
// namespace never tears down another's session.
type Message struct {
	Type string `json:"type"`
}

// LogoutType builds the tagged message type for a language code.
func LogoutType(langCode string) string {
	return "logout" + langCode
}

// Broadcaster fans authentication events out to every open tab of the same
// logical application instance over Redis pub/sub. Delivery is best-effort;
// a suspended tab may miss a logout until it reconnects.
type Broadcaster struct {
	rdb *redis.Client
}

// NewBroadcaster creates a broadcaster on the shared auth channel.
func NewBroadcaster(rdb *redis.Client) *Broadcaster {
	return &Broadcaster{rdb: rdb}
}

// PublishLogout announces a logout for the given language namespace.
func (b *Broadcaster) PublishLogout(ctx context.Context, langCode string) error {
	payload, err := json.Marshal(Message{Type: LogoutType(langCode)})
	if err != nil {
		return errors.Wrap(err, "[Broadcaster.PublishLogout] marshal")
	}
	if err := b.rdb.Publish(ctx, broadcastChannel, payload).Err(); err != nil {
		return errors.Wrap(err, "[Broadcaster.PublishLogout] publish")
	}
	return nil
}

// Subscription is one tab's handle on the broadcast channel. It is opened on
// mount and must be closed on teardown; Close releases the underlying
// pub/sub connection and drains C.
type Subscription struct {
	ps        *redis.PubSub
	done      chan struct{}
	closeOnce sync.Once
	C         <-chan Message
}

// Subscribe opens the channel and starts decoding messages. Undecodable
// payloads are dropped.
func (b *Broadcaster) Subscribe(ctx context.Context) (*Subscription, error) {
	ps := b.rdb.Subscribe(ctx, broadcastChannel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, errors.Wrap(err, "[Broadcaster.Subscribe] confirm subscription")
	}

	done := make(chan struct{})
	out := make(chan Message)
	go func() {
		defer close(out)
		for raw := range ps.Channel() {
			var msg Message
			if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
				continue
			}
			// The consumer may have stopped reading before it closed the
			// subscription; never stay blocked on the send.
			select {
			case out <- msg:
			case <-done:
				return
			}
		}
	}()

	return &Subscription{ps: ps, done: done, C: out}, nil
}

// Close tears the subscription down and releases the forwarding goroutine
// even when a message is pending on C.
func (s *Subscription) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return s.ps.Close()
}
