// Package backend is the request gateway to the editorial REST API. It issues
// credentialed JSON calls, tracks {response, loading, error} state for its
// consumers, and centralizes the session-expiry handling every endpoint
// shares: a Logout flag or a transport-level failure converges on a full
// session clear, a HasSession=false flag raises the expiry notice first.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	apperrors "github.com/editorialdesk/console/internal/errors"
)

// SessionLossHandler is invoked when the gateway decides the session is gone:
// an explicit Logout flag, an expired-session notice running out, or no
// response from the server at all. Implementations clear persisted session
// state and redirect to the login route.
type SessionLossHandler func(reason string)

const (
	// ReasonForcedLogout is reported when the backend flags logout:true.
	ReasonForcedLogout = "forced-logout"
	// ReasonSessionExpired is reported when the expiry notice converges.
	ReasonSessionExpired = "session-expired"
	// ReasonNoResponse is reported on transport-level failure. Any network
	// failure counts as session loss; only the audit log path is exempt.
	ReasonNoResponse = "no-response"
)

// Options configures a Gateway.
type Options struct {
	BaseURL       string
	Timeout       time.Duration
	ExpiryDelay   time.Duration
	OnSessionLoss SessionLossHandler
	Logger        zerolog.Logger
}

// Gateway issues credentialed calls against the backend and exposes the state
// of the most recent request. A Gateway is owned by a single flow; the
// in-flight guard rejects overlapping submissions rather than queueing them.
type Gateway struct {
	baseURL     string
	client      *http.Client
	expiryDelay time.Duration
	onLoss      SessionLossHandler
	log         zerolog.Logger

	mu       sync.Mutex
	loading  bool
	response *Envelope
	errMsg   string
	notice   *ExpiryNotice
}

// New builds a Gateway. The underlying client carries a cookie jar so the
// backend's session cookie rides along with every call.
func New(opts Options) (*Gateway, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("[backend.New] BaseURL is required")
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "[backend.New] cookiejar")
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	expiryDelay := opts.ExpiryDelay
	if expiryDelay == 0 {
		expiryDelay = 5 * time.Second
	}
	return &Gateway{
		baseURL:     strings.TrimSuffix(opts.BaseURL, "/") + "/",
		client:      &http.Client{Jar: jar, Timeout: timeout},
		expiryDelay: expiryDelay,
		onLoss:      opts.OnSessionLoss,
		log:         opts.Logger.With().Str("component", "gateway").Logger(),
	}, nil
}

// State returns the observable request state: whether a call is in flight,
// the last decoded envelope, and the last user-facing error message.
func (g *Gateway) State() (loading bool, last *Envelope, errMsg string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loading, g.response, g.errMsg
}

// Reset clears the response, loading and error state.
func (g *Gateway) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.response = nil
	g.errMsg = ""
	g.loading = false
}

// Notice returns the currently displayed expiry notice, if any.
func (g *Gateway) Notice() *ExpiryNotice {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.notice
}

// Do issues a credentialed JSON request against the backend. path is relative
// to the base URL ("auth/login"). The returned envelope is also retained as
// the gateway's observable state.
func (g *Gateway) Do(ctx context.Context, method, path string, body any) (*Envelope, error) {
	if err := g.begin(); err != nil {
		return nil, err
	}
	env, err := g.roundTrip(ctx, method, path, body)
	g.finish(env, err)
	return env, err
}

// begin flips the loading flag, rejecting overlapping submissions.
func (g *Gateway) begin() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.loading {
		return apperrors.ErrRequestInFlight
	}
	g.loading = true
	g.errMsg = ""
	return nil
}

func (g *Gateway) finish(env *Envelope, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.loading = false
	g.response = env
	if err != nil && env != nil && env.Message != "" {
		g.errMsg = env.Message
	} else if err != nil {
		g.errMsg = err.Error()
	}
}

func (g *Gateway) roundTrip(ctx context.Context, method, path string, body any) (*Envelope, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "[Gateway.Do] marshal body")
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "[Gateway.Do] build request")
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := g.client.Do(req)
	if err != nil {
		// No response received at all: treated as unrecoverable session
		// loss regardless of which call failed.
		g.log.Error().Str("path", path).Err(err).Msg("no response from server")
		g.sessionLost(ReasonNoResponse)
		return nil, apperrors.ErrNoResponse
	}
	defer res.Body.Close()

	env := &Envelope{}
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrap(err, "[Gateway.Do] read body")
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, env); err != nil {
			return nil, errors.Wrap(err, "[Gateway.Do] decode envelope")
		}
	}

	if res.StatusCode >= 200 && res.StatusCode < 300 && env.Success {
		return env, nil
	}

	g.log.Debug().Str("path", path).Int("status", res.StatusCode).Str("message", env.Message).Msg("backend rejected request")

	if env.Logout {
		g.sessionLost(ReasonForcedLogout)
		return env, apperrors.ErrSessionLost
	}
	if env.SessionExpired() {
		g.raiseExpiryNotice(env.Message)
		return env, apperrors.ErrSessionLost
	}
	return env, apperrors.ErrBackendRejected
}

// raiseExpiryNotice shows the expiry notification. Only one notice is live at
// a time; a second stale response while one is displayed does not schedule a
// second clear.
func (g *Gateway) raiseExpiryNotice(message string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.notice != nil {
		return
	}
	g.notice = newExpiryNotice(message, g.expiryDelay, func() {
		g.mu.Lock()
		g.notice = nil
		g.mu.Unlock()
		g.sessionLost(ReasonSessionExpired)
	})
}

func (g *Gateway) sessionLost(reason string) {
	if g.onLoss != nil {
		g.onLoss(reason)
	}
}
