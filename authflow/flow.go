// Package authflow drives the authentication sequence: credentials in,
// optional concurrent-session conflict resolution, OTP verification, and the
// final authenticated state. Transitions are strictly sequential; an
// explicit Submitting state rejects re-entry while a request is in flight.
package authflow

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/editorialdesk/console/auditlog"
	"github.com/editorialdesk/console/backend"
	apperrors "github.com/editorialdesk/console/internal/errors"
	"github.com/editorialdesk/console/session"
	"github.com/editorialdesk/console/validate"
)

// State names the flow's position.
type State string

const (
	// StateAnonymous is the credentials form, before or after a failed
	// attempt.
	StateAnonymous State = "anonymous-credentials"
	// StateSubmitting covers any in-flight request; re-entry is rejected.
	StateSubmitting State = "submitting"
	// StateConflictPending waits on the user's decision about an
	// already-open session for the same identity.
	StateConflictPending State = "conflict-pending"
	// StateOtpPending waits on the one-time code.
	StateOtpPending State = "otp-pending"
	// StateAuthenticated is terminal; the shell reacts by fetching the menu.
	StateAuthenticated State = "authenticated"
)

// Credentials is a username/password pair.
type Credentials struct {
	Username string
	Password string
}

// PendingConflict is the ephemeral record of a server-reported session
// conflict. It holds the conflicting session id and the credentials that
// produced it, and exists only between the login response and the user's
// confirm/cancel decision.
type PendingConflict struct {
	SessionID string
	UserID    int
	creds     Credentials
}

type loginData struct {
	UserID    int    `json:"userId"`
	Email     string `json:"email"`
	SessionID string `json:"sessionId"`
}

type verifyData struct {
	UserID    int    `json:"userId"`
	Username  string `json:"username"`
	FirstName string `json:"userFirstName"`
	LastName  string `json:"userLastName"`
}

// Flow is the authentication state machine. It owns the resend countdown and
// the pending conflict; persisted identity lives in the session store.
type Flow struct {
	gw    *backend.Gateway
	store *session.Store
	audit *auditlog.Client
	log   zerolog.Logger

	// OnAuthenticated fires after the terminal transition; the root
	// application uses it to request the menu descriptor.
	OnAuthenticated func()

	resend *ResendTimer

	mu        sync.Mutex
	state     State
	username  string // preserved across failed attempts
	lastError string
	conflict  *PendingConflict
}

// New builds a flow in the anonymous state.
func New(gw *backend.Gateway, store *session.Store, audit *auditlog.Client, resendWindow time.Duration, log zerolog.Logger) *Flow {
	return &Flow{
		gw:     gw,
		store:  store,
		audit:  audit,
		resend: NewResendTimer(resendWindow),
		log:    log.With().Str("component", "authflow").Logger(),
		state:  StateAnonymous,
	}
}

// State returns the current flow state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// LastError returns the inline error from the most recent failed transition.
func (f *Flow) LastError() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastError
}

// Username returns the preserved username after a failed attempt.
func (f *Flow) Username() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.username
}

// Conflict returns the pending session conflict, or nil.
func (f *Flow) Conflict() *PendingConflict {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conflict
}

// ResendRemaining reports how long until the resend action unlocks.
func (f *Flow) ResendRemaining() time.Duration {
	return f.resend.Remaining()
}

// Submit runs the credentials transition. The sanitization guard runs before
// anything leaves the process: on a hit, no network call is made, a security
// audit event is emitted, and the state does not change.
func (f *Flow) Submit(ctx context.Context, creds Credentials) error {
	if f.rejectInjection(ctx, creds.Username, creds.Password) {
		return apperrors.ErrInputRejected
	}

	if err := f.enterSubmitting(StateAnonymous); err != nil {
		return err
	}

	env, err := f.gw.Do(ctx, "post", "auth/login", map[string]string{
		"username": creds.Username,
		"password": creds.Password,
	})
	if err != nil {
		return f.failSubmission(creds.Username, env, err)
	}

	var data loginData
	if err := env.DecodeData(&data); err != nil {
		return f.failSubmission(creds.Username, env, errors.Wrap(err, "[Flow.Submit] decode login data"))
	}

	if env.ConflictingSession() {
		f.mu.Lock()
		f.state = StateConflictPending
		f.username = creds.Username
		f.conflict = &PendingConflict{SessionID: data.SessionID, UserID: data.UserID, creds: creds}
		f.mu.Unlock()
		return nil
	}

	return f.enterOtpPending(ctx, creds.Username, data)
}

// ConfirmCloseSession force-closes the conflicting session with the same
// credentials and, on success, proceeds exactly as the no-conflict path.
func (f *Flow) ConfirmCloseSession(ctx context.Context) error {
	f.mu.Lock()
	if f.state != StateConflictPending || f.conflict == nil {
		f.mu.Unlock()
		return apperrors.ErrNoPendingConflict
	}
	conflict := *f.conflict
	f.conflict = nil
	f.state = StateSubmitting
	f.mu.Unlock()

	env, err := f.gw.Do(ctx, "post", "auth/close", map[string]any{
		"sessionId": conflict.SessionID,
		"userId":    conflict.UserID,
		"username":  conflict.creds.Username,
		"password":  conflict.creds.Password,
	})
	if err != nil {
		return f.failSubmission(conflict.creds.Username, env, err)
	}

	var data loginData
	if err := env.DecodeData(&data); err != nil {
		return f.failSubmission(conflict.creds.Username, env, errors.Wrap(err, "[Flow.ConfirmCloseSession] decode"))
	}
	if data.UserID == 0 {
		data.UserID = conflict.UserID
	}
	return f.enterOtpPending(ctx, conflict.creds.Username, data)
}

// CancelCloseSession aborts the conflict: partial identity is discarded and
// the flow returns to the credentials form.
func (f *Flow) CancelCloseSession(ctx context.Context) error {
	f.mu.Lock()
	if f.state != StateConflictPending {
		f.mu.Unlock()
		return apperrors.ErrNoPendingConflict
	}
	f.conflict = nil
	f.state = StateAnonymous
	f.mu.Unlock()

	if err := f.store.ClearPendingIdentity(ctx); err != nil {
		return errors.Wrap(err, "[Flow.CancelCloseSession] clear pending identity")
	}
	return nil
}

// VerifyOTP validates the code format locally, then submits it. A server
// rejection keeps the flow in the OTP step with an inline error.
func (f *Flow) VerifyOTP(ctx context.Context, code string) error {
	if !validate.OTPCode(code) {
		f.setError("Le code doit contenir exactement 6 chiffres.")
		return apperrors.ErrInvalidOTPFormat
	}
	if f.rejectInjection(ctx, code) {
		return apperrors.ErrInputRejected
	}

	if err := f.enterSubmitting(StateOtpPending); err != nil {
		return err
	}

	otpKey, _ := strconv.Atoi(code)
	env, err := f.gw.Do(ctx, "post", "auth/verifiy", map[string]any{
		"userId": f.store.State().UserID,
		"otpKey": otpKey,
	})
	if err != nil {
		// Stay on the OTP form; the code may simply be stale.
		f.mu.Lock()
		f.state = StateOtpPending
		f.lastError = messageOf(env, err)
		f.mu.Unlock()
		return apperrors.Wrapf(apperrors.ErrOTPRejected, "%s", messageOf(env, err))
	}

	var data verifyData
	if err := env.DecodeData(&data); err != nil {
		f.mu.Lock()
		f.state = StateOtpPending
		f.mu.Unlock()
		return errors.Wrap(err, "[Flow.VerifyOTP] decode verify data")
	}

	if err := f.store.OTPVerified(ctx, data.UserID, data.Username, data.FirstName, data.LastName); err != nil {
		f.mu.Lock()
		f.state = StateOtpPending
		f.mu.Unlock()
		return errors.Wrap(err, "[Flow.VerifyOTP] persist identity")
	}

	f.mu.Lock()
	f.state = StateAuthenticated
	f.lastError = ""
	f.mu.Unlock()

	if f.OnAuthenticated != nil {
		f.OnAuthenticated()
	}
	return nil
}

// ResendCode requests a fresh one-time code once the countdown elapsed, then
// restarts it. The same sanitization guard as initial submission runs over
// the persisted identity.
func (f *Flow) ResendCode(ctx context.Context) error {
	f.mu.Lock()
	if f.state != StateOtpPending {
		f.mu.Unlock()
		return apperrors.ErrInvalidTransition
	}
	f.mu.Unlock()

	if !f.resend.CanResend() {
		return apperrors.ErrResendWindowOpen
	}

	st := f.store.State()
	if f.rejectInjection(ctx, st.Email) {
		return apperrors.ErrInputRejected
	}

	env, err := f.gw.Do(ctx, "post", "auth/resend", map[string]any{"userId": st.UserID})
	if err != nil {
		f.setError(messageOf(env, err))
		return apperrors.Wrapf(err, "[Flow.ResendCode] resend")
	}

	f.resend.Start()
	f.setError("")
	return nil
}

// Logout invalidates the server session and clears local state regardless of
// the server's answer.
func (f *Flow) Logout(ctx context.Context) error {
	st := f.store.State()
	if !st.IsLogged {
		return apperrors.ErrNotLoggedIn
	}
	_, err := f.gw.Do(ctx, "post", "auth/logout", map[string]any{"userId": st.UserID})
	if err != nil {
		f.log.Warn().Err(err).Msg("server logout failed; clearing local session anyway")
	}

	f.mu.Lock()
	f.state = StateAnonymous
	f.conflict = nil
	f.lastError = ""
	f.mu.Unlock()

	return f.store.Logout(ctx)
}

// Reset force-returns the flow to the credentials form. Called when the
// session is torn down from outside the flow, a forced logout from the
// backend or a logout broadcast from another tab, so the machine never
// stays wedged in a state Submit cannot leave.
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = StateAnonymous
	f.conflict = nil
	f.lastError = ""
}

// enterSubmitting moves from the expected state into Submitting, rejecting
// duplicate in-flight submissions.
func (f *Flow) enterSubmitting(from State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateSubmitting {
		return apperrors.ErrSubmissionInFlight
	}
	if f.state != from {
		return apperrors.Wrapf(apperrors.ErrInvalidTransition, "from %s", f.state)
	}
	f.state = StateSubmitting
	f.lastError = ""
	return nil
}

// enterOtpPending persists the minimal identity and opens the OTP step.
func (f *Flow) enterOtpPending(ctx context.Context, username string, data loginData) error {
	if err := f.store.LoginSuccess(ctx, data.UserID, data.Email); err != nil {
		f.mu.Lock()
		f.state = StateAnonymous
		f.mu.Unlock()
		return errors.Wrap(err, "[Flow.enterOtpPending] persist identity")
	}

	f.mu.Lock()
	f.state = StateOtpPending
	f.username = username
	f.lastError = ""
	f.mu.Unlock()

	f.resend.Start()
	return nil
}

// failSubmission is the terminal failure transition back to the credentials
// form: inline error set, password gone (it was never retained), username
// preserved.
func (f *Flow) failSubmission(username string, env *backend.Envelope, err error) error {
	f.mu.Lock()
	f.state = StateAnonymous
	f.username = username
	f.conflict = nil
	f.lastError = messageOf(env, err)
	f.mu.Unlock()
	return err
}

// rejectInjection runs the injection heuristics over each input. On a hit it
// emits the security audit event and reports true; the caller then blocks
// the submission without a user-visible explanation.
func (f *Flow) rejectInjection(ctx context.Context, inputs ...string) bool {
	for _, input := range inputs {
		if kind := validate.CheckInjection(input); kind != validate.InjectionNone {
			f.log.Warn().Str("kind", string(kind)).Msg("submission blocked by injection guard")
			if f.audit != nil {
				f.audit.SecurityEvent(ctx, "Injection pattern in authentication form input")
			}
			return true
		}
	}
	return false
}

func (f *Flow) setError(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastError = msg
}

func messageOf(env *backend.Envelope, err error) string {
	if env != nil && env.Message != "" {
		return env.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
