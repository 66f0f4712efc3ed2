// Package session owns the console's credential state: the persisted,
// language-namespaced key-value session keys, the in-memory flags mirroring
// them, and the cross-tab broadcast that keeps every open tab of a language
// namespace in the same authentication state.
//
// The store is the only cross-component mutable shared resource in the
// console. Consumers never touch the repo directly; all mutation goes through
// the operations defined here.
package session

import (
	"context"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	apperrors "github.com/editorialdesk/console/internal/errors"
)

// State is the snapshot consumers read. OTPPending means credentials were
// accepted and the flow is waiting on the one-time code; IsLogged only flips
// after the code verifies.
type State struct {
	IsLogged   bool
	OTPPending bool
	UserID     int
	Email      string
	Username   string
	FirstName  string
	LastName   string
}

// Store mutates the persisted session keys atomically and mirrors them in
// memory. Each operation is all-or-nothing from the caller's perspective.
type Store struct {
	repo     Repo
	bc       *Broadcaster
	langCode string
	log      zerolog.Logger

	// OnCleared, when set, runs after ClearLocal wiped the namespace. The
	// root application uses it to return the auth flow to the credentials
	// form when the session is torn down from outside the flow itself.
	OnCleared func()

	mu    sync.Mutex // guards state and repo writes together
	state State
}

// NewStore builds a store for one language namespace. bc may be nil for
// single-tab deployments.
func NewStore(repo Repo, bc *Broadcaster, langCode string, log zerolog.Logger) *Store {
	s := &Store{
		repo:     repo,
		bc:       bc,
		langCode: langCode,
		log:      log.With().Str("component", "session").Str("lang", langCode).Logger(),
	}
	return s
}

// LangCode returns the language namespace this store is bound to.
func (s *Store) LangCode() string {
	return s.langCode
}

func (s *Store) key(name string) string {
	return name + s.langCode
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Hydrate loads the persisted keys for this language namespace into the
// in-memory state. Called once on mount so a reloaded tab resumes where it
// left off.
func (s *Store) Hydrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	read := func(name string) string {
		v, _, err := s.repo.Get(ctx, s.key(name))
		if err != nil {
			s.log.Warn().Err(err).Str("key", name).Msg("hydrate read failed")
		}
		return v
	}

	st := State{}
	st.IsLogged = read(KeyIsLogged) == "true"
	st.OTPPending = read(KeyIsExisted) == "true"
	st.UserID, _ = strconv.Atoi(read(KeyUserID))
	st.Email = read(KeyEmail)
	st.Username = read(KeyUsername)
	st.FirstName = read(KeyFirstName)
	st.LastName = read(KeyLastName)
	s.state = st
	return nil
}

// LoginSuccess records the minimal identity returned by a successful
// credentials submission and flags the OTP step as pending.
func (s *Store) LoginSuccess(ctx context.Context, userID int, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.repo.SetAll(ctx, map[string]string{
		s.key(KeyIsExisted): "true",
		s.key(KeyUserID):    strconv.Itoa(userID),
		s.key(KeyEmail):     email,
	})
	if err != nil {
		return errors.Wrap(err, "[Store.LoginSuccess] persist identity")
	}

	s.state.OTPPending = true
	s.state.UserID = userID
	s.state.Email = email
	return nil
}

// OTPBypass flips the OTP-pending flag without touching identity. Used when
// the flow re-enters the OTP step after a conflict was force-closed.
func (s *Store) OTPBypass(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.SetAll(ctx, map[string]string{s.key(KeyIsExisted): "true"}); err != nil {
		return errors.Wrap(err, "[Store.OTPBypass] persist flag")
	}
	s.state.OTPPending = true
	return nil
}

// OTPVerified records the authenticated identity and flips the logged-in
// flag. This is the only path into IsLogged=true.
func (s *Store) OTPVerified(ctx context.Context, userID int, username, firstName, lastName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.repo.SetAll(ctx, map[string]string{
		s.key(KeyIsLogged):  "true",
		s.key(KeyUserID):    strconv.Itoa(userID),
		s.key(KeyUsername):  username,
		s.key(KeyFirstName): firstName,
		s.key(KeyLastName):  lastName,
	})
	if err != nil {
		return errors.Wrap(err, "[Store.OTPVerified] persist identity")
	}

	s.state.IsLogged = true
	s.state.OTPPending = false
	s.state.UserID = userID
	s.state.Username = username
	s.state.FirstName = firstName
	s.state.LastName = lastName
	return nil
}

// ClearPendingIdentity discards the partial identity persisted between a
// login response and the OTP step. Called when a session conflict is
// canceled.
func (s *Store) ClearPendingIdentity(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked(ctx)
}

// Logout clears every persisted key in this language namespace, resets the
// in-memory state, and broadcasts the logout so other open tabs follow.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.clearLocked(ctx); err != nil {
		return err
	}

	if s.bc != nil {
		if err := s.bc.PublishLogout(ctx, s.langCode); err != nil {
			// The local clear already happened; a lost broadcast only
			// widens the staleness window for other tabs.
			s.log.Warn().Err(err).Msg("logout broadcast failed")
		}
	}
	return nil
}

// ClearLocal clears this tab's own state without re-broadcasting. Called on
// receipt of a logout message from another tab.
func (s *Store) ClearLocal(ctx context.Context) error {
	s.mu.Lock()
	err := s.clearLocked(ctx)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if s.OnCleared != nil {
		s.OnCleared()
	}
	return nil
}

func (s *Store) clearLocked(ctx context.Context) error {
	if _, err := s.repo.DeleteSuffix(ctx, s.langCode); err != nil {
		return errors.Wrap(err, "[Store.clear] delete namespaced keys")
	}
	s.state = State{}
	return nil
}

// Listen consumes the subscription until ctx is done or the subscription
// closes, clearing local state whenever a logout tagged for this language
// namespace arrives. Messages tagged for other languages are ignored.
func (s *Store) Listen(ctx context.Context, sub *Subscription) {
	want := LogoutType(s.langCode)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.C:
			if !ok {
				return
			}
			if msg.Type != want {
				continue
			}
			if err := s.ClearLocal(ctx); err != nil && !apperrors.Is(err, context.Canceled) {
				s.log.Error().Err(err).Msg("cross-tab logout clear failed")
			}
		}
	}
}
