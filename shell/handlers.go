package shell

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/editorialdesk/console/authflow"
	"github.com/editorialdesk/console/authz"
	"github.com/editorialdesk/console/backend"
	apperrors "github.com/editorialdesk/console/internal/errors"
	"github.com/editorialdesk/console/internal/utils"
	"github.com/editorialdesk/console/menu"
	"github.com/editorialdesk/console/validate"
)

// response is the envelope every console endpoint answers with, mirroring
// the upstream backend's contract so the frontend handles both uniformly.
type response struct {
	Success    bool   `json:"success"`
	HasSession *bool  `json:"hasSession,omitempty"`
	Message    string `json:"message,omitempty"`
	Data       any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, response{Success: false, Message: message})
}

func writeExpired(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, response{
		Success:    false,
		HasSession: utils.Ptr(false),
		Message:    "session expirée",
	})
}

// LoginHandler runs the credentials transition. The response tells the
// frontend which screen comes next: the conflict dialog or the OTP form.
func (s *Shell) LoginHandler() http.HandlerFunc {
	type request struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "requête invalide")
			return
		}

		err := s.flow.Submit(r.Context(), authflow.Credentials{Username: req.Username, Password: req.Password})
		switch {
		case err == nil:
		case apperrors.Is(err, apperrors.ErrInputRejected):
			// A blocked submission looks like a plain rejection to the
			// caller; the details went to the audit log.
			writeError(w, http.StatusBadRequest, "saisie invalide")
			return
		case apperrors.Is(err, apperrors.ErrSubmissionInFlight) || apperrors.Is(err, apperrors.ErrRequestInFlight):
			writeError(w, http.StatusConflict, "une soumission est déjà en cours")
			return
		default:
			writeError(w, http.StatusUnauthorized, s.flow.LastError())
			return
		}

		if conflict := s.flow.Conflict(); conflict != nil {
			writeJSON(w, http.StatusOK, response{Success: true, Data: map[string]any{
				"conflict":  true,
				"sessionId": conflict.SessionID,
			}})
			return
		}
		s.writeOTPPending(w)
	}
}

// ConfirmCloseSessionHandler force-closes the conflicting session and moves
// on to the OTP step.
func (s *Shell) ConfirmCloseSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := s.flow.ConfirmCloseSession(r.Context())
		switch {
		case err == nil:
			s.writeOTPPending(w)
		case apperrors.Is(err, apperrors.ErrNoPendingConflict):
			writeError(w, http.StatusConflict, "aucune session en conflit")
		default:
			writeError(w, http.StatusUnauthorized, s.flow.LastError())
		}
	}
}

// CancelCloseSessionHandler aborts the conflict and returns to the
// credentials screen.
func (s *Shell) CancelCloseSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := s.flow.CancelCloseSession(r.Context())
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, response{Success: true})
		case apperrors.Is(err, apperrors.ErrNoPendingConflict):
			writeError(w, http.StatusConflict, "aucune session en conflit")
		default:
			writeError(w, http.StatusInternalServerError, "erreur interne")
		}
	}
}

// VerifyOTPHandler checks the code and, on success, mints the console
// session cookie and returns the landing route of the freshly compiled tree.
func (s *Shell) VerifyOTPHandler() http.HandlerFunc {
	type request struct {
		Code string `json:"code"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "requête invalide")
			return
		}

		err := s.flow.VerifyOTP(r.Context(), req.Code)
		switch {
		case err == nil:
		case apperrors.Is(err, apperrors.ErrInvalidOTPFormat):
			writeError(w, http.StatusBadRequest, s.flow.LastError())
			return
		case apperrors.Is(err, apperrors.ErrInputRejected):
			writeError(w, http.StatusBadRequest, "saisie invalide")
			return
		case apperrors.Is(err, apperrors.ErrOTPRejected):
			writeError(w, http.StatusUnauthorized, s.flow.LastError())
			return
		default:
			writeError(w, http.StatusInternalServerError, "erreur interne")
			return
		}

		token, err := s.tokens.Mint(s.store.State(), s.store.LangCode())
		if err != nil {
			s.log.Error().Err(err).Msg("minting session cookie failed")
			writeError(w, http.StatusInternalServerError, "erreur interne")
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookieName,
			Value:    token,
			Path:     "/",
			MaxAge:   int(s.config.GetMaxSessionAge() / time.Second),
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
		})

		landing, _ := menu.Landing(s.compiler.Tree())
		writeJSON(w, http.StatusOK, response{Success: true, Data: map[string]any{
			"landing": landing,
		}})
	}
}

// ResendOTPHandler requests a fresh code once the countdown elapsed.
func (s *Shell) ResendOTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := s.flow.ResendCode(r.Context())
		switch {
		case err == nil:
			s.writeOTPPending(w)
		case apperrors.Is(err, apperrors.ErrResendWindowOpen):
			writeJSON(w, http.StatusTooManyRequests, response{
				Success: false,
				Message: "veuillez patienter avant de renvoyer le code",
				Data: map[string]any{
					"retryAfter": int(s.flow.ResendRemaining() / time.Second),
				},
			})
		case apperrors.Is(err, apperrors.ErrInvalidTransition):
			writeError(w, http.StatusConflict, "aucune vérification en cours")
		default:
			writeError(w, http.StatusUnauthorized, s.flow.LastError())
		}
	}
}

// LogoutHandler invalidates the server session, clears local state and
// drops the console cookie.
func (s *Shell) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.flow.Logout(r.Context()); err != nil {
			if apperrors.Is(err, apperrors.ErrNotLoggedIn) {
				writeExpired(w)
				return
			}
			s.log.Error().Err(err).Msg("logout failed")
			writeError(w, http.StatusInternalServerError, "erreur interne")
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
		})
		writeJSON(w, http.StatusOK, response{Success: true})
	}
}

// SessionHandler describes the logged-in identity. The email goes out
// masked; the full address never leaves the console.
func (s *Shell) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := s.store.State()
		writeJSON(w, http.StatusOK, response{Success: true, Data: map[string]any{
			"username":   st.Username,
			"firstName":  st.FirstName,
			"lastName":   st.LastName,
			"email":      validate.MaskEmail(st.Email),
			"langCode":   s.store.LangCode(),
			"privileges": s.privileges().List(),
		}})
	}
}

// SidebarHandler returns the accordion model.
func (s *Shell) SidebarHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sidebar := s.currentSidebar()
		if sidebar == nil {
			writeJSON(w, http.StatusOK, response{Success: true, Data: []SidebarItem{}})
			return
		}
		writeJSON(w, http.StatusOK, response{Success: true, Data: sidebar.Items()})
	}
}

// SidebarToggleHandler expands or collapses a topic group.
func (s *Shell) SidebarToggleHandler() http.HandlerFunc {
	type request struct {
		Path string `json:"path"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "requête invalide")
			return
		}

		sidebar := s.currentSidebar()
		if sidebar == nil {
			writeError(w, http.StatusConflict, "menu non chargé")
			return
		}
		sidebar.Toggle(req.Path)
		writeJSON(w, http.StatusOK, response{Success: true, Data: sidebar.Items()})
	}
}

// ArticlesHandler proxies the article listing. Privilege tokens riding on
// the payload (on the articles, their categories, topics and creators) are
// folded into the live set, so capabilities granted per-article take effect
// without a menu refresh.
func (s *Shell) ArticlesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		env, err := s.gw.Do(r.Context(), "get", "articles", nil)
		switch {
		case err == nil:
		case apperrors.Is(err, apperrors.ErrRequestInFlight):
			writeError(w, http.StatusConflict, "une requête est déjà en cours")
			return
		case apperrors.Is(err, apperrors.ErrSessionLost) || apperrors.Is(err, apperrors.ErrNoResponse):
			writeExpired(w)
			return
		default:
			writeError(w, http.StatusBadGateway, messageOf(env))
			return
		}

		if extracted := authz.ExtractFromArticles(env.Data); len(extracted) > 0 {
			s.navLock.Lock()
			s.privs.Merge(extracted)
			s.navLock.Unlock()
		}

		writeJSON(w, http.StatusOK, response{Success: true, Data: json.RawMessage(env.Data)})
	}
}

// AuthzHandler answers whether the current user may render a privileged
// element. The frontend uses it to show or hide actions.
func (s *Shell) AuthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		privilege := r.PathValue("privilege")
		writeJSON(w, http.StatusOK, response{Success: true, Data: map[string]any{
			"privilege": privilege,
			"allowed":   s.privileges().CanRender(privilege),
		}})
	}
}

// TreeHandler dispatches requests under /app/ against the compiled
// navigation tree. Entries whose view did not resolve stay listed in the
// sidebar but answer not-found here.
func (s *Shell) TreeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rel := strings.Trim(strings.TrimPrefix(r.URL.Path, RouteAppPrefix), "/")
		if rel == "" {
			landing, ok := menu.Landing(s.compiler.Tree())
			if !ok {
				writeJSON(w, http.StatusOK, response{Success: true, Message: "chargement"})
				return
			}
			http.Redirect(w, r, RouteAppPrefix+landing, http.StatusTemporaryRedirect)
			return
		}

		segments := strings.SplitN(rel, "/", 2)
		for _, route := range s.compiler.Tree() {
			if route.Path != segments[0] {
				continue
			}
			if route.IsTopic {
				if len(segments) < 2 {
					// Bare topic path: descend into its first child.
					if len(route.Children) > 0 {
						http.Redirect(w, r, RouteAppPrefix+route.Path+"/"+route.Children[0].Path, http.StatusTemporaryRedirect)
						return
					}
					break
				}
				for _, child := range route.Children {
					if child.Path == segments[1] {
						s.serveView(w, r, child.View)
						return
					}
				}
				break
			}
			if len(segments) > 1 {
				break
			}
			s.serveView(w, r, route.View)
			return
		}
		writeError(w, http.StatusNotFound, "page introuvable")
	}
}

func (s *Shell) serveView(w http.ResponseWriter, r *http.Request, view http.Handler) {
	if view == nil {
		writeError(w, http.StatusNotFound, "page non disponible")
		return
	}
	view.ServeHTTP(w, r)
}

// NotFoundHandler is the wildcard route for anything outside the login zone
// and the mounted tree.
func (s *Shell) NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "page introuvable")
	}
}

func messageOf(env *backend.Envelope) string {
	if env != nil && env.Message != "" {
		return env.Message
	}
	return "erreur interne"
}

func (s *Shell) writeOTPPending(w http.ResponseWriter) {
	st := s.store.State()
	writeJSON(w, http.StatusOK, response{Success: true, Data: map[string]any{
		"otpPending":  true,
		"maskedEmail": validate.MaskEmail(st.Email),
		"resendAfter": int(s.flow.ResendRemaining() / time.Second),
	}})
}
