// Package shell is the console's outer surface: the route table, the
// login/OTP zone, the compiled navigation tree mounted under /app/, and the
// signed session cookie that fences the authenticated zone.
package shell

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/editorialdesk/console/authflow"
	"github.com/editorialdesk/console/authz"
	"github.com/editorialdesk/console/backend"
	"github.com/editorialdesk/console/internal/config"
	apperrors "github.com/editorialdesk/console/internal/errors"
	"github.com/editorialdesk/console/menu"
	"github.com/editorialdesk/console/session"
)

type Shell struct {
	env      string // Environment (e.g., "DEV", "production")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	flow     *authflow.Flow
	store    *session.Store
	gw       *backend.Gateway
	compiler *menu.Compiler
	tokens   *TokenMinter
	log      zerolog.Logger

	navLock sync.RWMutex
	privs   authz.PrivilegeSet
	sidebar *Sidebar
}

func New(cfg config.Config, flow *authflow.Flow, store *session.Store, gw *backend.Gateway, compiler *menu.Compiler, logger zerolog.Logger) *Shell {
	s := &Shell{
		mux:      http.NewServeMux(),
		config:   cfg,
		flow:     flow,
		store:    store,
		gw:       gw,
		compiler: compiler,
		tokens:   NewTokenMinter(cfg),
		log:      logger.With().Str("component", "shell").Logger(),
		privs:    authz.NewPrivilegeSet(nil),
	}
	s.env = cfg.GetEnv()

	// The terminal auth transition pulls the menu before the OTP response is
	// written, so the landing route is known by the time the client asks.
	flow.OnAuthenticated = func() {
		if err := s.RefreshMenu(context.Background()); err != nil {
			s.log.Error().Err(err).Msg("menu refresh after authentication failed")
		}
	}

	s.initRoutes()
	s.logRoutes()
	return s
}

func (s *Shell) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Shell) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Shell) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// RefreshMenu pulls the privilege+menu payload for the logged-in user,
// recompiles the navigation tree and rebuilds the sidebar model.
func (s *Shell) RefreshMenu(ctx context.Context) error {
	st := s.store.State()
	env, err := s.gw.Do(ctx, "post", "auth/menu", map[string]any{"userId": st.UserID})
	if err != nil {
		return err
	}

	var d menu.Descriptor
	if err := env.DecodeData(&d); err != nil {
		return err
	}
	if d.Len() == 0 {
		return apperrors.ErrEmptyMenu
	}

	tree, err := s.compiler.Compile(d)
	if err != nil {
		return err
	}

	s.navLock.Lock()
	s.privs = authz.NewPrivilegeSet(d.Privileges)
	s.sidebar = NewSidebar(tree)
	s.navLock.Unlock()
	return nil
}

func (s *Shell) privileges() authz.PrivilegeSet {
	s.navLock.RLock()
	defer s.navLock.RUnlock()
	return s.privs
}

func (s *Shell) currentSidebar() *Sidebar {
	s.navLock.RLock()
	defer s.navLock.RUnlock()
	return s.sidebar
}

func (s *Shell) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Printf("[%-19s] %s\n", displayMethod, path)
}
