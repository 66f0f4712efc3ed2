package shell

// Route path constants
// All console routes are defined here to ensure consistency and prevent typos
const (
	// Unauthenticated zone: credentials, conflict decision, OTP
	RouteLogin             = "/login"
	RouteLoginCloseSession = "/login/close-session"
	RouteLoginOTP          = "/login/otp"
	RouteLoginOTPResend    = "/login/otp/resend"

	// Authenticated zone
	RouteLogout   = "/logout"
	RouteSession  = "/session"
	RouteSidebar  = "/sidebar"
	RouteAuthz    = "/authz/{privilege}"
	RouteArticles = "/data/articles"

	// Compiled navigation tree is mounted under this prefix
	RouteAppPrefix = "/app/"
)

func (s *Shell) initRoutes() {
	// Unauthenticated zone
	s.RegisterRouteFunc("POST "+RouteLogin, s.LoginHandler())
	s.RegisterRouteFunc("POST "+RouteLoginCloseSession, s.ConfirmCloseSessionHandler())
	s.RegisterRouteFunc("DELETE "+RouteLoginCloseSession, s.CancelCloseSessionHandler())
	s.RegisterRouteFunc("POST "+RouteLoginOTP, s.VerifyOTPHandler())
	s.RegisterRouteFunc("POST "+RouteLoginOTPResend, s.ResendOTPHandler())

	// Authenticated zone
	s.RegisterRouteHandler("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware(s.RequireSession())...))
	s.RegisterRouteHandler("GET "+RouteSession, ChainMiddleware(s.SessionHandler(), s.APIMiddleware(s.RequireSession())...))
	s.RegisterRouteHandler("GET "+RouteSidebar, ChainMiddleware(s.SidebarHandler(), s.APIMiddleware(s.RequireSession())...))
	s.RegisterRouteHandler("POST "+RouteSidebar, ChainMiddleware(s.SidebarToggleHandler(), s.APIMiddleware(s.RequireSession())...))
	s.RegisterRouteHandler("GET "+RouteAuthz, ChainMiddleware(s.AuthzHandler(), s.APIMiddleware(s.RequireSession())...))
	s.RegisterRouteHandler("GET "+RouteArticles, ChainMiddleware(s.ArticlesHandler(), s.APIMiddleware(s.RequireSession())...))
	s.RegisterRouteHandler("GET "+RouteAppPrefix, ChainMiddleware(s.TreeHandler(), s.APIMiddleware(s.RequireSession())...))

	// Everything else is the wildcard not-found route
	s.RegisterRouteFunc("/", s.NotFoundHandler())
}
