package shell_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/editorialdesk/console/authflow"
	"github.com/editorialdesk/console/backend"
	"github.com/editorialdesk/console/internal/config"
	"github.com/editorialdesk/console/menu"
	"github.com/editorialdesk/console/session"
	"github.com/editorialdesk/console/shell"
	"github.com/editorialdesk/console/views"
)

const agencyMenuBody = `{"success":true,"data":{
	"privileges":["EDIT_ARTICLE","MANAGE_USERS"],
	"other":[{"id":"articles","name":"Articles"},{"id":"users","name":"Utilisateurs"}],
	"topics":[{"id":"economie","name":"Economie"},{"id":"sport","name":"Sport"}]}}`

func agencyBackend(t *testing.T, loginBody string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			w.Write([]byte(loginBody))
		case "/auth/close":
			w.Write([]byte(`{"success":true,"data":{"userId":7,"email":"r.benali@aps.dz"}}`))
		case "/auth/verifiy":
			w.Write([]byte(`{"success":true,"data":{"userId":7,"username":"rbenali","userFirstName":"Rachid","userLastName":"Benali"}}`))
		case "/auth/resend":
			w.Write([]byte(`{"success":true}`))
		case "/auth/menu":
			w.Write([]byte(agencyMenuBody))
		case "/articles":
			w.Write([]byte(`{"success":true,"data":[
				{"privilge":"PUBLISH_ARTICLE","categories":[{"privilege":"EDIT_ECONOMY"}]},
				{"privilege":"REVIEW_ARTICLE","created_by":{"privilge":"ASSIGN_AUTHOR"}}]}`))
		case "/auth/logout":
			w.Write([]byte(`{"success":true}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"success":false,"message":"not found"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

type shellFixture struct {
	shell *shell.Shell
	store *session.Store
}

func setupShellFixture(t *testing.T, loginBody string) *shellFixture {
	t.Helper()

	agency := agencyBackend(t, loginBody)
	gw, err := backend.New(backend.Options{BaseURL: agency.URL, Logger: zerolog.Nop()})
	require.NoError(t, err)

	store := session.NewStore(session.NewInMemoryRepo(), nil, "fr", zerolog.Nop())
	flow := authflow.New(gw, store, nil, time.Minute, zerolog.Nop())

	registry := menu.NewRegistry()
	views.RegisterBuiltins(registry)
	compiler := menu.NewCompiler(registry, zerolog.Nop())

	t.Setenv("ENV", "test")
	sh := shell.New(config.New(), flow, store, gw, compiler, zerolog.Nop())
	return &shellFixture{shell: sh, store: store}
}

func (fx *shellFixture) do(t *testing.T, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	fx.shell.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// authenticate walks the whole login+OTP sequence and returns the minted
// console cookie.
func authenticate(t *testing.T, fx *shellFixture) *http.Cookie {
	t.Helper()

	rec := fx.do(t, "POST", shell.RouteLogin, `{"username":"rbenali","password":"S3cure.pass"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeResponse(t, rec)["data"].(map[string]any)
	require.Equal(t, true, data["otpPending"])
	require.Equal(t, "r.******@aps.dz", data["maskedEmail"])

	rec = fx.do(t, "POST", shell.RouteLoginOTP, `{"code":"123456"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	for _, c := range rec.Result().Cookies() {
		if c.Name == shell.SessionCookieName {
			return c
		}
	}
	t.Fatal("no session cookie minted")
	return nil
}

func TestLoginThenOTPMintsCookieAndLanding(t *testing.T) {
	fx := setupShellFixture(t, `{"success":true,"data":{"userId":7,"email":"r.benali@aps.dz"}}`)

	rec := fx.do(t, "POST", shell.RouteLogin, `{"username":"rbenali","password":"S3cure.pass"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = fx.do(t, "POST", shell.RouteLoginOTP, `{"code":"123456"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeResponse(t, rec)["data"].(map[string]any)
	require.Equal(t, "articles", data["landing"])

	var minted bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == shell.SessionCookieName && c.Value != "" {
			minted = true
		}
	}
	require.True(t, minted)
}

func TestAuthenticatedZoneRejectsMissingCookie(t *testing.T) {
	fx := setupShellFixture(t, `{"success":true,"data":{"userId":7,"email":"r.benali@aps.dz"}}`)

	rec := fx.do(t, "GET", shell.RouteSession, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	out := decodeResponse(t, rec)
	require.Equal(t, false, out["success"])
	require.Equal(t, false, out["hasSession"])
}

func TestSessionEndpointMasksEmail(t *testing.T) {
	fx := setupShellFixture(t, `{"success":true,"data":{"userId":7,"email":"r.benali@aps.dz"}}`)
	cookie := authenticate(t, fx)

	rec := fx.do(t, "GET", shell.RouteSession, "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeResponse(t, rec)["data"].(map[string]any)
	require.Equal(t, "rbenali", data["username"])
	require.Equal(t, "r.******@aps.dz", data["email"])
	require.Equal(t, "fr", data["langCode"])
}

func TestTreeServesCompiledViewsAndWildcard404(t *testing.T) {
	fx := setupShellFixture(t, `{"success":true,"data":{"userId":7,"email":"r.benali@aps.dz"}}`)
	cookie := authenticate(t, fx)

	t.Run("page view", func(t *testing.T) {
		rec := fx.do(t, "GET", "/app/articles", "", cookie)
		require.Equal(t, http.StatusOK, rec.Code)
		var page views.Page
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
		require.Equal(t, "articles", page.Resource)
	})

	t.Run("topic child view", func(t *testing.T) {
		rec := fx.do(t, "GET", "/app/economie/pool", "", cookie)
		require.Equal(t, http.StatusOK, rec.Code)
		var page views.Page
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
		require.Equal(t, "topics/pool", page.Resource)
	})

	t.Run("bare topic redirects to first child", func(t *testing.T) {
		rec := fx.do(t, "GET", "/app/economie", "", cookie)
		require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
		require.Equal(t, "/app/economie/pool", rec.Header().Get("Location"))
	})

	t.Run("root redirects to landing", func(t *testing.T) {
		rec := fx.do(t, "GET", "/app/", "", cookie)
		require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
		require.Equal(t, "/app/articles", rec.Header().Get("Location"))
	})

	t.Run("unknown tree path", func(t *testing.T) {
		rec := fx.do(t, "GET", "/app/inconnu", "", cookie)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("wildcard outside the tree", func(t *testing.T) {
		rec := fx.do(t, "GET", "/nulle-part", "", cookie)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestConflictDialogRoundTrip(t *testing.T) {
	fx := setupShellFixture(t, `{"success":true,"hasSession":true,"data":{"userId":7,"sessionId":"sess-42"}}`)

	rec := fx.do(t, "POST", shell.RouteLogin, `{"username":"rbenali","password":"S3cure.pass"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeResponse(t, rec)["data"].(map[string]any)
	require.Equal(t, true, data["conflict"])
	require.Equal(t, "sess-42", data["sessionId"])

	rec = fx.do(t, "DELETE", shell.RouteLoginCloseSession, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, fx.store.State().OTPPending)

	// A second cancel has nothing to act on.
	rec = fx.do(t, "DELETE", shell.RouteLoginCloseSession, "")
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestConflictConfirmProceedsToOTP(t *testing.T) {
	fx := setupShellFixture(t, `{"success":true,"hasSession":true,"data":{"userId":7,"sessionId":"sess-42"}}`)

	rec := fx.do(t, "POST", shell.RouteLogin, `{"username":"rbenali","password":"S3cure.pass"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = fx.do(t, "POST", shell.RouteLoginCloseSession, "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeResponse(t, rec)["data"].(map[string]any)
	require.Equal(t, true, data["otpPending"])
}

func TestAuthzEndpointGatesPrivileges(t *testing.T) {
	fx := setupShellFixture(t, `{"success":true,"data":{"userId":7,"email":"r.benali@aps.dz"}}`)
	cookie := authenticate(t, fx)

	rec := fx.do(t, "GET", "/authz/EDIT_ARTICLE", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeResponse(t, rec)["data"].(map[string]any)
	require.Equal(t, true, data["allowed"])

	rec = fx.do(t, "GET", "/authz/DELETE_EVERYTHING", "", cookie)
	data = decodeResponse(t, rec)["data"].(map[string]any)
	require.Equal(t, false, data["allowed"])
}

func TestArticlesEndpointMergesPayloadPrivileges(t *testing.T) {
	fx := setupShellFixture(t, `{"success":true,"data":{"userId":7,"email":"r.benali@aps.dz"}}`)
	cookie := authenticate(t, fx)

	// Tokens from the article payload are not granted yet.
	rec := fx.do(t, "GET", "/authz/PUBLISH_ARTICLE", "", cookie)
	data := decodeResponse(t, rec)["data"].(map[string]any)
	require.Equal(t, false, data["allowed"])

	rec = fx.do(t, "GET", shell.RouteArticles, "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	for _, privilege := range []string{"PUBLISH_ARTICLE", "EDIT_ECONOMY", "REVIEW_ARTICLE", "ASSIGN_AUTHOR"} {
		rec = fx.do(t, "GET", "/authz/"+privilege, "", cookie)
		data = decodeResponse(t, rec)["data"].(map[string]any)
		require.Equal(t, true, data["allowed"], privilege)
	}

	// The menu-granted tokens are still there.
	rec = fx.do(t, "GET", "/authz/EDIT_ARTICLE", "", cookie)
	data = decodeResponse(t, rec)["data"].(map[string]any)
	require.Equal(t, true, data["allowed"])
}

func TestLogoutDropsCookieAndClosesZone(t *testing.T) {
	fx := setupShellFixture(t, `{"success":true,"data":{"userId":7,"email":"r.benali@aps.dz"}}`)
	cookie := authenticate(t, fx)

	rec := fx.do(t, "POST", shell.RouteLogout, "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var dropped bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == shell.SessionCookieName && c.MaxAge < 0 {
			dropped = true
		}
	}
	require.True(t, dropped)

	// The cookie is still cryptographically valid but the store was cleared.
	rec = fx.do(t, "GET", shell.RouteSession, "", cookie)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSidebarAccordionKeepsOneTopicExpanded(t *testing.T) {
	fx := setupShellFixture(t, `{"success":true,"data":{"userId":7,"email":"r.benali@aps.dz"}}`)
	cookie := authenticate(t, fx)

	rec := fx.do(t, "POST", shell.RouteSidebar, `{"path":"economie"}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = fx.do(t, "POST", shell.RouteSidebar, `{"path":"sport"}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var expanded []string
	items := decodeResponse(t, rec)["data"].([]any)
	for _, raw := range items {
		item := raw.(map[string]any)
		if item["expanded"] == true {
			expanded = append(expanded, item["path"].(string))
		}
	}
	require.Equal(t, []string{"sport"}, expanded)
}
