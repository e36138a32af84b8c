package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igormartsekha/saas-starter-kit/internal/adapters/db/sqlite"
	"github.com/igormartsekha/saas-starter-kit/internal/application"
	"github.com/igormartsekha/saas-starter-kit/internal/ui"
)

func newTestRouter(t *testing.T, settings application.Settings, opts Options) (http.Handler, *application.Service) {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "router_test.db"))
	require.NoError(t, err)
	require.NoError(t, sqlite.RunMigrations(context.Background(), db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	svc := application.NewService(sqlite.NewRepository(db), settings, nil)
	skin, err := ui.New(ui.VersionPlain)
	require.NoError(t, err)
	return NewRouter(svc, skin, opts), svc
}

func doJSON(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Error.Message
}

// signUp registers a user with a team and returns an API token.
func signUp(t *testing.T, h http.Handler, email, team string) string {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/auth/join", "",
		`{"name":"Jane","email":"`+email+`","password":"password123","team":"`+team+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodPost, "/api/auth/login", "",
		`{"email":"`+email+`","password":"password123","tokenName":"test"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var env struct {
		Data apiLoginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NotEmpty(t, env.Data.Token)
	return env.Data.Token
}

func TestMethodNotAllowedListsAllowedMethods(t *testing.T) {
	h, _ := newTestRouter(t, application.DefaultSettings(), Options{})

	rec := doJSON(t, h, http.MethodPost, "/api/users", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET, PUT", rec.Header().Get("Allow"))
	assert.Equal(t, "Method POST Not Allowed", errorMessage(t, rec))
}

func TestAPIRequiresAuthentication(t *testing.T) {
	h, _ := newTestRouter(t, application.DefaultSettings(), Options{})

	rec := doJSON(t, h, http.MethodGet, "/api/teams", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", errorMessage(t, rec))

	rec = doJSON(t, h, http.MethodGet, "/api/teams", "not-a-token", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginTokenAndWhoAmI(t *testing.T) {
	h, _ := newTestRouter(t, application.DefaultSettings(), Options{})
	token := signUp(t, h, "jane@acme.com", "Acme")

	rec := doJSON(t, h, http.MethodGet, "/api/auth/whoami", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"jane@acme.com"`)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = doJSON(t, h, http.MethodPost, "/api/auth/login", "", `{"email":"jane@acme.com","password":"wrong-password"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionLoginSetsCookie(t *testing.T) {
	h, _ := newTestRouter(t, application.DefaultSettings(), Options{})
	signUp(t, h, "jane@acme.com", "")

	rec := doJSON(t, h, http.MethodPost, "/api/auth/login", "", `{"email":"jane@acme.com","password":"password123","mode":"session"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/whoami", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEmailChangeDisabled(t *testing.T) {
	settings := application.DefaultSettings()
	settings.AllowEmailChange = false
	h, _ := newTestRouter(t, settings, Options{})
	token := signUp(t, h, "jane@acme.com", "")

	rec := doJSON(t, h, http.MethodPut, "/api/users", token, `{"email":"jane@acme.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email change is not allowed.", errorMessage(t, rec))

	rec = doJSON(t, h, http.MethodPut, "/api/users", token, `{"name":"Jane Doe"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCreateTeamAndValidation(t *testing.T) {
	h, _ := newTestRouter(t, application.DefaultSettings(), Options{})
	token := signUp(t, h, "jane@acme.com", "")

	rec := doJSON(t, h, http.MethodPost, "/api/teams", token, `{"name":"Acme"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var env struct {
		Data struct {
			Slug string `json:"slug"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "acme", env.Data.Slug)

	rec = doJSON(t, h, http.MethodPost, "/api/teams", token, `{"name":""}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Validation Error: name: Name is required", errorMessage(t, rec))

	rec = doJSON(t, h, http.MethodPost, "/api/teams", token, `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", errorMessage(t, rec))

	rec = doJSON(t, h, http.MethodGet, "/api/teams/unknown", token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGUIRedirectsToLogin(t *testing.T) {
	h, _ := newTestRouter(t, application.DefaultSettings(), Options{})

	req := httptest.NewRequest(http.MethodGet, "/teams", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestGUILoginAndTeamsPage(t *testing.T) {
	h, _ := newTestRouter(t, application.DefaultSettings(), Options{})
	signUp(t, h, "jane@acme.com", "Acme")

	form := url.Values{"email": {"jane@acme.com"}, "password": {"password123"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/teams", rec.Header().Get("Location"))
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req = httptest.NewRequest(http.MethodGet, "/teams?notice=team-created", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Acme")
	assert.Contains(t, rec.Body.String(), "Team created")
}

func TestGUIAPIKeyFragments(t *testing.T) {
	h, _ := newTestRouter(t, application.DefaultSettings(), Options{})
	token := signUp(t, h, "jane@acme.com", "Acme")

	req := httptest.NewRequest(http.MethodPost, "/teams/acme/api-keys", strings.NewReader(`{"apiKeyName":"ci"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := rec.Body.String()
	assert.Contains(t, body, `id="toast"`)
	assert.Contains(t, body, "API key created")
	assert.Contains(t, body, `id="new-api-key"`)
	assert.Contains(t, body, `id="api-keys"`)
	assert.Contains(t, body, "ci")
}

func TestGUILeaveLastOwnerShowsError(t *testing.T) {
	h, _ := newTestRouter(t, application.DefaultSettings(), Options{})
	token := signUp(t, h, "jane@acme.com", "Acme")

	req := httptest.NewRequest(http.MethodPost, "/teams/acme/leave", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.GreaterOrEqual(t, rec.Code, http.StatusBadRequest)
	assert.Contains(t, rec.Body.String(), `id="toast"`)
}

func TestLoginRateLimit(t *testing.T) {
	h, _ := newTestRouter(t, application.DefaultSettings(), Options{LoginPerMinute: 2})

	for i := 0; i < 2; i++ {
		rec := doJSON(t, h, http.MethodPost, "/api/auth/login", "", `{"email":"nobody@acme.com","password":"password123"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := doJSON(t, h, http.MethodPost, "/api/auth/login", "", `{"email":"nobody@acme.com","password":"password123"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "Too many requests. Please try again later.", errorMessage(t, rec))
}

func TestMutationsAreCounted(t *testing.T) {
	h, _ := newTestRouter(t, application.DefaultSettings(), Options{})
	token := signUp(t, h, "jane@acme.com", "Acme")

	rec := doJSON(t, h, http.MethodPost, "/api/teams", token, `{"name":"Second"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = doJSON(t, h, http.MethodPost, "/api/teams", token, `{"name":""}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	rec = doJSON(t, h, http.MethodGet, "/api/users", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `saaskit_events_total{event="user.created"} 1`)
	assert.Contains(t, body, `saaskit_events_total{event="auth.login"} 1`)
	assert.Contains(t, body, `saaskit_events_total{event="team.created"} 1`)
	assert.Contains(t, body, `saaskit_events_total{event="user.fetched"} 1`)
}

func TestGUIInviteLinkJoin(t *testing.T) {
	h, _ := newTestRouter(t, application.DefaultSettings(), Options{})
	token := signUp(t, h, "jane@acme.com", "Acme")

	req := httptest.NewRequest(http.MethodPost, "/teams/acme/invitations/link", strings.NewReader(`{"linkRole":"ADMIN","linkDomains":"acme.com, "}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Invitation link created")
	assert.Contains(t, rec.Body.String(), `id="invite-link"`)
	assert.Contains(t, rec.Body.String(), "/login?invite=")

	rec = doJSON(t, h, http.MethodGet, "/api/teams/acme/invitations?sentViaEmail=false", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var env struct {
		Data []struct {
			Token          string   `json:"token"`
			AllowedDomains []string `json:"allowedDomains"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Len(t, env.Data, 1)
	assert.Equal(t, []string{"acme.com"}, env.Data[0].AllowedDomains)
	invite := env.Data[0].Token

	req = httptest.NewRequest(http.MethodGet, "/login?invite="+invite, nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="inviteToken" value="`+invite+`"`)

	join := func(email string) *httptest.ResponseRecorder {
		form := url.Values{"name": {"Bob"}, "email": {email}, "password": {"password123"}, "inviteToken": {invite}}
		req := httptest.NewRequest(http.MethodPost, "/join", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}
	rec = join("bob@other.com")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Your email domain is not allowed to join this team.")

	rec = join("bob@acme.com")
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req = httptest.NewRequest(http.MethodGet, "/api/teams/acme/members", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"bob@acme.com"`)
	assert.Contains(t, rec.Body.String(), `"role":"ADMIN"`)
}

func TestRedirectNoticesShareScreenMessages(t *testing.T) {
	assert.Equal(t, ui.MsgUpdated, notices["updated"])
	assert.Equal(t, ui.MsgTeamCreated, notices["team-created"])
	assert.Equal(t, ui.MsgTeamRemoved, notices["team-removed"])
}
