package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/igormartsekha/saas-starter-kit/internal/application"
	"github.com/igormartsekha/saas-starter-kit/internal/domain"
	"github.com/igormartsekha/saas-starter-kit/internal/logging"
	"github.com/igormartsekha/saas-starter-kit/internal/metrics"
	"github.com/igormartsekha/saas-starter-kit/internal/ui"
	"github.com/igormartsekha/saas-starter-kit/internal/validation"
)

const sessionCookieName = "saaskit_session"

const genericErrorMessage = "Something went wrong"

type contextKey string

const identityKey contextKey = "identity"

type Options struct {
	Logger *slog.Logger
	// LoginPerMinute limits login, join and invitation attempts per client
	// address. Zero disables the limiter.
	LoginPerMinute int
	// Metrics receives one event per completed action. A fresh recorder is
	// used when nil.
	Metrics *metrics.Recorder
}

type Handler struct {
	service *application.Service
	skin    ui.Skin
	logger  *slog.Logger
	limiter *clientLimiter
	metrics *metrics.Recorder
}

func NewRouter(service *application.Service, skin ui.Skin, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	recorder := opts.Metrics
	if recorder == nil {
		recorder = metrics.New()
	}
	h := &Handler{service: service, skin: skin, logger: logger, limiter: newClientLimiter(opts.LoginPerMinute), metrics: recorder}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)
	r.NotFound(h.handleNotFound)
	r.MethodNotAllowed(h.handleMethodNotAllowed(r))

	r.Handle("/metrics", recorder.Handler())
	r.Get("/login", h.handleLoginPage)
	r.With(h.rateLimit).Post("/login", h.handleLogin)
	r.With(h.rateLimit).Post("/join", h.handleJoin)
	r.Post("/logout", h.handleLogout)

	r.Route("/api", func(api chi.Router) {
		api.With(h.rateLimit).Post("/auth/join", h.handleAPIJoin)
		api.With(h.rateLimit).Post("/auth/login", h.handleAPILogin)
		api.With(h.requireAuthAPI).Post("/auth/logout", h.handleAPILogout)
		api.With(h.requireAuthAPI).Get("/auth/whoami", h.handleAPIWhoAmI)

		api.Group(func(api chi.Router) {
			api.Use(h.requireAuthAPI)

			api.Get("/users", h.handleAPIGetUser)
			api.Put("/users", h.handleAPIUpdateUser)
			api.Put("/password", h.handleAPIUpdatePassword)

			api.Get("/teams", h.handleAPIListTeams)
			api.Post("/teams", h.handleAPICreateTeam)
			api.Get("/teams/{slug}", h.handleAPIGetTeam)
			api.Put("/teams/{slug}", h.handleAPIUpdateTeam)
			api.Delete("/teams/{slug}", h.handleAPIDeleteTeam)

			api.Get("/teams/{slug}/members", h.handleAPIListMembers)
			api.Put("/teams/{slug}/members", h.handleAPILeaveTeam)
			api.Patch("/teams/{slug}/members", h.handleAPIUpdateMemberRole)
			api.Delete("/teams/{slug}/members", h.handleAPIRemoveMember)

			api.Get("/teams/{slug}/invitations", h.handleAPIListInvitations)
			api.With(h.rateLimit).Post("/teams/{slug}/invitations", h.handleAPICreateInvitation)
			api.Put("/teams/{slug}/invitations", h.handleAPIAcceptInvitation)
			api.Delete("/teams/{slug}/invitations", h.handleAPIDeleteInvitation)

			api.Get("/teams/{slug}/api-keys", h.handleAPIListAPIKeys)
			api.Post("/teams/{slug}/api-keys", h.handleAPICreateAPIKey)
			api.Delete("/teams/{slug}/api-keys/{id}", h.handleAPIDeleteAPIKey)

			api.Get("/audit", h.handleAPIListAuditLogs)
		})
	})

	r.Group(func(gui chi.Router) {
		gui.Use(h.requireAuthGUI)

		gui.Get("/", h.handleHomeRedirect)
		gui.Get("/settings/account", h.handleAccountPage)
		gui.Post("/settings/account/name", h.handleUpdateName)
		gui.Post("/settings/account/email", h.handleUpdateEmail)
		gui.Post("/settings/account/password", h.handleUpdatePassword)
		gui.Post("/settings/account/avatar", h.handleUploadAvatar)

		gui.Get("/teams", h.handleTeamsPage)
		gui.Post("/teams", h.handleCreateTeam)
		gui.Post("/teams/{slug}/leave", h.handleLeaveTeam)
		gui.Get("/teams/{slug}/settings", h.handleTeamSettingsPage)
		gui.Post("/teams/{slug}/settings", h.handleUpdateTeam)
		gui.Post("/teams/{slug}/delete", h.handleRemoveTeam)

		gui.Get("/teams/{slug}/members", h.handleMembersPage)
		gui.Post("/teams/{slug}/members/{userID}/role", h.handleUpdateMemberRole)
		gui.Post("/teams/{slug}/members/{userID}/remove", h.handleRemoveMember)
		gui.With(h.rateLimit).Post("/teams/{slug}/invitations", h.handleInviteViaEmail)
		gui.With(h.rateLimit).Post("/teams/{slug}/invitations/link", h.handleCreateInviteLink)
		gui.Post("/teams/{slug}/invitations/{id}/delete", h.handleDeleteInvitation)

		gui.Get("/teams/{slug}/api-keys", h.handleAPIKeysPage)
		gui.Post("/teams/{slug}/api-keys", h.handleCreateAPIKey)
		gui.Post("/teams/{slug}/api-keys/{id}/delete", h.handleRevokeAPIKey)
	})

	return r
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (h *Handler) recordMetric(event string) {
	h.metrics.Record(event)
}

func isAPIRequest(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}

func (h *Handler) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if isAPIRequest(r) {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	http.NotFound(w, r)
}

var routeMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}

// handleMethodNotAllowed answers with the methods the path does support.
func (h *Handler) handleMethodNotAllowed(mux *chi.Mux) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		allowed := make([]string, 0, len(routeMethods))
		for _, m := range routeMethods {
			if mux.Match(chi.NewRouteContext(), m, r.URL.Path) {
				allowed = append(allowed, m)
			}
		}
		w.Header().Set("Allow", strings.Join(allowed, ", "))
		message := "Method " + r.Method + " Not Allowed"
		if isAPIRequest(r) {
			writeError(w, http.StatusMethodNotAllowed, message)
			return
		}
		http.Error(w, message, http.StatusMethodNotAllowed)
	}
}

// clientLimiter keeps one token bucket per client address.
type clientLimiter struct {
	mu       sync.Mutex
	perMin   int
	limiters map[string]*rate.Limiter
}

func newClientLimiter(perMinute int) *clientLimiter {
	return &clientLimiter{perMin: perMinute, limiters: make(map[string]*rate.Limiter)}
}

func (l *clientLimiter) allow(key string) bool {
	if l.perMin <= 0 {
		return true
	}
	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMin)), l.perMin)
		l.limiters[key] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (h *Handler) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.limiter.allow(clientAddr(r)) {
			next.ServeHTTP(w, r)
			return
		}
		const message = "Too many requests. Please try again later."
		w.Header().Set("Retry-After", "60")
		if isAPIRequest(r) {
			writeError(w, http.StatusTooManyRequests, message)
			return
		}
		h.renderToast(r.Context(), w, http.StatusTooManyRequests, message)
	})
}

func (h *Handler) requireAuthGUI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := h.authenticateRequest(r)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, identity)))
	})
}

func (h *Handler) requireAuthAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := h.authenticateRequest(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, identity)))
	})
}

func (h *Handler) authenticateRequest(r *http.Request) (domain.Identity, bool) {
	if token, ok := bearerToken(r); ok {
		identity, err := h.service.AuthenticateBearerToken(r.Context(), token)
		if err == nil {
			return identity, true
		}
	}

	c, err := r.Cookie(sessionCookieName)
	if err == nil && strings.TrimSpace(c.Value) != "" {
		identity, authErr := h.service.AuthenticateSession(r.Context(), c.Value)
		if authErr == nil {
			return identity, true
		}
	}

	return domain.Identity{}, false
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(authHeader[7:])
	return token, token != ""
}

func sessionToken(r *http.Request) string {
	c, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func identityFromContext(ctx context.Context) (domain.Identity, bool) {
	value := ctx.Value(identityKey)
	if value == nil {
		return domain.Identity{}, false
	}
	identity, ok := value.(domain.Identity)
	return identity, ok
}

func currentUserEmail(ctx context.Context) string {
	identity, ok := identityFromContext(ctx)
	if !ok {
		return ""
	}
	return identity.User.Email
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.service.Settings().SessionTTL.Seconds()),
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

type dataEnvelope struct {
	Data any `json:"data"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, dataEnvelope{Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{Message: message}})
}

// failure maps a service error to the status and message shown to the user.
// Unexpected errors are logged and never echoed.
func (h *Handler) failure(r *http.Request, err error) (int, string) {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status, apiErr.Message
	}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return http.StatusUnprocessableEntity, "Validation Error: " + verrs.Error()
	}
	h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	return http.StatusInternalServerError, genericErrorMessage
}

func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status, message := h.failure(r, err)
	writeError(w, status, message)
}

func (h *Handler) writeAudit(ctx context.Context, action, targetType, targetID string) {
	identity, ok := identityFromContext(ctx)
	if !ok {
		h.service.WriteAudit(ctx, nil, nil, action, targetType, targetID, nil)
		return
	}
	h.service.WriteAudit(ctx, &identity.User.ID, nil, action, targetType, targetID, nil)
}

func renderHTMLFragments(ctx context.Context, w http.ResponseWriter, status int, fragments ...templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	for _, fragment := range fragments {
		if fragment == nil {
			continue
		}
		_ = fragment.Render(ctx, w)
	}
}

func (h *Handler) renderToast(ctx context.Context, w http.ResponseWriter, status int, message string) {
	kind := ui.ToastSuccess
	if status >= 400 {
		kind = ui.ToastError
	}
	renderHTMLFragments(ctx, w, status, h.skin.Toast(message, kind))
}

func (h *Handler) renderPage(ctx context.Context, w http.ResponseWriter, status int, page templ.Component) {
	renderHTMLFragments(ctx, w, status, page)
}
