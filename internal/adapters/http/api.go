package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/igormartsekha/saas-starter-kit/internal/application"
	"github.com/igormartsekha/saas-starter-kit/internal/domain"
)

const maxBodyBytes = 4 << 20

// decodeJSON reads the request body into v. An empty body leaves v as is.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return domain.BadRequest("Invalid request body")
}

// requestIdentity is only called behind requireAuthAPI or requireAuthGUI.
func requestIdentity(r *http.Request) domain.Identity {
	identity, _ := identityFromContext(r.Context())
	return identity
}

type apiLoginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Mode      string `json:"mode"`
	TokenName string `json:"tokenName"`
}

type apiLoginResponse struct {
	User  domain.ClientUser `json:"user"`
	Mode  string            `json:"mode"`
	Token string            `json:"token,omitempty"`
}

func (h *Handler) handleAPILogin(w http.ResponseWriter, r *http.Request) {
	var req apiLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	mode := strings.ToLower(strings.TrimSpace(req.Mode))
	if mode == "" {
		mode = "token"
	}

	if mode == "session" {
		u, token, err := h.service.LoginWithSession(r.Context(), req.Email, req.Password)
		if err != nil {
			h.writeFailure(w, r, err)
			return
		}
		h.setSessionCookie(w, token)
		h.recordMetric("auth.login")
		writeData(w, apiLoginResponse{User: u.Client(), Mode: mode})
		return
	}

	u, token, err := h.service.LoginWithAPIToken(r.Context(), req.Email, req.Password, req.TokenName, nil)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.recordMetric("auth.login")
	writeData(w, apiLoginResponse{User: u.Client(), Mode: "token", Token: token})
}

func (h *Handler) handleAPIJoin(w http.ResponseWriter, r *http.Request) {
	var req application.JoinInput
	if err := decodeJSON(r, &req); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	u, err := h.service.Join(r.Context(), req)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.recordMetric("user.created")
	writeData(w, u.Client())
}

func (h *Handler) handleAPIWhoAmI(w http.ResponseWriter, r *http.Request) {
	writeData(w, requestIdentity(r).User.Client())
}

func (h *Handler) handleAPILogout(w http.ResponseWriter, r *http.Request) {
	if _, ok := bearerToken(r); !ok {
		if err := h.service.LogoutSession(r.Context(), sessionToken(r)); err != nil {
			h.logger.Warn("logout session", "err", err)
		}
		h.clearSessionCookie(w)
	}
	h.writeAudit(r.Context(), "auth.logout", "user", strconv.FormatUint(uint64(requestIdentity(r).User.ID), 10))
	h.recordMetric("auth.logout")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAPIGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.CurrentUser(r.Context(), requestIdentity(r))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.recordMetric("user.fetched")
	writeData(w, u)
}

func (h *Handler) handleAPIUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req domain.UserUpdate
	if err := decodeJSON(r, &req); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	if _, err := h.service.UpdateAccount(r.Context(), requestIdentity(r), req); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.recordMetric("user.updated")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAPIUpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req application.PasswordInput
	if err := decodeJSON(r, &req); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	if err := h.service.UpdatePassword(r.Context(), requestIdentity(r), req, sessionToken(r)); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.recordMetric("user.password.updated")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAPIListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.service.ListTeams(r.Context(), requestIdentity(r))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.recordMetric("team.listed")
	writeData(w, teams)
}

func (h *Handler) handleAPICreateTeam(w http.ResponseWriter, r *http.Request) {
	var req application.CreateTeamInput
	if err := decodeJSON(r, &req); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	team, err := h.service.CreateTeam(r.Context(), requestIdentity(r), req)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.recordMetric("team.created")
	writeData(w, team)
}

func (h *Handler) handleAPIGetTeam(w http.ResponseWriter, r *http.Request) {
	team, err := h.service.GetTeam(r.Context(), requestIdentity(r), chi.URLParam(r, "slug"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.recordMetric("team.fetched")
	writeData(w, team)
}

func (h *Handler) handleAPIUpdateTeam(w http.ResponseWriter, r *http.Request) {
	var req application.UpdateTeamInput
	if err := decodeJSON(r, &req); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	team, err := h.service.UpdateTeam(r.Context(), requestIdentity(r), chi.URLParam(r, "slug"), req)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.recordMetric("team.updated")
	writeData(w, team)
}

func (h *Handler) handleAPIDeleteTeam(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteTeam(r.Context(), requestIdentity(r), chi.URLParam(r, "slug")); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.recordMetric("team.removed")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAPIListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.ListMembers(r.Context(), requestIdentity(r), chi.URLParam(r, "slug"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.recordMetric("member.listed")
	writeData(w, members)
}

func (h *Handler) handleAPILeaveTeam(w http.ResponseWriter, r *http.Request) {
	if err := h.service.LeaveTeam(r.Context(), requestIdentity(r), chi.URLParam(r, "slug")); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.recordMetric("member.left")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAPIUpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	var req application.UpdateRoleInput
	if err := decodeJSON(r, &req); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	member, err := h.service.UpdateMemberRole(r.Context(), requestIdentity(r), chi.URLParam(r, "slug"), req)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.recordMetric("member.role.updated")
	writeData(w, member)
}

func parseUserID(raw string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, domain.BadRequest("Invalid member id")
	}
	return uint(id), nil
}

func (h *Handler) handleAPIRemoveMember(w http.ResponseWriter, r *http.Request) {
	memberID, err := parseUserID(r.URL.Query().Get("memberId"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	if err := h.service.RemoveMember(r.Context(), requestIdentity(r), chi.URLParam(r, "slug"), memberID); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.recordMetric("member.removed")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAPIListInvitations(w http.ResponseWriter, r *http.Request) {
	var sentViaEmail *bool
	if raw := r.URL.Query().Get("sentViaEmail"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid sentViaEmail")
			return
		}
		sentViaEmail = &v
	}
	invitations, err := h.service.ListInvitations(r.Context(), requestIdentity(r), chi.URLParam(r, "slug"), sentViaEmail)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.recordMetric("invitation.fetched")
	writeData(w, invitations)
}

func (h *Handler) handleAPICreateInvitation(w http.ResponseWriter, r *http.Request) {
	var req application.InvitationInput
	if err := decodeJSON(r, &req); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	inv, err := h.service.CreateInvitation(r.Context(), requestIdentity(r), chi.URLParam(r, "slug"), req)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.recordMetric("invitation.created")
	writeData(w, inv)
}

type apiAcceptInvitationRequest struct {
	InviteToken string `json:"inviteToken"`
}

func (h *Handler) handleAPIAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	var req apiAcceptInvitationRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	team, err := h.service.AcceptInvitation(r.Context(), requestIdentity(r), req.InviteToken)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.recordMetric("invitation.accepted")
	writeData(w, team)
}

func (h *Handler) handleAPIDeleteInvitation(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "Invitation id is required")
		return
	}
	if err := h.service.DeleteInvitation(r.Context(), requestIdentity(r), chi.URLParam(r, "slug"), id); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.recordMetric("invitation.removed")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAPIListAPIKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.service.ListAPIKeys(r.Context(), requestIdentity(r), chi.URLParam(r, "slug"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.recordMetric("apikey.fetched")
	writeData(w, keys)
}

type apiCreateAPIKeyResponse struct {
	APIKey string `json:"apiKey"`
}

func (h *Handler) handleAPICreateAPIKey(w http.ResponseWriter, r *http.Request) {
	var req application.CreateAPIKeyInput
	if err := decodeJSON(r, &req); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	key, err := h.service.CreateAPIKey(r.Context(), requestIdentity(r), chi.URLParam(r, "slug"), req)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.recordMetric("apikey.created")
	writeData(w, apiCreateAPIKeyResponse{APIKey: key})
}

func (h *Handler) handleAPIDeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteAPIKey(r.Context(), requestIdentity(r), chi.URLParam(r, "slug"), chi.URLParam(r, "id")); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.recordMetric("apikey.removed")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAPIListAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit := 200
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = v
	}
	logs, err := h.service.ListAuditLogs(r.Context(), requestIdentity(r), r.URL.Query().Get("team"), limit)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeData(w, logs)
}
