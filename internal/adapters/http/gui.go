package http

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/igormartsekha/saas-starter-kit/internal/application"
	"github.com/igormartsekha/saas-starter-kit/internal/domain"
	"github.com/igormartsekha/saas-starter-kit/internal/ui"
	"github.com/igormartsekha/saas-starter-kit/internal/validation"
)

// Redirects carry a notice key instead of text so only known messages are
// ever shown from a URL.
var notices = map[string]string{
	"updated":      ui.MsgUpdated,
	"team-created": ui.MsgTeamCreated,
	"team-removed": ui.MsgTeamRemoved,
}

func noticeFromQuery(r *http.Request) *ui.Notice {
	msg, ok := notices[r.URL.Query().Get("notice")]
	if !ok {
		return nil
	}
	return &ui.Notice{Message: msg, Kind: ui.ToastSuccess}
}

func redirectWithNotice(w http.ResponseWriter, r *http.Request, path, notice string) {
	http.Redirect(w, r, path+"?"+url.Values{"notice": {notice}}.Encode(), http.StatusSeeOther)
}

func errorNotice(message string) *ui.Notice {
	return &ui.Notice{Message: message, Kind: ui.ToastError}
}

func (h *Handler) renderErrorPage(w http.ResponseWriter, r *http.Request, err error) {
	status, message := h.failure(r, err)
	h.renderPage(r.Context(), w, status, ui.ErrorPage(h.skin, currentUserEmail(r.Context()), message))
}

func (h *Handler) renderFailureToast(w http.ResponseWriter, r *http.Request, err error) {
	status, message := h.failure(r, err)
	h.renderToast(r.Context(), w, status, message)
}

func (h *Handler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	invite := strings.TrimSpace(r.URL.Query().Get("invite"))
	if identity, ok := h.authenticateRequest(r); ok {
		if invite != "" {
			if _, err := h.service.AcceptInvitation(r.Context(), identity, invite); err != nil {
				h.renderErrorPage(w, r, err)
				return
			}
			h.recordMetric("invitation.accepted")
		}
		http.Redirect(w, r, "/teams", http.StatusSeeOther)
		return
	}
	h.renderPage(r.Context(), w, http.StatusOK, ui.LoginPage(h.skin, invite, nil))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderPage(r.Context(), w, http.StatusBadRequest, ui.LoginPage(h.skin, "", errorNotice("Invalid form")))
		return
	}
	email := strings.TrimSpace(r.Form.Get("email"))
	password := r.Form.Get("password")
	invite := strings.TrimSpace(r.Form.Get("inviteToken"))

	u, token, err := h.service.LoginWithSession(r.Context(), email, password)
	if err != nil {
		status, message := h.failure(r, err)
		h.renderPage(r.Context(), w, status, ui.LoginPage(h.skin, invite, errorNotice(message)))
		return
	}
	if invite != "" {
		if _, err := h.service.AcceptInvitation(r.Context(), domain.Identity{User: u}, invite); err != nil {
			_ = h.service.LogoutSession(r.Context(), token)
			status, message := h.failure(r, err)
			h.renderPage(r.Context(), w, status, ui.LoginPage(h.skin, invite, errorNotice(message)))
			return
		}
		h.recordMetric("invitation.accepted")
	}

	h.recordMetric("auth.login")
	h.setSessionCookie(w, token)
	http.Redirect(w, r, "/teams", http.StatusSeeOther)
}

func (h *Handler) handleJoin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderPage(r.Context(), w, http.StatusBadRequest, ui.LoginPage(h.skin, "", errorNotice("Invalid form")))
		return
	}
	in := application.JoinInput{
		Name:        strings.TrimSpace(r.Form.Get("name")),
		Email:       strings.TrimSpace(r.Form.Get("email")),
		Password:    r.Form.Get("password"),
		Team:        strings.TrimSpace(r.Form.Get("team")),
		InviteToken: strings.TrimSpace(r.Form.Get("inviteToken")),
	}
	if _, err := h.service.Join(r.Context(), in); err != nil {
		status, message := h.failure(r, err)
		h.renderPage(r.Context(), w, status, ui.LoginPage(h.skin, in.InviteToken, errorNotice(message)))
		return
	}
	h.recordMetric("user.created")
	_, token, err := h.service.LoginWithSession(r.Context(), in.Email, in.Password)
	if err != nil {
		status, message := h.failure(r, err)
		h.renderPage(r.Context(), w, status, ui.LoginPage(h.skin, "", errorNotice(message)))
		return
	}
	h.setSessionCookie(w, token)
	http.Redirect(w, r, "/teams", http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" {
		_ = h.service.LogoutSession(r.Context(), token)
	}
	h.recordMetric("auth.logout")
	h.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) handleHomeRedirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/teams", http.StatusSeeOther)
}

func (h *Handler) accountPage(w http.ResponseWriter, r *http.Request, status int, notice *ui.Notice) {
	u, err := h.service.CurrentUser(r.Context(), requestIdentity(r))
	if err != nil {
		h.renderErrorPage(w, r, err)
		return
	}
	view := ui.AccountView{User: u, AllowEmailChange: h.service.Settings().AllowEmailChange}
	h.renderPage(r.Context(), w, status, ui.AccountPage(h.skin, u.Email, view, notice))
}

func (h *Handler) handleAccountPage(w http.ResponseWriter, r *http.Request) {
	h.accountPage(w, r, http.StatusOK, noticeFromQuery(r))
}

type accountNameSignals struct {
	AccountName string `json:"accountName"`
}

func (h *Handler) handleUpdateName(w http.ResponseWriter, r *http.Request) {
	var sig accountNameSignals
	if err := datastar.ReadSignals(r, &sig); err != nil {
		h.renderToast(r.Context(), w, http.StatusBadRequest, "invalid signals")
		return
	}
	name := strings.TrimSpace(sig.AccountName)
	if _, err := h.service.UpdateAccount(r.Context(), requestIdentity(r), domain.UserUpdate{Name: &name}); err != nil {
		h.renderFailureToast(w, r, err)
		return
	}
	h.recordMetric("user.updated")
	h.renderToast(r.Context(), w, http.StatusOK, ui.MsgUpdated)
}

type accountEmailSignals struct {
	AccountEmail string `json:"accountEmail"`
}

func (h *Handler) handleUpdateEmail(w http.ResponseWriter, r *http.Request) {
	var sig accountEmailSignals
	if err := datastar.ReadSignals(r, &sig); err != nil {
		h.renderToast(r.Context(), w, http.StatusBadRequest, "invalid signals")
		return
	}
	email := strings.TrimSpace(sig.AccountEmail)
	if _, err := h.service.UpdateAccount(r.Context(), requestIdentity(r), domain.UserUpdate{Email: &email}); err != nil {
		h.renderFailureToast(w, r, err)
		return
	}
	h.recordMetric("user.updated")
	h.renderToast(r.Context(), w, http.StatusOK, ui.MsgUpdated)
}

type passwordSignals struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h *Handler) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	var sig passwordSignals
	if err := datastar.ReadSignals(r, &sig); err != nil {
		h.renderToast(r.Context(), w, http.StatusBadRequest, "invalid signals")
		return
	}
	in := application.PasswordInput{CurrentPassword: sig.CurrentPassword, NewPassword: sig.NewPassword}
	if err := h.service.UpdatePassword(r.Context(), requestIdentity(r), in, sessionToken(r)); err != nil {
		h.renderFailureToast(w, r, err)
		return
	}
	h.recordMetric("user.password.updated")
	h.renderToast(r.Context(), w, http.StatusOK, ui.MsgUpdated)
}

// handleUploadAvatar takes a multipart upload. The file is checked before the
// account is touched.
func (h *Handler) handleUploadAvatar(w http.ResponseWriter, r *http.Request) {
	const limit = validation.MaxAvatarBytes + 64<<10
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	file, _, err := r.FormFile("avatar")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || r.ContentLength > limit {
			h.accountPage(w, r, http.StatusBadRequest, errorNotice(validation.ErrAvatarTooLarge.Error()))
			return
		}
		h.accountPage(w, r, http.StatusBadRequest, errorNotice("Choose a picture to upload"))
		return
	}
	defer func() { _ = file.Close() }()

	content, err := io.ReadAll(io.LimitReader(file, validation.MaxAvatarBytes+1))
	if err != nil {
		h.renderErrorPage(w, r, err)
		return
	}
	image, err := validation.AvatarDataURL(content)
	if err != nil {
		h.accountPage(w, r, http.StatusBadRequest, errorNotice(err.Error()))
		return
	}
	if _, err := h.service.UpdateAccount(r.Context(), requestIdentity(r), domain.UserUpdate{Image: &image}); err != nil {
		status, message := h.failure(r, err)
		h.accountPage(w, r, status, errorNotice(message))
		return
	}
	h.recordMetric("user.updated")
	redirectWithNotice(w, r, "/settings/account", "updated")
}

func (h *Handler) teamsPage(w http.ResponseWriter, r *http.Request, status int, notice *ui.Notice) {
	teams, err := h.service.ListTeams(r.Context(), requestIdentity(r))
	if err != nil {
		h.renderErrorPage(w, r, err)
		return
	}
	h.renderPage(r.Context(), w, status, ui.TeamsPage(h.skin, currentUserEmail(r.Context()), teams, notice))
}

func (h *Handler) handleTeamsPage(w http.ResponseWriter, r *http.Request) {
	h.teamsPage(w, r, http.StatusOK, noticeFromQuery(r))
}

func (h *Handler) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.teamsPage(w, r, http.StatusBadRequest, errorNotice("Invalid form"))
		return
	}
	team, err := h.service.CreateTeam(r.Context(), requestIdentity(r), application.CreateTeamInput{Name: strings.TrimSpace(r.Form.Get("name"))})
	if err != nil {
		status, message := h.failure(r, err)
		h.teamsPage(w, r, status, errorNotice(message))
		return
	}
	h.recordMetric("team.created")
	redirectWithNotice(w, r, "/teams/"+team.Slug+"/settings", "team-created")
}

func (h *Handler) handleLeaveTeam(w http.ResponseWriter, r *http.Request) {
	identity := requestIdentity(r)
	if err := h.service.LeaveTeam(r.Context(), identity, chi.URLParam(r, "slug")); err != nil {
		h.renderFailureToast(w, r, err)
		return
	}
	h.recordMetric("member.left")
	teams, err := h.service.ListTeams(r.Context(), identity)
	if err != nil {
		h.renderFailureToast(w, r, err)
		return
	}
	renderHTMLFragments(r.Context(), w, http.StatusOK,
		h.skin.Toast(ui.MsgLeftTeam, ui.ToastSuccess),
		ui.TeamsTable(h.skin, teams),
	)
}

func (h *Handler) teamView(r *http.Request, slug string) (ui.TeamView, error) {
	identity := requestIdentity(r)
	team, err := h.service.GetTeam(r.Context(), identity, slug)
	if err != nil {
		return ui.TeamView{}, err
	}
	role, err := h.service.TeamRole(r.Context(), identity, slug)
	if err != nil {
		return ui.TeamView{}, err
	}
	settings := h.service.Settings()
	return ui.TeamView{
		Team:          team,
		Role:          role,
		AllowDelete:   settings.AllowDeleteTeam,
		AllowAPIKeys:  settings.AllowAPIKeys,
		CurrentUserID: identity.User.ID,
	}, nil
}

func (h *Handler) handleTeamSettingsPage(w http.ResponseWriter, r *http.Request) {
	view, err := h.teamView(r, chi.URLParam(r, "slug"))
	if err != nil {
		h.renderErrorPage(w, r, err)
		return
	}
	h.renderPage(r.Context(), w, http.StatusOK, ui.TeamSettingsPage(h.skin, currentUserEmail(r.Context()), view, nil, noticeFromQuery(r)))
}

func (h *Handler) handleUpdateTeam(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	view, err := h.teamView(r, slug)
	if err != nil {
		h.renderErrorPage(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderErrorPage(w, r, domain.BadRequest("Invalid form"))
		return
	}
	in := application.UpdateTeamInput{
		Name:   strings.TrimSpace(r.Form.Get("name")),
		Slug:   strings.TrimSpace(r.Form.Get("slug")),
		Domain: strings.TrimSpace(r.Form.Get("domain")),
	}
	team, err := h.service.UpdateTeam(r.Context(), requestIdentity(r), slug, in)
	if err != nil {
		status, message := h.failure(r, err)
		var fieldErrs validation.Errors
		errors.As(err, &fieldErrs)
		view.Team.Name, view.Team.Slug, view.Team.Domain = in.Name, in.Slug, in.Domain
		h.renderPage(r.Context(), w, status, ui.TeamSettingsPage(h.skin, currentUserEmail(r.Context()), view, fieldErrs, errorNotice(message)))
		return
	}
	h.recordMetric("team.updated")
	redirectWithNotice(w, r, "/teams/"+team.Slug+"/settings", "updated")
}

func (h *Handler) handleRemoveTeam(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteTeam(r.Context(), requestIdentity(r), chi.URLParam(r, "slug")); err != nil {
		h.renderErrorPage(w, r, err)
		return
	}
	h.recordMetric("team.removed")
	redirectWithNotice(w, r, "/teams", "team-removed")
}

func (h *Handler) pendingInvitations(r *http.Request, view ui.TeamView) ([]domain.Invitation, error) {
	if !view.Role.Can(domain.ResourceTeamInvitation, domain.ActionRead) {
		return nil, nil
	}
	sentViaEmail := true
	return h.service.ListInvitations(r.Context(), requestIdentity(r), view.Team.Slug, &sentViaEmail)
}

func (h *Handler) handleMembersPage(w http.ResponseWriter, r *http.Request) {
	view, err := h.teamView(r, chi.URLParam(r, "slug"))
	if err != nil {
		h.renderErrorPage(w, r, err)
		return
	}
	members, err := h.service.ListMembers(r.Context(), requestIdentity(r), view.Team.Slug)
	if err != nil {
		h.renderErrorPage(w, r, err)
		return
	}
	invitations, err := h.pendingInvitations(r, view)
	if err != nil {
		h.renderErrorPage(w, r, err)
		return
	}
	link, err := h.inviteLink(r, view)
	if err != nil {
		h.renderErrorPage(w, r, err)
		return
	}
	h.renderPage(r.Context(), w, http.StatusOK, ui.MembersPage(h.skin, currentUserEmail(r.Context()), view, members, invitations, link, nil))
}

// renderMembers answers an in-place member mutation with the toast and the
// refreshed table.
func (h *Handler) renderMembers(w http.ResponseWriter, r *http.Request, status int, message string) {
	view, err := h.teamView(r, chi.URLParam(r, "slug"))
	if err != nil {
		h.renderToast(r.Context(), w, status, message)
		return
	}
	members, err := h.service.ListMembers(r.Context(), requestIdentity(r), view.Team.Slug)
	if err != nil {
		h.renderToast(r.Context(), w, status, message)
		return
	}
	kind := ui.ToastSuccess
	if status >= 400 {
		kind = ui.ToastError
	}
	renderHTMLFragments(r.Context(), w, status, h.skin.Toast(message, kind), ui.MembersTable(h.skin, view, members))
}

type memberRoleSignals struct {
	MemberRole string `json:"memberRole"`
}

func (h *Handler) handleUpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	var sig memberRoleSignals
	if err := datastar.ReadSignals(r, &sig); err != nil {
		h.renderToast(r.Context(), w, http.StatusBadRequest, "invalid signals")
		return
	}
	userID, err := parseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		h.renderFailureToast(w, r, err)
		return
	}
	in := application.UpdateRoleInput{MemberID: userID, Role: domain.Role(strings.ToUpper(strings.TrimSpace(sig.MemberRole)))}
	if _, err := h.service.UpdateMemberRole(r.Context(), requestIdentity(r), chi.URLParam(r, "slug"), in); err != nil {
		status, message := h.failure(r, err)
		h.renderMembers(w, r, status, message)
		return
	}
	h.recordMetric("member.role.updated")
	h.renderMembers(w, r, http.StatusOK, ui.MsgMemberRoleUpdated)
}

func (h *Handler) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		h.renderFailureToast(w, r, err)
		return
	}
	if err := h.service.RemoveMember(r.Context(), requestIdentity(r), chi.URLParam(r, "slug"), userID); err != nil {
		h.renderFailureToast(w, r, err)
		return
	}
	h.recordMetric("member.removed")
	h.renderMembers(w, r, http.StatusOK, ui.MsgMemberDeleted)
}

func (h *Handler) renderInvitations(w http.ResponseWriter, r *http.Request, message string) {
	view, err := h.teamView(r, chi.URLParam(r, "slug"))
	if err != nil {
		h.renderToast(r.Context(), w, http.StatusOK, message)
		return
	}
	invitations, err := h.pendingInvitations(r, view)
	if err != nil {
		h.renderToast(r.Context(), w, http.StatusOK, message)
		return
	}
	link, err := h.inviteLink(r, view)
	if err != nil {
		h.renderToast(r.Context(), w, http.StatusOK, message)
		return
	}
	renderHTMLFragments(r.Context(), w, http.StatusOK,
		h.skin.Toast(message, ui.ToastSuccess),
		ui.InvitationsTable(h.skin, view, invitations),
		ui.InviteLinkCard(h.skin, view, link),
	)
}

// inviteLink is empty for roles that cannot manage invitations.
func (h *Handler) inviteLink(r *http.Request, view ui.TeamView) (ui.InviteLink, error) {
	if !view.Role.Can(domain.ResourceTeamInvitation, domain.ActionRead) {
		return ui.InviteLink{}, nil
	}
	sentViaEmail := false
	links, err := h.service.ListInvitations(r.Context(), requestIdentity(r), view.Team.Slug, &sentViaEmail)
	if err != nil || len(links) == 0 {
		return ui.InviteLink{}, err
	}
	return ui.InviteLink{Invitation: &links[0], URL: links[0].URL(serverURL(r))}, nil
}

func serverURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

type inviteLinkSignals struct {
	LinkRole    string `json:"linkRole"`
	LinkDomains string `json:"linkDomains"`
}

func (h *Handler) handleCreateInviteLink(w http.ResponseWriter, r *http.Request) {
	var sig inviteLinkSignals
	if err := datastar.ReadSignals(r, &sig); err != nil {
		h.renderToast(r.Context(), w, http.StatusBadRequest, "invalid signals")
		return
	}
	in := application.InvitationInput{Role: domain.Role(strings.ToUpper(strings.TrimSpace(sig.LinkRole)))}
	for _, d := range strings.Split(sig.LinkDomains, ",") {
		if d = strings.TrimSpace(d); d != "" {
			in.AllowedDomains = append(in.AllowedDomains, d)
		}
	}
	if _, err := h.service.CreateInvitation(r.Context(), requestIdentity(r), chi.URLParam(r, "slug"), in); err != nil {
		h.renderFailureToast(w, r, err)
		return
	}
	h.recordMetric("invitation.created")
	h.renderInvitations(w, r, ui.MsgInviteLinkCreated)
}

type inviteSignals struct {
	InviteEmail string `json:"inviteEmail"`
	InviteRole  string `json:"inviteRole"`
}

func (h *Handler) handleInviteViaEmail(w http.ResponseWriter, r *http.Request) {
	var sig inviteSignals
	if err := datastar.ReadSignals(r, &sig); err != nil {
		h.renderToast(r.Context(), w, http.StatusBadRequest, "invalid signals")
		return
	}
	role := domain.Role(strings.ToUpper(strings.TrimSpace(sig.InviteRole)))
	if role == "" {
		role = domain.RoleMember
	}
	in := application.InvitationInput{Email: sig.InviteEmail, Role: role, SentViaEmail: true}
	if _, err := h.service.CreateInvitation(r.Context(), requestIdentity(r), chi.URLParam(r, "slug"), in); err != nil {
		h.renderFailureToast(w, r, err)
		return
	}
	h.recordMetric("invitation.created")
	h.renderInvitations(w, r, ui.MsgInvitationSent)
}

func (h *Handler) handleDeleteInvitation(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteInvitation(r.Context(), requestIdentity(r), chi.URLParam(r, "slug"), chi.URLParam(r, "id")); err != nil {
		h.renderFailureToast(w, r, err)
		return
	}
	h.recordMetric("invitation.removed")
	h.renderInvitations(w, r, ui.MsgInvitationDeleted)
}

func (h *Handler) handleAPIKeysPage(w http.ResponseWriter, r *http.Request) {
	view, err := h.teamView(r, chi.URLParam(r, "slug"))
	if err != nil {
		h.renderErrorPage(w, r, err)
		return
	}
	keys, err := h.service.ListAPIKeys(r.Context(), requestIdentity(r), view.Team.Slug)
	if err != nil {
		h.renderErrorPage(w, r, err)
		return
	}
	h.renderPage(r.Context(), w, http.StatusOK, ui.APIKeysPage(h.skin, currentUserEmail(r.Context()), view, keys, nil))
}

func (h *Handler) renderAPIKeys(w http.ResponseWriter, r *http.Request, message, newKey string) {
	view, err := h.teamView(r, chi.URLParam(r, "slug"))
	if err != nil {
		h.renderFailureToast(w, r, err)
		return
	}
	keys, err := h.service.ListAPIKeys(r.Context(), requestIdentity(r), view.Team.Slug)
	if err != nil {
		h.renderFailureToast(w, r, err)
		return
	}
	renderHTMLFragments(r.Context(), w, http.StatusOK,
		h.skin.Toast(message, ui.ToastSuccess),
		ui.NewAPIKeyNotice(h.skin, newKey),
		ui.APIKeysTable(h.skin, view, keys),
	)
}

type apiKeySignals struct {
	APIKeyName string `json:"apiKeyName"`
}

func (h *Handler) handleCreateAPIKey(w http.ResponseWriter, r *http.Request) {
	var sig apiKeySignals
	if err := datastar.ReadSignals(r, &sig); err != nil {
		h.renderToast(r.Context(), w, http.StatusBadRequest, "invalid signals")
		return
	}
	key, err := h.service.CreateAPIKey(r.Context(), requestIdentity(r), chi.URLParam(r, "slug"), application.CreateAPIKeyInput{Name: strings.TrimSpace(sig.APIKeyName)})
	if err != nil {
		h.renderFailureToast(w, r, err)
		return
	}
	h.recordMetric("apikey.created")
	h.renderAPIKeys(w, r, ui.MsgAPIKeyCreated, key)
}

func (h *Handler) handleRevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteAPIKey(r.Context(), requestIdentity(r), chi.URLParam(r, "slug"), chi.URLParam(r, "id")); err != nil {
		h.renderFailureToast(w, r, err)
		return
	}
	h.recordMetric("apikey.removed")
	h.renderAPIKeys(w, r, ui.MsgAPIKeyDeleted, "")
}
