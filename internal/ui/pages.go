package ui

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/igormartsekha/saas-starter-kit/internal/domain"
	"github.com/igormartsekha/saas-starter-kit/internal/validation"
)

// guardedForm submits its bound signals through datastar; the response is a
// set of fragments patched in place. datastar raises the busy signal while
// the request is in flight.
func guardedForm(action string, g Guard, children ...templ.Component) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		w.raw("<form")
		w.attr("data-signals", g.signals())
		w.attr("data-indicator", g.busy())
		w.attr("data-on:submit", "@post('"+action+"')")
		w.raw(">")
		w.render(ctx, children...)
		w.raw("</form>")
	})
}

// guardedPostForm posts natively. The submit handler raises the busy signal
// before handing the form to the browser.
func guardedPostForm(action string, multipart bool, g Guard, children ...templ.Component) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		w.raw("<form method=\"post\"")
		w.attr("action", action)
		if multipart {
			w.raw(` enctype="multipart/form-data"`)
		}
		w.attr("data-signals", g.signals())
		w.attr("data-on:submit", "$"+g.busy()+" = true; el.submit()")
		w.raw(">")
		w.render(ctx, children...)
		w.raw("</form>")
	})
}

func postForm(action string, multipart bool, children ...templ.Component) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		w.raw("<form method=\"post\"")
		w.attr("action", action)
		if multipart {
			w.raw(` enctype="multipart/form-data"`)
		}
		w.raw(">")
		w.render(ctx, children...)
		w.raw("</form>")
	})
}

func link(href, label string) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		w.raw("<a")
		w.attr("href", href)
		w.raw(">")
		w.text(label)
		w.raw("</a>")
	})
}

func paragraph(s string) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		w.raw("<p>")
		w.text(s)
		w.raw("</p>")
	})
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

func roleOptions(current domain.Role) []Option {
	out := make([]Option, 0, len(domain.AvailableRoles))
	for _, r := range domain.AvailableRoles {
		out = append(out, Option{Value: string(r), Label: string(r), Selected: r == current})
	}
	return out
}

// LoginPage carries invite through both forms so signing in or joining also
// accepts the invitation.
func LoginPage(s Skin, invite string, notice *Notice) templ.Component {
	title := "Welcome back"
	if invite != "" {
		title = "You have been invited to a team"
	}
	return s.Page(PageData{
		Title:  title,
		Notice: notice,
		Body: []templ.Component{
			s.Card("Log in", postForm("/login", false,
				hiddenInput("inviteToken", invite),
				s.TextField(Field{Name: "email", Label: "Email", Type: "email"}),
				s.TextField(Field{Name: "password", Label: "Password", Type: "password"}),
				s.SubmitButton("Log in", false),
			)),
			s.Card("Create an account", postForm("/join", false,
				hiddenInput("inviteToken", invite),
				s.TextField(Field{Name: "name", Label: "Name"}),
				teamField(s, invite),
				s.TextField(Field{Name: "email", Label: "Email", Type: "email"}),
				s.TextField(Field{Name: "password", Label: "Password", Type: "password"}),
				s.SubmitButton("Create account", false),
			)),
		},
	})
}

// teamField is left out when joining through an invitation.
func teamField(s Skin, invite string) templ.Component {
	if invite != "" {
		return nil
	}
	return s.TextField(Field{Name: "team", Label: "Team"})
}

func hiddenInput(name, value string) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		if value == "" {
			return
		}
		w.raw("<input type=\"hidden\"")
		w.attr("name", name)
		w.attr("value", value)
		w.raw(">")
	})
}

func ErrorPage(s Skin, userEmail, message string) templ.Component {
	return s.Page(PageData{
		Title:     "Something is not right",
		UserEmail: userEmail,
		Notice:    &Notice{Message: message, Kind: ToastError},
		Body:      []templ.Component{s.Card("", link("/teams", "Back to teams"))},
	})
}

type AccountView struct {
	User             domain.ClientUser
	AllowEmailChange bool
}

func AccountPage(s Skin, userEmail string, v AccountView, notice *Notice) templ.Component {
	name := Guard{Key: "accountName", Schema: validation.UpdateAccount, Fields: []GuardField{
		{Signal: "accountName", Field: "name", Initial: v.User.Name},
	}}
	body := []templ.Component{
		s.Card("Name", guardedForm("/settings/account/name", name,
			s.TextField(Field{Name: "accountName", Label: "Name", Value: v.User.Name, Bind: true}),
			s.GuardedSubmit("Save changes", name.DisabledWhen()),
		)),
	}
	if v.AllowEmailChange {
		email := Guard{Key: "accountEmail", Schema: validation.UpdateAccount, Fields: []GuardField{
			{Signal: "accountEmail", Field: "email", Initial: v.User.Email, Required: true},
		}}
		body = append(body, s.Card("Email", guardedForm("/settings/account/email", email,
			s.TextField(Field{Name: "accountEmail", Label: "Email", Type: "email", Value: v.User.Email, Bind: true}),
			s.GuardedSubmit("Save changes", email.DisabledWhen()),
		)))
	}
	avatar := Guard{Key: "avatar", Ready: "$avatarReady", Signals: map[string]any{"avatarReady": false}}
	password := Guard{Key: "password", Schema: validation.UpdatePassword, Fields: []GuardField{
		{Signal: "currentPassword", Field: "currentPassword"},
		{Signal: "newPassword", Field: "newPassword"},
	}}
	body = append(body,
		s.Card("Avatar", avatarPreview(v.User.Image), guardedPostForm("/settings/account/avatar", true, avatar,
			paragraph("PNG or JPG, up to 2MB."),
			fileInput("avatar"),
			s.GuardedSubmit("Upload", avatar.DisabledWhen()),
		)),
		s.Card("Password", guardedForm("/settings/account/password", password,
			s.TextField(Field{Name: "currentPassword", Label: "Current password", Type: "password", Bind: true}),
			s.TextField(Field{Name: "newPassword", Label: "New password", Type: "password", Bind: true}),
			s.GuardedSubmit("Change password", password.DisabledWhen()),
		)),
	)
	return s.Page(PageData{Title: "Account", UserEmail: userEmail, Notice: notice, Body: body})
}

func avatarPreview(image string) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		if image == "" {
			return
		}
		w.raw("<img alt=\"avatar\" width=\"64\" height=\"64\"")
		w.attr("src", image)
		w.raw(">")
	})
}

func fileInput(name string) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		w.raw("<input type=\"file\" accept=\"image/png,image/jpeg\"")
		w.attr("name", name)
		w.attr("data-on:change", "$avatarReady = el.files.length === 1 && el.files[0].size <= "+
			strconv.Itoa(validation.MaxAvatarBytes)+" && ['image/png', 'image/jpeg'].includes(el.files[0].type)")
		w.raw(">")
	})
}

func TeamsPage(s Skin, userEmail string, teams []domain.Team, notice *Notice) templ.Component {
	create := Guard{Key: "teamName", Schema: validation.CreateTeam, Fields: []GuardField{
		{Signal: "teamName", Field: "name"},
	}}
	return s.Page(PageData{
		Title:     "Teams",
		UserEmail: userEmail,
		Notice:    notice,
		Body: []templ.Component{
			s.Card("Your teams", TeamsTable(s, teams)),
			s.Card("Create team", guardedPostForm("/teams", false, create,
				s.TextField(Field{Name: "name", Label: "Name", Signal: "teamName"}),
				s.GuardedSubmit("Create team", create.DisabledWhen()),
			)),
		},
	})
}

func TeamsTable(s Skin, teams []domain.Team) templ.Component {
	rows := make([][]templ.Component, 0, len(teams))
	for _, t := range teams {
		rows = append(rows, []templ.Component{
			link("/teams/"+t.Slug+"/settings", t.Name),
			Text(t.Slug),
			Text(strconv.Itoa(t.MemberCount)),
			Text(formatDate(t.CreatedAt)),
			s.ConfirmDialog(Dialog{
				ID:           "leave-" + t.Slug,
				TriggerLabel: "Leave team",
				Title:        "Leave team",
				Message:      "Are you sure you want to leave " + t.Name + "?",
				ConfirmLabel: "Leave",
				Action:       "/teams/" + t.Slug + "/leave",
				InPlace:      true,
			}),
		})
	}
	return s.Table("teams", []string{"Name", "Slug", "Members", "Created", ""}, rows)
}

func teamNav(slug string, apiKeys bool) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		w.raw("<nav class=\"team-nav\">")
		w.render(ctx, link("/teams/"+slug+"/settings", "Settings"), Text(" "), link("/teams/"+slug+"/members", "Members"))
		if apiKeys {
			w.render(ctx, Text(" "), link("/teams/"+slug+"/api-keys", "API keys"))
		}
		w.raw("</nav>")
	})
}

type TeamView struct {
	Team          domain.Team
	Role          domain.Role
	AllowDelete   bool
	AllowAPIKeys  bool
	CurrentUserID uint
}

func (v TeamView) can(resource, action string) bool { return v.Role.Can(resource, action) }

func TeamSettingsPage(s Skin, userEmail string, v TeamView, errs map[string]string, notice *Notice) templ.Component {
	readOnly := !v.can(domain.ResourceTeam, domain.ActionUpdate)
	fields := []templ.Component{
		s.TextField(Field{Name: "name", Label: "Team name", Value: v.Team.Name, Error: errs["name"], Disabled: readOnly, Signal: "teamSettingsName"}),
		s.TextField(Field{Name: "slug", Label: "Team slug", Value: v.Team.Slug, Error: errs["slug"], Disabled: readOnly, Signal: "teamSettingsSlug"}),
		s.TextField(Field{Name: "domain", Label: "Domain", Value: v.Team.Domain, Error: errs["domain"], Disabled: readOnly, Signal: "teamSettingsDomain"}),
	}
	settings := postForm("/teams/"+v.Team.Slug+"/settings", false, append(fields, s.SubmitButton("Save changes", true))...)
	if !readOnly {
		g := Guard{Key: "teamSettings", Schema: validation.UpdateTeam, Fields: []GuardField{
			{Signal: "teamSettingsName", Field: "name", Initial: v.Team.Name},
			{Signal: "teamSettingsSlug", Field: "slug", Initial: v.Team.Slug},
			{Signal: "teamSettingsDomain", Field: "domain", Initial: v.Team.Domain},
		}}
		settings = guardedPostForm("/teams/"+v.Team.Slug+"/settings", false, g,
			append(fields, s.GuardedSubmit("Save changes", g.DisabledWhen()))...)
	}
	body := []templ.Component{
		teamNav(v.Team.Slug, v.AllowAPIKeys),
		s.Card("Team settings", settings),
	}
	if v.AllowDelete && v.can(domain.ResourceTeam, domain.ActionDelete) {
		body = append(body, s.Card("Remove team",
			paragraph("Removing the team deletes everything that belongs to it. This cannot be undone."),
			s.ConfirmDialog(Dialog{
				ID:           "remove-team",
				TriggerLabel: "Remove team",
				Title:        "Remove team",
				Message:      "Are you sure you want to remove " + v.Team.Name + "?",
				ConfirmLabel: "Remove",
				Action:       "/teams/" + v.Team.Slug + "/delete",
			}),
		))
	}
	return s.Page(PageData{Title: v.Team.Name, UserEmail: userEmail, Notice: notice, Body: body})
}

func MembersPage(s Skin, userEmail string, v TeamView, members []domain.TeamMember, invitations []domain.Invitation, link InviteLink, notice *Notice) templ.Component {
	body := []templ.Component{
		teamNav(v.Team.Slug, v.AllowAPIKeys),
		s.Card("Members", MembersTable(s, v, members)),
	}
	if v.can(domain.ResourceTeamInvitation, domain.ActionCreate) {
		invite := Guard{Key: "invite", Schema: validation.Invitation, Fields: []GuardField{
			{Signal: "inviteEmail", Field: "email", Required: true},
		}, Signals: map[string]any{"inviteRole": string(domain.RoleMember)}}
		body = append(body,
			s.Card("Invite via email", guardedForm("/teams/"+v.Team.Slug+"/invitations", invite,
				s.TextField(Field{Name: "inviteEmail", Label: "Email", Type: "email", Bind: true}),
				s.SelectField(Field{Name: "inviteRole", Label: "Role", Bind: true}, roleOptions(domain.RoleMember)),
				s.GuardedSubmit("Send invite", invite.DisabledWhen()),
			)),
			s.Card("Invite via link", InviteLinkCard(s, v, link)),
			s.Card("Pending invitations", InvitationsTable(s, v, invitations)),
		)
	}
	return s.Page(PageData{Title: v.Team.Name + " members", UserEmail: userEmail, Notice: notice, Body: body})
}

func MembersTable(s Skin, v TeamView, members []domain.TeamMember) templ.Component {
	canUpdate := v.can(domain.ResourceTeamMember, domain.ActionUpdate)
	canRemove := v.can(domain.ResourceTeamMember, domain.ActionDelete)
	rows := make([][]templ.Component, 0, len(members))
	for _, m := range members {
		self := m.UserID == v.CurrentUserID
		id := strconv.FormatUint(uint64(m.UserID), 10)
		base := "/teams/" + v.Team.Slug + "/members/" + id

		role := Text(string(m.Role))
		if canUpdate && !self {
			role = s.SelectField(Field{
				Name:     "role-" + id,
				OnChange: "$memberRole = evt.target.value; @post('" + base + "/role')",
			}, roleOptions(m.Role))
		}
		var action templ.Component
		if canRemove && !self {
			action = s.ConfirmDialog(Dialog{
				ID:           "remove-member-" + id,
				TriggerLabel: "Remove",
				Title:        "Remove member",
				Message:      "Are you sure you want to remove " + m.User.Email + " from the team?",
				ConfirmLabel: "Remove",
				Action:       base + "/remove",
				InPlace:      true,
			})
		}
		rows = append(rows, []templ.Component{Text(m.User.Name), Text(m.User.Email), role, action})
	}
	return component(func(ctx context.Context, w *writer) {
		w.raw(`<div id="members" data-signals="{memberRole: ''}">`)
		w.render(ctx, s.Table("members-table", []string{"Name", "Email", "Role", ""}, rows))
		w.raw("</div>")
	})
}

// InviteLink is the team's shareable invitation. Invitation is nil until one
// is created.
type InviteLink struct {
	Invitation *domain.Invitation
	URL        string
}

func InviteLinkCard(s Skin, v TeamView, link InviteLink) templ.Component {
	var body []templ.Component
	if inv := link.Invitation; inv != nil {
		body = append(body,
			paragraph("Anyone with this link can join the team as "+string(inv.Role)+"."),
			code(link.URL),
		)
		if len(inv.AllowedDomains) > 0 {
			body = append(body, paragraph("Only emails from "+strings.Join(inv.AllowedDomains, ", ")+" can use it."))
		}
		if v.can(domain.ResourceTeamInvitation, domain.ActionDelete) {
			body = append(body, s.ConfirmDialog(Dialog{
				ID:           "delete-invite-link",
				TriggerLabel: "Delete link",
				Title:        "Delete invitation link",
				Message:      "Are you sure you want to delete the invitation link? Anyone holding it will no longer be able to join.",
				ConfirmLabel: "Delete",
				Action:       "/teams/" + v.Team.Slug + "/invitations/" + inv.ID + "/delete",
				InPlace:      true,
			}))
		}
	} else {
		g := Guard{Key: "link", Schema: validation.Invitation, Fields: []GuardField{
			{Signal: "linkRole", Field: "role"},
		}, Signals: map[string]any{"linkDomains": ""}}
		options := append([]Option{{Value: "", Label: "Choose a role", Selected: true}}, roleOptions("")...)
		body = append(body, guardedForm("/teams/"+v.Team.Slug+"/invitations/link", g,
			s.SelectField(Field{Name: "linkRole", Label: "Role", Bind: true}, options),
			s.TextField(Field{Name: "linkDomains", Label: "Allowed domains, comma separated", Bind: true}),
			s.GuardedSubmit("Create link", g.DisabledWhen()),
		))
	}
	return component(func(ctx context.Context, w *writer) {
		w.raw(`<div id="invite-link">`)
		w.render(ctx, body...)
		w.raw("</div>")
	})
}

func code(s string) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		w.raw("<p><code>")
		w.text(s)
		w.raw("</code></p>")
	})
}

func InvitationsTable(s Skin, v TeamView, invitations []domain.Invitation) templ.Component {
	canDelete := v.can(domain.ResourceTeamInvitation, domain.ActionDelete)
	rows := make([][]templ.Component, 0, len(invitations))
	for _, inv := range invitations {
		var action templ.Component
		if canDelete {
			action = s.ConfirmDialog(Dialog{
				ID:           "delete-invitation-" + inv.ID,
				TriggerLabel: "Delete",
				Title:        "Delete invitation",
				Message:      "Are you sure you want to delete the invitation for " + inv.Email + "?",
				ConfirmLabel: "Delete",
				Action:       "/teams/" + v.Team.Slug + "/invitations/" + inv.ID + "/delete",
				InPlace:      true,
			})
		}
		rows = append(rows, []templ.Component{Text(inv.Email), Text(string(inv.Role)), Text(formatDate(inv.ExpiresAt)), action})
	}
	return s.Table("invitations", []string{"Email", "Role", "Expires", ""}, rows)
}

func APIKeysPage(s Skin, userEmail string, v TeamView, keys []domain.APIKey, notice *Notice) templ.Component {
	body := []templ.Component{
		teamNav(v.Team.Slug, v.AllowAPIKeys),
		NewAPIKeyNotice(s, ""),
	}
	if v.can(domain.ResourceTeamAPIKey, domain.ActionCreate) {
		create := Guard{Key: "apiKeyName", Schema: validation.CreateAPIKey, Fields: []GuardField{
			{Signal: "apiKeyName", Field: "name"},
		}}
		body = append(body, s.Card("New API key", guardedForm("/teams/"+v.Team.Slug+"/api-keys", create,
			s.TextField(Field{Name: "apiKeyName", Label: "Name", Bind: true}),
			s.GuardedSubmit("Create API key", create.DisabledWhen()),
		)))
	}
	body = append(body, s.Card("API keys", APIKeysTable(s, v, keys)))
	return s.Page(PageData{Title: v.Team.Name + " API keys", UserEmail: userEmail, Notice: notice, Body: body})
}

func APIKeysTable(s Skin, v TeamView, keys []domain.APIKey) templ.Component {
	canDelete := v.can(domain.ResourceTeamAPIKey, domain.ActionDelete)
	rows := make([][]templ.Component, 0, len(keys))
	for _, k := range keys {
		expires := "Never"
		if k.ExpiresAt != nil {
			expires = formatDate(*k.ExpiresAt)
		}
		var action templ.Component
		if canDelete {
			action = s.ConfirmDialog(Dialog{
				ID:           "revoke-key-" + k.ID,
				TriggerLabel: "Revoke",
				Title:        "Revoke API key",
				Message:      "Are you sure you want to revoke " + k.Name + "? Requests using it will stop working.",
				ConfirmLabel: "Revoke",
				Action:       "/teams/" + v.Team.Slug + "/api-keys/" + k.ID + "/delete",
				InPlace:      true,
			})
		}
		rows = append(rows, []templ.Component{Text(k.Name), Text(formatDate(k.CreatedAt)), Text(expires), action})
	}
	return s.Table("api-keys", []string{"Name", "Created", "Expires", ""}, rows)
}

// NewAPIKeyNotice shows a freshly created key once. An empty key renders the
// placeholder the create response patches.
func NewAPIKeyNotice(s Skin, key string) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		w.raw(`<div id="new-api-key">`)
		if key != "" {
			w.render(ctx, s.Card("API key created",
				paragraph("Copy this key now. It will not be shown again."),
				code(key),
			))
		}
		w.raw("</div>")
	})
}
