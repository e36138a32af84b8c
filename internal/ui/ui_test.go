package ui

import (
	"bytes"
	"context"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igormartsekha/saas-starter-kit/internal/domain"
	"github.com/igormartsekha/saas-starter-kit/internal/validation"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func TestNewSelectsSkin(t *testing.T) {
	s, err := New("")
	require.NoError(t, err)
	assert.Equal(t, VersionPlain, s.Name())

	s, err = New("MUI")
	require.NoError(t, err)
	assert.Equal(t, VersionMUI, s.Name())

	_, err = New("bootstrap")
	assert.Error(t, err)
}

func TestSkinsEscapeText(t *testing.T) {
	for _, version := range []string{VersionPlain, VersionMUI} {
		s, err := New(version)
		require.NoError(t, err)

		out := render(t, s.Toast(`<script>alert(1)</script>`, ToastError))
		assert.NotContains(t, out, "<script>", version)
		assert.Contains(t, out, `id="toast"`, version)

		out = render(t, s.TextField(Field{Name: "accountName", Label: "Name", Value: `"><b>`, Bind: true}))
		assert.Contains(t, out, `data-bind="accountName"`, version)
		assert.NotContains(t, out, `"><b>`, version)
	}
}

func TestSkinsDifferInMarkup(t *testing.T) {
	plain, _ := New(VersionPlain)
	mui, _ := New(VersionMUI)

	assert.Contains(t, render(t, plain.SubmitButton("Save", true)), `class="btn"`)
	assert.Contains(t, render(t, mui.SubmitButton("Save", true)), "Mui-disabled")
	assert.Contains(t, render(t, mui.Card("Title")), "MuiCard-root")
}

func TestConfirmDialog(t *testing.T) {
	s, _ := New(VersionPlain)

	out := render(t, s.ConfirmDialog(Dialog{ID: "revoke-key-1", TriggerLabel: "Revoke", ConfirmLabel: "Revoke", Action: "/teams/acme/api-keys/1/delete", InPlace: true}))
	assert.Contains(t, out, `data-signals="{revoke_key_1Open: false}"`)
	assert.Contains(t, out, "$revoke_key_1Open = false; @post(&#39;/teams/acme/api-keys/1/delete&#39;)")

	out = render(t, s.ConfirmDialog(Dialog{ID: "remove-team", Action: "/teams/acme/delete"}))
	assert.Contains(t, out, `<form method="post" action="/teams/acme/delete">`)
}

func TestTeamPagesFollowRole(t *testing.T) {
	s, _ := New(VersionMUI)
	team := domain.Team{ID: 1, Name: "Acme", Slug: "acme"}
	members := []domain.TeamMember{
		{UserID: 1, Role: domain.RoleOwner, User: domain.ClientUser{ID: 1, Name: "Owner", Email: "owner@acme.com"}},
		{UserID: 2, Role: domain.RoleMember, User: domain.ClientUser{ID: 2, Name: "Member", Email: "member@acme.com"}},
	}

	owner := TeamView{Team: team, Role: domain.RoleOwner, AllowDelete: true, CurrentUserID: 1}
	out := render(t, MembersTable(s, owner, members))
	assert.Contains(t, out, "/teams/acme/members/2/remove")
	assert.NotContains(t, out, "/teams/acme/members/1/remove")

	member := TeamView{Team: team, Role: domain.RoleMember, AllowDelete: true, CurrentUserID: 2}
	out = render(t, MembersTable(s, member, members))
	assert.NotContains(t, out, "/remove")

	out = render(t, TeamSettingsPage(s, "owner@acme.com", owner, nil, nil))
	assert.Contains(t, out, "/teams/acme/delete")
	owner.AllowDelete = false
	out = render(t, TeamSettingsPage(s, "owner@acme.com", owner, nil, nil))
	assert.NotContains(t, out, "/teams/acme/delete")
}

func TestAccountPageHidesEmailWhenDisabled(t *testing.T) {
	s, _ := New(VersionPlain)
	user := domain.ClientUser{ID: 1, Name: "Jane", Email: "jane@acme.com"}

	out := render(t, AccountPage(s, user.Email, AccountView{User: user, AllowEmailChange: true}, nil))
	assert.Contains(t, out, "/settings/account/email")

	out = render(t, AccountPage(s, user.Email, AccountView{User: user}, &Notice{Message: "Successfully updated", Kind: ToastSuccess}))
	assert.NotContains(t, out, "/settings/account/email")
	assert.Contains(t, out, "Successfully updated")
}

func TestNewAPIKeyNotice(t *testing.T) {
	s, _ := New(VersionPlain)
	assert.Equal(t, `<div id="new-api-key"></div>`, render(t, NewAPIKeyNotice(s, "")))
	assert.Contains(t, render(t, NewAPIKeyNotice(s, "sk_123")), "<code>sk_123</code>")
}

func TestPristineFormDisablesSubmit(t *testing.T) {
	user := domain.ClientUser{ID: 1, Name: "Jane", Email: "jane@acme.com"}
	want := `$accountNameBusy || !($accountName !== "Jane") || !($accountName.length >= 1) || ` +
		`!($accountName.length <= 104) || !(/\S/.test($accountName))`

	for _, version := range []string{VersionPlain, VersionMUI} {
		s, _ := New(version)
		out := render(t, AccountPage(s, user.Email, AccountView{User: user}, nil))

		assert.Contains(t, out, `data-attr:disabled="`+templ.EscapeString(want)+`" disabled>Save changes</button>`, version)
		assert.Contains(t, out, `data-indicator="accountNameBusy"`, version)
		assert.Contains(t, out, `data-signals="`+templ.EscapeString(`{"accountName":"Jane","accountNameBusy":false}`)+`"`, version)
	}
}

func TestGuardExpressions(t *testing.T) {
	invite := Guard{Key: "invite", Schema: validation.Invitation, Fields: []GuardField{
		{Signal: "inviteEmail", Field: "email", Required: true},
	}}
	expr := invite.DisabledWhen()
	assert.Contains(t, expr, `!($inviteEmail !== "")`)
	assert.Contains(t, expr, "!($inviteEmail.length > 0)")
	assert.Contains(t, expr, "!($inviteEmail.length <= 254)")
	assert.Contains(t, expr, `/^[^\s@]+@[^\s@]+\.[^\s@]+$/.test($inviteEmail)`)
	assert.NotContains(t, expr, "$inviteEmail === ''")

	team := Guard{Key: "team", Schema: validation.UpdateTeam, Fields: []GuardField{
		{Signal: "teamDomain", Field: "domain", Initial: "acme.com"},
	}}
	assert.Contains(t, team.DisabledWhen(), "/i.test($teamDomain)")

	avatar := Guard{Key: "avatar", Ready: "$avatarReady"}
	assert.Equal(t, "$avatarBusy || !($avatarReady)", avatar.DisabledWhen())
}

func TestTeamSettingsReadOnlyHasNoGuard(t *testing.T) {
	s, _ := New(VersionPlain)
	team := domain.Team{ID: 1, Name: "Acme", Slug: "acme"}

	out := render(t, TeamSettingsPage(s, "member@acme.com", TeamView{Team: team, Role: domain.RoleMember}, nil, nil))
	assert.NotContains(t, out, "data-attr:disabled")
	assert.Contains(t, out, `disabled`)

	out = render(t, TeamSettingsPage(s, "owner@acme.com", TeamView{Team: team, Role: domain.RoleOwner}, nil, nil))
	assert.Contains(t, out, `data-bind="teamSettingsSlug"`)
	assert.Contains(t, out, "$teamSettingsBusy = true; el.submit()")
}

func TestInviteLinkCard(t *testing.T) {
	s, _ := New(VersionPlain)
	owner := TeamView{Team: domain.Team{ID: 1, Name: "Acme", Slug: "acme"}, Role: domain.RoleOwner}

	out := render(t, InviteLinkCard(s, owner, InviteLink{}))
	assert.Contains(t, out, `data-on:submit="@post(&#39;/teams/acme/invitations/link&#39;)"`)
	assert.Contains(t, out, "$linkRole.length &gt; 0")

	inv := domain.Invitation{ID: "inv-1", Role: domain.RoleAdmin, Token: "tok", AllowedDomains: []string{"acme.com"}}
	out = render(t, InviteLinkCard(s, owner, InviteLink{Invitation: &inv, URL: inv.URL("https://app.example.com")}))
	assert.Contains(t, out, "<code>https://app.example.com/login?invite=tok</code>")
	assert.Contains(t, out, "Only emails from acme.com can use it.")
	assert.Contains(t, out, "/teams/acme/invitations/inv-1/delete")
	assert.NotContains(t, out, "/invitations/link")
}
