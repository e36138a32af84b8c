package application

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igormartsekha/saas-starter-kit/internal/adapters/db/sqlite"
	"github.com/igormartsekha/saas-starter-kit/internal/domain"
	"github.com/igormartsekha/saas-starter-kit/internal/validation"
)

func newTestService(t *testing.T, settings Settings) *Service {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "service_test.db"))
	require.NoError(t, err)
	require.NoError(t, sqlite.RunMigrations(context.Background(), db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewService(sqlite.NewRepository(db), settings, nil)
}

func join(t *testing.T, svc *Service, name, email string) domain.Identity {
	t.Helper()
	u, err := svc.Join(context.Background(), JoinInput{Name: name, Email: email, Password: "password123"})
	require.NoError(t, err)
	return domain.Identity{User: u}
}

func requireAPIError(t *testing.T, err error, status int, message string) {
	t.Helper()
	var apiErr *domain.APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
	assert.Equal(t, status, apiErr.Status)
	assert.Equal(t, message, apiErr.Message)
}

func strPtr(s string) *string { return &s }

func TestSlugify(t *testing.T) {
	assert.Equal(t, "acme", Slugify("Acme"))
	assert.Equal(t, "acme-inc", Slugify("  Acme,  Inc. "))
	assert.Equal(t, "a-b-c", Slugify("a--b__c"))
}

func TestUpdateAccountEmailRules(t *testing.T) {
	ctx := context.Background()

	disabled := DefaultSettings()
	disabled.AllowEmailChange = false
	svc := newTestService(t, disabled)
	jane := join(t, svc, "Jane", "jane@acme.com")

	_, err := svc.UpdateAccount(ctx, jane, domain.UserUpdate{Email: strPtr("x@y.com")})
	requireAPIError(t, err, http.StatusBadRequest, "Email change is not allowed.")

	strict := DefaultSettings()
	strict.DisableNonBusinessEmail = true
	strict.BlockedEmailDomains = []string{"gmail.com"}
	svc = newTestService(t, strict)
	jane = join(t, svc, "Jane", "jane@acme.com")
	join(t, svc, "Bob", "bob@acme.com")

	_, err = svc.UpdateAccount(ctx, jane, domain.UserUpdate{Email: strPtr("jane@gmail.com")})
	requireAPIError(t, err, http.StatusBadRequest, "Please use your work email.")

	_, err = svc.UpdateAccount(ctx, jane, domain.UserUpdate{Email: strPtr("bob@acme.com")})
	requireAPIError(t, err, http.StatusBadRequest, "Email already in use.")

	u, err := svc.UpdateAccount(ctx, jane, domain.UserUpdate{Email: strPtr("jane@acme.io")})
	require.NoError(t, err)
	assert.Equal(t, "jane@acme.io", u.Email)

	u, err = svc.UpdateAccount(ctx, jane, domain.UserUpdate{Name: strPtr("Jane Doe")})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", u.Name)
}

func TestUpdateAccountValidates(t *testing.T) {
	svc := newTestService(t, DefaultSettings())
	jane := join(t, svc, "Jane", "jane@acme.com")

	_, err := svc.UpdateAccount(context.Background(), jane, domain.UserUpdate{})
	var verrs validation.Errors
	require.True(t, errors.As(err, &verrs))
	assert.Contains(t, verrs, validation.FormField)
}

func TestUpdatePassword(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, DefaultSettings())
	jane := join(t, svc, "Jane", "jane@acme.com")

	err := svc.UpdatePassword(ctx, jane, PasswordInput{CurrentPassword: "wrong-password", NewPassword: "new-password"}, "")
	requireAPIError(t, err, http.StatusBadRequest, "Your current password is incorrect.")

	require.NoError(t, svc.UpdatePassword(ctx, jane, PasswordInput{CurrentPassword: "password123", NewPassword: "new-password"}, ""))
	_, _, err = svc.LoginWithSession(ctx, "jane@acme.com", "new-password")
	require.NoError(t, err)
}

func TestCreateTeamDerivesSlugAndRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, DefaultSettings())
	jane := join(t, svc, "Jane", "jane@acme.com")

	team, err := svc.CreateTeam(ctx, jane, CreateTeamInput{Name: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "acme", team.Slug)

	_, err = svc.CreateTeam(ctx, jane, CreateTeamInput{Name: "ACME"})
	requireAPIError(t, err, http.StatusBadRequest, "A team with the slug already exists.")

	teams, err := svc.ListTeams(ctx, jane)
	require.NoError(t, err)
	require.Len(t, teams, 1)
}

func TestTeamPermissions(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, DefaultSettings())
	owner := join(t, svc, "Owner", "owner@acme.com")
	outsider := join(t, svc, "Eve", "eve@acme.com")

	_, err := svc.CreateTeam(ctx, owner, CreateTeamInput{Name: "Acme"})
	require.NoError(t, err)

	_, err = svc.GetTeam(ctx, outsider, "acme")
	requireAPIError(t, err, http.StatusNotFound, "Team not found")

	inv, err := svc.CreateInvitation(ctx, owner, "acme", InvitationInput{Email: "eve@acme.com", Role: domain.RoleMember, SentViaEmail: true})
	require.NoError(t, err)
	_, err = svc.AcceptInvitation(ctx, outsider, inv.Token)
	require.NoError(t, err)

	_, err = svc.UpdateTeam(ctx, outsider, "acme", UpdateTeamInput{Name: "Evil", Slug: "evil"})
	requireAPIError(t, err, http.StatusForbidden, "You don't have permission to do this action.")

	updated, err := svc.UpdateTeam(ctx, owner, "acme", UpdateTeamInput{Name: "Acme Inc", Slug: "acme-inc", Domain: "acme.com"})
	require.NoError(t, err)
	assert.Equal(t, "acme-inc", updated.Slug)
	assert.Equal(t, 2, updated.MemberCount)
}

func TestDeleteTeamFeatureGate(t *testing.T) {
	ctx := context.Background()
	settings := DefaultSettings()
	settings.AllowDeleteTeam = false
	svc := newTestService(t, settings)
	owner := join(t, svc, "Owner", "owner@acme.com")
	_, err := svc.CreateTeam(ctx, owner, CreateTeamInput{Name: "Acme"})
	require.NoError(t, err)

	err = svc.DeleteTeam(ctx, owner, "acme")
	requireAPIError(t, err, http.StatusNotFound, "Not Found")

	svc.settings.AllowDeleteTeam = true
	require.NoError(t, svc.DeleteTeam(ctx, owner, "acme"))
	_, err = svc.GetTeam(ctx, owner, "acme")
	requireAPIError(t, err, http.StatusNotFound, "Team not found")
}

func TestLeaveTeamKeepsAnOwner(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, DefaultSettings())
	owner := join(t, svc, "Owner", "owner@acme.com")
	bob := join(t, svc, "Bob", "bob@acme.com")
	_, err := svc.CreateTeam(ctx, owner, CreateTeamInput{Name: "Acme"})
	require.NoError(t, err)

	err = svc.LeaveTeam(ctx, owner, "acme")
	requireAPIError(t, err, http.StatusBadRequest, "A team should have at least one owner.")

	inv, err := svc.CreateInvitation(ctx, owner, "acme", InvitationInput{Email: "bob@acme.com", Role: domain.RoleMember, SentViaEmail: true})
	require.NoError(t, err)
	_, err = svc.AcceptInvitation(ctx, bob, inv.Token)
	require.NoError(t, err)

	_, err = svc.UpdateMemberRole(ctx, owner, "acme", UpdateRoleInput{MemberID: bob.User.ID, Role: domain.RoleOwner})
	require.NoError(t, err)
	require.NoError(t, svc.LeaveTeam(ctx, owner, "acme"))

	members, err := svc.ListMembers(ctx, bob, "acme")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, domain.RoleOwner, members[0].Role)
}

func TestRemoveMember(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, DefaultSettings())
	owner := join(t, svc, "Owner", "owner@acme.com")
	bob := join(t, svc, "Bob", "bob@acme.com")
	_, err := svc.CreateTeam(ctx, owner, CreateTeamInput{Name: "Acme"})
	require.NoError(t, err)
	inv, err := svc.CreateInvitation(ctx, owner, "acme", InvitationInput{Email: "bob@acme.com", Role: domain.RoleMember, SentViaEmail: true})
	require.NoError(t, err)
	_, err = svc.AcceptInvitation(ctx, bob, inv.Token)
	require.NoError(t, err)

	err = svc.RemoveMember(ctx, bob, "acme", owner.User.ID)
	requireAPIError(t, err, http.StatusForbidden, "You don't have permission to do this action.")

	require.NoError(t, svc.RemoveMember(ctx, owner, "acme", bob.User.ID))
	members, err := svc.ListMembers(ctx, owner, "acme")
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestInvitationRules(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, DefaultSettings())
	owner := join(t, svc, "Owner", "owner@acme.com")
	_, err := svc.CreateTeam(ctx, owner, CreateTeamInput{Name: "Acme"})
	require.NoError(t, err)

	_, err = svc.CreateInvitation(ctx, owner, "acme", InvitationInput{Email: "owner@acme.com", Role: domain.RoleMember, SentViaEmail: true})
	requireAPIError(t, err, http.StatusBadRequest, "This user is already a member of the team.")

	inv, err := svc.CreateInvitation(ctx, owner, "acme", InvitationInput{Email: "new@acme.com", Role: domain.RoleAdmin, SentViaEmail: true})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), inv.ExpiresAt, time.Minute)

	_, err = svc.CreateInvitation(ctx, owner, "acme", InvitationInput{Email: "NEW@acme.com", Role: domain.RoleMember, SentViaEmail: true})
	requireAPIError(t, err, http.StatusBadRequest, "An invitation already exists for this email.")

	viaEmail := true
	list, err := svc.ListInvitations(ctx, owner, "acme", &viaEmail)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, svc.DeleteInvitation(ctx, owner, "acme", inv.ID))
	err = svc.DeleteInvitation(ctx, owner, "acme", inv.ID)
	requireAPIError(t, err, http.StatusNotFound, "Invitation not found.")
}

func TestInvitationRequiresWorkEmail(t *testing.T) {
	ctx := context.Background()
	strict := DefaultSettings()
	strict.DisableNonBusinessEmail = true
	strict.BlockedEmailDomains = []string{"gmail.com"}
	svc := newTestService(t, strict)
	owner := join(t, svc, "Owner", "owner@acme.com")
	_, err := svc.CreateTeam(ctx, owner, CreateTeamInput{Name: "Acme"})
	require.NoError(t, err)

	_, err = svc.CreateInvitation(ctx, owner, "acme", InvitationInput{Email: "x@gmail.com", Role: domain.RoleMember, SentViaEmail: true})
	requireAPIError(t, err, http.StatusBadRequest, "Please use your work email.")

	viaEmail := true
	list, err := svc.ListInvitations(ctx, owner, "acme", &viaEmail)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestJoinRejectsTeamWithoutSlug(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, DefaultSettings())

	_, err := svc.Join(ctx, JoinInput{Name: "Jane", Email: "jane@acme.com", Password: "password123", Team: "!!!"})
	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "Team name must contain letters or digits", verrs["team"])

	// No user was stored, so the address is still free.
	jane := join(t, svc, "Jane", "jane@acme.com")
	teams, err := svc.ListTeams(ctx, jane)
	require.NoError(t, err)
	assert.Empty(t, teams)
}

func TestLinkInvitations(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, DefaultSettings())
	owner := join(t, svc, "Owner", "owner@acme.com")
	_, err := svc.CreateTeam(ctx, owner, CreateTeamInput{Name: "Acme"})
	require.NoError(t, err)

	link, err := svc.CreateInvitation(ctx, owner, "acme", InvitationInput{
		Email: "ignored@acme.com", Role: domain.RoleMember, AllowedDomains: []string{" ACME.com "},
	})
	require.NoError(t, err)
	assert.Empty(t, link.Email)
	assert.False(t, link.SentViaEmail)
	assert.Equal(t, []string{"acme.com"}, link.AllowedDomains)

	_, err = svc.CreateInvitation(ctx, owner, "acme", InvitationInput{Role: domain.RoleAdmin})
	requireAPIError(t, err, http.StatusBadRequest, "An invitation link already exists for this team.")

	_, err = svc.CreateInvitation(ctx, owner, "acme", InvitationInput{Role: domain.RoleMember, SentViaEmail: true})
	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "Email is required", verrs["email"])

	_, err = svc.Join(ctx, JoinInput{Name: "Eve", Email: "eve@other.com", Password: "password123", InviteToken: link.Token})
	requireAPIError(t, err, http.StatusBadRequest, "Your email domain is not allowed to join this team.")

	for _, email := range []string{"bob@acme.com", "ann@acme.com"} {
		u, err := svc.Join(ctx, JoinInput{Name: "Member", Email: email, Password: "password123", InviteToken: link.Token})
		require.NoError(t, err)
		role, err := svc.TeamRole(ctx, domain.Identity{User: u}, "acme")
		require.NoError(t, err)
		assert.Equal(t, domain.RoleMember, role)
	}

	outsider := join(t, svc, "Out", "out@else.org")
	_, err = svc.AcceptInvitation(ctx, outsider, link.Token)
	requireAPIError(t, err, http.StatusBadRequest, "Your email domain is not allowed to join this team.")

	viaLink := false
	list, err := svc.ListInvitations(ctx, owner, "acme", &viaLink)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, link.Token, list[0].Token)
}

func TestJoinWithInvitation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, DefaultSettings())
	owner := join(t, svc, "Owner", "owner@acme.com")
	_, err := svc.CreateTeam(ctx, owner, CreateTeamInput{Name: "Acme"})
	require.NoError(t, err)
	inv, err := svc.CreateInvitation(ctx, owner, "acme", InvitationInput{Email: "new@acme.com", Role: domain.RoleAdmin, SentViaEmail: true})
	require.NoError(t, err)

	_, err = svc.Join(ctx, JoinInput{Name: "Other", Email: "other@acme.com", Password: "password123", InviteToken: inv.Token})
	requireAPIError(t, err, http.StatusBadRequest, "You must use the email address you received the invitation on.")

	u, err := svc.Join(ctx, JoinInput{Name: "New", Email: "new@acme.com", Password: "password123", InviteToken: inv.Token})
	require.NoError(t, err)

	role, err := svc.TeamRole(ctx, domain.Identity{User: u}, "acme")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, role)
}

func TestAPIKeys(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, DefaultSettings())
	owner := join(t, svc, "Owner", "owner@acme.com")
	_, err := svc.CreateTeam(ctx, owner, CreateTeamInput{Name: "Acme"})
	require.NoError(t, err)

	plain, err := svc.CreateAPIKey(ctx, owner, "acme", CreateAPIKeyInput{Name: "ci"})
	require.NoError(t, err)
	assert.NotEmpty(t, plain)

	keys, err := svc.ListAPIKeys(ctx, owner, "acme")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, hashToken(plain), keys[0].HashedKey)

	require.NoError(t, svc.DeleteAPIKey(ctx, owner, "acme", keys[0].ID))
	err = svc.DeleteAPIKey(ctx, owner, "acme", keys[0].ID)
	requireAPIError(t, err, http.StatusNotFound, "API key not found")

	logs, err := svc.ListAuditLogs(ctx, owner, "acme", 10)
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	assert.Equal(t, "api_key.delete", logs[0].Action)

	member := join(t, svc, "Member", "member@acme.com")
	_, err = svc.ListAuditLogs(ctx, member, "acme", 10)
	requireAPIError(t, err, http.StatusNotFound, "Team not found")

	own, err := svc.ListAuditLogs(ctx, member, "", 10)
	require.NoError(t, err)
	for _, l := range own {
		require.NotNil(t, l.ActorUserID)
		assert.Equal(t, member.User.ID, *l.ActorUserID)
	}
}

func TestBootstrapAdminOnlyOnce(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, DefaultSettings())

	require.NoError(t, svc.BootstrapAdmin(ctx, "admin@acme.com", "admin12345"))
	require.NoError(t, svc.BootstrapAdmin(ctx, "other@acme.com", "admin12345"))

	u, token, err := svc.LoginWithSession(ctx, "admin@acme.com", "admin12345")
	require.NoError(t, err)
	identity, err := svc.AuthenticateSession(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, identity.User.ID)

	_, _, err = svc.LoginWithSession(ctx, "other@acme.com", "admin12345")
	requireAPIError(t, err, http.StatusUnauthorized, "Invalid email or password")
}
