package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igormartsekha/saas-starter-kit/internal/domain"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	ctx := context.Background()
	db, err := Open(filepath.Join(t.TempDir(), "saaskit_test.db"))
	require.NoError(t, err, "open db")
	require.NoError(t, RunMigrations(ctx, db), "run migrations")
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewRepository(db)
}

func TestTeamLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	owner, err := repo.CreateUser(ctx, domain.User{Name: "Owner", Email: " Owner@Acme.com ", PasswordHash: "x"})
	require.NoError(t, err)
	assert.Equal(t, "owner@acme.com", owner.Email)
	member, err := repo.CreateUser(ctx, domain.User{Name: "Member", Email: "member@acme.com", PasswordHash: "x"})
	require.NoError(t, err)

	team, err := repo.CreateTeam(ctx, domain.Team{Name: "Acme", Slug: "acme"}, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, team.MemberCount)

	exists, err := repo.SlugExists(ctx, "acme")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = repo.AddTeamMember(ctx, team.ID, member.ID, domain.RoleMember)
	require.NoError(t, err)

	got, err := repo.GetTeamBySlug(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, 2, got.MemberCount)

	teams, err := repo.ListTeamsForUser(ctx, member.ID)
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, "acme", teams[0].Slug)
	assert.Equal(t, 2, teams[0].MemberCount)

	members, err := repo.ListTeamMembers(ctx, team.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, domain.RoleOwner, members[0].Role)
	assert.Equal(t, "member@acme.com", members[1].User.Email)

	updated, err := repo.UpdateTeamMemberRole(ctx, team.ID, member.ID, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, updated.Role)

	owners, err := repo.CountTeamOwners(ctx, team.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, owners)

	renamed, err := repo.UpdateTeam(ctx, team.ID, domain.Team{Name: "Acme Inc", Slug: "acme-inc", Domain: "acme.com"})
	require.NoError(t, err)
	assert.Equal(t, "acme-inc", renamed.Slug)

	_, err = repo.GetTeamBySlug(ctx, "acme")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.RemoveTeamMember(ctx, team.ID, member.ID))
	assert.ErrorIs(t, repo.RemoveTeamMember(ctx, team.ID, member.ID), domain.ErrNotFound)

	require.NoError(t, repo.DeleteTeam(ctx, team.ID))
	teams, err = repo.ListTeamsForUser(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, teams)
}

func TestUpdateUserPartial(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	user, err := repo.CreateUser(ctx, domain.User{Name: "Jane", Email: "jane@acme.com", PasswordHash: "x"})
	require.NoError(t, err)

	name := "Jane Doe"
	updated, err := repo.UpdateUser(ctx, user.ID, domain.UserUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", updated.Name)
	assert.Equal(t, "jane@acme.com", updated.Email)

	_, err = repo.UpdateUser(ctx, 999, domain.UserUpdate{Name: &name})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInvitationsAndAPIKeys(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	owner, err := repo.CreateUser(ctx, domain.User{Name: "Owner", Email: "owner@acme.com", PasswordHash: "x"})
	require.NoError(t, err)
	team, err := repo.CreateTeam(ctx, domain.Team{Name: "Acme", Slug: "acme"}, owner.ID)
	require.NoError(t, err)

	_, err = repo.CreateInvitation(ctx, domain.Invitation{ID: "inv-1", TeamID: team.ID, Email: "Bob@Acme.com", Role: domain.RoleMember, Token: "tok-1", InvitedBy: owner.ID, SentViaEmail: true, ExpiresAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	_, err = repo.CreateInvitation(ctx, domain.Invitation{ID: "inv-2", TeamID: team.ID, Role: domain.RoleMember, Token: "tok-2", InvitedBy: owner.ID, SentViaEmail: false, AllowedDomains: []string{"Acme.com", "acme.io"}, ExpiresAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	viaEmail := true
	invites, err := repo.ListInvitations(ctx, team.ID, &viaEmail)
	require.NoError(t, err)
	require.Len(t, invites, 1)
	assert.Equal(t, "bob@acme.com", invites[0].Email)

	found, err := repo.FindInvitationByEmail(ctx, team.ID, "BOB@acme.com")
	require.NoError(t, err)
	assert.Equal(t, "inv-1", found.ID)

	byToken, err := repo.GetInvitationByToken(ctx, "tok-2")
	require.NoError(t, err)
	assert.Equal(t, "inv-2", byToken.ID)
	assert.False(t, byToken.SentViaEmail)
	assert.Equal(t, []string{"acme.com", "acme.io"}, byToken.AllowedDomains)
	assert.Equal(t, []string{}, invites[0].AllowedDomains)

	link, err := repo.FindInvitationByEmail(ctx, team.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "inv-2", link.ID)

	require.NoError(t, repo.DeleteInvitation(ctx, "inv-1"))
	_, err = repo.GetInvitationByID(ctx, "inv-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	key, err := repo.CreateAPIKey(ctx, domain.APIKey{ID: "key-1", TeamID: team.ID, Name: "ci", HashedKey: "hash"})
	require.NoError(t, err)
	keys, err := repo.ListAPIKeys(ctx, team.ID)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "ci", keys[0].Name)

	require.NoError(t, repo.DeleteAPIKey(ctx, key.ID))
	_, err = repo.GetAPIKey(ctx, team.ID, key.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAuditLogsFilters(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	owner, err := repo.CreateUser(ctx, domain.User{Name: "Owner", Email: "owner@acme.com", PasswordHash: "x"})
	require.NoError(t, err)
	teamID := uint(7)

	require.NoError(t, repo.CreateAuditLog(ctx, domain.AuditLog{ActorUserID: &owner.ID, Action: "user.login", TargetType: "user", TargetID: "1"}))
	require.NoError(t, repo.CreateAuditLog(ctx, domain.AuditLog{ActorUserID: &owner.ID, TeamID: &teamID, Action: "team.update", TargetType: "team", TargetID: "7"}))

	other := uint(99)
	require.NoError(t, repo.CreateAuditLog(ctx, domain.AuditLog{ActorUserID: &other, Action: "user.join", TargetType: "user", TargetID: "99"}))

	all, err := repo.ListAuditLogs(ctx, domain.AuditFilter{ActorUserID: &owner.ID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "team.update", all[0].Action)
	assert.Equal(t, "owner@acme.com", all[0].ActorUserEmail)

	scoped, err := repo.ListAuditLogs(ctx, domain.AuditFilter{TeamID: &teamID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "team", scoped[0].TargetType)
}
