package domain

import "context"

type Repository interface {
	CreateUser(ctx context.Context, value User) (User, error)
	CountUsers(ctx context.Context) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, id uint) (User, error)
	UpdateUser(ctx context.Context, id uint, update UserUpdate) (User, error)
	UpdatePasswordHash(ctx context.Context, id uint, hash string) error

	CreateSession(ctx context.Context, value AuthSession) (AuthSession, error)
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (AuthSession, error)
	DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error
	DeleteSessionsByUserID(ctx context.Context, userID uint) error
	CreateAPIToken(ctx context.Context, value APIToken) (APIToken, error)
	GetAPITokenByTokenHash(ctx context.Context, tokenHash string) (APIToken, error)

	CreateTeam(ctx context.Context, value Team, ownerID uint) (Team, error)
	GetTeamBySlug(ctx context.Context, slug string) (Team, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	UpdateTeam(ctx context.Context, id uint, value Team) (Team, error)
	DeleteTeam(ctx context.Context, id uint) error
	ListTeamsForUser(ctx context.Context, userID uint) ([]Team, error)

	GetTeamMember(ctx context.Context, teamID, userID uint) (TeamMember, error)
	ListTeamMembers(ctx context.Context, teamID uint) ([]TeamMember, error)
	AddTeamMember(ctx context.Context, teamID, userID uint, role Role) (TeamMember, error)
	UpdateTeamMemberRole(ctx context.Context, teamID, userID uint, role Role) (TeamMember, error)
	RemoveTeamMember(ctx context.Context, teamID, userID uint) error
	CountTeamOwners(ctx context.Context, teamID uint) (int64, error)

	CreateInvitation(ctx context.Context, value Invitation) (Invitation, error)
	GetInvitationByID(ctx context.Context, id string) (Invitation, error)
	GetInvitationByToken(ctx context.Context, token string) (Invitation, error)
	FindInvitationByEmail(ctx context.Context, teamID uint, email string) (Invitation, error)
	ListInvitations(ctx context.Context, teamID uint, sentViaEmail *bool) ([]Invitation, error)
	DeleteInvitation(ctx context.Context, id string) error

	CreateAPIKey(ctx context.Context, value APIKey) (APIKey, error)
	ListAPIKeys(ctx context.Context, teamID uint) ([]APIKey, error)
	GetAPIKey(ctx context.Context, teamID uint, id string) (APIKey, error)
	DeleteAPIKey(ctx context.Context, id string) error

	CreateAuditLog(ctx context.Context, value AuditLog) error
	ListAuditLogs(ctx context.Context, filter AuditFilter) ([]AuditRecord, error)
}
