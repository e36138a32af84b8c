package sqlite

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/igormartsekha/saas-starter-kit/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

type Repository struct {
	db *gorm.DB
}

func Open(path string) (*gorm.DB, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}
	return gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        dsn,
	}, &gorm.Config{})
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

var _ domain.Repository = (*Repository)(nil)

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toUser(m UserModel) domain.User {
	return domain.User{ID: m.ID, Name: m.Name, Email: m.Email, Image: m.Image, PasswordHash: m.PasswordHash, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

func (r *Repository) CreateUser(ctx context.Context, value domain.User) (domain.User, error) {
	m := UserModel{Name: strings.TrimSpace(value.Name), Email: normalizeEmail(value.Email), Image: value.Image, PasswordHash: value.PasswordHash}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.User{}, err
	}
	return toUser(m), nil
}

func (r *Repository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&UserModel{}).Count(&count).Error
	return count, err
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var m UserModel
	if err := r.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&m).Error; err != nil {
		return domain.User{}, notFound(err)
	}
	return toUser(m), nil
}

func (r *Repository) GetUserByID(ctx context.Context, id uint) (domain.User, error) {
	var m UserModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return domain.User{}, notFound(err)
	}
	return toUser(m), nil
}

func (r *Repository) UpdateUser(ctx context.Context, id uint, update domain.UserUpdate) (domain.User, error) {
	updates := map[string]any{}
	if update.Name != nil {
		updates["name"] = strings.TrimSpace(*update.Name)
	}
	if update.Email != nil {
		updates["email"] = normalizeEmail(*update.Email)
	}
	if update.Image != nil {
		updates["image"] = *update.Image
	}
	if len(updates) > 0 {
		updates["updated_at"] = time.Now().UTC()
		res := r.db.WithContext(ctx).Model(&UserModel{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return domain.User{}, res.Error
		}
		if res.RowsAffected == 0 {
			return domain.User{}, domain.ErrNotFound
		}
	}
	return r.GetUserByID(ctx, id)
}

func (r *Repository) UpdatePasswordHash(ctx context.Context, id uint, hash string) error {
	res := r.db.WithContext(ctx).Model(&UserModel{}).Where("id = ?", id).
		Updates(map[string]any{"password_hash": hash, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) CreateSession(ctx context.Context, value domain.AuthSession) (domain.AuthSession, error) {
	m := SessionModel{UserID: value.UserID, TokenHash: value.TokenHash, ExpiresAt: value.ExpiresAt}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.AuthSession{}, err
	}
	return domain.AuthSession{ID: m.ID, UserID: m.UserID, TokenHash: m.TokenHash, ExpiresAt: m.ExpiresAt, CreatedAt: m.CreatedAt}, nil
}

func (r *Repository) GetSessionByTokenHash(ctx context.Context, tokenHash string) (domain.AuthSession, error) {
	var m SessionModel
	if err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&m).Error; err != nil {
		return domain.AuthSession{}, notFound(err)
	}
	return domain.AuthSession{ID: m.ID, UserID: m.UserID, TokenHash: m.TokenHash, ExpiresAt: m.ExpiresAt, CreatedAt: m.CreatedAt}, nil
}

func (r *Repository) DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error {
	return r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).Delete(&SessionModel{}).Error
}

func (r *Repository) DeleteSessionsByUserID(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&SessionModel{}).Error
}

func (r *Repository) CreateAPIToken(ctx context.Context, value domain.APIToken) (domain.APIToken, error) {
	m := APITokenModel{UserID: value.UserID, Name: value.Name, TokenHash: value.TokenHash, ExpiresAt: value.ExpiresAt}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.APIToken{}, err
	}
	return domain.APIToken{ID: m.ID, UserID: m.UserID, Name: m.Name, TokenHash: m.TokenHash, ExpiresAt: m.ExpiresAt, CreatedAt: m.CreatedAt}, nil
}

func (r *Repository) GetAPITokenByTokenHash(ctx context.Context, tokenHash string) (domain.APIToken, error) {
	var m APITokenModel
	if err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&m).Error; err != nil {
		return domain.APIToken{}, notFound(err)
	}
	return domain.APIToken{ID: m.ID, UserID: m.UserID, Name: m.Name, TokenHash: m.TokenHash, ExpiresAt: m.ExpiresAt, CreatedAt: m.CreatedAt}, nil
}

func toTeam(m TeamModel, members int) domain.Team {
	return domain.Team{ID: m.ID, Name: m.Name, Slug: m.Slug, Domain: m.Domain, MemberCount: members, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

// CreateTeam inserts the team and its first OWNER membership in one transaction.
func (r *Repository) CreateTeam(ctx context.Context, value domain.Team, ownerID uint) (domain.Team, error) {
	m := TeamModel{Name: strings.TrimSpace(value.Name), Slug: value.Slug, Domain: value.Domain}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		member := TeamMemberModel{TeamID: m.ID, UserID: ownerID, Role: string(domain.RoleOwner)}
		return tx.Create(&member).Error
	})
	if err != nil {
		return domain.Team{}, err
	}
	return toTeam(m, 1), nil
}

func (r *Repository) countMembers(ctx context.Context, teamID uint) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&TeamMemberModel{}).Where("team_id = ?", teamID).Count(&count).Error
	return int(count), err
}

func (r *Repository) GetTeamBySlug(ctx context.Context, slug string) (domain.Team, error) {
	var m TeamModel
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&m).Error; err != nil {
		return domain.Team{}, notFound(err)
	}
	members, err := r.countMembers(ctx, m.ID)
	if err != nil {
		return domain.Team{}, err
	}
	return toTeam(m, members), nil
}

func (r *Repository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&TeamModel{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

func (r *Repository) UpdateTeam(ctx context.Context, id uint, value domain.Team) (domain.Team, error) {
	res := r.db.WithContext(ctx).Model(&TeamModel{}).Where("id = ?", id).Updates(map[string]any{
		"name":       strings.TrimSpace(value.Name),
		"slug":       value.Slug,
		"domain":     value.Domain,
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		return domain.Team{}, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.Team{}, domain.ErrNotFound
	}
	return r.GetTeamBySlug(ctx, value.Slug)
}

// DeleteTeam removes the team together with its members, invitations and API keys.
func (r *Repository) DeleteTeam(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&TeamMemberModel{}, &InvitationModel{}, &APIKeyModel{}} {
			if err := tx.Where("team_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		res := tx.Delete(&TeamModel{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

func (r *Repository) ListTeamsForUser(ctx context.Context, userID uint) ([]domain.Team, error) {
	type row struct {
		ID          uint
		Name        string
		Slug        string
		Domain      string
		MemberCount int
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}
	rows := make([]row, 0)
	err := r.db.WithContext(ctx).Raw(`
SELECT t.id,
       t.name,
       t.slug,
       t.domain,
       t.created_at,
       t.updated_at,
       (SELECT COUNT(*) FROM team_members c WHERE c.team_id = t.id) AS member_count
FROM teams t
JOIN team_members m ON m.team_id = t.id
WHERE m.user_id = ?
ORDER BY t.created_at DESC, t.id DESC
`, userID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]domain.Team, 0, len(rows))
	for _, m := range rows {
		result = append(result, domain.Team{ID: m.ID, Name: m.Name, Slug: m.Slug, Domain: m.Domain, MemberCount: m.MemberCount, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt})
	}
	return result, nil
}

type memberRow struct {
	ID        uint
	TeamID    uint
	UserID    uint
	Role      string
	CreatedAt time.Time
	UserName  string
	UserEmail string
	UserImage string
}

func (m memberRow) toDomain() domain.TeamMember {
	return domain.TeamMember{
		ID:        m.ID,
		TeamID:    m.TeamID,
		UserID:    m.UserID,
		Role:      domain.Role(m.Role),
		User:      domain.ClientUser{ID: m.UserID, Name: m.UserName, Email: m.UserEmail, Image: m.UserImage},
		CreatedAt: m.CreatedAt,
	}
}

const memberSelect = `
SELECT m.id,
       m.team_id,
       m.user_id,
       m.role,
       m.created_at,
       u.name AS user_name,
       u.email AS user_email,
       u.image AS user_image
FROM team_members m
JOIN users u ON u.id = m.user_id
`

func (r *Repository) GetTeamMember(ctx context.Context, teamID, userID uint) (domain.TeamMember, error) {
	rows := make([]memberRow, 0, 1)
	err := r.db.WithContext(ctx).Raw(memberSelect+"WHERE m.team_id = ? AND m.user_id = ?", teamID, userID).Scan(&rows).Error
	if err != nil {
		return domain.TeamMember{}, err
	}
	if len(rows) == 0 {
		return domain.TeamMember{}, domain.ErrNotFound
	}
	return rows[0].toDomain(), nil
}

func (r *Repository) ListTeamMembers(ctx context.Context, teamID uint) ([]domain.TeamMember, error) {
	rows := make([]memberRow, 0)
	err := r.db.WithContext(ctx).Raw(memberSelect+"WHERE m.team_id = ? ORDER BY m.id ASC", teamID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]domain.TeamMember, 0, len(rows))
	for _, m := range rows {
		result = append(result, m.toDomain())
	}
	return result, nil
}

func (r *Repository) AddTeamMember(ctx context.Context, teamID, userID uint, role domain.Role) (domain.TeamMember, error) {
	m := TeamMemberModel{TeamID: teamID, UserID: userID, Role: string(role)}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.TeamMember{}, err
	}
	return r.GetTeamMember(ctx, teamID, userID)
}

func (r *Repository) UpdateTeamMemberRole(ctx context.Context, teamID, userID uint, role domain.Role) (domain.TeamMember, error) {
	res := r.db.WithContext(ctx).Model(&TeamMemberModel{}).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Updates(map[string]any{"role": string(role), "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return domain.TeamMember{}, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.TeamMember{}, domain.ErrNotFound
	}
	return r.GetTeamMember(ctx, teamID, userID)
}

func (r *Repository) RemoveTeamMember(ctx context.Context, teamID, userID uint) error {
	res := r.db.WithContext(ctx).Where("team_id = ? AND user_id = ?", teamID, userID).Delete(&TeamMemberModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) CountTeamOwners(ctx context.Context, teamID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&TeamMemberModel{}).
		Where("team_id = ? AND role = ?", teamID, string(domain.RoleOwner)).
		Count(&count).Error
	return count, err
}

func toInvitation(m InvitationModel) domain.Invitation {
	return domain.Invitation{
		ID:           m.ID,
		TeamID:       m.TeamID,
		Email:        m.Email,
		Role:         domain.Role(m.Role),
		Token:        m.Token,
		InvitedBy:    m.InvitedBy,
		SentViaEmail: m.SentViaEmail,
		ExpiresAt:    m.ExpiresAt,
		CreatedAt:    m.CreatedAt,

		AllowedDomains: splitDomains(m.AllowedDomains),
	}
}

func splitDomains(raw string) []string {
	out := []string{}
	for _, d := range strings.Split(raw, ",") {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	return out
}

func joinDomains(domains []string) string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			out = append(out, d)
		}
	}
	return strings.Join(out, ",")
}

func (r *Repository) CreateInvitation(ctx context.Context, value domain.Invitation) (domain.Invitation, error) {
	m := InvitationModel{
		ID:           value.ID,
		TeamID:       value.TeamID,
		Email:        normalizeEmail(value.Email),
		Role:         string(value.Role),
		Token:        value.Token,
		InvitedBy:    value.InvitedBy,
		SentViaEmail: value.SentViaEmail,
		ExpiresAt:    value.ExpiresAt,

		AllowedDomains: joinDomains(value.AllowedDomains),
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.Invitation{}, err
	}
	return toInvitation(m), nil
}

func (r *Repository) GetInvitationByID(ctx context.Context, id string) (domain.Invitation, error) {
	var m InvitationModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return domain.Invitation{}, notFound(err)
	}
	return toInvitation(m), nil
}

func (r *Repository) GetInvitationByToken(ctx context.Context, token string) (domain.Invitation, error) {
	var m InvitationModel
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&m).Error; err != nil {
		return domain.Invitation{}, notFound(err)
	}
	return toInvitation(m), nil
}

func (r *Repository) FindInvitationByEmail(ctx context.Context, teamID uint, email string) (domain.Invitation, error) {
	var m InvitationModel
	if err := r.db.WithContext(ctx).Where("team_id = ? AND email = ?", teamID, normalizeEmail(email)).First(&m).Error; err != nil {
		return domain.Invitation{}, notFound(err)
	}
	return toInvitation(m), nil
}

func (r *Repository) ListInvitations(ctx context.Context, teamID uint, sentViaEmail *bool) ([]domain.Invitation, error) {
	q := r.db.WithContext(ctx).Model(&InvitationModel{}).Where("team_id = ?", teamID)
	if sentViaEmail != nil {
		q = q.Where("sent_via_email = ?", *sentViaEmail)
	}
	rows := make([]InvitationModel, 0)
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Invitation, 0, len(rows))
	for _, m := range rows {
		result = append(result, toInvitation(m))
	}
	return result, nil
}

func (r *Repository) DeleteInvitation(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&InvitationModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func toAPIKey(m APIKeyModel) domain.APIKey {
	return domain.APIKey{ID: m.ID, TeamID: m.TeamID, Name: m.Name, HashedKey: m.HashedKey, ExpiresAt: m.ExpiresAt, LastUsedAt: m.LastUsedAt, CreatedAt: m.CreatedAt}
}

func (r *Repository) CreateAPIKey(ctx context.Context, value domain.APIKey) (domain.APIKey, error) {
	m := APIKeyModel{ID: value.ID, TeamID: value.TeamID, Name: strings.TrimSpace(value.Name), HashedKey: value.HashedKey, ExpiresAt: value.ExpiresAt}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.APIKey{}, err
	}
	return toAPIKey(m), nil
}

func (r *Repository) ListAPIKeys(ctx context.Context, teamID uint) ([]domain.APIKey, error) {
	rows := make([]APIKeyModel, 0)
	if err := r.db.WithContext(ctx).Where("team_id = ?", teamID).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.APIKey, 0, len(rows))
	for _, m := range rows {
		result = append(result, toAPIKey(m))
	}
	return result, nil
}

func (r *Repository) GetAPIKey(ctx context.Context, teamID uint, id string) (domain.APIKey, error) {
	var m APIKeyModel
	if err := r.db.WithContext(ctx).Where("team_id = ? AND id = ?", teamID, id).First(&m).Error; err != nil {
		return domain.APIKey{}, notFound(err)
	}
	return toAPIKey(m), nil
}

func (r *Repository) DeleteAPIKey(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&APIKeyModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) CreateAuditLog(ctx context.Context, value domain.AuditLog) error {
	m := AuditLogModel{
		ActorUserID: value.ActorUserID,
		TeamID:      value.TeamID,
		Action:      value.Action,
		TargetType:  value.TargetType,
		TargetID:    value.TargetID,
		Metadata:    value.Metadata,
	}
	return r.db.WithContext(ctx).Create(&m).Error
}

// ListAuditLogs returns the newest entries first.
func (r *Repository) ListAuditLogs(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditRecord, error) {
	type row struct {
		ID             uint
		ActorUserID    *uint
		ActorUserEmail string
		TeamID         *uint
		Action         string
		TargetType     string
		TargetID       string
		Metadata       string
		CreatedAt      time.Time
	}
	conds := make([]string, 0, 2)
	args := []any{}
	if filter.TeamID != nil {
		conds = append(conds, "a.team_id = ?")
		args = append(args, *filter.TeamID)
	}
	if filter.ActorUserID != nil {
		conds = append(conds, "a.actor_user_id = ?")
		args = append(args, *filter.ActorUserID)
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, filter.Limit)
	rows := make([]row, 0)
	err := r.db.WithContext(ctx).Raw(`
SELECT a.id,
       a.actor_user_id,
       COALESCE(u.email, '') AS actor_user_email,
       a.team_id,
       a.action,
       a.target_type,
       a.target_id,
       a.metadata,
       a.created_at
FROM audit_logs a
LEFT JOIN users u ON u.id = a.actor_user_id
`+where+`
ORDER BY a.id DESC
LIMIT ?
`, args...).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]domain.AuditRecord, 0, len(rows))
	for _, m := range rows {
		result = append(result, domain.AuditRecord{
			ID:             m.ID,
			ActorUserID:    m.ActorUserID,
			ActorUserEmail: m.ActorUserEmail,
			TeamID:         m.TeamID,
			Action:         m.Action,
			TargetType:     m.TargetType,
			TargetID:       m.TargetID,
			Metadata:       m.Metadata,
			CreatedAt:      m.CreatedAt,
		})
	}
	return result, nil
}
