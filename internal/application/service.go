package application

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/igormartsekha/saas-starter-kit/internal/domain"
	"github.com/igormartsekha/saas-starter-kit/internal/logging"
	"github.com/igormartsekha/saas-starter-kit/internal/validation"
)

// Settings are the feature switches and lifetimes the service enforces.
type Settings struct {
	SessionTTL              time.Duration
	InvitationTTL           time.Duration
	AllowEmailChange        bool
	DisableNonBusinessEmail bool
	BlockedEmailDomains     []string
	AllowDeleteTeam         bool
	AllowAPIKeys            bool
}

func DefaultSettings() Settings {
	return Settings{
		SessionTTL:       12 * time.Hour,
		InvitationTTL:    7 * 24 * time.Hour,
		AllowEmailChange: true,
		AllowDeleteTeam:  true,
		AllowAPIKeys:     true,
	}
}

type Service struct {
	repo     domain.Repository
	settings Settings
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(repo domain.Repository, settings Settings, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{repo: repo, settings: settings, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) Settings() Settings { return s.settings }

// WriteAudit records a mutation. Failures are logged and never surface to
// the caller.
func (s *Service) WriteAudit(ctx context.Context, actorUserID *uint, teamID *uint, action, targetType, targetID string, metadata any) {
	meta := ""
	switch v := metadata.(type) {
	case nil:
	case string:
		meta = v
	default:
		if b, err := json.Marshal(v); err == nil {
			meta = string(b)
		}
	}
	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ActorUserID: actorUserID,
		TeamID:      teamID,
		Action:      action,
		TargetType:  targetType,
		TargetID:    targetID,
		Metadata:    meta,
	}); err != nil {
		s.logger.Warn("audit write failed", "action", action, "err", err)
	}
}

// ListAuditLogs lists a team's log for its owners and admins. Without a team
// it lists the caller's own actions.
func (s *Service) ListAuditLogs(ctx context.Context, identity domain.Identity, teamSlug string, limit int) ([]domain.AuditRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if strings.TrimSpace(teamSlug) == "" {
		return s.repo.ListAuditLogs(ctx, domain.AuditFilter{ActorUserID: &identity.User.ID, Limit: limit})
	}
	team, member, err := s.teamAccess(ctx, identity, teamSlug)
	if err != nil {
		return nil, err
	}
	if !member.Role.Can(domain.ResourceTeam, domain.ActionUpdate) {
		return nil, domain.Forbidden()
	}
	return s.repo.ListAuditLogs(ctx, domain.AuditFilter{TeamID: &team.ID, Limit: limit})
}

// teamAccess loads the team and the caller's membership. Non-members get 404
// so team existence does not leak.
func (s *Service) teamAccess(ctx context.Context, identity domain.Identity, slug string) (domain.Team, domain.TeamMember, error) {
	team, err := s.repo.GetTeamBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Team{}, domain.TeamMember{}, domain.NotFound("Team not found")
		}
		return domain.Team{}, domain.TeamMember{}, err
	}
	member, err := s.repo.GetTeamMember(ctx, team.ID, identity.User.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Team{}, domain.TeamMember{}, domain.NotFound("Team not found")
		}
		return domain.Team{}, domain.TeamMember{}, err
	}
	return team, member, nil
}

// requirePermission is teamAccess plus a role check.
func (s *Service) requirePermission(ctx context.Context, identity domain.Identity, slug, resource, action string) (domain.Team, domain.TeamMember, error) {
	team, member, err := s.teamAccess(ctx, identity, slug)
	if err != nil {
		return domain.Team{}, domain.TeamMember{}, err
	}
	if !member.Role.Can(resource, action) {
		return domain.Team{}, domain.TeamMember{}, domain.Forbidden()
	}
	return team, member, nil
}

func validate(schema *validation.Schema, in any) error {
	if errs := schema.Validate(in); errs != nil {
		return errs
	}
	return nil
}

func (s *Service) emailAllowed(email string) bool {
	if !s.settings.DisableNonBusinessEmail {
		return true
	}
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domainPart := strings.ToLower(strings.TrimSpace(email[at+1:]))
	for _, blocked := range s.settings.BlockedEmailDomains {
		if strings.EqualFold(domainPart, strings.TrimSpace(blocked)) {
			return false
		}
	}
	return true
}

func idString(id uint) string { return strconv.FormatUint(uint64(id), 10) }

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func newTokenPair() (string, string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	plain := base64.RawURLEncoding.EncodeToString(raw)
	return plain, hashToken(plain), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", sum[:])
}

func defaultString(input, fallback string) string {
	if strings.TrimSpace(input) == "" {
		return fallback
	}
	return input
}
