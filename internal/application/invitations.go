package application

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/igormartsekha/saas-starter-kit/internal/domain"
	"github.com/igormartsekha/saas-starter-kit/internal/validation"
)

// InvitationInput creates an email invitation when SentViaEmail is set and a
// shareable link otherwise. Links carry no email and may be limited to
// AllowedDomains.
type InvitationInput struct {
	Email          string      `json:"email,omitempty"`
	Role           domain.Role `json:"role"`
	SentViaEmail   bool        `json:"sentViaEmail"`
	AllowedDomains []string    `json:"allowedDomains,omitempty"`
}

func (s *Service) ListInvitations(ctx context.Context, identity domain.Identity, slug string, sentViaEmail *bool) ([]domain.Invitation, error) {
	team, _, err := s.requirePermission(ctx, identity, slug, domain.ResourceTeamInvitation, domain.ActionRead)
	if err != nil {
		return nil, err
	}
	return s.repo.ListInvitations(ctx, team.ID, sentViaEmail)
}

func (s *Service) CreateInvitation(ctx context.Context, identity domain.Identity, slug string, in InvitationInput) (domain.Invitation, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.SentViaEmail {
		in.AllowedDomains = nil
	} else {
		in.Email = ""
		in.AllowedDomains = normalizeDomains(in.AllowedDomains)
	}
	if err := validate(validation.Invitation, in); err != nil {
		return domain.Invitation{}, err
	}
	team, member, err := s.requirePermission(ctx, identity, slug, domain.ResourceTeamInvitation, domain.ActionCreate)
	if err != nil {
		return domain.Invitation{}, err
	}
	if in.Role == domain.RoleOwner && member.Role != domain.RoleOwner {
		return domain.Invitation{}, domain.Forbidden()
	}

	if in.SentViaEmail {
		if err := s.checkEmailInvitation(ctx, team.ID, in.Email); err != nil {
			return domain.Invitation{}, err
		}
	} else if _, err := s.repo.FindInvitationByEmail(ctx, team.ID, ""); err == nil {
		return domain.Invitation{}, domain.BadRequest("An invitation link already exists for this team.")
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.Invitation{}, err
	}

	inv, err := s.repo.CreateInvitation(ctx, domain.Invitation{
		ID:             uuid.NewString(),
		TeamID:         team.ID,
		Email:          in.Email,
		Role:           in.Role,
		Token:          uuid.NewString(),
		InvitedBy:      identity.User.ID,
		SentViaEmail:   in.SentViaEmail,
		AllowedDomains: in.AllowedDomains,
		ExpiresAt:      s.now().Add(s.settings.InvitationTTL),
	})
	if err != nil {
		return domain.Invitation{}, err
	}
	s.WriteAudit(ctx, &identity.User.ID, &team.ID, "invitation.create", "team_invitation", inv.ID, map[string]string{"email": inv.Email, "role": string(inv.Role)})
	return inv, nil
}

func (s *Service) checkEmailInvitation(ctx context.Context, teamID uint, email string) error {
	if !s.emailAllowed(email) {
		return domain.BadRequest("Please use your work email.")
	}
	if u, err := s.repo.GetUserByEmail(ctx, email); err == nil {
		if _, err := s.repo.GetTeamMember(ctx, teamID, u.ID); err == nil {
			return domain.BadRequest("This user is already a member of the team.")
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	if _, err := s.repo.FindInvitationByEmail(ctx, teamID, email); err == nil {
		return domain.BadRequest("An invitation already exists for this email.")
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}

func normalizeDomains(domains []string) []string {
	var out []string
	for _, d := range domains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			out = append(out, d)
		}
	}
	return out
}

func (s *Service) DeleteInvitation(ctx context.Context, identity domain.Identity, slug, id string) error {
	team, _, err := s.requirePermission(ctx, identity, slug, domain.ResourceTeamInvitation, domain.ActionDelete)
	if err != nil {
		return err
	}
	inv, err := s.repo.GetInvitationByID(ctx, id)
	if err != nil || inv.TeamID != team.ID {
		if err == nil || errors.Is(err, domain.ErrNotFound) {
			return domain.NotFound("Invitation not found.")
		}
		return err
	}
	if err := s.repo.DeleteInvitation(ctx, inv.ID); err != nil {
		return err
	}
	s.WriteAudit(ctx, &identity.User.ID, &team.ID, "invitation.delete", "team_invitation", inv.ID, map[string]string{"email": inv.Email})
	return nil
}

// AcceptInvitation adds the caller to the inviting team and consumes the
// invitation.
func (s *Service) AcceptInvitation(ctx context.Context, identity domain.Identity, token string) (domain.Team, error) {
	inv, err := s.validInvitation(ctx, token)
	if err != nil {
		return domain.Team{}, err
	}
	if err := invitationAllows(inv, identity.User.Email); err != nil {
		return domain.Team{}, err
	}
	return s.acceptInvitation(ctx, identity.User, inv)
}

func (s *Service) acceptInvitation(ctx context.Context, u domain.User, inv domain.Invitation) (domain.Team, error) {
	if _, err := s.repo.GetTeamMember(ctx, inv.TeamID, u.ID); err == nil {
		return domain.Team{}, domain.BadRequest("You are already a member of this team.")
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.Team{}, err
	}
	if _, err := s.repo.AddTeamMember(ctx, inv.TeamID, u.ID, inv.Role); err != nil {
		return domain.Team{}, err
	}
	// Links stay valid for the rest of the team until deleted or expired.
	if inv.SentViaEmail {
		if err := s.repo.DeleteInvitation(ctx, inv.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return domain.Team{}, err
		}
	}
	s.WriteAudit(ctx, &u.ID, &inv.TeamID, "invitation.accept", "team_invitation", inv.ID, nil)

	teams, err := s.repo.ListTeamsForUser(ctx, u.ID)
	if err != nil {
		return domain.Team{}, err
	}
	for _, t := range teams {
		if t.ID == inv.TeamID {
			return t, nil
		}
	}
	return domain.Team{}, domain.NotFound("Team not found")
}

func invitationAllows(inv domain.Invitation, email string) error {
	if inv.SentViaEmail && !strings.EqualFold(inv.Email, strings.TrimSpace(email)) {
		return domain.BadRequest("You must use the email address you received the invitation on.")
	}
	if !inv.SentViaEmail && !inv.AllowsEmail(email) {
		return domain.BadRequest("Your email domain is not allowed to join this team.")
	}
	return nil
}

func (s *Service) validInvitation(ctx context.Context, token string) (domain.Invitation, error) {
	inv, err := s.repo.GetInvitationByToken(ctx, strings.TrimSpace(token))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Invitation{}, domain.NotFound("Invitation not found.")
		}
		return domain.Invitation{}, err
	}
	if inv.Expired(s.now()) {
		return domain.Invitation{}, domain.BadRequest("Invitation expired. Please request a new one.")
	}
	return inv, nil
}
