package application

import (
	"context"
	"errors"

	"github.com/igormartsekha/saas-starter-kit/internal/domain"
)

type UpdateRoleInput struct {
	MemberID uint        `json:"memberId"`
	Role     domain.Role `json:"role"`
}

func (s *Service) ListMembers(ctx context.Context, identity domain.Identity, slug string) ([]domain.TeamMember, error) {
	team, _, err := s.requirePermission(ctx, identity, slug, domain.ResourceTeamMember, domain.ActionRead)
	if err != nil {
		return nil, err
	}
	return s.repo.ListTeamMembers(ctx, team.ID)
}

// RemoveMember removes another user from the team. memberID is the user id.
func (s *Service) RemoveMember(ctx context.Context, identity domain.Identity, slug string, memberID uint) error {
	team, _, err := s.requirePermission(ctx, identity, slug, domain.ResourceTeamMember, domain.ActionDelete)
	if err != nil {
		return err
	}
	if memberID == identity.User.ID {
		return domain.BadRequest("You cannot remove yourself from the team.")
	}
	target, err := s.repo.GetTeamMember(ctx, team.ID, memberID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NotFound("Member not found")
		}
		return err
	}
	if target.Role == domain.RoleOwner {
		if err := s.ensureAnotherOwner(ctx, team.ID); err != nil {
			return err
		}
	}
	if err := s.repo.RemoveTeamMember(ctx, team.ID, memberID); err != nil {
		return err
	}
	s.WriteAudit(ctx, &identity.User.ID, &team.ID, "member.remove", "team_member", idString(memberID), nil)
	return nil
}

// LeaveTeam removes the caller. The last owner cannot leave.
func (s *Service) LeaveTeam(ctx context.Context, identity domain.Identity, slug string) error {
	team, member, err := s.requirePermission(ctx, identity, slug, domain.ResourceTeam, domain.ActionLeave)
	if err != nil {
		return err
	}
	if member.Role == domain.RoleOwner {
		if err := s.ensureAnotherOwner(ctx, team.ID); err != nil {
			return err
		}
	}
	if err := s.repo.RemoveTeamMember(ctx, team.ID, identity.User.ID); err != nil {
		return err
	}
	s.WriteAudit(ctx, &identity.User.ID, &team.ID, "member.leave", "team_member", idString(identity.User.ID), nil)
	return nil
}

func (s *Service) UpdateMemberRole(ctx context.Context, identity domain.Identity, slug string, in UpdateRoleInput) (domain.TeamMember, error) {
	if !in.Role.Valid() {
		return domain.TeamMember{}, domain.BadRequest("Invalid role.")
	}
	team, _, err := s.requirePermission(ctx, identity, slug, domain.ResourceTeamMember, domain.ActionUpdate)
	if err != nil {
		return domain.TeamMember{}, err
	}
	target, err := s.repo.GetTeamMember(ctx, team.ID, in.MemberID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.TeamMember{}, domain.NotFound("Member not found")
		}
		return domain.TeamMember{}, err
	}
	if target.Role == domain.RoleOwner && in.Role != domain.RoleOwner {
		if err := s.ensureAnotherOwner(ctx, team.ID); err != nil {
			return domain.TeamMember{}, err
		}
	}
	updated, err := s.repo.UpdateTeamMemberRole(ctx, team.ID, in.MemberID, in.Role)
	if err != nil {
		return domain.TeamMember{}, err
	}
	s.WriteAudit(ctx, &identity.User.ID, &team.ID, "member.role.update", "team_member", idString(in.MemberID), map[string]string{"role": string(in.Role)})
	return updated, nil
}

func (s *Service) ensureAnotherOwner(ctx context.Context, teamID uint) error {
	owners, err := s.repo.CountTeamOwners(ctx, teamID)
	if err != nil {
		return err
	}
	if owners <= 1 {
		return domain.BadRequest("A team should have at least one owner.")
	}
	return nil
}
