package application

import (
	"context"
	"regexp"
	"strings"

	"github.com/igormartsekha/saas-starter-kit/internal/domain"
	"github.com/igormartsekha/saas-starter-kit/internal/validation"
)

type CreateTeamInput struct {
	Name string `json:"name"`
}

type UpdateTeamInput struct {
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	Domain string `json:"domain"`
}

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
	dashes       = regexp.MustCompile(`-+`)
)

// Slugify lowercases name and collapses every run of other characters into
// a single dash.
func Slugify(name string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	slug = dashes.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

func (s *Service) ListTeams(ctx context.Context, identity domain.Identity) ([]domain.Team, error) {
	return s.repo.ListTeamsForUser(ctx, identity.User.ID)
}

func (s *Service) CreateTeam(ctx context.Context, identity domain.Identity, in CreateTeamInput) (domain.Team, error) {
	if err := validate(validation.CreateTeam, in); err != nil {
		return domain.Team{}, err
	}
	slug := Slugify(in.Name)
	if slug == "" {
		return domain.Team{}, validation.Errors{"name": "Name must contain letters or digits"}
	}
	exists, err := s.repo.SlugExists(ctx, slug)
	if err != nil {
		return domain.Team{}, err
	}
	if exists {
		return domain.Team{}, domain.BadRequest("A team with the slug already exists.")
	}
	return s.createTeam(ctx, identity.User, in.Name)
}

func (s *Service) createTeam(ctx context.Context, owner domain.User, name string) (domain.Team, error) {
	team, err := s.repo.CreateTeam(ctx, domain.Team{Name: name, Slug: Slugify(name)}, owner.ID)
	if err != nil {
		return domain.Team{}, err
	}
	s.WriteAudit(ctx, &owner.ID, &team.ID, "team.create", "team", idString(team.ID), map[string]string{"slug": team.Slug})
	return team, nil
}

func (s *Service) GetTeam(ctx context.Context, identity domain.Identity, slug string) (domain.Team, error) {
	team, _, err := s.requirePermission(ctx, identity, slug, domain.ResourceTeam, domain.ActionRead)
	return team, err
}

// TeamRole returns the caller's role in the team, used by screens to decide
// which actions to offer.
func (s *Service) TeamRole(ctx context.Context, identity domain.Identity, slug string) (domain.Role, error) {
	_, member, err := s.teamAccess(ctx, identity, slug)
	if err != nil {
		return "", err
	}
	return member.Role, nil
}

func (s *Service) UpdateTeam(ctx context.Context, identity domain.Identity, slug string, in UpdateTeamInput) (domain.Team, error) {
	in.Domain = strings.TrimSpace(in.Domain)
	if err := validate(validation.UpdateTeam, in); err != nil {
		return domain.Team{}, err
	}
	team, _, err := s.requirePermission(ctx, identity, slug, domain.ResourceTeam, domain.ActionUpdate)
	if err != nil {
		return domain.Team{}, err
	}
	if in.Slug != team.Slug {
		exists, err := s.repo.SlugExists(ctx, in.Slug)
		if err != nil {
			return domain.Team{}, err
		}
		if exists {
			return domain.Team{}, domain.BadRequest("A team with the slug already exists.")
		}
	}
	updated, err := s.repo.UpdateTeam(ctx, team.ID, domain.Team{Name: in.Name, Slug: in.Slug, Domain: strings.ToLower(in.Domain)})
	if err != nil {
		return domain.Team{}, err
	}
	s.WriteAudit(ctx, &identity.User.ID, &team.ID, "team.update", "team", idString(team.ID), map[string]string{"from": team.Slug, "to": updated.Slug})
	return updated, nil
}

// DeleteTeam is owner only. When team deletion is switched off the route
// answers as if it did not exist.
func (s *Service) DeleteTeam(ctx context.Context, identity domain.Identity, slug string) error {
	if !s.settings.AllowDeleteTeam {
		return domain.NotFound("")
	}
	team, _, err := s.requirePermission(ctx, identity, slug, domain.ResourceTeam, domain.ActionDelete)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteTeam(ctx, team.ID); err != nil {
		return err
	}
	s.WriteAudit(ctx, &identity.User.ID, &team.ID, "team.delete", "team", idString(team.ID), map[string]string{"slug": team.Slug})
	return nil
}
