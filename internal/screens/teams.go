package screens

import (
	"context"
	"net/http"
	"sync"

	"github.com/igormartsekha/saas-starter-kit/internal/domain"
	"github.com/igormartsekha/saas-starter-kit/internal/form"
	"github.com/igormartsekha/saas-starter-kit/internal/mutation"
	"github.com/igormartsekha/saas-starter-kit/internal/resource"
	"github.com/igormartsekha/saas-starter-kit/internal/ui"
	"github.com/igormartsekha/saas-starter-kit/internal/validation"
)

func teamSettingsPath(slug string) string { return "/teams/" + slug + "/settings" }

type CreateTeamValues struct {
	Name string `json:"name"`
}

// Teams lists the teams of the user and lets them create or leave one.
type Teams struct {
	deps Deps
	Form *form.Controller[CreateTeamValues]

	mu      sync.Mutex
	created domain.Team
}

func NewTeams(deps Deps) *Teams {
	s := &Teams{deps: deps}
	s.Form = form.New(CreateTeamValues{}, form.Options[CreateTeamValues]{
		Validate:       func(v CreateTeamValues) validation.Errors { return validation.CreateTeam.Validate(v) },
		Submit:         s.create,
		Notifier:       deps.Notifier,
		SuccessMessage: ui.MsgTeamCreated,
		ResetOnSuccess: true,
		OnSuccess: func(ctx context.Context, _ CreateTeamValues) {
			deps.invalidate(ctx, TeamsKey)
			deps.navigate(teamSettingsPath(s.Created().Slug))
		},
	})
	return s
}

func (s *Teams) create(ctx context.Context, v CreateTeamValues) error {
	out := s.deps.Client.Do(ctx, mutation.Request{Method: http.MethodPost, Path: TeamsKey, Body: v})
	var team domain.Team
	if err := out.Decode(&team); err != nil {
		return err
	}
	s.mu.Lock()
	s.created = team
	s.mu.Unlock()
	return nil
}

// Created is the team made by the last successful submit.
func (s *Teams) Created() domain.Team {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.created
}

func (s *Teams) List(ctx context.Context) ([]domain.Team, error) {
	return resource.Load[[]domain.Team](ctx, s.deps.Store, TeamsKey)
}

// Leave removes the user from the team after confirmation.
func (s *Teams) Leave(ctx context.Context, slug string) error {
	dialog := NewConfirmationDialog(s.deps.Confirmer, "Leave team", "Are you sure you want to leave this team?")
	return dialog.Run(ctx, func(ctx context.Context) error {
		if _, err := s.deps.mutate(ctx, mutation.Request{Method: http.MethodPut, Path: MembersKey(slug)}); err != nil {
			return err
		}
		s.deps.success(ui.MsgLeftTeam)
		s.deps.invalidate(ctx, TeamsKey)
		return nil
	})
}

type TeamValues struct {
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	Domain string `json:"domain"`
}

// TeamSettings edits name, slug and domain. A slug change moves the screen
// to the new settings path.
type TeamSettings struct {
	Form *form.Controller[TeamValues]

	mu   sync.Mutex
	slug string
}

func NewTeamSettings(ctx context.Context, deps Deps, slug string) (*TeamSettings, error) {
	team, err := resource.Load[domain.Team](ctx, deps.Store, TeamKey(slug))
	if err != nil {
		return nil, err
	}
	s := &TeamSettings{slug: team.Slug}
	s.Form = form.New(TeamValues{Name: team.Name, Slug: team.Slug, Domain: team.Domain}, form.Options[TeamValues]{
		Validate: func(v TeamValues) validation.Errors { return validation.UpdateTeam.Validate(v) },
		Submit: func(ctx context.Context, v TeamValues) error {
			return deps.Client.Do(ctx, mutation.Request{Method: http.MethodPut, Path: TeamKey(s.Slug()), Body: v}).AsError()
		},
		Notifier:       deps.Notifier,
		SuccessMessage: ui.MsgUpdated,
		OnSuccess: func(ctx context.Context, v TeamValues) {
			old := s.Slug()
			s.mu.Lock()
			s.slug = v.Slug
			s.mu.Unlock()
			deps.invalidate(ctx, TeamsKey)
			deps.invalidate(ctx, TeamKey(old))
			deps.navigate(teamSettingsPath(v.Slug))
		},
	})
	return s, nil
}

// Slug is the team's current slug, following renames made here.
func (s *TeamSettings) Slug() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slug
}

// RemoveTeam deletes a team after confirmation and returns to the team list.
type RemoveTeam struct {
	deps   Deps
	slug   string
	Dialog *ConfirmationDialog
}

func NewRemoveTeam(deps Deps, slug string) *RemoveTeam {
	return &RemoveTeam{
		deps: deps,
		slug: slug,
		Dialog: NewConfirmationDialog(deps.Confirmer, "Remove team",
			"Are you sure you want to delete the team? Deleting the team will delete all resources and data associated with the team forever."),
	}
}

func (s *RemoveTeam) Remove(ctx context.Context) error {
	return s.Dialog.Run(ctx, func(ctx context.Context) error {
		if _, err := s.deps.mutate(ctx, mutation.Request{Method: http.MethodDelete, Path: TeamKey(s.slug)}); err != nil {
			return err
		}
		s.deps.success(ui.MsgTeamRemoved)
		s.deps.invalidate(ctx, TeamsKey)
		s.deps.navigate("/teams")
		return nil
	})
}
