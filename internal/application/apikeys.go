package application

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/igormartsekha/saas-starter-kit/internal/domain"
	"github.com/igormartsekha/saas-starter-kit/internal/validation"
)

type CreateAPIKeyInput struct {
	Name string `json:"name"`
}

func (s *Service) apiKeysEnabled() error {
	if !s.settings.AllowAPIKeys {
		return domain.NotFound("")
	}
	return nil
}

func (s *Service) ListAPIKeys(ctx context.Context, identity domain.Identity, slug string) ([]domain.APIKey, error) {
	if err := s.apiKeysEnabled(); err != nil {
		return nil, err
	}
	team, _, err := s.requirePermission(ctx, identity, slug, domain.ResourceTeamAPIKey, domain.ActionRead)
	if err != nil {
		return nil, err
	}
	return s.repo.ListAPIKeys(ctx, team.ID)
}

// CreateAPIKey stores only the hash; the returned plain key is shown once.
func (s *Service) CreateAPIKey(ctx context.Context, identity domain.Identity, slug string, in CreateAPIKeyInput) (string, error) {
	if err := s.apiKeysEnabled(); err != nil {
		return "", err
	}
	if err := validate(validation.CreateAPIKey, in); err != nil {
		return "", err
	}
	team, _, err := s.requirePermission(ctx, identity, slug, domain.ResourceTeamAPIKey, domain.ActionCreate)
	if err != nil {
		return "", err
	}
	plain, hash, err := newTokenPair()
	if err != nil {
		return "", err
	}
	key, err := s.repo.CreateAPIKey(ctx, domain.APIKey{ID: uuid.NewString(), TeamID: team.ID, Name: in.Name, HashedKey: hash})
	if err != nil {
		return "", err
	}
	s.WriteAudit(ctx, &identity.User.ID, &team.ID, "api_key.create", "team_api_key", key.ID, map[string]string{"name": key.Name})
	return plain, nil
}

func (s *Service) DeleteAPIKey(ctx context.Context, identity domain.Identity, slug, id string) error {
	if err := s.apiKeysEnabled(); err != nil {
		return err
	}
	team, _, err := s.requirePermission(ctx, identity, slug, domain.ResourceTeamAPIKey, domain.ActionDelete)
	if err != nil {
		return err
	}
	key, err := s.repo.GetAPIKey(ctx, team.ID, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NotFound("API key not found")
		}
		return err
	}
	if err := s.repo.DeleteAPIKey(ctx, key.ID); err != nil {
		return err
	}
	s.WriteAudit(ctx, &identity.User.ID, &team.ID, "api_key.delete", "team_api_key", key.ID, map[string]string{"name": key.Name})
	return nil
}
