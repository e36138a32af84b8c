package screens

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"github.com/igormartsekha/saas-starter-kit/internal/domain"
	"github.com/igormartsekha/saas-starter-kit/internal/form"
	"github.com/igormartsekha/saas-starter-kit/internal/mutation"
	"github.com/igormartsekha/saas-starter-kit/internal/resource"
	"github.com/igormartsekha/saas-starter-kit/internal/ui"
	"github.com/igormartsekha/saas-starter-kit/internal/validation"
)

type APIKeys struct {
	deps Deps
	slug string
}

func NewAPIKeys(deps Deps, slug string) *APIKeys {
	return &APIKeys{deps: deps, slug: slug}
}

func (s *APIKeys) List(ctx context.Context) ([]domain.APIKey, error) {
	return resource.Load[[]domain.APIKey](ctx, s.deps.Store, APIKeysKey(s.slug))
}

// Revoke deletes key after confirmation. Canceling sends nothing.
func (s *APIKeys) Revoke(ctx context.Context, key domain.APIKey) error {
	dialog := NewConfirmationDialog(s.deps.Confirmer, "Revoke API key",
		"Are you sure you want to revoke "+key.Name+"? Applications using it will stop working.")
	return dialog.Run(ctx, func(ctx context.Context) error {
		path := APIKeysKey(s.slug) + "/" + url.PathEscape(key.ID)
		if _, err := s.deps.mutate(ctx, mutation.Request{Method: http.MethodDelete, Path: path}); err != nil {
			return err
		}
		s.deps.success(ui.MsgAPIKeyDeleted)
		s.deps.invalidate(ctx, APIKeysKey(s.slug))
		return nil
	})
}

type APIKeyValues struct {
	Name string `json:"name"`
}

// NewAPIKey creates a key. The secret is only available from Key until the
// next submit.
type NewAPIKey struct {
	deps Deps
	slug string
	Form *form.Controller[APIKeyValues]

	mu  sync.Mutex
	key string
}

func NewNewAPIKey(deps Deps, slug string) *NewAPIKey {
	s := &NewAPIKey{deps: deps, slug: slug}
	s.Form = form.New(APIKeyValues{}, form.Options[APIKeyValues]{
		Validate:       func(v APIKeyValues) validation.Errors { return validation.CreateAPIKey.Validate(v) },
		Submit:         s.create,
		Notifier:       deps.Notifier,
		SuccessMessage: ui.MsgAPIKeyCreated,
		ResetOnSuccess: true,
		OnSuccess: func(ctx context.Context, _ APIKeyValues) {
			deps.invalidate(ctx, APIKeysKey(slug))
		},
	})
	return s
}

func (s *NewAPIKey) create(ctx context.Context, v APIKeyValues) error {
	out := s.deps.Client.Do(ctx, mutation.Request{Method: http.MethodPost, Path: APIKeysKey(s.slug), Body: v})
	var created struct {
		APIKey string `json:"apiKey"`
	}
	if err := out.Decode(&created); err != nil {
		return err
	}
	s.mu.Lock()
	s.key = created.APIKey
	s.mu.Unlock()
	return nil
}

func (s *NewAPIKey) Key() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key
}
