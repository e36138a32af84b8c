package screens

import (
	"context"
	"net/http"

	"github.com/igormartsekha/saas-starter-kit/internal/domain"
	"github.com/igormartsekha/saas-starter-kit/internal/form"
	"github.com/igormartsekha/saas-starter-kit/internal/mutation"
	"github.com/igormartsekha/saas-starter-kit/internal/resource"
	"github.com/igormartsekha/saas-starter-kit/internal/ui"
	"github.com/igormartsekha/saas-starter-kit/internal/validation"
)

const accountSetting = "/settings/account"

type NameValues struct {
	Name string `json:"name"`
}

type EmailValues struct {
	Email string `json:"email"`
}

type PasswordValues struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func loadUser(ctx context.Context, deps Deps) (domain.ClientUser, error) {
	return resource.Load[domain.ClientUser](ctx, deps.Store, UserKey)
}

// UpdateName edits the display name of the signed in user.
type UpdateName struct {
	Form *form.Controller[NameValues]
}

func NewUpdateName(ctx context.Context, deps Deps) (*UpdateName, error) {
	user, err := loadUser(ctx, deps)
	if err != nil {
		return nil, err
	}
	return &UpdateName{Form: form.New(NameValues{Name: user.Name}, form.Options[NameValues]{
		Validate: func(v NameValues) validation.Errors { return validation.UpdateAccount.Validate(v) },
		Submit: func(ctx context.Context, v NameValues) error {
			return deps.Client.Do(ctx, putUser(domain.UserUpdate{Name: &v.Name})).AsError()
		},
		Notifier:       deps.Notifier,
		SuccessMessage: ui.MsgUpdated,
		OnSuccess: func(ctx context.Context, _ NameValues) {
			deps.invalidate(ctx, UserKey)
			deps.navigate(accountSetting)
		},
	})}, nil
}

// UpdateEmail edits the email address. The server decides whether changing
// it is allowed at all.
type UpdateEmail struct {
	Form *form.Controller[EmailValues]
}

func NewUpdateEmail(ctx context.Context, deps Deps) (*UpdateEmail, error) {
	user, err := loadUser(ctx, deps)
	if err != nil {
		return nil, err
	}
	return &UpdateEmail{Form: form.New(EmailValues{Email: user.Email}, form.Options[EmailValues]{
		Validate: func(v EmailValues) validation.Errors { return validation.UpdateAccount.Validate(v) },
		Submit: func(ctx context.Context, v EmailValues) error {
			return deps.Client.Do(ctx, putUser(domain.UserUpdate{Email: &v.Email})).AsError()
		},
		Notifier:       deps.Notifier,
		SuccessMessage: ui.MsgUpdated,
		OnSuccess: func(ctx context.Context, _ EmailValues) {
			deps.invalidate(ctx, UserKey)
			deps.navigate(accountSetting)
		},
	})}, nil
}

// UpdatePassword clears both fields after every successful change.
type UpdatePassword struct {
	Form *form.Controller[PasswordValues]
}

func NewUpdatePassword(deps Deps) *UpdatePassword {
	return &UpdatePassword{Form: form.New(PasswordValues{}, form.Options[PasswordValues]{
		Validate: func(v PasswordValues) validation.Errors { return validation.UpdatePassword.Validate(v) },
		Submit: func(ctx context.Context, v PasswordValues) error {
			return deps.Client.Do(ctx, mutation.Request{Method: http.MethodPut, Path: "/api/password", Body: v}).AsError()
		},
		Notifier:       deps.Notifier,
		SuccessMessage: ui.MsgUpdated,
		ResetOnSuccess: true,
	})}
}

// UploadAvatar checks the picture locally and only then sends it.
type UploadAvatar struct {
	deps Deps
}

func NewUploadAvatar(deps Deps) *UploadAvatar {
	return &UploadAvatar{deps: deps}
}

func (s *UploadAvatar) Upload(ctx context.Context, content []byte) error {
	image, err := validation.AvatarDataURL(content)
	if err != nil {
		s.deps.fail(err.Error())
		return err
	}
	if _, err := s.deps.mutate(ctx, putUser(domain.UserUpdate{Image: &image})); err != nil {
		return err
	}
	s.deps.success(ui.MsgUpdated)
	s.deps.invalidate(ctx, UserKey)
	return nil
}

func putUser(update domain.UserUpdate) mutation.Request {
	return mutation.Request{Method: http.MethodPut, Path: UserKey, Body: update}
}
