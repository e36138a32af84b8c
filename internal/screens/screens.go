// Package screens holds the per-entity screens of the account and team
// settings area. Each screen binds a form.Controller (or a list read from the
// resource store) to calls made through the mutation client, and reports
// results through a Notifier. Rendering is left to the caller: the CLI prints
// them, tests inspect them.
package screens

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync"

	"github.com/igormartsekha/saas-starter-kit/internal/form"
	"github.com/igormartsekha/saas-starter-kit/internal/logging"
	"github.com/igormartsekha/saas-starter-kit/internal/mutation"
	"github.com/igormartsekha/saas-starter-kit/internal/resource"
)

// Navigator moves the user to another page after a successful mutation.
type Navigator interface {
	Navigate(path string)
}

// Confirmer asks the user to confirm a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, title, message string) (bool, error)
}

// ErrCanceled is returned when the user declines a confirmation.
var ErrCanceled = errors.New("screens: canceled")

// Deps is shared by every screen of one session.
type Deps struct {
	Client    *mutation.Client
	Store     *resource.Store
	Notifier  form.Notifier
	Navigator Navigator
	Confirmer Confirmer
	Logger    *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return logging.Nop()
	}
	return d.Logger
}

func (d Deps) navigate(path string) {
	if d.Navigator != nil {
		d.Navigator.Navigate(path)
	}
}

func (d Deps) success(msg string) {
	if d.Notifier != nil {
		d.Notifier.Success(msg)
	}
}

func (d Deps) fail(msg string) {
	if d.Notifier != nil {
		d.Notifier.Error(msg)
	}
}

// invalidate refreshes key. A failed refetch is logged by the store and keeps
// the last good value, so it is not reported to the user.
func (d Deps) invalidate(ctx context.Context, key string) {
	if err := d.Store.Invalidate(ctx, key); err != nil {
		d.logger().Debug("invalidate", "key", key, "err", err)
	}
}

// mutate performs one call and notifies on failure. Success notification is
// left to the caller since messages differ per action.
func (d Deps) mutate(ctx context.Context, req mutation.Request) (mutation.Outcome, error) {
	out := d.Client.Do(ctx, req)
	if err := out.AsError(); err != nil {
		d.fail(err.Error())
		return out, err
	}
	return out, nil
}

// Cache keys are API paths.
const (
	UserKey  = "/api/users"
	TeamsKey = "/api/teams"
)

func TeamKey(slug string) string { return "/api/teams/" + url.PathEscape(slug) }

func MembersKey(slug string) string { return TeamKey(slug) + "/members" }

func PendingInvitationsKey(slug string) string {
	return TeamKey(slug) + "/invitations?sentViaEmail=true"
}

func LinkInvitationKey(slug string) string {
	return TeamKey(slug) + "/invitations?sentViaEmail=false"
}

func APIKeysKey(slug string) string { return TeamKey(slug) + "/api-keys" }

// ConfirmationDialog gates a destructive action. The action runs only after
// an explicit confirm and the dialog is closed again whatever the outcome.
type ConfirmationDialog struct {
	Title   string
	Message string

	confirmer Confirmer
	mu        sync.Mutex
	open      bool
}

func NewConfirmationDialog(confirmer Confirmer, title, message string) *ConfirmationDialog {
	return &ConfirmationDialog{Title: title, Message: message, confirmer: confirmer}
}

func (d *ConfirmationDialog) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

func (d *ConfirmationDialog) setOpen(open bool) {
	d.mu.Lock()
	d.open = open
	d.mu.Unlock()
}

// Run asks for confirmation and then calls action. It returns ErrCanceled
// when the user declines.
func (d *ConfirmationDialog) Run(ctx context.Context, action func(context.Context) error) error {
	if d.confirmer == nil {
		return ErrCanceled
	}
	d.setOpen(true)
	defer d.setOpen(false)

	ok, err := d.confirmer.Confirm(ctx, d.Title, d.Message)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCanceled
	}
	return action(ctx)
}
