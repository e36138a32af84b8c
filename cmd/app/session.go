package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/igormartsekha/saas-starter-kit/internal/form"
	"github.com/igormartsekha/saas-starter-kit/internal/logging"
	"github.com/igormartsekha/saas-starter-kit/internal/mutation"
	"github.com/igormartsekha/saas-starter-kit/internal/resource"
	"github.com/igormartsekha/saas-starter-kit/internal/screens"
)

// promptConfirmer asks on the terminal. With assumeYes it never prompts.
type promptConfirmer struct {
	assumeYes bool
}

func (p promptConfirmer) Confirm(ctx context.Context, title, message string) (bool, error) {
	if p.assumeYes {
		return true, nil
	}
	ok := false
	err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(title).
			Description(message).
			Affirmative("Confirm").
			Negative("Cancel").
			Value(&ok),
	)).RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}

// newSession builds the screen dependencies for one CLI invocation against
// the configured server.
func newSession(cfg cliConfig, assumeYes bool) screens.Deps {
	logger := logging.New(logging.Config{Level: logging.ParseLevel(os.Getenv("SAASKIT_LOG_LEVEL"))})
	client := mutation.NewClient(cfg.Server, mutation.WithToken(cfg.Token), mutation.WithLogger(logger))
	return screens.Deps{
		Client:    client,
		Store:     resource.NewStore(client, logger),
		Notifier:  toastPrinter{},
		Navigator: navPrinter{},
		Confirmer: promptConfirmer{assumeYes: assumeYes},
		Logger:    logger,
	}
}

// submit applies the given field values and submits the form. Field errors
// are printed and block the request.
func submit[T any](ctx context.Context, c *form.Controller[T], fields map[string]any) error {
	for name, value := range fields {
		if err := c.SetFieldValue(name, value); err != nil {
			return err
		}
	}
	if !c.CanSubmit() {
		state := c.State()
		if len(state.Errors) > 0 {
			msgs := make([]string, 0, len(state.Errors))
			for _, f := range state.Errors.Fields() {
				msgs = append(msgs, state.Errors[f])
			}
			return fmt.Errorf("invalid input: %s", strings.Join(msgs, "; "))
		}
		return errors.New("nothing to change")
	}
	err := c.HandleSubmit(ctx)
	var failure *mutation.Failure
	if errors.As(err, &failure) {
		return errReported
	}
	return err
}

// errReported marks failures that were already shown as a toast.
var errReported = errors.New("request failed")

// promptSecret reads a password without echo when it was not given as a flag.
func promptSecret(ctx context.Context, title, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	err := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title(title).
			EchoMode(huh.EchoModePassword).
			Value(&value).
			Validate(func(s string) error {
				if s == "" {
					return errors.New("required")
				}
				return nil
			}),
	)).RunWithContext(ctx)
	return value, err
}
