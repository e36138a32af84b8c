package form

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igormartsekha/saas-starter-kit/internal/validation"
)

type nameForm struct {
	Name string `json:"name"`
}

type recordingNotifier struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (n *recordingNotifier) Success(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, msg)
}

func (n *recordingNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg)
}

func validateName(v nameForm) validation.Errors {
	return validation.CreateTeam.Validate(v)
}

func TestCanSubmitRequiresDirtyValidAndIdle(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	c := New(nameForm{Name: "Acme"}, Options[nameForm]{
		Validate: validateName,
		Submit: func(ctx context.Context, v nameForm) error {
			close(started)
			<-release
			return nil
		},
	})

	assert.False(t, c.CanSubmit(), "pristine")
	assert.ErrorIs(t, c.HandleSubmit(context.Background()), ErrSubmitDisabled)

	require.NoError(t, c.SetFieldValue("name", ""))
	assert.False(t, c.CanSubmit(), "invalid")
	assert.Equal(t, "Name is required", c.State().FieldError("name"))

	require.NoError(t, c.SetFieldValue("name", "Acme Corp"))
	assert.True(t, c.CanSubmit())
	assert.Equal(t, Dirty, c.State().Status)

	done := make(chan error, 1)
	go func() { done <- c.HandleSubmit(context.Background()) }()
	<-started

	assert.False(t, c.CanSubmit(), "submitting")
	assert.True(t, c.State().IsSubmitting)
	assert.ErrorIs(t, c.HandleSubmit(context.Background()), ErrSubmitDisabled)
	assert.ErrorIs(t, c.SetFieldValue("name", "x"), ErrSubmitting)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, Pristine, c.State().Status)
	assert.False(t, c.CanSubmit())
}

func TestSuccessfulSubmitNotifiesOnceAndRunsHook(t *testing.T) {
	n := &recordingNotifier{}
	var hooks int
	c := New(nameForm{Name: "Acme"}, Options[nameForm]{
		Validate:       validateName,
		Submit:         func(context.Context, nameForm) error { return nil },
		Notifier:       n,
		SuccessMessage: "Successfully updated",
		OnSuccess:      func(context.Context, nameForm) { hooks++ },
	})

	require.NoError(t, c.SetFieldValue("name", "Acme Corp"))
	require.NoError(t, c.HandleSubmit(context.Background()))

	assert.Equal(t, []string{"Successfully updated"}, n.successes)
	assert.Empty(t, n.errors)
	assert.Equal(t, 1, hooks)

	st := c.State()
	assert.Equal(t, "Acme Corp", st.Values.Name, "submitted values become the baseline")
	assert.False(t, st.IsDirty)
}

func TestFailedSubmitReturnsToDirtyWithMessage(t *testing.T) {
	n := &recordingNotifier{}
	var hooks int
	c := New(nameForm{Name: "Acme"}, Options[nameForm]{
		Validate:       validateName,
		Submit:         func(context.Context, nameForm) error { return errors.New("A team with the slug already exists.") },
		Notifier:       n,
		SuccessMessage: "Successfully updated",
		OnSuccess:      func(context.Context, nameForm) { hooks++ },
	})

	require.NoError(t, c.SetFieldValue("name", "Other"))
	err := c.HandleSubmit(context.Background())
	require.Error(t, err)

	st := c.State()
	assert.Equal(t, Dirty, st.Status)
	assert.Equal(t, "Other", st.Values.Name)
	assert.Equal(t, "A team with the slug already exists.", st.SubmitError)
	assert.Equal(t, []string{"A team with the slug already exists."}, n.errors)
	assert.Empty(t, n.successes)
	assert.Zero(t, hooks)
	assert.True(t, c.CanSubmit(), "user may retry")
}

func TestResetOnSuccessRestoresInitialValues(t *testing.T) {
	type passwordForm struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	c := New(passwordForm{}, Options[passwordForm]{
		Validate:       func(v passwordForm) validation.Errors { return validation.UpdatePassword.Validate(v) },
		Submit:         func(context.Context, passwordForm) error { return nil },
		ResetOnSuccess: true,
	})

	require.NoError(t, c.SetFieldValue("currentPassword", "old-password"))
	require.NoError(t, c.SetFieldValue("newPassword", "new-password"))
	require.NoError(t, c.HandleSubmit(context.Background()))

	st := c.State()
	assert.Equal(t, passwordForm{}, st.Values)
	assert.Equal(t, Pristine, st.Status)
	assert.Empty(t, st.Touched)
}

func TestReinitializeOnlyWhenEnabled(t *testing.T) {
	locked := New(nameForm{Name: "Acme"}, Options[nameForm]{})
	require.NoError(t, locked.SetFieldValue("name", "Editing"))
	assert.False(t, locked.Reinitialize(nameForm{Name: "Fetched"}))
	assert.Equal(t, "Editing", locked.State().Values.Name)

	open := New(nameForm{Name: "Acme"}, Options[nameForm]{EnableReinitialize: true})
	assert.True(t, open.Reinitialize(nameForm{Name: "Fetched"}))
	st := open.State()
	assert.Equal(t, "Fetched", st.Values.Name)
	assert.False(t, st.IsDirty)
}

func TestSetFieldValueRejectsUnknownField(t *testing.T) {
	c := New(nameForm{}, Options[nameForm]{})
	require.Error(t, c.SetFieldValue("slug", "acme"))
	assert.Empty(t, c.State().Touched)
}

func TestResetDiscardsEdits(t *testing.T) {
	c := New(nameForm{Name: "Acme"}, Options[nameForm]{})
	require.NoError(t, c.SetFieldValue("name", "Other"))
	c.Reset()
	st := c.State()
	assert.Equal(t, "Acme", st.Values.Name)
	assert.Equal(t, Pristine, st.Status)
}
