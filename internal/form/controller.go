// Package form implements the per-screen form state machine:
//
//	Pristine -> Dirty -> Submitting -> Pristine (success)
//	                              \-> Dirty    (failure)
//
// A Controller owns the values being edited, the touched set, the field
// errors produced by its validator and the submit guard. It is independent of
// any rendering; screens and skins read State and call SetFieldValue and
// HandleSubmit.
package form

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/igormartsekha/saas-starter-kit/internal/validation"
)

var (
	// ErrSubmitDisabled is returned by HandleSubmit when the form is
	// pristine, invalid or already submitting.
	ErrSubmitDisabled = errors.New("form: submit disabled")
	// ErrSubmitting is returned by SetFieldValue while a submit is in flight.
	ErrSubmitting = errors.New("form: submit in progress")
)

type Status int

const (
	Pristine Status = iota
	Dirty
	Submitting
)

func (s Status) String() string {
	switch s {
	case Pristine:
		return "pristine"
	case Dirty:
		return "dirty"
	case Submitting:
		return "submitting"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Notifier shows transient success and error messages to the user.
type Notifier interface {
	Success(message string)
	Error(message string)
}

type SubmitFunc[T any] func(ctx context.Context, values T) error

type Options[T any] struct {
	// Validate returns nil when values are acceptable.
	Validate func(values T) validation.Errors
	Submit   SubmitFunc[T]
	Notifier Notifier
	// SuccessMessage is shown once per successful submit. Empty disables it.
	SuccessMessage string
	// OnSuccess runs after the success notification, typically to
	// invalidate cache keys or navigate.
	OnSuccess func(ctx context.Context, values T)
	// ResetOnSuccess restores the initial values after a successful submit
	// instead of adopting the submitted ones as the new baseline.
	ResetOnSuccess bool
	// EnableReinitialize lets Reinitialize replace the values after the
	// controller was created. Without it fetched data never overwrites what
	// the user is editing.
	EnableReinitialize bool
}

type State[T any] struct {
	Values       T
	Touched      map[string]bool
	Errors       validation.Errors
	Status       Status
	IsDirty      bool
	IsSubmitting bool
	// SubmitError is the message of the last failed submit.
	SubmitError string
}

// FieldError returns the error for name only once the field was touched.
func (s State[T]) FieldError(name string) string {
	if !s.Touched[name] {
		return ""
	}
	return s.Errors[name]
}

type Controller[T any] struct {
	mu         sync.Mutex
	opts       Options[T]
	initial    T
	values     T
	touched    map[string]bool
	errs       validation.Errors
	submitting bool
	submitErr  string
}

func New[T any](initial T, opts Options[T]) *Controller[T] {
	c := &Controller[T]{
		opts:    opts,
		initial: initial,
		values:  initial,
		touched: map[string]bool{},
	}
	c.errs = c.validate(initial)
	return c
}

func (c *Controller[T]) State() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller[T]) stateLocked() State[T] {
	touched := make(map[string]bool, len(c.touched))
	for k, v := range c.touched {
		touched[k] = v
	}
	var errs validation.Errors
	if len(c.errs) > 0 {
		errs = make(validation.Errors, len(c.errs))
		for k, v := range c.errs {
			errs[k] = v
		}
	}
	dirty := c.dirtyLocked()
	status := Pristine
	switch {
	case c.submitting:
		status = Submitting
	case dirty:
		status = Dirty
	}
	return State[T]{
		Values:       c.values,
		Touched:      touched,
		Errors:       errs,
		Status:       status,
		IsDirty:      dirty,
		IsSubmitting: c.submitting,
		SubmitError:  c.submitErr,
	}
}

func (c *Controller[T]) dirtyLocked() bool {
	return !reflect.DeepEqual(c.values, c.initial)
}

// CanSubmit reports dirty && valid && !submitting.
func (c *Controller[T]) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canSubmitLocked()
}

func (c *Controller[T]) canSubmitLocked() bool {
	return !c.submitting && len(c.errs) == 0 && c.dirtyLocked()
}

// SetFieldValue assigns value to the field whose JSON name is name,
// marks it touched and revalidates.
func (c *Controller[T]) SetFieldValue(name string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitting {
		return ErrSubmitting
	}
	next, err := setField(c.values, name, value)
	if err != nil {
		return err
	}
	c.values = next
	c.touched[name] = true
	c.errs = c.validate(next)
	return nil
}

// Reset discards edits and returns to the initial values.
func (c *Controller[T]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitting {
		return
	}
	c.values = c.initial
	c.touched = map[string]bool{}
	c.errs = c.validate(c.initial)
	c.submitErr = ""
}

// Reinitialize replaces both the initial and the current values. It is a
// no-op unless EnableReinitialize is set, and while submitting.
func (c *Controller[T]) Reinitialize(values T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.opts.EnableReinitialize || c.submitting {
		return false
	}
	c.initial = values
	c.values = values
	c.touched = map[string]bool{}
	c.errs = c.validate(values)
	c.submitErr = ""
	return true
}

// HandleSubmit runs the submit function when CanSubmit holds. At most one
// submit is in flight per controller.
func (c *Controller[T]) HandleSubmit(ctx context.Context) error {
	c.mu.Lock()
	if !c.canSubmitLocked() {
		c.mu.Unlock()
		return ErrSubmitDisabled
	}
	c.submitting = true
	c.submitErr = ""
	values := c.values
	c.mu.Unlock()

	var err error
	if c.opts.Submit != nil {
		err = c.opts.Submit(ctx, values)
	}

	c.mu.Lock()
	c.submitting = false
	if err != nil {
		c.submitErr = err.Error()
		c.mu.Unlock()
		if c.opts.Notifier != nil {
			c.opts.Notifier.Error(err.Error())
		}
		return err
	}
	if c.opts.ResetOnSuccess {
		c.values = c.initial
	} else {
		c.initial = values
		c.values = values
	}
	c.touched = map[string]bool{}
	c.errs = c.validate(c.values)
	c.mu.Unlock()

	if c.opts.Notifier != nil && c.opts.SuccessMessage != "" {
		c.opts.Notifier.Success(c.opts.SuccessMessage)
	}
	if c.opts.OnSuccess != nil {
		c.opts.OnSuccess(ctx, values)
	}
	return nil
}

func (c *Controller[T]) validate(values T) validation.Errors {
	if c.opts.Validate == nil {
		return nil
	}
	errs := c.opts.Validate(values)
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// setField round-trips values through JSON so field names match the wire
// names used by the validation schemas.
func setField[T any](values T, name string, value any) (T, error) {
	var zero T
	raw, err := json.Marshal(values)
	if err != nil {
		return zero, fmt.Errorf("form: encode values: %w", err)
	}
	doc := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return zero, fmt.Errorf("form: values are not an object: %w", err)
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return zero, fmt.Errorf("form: encode %s: %w", name, err)
	}
	doc[name] = encoded
	raw, err = json.Marshal(doc)
	if err != nil {
		return zero, fmt.Errorf("form: encode values: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var next T
	if err := dec.Decode(&next); err != nil {
		return zero, fmt.Errorf("form: set %s: %w", name, err)
	}
	return next, nil
}
