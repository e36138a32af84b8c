package ui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

const (
	VersionPlain = "plain"
	VersionMUI   = "mui"
)

type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
)

// ToastID is the element every toast is rendered into, so a fragment
// response replaces the previous one.
const ToastID = "toast"

type Notice struct {
	Message string
	Kind    ToastKind
}

type PageData struct {
	Title     string
	UserEmail string
	Notice    *Notice
	Body      []templ.Component
}

type Field struct {
	Name  string
	Label string
	Type  string
	Value string
	Error string
	// Bind marks the field as a datastar signal instead of a form value.
	Bind bool
	// Signal mirrors a form value into a datastar signal so a Guard can
	// check it. Ignored when Bind is set.
	Signal string
	Disabled bool
	// OnChange is a datastar expression run when a select changes.
	OnChange string
}

type Option struct {
	Value    string
	Label    string
	Selected bool
}

type Dialog struct {
	ID           string
	Title        string
	Message      string
	ConfirmLabel string
	TriggerLabel string
	Action       string
	// InPlace posts through datastar and patches fragments; otherwise the
	// confirm button submits a form and the browser follows the redirect.
	InPlace bool
}

// Skin renders the building blocks every page is made of. Pages never emit
// markup of their own beyond layout containers.
type Skin interface {
	Name() string
	Page(p PageData) templ.Component
	Card(title string, body ...templ.Component) templ.Component
	TextField(f Field) templ.Component
	SelectField(f Field, options []Option) templ.Component
	SubmitButton(label string, disabled bool) templ.Component
	// GuardedSubmit starts disabled and follows the datastar expression.
	GuardedSubmit(label, disabledWhen string) templ.Component
	Table(id string, headers []string, rows [][]templ.Component) templ.Component
	Toast(message string, kind ToastKind) templ.Component
	ConfirmDialog(d Dialog) templ.Component
}

// New returns the skin configured by ui.version.
func New(version string) (Skin, error) {
	switch strings.ToLower(strings.TrimSpace(version)) {
	case "", VersionPlain:
		return plainSkin{}, nil
	case VersionMUI:
		return muiSkin{}, nil
	default:
		return nil, fmt.Errorf("unknown ui version %q", version)
	}
}

// Text renders escaped text.
func Text(s string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, templ.EscapeString(s))
		return err
	})
}

func renderAll(ctx context.Context, w io.Writer, children ...templ.Component) error {
	for _, c := range children {
		if c == nil {
			continue
		}
		if err := c.Render(ctx, w); err != nil {
			return err
		}
	}
	return nil
}

// writer collects the first write error so markup can be emitted without
// checking every call.
type writer struct {
	w   io.Writer
	err error
}

func (w *writer) raw(parts ...string) {
	for _, p := range parts {
		if w.err != nil {
			return
		}
		_, w.err = io.WriteString(w.w, p)
	}
}

func (w *writer) text(s string) { w.raw(templ.EscapeString(s)) }

func (w *writer) attr(name, value string) {
	w.raw(" ", name, `="`, templ.EscapeString(value), `"`)
}

func (w *writer) render(ctx context.Context, children ...templ.Component) {
	if w.err != nil {
		return
	}
	w.err = renderAll(ctx, w.w, children...)
}

func component(fn func(ctx context.Context, w *writer)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		fn(ctx, w)
		return w.err
	})
}

func fieldInput(w *writer, f Field, class string) {
	typ := f.Type
	if typ == "" {
		typ = "text"
	}
	w.raw("<input")
	w.attr("id", f.Name)
	w.attr("type", typ)
	if class != "" {
		w.attr("class", class)
	}
	if f.Bind {
		w.attr("data-bind", f.Name)
	} else {
		w.attr("name", f.Name)
		if f.Signal != "" {
			w.attr("data-bind", f.Signal)
		}
	}
	if f.Value != "" && typ != "password" {
		w.attr("value", f.Value)
	}
	if f.Disabled {
		w.raw(" disabled")
	}
	w.raw(">")
}

func fieldSelect(w *writer, f Field, options []Option, class string) {
	w.raw("<select")
	w.attr("id", f.Name)
	if class != "" {
		w.attr("class", class)
	}
	if f.Bind {
		w.attr("data-bind", f.Name)
	} else {
		w.attr("name", f.Name)
	}
	if f.OnChange != "" {
		w.attr("data-on:change", f.OnChange)
	}
	if f.Disabled {
		w.raw(" disabled")
	}
	w.raw(">")
	for _, o := range options {
		w.raw("<option")
		w.attr("value", o.Value)
		if o.Selected {
			w.raw(" selected")
		}
		w.raw(">")
		w.text(o.Label)
		w.raw("</option>")
	}
	w.raw("</select>")
}

func guardedButton(w *writer, label, disabledWhen, class string) {
	w.raw("<button type=\"submit\"")
	w.attr("class", class)
	w.attr("data-attr:disabled", disabledWhen)
	w.raw(" disabled>")
	w.text(label)
	w.raw("</button>")
}

func dialogOpenSignal(d Dialog) string {
	return strings.ReplaceAll(d.ID, "-", "_") + "Open"
}

// dialogBody renders the shared confirm/cancel mechanics. The open flag is a
// datastar signal and both buttons clear it.
func dialogBody(w *writer, d Dialog, confirmClass, cancelClass string) {
	open := "$" + dialogOpenSignal(d)
	if d.InPlace {
		w.raw("<button type=\"button\"")
		w.attr("class", confirmClass)
		w.attr("data-on:click", open+" = false; @post('"+d.Action+"')")
		w.raw(">")
		w.text(d.ConfirmLabel)
		w.raw("</button>")
	} else {
		w.raw("<form method=\"post\"")
		w.attr("action", d.Action)
		w.raw("><button type=\"submit\"")
		w.attr("class", confirmClass)
		w.raw(">")
		w.text(d.ConfirmLabel)
		w.raw("</button></form>")
	}
	w.raw("<button type=\"button\"")
	w.attr("class", cancelClass)
	w.attr("data-on:click", open+" = false")
	w.raw(">Cancel</button>")
}

const datastarScript = `<script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0/bundles/datastar.js"></script>`
