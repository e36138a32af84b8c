package ui

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/igormartsekha/saas-starter-kit/internal/validation"
)

// Guard keeps a form's submit button disabled until the form is dirty, every
// field passes its schema limits and no submit is in flight. Field values and
// the in-flight flag live in datastar signals declared on the form.
type Guard struct {
	// Key prefixes the in-flight signal, Key+"Busy".
	Key    string
	Schema *validation.Schema
	Fields []GuardField
	// Ready replaces the dirty and limit checks for forms whose input is
	// not a plain text signal.
	Ready string
	// Signals are declared next to the field signals.
	Signals map[string]any
}

type GuardField struct {
	Signal string
	// Field is the schema property the signal edits.
	Field   string
	Initial string
	// Required forces a value even when the schema makes it conditional.
	Required bool
}

func (g Guard) busy() string { return g.Key + "Busy" }

// DisabledWhen is the datastar expression bound to the submit button.
func (g Guard) DisabledWhen() string {
	parts := []string{"$" + g.busy()}
	if g.Ready != "" {
		return strings.Join(append(parts, "!("+g.Ready+")"), " || ")
	}
	dirty := make([]string, 0, len(g.Fields))
	for _, f := range g.Fields {
		dirty = append(dirty, "$"+f.Signal+" !== "+jsString(f.Initial))
	}
	if len(dirty) > 0 {
		parts = append(parts, "!("+strings.Join(dirty, " || ")+")")
	}
	for _, f := range g.Fields {
		var limits validation.Limits
		if g.Schema != nil {
			limits = g.Schema.Limits(f.Field)
		} else {
			limits = validation.Limits{MinLength: -1, MaxLength: -1}
		}
		limits.Required = limits.Required || f.Required
		for _, check := range fieldChecks("$"+f.Signal, limits) {
			parts = append(parts, "!("+check+")")
		}
	}
	return strings.Join(parts, " || ")
}

func (g Guard) signals() string {
	values := map[string]any{g.busy(): false}
	for _, f := range g.Fields {
		values[f.Signal] = f.Initial
	}
	for k, v := range g.Signals {
		values[k] = v
	}
	raw, _ := json.Marshal(values)
	return string(raw)
}

const emailPattern = `/^[^\s@]+@[^\s@]+\.[^\s@]+$/`

func fieldChecks(sig string, l validation.Limits) []string {
	var out []string
	if l.Required {
		out = append(out, sig+".length > 0")
	}
	if l.MinLength > 0 {
		out = append(out, sig+".length >= "+strconv.Itoa(l.MinLength))
	}
	if l.MaxLength >= 0 {
		out = append(out, sig+".length <= "+strconv.Itoa(l.MaxLength))
	}
	if l.Pattern != "" {
		out = append(out, jsRegexp(l.Pattern)+".test("+sig+")")
	}
	if l.Email {
		check := emailPattern + ".test(" + sig + ")"
		if !l.Required {
			check = sig + " === '' || " + check
		}
		out = append(out, check)
	}
	return out
}

// jsRegexp turns a Go pattern into a JavaScript regexp literal. An inline
// (?i) becomes the i flag.
func jsRegexp(pattern string) string {
	flags := ""
	if strings.Contains(pattern, "(?i)") {
		pattern = strings.ReplaceAll(pattern, "(?i)", "")
		flags = "i"
	}
	return "/" + strings.ReplaceAll(pattern, "/", `\/`) + "/" + flags
}

func jsString(s string) string {
	raw, _ := json.Marshal(s)
	return string(raw)
}
