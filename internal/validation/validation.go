// Package validation holds the schemas for every mutable entity. The same
// schemas run in the form controllers before submit and in the API handlers
// before the data layer is touched.
package validation

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// FormField is the key used for errors that are not tied to a single field.
const FormField = "form"

// Errors maps a field name to a human readable message.
type Errors map[string]string

func (e Errors) Error() string {
	fields := e.Fields()
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return strings.Join(parts, "; ")
}

// Fields returns the failing field names in sorted order.
func (e Errors) Fields() []string {
	out := make([]string, 0, len(e))
	for f := range e {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func (e Errors) add(field, msg string) {
	if _, ok := e[field]; !ok {
		e[field] = msg
	}
}

// Schema validates a candidate value. Validate never panics; a value that
// cannot be encoded as JSON is reported as a form level error.
type Schema struct {
	name     string
	schema   *jsonschema.Schema
	messages map[string]string
	check    func(doc map[string]any, errs Errors)
}

var (
	UpdateAccount  = mustLoad("update-account", accountMessages, nil)
	UpdatePassword = mustLoad("update-password", passwordMessages, nil)
	CreateTeam     = mustLoad("create-team", teamMessages, nil)
	UpdateTeam     = mustLoad("update-team", teamMessages, nil)
	Invitation     = mustLoad("invitation", invitationMessages, nil)
	CreateAPIKey   = mustLoad("create-api-key", apiKeyMessages, nil)
	Join           = mustLoad("join", joinMessages, checkJoin)
)

func (s *Schema) Name() string { return s.name }

func (s *Schema) Validate(candidate any) Errors {
	doc, err := toDocument(candidate)
	if err != nil {
		return Errors{FormField: "Invalid input"}
	}
	errs := Errors{}
	if err := s.schema.Validate(doc); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			s.collect(verr, errs)
		} else {
			errs.add(FormField, err.Error())
		}
	}
	if s.check != nil {
		if obj, ok := doc.(map[string]any); ok {
			s.check(obj, errs)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

var quoted = regexp.MustCompile(`"([^"]+)"`)

func (s *Schema) collect(verr *jsonschema.ValidationError, errs Errors) {
	if len(verr.Causes) > 0 {
		for _, cause := range verr.Causes {
			s.collect(cause, errs)
		}
		return
	}
	keyword := verr.KeywordLocation[strings.LastIndex(verr.KeywordLocation, "/")+1:]
	if keyword == "required" {
		for _, m := range quoted.FindAllStringSubmatch(verr.Message, -1) {
			errs.add(m[1], s.message(m[1], "required", ""))
		}
		return
	}
	// Errors inside an array or object are reported on the top level field.
	field, _, _ := strings.Cut(strings.TrimPrefix(verr.InstanceLocation, "/"), "/")
	if field == "" {
		field = FormField
	}
	errs.add(field, s.message(field, keyword, verr.Message))
}

func (s *Schema) message(field, keyword, fallback string) string {
	if msg, ok := s.messages[field+"."+keyword]; ok {
		return msg
	}
	if msg, ok := s.messages[field]; ok {
		return msg
	}
	if keyword == "required" {
		return label(field) + " is required"
	}
	return fallback
}

func label(field string) string {
	if field == "" {
		return field
	}
	return strings.ToUpper(field[:1]) + field[1:]
}

// toDocument round-trips through JSON so structs, maps and raw bytes all
// reach the schema as the generic values it expects.
func toDocument(candidate any) (any, error) {
	var raw []byte
	switch v := candidate.(type) {
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	default:
		b, err := json.Marshal(candidate)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func mustLoad(name string, messages map[string]string, check func(map[string]any, Errors)) *Schema {
	s, err := load(name, messages, check)
	if err != nil {
		panic(err)
	}
	return s
}

func load(name string, messages map[string]string, check func(map[string]any, Errors)) (*Schema, error) {
	data, err := schemaFS.ReadFile("schemas/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", name, err)
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = true
	url := name + ".json"
	if err := compiler.AddResource(url, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", name, err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &Schema{name: name, schema: compiled, messages: messages, check: check}, nil
}

func checkJoin(doc map[string]any, errs Errors) {
	if pw, _ := doc["password"].(string); pw != "" && strings.TrimSpace(pw) == "" {
		errs.add("password", "Password cannot be blank")
	}
}

var accountMessages = map[string]string{
	"form.minProperties": "Nothing to update",
	"name.maxLength":     "Name should have at most 104 characters",
	"name.minLength":     "Name is required",
	"name.pattern":       "Name is required",
	"email":              "Email should have at most 254 characters",
	"email.format":       "Enter a valid email address",
	"image.pattern":      "Image must be a PNG or JPEG data URL or an https URL",
	"image.maxLength":    "File size too big (max 2MB)",
}

var passwordMessages = map[string]string{
	"currentPassword":           "Current password should have at most 70 characters",
	"currentPassword.minLength": "Current password is required",
	"currentPassword.required":  "Current password is required",
	"newPassword.required":      "New password is required",
	"newPassword.minLength":     "Password must have at least 8 characters",
	"newPassword.maxLength":     "Password should have at most 70 characters",
}

var teamMessages = map[string]string{
	"name.minLength":   "Name is required",
	"name.pattern":     "Name is required",
	"name.maxLength":   "Name should have at most 50 characters",
	"slug.minLength":   "Slug is required",
	"slug.maxLength":   "Slug should have at most 50 characters",
	"slug.pattern":     "Slug may contain lowercase letters, digits and single dashes",
	"domain.maxLength": "Domain should have at most 253 characters",
	"domain.pattern":   "Enter a domain name in the format example.com",
}

var invitationMessages = map[string]string{
	"email":          "Email should have at most 254 characters",
	"email.format":   "Enter a valid email address",
	"email.required": "Email is required",
	"role":           "Role must be one of OWNER, ADMIN or MEMBER",
	"role.required":  "Role is required",
	"sentViaEmail":   "sentViaEmail must be a boolean",
	"allowedDomains": "Enter domain names in the format example.com",
}

var apiKeyMessages = map[string]string{
	"name.minLength": "Name is required",
	"name.pattern":   "Name is required",
	"name.maxLength": "Name should have at most 64 characters",
}

var joinMessages = map[string]string{
	"name.minLength":     "Name is required",
	"name.pattern":       "Name is required",
	"name.maxLength":     "Name should have at most 104 characters",
	"email.format":       "Enter a valid email address",
	"email.maxLength":    "Email should have at most 254 characters",
	"password.minLength": "Password must have at least 8 characters",
	"password.maxLength": "Password should have at most 70 characters",
	"team.maxLength":     "Team should have at most 50 characters",
}
