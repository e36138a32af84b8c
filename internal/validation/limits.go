package validation

// Limits are the rules of one schema property that a browser can check
// before submitting. Lengths are -1 when unset.
type Limits struct {
	Required  bool
	MinLength int
	MaxLength int
	// Pattern uses Go regexp syntax.
	Pattern string
	Email   bool
}

// Limits reports the client-checkable rules of a top level property.
func (s *Schema) Limits(field string) Limits {
	l := Limits{MinLength: -1, MaxLength: -1}
	for _, r := range s.schema.Required {
		if r == field {
			l.Required = true
		}
	}
	prop, ok := s.schema.Properties[field]
	if !ok || prop == nil {
		return l
	}
	l.MinLength = prop.MinLength
	l.MaxLength = prop.MaxLength
	if prop.Pattern != nil {
		l.Pattern = prop.Pattern.String()
	}
	l.Email = prop.Format == "email"
	return l
}
