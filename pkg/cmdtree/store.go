package cmdtree

// Store holds parsed option values keyed by option name. A value is a
// string, a bool (boolean options), a []string (multiple options), or nil
// when the option was neither given nor defaulted.
type Store map[string]any

// String returns the string value of name, or "".
func (s Store) String(name string) string {
	v, _ := s[name].(string)
	return v
}

// Bool returns the value of a boolean option.
func (s Store) Bool(name string) bool {
	v, _ := s[name].(bool)
	return v
}

// Strings returns the values of a multiple option.
func (s Store) Strings(name string) []string {
	switch v := s[name].(type) {
	case []string:
		return v
	case string:
		if v != "" {
			return []string{v}
		}
	}
	return nil
}

// Has reports whether name holds a value: a non-empty string, true, or a
// non-empty list.
func (s Store) Has(name string) bool {
	switch v := s[name].(type) {
	case string:
		return v != ""
	case bool:
		return v
	case []string:
		return len(v) > 0
	}
	return false
}
