package schema

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Type is the closed set of primitive field kinds.
type Type string

const (
	String Type = "string"
)

// ParseType maps a schema document value onto a Type.
func ParseType(raw string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(raw))); t {
	case String:
		return t, nil
	default:
		return "", fmt.Errorf("unknown type %q", raw)
	}
}

func (t *Type) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ParseType(raw)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*t = parsed
	return nil
}

// TypeMapper translates every Type variant into a backend representation.
// It has one method per variant: adding a variant adds a method, and every
// implementation stops compiling until it handles the new kind.
type TypeMapper[T any] interface {
	StringType() T
}

// MapType dispatches t to the matching TypeMapper method. Types reaching this
// point have been through ParseType or Validate, so an unknown kind is a
// programming error.
func MapType[T any](m TypeMapper[T], t Type) T {
	switch t {
	case String:
		return m.StringType()
	}
	panic(fmt.Sprintf("schema: unmapped type %q", string(t)))
}
