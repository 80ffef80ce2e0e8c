package schema

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Schema model shared by the loader, the validator and every emitter. A Schema
// is built once per run and treated as read-only afterwards.

type Method string

const (
	MethodGet  Method = "get"
	MethodPost Method = "post"
)

// UnmarshalYAML accepts the method name case-insensitively.
func (m *Method) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	switch v := Method(strings.ToLower(strings.TrimSpace(raw))); v {
	case MethodGet, MethodPost:
		*m = v
		return nil
	default:
		return fmt.Errorf("line %d: unsupported method %q (allowed: get, post)", node.Line, raw)
	}
}

// Field is one entry of an ordered name→Type mapping.
type Field struct {
	Name string
	Type Type
}

// Fields keeps mapping entries in document order; that order is carried
// verbatim into every emitted record.
type Fields []Field

// UnmarshalYAML walks the mapping node directly so key order survives decoding.
func (f *Fields) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.ShortTag() == "!!null" {
		*f = nil
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping of field name to type", node.Line)
	}
	out := make(Fields, 0, len(node.Content)/2)
	seen := make(map[string]int, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		var name string
		if err := key.Decode(&name); err != nil {
			return err
		}
		if line, dup := seen[name]; dup {
			return fmt.Errorf("line %d: field %q already defined at line %d", key.Line, name, line)
		}
		seen[name] = key.Line
		var t Type
		if err := value.Decode(&t); err != nil {
			return err
		}
		out = append(out, Field{Name: name, Type: t})
	}
	*f = out
	return nil
}

// Names returns the field names in order.
func (f Fields) Names() []string {
	names := make([]string, len(f))
	for i, field := range f {
		names[i] = field.Name
	}
	return names
}

// Principal is an authenticated-caller identity type.
type Principal struct {
	ID         string `yaml:"id"`
	Attributes Fields `yaml:"attributes"`
}

// Error is a declared failure kind. A nil Code means the default status.
type Error struct {
	ID   string `yaml:"id"`
	Code *int   `yaml:"code"`
}

type Endpoint struct {
	ID        string `yaml:"id"`
	Req       Fields `yaml:"req"`
	Res       Fields `yaml:"res"`
	Principal string `yaml:"principal"`
	Method    Method `yaml:"method"`
}

// HTTPMethod returns the declared method, defaulting to post.
func (e *Endpoint) HTTPMethod() Method {
	if e.Method == "" {
		return MethodPost
	}
	return e.Method
}

// Gated reports whether the endpoint requires an authenticated principal.
func (e *Endpoint) Gated() bool { return e.Principal != "" }

type Service struct {
	ID        string     `yaml:"id"`
	Endpoints []Endpoint `yaml:"endpoints"`
}

// PrincipalIDs returns the distinct principal ids referenced by the service's
// endpoints, in order of first appearance.
func (s *Service) PrincipalIDs() []string {
	var ids []string
	seen := make(map[string]struct{})
	for _, ep := range s.Endpoints {
		if !ep.Gated() {
			continue
		}
		if _, ok := seen[ep.Principal]; ok {
			continue
		}
		seen[ep.Principal] = struct{}{}
		ids = append(ids, ep.Principal)
	}
	return ids
}

// Config is the run-global part of a schema: principals and errors are shared
// by every service.
type Config struct {
	ProjectName string      `yaml:"project_name"`
	Principals  []Principal `yaml:"principals"`
	Errors      []Error     `yaml:"errors"`
}

// Principal looks up a declared principal by id.
func (c *Config) Principal(id string) (*Principal, bool) {
	for i := range c.Principals {
		if c.Principals[i].ID == id {
			return &c.Principals[i], true
		}
	}
	return nil, false
}

// Schema is everything one generation run consumes.
type Schema struct {
	Config   Config
	Services []Service
}

// SortServices orders services lexicographically by id so that rendering
// order never depends on how the documents were discovered.
func (s *Schema) SortServices() {
	sort.SliceStable(s.Services, func(i, j int) bool {
		return s.Services[i].ID < s.Services[j].ID
	})
}
