// Package naming derives identifiers from schema ids. Every function is pure:
// the same id always yields the same name, whatever else is being rendered.
package naming

import "github.com/iancoleman/strcase"

// Pascal returns the type-name casing of id ("invalid_credentials" →
// "InvalidCredentials").
func Pascal(id string) string { return strcase.ToCamel(id) }

// Camel returns the lower-camel casing of id ("get_user" → "getUser").
func Camel(id string) string { return strcase.ToLowerCamel(id) }

// Snake returns the snake casing of id ("getUser" → "get_user").
func Snake(id string) string { return strcase.ToSnake(id) }

// TypeName is the casing every backend uses for type names.
func TypeName(id string) string { return Pascal(id) }

// Scope detects two distinct ids that derive the same name.
type Scope struct {
	Kind   string
	owners map[string]string
}

func NewScope(kind string) *Scope {
	return &Scope{Kind: kind, owners: make(map[string]string)}
}

// Claim records that id derives name. When another id already derived the
// same name, Claim returns that id and false.
func (s *Scope) Claim(id, name string) (string, bool) {
	if owner, ok := s.owners[name]; ok && owner != id {
		return owner, false
	}
	s.owners[name] = id
	return "", true
}

// Reserved is the owner recorded for names taken by generated code.
const Reserved = "<generated>"

// Reserve marks names as taken by generated code. Any later Claim of them
// fails with owner Reserved.
func (s *Scope) Reserve(names ...string) {
	for _, n := range names {
		s.owners[n] = Reserved
	}
}
