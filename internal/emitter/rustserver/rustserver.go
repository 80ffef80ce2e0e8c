// Package rustserver renders an actix-web server contract into a single
// src/lib.rs.
package rustserver

import (
	"fmt"
	"strings"

	"github.com/mark3labs/idiomatic/internal/emitter"
	"github.com/mark3labs/idiomatic/internal/naming"
	"github.com/mark3labs/idiomatic/internal/schema"
)

const Name = "rust_server"

type Generator struct {
	crateName string
}

var _ emitter.Generator = (*Generator)(nil)

type Option func(*Generator)

// WithCrateName overrides the crate name derived from the project name.
func WithCrateName(name string) Option {
	return func(g *Generator) { g.crateName = strings.TrimSpace(name) }
}

func New(opts ...Option) *Generator {
	g := &Generator{}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) Name() string       { return Name }
func (g *Generator) SourceDir() string  { return "src" }
func (g *Generator) SourceFile() string { return "lib.rs" }

func (g *Generator) CrateName(cfg *schema.Config) string {
	if g.crateName != "" {
		return g.crateName
	}
	if n := naming.Snake(cfg.ProjectName); n != "" {
		return n
	}
	return "server"
}

func (g *Generator) ProjectFiles(cfg *schema.Config) []emitter.File {
	return []emitter.File{
		{Path: "Cargo.toml", Content: []byte(fmt.Sprintf(cargoTemplate, g.CrateName(cfg)))},
	}
}

func (g *Generator) PostBuildSteps() []emitter.Command {
	return []emitter.Command{
		{Name: "cargo", Args: []string{"fmt"}},
		{Name: "cargo", Args: []string{"check"}},
	}
}

const cargoTemplate = `[package]
name = %q
version = "0.1.0"
edition = "2021"

[dependencies]
actix-web = "4"
async-trait = "0.1"
serde = { version = "1", features = ["derive"] }
serde_json = "1"
`

var keywords = map[string]struct{}{
	"as": {}, "async": {}, "await": {}, "break": {}, "const": {}, "continue": {},
	"dyn": {}, "else": {}, "enum": {}, "extern": {}, "false": {}, "fn": {}, "for": {}, "if": {},
	"impl": {}, "in": {}, "let": {}, "loop": {}, "match": {}, "mod": {}, "move": {}, "mut": {},
	"pub": {}, "ref": {}, "return": {}, "static": {}, "struct": {}, "trait": {}, "true": {},
	"type": {}, "unsafe": {}, "use": {}, "where": {}, "while": {}, "abstract": {}, "become": {},
	"box": {}, "do": {}, "final": {}, "macro": {}, "override": {}, "priv": {}, "try": {},
	"typeof": {}, "unsized": {}, "virtual": {}, "yield": {},
}

// unrawable keywords cannot be written as raw identifiers.
var unrawable = map[string]struct{}{
	"crate": {}, "self": {}, "Self": {}, "super": {},
}

// ident returns a Rust identifier for a snake-cased name. Keywords use raw
// identifier syntax; the few that rustc refuses as raw identifiers get a
// trailing underscore instead.
func ident(name string) string {
	if _, ok := unrawable[name]; ok {
		return name + "_"
	}
	if _, ok := keywords[name]; ok {
		return "r#" + name
	}
	return name
}

// variantName returns an enum variant identifier for a type-cased name.
func variantName(name string) string {
	if name == "Self" {
		return name + "_"
	}
	return name
}
