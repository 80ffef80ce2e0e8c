// Package goserver renders a Go HTTP server contract built on chi: records,
// service interfaces, handlers and route registration, all in one source
// file of package api.
package goserver

import (
	"fmt"
	"strings"

	"github.com/mark3labs/idiomatic/internal/emitter"
	"github.com/mark3labs/idiomatic/internal/naming"
	"github.com/mark3labs/idiomatic/internal/schema"
)

const (
	Name = "go_server"

	chiModule  = "github.com/go-chi/chi/v5"
	chiVersion = "v5.1.0"
	goVersion  = "1.22"
)

// Generator is the go_server backend.
type Generator struct {
	modulePath string
}

var _ emitter.Generator = (*Generator)(nil)

// Option configures a Generator.
type Option func(*Generator)

// WithModulePath overrides the module path derived from the project name.
func WithModulePath(path string) Option {
	return func(g *Generator) { g.modulePath = strings.TrimSpace(path) }
}

func New(opts ...Option) *Generator {
	g := &Generator{}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) Name() string       { return Name }
func (g *Generator) SourceDir() string  { return "internal/api" }
func (g *Generator) SourceFile() string { return "api.go" }

// ModulePath returns the module path of the generated project.
func (g *Generator) ModulePath(cfg *schema.Config) string {
	if g.modulePath != "" {
		return g.modulePath
	}
	if p := naming.Snake(cfg.ProjectName); p != "" {
		return p
	}
	return "server"
}

func (g *Generator) ProjectFiles(cfg *schema.Config) []emitter.File {
	module := g.ModulePath(cfg)
	return []emitter.File{
		{Path: ".editorconfig", Content: []byte(editorConfig)},
		{Path: "go.mod", Content: []byte(fmt.Sprintf(goModTemplate, module, goVersion, chiModule, chiVersion))},
		{Path: "Makefile", Content: []byte(makefile)},
		{Path: "cmd/server/main.go", Content: []byte(fmt.Sprintf(mainTemplate, module+"/"+g.SourceDir()))},
	}
}

func (g *Generator) PostBuildSteps() []emitter.Command {
	return []emitter.Command{
		{Name: "go", Args: []string{"mod", "tidy"}},
		{Name: "gofmt", Args: []string{"-l", "-w", "."}},
		{Name: "go", Args: []string{"vet", "./..."}},
	}
}

const editorConfig = `root = true

[*]
end_of_line = lf
insert_final_newline = true
charset = utf-8

[*.go]
indent_style = tab

[Makefile]
indent_style = tab
`

const goModTemplate = `module %s

go %s

require %s %s
`

const makefile = `.PHONY: fmt vet build

fmt:
	gofmt -l -w .

vet:
	go vet ./...

build:
	go build ./...
`

const mainTemplate = `package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Service routes live in %s; mount them on r with the
// generated <Service>Routes functions and your implementations.
func main() {
	r := chi.NewRouter()
	log.Fatal(http.ListenAndServe(":8080", r))
}
`
