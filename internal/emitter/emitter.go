// Package emitter defines the contract every target backend implements and
// the pieces shared between backends: the global render context, the
// error-latching sink and the backend registry.
package emitter

import (
	"io"
	"net/http"

	"github.com/mark3labs/idiomatic/internal/naming"
	"github.com/mark3labs/idiomatic/internal/schema"
)

// Status policy shared by every backend.
const (
	// DefaultErrorStatus applies to declared errors without an explicit code.
	DefaultErrorStatus = http.StatusBadRequest
	// InternalErrorStatus applies to the implicit internal variant and to
	// failures no variant describes.
	InternalErrorStatus = http.StatusInternalServerError
	// UnauthorizedStatus is returned when a principal cannot be resolved.
	UnauthorizedStatus = http.StatusUnauthorized
	// BadRequestStatus is returned when a request payload cannot be decoded.
	BadRequestStatus = http.StatusBadRequest
)

// File is a scaffold artifact relative to the backend output root.
type File struct {
	Path    string
	Content []byte
}

// Command is an external program run in the output root after all writes.
type Command struct {
	Name string
	Args []string
}

// Generator is implemented by each target backend. Render methods only append
// to the writer they are given; they never touch the filesystem.
type Generator interface {
	// Name identifies the backend and names its output root.
	Name() string
	// SourceDir and SourceFile locate the primary source artifact.
	SourceDir() string
	SourceFile() string
	// ProjectFiles returns scaffold files derived from cfg, in order.
	ProjectFiles(cfg *schema.Config) []File
	// PostBuildSteps returns commands to run, in order, after writing.
	PostBuildSteps() []Command
	// RenderConfig writes the global artifacts once per run and returns the
	// context every RenderService call receives.
	RenderConfig(cfg *schema.Config, w io.Writer) (*Globals, error)
	// RenderService writes one service's artifacts.
	RenderService(g *Globals, svc *schema.Service, w io.Writer) error
}

// Variant is one entry of the error taxonomy with its resolved status.
type Variant struct {
	ID       string
	TypeName string
	Status   int
	Implicit bool
}

// Globals is the read-only result of rendering the config. Backends receive
// it explicitly instead of sharing mutable state.
type Globals struct {
	Config     *schema.Config
	Variants   []Variant
	principals map[string]*schema.Principal
}

// NewGlobals indexes cfg. The implicit internal variant is always first.
func NewGlobals(cfg *schema.Config) *Globals {
	g := &Globals{
		Config:     cfg,
		principals: make(map[string]*schema.Principal, len(cfg.Principals)),
	}
	for i := range cfg.Principals {
		p := &cfg.Principals[i]
		g.principals[p.ID] = p
	}
	g.Variants = append(g.Variants, Variant{
		ID:       schema.InternalErrorID,
		TypeName: naming.TypeName(schema.InternalErrorID),
		Status:   InternalErrorStatus,
		Implicit: true,
	})
	for _, e := range cfg.Errors {
		g.Variants = append(g.Variants, Variant{
			ID:       e.ID,
			TypeName: naming.TypeName(e.ID),
			Status:   ErrorStatus(e),
		})
	}
	return g
}

// Principal returns the declared principal with the given id.
func (g *Globals) Principal(id string) (*schema.Principal, bool) {
	p, ok := g.principals[id]
	return p, ok
}

// ErrorStatus maps a declared error to its transport status.
func ErrorStatus(e schema.Error) int {
	if e.Code != nil {
		return *e.Code
	}
	return DefaultErrorStatus
}

// PrincipalTypeName is the record name every backend gives a principal.
func PrincipalTypeName(id string) string { return naming.TypeName(id) + "Principal" }

// RequestTypeName and ResponseTypeName name an endpoint's records.
func RequestTypeName(ep *schema.Endpoint) string  { return naming.TypeName(ep.ID) + "Request" }
func ResponseTypeName(ep *schema.Endpoint) string { return naming.TypeName(ep.ID) + "Response" }

// ServiceTypeName names a service contract.
func ServiceTypeName(svc *schema.Service) string { return naming.TypeName(svc.ID) + "Service" }
