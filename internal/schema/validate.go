package schema

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/mark3labs/idiomatic/internal/naming"
)

// InternalErrorID is the implicit catch-all error variant every taxonomy
// carries. Declared errors may not reuse its derived name.
const InternalErrorID = "internal"

var idPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// reservedPrincipalNames are type names the backends always emit next to
// per-principal resolver names.
var reservedPrincipalNames = []string{"HttpPrincipalResolver"}

// ResolverName is the type-cased name backends give a principal's resolver.
func ResolverName(principalID string) string { return naming.TypeName(principalID) + "Resolver" }

// ScopeFunc and HandlerFunc are the snake-cased route functions a service
// contributes to the shared source file.
func ScopeFunc(serviceID string) string { return naming.Snake(serviceID) + "_http_scope" }

func HandlerFunc(serviceID, endpointID string) string {
	return naming.Snake(serviceID) + "_http_handler_" + naming.Snake(endpointID)
}

// Validate checks every referential and uniqueness rule before rendering.
// All violations are reported, joined in a stable order; errors.As finds the
// first *SchemaError.
func (s *Schema) Validate() error {
	v := &validator{}
	v.config(&s.Config)
	v.services(&s.Config, s.Services)
	return errors.Join(v.errs...)
}

type validator struct {
	errs []error
}

func (v *validator) fail(entity, reference, format string, args ...any) {
	v.errs = append(v.errs, validationError(entity, reference, fmt.Sprintf(format, args...)))
}

func (v *validator) id(entity, id string) bool {
	if !idPattern.MatchString(id) {
		v.fail(entity, "", "%s: invalid id %q (must match %s)", entity, id, idPattern)
		return false
	}
	return true
}

func (v *validator) config(cfg *Config) {
	if strings.TrimSpace(cfg.ProjectName) == "" {
		v.fail("config", "", "config: project_name is required")
	}

	seen := make(map[string]struct{}, len(cfg.Principals))
	scope := naming.NewScope("principal")
	scope.Reserve(reservedPrincipalNames...)
	for _, p := range cfg.Principals {
		entity := fmt.Sprintf("principal %s", p.ID)
		if !v.id("principal", p.ID) {
			continue
		}
		if _, dup := seen[p.ID]; dup {
			v.fail(entity, "", "%s: duplicate principal id", entity)
			continue
		}
		seen[p.ID] = struct{}{}
		v.claim(scope, entity, p.ID, naming.TypeName(p.ID)+"Principal")
		v.claim(scope, entity, p.ID, ResolverName(p.ID))
		v.fields(entity, "attributes", p.Attributes)
	}

	seenErr := make(map[string]struct{}, len(cfg.Errors))
	errScope := naming.NewScope("error")
	errScope.Claim("<implicit "+InternalErrorID+">", naming.TypeName(InternalErrorID))
	for _, e := range cfg.Errors {
		entity := fmt.Sprintf("error %s", e.ID)
		if !v.id("error", e.ID) {
			continue
		}
		if _, dup := seenErr[e.ID]; dup {
			v.fail(entity, "", "%s: duplicate error id", entity)
			continue
		}
		seenErr[e.ID] = struct{}{}
		v.claim(errScope, entity, e.ID, naming.TypeName(e.ID))
		if e.Code != nil && (*e.Code < 100 || *e.Code > 599) {
			v.fail(entity, "", "%s: status code %d is outside 100..599", entity, *e.Code)
		}
	}
}

func (v *validator) services(cfg *Config, services []Service) {
	seen := make(map[string]struct{}, len(services))
	svcScope := naming.NewScope("service")
	svcSnake := naming.NewScope("service")
	// Every service lands in one source file, so endpoint records and
	// handler names share a single run-wide scope.
	records := naming.NewScope("endpoint")
	routeFns := naming.NewScope("route function")

	for i := range services {
		svc := &services[i]
		entity := fmt.Sprintf("service %s", svc.ID)
		if !v.id("service", svc.ID) {
			continue
		}
		if _, dup := seen[svc.ID]; dup {
			v.fail(entity, "", "%s: duplicate service id", entity)
			continue
		}
		seen[svc.ID] = struct{}{}
		v.claim(svcScope, entity, svc.ID, naming.TypeName(svc.ID)+"Service")
		v.claim(svcSnake, entity, svc.ID, naming.Snake(svc.ID))
		v.claim(routeFns, entity, svc.ID, ScopeFunc(svc.ID))

		seenEp := make(map[string]struct{}, len(svc.Endpoints))
		fnScope := naming.NewScope("endpoint")
		for j := range svc.Endpoints {
			ep := &svc.Endpoints[j]
			epEntity := fmt.Sprintf("endpoint %s.%s", svc.ID, ep.ID)
			if !v.id("endpoint", ep.ID) {
				continue
			}
			if _, dup := seenEp[ep.ID]; dup {
				v.fail(epEntity, "", "%s: duplicate endpoint id in service %q", epEntity, svc.ID)
				continue
			}
			seenEp[ep.ID] = struct{}{}
			v.claim(records, epEntity, svc.ID+"."+ep.ID, naming.TypeName(ep.ID))
			v.claim(fnScope, epEntity, ep.ID, naming.Snake(ep.ID))
			v.claim(routeFns, epEntity, svc.ID+"."+ep.ID, HandlerFunc(svc.ID, ep.ID))

			switch ep.Method {
			case "", MethodGet, MethodPost:
			default:
				v.fail(epEntity, "", "%s: unsupported method %q", epEntity, ep.Method)
			}
			if ep.Gated() {
				if _, ok := cfg.Principal(ep.Principal); !ok {
					v.fail(epEntity, ep.Principal,
						"%s: principal %q is not declared in config (endpoint %q)", epEntity, ep.Principal, ep.ID)
				}
			}
			v.fields(epEntity, "req", ep.Req)
			v.fields(epEntity, "res", ep.Res)
		}
	}
}

func (v *validator) fields(entity, mapping string, fields Fields) {
	seen := make(map[string]struct{}, len(fields))
	pascal := naming.NewScope("field")
	snake := naming.NewScope("field")
	for _, f := range fields {
		where := fmt.Sprintf("%s %s.%s", entity, mapping, f.Name)
		if !idPattern.MatchString(f.Name) {
			v.fail(entity, f.Name, "%s: invalid field name %q", where, f.Name)
			continue
		}
		if _, dup := seen[f.Name]; dup {
			v.fail(entity, f.Name, "%s: duplicate field name", where)
			continue
		}
		seen[f.Name] = struct{}{}
		if _, err := ParseType(string(f.Type)); err != nil {
			v.fail(entity, f.Name, "%s: %v", where, err)
		}
		v.claim(pascal, entity, f.Name, naming.Pascal(f.Name))
		v.claim(snake, entity, f.Name, naming.Snake(f.Name))
	}
}

func (v *validator) claim(scope *naming.Scope, entity, id, derived string) {
	owner, ok := scope.Claim(id, derived)
	switch {
	case ok:
	case owner == naming.Reserved:
		v.fail(entity, id, "%s: %s id %q derives name %q, which generated code already uses",
			entity, scope.Kind, id, derived)
	default:
		v.fail(entity, owner, "%s: %s id %q derives name %q, already derived from %q",
			entity, scope.Kind, id, derived, owner)
	}
}
