package goserver

import (
	"fmt"
	"io"

	"github.com/mark3labs/idiomatic/internal/emitter"
	"github.com/mark3labs/idiomatic/internal/naming"
	"github.com/mark3labs/idiomatic/internal/schema"
)

// goTypes maps schema types onto Go types.
type goTypes struct{}

func (goTypes) StringType() string { return "string" }

var _ schema.TypeMapper[string] = goTypes{}

// queryDecoder renders the statement that fills one request field from the
// URL query of a GET endpoint.
type queryDecoder struct{ field, key string }

func (d queryDecoder) StringType() string {
	return fmt.Sprintf("req.%s = q.Get(%q)", d.field, d.key)
}

var _ schema.TypeMapper[string] = queryDecoder{}

func goType(t schema.Type) string { return schema.MapType[string](goTypes{}, t) }

func resolverParam(principalID string) string { return naming.Camel(principalID) + "Resolver" }

func handlerName(ep *schema.Endpoint) string { return "handle" + naming.TypeName(ep.ID) }

func routesName(svc *schema.Service) string { return naming.TypeName(svc.ID) + "Routes" }

func kindConst(v emitter.Variant) string { return "ErrorKind" + v.TypeName }

func sentinel(v emitter.Variant) string { return "Err" + v.TypeName }

func (g *Generator) RenderConfig(cfg *schema.Config, w io.Writer) (*emitter.Globals, error) {
	globals := emitter.NewGlobals(cfg)
	s := emitter.NewSink(Name, w)

	s.Line("// Code generated by idiomatic. DO NOT EDIT.")
	s.Blank()
	s.Line("// Package api is the HTTP contract of the %s project.", cfg.ProjectName)
	s.Line("package api")
	s.Blank()
	s.Line("import (")
	for _, imp := range []string{"context", "encoding/json", "errors", "io", "net/http"} {
		s.Line("\t%q", imp)
	}
	s.Blank()
	s.Line("\t%q", chiModule)
	s.Line(")")
	s.Blank()
	s.Line("// Reference imports to suppress errors if they are not otherwise used.")
	s.Line("var (")
	s.Line("\t_ context.Context")
	s.Line("\t_ chi.Router")
	s.Line(")")
	s.Blank()

	s.Line("// PrincipalResolver authenticates the caller of a request. Implementations")
	s.Line("// own header parsing, session lookup and credential storage.")
	s.Line("type PrincipalResolver[P any] interface {")
	s.Line("\tResolve(r *http.Request) (P, error)")
	s.Line("}")

	for _, p := range cfg.Principals {
		s.Blank()
		s.Line("// %s is the authenticated %q caller.", emitter.PrincipalTypeName(p.ID), p.ID)
		writeStruct(s, emitter.PrincipalTypeName(p.ID), p.Attributes)
	}

	renderErrors(s, globals)
	renderHelpers(s)

	if err := s.Err(); err != nil {
		return nil, err
	}
	return globals, nil
}

func renderErrors(s *emitter.Sink, g *emitter.Globals) {
	width := 0
	for _, v := range g.Variants {
		width = max(width, len(kindConst(v)))
	}

	s.Blank()
	s.Line("// ErrorKind identifies a variant of the error taxonomy.")
	s.Line("type ErrorKind string")
	s.Blank()
	s.Line("const (")
	for _, v := range g.Variants {
		s.Line("\t%-*s ErrorKind = %q", width, kindConst(v), v.ID)
	}
	s.Line(")")
	s.Blank()
	s.Line("// Status maps every error kind to an HTTP status.")
	s.Line("func (k ErrorKind) Status() int {")
	s.Line("\tswitch k {")
	for _, v := range g.Variants {
		s.Line("\tcase %s:", kindConst(v))
		s.Line("\t\treturn %d", v.Status)
	}
	s.Line("\t}")
	s.Line("\treturn %d", emitter.InternalErrorStatus)
	s.Line("}")
	s.Blank()
	s.Line("// Error is the failure type service implementations return.")
	s.Line("type Error struct {")
	s.Line("\tKind ErrorKind")
	s.Line("\tErr  error")
	s.Line("}")
	s.Blank()
	s.Line("func (e *Error) Error() string {")
	s.Line("\tif e.Err != nil {")
	s.Line("\t\treturn string(e.Kind) + \": \" + e.Err.Error()")
	s.Line("\t}")
	s.Line("\treturn string(e.Kind)")
	s.Line("}")
	s.Blank()
	s.Line("func (e *Error) Unwrap() error { return e.Err }")
	s.Blank()
	s.Line("// Is matches any *Error of the same kind.")
	s.Line("func (e *Error) Is(target error) bool {")
	s.Line("\tt, ok := target.(*Error)")
	s.Line("\treturn ok && t.Kind == e.Kind")
	s.Line("}")

	declared := g.Variants[1:]
	if len(declared) > 0 {
		width = 0
		for _, v := range declared {
			width = max(width, len(sentinel(v)))
		}
		s.Blank()
		s.Line("var (")
		for _, v := range declared {
			s.Line("\t%-*s = &Error{Kind: %s}", width, sentinel(v), kindConst(v))
		}
		s.Line(")")
	}
	s.Blank()
	s.Line("// Internal wraps a failure the taxonomy does not model.")
	s.Line("func Internal(err error) *Error { return &Error{Kind: %s, Err: err} }", kindConst(g.Variants[0]))
}

func renderHelpers(s *emitter.Sink) {
	s.Blank()
	s.Line("type errorBody struct {")
	s.Line("\tError string `json:\"error\"`")
	s.Line("}")
	s.Blank()
	s.Line("func decodeJSON(r *http.Request, v any) error {")
	s.Line("\tif err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {")
	s.Line("\t\treturn err")
	s.Line("\t}")
	s.Line("\treturn nil")
	s.Line("}")
	s.Blank()
	s.Line("func writeJSON(w http.ResponseWriter, status int, v any) {")
	s.Line("\tw.Header().Set(\"Content-Type\", \"application/json\")")
	s.Line("\tw.WriteHeader(status)")
	s.Line("\t_ = json.NewEncoder(w).Encode(v)")
	s.Line("}")
	s.Blank()
	s.Line("func writeError(w http.ResponseWriter, status int, kind string) {")
	s.Line("\twriteJSON(w, status, errorBody{Error: kind})")
	s.Line("}")
	s.Blank()
	s.Line("// writeServiceError maps err through the taxonomy; anything else is internal.")
	s.Line("func writeServiceError(w http.ResponseWriter, err error) {")
	s.Line("\tvar e *Error")
	s.Line("\tif errors.As(err, &e) {")
	s.Line("\t\twriteError(w, e.Kind.Status(), string(e.Kind))")
	s.Line("\t\treturn")
	s.Line("\t}")
	s.Line("\twriteError(w, %d, string(%s))", emitter.InternalErrorStatus, "ErrorKindInternal")
	s.Line("}")
}

func (g *Generator) RenderService(globals *emitter.Globals, svc *schema.Service, w io.Writer) error {
	s := emitter.NewSink(Name, w)

	for i := range svc.Endpoints {
		ep := &svc.Endpoints[i]
		s.Blank()
		s.Line("// %s is the request payload of %s.%s.", emitter.RequestTypeName(ep), svc.ID, ep.ID)
		writeStruct(s, emitter.RequestTypeName(ep), ep.Req)
		s.Blank()
		s.Line("// %s is the response payload of %s.%s.", emitter.ResponseTypeName(ep), svc.ID, ep.ID)
		writeStruct(s, emitter.ResponseTypeName(ep), ep.Res)
	}

	s.Blank()
	s.Line("// %s is implemented by the %s service.", emitter.ServiceTypeName(svc), svc.ID)
	if len(svc.Endpoints) == 0 {
		s.Line("type %s interface{}", emitter.ServiceTypeName(svc))
	} else {
		s.Line("type %s interface {", emitter.ServiceTypeName(svc))
		for i := range svc.Endpoints {
			ep := &svc.Endpoints[i]
			s.Line("\t%s", signature(ep))
		}
		s.Line("}")
	}

	for i := range svc.Endpoints {
		ep := &svc.Endpoints[i]
		if err := renderHandler(s, globals, svc, ep); err != nil {
			return err
		}
	}

	renderRoutes(s, svc)
	return s.Err()
}

func signature(ep *schema.Endpoint) string {
	sig := fmt.Sprintf("%s(ctx context.Context, req *%s", naming.TypeName(ep.ID), emitter.RequestTypeName(ep))
	if ep.Gated() {
		sig += fmt.Sprintf(", caller *%s", emitter.PrincipalTypeName(ep.Principal))
	}
	return sig + fmt.Sprintf(") (*%s, error)", emitter.ResponseTypeName(ep))
}

func renderHandler(s *emitter.Sink, g *emitter.Globals, svc *schema.Service, ep *schema.Endpoint) error {
	params := fmt.Sprintf("svc %s", emitter.ServiceTypeName(svc))
	if ep.Gated() {
		if _, ok := g.Principal(ep.Principal); !ok {
			return fmt.Errorf("%s: endpoint %s.%s references undeclared principal %q", Name, svc.ID, ep.ID, ep.Principal)
		}
		params += fmt.Sprintf(", %s PrincipalResolver[%s]", resolverParam(ep.Principal), emitter.PrincipalTypeName(ep.Principal))
	}

	s.Blank()
	s.Line("func %s(%s) http.HandlerFunc {", handlerName(ep), params)
	s.Line("\treturn func(w http.ResponseWriter, r *http.Request) {")
	s.Line("\t\tvar req %s", emitter.RequestTypeName(ep))
	if ep.HTTPMethod() == schema.MethodGet {
		if len(ep.Req) > 0 {
			s.Line("\t\tq := r.URL.Query()")
			for _, f := range ep.Req {
				s.Line("\t\t%s", schema.MapType[string](queryDecoder{field: naming.Pascal(f.Name), key: f.Name}, f.Type))
			}
		}
	} else {
		s.Line("\t\tif err := decodeJSON(r, &req); err != nil {")
		s.Line("\t\t\twriteError(w, %d, \"bad_request\")", emitter.BadRequestStatus)
		s.Line("\t\t\treturn")
		s.Line("\t\t}")
	}

	args := "r.Context(), &req"
	if ep.Gated() {
		s.Line("\t\tcaller, err := %s.Resolve(r)", resolverParam(ep.Principal))
		s.Line("\t\tif err != nil {")
		s.Line("\t\t\twriteError(w, %d, \"unauthorized\")", emitter.UnauthorizedStatus)
		s.Line("\t\t\treturn")
		s.Line("\t\t}")
		args += ", &caller"
	}
	s.Line("\t\tres, err := svc.%s(%s)", naming.TypeName(ep.ID), args)
	s.Line("\t\tif err != nil {")
	s.Line("\t\t\twriteServiceError(w, err)")
	s.Line("\t\t\treturn")
	s.Line("\t\t}")
	s.Line("\t\twriteJSON(w, http.StatusOK, res)")
	s.Line("\t}")
	s.Line("}")
	return nil
}

func renderRoutes(s *emitter.Sink, svc *schema.Service) {
	params := fmt.Sprintf("r chi.Router, svc %s", emitter.ServiceTypeName(svc))
	for _, id := range svc.PrincipalIDs() {
		params += fmt.Sprintf(", %s PrincipalResolver[%s]", resolverParam(id), emitter.PrincipalTypeName(id))
	}

	s.Blank()
	s.Line("// %s mounts the %s service under /%s.", routesName(svc), svc.ID, svc.ID)
	s.Line("func %s(%s) {", routesName(svc), params)
	if len(svc.Endpoints) == 0 {
		s.Line("\tr.Route(%q, func(r chi.Router) {})", "/"+svc.ID)
		s.Line("}")
		return
	}
	s.Line("\tr.Route(%q, func(r chi.Router) {", "/"+svc.ID)
	for i := range svc.Endpoints {
		ep := &svc.Endpoints[i]
		args := "svc"
		if ep.Gated() {
			args += ", " + resolverParam(ep.Principal)
		}
		method := "Post"
		if ep.HTTPMethod() == schema.MethodGet {
			method = "Get"
		}
		s.Line("\t\tr.%s(%q, %s(%s))", method, "/"+ep.ID, handlerName(ep), args)
	}
	s.Line("\t})")
	s.Line("}")
}

// writeStruct emits a record with gofmt column alignment.
func writeStruct(s *emitter.Sink, name string, fields schema.Fields) {
	if len(fields) == 0 {
		s.Line("type %s struct{}", name)
		return
	}
	type row struct{ name, typ, tag string }
	rows := make([]row, len(fields))
	nameW, typeW := 0, 0
	for i, f := range fields {
		rows[i] = row{naming.Pascal(f.Name), goType(f.Type), fmt.Sprintf("`json:%q`", f.Name)}
		nameW = max(nameW, len(rows[i].name))
		typeW = max(typeW, len(rows[i].typ))
	}
	s.Line("type %s struct {", name)
	for _, r := range rows {
		s.Line("\t%-*s %-*s %s", nameW, r.name, typeW, r.typ, r.tag)
	}
	s.Line("}")
}
