package rustserver

import (
	"fmt"
	"io"
	"strings"

	"github.com/mark3labs/idiomatic/internal/emitter"
	"github.com/mark3labs/idiomatic/internal/naming"
	"github.com/mark3labs/idiomatic/internal/schema"
)

type rustTypes struct{}

func (rustTypes) StringType() string { return "String" }

var _ schema.TypeMapper[string] = rustTypes{}

const derive = "#[derive(Debug, Clone, Default, serde::Serialize, serde::Deserialize)]"

func handlerFn(svc *schema.Service, ep *schema.Endpoint) string { return schema.HandlerFunc(svc.ID, ep.ID) }

func scopeFn(svc *schema.Service) string { return schema.ScopeFunc(svc.ID) }

// resolverGeneric names the type parameter standing for a principal's resolver.
func resolverGeneric(principalID string) string { return schema.ResolverName(principalID) }

func (g *Generator) RenderConfig(cfg *schema.Config, w io.Writer) (*emitter.Globals, error) {
	globals := emitter.NewGlobals(cfg)
	s := emitter.NewSink(Name, w)

	s.Line("// Code generated by idiomatic. DO NOT EDIT.")
	s.Blank()
	s.Line("#[async_trait::async_trait]")
	s.Line("pub trait HttpPrincipalResolver<P> {")
	s.Line("    async fn resolve(&self, req: &actix_web::HttpRequest) -> Result<P, actix_web::Error>;")
	s.Line("}")

	for _, p := range cfg.Principals {
		s.Blank()
		writeStruct(s, emitter.PrincipalTypeName(p.ID), p.Attributes)
	}

	s.Blank()
	s.Line("#[derive(Debug)]")
	s.Line("pub enum ServiceError {")
	for _, v := range globals.Variants {
		if v.Implicit {
			s.Line("    %s(String),", variantName(v.TypeName))
			continue
		}
		s.Line("    %s,", variantName(v.TypeName))
	}
	s.Line("}")
	s.Blank()
	s.Line("impl std::fmt::Display for ServiceError {")
	s.Line("    fn fmt(&self, f: &mut std::fmt::Formatter<'_>) -> std::fmt::Result {")
	s.Line("        match self {")
	for _, v := range globals.Variants {
		if v.Implicit {
			s.Line("            Self::%s(msg) => write!(f, \"%s: {}\", msg),", variantName(v.TypeName), v.ID)
			continue
		}
		s.Line("            Self::%s => f.write_str(%q),", variantName(v.TypeName), v.ID)
	}
	s.Line("        }")
	s.Line("    }")
	s.Line("}")
	s.Blank()
	s.Line("impl actix_web::ResponseError for ServiceError {")
	s.Line("    fn status_code(&self) -> actix_web::http::StatusCode {")
	s.Line("        let code = match self {")
	for _, v := range globals.Variants {
		pattern := "Self::" + variantName(v.TypeName)
		if v.Implicit {
			pattern += "(_)"
		}
		s.Line("            %s => %d,", pattern, v.Status)
	}
	s.Line("        };")
	s.Line("        actix_web::http::StatusCode::from_u16(code)")
	s.Line("            .unwrap_or(actix_web::http::StatusCode::INTERNAL_SERVER_ERROR)")
	s.Line("    }")
	s.Line("}")

	if err := s.Err(); err != nil {
		return nil, err
	}
	return globals, nil
}

func (g *Generator) RenderService(globals *emitter.Globals, svc *schema.Service, w io.Writer) error {
	s := emitter.NewSink(Name, w)

	for i := range svc.Endpoints {
		ep := &svc.Endpoints[i]
		s.Blank()
		writeStruct(s, emitter.RequestTypeName(ep), ep.Req)
		s.Blank()
		writeStruct(s, emitter.ResponseTypeName(ep), ep.Res)
	}

	s.Blank()
	s.Line("#[async_trait::async_trait]")
	s.Line("pub trait %s {", emitter.ServiceTypeName(svc))
	for i := range svc.Endpoints {
		ep := &svc.Endpoints[i]
		caller := ""
		if ep.Gated() {
			caller = fmt.Sprintf(", caller: &%s", emitter.PrincipalTypeName(ep.Principal))
		}
		s.Line("    async fn %s(&self, req: &%s%s) -> Result<%s, ServiceError>;",
			ident(naming.Snake(ep.ID)), emitter.RequestTypeName(ep), caller, emitter.ResponseTypeName(ep))
	}
	s.Line("}")

	for i := range svc.Endpoints {
		ep := &svc.Endpoints[i]
		if ep.Gated() {
			if _, ok := globals.Principal(ep.Principal); !ok {
				return fmt.Errorf("%s: endpoint %s.%s references undeclared principal %q", Name, svc.ID, ep.ID, ep.Principal)
			}
		}
		renderHandler(s, svc, ep)
	}

	renderScope(s, svc)
	return s.Err()
}

func renderHandler(s *emitter.Sink, svc *schema.Service, ep *schema.Endpoint) {
	generics := "S: " + emitter.ServiceTypeName(svc) + " + 'static"
	if ep.Gated() {
		generics += fmt.Sprintf(", P: HttpPrincipalResolver<%s> + 'static", emitter.PrincipalTypeName(ep.Principal))
	}
	extractor := "Json"
	if ep.HTTPMethod() == schema.MethodGet {
		extractor = "Query"
	}
	params := fmt.Sprintf("svc: actix_web::web::Data<S>, req: actix_web::web::%s<%s>", extractor, emitter.RequestTypeName(ep))
	if ep.Gated() {
		params += ", resolver: actix_web::web::Data<P>, http_req: actix_web::HttpRequest"
	}

	s.Blank()
	s.Line("async fn %s<%s>(%s) -> actix_web::HttpResponse {", handlerFn(svc, ep), generics, params)
	args := "&req"
	if ep.Gated() {
		s.Line("    let caller = match resolver.resolve(&http_req).await {")
		s.Line("        Ok(p) => p,")
		s.Line("        Err(_) => return actix_web::HttpResponse::Unauthorized().finish(),")
		s.Line("    };")
		args += ", &caller"
	}
	s.Line("    match svc.%s(%s).await {", ident(naming.Snake(ep.ID)), args)
	s.Line("        Ok(res) => actix_web::HttpResponse::Ok().json(res),")
	s.Line("        Err(err) => actix_web::ResponseError::error_response(&err),")
	s.Line("    }")
	s.Line("}")
}

func renderScope(s *emitter.Sink, svc *schema.Service) {
	principals := svc.PrincipalIDs()
	generics := []string{"S: " + emitter.ServiceTypeName(svc) + " + 'static"}
	params := []string{"svc: S"}
	for _, id := range principals {
		generics = append(generics, fmt.Sprintf("%s: HttpPrincipalResolver<%s> + 'static", resolverGeneric(id), emitter.PrincipalTypeName(id)))
		params = append(params, fmt.Sprintf("%s: %s", ident(naming.Snake(id)+"_resolver"), resolverGeneric(id)))
	}

	s.Blank()
	s.Line("pub fn %s<%s>(%s) -> actix_web::Scope {", scopeFn(svc), strings.Join(generics, ", "), strings.Join(params, ", "))
	s.Line("    actix_web::web::scope(%q)", "/"+svc.ID)
	s.Line("        .app_data(actix_web::web::Data::new(svc))")
	for _, id := range principals {
		s.Line("        .app_data(actix_web::web::Data::new(%s))", ident(naming.Snake(id)+"_resolver"))
	}
	for i := range svc.Endpoints {
		ep := &svc.Endpoints[i]
		types := "S"
		if ep.Gated() {
			types += ", " + resolverGeneric(ep.Principal)
		}
		route := "post"
		if ep.HTTPMethod() == schema.MethodGet {
			route = "get"
		}
		s.Line("        .service(actix_web::web::resource(%q).route(actix_web::web::%s().to(%s::<%s>)))",
			"/"+ep.ID, route, handlerFn(svc, ep), types)
	}
	s.Line("}")
}

func writeStruct(s *emitter.Sink, name string, fields schema.Fields) {
	s.Line(derive)
	s.Line("pub struct %s {", name)
	for _, f := range fields {
		field := ident(naming.Snake(f.Name))
		if strings.TrimPrefix(field, "r#") != f.Name {
			s.Line("    #[serde(rename = %q)]", f.Name)
		}
		s.Line("    pub %s: %s,", field, schema.MapType[string](rustTypes{}, f.Type))
	}
	s.Line("}")
}
