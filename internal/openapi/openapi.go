// Package openapi describes a schema as an OpenAPI 3 document. The document
// is backend-neutral: every target serves the same routes, payloads and
// error statuses.
package openapi

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/idiomatic/internal/emitter"
	"github.com/mark3labs/idiomatic/internal/naming"
	"github.com/mark3labs/idiomatic/internal/schema"
)

const (
	FileName = "openapi.yaml"
	Version  = "3.0.3"
)

// schemas maps schema types onto OpenAPI schemas.
type schemas struct{}

func (schemas) StringType() *openapi3.Schema { return openapi3.NewStringSchema() }

var _ schema.TypeMapper[*openapi3.Schema] = schemas{}

// examples produces a sample value per field type. The faker is seeded so the
// same schema always yields the same values.
type examples struct {
	faker *gofakeit.Faker
	field string
}

func (e examples) StringType() any {
	name := strings.ToLower(e.field)
	switch {
	case strings.Contains(name, "email"):
		return e.faker.Email()
	case strings.Contains(name, "password"):
		return e.faker.Password(true, true, true, false, false, 12)
	case strings.Contains(name, "token"):
		return e.faker.LetterN(32)
	case strings.Contains(name, "url"):
		return e.faker.URL()
	case name == "id" || strings.HasSuffix(name, "_id"):
		return e.faker.UUID()
	case strings.Contains(name, "name"):
		return e.faker.Name()
	}
	return e.faker.Word()
}

var _ schema.TypeMapper[any] = examples{}

// Seed derives a stable, non-zero faker seed from the project name.
func Seed(project string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(project))
	seed := int64(h.Sum64() &^ (1 << 63))
	if seed == 0 {
		seed = 1
	}
	return seed
}

func securityScheme(principalID string) string { return naming.Camel(principalID) + "Auth" }

type builder struct {
	doc   *openapi3.T
	faker *gofakeit.Faker
	g     *emitter.Globals
}

// Build assembles and validates the document for s.
func Build(ctx context.Context, s *schema.Schema) (*openapi3.T, error) {
	if s == nil {
		return nil, fmt.Errorf("openapi: nil schema")
	}
	b := &builder{
		doc: &openapi3.T{
			OpenAPI: Version,
			Info: &openapi3.Info{
				Title:   s.Config.ProjectName,
				Version: "0.1.0",
			},
			Paths: openapi3.Paths{},
			Components: &openapi3.Components{
				Schemas:         openapi3.Schemas{},
				SecuritySchemes: openapi3.SecuritySchemes{},
			},
		},
		faker: gofakeit.New(Seed(s.Config.ProjectName)),
		g:     emitter.NewGlobals(&s.Config),
	}

	b.errorComponents()
	for _, p := range s.Config.Principals {
		b.principal(p)
	}
	for i := range s.Services {
		svc := &s.Services[i]
		b.doc.Tags = append(b.doc.Tags, &openapi3.Tag{Name: svc.ID})
		for j := range svc.Endpoints {
			if err := b.endpoint(svc, &svc.Endpoints[j]); err != nil {
				return nil, err
			}
		}
	}

	if err := b.doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("openapi: invalid document: %w", err)
	}
	return b.doc, nil
}

func (b *builder) object(fields schema.Fields) *openapi3.Schema {
	obj := openapi3.NewObjectSchema()
	example := map[string]any{}
	for _, f := range fields {
		prop := schema.MapType[*openapi3.Schema](schemas{}, f.Type)
		prop.Example = schema.MapType[any](examples{faker: b.faker, field: f.Name}, f.Type)
		example[f.Name] = prop.Example
		obj.WithProperty(f.Name, prop)
	}
	if len(fields) > 0 {
		obj.Required = fields.Names()
	}
	obj.Example = example
	return obj
}

const errorSchema = "Error"

func (b *builder) errorComponents() {
	body := openapi3.NewObjectSchema().
		WithProperty("error", openapi3.NewStringSchema())
	body.Required = []string{"error"}
	b.doc.Components.Schemas[errorSchema] = body.NewRef()
}

// component registers fields under name and returns a reference to it.
func (b *builder) component(name string, fields schema.Fields) *openapi3.SchemaRef {
	b.doc.Components.Schemas[name] = b.object(fields).NewRef()
	return b.ref(name)
}

// ref points at a registered component. The value is kept alongside the
// pointer so the document validates without a loader pass.
func (b *builder) ref(name string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef("#/components/schemas/"+name, b.doc.Components.Schemas[name].Value)
}

func (b *builder) principal(p schema.Principal) {
	name := emitter.PrincipalTypeName(p.ID)
	b.doc.Components.Schemas[name] = b.object(p.Attributes).NewRef()
	scheme := openapi3.NewJWTSecurityScheme()
	scheme.Description = fmt.Sprintf("Resolves the %q principal.", p.ID)
	b.doc.Components.SecuritySchemes[securityScheme(p.ID)] = &openapi3.SecuritySchemeRef{Value: scheme}
}

func (b *builder) endpoint(svc *schema.Service, ep *schema.Endpoint) error {
	req := b.component(emitter.RequestTypeName(ep), ep.Req)
	res := b.component(emitter.ResponseTypeName(ep), ep.Res)

	op := openapi3.NewOperation()
	op.OperationID = svc.ID + "." + ep.ID
	op.Tags = []string{svc.ID}
	op.Responses = openapi3.Responses{}

	method := http.MethodPost
	if ep.HTTPMethod() == schema.MethodGet {
		method = http.MethodGet
		for _, f := range ep.Req {
			param := openapi3.NewQueryParameter(f.Name).
				WithSchema(schema.MapType[*openapi3.Schema](schemas{}, f.Type)).
				WithRequired(true)
			op.AddParameter(param)
		}
	} else {
		body := openapi3.NewRequestBody().
			WithRequired(true).
			WithJSONSchemaRef(req)
		op.RequestBody = &openapi3.RequestBodyRef{Value: body}
		op.Responses[strconv.Itoa(emitter.BadRequestStatus)] = b.errorResponse("The request payload could not be decoded.")
	}

	ok := openapi3.NewResponse().
		WithDescription("OK").
		WithContent(openapi3.NewContentWithJSONSchemaRef(res))
	op.Responses[strconv.Itoa(http.StatusOK)] = &openapi3.ResponseRef{Value: ok}

	if ep.Gated() {
		if _, found := b.g.Principal(ep.Principal); !found {
			return fmt.Errorf("openapi: endpoint %s.%s references undeclared principal %q", svc.ID, ep.ID, ep.Principal)
		}
		requirement := openapi3.NewSecurityRequirement().Authenticate(securityScheme(ep.Principal))
		op.Security = openapi3.NewSecurityRequirements().With(requirement)
		op.Responses[strconv.Itoa(emitter.UnauthorizedStatus)] = b.errorResponse("The caller could not be resolved.")
	}

	for status, ids := range b.statuses() {
		key := strconv.Itoa(status)
		if existing, found := op.Responses[key]; found {
			desc := *existing.Value.Description + " Or one of: " + strings.Join(ids, ", ") + "."
			existing.Value.Description = &desc
			continue
		}
		op.Responses[key] = b.errorResponse("One of: " + strings.Join(ids, ", ") + ".")
	}

	b.doc.AddOperation("/"+svc.ID+"/"+ep.ID, method, op)
	return nil
}

// statuses groups error variant ids by their transport status.
func (b *builder) statuses() map[int][]string {
	out := map[int][]string{}
	for _, v := range b.g.Variants {
		out[v.Status] = append(out[v.Status], v.ID)
	}
	for _, ids := range out {
		sort.Strings(ids)
	}
	return out
}

func (b *builder) errorResponse(description string) *openapi3.ResponseRef {
	res := openapi3.NewResponse().
		WithDescription(description).
		WithContent(openapi3.NewContentWithJSONSchemaRef(b.ref(errorSchema)))
	return &openapi3.ResponseRef{Value: res}
}

// Marshal renders doc as block-style YAML. Keys keep the order of the JSON
// encoding, which is sorted, so output is stable.
func Marshal(doc *openapi3.T) ([]byte, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("openapi: marshal json: %w", err)
	}
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, fmt.Errorf("openapi: convert yaml: %w", err)
	}
	blockStyle(&node)
	out, err := yaml.Marshal(&node)
	if err != nil {
		return nil, fmt.Errorf("openapi: marshal yaml: %w", err)
	}
	return out, nil
}

func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}
