package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func firstSchemaError(t *testing.T, err error) *SchemaError {
	t.Helper()
	require.Error(t, err)
	var se *SchemaError
	require.True(t, errors.As(err, &se), "expected *SchemaError, got %T", err)
	return se
}

func TestValidate_Example(t *testing.T) {
	t.Parallel()
	require.NoError(t, Example().Validate())
}

func TestValidate_MissingPrincipal(t *testing.T) {
	t.Parallel()

	s := Example()
	s.Services[0].Endpoints[1].Principal = "admin"

	se := firstSchemaError(t, s.Validate())
	assert.Equal(t, SchemaValidationError, se.Code)
	assert.Equal(t, "endpoint auth.whoami", se.Entity)
	assert.Equal(t, "admin", se.Reference)
	assert.Contains(t, se.Error(), `"admin"`)
	assert.Contains(t, se.Error(), "whoami")
}

func TestValidate_Violations(t *testing.T) {
	t.Parallel()

	code := 42
	for _, tc := range []struct {
		name   string
		mutate func(s *Schema)
		want   string
	}{
		{"project name", func(s *Schema) { s.Config.ProjectName = " " }, "project_name is required"},
		{"duplicate principal", func(s *Schema) {
			s.Config.Principals = append(s.Config.Principals, s.Config.Principals[0])
		}, "duplicate principal id"},
		{"principal type name collision", func(s *Schema) {
			s.Config.Principals = append(s.Config.Principals, Principal{ID: "User"})
		}, `derives name "UserPrincipal"`},
		{"principal resolver shadows generated trait", func(s *Schema) {
			s.Config.Principals = append(s.Config.Principals, Principal{ID: "http_principal"})
		}, `derives name "HttpPrincipalResolver", which generated code already uses`},
		{"reserved internal error", func(s *Schema) {
			s.Config.Errors = append(s.Config.Errors, Error{ID: "internal"})
		}, `derives name "Internal"`},
		{"error name collision", func(s *Schema) {
			s.Config.Errors = append(s.Config.Errors, Error{ID: "invalidCredentials"})
		}, `already derived from "invalid_credentials"`},
		{"error code range", func(s *Schema) {
			s.Config.Errors[0].Code = &code
		}, "outside 100..599"},
		{"invalid service id", func(s *Schema) { s.Services[0].ID = "9auth" }, "invalid id"},
		{"duplicate service", func(s *Schema) {
			s.Services = append(s.Services, s.Services[0])
		}, "duplicate service id"},
		{"duplicate endpoint", func(s *Schema) {
			eps := s.Services[0].Endpoints
			s.Services[0].Endpoints = append(eps, eps[0])
		}, "duplicate endpoint id"},
		{"endpoint record collision across services", func(s *Schema) {
			s.Services = append(s.Services, Service{ID: "billing", Endpoints: []Endpoint{{ID: "Login"}}})
		}, `derives name "Login"`},
		{"route function collision", func(s *Schema) {
			s.Services[0].Endpoints = append(s.Services[0].Endpoints, Endpoint{ID: "x_http_scope"})
			s.Services = append(s.Services, Service{ID: "auth_http_handler_x"})
		}, `derives name "auth_http_handler_x_http_scope", already derived from "auth.x_http_scope"`},
		{"field name collision", func(s *Schema) {
			s.Services[0].Endpoints[0].Req = Fields{{Name: "first_name", Type: String}, {Name: "firstName", Type: String}}
		}, `already derived from "first_name"`},
		{"duplicate field", func(s *Schema) {
			s.Services[0].Endpoints[0].Res = Fields{{Name: "token", Type: String}, {Name: "token", Type: String}}
		}, "duplicate field name"},
		{"unknown type", func(s *Schema) {
			s.Config.Principals[0].Attributes = Fields{{Name: "id", Type: Type("uuid")}}
		}, "unknown type"},
		{"unknown method", func(s *Schema) { s.Services[0].Endpoints[0].Method = "put" }, "unsupported method"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := Example()
			tc.mutate(s)
			err := s.Validate()
			se := firstSchemaError(t, err)
			assert.Equal(t, SchemaValidationError, se.Code)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestValidate_ReportsEveryViolation(t *testing.T) {
	t.Parallel()

	s := Example()
	s.Config.ProjectName = ""
	s.Services[0].Endpoints[1].Principal = "admin"

	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project_name is required")
	assert.Contains(t, err.Error(), `principal "admin"`)
}

func TestService_PrincipalIDs(t *testing.T) {
	t.Parallel()

	svc := Service{ID: "x", Endpoints: []Endpoint{
		{ID: "a", Principal: "user"},
		{ID: "b"},
		{ID: "c", Principal: "admin"},
		{ID: "d", Principal: "user"},
	}}
	assert.Equal(t, []string{"user", "admin"}, svc.PrincipalIDs())
	assert.Nil(t, (&Service{ID: "open"}).PrincipalIDs())
}

type goTypes struct{}

func (goTypes) StringType() string { return "string" }

var _ TypeMapper[string] = goTypes{}

func TestMapType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "string", MapType[string](goTypes{}, String))
	assert.Panics(t, func() { MapType[string](goTypes{}, Type("blob")) })

	parsed, err := ParseType(" String ")
	require.NoError(t, err)
	assert.Equal(t, String, parsed)
}
