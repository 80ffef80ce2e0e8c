package schema

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Demo(t *testing.T) {
	t.Parallel()

	s, err := Load(filepath.Join("testdata", "demo"))
	require.NoError(t, err)

	assert.Equal(t, "demo", s.Config.ProjectName)
	require.Len(t, s.Config.Principals, 1)
	assert.Equal(t, []string{"id"}, s.Config.Principals[0].Attributes.Names())

	require.Len(t, s.Config.Errors, 2)
	require.NotNil(t, s.Config.Errors[0].Code)
	assert.Equal(t, 401, *s.Config.Errors[0].Code)
	assert.Nil(t, s.Config.Errors[1].Code)

	// services are ordered by id, not by file name or directory order
	require.Len(t, s.Services, 2)
	assert.Equal(t, "accounts", s.Services[0].ID)
	assert.Equal(t, "auth", s.Services[1].ID)

	auth := s.Services[1]
	assert.Equal(t, []string{"email", "password"}, auth.Endpoints[0].Req.Names())
	assert.Equal(t, MethodPost, auth.Endpoints[0].HTTPMethod())
	assert.NotNil(t, auth.Endpoints[1].Req)
	assert.Empty(t, auth.Endpoints[1].Req)
	assert.Equal(t, "user", auth.Endpoints[1].Principal)

	accounts := s.Services[0]
	assert.Equal(t, MethodGet, accounts.Endpoints[0].HTTPMethod())
	assert.Nil(t, accounts.Endpoints[1].Res)
}

func TestParseService_PreservesFieldOrder(t *testing.T) {
	t.Parallel()

	doc := strings.TrimSpace(`
id: orders
endpoints:
  - id: create
    req:
      zeta: string
      alpha: string
      mid: string
`) + "\n"
	svc, err := ParseService([]byte(doc), "orders.yml")
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, svc.Endpoints[0].Req.Names())
}

func TestParseService_Errors(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name string
		doc  string
		want string
	}{
		{"duplicate field", "id: a\nendpoints:\n  - id: e\n    req:\n      x: string\n      x: string\n", "already defined"},
		{"unknown type", "id: a\nendpoints:\n  - id: e\n    req:\n      x: int128\n", "unknown type"},
		{"unknown key", "id: a\nendpoints:\n  - id: e\n    request: {}\n", "not found"},
		{"bad method", "id: a\nendpoints:\n  - id: e\n    method: delete\n", "unsupported method"},
		{"not a mapping", "id: a\nendpoints:\n  - id: e\n    req: [x]\n", "expected a mapping"},
		{"empty", "", "empty"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseService([]byte(tc.doc), "svc.yml")
			require.Error(t, err)
			var se *SchemaError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, SchemaIOError, se.Code)
			assert.Equal(t, "svc.yml", se.Location)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoad_MissingConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := Load(dir)
	var se *SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, SchemaIOError, se.Code)
}

func TestLoad_MissingServicesDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte("project_name: x\n"), 0o600))
	_, err := Load(dir)
	var se *SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, SchemaIOError, se.Code)
}

func TestLoad_ValidationFailureProducesNoSchema(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ServicesDir), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("project_name: x\n"), 0o600))
	svc := "id: admin\nendpoints:\n  - id: purge\n    principal: admin\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ServicesDir, "admin.yml"), []byte(svc), 0o600))
	// ignored: hidden and non-yaml files
	require.NoError(t, os.WriteFile(filepath.Join(dir, ServicesDir, ".swap.yml"), []byte("::"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ServicesDir, "README.md"), []byte("#"), 0o600))

	s, err := Load(dir)
	require.Nil(t, s)
	var se *SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, SchemaValidationError, se.Code)
	assert.Equal(t, "admin", se.Reference)
}

func TestIsSchemaDocument(t *testing.T) {
	t.Parallel()
	assert.True(t, IsSchemaDocument("auth.yml"))
	assert.True(t, IsSchemaDocument("/x/auth.YAML"))
	assert.False(t, IsSchemaDocument(".auth.yml"))
	assert.False(t, IsSchemaDocument("auth.yml~"))
	assert.False(t, IsSchemaDocument("auth.json"))
}
