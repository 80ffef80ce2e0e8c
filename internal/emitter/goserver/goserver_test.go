package goserver

import (
	"bytes"
	"errors"
	"go/parser"
	"go/token"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/idiomatic/internal/emitter"
	"github.com/mark3labs/idiomatic/internal/schema"
)

func render(t *testing.T, g *Generator, s *schema.Schema) string {
	t.Helper()
	var buf bytes.Buffer
	globals, err := g.RenderConfig(&s.Config, &buf)
	require.NoError(t, err)
	for i := range s.Services {
		require.NoError(t, g.RenderService(globals, &s.Services[i], &buf))
	}
	return buf.String()
}

func TestRender_Example(t *testing.T) {
	t.Parallel()
	out := render(t, New(), schema.Example())

	assert.Contains(t, out, "type UserPrincipal struct {\n\tId string `json:\"id\"`\n}")
	assert.Contains(t, out, "type LoginRequest struct {\n\tEmail    string `json:\"email\"`\n\tPassword string `json:\"password\"`\n}")
	assert.Contains(t, out, "type WhoamiRequest struct{}")
	assert.Contains(t, out, "type AuthService interface {")
	assert.Contains(t, out, "Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error)")
	assert.Contains(t, out, "Whoami(ctx context.Context, req *WhoamiRequest, caller *UserPrincipal) (*WhoamiResponse, error)")
	assert.Contains(t, out, "func AuthRoutes(r chi.Router, svc AuthService, userResolver PrincipalResolver[UserPrincipal]) {")
	assert.Contains(t, out, "r.Route(\"/auth\", func(r chi.Router) {")
	assert.Contains(t, out, "r.Post(\"/login\", handleLogin(svc))")
	assert.Contains(t, out, "r.Post(\"/whoami\", handleWhoami(svc, userResolver))")

	// internal first, then declared errors in order
	internal := strings.Index(out, "ErrorKindInternal")
	declared := strings.Index(out, "ErrorKindInvalidCredentials")
	require.True(t, internal >= 0 && declared >= 0)
	assert.Less(t, internal, declared)
	assert.Contains(t, out, "case ErrorKindInvalidCredentials:\n\t\treturn 401")
	assert.Contains(t, out, "case ErrorKindInternal:\n\t\treturn 500")
	assert.Contains(t, out, "ErrInvalidCredentials = &Error{Kind: ErrorKindInvalidCredentials}")

	// login is open: it must not resolve a principal
	login := out[strings.Index(out, "func handleLogin"):strings.Index(out, "func handleWhoami")]
	assert.NotContains(t, login, "Resolve(")
	assert.Contains(t, login, "decodeJSON(r, &req)")
}

func TestRender_ParsesAsGo(t *testing.T) {
	t.Parallel()
	s, err := schema.Load("../../schema/testdata/demo")
	require.NoError(t, err)

	out := render(t, New(), s)
	_, err = parser.ParseFile(token.NewFileSet(), "api.go", out, parser.AllErrors)
	require.NoError(t, err, out)
}

func TestRender_GetEndpointReadsQuery(t *testing.T) {
	t.Parallel()
	s, err := schema.Load("../../schema/testdata/demo")
	require.NoError(t, err)

	out := render(t, New(), s)
	assert.Contains(t, out, "r.Get(\"/profile\", handleProfile(svc, userResolver))")
	assert.Contains(t, out, "q := r.URL.Query()")
	assert.Contains(t, out, "req.AccountId = q.Get(\"account_id\")")
	// rename declares no response fields
	assert.Contains(t, out, "type RenameResponse struct{}")
	// not_found carries no code and falls back to the default status
	assert.Contains(t, out, "case ErrorKindNotFound:\n\t\treturn 400")
}

func TestRender_DeduplicatesResolverParams(t *testing.T) {
	t.Parallel()
	s, err := schema.Load("../../schema/testdata/demo")
	require.NoError(t, err)

	out := render(t, New(), s)
	start := strings.Index(out, "func AccountsRoutes(")
	require.GreaterOrEqual(t, start, 0)
	sig := out[start : start+strings.Index(out[start:], "\n")]

	assert.Equal(t, "func AccountsRoutes(r chi.Router, svc AccountsService, userResolver PrincipalResolver[UserPrincipal]) {", sig)
	assert.Equal(t, 1, strings.Count(sig, "PrincipalResolver["))
	assert.Contains(t, out, "r.Get(\"/profile\", handleProfile(svc, userResolver))")
	assert.Contains(t, out, "r.Post(\"/rename\", handleRename(svc, userResolver))")
}

func TestRender_Deterministic(t *testing.T) {
	t.Parallel()
	first := render(t, New(), schema.Example())
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, render(t, New(), schema.Example()))
	}
}

func TestRender_NoPrincipalsNoErrors(t *testing.T) {
	t.Parallel()
	s := &schema.Schema{
		Config: schema.Config{ProjectName: "bare"},
		Services: []schema.Service{
			{ID: "ping", Endpoints: []schema.Endpoint{{ID: "ping", Req: schema.Fields{}, Res: schema.Fields{}}}},
			{ID: "empty"},
		},
	}
	out := render(t, New(), s)
	assert.NotContains(t, out, "Principal struct")
	assert.NotContains(t, out, "ErrInternal =")
	assert.Contains(t, out, "func PingRoutes(r chi.Router, svc PingService) {")
	assert.Contains(t, out, "type EmptyService interface{}")

	_, err := parser.ParseFile(token.NewFileSet(), "api.go", out, parser.AllErrors)
	require.NoError(t, err, out)
}

func TestRenderService_UndeclaredPrincipal(t *testing.T) {
	t.Parallel()
	g := New()
	globals, err := g.RenderConfig(&schema.Config{ProjectName: "x"}, &bytes.Buffer{})
	require.NoError(t, err)

	svc := &schema.Service{ID: "a", Endpoints: []schema.Endpoint{{ID: "b", Principal: "ghost"}}}
	err = g.RenderService(globals, svc, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

type failingWriter struct{ after int }

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.after <= 0 {
		return 0, errors.New("disk full")
	}
	w.after--
	return len(p), nil
}

func TestRender_WriteFailure(t *testing.T) {
	t.Parallel()
	g := New()
	_, err := g.RenderConfig(&schema.Example().Config, &failingWriter{after: 3})
	require.Error(t, err)

	var re *emitter.RenderError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, emitter.RenderIOError, re.Code)
	assert.Equal(t, Name, re.Backend)
	assert.EqualError(t, errors.Unwrap(err), "disk full")
}

func TestProjectFiles(t *testing.T) {
	t.Parallel()
	cfg := &schema.Config{ProjectName: "Billing API"}

	files := New().ProjectFiles(cfg)
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	assert.Equal(t, []string{".editorconfig", "go.mod", "Makefile", "cmd/server/main.go"}, paths)
	assert.Contains(t, string(files[1].Content), "module billing_api\n")
	assert.Contains(t, string(files[1].Content), "require github.com/go-chi/chi/v5 v5.1.0")

	files = New(WithModulePath("example.com/billing")).ProjectFiles(cfg)
	assert.Contains(t, string(files[1].Content), "module example.com/billing\n")
	assert.Contains(t, string(files[3].Content), "example.com/billing/internal/api")

	_, err := parser.ParseFile(token.NewFileSet(), "main.go", files[3].Content, parser.AllErrors)
	require.NoError(t, err)
}

func TestPostBuildSteps(t *testing.T) {
	t.Parallel()
	steps := New().PostBuildSteps()
	require.Len(t, steps, 3)
	assert.Equal(t, emitter.Command{Name: "go", Args: []string{"mod", "tidy"}}, steps[0])
	assert.Equal(t, "gofmt", steps[1].Name)
}
