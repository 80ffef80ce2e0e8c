package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/idiomatic/internal/schema"
)

const defaultOptionsFile = "idiomatic.yaml"

// InitConfig captures the options for the init command.
type InitConfig struct {
	OutputPath string
	SchemaDir  string
	Force      bool
	Verbose    bool
}

var initRunner = runInit

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a sample options file and, optionally, a sample schema",
		Long: "Scaffold a commented idiomatic options file that documents available options. " +
			"With --schema-dir, also write a small schema directory to start from.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			schemaDir, err := cmd.Flags().GetString("schema-dir")
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return err
			}
			cfg := &InitConfig{
				OutputPath: out,
				SchemaDir:  schemaDir,
				Force:      force,
				Verbose:    verbose,
			}
			return initRunner(cmd.Context(), cfg)
		},
	}

	cmd.Flags().String("out", defaultOptionsFile, "Where to write the sample options file")
	cmd.Flags().String("schema-dir", "", "Also write a sample schema into this directory")
	cmd.Flags().Bool("force", false, "Overwrite target files if they already exist")

	return cmd
}

func runInit(ctx context.Context, cfg *InitConfig) error {
	_ = ctx
	log := newLogger(cfg.Verbose)

	out := strings.TrimSpace(cfg.OutputPath)
	if out == "" {
		out = defaultOptionsFile
	}
	files := map[string]string{out: sampleOptionsYAML}
	order := []string{out}

	if dir := strings.TrimSpace(cfg.SchemaDir); dir != "" {
		cfgPath := filepath.Join(dir, "config.yml")
		svcPath := filepath.Join(dir, schema.ServicesDir, "auth.yml")
		files[cfgPath] = sampleSchemaConfig
		files[svcPath] = sampleSchemaService
		order = append(order, cfgPath, svcPath)
	}

	abs := make([]string, len(order))
	for i, p := range order {
		a, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("init: resolve output path: %w", err)
		}
		if st, err := os.Stat(a); err == nil && !cfg.Force && st.Mode().IsRegular() {
			return newUsageError(fmt.Sprintf("init: %q already exists (use --force to overwrite)", a))
		}
		abs[i] = a
	}

	for i, a := range abs {
		content := strings.TrimSpace(files[order[i]]) + "\n"
		if err := writeFileAtomic(a, []byte(content)); err != nil {
			return err
		}
		log.Debug().Str("path", a).Int("bytes", len(content)).Msg("wrote file")
		fmt.Fprintf(os.Stdout, "Wrote %s\n", a)
	}
	return nil
}

func writeFileAtomic(absPath string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return newUsageError(fmt.Sprintf("init: cannot create parent directory: %v", err))
	}
	tmp := absPath + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return newUsageError(fmt.Sprintf("init: cannot write temp file: %v\nHint: choose a different --out or check directory permissions.", err))
	}
	if err := os.Rename(tmp, absPath); err != nil {
		_ = os.Remove(tmp)
		return newUsageError(fmt.Sprintf("init: cannot place file at %s: %v", absPath, err))
	}
	return nil
}

// sampleOptionsYAML is a commented example options file documenting available options.
const sampleOptionsYAML = `# idiomatic configuration (YAML)
# All fields are optional. Command-line flags override config values.

# Schema directory holding config.yml and services/*.yml.
# input: ./schema

# Backend to render (go_server|rust_server). Defaults to go_server.
# target: go_server

# Output directory. The backend writes under <out>/<target>.
# out: ./out

# Go: module path (e.g., example.com/billing). Rust: crate name.
# packageName: example.com/billing

# Preview planned outputs without writing files.
# dryRun: false

# Overwrite non-empty output directory.
# force: false

# Do not run gofmt/go vet or cargo fmt/check after writing.
# skipPostBuild: false

# Also write openapi.yaml next to the generated project.
# openapi: true

# Enable verbose logging.
# verbose: false
`

const sampleSchemaConfig = `
project_name: demo
principals:
  - id: user
    attributes:
      id: string
errors:
  - id: invalid_credentials
    code: 401
`

const sampleSchemaService = `
id: auth
endpoints:
  - id: login
    req:
      email: string
      password: string
    res:
      token: string
  - id: whoami
    req: {}
    res:
      principal_id: string
    principal: user
`
