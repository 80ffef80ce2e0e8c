package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/idiomatic/internal/emitter"
	"github.com/mark3labs/idiomatic/internal/emitter/goserver"
	"github.com/mark3labs/idiomatic/internal/emitter/rustserver"
	"github.com/mark3labs/idiomatic/internal/pipeline"
	"github.com/mark3labs/idiomatic/internal/schema"
)

// GenerateConfig captures all inputs that influence the generate command after
// merging defaults, config file values, and CLI overrides.
type GenerateConfig struct {
	Input         string
	Target        string
	Out           string
	PackageName   string
	ConfigPath    string
	DryRun        bool
	Force         bool
	SkipPostBuild bool
	OpenAPI       bool
	Verbose       bool
}

func defaultGenerateConfig() GenerateConfig {
	return GenerateConfig{Target: goserver.Name, Out: "out", OpenAPI: true}
}

// newRegistry lists every backend the CLI can target. packageName, when set,
// overrides the Go module path or the Rust crate name.
func newRegistry(packageName string) *emitter.Registry {
	return emitter.NewRegistry(
		goserver.New(goserver.WithModulePath(packageName)),
		rustserver.New(rustserver.WithCrateName(packageName)),
	)
}

var generateRunner = runGenerate

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a backend server project from a schema directory",
		Long: "Generate a backend server project from a schema directory. " +
			"Options can be provided via flags, config files, or defaults.",
		Example: strings.TrimSpace(`  idiomatic generate --input ./schema --target go_server --out ./gen
  idiomatic --config idiomatic.yaml generate --force --dry-run`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveGenerateConfig(cmd)
			if err != nil {
				return err
			}
			return generateRunner(cmd.Context(), cfg)
		},
	}
	addGenerateFlags(cmd.Flags())
	return cmd
}

func addGenerateFlags(flags *pflag.FlagSet) {
	flags.String("input", "", "Schema directory (config.yml plus services/)")
	flags.String("target", "", "Backend to render ("+strings.Join(newRegistry("").Names(), "|")+"); defaults to "+goserver.Name)
	flags.String("out", "", "Output directory; the backend writes under <out>/<target>")
	flags.String("package-name", "", "Override the generated module or crate name")
	flags.Bool("dry-run", false, "Preview planned outputs without writing files")
	flags.Bool("force", false, "Overwrite existing output when set")
	flags.Bool("skip-post-build", false, "Do not run the backend's post-build commands")
	flags.Bool("openapi", true, "Also write an OpenAPI document of the schema")
}

func resolveGenerateConfig(cmd *cobra.Command) (*GenerateConfig, error) {
	cfg := defaultGenerateConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		cfg.ConfigPath = configPath
		if err := applyGenerateConfigFromFile(&cfg, configPath); err != nil {
			return nil, err
		}
	}

	if err := applyGenerateFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyGenerateFlagOverrides(flags *pflag.FlagSet, cfg *GenerateConfig) error {
	strs := []struct {
		name string
		dst  *string
	}{
		{"input", &cfg.Input},
		{"target", &cfg.Target},
		{"out", &cfg.Out},
		{"package-name", &cfg.PackageName},
	}
	for _, s := range strs {
		if !flags.Changed(s.name) {
			continue
		}
		value, err := flags.GetString(s.name)
		if err != nil {
			return err
		}
		*s.dst = strings.TrimSpace(value)
	}

	bools := []struct {
		name string
		dst  *bool
	}{
		{"dry-run", &cfg.DryRun},
		{"force", &cfg.Force},
		{"skip-post-build", &cfg.SkipPostBuild},
		{"openapi", &cfg.OpenAPI},
		{"verbose", &cfg.Verbose},
	}
	for _, b := range bools {
		if !flags.Changed(b.name) {
			continue
		}
		value, err := flags.GetBool(b.name)
		if err != nil {
			return err
		}
		*b.dst = value
	}
	return nil
}

func (c *GenerateConfig) normalize() {
	c.Input = strings.TrimSpace(c.Input)
	c.Target = strings.ToLower(strings.TrimSpace(c.Target))
	c.Out = strings.TrimSpace(c.Out)
	c.PackageName = strings.TrimSpace(c.PackageName)
	if c.Target == "" {
		c.Target = goserver.Name
	}
	if c.Out == "" {
		c.Out = "out"
	}
}

func (c *GenerateConfig) validate() error {
	if c.Input == "" {
		return newUsageError("generate: --input is required (set via flag or config file)")
	}
	if _, err := newRegistry(c.PackageName).Lookup(c.Target); err != nil {
		return newUsageError(fmt.Sprintf("generate: %v", err))
	}
	return nil
}

func runGenerate(ctx context.Context, cfg *GenerateConfig) error {
	log := newLogger(cfg.Verbose)

	s, err := schema.Load(cfg.Input)
	if err != nil {
		return schemaUsageError(err)
	}
	gen, err := newRegistry(cfg.PackageName).Lookup(cfg.Target)
	if err != nil {
		return newUsageError(fmt.Sprintf("generate: %v", err))
	}

	res, err := pipeline.Generate(ctx, s, gen, pipeline.Options{
		OutDir:        cfg.Out,
		Force:         cfg.Force,
		DryRun:        cfg.DryRun,
		SkipPostBuild: cfg.SkipPostBuild,
		OpenAPI:       cfg.OpenAPI,
		Logger:        log,
	})
	if err != nil {
		return wrapOutputError(err, cfg.Out)
	}
	if cfg.DryRun {
		paths := make([]string, 0, len(res.Planned))
		for _, p := range res.Planned {
			paths = append(paths, p.RelPath)
		}
		printPlan(res.Root, paths)
	}
	return nil
}

func printPlan(outDir string, relPaths []string) {
	fmt.Fprintf(os.Stdout, "Planned writes to %s (%d files):\n", outDir, len(relPaths))
	for _, p := range relPaths {
		fmt.Fprintf(os.Stdout, "- %s\n", p)
	}
}

// wrapOutputError gives filesystem failures a hint; post-build failures pass
// through with their exit status.
func wrapOutputError(err error, outDir string) error {
	if errors.Is(err, pipeline.ErrOutputNotEmpty) {
		return wrapUsageError(err, fmt.Sprintf("output error: %v", err))
	}
	var re *emitter.RenderError
	if errors.As(err, &re) {
		abs := outDir
		if ap, aerr := filepath.Abs(outDir); aerr == nil {
			abs = ap
		}
		return wrapUsageError(err, fmt.Sprintf("output error for %s: %v\nHint: choose a different --out or check directory permissions.", abs, err))
	}
	var se *schema.SchemaError
	if errors.As(err, &se) {
		return schemaUsageError(err)
	}
	return err
}

func applyGenerateConfigFromFile(cfg *GenerateConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return newUsageError(fmt.Sprintf("read config file %q: %v", path, err))
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return newUsageError(fmt.Sprintf("parse config file %q: %v", path, err))
	}

	for key, value := range raw {
		var (
			str  *string
			flag *bool
		)
		switch normalizeKey(key) {
		case "input":
			str = &cfg.Input
		case "target":
			str = &cfg.Target
		case "out":
			str = &cfg.Out
		case "packagename":
			str = &cfg.PackageName
		case "dryrun":
			flag = &cfg.DryRun
		case "force":
			flag = &cfg.Force
		case "skippostbuild":
			flag = &cfg.SkipPostBuild
		case "openapi":
			flag = &cfg.OpenAPI
		case "verbose":
			flag = &cfg.Verbose
		default:
			return newUsageError(fmt.Sprintf("config file %q: unknown field %q", path, key))
		}

		if str != nil {
			v, err := valueAsString(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			*str = v
			continue
		}
		v, err := valueAsBool(value)
		if err != nil {
			return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
		}
		*flag = v
	}

	return nil
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(val))
		switch trimmed {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n":
			return false, nil
		case "":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q", val)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}
