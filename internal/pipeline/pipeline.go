// Package pipeline drives one generation run: validate the schema, render it
// through a backend, write the artifacts and run the backend's post-build
// steps.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mark3labs/idiomatic/internal/emitter"
	"github.com/mark3labs/idiomatic/internal/openapi"
	"github.com/mark3labs/idiomatic/internal/schema"
)

// ErrOutputNotEmpty is returned when the output root already has content and
// Force is not set.
var ErrOutputNotEmpty = errors.New("output directory is not empty")

// Options controls a generation run.
type Options struct {
	OutDir        string // required; the backend writes under OutDir/<name>
	Force         bool   // overwrite a non-empty output root
	DryRun        bool   // plan only
	SkipPostBuild bool
	OpenAPI       bool // also write openapi.yaml
	Logger        zerolog.Logger
	Runner        CommandRunner // defaults to ExecRunner
}

// PlannedFile describes an artifact the run writes.
type PlannedFile struct {
	RelPath string
	Size    int
	Mode    os.FileMode
}

// Result lists what a run planned and, unless dry, wrote and ran.
type Result struct {
	Root    string
	Planned []PlannedFile
	Ran     []emitter.Command
}

// Render validates s and renders every artifact of gen into memory, keyed by
// slash-separated path relative to the output root.
func Render(ctx context.Context, s *schema.Schema, gen emitter.Generator, withOpenAPI bool) (map[string][]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("pipeline: nil schema")
	}
	if gen == nil {
		return nil, fmt.Errorf("pipeline: nil generator")
	}
	s.SortServices()
	if err := s.Validate(); err != nil {
		return nil, err
	}

	files := map[string][]byte{}
	for _, f := range gen.ProjectFiles(&s.Config) {
		files[path.Clean(filepath.ToSlash(f.Path))] = f.Content
	}

	var src bytes.Buffer
	globals, err := gen.RenderConfig(&s.Config, &src)
	if err != nil {
		return nil, err
	}
	for i := range s.Services {
		if err := gen.RenderService(globals, &s.Services[i], &src); err != nil {
			return nil, err
		}
	}
	files[path.Join(gen.SourceDir(), gen.SourceFile())] = src.Bytes()

	if withOpenAPI {
		doc, err := openapi.Build(ctx, s)
		if err != nil {
			return nil, err
		}
		data, err := openapi.Marshal(doc)
		if err != nil {
			return nil, err
		}
		files[openapi.FileName] = data
	}
	return files, nil
}

// Generate runs the whole pipeline for gen.
func Generate(ctx context.Context, s *schema.Schema, gen emitter.Generator, opts Options) (*Result, error) {
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("pipeline: OutDir is required")
	}
	files, err := Render(ctx, s, gen, opts.OpenAPI)
	if err != nil {
		return nil, err
	}
	log := opts.Logger.With().Str("target", gen.Name()).Logger()

	root, err := filepath.Abs(filepath.Join(opts.OutDir, gen.Name()))
	if err != nil {
		return nil, fmt.Errorf("resolve out dir: %w", err)
	}

	rels := make([]string, 0, len(files))
	for p := range files {
		rels = append(rels, p)
	}
	sort.Strings(rels)

	res := &Result{Root: root, Planned: make([]PlannedFile, 0, len(rels))}
	for _, rel := range rels {
		res.Planned = append(res.Planned, PlannedFile{RelPath: rel, Size: len(files[rel]), Mode: 0o644})
	}

	if opts.DryRun {
		log.Info().Str("root", root).Int("files", len(rels)).Msg("dry run, nothing written")
		return res, nil
	}

	if err := writeFiles(gen.Name(), root, rels, files, opts.Force); err != nil {
		return nil, err
	}
	log.Info().Str("root", root).Int("files", len(rels)).Msg("wrote project")

	if opts.SkipPostBuild {
		return res, nil
	}
	runner := opts.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	for _, c := range gen.PostBuildSteps() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		log.Info().Str("cmd", c.Name).Strs("args", c.Args).Msg("post-build")
		out, err := runner.Run(ctx, root, c)
		res.Ran = append(res.Ran, c)
		if err != nil {
			return res, &CommandError{Code: PostBuildCommandError, Command: c.Name, Args: c.Args, ExitCode: -1, Cause: err}
		}
		if out.ExitCode != 0 {
			log.Error().Str("cmd", c.Name).Int("exit", out.ExitCode).Msg(strings.TrimSpace(out.Output))
			return res, &CommandError{Code: PostBuildCommandError, Command: c.Name, Args: c.Args, ExitCode: out.ExitCode, Output: out.Output}
		}
		log.Debug().Str("cmd", c.Name).Dur("took", out.Duration).Msg("post-build done")
	}
	return res, nil
}

// writeFiles writes every artifact under root. Each file is written to a
// temp file in its directory and renamed into place.
func writeFiles(backend, root string, rels []string, files map[string][]byte, force bool) error {
	if st, err := os.Stat(root); err == nil && st.IsDir() && !force {
		entries, rerr := os.ReadDir(root)
		if rerr == nil && len(entries) > 0 {
			return fmt.Errorf("%w: %s (use --force to overwrite)", ErrOutputNotEmpty, root)
		}
	}
	for _, rel := range rels {
		if err := writeFileAtomic(root, rel, files[rel]); err != nil {
			return emitter.NewRenderError(backend, rel, err)
		}
	}
	return nil
}

func writeFileAtomic(root, rel string, content []byte) error {
	p := filepath.Join(root, filepath.FromSlash(rel))
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(p)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
