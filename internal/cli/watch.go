package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mark3labs/idiomatic/internal/pipeline"
	"github.com/mark3labs/idiomatic/internal/schema"
)

const defaultDebounce = 300 * time.Millisecond

// WatchConfig is a generate configuration plus the quiet period that must
// pass after a schema change before regenerating.
type WatchConfig struct {
	GenerateConfig
	Debounce time.Duration
}

var watchRunner = runWatch

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Regenerate whenever the schema directory changes",
		Long: "Generate once, then watch the schema directory and regenerate on every change " +
			"until interrupted. Existing output is always overwritten.",
		RunE: func(cmd *cobra.Command, args []string) error {
			gcfg, err := resolveGenerateConfig(cmd)
			if err != nil {
				return err
			}
			debounce, err := cmd.Flags().GetDuration("debounce")
			if err != nil {
				return err
			}
			if debounce <= 0 {
				return newUsageError("watch: --debounce must be positive")
			}
			gcfg.Force = true
			gcfg.DryRun = false
			return watchRunner(cmd.Context(), &WatchConfig{GenerateConfig: *gcfg, Debounce: debounce})
		},
	}
	addGenerateFlags(cmd.Flags())
	cmd.Flags().Duration("debounce", defaultDebounce, "Quiet period after a change before regenerating")
	return cmd
}

func runWatch(ctx context.Context, cfg *WatchConfig) error {
	log := newLogger(cfg.Verbose)

	regenerate := func() {
		if err := generateOnce(ctx, &cfg.GenerateConfig, log); err != nil {
			log.Error().Err(err).Msg("generation failed, waiting for the next change")
			return
		}
		log.Info().Msg("generation complete")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range []string{cfg.Input, filepath.Join(cfg.Input, schema.ServicesDir)} {
		if st, err := os.Stat(dir); err != nil || !st.IsDir() {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch directory: %w", err)
		}
	}
	log.Info().Str("input", cfg.Input).Msg("watching schema for changes")

	regenerate()
	return watchLoop(ctx, watcher, cfg.Debounce, log, regenerate)
}

// generateOnce runs one load-and-generate cycle with the watch settings.
func generateOnce(ctx context.Context, cfg *GenerateConfig, log zerolog.Logger) error {
	s, err := schema.Load(cfg.Input)
	if err != nil {
		return schemaUsageError(err)
	}
	gen, err := newRegistry(cfg.PackageName).Lookup(cfg.Target)
	if err != nil {
		return err
	}
	_, err = pipeline.Generate(ctx, s, gen, pipeline.Options{
		OutDir:        cfg.Out,
		Force:         true,
		SkipPostBuild: cfg.SkipPostBuild,
		OpenAPI:       cfg.OpenAPI,
		Logger:        log,
	})
	return err
}

// watchLoop calls fn once events on schema documents have been quiet for
// debounce. It returns when ctx is done or the watcher closes.
func watchLoop(ctx context.Context, w *fsnotify.Watcher, debounce time.Duration, log zerolog.Logger, fn func()) error {
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !schema.IsSchemaDocument(filepath.Base(event.Name)) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			log.Debug().
				Str("event", event.Op.String()).
				Str("file", event.Name).
				Msg("schema file changed")
			timer.Reset(debounce)

		case <-timer.C:
			fn()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("file watcher error")

		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		}
	}
}
