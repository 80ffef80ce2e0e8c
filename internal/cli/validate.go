package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/idiomatic/internal/schema"
)

// ValidateConfig captures the options for the validate command.
type ValidateConfig struct {
	Input   string
	Verbose bool
	Out     io.Writer
}

var validateRunner = runValidate

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a schema directory without rendering anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := cmd.Flags().GetString("input")
			if err != nil {
				return err
			}
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return err
			}
			input = strings.TrimSpace(input)
			if input == "" {
				return newUsageError("validate: --input is required")
			}
			return validateRunner(cmd.Context(), &ValidateConfig{Input: input, Verbose: verbose, Out: cmd.OutOrStdout()})
		},
	}
	cmd.Flags().String("input", "", "Schema directory (config.yml plus services/)")
	return cmd
}

func runValidate(_ context.Context, cfg *ValidateConfig) error {
	log := newLogger(cfg.Verbose)

	s, err := schema.Load(cfg.Input)
	if err != nil {
		return schemaUsageError(err)
	}

	endpoints := 0
	for _, svc := range s.Services {
		endpoints += len(svc.Endpoints)
		log.Debug().Str("service", svc.ID).Int("endpoints", len(svc.Endpoints)).Msg("service ok")
	}
	fmt.Fprintf(cfg.Out, "Schema %q is valid: %d services, %d endpoints, %d principals, %d errors\n",
		s.Config.ProjectName, len(s.Services), endpoints, len(s.Config.Principals), len(s.Config.Errors))
	return nil
}
