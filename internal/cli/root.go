package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// Execute runs the idiomatic CLI.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "idiomatic",
		Short:         "Generate backend server contracts from an API schema",
		Long:          "idiomatic renders a declarative API schema (principals, errors, services, endpoints) into a backend server project for the selected target.",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringP("config", "c", "", "Options file path (YAML)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging output")

	for _, sub := range []*cobra.Command{
		newGenerateCmd(),
		newValidateCmd(),
		newTargetsCmd(),
		newInitCmd(),
		newWatchCmd(),
	} {
		cmd.AddCommand(sub)
	}

	// Convert Cobra flag errors (like unknown flags) into friendly usage errors
	// that also show the command's help text.
	for _, c := range append([]*cobra.Command{cmd}, cmd.Commands()...) {
		c.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
			return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
		})
	}

	return cmd
}
