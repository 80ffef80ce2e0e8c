package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTargetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List the backends generate can render",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := newRegistry("")
			for _, name := range reg.Names() {
				gen, _ := reg.Lookup(name)
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s/%s\n", name, gen.SourceDir(), gen.SourceFile())
			}
			return nil
		},
	}
}
