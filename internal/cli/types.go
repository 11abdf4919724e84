package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTypesCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the configured post types",
		Args:  cobra.NoArgs,
		RunE: root.withApp(func(cmd *cobra.Command, args []string, e *env) error {
			for _, pt := range e.app.Types.All() {
				line := fmt.Sprintf("%s (%s)", pt.Name, pt.Label)
				if pt.HasTemplate() {
					line += mutedStyle.Render(fmt.Sprintf("  %d template blocks", len(pt.Template)))
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		}),
	}
}
