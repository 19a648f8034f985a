package cli

import (
	"github.com/spf13/cobra"

	"github.com/rpattn/dataql/internal/domain"
)

// NewMetaCommand creates the meta command.
func NewMetaCommand(rootOpts *RootOptions) *cobra.Command {
	var namespace string

	cmd := &cobra.Command{
		Use:   "meta [object]",
		Short: "Describe a declared table, or list them all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := domain.MetaRequest{Namespace: namespace}
			if len(args) == 1 {
				req.Object = args[0]
			}

			a, err := newApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			meta, err := a.service.Meta(cmd.Context(), req)
			return respond(cmd, meta, err)
		},
	}

	cmd.Flags().StringVarP(&namespace, "namespace", "n", "main", "namespace of the table")

	return cmd
}
