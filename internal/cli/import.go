package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rpattn/dataql/internal/domain"
	"github.com/rpattn/dataql/internal/export"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Namespace string
	Object    string
	Format    string
	Before    []string
	After     []string
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Insert the rows of a CSV or XLSX file",
		Long: `Insert the rows of a CSV or XLSX file into an object. The first non-empty
line names the columns; declared input functions and hooks apply as for
a create request.

Example:
  dataql import --object user users.csv
  dataql import -n billing --object invoice --format xlsx invoices.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := opts.Format
			if format == "" {
				format = export.FormatOf(args[0])
			}
			f, err := os.Open(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open file", err)
			}
			defer f.Close()

			rows, err := export.ReadRows(f, format)
			if err != nil {
				return respond(cmd, nil, err)
			}

			a, err := newApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			result, err := a.service.Create(cmd.Context(), domain.CreateRequest{
				Namespace: opts.Namespace,
				Object:    opts.Object,
				Data:      rows,
				Setting:   domain.Setting{Before: opts.Before, After: opts.After},
			})
			if err != nil {
				return respond(cmd, nil, err)
			}
			return respond(cmd, result, nil)
		},
	}

	cmd.Flags().StringVarP(&opts.Namespace, "namespace", "n", "main", "target namespace")
	cmd.Flags().StringVar(&opts.Object, "object", "", "target object (required)")
	cmd.Flags().StringVar(&opts.Format, "format", "", "file format (csv|xlsx), guessed from the extension by default")
	cmd.Flags().StringSliceVar(&opts.Before, "before", nil, "row hooks to run before insert")
	cmd.Flags().StringSliceVar(&opts.After, "after", nil, "row hooks to run after insert")
	_ = cmd.MarkFlagRequired("object")

	return cmd
}
