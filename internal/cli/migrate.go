package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/rpattn/dataql/internal/db"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	var only string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations of every namespace",
		Long: `Apply the up migrations found in namespaces.<name>.migrations.
Namespaces without a migrations directory are skipped.

Example:
  dataql migrate --config ./deploy
  dataql migrate --namespace main`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}

			names := make([]string, 0, len(cfg.Namespaces))
			for name := range cfg.Namespaces {
				if only == "" || name == only {
					names = append(names, name)
				}
			}
			if only != "" && len(names) == 0 {
				return WrapExitError(ExitCommandError, "failed to migrate", fmt.Errorf("unknown namespace %s", only))
			}
			sort.Strings(names)

			for _, name := range names {
				ns := cfg.Namespaces[name]
				ns.Migrations = resolvePath(rootOpts, ns.Migrations)
				if err := db.RunMigrations(ns, logger.With("namespace", name)); err != nil {
					return WrapExitError(ExitCommandError, "failed to migrate namespace "+name, err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&only, "namespace", "n", "", "only migrate this namespace")

	return cmd
}
