package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/solatis/condfield/internal/core/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		database, err := db.Open(cmd.Context(), cfg.Database.URL)
		if err != nil {
			return err
		}
		defer database.Close()
		if err := db.MigrateUp(database); err != nil {
			return err
		}
		logger.Info("migrations applied", "driver", database.DriverName())
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List applied and pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		database, err := db.Open(cmd.Context(), cfg.Database.URL)
		if err != nil {
			return err
		}
		defer database.Close()

		statuses, err := db.MigrateStatus(database)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "MIGRATION\tAPPLIED\tAT")
		for _, s := range statuses {
			at := "-"
			if s.AppliedAt != nil {
				at = s.AppliedAt.UTC().Format("2006-01-02T15:04:05Z")
			}
			fmt.Fprintf(w, "%s\t%t\t%s\n", s.ID, s.Applied, at)
		}
		return w.Flush()
	},
}

var migrateConditionsCmd = &cobra.Command{
	Use:   "conditions",
	Short: "Rewrite stored index-keyed condition sets to option labels",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		st, _, closeDB, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeDB()

		migrated, err := st.MigrateLegacyConditions(cmd.Context())
		if err != nil {
			return err
		}
		for _, name := range migrated {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		logger.Info("condition sets migrated", "count", len(migrated))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateStatusCmd, migrateConditionsCmd)
}
