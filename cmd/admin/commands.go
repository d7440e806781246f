package admin

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/petlaDB/cmd/util"
	"github.com/ValentinKolb/petlaDB/lib/docstore"
	"github.com/VictoriaMetrics/metrics"
	"github.com/spf13/cobra"
)

var (
	backupCmd = &cobra.Command{
		Use:   "backup [path]",
		Short: "Writes a JSON backup of the database",
		Long:  util.WrapString("Writes a JSON backup of the database. Without a path, or with a directory, the file is named petla_backup_YYYY-MM-DD.json. The file is replaced atomically."),
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			written, err := session.Utils.DownloadBackup(path)
			if err != nil {
				return err
			}
			fmt.Printf("backup written to %s\n", written)
			return nil
		},
	}
	restoreCmd = &cobra.Command{
		Use:   "restore [path]",
		Short: "Replaces the database with the content of a backup file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			preserve, _ := cmd.Flags().GetBool("preserve-ids")
			if err := session.Utils.RestoreFromFile(args[0], &docstore.RestoreOptions{PreserveIDs: preserve}); err != nil {
				return err
			}
			fmt.Printf("database restored from %s\n", args[0])
			return nil
		},
	}
	exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Prints a JSON backup of the database to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := session.Utils.ExportData()
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(append(data, '\n'))
			return err
		},
	}
	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Prints document counts, indexes and storage size per collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := session.DB.GetStats()
			if err != nil {
				return err
			}
			if err := util.PrintJSON(stats); err != nil {
				return err
			}
			if prom, _ := cmd.Flags().GetBool("prometheus"); prom {
				fmt.Println()
				metrics.WritePrometheus(os.Stdout, true)
			}
			return nil
		},
	}
	storageCmd = &cobra.Command{
		Use:   "storage",
		Short: "Prints the storage usage against the quota",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := session.Utils.GetStorageInfo()
			if err != nil {
				return err
			}
			return util.PrintJSON(info)
		},
	}
	validateCmd = &cobra.Command{
		Use:   "validate",
		Short: "Checks every document for _id, createdAt and updatedAt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result := session.Utils.ValidateDatabase()
			if err := util.PrintJSON(result); err != nil {
				return err
			}
			if !result.IsValid {
				return fmt.Errorf("database is invalid (%d errors)", len(result.Errors))
			}
			return nil
		},
	}
	optimizeCmd = &cobra.Command{
		Use:   "optimize",
		Short: "Deletes temporary keys (temp_, cache_, preview_, draft_, old_, test_)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := session.Utils.OptimizeStorage()
			if err != nil {
				return err
			}
			fmt.Println(result.Message)
			return nil
		},
	}
	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Moves data of the legacy array format into collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result := session.Utils.MigrateFromOldFormat()
			if err := util.PrintJSON(result); err != nil {
				return err
			}
			if !result.Success {
				return fmt.Errorf("migration finished with %d errors", len(result.Errors))
			}
			return nil
		},
	}
	seedCmd = &cobra.Command{
		Use:   "seed",
		Short: "Creates the demo users, collections and indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			created, err := session.Utils.SetupDemoData()
			if err != nil {
				return err
			}
			if created {
				fmt.Println("demo data created")
			} else {
				fmt.Println("demo data already present")
			}
			return nil
		},
	}
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Prints the effective configuration",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Print(session.Config.String())
		},
	}
)

func init() {
	restoreCmd.Flags().Bool("preserve-ids", false, util.WrapString("Keep _id, createdAt and updatedAt of the backup instead of assigning new ones"))
	statsCmd.Flags().Bool("prometheus", false, util.WrapString("Also print the operation metrics of this process in Prometheus text format"))
}
