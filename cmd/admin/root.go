package admin

import (
	"github.com/ValentinKolb/petlaDB/cmd/util"
	"github.com/spf13/cobra"
)

var (
	session *util.Session

	// AdminCommands represents the maintenance command group
	AdminCommands = &cobra.Command{
		Use:                "admin",
		Short:              "Backup, restore, inspect and maintain a database",
		PersistentPreRunE:  openSession,
		PersistentPostRunE: closeSession,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add engine and database flags
	util.SetupDatabaseFlags(AdminCommands)

	// Add subcommands
	AdminCommands.AddCommand(backupCmd)
	AdminCommands.AddCommand(restoreCmd)
	AdminCommands.AddCommand(exportCmd)
	AdminCommands.AddCommand(statsCmd)
	AdminCommands.AddCommand(storageCmd)
	AdminCommands.AddCommand(validateCmd)
	AdminCommands.AddCommand(optimizeCmd)
	AdminCommands.AddCommand(migrateCmd)
	AdminCommands.AddCommand(seedCmd)
	AdminCommands.AddCommand(configCmd)
}

func openSession(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	config, err := util.GetConfig()
	if err != nil {
		return err
	}

	session, err = util.OpenSession(config)
	return err
}

func closeSession(_ *cobra.Command, _ []string) error {
	session = nil
	return util.CloseSession()
}
