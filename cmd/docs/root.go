package docs

import (
	"github.com/ValentinKolb/petlaDB/cmd/util"
	"github.com/spf13/cobra"
)

var (
	session *util.Session

	// DocumentCommands represents the document command group
	DocumentCommands = &cobra.Command{
		Use:                "docs",
		Short:              "Manage collections, indexes and documents",
		PersistentPreRunE:  openSession,
		PersistentPostRunE: closeSession,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add engine and database flags
	util.SetupDatabaseFlags(DocumentCommands)

	// Add subcommands
	DocumentCommands.AddCommand(collectionCmd)
	DocumentCommands.AddCommand(indexCmd)
	DocumentCommands.AddCommand(insertCmd)
	DocumentCommands.AddCommand(findCmd)
	DocumentCommands.AddCommand(findOneCmd)
	DocumentCommands.AddCommand(getCmd)
	DocumentCommands.AddCommand(updateCmd)
	DocumentCommands.AddCommand(deleteCmd)
	DocumentCommands.AddCommand(deleteIDCmd)
	DocumentCommands.AddCommand(countCmd)
	DocumentCommands.AddCommand(distinctCmd)
	DocumentCommands.AddCommand(perfTestCmd)
}

// openSession opens the database for the subcommand
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
