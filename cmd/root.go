package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/petlaDB/cmd/admin"
	"github.com/ValentinKolb/petlaDB/cmd/docs"
	"github.com/ValentinKolb/petlaDB/lib/docstore"
	"github.com/spf13/cobra"
)

const (
	Version = docstore.Version
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "petladb",
		Short: "embedded document database on a key-value engine",
		Long: fmt.Sprintf(`petlaDB (v%s)

An embedded, MongoDB like document database written in Go. Collections,
indexes and documents are stored as plain keys of a key-value engine
(in-memory maple, bbolt file or Redis).

Every flag can also be set as environment variable PETLADB_<FLAG>
(e.g. PETLADB_ENGINE=bolt), .env and .env.local are loaded on start.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of petlaDB",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("petlaDB v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(docs.DocumentCommands)
	RootCmd.AddCommand(admin.AdminCommands)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
