// Command server runs the mechanic shop API and its schema migrations.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load() // a missing .env is fine; the environment wins

	root := &cobra.Command{
		Use:          "mechanicshop",
		Short:        "Mechanic shop service API",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCommand(), newMigrateCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
