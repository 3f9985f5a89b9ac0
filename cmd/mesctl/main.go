package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bitfantasy/nimo-mes/internal/cli"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "mesctl",
		Short:   "Operations tooling for the nimo-mes state store",
		Version: Version,
	}

	rootCmd.AddCommand(cli.BackupCmd())
	rootCmd.AddCommand(cli.SeedCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
