package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// SeedCmd returns the seed command
func SeedCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Initialize the state document with the default demo data",
		Long: `Seed writes the default document (work centers, operation catalog and a
demo route card) into the state store. Without --force it refuses to touch
an instance that already holds data.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, repos, err := openRepositories()
			if err != nil {
				return err
			}

			ctx := context.Background()
			if !force {
				_, version, err := repos.Snapshot.Fetch(ctx)
				if err != nil {
					return fmt.Errorf("fetch state: %w", err)
				}
				// Fetch seeds an empty store at version 1; anything newer
				// means real data exists.
				if version > 1 {
					return fmt.Errorf("state already at version %d, use --force to overwrite", version)
				}
				fmt.Printf("State initialized at version %d\n", version)
				return nil
			}

			snap, version, err := repos.Snapshot.Reset(ctx)
			if err != nil {
				return fmt.Errorf("reset state: %w", err)
			}
			fmt.Printf("State reset to version %d (%d cards, %d ops, %d centers)\n",
				version, len(snap.Cards), len(snap.Ops), len(snap.Centers))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing data")
	return cmd
}
