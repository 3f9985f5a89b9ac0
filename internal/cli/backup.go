package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bitfantasy/nimo-mes/internal/service"
)

// BackupCmd returns the backup command
func BackupCmd() *cobra.Command {
	var dir string
	var limit int

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export the current state document to a timestamped JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, repos, err := openRepositories()
			if err != nil {
				return err
			}
			if dir != "" {
				cfg.Backup.Dir = dir
			}
			if limit > 0 {
				cfg.Backup.Limit = limit
			}

			ctx := context.Background()
			snap, version, err := repos.Snapshot.Fetch(ctx)
			if err != nil {
				return fmt.Errorf("fetch state: %w", err)
			}
			snap.Version = version

			backup := service.NewBackupService(cfg.Backup, nil, "", zap.NewNop())
			path, err := backup.Export(ctx, snap)
			if err != nil {
				return fmt.Errorf("export state: %w", err)
			}

			fmt.Printf("Exported state version %d to %s\n", version, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Backup directory (defaults to backup.dir from config)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Number of exports to keep (defaults to backup.limit)")
	return cmd
}
