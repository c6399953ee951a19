package cli

import (
	"context"
	"fmt"
	"log"

	"funky-quizbot/internal/config"
	"funky-quizbot/internal/content"
	"funky-quizbot/internal/infra/file"
	pgsource "funky-quizbot/internal/infra/postgres"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
)

// NewSnapshotCmd fetches the content set once and writes it to the snapshot
// dir, so a server can start without reaching the live source.
func NewSnapshotCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Fetch content and persist it to the local snapshot dir",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshot(cmd.Context(), *configPath)
		},
	}
}

func runSnapshot(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	if cfg.Content.SnapshotDir == "" {
		return fmt.Errorf("content snapshot_dir not configured")
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	store := file.NewSnapshotStore(cfg.Content.SnapshotDir)
	cache := content.NewCache(pgsource.NewContentSource(pool), store)
	if err := cache.Refresh(ctx); err != nil {
		return err
	}
	log.Printf("snapshot written to %s", cfg.Content.SnapshotDir)
	return nil
}
