package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/linkwrap/internal/app"
	"github.com/MrSnakeDoc/linkwrap/internal/config"
	"github.com/MrSnakeDoc/linkwrap/internal/logger"
	redisstore "github.com/MrSnakeDoc/linkwrap/internal/store/redis"
)

// buildCacheCmd groups maintenance of the shared Redis resolution cache.
func buildCacheCmd() *cobra.Command {
	var limit int
	keys := &cobra.Command{
		Use:   "keys",
		Short: "List cached lookups (redirect:<url> or origin:<agent>:<key>)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, s *redisstore.Store) error {
				names, err := s.ListResolutions(ctx, limit)
				if err != nil {
					return err
				}
				for _, name := range names {
					if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	keys.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of keys to print, 0 for all")

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect, list or flush the shared resolution cache",
		Long: `Inspect or flush the resolution cache kept in Redis.

Requires LINKWRAP_REDIS_ADDR. The in-memory tier of a running bot is not
affected and expires on its own TTL.`,
	}
	cmd.AddCommand(
		keys,
		&cobra.Command{
			Use:   "stats",
			Short: "Print the number of cached resolutions",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withStore(cmd.Context(), func(ctx context.Context, s *redisstore.Store) error {
					n, err := s.CountResolutions(ctx)
					if err != nil {
						return err
					}
					_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d cached resolutions\n", n)
					return err
				})
			},
		},
		&cobra.Command{
			Use:   "flush",
			Short: "Delete every cached resolution",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withStore(cmd.Context(), func(ctx context.Context, s *redisstore.Store) error {
					n, err := s.FlushResolutions(ctx)
					if err != nil {
						return err
					}
					_, err = fmt.Fprintf(cmd.OutOrStdout(), "🧹 flushed %d cached resolutions\n", n)
					return err
				})
			},
		},
	)
	return cmd
}

func withStore(ctx context.Context, fn func(context.Context, *redisstore.Store) error) error {
	cfg := config.LoadOffline()
	log := logger.New("warn", cfg.PrettyLog)
	defer func() { _ = log.Sync() }()

	store, client, err := app.OpenStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	return fn(ctx, store)
}
