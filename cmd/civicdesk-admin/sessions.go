package main

import (
	"fmt"

	redisadapter "github.com/civicdesk/civicdesk/internal/adapters/redis"
	"github.com/civicdesk/civicdesk/internal/bootstrap"
	"github.com/civicdesk/civicdesk/internal/service"
	"github.com/spf13/cobra"
)

func newSessionsCmd(app *adminApp) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage server-side sessions",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "revoke <session-id>...",
		Short: "Delete sessions so their cookies stop working",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := bootstrap.ConnectRedis(bootstrap.DatabaseConfig{RedisConfig: app.cfg.Redis, Logger: app.logger})
			if err != nil {
				return fmt.Errorf("connect redis: %w", err)
			}
			defer closeQuietly(app.logger, "redis", client.Close)

			keeper := service.NewSessionKeeper(service.SessionKeeperOptions{
				Store:  redisadapter.NewSessionStoreWithPrefix(client, app.cfg.Redis.SessionPrefix),
				Logger: app.logger,
			})
			for _, id := range args {
				if err := keeper.Revoke(cmd.Context(), id); err != nil {
					return fmt.Errorf("revoke %s: %w", id, err)
				}
				if err := writef(app.out, "revoked %s\n", id); err != nil {
					return err
				}
			}
			return nil
		},
	})
	return cmd
}
