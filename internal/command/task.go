package command

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/stolasapp/todotoday/internal/devseed"
	"github.com/stolasapp/todotoday/internal/todo"
)

func taskCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Task commands",
	}
	cmd.AddCommand(
		taskSeedCommand(),
	)
	return cmd
}

func taskSeedCommand() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "seed NAME",
		Short: "Create fake tasks for a user",
		Long: "Creates fake tasks owned by the user, for development and demos. Set\n" +
			"TODOTODAY_DEV_SEED to generate the same tasks on every run.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (runErr error) {
			_, logger, store, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			defer closeWith(store.Close, &runErr)

			user, err := store.GetUserByName(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			tasks, err := todo.NewService(store, logger)
			if err != nil {
				return err
			}
			seed := devseed.Seed()
			created, err := devseed.New(seed).Tasks(cmd.Context(), tasks, user.ID, count)
			if err != nil {
				return err
			}
			logger.InfoContext(cmd.Context(), "seeded tasks",
				slog.Any("user", user),
				slog.Int("count", len(created)),
				slog.Uint64("seed", seed),
			)
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 10, "number of tasks to create") //nolint:mnd // default
	return cmd
}
