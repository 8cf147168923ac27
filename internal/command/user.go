package command

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/stolasapp/todotoday/internal/devseed"
	"github.com/stolasapp/todotoday/internal/sec"
	"github.com/stolasapp/todotoday/internal/storage/db"
)

// listPageSize is the number of users fetched per query by user list.
const listPageSize = 100

func userCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User commands",
	}
	cmd.AddCommand(
		userCreateCommand(),
		userDeleteCommand(),
		userListCommand(),
		userRolesCommand(),
	)
	return cmd
}

func userCreateCommand() *cobra.Command {
	var roles []string
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create user",
		Long: "Creates user entry for the provided username and password. Passwords may be\n" +
			"provided via stdin or through the interactive prompt. Usernames are\n" +
			"case-sensitive.",

		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (runErr error) {
			cfg, logger, store, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			defer closeWith(store.Close, &runErr)

			name := args[0]
			hasher := sec.NewHasher(cfg.Password.BcryptCost)
			if passwd, err := prompt(cmd, "password: ", true); err != nil {
				return err
			} else if len(passwd) == 0 {
				return fmt.Errorf("password for %q must not be empty", name)
			} else if hash, err := hasher.Hash(string(passwd)); err != nil {
				return err
			} else if _, err = store.UpsertUser(cmd.Context(), db.User{
				Name:         name,
				PasswordHash: hash,
				Roles:        roles,
			}); err != nil {
				return err
			}

			logger.InfoContext(cmd.Context(), "created user",
				slog.String("name", name),
				slog.Any("roles", roles),
			)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&roles, "role", []string{devseed.Role}, "roles granted to the user")
	return cmd
}

func userDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete user",
		Long: "Permanently deletes the user and all associated tasks and sessions. " +
			"This operation is permanent and irreversible.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (runErr error) {
			_, logger, store, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			defer closeWith(store.Close, &runErr)

			name := args[0]
			logger = logger.With(slog.String("name", name))
			user, err := store.GetUserByName(cmd.Context(), name)
			if err != nil {
				return err
			}
			resp, err := prompt(cmd, "Are you sure you want to delete this user? [y|N] ", false)
			if !bytes.Equal(resp, []byte{'y'}) || err != nil {
				logger.InfoContext(cmd.Context(), "aborted user deletion")
				return err
			}
			if err = store.DeleteUser(cmd.Context(), user.ID); err != nil {
				return err
			}
			logger.InfoContext(cmd.Context(), "user deleted")
			return nil
		},
	}
}

func userListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (runErr error) {
			_, _, store, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			defer closeWith(store.Close, &runErr)

			out := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0) //nolint:mnd // column padding
			_, _ = fmt.Fprintln(out, "NAME\tROLES\tCREATED")
			after := ""
			for {
				users, err := store.ListUsers(cmd.Context(), after, listPageSize)
				if err != nil {
					return err
				}
				for _, user := range users {
					_, _ = fmt.Fprintf(out, "%s\t%s\t%s\n",
						user.Name,
						strings.Join(user.Roles, ","),
						user.CreateTime.Local().Format(time.DateTime),
					)
				}
				if len(users) < listPageSize {
					break
				}
				after = users[len(users)-1].Name
			}
			return out.Flush()
		},
	}
}

func userRolesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "roles NAME [ROLE...]",
		Short: "Replace the roles of a user",
		Long: "Replaces the roles held by the user with the given ones. With no roles,\n" +
			"the user can still log in but is refused every page but the public ones.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (runErr error) {
			_, logger, store, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			defer closeWith(store.Close, &runErr)

			name, roles := args[0], args[1:]
			user, err := store.GetUserByName(cmd.Context(), name)
			if err != nil {
				return err
			}
			if err = store.SetUserRoles(cmd.Context(), user.ID, roles...); err != nil {
				return err
			}
			logger.InfoContext(cmd.Context(), "user roles replaced",
				slog.String("name", name),
				slog.Any("roles", roles),
			)
			return nil
		},
	}
}
