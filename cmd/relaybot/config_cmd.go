package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-relay-bot/internal/repo"
	"github.com/tbourn/go-relay-bot/internal/services"
)

// newConfigCmd edits the community permission store directly, acting as
// services.Operator. The bot may keep running; SQLite serializes writers.
func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or edit community relay configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <community_id>",
		Short: "Print a community's configuration as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: a.withPerms(func(ctx context.Context, cmd *cobra.Command, perms *services.PermissionService, args []string) error {
			cfg, err := perms.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if cfg.IsEmpty() {
				fmt.Fprintln(cmd.OutOrStdout(), "No config set for this community yet.")
				return nil
			}
			out, err := json.MarshalIndent(cfg, "", "    ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set-channel <community_id> <channel_id>",
		Short: "Set the channel under which ticket threads are opened",
		Args:  cobra.ExactArgs(2),
		RunE: a.withPerms(func(ctx context.Context, cmd *cobra.Command, perms *services.PermissionService, args []string) error {
			if err := perms.SetRelayChannel(ctx, services.Operator, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Relay thread channel set to %s.\n", args[1])
			return nil
		}),
	})

	type membership struct {
		use, short, list string
		add              bool
		fn               func(*services.PermissionService, context.Context, string, string, string) error
	}
	for _, m := range []membership{
		{"add-admin", "List a user as relay admin", "relay admins", true, (*services.PermissionService).AddAdmin},
		{"remove-admin", "Unlist a relay admin", "relay admins", false, (*services.PermissionService).RemoveAdmin},
		{"add-staff", "List a user as relay staff", "relay staff", true, (*services.PermissionService).AddStaff},
		{"remove-staff", "Unlist a relay staff member", "relay staff", false, (*services.PermissionService).RemoveStaff},
	} {
		cmd.AddCommand(&cobra.Command{
			Use:   m.use + " <community_id> <user_id>",
			Short: m.short,
			Args:  cobra.ExactArgs(2),
			RunE: a.withPerms(func(ctx context.Context, cmd *cobra.Command, perms *services.PermissionService, args []string) error {
				user, out := args[1], cmd.OutOrStdout()
				err := m.fn(perms, ctx, services.Operator, args[0], user)
				switch {
				case err == nil && m.add:
					fmt.Fprintf(out, "Added %s to %s.\n", user, m.list)
				case err == nil:
					fmt.Fprintf(out, "Removed %s from %s.\n", user, m.list)
				case errors.Is(err, services.ErrAlreadyListed):
					fmt.Fprintf(out, "%s is already in %s.\n", user, m.list)
				case errors.Is(err, services.ErrNotListed):
					fmt.Fprintf(out, "%s is not in %s.\n", user, m.list)
				default:
					return err
				}
				return nil
			}),
		})
	}
	return cmd
}

type permsFunc func(ctx context.Context, cmd *cobra.Command, perms *services.PermissionService, args []string) error

// withPerms opens the configured database for the duration of one command.
func (a *app) withPerms(fn permsFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		db, err := repo.Open(a.cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer closeDB(db)
		return fn(cmd.Context(), cmd, services.NewPermissionService(db), args)
	}
}
