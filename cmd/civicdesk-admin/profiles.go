package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/civicdesk/civicdesk/internal/bootstrap"
	domainauth "github.com/civicdesk/civicdesk/internal/domain/auth"
	"github.com/civicdesk/civicdesk/internal/service"
	"github.com/spf13/cobra"
)

type listOptions struct {
	Role    string
	Limit   int
	Offset  int
	RawJSON bool
}

func newProfilesCmd(app *adminApp) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "Inspect and manage user profiles",
	}
	cmd.AddCommand(newProfilesListCmd(app), newProfilesSetRoleCmd(app))
	return cmd
}

func newProfilesListCmd(app *adminApp) *cobra.Command {
	var opts listOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List profiles, optionally filtered by role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withProfiles(cmd.Context(), func(svc *service.ProfileService) error {
				profiles, err := svc.List(cmd.Context(), service.ListProfilesInput{
					Role:   opts.Role,
					Limit:  opts.Limit,
					Offset: opts.Offset,
				})
				if err != nil {
					return err
				}
				if opts.RawJSON {
					enc := json.NewEncoder(app.out)
					enc.SetIndent("", "  ")
					return enc.Encode(profiles)
				}
				return printProfiles(app, profiles)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Role, "role", "", "only list profiles with this role (citizen, officer, admin)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 50, "maximum number of profiles")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "number of profiles to skip")
	cmd.Flags().BoolVar(&opts.RawJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func newProfilesSetRoleCmd(app *adminApp) *cobra.Command {
	return &cobra.Command{
		Use:   "set-role <profile-id> <role>",
		Short: "Change the role stored on a profile",
		Long: `Change the role stored on a profile.

Sessions already issued keep their role until the user signs in again.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withProfiles(cmd.Context(), func(svc *service.ProfileService) error {
				p, err := svc.SetRole(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				return writef(app.out, "%s (%s) is now %s\n", p.ID, p.Email, p.Role)
			})
		},
	}
}

func (app *adminApp) withProfiles(ctx context.Context, fn func(*service.ProfileService) error) error {
	backend, err := bootstrap.OpenProfileStore(ctx, &app.cfg, app.logger)
	if err != nil {
		return err
	}
	defer closeQuietly(app.logger, "profile store", backend.Close)
	return fn(service.NewProfileService(service.ProfileServiceOptions{Directory: backend.Store, Logger: app.logger}))
}

func printProfiles(app *adminApp, profiles []domainauth.Profile) error {
	if len(profiles) == 0 {
		return writef(app.out, "no profiles found\n")
	}
	tw := tabwriter.NewWriter(app.out, 0, 0, 2, ' ', 0)
	if err := writef(tw, "ID\tEMAIL\tNAME\tROLE\tCREATED\n"); err != nil {
		return err
	}
	for _, p := range profiles {
		if err := writef(tw, "%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.Email, p.Name, p.Role, p.CreatedAt.Format("2006-01-02")); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}
