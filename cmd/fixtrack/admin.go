package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"fixtrack/internal/models"
)

func newUsersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage shop accounts (admin only)",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if _, err := a.protected(ctx, models.RoleAdmin); err != nil {
				return err
			}
			users, err := a.client.ListUsers(ctx)
			if err != nil {
				return a.apiErr(ctx, err, "could not load users")
			}
			printUsers(a.out, users)
			return nil
		},
	}

	var req models.CreateStaffRequest
	add := &cobra.Command{
		Use:   "add <username>",
		Short: "Add a staff account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.protected(ctx, models.RoleAdmin); err != nil {
				return err
			}
			req.Username = args[0]
			if req.Password == "" {
				pw, err := a.prompt("Password for " + args[0] + ": ")
				if err != nil {
					return err
				}
				req.Password = pw
			}
			u, err := a.client.AddStaff(ctx, req)
			if err != nil {
				return a.apiErr(ctx, err, "could not add staff")
			}
			fmt.Fprintf(a.out, "Added %s (id %d)\n", u.Username, u.ID)
			return nil
		},
	}
	add.Flags().StringVar(&req.Name, "name", "", "display name (defaults to the username)")
	add.Flags().StringVarP(&req.Password, "password", "p", "", "password (prompted when empty)")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.protected(ctx, models.RoleAdmin); err != nil {
				return err
			}
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			if err := a.client.DeleteUser(ctx, id); err != nil {
				return a.apiErr(ctx, err, "could not delete user")
			}
			fmt.Fprintln(a.out, "User deleted")
			return nil
		},
	}

	cmd.AddCommand(list, add, del)
	return cmd
}

func newSettingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Shop settings",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the staff referral code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if _, err := a.protected(ctx, models.RoleAdmin); err != nil {
				return err
			}
			s, err := a.client.GetSettings(ctx)
			if err != nil {
				return a.apiErr(ctx, err, "could not load settings")
			}
			code := s.StaffReferralCode
			if code == "" {
				code = "(none, staff registration closed)"
			}
			fmt.Fprintf(a.out, "Staff referral code: %s\n", code)
			return nil
		},
	}

	setCode := &cobra.Command{
		Use:   "set-code [code]",
		Short: "Set the staff referral code; no code closes registration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.protected(ctx, models.RoleAdmin); err != nil {
				return err
			}
			var code string
			if len(args) == 1 {
				code = args[0]
			}
			s, err := a.client.UpdateSettings(ctx, models.Settings{StaffReferralCode: code})
			if err != nil {
				return a.apiErr(ctx, err, "could not save settings")
			}
			if s.StaffReferralCode == "" {
				fmt.Fprintln(a.out, "Staff registration closed")
				return nil
			}
			fmt.Fprintf(a.out, "Staff referral code set to %s\n", s.StaffReferralCode)
			return nil
		},
	}

	cmd.AddCommand(show, setCode)
	return cmd
}
