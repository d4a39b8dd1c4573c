package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fixtrack/internal/client/session"
)

func (a *app) secretFrom(cmd *cobra.Command) (string, error) {
	secret, _ := cmd.Flags().GetString("password")
	if secret != "" {
		return secret, nil
	}
	return a.prompt("Password: ")
}

func newLoginCmd(a *app) *cobra.Command {
	var remember bool

	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Log in to the shop backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := a.secretFrom(cmd)
			if err != nil {
				return err
			}
			s, err := a.session.Login(cmd.Context(), args[0], secret, remember)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Welcome, %s (%s)\n", s.DisplayName, s.Role)
			return nil
		},
	}
	cmd.Flags().StringP("password", "p", "", "password (prompted when empty)")
	cmd.Flags().BoolVar(&remember, "remember", true, "stay logged in after the terminal session ends (--remember=false for this terminal only)")
	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	var (
		code       string
		firstAdmin bool
	)

	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Create an account with the shop's referral code",
		Long: "Create an account. Staff need the referral code set by the admin.\n" +
			"On a new shop with no accounts, pass --first-admin to become its admin;\n" +
			"the backend refuses --first-admin once any account exists.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := a.secretFrom(cmd)
			if err != nil {
				return err
			}
			register := func() (*session.Session, error) {
				return a.session.Register(cmd.Context(), args[0], secret, code)
			}
			if firstAdmin {
				register = func() (*session.Session, error) {
					return a.session.RegisterFirstAdmin(cmd.Context(), args[0], secret)
				}
			}
			s, err := register()
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Registered %s as %s\n", s.DisplayName, s.Role)
			return nil
		},
	}
	cmd.Flags().StringP("password", "p", "", "password (prompted when empty)")
	cmd.Flags().StringVar(&code, "code", "", "staff referral code")
	cmd.Flags().BoolVar(&firstAdmin, "first-admin", false, "claim a shop that has no accounts yet")
	cmd.MarkFlagsMutuallyExclusive("code", "first-admin")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.session.Logout(cmd.Context())
			fmt.Fprintln(a.out, "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.protected(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s (%s, id %s)\nSession valid until %s\n",
				s.DisplayName, s.Role, s.PrincipalID, s.Expiry().Local().Format(time.RFC1123))
			return nil
		},
	}
}
