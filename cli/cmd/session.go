package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"medmarket/cli/api"
	"medmarket/core/session"
)

func printUser(w io.Writer, resp api.SessionResponse) {
	u := resp.User
	if u == nil {
		fmt.Fprintln(w, "Not signed in")
		return
	}
	fmt.Fprintf(w, "User: %s <%s>\nRole: %s\nWallet: %s\n", u.Name, u.Email, u.Role, u.WalletAddress)
	if u.Institution != "" {
		fmt.Fprintf(w, "Institution: %s\n", u.Institution)
	}
}

func newLoginCmd(o *options) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:     "login",
		Short:   "Sign in and save the session token",
		Example: `  medmarket login --email researcher@example.com --password password123`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := o.client().Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if err := o.saveToken(resp.Token); err != nil {
				return fmt.Errorf("saving token: %w", err)
			}
			return o.render(cmd.OutOrStdout(), resp, func(w io.Writer) { printUser(w, resp) })
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func newRegisterCmd(o *options) *cobra.Command {
	var req session.RegisterRequest
	var role string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Role = session.Role(role)
			resp, err := o.client().Register(cmd.Context(), req)
			if err != nil {
				return err
			}
			if err := o.saveToken(resp.Token); err != nil {
				return fmt.Errorf("saving token: %w", err)
			}
			return o.render(cmd.OutOrStdout(), resp, func(w io.Writer) { printUser(w, resp) })
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "account email")
	cmd.Flags().StringVar(&req.Password, "password", "", "account password")
	cmd.Flags().StringVar(&req.Name, "name", "", "display name")
	cmd.Flags().StringVar(&role, "role", string(session.RolePatient), "patient|researcher")
	cmd.Flags().StringVar(&req.Institution, "institution", "", "research institution")
	return cmd
}

func newLogoutCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the saved token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.client().Logout(cmd.Context()); err != nil {
				return err
			}
			if err := o.clearToken(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newWhoamiCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := o.client().Session(cmd.Context())
			if err != nil {
				return err
			}
			return o.render(cmd.OutOrStdout(), resp, func(w io.Writer) { printUser(w, resp) })
		},
	}
}
