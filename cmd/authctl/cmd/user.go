package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pribylovaa/go-photo-sharing/internal/app"
)

func newUserCmd(e *env) *cobra.Command {
	userCmd := &cobra.Command{
		Use:     "user",
		Short:   "Manage the user directory",
		Aliases: []string{"users"},
	}

	userCmd.AddCommand(newUserCreateCmd(e))

	return userCmd
}

func newUserCreateCmd(e *env) *cobra.Command {
	var email, username, fullName, password string

	c := &cobra.Command{
		Use:   "create",
		Short: "Create an active user with a password",
		Args:  cobra.NoArgs,
		PreRunE: func(*cobra.Command, []string) error {
			if email == "" || username == "" || password == "" {
				return errors.New("--email, --username and --password are required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withApp(cmd.Context(), func(a *app.App) error {
				u, err := a.Service.CreateUser(cmd.Context(), email, username, fullName, password)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "user created: id=%d email=%s username=%s\n", u.ID, u.Email, u.Username)
				return nil
			})
		},
	}

	c.Flags().StringVar(&email, "email", "", "e-mail address (login)")
	c.Flags().StringVar(&username, "username", "", "unique username")
	c.Flags().StringVar(&fullName, "full-name", "", "display name")
	c.Flags().StringVar(&password, "password", "", "initial password")

	return c
}
