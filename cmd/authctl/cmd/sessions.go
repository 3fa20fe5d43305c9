package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pribylovaa/go-photo-sharing/internal/app"
	"github.com/pribylovaa/go-photo-sharing/internal/models"
)

func newSessionsCmd(e *env) *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:     "sessions",
		Short:   "Inspect and maintain user sessions",
		Aliases: []string{"session"},
	}

	sessionsCmd.AddCommand(
		newSessionsListCmd(e),
		newSessionsShowCmd(e),
		newSessionsRevokeAllCmd(e),
		newSessionsCleanupCmd(e),
	)

	return sessionsCmd
}

func requireUserID(id *int64) func(*cobra.Command, []string) error {
	return func(*cobra.Command, []string) error {
		if *id <= 0 {
			return errors.New("--user-id must be a positive user id")
		}
		return nil
	}
}

// sessionRow — строка вывода `sessions list`.
type sessionRow struct {
	ID        string `yaml:"session_id"`
	CreatedAt string `yaml:"created_at"`
	ExpiresAt string `yaml:"expires_at"`
	IPAddress string `yaml:"ip_address,omitempty"`
	UserAgent string `yaml:"user_agent,omitempty"`
}

func toRows(infos []models.SessionInfo) []sessionRow {
	rows := make([]sessionRow, 0, len(infos))
	for _, s := range infos {
		rows = append(rows, sessionRow{
			ID:        s.ID,
			CreatedAt: s.CreatedAt.Format(time.RFC3339),
			ExpiresAt: s.ExpiresAt.Format(time.RFC3339),
			IPAddress: s.IPAddress,
			UserAgent: s.UserAgent,
		})
	}

	return rows
}

func newSessionsListCmd(e *env) *cobra.Command {
	var userID int64

	c := &cobra.Command{
		Use:     "list",
		Short:   "List live sessions of a user",
		Args:    cobra.NoArgs,
		PreRunE: requireUserID(&userID),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withApp(cmd.Context(), func(a *app.App) error {
				infos, err := a.Service.UserSessions(cmd.Context(), userID)
				if err != nil {
					return err
				}

				if len(infos) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No active sessions found.")
					return nil
				}

				out, err := yaml.Marshal(toRows(infos))
				if err != nil {
					return err
				}

				_, err = cmd.OutOrStdout().Write(out)
				return err
			})
		},
	}

	c.Flags().Int64Var(&userID, "user-id", 0, "user id")

	return c
}

func newSessionsShowCmd(e *env) *cobra.Command {
	var (
		userID    int64
		sessionID string
	)

	c := &cobra.Command{
		Use:   "show",
		Short: "Show one session of a user",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUserID(&userID)(cmd, args); err != nil {
				return err
			}
			if sessionID == "" {
				return errors.New("--session-id is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withApp(cmd.Context(), func(a *app.App) error {
				info, err := a.Service.Session(cmd.Context(), userID, sessionID)
				if err != nil {
					return err
				}

				out, err := yaml.Marshal(toRows([]models.SessionInfo{info})[0])
				if err != nil {
					return err
				}

				_, err = cmd.OutOrStdout().Write(out)
				return err
			})
		},
	}

	c.Flags().Int64Var(&userID, "user-id", 0, "user id")
	c.Flags().StringVar(&sessionID, "session-id", "", "session id")

	return c
}

func newSessionsRevokeAllCmd(e *env) *cobra.Command {
	var userID int64

	c := &cobra.Command{
		Use:     "revoke-all",
		Short:   "End every session of a user and revoke their access tokens",
		Args:    cobra.NoArgs,
		PreRunE: requireUserID(&userID),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withApp(cmd.Context(), func(a *app.App) error {
				n, err := a.Service.LogoutAllSessions(cmd.Context(), userID)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "sessions revoked: %d\n", n)
				return nil
			})
		},
	}

	c.Flags().Int64Var(&userID, "user-id", 0, "user id")

	return c
}

func newSessionsCleanupCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove sessions past their expiry (same sweep the service runs periodically)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withApp(cmd.Context(), func(a *app.App) error {
				n, err := a.Service.CleanupExpiredSessions(cmd.Context())
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "expired sessions removed: %d\n", n)
				return nil
			})
		},
	}
}
