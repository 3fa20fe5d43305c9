// cmd — команды административной утилиты authctl.
package cmd

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pribylovaa/go-photo-sharing/internal/app"
	"github.com/pribylovaa/go-photo-sharing/internal/config"
	"github.com/pribylovaa/go-photo-sharing/internal/pkg/log"
)

// env держит состояние, общее для подкоманд.
type env struct {
	configPath string
	cfg        *config.Config
	logger     zerolog.Logger
}

// NewRootCmd собирает дерево команд authctl.
func NewRootCmd() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:           "authctl",
		Short:         "authctl administers the photo-sharing auth service",
		Long:          `A command-line tool for schema migrations, user provisioning and session maintenance of the auth service.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(e.configPath)
			if err != nil {
				return err
			}

			e.cfg = cfg
			e.logger = log.New(cfg.Env, os.Stderr)
			cmd.SetContext(log.Into(cmd.Context(), &e.logger))

			return nil
		},
	}

	root.PersistentFlags().StringVar(&e.configPath, "config", "", "path to config file (default: CONFIG_PATH, ./local.yaml, env)")

	root.AddCommand(
		newMigrateCmd(e),
		newUserCmd(e),
		newSessionsCmd(e),
	)

	return root
}

// withApp подключается к зависимостям, выполняет fn и закрывает соединения.
func (e *env) withApp(ctx context.Context, fn func(*app.App) error) error {
	a, err := app.New(ctx, e.cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(a)
}
