package main

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-relay-bot/internal/config"
	"github.com/tbourn/go-relay-bot/internal/sysutil"
)

// app carries state shared by subcommands once the root pre-run loaded it.
type app struct {
	cfg config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "relaybot",
		Short:         "Relay support tickets between direct messages and staff threads",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env is optional
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty, cmd.ErrOrStderr())
			a.cfg = cfg
			return nil
		},
	}

	serve := newServeCmd(a)
	cmd.AddCommand(serve, newConfigCmd(a))
	// bare "relaybot" serves
	cmd.RunE = serve.RunE
	return cmd
}
