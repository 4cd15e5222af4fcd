package commands

import (
	"os"

	"github.com/spf13/cobra"

	"souzoku/internal/cli"
	"souzoku/internal/log"
)

// app carries what PersistentPreRunE prepares for the subcommands.
type app struct {
	logLevel string
	envFile  string
	logger   *log.Logger
}

func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd assembles the command tree. Output goes to cmd.OutOrStdout and
// logs to cmd.ErrOrStderr so both can be captured.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "souzoku",
		Short:        "相続税シミュレーター: estimate Japanese inheritance tax",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var files []string
			if a.envFile != "" {
				files = append(files, a.envFile)
			}
			if err := cli.LoadEnvFile(files...); err != nil {
				return err
			}

			level := a.logLevel
			if !cmd.Flags().Changed("log-level") {
				if env := os.Getenv("LOG_LEVEL"); env != "" {
					level = env
				}
			}
			logger, err := cli.SetupLogger(level, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			a.logger = logger.WithComponent(log.ComponentCLI)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level (debug, info, warn, error); LOG_LEVEL when unset")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "dotenv file to load (default .env)")

	root.AddCommand(serveCmd(a), calcCmd(a), batchCmd(a))
	return root
}
