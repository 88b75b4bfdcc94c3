package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/oshokin/ext-packager/internal/config"
	"github.com/oshokin/ext-packager/internal/logger"
	"github.com/oshokin/ext-packager/internal/service/packager"
	"github.com/oshokin/ext-packager/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// projectFile is the project to work on.
	projectFile string
	// logLevel overrides the configured log level.
	logLevel string

	// rootCmd represents the base command for packaging and publishing extensions.
	rootCmd = &cobra.Command{
		Use:   "ext-packager",
		Short: "Package, sign and publish extensions of a host application.",
		Long: `Maintains a catalog of versioned extension artifacts for one host application.

Artifacts are imported into a distribution directory, described by a version manifest,
signed with the project's RSA key and mirrored to local or FTP distribution targets.
The project used last is remembered in the settings file.`,
		SilenceUsage: true,
	}
)

// Execute runs the ext-packager CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// withSession wraps a workflow into a cobra handler: it sets up graceful shutdown, starts a
// session and closes it when the workflow returns.
func withSession(run func(ctx context.Context, s *packager.Session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		// Setup graceful shutdown handling.
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		ctx = logger.WithName(ctx, cmd.CommandPath())

		s, err := packager.Start(ctx, &packager.Options{
			ConfigPath:  configPath,
			ProjectFile: projectFile,
			LogLevel:    logLevel,
			Out:         cmd.OutOrStdout(),
		})
		if err != nil {
			return err
		}

		defer func() {
			err = multierr.Append(err, s.Close(context.WithoutCancel(ctx)))
		}()

		return run(ctx, s, args)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&projectFile, "project", "p", "", "project file (defaults to the project used last)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")

	rootCmd.AddCommand(
		newProjectCommand(),
		newImportCommand(),
		newRemoveCommand(),
		newScreenshotsCommand(),
		newAppVersionCommand(),
		newKeysCommand(),
		newSignCommand(),
		newVerifyCommand(),
		newTargetCommand(),
		newPublishCommand(),
	)
}
