package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/oshokin/ext-packager/internal/repository/target"
	"github.com/oshokin/ext-packager/internal/service/packager"
)

func newTargetCommand() *cobra.Command {
	targetCmd := &cobra.Command{
		Use:   "target",
		Short: "Manage distribution targets.",
	}

	targetCmd.AddCommand(
		newTargetAddCommand(),
		&cobra.Command{
			Use:   "list",
			Short: "List distribution targets.",
			Args:  cobra.NoArgs,
			RunE: withSession(func(ctx context.Context, s *packager.Session, _ []string) error {
				_, err := s.ListTargets(ctx)
				return err
			}),
		},
		&cobra.Command{
			Use:   "remove [name]",
			Short: "Remove a distribution target and its remote parameters.",
			Args:  cobra.ExactArgs(1),
			RunE: withSession(func(ctx context.Context, s *packager.Session, args []string) error {
				return s.RemoveTarget(ctx, args[0])
			}),
		},
		newTargetFTPCommand(),
	)

	return targetCmd
}

func newTargetAddCommand() *cobra.Command {
	var t target.Target

	addCmd := &cobra.Command{
		Use:   "add [name] [base-url]",
		Short: "Add a distribution target.",
		Long: `Adds a distribution target. A file:// base URL publishes to a local directory,
any other URL publishes over FTP with the parameters set by "target ftp".`,
		Args: cobra.ExactArgs(2),
		RunE: withSession(func(ctx context.Context, s *packager.Session, args []string) error {
			t.Name, t.BaseURL = args[0], args[1]
			return s.AddTarget(ctx, &t)
		}),
	}

	addCmd.Flags().StringVar(&t.ManifestPath, "manifest", target.DefaultManifestPath, "manifest path relative to the base URL")
	addCmd.Flags().StringVar(&t.PublicKeyPath, "public-key", target.DefaultPublicKeyPath, "public key path relative to the base URL")

	return addCmd
}

func newTargetFTPCommand() *cobra.Command {
	var params target.RemoteParams

	ftpCmd := &cobra.Command{
		Use:   "ftp [name]",
		Short: "Set the FTP connection parameters of a target.",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(ctx context.Context, s *packager.Session, args []string) error {
			return s.SetRemoteParams(ctx, args[0], &params)
		}),
	}

	ftpCmd.Flags().StringVar(&params.Host, "host", "", "FTP host, optionally with port")
	ftpCmd.Flags().StringVar(&params.Username, "username", "", "FTP user name")
	ftpCmd.Flags().StringVar(&params.Password, "password", "", "FTP password")
	ftpCmd.Flags().StringVar(&params.TargetDir, "dir", "/", "base directory on the server")

	return ftpCmd
}
