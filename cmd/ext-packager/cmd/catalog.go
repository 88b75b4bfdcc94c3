package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/oshokin/ext-packager/internal/service/packager"
)

func newImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import [artifact-or-directory...]",
		Short: "Import extension artifacts into the catalog.",
		Long: `Reads the descriptor of every artifact, copies it with its signature and screenshots
into the distribution directory and records it in the manifest. Directories are scanned
recursively for *.jar files. Failed artifacts are listed and do not stop the batch.`,
		Args: cobra.MinimumNArgs(1),
		RunE: withSession(func(ctx context.Context, s *packager.Session, args []string) error {
			_, err := s.Import(ctx, args)
			return err
		}),
	}
}

func newRemoveCommand() *cobra.Command {
	var opts packager.RemoveOptions

	removeCmd := &cobra.Command{
		Use:   "remove [application-version]",
		Short: "Remove an application version, an extension or one extension version.",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(ctx context.Context, s *packager.Session, args []string) error {
			opts.ApplicationVersion = args[0]
			_, err := s.Remove(ctx, &opts)

			return err
		}),
	}

	removeCmd.Flags().StringVarP(&opts.ExtensionName, "extension", "e", "", "extension name")
	removeCmd.Flags().StringVar(&opts.ExtensionVersion, "ext-version", "", "extension version (requires --extension)")

	return removeCmd
}

func newAppVersionCommand() *cobra.Command {
	appVersionCmd := &cobra.Command{
		Use:   "appversion",
		Short: "Edit application versions of the catalog.",
	}

	appVersionCmd.AddCommand(
		&cobra.Command{
			Use:   "add [version]",
			Short: "Add an empty application version.",
			Args:  cobra.ExactArgs(1),
			RunE: withSession(func(ctx context.Context, s *packager.Session, args []string) error {
				return s.AddApplicationVersion(ctx, args[0])
			}),
		},
		&cobra.Command{
			Use:   "rename [from] [to]",
			Short: "Rename an application version and move its files.",
			Args:  cobra.ExactArgs(2),
			RunE: withSession(func(ctx context.Context, s *packager.Session, args []string) error {
				return s.RenameApplicationVersion(ctx, args[0], args[1])
			}),
		},
	)

	return appVersionCmd
}

func newScreenshotsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "screenshots [application-version] [extension] [ext-version] [image...]",
		Short: "Replace the screenshots of one extension version.",
		Long: `Deletes the current screenshots of the extension version and stores the given images
in their place. Without images the screenshots are only removed.`,
		Args: cobra.MinimumNArgs(3),
		RunE: withSession(func(ctx context.Context, s *packager.Session, args []string) error {
			_, err := s.ReplaceScreenshots(ctx, args[0], args[1], args[2], args[3:])
			return err
		}),
	}
}
