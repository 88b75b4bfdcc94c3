package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/oshokin/ext-packager/internal/service/packager"
)

func newPublishCommand() *cobra.Command {
	var opts packager.PublishOptions

	publishCmd := &cobra.Command{
		Use:   "publish",
		Short: "Mirror the distribution directory to a target.",
		Long: `Validates the distribution directory, optionally purges the target, stamps the
manifest and uploads the public key, the manifest and every application version directory.
Any failure stops the publish; the target may be left partially updated.`,
		Args: cobra.NoArgs,
		RunE: withSession(func(ctx context.Context, s *packager.Session, _ []string) error {
			_, err := s.Publish(ctx, &opts)
			return err
		}),
	}

	publishCmd.Flags().StringVarP(&opts.Target, "target", "t", "", "target name")
	publishCmd.Flags().BoolVar(&opts.Clean, "clean", false, "remove everything on the target before uploading")
	publishCmd.Flags().BoolVar(&opts.PublishKey, "publish-key", false, "require and publish the public key")

	_ = publishCmd.MarkFlagRequired("target")

	return publishCmd
}
