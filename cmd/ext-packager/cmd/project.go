package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/oshokin/ext-packager/internal/service/packager"
)

func newProjectCommand() *cobra.Command {
	projectCmd := &cobra.Command{
		Use:   "project",
		Short: "Create and inspect packaging projects.",
	}

	projectCmd.AddCommand(
		&cobra.Command{
			Use:   "new [directory] [name] [application-name]",
			Short: "Create a project and make it the default.",
			Args:  cobra.ExactArgs(3),
			RunE: withSession(func(ctx context.Context, s *packager.Session, args []string) error {
				_, err := s.CreateProject(ctx, args[0], args[1], args[2])
				return err
			}),
		},
		&cobra.Command{
			Use:   "info",
			Short: "Show the catalog, signing state and targets of the project.",
			Args:  cobra.NoArgs,
			RunE: withSession(func(ctx context.Context, s *packager.Session, _ []string) error {
				return s.Info(ctx)
			}),
		},
	)

	return projectCmd
}
