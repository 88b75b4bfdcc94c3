package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/oshokin/ext-packager/internal/service/packager"
)

func newKeysCommand() *cobra.Command {
	var force bool

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the RSA key pair used for signing.",
		Long: `Generates a 2048-bit RSA key pair. The private key stays in the project directory,
the public key is stored in the distribution directory and published with it.
Replacing an existing pair invalidates every signature and requires --force.`,
		Args: cobra.NoArgs,
		RunE: withSession(func(ctx context.Context, s *packager.Session, _ []string) error {
			return s.GenerateKeys(ctx, force)
		}),
	}

	generateCmd.Flags().BoolVarP(&force, "force", "f", false, "replace an existing key pair")

	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage the signing key pair.",
	}

	keysCmd.AddCommand(generateCmd)

	return keysCmd
}

func newSignCommand() *cobra.Command {
	var policy string

	signCmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign the artifacts of the distribution directory.",
		Long: `Signs artifacts according to a policy:
  missing            sign artifacts without a signature
  missing-or-failed  also re-sign artifacts whose signature does not verify
  everything         re-sign every artifact
The default policy comes from the settings file.`,
		Args: cobra.NoArgs,
		RunE: withSession(func(ctx context.Context, s *packager.Session, _ []string) error {
			_, err := s.Sign(ctx, policy)
			return err
		}),
	}

	signCmd.Flags().StringVar(&policy, "policy", "", "signing policy (missing, missing-or-failed, everything)")

	return signCmd
}

func newVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Verify every signature against the public key.",
		Args:  cobra.NoArgs,
		RunE: withSession(func(ctx context.Context, s *packager.Session, _ []string) error {
			_, err := s.Verify(ctx)
			return err
		}),
	}
}
