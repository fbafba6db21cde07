// Package token issues bearer tokens for operators of fairtraced.
package token

import (
	"fmt"
	"os"
	"time"

	"github.com/fairtrace/fairtrace/pkg/auth"
	"github.com/spf13/cobra"
)

const EnvSecret = "FAIRTRACE_SECRET"

// New makes the "token" command.
func New(now func() time.Time) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage bearer tokens",
	}
	cmd.AddCommand(newIssue(now))
	return cmd
}

func newIssue(now func() time.Time) *cobra.Command {
	var (
		secret, issuer, user, node, role string
		ttl                              time.Duration
	)
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a token signed with the secret of fairtraced",
		Long: `Issue a token signed with the secret shared with fairtraced.

The token is printed to stdout. Roles are member, admin and platform;
tokens for member and admin need --node.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return fmt.Errorf("--secret (or %s) is required", EnvSecret)
			}
			r, err := auth.AsRole(role)
			if err != nil {
				return err
			}
			tok, err := auth.Issue(
				[]byte(secret), issuer,
				auth.Principal{User: user, NodeId: node, Role: r},
				ttl, now(),
			)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&secret, "secret", os.Getenv(EnvSecret), "HMAC secret of fairtraced (env: "+EnvSecret+")")
	flags.StringVar(&issuer, "issuer", "fairtrace", "issuer of the token")
	flags.StringVar(&user, "user", "", "name of the operator")
	flags.StringVar(&node, "node", "", "node id the token acts for")
	flags.StringVar(&role, "role", string(auth.Member), "member|admin|platform")
	flags.DurationVar(&ttl, "ttl", 24*time.Hour, "lifetime of the token")
	cmd.MarkFlagRequired("user")
	return cmd
}
