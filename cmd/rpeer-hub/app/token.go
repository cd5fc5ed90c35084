package app

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/routepeer-io/routepeer/cmd/rpeer-hub/app/options"
	"github.com/routepeer-io/routepeer/internal/pkg/auth"
)

// newTokenCommand mints bearer tokens with the hub's secret, for driver
// agents and operators.
func newTokenCommand(opts *options.HubOptions) *cobra.Command {
	var (
		name string
		kind string
		ttl  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a driver or an admin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if ttl == 0 {
				ttl = opts.JWTOptions.TokenTTL
			}
			tok, err := auth.IssueToken(opts.JWTOptions.Secret, name, kind, ttl, time.Now())
			if err != nil {
				return fmt.Errorf("failed to issue token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Driver ID or admin user name carried by the token.")
	cmd.Flags().StringVar(&kind, "kind", auth.KindDriver, "Principal kind: driver or admin.")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime. Defaults to --jwt.token-ttl.")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
