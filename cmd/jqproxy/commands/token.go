package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// tokenCmd inspects and refreshes the upstream credential state.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Acquire and inspect the upstream ID token",
	Long: `Ensure a valid upstream ID token and print its remaining validity.

Example:
  go run ./cmd/jqproxy token
  go run ./cmd/jqproxy token --force
  go run ./cmd/jqproxy token --refresh-token <token>`,
	RunE: runToken,
}

var (
	tokenForce    bool
	tokenOverride string
)

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().BoolVar(&tokenForce, "force", false, "force a fresh exchange even if a token is cached")
	tokenCmd.Flags().StringVar(&tokenOverride, "refresh-token", "", "override the configured refresh token")
}

func runToken(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	app, cleanup, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if tokenForce || tokenOverride != "" {
		if _, err := app.tokens.ForceRefresh(ctx, tokenOverride); err != nil {
			return fmt.Errorf("force refresh: %w", err)
		}
	} else {
		if _, err := app.tokens.EnsureIDToken(ctx); err != nil {
			return fmt.Errorf("ensure id token: %w", err)
		}
	}

	fmt.Printf("id token valid for %s\n", app.tokens.RemainingValidity())
	return nil
}
