package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voyago-dev/voyago/internal/cli/auth"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the stored token",
		RunE:  runLogout,
	}
}

func runLogout(cmd *cobra.Command, args []string) error {
	env, err := newSession(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if _, err := env.tokens.Token(); errors.Is(err, auth.ErrNotAuthenticated) {
		fmt.Fprintln(out, "Not logged in.")
		return nil
	}

	// The stored token is removed even if the backend cannot be reached
	if err := env.store.Logout(cmd.Context()); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: backend logout failed: %v\n", err)
	}

	fmt.Fprintf(out, "✓ Logged out of %s\n", env.backendURL)
	return nil
}
