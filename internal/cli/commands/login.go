package commands

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/voyago-dev/voyago/internal/cli/userconfig"
)

// NewLoginCmd creates the login command
func NewLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with a Voyago backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set VOYAGO_EMAIL; defaults to the last one used on this backend)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set VOYAGO_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(cmd *cobra.Command, email, password string) error {
	// Environment variables are useful for CI/CD
	if email == "" {
		email = os.Getenv("VOYAGO_EMAIL")
	}
	if password == "" {
		password = os.Getenv("VOYAGO_PASSWORD")
	}

	env, err := newSession(cmd)
	if err != nil {
		return err
	}

	if email == "" {
		if last, err := userconfig.LastEmail(env.backendURL); err == nil {
			email = last
		}
	}
	if email == "" {
		return fmt.Errorf("email is required (use --email flag or VOYAGO_EMAIL env var)")
	}

	if password == "" {
		password, err = readPassword(cmd, fmt.Sprintf("Password for %s: ", email))
		if err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Logging in to %s...\n", env.backendURL)

	res := env.store.Login(cmd.Context(), email, password)
	if !res.OK {
		return fmt.Errorf("login failed: %s", res.Message())
	}

	if err := userconfig.RememberLogin(env.backendURL, email, time.Now()); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to remember backend: %v\n", err)
	}

	fmt.Fprintln(out, "✓ Login successful!")
	fmt.Fprintf(out, "  User: %s (%s)\n", res.Value.Name, res.Value.Email)
	if res.Value.IsAdmin() {
		fmt.Fprintln(out, "  Role: Admin")
	}

	return nil
}

// readPassword reads a secret without echo when stdin is a terminal
func readPassword(cmd *cobra.Command, label string) (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", fmt.Errorf("password is required in non-interactive mode (use --password flag or VOYAGO_PASSWORD env var)")
	}

	fmt.Fprint(cmd.OutOrStdout(), label)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(cmd.OutOrStdout()) // New line after password input
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(bytePassword), nil
}
