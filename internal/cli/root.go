package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/voyago-dev/voyago/internal/cli/commands"
)

var version = "dev" // Will be set during build

// NewRootCmd builds the voyago command tree
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "voyago",
		Short: "Voyago - travel booking from the command line",
		Long: `Voyago CLI - sign in to a Voyago backend and manage your account.

The session token is kept in the OS keyring, one per backend.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("backend", "", "Backend URL (or set VOYAGO_BACKEND_URL; defaults to the last backend used)")
	rootCmd.PersistentFlags().Bool("debug", false, "Log upstream requests to stderr")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "voyago version %s\n", version)
		},
	})

	rootCmd.AddCommand(commands.NewLoginCmd())
	rootCmd.AddCommand(commands.NewSignupCmd())
	rootCmd.AddCommand(commands.NewLogoutCmd())
	rootCmd.AddCommand(commands.NewWhoamiCmd())
	rootCmd.AddCommand(commands.NewProfileCmd())

	return rootCmd
}

// Execute runs the root command; SIGINT cancels in-flight requests
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
