package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voyago-dev/voyago/internal/session"
)

// NewProfileCmd creates the profile command
func NewProfileCmd() *cobra.Command {
	var name, email string

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or update your profile",
		Example: `  voyago profile
  voyago profile --name "Ada Lovelace"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var update session.ProfileUpdate
			if cmd.Flags().Changed("name") {
				update.Name = &name
			}
			if cmd.Flags().Changed("email") {
				update.Email = &email
			}
			return runProfile(cmd, update)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New display name")
	cmd.Flags().StringVar(&email, "email", "", "New email address")

	return cmd
}

func runProfile(cmd *cobra.Command, update session.ProfileUpdate) error {
	env, err := newSession(cmd)
	if err != nil {
		return err
	}

	snap, err := env.requireSession(cmd)
	if err != nil {
		return err
	}

	token, _ := env.tokens.Token()
	if update.Empty() {
		printUser(cmd, env.backendURL, snap.User, token)
		return nil
	}

	res := env.store.UpdateProfile(cmd.Context(), update)
	if !res.OK {
		return fmt.Errorf("profile update failed: %s", res.Message())
	}

	fmt.Fprintln(cmd.OutOrStdout(), "✓ Profile updated")
	printUser(cmd, env.backendURL, res.Value, token)
	return nil
}
