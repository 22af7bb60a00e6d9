package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	userauth "github.com/voyago-dev/voyago/internal/auth"
	"github.com/voyago-dev/voyago/internal/cli/userconfig"
)

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE:  runWhoami,
	}
}

func runWhoami(cmd *cobra.Command, args []string) error {
	env, err := newSession(cmd)
	if err != nil {
		return err
	}

	snap, err := env.requireSession(cmd)
	if err != nil {
		return err
	}

	token, _ := env.tokens.Token()
	printUser(cmd, env.backendURL, snap.User, token)
	return nil
}

func printUser(cmd *cobra.Command, backendURL string, user *userauth.User, token string) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Backend:\t%s\n", backendURL)
	fmt.Fprintf(w, "ID:\t%s\n", user.ID)
	fmt.Fprintf(w, "Name:\t%s\n", user.Name)
	fmt.Fprintf(w, "Email:\t%s\n", user.Email)
	fmt.Fprintf(w, "Role:\t%s\n", user.Role)

	if claims, err := userauth.PeekToken(token); err == nil {
		if exp := claims.Expiry(); !exp.IsZero() {
			fmt.Fprintf(w, "Session expires:\t%s\n", exp.Local().Format(time.RFC1123))
		}
	}
	if st, err := userconfig.Read(); err == nil {
		if acct, ok := st.Account(backendURL); ok && !acct.LastLogin.IsZero() {
			fmt.Fprintf(w, "Last login:\t%s\n", acct.LastLogin.Local().Format(time.RFC1123))
		}
	}
	w.Flush()
}
