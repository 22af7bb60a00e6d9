package commands

import (
	"errors"
	"fmt"
	"syscall"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/voyago-dev/voyago/internal/cli/userconfig"
	"github.com/voyago-dev/voyago/internal/validation"
)

// NewSignupCmd creates the signup command
func NewSignupCmd() *cobra.Command {
	var name, email, password, passwordConfirm string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and log in",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSignup(cmd, name, email, password, passwordConfirm)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Full name")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password (will prompt if not provided)")
	cmd.Flags().StringVar(&passwordConfirm, "password-confirm", "", "Password confirmation (defaults to --password)")

	return cmd
}

func runSignup(cmd *cobra.Command, name, email, password, passwordConfirm string) error {
	interactive := term.IsTerminal(int(syscall.Stdin))

	if password != "" && passwordConfirm == "" {
		passwordConfirm = password
	}

	var err error
	if name == "" && interactive {
		if name, err = prompt("Name", false, notEmpty("name")); err != nil {
			return err
		}
	}
	if email == "" && interactive {
		if email, err = prompt("Email", false, validEmail); err != nil {
			return err
		}
	}
	if password == "" && interactive {
		if password, err = prompt("Password", true, notEmpty("password")); err != nil {
			return err
		}
		if passwordConfirm, err = prompt("Confirm password", true, nil); err != nil {
			return err
		}
	}

	env, err := newSession(cmd)
	if err != nil {
		return err
	}

	// Required fields and the confirmation are checked before any request
	res := env.store.Signup(cmd.Context(), name, email, password, passwordConfirm)
	if !res.OK {
		return fmt.Errorf("signup failed: %s", res.Message())
	}

	if err := userconfig.RememberLogin(env.backendURL, email, time.Now()); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to remember backend: %v\n", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "✓ Account created!")
	fmt.Fprintf(out, "  User: %s (%s)\n", res.Value.Name, res.Value.Email)
	return nil
}

func prompt(label string, secret bool, validate promptui.ValidateFunc) (string, error) {
	p := promptui.Prompt{
		Label:    label,
		Validate: validate,
	}
	if secret {
		p.Mask = '*'
	}

	value, err := p.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) {
			return "", fmt.Errorf("signup cancelled")
		}
		return "", fmt.Errorf("failed to read %s: %w", label, err)
	}
	return value, nil
}

func notEmpty(field string) promptui.ValidateFunc {
	return func(s string) error {
		if s == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

// validEmail applies the same email rule as the gateway's request binding
func validEmail(s string) error {
	if err := emailValidator.Var(s, "required,email"); err != nil {
		return fmt.Errorf("enter a valid email address")
	}
	return nil
}

var emailValidator = validation.New()
