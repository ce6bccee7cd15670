package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bnema/coachsync/internal/application"
	"github.com/bnema/coachsync/internal/config"
	"github.com/spf13/cobra"
)

func newLoginCmd(app *app) *cobra.Command {
	var (
		email         string
		password      string
		passwordStdin bool
		pushToken     string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.ready(cmd.Context()); err != nil {
				return err
			}
			if passwordStdin {
				if password != "" {
					return errors.New("--password and --password-stdin are mutually exclusive")
				}
				read, err := readPassword(cmd.InOrStdin())
				if err != nil {
					return err
				}
				password = read
			}
			if password == "" {
				return errors.New("a password is required: use --password or --password-stdin")
			}
			if pushToken == "" {
				pushToken = app.cfg.PushToken
			}

			profile, err := app.service.Login(cmd.Context(), application.LoginCommand{
				Email:     email,
				Password:  password,
				PushToken: pushToken,
			})
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", profile.DisplayName(), profile.ID)
			return err
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	cmd.Flags().StringVar(&pushToken, "push-token", "", fmt.Sprintf("Push notification token to register (default from %s)", config.EnvName(config.KeyPushToken)))
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newLogoutCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session and refresh cookie",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.ready(cmd.Context()); err != nil {
				return err
			}
			if err := app.service.Logout(cmd.Context()); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return err
		},
	}
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
