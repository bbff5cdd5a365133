package main

import (
	"os"

	"github.com/jrsteele09/go-fitness-client/apierrors"
	"github.com/jrsteele09/go-fitness-client/credentials"
	"github.com/jrsteele09/go-fitness-client/session"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const passwordEnvVar = "FITNESS_PASSWORD"

type loginConfig struct {
	username string
	email    string
	password string
}

func (c *loginConfig) passwordOrEnv() string {
	if c.password != "" {
		return c.password
	}
	return os.Getenv(passwordEnvVar)
}

func newLoginCmd() *cobra.Command {
	cfg := &loginConfig{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)
			s, err := a.session.Login(cmd.Context(), credentials.Credentials{
				Email:    cfg.email,
				Password: cfg.passwordOrEnv(),
			})
			return reportAuth(cmd, "login", s, err)
		},
	}

	cmd.Flags().StringVar(&cfg.email, "email", "", "account email")
	cmd.Flags().StringVar(&cfg.password, "password", "", "account password (default $"+passwordEnvVar+")")
	return cmd
}

func newRegisterCmd() *cobra.Command {
	cfg := &loginConfig{}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)
			s, err := a.session.Register(cmd.Context(), credentials.RegistrationData{
				Username: cfg.username,
				Email:    cfg.email,
				Password: cfg.passwordOrEnv(),
			})
			return reportAuth(cmd, "registration", s, err)
		},
	}

	cmd.Flags().StringVar(&cfg.username, "username", "", "display name (optional)")
	cmd.Flags().StringVar(&cfg.email, "email", "", "account email")
	cmd.Flags().StringVar(&cfg.password, "password", "", "account password (default $"+passwordEnvVar+")")
	return cmd
}

func reportAuth(cmd *cobra.Command, op string, s session.Session, err error) error {
	switch {
	case err == nil:
		cmd.Printf("Logged in as %s (%s)\n", s.User.Username, s.User.Email)
		return nil
	case errors.Is(err, session.ErrAlreadyAuthenticated):
		return errors.Errorf("already logged in as %s, run `fitness logout` first", s.User.Username)
	}
	return errors.New(apierrors.UserMessage(op, err))
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appFrom(cmd).session.Logout(cmd.Context())
			cmd.Println("Logged out")
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show who is logged in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := appFrom(cmd).session.Session()
			switch s.Status {
			case session.Authenticated:
				cmd.Printf("Logged in as %s (%s)\n", s.User.Username, s.User.Email)
			case session.Authenticating:
				cmd.Println("Logging in...")
			default:
				cmd.Println("Not logged in")
			}
			return nil
		},
	}
}
