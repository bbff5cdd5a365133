package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/jrsteele09/go-fitness-client/internal/config"
	"github.com/spf13/cobra"
)

// rootConfig holds the persistent flags. Empty values fall back to the environment.
type rootConfig struct {
	baseURL      string
	store        string
	tokenFile    string
	verify       bool
	printMetrics bool
	quiet        bool
}

type appKey struct{}

func newRootCmd() *cobra.Command {
	cfg := &rootConfig{}

	cmd := &cobra.Command{
		Use:           "fitness",
		Short:         "Command line client for the fitness tracker API",
		Long:          `Log in to the fitness tracker API and manage goals, the dashboard and your profile.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), settings(cfg), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, a))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)
			if cfg.printMetrics {
				if err := writeMetrics(cmd.OutOrStdout(), a); err != nil {
					return err
				}
			}
			return a.Close()
		},
	}

	cmd.PersistentFlags().StringVar(&cfg.baseURL, "base-url", "", "API base URL (default $FITNESS_API_BASE_URL)")
	cmd.PersistentFlags().StringVar(&cfg.store, "store", "", "token store: file, memory or redis (default $FITNESS_TOKEN_STORE)")
	cmd.PersistentFlags().StringVar(&cfg.tokenFile, "token-file", "", "token file for the file store (default $FITNESS_TOKEN_FILE)")
	cmd.PersistentFlags().BoolVar(&cfg.verify, "verify", false, "confirm a stored token with the server on startup")
	cmd.PersistentFlags().BoolVar(&cfg.printMetrics, "print-metrics", false, "print client metrics after the command")
	cmd.PersistentFlags().BoolVarP(&cfg.quiet, "quiet", "q", false, "do not print the banner")

	cmd.AddCommand(
		newLoginCmd(),
		newRegisterCmd(),
		newLogoutCmd(),
		newStatusCmd(),
		newGoalsCmd(),
		newDashboardCmd(),
		newProfileCmd(),
	)
	return cmd
}

// settings merges the flags over the environment configuration.
func settings(flags *rootConfig) appSettings {
	c := config.New()
	s := appSettings{
		Config:    c,
		baseURL:   c.GetBaseURL(),
		store:     c.GetTokenStore(),
		tokenFile: c.GetTokenFile(),
		verify:    c.GetVerifyOnStartup() || flags.verify,
		banner:    !flags.quiet,
	}
	if flags.baseURL != "" {
		s.baseURL = strings.TrimRight(flags.baseURL, "/")
	}
	if flags.store != "" {
		s.store = config.StoreKind(flags.store)
	}
	if flags.tokenFile != "" {
		s.tokenFile = flags.tokenFile
	}
	return s
}

func appFrom(cmd *cobra.Command) *app {
	return cmd.Context().Value(appKey{}).(*app)
}

// writeMetrics prints every collected sample as "name{labels} value".
func writeMetrics(w io.Writer, a *app) error {
	families, err := a.registry.Gather()
	if err != nil {
		return err
	}
	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			lines = append(lines, fmt.Sprintf("%s %g", name, m.GetCounter().GetValue()))
		}
	}
	sort.Strings(lines)
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}

func stderrIsTerminal() bool {
	fi, err := os.Stderr.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
