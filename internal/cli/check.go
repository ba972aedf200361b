package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/standup/internal/config"
	"github.com/crimson-sun/standup/internal/connector/github"
	"github.com/crimson-sun/standup/internal/connector/jira"
)

// checker is a connector that can verify its credentials.
type checker interface {
	Name() string
	Check(ctx context.Context) (string, error)
}

// NewJiraCheckCmd builds the jira-check command.
func NewJiraCheckCmd() *cobra.Command {
	return newCheckCmd("jira-check", "Verify issue tracker credentials", func(cfg *config.Config) (checker, error) {
		return jira.New(cfg)
	})
}

// NewGitHubCheckCmd builds the github-check command. The check runs even when
// github.enabled is false.
func NewGitHubCheckCmd() *cobra.Command {
	return newCheckCmd("github-check", "Verify GitHub credentials", func(cfg *config.Config) (checker, error) {
		cfg.GitHub.Enabled = true
		return github.New(cfg)
	})
}

func newCheckCmd(use, short string, build func(*config.Config) (checker, error)) *cobra.Command {
	var configPath, logLevel string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath, logLevel)
			if err != nil {
				return err
			}
			c, err := build(cfg)
			if err != nil {
				return err
			}
			who, err := c.Check(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: authenticated as %s\n", c.Name(), who)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	return cmd
}
