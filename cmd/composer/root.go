package main

import (
	"time"

	"podcast-studio-be/internal/composer"
	"podcast-studio-be/internal/config"
	"podcast-studio-be/internal/pkg/logger"
	"podcast-studio-be/pkg/contentapi"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type commandContext struct {
	apiURL  string
	token   string
	timeout time.Duration
	verbose bool
	logPath string

	cfg *config.Config
	log logger.ILogger
}

func (c *commandContext) client() *contentapi.Client {
	return contentapi.NewClient(c.apiURL, c.token, c.timeout)
}

func (c *commandContext) logger() logger.ILogger {
	if c.log == nil {
		if c.verbose {
			c.log = logger.NewZapLogger(c.logPath, false)
		} else {
			c.log = logger.NewNopLogger()
		}
	}
	return c.log
}

// newSession opens a throwaway composer session against the content API.
func (c *commandContext) newSession(cmd *cobra.Command) (*composer.Session, error) {
	s := composer.NewSession(uuid.NewString(), "cli", c.client(), c.logger(), composer.SessionOptions{
		Concurrency: c.cfg.Composer.Concurrency,
	})
	if err := s.Open(cmd.Context()); err != nil {
		return nil, err
	}
	return s, nil
}

func newRootCommand() *cobra.Command {
	cfg := config.Load()
	ctx := &commandContext{cfg: cfg}

	rootCmd := &cobra.Command{
		Use:           "composer",
		Short:         "Select notebook content and start podcast generation from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if ctx.log != nil {
				_ = ctx.log.Sync()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&ctx.apiURL, "api-url", cfg.Upstream.BaseURL, "Content API base URL")
	flags.StringVar(&ctx.token, "token", cfg.Upstream.Token, "Content API bearer token")
	flags.DurationVar(&ctx.timeout, "timeout", cfg.Upstream.Timeout, "Per-request timeout")
	flags.BoolVarP(&ctx.verbose, "verbose", "v", false, "Write structured logs")
	flags.StringVar(&ctx.logPath, "log-file", "logs/composer-cli.log", "Log file used with --verbose")

	rootCmd.AddCommand(newNotebooksCommand(ctx))
	rootCmd.AddCommand(newInspectCommand(ctx))
	rootCmd.AddCommand(newProfilesCommand(ctx))
	rootCmd.AddCommand(newEstimateCommand(ctx))
	rootCmd.AddCommand(newGenerateCommand(ctx))

	return rootCmd
}
