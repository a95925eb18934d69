package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"zanzara-go/internal/config"
	"zanzara-go/internal/credentials"
	"zanzara-go/internal/logger"
	"zanzara-go/internal/pipeline"
	"zanzara-go/internal/processor"
	"zanzara-go/internal/templates"
)

type commandContext struct {
	configFlag *string
	cmd        *cobra.Command

	configOnce sync.Once
	config     *config.Config
	configErr  error

	log   *logger.Logger
	store *templates.Store
}

// newPrompter is replaced in tests.
var newPrompter = credentials.NewTerminal

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.log = logger.NewWithOptions(logger.Options{
			Environment: cfg.Environment,
			Level:       cfg.LogLevel,
			Output:      c.cmd.ErrOrStderr(),
		})
		c.store = templates.NewStoreFromConfig(cfg.Templates, c.log)
	})
	return c.config, c.configErr
}

// runner resolves the API key, asking on the terminal when none is
// configured, and wires the pipeline.
func (c *commandContext) runner() (processor.Runner, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	key := cfg.OpenAI.APIKey
	if !cfg.MockOnly() {
		key, err = credentials.Resolve(key, newPrompter())
		if err != nil {
			return nil, err
		}
	}
	return pipeline.FromConfig(cfg, key, c.store, c.log)
}

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "zanzara",
		Short:         "Transcribe radio episodes and turn them into articles",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	ctx.cmd = rootCmd

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newPromptCommand(ctx))
	rootCmd.AddCommand(newCheckCommand(ctx))
	rootCmd.AddCommand(newBatchCommand(ctx))

	return rootCmd
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
