package main

import (
	"errors"
	"fmt"
	"io/fs"

	"learnsphere/internal/core"
	logpkg "learnsphere/internal/log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// commandContext carries state shared by every subcommand.
type commandContext struct {
	envFile *string
	verbose *bool
	logger  *logpkg.AppLogger
}

func newCommandContext(envFile *string, verbose *bool) *commandContext {
	return &commandContext{envFile: envFile, verbose: verbose}
}

// setup loads the env file and builds the logger. A missing env file is only
// an error when it was named explicitly.
func (c *commandContext) setup(cmd *cobra.Command) error {
	if err := godotenv.Load(*c.envFile); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || cmd.Flags().Changed("env-file") {
			return fmt.Errorf("load env file %s: %w", *c.envFile, err)
		}
	}

	level := logpkg.WARN
	if *c.verbose {
		level = logpkg.INFO
	}
	c.logger = logpkg.NewAppLoggerWithLevel(cmd.ErrOrStderr(), level)
	return nil
}

func (c *commandContext) log() core.Logger {
	if c.logger == nil {
		return &core.NopLogger{}
	}
	return c.logger
}

func (c *commandContext) close() {
	if c.logger != nil {
		_ = c.logger.Close()
	}
}
