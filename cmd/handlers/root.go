/*
Copyright © 2025 Your Name

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package handlers

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"newsbrief/internal/config"
	"newsbrief/internal/logger"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "newsbrief",
		Short: "NewsBrief builds daily news briefs from many sources.",
		Long: `NewsBrief fetches news from RSS, JSON and HTML sources, folds duplicate
stories together, ranks them for a topic, summarizes the top items and
publishes a versioned brief manifest with text, markdown and HTML renderings.

Examples:
  newsbrief run --topic ai
  newsbrief validate briefs/ai/daily-2025-03-10.json
  newsbrief publish --base-url https://briefs.example.org/`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd, cfgFile)
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.newsbrief.yaml or $HOME/.newsbrief.yaml)")

	rootCmd.AddCommand(NewRunCmd())
	rootCmd.AddCommand(NewValidateCmd())
	rootCmd.AddCommand(NewRenderCmd())
	rootCmd.AddCommand(NewPublishCmd())
	rootCmd.AddCommand(NewSourcesCmd())
	rootCmd.AddCommand(NewCacheCmd())
	rootCmd.AddCommand(NewHistoryCmd())
	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewBrowseCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables and sets up logging.
func initConfig(cmd *cobra.Command, cfgFile string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}

	out, err := logOutput(cfg)
	if err != nil {
		return err
	}
	level := cfg.Logging.Level
	if cfg.App.Debug {
		level = "debug"
	}
	logger.Init(logger.Options{Level: level, Format: cfg.Logging.Format, Output: out})

	if cfg.App.ConfigFile != "" {
		logger.Debug("Using config file", "path", cfg.App.ConfigFile)
	}
	return nil
}

// logOutput opens the configured log destination. A file stays open for the life of the process.
func logOutput(cfg *config.Config) (io.Writer, error) {
	switch strings.ToLower(cfg.Logging.Output) {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	case "file":
		path := cfg.Logging.FilePath
		if path == "" {
			path = filepath.Join(cfg.App.DataDir, "newsbrief.log")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unknown logging.output %q (stderr, stdout or file)", cfg.Logging.Output)
	}
}
