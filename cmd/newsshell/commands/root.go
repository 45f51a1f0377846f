// Package commands holds the newsshell CLI.
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"NewsShell/internal/config"
	"NewsShell/internal/logging"
)

// runtime is shared by every subcommand once the root pre-run has loaded it.
type runtime struct {
	cfg    config.Config
	logger *slog.Logger
}

type rootOptions struct {
	configPath string
	logLevel   string
	envFile    string
	rt         runtime
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "newsshell",
		Short: "Navigation core of the news app shell",
		Long: `newsshell routes in-app navigation, keeps a pool of preloaded tab
surfaces and journals every decision.

Use classify, resolve and decide to check routing for a URL, inspect to read
page metadata, journal to list recent decisions and serve to run a session
backed by headless Chrome with an HTTP inspection API.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (overrides NEWSSHELL_CONFIG)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the config")

	cmd.AddCommand(
		newClassifyCmd(&opts.rt),
		newResolveCmd(&opts.rt),
		newDecideCmd(&opts.rt),
		newInspectCmd(&opts.rt),
		newJournalCmd(&opts.rt),
		newServeCmd(&opts.rt),
	)
	return cmd
}

// Execute runs the CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

func (o *rootOptions) load(stderr io.Writer) error {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", o.envFile, err)
		}
	}
	if o.configPath != "" {
		if err := os.Setenv("NEWSSHELL_CONFIG", o.configPath); err != nil {
			return fmt.Errorf("set config path: %w", err)
		}
	}

	o.rt.cfg = config.Load()
	if o.logLevel != "" {
		o.rt.cfg.Logging.Level = o.logLevel
	}
	o.rt.logger = logging.NewWithWriter(stderr, o.rt.cfg.Logging.Level, "text")
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
