package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"repocite/internal/config"
	"repocite/internal/logging"
	"repocite/internal/tui"

	"github.com/spf13/cobra"
)

var (
	flagConfig    string
	flagVerbose   bool
	flagIndexDir  string
	flagOllama    string
	flagModel     string
	flagChatModel string
)

// Populated by PersistentPreRunE.
var (
	settings *config.Config
	logger   *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "repocite",
	Short:         "Ask questions about a code repository, answered with file:line citations",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadSettings(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		return tui.Run(cmd.Context(), tui.Config{
			IndexDir: resolveIndexDir(wd),
			RepoRoot: wd,
			Settings: settings,
			Logger:   logging.Discard(),
		})
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if logger != nil {
			logger.Error(err.Error())
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default ./repocite.yaml or ~/.config/repocite/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagIndexDir, "index-dir", "", "index directory (default <cwd>/.repocite)")
	rootCmd.PersistentFlags().StringVar(&flagOllama, "ollama", "", "ollama base URL for both collaborators")
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "", "embedding model")
	rootCmd.PersistentFlags().StringVar(&flagChatModel, "chat-model", "", "chat model")
}

// loadSettings resolves configuration in order: defaults, config file,
// environment (including .env), then flags.
func loadSettings(cmd *cobra.Command) error {
	logger = logging.New(os.Stderr, flagVerbose)
	config.LoadEnvFiles()

	var (
		cfg  *config.Config
		path string
		err  error
	)
	if flagConfig != "" {
		path = flagConfig
		cfg, err = config.Load(flagConfig)
	} else {
		cfg, path, err = config.LoadDefault()
	}
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("ollama") {
		if cfg.Embedder.Provider == config.ProviderOllama {
			cfg.Embedder.BaseURL = flagOllama
		}
		if cfg.Chat.Provider == config.ProviderOllama {
			cfg.Chat.BaseURL = flagOllama
		}
	}
	if flags.Changed("model") {
		cfg.Embedder.Model = flagModel
	}
	if flags.Changed("chat-model") {
		cfg.Chat.Model = flagChatModel
	}
	if flags.Changed("index-dir") {
		cfg.Query.IndexDir = flagIndexDir
	}

	settings = cfg
	logger.Debug("configuration loaded",
		"file", path,
		"embed_provider", cfg.Embedder.Provider,
		"embed_model", cfg.Embedder.Model,
		"chat_provider", cfg.Chat.Provider,
		"chat_model", cfg.Chat.Model)
	return nil
}

// resolveIndexDir returns the configured index directory, or base/.repocite.
func resolveIndexDir(base string) string {
	if settings != nil && settings.Query.IndexDir != "" {
		return settings.Query.IndexDir
	}
	return filepath.Join(base, config.DefaultIndexDir)
}
