// kontosort classifies Swedish bank transactions into budget categories using
// pattern rules, learned spending profiles, and an optional local LLM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/oskarvik/kontosort/internal/common"
	"github.com/oskarvik/kontosort/internal/metrics"
)

var (
	cfgFile string
	version = "dev"
	rootCmd = &cobra.Command{
		Use:   "kontosort",
		Short: "Transaction classification engine for Swedish bank exports",
		Long: `kontosort classifies bank transactions into budget categories.

It combines merchant pattern rules, profiles learned from already-classified
transactions, and an optional local LLM (Ollama), and runs bulk sweeps as
background tasks you can poll.`,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/kontosort/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")

	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(suggestCmd())
	rootCmd.AddCommand(tasksCmd())
	rootCmd.AddCommand(categoriesCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()

	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		viper.AddConfigPath(fmt.Sprintf("%s/.config/kontosort", home))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("KONTOSORT")
	viper.AutomaticEnv()

	setConfigDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	if err := setupLogging(); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	startMetricsServer()
	return nil
}

func setConfigDefaults() {
	viper.SetDefault("llm.enabled", true)
	viper.SetDefault("llm.host", "http://localhost:11434")
	viper.SetDefault("llm.model", "phi3:mini")
	viper.SetDefault("llm.priority", true)
	viper.SetDefault("llm.min_confidence", 0.6)
	viper.SetDefault("classification.confidence_threshold", 0.7)
	viper.SetDefault("classification.max_suggestions", 0)
	viper.SetDefault("classification.llm_min_confidence", 0.4)
	viper.SetDefault("classification.traditional_min_confidence", 0.6)
	viper.SetDefault("classification.relearn_interval", 0)
	viper.SetDefault("metrics.port", 0)
}

func setupLogging() error {
	var level slog.Level
	switch viper.GetString("logging.level") {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level: %s", viper.GetString("logging.level"))
	}

	return common.SetupLogger(level, viper.GetString("logging.format"))
}

// startMetricsServer exposes /metrics and /healthz when metrics.port is set.
func startMetricsServer() {
	port := viper.GetInt("metrics.port")
	if port <= 0 {
		return
	}

	server := metrics.NewServer(port)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "error", err)
		}
	}()
	slog.Info("metrics server started", "port", port)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			slog.Info("kontosort version", "version", version)
		},
	}
}
