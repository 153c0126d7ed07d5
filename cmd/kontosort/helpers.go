package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/oskarvik/kontosort/internal/engine"
	"github.com/oskarvik/kontosort/internal/llm"
	"github.com/oskarvik/kontosort/internal/storage"
	"github.com/oskarvik/kontosort/internal/task"
)

// initStorage opens the configured database and applies pending migrations.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".local", "share", "kontosort", "kontosort.db")
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func llmConfig() llm.Config {
	return llm.Config{
		Enabled:       viper.GetBool("llm.enabled"),
		Host:          viper.GetString("llm.host"),
		Model:         viper.GetString("llm.model"),
		MinConfidence: viper.GetFloat64("llm.min_confidence"),
		Timeout:       15 * time.Second,
	}
}

func engineConfig() engine.Config {
	return engine.Config{
		LLMPriority:              viper.GetBool("llm.priority"),
		LLMMinConfidence:         viper.GetFloat64("classification.llm_min_confidence"),
		TraditionalMinConfidence: viper.GetFloat64("classification.traditional_min_confidence"),
		RelearnInterval:          viper.GetInt("classification.relearn_interval"),
	}
}

// buildEngine assembles the orchestrator over the given storage.
func buildEngine(ctx context.Context, store *storage.SQLiteStorage) (*engine.Orchestrator, error) {
	orch, err := engine.NewOrchestrator(ctx, store, llmConfig(), engineConfig(), slog.Default())
	if err != nil {
		return nil, fmt.Errorf("failed to build classification engine: %w", err)
	}
	return orch, nil
}

// buildRunner wires the task runner and the auto-classify submitter.
func buildRunner(ctx context.Context, store *storage.SQLiteStorage) (*task.Runner, *task.AutoClassifier, error) {
	orch, err := buildEngine(ctx, store)
	if err != nil {
		return nil, nil, err
	}
	runner := task.NewRunner(store, slog.Default())
	return runner, task.NewAutoClassifier(runner, orch, store, slog.Default()), nil
}
