// Package llm provides the remote LLM-backed classification strategies and
// the HTTP client they talk through.
package llm

import (
	"context"
	"time"
)

// Client is the minimal surface of the inference service the classifiers
// need: one-shot generation and a model listing for availability probing.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Models(ctx context.Context) ([]string, error)
}

// Config holds configuration for the LLM classifier.
type Config struct {
	Host          string
	Model         string
	Timeout       time.Duration
	MinConfidence float64
	Enabled       bool
}

// withDefaults fills in unset fields.
func (c Config) withDefaults() Config {
	if c.Host == "" {
		c.Host = "http://localhost:11434"
	}
	if c.Model == "" {
		c.Model = "phi3:mini"
	}
	if c.Timeout == 0 {
		c.Timeout = 15 * time.Second
	}
	if c.MinConfidence == 0 {
		c.MinConfidence = 0.6
	}
	return c
}
