// Package models builds eino chat models from provider configuration.
package models

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"

	"github.com/avezard/epigraph/internal/config"
)

// CreateModel creates a model.ToolCallingChatModel from a provider config.
func CreateModel(ctx context.Context, cfg config.ProviderConfig) (model.ToolCallingChatModel, error) {
	switch strings.ToLower(cfg.Driver) {
	case "anthropic":
		auth, err := ResolveAuth(cfg)
		if err != nil {
			return nil, fmt.Errorf("resolve auth: %w", err)
		}
		return NewAnthropic(ctx, cfg, auth)
	case "openai":
		auth, err := ResolveAuth(cfg)
		if err != nil {
			return nil, fmt.Errorf("resolve auth: %w", err)
		}
		return NewOpenAI(ctx, cfg, auth)
	case "gemini":
		auth, err := ResolveAuth(cfg)
		if err != nil {
			return nil, fmt.Errorf("resolve auth: %w", err)
		}
		return NewGemini(ctx, cfg, auth)
	case "ollama":
		return NewOllama(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown driver: %s", cfg.Driver)
	}
}

// DefaultProvider resolves the configured default provider.
func DefaultProvider(cfg *config.Config) (config.ProviderConfig, error) {
	if len(cfg.Models.Providers) == 0 {
		return config.ProviderConfig{}, fmt.Errorf("no model providers configured")
	}
	name := cfg.Models.Default
	if name == "" {
		for n := range cfg.Models.Providers {
			name = n
			break
		}
	}
	p, ok := cfg.Models.Providers[name]
	if !ok {
		return config.ProviderConfig{}, fmt.Errorf("default provider %q not configured", name)
	}
	return p, nil
}
