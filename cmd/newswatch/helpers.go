package main

import (
	"context"
	"fmt"

	"newswatch/internal/analysis"
	"newswatch/internal/config"
	"newswatch/internal/scraper"
)

// buildLLMClient constructs the configured provider's client.
func buildLLMClient(ctx context.Context, cfg *config.Config) (analysis.LLMClient, error) {
	timeout, err := cfg.LLMTimeout()
	if err != nil {
		return nil, err
	}

	switch cfg.LLM.Provider {
	case "openai", "":
		return analysis.NewOpenAIClientWithConfig(analysis.OpenAIConfig{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Timeout: timeout,
		}), nil
	case "gemini":
		return analysis.NewGeminiClient(ctx, cfg.LLM.APIKey, cfg.LLM.Model)
	default:
		return nil, fmt.Errorf("unknown llm.provider %q (want openai or gemini)", cfg.LLM.Provider)
	}
}

// buildSession creates a browser session from scraper config.
func buildSession(cfg *config.Config) (*scraper.Session, error) {
	timeout, err := cfg.NavigationTimeout()
	if err != nil {
		return nil, err
	}

	session := scraper.NewSession(scraper.SessionConfig{
		Headless:          cfg.Scraper.Headless,
		ViewportWidth:     cfg.Scraper.ViewportWidth,
		ViewportHeight:    cfg.Scraper.ViewportHeight,
		NavigationTimeout: timeout,
		UserDataDir:       cfg.Scraper.UserDataDir,
	}, logger)

	if err := session.Start(); err != nil {
		return nil, err
	}
	return session, nil
}
