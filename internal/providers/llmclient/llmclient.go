// Package llmclient builds the shared llm.ChatModel used by the orchestrator
// and domain specialists: the configured primary provider first, failing
// over through the remaining configured providers so one outage doesn't
// halt a call in progress.
package llmclient

import (
	"fmt"

	"github.com/Hurricane0017/agri-advisor/config"
	"github.com/Hurricane0017/agri-advisor/llm"

	_ "github.com/Hurricane0017/agri-advisor/llm/providers/anthropic"
	_ "github.com/Hurricane0017/agri-advisor/llm/providers/bedrock"
	_ "github.com/Hurricane0017/agri-advisor/llm/providers/ollama"
	_ "github.com/Hurricane0017/agri-advisor/llm/providers/openai"
)

// New builds a ChatModel from cfg.LLMs, preferring cfg.LLMs.Provider and
// failing over through whichever of openai/anthropic/ollama/bedrock have
// credentials configured.
func New(cfg config.Config) (llm.ChatModel, error) {
	var models []llm.ChatModel
	for _, name := range preferenceOrder(cfg.LLMs.Provider) {
		pc, ok := providerConfig(cfg, name)
		if !ok {
			continue
		}
		m, err := llm.New(name, pc)
		if err != nil {
			continue
		}
		models = append(models, m)
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("llmclient: no LLM provider has credentials configured")
	}
	return llm.NewFailoverRouter(models...), nil
}

func preferenceOrder(primary string) []string {
	all := []string{"openai", "anthropic", "ollama", "bedrock"}
	if primary == "" {
		return all
	}
	order := []string{primary}
	for _, n := range all {
		if n != primary {
			order = append(order, n)
		}
	}
	return order
}

func providerConfig(cfg config.Config, name string) (config.ProviderConfig, bool) {
	switch name {
	case "openai":
		if cfg.LLMs.OpenAI.APIKey == "" {
			return config.ProviderConfig{}, false
		}
		return config.ProviderConfig{
			Provider: "openai",
			APIKey:   cfg.LLMs.OpenAI.APIKey,
			Model:    cfg.LLMs.OpenAI.Model,
			BaseURL:  cfg.LLMs.OpenAI.BaseURL,
		}, true
	case "anthropic":
		if cfg.LLMs.Anthropic.APIKey == "" {
			return config.ProviderConfig{}, false
		}
		return config.ProviderConfig{
			Provider: "anthropic",
			APIKey:   cfg.LLMs.Anthropic.APIKey,
			Model:    cfg.LLMs.Anthropic.Model,
			BaseURL:  cfg.LLMs.Anthropic.BaseURL,
			Options:  map[string]any{"version": cfg.LLMs.Anthropic.Version},
		}, true
	case "ollama":
		// Ollama has no credential requirement; always offer it as a
		// free/offline failover leg once a model name is configured.
		if cfg.LLMs.Ollama.Model == "" {
			return config.ProviderConfig{}, false
		}
		return config.ProviderConfig{
			Provider: "ollama",
			Model:    cfg.LLMs.Ollama.Model,
			BaseURL:  cfg.LLMs.Ollama.BaseURL,
		}, true
	case "bedrock":
		if cfg.LLMs.Bedrock.AccessKey == "" {
			return config.ProviderConfig{}, false
		}
		return config.ProviderConfig{
			Provider: "bedrock",
			APIKey:   cfg.LLMs.Bedrock.AccessKey,
			Model:    cfg.LLMs.Bedrock.ModelID,
			Options: map[string]any{
				"region":     cfg.LLMs.Bedrock.Region,
				"secret_key": cfg.LLMs.Bedrock.SecretKey,
			},
		}, true
	default:
		return config.ProviderConfig{}, false
	}
}
