// Package config loads the Epigraph configuration.
package config

import "time"

// Config is the root configuration for Epigraph.
type Config struct {
	Gateway   GatewayConfig   `json:"gateway"`
	Models    ModelsConfig    `json:"models"`
	Embedding EmbeddingConfig `json:"embedding"`
	Agent     AgentConfig     `json:"agent"`
	Tasks     TasksConfig     `json:"tasks"`
}

// GatewayConfig holds the gateway server settings.
type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// ModelsConfig holds model provider configuration.
type ModelsConfig struct {
	Default   string                    `json:"default"`
	Providers map[string]ProviderConfig `json:"providers"`
}

// ProviderConfig configures a single LLM provider.
type ProviderConfig struct {
	Driver    string     `json:"driver"` // "anthropic", "openai", "ollama", "gemini"
	Model     string     `json:"model"`
	BaseURL   string     `json:"base_url,omitempty"`
	Auth      AuthConfig `json:"auth"`
	MaxTokens int        `json:"max_tokens,omitempty"`
	Timeout   Duration   `json:"timeout,omitempty"`
}

// AuthConfig configures API key resolution.
type AuthConfig struct {
	APIKey string `json:"api_key,omitempty"` // Direct API key or ${{ .Env.VAR }} template
	Token  string `json:"token,omitempty"`   // OAuth/Bearer token
}

// EmbeddingConfig configures the embedder behind the document memory.
// An empty driver disables vector memory entirely.
type EmbeddingConfig struct {
	Driver  string     `json:"driver"` // "openai", "ollama", "" = disabled
	Model   string     `json:"model"`
	BaseURL string     `json:"base_url,omitempty"`
	Dims    int        `json:"dims,omitempty"`
	Auth    AuthConfig `json:"auth"`
}

// AgentConfig holds agent loop settings.
type AgentConfig struct {
	SystemPrompt string `json:"system_prompt,omitempty"`
	MaxSteps     int    `json:"max_steps,omitempty"`
	HistoryTurns int    `json:"history_turns,omitempty"`
}

// TasksConfig holds task graph settings.
type TasksConfig struct {
	CodePrefix string `json:"code_prefix,omitempty"`
}

// Duration wraps time.Duration for JSON unmarshaling.
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}
