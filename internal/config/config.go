// Package config reads the process configuration from the environment
// once at startup. Missing credentials degrade the relevant component
// to a clear configuration error instead of crashing the process.
package config

import (
	"fmt"
	"os"
)

// Provider selects the model backend.
type Provider string

const (
	// ProviderOpenAI talks to the OpenAI chat-completions API.
	ProviderOpenAI Provider = "openai"
	// ProviderDashScope talks to DashScope's OpenAI-compatible endpoint.
	ProviderDashScope Provider = "dashscope"
	// ProviderGemini talks to the Gemini API via the GenAI SDK.
	ProviderGemini Provider = "gemini"
)

const defaultDashScopeBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"

// Error reports a missing or inconsistent configuration value.
type Error struct {
	Msg string
}

func (e *Error) Error() string { return e.Msg }

// Errorf builds a configuration error.
func Errorf(format string, args ...any) *Error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

// Config is the process-wide, read-only configuration established at
// startup.
type Config struct {
	// Model extraction backend.
	Provider Provider
	Model    string
	APIKey   string
	BaseURL  string // OpenAI-compatible endpoints only

	// Target repository for pull requests.
	GitHubToken   string
	GitHubOwner   string
	GitHubRepo    string
	DefaultBranch string
	ProxyURL      string

	// Local dataset and server.
	DataDir string
	Port    string
}

// FromEnv assembles a Config from the environment. It never fails:
// validation is deferred to the components that need each group of
// settings, so a missing GitHub token still allows extraction-only use.
func FromEnv() *Config {
	cfg := &Config{
		Provider:      Provider(envOr("AI_PROVIDER", string(ProviderOpenAI))),
		Model:         envOr("AI_MODEL", "gpt-4o-mini"),
		GitHubToken:   os.Getenv("GITHUB_TOKEN"),
		GitHubOwner:   os.Getenv("GITHUB_OWNER"),
		GitHubRepo:    os.Getenv("GITHUB_REPO"),
		DefaultBranch: envOr("GITHUB_DEFAULT_BRANCH", "main"),
		DataDir:       envOr("DATA_DIR", "./data"),
		Port:          envOr("PORT", "3000"),
	}

	cfg.ProxyURL = os.Getenv("HTTPS_PROXY")
	if cfg.ProxyURL == "" {
		cfg.ProxyURL = os.Getenv("HTTP_PROXY")
	}

	switch cfg.Provider {
	case ProviderDashScope:
		cfg.APIKey = os.Getenv("DASHSCOPE_API_KEY")
		cfg.BaseURL = envOr("DASHSCOPE_BASE_URL", defaultDashScopeBaseURL)
	case ProviderGemini:
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	default:
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		cfg.BaseURL = "https://api.openai.com/v1"
	}

	return cfg
}

// ValidateModel checks the settings the extraction engine needs.
func (c *Config) ValidateModel() error {
	if c.APIKey == "" {
		return Errorf("%s API key not configured, set %s", providerLabel(c.Provider), keyEnvVar(c.Provider))
	}
	if c.Model == "" {
		return Errorf("model name not configured, set AI_MODEL")
	}
	return nil
}

// ValidateGitHub checks the settings the publisher needs.
func (c *Config) ValidateGitHub() error {
	if c.GitHubToken == "" {
		return Errorf("GitHub token not configured, set GITHUB_TOKEN")
	}
	if c.GitHubOwner == "" || c.GitHubRepo == "" {
		return Errorf("GitHub repository not configured, set GITHUB_OWNER and GITHUB_REPO")
	}
	return nil
}

func providerLabel(p Provider) string {
	switch p {
	case ProviderDashScope:
		return "DashScope"
	case ProviderGemini:
		return "Gemini"
	default:
		return "OpenAI"
	}
}

func keyEnvVar(p Provider) string {
	switch p {
	case ProviderDashScope:
		return "DASHSCOPE_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
