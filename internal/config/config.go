// SPDX-License-Identifier: AGPL-3.0-only
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Default identifiers advertised by the service
const (
	DefaultServerName    = "organics-agent"
	DefaultServerVersion = "1.0.0"

	// DefaultToolServer is the server a bare (unnamespaced) tool name
	// resolves to.
	DefaultToolServer = "admin_agent"
)

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig
	AI      AIConfig
	Tools   ToolsConfig
	Farm    FarmConfig
	History HistoryConfig
	Auth    AuthConfig
	Logging LoggingConfig
}

// ServerConfig holds HTTP front-door configuration
type ServerConfig struct {
	Name           string
	Version        string
	Address        string
	Port           int
	AllowedOrigins []string
}

// AIConfig holds LLM provider configuration
type AIConfig struct {
	// Provider selects the model dialect: "openai", "gemini" or "anthropic"
	Provider string
	// APIKey is a generic fallback used when a provider-specific key is unset
	APIKey          string
	OpenAIAPIKey    string
	GeminiAPIKey    string
	AnthropicAPIKey string
	// BaseURL overrides the OpenAI endpoint for OpenAI-compatible servers
	BaseURL string
	// Model is the chat model used by the agent loop
	Model string
	// RenderModel is the model used for the HTML response transform
	RenderModel string
	// MaxTokens bounds model output per iteration
	MaxTokens int64
	// MaxToolIterations caps model<->tool round trips per inbound message
	MaxToolIterations int
}

// ToolsConfig holds tool-server configuration
type ToolsConfig struct {
	// Servers maps a tool-server name to its MCP endpoint URL
	Servers map[string]string
	// DefaultServer owns bare tool names
	DefaultServer string
	// LockFilePath is the singleton lock file for the agent process
	LockFilePath string
	// HealthSchedule is the cron spec for tool-server health probes
	// (empty disables probing)
	HealthSchedule string
}

// FarmConfig holds farm REST API and tool-server configuration
type FarmConfig struct {
	// APIBaseURL is the root of the farm management REST API
	APIBaseURL string
	// Timeout bounds each REST call
	Timeout time.Duration
	// RetryMax is the retry budget for transient REST failures
	RetryMax int
	// Address and Port are where the farm MCP tool server listens
	Address string
	Port    int
}

// HistoryConfig holds conversation-history retention configuration
type HistoryConfig struct {
	// RedisURL takes precedence over RedisAddr when set
	RedisURL  string
	RedisAddr string
	// MaxTurns is the per-conversation retention count
	MaxTurns int
	// TTL expires a whole conversation log
	TTL time.Duration
	// Window is the number of recent turns replayed to the model
	Window int
}

// AuthConfig holds inbound authentication configuration
type AuthConfig struct {
	JWTSecret string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string
	FilePath string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Name:    DefaultServerName,
			Version: DefaultServerVersion,
			Address: "0.0.0.0",
			Port:    8000,
			AllowedOrigins: []string{
				"http://localhost:3000",
				"http://127.0.0.1:3000",
				"http://localhost:5173",
				"http://127.0.0.1:5173",
			},
		},
		AI: AIConfig{
			Provider:          "gemini",
			Model:             "gemini-2.5-flash-lite",
			RenderModel:       "gemini-2.5-flash-lite",
			MaxTokens:         1000,
			MaxToolIterations: 10,
		},
		Tools: ToolsConfig{
			Servers: map[string]string{
				DefaultToolServer: "http://127.0.0.1:6280/mcp",
			},
			DefaultServer: DefaultToolServer,
			LockFilePath:  defaultLockPath(),
		},
		Farm: FarmConfig{
			APIBaseURL: "http://localhost:3000/api",
			Timeout:    30 * time.Second,
			RetryMax:   3,
			Address:    "127.0.0.1",
			Port:       6280,
		},
		History: HistoryConfig{
			RedisAddr: "localhost:6379",
			MaxTurns:  60,
			TTL:       3 * 24 * time.Hour,
			Window:    30,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func defaultLockPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".organics-agent.lock"
	}
	return home + "/.organics-agent/agent.lock"
}

// FromEnv overrides cfg fields from environment variables
func FromEnv(cfg *Config) {
	if v := os.Getenv("SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = splitAndTrim(v)
	}

	if v := os.Getenv("AI_PROVIDER"); v != "" {
		cfg.AI.Provider = v
	}
	if v := os.Getenv("AI_API_KEY"); v != "" {
		cfg.AI.APIKey = v
	}
	if v := os.Getenv("OPEN_AI_API_KEY"); v != "" {
		cfg.AI.OpenAIAPIKey = v
	}
	// GOOGLE_API_KEY wins over GEMINI_API_KEY, matching the lookup order
	// the Gemini SDK documents.
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.AI.GeminiAPIKey = v
	}
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		cfg.AI.GeminiAPIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.AI.AnthropicAPIKey = v
	}
	if v := os.Getenv("AI_BASE_URL"); v != "" {
		cfg.AI.BaseURL = v
	}
	if v := os.Getenv("AI_MODEL"); v != "" {
		cfg.AI.Model = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" && strings.EqualFold(cfg.AI.Provider, "gemini") {
		cfg.AI.Model = v
		cfg.AI.RenderModel = v
	}
	if v := os.Getenv("AI_MAX_TOKENS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.AI.MaxTokens = n
		}
	}
	if v := os.Getenv("AI_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AI.MaxToolIterations = n
		}
	}

	if v := os.Getenv("MCP_SERVER_URL"); v != "" {
		cfg.Tools.Servers[cfg.Tools.DefaultServer] = v
	}
	if v := os.Getenv("TOOL_SERVERS"); v != "" {
		if servers := ParseServerList(v); len(servers) > 0 {
			cfg.Tools.Servers = servers
		}
	}
	if v := os.Getenv("TOOL_HEALTH_SCHEDULE"); v != "" {
		cfg.Tools.HealthSchedule = v
	}

	if v := os.Getenv("FARM_API_BASE_URL"); v != "" {
		cfg.Farm.APIBaseURL = v
	}
	if v := os.Getenv("FARM_API_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Farm.Timeout = d
		}
	}
	if v := os.Getenv("FARM_SERVER_ADDRESS"); v != "" {
		cfg.Farm.Address = v
	}
	if v := os.Getenv("FARM_SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Farm.Port = p
		}
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.History.RedisURL = v
	}
	if host := os.Getenv("REDIS_HOST"); host != "" {
		port := os.Getenv("REDIS_PORT")
		if port == "" {
			port = "6379"
		}
		cfg.History.RedisAddr = host + ":" + port
	}

	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Logging.FilePath = v
	}
}

// ParseServerList parses "name=url,name=url" into a server map.
// Entries without a name or URL are skipped.
func ParseServerList(spec string) map[string]string {
	servers := map[string]string{}
	for _, entry := range strings.Split(spec, ",") {
		name, url, ok := strings.Cut(strings.TrimSpace(entry), "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		url = strings.TrimSpace(url)
		if name == "" || url == "" {
			continue
		}
		servers[name] = url
	}
	return servers
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	switch strings.ToLower(c.AI.Provider) {
	case "openai", "gemini", "anthropic":
	default:
		return fmt.Errorf("unsupported AI provider: %s", c.AI.Provider)
	}
	if c.AI.MaxToolIterations < 1 {
		return fmt.Errorf("max tool iterations must be positive, got %d", c.AI.MaxToolIterations)
	}
	if len(c.Tools.Servers) == 0 {
		return fmt.Errorf("no tool servers configured")
	}
	if _, ok := c.Tools.Servers[c.Tools.DefaultServer]; !ok {
		return fmt.Errorf("default tool server %q is not configured", c.Tools.DefaultServer)
	}
	if c.History.MaxTurns < 1 {
		return fmt.Errorf("history retention must be positive, got %d", c.History.MaxTurns)
	}
	if c.History.Window < 1 {
		return fmt.Errorf("history window must be positive, got %d", c.History.Window)
	}
	return nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
