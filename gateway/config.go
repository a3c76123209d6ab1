package gateway

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// CredentialSet is the per-logical-provider credential list plus any
// extra access headers the provider needs. A provider with N entries
// in Keys expands into N workers (§4.1).
type CredentialSet struct {
	Keys    []string          `yaml:"keys" json:"keys"`
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`

	// HeaderName records how the key is attached: "bearer", "x-api-key",
	// or an arbitrary header name. When empty, expansion fills in
	// "x-api-key" for the anthropic wire family and "bearer" otherwise.
	// The built-in adapters do not read it: each passes the key to its
	// SDK's own API-key option, so a custom header name has no effect.
	HeaderName string `yaml:"header_name,omitempty" json:"header_name,omitempty"`
}

// Capabilities describes what a logical provider can serve.
type Capabilities struct {
	NativeStreaming bool `yaml:"native_streaming" json:"native_streaming"`
	ToolCalls       bool `yaml:"tool_calls" json:"tool_calls"`
	Multimodal      bool `yaml:"multimodal" json:"multimodal"`
	MaxContext      int  `yaml:"max_context" json:"max_context"`
}

// ProviderConfig is the external, input shape for one logical provider
// (§3 "Logical provider config").
type ProviderConfig struct {
	ID          string        `yaml:"id" json:"id"`
	WireFamily  WireFamily    `yaml:"wire_family" json:"wire_family"`
	Endpoint    string        `yaml:"endpoint" json:"endpoint"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	MaxRetries  int           `yaml:"max_retries" json:"max_retries"`
	Models      []string      `yaml:"models" json:"models"`
	Credentials CredentialSet `yaml:"credentials" json:"credentials"`
	Capabilities Capabilities `yaml:"capabilities" json:"capabilities"`
	Disabled    bool          `yaml:"disabled,omitempty" json:"disabled,omitempty"`

	// ConcreteModels maps a virtual name ("default", "reasoning", ...)
	// to the concrete model id this provider should use when serving
	// that category, resolved by the router at step 4 (§4.3).
	ConcreteModels map[string]string `yaml:"concrete_models,omitempty" json:"concrete_models,omitempty"`
}

// CategoryEntry is one candidate worker reference in a routing table
// (§3 "Routing table"), before expansion rewrites provider ids into
// worker ids.
type CategoryEntry struct {
	ProviderID         string `yaml:"provider_id" json:"provider_id"`
	Priority           int    `yaml:"priority" json:"priority"`
	Weight             float64 `yaml:"weight" json:"weight"`
	SecurityEnhanced   bool   `yaml:"security_enhanced,omitempty" json:"security_enhanced,omitempty"`
}

// GatewayConfig is the top-level, file-loadable configuration: the set
// of logical providers plus the routing table skeleton (keyed by
// category, pre-expansion).
type GatewayConfig struct {
	Providers     []ProviderConfig           `yaml:"providers" json:"providers"`
	RoutingTable  map[Category][]CategoryEntry `yaml:"routing_table" json:"routing_table"`

	SelectionPolicy     string        `yaml:"selection_policy" json:"selection_policy"` // round-robin|least-loaded|random|priority
	LongContextTokens   int           `yaml:"long_context_tokens" json:"long_context_tokens"`
	RateLimitCooldown   time.Duration `yaml:"rate_limit_cooldown" json:"rate_limit_cooldown"`
	AuthRetryCooldown   time.Duration `yaml:"auth_retry_cooldown" json:"auth_retry_cooldown"`
	HealthCheckInterval time.Duration `yaml:"health_check_interval" json:"health_check_interval"`
}

// LoadConfig reads a YAML document from path and applies environment
// variable overlays for provider endpoints and credentials, the way
// the teacher's main.go loads a .env file before reading process
// environment (godotenv.Load is best-effort: a missing .env is not an
// error, and an unset overlay variable leaves the file's value as is).
func LoadConfig(path string) (*GatewayConfig, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg GatewayConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyEnvOverlay(&cfg)

	if cfg.SelectionPolicy == "" {
		cfg.SelectionPolicy = "round-robin"
	}
	if cfg.LongContextTokens == 0 {
		cfg.LongContextTokens = 60000
	}
	if cfg.RateLimitCooldown == 0 {
		cfg.RateLimitCooldown = 60 * time.Second
	}
	if cfg.AuthRetryCooldown == 0 {
		cfg.AuthRetryCooldown = 5 * time.Minute
	}
	if cfg.HealthCheckInterval == 0 {
		cfg.HealthCheckInterval = 30 * time.Second
	}

	return &cfg, nil
}

// applyEnvOverlay lets BASE_URL and API_KEY overrides per provider be
// supplied via environment variables named
// "<PROVIDER_ID>_BASE_URL"/"<PROVIDER_ID>_API_KEY", read once at
// startup (§6: "Environment variables recognized (read once at
// startup)... unknown variables are ignored").
func applyEnvOverlay(cfg *GatewayConfig) {
	for i := range cfg.Providers {
		p := &cfg.Providers[i]
		envPrefix := envSafe(p.ID)

		if v := os.Getenv(envPrefix + "_BASE_URL"); v != "" {
			p.Endpoint = v
		}
		if v := os.Getenv(envPrefix + "_API_KEY"); v != "" {
			p.Credentials.Keys = []string{v}
		}
	}
}

func envSafe(id string) string {
	out := make([]byte, len(id))
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z':
			out[i] = c - 'a' + 'A'
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			out[i] = c
		default:
			out[i] = '_'
		}
	}
	return string(out)
}
