package config

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for a config file when none is given.
const DefaultPath = "turnstack.yaml"

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Config is the full runtime configuration of the turnstack binary.
type Config struct {
	LogLevel string         `mapstructure:"log_level"`
	Router   RouterConfig   `mapstructure:"router"`
	Store    StoreConfig    `mapstructure:"store"`
	Security SecurityConfig `mapstructure:"security"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Bot      BotConfig      `mapstructure:"bot"`
}

// RouterConfig names the root dialog and the state property it is stored under.
type RouterConfig struct {
	ID       string `mapstructure:"id"`
	Property string `mapstructure:"property"`
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Type  string      `mapstructure:"type"`
	Dir   string      `mapstructure:"dir"`
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig configures the redis store and the distributed turn lock.
type RedisConfig struct {
	Addr       string        `mapstructure:"addr"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	Prefix     string        `mapstructure:"prefix"`
	TTL        time.Duration `mapstructure:"ttl"`
	LockPrefix string        `mapstructure:"lock_prefix"`
	LockTTL    time.Duration `mapstructure:"lock_ttl"`
}

// SecurityConfig enables the persistence middlewares.
type SecurityConfig struct {
	// EncryptionKey is a 32-byte AES key, hex or base64 encoded. Empty disables encryption.
	EncryptionKey string   `mapstructure:"encryption_key"`
	FallbackKeys  []string `mapstructure:"fallback_keys"`
	PIIPatterns   []string `mapstructure:"pii_patterns"`
}

// HTTPConfig configures the serve command.
type HTTPConfig struct {
	Addr        string `mapstructure:"addr"`
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// BotConfig defines the demo menu bot.
type BotConfig struct {
	Greeting   string       `mapstructure:"greeting"`
	MenuPrompt string       `mapstructure:"menu_prompt"`
	Flows      []FlowConfig `mapstructure:"flows"`
}

// FlowConfig is one menu entry: a sequence of questions followed by a summary.
type FlowConfig struct {
	ID      string       `mapstructure:"id"`
	Title   string       `mapstructure:"title"`
	Steps   []StepConfig `mapstructure:"steps"`
	Summary string       `mapstructure:"summary"`
}

// StepConfig is one question of a flow.
type StepConfig struct {
	Key         string   `mapstructure:"key"`
	Prompt      string   `mapstructure:"prompt"`
	RetryPrompt string   `mapstructure:"retry_prompt"`
	Choices     []string `mapstructure:"choices"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Router: RouterConfig{
			ID:       "main",
			Property: "DialogState",
		},
		Store: StoreConfig{
			Type: StoreMemory,
			Dir:  ".turnstack/conversations",
			Redis: RedisConfig{
				Addr:       "localhost:6379",
				Prefix:     "turnstack:stack:",
				LockPrefix: "turnstack:",
				LockTTL:    30 * time.Second,
			},
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		Bot: BotConfig{
			Greeting:   "Hi! I'm the turnstack demo bot.",
			MenuPrompt: "What would you like to do?",
			Flows: []FlowConfig{
				{
					ID:    "profile",
					Title: "Tell me about yourself",
					Steps: []StepConfig{
						{Key: "name", Prompt: "What's your name?"},
						{Key: "color", Prompt: "Favorite color?", RetryPrompt: "Please pick red, green or blue.", Choices: []string{"red", "green", "blue"}},
					},
					Summary: "Nice to meet you, {{name}}. {{color}} it is.",
				},
			},
		},
	}
}

// Load reads a configuration file (YAML or JSON by extension) on top of Default.
// A missing file is not an error when allowMissing is set.
func Load(path string, allowMissing bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && allowMissing {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	raw := map[string]any{}
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	} else {
		// Default to YAML
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	}

	if err := Decode(raw, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode merges a generic map into cfg. Durations accept Go syntax ("30s").
// Unknown keys are rejected.
func Decode(raw map[string]any, cfg *Config) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		ZeroFields:       true, // lists in the file replace the defaults
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(raw); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Store.Type {
	case StoreMemory, StoreFile, StoreRedis:
	default:
		return fmt.Errorf("invalid config: unknown store type %q", c.Store.Type)
	}
	if c.Router.ID == "" {
		return fmt.Errorf("invalid config: router.id cannot be empty")
	}
	if _, err := c.Security.Keys(); err != nil {
		return err
	}
	for _, p := range c.Security.PIIPatterns {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("invalid config: pii pattern %q: %w", p, err)
		}
	}

	seen := map[string]bool{}
	for _, f := range c.Bot.Flows {
		if f.ID == "" {
			return fmt.Errorf("invalid config: flow without id")
		}
		if seen[f.ID] {
			return fmt.Errorf("invalid config: duplicate flow %q", f.ID)
		}
		seen[f.ID] = true
		if len(f.Steps) == 0 {
			return fmt.Errorf("invalid config: flow %q has no steps", f.ID)
		}
	}
	return nil
}

// Keys decodes the encryption keys; keys[0] is the active one. It returns nil when
// encryption is disabled.
func (s SecurityConfig) Keys() (keys [][]byte, err error) {
	if s.EncryptionKey == "" {
		if len(s.FallbackKeys) > 0 {
			return nil, fmt.Errorf("invalid config: fallback_keys require encryption_key")
		}
		return nil, nil
	}
	for i, encoded := range append([]string{s.EncryptionKey}, s.FallbackKeys...) {
		key, err := decodeKey(encoded)
		if err != nil {
			return nil, fmt.Errorf("invalid config: encryption key #%d: %w", i, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func decodeKey(s string) ([]byte, error) {
	if b, err := hex.DecodeString(s); err == nil && len(b) == 32 {
		return b, nil
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil && len(b) == 32 {
		return b, nil
	}
	return nil, fmt.Errorf("must be 32 bytes, hex or base64 encoded")
}
