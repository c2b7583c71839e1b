package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), true)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(filepath.Join(t.TempDir(), "nope.yaml"), false)
	assert.Error(t, err)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := writeFile(t, "turnstack.yaml", `
log_level: debug
store:
  type: redis
  redis:
    addr: redis:6379
    ttl: 1h
security:
  pii_patterns: [password]
bot:
  flows:
    - id: pizza
      title: Order a pizza
      steps:
        - key: size
          prompt: Which size?
          choices: [small, large]
      summary: One {{size}} pizza coming up.
`)
	cfg, err := Load(path, false)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, StoreRedis, cfg.Store.Type)
	assert.Equal(t, "redis:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, time.Hour, cfg.Store.Redis.TTL)
	assert.Equal(t, "turnstack:stack:", cfg.Store.Redis.Prefix, "untouched fields keep their defaults")
	assert.Equal(t, 30*time.Second, cfg.Store.Redis.LockTTL)
	assert.Equal(t, []string{"password"}, cfg.Security.PIIPatterns)

	require.Len(t, cfg.Bot.Flows, 1, "flows replace the default list")
	assert.Equal(t, "pizza", cfg.Bot.Flows[0].ID)
	assert.Equal(t, []string{"small", "large"}, cfg.Bot.Flows[0].Steps[0].Choices)
	assert.Equal(t, Default().Bot.Greeting, cfg.Bot.Greeting)
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "turnstack.json", `{"router": {"id": "concierge"}, "http": {"addr": ":9090"}}`)
	cfg, err := Load(path, false)
	require.NoError(t, err)
	assert.Equal(t, "concierge", cfg.Router.ID)
	assert.Equal(t, "DialogState", cfg.Router.Property)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"Unknown Key", "colour: blue\n", "invalid config"},
		{"Unknown Store", "store: {type: sqlite}\n", "unknown store type"},
		{"Empty Router ID", "router: {id: ''}\n", "router.id"},
		{"Bad Key", "security: {encryption_key: short}\n", "32 bytes"},
		{"Duplicate Flow", "bot: {flows: [{id: a, steps: [{key: x}]}, {id: a, steps: [{key: y}]}]}\n", "duplicate flow"},
		{"Flow Without Steps", "bot: {flows: [{id: a}]}\n", "no steps"},
		{"Bad PII Pattern", "security: {pii_patterns: ['(']}\n", "pii pattern"},
		{"Bad Duration", "store: {redis: {ttl: soon}}\n", "invalid config"},
		{"Broken YAML", "store: [\n", "failed to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "c.yaml", tt.content), false)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSecurityKeys(t *testing.T) {
	hexKey := strings.Repeat("ab", 32)
	b64Key := "MDEyMzQ1Njc4OTAxMjM0NTY3ODkwMTIzNDU2Nzg5MDE=" // "01234567890123456789012345678901"

	keys, err := SecurityConfig{EncryptionKey: hexKey, FallbackKeys: []string{b64Key}}.Keys()
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Len(t, keys[0], 32)
	assert.Equal(t, "01234567890123456789012345678901", string(keys[1]))

	keys, err = SecurityConfig{}.Keys()
	require.NoError(t, err)
	assert.Nil(t, keys)

	_, err = SecurityConfig{FallbackKeys: []string{hexKey}}.Keys()
	assert.Error(t, err)
}
