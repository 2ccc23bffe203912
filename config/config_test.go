package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("ENVIRONMENT", "development")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "5001", cfg.ServerPort)
	assert.Equal(t, 5*time.Minute, cfg.QueueInterval)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("QUEUE_INTERVAL_MINUTES", "1")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_DB", "not-a-number")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, time.Minute, cfg.QueueInterval)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 0, cfg.Redis.DB)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing db password", map[string]string{"DB_PASSWORD": ""}},
		{"zero interval", map[string]string{"DB_PASSWORD": "x", "QUEUE_INTERVAL_MINUTES": "0"}},
		{"production without llm key", map[string]string{"DB_PASSWORD": "x", "ENVIRONMENT": "production", "LLM_API_KEY": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestMaskPassword(t *testing.T) {
	cfg := &Config{DBHost: "db", DBPort: "5432", DBUser: "app", DBPassword: "hunter2", DBName: "reach", DBSSLMode: "disable"}

	masked := maskPassword(cfg.DSN())
	assert.NotContains(t, masked, "hunter2")
	assert.Contains(t, masked, "password=*****")
	assert.Contains(t, masked, "dbname=reach")
}
