package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MEETING_JWT_SECRET", "dev-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "meeting_db", cfg.DBConfig.DBName)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaConfig.Brokers)
	assert.Equal(t, 15*time.Minute, cfg.JWTConfig.AccessTTL)
	assert.Equal(t, "https://geocode-maps.yandex.ru/1.x/", cfg.GeocoderConfig.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.GeocoderConfig.Timeout)
	assert.Empty(t, cfg.CORSOrigins)
	assert.Equal(t, "migrations", cfg.MigrationsDir)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MEETING_JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("MEETING_APP_ENV", "production")
	t.Setenv("MEETING_SERVICE_PORT", ":9000")
	t.Setenv("MEETING_KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("MEETING_GEOCODER_RPS", "2.5")
	t.Setenv("MEETING_CORS_ORIGINS", "https://meetpoint.app")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaConfig.Brokers)
	assert.Equal(t, 2.5, cfg.GeocoderConfig.RatePerSecond)
	assert.Equal(t, []string{"https://meetpoint.app"}, cfg.CORSOrigins)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing secret", map[string]string{"MEETING_JWT_SECRET": ""}, "MEETING_JWT_SECRET is required"},
		{"short secret in production", map[string]string{"MEETING_JWT_SECRET": "short", "MEETING_APP_ENV": "production"}, "at least 32"},
		{"no brokers", map[string]string{"MEETING_JWT_SECRET": "x", "MEETING_KAFKA_BROKERS": " , "}, "MEETING_KAFKA_BROKERS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
