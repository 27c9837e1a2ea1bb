package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/meetpoint/service-meeting/internal/platform/database"
	"github.com/spf13/viper"
)

// ServiceConfig holds all configuration for the meeting service.
type ServiceConfig struct {
	Port           string
	AppEnv         string
	DBConfig       database.PostgresConfig
	JWTConfig      JWTConfig
	KafkaConfig    KafkaConfig
	GeocoderConfig GeocoderConfig
	// CORSOrigins lists allowed browser origins; empty allows any.
	CORSOrigins    []string
	MigrationsDir  string
}

// JWTConfig holds token settings.
type JWTConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// KafkaConfig holds broker settings.
type KafkaConfig struct {
	Brokers     []string
	GroupPrefix string
}

// GeocoderConfig holds the upstream geocoder settings.
type GeocoderConfig struct {
	BaseURL       string
	APIKey        string
	Results       int
	RatePerSecond float64
	Timeout       time.Duration
}

// Load reads configuration from an optional .env file and MEETING_* environment variables.
func Load() (*ServiceConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("MEETING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &ServiceConfig{
		Port:   ":" + strings.TrimPrefix(v.GetString("service_port"), ":"),
		AppEnv: v.GetString("app_env"),
		DBConfig: database.PostgresConfig{
			Host:     v.GetString("db_host"),
			Port:     v.GetString("db_port"),
			User:     v.GetString("db_user"),
			Password: v.GetString("db_password"),
			DBName:   v.GetString("db_name"),
			SSLMode:  v.GetString("db_sslmode"),
		},
		JWTConfig: JWTConfig{
			Secret:     v.GetString("jwt_secret"),
			AccessTTL:  v.GetDuration("jwt_access_ttl"),
			RefreshTTL: v.GetDuration("jwt_refresh_ttl"),
		},
		KafkaConfig: KafkaConfig{
			Brokers:     splitList(v.GetString("kafka_brokers")),
			GroupPrefix: v.GetString("kafka_group_prefix"),
		},
		GeocoderConfig: GeocoderConfig{
			BaseURL:       v.GetString("geocoder_url"),
			APIKey:        v.GetString("geocoder_api_key"),
			Results:       v.GetInt("geocoder_results"),
			RatePerSecond: v.GetFloat64("geocoder_rps"),
			Timeout:       v.GetDuration("geocoder_timeout"),
		},
		CORSOrigins:   splitList(v.GetString("cors_origins")),
		MigrationsDir: v.GetString("migrations_dir"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_port", "8080")
	v.SetDefault("app_env", "development")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "postgres")
	v.SetDefault("db_password", "postgres")
	v.SetDefault("db_name", "meeting_db")
	v.SetDefault("db_sslmode", "disable")
	v.SetDefault("jwt_access_ttl", 15*time.Minute)
	v.SetDefault("jwt_refresh_ttl", 7*24*time.Hour)
	v.SetDefault("kafka_brokers", "localhost:9092")
	v.SetDefault("kafka_group_prefix", "meetpoint-")
	v.SetDefault("geocoder_url", "https://geocode-maps.yandex.ru/1.x/")
	v.SetDefault("geocoder_results", 10)
	v.SetDefault("geocoder_rps", 5)
	v.SetDefault("geocoder_timeout", 5*time.Second)
	v.SetDefault("cors_origins", "")
	v.SetDefault("migrations_dir", "migrations")
}

func (c *ServiceConfig) validate() error {
	if c.JWTConfig.Secret == "" {
		return errors.New("MEETING_JWT_SECRET is required")
	}
	if c.AppEnv != "development" && len(c.JWTConfig.Secret) < 32 {
		return errors.New("MEETING_JWT_SECRET must be at least 32 characters outside development")
	}
	if len(c.KafkaConfig.Brokers) == 0 {
		return errors.New("MEETING_KAFKA_BROKERS is required")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
