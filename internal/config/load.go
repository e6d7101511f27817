package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and optionally a
// config file. Environment variables take precedence over values from the
// config file. Returns a populated Config or an error if loading or
// validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Optional config.yaml next to the binary or in the working directory.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No file is fine, env vars carry the required settings.
	}

	// CLIPFORGE_SERVER_PORT maps to server.port and so on.
	v.SetEnvPrefix("CLIPFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	// Empty defaults register the secret-bearing keys with viper so
	// AutomaticEnv can populate them during Unmarshal.
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.admin_password_hash", "")
	v.SetDefault("auth.token_lifetime_minutes", 60)

	v.SetDefault("task.worker_count", 1)
	v.SetDefault("task.queue_size", 100)

	v.SetDefault("cache.dir", ".cache")
	v.SetDefault("cache.ttl_seconds", 3600)
	v.SetDefault("cache.max_size_mb", 100)

	v.SetDefault("content.gemini_api_key", "")
	v.SetDefault("content.model_name", "gemini-2.0-flash")
	v.SetDefault("content.topic", "technology")
	v.SetDefault("content.frequency", "daily")
	v.SetDefault("content.affiliate_tag", "youraffid-20")
	v.SetDefault("content.max_retries", 3)
	v.SetDefault("content.retry_delay_seconds", 2)

	v.SetDefault("video.output_dir", "generated_videos")
	v.SetDefault("video.privacy", "public")

	v.SetDefault("upload.client_secrets_file", "")
	v.SetDefault("upload.token_file", "")

	v.SetDefault("history.dir", ".history")
}
