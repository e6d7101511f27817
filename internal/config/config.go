package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"  validate:"required"`
	Auth    AuthConfig    `mapstructure:"auth"    validate:"required"`
	Task    TaskConfig    `mapstructure:"task"    validate:"required"`
	Cache   CacheConfig   `mapstructure:"cache"   validate:"required"`
	Content ContentConfig `mapstructure:"content" validate:"required"`
	Video   VideoConfig   `mapstructure:"video"   validate:"required"`
	Upload  UploadConfig  `mapstructure:"upload"`
	History HistoryConfig `mapstructure:"history" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// AuthConfig contains dashboard authentication settings. The admin
// password hash is a bcrypt hash; login exchanges the password for a JWT.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"            validate:"required,min=32"`
	AdminPasswordHash    string `mapstructure:"admin_password_hash"   validate:"required"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
}

// TaskConfig tunes the asynchronous task service.
type TaskConfig struct {
	WorkerCount int `mapstructure:"worker_count" validate:"required,gt=0"`
	QueueSize   int `mapstructure:"queue_size"   validate:"required,gt=0"`
}

// CacheConfig controls the file-backed response cache.
type CacheConfig struct {
	Dir        string  `mapstructure:"dir"         validate:"required"`
	TTLSeconds int     `mapstructure:"ttl_seconds" validate:"required,gt=0"`
	MaxSizeMB  float64 `mapstructure:"max_size_mb" validate:"required,gt=0"`
}

// ContentConfig contains script generation settings.
type ContentConfig struct {
	GeminiAPIKey      string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName         string `mapstructure:"model_name"     validate:"required"`
	Topic             string `mapstructure:"topic"          validate:"required"`
	Frequency         string `mapstructure:"frequency"      validate:"required,oneof=daily weekly"`
	AffiliateTag      string `mapstructure:"affiliate_tag"  validate:"required"`
	MaxRetries        int    `mapstructure:"max_retries"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds"`
}

// VideoConfig contains rendering settings.
type VideoConfig struct {
	OutputDir string `mapstructure:"output_dir" validate:"required"`
	Privacy   string `mapstructure:"privacy"    validate:"required,oneof=public unlisted private"`
}

// UploadConfig points at the OAuth material for the YouTube upload step.
// Both paths may be empty when uploading is disabled.
type UploadConfig struct {
	ClientSecretsFile string `mapstructure:"client_secrets_file"`
	TokenFile         string `mapstructure:"token_file"`
}

// HistoryConfig controls the run history store.
type HistoryConfig struct {
	Dir string `mapstructure:"dir" validate:"required"`
}
