package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

type CacheType string

const (
	CacheTypeMemory CacheType = "memory"
	CacheTypeRedis  CacheType = "redis"
)

type DatabaseDriver string

const (
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"
	DatabaseDriverPostgres DatabaseDriver = "postgres"
)

type MediaBackend string

const (
	MediaBackendLocal MediaBackend = "local"
	MediaBackendS3    MediaBackend = "s3"
)

// Config holds the configuration for the Wanderlust server and its dependencies.
type Config struct {
	// Listen is the address the server will listen on.
	Listen string `yaml:"listen" mapstructure:"listen"`
	// ServerURL is the public base URL of the server. Image references are built from it.
	ServerURL string `yaml:"server_url" mapstructure:"server_url"`
	// LogLevel is the default log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
	// CORS holds the cross-origin configuration for the single page application.
	CORS *CORSConfig `yaml:"cors" mapstructure:"cors"`
	// Database holds the database configuration.
	Database *DatabaseConfig `yaml:"database" mapstructure:"database"`
	// Auth holds the token and password hashing configuration.
	Auth *AuthConfig `yaml:"auth" mapstructure:"auth"`
	// Media holds the image storage configuration.
	Media *MediaConfig `yaml:"media" mapstructure:"media"`
	// Cache holds the feed cache configuration.
	Cache *CacheConfig `yaml:"cache" mapstructure:"cache"`
	// Email holds the email notification configuration.
	Email *EmailConfig `yaml:"email" mapstructure:"email"`
	// Gravatar holds the configuration for Gravatar profile pictures.
	Gravatar *GravatarConfig `yaml:"gravatar" mapstructure:"gravatar"`
}

// CORSConfig holds the allowed origins for browser clients.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// DatabaseConfig holds the database configuration.
type DatabaseConfig struct {
	// Driver is either "sqlite" or "postgres".
	Driver DatabaseDriver `yaml:"driver" mapstructure:"driver"`
	// Path is the path to the sqlite database file.
	Path string `yaml:"path" mapstructure:"path"`
	// DSN is the postgres connection string.
	DSN string `yaml:"dsn" mapstructure:"dsn"`
}

// AuthConfig holds the authentication configuration.
type AuthConfig struct {
	// JWTSecret is the HMAC key used to sign identity tokens.
	JWTSecret string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	// TokenTTL is how long an issued token stays valid.
	TokenTTL time.Duration `yaml:"token_ttl" mapstructure:"token_ttl"`
	// BcryptCost is the bcrypt work factor for password hashes.
	BcryptCost int `yaml:"bcrypt_cost" mapstructure:"bcrypt_cost"`
}

// MediaConfig holds the configuration of the media relay.
type MediaConfig struct {
	// Backend selects the storage backend, "local" or "s3".
	Backend MediaBackend `yaml:"backend" mapstructure:"backend"`
	// MaxUploadSize is the maximum accepted upload size in bytes.
	MaxUploadSize int64 `yaml:"max_upload_size" mapstructure:"max_upload_size"`
	// MaxWidth and MaxHeight bound stored images. Larger uploads are downscaled. 0 disables scaling.
	MaxWidth  int `yaml:"max_width" mapstructure:"max_width"`
	MaxHeight int `yaml:"max_height" mapstructure:"max_height"`
	// MaxPixels rejects uploads whose width times height exceeds it. 0 disables the check.
	MaxPixels int64 `yaml:"max_pixels" mapstructure:"max_pixels"`
	// DefaultImage is the asset name or absolute URL used when a story is edited without an image.
	DefaultImage string `yaml:"default_image" mapstructure:"default_image"`
	// Local holds the filesystem backend configuration.
	Local *LocalStorageConfig `yaml:"local" mapstructure:"local"`
	// S3 holds the S3 backend configuration.
	S3 *S3StorageConfig `yaml:"s3" mapstructure:"s3"`
	// Janitor holds the configuration of the orphaned upload sweep.
	Janitor *JanitorConfig `yaml:"janitor" mapstructure:"janitor"`
}

// LocalStorageConfig holds the filesystem storage configuration.
type LocalStorageConfig struct {
	// Dir is the directory uploads are written to.
	Dir string `yaml:"dir" mapstructure:"dir"`
	// MinFreeSpace is the free disk space in bytes below which uploads are refused.
	MinFreeSpace uint64 `yaml:"min_free_space" mapstructure:"min_free_space"`
}

// S3StorageConfig holds the configuration for an S3 compatible object store.
type S3StorageConfig struct {
	Bucket    string `yaml:"bucket" mapstructure:"bucket"`
	Region    string `yaml:"region" mapstructure:"region"`
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKey string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
	// UsePathStyle is required by most self-hosted stores like MinIO.
	UsePathStyle bool `yaml:"use_path_style" mapstructure:"use_path_style"`
}

// JanitorConfig holds the configuration of the orphaned upload sweep.
type JanitorConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Schedule is a 5 field cron expression.
	Schedule string `yaml:"schedule" mapstructure:"schedule"`
	// GracePeriod protects fresh uploads that are not yet attached to a story.
	GracePeriod time.Duration `yaml:"grace_period" mapstructure:"grace_period"`
}

// CacheConfig holds the cache engine configuration.
type CacheConfig struct {
	// Type is the type of cache engine to use (e.g., "memory", "redis").
	Type CacheType `yaml:"type" mapstructure:"type"`
	// RedisURL is the address of the Redis server if using Redis.
	RedisURL string `yaml:"redis_url" mapstructure:"redis_url"`
	// TTL is the lifetime of a cached feed.
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// EmailConfig holds the email notification configuration.
type EmailConfig struct {
	// Enabled indicates whether email notifications are enabled.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// SMTPHost is the SMTP server host.
	SMTPHost string `yaml:"smtp_host" mapstructure:"smtp_host"`
	// SMTPPort is the SMTP server port.
	SMTPPort int `yaml:"smtp_port" mapstructure:"smtp_port"`
	// Username is the SMTP username.
	Username string `yaml:"username" mapstructure:"username"`
	// Password is the SMTP password.
	Password string `yaml:"password" mapstructure:"password"`
	// FromEmail is the email address from which notifications are sent.
	FromEmail string `yaml:"from_email" mapstructure:"from_email"`
	// FromName is the name from which notifications are sent.
	FromName string `yaml:"from_name" mapstructure:"from_name"`
	// UseTLS indicates whether to use TLS for the SMTP connection.
	UseTLS bool `yaml:"use_tls" mapstructure:"use_tls"`
	// UseSSL indicates whether to use SSL for the SMTP connection.
	UseSSL bool `yaml:"use_ssl" mapstructure:"use_ssl"`
	// InsecureSkipVerify indicates whether to skip TLS certificate verification.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify" mapstructure:"insecure_skip_verify"`
}

// GravatarConfig holds the configuration for Gravatar profile pictures.
type GravatarConfig struct {
	// Enabled indicates whether Gravatar support is enabled.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// DefaultImage is the default image to use when no Gravatar is found.
	// Valid values: "404", "mp", "identicon", "monsterid", "wavatar", "retro", "robohash", "blank"
	DefaultImage string `yaml:"default_image" mapstructure:"default_image"`
	// Rating is the maximum rating for Gravatar images.
	// Valid values: "g", "pg", "r", "x"
	Rating string `yaml:"rating" mapstructure:"rating"`
	// Size is the size of the Gravatar image in pixels (1-2048).
	Size int `yaml:"size" mapstructure:"size"`
}

// Load reads the configuration from path, or searches the default locations if path is empty.
func Load(path string) (*Config, error) {
	v := viper.New()

	bindNestedEnv(v)
	setDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvPrefix("WANDERLUST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var configFileFound bool
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.wanderlust")
		v.AddConfigPath("/etc/wanderlust")
	}

	if err := v.ReadInConfig(); err != nil {
		// If no config file is found, use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		configFileFound = true
	}

	if configFileFound {
		log.Debug("Using config file", "file", v.ConfigFileUsed())
		log.Debug("Environment variables with the WANDERLUST_ prefix override config file values")
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	sanitizeConfig(&c)

	if err := validateConfig(&c); err != nil {
		return nil, err
	}

	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", ":3000")
	v.SetDefault("server_url", "http://localhost:3000")
	v.SetDefault("log_level", "info")

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:5173"})

	v.SetDefault("database.driver", string(DatabaseDriverSQLite))
	v.SetDefault("database.path", "./data/wanderlust.db")
	v.SetDefault("database.dsn", "")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.bcrypt_cost", 10)

	v.SetDefault("media.backend", string(MediaBackendLocal))
	v.SetDefault("media.max_upload_size", 10<<20) // 10 MiB
	v.SetDefault("media.max_width", 1920)
	v.SetDefault("media.max_height", 1920)
	v.SetDefault("media.max_pixels", 40_000_000)
	v.SetDefault("media.default_image", "wanderlust.jpeg")
	v.SetDefault("media.local.dir", "./data/uploads")
	v.SetDefault("media.local.min_free_space", 100<<20) // 100 MiB
	v.SetDefault("media.s3.bucket", "")
	v.SetDefault("media.s3.region", "us-east-1")
	v.SetDefault("media.s3.endpoint", "")
	v.SetDefault("media.s3.access_key", "")
	v.SetDefault("media.s3.secret_key", "")
	v.SetDefault("media.s3.use_path_style", true)
	v.SetDefault("media.janitor.enabled", true)
	v.SetDefault("media.janitor.schedule", "30 3 * * *")
	v.SetDefault("media.janitor.grace_period", 24*time.Hour)

	v.SetDefault("cache.type", string(CacheTypeMemory))
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", 5*time.Minute)

	v.SetDefault("email.enabled", false)
	v.SetDefault("email.smtp_host", "")
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.username", "")
	v.SetDefault("email.password", "")
	v.SetDefault("email.from_email", "")
	v.SetDefault("email.from_name", "Wanderlust")
	v.SetDefault("email.use_tls", true)
	v.SetDefault("email.use_ssl", false)
	v.SetDefault("email.insecure_skip_verify", false)

	v.SetDefault("gravatar.enabled", false)
	v.SetDefault("gravatar.default_image", "identicon")
	v.SetDefault("gravatar.rating", "g")
	v.SetDefault("gravatar.size", 80)
}

// bind nested env vars that AutomaticEnv does not pick up on Unmarshal
func bindNestedEnv(v *viper.Viper) {
	v.MustBindEnv("auth.jwt_secret", "WANDERLUST_AUTH_JWT_SECRET")
	v.MustBindEnv("database.dsn", "WANDERLUST_DATABASE_DSN")
	v.MustBindEnv("media.s3.access_key", "WANDERLUST_MEDIA_S3_ACCESS_KEY")
	v.MustBindEnv("media.s3.secret_key", "WANDERLUST_MEDIA_S3_SECRET_KEY")
	v.MustBindEnv("email.password", "WANDERLUST_EMAIL_PASSWORD")
	v.MustBindEnv("cache.redis_url", "WANDERLUST_CACHE_REDIS_URL")
}

func validateConfig(c *Config) error {
	if c == nil {
		return fmt.Errorf("missing wanderlust config")
	}

	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}

	if c.ServerURL == "" {
		return fmt.Errorf("server URL is required")
	}

	if c.Auth == nil || c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth jwt secret is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth token ttl must be greater than 0")
	}

	if c.Database == nil {
		return fmt.Errorf("missing database config")
	}
	switch c.Database.Driver {
	case DatabaseDriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database path is required for the sqlite driver")
		}
	case DatabaseDriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	if c.Media == nil {
		return fmt.Errorf("missing media config")
	}
	if c.Media.MaxUploadSize <= 0 {
		return fmt.Errorf("media max upload size must be greater than 0")
	}
	if c.Media.MaxPixels < 0 {
		return fmt.Errorf("media max pixels must not be negative")
	}
	switch c.Media.Backend {
	case MediaBackendLocal:
		if c.Media.Local == nil || c.Media.Local.Dir == "" {
			return fmt.Errorf("media local dir is required for the local backend")
		}
	case MediaBackendS3:
		if c.Media.S3 == nil || c.Media.S3.Bucket == "" {
			return fmt.Errorf("media s3 bucket is required for the s3 backend")
		}
		if c.Media.S3.Region == "" {
			return fmt.Errorf("media s3 region is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown media backend %q", c.Media.Backend)
	}

	if c.Media.Janitor != nil && c.Media.Janitor.Enabled {
		if len(strings.Fields(c.Media.Janitor.Schedule)) != 5 {
			return fmt.Errorf("janitor schedule must be a valid cron expression with 5 fields (minute hour day month weekday)")
		}
	}

	if c.Cache != nil {
		if c.Cache.Type == "" {
			return fmt.Errorf("cache type is required when cache is enabled")
		}
		if c.Cache.Type == CacheTypeRedis && c.Cache.RedisURL == "" {
			return fmt.Errorf("Redis URL is required when Redis cache is enabled") //nolint:staticcheck
		}
	} else {
		c.Cache = &CacheConfig{
			Type: CacheTypeMemory,
			TTL:  5 * time.Minute,
		}
	}

	if c.Email != nil && c.Email.Enabled {
		if c.Email.SMTPHost == "" {
			return fmt.Errorf("SMTP host is required when email is enabled") //nolint:staticcheck
		}
		if c.Email.FromEmail == "" {
			return fmt.Errorf("from email is required when email is enabled")
		}
	}

	return nil
}

func sanitizeConfig(c *Config) {
	if c == nil {
		return
	}

	c.Listen = strings.TrimSpace(c.Listen)
	c.ServerURL = urlSanitize(c.ServerURL)

	if c.CORS != nil {
		for i, origin := range c.CORS.AllowedOrigins {
			c.CORS.AllowedOrigins[i] = urlSanitize(origin)
		}
	}

	if c.Media != nil && c.Media.S3 != nil {
		c.Media.S3.Endpoint = urlSanitize(c.Media.S3.Endpoint)
	}
}

func urlSanitize(url string) string {
	return strings.TrimSuffix(strings.TrimSpace(url), "/")
}

// UploadURL returns the public URL of an uploaded object.
func (c *Config) UploadURL(key string) string {
	return c.ServerURL + "/uploads/" + key
}

// DefaultImageURL returns the public URL of the default story image.
// An absolute URL is used as is, anything else names an embedded asset.
func (c *Config) DefaultImageURL() string {
	name := "wanderlust.jpeg"
	if c.Media != nil && c.Media.DefaultImage != "" {
		name = c.Media.DefaultImage
	}
	if strings.Contains(name, "://") {
		return name
	}
	return c.ServerURL + "/assets/" + name
}
