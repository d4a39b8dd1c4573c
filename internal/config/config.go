package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port               int      `mapstructure:"port"`
		CorsAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
		CorsAllowedMethods []string `mapstructure:"cors_allowed_methods"`
		CorsAllowedHeaders []string `mapstructure:"cors_allowed_headers"`
		MaxUploadMB        int64    `mapstructure:"max_upload_mb"`
	} `mapstructure:"server"`

	Database struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
		MaxConns int32  `mapstructure:"max_conns"`
	} `mapstructure:"database"`

	JWT struct {
		Secret          string `mapstructure:"secret"`
		ExpirationHours int    `mapstructure:"expiration_hours"`
		Issuer          string `mapstructure:"issuer"`
	} `mapstructure:"jwt"`

	Redis struct {
		Addr              string `mapstructure:"addr"`
		Password          string `mapstructure:"password"`
		DB                int    `mapstructure:"db"`
		SummaryTTLSeconds int    `mapstructure:"summary_ttl_seconds"`
	} `mapstructure:"redis"`

	R2 R2Config `mapstructure:"r2"`

	Shop struct {
		Name    string `mapstructure:"name"`
		Address string `mapstructure:"address"`
		Phone   string `mapstructure:"phone"`
		Zone    string `mapstructure:"zone"`
	} `mapstructure:"shop"`

	Client ClientConfig `mapstructure:"client"`
}

// ClientConfig drives the fixtrack terminal client
type ClientConfig struct {
	APIURL         string `mapstructure:"api_url"`
	DurableDir     string `mapstructure:"durable_dir"`
	EphemeralDir   string `mapstructure:"ephemeral_dir"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	DebounceMillis int    `mapstructure:"debounce_millis"`
	PageSize       int    `mapstructure:"page_size"`
	// SharedSessions keeps the durable session in Redis so every counter
	// terminal of the shop sees the same login
	SharedSessions bool `mapstructure:"shared_sessions"`
}

func (c ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c ClientConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMillis) * time.Millisecond
}

// DSN returns the pgx connection string
func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// TokenTTL is the lifetime of issued tokens
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWT.ExpirationHours) * time.Hour
}

// SummaryTTL is how long the dashboard summary stays cached
func (c *Config) SummaryTTL() time.Duration {
	return time.Duration(c.Redis.SummaryTTLSeconds) * time.Second
}

func setDefaults(v *viper.Viper) {
	// Sensible defaults (binary works without config file)
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.cors_allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.cors_allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("server.cors_allowed_headers", []string{"Authorization", "Content-Type"})
	v.SetDefault("server.max_upload_mb", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "fixtrack")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("jwt.expiration_hours", 24)
	v.SetDefault("jwt.issuer", "fixtrack")
	v.SetDefault("redis.summary_ttl_seconds", 60)
	v.SetDefault("r2.region", "auto")
	v.SetDefault("shop.name", "FixTrack Pro")
	v.SetDefault("shop.zone", "Asia/Kolkata")
	v.SetDefault("client.api_url", "http://localhost:5000/api")
	v.SetDefault("client.timeout_seconds", 30)
	v.SetDefault("client.debounce_millis", 500)
	v.SetDefault("client.page_size", 10)
}

// Load reads configs/config.yaml (or FIXTRACK_CONFIG) when present, then
// applies environment overrides.
func Load() *Config {
	// Load .env file if exists (ignore error in production)
	godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	path := os.Getenv("FIXTRACK_CONFIG")
	if path == "" {
		path = "configs/config.yaml"
	}
	v.SetConfigFile(path)

	// Auto bind environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		log.Printf("[Config] No config file found, using defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("config unmarshal error: %v", err)
	}

	applyEnv(&cfg)
	return &cfg
}

func applyEnv(cfg *Config) {
	// Override database settings from DB_* environment variables
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Database.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil && n > 0 {
			cfg.Database.Port = n
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.Database.User = user
	}
	if pass := os.Getenv("DB_PASSWORD"); pass != "" {
		cfg.Database.Password = pass
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Database.Name = name
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWT.Secret = secret
	}
	if cfg.JWT.Secret == "${JWT_SECRET}" {
		cfg.JWT.Secret = ""
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if pass := os.Getenv("REDIS_PASSWORD"); pass != "" {
		cfg.Redis.Password = pass
	}

	cfg.R2.applyEnv()

	if zone := os.Getenv("SHOP_ZONE"); zone != "" {
		cfg.Shop.Zone = zone
	}
	if url := os.Getenv("FIXTRACK_API_URL"); url != "" {
		cfg.Client.APIURL = url
	}
}
