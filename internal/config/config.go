package config

import (
	"log"
	"os"
	"strconv"
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
	} `mapstructure:"server"`

	Database struct {
		Host           string `mapstructure:"host"`
		Port           int    `mapstructure:"port"`
		User           string `mapstructure:"user"`
		Password       string `mapstructure:"password"`
		Name           string `mapstructure:"name"`
		SSLMode        string `mapstructure:"sslmode"`
		MaxConns       int32  `mapstructure:"max_conns"`
		ConnectRetries int    `mapstructure:"connect_retries"`
	} `mapstructure:"database"`

	Redis struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	JWT struct {
		Secret          string `mapstructure:"secret"`
		ExpirationHours int    `mapstructure:"expiration_hours"`
		Issuer          string `mapstructure:"issuer"`
	} `mapstructure:"jwt"`

	// Export is the S3-compatible bucket that report archives go to.
	// Archiving is off when Bucket is empty.
	Export struct {
		Endpoint  string `mapstructure:"endpoint"`
		Region    string `mapstructure:"region"`
		Bucket    string `mapstructure:"bucket"`
		AccessKey string `mapstructure:"access_key"`
		SecretKey string `mapstructure:"secret_key"`
		Prefix    string `mapstructure:"prefix"`
	} `mapstructure:"export"`

	// Printer is the label printer bridge; label printing is off when URL is empty
	Printer struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"printer"`

	Business struct {
		Name                string        `mapstructure:"name"`
		Timezone            string        `mapstructure:"timezone"`
		PageSize            int           `mapstructure:"page_size"`
		CheckoutMaxAttempts int           `mapstructure:"checkout_max_attempts"`
		CheckoutTimeout     time.Duration `mapstructure:"checkout_timeout"`
		CheckoutBackoff     time.Duration `mapstructure:"checkout_backoff"`
		WalkInName          string        `mapstructure:"walk_in_name"`
		WalkInPhone         string        `mapstructure:"walk_in_phone"`
		ImportBatchSize     int           `mapstructure:"import_batch_size"`
	} `mapstructure:"business"`
}

func Load() *Config {
	// Load .env file if exists (ignore error in production)
	godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile("configs/config.yaml")

	v.AutomaticEnv()

	// binary works without config file
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_allowed_origins", []string{"*"})
	v.SetDefault("server.cors_allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("server.cors_allowed_headers", []string{"Authorization", "Content-Type"})
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "tailor_pos")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.connect_retries", 5)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("jwt.expiration_hours", 12)
	v.SetDefault("jwt.issuer", "tailor-pos")
	v.SetDefault("export.region", "auto")
	v.SetDefault("export.prefix", "reports/")
	v.SetDefault("business.name", "Tailor POS")
	v.SetDefault("business.timezone", "Africa/Cairo")
	v.SetDefault("business.page_size", 15)
	v.SetDefault("business.checkout_max_attempts", 5)
	v.SetDefault("business.checkout_timeout", "15s")
	v.SetDefault("business.checkout_backoff", "50ms")
	v.SetDefault("business.walk_in_name", "عميل نقدي")
	v.SetDefault("business.walk_in_phone", "Walk-in")
	v.SetDefault("business.import_batch_size", 500)

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

// applyEnv lets explicit environment variables win over the yaml file
func applyEnv(cfg *Config) {
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

	// K8s sets REDIS_SERVICE_HOST and REDIS_SERVICE_PORT for services
	if host := firstEnv("REDIS_HOST", "REDIS_SERVICE_HOST"); host != "" {
		cfg.Redis.Host = host
	}
	if port := firstEnv("REDIS_PORT", "REDIS_SERVICE_PORT"); port != "" {
		cfg.Redis.Port = port
	}
	if pass := os.Getenv("REDIS_PASSWORD"); pass != "" {
		cfg.Redis.Password = pass
	}

	if cfg.JWT.Secret == "" || cfg.JWT.Secret == "${JWT_SECRET}" {
		cfg.JWT.Secret = os.Getenv("JWT_SECRET")
		if cfg.JWT.Secret == "" {
			log.Printf("[Config] WARNING: JWT_SECRET not set, using an insecure development secret")
			cfg.JWT.Secret = "dev-secret-change-me"
		}
	}

	if v := os.Getenv("PRINTER_URL"); v != "" {
		cfg.Printer.URL = v
	}
	if v := os.Getenv("EXPORT_ENDPOINT"); v != "" {
		cfg.Export.Endpoint = v
	}
	if v := os.Getenv("EXPORT_BUCKET"); v != "" {
		cfg.Export.Bucket = v
	}
	if v := os.Getenv("EXPORT_ACCESS_KEY"); v != "" {
		cfg.Export.AccessKey = v
	}
	if v := os.Getenv("EXPORT_SECRET_KEY"); v != "" {
		cfg.Export.SecretKey = v
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
