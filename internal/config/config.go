package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type APIConfig struct {
	BaseURL    string
	Timeout    time.Duration
	Retries    uint
	RetryDelay time.Duration
}

type StoreConfig struct {
	Backend   string
	Path      string
	Secret    string
	KeyPrefix string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
	Table           string
}

type WatchConfig struct {
	Schedule string
}

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
}

type MockUser struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Password  string
	Address   string
	Phone     string
	Role      string
}

type MockConfig struct {
	HTTP        HTTPConfig
	JWTSecret   string
	JWTTTL      time.Duration
	CORSOrigins []string
	PublicURL   string
	Storage     StorageConfig
	Users       []MockUser
}

type AppConfig struct {
	Environment string
	API         APIConfig
	Store       StoreConfig
	Redis       RedisConfig
	Postgres    PostgresConfig
	Watch       WatchConfig
	Mock        MockConfig
}

// Load reads stratolift.yaml (if present) and overlays STRATOLIFT_* env vars.
func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("stratolift")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("$HOME/.stratolift")

	v.SetEnvPrefix("STRATOLIFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) validate() error {
	switch c.Store.Backend {
	case "file", "memory", "redis", "postgres":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("api base url required")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("api.baseurl", "https://stratoliftapp.vercel.app/api")
	v.SetDefault("api.timeout", "15s")
	v.SetDefault("api.retries", 3)
	v.SetDefault("api.retrydelay", "500ms")

	v.SetDefault("store.backend", "file")
	v.SetDefault("store.path", "$HOME/.stratolift/session.json")
	v.SetDefault("store.keyprefix", "stratolift:")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("postgres.maxopen", 4)
	v.SetDefault("postgres.maxidle", 1)
	v.SetDefault("postgres.connmaxlifetime", "30m")
	v.SetDefault("postgres.table", "session_kv")

	v.SetDefault("watch.schedule", "*/30 * * * * *")

	v.SetDefault("mock.http.host", "127.0.0.1")
	v.SetDefault("mock.http.port", 8080)
	v.SetDefault("mock.http.readtimeout", "10s")
	v.SetDefault("mock.http.writetimeout", "15s")
	v.SetDefault("mock.http.idletimeout", "60s")
	v.SetDefault("mock.jwtsecret", "stratolift-dev-secret")
	v.SetDefault("mock.jwtttl", "24h")
	v.SetDefault("mock.publicurl", "http://127.0.0.1:8080")
	v.SetDefault("mock.storage.bucket", "stratolift-uploads")
	v.SetDefault("mock.storage.region", "us-east-1")
}
