package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"macropull/pkg/util"
)

// IndicatorSpec carries per-indicator catalog metadata: the frequency class
// driving cache TTL, and the source code each provider needs for it.
type IndicatorSpec struct {
	// Frequency empty means annual; defaults do not reach map values.
	Frequency     string `yaml:"frequency" validate:"omitempty,oneof=realtime daily monthly quarterly annual"`
	WorldBankCode string `yaml:"worldbank_code"`
}

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`

	Server struct {
		Port            int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`

	Logging struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error fatal panic"`
		Format string `yaml:"format" default:"json" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"logging"`

	Metrics struct {
		Enabled bool `yaml:"enabled" default:"true"`
	} `yaml:"metrics"`

	Cache struct {
		Enabled        bool   `yaml:"enabled" default:"true"`
		MemoryMaxSize  int    `yaml:"memory_max_size" default:"1000" validate:"gt=0"`
		DurableBackend string `yaml:"durable_backend" default:"sqlite" validate:"oneof=sqlite redis none"`
		SQLitePath     string `yaml:"sqlite_path" default:"macropull_cache.db"`
		Redis          struct {
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
		TTL struct {
			Realtime  time.Duration `yaml:"realtime" default:"1m"`
			Daily     time.Duration `yaml:"daily" default:"6h"`
			Monthly   time.Duration `yaml:"monthly" default:"72h"`
			Quarterly time.Duration `yaml:"quarterly" default:"168h"`
			Annual    time.Duration `yaml:"annual" default:"720h"`
		} `yaml:"ttl"`
	} `yaml:"cache"`

	Retry struct {
		MaxRetries int           `yaml:"max_retries" default:"2" validate:"gte=0"`
		BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
		BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
		Timeout    time.Duration `yaml:"timeout" default:"15s"`
	} `yaml:"retry"`

	// Dedupe shares one in-flight fetch among concurrent same-key misses.
	Dedupe bool `yaml:"dedupe"`

	Providers struct {
		WorldBank struct {
			Enabled    bool          `yaml:"enabled" default:"true"`
			BaseURL    string        `yaml:"base_url" default:"https://api.worldbank.org/v2"`
			APIKey     string        `yaml:"api_key"`
			Timeout    time.Duration `yaml:"timeout" default:"15s"`
			MaxRetries int           `yaml:"max_retries" default:"-1"` // -1 = service default
			PerPage    int           `yaml:"per_page" default:"1000"`
		} `yaml:"worldbank"`
		LocalFile struct {
			Enabled bool   `yaml:"enabled"`
			Dir     string `yaml:"dir"`
		} `yaml:"localfile"`
		Stream struct {
			Enabled        bool          `yaml:"enabled"`
			URL            string        `yaml:"url"`
			Token          string        `yaml:"token"`
			Indicators     []string      `yaml:"indicators"`
			ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
			PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
			WindowSize     int           `yaml:"window_size" default:"512"`
		} `yaml:"stream"`
	} `yaml:"providers"`

	// Priority maps indicator name to an explicit provider order, overriding
	// registration order for that indicator.
	Priority map[string][]string `yaml:"priority"`

	Indicators map[string]IndicatorSpec `yaml:"indicators" validate:"dive"`

	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"macropull.series"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		Compression  string        `yaml:"compression" default:"gzip"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
	} `yaml:"kafka"`
}

var validate = validator.New()

// Load reads a YAML configuration file, applies struct defaults, and
// validates eagerly so bad provider options fail at startup, not first use.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("default config: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides secrets and addresses
// with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	c.Server.Port = util.ParseIntDefault(os.Getenv("PORT"), c.Server.Port)
	if v := os.Getenv("WORLDBANK_API_KEY"); v != "" {
		c.Providers.WorldBank.APIKey = v
	}
	if v := os.Getenv("STREAM_TOKEN"); v != "" {
		c.Providers.Stream.Token = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Cache.Redis.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("MACROPULL_DATA_DIR"); v != "" {
		c.Providers.LocalFile.Dir = v
	}
	if v := os.Getenv("MACROPULL_CACHE_PATH"); v != "" {
		c.Cache.SQLitePath = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks struct tags plus cross-field rules the tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Cache.DurableBackend == "sqlite" && c.Cache.SQLitePath == "" {
		return fmt.Errorf("cache.sqlite_path is required for the sqlite backend")
	}
	if c.Providers.LocalFile.Enabled && c.Providers.LocalFile.Dir == "" {
		return fmt.Errorf("providers.localfile.dir is required when enabled")
	}
	if c.Providers.Stream.Enabled {
		if c.Providers.Stream.URL == "" {
			return fmt.Errorf("providers.stream.url is required when enabled")
		}
		if len(c.Providers.Stream.Indicators) == 0 {
			return fmt.Errorf("providers.stream.indicators cannot be empty when enabled")
		}
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when enabled")
	}
	if c.Retry.BackoffMax < c.Retry.BackoffMin {
		return fmt.Errorf("retry.backoff_max must be >= retry.backoff_min")
	}
	return nil
}
