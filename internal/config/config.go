package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	ModeProduction  = "production"
	ModeDevelopment = "development"
)

type Config struct {
	Mode      string          `mapstructure:"mode"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Filter    FilterConfig    `mapstructure:"filter"`
	Pages     PagesConfig     `mapstructure:"pages"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// Request log sink
	Async   bool `mapstructure:"async"`
	Workers int  `mapstructure:"workers"`
	Buffer  int  `mapstructure:"buffer"`
}

// FilterConfig describes which request paths bypass the request logger.
type FilterConfig struct {
	ExcludePrefixes   []string `mapstructure:"exclude_prefixes"`   // matched after the leading "/"
	ExcludeExtensions []string `mapstructure:"exclude_extensions"` // without the dot
}

type PagesConfig struct {
	HelloPath    string `mapstructure:"hello_path"`
	StaticPrefix string `mapstructure:"static_prefix"`
}

type UpstreamConfig struct {
	Target          string        `mapstructure:"target"` // empty serves the built-in pages
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxConnsPerHost int           `mapstructure:"max_conns_per_host"`
}

type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Global rate limits
	Global struct {
		Requests int           `mapstructure:"requests"`
		Window   time.Duration `mapstructure:"window"`
		Burst    int           `mapstructure:"burst"`
	} `mapstructure:"global"`

	// Per IP rate limits
	PerIP struct {
		Enabled   bool          `mapstructure:"enabled"`
		Requests  int           `mapstructure:"requests"`
		Window    time.Duration `mapstructure:"window"`
		Burst     int           `mapstructure:"burst"`
		WhiteList []string      `mapstructure:"whitelist"` // IPs or CIDRs
	} `mapstructure:"per_ip"`

	Routes []RouteLimit `mapstructure:"routes"`

	Storage struct {
		Type  string `mapstructure:"type"` // memory or redis
		Redis struct {
			Host     string        `mapstructure:"host"`
			Port     int           `mapstructure:"port"`
			Password string        `mapstructure:"password"`
			DB       int           `mapstructure:"db"`
			Timeout  time.Duration `mapstructure:"timeout"`
		} `mapstructure:"redis"`
	} `mapstructure:"storage"`
}

type RouteLimit struct {
	Path     string        `mapstructure:"path"`   // supports "*" segments
	Method   string        `mapstructure:"method"` // "*" for any
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
	Burst    int           `mapstructure:"burst"`
	Priority int           `mapstructure:"priority"`
}

// Production reports whether request records are written as JSON.
func (c *Config) Production() bool {
	return strings.EqualFold(c.Mode, ModeProduction)
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Log.Async && (c.Log.Workers <= 0 || c.Log.Buffer <= 0) {
		return fmt.Errorf("log.workers and log.buffer must be positive when log.async is set")
	}
	if !strings.HasPrefix(c.Pages.HelloPath, "/") {
		return fmt.Errorf("pages.hello_path must start with /: %q", c.Pages.HelloPath)
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.Global.Requests <= 0 || c.RateLimit.Global.Window <= 0 {
			return fmt.Errorf("rate_limit.global needs positive requests and window")
		}
		switch c.RateLimit.Storage.Type {
		case "", "memory", "redis":
		default:
			return fmt.Errorf("unknown rate_limit.storage.type %q", c.RateLimit.Storage.Type)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", ModeDevelopment)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.async", false)
	v.SetDefault("log.workers", 2)
	v.SetDefault("log.buffer", 1024)

	v.SetDefault("filter.exclude_prefixes", []string{"_app/static", "_app/image", "favicon.ico"})
	v.SetDefault("filter.exclude_extensions", []string{"svg", "png", "jpg", "jpeg", "gif", "webp"})

	v.SetDefault("pages.hello_path", "/lm-app/13000")
	v.SetDefault("pages.static_prefix", "/_app/static")

	v.SetDefault("upstream.timeout", 30*time.Second)
	v.SetDefault("upstream.max_conns_per_host", 256)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "vitrin")

	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.global.requests", 1000)
	v.SetDefault("rate_limit.global.window", time.Minute)
	v.SetDefault("rate_limit.storage.type", "memory")
	v.SetDefault("rate_limit.storage.redis.host", "localhost")
	v.SetDefault("rate_limit.storage.redis.port", 6379)
	v.SetDefault("rate_limit.storage.redis.timeout", 2*time.Second)
}

// LoadConfig reads configPath (if non-empty) on top of the defaults and
// applies VITRIN_* environment overrides. APP_ENV and NODE_ENV also set the
// mode so the binary can be dropped into existing deployments.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("vitrin")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("mode", "VITRIN_MODE", "APP_ENV", "NODE_ENV"); err != nil {
		return nil, fmt.Errorf("bind mode env: %w", err)
	}

	if configPath != "" {
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Dir(configPath))
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}
