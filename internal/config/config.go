package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultProducts is the batch priced when none is configured.
var DefaultProducts = []string{"book", "phone", "battery", "pen"}

// Config holds all configuration for the shop price aggregator.
type Config struct {
	// Batch to price
	Products []string `mapstructure:"products"`

	// Scheduling
	Mode    string        `mapstructure:"mode"`
	Workers int           `mapstructure:"workers"`
	Timeout time.Duration `mapstructure:"timeout"`

	// Simulated shop
	Delay time.Duration `mapstructure:"delay"`
	Seed  uint64        `mapstructure:"seed"`

	// Remote shop (empty base URL selects the simulated shop)
	ShopBaseURL        string        `mapstructure:"shop_base_url"`
	ShopRateLimit      float64       `mapstructure:"shop_rate_limit"`
	ShopRetries        int           `mapstructure:"shop_retries"`
	ShopRequestTimeout time.Duration `mapstructure:"shop_request_timeout"`

	// Ambient
	LogLevel    string        `mapstructure:"log_level"`
	Interval    time.Duration `mapstructure:"interval"`
	MetricsAddr string        `mapstructure:"metrics_addr"`
}

// Flags returns the command line flags understood by Load.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("shopprice", pflag.ContinueOnError)
	fs.String("mode", "pool", "execution mode: sequential, pool or async")
	fs.Int("workers", 4, "worker pool size for pool mode")
	fs.Duration("timeout", 30*time.Second, "timeout for the whole batch")
	fs.Duration("delay", time.Second, "artificial latency of the simulated shop")
	fs.Uint64("seed", 0, "price generator seed, 0 for random")
	fs.String("shop-base-url", "", "remote shop base URL, empty for the simulated shop")
	fs.Float64("shop-rate-limit", 0, "remote shop requests per second, 0 for unlimited")
	fs.Int("shop-retries", 3, "retries for transient remote shop failures")
	fs.Duration("shop-request-timeout", 5*time.Second, "timeout for each remote shop request, 0 for none")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.Duration("interval", 0, "repeat the batch at this interval until interrupted")
	fs.String("metrics-addr", "", "serve Prometheus metrics on this address while repeating")
	return fs
}

// Load reads configuration from defaults, an optional config file, environment
// variables and parsed command line flags, in increasing order of precedence.
// Positional arguments left on flags override the configured products.
//
// Environment variables use the SHOPPRICE_ prefix:
//   - SHOPPRICE_PRODUCTS (comma separated)
//   - SHOPPRICE_MODE, SHOPPRICE_WORKERS, SHOPPRICE_TIMEOUT
//   - SHOPPRICE_DELAY, SHOPPRICE_SEED
//   - SHOPPRICE_SHOP_BASE_URL, SHOPPRICE_SHOP_RATE_LIMIT, SHOPPRICE_SHOP_RETRIES
//   - SHOPPRICE_SHOP_REQUEST_TIMEOUT
//   - SHOPPRICE_LOG_LEVEL, SHOPPRICE_INTERVAL, SHOPPRICE_METRICS_ADDR
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// Set up environment variable support
	v.SetEnvPrefix("shopprice")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// Set defaults
	v.SetDefault("products", DefaultProducts)
	v.SetDefault("mode", "pool")
	v.SetDefault("workers", 4)
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("delay", time.Second)
	v.SetDefault("seed", 0)
	v.SetDefault("shop_base_url", "")
	v.SetDefault("shop_rate_limit", 0)
	v.SetDefault("shop_retries", 3)
	v.SetDefault("shop_request_timeout", 5*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("interval", 0)
	v.SetDefault("metrics_addr", "")

	// Optionally read from config file if it exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.shopprice")

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind flags; only flags set on the command line override other sources
	if flags != nil {
		flags.VisitAll(func(f *pflag.Flag) {
			_ = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
		})
	}

	// Unmarshal config into struct (handles both simple and complex fields)
	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Environment variables arrive as a single comma separated string
	config.Products = splitProducts(config.Products)

	if flags != nil && flags.NArg() > 0 {
		config.Products = flags.Args()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var problems []string

	switch c.Mode {
	case "sequential", "pool", "async":
	default:
		problems = append(problems, fmt.Sprintf("mode %q is not one of sequential, pool, async", c.Mode))
	}
	if c.Workers < 1 {
		problems = append(problems, "workers must be at least 1")
	}
	if c.Timeout <= 0 {
		problems = append(problems, "timeout must be positive")
	}
	if c.Delay < 0 {
		problems = append(problems, "delay must not be negative")
	}
	if c.ShopRateLimit < 0 {
		problems = append(problems, "shop_rate_limit must not be negative")
	}
	if c.ShopRetries < 0 {
		problems = append(problems, "shop_retries must not be negative")
	}
	if c.ShopRequestTimeout < 0 {
		problems = append(problems, "shop_request_timeout must not be negative")
	}
	if c.Interval < 0 {
		problems = append(problems, "interval must not be negative")
	}
	if len(c.Products) == 0 {
		problems = append(problems, "at least one product is required")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, ", "))
	}
	return nil
}

func splitProducts(in []string) []string {
	var out []string
	for _, item := range in {
		for _, p := range strings.Split(item, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
