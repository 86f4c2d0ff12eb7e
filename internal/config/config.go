// Package config loads seedcorpus settings from defaults, an optional
// config file, SEEDCORPUS_* environment variables and command-line flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/FranksOps/seedcorpus/internal/filter"
	"github.com/FranksOps/seedcorpus/internal/fingerprint"
	"github.com/FranksOps/seedcorpus/internal/serp"
	"github.com/FranksOps/seedcorpus/pkg/proxy"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. SEEDCORPUS_STORAGE_BACKEND.
const EnvPrefix = "SEEDCORPUS"

// Backends lists the accepted storage.backend values.
var Backends = []string{"sqlite", "postgres", "csv", "json"}

type Config struct {
	Tuples  Tuples  `mapstructure:"tuples"`
	Search  Search  `mapstructure:"search"`
	Fetch   Fetch   `mapstructure:"fetch"`
	Filter  Filter  `mapstructure:"filter"`
	Proxy   Proxy   `mapstructure:"proxy"`
	Storage Storage `mapstructure:"storage"`
	Metrics Metrics `mapstructure:"metrics"`
}

type Tuples struct {
	Size  int `mapstructure:"size"`
	Count int `mapstructure:"count"`
}

type Search struct {
	Engine string `mapstructure:"engine"`
	// Endpoint, Selector and Redirect override the named engine's values.
	Endpoint          string  `mapstructure:"endpoint"`
	Selector          string  `mapstructure:"selector"`
	Redirect          string  `mapstructure:"redirect"`
	ResultsPerQuery   int     `mapstructure:"results_per_query"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Jitter            float64 `mapstructure:"jitter"`
}

type Fetch struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRedirects      int           `mapstructure:"max_redirects"`
	MaxBodyBytes      int64         `mapstructure:"max_body_bytes"`
	Concurrency       int           `mapstructure:"concurrency"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Jitter            float64       `mapstructure:"jitter"`
	Fingerprint       string        `mapstructure:"fingerprint"`
	UserAgents        []string      `mapstructure:"user_agents"`
	CookieJar         bool          `mapstructure:"cookie_jar"`
	RespectRobots     bool          `mapstructure:"respect_robots"`
	RobotsAgent       string        `mapstructure:"robots_agent"`
	Domains           []string      `mapstructure:"domains"`
}

type Filter struct {
	ContentTypes []string `mapstructure:"content_types"`
	MinBytes     int      `mapstructure:"min_bytes"`
	MaxBytes     int      `mapstructure:"max_bytes"`
	MinTerms     int      `mapstructure:"min_terms"`
}

// Proxy lists forward proxies for search and page requests. Both lists
// are combined; empty means direct connections.
type Proxy struct {
	URLs        []string      `mapstructure:"urls"`
	File        string        `mapstructure:"file"`
	MaxFailures int           `mapstructure:"max_failures"`
	Cooldown    time.Duration `mapstructure:"cooldown"`
}

type Storage struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
	DSN     string `mapstructure:"dsn"`
}

type Metrics struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("tuples.size", 3)
	v.SetDefault("tuples.count", 10)

	v.SetDefault("search.engine", serp.DuckDuckGo.Name)
	v.SetDefault("search.endpoint", "")
	v.SetDefault("search.selector", "")
	v.SetDefault("search.redirect", "")
	v.SetDefault("search.results_per_query", 10)
	v.SetDefault("search.requests_per_second", 0.5)
	v.SetDefault("search.jitter", 0.3)

	v.SetDefault("fetch.timeout", 30*time.Second)
	v.SetDefault("fetch.max_redirects", 10)
	v.SetDefault("fetch.max_body_bytes", 5<<20)
	v.SetDefault("fetch.concurrency", 3)
	v.SetDefault("fetch.requests_per_second", 2.0)
	v.SetDefault("fetch.jitter", 0.2)
	v.SetDefault("fetch.fingerprint", string(fingerprint.ProfileChrome))
	v.SetDefault("fetch.user_agents", []string{})
	v.SetDefault("fetch.cookie_jar", true)
	v.SetDefault("fetch.respect_robots", true)
	v.SetDefault("fetch.robots_agent", "*")
	v.SetDefault("fetch.domains", []string{})

	v.SetDefault("filter.content_types", filter.DefaultContentTypes)
	v.SetDefault("filter.min_bytes", 512)
	v.SetDefault("filter.max_bytes", 0)
	v.SetDefault("filter.min_terms", 1)

	v.SetDefault("proxy.urls", []string{})
	v.SetDefault("proxy.file", "")
	v.SetDefault("proxy.max_failures", 3)
	v.SetDefault("proxy.cooldown", 5*time.Minute)

	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.path", "corpus.db")
	v.SetDefault("storage.dsn", "")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 9090)
}

// flagKeys maps command-line flag names to configuration keys. Flags that a
// command does not define are skipped.
var flagKeys = map[string]string{
	"size":         "tuples.size",
	"count":        "tuples.count",
	"engine":       "search.engine",
	"results":      "search.results_per_query",
	"concurrency":  "fetch.concurrency",
	"fingerprint":  "fetch.fingerprint",
	"proxy-file":   "proxy.file",
	"backend":      "storage.backend",
	"db":           "storage.path",
	"dsn":          "storage.dsn",
	"metrics":      "metrics.enabled",
	"metrics-port": "metrics.port",
}

// Load builds a Config. path may be empty; flags may be nil. Only flags the
// user actually set override lower layers.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if _, err := c.Engine(); err != nil {
		errs = append(errs, err)
	}
	if c.Search.ResultsPerQuery <= 0 {
		errs = append(errs, fmt.Errorf("search.results_per_query must be positive, got %d", c.Search.ResultsPerQuery))
	}
	if err := rate("search", c.Search.RequestsPerSecond, c.Search.Jitter); err != nil {
		errs = append(errs, err)
	}

	if c.Fetch.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("fetch.timeout must be positive, got %s", c.Fetch.Timeout))
	}
	if c.Fetch.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("fetch.concurrency must be positive, got %d", c.Fetch.Concurrency))
	}
	if c.Fetch.MaxBodyBytes < 0 {
		errs = append(errs, fmt.Errorf("fetch.max_body_bytes cannot be negative"))
	}
	if err := rate("fetch", c.Fetch.RequestsPerSecond, c.Fetch.Jitter); err != nil {
		errs = append(errs, err)
	}
	if _, err := fingerprint.ParseProfile(c.Fetch.Fingerprint); err != nil {
		errs = append(errs, fmt.Errorf("fetch.fingerprint: %w", err))
	}

	if c.Filter.MinBytes < 0 || c.Filter.MaxBytes < 0 || c.Filter.MinTerms < 0 {
		errs = append(errs, fmt.Errorf("filter bounds cannot be negative"))
	}
	if c.Filter.MaxBytes > 0 && c.Filter.MaxBytes < c.Filter.MinBytes {
		errs = append(errs, fmt.Errorf("filter.max_bytes %d is below filter.min_bytes %d", c.Filter.MaxBytes, c.Filter.MinBytes))
	}

	if c.Proxy.MaxFailures < 0 || c.Proxy.Cooldown < 0 {
		errs = append(errs, fmt.Errorf("proxy.max_failures and proxy.cooldown cannot be negative"))
	}
	if err := proxy.NewPool(proxy.Config{}).Add(c.Proxy.URLs...); err != nil {
		errs = append(errs, fmt.Errorf("proxy.urls: %w", err))
	}

	switch c.Storage.Backend {
	case "postgres":
		if c.Storage.DSN == "" {
			errs = append(errs, fmt.Errorf("storage.dsn is required for the postgres backend"))
		}
	case "sqlite", "csv", "json":
		if c.Storage.Path == "" {
			errs = append(errs, fmt.Errorf("storage.path is required for the %s backend", c.Storage.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.backend %q (known: %s)", c.Storage.Backend, strings.Join(Backends, ", ")))
	}

	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		errs = append(errs, fmt.Errorf("metrics.port %d out of range", c.Metrics.Port))
	}

	return errors.Join(errs...)
}

func rate(section string, rps, jitter float64) error {
	if rps < 0 {
		return fmt.Errorf("%s.requests_per_second cannot be negative", section)
	}
	if jitter < 0 || jitter > 1 {
		return fmt.Errorf("%s.jitter must be between 0 and 1, got %v", section, jitter)
	}
	return nil
}

// Engine resolves the search engine, applying any endpoint, selector or
// redirect override. An unknown engine name is accepted when both endpoint
// and selector are given.
func (c *Config) Engine() (serp.Engine, error) {
	e, err := serp.Lookup(c.Search.Engine)
	if err != nil {
		if c.Search.Endpoint == "" || c.Search.Selector == "" {
			return serp.Engine{}, err
		}
		e = serp.Engine{Name: c.Search.Engine}
	}
	if c.Search.Endpoint != "" {
		e.Endpoint = c.Search.Endpoint
	}
	if c.Search.Selector != "" {
		e.Selector = c.Search.Selector
	}
	if c.Search.Redirect != "" {
		e.Redirect = c.Search.Redirect
	}
	if err := e.Validate(); err != nil {
		return serp.Engine{}, err
	}
	return e, nil
}

// ProxyPool builds the proxy rotation, or returns nil when no proxy is
// configured.
func (c *Config) ProxyPool() (*proxy.Pool, error) {
	if len(c.Proxy.URLs) == 0 && c.Proxy.File == "" {
		return nil, nil
	}
	pool := proxy.NewPool(proxy.Config{MaxFailures: c.Proxy.MaxFailures, Cooldown: c.Proxy.Cooldown})
	if err := pool.Add(c.Proxy.URLs...); err != nil {
		return nil, err
	}
	if c.Proxy.File != "" {
		if err := pool.LoadFile(c.Proxy.File); err != nil {
			return nil, err
		}
	}
	if pool.Len() == 0 {
		return nil, fmt.Errorf("proxy list %s is empty", c.Proxy.File)
	}
	return pool, nil
}

// FilterConfig converts the filter section for filter.Rules.
func (c *Config) FilterConfig() filter.Config {
	return filter.Config{
		ContentTypes: c.Filter.ContentTypes,
		MinBytes:     c.Filter.MinBytes,
		MaxBytes:     c.Filter.MaxBytes,
		MinTerms:     c.Filter.MinTerms,
	}
}
