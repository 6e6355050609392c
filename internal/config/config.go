// Package config loads the server configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/edirooss/livesrc/internal/checker"
	"github.com/edirooss/livesrc/internal/probe"
	"github.com/edirooss/livesrc/internal/redis"
	"github.com/edirooss/livesrc/internal/service"
)

// Build metadata, set with -ldflags "-X".
var (
	Version   = "dev"
	GitCommit = "none"
	BuildDate = "unknown"
)

// DefaultPath is read when no -config flag is given.
const DefaultPath = "livesrc-server.yaml"

type Config struct {
	Listen         string   `yaml:"listen"`
	TrustedProxies []string `yaml:"trusted_proxies"`
	CORSOrigins    []string `yaml:"cors_origins"` // dev only
	MaxBodyBytes   int64    `yaml:"max_body_bytes"`
	// ProbeLimit caps concurrent requests that probe while the client waits.
	ProbeLimit int `yaml:"probe_limit"`
	// Categories is the category tables file; empty disables every mapping.
	Categories string `yaml:"categories"`

	Live    LiveConfig    `yaml:"live"`
	Probe   ProbeConfig   `yaml:"probe"`
	Checker CheckerConfig `yaml:"checker"`
	Redis   RedisConfig   `yaml:"redis"`
}

type LiveConfig struct {
	DefaultOutput  string        `yaml:"default_output"`
	SourceTimeout  time.Duration `yaml:"source_timeout"`
	MaxSourceBytes int64         `yaml:"max_source_bytes"`
	ExtraTxt       string        `yaml:"extra_txt"`
	ExtraM3U       string        `yaml:"extra_m3u"`
	MergeMaxURLs   int           `yaml:"merge_max_urls"`
}

type ProbeConfig struct {
	Timeout         time.Duration `yaml:"timeout"`
	UserAgent       string        `yaml:"user_agent"`
	MaxTextBytes    int64         `yaml:"max_text_bytes"`
	RatePerHost     float64       `yaml:"rate_per_host"`
	RateBurst       int           `yaml:"rate_burst"`
	BreakerFailures uint32        `yaml:"breaker_failures"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown"`
	FFProbePath     string        `yaml:"ffprobe_path"`
	FFProbeTimeout  time.Duration `yaml:"ffprobe_timeout"`
	// DisableFFProbe leaves resolutions unknown.
	DisableFFProbe bool `yaml:"disable_ffprobe"`
}

type CheckerConfig struct {
	IOFactor       int           `yaml:"io_factor"`
	DefaultThreads int           `yaml:"default_threads"`
	ProbeTimeout   time.Duration `yaml:"probe_timeout"`
}

type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"pool_size"`
	TaskTTL  time.Duration `yaml:"task_ttl"`
}

// Default returns the configuration used for keys the file omits.
func Default() Config {
	return Config{
		Listen:       ":8080",
		MaxBodyBytes: 10 << 20,
		ProbeLimit:   16,
		Live:         LiveConfig{DefaultOutput: "/tmp/migu3721.txt", SourceTimeout: 5 * time.Second},
		Probe:        ProbeConfig{Timeout: 5 * time.Second, FFProbePath: "ffprobe", FFProbeTimeout: 5 * time.Second},
		Checker:      CheckerConfig{IOFactor: 4, DefaultThreads: 20, ProbeTimeout: 60 * time.Second},
		Redis:        RedisConfig{Addr: "localhost:6379", TaskTTL: 24 * time.Hour},
	}
}

// Load reads path over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Listen == "" {
		return nil, fmt.Errorf("parse config: listen must not be empty")
	}
	return &cfg, nil
}

func (c ProbeConfig) HTTPOptions() probe.HTTPOptions {
	return probe.HTTPOptions{
		Timeout:         c.Timeout,
		UserAgent:       c.UserAgent,
		MaxTextBytes:    c.MaxTextBytes,
		RatePerHost:     c.RatePerHost,
		RateBurst:       c.RateBurst,
		BreakerFailures: c.BreakerFailures,
		BreakerCooldown: c.BreakerCooldown,
	}
}

func (c CheckerConfig) Options() checker.Options {
	return checker.Options{
		IOFactor:       c.IOFactor,
		DefaultThreads: c.DefaultThreads,
		ProbeTimeout:   c.ProbeTimeout,
	}
}

func (c LiveConfig) Options() service.LiveOptions {
	return service.LiveOptions{
		DefaultOutput:  c.DefaultOutput,
		SourceTimeout:  c.SourceTimeout,
		MaxSourceBytes: c.MaxSourceBytes,
		ExtraTxt:       c.ExtraTxt,
		ExtraM3U:       c.ExtraM3U,
		MergeMaxURLs:   c.MergeMaxURLs,
	}
}

func (c RedisConfig) Options() redis.Options {
	return redis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB, PoolSize: c.PoolSize}
}
