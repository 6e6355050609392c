package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != ":8080" || cfg.Checker.ProbeTimeout != 60*time.Second || cfg.Live.DefaultOutput != "/tmp/migu3721.txt" {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.Redis.Enabled {
		t.Error("redis enabled by default")
	}
}

func TestParse_Overrides(t *testing.T) {
	cfg, err := Parse([]byte(`
listen: 127.0.0.1:9000
categories: categories.yaml
probe:
  timeout: 2s
  rate_per_host: 5
  breaker_failures: 3
checker:
  default_threads: 8
redis:
  enabled: true
  addr: redis:6379
  task_ttl: 1h
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != "127.0.0.1:9000" || cfg.Categories != "categories.yaml" {
		t.Errorf("top level = %+v", cfg)
	}
	http := cfg.Probe.HTTPOptions()
	if http.Timeout != 2*time.Second || http.RatePerHost != 5 || http.BreakerFailures != 3 {
		t.Errorf("probe = %+v", http)
	}
	if opts := cfg.Checker.Options(); opts.DefaultThreads != 8 || opts.IOFactor != 4 {
		t.Errorf("checker = %+v", opts)
	}
	if !cfg.Redis.Enabled || cfg.Redis.Options().Addr != "redis:6379" || cfg.Redis.TaskTTL != time.Hour {
		t.Errorf("redis = %+v", cfg.Redis)
	}
}

func TestParse_Errors(t *testing.T) {
	for _, in := range []string{"listen: ''", "probe: [1, 2"} {
		if _, err := Parse([]byte(in)); err == nil {
			t.Errorf("Parse(%q) succeeded", in)
		}
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "livesrc-server.yaml")
	if err := os.WriteFile(path, []byte("probe_limit: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ProbeLimit != 3 {
		t.Errorf("ProbeLimit = %d", cfg.ProbeLimit)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load(missing) succeeded")
	}
}
