package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Rule limits one route. A Path ending in "/" matches every path below it.
// A Limit of zero leaves the route unlimited.
type Rule struct {
	Method string
	Path   string
	Limit  int
	Window time.Duration
	Burst  int // defaults to Limit
}

func (r Rule) burst() int {
	if r.Burst > 0 {
		return r.Burst
	}
	return r.Limit
}

func (r Rule) matches(method, path string) bool {
	if r.Method != "" && r.Method != method {
		return false
	}
	if strings.HasSuffix(r.Path, "/") {
		return strings.HasPrefix(path, r.Path)
	}
	return r.Path == path
}

// Config holds the limiter settings.
type Config struct {
	Enabled bool
	Default Rule
	Rules   []Rule
	Exempt  map[string]bool
}

// DefaultConfig limits analyses, which call the embedding model, much harder
// than archive reads. Health checks are never limited.
func DefaultConfig() Config {
	return Config{
		Enabled: true,
		Default: Rule{Limit: 600, Window: time.Minute},
		Rules: []Rule{
			{Method: "GET", Path: "/health"},
			{Method: "POST", Path: "/analyze", Limit: 60, Window: time.Hour, Burst: 10},
		},
		Exempt: map[string]bool{},
	}
}

// LoadConfig starts from DefaultConfig and applies RATE_LIMIT_ENABLED,
// RATE_LIMIT_DEFAULT, RATE_LIMIT_ANALYZE_PER_HOUR and RATE_LIMIT_EXEMPT
// (comma-separated client addresses).
func LoadConfig() Config {
	cfg := DefaultConfig()
	if v, err := strconv.ParseBool(os.Getenv("RATE_LIMIT_ENABLED")); err == nil {
		cfg.Enabled = v
	}
	if n, ok := envInt("RATE_LIMIT_DEFAULT"); ok {
		cfg.Default.Limit = n
	}
	if n, ok := envInt("RATE_LIMIT_ANALYZE_PER_HOUR"); ok {
		for i := range cfg.Rules {
			if cfg.Rules[i].Path == "/analyze" {
				cfg.Rules[i].Limit = n
				cfg.Rules[i].Burst = min(cfg.Rules[i].Burst, n)
			}
		}
	}
	for _, addr := range strings.Split(os.Getenv("RATE_LIMIT_EXEMPT"), ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			cfg.Exempt[addr] = true
		}
	}
	return cfg
}

// ruleFor returns the first rule matching the request, else the default.
// Rules without a Path (the default) apply to every route.
func (c Config) ruleFor(method, path string) Rule {
	for _, r := range c.Rules {
		if r.matches(method, path) {
			return r
		}
	}
	d := c.Default
	d.Method, d.Path = "", "*"
	return d
}

func envInt(key string) (int, bool) {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
