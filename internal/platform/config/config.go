package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything main needs to wire the service.
type Config struct {
	Addr       string
	Registries Registries
	Fetch      Fetch
	Cache      Cache
	Redis      Redis
	Kafka      Kafka
	WarmOnBoot bool
}

// Registries carries the base URL for each origin plus the proxy endpoint
// that serves the two feeds without a machine API.
type Registries struct {
	ProductsBaseURL  string `yaml:"productsBaseUrl"`
	ApprovalsBaseURL string `yaml:"approvalsBaseUrl"`
	ProxyBaseURL     string `yaml:"proxyBaseUrl"`
}

// Fetch tunes the outbound HTTP executor.
type Fetch struct {
	Timeout      time.Duration // per attempt, light endpoints
	HeavyTimeout time.Duration // per attempt, bulk/scraped endpoints
	MaxRetries   int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	Concurrency  int     // bounded parallel runner limit
	RatePerHost  float64 // requests per second per origin host
}

// Cache tunes the response cache and the bulk cache.
type Cache struct {
	PerKeyTTL  time.Duration
	BulkTTL    time.Duration
	MaxEntries int
}

// Redis describes the optional persistent cache backend. Empty URL means the
// in-memory stores are used instead.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka describes the optional novelty event sink. Empty broker list disables
// publishing.
type Kafka struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Config from environment variables so main stays lean.
// Registry base URLs may alternatively come from a YAML sources file pointed
// at by DRUGWATCH_SOURCES.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr: envStr("DRUGWATCH_ADDR", ":8080"),
		Registries: Registries{
			ProductsBaseURL:  envStr("DRUGWATCH_PRODUCTS_URL", "https://registry.example.jp/products/v1"),
			ApprovalsBaseURL: envStr("DRUGWATCH_APPROVALS_URL", "https://registry.example.jp/approvals/v1"),
			ProxyBaseURL:     envStr("DRUGWATCH_PROXY_URL", "https://proxy.example.jp/extract"),
		},
		Fetch: Fetch{
			Timeout:      envDuration("DRUGWATCH_FETCH_TIMEOUT", 15*time.Second),
			HeavyTimeout: envDuration("DRUGWATCH_FETCH_HEAVY_TIMEOUT", 60*time.Second),
			MaxRetries:   envInt("DRUGWATCH_FETCH_RETRIES", 3),
			BaseDelay:    envDuration("DRUGWATCH_FETCH_BASE_DELAY", 500*time.Millisecond),
			MaxDelay:     envDuration("DRUGWATCH_FETCH_MAX_DELAY", 10*time.Second),
			Concurrency:  envInt("DRUGWATCH_FETCH_CONCURRENCY", 5),
			RatePerHost:  envFloat("DRUGWATCH_FETCH_RATE_PER_HOST", 10),
		},
		Cache: Cache{
			PerKeyTTL:  envDuration("DRUGWATCH_CACHE_TTL", 5*time.Minute),
			BulkTTL:    envDuration("DRUGWATCH_CACHE_BULK_TTL", time.Hour),
			MaxEntries: envInt("DRUGWATCH_CACHE_MAX_ENTRIES", 500),
		},
		Redis: Redis{
			URL:          os.Getenv("DRUGWATCH_REDIS_URL"),
			PoolSize:     envInt("DRUGWATCH_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("DRUGWATCH_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("DRUGWATCH_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("DRUGWATCH_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("DRUGWATCH_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers: splitNonEmpty(os.Getenv("DRUGWATCH_KAFKA_BROKERS")),
			Topic:   envStr("DRUGWATCH_KAFKA_TOPIC", "drugwatch.novelty"),
		},
		WarmOnBoot: os.Getenv("DRUGWATCH_WARM_ON_BOOT") == "true",
	}

	if path := os.Getenv("DRUGWATCH_SOURCES"); path != "" {
		regs, err := loadSources(path)
		if err != nil {
			return Config{}, fmt.Errorf("load sources file: %w", err)
		}
		cfg.Registries = merge(cfg.Registries, regs)
	}

	return cfg, nil
}

// loadSources reads registry base URLs from a YAML file. Missing fields fall
// back to the environment/default values.
func loadSources(path string) (Registries, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Registries{}, err
	}
	var doc struct {
		Registries Registries `yaml:"registries"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Registries{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc.Registries, nil
}

func merge(base, override Registries) Registries {
	if override.ProductsBaseURL != "" {
		base.ProductsBaseURL = override.ProductsBaseURL
	}
	if override.ApprovalsBaseURL != "" {
		base.ApprovalsBaseURL = override.ApprovalsBaseURL
	}
	if override.ProxyBaseURL != "" {
		base.ProxyBaseURL = override.ProxyBaseURL
	}
	return base
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitNonEmpty(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if part := s[start:i]; part != "" {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	return out
}
