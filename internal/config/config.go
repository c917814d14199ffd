// Package config loads service configuration by layering defaults, an
// optional YAML file, and FUNNEL_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration for both the webhook receiver and the
// reconciler. Fields only one of the binaries uses are still loaded by
// both; validation of what is actually required happens at the call site.
type Config struct {
	// Addr is the webhook receiver's HTTP listen address.
	Addr string `koanf:"addr"`

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string `koanf:"database_url"`

	// RedisURL enables the inbound webhook rate limiter when set.
	RedisURL string `koanf:"redis_url"`

	// WebhookSecret is the shared Shopify signing secret. When empty,
	// signature verification is skipped; the receiver logs a warning so
	// the operator knows validation is disabled.
	WebhookSecret string `koanf:"webhook_secret"`

	// Timezone anchors the business day boundary for counter bucketing.
	Timezone string `koanf:"timezone"`

	// DedupRetentionDays bounds the dedup key table; keys older than this
	// are pruned at server startup. Counters are never pruned.
	DedupRetentionDays int `koanf:"dedup_retention_days"`

	// WebhookRateLimit caps inbound notifications per topic per second.
	// Zero disables the limiter.
	WebhookRateLimit int `koanf:"webhook_rate_limit"`

	// Shopify Admin API access for the orders collaborator and webhook
	// subscription registration.
	ShopDomain         string `koanf:"shop_domain"`
	ShopifyAPIVersion  string `koanf:"shopify_api_version"`
	ShopifyAccessToken string `koanf:"shopify_access_token"`

	// SinkPath is where the reconciler writes funnel rows.
	SinkPath string `koanf:"sink_path"`
}

func defaults() *Config {
	return &Config{
		Addr:               ":8080",
		Timezone:           "America/Santiago",
		DedupRetentionDays: 7,
		WebhookRateLimit:   0,
		ShopifyAPIVersion:  "2024-10",
		SinkPath:           "funnel.csv",
	}
}

// Load builds a Config by layering (low -> high precedence):
//  1. defaults
//  2. YAML file named by FUNNEL_CONFIG, if set
//  3. environment variables with the FUNNEL_ prefix
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv("FUNNEL_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	// FUNNEL_DATABASE_URL -> database_url; underscores are preserved to
	// match the koanf tags on the struct.
	envProvider := env.Provider("FUNNEL_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "FUNNEL_"))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := *defaults()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database_url is required (FUNNEL_DATABASE_URL)")
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	return &cfg, nil
}

// Location resolves the configured timezone. Load has already validated it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
