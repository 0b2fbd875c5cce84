package config

import (
	"errors"
	"time"

	"github.com/andrew-solarstorm/go-packages/common"
)

// AggregatorConfig configures the external route aggregator HTTP client.
type AggregatorConfig struct {
	// BaseURL of the aggregator API (lite tier needs no API key).
	BaseURL string

	// RequestTimeout per HTTP call. Quotes are latency sensitive; keep short.
	RequestTimeout time.Duration

	// QuoteAttempts is the total attempt budget per quote call.
	// Default 1: stale quotes are rejected downstream anyway, so retrying
	// rarely buys anything.
	QuoteAttempts int
}

func (c *AggregatorConfig) Key() string {
	return AGGREGATOR_CONFIG_KEY
}

func (c *AggregatorConfig) Load() error {
	c.BaseURL = common.GetEnvOrDefault("AGGREGATOR_API_URL", "https://lite-api.jup.ag")
	c.RequestTimeout = time.Duration(common.GetEnvOrDefaultInt("AGGREGATOR_TIMEOUT_SECONDS", 5)) * time.Second
	c.QuoteAttempts = common.GetEnvOrDefaultInt("AGGREGATOR_QUOTE_ATTEMPTS", 1)
	return c.Validate()
}

func (c *AggregatorConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New("invalid aggregator config: missing base url")
	}
	if c.QuoteAttempts < 1 {
		return errors.New("invalid aggregator config: quote attempts must be >= 1")
	}
	return nil
}
