package datadog

import (
	"github.com/DataDog/datadog-go/statsd"
	"github.com/rs/zerolog/log"
)

// Client emits DogStatsD metrics. A nil *Client is a no-op.
type Client struct {
	statsd statsd.ClientInterface
	warn   bool
}

// New connects to the agent at addr. enabled only controls whether emit
// failures are logged.
func New(addr, namespace string, tags []string, enabled bool) *Client {
	c, err := statsd.New(addr, statsd.WithNamespace(namespace), statsd.WithTags(tags))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create DogStatsD client")
		return nil
	}

	log.Info().
		Str("addr", addr).
		Str("namespace", namespace).
		Strs("tags", tags).
		Msg("Datadog metrics initialized")

	return &Client{statsd: c, warn: enabled}
}

func (c *Client) Gauge(name string, value float64, tags ...string) {
	if c == nil {
		return
	}
	if err := c.statsd.Gauge(name, value, tags, 1); err != nil && c.warn {
		log.Warn().Err(err).Str("metric", name).Msg("Failed to emit gauge metric")
	}
}

func (c *Client) Count(name string, value int64, tags ...string) {
	if c == nil {
		return
	}
	if err := c.statsd.Count(name, value, tags, 1); err != nil && c.warn {
		log.Warn().Err(err).Str("metric", name).Msg("Failed to emit count metric")
	}
}

func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	return c.statsd.Close()
}

// Bool converts a flag to a gauge value.
func Bool(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
