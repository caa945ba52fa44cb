// Package edsm provides the remote lookup-by-name client for system
// coordinates, used as the last resort when neither the local cache nor the
// bundled data knows a system.
package edsm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tphakala/ringscout/internal/errors"
	"github.com/tphakala/ringscout/internal/logging"
)

// Package-level logger specific to the edsm service.
var logger *slog.Logger

func init() {
	var err error
	logger, _, err = logging.NewFileLogger("logs/edsm.log", "edsm", slog.LevelInfo)
	if err != nil {
		logging.Error("Failed to initialize edsm file logger", "error", err)
		logger = logging.ForService("edsm")
	}
}

// Config holds the client configuration.
type Config struct {
	BaseURL    string
	Timeout    time.Duration // per-request timeout
	CacheTTL   time.Duration
	MaxRetries int
}

// DefaultConfig returns a Config with reasonable default values.
func DefaultConfig() Config {
	return Config{
		BaseURL:    "https://www.edsm.net/api-v1/system",
		Timeout:    10 * time.Second,
		CacheTTL:   time.Hour,
		MaxRetries: 3,
	}
}

// Coordinates is a resolved system position.
type Coordinates struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Client is the remote coordinate lookup client. Responses are cached with
// a short TTL to bound staleness versus re-fetch cost.
type Client struct {
	config     Config
	httpClient *http.Client
	cache      *cache.Cache
}

// NewClient creates a Client, filling missing config values with defaults.
func NewClient(config Config) *Client {
	defaults := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = defaults.CacheTTL
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = defaults.MaxRetries
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		cache:      cache.New(config.CacheTTL, 10*time.Minute),
	}
}

// SystemCoordinates resolves a system name to galactic coordinates. It
// returns a CategoryNotFound error when the service does not know the
// system, and a network or timeout category error after retries exhaust.
func (c *Client) SystemCoordinates(ctx context.Context, systemName string) (*Coordinates, error) {
	if systemName == "" {
		return nil, errors.Newf("system name is required").
			Component("edsm").
			Category(errors.CategoryValidation).
			Build()
	}

	if cached, found := c.cache.Get(systemName); found {
		coords := cached.(Coordinates)
		return &coords, nil
	}

	coords, err := c.fetchWithRetry(ctx, systemName)
	if err != nil {
		return nil, err
	}

	c.cache.Set(systemName, *coords, cache.DefaultExpiration)
	return coords, nil
}

// fetchWithRetry performs the lookup with a small fixed number of attempts
// and linear backoff between them. Not-found and malformed-response errors
// are terminal, never retried.
func (c *Client) fetchWithRetry(ctx context.Context, systemName string) (*Coordinates, error) {
	var lastErr error

	for attempt := 0; attempt < c.config.MaxRetries; attempt++ {
		coords, err := c.fetch(ctx, systemName)
		if err == nil {
			return coords, nil
		}
		if errors.IsCategory(err, errors.CategoryNotFound) ||
			errors.IsCategory(err, errors.CategoryValidation) {
			return nil, err
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, lastErr
		}

		if attempt < c.config.MaxRetries-1 {
			delay := time.Duration(attempt+1) * 500 * time.Millisecond
			logger.Warn("Coordinate lookup failed, retrying",
				"system", systemName,
				"attempt", attempt+1,
				"max_retries", c.config.MaxRetries,
				"delay_ms", delay.Milliseconds(),
				"error", err.Error())

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, lastErr
}

func (c *Client) fetch(ctx context.Context, systemName string) (*Coordinates, error) {
	reqURL := fmt.Sprintf("%s?systemName=%s&showCoordinates=1",
		c.config.BaseURL, url.QueryEscape(systemName))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, errors.New(err).
			Component("edsm").
			Category(errors.CategoryNetwork).
			Build()
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		category := errors.CategoryNetwork
		if ctx.Err() == context.DeadlineExceeded {
			category = errors.CategoryTimeout
		}
		return nil, errors.New(err).
			Component("edsm").
			Category(category).
			Context("url", c.config.BaseURL).
			Build()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("coordinate lookup returned status %d", resp.StatusCode).
			Component("edsm").
			Category(statusCategory(resp.StatusCode)).
			Context("status_code", resp.StatusCode).
			Build()
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.New(err).
			Component("edsm").
			Category(errors.CategoryNetwork).
			Build()
	}

	// The service answers an unknown system with an empty JSON document.
	var payload struct {
		Name   string       `json:"name"`
		Coords *Coordinates `json:"coords"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.New(err).
			Component("edsm").
			Category(errors.CategoryValidation).
			Context("system", systemName).
			Build()
	}
	if payload.Coords == nil {
		return nil, errors.Newf("system %q not known to coordinate service", systemName).
			Component("edsm").
			Category(errors.CategoryNotFound).
			Build()
	}

	return payload.Coords, nil
}

func statusCategory(statusCode int) errors.ErrorCategory {
	switch {
	case statusCode == http.StatusNotFound:
		return errors.CategoryNotFound
	case statusCode == http.StatusTooManyRequests:
		return errors.CategoryNetwork
	case statusCode >= 500:
		return errors.CategoryNetwork
	default:
		return errors.CategoryValidation
	}
}

// ClearCache drops all cached lookups.
func (c *Client) ClearCache() {
	c.cache.Flush()
}
