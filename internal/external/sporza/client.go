package sporza

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/wielermanager/pkg/config"
	"github.com/wonny/wielermanager/pkg/httputil"
	"github.com/wonny/wielermanager/pkg/logger"
	"github.com/wonny/wielermanager/pkg/redis"
)

// Source labels Sporza requests in metrics
const Source = "sporza"

// ScrapeObserver counts outgoing requests
type ScrapeObserver interface {
	ObserveScrape(source string, err error)
}

// Cyclist is one rider of the Sporza Wielermanager game
type Cyclist struct {
	ID         int     `json:"id"`
	FullName   string  `json:"fullName"`
	Price      float64 `json:"price"`
	Popularity float64 `json:"popularity"`
	Team       struct {
		Name      string `json:"name"`
		JerseyURL string `json:"jerseyUrl"`
	} `json:"team"`
}

type cyclistsResponse struct {
	Cyclists []Cyclist `json:"cyclists"`
}

// Client reads the Sporza Wielermanager game API
// ⭐ SSOT: Sporza requests are made by this client only
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	game       string
	cache      *redis.Cache
}

// NewClient creates a Sporza API client
func NewClient(cfg config.SporzaConfig, log *logger.Logger) *Client {
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{
		httpClient: httputil.NewWithTimeout(log, 15*time.Second),
		logger:     log.Component("sporza"),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		game:       cfg.Game,
	}
}

// WithCache caches the price list in Redis
func (c *Client) WithCache(cache *redis.Cache) *Client {
	c.cache = cache
	return c
}

// WithObserver reports every request to obs
func (c *Client) WithObserver(obs ScrapeObserver) *Client {
	c.httpClient.WithObserver(func(err error) { obs.ObserveScrape(Source, err) })
	return c
}

func (c *Client) cacheKey() string {
	return fmt.Sprintf("sporza:cyclists:%s", c.game)
}

// Cyclists returns the game's rider list with prices
func (c *Client) Cyclists(ctx context.Context) ([]Cyclist, error) {
	if c.cache != nil {
		var cached []Cyclist
		if found, err := c.cache.Get(ctx, c.cacheKey(), &cached); err == nil && found {
			return cached, nil
		}
	}

	var resp cyclistsResponse
	url := fmt.Sprintf("%s/api/%s/cyclists", c.baseURL, c.game)
	if err := c.httpClient.GetJSON(ctx, url, &resp); err != nil {
		return nil, fmt.Errorf("fetch sporza cyclists: %w", err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, c.cacheKey(), resp.Cyclists, redis.TTLMedium); err != nil {
			c.logger.WithError(err).Warn("Cyclist cache write failed")
		}
	}

	c.logger.WithField("cyclists", len(resp.Cyclists)).Debug("Fetched Sporza cyclists")
	return resp.Cyclists, nil
}
