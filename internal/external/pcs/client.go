package pcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/wonny/wielermanager/pkg/config"
	"github.com/wonny/wielermanager/pkg/httputil"
	"github.com/wonny/wielermanager/pkg/logger"
	"github.com/wonny/wielermanager/pkg/redis"
)

// Source labels PCS requests in metrics
const Source = "pcs"

// ScrapeObserver counts outgoing requests
type ScrapeObserver interface {
	ObserveScrape(source string, err error)
}

// Client scrapes ProCyclingStats race pages
// ⭐ SSOT: ProCyclingStats requests are made by this client only
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	season     int
	cache      *redis.Cache
}

// NewClient creates a paced PCS client
func NewClient(cfg config.PCSConfig, log *logger.Logger) *Client {
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{
		httpClient: httputil.NewWithTimeout(log, 20*time.Second).
			WithRetry(2, time.Second).
			WithLimiter(cfg.RateLimit),
		logger:  log.Component("pcs"),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		season:  cfg.Season,
	}
}

// WithCache caches start lists in Redis
func (c *Client) WithCache(cache *redis.Cache) *Client {
	c.cache = cache
	return c
}

// WithSharedLimit paces requests across every process sharing the Redis
// limiter, on top of the in-process limit
func (c *Client) WithSharedLimit(limiter *redis.RateLimiter, perSecond float64) *Client {
	c.httpClient.WithRateLimiter(limiter, redis.PCSRateLimit.PerSecond(perSecond))
	return c
}

// WithObserver reports every request to obs
func (c *Client) WithObserver(obs ScrapeObserver) *Client {
	c.httpClient.WithObserver(func(err error) { obs.ObserveScrape(Source, err) })
	return c
}

// Season returns the season the client scrapes
func (c *Client) Season() int {
	return c.season
}

type cachedStartlist struct {
	Season int      `json:"season"`
	Riders []string `json:"riders"`
}

// Startlist returns rider slugs entered in a race. When the current season
// has no page yet, the previous season's start list is used.
func (c *Client) Startlist(ctx context.Context, raceID string) ([]string, error) {
	key := redis.StartlistKey(raceID, c.season)
	if c.cache != nil {
		var cached cachedStartlist
		found, err := c.cache.Get(ctx, key, &cached)
		if err != nil {
			c.logger.WithError(err).WithField("race_id", raceID).Warn("Start list cache read failed")
		} else if found {
			return cached.Riders, nil
		}
	}

	season, body, err := c.fetchWithFallback(ctx, "/race/%s/%d/startlist", raceID)
	if err != nil {
		return nil, err
	}

	riders, err := ParseStartlist(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse start list %s: %w", raceID, err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, cachedStartlist{Season: season, Riders: riders}, redis.TTLDaily); err != nil {
			c.logger.WithError(err).WithField("race_id", raceID).Warn("Start list cache write failed")
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"race_id": raceID,
		"season":  season,
		"riders":  len(riders),
	}).Debug("Fetched start list")
	return riders, nil
}

// TopCompetitors returns the ranked favourites of a race
func (c *Client) TopCompetitors(ctx context.Context, raceID string) ([]Competitor, error) {
	season, body, err := c.fetchWithFallback(ctx, "/race/%s/%d/startlist/top-competitors", raceID)
	if err != nil {
		return nil, err
	}

	competitors, err := ParseTopCompetitors(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse top competitors %s: %w", raceID, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"race_id":     raceID,
		"season":      season,
		"competitors": len(competitors),
	}).Debug("Fetched top competitors")
	return competitors, nil
}

// Results returns the classified riders up to maxRank. A race without a
// published result page yields an empty list.
func (c *Client) Results(ctx context.Context, raceID string, maxRank int) ([]Placing, error) {
	url := fmt.Sprintf("%s/race/%s/%d/result", c.baseURL, raceID, c.season)
	body, err := c.httpClient.GetBody(ctx, url)
	var statusErr *httputil.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return []Placing{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch results %s: %w", raceID, err)
	}

	placings, err := ParseResults(bytes.NewReader(body), maxRank)
	if err != nil {
		return nil, fmt.Errorf("parse results %s: %w", raceID, err)
	}
	return placings, nil
}

// fetchWithFallback loads a season page and retries the previous season
// on a non-2xx answer
func (c *Client) fetchWithFallback(ctx context.Context, pattern, raceID string) (int, string, error) {
	var lastErr error
	for _, season := range []int{c.season, c.season - 1} {
		url := c.baseURL + fmt.Sprintf(pattern, raceID, season)
		body, err := c.httpClient.GetBody(ctx, url)
		if err == nil {
			return season, string(body), nil
		}

		var statusErr *httputil.StatusError
		if !errors.As(err, &statusErr) {
			return 0, "", fmt.Errorf("fetch %s: %w", url, err)
		}
		lastErr = err
	}
	return 0, "", fmt.Errorf("fetch %s: %w", raceID, lastErr)
}

var titleCaser = cases.Title(language.Und)

// RiderName derives a display name from a rider slug
func RiderName(slug string) string {
	return titleCaser.String(strings.ReplaceAll(slug, "-", " "))
}
