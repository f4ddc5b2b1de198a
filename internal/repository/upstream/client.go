// Package upstream talks to the remote tile server.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jaennil/guide_helper/backend/mosaic/internal/entity"
	"github.com/jaennil/guide_helper/backend/mosaic/pkg/logger"
	"github.com/jaennil/guide_helper/backend/mosaic/pkg/metrics"
)

type Config struct {
	// URLTemplate must contain the {x}, {y} and {z} placeholders.
	URLTemplate   string
	UserAgent     string
	Timeout       time.Duration
	MaxRetries    uint
	RetryInterval time.Duration
}

type Client struct {
	urlTemplate   string
	userAgent     string
	maxRetries    uint
	retryInterval time.Duration
	httpClient    *http.Client
	logger        logger.Logger
}

func NewClient(cfg Config, l logger.Logger) *Client {
	return &Client{
		urlTemplate:   cfg.URLTemplate,
		userAgent:     cfg.UserAgent,
		maxRetries:    cfg.MaxRetries,
		retryInterval: cfg.RetryInterval,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 32,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: l,
	}
}

// ValidateURLTemplate checks that tmpl carries every placeholder and expands
// to an absolute http(s) URL.
func ValidateURLTemplate(tmpl string) error {
	for _, p := range []string{"{x}", "{y}", "{z}"} {
		if !strings.Contains(tmpl, p) {
			return fmt.Errorf("url template %q lacks the %s placeholder", tmpl, p)
		}
	}

	u, err := url.Parse(expand(tmpl, entity.TileIndex{}))
	if err != nil {
		return fmt.Errorf("invalid url template %q: %w", tmpl, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("url template %q is not an absolute http(s) url", tmpl)
	}
	return nil
}

func (c *Client) URL(t entity.TileIndex) string {
	return expand(c.urlTemplate, t)
}

func expand(tmpl string, t entity.TileIndex) string {
	return strings.NewReplacer(
		"{x}", strconv.Itoa(t.X),
		"{y}", strconv.Itoa(t.Y),
		"{z}", strconv.Itoa(t.Z),
	).Replace(tmpl)
}

// Fetch downloads the raw body of tile t.
//
// Non-2xx responses fail immediately with *entity.FetchError (NotFound for
// 404, ServerError otherwise). Transport failures are retried with
// exponential backoff up to MaxRetries times before failing with a
// TransportError. Context cancellation is returned as is.
func (c *Client) Fetch(ctx context.Context, t entity.TileIndex) ([]byte, error) {
	operation := func() ([]byte, error) {
		data, err := c.fetchOnce(ctx, t)
		if err == nil {
			return data, nil
		}

		var fe *entity.FetchError
		if errors.As(err, &fe) && fe.Kind == entity.FetchTransportError {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval

	data, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(c.maxRetries+1),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Warn("retrying tile fetch", "tile", t.String(), "in", next, "error", err)
		}),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if fe, ok := entity.AsFetchError(err); ok {
			metrics.UpstreamErrors.WithLabelValues(string(fe.Kind)).Inc()
			return nil, fe
		}
		return nil, err
	}

	return data, nil
}

func (c *Client) fetchOnce(ctx context.Context, t entity.TileIndex) ([]byte, error) {
	url := c.URL(t)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	c.logger.Debug("fetching from upstream", "tile", t.String(), "url", url)

	metrics.UpstreamRequests.Inc()
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.UpstreamLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &entity.FetchError{Tile: t, Kind: entity.FetchTransportError, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

		kind := entity.FetchServerError
		if resp.StatusCode == http.StatusNotFound {
			kind = entity.FetchNotFound
		}
		return nil, &entity.FetchError{
			Tile:       t,
			Kind:       kind,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("upstream returned %s", resp.Status),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &entity.FetchError{Tile: t, Kind: entity.FetchTransportError, Err: fmt.Errorf("failed to read tile data: %w", err)}
	}

	c.logger.Debug("fetched tile from upstream", "tile", t.String(), "size", len(data), "duration", time.Since(start))

	return data, nil
}
