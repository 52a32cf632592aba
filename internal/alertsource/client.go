// Package alertsource implements the client for the public missile-warning
// alert feed.
package alertsource

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/redalert-watch/warningd/internal/geo"
)

// maxResponseBytes bounds how much of a feed response is read.
const maxResponseBytes = 4 << 20

// Client fetches alerts from the feed endpoint. Requests are rate limited
// as a backstop against scheduler misconfiguration; the limiter floor is
// independent of the configured poll interval.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient creates a feed client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		logger:  logger,
	}
}

// FetchAlerts queries the feed, appending coordinates when a geolocation
// sample is available. Non-2xx responses surface as a TransportError and
// malformed bodies as a ParseError.
func (c *Client) FetchAlerts(ctx context.Context, loc *geo.Sample) (*AlertResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{Err: errors.Wrap(err, "rate limiter interrupted")}
	}

	reqURL, err := c.buildURL(loc)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &TransportError{Err: errors.Wrap(err, "failed to create request")}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Err: errors.Wrap(err, "failed to read response body")}
	}

	parsed, err := parseResponse(body)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Fetched alerts",
		zap.Int("count", len(parsed.Items)),
		zap.Bool("withLocation", loc != nil))

	return parsed, nil
}

func (c *Client) buildURL(loc *geo.Sample) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", &TransportError{Err: errors.Wrap(err, "invalid feed URL")}
	}

	if loc != nil {
		q := u.Query()
		q.Set("lat", strconv.FormatFloat(loc.Lat, 'f', -1, 64))
		q.Set("lon", strconv.FormatFloat(loc.Lon, 'f', -1, 64))
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}
