package geo

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// IPLookup is the tier-2 provider resolving an approximate location from
// the caller's public IP. Any transport error or a non-success status field
// in the response body is treated as "unavailable" rather than a failure.
type IPLookup struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewIPLookup creates an IP-based lookup against the given endpoint.
func NewIPLookup(url string, logger *zap.Logger) *IPLookup {
	return &IPLookup{
		url: url,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

type ipLookupResponse struct {
	Status string  `json:"status"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
}

// ApproximateLocation queries the IP geolocation endpoint. Returns nil with
// no error when the service reports a non-success status.
func (l *IPLookup) ApproximateLocation(ctx context.Context) (*Sample, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create IP lookup request")
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "IP lookup request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("IP lookup returned HTTP %d", resp.StatusCode)
	}

	var body ipLookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Wrap(err, "failed to parse IP lookup response")
	}

	if body.Status != "success" {
		l.logger.Debug("IP lookup reported non-success status", zap.String("status", body.Status))
		return nil, nil
	}

	return &Sample{Lat: body.Lat, Lon: body.Lon}, nil
}

// HTTPSensor is a precise-tier provider backed by a local sensor bridge
// endpoint returning {"lat": ..., "lon": ...}. The request carries a
// no-cache directive so a stale reading is never served.
type HTTPSensor struct {
	url        string
	httpClient *http.Client
}

// NewHTTPSensor creates a sensor-bridge provider against the given endpoint.
func NewHTTPSensor(url string) *HTTPSensor {
	return &HTTPSensor{
		url: url,
		httpClient: &http.Client{
			Timeout: PreciseTimeout,
		},
	}
}

// PreciseLocation queries the sensor bridge. The context carries the
// tier-1 timeout.
func (s *HTTPSensor) PreciseLocation(ctx context.Context) (Sample, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return Sample{}, errors.Wrap(err, "failed to create sensor request")
	}
	req.Header.Set("Cache-Control", "no-cache, max-age=0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Sample{}, errors.Wrap(err, "sensor request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Sample{}, errors.Errorf("sensor returned HTTP %d", resp.StatusCode)
	}

	var sample Sample
	if err := json.NewDecoder(resp.Body).Decode(&sample); err != nil {
		return Sample{}, errors.Wrap(err, "failed to parse sensor response")
	}

	return sample, nil
}
