// Package location resolves the coordinates attached to a recording.
package location

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/julianstephens/moodlog/internal/config"
	"github.com/julianstephens/moodlog/internal/errors"
	"github.com/julianstephens/moodlog/internal/models"
)

// Provider makes a single attempt at a location fix.
type Provider interface {
	Locate(ctx context.Context) (*models.Location, error)
}

// Static always reports the configured coordinates.
type Static struct {
	Latitude  float64
	Longitude float64
}

func (s Static) Locate(ctx context.Context) (*models.Location, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &models.Location{Latitude: s.Latitude, Longitude: s.Longitude}, nil
}

// HTTP fetches {"latitude", "longitude"} from a geolocation endpoint.
type HTTP struct {
	URL     string
	Timeout time.Duration
	client  *http.Client
}

func NewHTTP(url string, timeout time.Duration) *HTTP {
	return &HTTP{URL: url, Timeout: timeout, client: &http.Client{}}
}

type fix struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (h *HTTP) Locate(ctx context.Context) (*models.Location, error) {
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create location request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("location unavailable: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, errors.PermissionDenied("locate", fmt.Errorf("location service returned %s", resp.Status))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("location unavailable: service returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, fmt.Errorf("failed to read location response: %w", err)
	}
	var f fix
	if err := json.Unmarshal(body, &f); err != nil {
		return nil, fmt.Errorf("failed to decode location response: %w", err)
	}
	if f.Latitude == nil || f.Longitude == nil {
		return nil, fmt.Errorf("location response is missing coordinates")
	}
	if *f.Latitude < -90 || *f.Latitude > 90 || *f.Longitude < -180 || *f.Longitude > 180 {
		return nil, fmt.Errorf("location response out of range: %v, %v", *f.Latitude, *f.Longitude)
	}
	return &models.Location{Latitude: *f.Latitude, Longitude: *f.Longitude}, nil
}

// New builds the provider selected by cfg.
func New(cfg config.LocationConfig) (Provider, error) {
	switch cfg.Provider {
	case "static":
		return Static{Latitude: cfg.Latitude, Longitude: cfg.Longitude}, nil
	case "http":
		return NewHTTP(cfg.URL, cfg.Timeout), nil
	default:
		return nil, errors.Configuration("location", fmt.Sprintf("unknown location provider %q", cfg.Provider))
	}
}
