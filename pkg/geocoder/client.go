// Package geocoder is an HTTP client for a Yandex-compatible geocoding API.
package geocoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/meetpoint/service-meeting/pkg/geo"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// API Docs: https://yandex.com/dev/geocode/doc/en/request
// Sample request: https://geocode-maps.yandex.ru/1.x/?apikey=KEY&geocode=Tverskaya+6&format=json
const DefaultBaseURL = "https://geocode-maps.yandex.ru/1.x/"

// ErrEmptyQuery is returned when a forward lookup has no text to search for.
var ErrEmptyQuery = errors.New("geocode query is empty")

// Geocoder resolves addresses to coordinates and back.
type Geocoder interface {
	Search(ctx context.Context, query string) ([]AddressCandidate, error)
	Reverse(ctx context.Context, point geo.Coordinate) ([]AddressCandidate, error)
}

// Config holds the client settings.
type Config struct {
	BaseURL string
	APIKey  string
	// Results caps the number of candidates per request; zero leaves the API default.
	Results int
	// RatePerSecond limits outbound requests; zero disables limiting.
	RatePerSecond float64
	Timeout       time.Duration
}

// Client calls the geocoding API over HTTP.
type Client struct {
	httpClient *http.Client
	cfg        Config
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient creates a Client. A nil logger disables logging.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		limiter:    limiter,
		logger:     logger,
	}
}

// Search looks up candidates for a free-form address.
func (c *Client) Search(ctx context.Context, query string) ([]AddressCandidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	return c.lookup(ctx, query)
}

// Reverse looks up the addresses at a point.
func (c *Client) Reverse(ctx context.Context, point geo.Coordinate) ([]AddressCandidate, error) {
	if !point.Valid() {
		return nil, fmt.Errorf("invalid coordinate %s", point)
	}
	return c.lookup(ctx, point.String())
}

func (c *Client) lookup(ctx context.Context, geocode string) ([]AddressCandidate, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("geocoder rate limit wait: %w", err)
		}
	}

	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	q := u.Query()
	q.Set("apikey", c.cfg.APIKey)
	q.Set("geocode", geocode)
	q.Set("format", "json")
	if c.cfg.Results > 0 {
		q.Set("results", strconv.Itoa(c.cfg.Results))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geocode request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("geocode returned status %d: %s", resp.StatusCode, string(body))
	}

	var payload geocoderResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode geocode response: %w", err)
	}

	members := payload.Response.GeoObjectCollection.FeatureMember
	candidates := make([]AddressCandidate, 0, len(members))
	for _, m := range members {
		candidate, ok := c.buildCandidate(m)
		if !ok {
			continue
		}
		candidates = append(candidates, candidate)
	}

	return candidates, nil
}

func (c *Client) buildCandidate(m featureMember) (AddressCandidate, bool) {
	obj := m.GeoObject
	point, err := geo.ParsePosition(obj.Point.Pos)
	if err != nil {
		c.logger.Debug("skipping geocode member without position",
			zap.String("name", obj.Name),
			zap.Error(err),
		)
		return AddressCandidate{}, false
	}

	return AddressCandidate{
		Name:        obj.Name,
		Description: obj.Description,
		Text:        obj.MetaDataProperty.GeocoderMetaData.Text,
		Kind:        obj.MetaDataProperty.GeocoderMetaData.Kind,
		Point:       point,
	}, true
}

var _ Geocoder = (*Client)(nil)
