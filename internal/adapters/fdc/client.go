package fdc

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

	"github.com/IANDYI/nutrition-service/internal/core/domain"
	"github.com/IANDYI/nutrition-service/internal/core/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://api.nal.usda.gov/fdc/v1/"
	defaultTimeout = 10 * time.Second

	// error bodies are truncated to this many bytes in error messages
	maxErrorBody = 512
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fdc_requests_total",
			Help: "Total number of FoodData Central requests",
		},
		[]string{"endpoint", "outcome"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fdc_request_duration_seconds",
			Help:    "FoodData Central request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
)

// StatusError is returned for non-2xx responses
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fdc returned status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the FoodData Central REST API.
// Implements ports.FoodLookupClient
type Client struct {
	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
	log        *zap.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithBreakerSettings replaces the circuit breaker settings
func WithBreakerSettings(settings gobreaker.Settings) Option {
	return func(c *Client) {
		settings.Name = "fdc"
		c.cb = gobreaker.NewCircuitBreaker(settings)
	}
}

// NewClient creates a FoodData Central client. baseURL defaults to the
// public v1 endpoint.
func NewClient(baseURL, apiKey string, log *zap.Logger, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid fdc base url: %w", err)
	}

	c := &Client{
		baseURL:    parsed,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cb == nil {
		c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "fdc",
			MaxRequests: 5,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
		})
	}
	return c, nil
}

// BreakerState reports the lookup circuit breaker state for readiness checks
func (c *Client) BreakerState() gobreaker.State {
	return c.cb.State()
}

type searchResponse struct {
	Foods []struct {
		FdcID       int    `json:"fdcId"`
		Description string `json:"description"`
	} `json:"foods"`
}

// SearchByCode searches foods of one data type for a code
func (c *Client) SearchByCode(ctx context.Context, query, dataType string, pageSize int) ([]domain.FoodCandidate, error) {
	params := url.Values{}
	params.Set("query", query)
	if dataType != "" {
		params.Set("dataType", dataType)
	}
	if pageSize > 0 {
		params.Set("pageSize", strconv.Itoa(pageSize))
	}

	var resp searchResponse
	if err := c.get(ctx, "search", "foods/search", params, &resp); err != nil {
		return nil, err
	}

	candidates := make([]domain.FoodCandidate, 0, len(resp.Foods))
	for _, food := range resp.Foods {
		candidates = append(candidates, domain.FoodCandidate{
			ID:          food.FdcID,
			Description: food.Description,
		})
	}
	return candidates, nil
}

type detailsResponse struct {
	FdcID           int            `json:"fdcId"`
	Description     string         `json:"description"`
	FoodNutrients   []foodNutrient `json:"foodNutrients"`
	ServingSize     *float64       `json:"servingSize"`
	ServingSizeUnit string         `json:"servingSizeUnit"`
}

// foodNutrient accepts the full format (nested nutrient, amount) and the
// abridged one (flat nutrientId, value)
type foodNutrient struct {
	Nutrient *struct {
		ID       int    `json:"id"`
		Name     string `json:"name"`
		UnitName string `json:"unitName"`
	} `json:"nutrient"`
	Amount *float64 `json:"amount"`

	NutrientID   int      `json:"nutrientId"`
	NutrientName string   `json:"nutrientName"`
	UnitName     string   `json:"unitName"`
	Value        *float64 `json:"value"`
}

func (n foodNutrient) toDomain() (domain.FoodNutrient, bool) {
	if n.Nutrient != nil && n.Nutrient.ID != 0 {
		return domain.FoodNutrient{
			NutrientID: domain.NutrientID(n.Nutrient.ID),
			Name:       n.Nutrient.Name,
			Amount:     n.Amount,
			Unit:       n.Nutrient.UnitName,
		}, true
	}
	if n.NutrientID != 0 {
		amount := n.Value
		if amount == nil {
			amount = n.Amount
		}
		return domain.FoodNutrient{
			NutrientID: domain.NutrientID(n.NutrientID),
			Name:       n.NutrientName,
			Amount:     amount,
			Unit:       n.UnitName,
		}, true
	}
	return domain.FoodNutrient{}, false
}

// GetDetails fetches the full record of one food
func (c *Client) GetDetails(ctx context.Context, id int) (*domain.FoodDetails, error) {
	var resp detailsResponse
	if err := c.get(ctx, "details", "food/"+strconv.Itoa(id), url.Values{}, &resp); err != nil {
		return nil, err
	}

	details := &domain.FoodDetails{
		ID:              resp.FdcID,
		Description:     resp.Description,
		Nutrients:       make([]domain.FoodNutrient, 0, len(resp.FoodNutrients)),
		ServingSize:     resp.ServingSize,
		ServingSizeUnit: resp.ServingSizeUnit,
	}
	if details.ID == 0 {
		details.ID = id
	}
	for _, n := range resp.FoodNutrients {
		if nutrient, ok := n.toDomain(); ok {
			details.Nutrients = append(details.Nutrients, nutrient)
		}
	}
	return details, nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, out any) error {
	startTime := time.Now()
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, c.do(ctx, path, params, out)
	})
	requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())

	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		outcome = "breaker_open"
	default:
		outcome = "error"
	}
	requestsTotal.WithLabelValues(endpoint, outcome).Inc()

	if err != nil {
		c.log.Warn("fdc_request_failed",
			zap.String("endpoint", endpoint),
			zap.String("outcome", outcome),
			zap.Duration("duration", time.Since(startTime)),
			zap.Error(err))
		return fmt.Errorf("fdc %s request failed: %w", endpoint, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, path string, params url.Values, out any) error {
	ref, err := url.Parse(path)
	if err != nil {
		return err
	}
	u := c.baseURL.ResolveReference(ref)
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	// kept out of the URL, which transport errors echo
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

var _ ports.FoodLookupClient = (*Client)(nil)
