package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/grigta/covid-tracker/pkg/logger"
	"github.com/grigta/covid-tracker/services/dashboard-service/internal/models"
)

const maxResponseBytes = 16 << 20

// StatsSource is what the controller needs from the statistics API.
type StatsSource interface {
	GetAggregate(ctx context.Context, region string) (*models.AggregateStats, error)
	GetCountries(ctx context.Context) ([]models.CountryRecord, error)
}

// HistorySource feeds the line graph.
type HistorySource interface {
	GetHistorical(ctx context.Context, lastDays int) (*models.HistoricalAll, error)
}

// DiseaseClient talks to the disease.sh v3 COVID-19 API. Every call is a single
// GET with no retry; failures come back as *models.NetworkError or *models.ParseError.
type DiseaseClient struct {
	baseURL   string
	userAgent string
	client    *http.Client
	logger    logger.Logger
}

func NewDiseaseClient(baseURL string, timeout time.Duration, userAgent string, log logger.Logger) *DiseaseClient {
	return &DiseaseClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:          50,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   5 * time.Second,
				ResponseHeaderTimeout: timeout,
			},
		},
		logger: log.WithField("component", "disease_client"),
	}
}

func (c *DiseaseClient) GetGlobal(ctx context.Context) (*models.AggregateStats, error) {
	return c.getStats(ctx, "all", "/v3/covid-19/all")
}

// GetCountry fetches one country by ISO2/ISO3 code or name.
func (c *DiseaseClient) GetCountry(ctx context.Context, code string) (*models.AggregateStats, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("%w: empty country code", models.ErrInvalidRegion)
	}
	return c.getStats(ctx, "country", "/v3/covid-19/countries/"+url.PathEscape(code))
}

// GetAggregate routes Worldwide to the global endpoint and anything else to the country endpoint.
func (c *DiseaseClient) GetAggregate(ctx context.Context, region string) (*models.AggregateStats, error) {
	if IsWorldwide(region) {
		return c.GetGlobal(ctx)
	}
	return c.GetCountry(ctx, region)
}

func (c *DiseaseClient) GetCountries(ctx context.Context) ([]models.CountryRecord, error) {
	var records []models.CountryRecord
	if err := c.getJSON(ctx, "countries", "/v3/covid-19/countries", &records); err != nil {
		return nil, err
	}
	return records, nil
}

// GetHistorical fetches the cumulative worldwide timelines for the last lastDays days.
func (c *DiseaseClient) GetHistorical(ctx context.Context, lastDays int) (*models.HistoricalAll, error) {
	path := "/v3/covid-19/historical/all?lastdays=" + strconv.Itoa(lastDays)

	var history models.HistoricalAll
	if err := c.getJSON(ctx, "historical", path, &history); err != nil {
		return nil, err
	}
	if history.Cases == nil {
		upstreamErrors.WithLabelValues("historical", "parse").Inc()
		return nil, &models.ParseError{URL: c.baseURL + path, Reason: "missing cases timeline"}
	}
	return &history, nil
}

func (c *DiseaseClient) getStats(ctx context.Context, endpoint, path string) (*models.AggregateStats, error) {
	var stats models.AggregateStats
	if err := c.getJSON(ctx, endpoint, path, &stats); err != nil {
		return nil, err
	}
	if stats.Cases == nil {
		upstreamErrors.WithLabelValues(endpoint, "parse").Inc()
		return nil, &models.ParseError{URL: c.baseURL + path, Reason: "missing cases"}
	}
	return &stats, nil
}

func (c *DiseaseClient) getJSON(ctx context.Context, endpoint, path string, dest interface{}) (err error) {
	fullURL := c.baseURL + path
	start := time.Now()
	defer func() {
		RecordUpstreamRequest(endpoint, time.Since(start).Seconds(), err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return &models.NetworkError{URL: fullURL, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.logger.Debug("Fetching statistics", logger.Field{Key: "url", Value: fullURL})

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.WithError(err).Error("Statistics request failed", logger.Field{Key: "url", Value: fullURL})
		return &models.NetworkError{URL: fullURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &models.NetworkError{URL: fullURL, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		netErr := &models.NetworkError{
			URL:        fullURL,
			StatusCode: resp.StatusCode,
			Message:    upstreamMessage(body),
		}
		c.logger.Error("Statistics API returned error status",
			logger.Field{Key: "url", Value: fullURL},
			logger.Field{Key: "status", Value: resp.StatusCode},
		)
		return netErr
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return &models.ParseError{URL: fullURL, Reason: "invalid JSON", Err: err}
	}

	return nil
}

// upstreamMessage pulls the {"message": ...} field disease.sh puts in error bodies.
func upstreamMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		// a cut inside a multi-byte rune leaves a partial sequence; drop it
		msg = strings.ToValidUTF8(msg[:200], "")
	}
	return msg
}

// IsWorldwide reports whether region selects the global aggregate.
func IsWorldwide(region string) bool {
	return strings.EqualFold(strings.TrimSpace(region), models.Worldwide)
}
