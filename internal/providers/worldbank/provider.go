// Package worldbank implements the remote-API provider against the World
// Bank v2 indicator API.
package worldbank

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"macropull/internal/domain/models"
)

const (
	defaultBaseURL = "https://api.worldbank.org/v2"
	defaultPerPage = 1000
	providerName   = "worldbank"
)

// Provider serves indicators that have a configured World Bank series code,
// e.g. "gdp" -> NY.GDP.MKTP.CD. Entities are country identifiers the API
// understands (ISO2, ISO3 or WB aggregates).
type Provider struct {
	baseURL    string
	httpClient HTTPClient
	query      url.Values
	perPage    int
	codes      map[string]string // indicator -> WB series code
}

// New creates the provider. codes must be non-empty; options are applied
// after defaults. Configuration is validated here, not at first fetch.
func New(codes map[string]string, opts ...Option) (*Provider, error) {
	p := &Provider{
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
		query:      defaultQuery(),
		perPage:    defaultPerPage,
		codes:      make(map[string]string, len(codes)),
	}
	for indicator, code := range codes {
		if indicator == "" || code == "" {
			return nil, fmt.Errorf("worldbank: empty indicator mapping %q=%q", indicator, code)
		}
		p.codes[indicator] = code
	}

	for _, opt := range opts {
		opt(p)
	}

	if len(p.codes) == 0 {
		return nil, fmt.Errorf("worldbank: at least one indicator code mapping is required")
	}
	if p.baseURL == "" {
		return nil, fmt.Errorf("worldbank: base URL is required")
	}
	if p.httpClient == nil {
		return nil, fmt.Errorf("worldbank: http client is required")
	}
	return p, nil
}

func (p *Provider) Name() string { return providerName }

// Indicators lists the configured indicator names, sorted.
func (p *Provider) Indicators() []string {
	out := make([]string, 0, len(p.codes))
	for indicator := range p.codes {
		out = append(out, indicator)
	}
	sort.Strings(out)
	return out
}

// Validate checks the indicator has a series code before any I/O happens.
func (p *Provider) Validate(req models.DataRequest) error {
	if _, ok := p.codes[req.Indicator]; !ok {
		return fmt.Errorf("%w: worldbank has no code for indicator %q", models.ErrInvalid, req.Indicator)
	}
	return nil
}

// wbObservation is one element of the API's data page.
type wbObservation struct {
	CountryISO3 string   `json:"countryiso3code"`
	Date        string   `json:"date"`
	Value       *float64 `json:"value"`
	Unit        string   `json:"unit"`
	ObsStatus   string   `json:"obs_status"`
}

// Fetch retrieves the series. Response shape is a two-element JSON array:
// paging metadata, then the observation list.
func (p *Provider) Fetch(ctx context.Context, req models.DataRequest) (*models.TimeSeries, error) {
	code := p.codes[req.Indicator]

	u := fmt.Sprintf("%s/country/%s/indicator/%s", p.baseURL, url.PathEscape(req.Entity), url.PathEscape(code))
	q := url.Values{}
	for k, vs := range p.query {
		q[k] = vs
	}
	q.Set("per_page", strconv.Itoa(p.perPage))
	if dateRange := formatDateRange(req.From, req.To); dateRange != "" {
		q.Set("date", dateRange)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", models.ErrInvalid, err)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: worldbank request: %v", models.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: worldbank returned 429", models.ErrRateLimited)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: worldbank returned %d", models.ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: worldbank returned %d", models.ErrInvalid, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", models.ErrUnavailable, err)
	}

	points, err := decodeObservations(body)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: worldbank has no data for %s/%s", models.ErrNotFound, req.Entity, req.Indicator)
	}

	return models.NewTimeSeries(req.Entity, req.Indicator, providerName, points), nil
}

func decodeObservations(body []byte) ([]models.DataPoint, error) {
	var pages []json.RawMessage
	if err := json.Unmarshal(body, &pages); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", models.ErrUnavailable, err)
	}
	// A single-element array is the API's error envelope (bad indicator or
	// country); for our purposes that is simply no data.
	if len(pages) < 2 {
		return nil, fmt.Errorf("%w: worldbank error envelope", models.ErrNotFound)
	}

	var observations []wbObservation
	if err := json.Unmarshal(pages[1], &observations); err != nil {
		return nil, fmt.Errorf("%w: decode observations: %v", models.ErrUnavailable, err)
	}

	points := make([]models.DataPoint, 0, len(observations))
	for _, obs := range observations {
		if obs.Value == nil {
			continue
		}
		ts, err := parseObservationDate(obs.Date)
		if err != nil {
			continue
		}
		points = append(points, models.DataPoint{
			Timestamp: ts,
			Value:     *obs.Value,
			Quality:   qualityFromStatus(obs.ObsStatus),
			Unit:      obs.Unit,
		})
	}
	return points, nil
}

// parseObservationDate handles the API's period formats: "2023",
// "2023Q1" and "2023M01".
func parseObservationDate(s string) (time.Time, error) {
	if len(s) == 4 {
		year, err := strconv.Atoi(s)
		if err != nil {
			return time.Time{}, err
		}
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), nil
	}
	if len(s) == 6 && (s[4] == 'Q' || s[4] == 'q') {
		year, err := strconv.Atoi(s[:4])
		if err != nil {
			return time.Time{}, err
		}
		quarter, err := strconv.Atoi(s[5:])
		if err != nil || quarter < 1 || quarter > 4 {
			return time.Time{}, fmt.Errorf("bad quarter %q", s)
		}
		return time.Date(year, time.Month((quarter-1)*3+1), 1, 0, 0, 0, 0, time.UTC), nil
	}
	if len(s) >= 6 && (s[4] == 'M' || s[4] == 'm') {
		year, err := strconv.Atoi(s[:4])
		if err != nil {
			return time.Time{}, err
		}
		month, err := strconv.Atoi(s[5:])
		if err != nil || month < 1 || month > 12 {
			return time.Time{}, fmt.Errorf("bad month %q", s)
		}
		return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Parse("2006-01-02", s)
}

func qualityFromStatus(status string) models.Quality {
	switch status {
	case "", "A":
		return models.QualityOfficial
	case "E", "F":
		return models.QualityEstimated
	default:
		return models.QualityUnknown
	}
}

func formatDateRange(from, to *time.Time) string {
	if from == nil && to == nil {
		return ""
	}
	start, end := 1960, time.Now().Year()
	if from != nil {
		start = from.Year()
	}
	if to != nil {
		end = to.Year()
	}
	return fmt.Sprintf("%d:%d", start, end)
}
