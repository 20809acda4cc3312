package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"macropull/internal/cache"
	"macropull/internal/domain/models"
	"macropull/internal/handler/api"
	"macropull/internal/registry"
	"macropull/internal/usecase"
	pkgcache "macropull/pkg/cache"
	applogger "macropull/pkg/logger"
)

type fixedProvider struct {
	name       string
	indicators []string
	series     *models.TimeSeries
	err        error
}

func (p *fixedProvider) Name() string                      { return p.name }
func (p *fixedProvider) Indicators() []string              { return p.indicators }
func (p *fixedProvider) Validate(models.DataRequest) error { return nil }
func (p *fixedProvider) Fetch(context.Context, models.DataRequest) (*models.TimeSeries, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.series.Clone(), nil
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newEcho(t *testing.T, providers ...*fixedProvider) *echo.Echo {
	t.Helper()

	reg := registry.New()
	for _, p := range providers {
		reg.Register(p)
	}
	cm := cache.NewManager(pkgcache.NewMemoryTier(), nil)
	t.Cleanup(func() { _ = cm.Close() })

	service := usecase.NewDataService(reg, cm,
		usecase.WithRetryPolicy(usecase.RetryPolicy{MaxRetries: 0, BackoffMin: time.Microsecond, BackoffMax: time.Microsecond}))

	logger, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stdout"})
	require.NoError(t, err)

	e := echo.New()
	api.NewDataHandler(logger, service).RegisterRoutes(e)
	return e
}

func doRequest(t *testing.T, e *echo.Echo, method, target string, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func annualGDP() *models.TimeSeries {
	return models.NewTimeSeries("germany", "gdp", "", []models.DataPoint{
		{Timestamp: time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC), Value: 4e12, Quality: models.QualityOfficial},
	})
}

func TestGetDataSuccess(t *testing.T) {
	t.Parallel()

	e := newEcho(t, &fixedProvider{name: "remote", indicators: []string{"gdp"}, series: annualGDP()})

	_, env := doRequest(t, e, http.MethodGet, "/api/data?entity=germany&indicator=gdp", "")

	require.Equal(t, http.StatusOK, env.Status)

	var resp models.DataResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	require.True(t, resp.Success)
	require.Equal(t, "remote", resp.Series.Provider)
	require.Equal(t, 4e12, resp.Series.Points[0].Value)
}

func TestGetDataMissingParams(t *testing.T) {
	t.Parallel()

	e := newEcho(t)

	_, env := doRequest(t, e, http.MethodGet, "/api/data?entity=germany", "")
	require.Equal(t, http.StatusBadRequest, env.Status)
}

func TestGetDataBadTimestamp(t *testing.T) {
	t.Parallel()

	e := newEcho(t, &fixedProvider{name: "remote", indicators: []string{"gdp"}, series: annualGDP()})

	_, env := doRequest(t, e, http.MethodGet, "/api/data?entity=germany&indicator=gdp&from=lastweek", "")
	require.Equal(t, http.StatusBadRequest, env.Status)
}

func TestGetDataNotFoundMapsTo404(t *testing.T) {
	t.Parallel()

	e := newEcho(t, &fixedProvider{
		name:       "remote",
		indicators: []string{"gdp"},
		err:        fmt.Errorf("%w: nothing for france", models.ErrNotFound),
	})

	_, env := doRequest(t, e, http.MethodGet, "/api/data?entity=france&indicator=gdp", "")
	require.Equal(t, http.StatusNotFound, env.Status)
}

func TestGetDataUnknownIndicatorMapsTo404(t *testing.T) {
	t.Parallel()

	e := newEcho(t)

	_, env := doRequest(t, e, http.MethodGet, "/api/data?entity=germany&indicator=gdp", "")
	require.Equal(t, http.StatusNotFound, env.Status)
}

func TestGetDataExhaustedMapsTo503(t *testing.T) {
	t.Parallel()

	e := newEcho(t, &fixedProvider{
		name:       "remote",
		indicators: []string{"gdp"},
		err:        models.ErrUnavailable,
	})

	_, env := doRequest(t, e, http.MethodGet, "/api/data?entity=germany&indicator=gdp", "")
	require.Equal(t, http.StatusServiceUnavailable, env.Status)
}

func TestGetDataOutageWithMisleadingDetailMapsTo503(t *testing.T) {
	t.Parallel()

	// An availability failure whose upstream detail happens to contain the
	// wording of another sentinel must still classify as unavailable.
	e := newEcho(t, &fixedProvider{
		name:       "remote",
		indicators: []string{"gdp"},
		err:        fmt.Errorf("%w: upstream replied with body \"no data found\"", models.ErrUnavailable),
	})

	_, env := doRequest(t, e, http.MethodGet, "/api/data?entity=germany&indicator=gdp", "")
	require.Equal(t, http.StatusServiceUnavailable, env.Status)
}

func TestGetDataDefaultSubstitution(t *testing.T) {
	t.Parallel()

	e := newEcho(t, &fixedProvider{
		name:       "remote",
		indicators: []string{"gdp"},
		err:        models.ErrUnavailable,
	})

	_, env := doRequest(t, e, http.MethodGet, "/api/data?entity=germany&indicator=gdp&default=1000", "")
	require.Equal(t, http.StatusOK, env.Status)

	var resp models.DataResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	require.True(t, resp.Success)
	require.True(t, resp.DefaultUsed)
	require.Equal(t, 1000.0, *resp.Default)
}

func TestGetBatch(t *testing.T) {
	t.Parallel()

	e := newEcho(t, &fixedProvider{name: "remote", indicators: []string{"gdp"}, series: annualGDP()})

	body := `{"requests":[
		{"entity":"germany","indicator":"gdp"},
		{"entity":"france","indicator":"unknown"}
	]}`
	_, env := doRequest(t, e, http.MethodPost, "/api/data/batch", body)
	require.Equal(t, http.StatusOK, env.Status)

	var responses []models.DataResponse
	require.NoError(t, json.Unmarshal(env.Data, &responses))
	require.Len(t, responses, 2)
	require.True(t, responses[0].Success)
	require.False(t, responses[1].Success)
}

func TestGetBatchEmptyRejected(t *testing.T) {
	t.Parallel()

	e := newEcho(t)

	_, env := doRequest(t, e, http.MethodPost, "/api/data/batch", `{"requests":[]}`)
	require.Equal(t, http.StatusBadRequest, env.Status)
}

func TestIndicators(t *testing.T) {
	t.Parallel()

	e := newEcho(t,
		&fixedProvider{name: "a", indicators: []string{"gdp", "population"}},
		&fixedProvider{name: "b", indicators: []string{"gdp"}},
	)

	_, env := doRequest(t, e, http.MethodGet, "/api/indicators", "")
	require.Equal(t, http.StatusOK, env.Status)

	var data struct {
		Indicators []string `json:"indicators"`
		Providers  []string `json:"providers"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Equal(t, []string{"gdp", "population"}, data.Indicators)
	require.Equal(t, []string{"a", "b"}, data.Providers)
}

func TestCacheEndpoints(t *testing.T) {
	t.Parallel()

	e := newEcho(t, &fixedProvider{name: "remote", indicators: []string{"gdp"}, series: annualGDP()})

	// Warm the cache.
	_, env := doRequest(t, e, http.MethodGet, "/api/data?entity=germany&indicator=gdp", "")
	require.Equal(t, http.StatusOK, env.Status)

	_, env = doRequest(t, e, http.MethodGet, "/api/cache/stats", "")
	require.Equal(t, http.StatusOK, env.Status)
	var stats cache.Stats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	require.Equal(t, 1, stats.Entries)

	// Invalidate the key, then the next request misses the cache.
	rec, _ := doRequest(t, e, http.MethodDelete, "/api/cache/germany/gdp", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	_, env = doRequest(t, e, http.MethodGet, "/api/cache/stats", "")
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	require.Zero(t, stats.Entries)

	// Sweep and clear respond even when there is nothing to do.
	_, env = doRequest(t, e, http.MethodPost, "/api/cache/sweep", "")
	require.Equal(t, http.StatusOK, env.Status)

	rec, _ = doRequest(t, e, http.MethodDelete, "/api/cache", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	e := newEcho(t)

	rec, env := doRequest(t, e, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, http.StatusOK, env.Status)
}
