package worldbank_test

import (
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"macropull/internal/domain/models"
	"macropull/internal/providers/worldbank"
)

func newProvider(t *testing.T, client worldbank.HTTPClient) *worldbank.Provider {
	t.Helper()

	p, err := worldbank.New(
		map[string]string{"gdp": "NY.GDP.MKTP.CD"},
		worldbank.WithHTTPClient(client),
	)
	require.NoError(t, err)
	return p
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestNewRejectsEmptyMappings(t *testing.T) {
	t.Parallel()

	_, err := worldbank.New(nil)
	require.Error(t, err)

	_, err = worldbank.New(map[string]string{"gdp": ""})
	require.Error(t, err)
}

func TestIndicatorsSorted(t *testing.T) {
	t.Parallel()

	p, err := worldbank.New(map[string]string{
		"population": "SP.POP.TOTL",
		"gdp":        "NY.GDP.MKTP.CD",
	})
	require.NoError(t, err)
	require.Equal(t, []string{"gdp", "population"}, p.Indicators())
}

func TestValidateUnknownIndicator(t *testing.T) {
	t.Parallel()

	p, err := worldbank.New(map[string]string{"gdp": "NY.GDP.MKTP.CD"})
	require.NoError(t, err)

	require.NoError(t, p.Validate(models.DataRequest{Entity: "DEU", Indicator: "gdp"}))

	err = p.Validate(models.DataRequest{Entity: "DEU", Indicator: "inflation"})
	require.ErrorIs(t, err, models.ErrInvalid)
}

func TestFetchDecodesObservations(t *testing.T) {
	t.Parallel()

	// Arrange: a two-element page with one null value to be skipped.
	body := `[
		{"page":1,"pages":1,"per_page":1000,"total":3},
		[
			{"countryiso3code":"DEU","date":"2023","value":4.0e12,"unit":"","obs_status":""},
			{"countryiso3code":"DEU","date":"2022","value":3.9e12,"unit":"","obs_status":"E"},
			{"countryiso3code":"DEU","date":"2021","value":null,"unit":"","obs_status":""}
		]
	]`

	ctrl := gomock.NewController(t)
	client := NewMockHTTPClient(ctrl)
	client.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Contains(t, req.URL.Path, "/country/DEU/indicator/NY.GDP.MKTP.CD")
			require.Equal(t, "json", req.URL.Query().Get("format"))
			return jsonResponse(http.StatusOK, body), nil
		}).
		Times(1)

	// Act
	p := newProvider(t, client)
	series, err := p.Fetch(t.Context(), models.DataRequest{Entity: "DEU", Indicator: "gdp"})

	// Assert: null dropped, points sorted ascending, statuses mapped.
	require.NoError(t, err)
	require.Equal(t, 2, series.Len())
	require.Equal(t, "worldbank", series.Provider)
	require.Equal(t, 3.9e12, series.Points[0].Value)
	require.Equal(t, models.QualityEstimated, series.Points[0].Quality)
	require.Equal(t, 4.0e12, series.Points[1].Value)
	require.Equal(t, models.QualityOfficial, series.Points[1].Quality)
	require.Equal(t, 2023, series.Points[1].Timestamp.Year())
}

func TestFetchSendsDateRange(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := NewMockHTTPClient(ctrl)
	client.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "2020:2023", req.URL.Query().Get("date"))
			return jsonResponse(http.StatusOK, `[{"total":1},[{"date":"2021","value":1.0}]]`), nil
		}).
		Times(1)

	from := time.Date(2020, time.June, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)

	p := newProvider(t, client)
	_, err := p.Fetch(t.Context(), models.DataRequest{
		Entity: "DEU", Indicator: "gdp", From: &from, To: &to,
	})
	require.NoError(t, err)
}

func TestFetchStatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, wantErr: models.ErrRateLimited},
		{name: "server error", status: http.StatusBadGateway, wantErr: models.ErrUnavailable},
		{name: "client error", status: http.StatusBadRequest, wantErr: models.ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			client := NewMockHTTPClient(ctrl)
			client.EXPECT().
				Do(gomock.Any()).
				Return(jsonResponse(tt.status, "{}"), nil).
				Times(1)

			p := newProvider(t, client)
			_, err := p.Fetch(t.Context(), models.DataRequest{Entity: "DEU", Indicator: "gdp"})
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFetchNetworkErrorIsUnavailable(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := NewMockHTTPClient(ctrl)
	client.EXPECT().
		Do(gomock.Any()).
		Return(nil, io.ErrUnexpectedEOF).
		Times(1)

	p := newProvider(t, client)
	_, err := p.Fetch(t.Context(), models.DataRequest{Entity: "DEU", Indicator: "gdp"})
	require.ErrorIs(t, err, models.ErrUnavailable)
}

func TestFetchErrorEnvelopeIsNotFound(t *testing.T) {
	t.Parallel()

	// A single-element array is the API's error envelope.
	envelope := `[{"message":[{"id":"120","value":"Invalid value"}]}]`

	ctrl := gomock.NewController(t)
	client := NewMockHTTPClient(ctrl)
	client.EXPECT().
		Do(gomock.Any()).
		Return(jsonResponse(http.StatusOK, envelope), nil).
		Times(1)

	p := newProvider(t, client)
	_, err := p.Fetch(t.Context(), models.DataRequest{Entity: "XYZ", Indicator: "gdp"})
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestFetchAllNullValuesIsNotFound(t *testing.T) {
	t.Parallel()

	body := `[{"total":1},[{"date":"2023","value":null}]]`

	ctrl := gomock.NewController(t)
	client := NewMockHTTPClient(ctrl)
	client.EXPECT().
		Do(gomock.Any()).
		Return(jsonResponse(http.StatusOK, body), nil).
		Times(1)

	p := newProvider(t, client)
	_, err := p.Fetch(t.Context(), models.DataRequest{Entity: "DEU", Indicator: "gdp"})
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestFetchParsesPeriodFormats(t *testing.T) {
	t.Parallel()

	body := `[{"total":3},[
		{"date":"2023","value":1.0},
		{"date":"2023Q2","value":2.0},
		{"date":"2023M07","value":3.0}
	]]`

	ctrl := gomock.NewController(t)
	client := NewMockHTTPClient(ctrl)
	client.EXPECT().
		Do(gomock.Any()).
		Return(jsonResponse(http.StatusOK, body), nil).
		Times(1)

	p := newProvider(t, client)
	series, err := p.Fetch(t.Context(), models.DataRequest{Entity: "DEU", Indicator: "gdp"})
	require.NoError(t, err)
	require.Equal(t, 3, series.Len())
	require.Equal(t, time.January, series.Points[0].Timestamp.Month())
	require.Equal(t, time.April, series.Points[1].Timestamp.Month())
	require.Equal(t, time.July, series.Points[2].Timestamp.Month())
}
