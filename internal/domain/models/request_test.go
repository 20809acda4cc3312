package models_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"macropull/internal/domain/models"
)

func TestRequestKeyIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	a := models.DataRequest{Entity: "Germany", Indicator: "GDP"}
	b := models.DataRequest{Entity: "germany", Indicator: "gdp"}
	require.Equal(t, "germany:gdp", a.Key())
	require.Equal(t, a.Key(), b.Key())
}

func TestRequestValidate(t *testing.T) {
	t.Parallel()

	from := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		req     models.DataRequest
		wantErr bool
	}{
		{name: "valid", req: models.DataRequest{Entity: "germany", Indicator: "gdp"}},
		{name: "valid with dots", req: models.DataRequest{Entity: "DEU", Indicator: "NY.GDP.MKTP.CD"}},
		{name: "empty entity", req: models.DataRequest{Indicator: "gdp"}, wantErr: true},
		{name: "empty indicator", req: models.DataRequest{Entity: "germany"}, wantErr: true},
		{name: "entity with spaces", req: models.DataRequest{Entity: "west germany", Indicator: "gdp"}, wantErr: true},
		{name: "leading punctuation", req: models.DataRequest{Entity: ".germany", Indicator: "gdp"}, wantErr: true},
		{name: "inverted range", req: models.DataRequest{Entity: "germany", Indicator: "gdp", From: &from, To: &to}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.req.Validate()
			if tt.wantErr {
				require.Error(t, err)
				require.True(t, errors.Is(err, models.ErrInvalid))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestIsTransient(t *testing.T) {
	t.Parallel()

	require.True(t, models.IsTransient(models.ErrUnavailable))
	require.True(t, models.IsTransient(models.ErrRateLimited))
	require.False(t, models.IsTransient(models.ErrNotFound))
	require.False(t, models.IsTransient(models.ErrInvalid))
	require.False(t, models.IsTransient(nil))
}

func TestResponseConstructors(t *testing.T) {
	t.Parallel()

	series := models.NewTimeSeries("germany", "gdp", "worldbank", nil)

	ok := models.SuccessResponse(series, true)
	require.True(t, ok.Success)
	require.True(t, ok.CacheHit)
	require.False(t, ok.DefaultUsed)

	def := models.DefaultResponse(42.5, errors.New("all providers down"))
	require.True(t, def.Success)
	require.True(t, def.DefaultUsed)
	require.NotNil(t, def.Default)
	require.Equal(t, 42.5, *def.Default)
	require.Contains(t, def.Error, "all providers down")

	fail := models.FailureResponse(models.ErrExhausted)
	require.False(t, fail.Success)
	require.Contains(t, fail.Error, models.ErrExhausted.Error())
	require.ErrorIs(t, fail.Err, models.ErrExhausted)
}

func TestFailureResponseKeepsTypedError(t *testing.T) {
	t.Parallel()

	wrapped := models.FailureResponse(
		errors.Join(models.ErrExhausted, models.ErrUnavailable))
	require.ErrorIs(t, wrapped.Err, models.ErrUnavailable)
	require.False(t, errors.Is(wrapped.Err, models.ErrNotFound))
}
