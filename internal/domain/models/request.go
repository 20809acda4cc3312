package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// identifierRe bounds what we accept as an entity or indicator name. Keeps
// cache keys and provider URLs free of surprises.
var identifierRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// DataRequest asks for an indicator's time series for one entity.
// Constructed per call, never mutated afterwards.
type DataRequest struct {
	Entity    string
	Indicator string
	From      *time.Time
	To        *time.Time

	// Default, when set, is substituted as a single-value answer if every
	// provider fails. Defaults are flagged in the response and never cached.
	Default *float64
}

// Key returns the cache key for the request.
func (r DataRequest) Key() string {
	return strings.ToLower(r.Entity) + ":" + strings.ToLower(r.Indicator)
}

// Validate checks request shape. A non-nil error wraps ErrInvalid.
func (r DataRequest) Validate() error {
	if !identifierRe.MatchString(r.Entity) {
		return fmt.Errorf("%w: entity %q", ErrInvalid, r.Entity)
	}
	if !identifierRe.MatchString(r.Indicator) {
		return fmt.Errorf("%w: indicator %q", ErrInvalid, r.Indicator)
	}
	if r.From != nil && r.To != nil && r.From.After(*r.To) {
		return fmt.Errorf("%w: from %s is after to %s", ErrInvalid,
			r.From.Format(time.RFC3339), r.To.Format(time.RFC3339))
	}
	return nil
}

// DataResponse is the uniform answer crossing the service boundary. Callers
// branch on Success and DefaultUsed only; Error is diagnostic text. In-process
// callers that need the failure class check Err with errors.Is against the
// sentinels, never the text.
type DataResponse struct {
	Success     bool        `json:"success"`
	Series      *TimeSeries `json:"series,omitempty"`
	Error       string      `json:"error,omitempty"`
	DefaultUsed bool        `json:"default_used,omitempty"`
	Default     *float64    `json:"default,omitempty"`
	CacheHit    bool        `json:"cache_hit,omitempty"`

	// Err is the terminal error behind Error, kept in typed form for
	// in-process classification. Not serialized.
	Err error `json:"-"`
}

// SuccessResponse wraps a fetched or cached series.
func SuccessResponse(series *TimeSeries, cacheHit bool) DataResponse {
	return DataResponse{Success: true, Series: series, CacheHit: cacheHit}
}

// DefaultResponse records a caller-supplied default substitution.
func DefaultResponse(def float64, lastErr error) DataResponse {
	resp := DataResponse{Success: true, DefaultUsed: true, Default: &def, Err: lastErr}
	if lastErr != nil {
		resp.Error = lastErr.Error()
	}
	return resp
}

// FailureResponse carries the last observed error detail.
func FailureResponse(err error) DataResponse {
	resp := DataResponse{Success: false, Err: err}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}
