package models

// Requests for the data HTTP endpoints. Defined in domain for consistency and reuse.

import (
	"fmt"
	"strconv"

	"macropull/pkg/util"
)

type DataQueryRequest struct {
	Entity    string `query:"entity" json:"entity" validate:"required"`
	Indicator string `query:"indicator" json:"indicator" validate:"required"`
	From      string `query:"from" json:"from,omitempty"`
	To        string `query:"to" json:"to,omitempty"`
	Default   string `query:"default" json:"default,omitempty"`
}

type BatchDataRequest struct {
	Requests []DataQueryRequest `json:"requests" validate:"required,min=1,max=100,dive"`
}

// ToDomain converts the wire shape into a DataRequest. Timestamps accept
// RFC3339, a bare year, or unix seconds.
func (r DataQueryRequest) ToDomain() (DataRequest, error) {
	req := DataRequest{Entity: r.Entity, Indicator: r.Indicator}
	if r.From != "" {
		t, ok := util.ParseTime(r.From)
		if !ok {
			return req, fmt.Errorf("%w: from %q", ErrInvalid, r.From)
		}
		req.From = &t
	}
	if r.To != "" {
		t, ok := util.ParseTime(r.To)
		if !ok {
			return req, fmt.Errorf("%w: to %q", ErrInvalid, r.To)
		}
		req.To = &t
	}
	if r.Default != "" {
		v, err := strconv.ParseFloat(r.Default, 64)
		if err != nil {
			return req, fmt.Errorf("%w: default %q", ErrInvalid, r.Default)
		}
		req.Default = &v
	}
	return req, nil
}
