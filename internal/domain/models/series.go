package models

import (
	"sort"
	"time"
)

// Quality marks how authoritative a data point is.
type Quality string

const (
	QualityOfficial     Quality = "official"
	QualityEstimated    Quality = "estimated"
	QualityInterpolated Quality = "interpolated"
	QualityUnknown      Quality = "unknown"
)

// ParseQuality maps a raw string to a Quality, defaulting to unknown.
func ParseQuality(s string) Quality {
	switch Quality(s) {
	case QualityOfficial, QualityEstimated, QualityInterpolated:
		return Quality(s)
	default:
		return QualityUnknown
	}
}

// DataPoint is a single observation in a time series. Immutable once built.
type DataPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
	Quality   Quality   `json:"quality"`
	Unit      string    `json:"unit,omitempty"`
}

// TimeSeries holds the ordered observations for one (entity, indicator) pair.
// Invariant: a non-empty Points slice is sorted ascending by timestamp with
// unique timestamps.
type TimeSeries struct {
	Entity    string      `json:"entity"`
	Indicator string      `json:"indicator"`
	Points    []DataPoint `json:"points"`
	Provider  string      `json:"provider"`
	FetchedAt time.Time   `json:"fetched_at"`
}

// NewTimeSeries builds a normalized series stamped with its provenance.
func NewTimeSeries(entity, indicator, provider string, points []DataPoint) *TimeSeries {
	ts := &TimeSeries{
		Entity:    entity,
		Indicator: indicator,
		Points:    points,
		Provider:  provider,
		FetchedAt: time.Now().UTC(),
	}
	ts.Normalize()
	return ts
}

// Len returns the number of points.
func (ts *TimeSeries) Len() int { return len(ts.Points) }

// IsEmpty reports whether the series carries no points.
func (ts *TimeSeries) IsEmpty() bool { return ts == nil || len(ts.Points) == 0 }

// Latest returns the most recent point. Only valid for non-empty series.
func (ts *TimeSeries) Latest() (DataPoint, bool) {
	if ts.IsEmpty() {
		return DataPoint{}, false
	}
	return ts.Points[len(ts.Points)-1], true
}

// Normalize sorts points ascending by timestamp and drops duplicate
// timestamps, keeping the last occurrence.
func (ts *TimeSeries) Normalize() {
	if len(ts.Points) == 0 {
		return
	}
	sort.SliceStable(ts.Points, func(i, j int) bool {
		return ts.Points[i].Timestamp.Before(ts.Points[j].Timestamp)
	})
	out := ts.Points[:0]
	for _, p := range ts.Points {
		if n := len(out); n > 0 && out[n-1].Timestamp.Equal(p.Timestamp) {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	ts.Points = out
}

// Span returns a copy restricted to [from, to]. Nil bounds are open.
func (ts *TimeSeries) Span(from, to *time.Time) *TimeSeries {
	clone := ts.Clone()
	if from == nil && to == nil {
		return clone
	}
	points := make([]DataPoint, 0, len(clone.Points))
	for _, p := range clone.Points {
		if from != nil && p.Timestamp.Before(*from) {
			continue
		}
		if to != nil && p.Timestamp.After(*to) {
			continue
		}
		points = append(points, p)
	}
	clone.Points = points
	return clone
}

// Clone deep-copies the series so cached data is never shared mutable.
func (ts *TimeSeries) Clone() *TimeSeries {
	if ts == nil {
		return nil
	}
	clone := *ts
	clone.Points = make([]DataPoint, len(ts.Points))
	copy(clone.Points, ts.Points)
	return &clone
}
