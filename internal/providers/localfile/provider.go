// Package localfile implements the file-backed provider. Series live under a
// data directory laid out as <dir>/<indicator>/<entity>.csv with a
// date,value,quality,unit header (quality and unit optional).
package localfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"macropull/internal/domain/models"
)

const providerName = "localfile"

// Provider serves whatever indicator directories exist under dir at
// construction time. The scan runs once; new directories appear after a
// restart or a fresh registration.
type Provider struct {
	dir        string
	indicators []string
}

// New scans dir for indicator subdirectories. A missing or empty directory
// is a configuration error surfaced eagerly.
func New(dir string) (*Provider, error) {
	if dir == "" {
		return nil, fmt.Errorf("localfile: data directory is required")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("localfile: scan %s: %w", dir, err)
	}

	var indicators []string
	for _, entry := range entries {
		if entry.IsDir() {
			indicators = append(indicators, entry.Name())
		}
	}
	if len(indicators) == 0 {
		return nil, fmt.Errorf("localfile: no indicator directories under %s", dir)
	}
	sort.Strings(indicators)

	return &Provider{dir: dir, indicators: indicators}, nil
}

func (p *Provider) Name() string { return providerName }

func (p *Provider) Indicators() []string {
	out := make([]string, len(p.indicators))
	copy(out, p.indicators)
	return out
}

// Validate checks the indicator directory was discovered at startup.
func (p *Provider) Validate(req models.DataRequest) error {
	for _, indicator := range p.indicators {
		if indicator == req.Indicator {
			return nil
		}
	}
	return fmt.Errorf("%w: localfile has no directory for indicator %q", models.ErrInvalid, req.Indicator)
}

// Fetch reads and parses the entity's CSV file.
func (p *Provider) Fetch(_ context.Context, req models.DataRequest) (*models.TimeSeries, error) {
	path := filepath.Join(p.dir, req.Indicator, strings.ToLower(req.Entity)+".csv")

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: no file for %s/%s", models.ErrNotFound, req.Entity, req.Indicator)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", models.ErrUnavailable, path, err)
	}
	defer f.Close()

	points, err := readPoints(f)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", models.ErrUnavailable, path, err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: %s holds no rows", models.ErrNotFound, path)
	}

	return models.NewTimeSeries(req.Entity, req.Indicator, providerName, points), nil
}

func readPoints(r io.Reader) ([]models.DataPoint, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, err
	}
	if len(header) < 2 || !strings.EqualFold(header[0], "date") || !strings.EqualFold(header[1], "value") {
		return nil, fmt.Errorf("unexpected header %v, want date,value[,quality[,unit]]", header)
	}

	var points []models.DataPoint
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) < 2 {
			continue
		}

		ts, err := parseDate(record[0])
		if err != nil {
			return nil, fmt.Errorf("row %v: %w", record, err)
		}
		value, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, fmt.Errorf("row %v: %w", record, err)
		}

		point := models.DataPoint{Timestamp: ts, Value: value, Quality: models.QualityOfficial}
		if len(record) > 2 && record[2] != "" {
			point.Quality = models.ParseQuality(record[2])
		}
		if len(record) > 3 {
			point.Unit = record[3]
		}
		points = append(points, point)
	}
	return points, nil
}

// parseDate accepts a bare year, a calendar date or RFC3339.
func parseDate(s string) (time.Time, error) {
	if len(s) == 4 {
		year, err := strconv.Atoi(s)
		if err == nil {
			return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), nil
		}
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
