// Package trajectory ingests the recorded vehicle trajectory log.
package trajectory

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/marsyard/scout/internal/model"
)

// Load reads trajectory samples from a CSV file with lines of the form
// `timestamp_ms,x,y[,heading_deg]`. A header row is detected and skipped;
// malformed rows are logged and skipped. Samples are returned sorted by
// timestamp. An empty or missing file is an error: segmentation needs at
// least the time base.
func Load(path string, logger *slog.Logger) ([]model.TrajectorySample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trajectory log: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading trajectory log: %w", err)
	}

	samples := make([]model.TrajectorySample, 0, len(records))
	skipped := 0
	for i, rec := range records {
		sample, ok := parseRow(rec)
		if !ok {
			// first bad row is usually the header
			if i > 0 {
				skipped++
			}
			continue
		}
		samples = append(samples, sample)
	}

	if skipped > 0 {
		logger.Warn("Skipped malformed trajectory rows", "path", path, "count", skipped)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("trajectory log %s contains no usable samples", path)
	}

	sort.Slice(samples, func(i, j int) bool {
		return samples[i].TimestampMs < samples[j].TimestampMs
	})

	logger.Info("Trajectory loaded", "path", path, "samples", len(samples))
	return samples, nil
}

func parseRow(rec []string) (model.TrajectorySample, bool) {
	if len(rec) < 3 {
		return model.TrajectorySample{}, false
	}

	ts, err := strconv.ParseInt(strings.TrimSpace(rec[0]), 10, 64)
	if err != nil {
		return model.TrajectorySample{}, false
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
	if err != nil {
		return model.TrajectorySample{}, false
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
	if err != nil {
		return model.TrajectorySample{}, false
	}

	sample := model.TrajectorySample{TimestampMs: ts, X: x, Y: y}
	if len(rec) > 3 {
		if heading, err := strconv.ParseFloat(strings.TrimSpace(rec[3]), 64); err == nil {
			sample.HeadingDeg = heading
		}
	}
	return sample, true
}
