// Package parser turns the analysis capability's free-text replies into
// typed records. Replies carry no server-side schema, so all tolerance
// lives here: malformed input degrades to partial or default records and
// parsing never returns an error.
package parser

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/marsyard/scout/internal/model"
)

// Observation block delimiters and field prefixes as emitted by the
// segment-level analysis prompt.
const (
	obsStartMarker = "LANDMARK_OBSERVATION_START"
	obsEndMarker   = "LANDMARK_OBSERVATION_END"

	fieldCandidateID = "CANDIDATE_ID:"
	fieldDescription = "OBJECT_DESCRIPTION:"
	fieldReasoning   = "REASONING_FOR_CANDIDACY:"
	fieldStartTs     = "START_TIMESTAMP_MS:"
	fieldEndTs       = "END_TIMESTAMP_MS:"
	fieldBestTs      = "BEST_VISIBILITY_TIMESTAMP_MS:"
)

// Parser converts free-text analysis replies into observation records.
type Parser struct {
	logger *slog.Logger
}

// New creates a parser with only a logger dependency.
func New(logger *slog.Logger) *Parser {
	return &Parser{logger: logger}
}

// ParseObservations extracts all delimited observation blocks from one
// reply, in source order. Text outside any start/end marker pair is
// discarded. An empty or undelimited reply yields an empty list.
func (p *Parser) ParseObservations(text string) []model.Observation {
	var observations []model.Observation

	parts := strings.Split(strings.TrimSpace(text), obsStartMarker)
	for i, part := range parts {
		if i == 0 {
			// preamble before the first marker
			continue
		}
		block, _, _ := strings.Cut(part, obsEndMarker)
		obs := p.parseBlock(strings.TrimSpace(block))
		if obs.CandidateID == "" {
			obs.CandidateID = fmt.Sprintf("lm_obs_%d", i-1)
		}
		observations = append(observations, obs)
	}

	if p.logger != nil {
		p.logger.Debug("Parsed analysis reply", "observations", len(observations))
	}
	return observations
}

// parseBlock reads one delimited block. Fields may appear in any order;
// missing fields keep their defaults and unrecognized lines are ignored.
func (p *Parser) parseBlock(block string) model.Observation {
	obs := model.Observation{
		Description: "N/A",
		Reasoning:   "N/A",
	}

	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, fieldCandidateID):
			obs.CandidateID = strings.TrimSpace(strings.TrimPrefix(line, fieldCandidateID))
		case strings.HasPrefix(line, fieldDescription):
			obs.Description = strings.TrimSpace(strings.TrimPrefix(line, fieldDescription))
		case strings.HasPrefix(line, fieldReasoning):
			obs.Reasoning = strings.TrimSpace(strings.TrimPrefix(line, fieldReasoning))
		case strings.HasPrefix(line, fieldStartTs):
			obs.StartMs = parseMillisLenient(strings.TrimPrefix(line, fieldStartTs))
		case strings.HasPrefix(line, fieldEndTs):
			obs.EndMs = parseMillisLenient(strings.TrimPrefix(line, fieldEndTs))
		case strings.HasPrefix(line, fieldBestTs):
			obs.BestVisibilityMs = parseMillisLenient(strings.TrimPrefix(line, fieldBestTs))
		}
	}

	return obs
}

// FormatObservation renders the canonical serialization of an observation.
// Re-parsing the result reproduces the record.
func FormatObservation(obs model.Observation) string {
	var b strings.Builder
	b.WriteString(obsStartMarker)
	b.WriteByte('\n')
	fmt.Fprintf(&b, "%s %s\n", fieldCandidateID, obs.CandidateID)
	fmt.Fprintf(&b, "%s %s\n", fieldDescription, obs.Description)
	fmt.Fprintf(&b, "%s %s\n", fieldReasoning, obs.Reasoning)
	fmt.Fprintf(&b, "%s %d\n", fieldStartTs, obs.StartMs)
	fmt.Fprintf(&b, "%s %d\n", fieldEndTs, obs.EndMs)
	fmt.Fprintf(&b, "%s %d\n", fieldBestTs, obs.BestVisibilityMs)
	b.WriteString(obsEndMarker)
	b.WriteByte('\n')
	return b.String()
}

// parseMillisLenient parses a millisecond field that may arrive as an
// integer ("2400"), a float ("2400.0"), or with trailing prose ("2400 ms").
// Anything unparseable falls back to 0.
func parseMillisLenient(s string) int64 {
	s = strings.TrimSpace(s)
	if fields := strings.Fields(s); len(fields) > 0 {
		s = fields[0]
	}
	s = strings.TrimSuffix(s, "ms")

	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}
