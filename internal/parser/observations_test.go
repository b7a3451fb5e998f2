package parser

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marsyard/scout/internal/model"
)

func newTestParser() *Parser {
	return New(slog.Default())
}

func TestParseObservations(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		name  string
		input string
		count int
		check func(t *testing.T, obs []model.Observation)
	}{
		{
			name:  "empty reply",
			input: "",
			count: 0,
		},
		{
			name:  "undelimited prose",
			input: "No potential landmarks were found in this segment.",
			count: 0,
		},
		{
			name: "single well-formed block",
			input: `Some preamble from the model.
LANDMARK_OBSERVATION_START
CANDIDATE_ID: LM_OBS_A1
OBJECT_DESCRIPTION: Red metallic toolbox half buried in sand
REASONING_FOR_CANDIDACY: Regular geometry and bright color, static throughout
START_TIMESTAMP_MS: 12000
END_TIMESTAMP_MS: 18500
BEST_VISIBILITY_TIMESTAMP_MS: 15300
LANDMARK_OBSERVATION_END
Trailing commentary.`,
			count: 1,
			check: func(t *testing.T, obs []model.Observation) {
				assert.Equal(t, "LM_OBS_A1", obs[0].CandidateID)
				assert.Equal(t, "Red metallic toolbox half buried in sand", obs[0].Description)
				assert.Equal(t, int64(12000), obs[0].StartMs)
				assert.Equal(t, int64(18500), obs[0].EndMs)
				assert.Equal(t, int64(15300), obs[0].BestVisibilityMs)
			},
		},
		{
			name: "fields out of order with unknown lines",
			input: `LANDMARK_OBSERVATION_START
BEST_VISIBILITY_TIMESTAMP_MS: 900
SOME_NEW_FIELD: ignored
OBJECT_DESCRIPTION: Weathered antenna mast
START_TIMESTAMP_MS: 100
LANDMARK_OBSERVATION_END`,
			count: 1,
			check: func(t *testing.T, obs []model.Observation) {
				assert.Equal(t, "Weathered antenna mast", obs[0].Description)
				assert.Equal(t, int64(100), obs[0].StartMs)
				assert.Equal(t, int64(900), obs[0].BestVisibilityMs)
				// missing END_TIMESTAMP_MS defaults to 0
				assert.Equal(t, int64(0), obs[0].EndMs)
			},
		},
		{
			name: "non-numeric timestamps fall back to zero",
			input: `LANDMARK_OBSERVATION_START
OBJECT_DESCRIPTION: Something
START_TIMESTAMP_MS: about halfway through
END_TIMESTAMP_MS: unknown
BEST_VISIBILITY_TIMESTAMP_MS: n/a
LANDMARK_OBSERVATION_END`,
			count: 1,
			check: func(t *testing.T, obs []model.Observation) {
				assert.Equal(t, int64(0), obs[0].StartMs)
				assert.Equal(t, int64(0), obs[0].EndMs)
				assert.Equal(t, int64(0), obs[0].BestVisibilityMs)
			},
		},
		{
			name: "float and suffixed timestamps",
			input: `LANDMARK_OBSERVATION_START
START_TIMESTAMP_MS: 1500.0
END_TIMESTAMP_MS: 2500ms
BEST_VISIBILITY_TIMESTAMP_MS: 2000 (clearest view)
LANDMARK_OBSERVATION_END`,
			count: 1,
			check: func(t *testing.T, obs []model.Observation) {
				assert.Equal(t, int64(1500), obs[0].StartMs)
				assert.Equal(t, int64(2500), obs[0].EndMs)
				assert.Equal(t, int64(2000), obs[0].BestVisibilityMs)
			},
		},
		{
			name: "three blocks in source order",
			input: `LANDMARK_OBSERVATION_START
CANDIDATE_ID: first
BEST_VISIBILITY_TIMESTAMP_MS: 1000
LANDMARK_OBSERVATION_END
LANDMARK_OBSERVATION_START
CANDIDATE_ID: second
BEST_VISIBILITY_TIMESTAMP_MS: 2000
LANDMARK_OBSERVATION_END
LANDMARK_OBSERVATION_START
CANDIDATE_ID: third
BEST_VISIBILITY_TIMESTAMP_MS: 3000
LANDMARK_OBSERVATION_END`,
			count: 3,
			check: func(t *testing.T, obs []model.Observation) {
				assert.Equal(t, "first", obs[0].CandidateID)
				assert.Equal(t, "second", obs[1].CandidateID)
				assert.Equal(t, "third", obs[2].CandidateID)
			},
		},
		{
			name: "unterminated block still yields a record",
			input: `LANDMARK_OBSERVATION_START
OBJECT_DESCRIPTION: Cut off mid-reply
START_TIMESTAMP_MS: 400`,
			count: 1,
			check: func(t *testing.T, obs []model.Observation) {
				assert.Equal(t, "Cut off mid-reply", obs[0].Description)
				assert.Equal(t, int64(400), obs[0].StartMs)
			},
		},
		{
			name: "missing candidate id gets a generated one",
			input: `LANDMARK_OBSERVATION_START
OBJECT_DESCRIPTION: Anonymous
LANDMARK_OBSERVATION_END`,
			count: 1,
			check: func(t *testing.T, obs []model.Observation) {
				assert.NotEmpty(t, obs[0].CandidateID)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := p.ParseObservations(tt.input)
			require.Len(t, obs, tt.count)
			if tt.check != nil {
				tt.check(t, obs)
			}
		})
	}
}

func TestFormatObservation_RoundTrip(t *testing.T) {
	p := newTestParser()

	records := []model.Observation{
		{
			CandidateID:      "LM_OBS_7",
			Description:      "Heat shield fragment",
			Reasoning:        "Charred regular curvature, clearly artificial",
			StartMs:          31000,
			EndMs:            42000,
			BestVisibilityMs: 36500,
		},
		{
			CandidateID:      "lm_obs_0",
			Description:      "N/A",
			Reasoning:        "N/A",
			StartMs:          0,
			EndMs:            0,
			BestVisibilityMs: 0,
		},
	}

	for _, rec := range records {
		parsed := p.ParseObservations(FormatObservation(rec))
		require.Len(t, parsed, 1)
		assert.Equal(t, rec, parsed[0])
	}
}

func TestParseContextual(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		name  string
		input string
		check func(t *testing.T, c Contextual)
	}{
		{
			name: "all sections with multiline analysis",
			input: `OBJECT_NAME: Handheld geological drill
DETAILED_DESCRIPTION: Yellow casing with a black grip.
Battery pack appears detached.
CONTEXTUAL_ANALYSIS: Probable origin: equipment drop from a prior traverse.
Potential utility: sampling hardware could be recovered.`,
			check: func(t *testing.T, c Contextual) {
				assert.Equal(t, "Handheld geological drill", c.Name)
				assert.Contains(t, c.Description, "Battery pack appears detached.")
				assert.Contains(t, c.Analysis, "Potential utility")
			},
		},
		{
			name:  "empty reply keeps defaults",
			input: "",
			check: func(t *testing.T, c Contextual) {
				assert.Equal(t, "Unidentified object", c.Name)
				assert.Equal(t, "N/A", c.Description)
				assert.Equal(t, "Contextual analysis not available", c.Analysis)
			},
		},
		{
			name: "code fenced reply",
			input: "```\nOBJECT_NAME: Solar panel segment\nDETAILED_DESCRIPTION: Cracked photovoltaic cells.\n```",
			check: func(t *testing.T, c Contextual) {
				assert.Equal(t, "Solar panel segment", c.Name)
				assert.Equal(t, "Cracked photovoltaic cells.", c.Description)
			},
		},
		{
			name:  "prose without labels keeps defaults",
			input: "The image shows a rock formation with no artificial objects.",
			check: func(t *testing.T, c Contextual) {
				assert.Equal(t, "Unidentified object", c.Name)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, p.ParseContextual(tt.input))
		})
	}
}
