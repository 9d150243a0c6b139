package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logWithSummary(s Summary) *Log {
	return &Log{
		Executions: make([]ExecutionEntry, s.TotalExecutions),
		Summary:    s,
	}
}

func TestAnalyzeEffectivenessEmptyLog(t *testing.T) {
	for _, log := range []*Log{nil, {}} {
		result := AnalyzeEffectiveness(log)
		assert.Zero(t, result.Score)
		require.Len(t, result.Recommendations, 1)
		assert.Contains(t, result.Recommendations[0], "no executions")
	}
}

func TestAnalyzeEffectivenessScore(t *testing.T) {
	tests := []struct {
		name    string
		summary Summary
		score   float64
	}{
		{
			name: "perfect rule saturates every component",
			summary: Summary{
				TotalExecutions:    10,
				SuccessRate:        1.0,
				AvgScenesProcessed: 50,
				AvgScenesFiltered:  25,
				AvgClipsCreated:    8,
			},
			score: 1.0,
		},
		{
			name: "partial components scale linearly",
			summary: Summary{
				TotalExecutions:    10,
				SuccessRate:        0.5,
				AvgScenesProcessed: 20,
				AvgScenesFiltered:  10,
				AvgClipsCreated:    1,
			},
			// 0.4*0.5 + 0.3*(10/20) + 0.3*(1/5)
			score: 0.41,
		},
		{
			name: "dead rule scores zero",
			summary: Summary{
				TotalExecutions: 10,
			},
			score: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := AnalyzeEffectiveness(logWithSummary(tt.summary))
			assert.InDelta(t, tt.score, result.Score, 1e-9)
			assert.Equal(t, tt.summary.SuccessRate, result.SuccessRate)
		})
	}
}

func TestAnalyzeEffectivenessRecommendations(t *testing.T) {
	tests := []struct {
		name     string
		summary  Summary
		contains []string
	}{
		{
			name: "failing executions",
			summary: Summary{
				TotalExecutions: 10, SuccessRate: 0.3,
				AvgScenesProcessed: 10, AvgScenesFiltered: 5, AvgClipsCreated: 2,
			},
			contains: []string{"downstream action availability"},
		},
		{
			name: "criteria too strict",
			summary: Summary{
				TotalExecutions: 10, SuccessRate: 1.0,
				AvgScenesProcessed: 10, AvgScenesFiltered: 0,
			},
			contains: []string{"criteria too strict"},
		},
		{
			name: "criteria too loose",
			summary: Summary{
				TotalExecutions: 10, SuccessRate: 1.0,
				AvgScenesProcessed: 10, AvgScenesFiltered: 10, AvgClipsCreated: 3,
			},
			contains: []string{"criteria too loose"},
		},
		{
			name: "filter passes but no clips",
			summary: Summary{
				TotalExecutions: 10, SuccessRate: 1.0,
				AvgScenesProcessed: 10, AvgScenesFiltered: 4, AvgClipsCreated: 0,
			},
			contains: []string{"no clips are produced"},
		},
		{
			name: "healthy rule has no recommendations",
			summary: Summary{
				TotalExecutions: 10, SuccessRate: 0.9,
				AvgScenesProcessed: 10, AvgScenesFiltered: 4, AvgClipsCreated: 2,
			},
			contains: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := AnalyzeEffectiveness(logWithSummary(tt.summary))
			if tt.contains == nil {
				assert.Empty(t, result.Recommendations)
				return
			}
			require.Len(t, result.Recommendations, len(tt.contains))
			for i, substr := range tt.contains {
				assert.Contains(t, result.Recommendations[i], substr)
			}
		})
	}
}
