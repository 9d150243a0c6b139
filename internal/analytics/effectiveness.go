package analytics

// Effectiveness weights: success rate dominates, filtering activity and
// clip yield split the remainder.
const (
	successWeight   = 0.4
	filteringWeight = 0.3
	clipYieldWeight = 0.3
)

// Normalization ceilings for the activity components. Averages at or above
// the ceiling contribute the full weight.
const (
	filteringCeiling = 20.0
	clipYieldCeiling = 5.0
)

type Effectiveness struct {
	Score           float64  `json:"score"`
	SuccessRate     float64  `json:"success_rate"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// AnalyzeEffectiveness derives a 0-1 effectiveness score for a rule from its
// retained analytics window and emits qualitative tuning recommendations.
func AnalyzeEffectiveness(log *Log) Effectiveness {
	if log == nil || len(log.Executions) == 0 {
		return Effectiveness{
			Recommendations: []string{"no executions recorded yet; trigger the rule to gather data"},
		}
	}

	summary := log.Summary

	score := successWeight*summary.SuccessRate +
		filteringWeight*normalize(summary.AvgScenesFiltered, filteringCeiling) +
		clipYieldWeight*normalize(summary.AvgClipsCreated, clipYieldCeiling)

	result := Effectiveness{
		Score:       score,
		SuccessRate: summary.SuccessRate,
	}

	if summary.SuccessRate < 0.5 {
		result.Recommendations = append(result.Recommendations,
			"more than half of executions fail; check downstream action availability")
	}
	if summary.AvgScenesFiltered == 0 && summary.AvgScenesProcessed > 0 {
		result.Recommendations = append(result.Recommendations,
			"criteria too strict: no scenes have ever passed the audio filter")
	}
	if summary.AvgScenesProcessed > 0 && summary.AvgScenesFiltered == summary.AvgScenesProcessed {
		result.Recommendations = append(result.Recommendations,
			"criteria too loose: every scene passes the audio filter")
	}
	if summary.AvgClipsCreated == 0 && summary.AvgScenesFiltered > 0 {
		result.Recommendations = append(result.Recommendations,
			"scenes pass the filter but no clips are produced; check clip action configuration")
	}

	return result
}

func normalize(value, ceiling float64) float64 {
	if value >= ceiling {
		return 1
	}
	if value <= 0 {
		return 0
	}
	return value / ceiling
}
