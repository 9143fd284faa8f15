package analysis

import (
	"github.com/montanaflynn/stats"

	"feastbench/domain/analysis"
)

// SummarizeRates computes spread statistics over the rates of the given
// cells, skipping underpowered ones.
func SummarizeRates(cells []analysis.AggregateCell) (analysis.RateSummary, error) {
	var rates stats.Float64Data
	for _, c := range cells {
		if c.Underpowered {
			continue
		}
		rates = append(rates, c.Rate)
	}
	if len(rates) == 0 {
		return analysis.RateSummary{}, stats.EmptyInputErr
	}

	mean, err := rates.Mean()
	if err != nil {
		return analysis.RateSummary{}, err
	}
	median, err := rates.Median()
	if err != nil {
		return analysis.RateSummary{}, err
	}
	sd, err := rates.StandardDeviation()
	if err != nil {
		return analysis.RateSummary{}, err
	}
	min, err := rates.Min()
	if err != nil {
		return analysis.RateSummary{}, err
	}
	max, err := rates.Max()
	if err != nil {
		return analysis.RateSummary{}, err
	}

	return analysis.RateSummary{
		Cells:  len(rates),
		Mean:   mean,
		Median: median,
		StdDev: sd,
		Min:    min,
		Max:    max,
	}, nil
}
