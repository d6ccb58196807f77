// Package scoring provides the aggregation primitives behind completeness and
// risk scores: set-based coverage, ratios, means, weighted sums and the
// mapping of a score onto ordered risk bands.
package scoring

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
)

// ErrEmpty is returned when an aggregate has nothing to aggregate over.
var ErrEmpty = errors.New("no data to aggregate")

// WeightTolerance is the allowed deviation of a weight vector's sum from 1.
const WeightTolerance = 1e-6

// Coverage returns the fraction of distinct required items that are present.
// Duplicates in either slice do not change the result. An empty required list
// is an error rather than a vacuous full coverage.
func Coverage[T comparable](required, present []T) (float64, error) {
	want := make(map[T]struct{}, len(required))
	for _, r := range required {
		want[r] = struct{}{}
	}
	if len(want) == 0 {
		return 0, fmt.Errorf("coverage: %w", ErrEmpty)
	}

	have := make(map[T]struct{}, len(present))
	for _, p := range present {
		if _, ok := want[p]; ok {
			have[p] = struct{}{}
		}
	}
	return float64(len(have)) / float64(len(want)), nil
}

// Ratio returns part/total. A zero total is an error.
func Ratio(part, total int) (float64, error) {
	if total <= 0 {
		return 0, fmt.Errorf("ratio %d/%d: %w", part, total, ErrEmpty)
	}
	return float64(part) / float64(total), nil
}

// Mean returns the arithmetic mean of values.
func Mean(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("mean: %w", ErrEmpty)
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), nil
}

// Weighted returns the weighted sum of scores. Every weighted key must have a
// score. Terms are added in key order so the result is reproducible.
func Weighted(scores, weights map[string]float64) (float64, error) {
	if len(weights) == 0 {
		return 0, fmt.Errorf("weighted score: %w", ErrEmpty)
	}
	total := 0.0
	for _, key := range slices.Sorted(maps.Keys(weights)) {
		s, ok := scores[key]
		if !ok {
			return 0, fmt.Errorf("weighted score: missing score for %q", key)
		}
		total += weights[key] * s
	}
	return Clamp(total), nil
}

// WeightsSumToOne reports whether weights sum to 1 within WeightTolerance.
func WeightsSumToOne(weights ...float64) bool {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	return math.Abs(sum-1) <= WeightTolerance
}

// Clamp limits v to [0, 1]. Sums of weights within tolerance can drift just
// outside the interval.
func Clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// Band maps a minimum score to a risk level label.
type Band struct {
	Level    string  `yaml:"level" json:"level"`
	MinScore float64 `yaml:"min_score" json:"min_score"`
}

// Level returns the label of the first band whose MinScore is at most score.
// Bands are expected in descending MinScore order. fallback is returned when
// no band matches.
func Level(score float64, bands []Band, fallback string) string {
	for _, b := range bands {
		if score >= b.MinScore {
			return b.Level
		}
	}
	return fallback
}

// Round2 rounds v to two decimal places for presentation.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
