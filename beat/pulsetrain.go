package beat

import (
	"math"
	"sort"
)

// pulseTemplate is a sparse comb template for one (lag, phase) pair:
// parallel index/weight slices, sorted by index, with collided pulses
// pre-summed (spec.md §4.3 "Pulse-train templates").
type pulseTemplate struct {
	indices []int
	weights []float64
}

// pulseTrainSet holds every (lag, phase) template for lag in
// [tMin,tMax]. Static given (tMin, tMax); built once at setup to avoid
// per-tick allocation (spec.md §9).
type pulseTrainSet struct {
	tMin, tMax int
	byLag      map[int][]pulseTemplate // lag -> templates indexed by phase
}

var pulseTrainPeriods = [3]float64{1, 1.5, 2}

func pulseWeight(p float64) float64 {
	if p == 1 {
		return 1
	}
	return 0.5
}

// buildPulseTrains precomputes, for every lag L in [tMin,tMax] and
// every phase phi in [0,L), the sparse index->weight mapping of pulses
// at floor(phi + p*b*L) for p in {1,1.5,2}, b in {0,1,2,3} (spec.md
// §4.3), weights summed on collision.
func buildPulseTrains(tMin, tMax int) *pulseTrainSet {
	set := &pulseTrainSet{
		tMin:  tMin,
		tMax:  tMax,
		byLag: make(map[int][]pulseTemplate, tMax-tMin+1),
	}
	for lag := tMin; lag <= tMax; lag++ {
		phases := make([]pulseTemplate, lag)
		for phi := 0; phi < lag; phi++ {
			phases[phi] = buildOneTemplate(phi, lag)
		}
		set.byLag[lag] = phases
	}
	return set
}

func buildOneTemplate(phi, lag int) pulseTemplate {
	acc := make(map[int]float64, 12)
	for _, p := range pulseTrainPeriods {
		w := pulseWeight(p)
		for b := 0; b <= 3; b++ {
			idx := int(math.Floor(float64(phi) + p*float64(b)*float64(lag)))
			acc[idx] += w
		}
	}
	indices := make([]int, 0, len(acc))
	for idx := range acc {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	weights := make([]float64, len(indices))
	for i, idx := range indices {
		weights[i] = acc[idx]
	}
	return pulseTemplate{indices: indices, weights: weights}
}

func (s *pulseTrainSet) template(lag, phase int) pulseTemplate {
	return s.byLag[lag][phase]
}

// score computes Σ_i template[i]*s[i], ignoring any index >= len(s)
// (spec.md §4.3: "ignoring any i ≥ oss_window_size").
func (t pulseTemplate) score(s []float64) float64 {
	var sum float64
	for i, idx := range t.indices {
		if idx >= len(s) {
			continue
		}
		if idx < 0 {
			continue
		}
		sum += t.weights[i] * s[idx]
	}
	return sum
}
