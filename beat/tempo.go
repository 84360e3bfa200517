package beat

import (
	"math"
	"math/cmplx"
	"sort"

	"github.com/ychalier/beatviewer/events"
)

// tempoCandidate is one EAC local maximum under consideration, before
// pulse-train scoring picks the best one.
type tempoCandidate struct {
	lag   int
	value float64
}

// maybeUpdateTempo runs spec.md §4.3 when due: every oss_hop_size OSS
// samples, once oss_buffer has reached oss_window_size. Appends a BPM
// event to evts when the applied tempo_lag changes.
func (p *Pipeline) maybeUpdateTempo(evts []events.Event) ([]events.Event, error) {
	p.ossHopCounter++
	if p.ossHopCounter < p.cfg.OSSHopSize {
		return evts, nil
	}
	if len(p.ossBuffer) < p.cfg.OSSWindowSize {
		return evts, nil
	}
	p.ossHopCounter = 0

	s := p.ossBuffer[len(p.ossBuffer)-p.cfg.OSSWindowSize:]

	if err := p.computeEAC(s); err != nil {
		return evts, err
	}

	candidates := p.pickTempoCandidates()
	if len(candidates) > 0 {
		p.instantTempoLag = p.scoreTempoCandidates(candidates, s)
		p.updateTempoAccumulator()
	}

	if !p.haveScaledTempoLag {
		return evts, nil
	}
	return p.applyTempo(evts), nil
}

// computeEAC fills p.eac with the enhanced autocorrelation of s
// (spec.md §4.3): C = |IDFT(|DFT(s)|^q)|, then EAC[t] = C[t]+C[2t]+C[4t]
// for t < M/4, C[t]+C[2t] for M/4<=t<M/2, C[t] otherwise.
func (p *Pipeline) computeEAC(s []float64) error {
	if err := p.eacFFT.forward(p.corrScratch, s); err != nil {
		return err
	}
	q := p.cfg.FrequencyDomainCompression
	for k, c := range p.corrScratch {
		mag := cmplx.Abs(c)
		p.corrScratch[k] = complex(math.Pow(mag, q), 0)
	}
	c := p.eac // reuse as scratch for the raw autocorrelation before combination
	if err := p.eacFFT.inverse(c, p.corrScratch); err != nil {
		return err
	}
	for i := range c {
		c[i] = math.Abs(c[i])
	}

	m := len(p.eac)
	combined := make([]float64, m) // small (<=oss_window_size), not on a tight hot loop (once per oss_hop_size)
	quarter := m / 4
	half := m / 2
	for t := 0; t < m; t++ {
		v := c[t]
		switch {
		case t < quarter:
			v += lookup(c, 2*t) + lookup(c, 4*t)
		case t < half:
			v += lookup(c, 2*t)
		}
		combined[t] = v
	}
	copy(p.eac, combined)
	return nil
}

func lookup(c []float64, idx int) float64 {
	if idx < 0 || idx >= len(c) {
		return 0
	}
	return c[idx]
}

// pickTempoCandidates finds local maxima of eac on [t_min,t_max] and
// keeps the top tempo_candidates by value, ties broken by lowest lag.
func (p *Pipeline) pickTempoCandidates() []tempoCandidate {
	var peaks []tempoCandidate
	for t := p.tMin; t <= p.tMax; t++ {
		if t-1 < 0 || t+1 >= len(p.eac) {
			continue
		}
		if p.eac[t] > p.eac[t-1] && p.eac[t] > p.eac[t+1] {
			peaks = append(peaks, tempoCandidate{lag: t, value: p.eac[t]})
		}
	}
	sort.Slice(peaks, func(i, j int) bool {
		if peaks[i].value != peaks[j].value {
			return peaks[i].value > peaks[j].value
		}
		return peaks[i].lag < peaks[j].lag
	})
	if len(peaks) > p.cfg.TempoCandidates {
		peaks = peaks[:p.cfg.TempoCandidates]
	}
	return peaks
}

// scoreTempoCandidates applies pulse-train scoring (spec.md §4.3) and
// returns the winning lag.
func (p *Pipeline) scoreTempoCandidates(candidates []tempoCandidate, s []float64) int {
	variances := make([]float64, len(candidates))
	maxes := make([]float64, len(candidates))

	for ci, cand := range candidates {
		templates := p.pulseTrains.byLag[cand.lag]
		scores := make([]float64, len(templates))
		for phi, tmpl := range templates {
			scores[phi] = tmpl.score(s)
		}
		variances[ci] = variance(scores)
		maxes[ci] = maxOf(scores)
	}

	sumVar := sumOf(variances)
	if sumVar == 0 {
		sumVar = 1
	}
	sumMax := sumOf(maxes)
	if sumMax == 0 {
		sumMax = 1
	}

	bestIdx := 0
	bestScore := math.Inf(-1)
	for ci := range candidates {
		score := variances[ci]/sumVar + maxes[ci]/sumMax
		if score > bestScore {
			bestScore = score
			bestIdx = ci
		}
	}
	return candidates[bestIdx].lag
}

func variance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := sumOf(xs) / float64(len(xs))
	var v float64
	for _, x := range xs {
		d := x - mean
		v += d * d
	}
	return v / float64(len(xs))
}

func maxOf(xs []float64) float64 {
	m := math.Inf(-1)
	for _, x := range xs {
		if x > m {
			m = x
		}
	}
	return m
}

func sumOf(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}

// updateTempoAccumulator runs the decaying Gaussian accumulator and
// octave rescaling of spec.md §4.3 steps 1-6.
func (p *Pipeline) updateTempoAccumulator() {
	sigma := p.cfg.TempoAccumulatorGaussianW
	norm := 1 / (sigma * math.Sqrt(2*math.Pi))
	decay := p.cfg.TempoAccumulatorDecay

	bestIdx := 0
	bestVal := math.Inf(-1)
	for i := range p.tempoAccumulator {
		t := p.tMin + i
		z := (float64(t-p.instantTempoLag)) / sigma
		p.tempoAccumulator[i] = decay*p.tempoAccumulator[i] + norm*math.Exp(-0.5*z*z)
		if p.tempoAccumulator[i] > bestVal {
			bestVal = p.tempoAccumulator[i]
			bestIdx = i
		}
	}
	p.accumulatedTempoLag = bestIdx + p.tMin

	bpm := 60 * p.hopRate / float64(p.accumulatedTempoLag)
	for bpm <= p.cfg.MinBPMRescaled {
		bpm *= 2
	}
	for bpm >= p.cfg.MaxBPMRescaled {
		bpm *= 0.5
	}
	p.scaledTempoLag = 60 * p.hopRate / bpm
	p.haveScaledTempoLag = true
}

// applyTempo commits scaled_tempo_lag to tempo_lag in REGULAR mode,
// raising a BPM event on change (spec.md §4.3 "Apply tempo"). In
// TEMPO_LOCKED mode tempo_lag is left untouched.
func (p *Pipeline) applyTempo(evts []events.Event) []events.Event {
	if p.mode == ModeTempoLocked {
		return evts
	}
	newLag := int(math.Floor(p.scaledTempoLag))
	if newLag == p.tempoLag {
		return evts
	}
	p.tempoLag = newLag
	return append(evts, events.Event{
		Kind:    events.KindBPM,
		Frame:   p.frameIndex,
		TimeSec: float64(p.frameIndex) / p.hopRate,
		BPM:     p.BPM(),
	})
}
