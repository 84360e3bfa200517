package beat

import "math"

// stageCBSS runs spec.md §4.4 every tick, using the currently active
// tempo_lag. Per OPEN QUESTION 1 (SPEC_FULL.md), this must complete —
// including the write to cbss_buffer[n] — before stagePhaseAndBPS searches
// phi_max, since that search includes the sample just written.
func (p *Pipeline) stageCBSS() {
	buf := p.cbssBuffer
	n := len(buf) - 1
	copy(buf, buf[1:])
	buf[n] = 0

	phi := p.backLookPhi(buf, n)

	if p.mode == ModeTempoLocked {
		buf[n] = phi
		return
	}
	alpha := p.cfg.CBSSAlpha
	buf[n] = (1-alpha)*p.lastOSS + alpha*phi
}

// backLookPhi computes the Gaussian-weighted best predecessor within
// [-2*tempo_lag, -tempo_lag/2), skipping offsets that would index
// before the start of cbss_buffer (spec.md §4.4, OPEN QUESTION 2: some
// predecessors fall outside the buffer at slow tempi; the spec
// tolerates this via the skip).
func (p *Pipeline) backLookPhi(buf []float64, n int) float64 {
	lag := p.tempoLag
	eta := p.cfg.CBSSEta

	best := math.Inf(-1)
	found := false
	lowerV := -2 * lag
	for v := lowerV; float64(v) < -float64(lag)/2; v++ {
		idx := n + v
		if idx < 0 {
			continue
		}
		ratio := -float64(v) / float64(lag)
		lnr := math.Log(ratio)
		weight := math.Exp(-0.5 * eta * lnr * lnr)
		val := weight * buf[idx]
		if val > best {
			best = val
			found = true
		}
	}
	if !found {
		return 0
	}
	return best
}
