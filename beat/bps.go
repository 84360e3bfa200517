package beat

import (
	"math"

	"github.com/ychalier/beatviewer/events"
)

// stagePhaseAndBPS runs spec.md §4.5: phase search, forward BPS
// Gaussian fill, and the beat/cooldown decision. Appends a BEAT event
// to evts when one fires.
func (p *Pipeline) stagePhaseAndBPS(evts []events.Event) []events.Event {
	p.searchPhase()
	p.fillBPS()
	return p.decideBeat(evts)
}

// searchPhase picks phi_max = argmax over phi in [0,tempo_lag) of the
// sum of up to 4 back-looking cbss samples spaced by tempo_lag, terms
// with negative index dropped. Ties keep the lowest phi (spec.md
// §4.5). A cbss_buffer that is all zero yields phi_max = 0 (spec.md
// §7 numerical-degeneracy recovery).
func (p *Pipeline) searchPhase() {
	n := len(p.cbssBuffer) - 1
	lag := p.tempoLag

	bestPhi := 0
	bestScore := math.Inf(-1)
	for phi := 0; phi < lag; phi++ {
		var score float64
		any := false
		for i := 0; i < 4; i++ {
			idx := n - phi - i*lag
			if idx < 0 {
				continue
			}
			score += p.cbssBuffer[idx]
			any = true
		}
		if !any {
			continue
		}
		if score > bestScore {
			bestScore = score
			bestPhi = phi
		}
	}
	p.phiMax = bestPhi
}

// fillBPS shifts bps_buffer left by one and sums a Gaussian pulse
// train anchored on the predicted beat positions into every slot
// (spec.md §4.5 "BPS buffer").
func (p *Pipeline) fillBPS() {
	buf := p.bpsBuffer
	copy(buf, buf[1:])
	buf[len(buf)-1] = 0

	lag := p.tempoLag
	width := p.cfg.BPSGaussianWidth
	eps := p.epsilonO + p.epsilonR
	anchor := float64(lag) - float64(p.phiMax) - eps

	for i := range buf {
		center := float64(i%lag) - anchor
		buf[i] += gaussian(center, width)
	}
}

// decideBeat applies the cooldown gate and the argmax-at-trigger-index
// beat rule (spec.md §4.5 "Beat decision").
func (p *Pipeline) decideBeat(evts []events.Event) []events.Event {
	if p.beatCooldown > 0 {
		p.beatCooldown--
		return evts
	}
	trigger := p.epsilonT
	if trigger >= len(p.bpsBuffer) {
		return evts
	}
	if p.bpsBuffer[trigger] != maxOf(p.bpsBuffer) {
		return evts
	}
	p.beatCooldown = int(math.Floor(p.cfg.BPSCooldownRatio * float64(p.tempoLag)))
	return append(evts, events.Event{
		Kind:    events.KindBeat,
		Frame:   p.frameIndex,
		TimeSec: float64(p.frameIndex) / p.hopRate,
	})
}
