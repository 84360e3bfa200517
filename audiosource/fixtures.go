package audiosource

import (
	"context"
	"math"
)

// generator is a deterministic, in-memory Source driven by a per-hop
// fill function. It backs every synthetic fixture below; none of them
// touch a file or a capture device, so they stay in scope as test
// fixtures rather than "audio acquisition" (spec.md §1 Non-goals).
type generator struct {
	sampleRate int
	hopSize    int
	totalHops  int
	hopIndex   int
	fill       func(hopIndex int, hop []float64)
}

func (g *generator) SampleRate() int { return g.sampleRate }

func (g *generator) Active() bool { return g.hopIndex < g.totalHops }

func (g *generator) NextHop(_ context.Context, hop []float64) error {
	if len(hop) != g.hopSize {
		hop = hop[:g.hopSize]
	}
	if !g.Active() {
		for i := range hop {
			hop[i] = 0
		}
		return nil
	}
	g.fill(g.hopIndex, hop)
	g.hopIndex++
	return nil
}

// NewSilence returns a source emitting durationHops hops of silence,
// then zeros forever (spec.md scenario S3).
func NewSilence(sampleRate, hopSize, durationHops int) Source {
	return &generator{
		sampleRate: sampleRate,
		hopSize:    hopSize,
		totalHops:  durationHops,
		fill: func(_ int, hop []float64) {
			for i := range hop {
				hop[i] = 0
			}
		},
	}
}

// NewClickTrain returns a source emitting a unit impulse as the first
// sample of every periodHops-th hop (0-indexed), zeros elsewhere, for
// durationHops total hops. This drives spec.md scenario S1 (a 120 BPM
// click train) and S2 (a tempo change, by composing two click trains
// — see NewTempoChange).
func NewClickTrain(sampleRate, hopSize, periodHops, durationHops int, amplitude float64) Source {
	return &generator{
		sampleRate: sampleRate,
		hopSize:    hopSize,
		totalHops:  durationHops,
		fill: func(hopIndex int, hop []float64) {
			for i := range hop {
				hop[i] = 0
			}
			if periodHops > 0 && hopIndex%periodHops == 0 {
				hop[0] = amplitude
			}
		},
	}
}

// NewTempoChange concatenates two click trains at different periods,
// switching at switchHop (spec.md scenario S2: a 120→150 BPM change
// partway through a stream).
func NewTempoChange(sampleRate, hopSize, periodBeforeHops, periodAfterHops, switchHop, durationHops int, amplitude float64) Source {
	return &generator{
		sampleRate: sampleRate,
		hopSize:    hopSize,
		totalHops:  durationHops,
		fill: func(hopIndex int, hop []float64) {
			for i := range hop {
				hop[i] = 0
			}
			period := periodBeforeHops
			phase := hopIndex
			if hopIndex >= switchHop {
				period = periodAfterHops
				phase = hopIndex - switchHop
			}
			if period > 0 && phase%period == 0 {
				hop[0] = amplitude
			}
		},
	}
}

// NewSingleTransient returns a source that is silent except for one
// impulse at transientHop (spec.md scenario S4: a single transient on
// otherwise silent input).
func NewSingleTransient(sampleRate, hopSize, transientHop, durationHops int, amplitude float64) Source {
	return &generator{
		sampleRate: sampleRate,
		hopSize:    hopSize,
		totalHops:  durationHops,
		fill: func(hopIndex int, hop []float64) {
			for i := range hop {
				hop[i] = 0
			}
			if hopIndex == transientHop {
				hop[0] = amplitude
			}
		},
	}
}

// NewTone returns a source emitting a stationary pure sine tone at the
// given frequency and amplitude (spec.md scenario: constant-amplitude
// pure tone — after warmup, flux should settle near zero since the
// spectrum stops changing shape hop to hop).
func NewTone(sampleRate, hopSize int, freqHz, amplitude float64, durationHops int) Source {
	return &generator{
		sampleRate: sampleRate,
		hopSize:    hopSize,
		totalHops:  durationHops,
		fill: func(hopIndex int, hop []float64) {
			for i := range hop {
				t := float64(hopIndex*hopSize + i)
				hop[i] = amplitude * math.Sin(2*math.Pi*freqHz*t/float64(sampleRate))
			}
		},
	}
}
