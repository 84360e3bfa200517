package beat

import "math"

// stageOSS runs spec.md §4.2: push flux into the Hamming FIFO, compute
// the weighted OSS sample, buffer it, and apply the mean+sigma onset
// latch. Returns true iff an ONSET should fire this tick.
func (p *Pipeline) stageOSS() bool {
	copy(p.fluxFIFO[1:], p.fluxFIFO[:len(p.fluxFIFO)-1])
	p.fluxFIFO[0] = p.flux

	var oss float64
	for k, w := range p.hamming {
		oss += p.fluxFIFO[k] * w
	}
	p.lastOSS = oss

	if len(p.ossBuffer) == p.maxOSSLen {
		copy(p.ossBuffer, p.ossBuffer[1:])
		p.ossBuffer[p.maxOSSLen-1] = oss
	} else {
		p.ossBuffer = append(p.ossBuffer, oss)
	}

	p.updateOSSStatistics()

	onset := false
	if oss < p.ossThreshold {
		p.wasBelowThreshold = true
	} else if p.wasBelowThreshold {
		p.wasBelowThreshold = false
		onset = true
	}
	return onset
}

// updateOSSStatistics recomputes oss_mean/oss_threshold over the tail
// of oss_buffer_size most recent samples (spec.md §4.2).
func (p *Pipeline) updateOSSStatistics() {
	n := p.cfg.OSSBufferSize
	if n > len(p.ossBuffer) {
		n = len(p.ossBuffer)
	}
	tail := p.ossBuffer[len(p.ossBuffer)-n:]

	var mean float64
	for _, v := range tail {
		mean += v
	}
	mean /= float64(len(tail))

	var variance float64
	for _, v := range tail {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(tail))

	p.ossMean = mean
	threshold := mean + p.cfg.OnsetThreshold*math.Sqrt(variance)
	if threshold < p.cfg.OnsetThresholdMin {
		threshold = p.cfg.OnsetThresholdMin
	}
	p.ossThreshold = threshold
}
