package beat

import (
	"context"
	"math"
	"math/cmplx"

	"github.com/ychalier/beatviewer/audiosource"
)

// advanceWindow shifts sample_window left by H and fills the tail with
// H fresh samples from src (spec.md §4.1 contract). Once src reports
// inactive it marks the pipeline inactive, so the next Tick returns
// ErrInputExhausted; it returns only errors from src.NextHop itself.
func (p *Pipeline) advanceWindow(ctx context.Context, src audiosource.Source) error {
	h := p.cfg.AudioHopSize
	hop := p.sampleWindow[len(p.sampleWindow)-h:]
	// Shift the head out before refilling the tail, so hop aliases the
	// destination slice we're about to overwrite; copy first to avoid
	// clobbering samples NextHop still needs to read as "previous tail".
	copy(p.sampleWindow, p.sampleWindow[h:])
	if err := src.NextHop(ctx, hop); err != nil {
		return err
	}
	if !src.Active() {
		p.active = false
	}
	return nil
}

// stageAudioStream runs spec.md §4.1: magnitude spectrum, compression,
// noise gate, flux against the previous spectrum. One-sided spectra
// (length N/2+1, see SPEC_FULL.md's note on relative scaling) stand in
// for the spec's length-N array throughout this package.
func (p *Pipeline) stageAudioStream() error {
	if err := p.audioFFT.forward(p.spectrumScratch, p.sampleWindow); err != nil {
		return err
	}

	gamma := p.cfg.CompressionGamma
	var logDenom float64
	if gamma != 0 {
		logDenom = math.Log10(1 + gamma)
	}

	invSampleRate := 1 / float64(p.sampleRate)
	var flux float64
	for k, c := range p.spectrumScratch {
		x := cmplx.Abs(c) * invSampleRate
		if gamma != 0 {
			x = math.Log10(1+gamma*x) / logDenom
		}
		if x < p.noiseThreshold {
			x = 0
		}
		if d := x - p.prevSpectrum[k]; d > 0 {
			flux += d
		}
		p.currSpectrum[k] = x
	}
	p.flux = flux
	copy(p.prevSpectrum, p.currSpectrum)
	return nil
}
