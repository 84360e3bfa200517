package beat

import (
	"errors"
	"sync"

	algofft "github.com/cwbudde/algo-fft"
)

// realFFTPlan wraps a real-input FFT of a fixed length n, preferring
// algo-fft's optimized FastPlanReal64 and falling back to the safe
// PlanRealT when a fast plan isn't available for that length — the
// exact fast/safe fallback shape used by the teacher's
// analysis/distance.go (spectralFFTPlan/lagFFTPlan).
//
// Forward produces the one-sided (non-negative-frequency) spectrum of
// length n/2+1; Inverse reconstructs a length-n real signal from that
// one-sided spectrum, assuming Hermitian symmetry (true for every use
// in this package: either a real audio window, or a magnitude-derived
// array that inherits the same symmetry — see SPEC_FULL.md's note on
// one-sided spectra).
type realFFTPlan struct {
	n    int
	mu   sync.Mutex
	fast *algofft.FastPlanReal64
	safe *algofft.PlanRealT[float64, complex128]
}

func newRealFFTPlan(n int) (*realFFTPlan, error) {
	p := &realFFTPlan{n: n}

	fast, err := algofft.NewFastPlanReal64(n)
	if err == nil {
		p.fast = fast
	} else if !errors.Is(err, algofft.ErrNotImplemented) {
		// A genuine setup error for this length; fall through and let
		// the safe plan (or its own error) decide.
	}

	safe, err := algofft.NewPlanReal64(n)
	if err != nil {
		if p.fast == nil {
			return nil, err
		}
	} else {
		p.safe = safe
	}
	return p, nil
}

// bins is the one-sided spectrum length, n/2+1.
func (p *realFFTPlan) bins() int { return p.n/2 + 1 }

func (p *realFFTPlan) forward(dst []complex128, src []float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fast != nil {
		p.fast.Forward(dst, src)
		return nil
	}
	if p.safe != nil {
		return p.safe.Forward(dst, src)
	}
	return errors.New("beat: no forward FFT plan available")
}

func (p *realFFTPlan) inverse(dst []float64, src []complex128) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fast != nil {
		p.fast.Inverse(dst, src)
		return nil
	}
	if p.safe != nil {
		return p.safe.Inverse(dst, src)
	}
	return errors.New("beat: no inverse FFT plan available")
}
