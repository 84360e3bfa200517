// Package beat implements the real-time spectral-flux / enhanced-
// autocorrelation / cumulative-beat-synchronous-score pipeline that
// turns an audio-hop stream into ONSET/BEAT/BPM events (spec.md §§1-5).
//
// The whole pipeline is one owned handle, *Pipeline, mutated only by
// Tick and the control-channel setters — the same shape as the
// teacher's piano.Piano: one struct holding every sub-stage's state,
// advanced by a single per-hop entry point, no inheritance.
package beat

import (
	"fmt"

	"github.com/ychalier/beatviewer/audiosource"
	"github.com/ychalier/beatviewer/config"
)

// Mode gates whether the tempo/CBSS stages update (spec.md §4.3/§4.4).
type Mode int

const (
	// ModeRegular lets the tempo estimator and CBSS update normally.
	ModeRegular Mode = iota
	// ModeTempoLocked freezes tempo_lag and makes CBSS purely
	// self-referential.
	ModeTempoLocked
)

func (m Mode) String() string {
	if m == ModeTempoLocked {
		return "TEMPO_LOCKED"
	}
	return "REGULAR"
}

// Pipeline is the mutable state record of spec.md §3, plus the FFT
// plans and control channel needed to drive it. Zero value is not
// usable — construct with New.
type Pipeline struct {
	cfg        config.Config
	source     audiosource.Source
	sampleRate int
	hopRate    float64 // F = sampleRate / audio_hop_size

	// --- Stage 1: audio stream ---
	audioFFT        *realFFTPlan
	sampleWindow    []float64    // length N
	prevSpectrum    []float64    // length N/2+1, one-sided
	currSpectrum    []float64    // length N/2+1, scratch for this tick's X
	spectrumScratch []complex128 // length N/2+1, reused every tick
	noiseThreshold  float64
	flux            float64

	// --- Stage 2: onset strength ---
	fluxFIFO            []float64 // length W, shifted in place
	hamming             []float64 // length W
	ossBuffer           []float64 // grows up to maxOSSLen, then shifts
	maxOSSLen           int
	ossMean             float64
	ossThreshold        float64
	wasBelowThreshold   bool
	ossHopCounter       int
	lastOSS             float64

	// --- Stage 3: tempo estimation ---
	eacFFT              *realFFTPlan
	eac                  []float64    // length M
	corrScratch          []complex128 // length M/2+1, reused
	pulseTrains          *pulseTrainSet
	tMin, tMax           int
	instantTempoLag      int
	tempoAccumulator     []float64 // length tMax-tMin+1
	accumulatedTempoLag  int
	scaledTempoLag       float64
	haveScaledTempoLag   bool
	tempoLag             int

	// --- Stage 4: CBSS ---
	cbssBuffer []float64 // fixed length cbss_buffer_size

	// --- Stage 5: phase + beat prediction ---
	phiMax       int
	bpsBuffer    []float64 // fixed length bps_buffer_size
	beatCooldown int
	epsilonT     int
	epsilonO     float64
	epsilonR     float64

	frameIndex int
	mode       Mode
	active     bool

	control chan controlMessage
}

// New validates cfg against source's sampling rate, builds every
// fixed-size buffer and the pulse-train templates, and returns a ready
// Pipeline. All setup-time inconsistencies (spec.md §7) surface here,
// before the first Tick.
func New(cfg config.Config, source audiosource.Source) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sampleRate := source.SampleRate()
	if sampleRate <= 0 {
		return nil, &ConfigError{Field: "sample_rate", Reason: "audio source reports a non-positive sample rate"}
	}

	hopRate := float64(sampleRate) / float64(cfg.AudioHopSize)
	tMin := int(60 * hopRate / cfg.MaxBPMDetection)
	tMax := int(60 * hopRate / cfg.MinBPMDetection)
	if tMin > tMax {
		return nil, &ConfigError{Field: "min_bpm_detection/max_bpm_detection", Reason: fmt.Sprintf("derived t_min=%d exceeds t_max=%d", tMin, tMax)}
	}
	if tMin < 1 {
		return nil, &ConfigError{Field: "max_bpm_detection", Reason: "derived t_min must be >= 1"}
	}

	audioFFT, err := newRealFFTPlan(cfg.AudioWindowSize)
	if err != nil {
		return nil, fmt.Errorf("beat: setting up audio-window FFT plan: %w", err)
	}
	eacFFT, err := newRealFFTPlan(cfg.OSSWindowSize)
	if err != nil {
		return nil, fmt.Errorf("beat: setting up OSS-window FFT plan: %w", err)
	}

	maxOSSLen := cfg.OSSWindowSize
	if cfg.OSSBufferSize > maxOSSLen {
		maxOSSLen = cfg.OSSBufferSize
	}

	noiseThreshold := noiseGateThreshold(cfg.NoiseCancellationLevel, cfg.AudioWindowSize)

	p := &Pipeline{
		cfg:        cfg,
		source:     source,
		sampleRate: sampleRate,
		hopRate:    hopRate,

		audioFFT:        audioFFT,
		sampleWindow:    make([]float64, cfg.AudioWindowSize),
		prevSpectrum:    make([]float64, audioFFT.bins()),
		currSpectrum:    make([]float64, audioFFT.bins()),
		spectrumScratch: make([]complex128, audioFFT.bins()),
		noiseThreshold:  noiseThreshold,

		fluxFIFO:  make([]float64, cfg.HammingWindowSize),
		hamming:   hammingWindow(cfg.HammingWindowSize),
		ossBuffer: make([]float64, 0, maxOSSLen),
		maxOSSLen: maxOSSLen,

		eacFFT:      eacFFT,
		eac:         make([]float64, cfg.OSSWindowSize),
		corrScratch: make([]complex128, eacFFT.bins()),
		pulseTrains: buildPulseTrains(tMin, tMax),
		tMin:        tMin,
		tMax:        tMax,

		tempoAccumulator: make([]float64, tMax-tMin+1),
		tempoLag:         100, // spec.md §3 lifecycle: tempo_lag = 100 initially

		cbssBuffer: make([]float64, cfg.CBSSBufferSize),
		bpsBuffer:  make([]float64, cfg.BPSBufferSize),

		epsilonT: cfg.BPSEpsilonT,
		epsilonO: cfg.BPSEpsilonO,
		epsilonR: cfg.BPSEpsilonR,

		frameIndex: -1, // spec.md §3 lifecycle
		mode:       ModeRegular,
		active:     true,

		control: make(chan controlMessage, 8),
	}
	return p, nil
}

// Mode reports the pipeline's current operating mode.
func (p *Pipeline) Mode() Mode { return p.mode }

// TempoLag reports the currently active tempo lag, in OSS samples.
func (p *Pipeline) TempoLag() int { return p.tempoLag }

// FrameIndex reports the 0-based index of the most recently processed
// hop (-1 before the first tick), so FrameIndex()+1 hops have run.
func (p *Pipeline) FrameIndex() int { return p.frameIndex }

// BPM returns the current tempo as beats per minute, independent of
// whether a BPM event has fired this tick (original beatviewer's
// Pipeline.bpm property, ported per SPEC_FULL.md "Runtime BPM query").
func (p *Pipeline) BPM() float64 {
	if p.tempoLag <= 0 {
		return 0
	}
	return 60 * p.hopRate / float64(p.tempoLag)
}

// Active reports whether the pipeline will still produce ticks.
func (p *Pipeline) Active() bool { return p.active }

func noiseGateThreshold(levelDB float64, windowSize int) float64 {
	return pow10(levelDB/20) * float64(windowSize)
}

func hammingWindow(size int) []float64 {
	const a0 = 25.0 / 46.0
	w := make([]float64, size)
	for k := range w {
		w[k] = a0 - (1-a0)*cosTwoPi(float64(k)/float64(size))
	}
	return w
}
