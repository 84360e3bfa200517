package audiosource

import (
	"context"
	"fmt"
	"os"

	"github.com/cwbudde/wav"
)

// WAVFile is a thin reference/demo Source that mono-mixes a WAV file
// and yields it hop by hop. It mirrors the decode path used by the
// teacher's piano.SoundboardConvolver.SetIRFromWAV (open, decode,
// average channels to mono) but feeds a hop stream instead of loading
// one impulse response. It is wired only from cmd/beattrack — the
// beat package never imports this file, keeping "audio acquisition"
// an external collaborator as spec.md requires.
type WAVFile struct {
	sampleRate int
	hopSize    int
	samples    []float64
	pos        int
}

// NewWAVFile opens path, decodes it with cwbudde/wav, and mono-mixes
// it (channel-averaging, matching beatviewer's LiveAudioSource) into a
// single sample buffer hopped out hopSize samples at a time.
func NewWAVFile(path string, hopSize int) (*WAVFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audiosource: opening %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("audiosource: %s is not a valid WAV file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("audiosource: decoding %s: %w", path, err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, fmt.Errorf("audiosource: %s has no usable PCM data", path)
	}
	if hopSize <= 0 {
		return nil, fmt.Errorf("audiosource: hopSize must be > 0, got %d", hopSize)
	}

	numCh := buf.Format.NumChannels
	frames := len(buf.Data) / numCh
	mono := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < numCh; c++ {
			sum += float64(buf.Data[i*numCh+c])
		}
		mono[i] = sum / float64(numCh)
	}

	return &WAVFile{
		sampleRate: buf.Format.SampleRate,
		hopSize:    hopSize,
		samples:    mono,
	}, nil
}

func (w *WAVFile) SampleRate() int { return w.sampleRate }

func (w *WAVFile) Active() bool { return w.pos < len(w.samples) }

func (w *WAVFile) NextHop(_ context.Context, hop []float64) error {
	if len(hop) != w.hopSize {
		return fmt.Errorf("audiosource: NextHop expects a %d-sample hop, got %d", w.hopSize, len(hop))
	}
	for i := range hop {
		if w.pos+i < len(w.samples) {
			hop[i] = w.samples[w.pos+i]
		} else {
			hop[i] = 0
		}
	}
	w.pos += w.hopSize
	return nil
}
