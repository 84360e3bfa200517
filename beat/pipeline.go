package beat

import (
	"context"
	"errors"

	"github.com/ychalier/beatviewer/events"
)

// Tick advances the pipeline by exactly one audio hop (spec.md §2):
// control drain, audio stream, OSS, tempo estimation, CBSS, phase/BPS,
// in that fixed order. It returns ErrInputExhausted once the audio
// source has been fully consumed, with no further state mutation.
//
// No partial event is ever returned: on any stage error the returned
// slice is nil, matching spec.md §7 ("no exception propagates out of a
// tick... no partial event may be emitted").
func (p *Pipeline) Tick(ctx context.Context) ([]events.Event, error) {
	if !p.active {
		return nil, ErrInputExhausted
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.drainControl()

	if err := p.advanceWindow(ctx, p.source); err != nil {
		return nil, err
	}
	p.frameIndex++

	if err := p.stageAudioStream(); err != nil {
		return nil, err
	}

	onset := p.stageOSS()

	var evts []events.Event
	if onset {
		evts = append(evts, events.Event{
			Kind:    events.KindOnset,
			Frame:   p.frameIndex,
			TimeSec: float64(p.frameIndex) / p.hopRate,
		})
	}

	bpmEvts, err := p.maybeUpdateTempo(nil)
	if err != nil {
		return nil, err
	}

	p.stageCBSS()

	// ONSET, then BEAT, then BPM (spec.md §4.6): stagePhaseAndBPS's
	// BEAT is appended before the tempo stage's already-computed BPM.
	evts = p.stagePhaseAndBPS(evts)
	evts = append(evts, bpmEvts...)

	return evts, nil
}

// Run drives Tick in a loop until the audio source is exhausted or ctx
// is cancelled, forwarding every emitted event to sink. Cancellation
// is observed only at tick boundaries (spec.md §5).
func (p *Pipeline) Run(ctx context.Context, sink events.Sink) error {
	for {
		evts, err := p.Tick(ctx)
		if err != nil {
			if errors.Is(err, ErrInputExhausted) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		for _, e := range evts {
			sink.Emit(e)
		}
	}
}
