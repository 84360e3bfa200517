// Package audiosource defines the external audio-source contract
// (spec.md §6.1) the beat-tracking core reads hops from, plus a small
// set of synthetic in-memory sources used to drive the spec's S1-S6
// scenario tests, and a thin WAV-file reference reader. Live capture,
// resampling, and recording-to-disk stay out of scope (spec.md §1
// Non-goals) — nothing here does mono mixing of a multi-device stream
// or talks to a capture device.
package audiosource

import "context"

// Source advances an internal sliding window and reports whether more
// samples remain. Once Active reports false, NextHop must yield zeros
// (spec.md §6.1: "Out-of-range / end-of-stream sets active=false and
// subsequent calls must yield zeros").
type Source interface {
	// SampleRate is the source's fixed sampling rate in Hz.
	SampleRate() int
	// Active reports whether the source still has real samples to give.
	Active() bool
	// NextHop writes exactly len(hop) mono samples, advancing the
	// source by that many frames.
	NextHop(ctx context.Context, hop []float64) error
}
