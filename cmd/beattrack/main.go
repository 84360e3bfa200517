// Command beattrack is a reference CLI for the beat-tracking pipeline:
// it wires an audio source (WAV file or a synthetic click train), a
// config.Config, and a beat.Pipeline, then prints events as they're
// emitted. It exists to exercise the core package end to end; none of
// its plumbing (flag parsing, logging, console color) is part of the
// core contract (spec.md §1 Non-goals).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/ychalier/beatviewer/audiosource"
	"github.com/ychalier/beatviewer/beat"
	"github.com/ychalier/beatviewer/config"
	"github.com/ychalier/beatviewer/events"
)

var (
	onsetStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500"))
	beatStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00AA00"))
	bpmStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FAFFF"))
)

// cli is the kong-parsed command-line surface.
type cli struct {
	WAV        string `help:"Path to a WAV file to track. If empty, a synthetic 120 BPM click train is used." type:"path"`
	ConfigPath string `name:"config" help:"Path to a YAML config override file." type:"path"`
	ClickBPM   float64 `default:"120" help:"BPM of the synthetic click train, used when --wav is not given."`
	Duration   float64 `default:"20" help:"Duration in seconds of the synthetic click train."`
	Debug      bool    `help:"Enable debug-level logging."`
}

func main() {
	var c cli
	kong.Parse(&c,
		kong.Name("beattrack"),
		kong.Description("Reference CLI for the real-time beat-tracking pipeline."),
		kong.UsageOnError(),
	)

	level := log.InfoLevel
	if c.Debug {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           level,
	})

	runID := uuid.New().String()
	logger = logger.With("run_id", runID)

	if err := run(c, logger); err != nil {
		logger.Error("beattrack exited with an error", "err", err)
		os.Exit(1)
	}
}

func run(c cli, logger *log.Logger) error {
	cfg := config.New()
	if c.ConfigPath != "" {
		loaded, err := config.LoadYAML(c.ConfigPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
		logger.Info("loaded config override", "path", c.ConfigPath)
	}

	source, err := buildSource(c, cfg)
	if err != nil {
		return err
	}

	pipeline, err := beat.New(cfg, source)
	if err != nil {
		return fmt.Errorf("constructing pipeline: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("pipeline started", "sample_rate", source.SampleRate(), "hop_size", cfg.AudioHopSize)

	sink := events.SinkFunc(func(e events.Event) {
		printEvent(logger, e)
	})
	if err := pipeline.Run(ctx, sink); err != nil {
		return fmt.Errorf("pipeline run: %w", err)
	}

	logger.Info("pipeline finished", "frames", pipeline.FrameIndex()+1, "final_bpm", pipeline.BPM())
	return nil
}

func buildSource(c cli, cfg config.Config) (audiosource.Source, error) {
	if c.WAV != "" {
		src, err := audiosource.NewWAVFile(c.WAV, cfg.AudioHopSize)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", c.WAV, err)
		}
		return src, nil
	}

	const sampleRate = 44100
	periodHops := int(sampleRate * 60.0 / c.ClickBPM / float64(cfg.AudioHopSize))
	if periodHops < 1 {
		periodHops = 1
	}
	durationHops := int(c.Duration * sampleRate / float64(cfg.AudioHopSize))
	return audiosource.NewClickTrain(sampleRate, cfg.AudioHopSize, periodHops, durationHops, 20000), nil
}

func printEvent(logger *log.Logger, e events.Event) {
	switch e.Kind {
	case events.KindOnset:
		fmt.Println(onsetStyle.Render(fmt.Sprintf("ONSET  frame=%d t=%.3fs", e.Frame, e.TimeSec)))
	case events.KindBeat:
		fmt.Println(beatStyle.Render(fmt.Sprintf("BEAT   frame=%d t=%.3fs", e.Frame, e.TimeSec)))
	case events.KindBPM:
		fmt.Println(bpmStyle.Render(fmt.Sprintf("BPM    frame=%d t=%.3fs bpm=%.1f", e.Frame, e.TimeSec, e.BPM)))
		logger.Debug("tempo changed", "bpm", e.BPM, "frame", e.Frame)
	}
}
