package beat

// controlKind identifies the one asynchronous control message a
// caller may send to a running Pipeline (spec.md §5 "shared state",
// §6.3 "bps_epsilon_t and mode are the only tunables mutable at
// runtime").
type controlKind int

const (
	ctrlSetMode controlKind = iota
	ctrlSetEpsilonT
	ctrlSetEpsilonO
	ctrlSetEpsilonR
	ctrlNudgeEpsilonT
)

type controlMessage struct {
	kind     controlKind
	mode     Mode
	intVal   int
	floatVal float64
}

// SetMode queues a mode switch, applied at the start of the next tick
// (spec.md §4.5 "Mode toggle").
func (p *Pipeline) SetMode(m Mode) {
	p.control <- controlMessage{kind: ctrlSetMode, mode: m}
}

// SetEpsilonT queues a new trigger look-ahead index for the beat
// decision (spec.md §4.5), applied at the start of the next tick.
func (p *Pipeline) SetEpsilonT(v int) {
	p.control <- controlMessage{kind: ctrlSetEpsilonT, intVal: v}
}

// SetEpsilonO queues a new bps_epsilon_o value.
func (p *Pipeline) SetEpsilonO(v float64) {
	p.control <- controlMessage{kind: ctrlSetEpsilonO, floatVal: v}
}

// SetEpsilonR queues a new bps_epsilon_r value.
func (p *Pipeline) SetEpsilonR(v float64) {
	p.control <- controlMessage{kind: ctrlSetEpsilonR, floatVal: v}
}

// NudgeEpsilonT adjusts bps_epsilon_t by delta relative to its current
// value, clamped to a valid buffer index. A small supplemented
// convenience over SetEpsilonT for callers that track an offset rather
// than an absolute index (original beatviewer's live epsilon-t nudge
// control).
func (p *Pipeline) NudgeEpsilonT(delta int) {
	p.control <- controlMessage{kind: ctrlNudgeEpsilonT, intVal: delta}
}

// drainControl applies every pending control message, in order,
// before a tick begins (spec.md §5: drained at tick boundaries).
func (p *Pipeline) drainControl() {
	for {
		select {
		case msg := <-p.control:
			p.applyControl(msg)
		default:
			return
		}
	}
}

func (p *Pipeline) applyControl(msg controlMessage) {
	switch msg.kind {
	case ctrlSetMode:
		p.mode = msg.mode
	case ctrlSetEpsilonT:
		p.epsilonT = clampInt(msg.intVal, 0, len(p.bpsBuffer)-1)
	case ctrlSetEpsilonO:
		p.epsilonO = msg.floatVal
	case ctrlSetEpsilonR:
		p.epsilonR = msg.floatVal
	case ctrlNudgeEpsilonT:
		p.epsilonT = clampInt(p.epsilonT+msg.intVal, 0, len(p.bpsBuffer)-1)
	}
}
