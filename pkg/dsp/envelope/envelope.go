// Package envelope provides the exponential ADSR used by the synth voices.
package envelope

import "math"

// Stage is the segment an envelope is in.
type Stage uint8

const (
	StageIdle Stage = iota
	StageAttack
	StageDecay
	StageSustain
	StageRelease
)

var stageNames = [...]string{"idle", "attack", "decay", "sustain", "release"}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "unknown"
}

const (
	minSegment = 0.001 // seconds
	attackTop  = 0.999
	silence    = 0.001
)

// Times are the segment lengths in seconds and the sustain level in [0,1].
type Times struct {
	Attack  float64
	Decay   float64
	Sustain float64
	Release float64
}

// DefaultTimes is a short percussive shape.
var DefaultTimes = Times{Attack: 0.01, Decay: 0.1, Sustain: 0.7, Release: 0.3}

func (t Times) clamp() Times {
	return Times{
		Attack:  math.Max(minSegment, t.Attack),
		Decay:   math.Max(minSegment, t.Decay),
		Sustain: math.Max(0, math.Min(1, t.Sustain)),
		Release: math.Max(minSegment, t.Release),
	}
}

// ADSR approaches each segment target with a one-pole curve. It does not
// allocate.
type ADSR struct {
	sampleRate float64
	times      Times

	// one-pole coefficients indexed by Stage
	coef [StageRelease + 1]float64

	stage  Stage
	level  float64
	target float64
}

// New returns an idle envelope using DefaultTimes.
func New(sampleRate float64) *ADSR {
	e := &ADSR{sampleRate: sampleRate}
	e.Set(DefaultTimes)
	return e
}

// Set replaces all segment times. Segments shorter than 1 ms are raised to
// 1 ms.
func (e *ADSR) Set(t Times) {
	e.times = t.clamp()
	e.coef[StageAttack] = pole(e.times.Attack, e.sampleRate)
	e.coef[StageDecay] = pole(e.times.Decay, e.sampleRate)
	e.coef[StageRelease] = pole(e.times.Release, e.sampleRate)
}

// SetADSR is Set with positional arguments.
func (e *ADSR) SetADSR(attack, decay, sustain, release float64) {
	e.Set(Times{Attack: attack, Decay: decay, Sustain: sustain, Release: release})
}

// Times returns the effective segment times.
func (e *ADSR) Times() Times { return e.times }

// exp(-1 / (seconds * rate))
func pole(seconds, sampleRate float64) float64 {
	return math.Exp(-1 / (seconds * sampleRate))
}

// Trigger starts the attack from the current level, so a retriggered voice
// does not click.
func (e *ADSR) Trigger() {
	e.enter(StageAttack, 1)
}

// Release starts the release segment unless the envelope is idle.
func (e *ADSR) Release() {
	if e.stage != StageIdle {
		e.enter(StageRelease, 0)
	}
}

// Reset silences the envelope immediately.
func (e *ADSR) Reset() {
	e.enter(StageIdle, 0)
	e.level = 0
}

func (e *ADSR) enter(s Stage, target float64) {
	e.stage = s
	e.target = target
}

func (e *ADSR) IsActive() bool { return e.stage != StageIdle }
func (e *ADSR) Stage() Stage   { return e.stage }

// Value returns the last level produced by Next.
func (e *ADSR) Value() float64 { return e.level }

// Next advances one sample and returns the new level.
func (e *ADSR) Next() float32 {
	switch e.stage {
	case StageIdle:
		e.level = 0
	case StageSustain:
		e.level = e.times.Sustain
	default:
		e.level = e.target + (e.level-e.target)*e.coef[e.stage]
		e.advance()
	}
	return float32(e.level)
}

// advance moves to the next segment once the curve is close enough to its
// target.
func (e *ADSR) advance() {
	switch e.stage {
	case StageAttack:
		if e.level >= attackTop {
			e.level = 1
			e.enter(StageDecay, e.times.Sustain)
		}
	case StageDecay:
		if e.level <= e.times.Sustain+silence {
			e.level = e.times.Sustain
			e.enter(StageSustain, e.times.Sustain)
		}
	case StageRelease:
		if e.level <= silence {
			e.level = 0
			e.enter(StageIdle, 0)
		}
	}
}

// Apply multiplies buf by successive envelope levels.
func (e *ADSR) Apply(buf []float32) {
	for i := range buf {
		buf[i] *= e.Next()
	}
}
