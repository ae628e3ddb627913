// Package voice implements polyphonic voice allocation for instruments.
// The allocator keeps all bookkeeping in fixed arrays so note handling on
// the audio thread never allocates.
package voice

import (
	"github.com/justyntemme/vst3host/pkg/midi"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

// AllocationMode defines how voices are allocated
type AllocationMode int

const (
	// ModePoly gives each note its own voice.
	ModePoly AllocationMode = iota
	// ModeMono plays one note at a time on the first voice.
	ModeMono
)

// StealingMode defines how voices are stolen when all are in use
type StealingMode int

const (
	// StealOldest steals the voice that has played longest.
	StealOldest StealingMode = iota
	// StealQuietest steals the voice with lowest amplitude.
	StealQuietest
	// StealNone ignores new notes when every voice is busy.
	StealNone
)

// Voice is a single sounding note.
type Voice interface {
	IsActive() bool
	Note() uint8
	Amplitude() float64
	// Age is the number of samples rendered since the last trigger.
	Age() int64
	Trigger(note uint8, velocity float32)
	Release()
	Stop()
	// Render adds the voice's output to buf.
	Render(buf []float32)
}

const noVoice = -1

// Allocator manages voice allocation for polyphonic synthesis
type Allocator struct {
	voices       []Voice
	mode         AllocationMode
	stealingMode StealingMode
	maxVoices    int
	lastVoice    int

	noteVoice [128]int
	sustain   bool
	sustained [128]bool
}

// NewAllocator creates a new voice allocator
func NewAllocator(voices []Voice) *Allocator {
	a := &Allocator{
		voices:    voices,
		maxVoices: len(voices),
		lastVoice: -1,
	}
	a.clearMap()
	return a
}

func (a *Allocator) clearMap() {
	for i := range a.noteVoice {
		a.noteVoice[i] = noVoice
	}
}

// SetMode sets the allocation mode and stops all voices.
func (a *Allocator) SetMode(mode AllocationMode) {
	a.mode = mode
	a.Reset()
}

// SetStealingMode sets the voice stealing mode
func (a *Allocator) SetStealingMode(mode StealingMode) {
	a.stealingMode = mode
}

// SetMaxVoices limits polyphony to at most len(voices).
func (a *Allocator) SetMaxVoices(n int) {
	a.maxVoices = max(1, min(n, len(a.voices)))
}

// ProcessEvent applies a host event.
func (a *Allocator) ProcessEvent(e vst3.Event) {
	switch e.Type {
	case vst3.EventNoteOn:
		if e.Velocity > 0 {
			a.NoteOn(uint8(e.Pitch), e.Velocity)
		} else {
			a.NoteOff(uint8(e.Pitch))
		}
	case vst3.EventNoteOff:
		a.NoteOff(uint8(e.Pitch))
	case vst3.EventLegacyMIDICCOut:
		switch e.ControlNumber {
		case midi.CCSustain:
			a.SetSustainPedal(e.Value >= 64)
		case midi.CCAllNotesOff:
			a.AllNotesOff()
		case midi.CCAllSoundOff:
			a.Reset()
		}
	}
}

// NoteOn starts a note. Velocity is normalized.
func (a *Allocator) NoteOn(note uint8, velocity float32) {
	if note > 127 {
		return
	}
	a.sustained[note] = false

	if a.mode == ModeMono {
		for n, idx := range a.noteVoice {
			if idx != noVoice && uint8(n) != note {
				a.noteVoice[n] = noVoice
			}
		}
		a.voices[0].Trigger(note, velocity)
		a.noteVoice[note] = 0
		return
	}

	// Retrigger a note that is already sounding.
	if idx := a.noteVoice[note]; idx != noVoice {
		a.voices[idx].Trigger(note, velocity)
		return
	}

	idx := a.findFreeVoice()
	if idx == noVoice {
		idx = a.stealVoice()
		if idx == noVoice {
			return
		}
	}
	a.voices[idx].Trigger(note, velocity)
	a.noteVoice[note] = idx
}

// NoteOff releases a note, or holds it while the sustain pedal is down.
func (a *Allocator) NoteOff(note uint8) {
	if note > 127 {
		return
	}
	idx := a.noteVoice[note]
	if idx == noVoice {
		return
	}
	if a.sustain {
		a.sustained[note] = true
		return
	}
	a.voices[idx].Release()
	a.noteVoice[note] = noVoice
}

// SetSustainPedal sets the sustain pedal state. Lifting it releases every
// note held only by the pedal.
func (a *Allocator) SetSustainPedal(on bool) {
	a.sustain = on
	if on {
		return
	}
	for note, held := range a.sustained {
		if held {
			a.sustained[note] = false
			a.NoteOff(uint8(note))
		}
	}
}

// AllNotesOff releases every sounding note.
func (a *Allocator) AllNotesOff() {
	a.sustain = false
	for note := range a.noteVoice {
		a.sustained[note] = false
		a.NoteOff(uint8(note))
	}
}

// Reset stops all voices and clears allocations
func (a *Allocator) Reset() {
	for _, v := range a.voices {
		v.Stop()
	}
	a.clearMap()
	a.sustained = [128]bool{}
	a.sustain = false
	a.lastVoice = -1
}

// ActiveVoiceCount returns the number of active voices
func (a *Allocator) ActiveVoiceCount() int {
	count := 0
	for _, v := range a.voices[:a.maxVoices] {
		if v.IsActive() {
			count++
		}
	}
	return count
}

// Render mixes every active voice into buf.
func (a *Allocator) Render(buf []float32) {
	for _, v := range a.voices[:a.maxVoices] {
		if v.IsActive() {
			v.Render(buf)
		}
	}
}

// findFreeVoice searches round-robin from the last allocated voice.
func (a *Allocator) findFreeVoice() int {
	for i := 0; i < a.maxVoices; i++ {
		idx := (a.lastVoice + 1 + i) % a.maxVoices
		if !a.voices[idx].IsActive() {
			a.lastVoice = idx
			return idx
		}
	}
	return noVoice
}

func (a *Allocator) stealVoice() int {
	if a.stealingMode == StealNone {
		return noVoice
	}

	best := noVoice
	var bestValue float64
	for i := 0; i < a.maxVoices; i++ {
		v := a.voices[i]
		switch a.stealingMode {
		case StealOldest:
			if age := float64(v.Age()); best == noVoice || age > bestValue {
				best, bestValue = i, age
			}
		case StealQuietest:
			if amp := v.Amplitude(); best == noVoice || amp < bestValue {
				best, bestValue = i, amp
			}
		}
	}
	if best == noVoice {
		return noVoice
	}

	stolen := a.voices[best].Note()
	if stolen <= 127 && a.noteVoice[stolen] == best {
		a.noteVoice[stolen] = noVoice
		a.sustained[stolen] = false
	}
	a.voices[best].Stop()
	a.lastVoice = best
	return best
}
