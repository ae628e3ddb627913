// Package midi holds the host-facing MIDI event value and the fixed-capacity
// queue that carries events from ProcessMidi to the next processed block.
package midi

import (
	"fmt"
	"math"
)

// Kind classifies an event by its status nibble.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindNoteOff
	KindNoteOn
	KindPolyPressure
	KindControlChange
	KindProgramChange
	KindChannelPressure
	KindPitchBend
)

var kindNames = [...]string{"Invalid", "NoteOff", "NoteOn", "PolyPressure", "ControlChange", "ProgramChange", "ChannelPressure", "PitchBend"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Invalid"
}

// Status bytes (channel 0)
const (
	StatusNoteOff         byte = 0x80
	StatusNoteOn          byte = 0x90
	StatusPolyPressure    byte = 0xA0
	StatusControlChange   byte = 0xB0
	StatusProgramChange   byte = 0xC0
	StatusChannelPressure byte = 0xD0
	StatusPitchBend       byte = 0xE0
)

const (
	CCModWheel    uint8 = 1
	CCVolume      uint8 = 7
	CCPan         uint8 = 10
	CCExpression  uint8 = 11
	CCSustain     uint8 = 64
	CCAllSoundOff uint8 = 120
	CCResetAll    uint8 = 121
	CCAllNotesOff uint8 = 123
)

// Event is a raw channel-voice message placed at a sample offset within the
// current block.
type Event struct {
	Status       byte
	Data1        byte
	Data2        byte
	SampleOffset int32
}

// NoteOn builds a note-on event.
func NoteOn(channel, note, velocity uint8, offset int32) Event {
	return Event{Status: StatusNoteOn | channel&0x0f, Data1: note, Data2: velocity, SampleOffset: offset}
}

// NoteOff builds a note-off event.
func NoteOff(channel, note, velocity uint8, offset int32) Event {
	return Event{Status: StatusNoteOff | channel&0x0f, Data1: note, Data2: velocity, SampleOffset: offset}
}

// ControlChange builds a controller event.
func ControlChange(channel, controller, value uint8, offset int32) Event {
	return Event{Status: StatusControlChange | channel&0x0f, Data1: controller, Data2: value, SampleOffset: offset}
}

// PitchBend builds a pitch-bend event from a 14-bit value (8192 is centre).
func PitchBend(channel uint8, value uint16, offset int32) Event {
	return Event{Status: StatusPitchBend | channel&0x0f, Data1: byte(value & 0x7f), Data2: byte(value >> 7 & 0x7f), SampleOffset: offset}
}

// Kind returns the message kind, or KindInvalid for data bytes and system
// messages.
func (e Event) Kind() Kind {
	switch e.Status & 0xf0 {
	case StatusNoteOff:
		return KindNoteOff
	case StatusNoteOn:
		return KindNoteOn
	case StatusPolyPressure:
		return KindPolyPressure
	case StatusControlChange:
		return KindControlChange
	case StatusProgramChange:
		return KindProgramChange
	case StatusChannelPressure:
		return KindChannelPressure
	case StatusPitchBend:
		return KindPitchBend
	}
	return KindInvalid
}

// Channel returns the MIDI channel (0-15).
func (e Event) Channel() uint8 {
	return e.Status & 0x0f
}

// IsNoteOn reports a note-on with non-zero velocity.
func (e Event) IsNoteOn() bool {
	return e.Kind() == KindNoteOn && e.Data2 > 0
}

// IsNoteOff reports a note-off, including note-on with zero velocity.
func (e Event) IsNoteOff() bool {
	k := e.Kind()
	return k == KindNoteOff || (k == KindNoteOn && e.Data2 == 0)
}

// PitchBendValue returns the 14-bit bend value.
func (e Event) PitchBendValue() uint16 {
	return uint16(e.Data2)<<7 | uint16(e.Data1)
}

// Valid reports whether the event is a well-formed channel-voice message.
func (e Event) Valid() bool {
	return e.Kind() != KindInvalid && e.Data1 <= 0x7f && e.Data2 <= 0x7f
}

func (e Event) String() string {
	return fmt.Sprintf("%s{ch:%d d1:%d d2:%d offset:%d}", e.Kind(), e.Channel(), e.Data1, e.Data2, e.SampleOffset)
}

// NoteToFrequency converts a note number to Hz. A zero tuning means 440 Hz.
func NoteToFrequency(note uint8, tuningA4 float64) float64 {
	if tuningA4 == 0 {
		tuningA4 = 440.0
	}
	return tuningA4 * math.Exp2((float64(note)-69.0)/12.0)
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteNumberToName returns names like "C4" (middle C is 60).
func NoteNumberToName(note uint8) string {
	return fmt.Sprintf("%s%d", noteNames[note%12], int(note/12)-1)
}
