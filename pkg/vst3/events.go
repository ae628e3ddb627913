package vst3

// EventType identifies the payload of an Event.
type EventType uint16

// Event types
const (
	EventNoteOn          EventType = 0
	EventNoteOff         EventType = 1
	EventData            EventType = 2
	EventPolyPressure    EventType = 3
	EventLegacyMIDICCOut EventType = 65535
)

// Controller numbers used in legacy MIDI CC events for messages that have
// no dedicated event type.
const (
	ControllerAfterTouch    uint8 = 128
	ControllerPitchBend     uint8 = 129
	ControllerProgramChange uint8 = 130
)

// Event is a flat value so event lists can be reused without allocation.
// Which fields are meaningful depends on Type.
type Event struct {
	BusIndex     int32
	SampleOffset int32
	Type         EventType

	Channel  int16
	Pitch    int16
	Velocity float32 // note on/off, normalized
	NoteID   int32
	Pressure float32 // poly pressure, normalized

	ControlNumber uint8 // legacy CC
	Value         int8
	Value2        int8
}

// EventList is a fixed-capacity event list.
type EventList struct {
	events []Event
}

// NewEventList allocates a list with room for capacity events.
func NewEventList(capacity int) *EventList {
	return &EventList{events: make([]Event, 0, capacity)}
}

// Count returns the number of events.
func (l *EventList) Count() int32 {
	if l == nil {
		return 0
	}
	return int32(len(l.events))
}

// At returns the event at index.
func (l *EventList) At(index int32) Event {
	return l.events[index]
}

// Events returns the live view of all events.
func (l *EventList) Events() []Event {
	if l == nil {
		return nil
	}
	return l.events
}

// Add appends an event. It reports false when the list is full.
func (l *EventList) Add(e Event) bool {
	if len(l.events) == cap(l.events) {
		return false
	}
	l.events = append(l.events, e)
	return true
}

// Reset empties the list, keeping its capacity.
func (l *EventList) Reset() {
	l.events = l.events[:0]
}

// Capacity returns the maximum number of events the list holds.
func (l *EventList) Capacity() int {
	return cap(l.events)
}
