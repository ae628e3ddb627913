// Package bus describes a plugin's audio and event bus topology and handles
// the arrangement negotiation a host performs before activation.
package bus

import (
	"github.com/justyntemme/vst3host/pkg/hosterr"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

// MaxChannelsPerBus bounds what SetArrangements accepts.
const MaxChannelsPerBus = 8

type entry struct {
	info   vst3.BusInfo
	active bool
}

// Configuration manages audio and event buses
type Configuration struct {
	audio  []entry
	events []entry
}

func (c *Configuration) list(media vst3.MediaType) []entry {
	if media == vst3.MediaTypeEvent {
		return c.events
	}
	return c.audio
}

func (c *Configuration) find(media vst3.MediaType, dir vst3.BusDirection, index int32) *entry {
	buses := c.list(media)
	n := int32(0)
	for i := range buses {
		if buses[i].info.Direction != dir {
			continue
		}
		if n == index {
			return &buses[i]
		}
		n++
	}
	return nil
}

// BusCount returns the number of buses for a given type and direction
func (c *Configuration) BusCount(media vst3.MediaType, dir vst3.BusDirection) int32 {
	n := int32(0)
	for _, b := range c.list(media) {
		if b.info.Direction == dir {
			n++
		}
	}
	return n
}

// BusInfo returns information about a specific bus
func (c *Configuration) BusInfo(media vst3.MediaType, dir vst3.BusDirection, index int32) (vst3.BusInfo, error) {
	e := c.find(media, dir, index)
	if e == nil {
		return vst3.BusInfo{}, vst3.ErrInvalidArgument
	}
	return e.info, nil
}

// Activate switches a bus on or off.
func (c *Configuration) Activate(media vst3.MediaType, dir vst3.BusDirection, index int32, state bool) error {
	e := c.find(media, dir, index)
	if e == nil {
		return vst3.ErrInvalidArgument
	}
	e.active = state
	return nil
}

// IsActive reports whether a bus is active.
func (c *Configuration) IsActive(media vst3.MediaType, dir vst3.BusDirection, index int32) bool {
	e := c.find(media, dir, index)
	return e != nil && e.active
}

// SetArrangements applies a host proposal for the audio buses. The proposal
// must cover every bus; channel counts may change within MaxChannelsPerBus.
// Nothing changes if any arrangement is refused.
func (c *Configuration) SetArrangements(inputs, outputs []vst3.SpeakerArrangement) error {
	if int32(len(inputs)) != c.BusCount(vst3.MediaTypeAudio, vst3.BusDirectionInput) ||
		int32(len(outputs)) != c.BusCount(vst3.MediaTypeAudio, vst3.BusDirectionOutput) {
		return vst3.ErrFalse
	}
	for _, set := range [][]vst3.SpeakerArrangement{inputs, outputs} {
		for _, a := range set {
			if n := a.ChannelCount(); n == 0 || n > MaxChannelsPerBus {
				return vst3.ErrFalse
			}
		}
	}
	for i, a := range inputs {
		c.find(vst3.MediaTypeAudio, vst3.BusDirectionInput, int32(i)).info.ChannelCount = a.ChannelCount()
	}
	for i, a := range outputs {
		c.find(vst3.MediaTypeAudio, vst3.BusDirectionOutput, int32(i)).info.ChannelCount = a.ChannelCount()
	}
	return nil
}

// Arrangement returns the current arrangement of an audio bus.
func (c *Configuration) Arrangement(dir vst3.BusDirection, index int32) (vst3.SpeakerArrangement, error) {
	e := c.find(vst3.MediaTypeAudio, dir, index)
	if e == nil {
		return vst3.SpeakerEmpty, vst3.ErrInvalidArgument
	}
	return vst3.ArrangementForChannels(e.info.ChannelCount), nil
}

// ChannelCounts returns the channel count of every audio bus in a direction.
func (c *Configuration) ChannelCounts(dir vst3.BusDirection) []int32 {
	var out []int32
	for _, b := range c.audio {
		if b.info.Direction == dir {
			out = append(out, b.info.ChannelCount)
		}
	}
	return out
}

// HasEventInput reports whether the plugin accepts events.
func (c *Configuration) HasEventInput() bool {
	return c.BusCount(vst3.MediaTypeEvent, vst3.BusDirectionInput) > 0
}

// Builder assembles a Configuration.
type Builder struct {
	cfg Configuration
	err error
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) add(media vst3.MediaType, dir vst3.BusDirection, typ vst3.BusType, name string, channels int32) *Builder {
	if media == vst3.MediaTypeAudio && (channels <= 0 || channels > MaxChannelsPerBus) {
		b.err = hosterr.InvalidArgument("channels", "Bus channel count out of range").WithContext("bus", name)
		return b
	}
	e := entry{
		info: vst3.BusInfo{
			MediaType:    media,
			Direction:    dir,
			ChannelCount: channels,
			Name:         name,
			BusType:      typ,
		},
		active: typ == vst3.BusTypeMain,
	}
	if e.active {
		e.info.Flags = vst3.BusDefaultActive
	}
	if media == vst3.MediaTypeEvent {
		b.cfg.events = append(b.cfg.events, e)
	} else {
		b.cfg.audio = append(b.cfg.audio, e)
	}
	return b
}

// WithAudioInput adds a main audio input bus.
func (b *Builder) WithAudioInput(name string, channels int32) *Builder {
	return b.add(vst3.MediaTypeAudio, vst3.BusDirectionInput, vst3.BusTypeMain, name, channels)
}

// WithAudioOutput adds a main audio output bus.
func (b *Builder) WithAudioOutput(name string, channels int32) *Builder {
	return b.add(vst3.MediaTypeAudio, vst3.BusDirectionOutput, vst3.BusTypeMain, name, channels)
}

// WithSidechain adds an inactive auxiliary input.
func (b *Builder) WithSidechain(name string, channels int32) *Builder {
	return b.add(vst3.MediaTypeAudio, vst3.BusDirectionInput, vst3.BusTypeAux, name, channels)
}

// WithEventInput adds an event input bus (for MIDI input).
func (b *Builder) WithEventInput(name string) *Builder {
	return b.add(vst3.MediaTypeEvent, vst3.BusDirectionInput, vst3.BusTypeMain, name, 16)
}

// Build returns the configuration or the first error recorded.
func (b *Builder) Build() (*Configuration, error) {
	if b.err != nil {
		return nil, b.err
	}
	cfg := b.cfg
	return &cfg, nil
}

// NewEffectStereo is a stereo in, stereo out effect.
func NewEffectStereo() *Configuration {
	cfg, _ := NewBuilder().
		WithAudioInput("Stereo In", 2).
		WithAudioOutput("Stereo Out", 2).
		Build()
	return cfg
}

// NewGenerator is an instrument: event input, stereo output.
func NewGenerator() *Configuration {
	cfg, _ := NewBuilder().
		WithEventInput("MIDI In").
		WithAudioOutput("Stereo Out", 2).
		Build()
	return cfg
}
