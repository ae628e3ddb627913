package host

import (
	"fmt"

	"github.com/justyntemme/vst3host/pkg/engine"
	"github.com/justyntemme/vst3host/pkg/registry"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

// negotiateBuses activates the main audio buses and the first event input,
// proposes the declared arrangements, and falls back to the plugin's own
// arrangements when the proposal is refused. Auxiliary buses stay inactive
// and contribute no channels.
func negotiateBuses(comp vst3.Plugin) (engine.Layout, error) {
	var layout engine.Layout
	err := guard(func() error {
		var err error
		if layout.Inputs, err = activateAudio(comp, vst3.BusDirectionInput); err != nil {
			return err
		}
		if layout.Outputs, err = activateAudio(comp, vst3.BusDirectionOutput); err != nil {
			return err
		}
		if comp.BusCount(vst3.MediaTypeEvent, vst3.BusDirectionInput) > 0 {
			if err := comp.ActivateBus(vst3.MediaTypeEvent, vst3.BusDirectionInput, 0, true); err != nil {
				return fmt.Errorf("activate event input: %w", err)
			}
		}

		ins := arrangements(layout.Inputs)
		outs := arrangements(layout.Outputs)
		if comp.SetBusArrangements(ins, outs) == nil {
			return nil
		}
		if err := adopt(comp, vst3.BusDirectionInput, layout.Inputs); err != nil {
			return err
		}
		return adopt(comp, vst3.BusDirectionOutput, layout.Outputs)
	})
	return layout, err
}

func activateAudio(comp vst3.Plugin, dir vst3.BusDirection) ([]int32, error) {
	n := comp.BusCount(vst3.MediaTypeAudio, dir)
	channels := make([]int32, n)
	for idx := range n {
		info, err := comp.BusInfo(vst3.MediaTypeAudio, dir, idx)
		if err != nil {
			return nil, fmt.Errorf("bus %d info: %w", idx, err)
		}
		if info.BusType != vst3.BusTypeMain {
			continue
		}
		if err := comp.ActivateBus(vst3.MediaTypeAudio, dir, idx, true); err != nil {
			return nil, fmt.Errorf("activate bus %d: %w", idx, err)
		}
		channels[idx] = max(info.ChannelCount, 0)
	}
	return channels, nil
}

func arrangements(channels []int32) []vst3.SpeakerArrangement {
	out := make([]vst3.SpeakerArrangement, len(channels))
	for i, n := range channels {
		out[i] = vst3.ArrangementForChannels(n)
	}
	return out
}

// adopt replaces the proposed channel counts of active buses with the
// plugin's current arrangements.
func adopt(comp vst3.Plugin, dir vst3.BusDirection, channels []int32) error {
	for idx, n := range channels {
		if n == 0 {
			continue
		}
		arr, err := comp.BusArrangement(dir, int32(idx))
		if err != nil {
			return fmt.Errorf("bus %d arrangement: %w", idx, err)
		}
		channels[idx] = arr.ChannelCount()
	}
	return nil
}

// buildRegistry enumerates the plugin's parameters in index order. Ranges
// are the plain values at the normalized ends.
func buildRegistry(comp vst3.Plugin) (*registry.Registry, error) {
	b := registry.NewBuilder()
	err := guard(func() error {
		n := comp.ParameterCount()
		for idx := range n {
			info, err := comp.ParameterInfo(idx)
			if err != nil {
				return fmt.Errorf("parameter %d info: %w", idx, err)
			}
			lo := comp.NormalizedToPlain(info.ID, 0)
			hi := comp.NormalizedToPlain(info.ID, 1)
			if lo > hi {
				lo, hi = hi, lo
			}
			err = b.Add(registry.Descriptor{
				ID:        int32(info.ID),
				Name:      info.Title,
				ShortName: info.ShortTitle,
				Units:     info.Units,
				Min:       lo,
				Max:       hi,
				Default:   comp.NormalizedToPlain(info.ID, info.DefaultValue),
				StepCount: info.StepCount,
				Flags:     info.Flags,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b.Seal(), nil
}
