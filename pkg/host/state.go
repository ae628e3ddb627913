package host

import (
	"bytes"
	"io"

	"github.com/justyntemme/vst3host/pkg/hosterr"
	"github.com/justyntemme/vst3host/pkg/preset"
)

// SaveState writes the parameter values and the component state as a
// preset.
func (i *Instance) SaveState(w io.Writer) error {
	i.ctrl.Lock()
	defer i.ctrl.Unlock()
	if err := i.loaded("saveState"); err != nil {
		return err
	}

	params, err := i.params.MarshalBinary()
	if err != nil {
		return hosterr.StateError("Failed to encode parameters", err)
	}
	var comp bytes.Buffer
	if err := guard(func() error { return i.comp.GetState(&comp) }); err != nil {
		return hosterr.StateError("Plugin failed to save its state", err)
	}
	return preset.Write(w, &preset.Preset{
		ClassID:   i.class.CID,
		Params:    params,
		Component: comp.Bytes(),
	})
}

// LoadState restores a preset written by SaveState for the same class.
// Nothing is applied unless the parameter blob decodes. Parameter values are
// delivered to the plugin with the next block.
func (i *Instance) LoadState(r io.Reader) error {
	i.ctrl.Lock()
	defer i.ctrl.Unlock()
	if err := i.loaded("loadState"); err != nil {
		return err
	}

	p, err := preset.Read(r)
	if err != nil {
		return err
	}
	if p.ClassID != i.class.CID {
		return hosterr.StateError("Preset belongs to a different plugin", nil).
			WithContext("preset", p.ClassID.String()).
			WithContext("class", i.class.CID.String())
	}
	snap, err := i.params.DecodeBinary(p.Params)
	if err != nil {
		return hosterr.StateError("Malformed parameter state", err)
	}
	if len(p.Component) > 0 {
		if err := guard(func() error { return i.comp.SetState(bytes.NewReader(p.Component)) }); err != nil {
			return hosterr.StateError("Plugin rejected its state", err)
		}
	}
	i.params.Restore(snap)
	i.log.Debug("state loaded", "bytes", len(p.Params)+len(p.Component))
	return nil
}
