package host

import (
	"math"

	"github.com/justyntemme/vst3host/pkg/hosterr"
)

// ParameterInfo is the host view of one parameter in plain units.
type ParameterInfo struct {
	ID      int32
	Name    string
	Units   string
	Min     float64
	Max     float64
	Default float64
	Current float64
}

// ParameterCount returns the number of parameters.
func (i *Instance) ParameterCount() (int32, error) {
	if err := i.loaded("parameterCount"); err != nil {
		return 0, err
	}
	return i.params.Count(), nil
}

// ParameterDescriptorAt returns the parameter at index in the plugin's
// enumeration order.
func (i *Instance) ParameterDescriptorAt(index int32) (ParameterInfo, error) {
	if err := i.loaded("parameterDescriptorAt"); err != nil {
		return ParameterInfo{}, err
	}
	d, err := i.params.DescriptorAt(index)
	if err != nil {
		return ParameterInfo{}, err
	}
	return ParameterInfo{
		ID:      d.ID,
		Name:    d.Name,
		Units:   d.Units,
		Min:     d.Min,
		Max:     d.Max,
		Default: d.Default,
		Current: i.params.Get(d.ID),
	}, nil
}

// GetAllParameters returns every parameter in enumeration order.
func (i *Instance) GetAllParameters() ([]ParameterInfo, error) {
	n, err := i.ParameterCount()
	if err != nil {
		return nil, err
	}
	out := make([]ParameterInfo, 0, n)
	for idx := range n {
		p, err := i.ParameterDescriptorAt(idx)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// SetParameter stores a plain value, clamped to the parameter's range, and
// schedules it for delivery with the next block. It is lock-free and may be
// called while another goroutine processes.
func (i *Instance) SetParameter(id int32, value float64) (bool, error) {
	if err := i.loaded("setParameter"); err != nil {
		return false, err
	}
	if math.IsNaN(value) {
		return false, hosterr.InvalidArgument("value", "Parameter value is NaN").WithContext("id", id)
	}
	if !i.params.Set(id, value) {
		return false, hosterr.InvalidArgument("id", "Unknown parameter id").WithContext("id", id)
	}
	return true, nil
}

// GetParameter returns the current plain value. Unknown ids read as 0.0;
// use LookupParameter to tell them apart.
func (i *Instance) GetParameter(id int32) (float64, error) {
	if err := i.loaded("getParameter"); err != nil {
		return 0, err
	}
	return i.params.Get(id), nil
}

// LookupParameter returns the current plain value and whether id exists.
func (i *Instance) LookupParameter(id int32) (float64, bool, error) {
	if err := i.loaded("lookupParameter"); err != nil {
		return 0, false, err
	}
	v, ok := i.params.Lookup(id)
	return v, ok, nil
}

// FormatParameter renders the current value with the plugin's formatter.
func (i *Instance) FormatParameter(id int32) (string, error) {
	if err := i.loaded("formatParameter"); err != nil {
		return "", err
	}
	v, ok := i.params.Lookup(id)
	if !ok {
		return "", hosterr.InvalidArgument("id", "Unknown parameter id").WithContext("id", id)
	}
	var s string
	err := guard(func() (err error) {
		pid := uint32(id)
		s, err = i.comp.ParamStringByValue(pid, i.comp.PlainToNormalized(pid, v))
		return err
	})
	if err != nil {
		return "", hosterr.InvalidArgument("id", "Plugin cannot format the parameter").WithContext("id", id)
	}
	return s, nil
}
