// Package catalog registers the plugins compiled into the host binary.
package catalog

import (
	"github.com/justyntemme/vst3host/pkg/framework/plugin"
	"github.com/justyntemme/vst3host/pkg/loader"
	"github.com/justyntemme/vst3host/pkg/plugins/gainmix"
	"github.com/justyntemme/vst3host/pkg/plugins/synth"
)

// Prefix marks module paths served from the catalog.
const Prefix = "builtin:"

// Module paths of the built-in plugins.
const (
	GainMix = Prefix + "gainmix"
	Synth   = Prefix + "synth"
)

var builtins = map[string]func() *plugin.Exports{
	GainMix: gainmix.Exports,
	Synth:   synth.Exports,
}

// Register adds every built-in plugin to o. Each call exports fresh module
// state, so separate openers never share entry counts.
func Register(o *loader.StaticOpener) {
	for name, exports := range builtins {
		o.Register(name, exports().Symbols())
	}
}

// Opener resolves built-in names first and falls back to native modules.
func Opener() loader.Opener {
	static := loader.NewStaticOpener()
	Register(static)
	return loader.Chain(static, loader.NativeOpener{})
}
