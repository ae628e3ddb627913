// Package vst3 declares the module contract between the host and a plugin
// module: the exported entry points, the class factory, and the component
// interfaces a plugin implements.
//
// The contract mirrors the VST3 model (factory, component, audio processor,
// edit controller, plug view) in plain Go types so that modules can be built
// with -buildmode=plugin or registered in-process.
package vst3

import (
	"github.com/google/uuid"
)

// Exported symbol names every module must provide.
const (
	SymbolModuleEntry      = "ModuleEntry"
	SymbolModuleExit       = "ModuleExit"
	SymbolGetPluginFactory = "GetPluginFactory"
)

// Entry point signatures bound by the loader.
type (
	ModuleEntryFunc      = func(handle uintptr) bool
	ModuleExitFunc       = func() bool
	GetPluginFactoryFunc = func() PluginFactory
)

// ParamID identifies a parameter within one component.
type ParamID = uint32

// UID is a 16-byte class identifier.
type UID [16]byte

// uidNamespace scopes name-based class ids to this host's plugins.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceDNS, []byte("vst3host.justyntemme.github.com"))

// UIDFromString derives a stable class id from a reverse-DNS plugin id.
func UIDFromString(id string) UID {
	return UID(uuid.NewSHA1(uidNamespace, []byte(id)))
}

// ParseUID parses the canonical textual form used in moduleinfo.json.
// Both dashed UUIDs and 32 hex digit strings are accepted.
func ParseUID(s string) (UID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return UID{}, err
	}
	return UID(u), nil
}

// String returns the 32 upper-case hex digits VST3 tooling prints.
func (u UID) String() string {
	const hex = "0123456789ABCDEF"
	buf := make([]byte, 32)
	for i, b := range u {
		buf[i*2] = hex[b>>4]
		buf[i*2+1] = hex[b&0x0f]
	}
	return string(buf)
}

// IsZero reports whether u is the zero id.
func (u UID) IsZero() bool {
	return u == UID{}
}

// Class categories
const (
	CategoryAudioEffect    = "Audio Module Class"
	CategoryComponentCtrl  = "Component Controller Class"
	SubCategoryFx          = "Fx"
	SubCategoryInstrument  = "Instrument"
	SubCategorySynth       = "Instrument|Synth"
	PlatformX11EmbedWindow = "X11EmbedWindowID"
)

// SDKVersion is reported by factories built on this package.
const SDKVersion = "VST 3.7.9"

// Error is a result code a plugin returns from a contract method.
type Error int

// Error codes
const (
	ErrNotImplemented  Error = -1
	ErrInvalidArgument Error = -2
	ErrNoClass         Error = -3
	ErrNotInitialized  Error = -4
	ErrFalse           Error = -5
)

func (e Error) Error() string {
	switch e {
	case ErrNotImplemented:
		return "not implemented"
	case ErrInvalidArgument:
		return "invalid argument"
	case ErrNoClass:
		return "no such class"
	case ErrNotInitialized:
		return "not initialized"
	case ErrFalse:
		return "false"
	default:
		return "unknown error"
	}
}
