package host

import (
	"fmt"
	"strings"

	"github.com/justyntemme/vst3host/pkg/hosterr"
	"github.com/justyntemme/vst3host/pkg/strcache"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

// describe fills the string cache from the class info.
func (i *Instance) describe(k strcache.Key) (string, error) {
	switch k {
	case strcache.KeyName:
		return i.class.Name, nil
	case strcache.KeyVendor:
		return i.vendor, nil
	case strcache.KeyVersion:
		return i.class.Version, nil
	case strcache.KeyInfo:
		var sb strings.Builder
		fmt.Fprintf(&sb, "%s by %s, version %s", i.class.Name, i.vendor, i.class.Version)
		switch {
		case i.instrument:
			sb.WriteString(", instrument")
		case i.effect:
			sb.WriteString(", effect")
		}
		if i.class.SDKVersion != "" {
			fmt.Fprintf(&sb, " (%s)", i.class.SDKVersion)
		}
		return sb.String(), nil
	}
	return "", hosterr.InvalidArgument("key", "Unknown string key")
}

func (i *Instance) cached(op string, k strcache.Key) (string, error) {
	if err := i.loaded(op); err != nil {
		return "", err
	}
	return i.strings.Get(k)
}

func (i *Instance) ref(op string, k strcache.Key) (strcache.Ref, error) {
	if err := i.loaded(op); err != nil {
		return strcache.Ref{}, err
	}
	return i.strings.Ref(k)
}

// Name returns the plugin class name.
func (i *Instance) Name() (string, error) { return i.cached("name", strcache.KeyName) }

// Vendor returns the class vendor, or the factory vendor when the class has
// none.
func (i *Instance) Vendor() (string, error) { return i.cached("vendor", strcache.KeyVendor) }

// Version returns the class version.
func (i *Instance) Version() (string, error) { return i.cached("version", strcache.KeyVersion) }

// PluginInfo returns a one-line description.
func (i *Instance) PluginInfo() (string, error) { return i.cached("pluginInfo", strcache.KeyInfo) }

// NameRef returns a cache handle for the name. The handle reports itself
// stale after ClearStringCache.
func (i *Instance) NameRef() (strcache.Ref, error) { return i.ref("name", strcache.KeyName) }

// VendorRef returns a cache handle for the vendor.
func (i *Instance) VendorRef() (strcache.Ref, error) { return i.ref("vendor", strcache.KeyVendor) }

// VersionRef returns a cache handle for the version.
func (i *Instance) VersionRef() (strcache.Ref, error) { return i.ref("version", strcache.KeyVersion) }

// PluginInfoRef returns a cache handle for the description.
func (i *Instance) PluginInfoRef() (strcache.Ref, error) { return i.ref("pluginInfo", strcache.KeyInfo) }

// ClearStringCache drops cached strings and invalidates outstanding handles.
// Before LoadPlugin there is nothing to drop.
func (i *Instance) ClearStringCache() error {
	switch i.State() {
	case StateReleased:
		return hosterr.Disposed("clearStringCache")
	case StateCreated:
		return nil
	}
	i.strings.Clear()
	return nil
}

// CreateEditor opens the plugin editor inside the window identified by
// windowHandle. It reports false when the plugin has no editor or refuses
// the window platform.
func (i *Instance) CreateEditor(windowHandle uintptr) (bool, error) {
	i.ctrl.Lock()
	defer i.ctrl.Unlock()
	if err := i.loaded("createEditor"); err != nil {
		return false, err
	}

	p, _ := i.comp.(vst3.EditorProvider)
	ok, err := i.editor.Open(p, windowHandle)
	if ok {
		i.log.Debug("editor opened", "window", windowHandle)
	}
	return ok, err
}

// CloseEditor removes the editor. Closing when none is open is a no-op.
func (i *Instance) CloseEditor() error {
	i.ctrl.Lock()
	defer i.ctrl.Unlock()
	if i.State() == StateReleased {
		return hosterr.Disposed("closeEditor")
	}
	return i.editor.Close()
}

// ResizeEditor forwards a new size to a resizable editor.
func (i *Instance) ResizeEditor(width, height int32) (bool, error) {
	i.ctrl.Lock()
	defer i.ctrl.Unlock()
	if i.State() == StateReleased {
		return false, hosterr.Disposed("resizeEditor")
	}
	return i.editor.Resize(width, height)
}

// EditorOpen reports whether an editor is attached.
func (i *Instance) EditorOpen() bool {
	return i.editor.IsOpen()
}
