package plugin

import (
	"strings"

	"github.com/justyntemme/vst3host/pkg/hosterr"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

// Info contains plugin metadata
type Info struct {
	ID       string // Unique plugin identifier (e.g., "com.example.myplugin")
	Name     string // Display name
	Version  string // Semantic version (e.g., "1.0.0")
	Vendor   string // Company/developer name
	Category string // Sub-categories, e.g. "Fx" or "Instrument|Synth"
	URL      string
	Email    string
}

// UID derives the class id from the string ID. The same ID always yields the
// same UID.
func (i Info) UID() vst3.UID {
	return vst3.UIDFromString(i.ID)
}

// Validate checks the fields a factory needs.
func (i Info) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return hosterr.InvalidArgument("id", "Plugin id is empty")
	}
	if strings.TrimSpace(i.Name) == "" {
		return hosterr.InvalidArgument("name", "Plugin name is empty").WithContext("id", i.ID)
	}
	return nil
}

// ClassInfo describes the plugin as a factory class.
func (i Info) ClassInfo() vst3.ClassInfo {
	category := i.Category
	if category == "" {
		category = vst3.SubCategoryFx
	}
	return vst3.ClassInfo{
		CID:           i.UID(),
		Category:      vst3.CategoryAudioEffect,
		Name:          i.Name,
		Vendor:        i.Vendor,
		Version:       i.Version,
		SubCategories: category,
		SDKVersion:    vst3.SDKVersion,
	}
}
