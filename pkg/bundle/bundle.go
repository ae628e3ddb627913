// Package bundle resolves VST3 bundle directories to the module binary for
// the running platform and reads the bundle's moduleinfo.json.
//
// A bundle looks like:
//
//	Gain.vst3/
//	  Contents/
//	    x86_64-linux/Gain.so
//	    Resources/moduleinfo.json
package bundle

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/justyntemme/vst3host/pkg/hosterr"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

// Extension is the bundle directory suffix.
const Extension = ".vst3"

// Bundle is a resolved module location.
type Bundle struct {
	// Path is the path that was resolved.
	Path string
	// Binary is the shared object to open.
	Binary string
	// Info is nil when the bundle has no moduleinfo.json.
	Info *ModuleInfo
}

// ModuleInfo mirrors the fields of moduleinfo.json the host uses.
type ModuleInfo struct {
	Name        string      `json:"Name"`
	Version     string      `json:"Version"`
	FactoryInfo FactoryInfo `json:"Factory Info"`
	Classes     []ClassInfo `json:"Classes"`
}

// FactoryInfo is the vendor block of moduleinfo.json.
type FactoryInfo struct {
	Vendor string `json:"Vendor"`
	URL    string `json:"URL"`
	Email  string `json:"E-Mail"`
}

// ClassInfo is one entry of the Classes array.
type ClassInfo struct {
	CID           string   `json:"CID"`
	Category      string   `json:"Category"`
	Name          string   `json:"Name"`
	Vendor        string   `json:"Vendor"`
	Version       string   `json:"Version"`
	SDKVersion    string   `json:"SDK Version"`
	SubCategories []string `json:"Sub Categories"`
}

// UID parses the class id.
func (c ClassInfo) UID() (vst3.UID, error) {
	return vst3.ParseUID(c.CID)
}

// AudioClass returns the first audio module class with a parseable CID.
func (m *ModuleInfo) AudioClass() (ClassInfo, vst3.UID, bool) {
	if m == nil {
		return ClassInfo{}, vst3.UID{}, false
	}
	for _, c := range m.Classes {
		if c.Category != vst3.CategoryAudioEffect {
			continue
		}
		if uid, err := c.UID(); err == nil {
			return c, uid, true
		}
	}
	return ClassInfo{}, vst3.UID{}, false
}

// ParseModuleInfo decodes moduleinfo.json.
func ParseModuleInfo(data []byte) (*ModuleInfo, error) {
	var info ModuleInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Marshal encodes the module info in the layout ParseModuleInfo reads.
func (m *ModuleInfo) Marshal() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// Arch returns the VST3 architecture name for the running process.
func Arch() string {
	switch runtime.GOARCH {
	case "amd64":
		return "x86_64"
	case "arm64":
		return "aarch64"
	case "386":
		return "i386"
	case "arm":
		return "armv7l"
	}
	return runtime.GOARCH
}

// PlatformDir returns the Contents sub-directory holding the binary,
// e.g. "x86_64-linux".
func PlatformDir() string {
	return Arch() + "-" + runtime.GOOS
}

// Resolve maps path to the binary to load. Plain files resolve to
// themselves. Missing paths give a NotFound error; a bundle without a binary
// for this platform or with an unreadable moduleinfo.json gives a LoadError.
func Resolve(path string) (*Bundle, error) {
	st, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, hosterr.NotFound(path)
		}
		return nil, hosterr.LoadError(path, err)
	}
	if !st.IsDir() {
		return &Bundle{Path: path, Binary: path}, nil
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	b := &Bundle{
		Path:   path,
		Binary: filepath.Join(path, "Contents", PlatformDir(), name+".so"),
	}
	if _, err := os.Stat(b.Binary); err != nil {
		return nil, hosterr.LoadError(path, fmt.Errorf("bundle has no %s binary: %w", PlatformDir(), err))
	}

	for _, candidate := range []string{
		filepath.Join(path, "Contents", "Resources", "moduleinfo.json"),
		filepath.Join(path, "Contents", "moduleinfo.json"),
	} {
		data, err := os.ReadFile(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, hosterr.LoadError(path, err)
		}
		info, err := ParseModuleInfo(data)
		if err != nil {
			return nil, hosterr.LoadError(path, fmt.Errorf("moduleinfo.json: %w", err))
		}
		b.Info = info
		break
	}
	return b, nil
}
