//go:build !((linux || darwin || freebsd) && cgo)

package loader

import (
	"errors"

	"github.com/justyntemme/vst3host/pkg/hosterr"
)

// NativeOpener is unavailable on this platform: every existing path fails
// with a LoadError.
type NativeOpener struct{}

// Open implements Opener.
func (NativeOpener) Open(path string) (Symbols, error) {
	if err := statModule(path); err != nil {
		return nil, err
	}
	return nil, hosterr.LoadError(path, errors.New("native modules are not supported on this platform"))
}
