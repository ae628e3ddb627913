// Package preset stores a plugin instance's state in a zstd-compressed
// container: the class id it belongs to, the host parameter values and the
// component's own state blob.
package preset

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/justyntemme/vst3host/pkg/hosterr"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

// Extension is the conventional preset file suffix.
const Extension = ".v3hp"

const (
	magic   = "V3HP"
	version = uint16(1)

	// maxSection bounds a single section so a corrupt length cannot
	// trigger a huge allocation.
	maxSection = 64 << 20
)

// Preset is the decoded container.
type Preset struct {
	ClassID   vst3.UID
	Params    []byte // registry.Registry binary state
	Component []byte // vst3.Component GetState output
}

// Write encodes p to w.
func Write(w io.Writer, p *Preset) error {
	if p == nil {
		return hosterr.InvalidArgument("preset", "Preset is nil")
	}
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return hosterr.StateError("Failed to create preset encoder", err)
	}

	bw := bufio.NewWriter(enc)
	_, _ = bw.WriteString(magic)
	_ = binary.Write(bw, binary.LittleEndian, version)
	_, _ = bw.Write(p.ClassID[:])
	writeSection(bw, p.Params)
	writeSection(bw, p.Component)

	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return hosterr.StateError("Failed to write preset", err)
	}
	if err := enc.Close(); err != nil {
		return hosterr.StateError("Failed to write preset", err)
	}
	return nil
}

func writeSection(w *bufio.Writer, data []byte) {
	_ = binary.Write(w, binary.LittleEndian, uint32(len(data)))
	_, _ = w.Write(data)
}

// Read decodes a preset written by Write.
func Read(r io.Reader) (*Preset, error) {
	dec, err := zstd.NewReader(r, zstd.WithDecoderMaxMemory(4*maxSection))
	if err != nil {
		return nil, hosterr.StateError("Failed to create preset decoder", err)
	}
	defer dec.Close()

	var head [4]byte
	if _, err := io.ReadFull(dec, head[:]); err != nil {
		return nil, hosterr.StateError("Preset header is truncated", err)
	}
	if string(head[:]) != magic {
		return nil, hosterr.StateError("Not a preset file", nil)
	}

	var v uint16
	if err := binary.Read(dec, binary.LittleEndian, &v); err != nil {
		return nil, hosterr.StateError("Preset header is truncated", err)
	}
	if v != version {
		return nil, hosterr.StateError("Unsupported preset version", nil).WithContext("version", v)
	}

	p := &Preset{}
	if _, err := io.ReadFull(dec, p.ClassID[:]); err != nil {
		return nil, hosterr.StateError("Preset header is truncated", err)
	}
	if p.Params, err = readSection(dec); err != nil {
		return nil, err
	}
	if p.Component, err = readSection(dec); err != nil {
		return nil, err
	}
	return p, nil
}

func readSection(r io.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, hosterr.StateError("Preset section is truncated", err)
	}
	if n > maxSection {
		return nil, hosterr.StateError("Preset section is too large", nil).WithContext("size", n)
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, hosterr.StateError("Preset section is truncated", err)
	}
	return data, nil
}

// Save writes p to path, replacing any existing file.
func Save(path string, p *Preset) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return hosterr.StateError("Failed to create preset file", err).WithContext("path", path)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return Write(f, p)
}

// Load reads a preset file.
func Load(path string) (*Preset, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, hosterr.NotFound(path)
		}
		return nil, hosterr.StateError("Failed to open preset file", err).WithContext("path", path)
	}
	defer f.Close()
	return Read(f)
}
