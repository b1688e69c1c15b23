package sim

import (
	"os"

	"github.com/pkg/errors"
)

// RAM is a flat byte-addressable memory starting at address 0. The backing
// slice is allocated zeroed, which is also the BSS contract: a loader only
// writes the file-resident part of a segment and relies on the tail already
// being zero.
type RAM struct {
	data []byte
}

func NewRAM(size uint64) *RAM {
	return &RAM{data: make([]byte, size)}
}

func (r *RAM) Size() uint64 { return uint64(len(r.data)) }

func (r *RAM) Read8(addr uint32) (uint8, bool) {
	if uint64(addr) >= uint64(len(r.data)) {
		return 0, false
	}
	return r.data[addr], true
}

func (r *RAM) Write8(addr uint32, v uint8) bool {
	if uint64(addr) >= uint64(len(r.data)) {
		return false
	}
	r.data[addr] = v
	return true
}

// WriteBytes copies p into RAM at addr. The whole range must fit.
func (r *RAM) WriteBytes(addr uint32, p []byte) error {
	end := uint64(addr) + uint64(len(p))
	if end > uint64(len(r.data)) {
		return errors.Errorf("write [%#x,%#x) outside %d-byte RAM", addr, end, len(r.data))
	}
	copy(r.data[addr:end], p)
	return nil
}

// LoadFlat reads a raw binary file and places it at base.
func (r *RAM) LoadFlat(path string, base uint32) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return r.WriteBytes(base, b)
}
