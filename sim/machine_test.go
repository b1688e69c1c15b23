package sim

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTestELF assembles a minimal ELF32 EXEC image: one LOAD segment with
// the given code at vaddr/entry, plus a .symtab naming the entry "_start".
func buildTestELF(t *testing.T, vaddr uint32, code []byte) string {
	t.Helper()

	le := binary.LittleEndian
	const (
		ehSize = 52
		phSize = 32
		shSize = 40
	)

	strtab := []byte("\x00_start\x00")
	symtab := make([]byte, 32) // null symbol + _start
	le.PutUint32(symtab[16:], 1)                 // st_name -> "_start"
	le.PutUint32(symtab[20:], vaddr)             // st_value
	le.PutUint32(symtab[24:], uint32(len(code))) // st_size
	symtab[28] = 0x12                            // GLOBAL FUNC

	shstrtab := []byte("\x00.strtab\x00.symtab\x00.shstrtab\x00")

	phoff := uint32(ehSize)
	shoff := phoff + phSize
	dataOff := shoff + 4*shSize

	img := make([]byte, dataOff)
	copy(img, "\x7fELF")
	img[4] = 1 // ELFCLASS32
	img[5] = 1 // little-endian
	le.PutUint16(img[16:], 2)   // ET_EXEC
	le.PutUint16(img[18:], 243) // EM_RISCV
	le.PutUint32(img[24:], vaddr)
	le.PutUint32(img[28:], phoff)
	le.PutUint32(img[32:], shoff)
	le.PutUint16(img[42:], phSize)
	le.PutUint16(img[44:], 1)
	le.PutUint16(img[46:], shSize)
	le.PutUint16(img[48:], 4)
	le.PutUint16(img[50:], 3) // .shstrtab index

	cur := dataOff
	appendBlob := func(b []byte) uint32 {
		off := cur
		img = append(img, b...)
		cur += uint32(len(b))
		return off
	}

	codeOff := appendBlob(code)
	ph := img[phoff:]
	le.PutUint32(ph[0:], 1) // PT_LOAD
	le.PutUint32(ph[4:], codeOff)
	le.PutUint32(ph[8:], vaddr)
	le.PutUint32(ph[16:], uint32(len(code)))
	le.PutUint32(ph[20:], uint32(len(code)))

	writeSec := func(i int, nameOff, typ, off, size, link uint32) {
		sh := img[shoff+uint32(i)*shSize:]
		le.PutUint32(sh[0:], nameOff)
		le.PutUint32(sh[4:], typ)
		le.PutUint32(sh[16:], off)
		le.PutUint32(sh[20:], size)
		le.PutUint32(sh[24:], link)
	}
	strOff := appendBlob(strtab)
	symOff := appendBlob(symtab)
	shstrOff := appendBlob(shstrtab)
	writeSec(1, 1, 3, strOff, uint32(len(strtab)), 0) // .strtab
	writeSec(2, 9, 2, symOff, uint32(len(symtab)), 1) // .symtab -> .strtab
	writeSec(3, 17, 3, shstrOff, uint32(len(shstrtab)), 0)

	path := filepath.Join(t.TempDir(), "prog.elf")
	require.NoError(t, os.WriteFile(path, img, 0o644))
	return path
}

func TestMachineLoadELFAndRun(t *testing.T) {
	// LUI x1, 0x10000 ; ADDI x2, x0, 'A' ; SB x2, 0(x1) ; ECALL
	code := codeBytes(
		encU(0x37, 1, 0x10000),
		encI(0x13, 2, 0x0, 0, int32('A')),
		encS(0x23, 0x0, 1, 2, 0),
		instECALL,
	)
	path := buildTestELF(t, 0x1000, code)

	out := new(bytes.Buffer)
	m := NewMachine(Config{MemBytes: 1 << 20}, nil, out)
	require.NoError(t, m.LoadELF(path))

	assert.Equal(t, uint32(0x1000), m.CPU().PC, "execution transferred to the entry point")
	assert.Equal(t, 1, m.Symbols().Len())
	assert.Equal(t, "_start", m.Symbols().Resolve(0x1000))

	m.Run(100)
	assert.Equal(t, "A", out.String())
	assert.Equal(t, "ecall", m.CPU().HaltReason())
}

func TestMachineLoadsOnlyOnce(t *testing.T) {
	path := buildTestELF(t, 0x1000, codeBytes(instECALL))

	m := NewMachine(Config{MemBytes: 1 << 20}, nil, nil)
	require.NoError(t, m.LoadELF(path))
	assert.ErrorIs(t, m.LoadELF(path), ErrAlreadyLoaded)
	assert.ErrorIs(t, m.LoadBin(path), ErrAlreadyLoaded)
}

func TestMachineLoadELFMissingFile(t *testing.T) {
	m := NewMachine(Config{MemBytes: 1 << 20}, nil, nil)
	require.Error(t, m.LoadELF(filepath.Join(t.TempDir(), "nope.elf")))
}
