// Package elfload reads 32-bit ELF images and materializes their loadable
// segments into an emulated address space. It decodes every field with
// explicit bounds-checked reads; the raw buffer stays caller-owned and the
// reader only borrows views into it.
package elfload

import "encoding/binary"

// File types (e_type).
type FileType uint16

const (
	ETNone FileType = 0
	ETRel  FileType = 1
	ETExec FileType = 2
	ETDyn  FileType = 3
	ETCore FileType = 4

	// Processor-specific range; exposed as-is, never interpreted.
	ETLoProc FileType = 0xFF00
	ETHiProc FileType = 0xFFFF
)

func (t FileType) String() string {
	switch t {
	case ETNone:
		return "NONE"
	case ETRel:
		return "REL"
	case ETExec:
		return "EXEC"
	case ETDyn:
		return "DYN"
	case ETCore:
		return "CORE"
	}
	if t >= ETLoProc {
		return "PROC"
	}
	return "UNKNOWN"
}

// Machine/architecture (e_machine). Only the values the CLI cares about get
// names; anything else passes through numerically.
type MachineType uint16

const (
	EMNone  MachineType = 0
	EM386   MachineType = 3
	EMMIPS  MachineType = 8
	EMARM   MachineType = 40
	EMRISCV MachineType = 243
)

func (m MachineType) String() string {
	switch m {
	case EMNone:
		return "none"
	case EM386:
		return "i386"
	case EMMIPS:
		return "mips"
	case EMARM:
		return "arm"
	case EMRISCV:
		return "riscv"
	}
	return "unknown"
}

// Identification indexes and values.
const (
	eiClass   = 4
	eiData    = 5
	eiNIdent  = 16
	elfClass1 = 1 // 32-bit
	elfData1  = 1 // little-endian
	elfData2  = 2 // big-endian
)

var elfMagic = [4]byte{0x7F, 'E', 'L', 'F'}

// Section types.
const (
	SHTNull     uint32 = 0
	SHTProgbits uint32 = 1
	SHTSymtab   uint32 = 2
	SHTStrtab   uint32 = 3
	SHTNote     uint32 = 7
	SHTNobits   uint32 = 8
)

// Segment types.
const (
	PTNull uint32 = 0
	PTLoad uint32 = 1
	PTNote uint32 = 4
)

// Fixed ELF32 record sizes. The tables are decoded field by field at these
// strides, so a file lying about e_shentsize/e_phentsize cannot skew reads.
const (
	headerSize     = 52
	sectionHdrSize = 40
	progHdrSize    = 32
	symSize        = 16
)

// FileHeader is the decoded ELF32 file header.
type FileHeader struct {
	Type      FileType
	Machine   MachineType
	Version   uint32
	Entry     uint32
	Phoff     uint32
	Shoff     uint32
	Flags     uint32
	Phnum     int
	Shnum     int
	Shstrndx  int
	ByteOrder binary.ByteOrder
}

// SectionHeader is one decoded section-header table entry.
type SectionHeader struct {
	NameOff uint32
	Type    uint32
	Flags   uint32
	Addr    uint32
	Offset  uint32
	Size    uint32
	Link    uint32
	Info    uint32
	Align   uint32
	Entsize uint32
}

// ProgHeader is one decoded program-header table entry.
type ProgHeader struct {
	Type   uint32
	Offset uint32
	Vaddr  uint32
	Paddr  uint32
	Filesz uint32
	Memsz  uint32
	Flags  uint32
	Align  uint32
}

// Sym is one decoded symbol-table entry.
type Sym struct {
	NameOff uint32
	Value   uint32
	Size    uint32
	Info    uint8
	Other   uint8
	Shndx   uint16
}

// Type returns the symbol type encoded in the low nibble of st_info.
func (s *Sym) Type() uint8 { return s.Info & 0x0F }

func decodeHeader(b []byte, bo binary.ByteOrder) FileHeader {
	return FileHeader{
		Type:      FileType(bo.Uint16(b[16:])),
		Machine:   MachineType(bo.Uint16(b[18:])),
		Version:   bo.Uint32(b[20:]),
		Entry:     bo.Uint32(b[24:]),
		Phoff:     bo.Uint32(b[28:]),
		Shoff:     bo.Uint32(b[32:]),
		Flags:     bo.Uint32(b[36:]),
		Phnum:     int(bo.Uint16(b[44:])),
		Shnum:     int(bo.Uint16(b[48:])),
		Shstrndx:  int(bo.Uint16(b[50:])),
		ByteOrder: bo,
	}
}

func decodeSection(b []byte, bo binary.ByteOrder) SectionHeader {
	return SectionHeader{
		NameOff: bo.Uint32(b[0:]),
		Type:    bo.Uint32(b[4:]),
		Flags:   bo.Uint32(b[8:]),
		Addr:    bo.Uint32(b[12:]),
		Offset:  bo.Uint32(b[16:]),
		Size:    bo.Uint32(b[20:]),
		Link:    bo.Uint32(b[24:]),
		Info:    bo.Uint32(b[28:]),
		Align:   bo.Uint32(b[32:]),
		Entsize: bo.Uint32(b[36:]),
	}
}

func decodeProg(b []byte, bo binary.ByteOrder) ProgHeader {
	return ProgHeader{
		Type:   bo.Uint32(b[0:]),
		Offset: bo.Uint32(b[4:]),
		Vaddr:  bo.Uint32(b[8:]),
		Paddr:  bo.Uint32(b[12:]),
		Filesz: bo.Uint32(b[16:]),
		Memsz:  bo.Uint32(b[20:]),
		Flags:  bo.Uint32(b[24:]),
		Align:  bo.Uint32(b[28:]),
	}
}

func decodeSym(b []byte, bo binary.ByteOrder) Sym {
	return Sym{
		NameOff: bo.Uint32(b[0:]),
		Value:   bo.Uint32(b[4:]),
		Size:    bo.Uint32(b[8:]),
		Info:    b[12],
		Other:   b[13],
		Shndx:   bo.Uint16(b[14:]),
	}
}
