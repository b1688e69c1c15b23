package elfload

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// SymbolRegistry receives symbols extracted from the image. Implementations
// must be callable synchronously from the constructing goroutine.
type SymbolRegistry interface {
	Add(addr uint32, name string, size uint32, typ uint8)
}

// Memory is the write capability of the target address space. WriteBytes
// copies p into the space starting at addr and reports out-of-range writes.
type Memory interface {
	WriteBytes(addr uint32, p []byte) error
}

// Reader interprets a 32-bit ELF image held in a caller-owned buffer. It is
// not safe for concurrent use, and the buffer must not be mutated while the
// reader is alive.
type Reader struct {
	data     []byte
	hdr      FileHeader
	sections []SectionHeader
	progs    []ProgHeader

	hasSymbols bool
	relocated  bool
}

type Option func(*options)

type options struct {
	registry SymbolRegistry
}

// WithSymbolRegistry makes construction extract symbols into reg before
// NewReader returns. Symbol availability does not depend on LoadInto.
func WithSymbolRegistry(reg SymbolRegistry) Option {
	return func(o *options) { o.registry = reg }
}

// NewReader validates the image's identification bytes and table ranges and
// decodes the section and program header tables. Construction fails eagerly:
// a returned reader is fully usable.
func NewReader(data []byte, opts ...Option) (*Reader, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if len(data) < eiNIdent {
		return nil, errors.Wrapf(ErrTruncated, "image is %d bytes", len(data))
	}
	if !bytes.Equal(data[:4], elfMagic[:]) {
		return nil, ErrBadMagic
	}
	if data[eiClass] != elfClass1 {
		return nil, errors.Wrapf(ErrUnsupportedClass, "EI_CLASS=%d", data[eiClass])
	}
	var bo binary.ByteOrder = binary.LittleEndian
	if data[eiData] == elfData2 {
		bo = binary.BigEndian
	}
	if len(data) < headerSize {
		return nil, errors.Wrapf(ErrTruncated, "image is %d bytes, header needs %d", len(data), headerSize)
	}

	r := &Reader{data: data, hdr: decodeHeader(data, bo)}

	progTab, err := r.table(r.hdr.Phoff, r.hdr.Phnum, progHdrSize, "program header")
	if err != nil {
		return nil, err
	}
	r.progs = make([]ProgHeader, r.hdr.Phnum)
	for i := range r.progs {
		r.progs[i] = decodeProg(progTab[i*progHdrSize:], bo)
	}

	secTab, err := r.table(r.hdr.Shoff, r.hdr.Shnum, sectionHdrSize, "section header")
	if err != nil {
		return nil, err
	}
	r.sections = make([]SectionHeader, r.hdr.Shnum)
	for i := range r.sections {
		r.sections[i] = decodeSection(secTab[i*sectionHdrSize:], bo)
	}

	if o.registry != nil {
		r.hasSymbols = r.LoadSymbols(o.registry)
	}
	return r, nil
}

// table bounds-checks one header table and returns its raw bytes.
func (r *Reader) table(off uint32, num, entSize int, what string) ([]byte, error) {
	size := uint64(num) * uint64(entSize)
	end := uint64(off) + size
	if end > uint64(len(r.data)) {
		return nil, errors.Wrapf(ErrTruncated, "%s table [%#x,%#x) outside %d-byte image", what, off, end, len(r.data))
	}
	return r.data[off : uint64(off)+size], nil
}

func (r *Reader) Type() FileType { return r.hdr.Type }

func (r *Reader) Machine() MachineType { return r.hdr.Machine }

func (r *Reader) Flags() uint32 { return r.hdr.Flags }

func (r *Reader) Entry() uint32 { return r.hdr.Entry }

func (r *Reader) NumSections() int { return len(r.sections) }

func (r *Reader) NumSegments() int { return len(r.progs) }

// HasSymbols reports whether the construction-time symbol pass found any.
func (r *Reader) HasSymbols() bool { return r.hasSymbols }

// DidRelocate reports whether the last LoadInto applied a relocation base.
func (r *Reader) DidRelocate() bool { return r.relocated }

// Section returns the decoded header at index i, or nil when out of range.
func (r *Reader) Section(i int) *SectionHeader {
	if i < 0 || i >= len(r.sections) {
		return nil
	}
	return &r.sections[i]
}

// Segment returns the decoded program header at index i, or nil when out of
// range.
func (r *Reader) Segment(i int) *ProgHeader {
	if i < 0 || i >= len(r.progs) {
		return nil
	}
	return &r.progs[i]
}

// SectionData returns the file-resident bytes of section i, or nil for an
// out-of-range index, a NOBITS section (its size is a memory reservation,
// not file data), or a range that leaves the image.
func (r *Reader) SectionData(i int) []byte {
	s := r.Section(i)
	if s == nil || s.Type == SHTNobits {
		return nil
	}
	end := uint64(s.Offset) + uint64(s.Size)
	if end > uint64(len(r.data)) {
		return nil
	}
	return r.data[s.Offset:end]
}

// SegmentData returns the file-resident bytes of segment i, or an error when
// the declared range leaves the image.
func (r *Reader) SegmentData(i int) ([]byte, error) {
	p := r.Segment(i)
	if p == nil {
		return nil, errors.Errorf("segment %d out of range", i)
	}
	end := uint64(p.Offset) + uint64(p.Filesz)
	if end > uint64(len(r.data)) {
		return nil, errors.Wrapf(ErrTruncated, "segment %d file range [%#x,%#x) outside %d-byte image", i, p.Offset, end, len(r.data))
	}
	return r.data[p.Offset:end], nil
}

// SectionName resolves section i's name through the string table named by
// e_shstrndx. NULL sections and unresolvable names yield "".
func (r *Reader) SectionName(i int) string {
	s := r.Section(i)
	if s == nil || s.Type == SHTNull {
		return ""
	}
	strtab := r.SectionData(r.hdr.Shstrndx)
	if strtab == nil {
		return ""
	}
	name, ok := getString(strtab, s.NameOff)
	if !ok {
		return ""
	}
	return name
}

// SectionByName scans sections from start (default 0) and returns the index
// of the first whose resolved name equals name, or -1.
func (r *Reader) SectionByName(name string, start ...int) int {
	first := 0
	if len(start) > 0 {
		first = start[0]
	}
	for i := first; i < len(r.sections); i++ {
		if sn := r.SectionName(i); sn != "" && sn == name {
			return i
		}
	}
	return -1
}

// IsCodeSection reports whether section i holds program-defined contents.
func (r *Reader) IsCodeSection(i int) bool {
	s := r.Section(i)
	return s != nil && s.Type == SHTProgbits
}

// SectionSize returns sh_size for section i, 0 when out of range.
func (r *Reader) SectionSize(i int) uint32 {
	s := r.Section(i)
	if s == nil {
		return 0
	}
	return s.Size
}

// getString extracts the NUL-terminated string at off inside a string table.
func getString(tab []byte, off uint32) (string, bool) {
	if uint64(off) >= uint64(len(tab)) {
		return "", false
	}
	end := bytes.IndexByte(tab[off:], 0)
	if end < 0 {
		return "", false
	}
	return string(tab[off : int(off)+end]), true
}
