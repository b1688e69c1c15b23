package elfload

import (
	"encoding/binary"
	"testing"
)

// Synthetic ELF32 images for tests, laid out as header, program-header
// table, section-header table, then data blobs. A NULL section and a
// trailing .shstrtab are added automatically whenever sections are present.

type testSegment struct {
	typ   uint32
	vaddr uint32
	memsz uint32 // defaults to len(data)
	data  []byte
}

type testSection struct {
	name string
	typ  uint32
	data []byte
	size uint32 // NOBITS: declared size with no data
	link uint32
	off  uint32 // nonzero overrides the computed file offset
}

type imageBuilder struct {
	fileType FileType
	machine  MachineType
	entry    uint32
	flags    uint32
	bigEnd   bool
	segs     []testSegment
	secs     []testSection
}

func (b *imageBuilder) build(t *testing.T) []byte {
	t.Helper()

	var bo binary.ByteOrder = binary.LittleEndian
	encoding := byte(elfData1)
	if b.bigEnd {
		bo = binary.BigEndian
		encoding = elfData2
	}

	// Resolve the section list: NULL + user sections + .shstrtab.
	type rawSec struct {
		testSection
		nameOff uint32
	}
	var secs []rawSec
	var shnum, shstrndx int
	var shstrtab []byte
	if len(b.secs) > 0 {
		shstrtab = []byte{0}
		secs = append(secs, rawSec{testSection: testSection{typ: SHTNull}})
		for _, s := range b.secs {
			nameOff := uint32(len(shstrtab))
			shstrtab = append(shstrtab, []byte(s.name)...)
			shstrtab = append(shstrtab, 0)
			secs = append(secs, rawSec{testSection: s, nameOff: nameOff})
		}
		nameOff := uint32(len(shstrtab))
		shstrtab = append(shstrtab, []byte(".shstrtab")...)
		shstrtab = append(shstrtab, 0)
		secs = append(secs, rawSec{
			testSection: testSection{name: ".shstrtab", typ: SHTStrtab, data: shstrtab},
			nameOff:     nameOff,
		})
		shnum = len(secs)
		shstrndx = shnum - 1
	}

	phoff := uint32(headerSize)
	shoff := phoff + uint32(len(b.segs))*progHdrSize
	cur := shoff + uint32(shnum)*sectionHdrSize

	img := make([]byte, cur)

	// Header.
	copy(img, elfMagic[:])
	img[eiClass] = elfClass1
	img[eiData] = encoding
	bo.PutUint16(img[16:], uint16(b.fileType))
	bo.PutUint16(img[18:], uint16(b.machine))
	bo.PutUint32(img[20:], 1) // e_version
	bo.PutUint32(img[24:], b.entry)
	bo.PutUint32(img[28:], phoff)
	bo.PutUint32(img[32:], shoff)
	bo.PutUint32(img[36:], b.flags)
	bo.PutUint16(img[40:], headerSize)
	bo.PutUint16(img[42:], progHdrSize)
	bo.PutUint16(img[44:], uint16(len(b.segs)))
	bo.PutUint16(img[46:], sectionHdrSize)
	bo.PutUint16(img[48:], uint16(shnum))
	bo.PutUint16(img[50:], uint16(shstrndx))

	// Program headers, data appended in order.
	for i, s := range b.segs {
		off := cur
		cur += uint32(len(s.data))
		img = append(img, s.data...)
		memsz := s.memsz
		if memsz == 0 {
			memsz = uint32(len(s.data))
		}
		p := img[phoff+uint32(i)*progHdrSize:]
		bo.PutUint32(p[0:], s.typ)
		bo.PutUint32(p[4:], off)
		bo.PutUint32(p[8:], s.vaddr)
		bo.PutUint32(p[12:], s.vaddr)
		bo.PutUint32(p[16:], uint32(len(s.data)))
		bo.PutUint32(p[20:], memsz)
	}

	// Section headers.
	for i, s := range secs {
		off := s.off
		size := s.size
		if s.typ != SHTNobits && s.data != nil {
			off = cur
			size = uint32(len(s.data))
			cur += size
			img = append(img, s.data...)
		}
		sh := img[shoff+uint32(i)*sectionHdrSize:]
		bo.PutUint32(sh[0:], s.nameOff)
		bo.PutUint32(sh[4:], s.typ)
		bo.PutUint32(sh[16:], off)
		bo.PutUint32(sh[20:], size)
		bo.PutUint32(sh[24:], s.link)
	}

	return img
}

// symData encodes symbol-table entries back to back.
func symData(bo binary.ByteOrder, syms ...Sym) []byte {
	out := make([]byte, len(syms)*symSize)
	for i, s := range syms {
		b := out[i*symSize:]
		bo.PutUint32(b[0:], s.NameOff)
		bo.PutUint32(b[4:], s.Value)
		bo.PutUint32(b[8:], s.Size)
		b[12] = s.Info
		b[13] = s.Other
		bo.PutUint16(b[14:], s.Shndx)
	}
	return out
}

// strData builds a string table and returns it with each name's offset.
func strData(names ...string) ([]byte, []uint32) {
	tab := []byte{0}
	offs := make([]uint32, len(names))
	for i, n := range names {
		offs[i] = uint32(len(tab))
		tab = append(tab, []byte(n)...)
		tab = append(tab, 0)
	}
	return tab, offs
}
