package elfload

import "github.com/pkg/errors"

// LoadResult describes one completed segment materialization.
type LoadResult struct {
	// Entry is the (possibly relocated) entry-point address.
	Entry uint32

	// Relocated is true when the image is not a pre-linked executable and
	// the base address was folded into entry and segment placement.
	Relocated bool

	// SegmentAddrs holds the target address of each program-header entry,
	// indexed by segment number. Non-LOAD entries stay 0.
	SegmentAddrs []uint32
}

// LoadInto copies the file-resident bytes of every LOAD segment into mem, in
// header-array order, and computes the entry point. A pre-linked executable
// (ET_EXEC) carries absolute addresses, so base contributes nothing to it;
// any other type is placed and entered at base-relative addresses.
//
// Overlapping segments are copied as declared, without detection; the
// memsz-filesz tail of a segment is left untouched (the target space is
// expected to start out zeroed). A segment whose file range leaves the image,
// or whose write is rejected by the target, aborts the load: a partial image
// is unsafe to hand to execution.
func (r *Reader) LoadInto(mem Memory, base uint32) (LoadResult, error) {
	res := LoadResult{
		Entry:        r.hdr.Entry,
		Relocated:    r.hdr.Type != ETExec,
		SegmentAddrs: make([]uint32, len(r.progs)),
	}

	loadBase := uint32(0)
	if res.Relocated {
		res.Entry += base
		loadBase = base
	}

	for i := range r.progs {
		p := &r.progs[i]
		if p.Type != PTLoad {
			continue
		}
		src, err := r.SegmentData(i)
		if err != nil {
			return LoadResult{}, err
		}
		addr := loadBase + p.Vaddr
		if err := mem.WriteBytes(addr, src); err != nil {
			return LoadResult{}, errors.Wrapf(err, "segment %d: write %d bytes at %#x", i, len(src), addr)
		}
		res.SegmentAddrs[i] = addr
	}
	r.relocated = res.Relocated
	return res, nil
}
