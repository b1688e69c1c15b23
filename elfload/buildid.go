package elfload

import (
	"encoding/hex"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// BuildID identifies a loaded image for logging and trace correlation.
type BuildID struct {
	ID  string
	Typ string
}

const ntGNUBuildID = 3

func (b BuildID) Empty() bool { return b.ID == "" }

func (b BuildID) String() string {
	if b.Empty() {
		return "none"
	}
	return fmt.Sprintf("%s/%s", b.Typ, b.ID)
}

// BuildID returns the image's GNU build ID when a well-formed
// .note.gnu.build-id section exists, and otherwise a xxh64 digest of the
// whole image. Identity is always derivable; this never fails.
func (r *Reader) BuildID() BuildID {
	if id, ok := r.gnuBuildID(); ok {
		return id
	}
	return BuildID{
		ID:  fmt.Sprintf("%016x", xxhash.Sum64(r.data)),
		Typ: "xxh64",
	}
}

// gnuBuildID parses the single note inside .note.gnu.build-id:
// namesz(4) descsz(4) type(4) name("GNU\0", padded) desc(the id bytes).
func (r *Reader) gnuBuildID() (BuildID, bool) {
	sec := r.SectionByName(".note.gnu.build-id")
	if sec < 0 {
		return BuildID{}, false
	}
	data := r.SectionData(sec)
	if len(data) < 16 {
		return BuildID{}, false
	}
	bo := r.hdr.ByteOrder
	namesz := bo.Uint32(data[0:])
	descsz := bo.Uint32(data[4:])
	typ := bo.Uint32(data[8:])
	if namesz != 4 || typ != ntGNUBuildID || string(data[12:16]) != "GNU\x00" {
		return BuildID{}, false
	}
	desc := data[16:]
	if uint64(descsz) > uint64(len(desc)) {
		return BuildID{}, false
	}
	return BuildID{ID: hex.EncodeToString(desc[:descsz]), Typ: "gnu"}, true
}
