// Package symtab keeps the symbols extracted from a loaded image and
// resolves addresses back to names for tracing.
package symtab

import (
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ianlancetaylor/demangle"
)

// Symbol is one named, addressed, sized unit recorded from an image.
type Symbol struct {
	Addr uint32
	Name string
	Size uint32
	Type uint8
}

// Table implements elfload.SymbolRegistry: Add appends, Resolve answers
// address lookups over the covering ranges. Like the reader it feeds from,
// a Table is not safe for concurrent use.
type Table struct {
	syms   []Symbol
	sorted bool

	demangle bool
	cache    *lru.Cache[uint32, string]
}

type Option func(*Table)

// WithDemangle makes Resolve filter names through the C++/Rust demangler.
func WithDemangle() Option {
	return func(t *Table) { t.demangle = true }
}

const resolveCacheSize = 512

func New(opts ...Option) *Table {
	t := &Table{}
	for _, opt := range opts {
		opt(t)
	}
	// Size is fixed so construction cannot fail.
	t.cache, _ = lru.New[uint32, string](resolveCacheSize)
	return t
}

func (t *Table) Add(addr uint32, name string, size uint32, typ uint8) {
	t.syms = append(t.syms, Symbol{Addr: addr, Name: name, Size: size, Type: typ})
	t.sorted = false
	t.cache.Purge()
}

func (t *Table) Len() int { return len(t.syms) }

// Symbols returns the table ordered by address (name as tiebreak).
func (t *Table) Symbols() []Symbol {
	t.sort()
	out := make([]Symbol, len(t.syms))
	copy(out, t.syms)
	return out
}

// Resolve returns the name of the symbol whose [Addr, Addr+Size) range
// covers addr, or "" when no symbol does. Ranges may nest (function-local
// labels, ifunc aliases); the covering symbol that starts closest to addr
// wins, so a nested symbol shadows its enclosing one only inside its own
// range.
func (t *Table) Resolve(addr uint32) string {
	if len(t.syms) == 0 {
		return ""
	}
	if name, ok := t.cache.Get(addr); ok {
		return name
	}
	t.sort()
	i := sort.Search(len(t.syms), func(i int) bool { return t.syms[i].Addr > addr })
	name := ""
	for j := i - 1; j >= 0; j-- {
		s := &t.syms[j]
		if addr < s.Addr+s.Size {
			name = s.Name
			break
		}
	}
	if name != "" && t.demangle {
		name = demangle.Filter(name)
	}
	t.cache.Add(addr, name)
	return name
}

func (t *Table) sort() {
	if t.sorted {
		return
	}
	sort.Slice(t.syms, func(i, j int) bool {
		if t.syms[i].Addr == t.syms[j].Addr {
			return t.syms[i].Name < t.syms[j].Name
		}
		return t.syms[i].Addr < t.syms[j].Addr
	})
	t.sorted = true
}
