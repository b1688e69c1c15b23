package elfload

// LoadSymbols walks the .symtab section, if the image has one, and reports
// every nonzero-size entry to reg. Returns true iff at least one symbol was
// reported. A missing symbol table is normal for stripped binaries and is
// not an error.
//
// Names resolve through the string table named by the symtab's sh_link
// field. An invalid link, or a name offset outside the string table, drops
// the affected entries rather than reading past the section.
func (r *Reader) LoadSymbols(reg SymbolRegistry) bool {
	sec := r.SectionByName(".symtab")
	if sec < 0 {
		return false
	}
	symtab := r.SectionData(sec)
	if symtab == nil {
		return false
	}
	strtab := r.SectionData(int(r.sections[sec].Link))
	if strtab == nil {
		return false
	}

	found := false
	num := len(symtab) / symSize
	for i := 0; i < num; i++ {
		sym := decodeSym(symtab[i*symSize:], r.hdr.ByteOrder)
		if sym.Size == 0 {
			continue
		}
		name, ok := getString(strtab, sym.NameOff)
		if !ok {
			continue
		}
		reg.Add(sym.Value, name, sym.Size, sym.Type())
		found = true
	}
	return found
}
