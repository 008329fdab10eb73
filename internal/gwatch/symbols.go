package gwatch

import "strings"

// ModuleLoadHint tells a non-invading resolver which module to load
// symbols for, instead of invading and eagerly indexing everything, or
// falling back to "the first enumerated module" (spec.md §4.1).
type ModuleLoadHint struct {
	ImageBase uint64
	ImagePath string
	ImageSize uint32 // passed to SymLoadModuleExW as-is; 0 lets DbgHelp determine the size
}

// resolverSizeValid implements the resolver-level size gate of spec.md
// §4.1: sizes in [4, 8] are accepted at this layer, even though only 4
// and 8 survive the tighter watcher-construction gate in §4.3.
func resolverSizeValid(size int) bool {
	return size >= 4 && size <= 8
}

// splitQualifiedName splits a "module!name" symbol reference into its
// module and bare-name parts, per spec.md §4.1 ("accepts bare names and
// module-qualified names of the form module!name"). If there is no '!',
// module is empty and name is the input unchanged.
func splitQualifiedName(symbol string) (module, name string) {
	if idx := strings.IndexByte(symbol, '!'); idx >= 0 {
		return symbol[:idx], symbol[idx+1:]
	}
	return "", symbol
}
