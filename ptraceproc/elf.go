//go:build linux && amd64

package ptraceproc

import (
	"debug/elf"
	"sort"
)

// symbolTable is a sorted, address-ordered view of an ELF binary's
// function symbols, used to resolve a return address to the function name
// the frame-recovery engine's eval-loop precondition filter matches
// against (recover.go's evalFrameNames).
type symbolTable struct {
	addrs []uint64
	names []string
}

func loadSymbolTable(path string) (*symbolTable, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	syms, err := f.Symbols()
	if err != nil {
		return nil, err
	}

	st := &symbolTable{}
	for _, s := range syms {
		if s.Value == 0 || elf.ST_TYPE(s.Info) != elf.STT_FUNC {
			continue
		}
		st.addrs = append(st.addrs, s.Value)
		st.names = append(st.names, s.Name)
	}
	idx := make([]int, len(st.addrs))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool { return st.addrs[idx[i]] < st.addrs[idx[j]] })

	sortedAddrs := make([]uint64, len(idx))
	sortedNames := make([]string, len(idx))
	for i, j := range idx {
		sortedAddrs[i] = st.addrs[j]
		sortedNames[i] = st.names[j]
	}
	st.addrs, st.names = sortedAddrs, sortedNames
	return st, nil
}

// functionAt returns the name of the function symbol whose address is the
// greatest one not exceeding pc, the usual "symbol covers this return
// address" approximation absent any DWARF line-table cross-check.
func (st *symbolTable) functionAt(pc uint64) string {
	if st == nil || len(st.addrs) == 0 {
		return ""
	}
	i := sort.Search(len(st.addrs), func(i int) bool { return st.addrs[i] > pc })
	if i == 0 {
		return ""
	}
	return st.names[i-1]
}
