package pylldb

// decodeSet implements the PySetObject/frozenset layout: a mask (capacity
// minus one) and a table of (key, hash) slots. A slot is occupied iff
// hash != -1 and not(hash == 0 and key == 0), the two reserved sentinels
// standing for "dummy" and "unused". Iteration emits occupied slots in
// table order.
func decodeSet(v Value) ([]*Description, bool) {
	mask, ok := v.Child("mask").Unsigned()
	if !ok {
		return nil, false
	}
	capacity := mask + 1

	table := v.Child("table").Elements()
	out := make([]*Description, 0, capacity)
	for i := uint64(0); i < capacity; i++ {
		entry := table.Index(int(i))
		keyAddr, ok := entry.Child("key").Unsigned()
		if !ok {
			return nil, false
		}
		hash, ok := entry.Child("hash").Signed()
		if !ok {
			return nil, false
		}
		if hash == -1 {
			continue
		}
		if hash == 0 && keyAddr == 0 {
			continue
		}
		out = append(out, Describe(v.proc, Addr(keyAddr)))
	}
	return out, true
}
