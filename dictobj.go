package pylldb

import (
	"hash/maphash"

	"github.com/aristanetworks/gomap"
)

// DictEntry is one (key, value) binding of a decoded Dict, in the table
// order it was read from the debuggee.
type DictEntry struct {
	Key   *Description
	Value *Description
}

// Dict is the decoded representation of a PyDictObject. It keeps entries
// in the order they were read off the hash table, which for a combined
// dict is the insertion order CPython itself preserves, so repr renders in
// table order. Entries are additionally indexed by a canonical key string
// with github.com/aristanetworks/gomap so the instance-dictionary marker
// lookups used by the high-level container recognizer (containers.go)
// are O(1).
type Dict struct {
	entries []DictEntry
	byKey   *gomap.Map[string, *Description]
}

func newDict() *Dict {
	return &Dict{
		byKey: gomap.NewHint[string, *Description](0, stringsEqual, hashString),
	}
}

func stringsEqual(a, b string) bool { return a == b }

func hashString(seed maphash.Seed, s string) uint64 {
	var h maphash.Hash
	h.SetSeed(seed)
	h.WriteString(s)
	return h.Sum64()
}

func (d *Dict) append(key, value *Description) {
	d.entries = append(d.entries, DictEntry{Key: key, Value: value})
	d.byKey.Set(canonicalDictKey(key), value)
}

// Len returns the number of live entries.
func (d *Dict) Len() int { return len(d.entries) }

// Entries returns the bindings in table order.
func (d *Dict) Entries() []DictEntry { return d.entries }

// GetStr looks up the value bound to a plain string key, used to find
// marker attributes (default_factory, data, ...) in an instance
// dictionary. Ok is false if no such key is present.
func (d *Dict) GetStr(key string) (*Description, bool) {
	if d == nil || d.byKey == nil {
		return nil, false
	}
	return d.byKey.Get(canonicalStringKey(key))
}

func canonicalDictKey(d *Description) string {
	return string(d.Decoded.Kind) + ":" + d.Repr
}

func canonicalStringKey(s string) string {
	return string(KindString) + ":" + pyStringRepr(s)
}

// indexWidthForCapacity returns the byte width of one dk_indices slot for a
// hash table of the given capacity.
func indexWidthForCapacity(capacity uint64) int64 {
	switch {
	case capacity < 0xff:
		return 1
	case capacity < 0xffff:
		return 2
	case capacity < 0xfffffff:
		return 4
	default:
		return 8
	}
}

// decodeDict implements the PyDictObject layout, including
// both historical ma_keys layouts (packed dk_indices + entry array, and the
// older direct dk_entries array). Split dicts (ma_values != 0) are the
// documented unsupported variant and decode to an empty Dict.
func decodeDict(v Value) (*Dict, bool) {
	keys := v.Child("ma_keys").Deref()
	values := v.Child("ma_values")

	valuesAddr, ok := values.Unsigned()
	if !ok {
		return nil, false
	}
	if valuesAddr != 0 {
		// Split dict: values live in a separate array keyed by the
		// shared key table. Not decoded; reported as empty.
		onceSplitDictSkipped.Printf("pylldb: split dict at %s decoded as empty (unsupported)", v.LoadAddress())
		return newDict(), true
	}

	entryType, ok := v.proc.TypeByName("PyDictKeyEntry")
	if !ok {
		return nil, false
	}

	indices := keys.Child("dk_indices")
	if indices.Valid() {
		dkSize, ok := keys.Child("dk_size").Unsigned()
		if !ok {
			return nil, false
		}
		nentries, ok := keys.Child("dk_nentries").Unsigned()
		if !ok {
			return nil, false
		}
		shift := dkSize * uint64(indexWidthForCapacity(dkSize))
		entriesAddr := indices.LoadAddress() + Addr(shift)
		entries := NewValue(v.proc, entriesAddr, entryType.ArrayType(int(nentries)))
		return readDictEntries(v.proc, entries, nentries)
	}

	// CPython < 3.6: ma_keys exposes dk_entries directly, capacity-many
	// slots, not all of them live.
	dkSize, ok := keys.Child("dk_size").Unsigned()
	if !ok {
		return nil, false
	}
	entries := keys.Child("dk_entries").Elements()
	if !entries.Valid() {
		return nil, false
	}
	return readDictEntries(v.proc, entries, dkSize)
}

func readDictEntries(proc Process, entries Value, n uint64) (*Dict, bool) {
	d := newDict()
	for i := uint64(0); i < n; i++ {
		entry := entries.Index(int(i))
		kAddr, ok := entry.Child("me_key").Unsigned()
		if !ok {
			return nil, false
		}
		vAddr, ok := entry.Child("me_value").Unsigned()
		if !ok {
			return nil, false
		}
		if kAddr == 0 || vAddr == 0 {
			continue
		}
		d.append(Describe(proc, Addr(kAddr)), Describe(proc, Addr(vAddr)))
	}
	return d, true
}
