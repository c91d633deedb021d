package pylldb

import "math/big"

// Kind tags the variant a Description decoded to: one of the supported
// primitive kinds, or Opaque for anything unrecognised.
type Kind string

const (
	KindInt       Kind = "int"
	KindBool      Kind = "bool"
	KindFloat     Kind = "float"
	KindNone      Kind = "NoneType"
	KindBytes     Kind = "bytes"
	KindString    Kind = "str"
	KindList      Kind = "list"
	KindTuple     Kind = "tuple"
	KindSet       Kind = "set"
	KindFrozenSet Kind = "frozenset"
	KindDict      Kind = "dict"
	KindOpaque    Kind = "opaque"
)

// Container tags a wrapper class recognised on top of a primitive Dict,
// List or str decode.
type Container string

const (
	ContainerNone        Container = ""
	ContainerOrderedDict Container = "OrderedDict"
	ContainerDefaultdict Container = "defaultdict"
	ContainerCounter     Container = "Counter"
	ContainerUserDict    Container = "UserDict"
	ContainerUserList    Container = "UserList"
	ContainerUserString  Container = "UserString"
)

// Decoded is the tagged sum over the supported CPython value kinds plus the
// Opaque fallback. Equality on a Decoded value is realized through the
// Description.Repr string: two descriptors decode to the same value iff
// their canonical reprs match, which is also how Dict keys are indexed
// (dictobj.go's canonicalDictKey/canonicalStringKey).
type Decoded struct {
	Kind Kind

	Int   *big.Int
	Bool  bool
	Float float64
	Bytes []byte
	Str   string
	Items []*Description // List, Tuple, Set, FrozenSet
	Dict  *Dict

	Container      Container
	DefaultFactory *Description // only set for Container == ContainerDefaultdict

	Opaque string // hex address, set when Kind == KindOpaque
}

// Description is the decoded view of a CPython object pointer: its raw
// address, the type name read through its type pointer, the decoded value,
// and its formatted repr.
type Description struct {
	Addr     Addr
	TypeName string
	Decoded  Decoded
	Repr     string
}

type decodeFunc func(proc Process, addr Addr) (Decoded, bool)

func decoders() map[string]decodeFunc {
	return map[string]decodeFunc{
		"int":       decodeIntKind,
		"bool":      decodeBoolKind,
		"float":     decodeFloatKind,
		"NoneType":  decodeNoneKind,
		"bytes":     decodeBytesKind,
		"str":       decodeStrKind,
		"list":      decodeListKind,
		"tuple":     decodeTupleKind,
		"set":       decodeSetKind,
		"frozenset": decodeFrozensetKind,
		"dict":      decodeDictKind,
	}
}

// Describe decodes the CPython object pointed to by addr. A failed or
// unrecognised decode yields the opaque fallback whose value is the
// hexadecimal address, never an error: the object introspector is designed
// to always produce a result.
func Describe(proc Process, addr Addr) *Description {
	typeName, ok := readTypeName(proc, addr)
	if !ok {
		return opaqueDescription(addr, "")
	}

	d := &Description{Addr: addr, TypeName: typeName}

	if fn, ok := decoders()[typeName]; ok {
		if dec, ok := fn(proc, addr); ok {
			d.Decoded = dec
			d.Repr = reprOf(d)
			return d
		}
		return opaqueDescription(addr, typeName)
	}

	if dec, ok := recognizeContainer(proc, addr, typeName); ok {
		d.Decoded = dec
		d.Repr = reprOf(d)
		return d
	}

	return opaqueDescription(addr, typeName)
}

func opaqueDescription(addr Addr, typeName string) *Description {
	d := &Description{
		Addr:     addr,
		TypeName: typeName,
		Decoded:  Decoded{Kind: KindOpaque, Opaque: addr.String()},
	}
	d.Repr = reprOf(d)
	return d
}

// readTypeName chases pointer->ob_type->tp_name, bounded to 256 bytes.
func readTypeName(proc Process, addr Addr) (string, bool) {
	objType, ok := proc.TypeByName("PyObject")
	if !ok {
		onceTypeLookupFailed.Printf("pylldb: PyObject type lookup failed, debug info for CPython may be missing")
		return "", false
	}
	base := NewValue(proc, addr, objType)
	typeObj := base.Child("ob_type").Deref()
	if !typeObj.Valid() {
		return "", false
	}
	nameAddr, ok := typeObj.Child("tp_name").Unsigned()
	if !ok {
		return "", false
	}
	return proc.ReadCString(Addr(nameAddr), 256)
}

func decodeIntKind(proc Process, addr Addr) (Decoded, bool) {
	t, ok := proc.TypeByName("PyLongObject")
	if !ok {
		return Decoded{}, false
	}
	n, ok := decodeInt(NewValue(proc, addr, t))
	if !ok {
		return Decoded{}, false
	}
	return Decoded{Kind: KindInt, Int: n}, true
}

func decodeBoolKind(proc Process, addr Addr) (Decoded, bool) {
	t, ok := proc.TypeByName("PyLongObject")
	if !ok {
		return Decoded{}, false
	}
	b, ok := decodeBool(NewValue(proc, addr, t))
	if !ok {
		return Decoded{}, false
	}
	return Decoded{Kind: KindBool, Bool: b}, true
}

func decodeFloatKind(proc Process, addr Addr) (Decoded, bool) {
	t, ok := proc.TypeByName("PyFloatObject")
	if !ok {
		return Decoded{}, false
	}
	f, ok := decodeFloat(NewValue(proc, addr, t))
	if !ok {
		return Decoded{}, false
	}
	return Decoded{Kind: KindFloat, Float: f}, true
}

func decodeNoneKind(proc Process, addr Addr) (Decoded, bool) {
	return Decoded{Kind: KindNone}, true
}

func decodeBytesKind(proc Process, addr Addr) (Decoded, bool) {
	t, ok := proc.TypeByName("PyBytesObject")
	if !ok {
		return Decoded{}, false
	}
	b, ok := decodeBytes(NewValue(proc, addr, t))
	if !ok {
		return Decoded{}, false
	}
	return Decoded{Kind: KindBytes, Bytes: b}, true
}

func decodeStrKind(proc Process, addr Addr) (Decoded, bool) {
	t, ok := proc.TypeByName("PyUnicodeObject")
	if !ok {
		return Decoded{}, false
	}
	s, ok := decodeString(NewValue(proc, addr, t))
	if !ok {
		return Decoded{}, false
	}
	return Decoded{Kind: KindString, Str: s}, true
}

func decodeListKind(proc Process, addr Addr) (Decoded, bool) {
	t, ok := proc.TypeByName("PyListObject")
	if !ok {
		return Decoded{}, false
	}
	items, ok := decodeSequence(NewValue(proc, addr, t))
	if !ok {
		return Decoded{}, false
	}
	return Decoded{Kind: KindList, Items: items}, true
}

func decodeTupleKind(proc Process, addr Addr) (Decoded, bool) {
	t, ok := proc.TypeByName("PyTupleObject")
	if !ok {
		return Decoded{}, false
	}
	items, ok := decodeSequence(NewValue(proc, addr, t))
	if !ok {
		return Decoded{}, false
	}
	return Decoded{Kind: KindTuple, Items: items}, true
}

func decodeSetKind(proc Process, addr Addr) (Decoded, bool) {
	t, ok := proc.TypeByName("PySetObject")
	if !ok {
		return Decoded{}, false
	}
	items, ok := decodeSet(NewValue(proc, addr, t))
	if !ok {
		return Decoded{}, false
	}
	return Decoded{Kind: KindSet, Items: items}, true
}

func decodeFrozensetKind(proc Process, addr Addr) (Decoded, bool) {
	t, ok := proc.TypeByName("PySetObject")
	if !ok {
		return Decoded{}, false
	}
	items, ok := decodeSet(NewValue(proc, addr, t))
	if !ok {
		return Decoded{}, false
	}
	return Decoded{Kind: KindFrozenSet, Items: items}, true
}

func decodeDictKind(proc Process, addr Addr) (Decoded, bool) {
	t, ok := proc.TypeByName("PyDictObject")
	if !ok {
		return Decoded{}, false
	}
	dict, ok := decodeDict(NewValue(proc, addr, t))
	if !ok {
		return Decoded{}, false
	}
	return Decoded{Kind: KindDict, Dict: dict}, true
}
