package pylldb

// DictLayout selects which of PyDictObject's two historical ma_keys
// representations the built-in layout table below describes.
type DictLayout int

const (
	// DictLayoutPacked is CPython >= 3.6: dk_indices plus a packed
	// (key, value) entry array sized by dk_nentries.
	DictLayoutPacked DictLayout = iota
	// DictLayoutDirect is the pre-3.6 layout: dk_entries directly,
	// capacity-many slots, not all live.
	DictLayoutDirect
)

// BuiltinTypes returns a compiled-in table of CPython struct layouts for a
// typical CPython 3.7-3.11, non-debug, x86-64 build, standing in for the
// debugger's live type system. It is consumed by
// the ptraceproc backend (attached to a real process, where these offsets
// must actually match the debuggee's libpython) and by the test fixtures
// (which lay out synthetic objects to match). A real LLDB session never calls
// this: its Process.TypeByName resolves types from the debuggee's own
// debug info via SBTarget.FindFirstType, so it is correct for whatever
// build is actually attached, not just the one described here.
func BuiltinTypes(dictLayout DictLayout) map[string]*Type {
	ssize := &Type{TypeName: "Py_ssize_t", ByteSize: 8}
	digit := &Type{TypeName: "digit", ByteSize: 4}
	charT := &Type{TypeName: "char", ByteSize: 1}
	doubleT := &Type{TypeName: "double", ByteSize: 8}
	uint32T := &Type{TypeName: "unsigned int", ByteSize: 4}

	object := &Type{
		TypeName: "PyObject",
		ByteSize: 16,
		Fields: []Field{
			{Name: "ob_refcnt", Offset: 0, Type: ssize},
			{Name: "ob_type", Offset: 8, Type: nil}, // patched below, self-referential
		},
	}
	typeObj := &Type{
		TypeName: "PyTypeObject",
		ByteSize: 872, // approximate; only tp_name/tp_dict are modeled
		Fields: []Field{
			{Name: "tp_name", Offset: 24, Type: charT.PointerType()},
			{Name: "tp_dict", Offset: 264, Type: object.PointerType()},
		},
	}
	object.Fields[1].Type = typeObj.PointerType()

	varObject := &Type{
		TypeName: "PyVarObject",
		ByteSize: 24,
		Fields: []Field{
			{Name: "ob_base", Offset: 0, Type: object},
			{Name: "ob_size", Offset: 16, Type: ssize},
		},
	}

	longObject := &Type{
		TypeName: "PyLongObject",
		ByteSize: 24,
		Fields: []Field{
			{Name: "ob_base", Offset: 0, Type: varObject},
			{Name: "ob_digit", Offset: 24, Type: digit.ArrayType(0)},
		},
	}

	floatObject := &Type{
		TypeName: "PyFloatObject",
		ByteSize: 24,
		Fields: []Field{
			{Name: "ob_base", Offset: 0, Type: object},
			{Name: "ob_fval", Offset: 16, Type: doubleT},
		},
	}

	bytesObject := &Type{
		TypeName: "PyBytesObject",
		ByteSize: 33,
		Fields: []Field{
			{Name: "ob_base", Offset: 0, Type: varObject},
			{Name: "ob_shash", Offset: 24, Type: ssize},
			{Name: "ob_sval", Offset: 32, Type: charT.ArrayType(0)},
		},
	}

	// PyASCIIObject's state word packs interned:2, kind:3, compact:1,
	// ascii:1, ready:1 (Include/cpython/unicodeobject.h), bit 0 = LSB.
	// Modeled as its own struct type so Child("state").Child("compact")
	// mirrors the nested GetChildMemberWithName calls a live LLDB SBType
	// would require for an anonymous bitfield member.
	stateWord := &Type{
		TypeName: "PyASCIIObject::state",
		ByteSize: 4,
		Fields: []Field{
			{Name: "interned", Offset: 0, Type: uint32T, BitOffset: 0, BitWidth: 2},
			{Name: "kind", Offset: 0, Type: uint32T, BitOffset: 2, BitWidth: 3},
			{Name: "compact", Offset: 0, Type: uint32T, BitOffset: 5, BitWidth: 1},
			{Name: "ascii", Offset: 0, Type: uint32T, BitOffset: 6, BitWidth: 1},
			{Name: "ready", Offset: 0, Type: uint32T, BitOffset: 7, BitWidth: 1},
		},
	}
	asciiObject := &Type{
		TypeName: "PyASCIIObject",
		ByteSize: 48,
		Fields: []Field{
			{Name: "ob_base", Offset: 0, Type: object},
			{Name: "length", Offset: 16, Type: ssize},
			{Name: "hash", Offset: 24, Type: ssize},
			{Name: "state", Offset: 32, Type: stateWord},
			{Name: "wstr", Offset: 40, Type: charT.PointerType()},
		},
	}
	// PyUnicodeObject's state/length live at the same offsets as
	// PyASCIIObject's (the common prefix of the nested unicode structs);
	// this table models them directly rather than through the nested-union
	// indirection.
	unicodeObject := &Type{
		TypeName: "PyUnicodeObject",
		ByteSize: 48,
		Fields:   asciiObject.Fields,
	}
	compactUnicodeObject := &Type{
		TypeName: "PyCompactUnicodeObject",
		ByteSize: 72,
		Fields: append(append([]Field{}, asciiObject.Fields...),
			Field{Name: "utf8_length", Offset: 48, Type: ssize},
			Field{Name: "utf8", Offset: 56, Type: charT.PointerType()},
			Field{Name: "wstr_length", Offset: 64, Type: ssize},
		),
	}

	objectPtrArray := object.PointerType().ArrayType(0)
	listObject := &Type{
		TypeName: "PyListObject",
		ByteSize: 40,
		Fields: []Field{
			{Name: "ob_base", Offset: 0, Type: varObject},
			{Name: "ob_item", Offset: 24, Type: objectPtrArray.PointerType()},
			{Name: "allocated", Offset: 32, Type: ssize},
		},
	}
	tupleObject := &Type{
		TypeName: "PyTupleObject",
		ByteSize: 24,
		Fields: []Field{
			{Name: "ob_base", Offset: 0, Type: varObject},
			{Name: "ob_item", Offset: 24, Type: objectPtrArray},
		},
	}

	setEntry := &Type{
		TypeName: "setentry",
		ByteSize: 16,
		Fields: []Field{
			{Name: "key", Offset: 0, Type: object.PointerType()},
			{Name: "hash", Offset: 8, Type: ssize},
		},
	}
	setObject := &Type{
		TypeName: "PySetObject",
		ByteSize: 48,
		Fields: []Field{
			{Name: "ob_base", Offset: 0, Type: object},
			{Name: "fill", Offset: 16, Type: ssize},
			{Name: "used", Offset: 24, Type: ssize},
			{Name: "mask", Offset: 32, Type: ssize},
			{Name: "table", Offset: 40, Type: setEntry.ArrayType(0).PointerType()},
		},
	}

	dictKeyEntry := &Type{
		TypeName: "PyDictKeyEntry",
		ByteSize: 24,
		Fields: []Field{
			{Name: "me_hash", Offset: 0, Type: ssize},
			{Name: "me_key", Offset: 8, Type: object.PointerType()},
			{Name: "me_value", Offset: 16, Type: object.PointerType()},
		},
	}

	var dictKeys *Type
	switch dictLayout {
	case DictLayoutDirect:
		dictKeys = &Type{
			TypeName: "PyDictKeysObject",
			ByteSize: 24,
			Fields: []Field{
				{Name: "dk_size", Offset: 8, Type: ssize},
				{Name: "dk_entries", Offset: 16, Type: dictKeyEntry.ArrayType(0).PointerType()},
			},
		}
	default:
		dictKeys = &Type{
			TypeName: "PyDictKeysObject",
			ByteSize: 40,
			Fields: []Field{
				{Name: "dk_refcnt", Offset: 0, Type: ssize},
				{Name: "dk_size", Offset: 8, Type: ssize},
				{Name: "dk_lookup", Offset: 16, Type: charT.PointerType()},
				{Name: "dk_usable", Offset: 24, Type: ssize},
				{Name: "dk_nentries", Offset: 32, Type: ssize},
				{Name: "dk_indices", Offset: 40, Type: charT.ArrayType(0)},
			},
		}
	}

	dictObject := &Type{
		TypeName: "PyDictObject",
		ByteSize: 48,
		Fields: []Field{
			{Name: "ob_base", Offset: 0, Type: object},
			{Name: "ma_used", Offset: 16, Type: ssize},
			{Name: "ma_version_tag", Offset: 24, Type: ssize},
			{Name: "ma_keys", Offset: 32, Type: dictKeys.PointerType()},
			{Name: "ma_values", Offset: 40, Type: object.PointerType().PointerType()},
		},
	}
	// ma_keys is a genuine pointer in CPython's memory layout; decodeDict
	// derefs it before reading dk_size/dk_entries/dk_indices.

	codeObject := &Type{
		TypeName: "PyCodeObject",
		ByteSize: 120,
		Fields: []Field{
			{Name: "ob_base", Offset: 0, Type: object},
			{Name: "co_filename", Offset: 96, Type: object.PointerType()},
			{Name: "co_name", Offset: 104, Type: object.PointerType()},
			{Name: "co_firstlineno", Offset: 56, Type: &Type{TypeName: "int", ByteSize: 4}},
			{Name: "co_lnotab", Offset: 112, Type: object.PointerType()},
		},
	}

	frameObject := &Type{
		TypeName: "PyFrameObject",
		ByteSize: 80,
		Fields: []Field{
			{Name: "ob_base", Offset: 0, Type: varObject},
			{Name: "f_back", Offset: 24, Type: object.PointerType()},
			{Name: "f_code", Offset: 32, Type: codeObject.PointerType()},
			{Name: "f_globals", Offset: 48, Type: object.PointerType()},
			{Name: "f_locals", Offset: 56, Type: object.PointerType()},
			{Name: "f_lasti", Offset: 72, Type: &Type{TypeName: "int", ByteSize: 4}},
		},
	}

	types := map[string]*Type{
		"PyObject":               object,
		"PyTypeObject":           typeObj,
		"PyVarObject":            varObject,
		"PyLongObject":           longObject,
		"PyFloatObject":          floatObject,
		"PyBytesObject":          bytesObject,
		"PyASCIIObject":          asciiObject,
		"PyCompactUnicodeObject": compactUnicodeObject,
		"PyUnicodeObject":        unicodeObject,
		"PyListObject":           listObject,
		"PyTupleObject":          tupleObject,
		"setentry":               setEntry,
		"PySetObject":            setObject,
		"PyDictObject":           dictObject,
		"PyDictKeysObject":       dictKeys,
		"PyDictKeyEntry":         dictKeyEntry,
		"PyCodeObject":           codeObject,
		"PyFrameObject":          frameObject,
		"digit":                  digit,
		"char":                   charT,
	}
	return types
}
