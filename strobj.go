package pylldb

import "unicode/utf16"

// stringKind mirrors PyUnicode_Kind: the width, in bytes, of each character
// in a compact string's inline payload.
type stringKind int

const (
	kindWChar  stringKind = 0
	kindLatin1 stringKind = 1
	kindUCS2   stringKind = 2
	kindUCS4   stringKind = 4
)

// decodeString implements the PyASCIIObject/PyCompactUnicodeObject layout.
// Non-compact or non-ready strings decode to the empty string, a documented
// limitation.
func decodeString(v Value) (string, bool) {
	state := v.Child("state")
	length, ok := v.Child("length").Unsigned()
	if !ok {
		return "", false
	}
	if length == 0 {
		return "", true
	}

	compact := stateFlag(state, "compact")
	ascii := stateFlag(state, "ascii")
	ready := stateFlag(state, "ready")
	kind := stringKind(stateField(state, "kind"))

	if !compact || !ready {
		return "", true
	}

	// The character payload is stored immediately after the object
	// header, at the header's own load address plus its size. Which
	// header depends on ascii-ness: an ascii compact string is exactly a
	// PyASCIIObject, a non-ascii compact string is the larger
	// PyCompactUnicodeObject (three more fields).
	payloadAddr := v.LoadAddress() + Addr(headerSize(v.proc, ascii))

	if ascii {
		b, ok := v.proc.ReadBytes(payloadAddr, int(length))
		if !ok {
			return "", false
		}
		return string(b), true
	}

	switch kind {
	case kindUCS2:
		b, ok := v.proc.ReadBytes(payloadAddr, int(length)*2)
		if !ok {
			return "", false
		}
		return decodeUTF16LE(b), true
	case kindUCS4:
		b, ok := v.proc.ReadBytes(payloadAddr, int(length)*4)
		if !ok {
			return "", false
		}
		return decodeUTF32LE(b), true
	case kindLatin1:
		// Kind-1 non-ascii compact strings decode as Latin-1: each
		// payload byte maps 1:1 to its code point.
		b, ok := v.proc.ReadBytes(payloadAddr, int(length))
		if !ok {
			return "", false
		}
		return decodeLatin1(b), true
	default:
		return "", true
	}
}

// headerSize returns sizeof(PyASCIIObject) or sizeof(PyCompactUnicodeObject)
// depending on ascii-ness, falling back to 0 if the type isn't known to the
// target (a degraded read, not a crash).
func headerSize(proc Process, ascii bool) int64 {
	name := "PyCompactUnicodeObject"
	if ascii {
		name = "PyASCIIObject"
	}
	t, ok := proc.TypeByName(name)
	if !ok {
		return 0
	}
	return t.Size()
}

func stateFlag(state Value, name string) bool {
	u, ok := state.Child(name).Unsigned()
	return ok && u != 0
}

func stateField(state Value, name string) uint64 {
	u, _ := state.Child(name).Unsigned()
	return u
}

func decodeUTF16LE(b []byte) string {
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = uint16(b[2*i]) | uint16(b[2*i+1])<<8
	}
	return string(utf16.Decode(units))
}

func decodeUTF32LE(b []byte) string {
	runes := make([]rune, len(b)/4)
	for i := range runes {
		runes[i] = rune(uint32(b[4*i]) | uint32(b[4*i+1])<<8 | uint32(b[4*i+2])<<16 | uint32(b[4*i+3])<<24)
	}
	return string(runes)
}

func decodeLatin1(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}
