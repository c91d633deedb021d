package pylldb

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// reprOf renders a Description the way the real Python value would repr().
func reprOf(d *Description) string {
	if d.Decoded.Container != ContainerNone {
		return containerRepr(d)
	}

	switch d.Decoded.Kind {
	case KindInt:
		return d.Decoded.Int.String()
	case KindBool:
		if d.Decoded.Bool {
			return "True"
		}
		return "False"
	case KindFloat:
		return pyFloatRepr(d.Decoded.Float)
	case KindNone:
		return "None"
	case KindBytes:
		return pyBytesRepr(d.Decoded.Bytes)
	case KindString:
		return pyStringRepr(d.Decoded.Str)
	case KindList:
		return "[" + joinReprs(d.Decoded.Items) + "]"
	case KindTuple:
		return pyTupleRepr(d.Decoded.Items)
	case KindSet:
		return "set([" + joinReprs(d.Decoded.Items) + "])"
	case KindFrozenSet:
		return "frozenset({" + joinReprs(d.Decoded.Items) + "})"
	case KindDict:
		return pyDictRepr(d.Decoded.Dict)
	default:
		return strconv.Quote(d.Decoded.Opaque)
	}
}

func containerRepr(d *Description) string {
	switch d.Decoded.Container {
	case ContainerOrderedDict:
		return "OrderedDict([" + joinDictPairs(d.Decoded.Dict) + "])"
	case ContainerDefaultdict:
		factory := "None"
		if d.Decoded.DefaultFactory != nil {
			factory = d.Decoded.DefaultFactory.Repr
		}
		return "defaultdict(" + factory + ", " + pyDictRepr(d.Decoded.Dict) + ")"
	case ContainerCounter:
		return "Counter(" + pyDictRepr(d.Decoded.Dict) + ")"
	case ContainerUserDict:
		return "UserDict(" + pyDictRepr(d.Decoded.Dict) + ")"
	case ContainerUserList:
		return "UserList([" + joinReprs(d.Decoded.Items) + "])"
	case ContainerUserString:
		return "UserString(" + pyStringRepr(d.Decoded.Str) + ")"
	default:
		return reprOf(&Description{Decoded: Decoded{Kind: d.Decoded.Kind}})
	}
}

// pyFloatRepr formats f the way Python repr does: the shortest round-trip
// digits, in positional notation unless the magnitude is below 1e-4 or at
// least 1e16 (then exponent notation, e.g. 1e+16); integral values keep a
// trailing ".0", and the infinities and NaN print as inf, -inf and nan.
func pyFloatRepr(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	var s string
	if a := math.Abs(f); a != 0 && (a < 1e-4 || a >= 1e16) {
		s = strconv.FormatFloat(f, 'e', -1, 64)
	} else {
		s = strconv.FormatFloat(f, 'f', -1, 64)
	}
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func joinReprs(items []*Description) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = it.Repr
	}
	return strings.Join(parts, ", ")
}

func pyTupleRepr(items []*Description) string {
	if len(items) == 1 {
		return "(" + items[0].Repr + ",)"
	}
	return "(" + joinReprs(items) + ")"
}

func joinDictPairs(d *Dict) string {
	if d == nil {
		return ""
	}
	parts := make([]string, 0, d.Len())
	for _, e := range d.Entries() {
		parts = append(parts, "("+e.Key.Repr+", "+e.Value.Repr+")")
	}
	return strings.Join(parts, ", ")
}

func pyDictRepr(d *Dict) string {
	if d == nil || d.Len() == 0 {
		return "{}"
	}
	parts := make([]string, 0, d.Len())
	for _, e := range d.Entries() {
		parts = append(parts, e.Key.Repr+": "+e.Value.Repr)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// pyBytesRepr renders a bytes object the standard escaped form with a b
// prefix, e.g. b'\x00hi', or b"it's" when the bytes hold a single quote
// and no double quote.
func pyBytesRepr(b []byte) string {
	quote := byte('\'')
	if bytesContains(b, '\'') && !bytesContains(b, '"') {
		quote = '"'
	}

	var sb strings.Builder
	sb.WriteByte('b')
	sb.WriteByte(quote)
	for _, c := range b {
		switch {
		case c == '\\' || c == quote:
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case c == '\n':
			sb.WriteString(`\n`)
		case c == '\r':
			sb.WriteString(`\r`)
		case c == '\t':
			sb.WriteString(`\t`)
		case c < 0x20 || c >= 0x7f:
			fmt.Fprintf(&sb, `\x%02x`, c)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte(quote)
	return sb.String()
}

func bytesContains(b []byte, c byte) bool {
	for _, x := range b {
		if x == c {
			return true
		}
	}
	return false
}

// pyStringRepr renders a string repr-style, escaping non-printable
// characters with \xXX below U+0100, \uXXXX below U+10000, and \UXXXXXXXX
// for code points at or above U+10000.
func pyStringRepr(s string) string {
	quote := byte('\'')
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		quote = '"'
	}

	var sb strings.Builder
	sb.WriteByte(quote)
	for _, r := range s {
		switch {
		case r == '\\' || byte(r) == quote && r < 0x80:
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case r == '\n':
			sb.WriteString(`\n`)
		case r == '\r':
			sb.WriteString(`\r`)
		case r == '\t':
			sb.WriteString(`\t`)
		case unicode.IsPrint(r):
			sb.WriteRune(r)
		case r < 0x100:
			fmt.Fprintf(&sb, `\x%02x`, r)
		case r < 0x10000:
			fmt.Fprintf(&sb, `\u%04x`, r)
		default:
			fmt.Fprintf(&sb, `\U%08x`, r)
		}
	}
	sb.WriteByte(quote)
	return sb.String()
}
