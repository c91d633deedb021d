package pylldb

import (
	"encoding/binary"
	"math"
	"math/big"
)

// fakeProcess is a Process backed by a growable byte arena instead of a real
// address space, laid out byte-for-byte like the CPython structures this
// package decodes. It lets the decoders, the line decoder, and the
// frame-recovery heuristics be driven from tests without an actual CPython
// process or LLDB session attached. Every alloc call appends to the arena;
// addresses are stable for the lifetime of the fakeProcess.
type fakeProcess struct {
	mem   []byte
	types map[string]*Type

	typeObjs map[string]Addr
}

const fakeBase Addr = 0x10000

// newFakeProcess returns a fakeProcess whose built-in CPython types use the
// packed (>= 3.6) dict keys layout.
func newFakeProcess() *fakeProcess {
	return newFakeProcessWithDictLayout(DictLayoutPacked)
}

// newFakeProcessWithDictLayout returns a fakeProcess whose built-in CPython
// types use the given historical ma_keys representation, for exercising both
// branches of decodeDict.
func newFakeProcessWithDictLayout(layout DictLayout) *fakeProcess {
	return &fakeProcess{
		types:    BuiltinTypes(layout),
		typeObjs: make(map[string]Addr),
	}
}

func (p *fakeProcess) ReadBytes(addr Addr, n int) ([]byte, bool) {
	if addr < fakeBase {
		return nil, false
	}
	off := int(addr - fakeBase)
	if off < 0 || off+n > len(p.mem) {
		return nil, false
	}
	out := make([]byte, n)
	copy(out, p.mem[off:off+n])
	return out, true
}

func (p *fakeProcess) ReadCString(addr Addr, max int) (string, bool) {
	if addr < fakeBase {
		return "", false
	}
	off := int(addr - fakeBase)
	if off < 0 || off > len(p.mem) {
		return "", false
	}
	end := off
	for end < len(p.mem) && end-off < max && p.mem[end] != 0 {
		end++
	}
	return string(p.mem[off:end]), true
}

func (p *fakeProcess) TypeByName(name string) (*Type, bool) {
	t, ok := p.types[name]
	return t, ok
}

// AddType registers a type under name, for the synthetic per-instance types
// the container-recognition builders below need (a dotted class name with a
// "__dict__" slot is not one of the built-ins BuiltinTypes knows).
func (p *fakeProcess) AddType(name string, t *Type) {
	p.types[name] = t
}

func voidPtrType() *Type {
	return &Type{TypeName: "void *", ByteSize: 8, Elem: &Type{TypeName: "void", ByteSize: 1}}
}

// alloc appends n zeroed bytes to the arena and returns their address.
func (p *fakeProcess) alloc(n int64) Addr {
	addr := fakeBase + Addr(len(p.mem))
	p.mem = append(p.mem, make([]byte, n)...)
	return addr
}

func (p *fakeProcess) off(addr Addr) int { return int(addr - fakeBase) }

func (p *fakeProcess) putUint64(addr Addr, v uint64) {
	binary.LittleEndian.PutUint64(p.mem[p.off(addr):], v)
}

func (p *fakeProcess) putInt64(addr Addr, v int64) { p.putUint64(addr, uint64(v)) }

func (p *fakeProcess) putUint32(addr Addr, v uint32) {
	binary.LittleEndian.PutUint32(p.mem[p.off(addr):], v)
}

func (p *fakeProcess) putBytes(addr Addr, b []byte) {
	copy(p.mem[p.off(addr):p.off(addr)+len(b)], b)
}

// cstring allocates s plus a trailing NUL and returns its address.
func (p *fakeProcess) cstring(s string) Addr {
	addr := p.alloc(int64(len(s)) + 1)
	p.putBytes(addr, []byte(s))
	return addr
}

// fieldOffset looks up a field's offset on a built-in type, panicking if
// absent: every offset the builders ask for names a field layout.go
// actually declares, so a miss means the two have drifted out of sync,
// which a test run should surface immediately rather than silently
// mis-laying-out memory.
func (p *fakeProcess) fieldOffset(typeName, field string) int64 {
	t, ok := p.types[typeName]
	if !ok {
		panic("fake target: no built-in type " + typeName)
	}
	f, ok := t.Field(field)
	if !ok {
		panic("fake target: " + typeName + " has no field " + field)
	}
	return f.Offset
}

func (p *fakeProcess) nestedOffset(typeName string, path ...string) int64 {
	t, ok := p.types[typeName]
	if !ok {
		panic("fake target: no built-in type " + typeName)
	}
	var total int64
	for _, name := range path {
		f, ok := t.Field(name)
		if !ok {
			panic("fake target: " + typeName + " has no field " + name)
		}
		total += f.Offset
		t = f.Type
	}
	return total
}

// typeObjectFor returns the address of a PyTypeObject carrying tp_name,
// building and caching one per distinct name.
func (p *fakeProcess) typeObjectFor(tpName string) Addr {
	if addr, ok := p.typeObjs[tpName]; ok {
		return addr
	}
	t := p.types["PyTypeObject"]
	addr := p.alloc(t.Size())
	nameAddr := p.cstring(tpName)
	p.putUint64(addr+Addr(p.fieldOffset("PyTypeObject", "tp_name")), uint64(nameAddr))
	p.typeObjs[tpName] = addr
	return addr
}

// setHeader writes the PyObject header (ob_refcnt, ob_type) every built-in
// object begins with, whether or not it is variable-sized: PyVarObject and
// the bitfield string header both embed PyObject as their first 16 bytes.
func (p *fakeProcess) setHeader(addr Addr, tpName string) {
	p.putInt64(addr+0, 1)
	p.putUint64(addr+8, uint64(p.typeObjectFor(tpName)))
}

func nextPow2(n int) int {
	p := 8
	for p < n {
		p *= 2
	}
	return p
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Int lays out a PyLongObject for n, using the digit width and shift the
// built-in "digit" type declares (numbers.go's digitShift reads the same
// type to decode it back).
func (p *fakeProcess) Int(n int64) Addr {
	return p.BigInt(big.NewInt(n))
}

// BigInt lays out a PyLongObject for an arbitrary-precision n, as many
// digits as its magnitude needs.
func (p *fakeProcess) BigInt(n *big.Int) Addr {
	shift := uint(30)
	if dt, ok := p.types["digit"]; ok && dt.Size() == 2 {
		shift = 15
	}
	mask := big.NewInt(int64(1)<<shift - 1)
	var digits []uint32
	d := new(big.Int)
	for m := new(big.Int).Abs(n); m.Sign() > 0; m.Rsh(m, shift) {
		digits = append(digits, uint32(d.And(m, mask).Uint64()))
	}

	size := int64(len(digits))
	if n.Sign() < 0 {
		size = -size
	}

	headerSize := p.types["PyLongObject"].Size()
	addr := p.alloc(headerSize + int64(len(digits))*4)
	p.setHeader(addr, "int")
	p.putInt64(addr+Addr(p.nestedOffset("PyLongObject", "ob_base", "ob_size")), size)
	digitsOff := p.fieldOffset("PyLongObject", "ob_digit")
	for i, dig := range digits {
		p.putUint32(addr+Addr(digitsOff)+Addr(i*4), dig)
	}
	return addr
}

// Bool lays out a PyBoolObject: a PyLongObject with exactly one digit slot,
// per decodeBool's digits.Index(0) read.
func (p *fakeProcess) Bool(b bool) Addr {
	headerSize := p.types["PyLongObject"].Size()
	addr := p.alloc(headerSize + 4)
	p.setHeader(addr, "bool")
	v := int64(0)
	if b {
		v = 1
	}
	p.putInt64(addr+Addr(p.nestedOffset("PyLongObject", "ob_base", "ob_size")), v)
	p.putUint32(addr+Addr(p.fieldOffset("PyLongObject", "ob_digit")), uint32(v))
	return addr
}

// Float lays out a PyFloatObject.
func (p *fakeProcess) Float(f float64) Addr {
	addr := p.alloc(p.types["PyFloatObject"].Size())
	p.setHeader(addr, "float")
	p.putUint64(addr+Addr(p.fieldOffset("PyFloatObject", "ob_fval")), math.Float64bits(f))
	return addr
}

// None lays out the sole NoneType singleton, no payload beyond its header.
func (p *fakeProcess) None() Addr {
	addr := p.alloc(16)
	p.setHeader(addr, "NoneType")
	return addr
}

// Bytes lays out a PyBytesObject carrying b.
func (p *fakeProcess) Bytes(b []byte) Addr {
	svalOff := p.fieldOffset("PyBytesObject", "ob_sval")
	addr := p.alloc(svalOff + int64(len(b)) + 1)
	p.setHeader(addr, "bytes")
	p.putInt64(addr+Addr(p.nestedOffset("PyBytesObject", "ob_base", "ob_size")), int64(len(b)))
	p.putInt64(addr+Addr(p.fieldOffset("PyBytesObject", "ob_shash")), -1)
	p.putBytes(addr+Addr(svalOff), b)
	return addr
}

// String lays out a PyASCIIObject (pure ASCII) or PyCompactUnicodeObject
// (Latin-1/UCS2/UCS4) for s, picking the narrowest kind that fits every
// rune, the same choice CPython's own string allocation makes.
func (p *fakeProcess) String(s string) Addr {
	runes := []rune(s)
	ascii := true
	maxR := rune(0)
	for _, r := range runes {
		if r > maxR {
			maxR = r
		}
		if r >= 128 {
			ascii = false
		}
	}

	kind := kindLatin1
	switch {
	case maxR >= 0x10000:
		kind = kindUCS4
	case maxR >= 0x100:
		kind = kindUCS2
	}

	headerType := "PyCompactUnicodeObject"
	if ascii {
		headerType = "PyASCIIObject"
	}
	hdrSize := p.types[headerType].Size()
	length := int64(len(runes))

	width := int64(1)
	if !ascii {
		switch kind {
		case kindUCS2:
			width = 2
		case kindUCS4:
			width = 4
		}
	}

	addr := p.alloc(hdrSize + length*width)
	p.setHeader(addr, "str")
	p.putInt64(addr+Addr(p.fieldOffset("PyASCIIObject", "length")), length)
	p.putInt64(addr+Addr(p.fieldOffset("PyASCIIObject", "hash")), 0)

	asciiBit := uint32(0)
	if ascii {
		asciiBit = 1
	}
	state := uint32(kind<<2) | (1 << 5) | (asciiBit << 6) | (1 << 7)
	p.putUint32(addr+Addr(p.fieldOffset("PyASCIIObject", "state")), state)

	payload := addr + Addr(hdrSize)
	switch {
	case ascii, kind == kindLatin1:
		buf := make([]byte, length)
		for i, r := range runes {
			buf[i] = byte(r)
		}
		p.putBytes(payload, buf)
	case kind == kindUCS2:
		buf := make([]byte, length*2)
		for i, r := range runes {
			binary.LittleEndian.PutUint16(buf[i*2:], uint16(r))
		}
		p.putBytes(payload, buf)
	default: // kindUCS4
		buf := make([]byte, length*4)
		for i, r := range runes {
			binary.LittleEndian.PutUint32(buf[i*4:], uint32(r))
		}
		p.putBytes(payload, buf)
	}
	return addr
}

// List lays out a PyListObject over items: a separately allocated pointer
// array, per decodeSequence's Elements()-mediated dereference.
func (p *fakeProcess) List(items []Addr) Addr {
	n := int64(len(items))
	arr := p.alloc(n * 8)
	for i, it := range items {
		p.putUint64(arr+Addr(i*8), uint64(it))
	}
	addr := p.alloc(p.types["PyListObject"].Size())
	p.setHeader(addr, "list")
	p.putInt64(addr+Addr(p.nestedOffset("PyListObject", "ob_base", "ob_size")), n)
	p.putUint64(addr+Addr(p.fieldOffset("PyListObject", "ob_item")), uint64(arr))
	p.putInt64(addr+Addr(p.fieldOffset("PyListObject", "allocated")), n)
	return addr
}

// Tuple lays out a PyTupleObject over items: an inline flexible item array,
// per decodeSequence's Elements() pass-through for array-typed fields.
func (p *fakeProcess) Tuple(items []Addr) Addr {
	itemOff := p.fieldOffset("PyTupleObject", "ob_item")
	addr := p.alloc(itemOff + int64(len(items))*8)
	p.setHeader(addr, "tuple")
	p.putInt64(addr+Addr(p.nestedOffset("PyTupleObject", "ob_base", "ob_size")), int64(len(items)))
	for i, it := range items {
		p.putUint64(addr+Addr(itemOff)+Addr(i*8), uint64(it))
	}
	return addr
}

func (p *fakeProcess) setOrFrozenSet(items []Addr, tpName string) Addr {
	capacity := nextPow2(len(items)*2 + 1)
	entrySize := int64(16)
	table := p.alloc(int64(capacity) * entrySize)
	keyOff := p.fieldOffset("setentry", "key")
	hashOff := p.fieldOffset("setentry", "hash")
	for i, it := range items {
		slot := table + Addr(i)*Addr(entrySize)
		p.putUint64(slot+Addr(keyOff), uint64(it))
		p.putInt64(slot+Addr(hashOff), 1) // nonzero, not the -1 dummy sentinel
	}

	addr := p.alloc(p.types["PySetObject"].Size())
	p.setHeader(addr, tpName)
	p.putInt64(addr+Addr(p.fieldOffset("PySetObject", "fill")), int64(len(items)))
	p.putInt64(addr+Addr(p.fieldOffset("PySetObject", "used")), int64(len(items)))
	p.putInt64(addr+Addr(p.fieldOffset("PySetObject", "mask")), int64(capacity-1))
	p.putUint64(addr+Addr(p.fieldOffset("PySetObject", "table")), uint64(table))
	return addr
}

// Set lays out a PySetObject.
func (p *fakeProcess) Set(items []Addr) Addr { return p.setOrFrozenSet(items, "set") }

// FrozenSet lays out a PySetObject under the frozenset type name.
func (p *fakeProcess) FrozenSet(items []Addr) Addr {
	return p.setOrFrozenSet(items, "frozenset")
}

// Dict lays out a combined PyDictObject over pairs, using whichever
// historical ma_keys layout this fakeProcess's built-in types declare.
func (p *fakeProcess) Dict(pairs [][2]Addr) Addr {
	return p.dictWithTail(pairs, 0, "dict")
}

func (p *fakeProcess) dictWithTail(pairs [][2]Addr, tail int64, tpName string) Addr {
	keys := p.buildDictKeys(pairs)
	size := p.types["PyDictObject"].Size()
	addr := p.alloc(size + tail)
	p.setHeader(addr, tpName)
	p.putInt64(addr+Addr(p.fieldOffset("PyDictObject", "ma_used")), int64(len(pairs)))
	p.putInt64(addr+Addr(p.fieldOffset("PyDictObject", "ma_version_tag")), 0)
	p.putUint64(addr+Addr(p.fieldOffset("PyDictObject", "ma_keys")), uint64(keys))
	p.putUint64(addr+Addr(p.fieldOffset("PyDictObject", "ma_values")), 0)
	return addr
}

func (p *fakeProcess) buildDictKeys(pairs [][2]Addr) Addr {
	keysType := p.types["PyDictKeysObject"]
	if _, ok := keysType.Field("dk_indices"); ok {
		return p.buildPackedDictKeys(pairs)
	}
	return p.buildDirectDictKeys(pairs)
}

func (p *fakeProcess) buildPackedDictKeys(pairs [][2]Addr) Addr {
	n := len(pairs)
	dkSize := nextPow2(maxInt(8, n*2))
	width := indexWidthForCapacity(uint64(dkSize))
	indicesOff := p.fieldOffset("PyDictKeysObject", "dk_indices")
	entriesStart := indicesOff + int64(dkSize)*width
	entrySize := p.types["PyDictKeyEntry"].Size()

	addr := p.alloc(entriesStart + int64(n)*entrySize)
	p.putInt64(addr+Addr(p.fieldOffset("PyDictKeysObject", "dk_refcnt")), 1)
	p.putInt64(addr+Addr(p.fieldOffset("PyDictKeysObject", "dk_size")), int64(dkSize))
	p.putInt64(addr+Addr(p.fieldOffset("PyDictKeysObject", "dk_usable")), int64(dkSize-n))
	p.putInt64(addr+Addr(p.fieldOffset("PyDictKeysObject", "dk_nentries")), int64(n))

	hashOff := p.fieldOffset("PyDictKeyEntry", "me_hash")
	keyOff := p.fieldOffset("PyDictKeyEntry", "me_key")
	valOff := p.fieldOffset("PyDictKeyEntry", "me_value")
	for i, pair := range pairs {
		entry := addr + Addr(entriesStart) + Addr(i)*Addr(entrySize)
		p.putInt64(entry+Addr(hashOff), 0)
		p.putUint64(entry+Addr(keyOff), uint64(pair[0]))
		p.putUint64(entry+Addr(valOff), uint64(pair[1]))
	}
	return addr
}

func (p *fakeProcess) buildDirectDictKeys(pairs [][2]Addr) Addr {
	n := len(pairs)
	capacity := nextPow2(maxInt(8, n*2))
	entrySize := p.types["PyDictKeyEntry"].Size()
	entriesOff := p.fieldOffset("PyDictKeysObject", "dk_entries")

	entries := p.alloc(int64(capacity) * entrySize)
	hashOff := p.fieldOffset("PyDictKeyEntry", "me_hash")
	keyOff := p.fieldOffset("PyDictKeyEntry", "me_key")
	valOff := p.fieldOffset("PyDictKeyEntry", "me_value")
	for i, pair := range pairs {
		entry := entries + Addr(i)*Addr(entrySize)
		p.putInt64(entry+Addr(hashOff), 0)
		p.putUint64(entry+Addr(keyOff), uint64(pair[0]))
		p.putUint64(entry+Addr(valOff), uint64(pair[1]))
	}

	keys := p.alloc(p.types["PyDictKeysObject"].Size())
	p.putInt64(keys+Addr(p.fieldOffset("PyDictKeysObject", "dk_size")), int64(capacity))
	p.putUint64(keys+Addr(entriesOff), uint64(entries))
	return keys
}

func (p *fakeProcess) registerInstanceType(tpName string, dictOffset int64) {
	p.AddType(tpName, &Type{
		TypeName: tpName,
		ByteSize: dictOffset + 8,
		Fields: []Field{
			{Name: "__dict__", Offset: dictOffset, Type: voidPtrType()},
		},
	})
}

// OrderedDict lays out a dict subclass instance preserving PyDictObject's
// layout exactly, recognised by containers.go purely from its tp_name.
func (p *fakeProcess) OrderedDict(pairs [][2]Addr) Addr {
	return p.dictWithTail(pairs, 0, "collections.OrderedDict")
}

// Counter is OrderedDict's sibling: same layout, different recognised name.
func (p *fakeProcess) Counter(pairs [][2]Addr) Addr {
	return p.dictWithTail(pairs, 0, "collections.Counter")
}

// DefaultDict lays out a defaultdict instance: a PyDictObject body plus a
// trailing per-instance __dict__ slot holding default_factory, matching
// containers.go's marker-attribute walk.
func (p *fakeProcess) DefaultDict(pairs [][2]Addr, factory Addr) Addr {
	dictSize := p.types["PyDictObject"].Size()
	addr := p.dictWithTail(pairs, 8, "collections.defaultdict")
	marker := p.dictWithTail([][2]Addr{{p.String("default_factory"), factory}}, 0, "dict")
	p.putUint64(addr+Addr(dictSize), uint64(marker))
	p.registerInstanceType("collections.defaultdict", dictSize)
	return addr
}

func (p *fakeProcess) userWrapper(tpName string, data Addr) Addr {
	const hdrSize = 16
	addr := p.alloc(hdrSize + 8)
	p.setHeader(addr, tpName)
	marker := p.dictWithTail([][2]Addr{{p.String("data"), data}}, 0, "dict")
	p.putUint64(addr+Addr(hdrSize), uint64(marker))
	p.registerInstanceType(tpName, hdrSize)
	return addr
}

// UserDict lays out a collections.UserDict instance wrapping a real dict.
func (p *fakeProcess) UserDict(pairs [][2]Addr) Addr {
	return p.userWrapper("collections.UserDict", p.Dict(pairs))
}

// UserList lays out a collections.UserList instance wrapping a real list.
func (p *fakeProcess) UserList(items []Addr) Addr {
	return p.userWrapper("collections.UserList", p.List(items))
}

// UserString lays out a collections.UserString instance wrapping a real str.
func (p *fakeProcess) UserString(s string) Addr {
	return p.userWrapper("collections.UserString", p.String(s))
}

// Code lays out a PyCodeObject.
func (p *fakeProcess) Code(filename, name string, firstLine int64, lnotab []byte) Addr {
	addr := p.alloc(p.types["PyCodeObject"].Size())
	p.setHeader(addr, "code")
	p.putUint32(addr+Addr(p.fieldOffset("PyCodeObject", "co_firstlineno")), uint32(firstLine))
	p.putUint64(addr+Addr(p.fieldOffset("PyCodeObject", "co_filename")), uint64(p.String(filename)))
	p.putUint64(addr+Addr(p.fieldOffset("PyCodeObject", "co_name")), uint64(p.String(name)))
	p.putUint64(addr+Addr(p.fieldOffset("PyCodeObject", "co_lnotab")), uint64(p.Bytes(lnotab)))
	return addr
}

// Frame lays out a PyFrameObject. locals/globals may be Addr(0) for
// "absent".
func (p *fakeProcess) Frame(code, back, locals, globals Addr, lastI int64) Addr {
	addr := p.alloc(p.types["PyFrameObject"].Size())
	// tp_name "frame" matches recover.go's interpFrameTypeName constant,
	// the register heuristic's match target.
	p.setHeader(addr, "frame")
	p.putUint64(addr+Addr(p.fieldOffset("PyFrameObject", "f_back")), uint64(back))
	p.putUint64(addr+Addr(p.fieldOffset("PyFrameObject", "f_code")), uint64(code))
	p.putUint64(addr+Addr(p.fieldOffset("PyFrameObject", "f_globals")), uint64(globals))
	p.putUint64(addr+Addr(p.fieldOffset("PyFrameObject", "f_locals")), uint64(locals))
	p.putUint32(addr+Addr(p.fieldOffset("PyFrameObject", "f_lasti")), uint32(lastI))
	return addr
}
