package pylldb

// CodeObject is the decoded view of a PyCodeObject needed to render a
// traceback line and resolve the active source line.
type CodeObject struct {
	Filename  string
	Name      string
	FirstLine int64
	Lnotab    []byte
}

func decodeCodeObject(proc Process, addr Addr) (*CodeObject, bool) {
	t, ok := proc.TypeByName("PyCodeObject")
	if !ok {
		return nil, false
	}
	v := NewValue(proc, addr, t)

	filenameAddr, ok := v.Child("co_filename").Unsigned()
	if !ok {
		return nil, false
	}
	nameAddr, ok := v.Child("co_name").Unsigned()
	if !ok {
		return nil, false
	}
	firstLine, ok := v.Child("co_firstlineno").Signed()
	if !ok {
		return nil, false
	}
	lnotabAddr, ok := v.Child("co_lnotab").Unsigned()
	if !ok {
		return nil, false
	}

	filename := pyStr(proc, Addr(filenameAddr))
	name := pyStr(proc, Addr(nameAddr))
	lnotab, ok := decodePyBytesObject(proc, Addr(lnotabAddr))
	if !ok {
		lnotab = nil
	}

	return &CodeObject{Filename: filename, Name: name, FirstLine: firstLine, Lnotab: lnotab}, true
}

// pyStr decodes the PyObject at addr as a string, returning the empty string
// if it isn't one or can't be read. co_filename/co_name are always str
// objects in practice, but a degraded read must never abort the caller.
func pyStr(proc Process, addr Addr) string {
	d := Describe(proc, addr)
	if d.Decoded.Kind == KindString {
		return d.Decoded.Str
	}
	return ""
}

func decodePyBytesObject(proc Process, addr Addr) ([]byte, bool) {
	t, ok := proc.TypeByName("PyBytesObject")
	if !ok {
		return nil, false
	}
	return decodeBytes(NewValue(proc, addr, t))
}

// InterpreterFrame is the decoded view of a PyFrameObject: a
// code object, a bytecode-offset cursor, the pointer to the caller frame,
// and the local/global name bindings.
type InterpreterFrame struct {
	Addr    Addr
	Code    *CodeObject
	LastI   int64
	Back    Addr
	Locals  *Dict
	Globals *Dict
}

// EffectiveLine is the frame's current source line: the code object's base
// line number plus the lnotab-decoded offset of the frame's bytecode cursor.
func (f *InterpreterFrame) EffectiveLine() int64 {
	if f.Code == nil {
		return 0
	}
	return f.Code.FirstLine + addr2line(f.Code.Lnotab, f.LastI)
}

// decodeInterpreterFrame reads a PyFrameObject at addr. It never fails on a
// missing or unreadable locals/globals dict (Locals/Globals stay nil), but does
// fail if the frame's code object can't be read, since every frame needs one
// to render anything.
func decodeInterpreterFrame(proc Process, addr Addr) (*InterpreterFrame, bool) {
	t, ok := proc.TypeByName("PyFrameObject")
	if !ok {
		return nil, false
	}
	v := NewValue(proc, addr, t)

	codeAddr, ok := v.Child("f_code").Unsigned()
	if !ok {
		return nil, false
	}
	code, ok := decodeCodeObject(proc, Addr(codeAddr))
	if !ok {
		return nil, false
	}

	lastI, _ := v.Child("f_lasti").Signed()
	back, _ := v.Child("f_back").Unsigned()

	frame := &InterpreterFrame{
		Addr:  addr,
		Code:  code,
		LastI: lastI,
		Back:  Addr(back),
	}

	if localsAddr, ok := v.Child("f_locals").Unsigned(); ok && localsAddr != 0 {
		frame.Locals = decodeMappingDict(proc, Addr(localsAddr))
	}
	if globalsAddr, ok := v.Child("f_globals").Unsigned(); ok && globalsAddr != 0 {
		frame.Globals = decodeMappingDict(proc, Addr(globalsAddr))
	}

	return frame, true
}

func decodeMappingDict(proc Process, addr Addr) *Dict {
	t, ok := proc.TypeByName("PyDictObject")
	if !ok {
		return nil
	}
	d, ok := decodeDict(NewValue(proc, addr, t))
	if !ok {
		return nil
	}
	return d
}
