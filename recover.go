package pylldb

// interpFrameTypeName is the tp_name of a CPython interpreter frame object
// (PyFrame_Type), matched against each register candidate's type name in
// the register heuristic below.
const interpFrameTypeName = "frame"

// evalFrameNames are the host functions whose stack frames may carry an
// interpreter frame. A build with frame
// evaluation hooks installed can have other entry points, but these two
// cover every supported interpreter build.
var evalFrameNames = map[string]bool{
	"_PyEval_EvalFrameDefault": true,
	"PyEval_EvalFrameEx":       true,
}

// recoverFrame returns the InterpreterFrame corresponding to a host stack
// frame inside the interpreter's eval loop, trying four strategies in
// order, the first success winning.
func recoverFrame(proc Process, hf Frame) (*InterpreterFrame, bool) {
	if !evalFrameNames[hf.FunctionName()] {
		return nil, false
	}

	if fr, ok := directLookup(proc, hf); ok {
		return fr, true
	}
	if parent, ok := hf.Parent(); ok {
		if fr, ok := directLookup(proc, parent); ok {
			return fr, true
		}
	}
	if fr, ok := registerHeuristic(proc, hf); ok {
		return fr, true
	}
	if parent, ok := hf.Parent(); ok {
		if fr, ok := registerHeuristic(proc, parent); ok {
			return fr, true
		}
	}
	return nil, false
}

// directLookup is strategies 1 and 2: the local variable f, read directly
// off the host frame, if the debugger reports it available.
func directLookup(proc Process, hf Frame) (*InterpreterFrame, bool) {
	v := hf.Variable("f")
	if !v.Valid() {
		return nil, false
	}
	addr, ok := v.Unsigned()
	if !ok || addr == 0 {
		return nil, false
	}
	return decodeInterpreterFrame(proc, Addr(addr))
}

// registerHeuristic is strategies 3 and 4: scan the x86-64 general-purpose
// registers of hf for a non-zero value whose type name matches
// interpFrameTypeName, discard candidates that are some other candidate's
// caller (f_back), and return the first survivor in register-enumeration
// order.
func registerHeuristic(proc Process, hf Frame) (*InterpreterFrame, bool) {
	var candidates []*InterpreterFrame
	for _, reg := range gprNames {
		v := hf.Register(reg)
		if !v.Valid() {
			continue
		}
		addr, ok := v.Unsigned()
		if !ok || addr == 0 {
			continue
		}
		typeName, ok := readTypeName(proc, Addr(addr))
		if !ok || typeName != interpFrameTypeName {
			continue
		}
		fr, ok := decodeInterpreterFrame(proc, Addr(addr))
		if !ok {
			continue
		}
		candidates = append(candidates, fr)
	}

	isSomeonesCaller := func(addr Addr) bool {
		for _, c := range candidates {
			if c.Back == addr {
				return true
			}
		}
		return false
	}

	for _, c := range candidates {
		if isSomeonesCaller(c.Addr) {
			continue
		}
		return c, true
	}
	return nil, false
}
