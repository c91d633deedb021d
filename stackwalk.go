package pylldb

// pystack walks a thread's host frames newest to oldest, recovers an
// interpreter frame from each, and returns the successes, newest first.
// Adjacent duplicates (the same interpreter-frame address recovered from
// two consecutive host frames, a consequence of strategy 2's parent-frame
// lookup) collapse to one entry.
func pystack(proc Process, thread Thread) []*InterpreterFrame {
	var out []*InterpreterFrame
	for _, hf := range thread.Frames() {
		fr, ok := recoverFrame(proc, hf)
		if !ok {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Addr == fr.Addr {
			continue
		}
		out = append(out, fr)
	}
	return out
}
