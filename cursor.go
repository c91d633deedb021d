package pylldb

// Cursor is the per-session frame cursor: an index into a captured
// interpreter stack (newest first, index 0), moved by py-up and py-down.
// It is the only mutable state this package owns; the command surface
// invalidates it whenever the debuggee resumes.
type Cursor struct {
	frames []*InterpreterFrame
	index  int
}

// NewCursor captures frames and starts the cursor at the newest frame.
func NewCursor(frames []*InterpreterFrame) *Cursor {
	return &Cursor{frames: frames}
}

// Current returns the frame at the cursor's position. Ok is false for an
// empty capture.
func (c *Cursor) Current() (*InterpreterFrame, bool) {
	if c == nil || len(c.frames) == 0 {
		return nil, false
	}
	return c.frames[c.index], true
}

// Frames returns the full captured stack, newest first.
func (c *Cursor) Frames() []*InterpreterFrame {
	if c == nil {
		return nil
	}
	return c.frames
}

const (
	msgOldestFrame = "*** Oldest frame"
	msgNewestFrame = "*** Newest frame"
)

// Up moves the cursor one frame toward the caller. At the
// oldest frame it does not move and returns the fixed boundary message.
func (c *Cursor) Up() (*InterpreterFrame, string) {
	if c == nil || len(c.frames) == 0 {
		return nil, msgOldestFrame
	}
	if c.index+1 >= len(c.frames) {
		return nil, msgOldestFrame
	}
	c.index++
	return c.frames[c.index], ""
}

// Down moves the cursor one frame toward the callee. At the newest frame it
// does not move and returns the fixed boundary message.
func (c *Cursor) Down() (*InterpreterFrame, string) {
	if c == nil || len(c.frames) == 0 {
		return nil, msgNewestFrame
	}
	if c.index-1 < 0 {
		return nil, msgNewestFrame
	}
	c.index--
	return c.frames[c.index], ""
}
