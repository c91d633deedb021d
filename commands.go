package pylldb

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/pprof/profile"
)

// Session owns the command surface's per-debugger-session state: the
// process being read and the frame cursor. It is the only mutable state
// this package carries; Invalidate must be called whenever the debuggee
// resumes.
type Session struct {
	proc Process
	dbg  Debugger

	cursor *Cursor
}

// NewSession constructs a Session reading through proc.
func NewSession(proc Process) *Session {
	return &Session{proc: proc}
}

// Invalidate drops the captured stack and cursor. The host debugger's resume
// hook must call this; a stale cursor would point at addresses that may no
// longer name the same objects once the debuggee has run further.
func (s *Session) Invalidate() {
	s.cursor = nil
}

// Register installs the five user-visible commands and the type-summary
// formatter against dbg. The glue itself is intentionally thin; the host
// debugger's command machinery is an external collaborator.
func (s *Session) Register(dbg Debugger) {
	s.dbg = dbg
	dbg.RegisterCommand("py-bt", s.cmdBacktrace)
	dbg.RegisterCommand("py-list", s.cmdList)
	dbg.RegisterCommand("py-locals", s.cmdLocals)
	dbg.RegisterCommand("py-up", s.cmdUp)
	dbg.RegisterCommand("py-down", s.cmdDown)
	dbg.RegisterTypeSummary("PyObject", s.typeSummary)
}

const noTraceback = "No Python traceback found"

// capture re-walks the current thread's stack and resets the cursor to the
// newest frame, used by py-bt (a fresh snapshot every time) and by any
// other command finding no existing capture to work from.
func (s *Session) capture() []*InterpreterFrame {
	thread, ok := s.dbg.CurrentThread()
	if !ok {
		return nil
	}
	frames := pystack(s.proc, thread)
	s.cursor = NewCursor(frames)
	return frames
}

// ensureCursor returns the session's cursor, capturing a fresh stack (with
// the cursor reset to the newest frame) if none has been captured since the
// last invalidation.
func (s *Session) ensureCursor() *Cursor {
	if s.cursor == nil {
		s.capture()
	}
	return s.cursor
}

func frameHeader(fr *InterpreterFrame) string {
	return fmt.Sprintf("File %q, line %d, in %s", fr.Code.Filename, fr.EffectiveLine(), fr.Code.Name)
}

func sourceLine(fr *InterpreterFrame) string {
	return readLine(fr.Code.Filename, int(fr.EffectiveLine()))
}

// cmdBacktrace implements py-bt: a fresh capture of the full interpreter
// stack, rendered oldest-first in the textbook format. An optional
// "--pprof path" argument additionally writes the captured stack as a
// pprof profile: one sample holding one location per frame.
func (s *Session) cmdBacktrace(args []string) string {
	frames := s.capture()
	if len(frames) == 0 {
		return noTraceback
	}

	if path, ok := pprofFlag(args); ok {
		if err := writeBacktraceProfile(path, frames); err != nil {
			oncePprofWriteFailed.Printf("pylldb: writing pprof profile: %v", err)
		}
	}

	var b strings.Builder
	b.WriteString("Traceback (most recent call last):\n")
	for i := len(frames) - 1; i >= 0; i-- {
		fr := frames[i]
		line := sourceLine(fr)
		fmt.Fprintf(&b, "  %s\n", frameHeader(fr))
		fmt.Fprintf(&b, "    %s\n", strings.TrimSpace(line))
	}
	return strings.TrimRight(b.String(), "\n")
}

// pprofFlag extracts "--pprof <path>" from a py-bt argument list.
func pprofFlag(args []string) (string, bool) {
	for i, a := range args {
		if a == "--pprof" && i+1 < len(args) {
			return args[i+1], true
		}
	}
	return "", false
}

// writeBacktraceProfile writes frames as a pprof profile with a single
// sample (value type "frames"/"count") whose location list is the whole
// stack, newest first, one location and function per frame; viewable
// offline with pprof -http.
func writeBacktraceProfile(path string, frames []*InterpreterFrame) error {
	functions := make([]*profile.Function, 0, len(frames))
	locations := make([]*profile.Location, 0, len(frames))
	sampleLocations := make([]*profile.Location, 0, len(frames))

	for i, fr := range frames {
		id := uint64(i + 1)
		fn := &profile.Function{
			ID:       id,
			Name:     fr.Code.Name,
			Filename: fr.Code.Filename,
		}
		loc := &profile.Location{
			ID: id,
			Line: []profile.Line{{
				Function: fn,
				Line:     fr.EffectiveLine(),
			}},
		}
		functions = append(functions, fn)
		locations = append(locations, loc)
		sampleLocations = append(sampleLocations, loc)
	}

	prof := &profile.Profile{
		SampleType: []*profile.ValueType{{Type: "frames", Unit: "count"}},
		Sample: []*profile.Sample{{
			Location: sampleLocations,
			Value:    []int64{1},
		}},
		Function: functions,
		Location: locations,
	}

	w, err := os.Create(path)
	if err != nil {
		return err
	}
	defer w.Close()
	return prof.Write(w)
}

// cmdList implements py-list [start [end]]: a window of source lines
// around the cursor frame's active line, marking that line with '>'. The
// default window is five lines either side of the active line; a lone
// start argument shows start through start+10. The window is clamped to the
// top of the file without sliding the end down, so an active line near the
// top shows fewer lines rather than more context below.
func (s *Session) cmdList(args []string) string {
	cursor := s.ensureCursor()
	fr, ok := cursor.Current()
	if !ok {
		return noTraceback
	}

	active := fr.EffectiveLine()
	start := active - 5
	end := active + 5
	if len(args) >= 1 {
		if n, err := strconv.ParseInt(args[0], 10, 64); err == nil {
			start = n
			end = start + 10
		}
	}
	if len(args) >= 2 {
		if n, err := strconv.ParseInt(args[1], 10, 64); err == nil {
			end = n
		}
	}
	if start < 1 {
		start = 1
	}

	var b strings.Builder
	for n := start; n <= end; n++ {
		// The active line's '>' marker sits directly against the line
		// number, both right-justified in a 5-column field:
		//     4    def fa():
		//    >5        abs(1)
		num := strconv.FormatInt(n, 10)
		if n == active {
			num = ">" + num
		}
		fmt.Fprintf(&b, "%5s    %s\n", num, readLine(fr.Code.Filename, int(n)))
	}
	return strings.TrimRight(b.String(), "\n")
}

// cmdLocals implements py-locals: "name = repr(value)" for
// each binding of the cursor frame's local scope, in the underlying
// mapping's iteration order.
func (s *Session) cmdLocals(args []string) string {
	cursor := s.ensureCursor()
	fr, ok := cursor.Current()
	if !ok {
		return noTraceback
	}
	if fr.Locals == nil || fr.Locals.Len() == 0 {
		return ""
	}
	var b strings.Builder
	for _, e := range fr.Locals.Entries() {
		fmt.Fprintf(&b, "%s = %s\n", e.Key.Decoded.Str, e.Value.Repr)
	}
	return strings.TrimRight(b.String(), "\n")
}

// cmdUp implements py-up: move the cursor one frame toward
// the caller.
func (s *Session) cmdUp(args []string) string {
	cursor := s.ensureCursor()
	fr, msg := cursor.Up()
	if msg != "" {
		return msg
	}
	return renderFrame(fr)
}

// cmdDown implements py-down: move the cursor one frame
// toward the callee.
func (s *Session) cmdDown(args []string) string {
	cursor := s.ensureCursor()
	fr, msg := cursor.Down()
	if msg != "" {
		return msg
	}
	return renderFrame(fr)
}

func renderFrame(fr *InterpreterFrame) string {
	return fmt.Sprintf("  %s\n    %s", frameHeader(fr), strings.TrimSpace(sourceLine(fr)))
}

// typeSummary is the registered pretty-printer for any variable declared
// with the generic object-header pointer type.
func (s *Session) typeSummary(v Value) string {
	return Describe(s.proc, v.LoadAddress()).Repr
}
