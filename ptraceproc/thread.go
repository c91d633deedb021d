//go:build linux && amd64

package ptraceproc

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/stealthrocket/pylldb"
)

// maxUnwindDepth bounds the frame-pointer walk so a corrupted or cyclic
// chain can't spin Thread.Frames forever.
const maxUnwindDepth = 4096

// Thread is a pylldb.Thread for the ptrace-stopped process's single thread
// identified by pid. pylldb never needs more than the thread its attach
// target is stopped on, so unlike a full debugger there is no thread list.
type Thread struct {
	proc *Process
	top  *Frame
}

// NewThread snapshots pid's current registers as the innermost frame of a
// walk rooted at rip/rbp.
func NewThread(proc *Process) (*Thread, error) {
	var regs unix.PtraceRegs
	if err := unix.PtraceGetRegs(proc.pid, &regs); err != nil {
		return nil, fmt.Errorf("ptraceproc: getregs %d: %w", proc.pid, err)
	}
	top := &Frame{
		proc:  proc,
		pc:    regs.Rip,
		fp:    regs.Rbp,
		regs:  regs,
		isTop: true,
	}
	return &Thread{proc: proc, top: top}, nil
}

// Frames returns the thread's call stack, innermost first, recovered by
// walking saved rbp/return-address pairs until the chain breaks or
// maxUnwindDepth is hit.
func (t *Thread) Frames() []pylldb.Frame {
	frames := make([]pylldb.Frame, 0, 32)
	var cur pylldb.Frame = t.top
	for i := 0; i < maxUnwindDepth; i++ {
		frames = append(frames, cur)
		parent, ok := cur.Parent()
		if !ok {
			break
		}
		cur = parent
	}
	return frames
}
