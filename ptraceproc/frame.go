//go:build linux && amd64

package ptraceproc

import (
	"encoding/binary"

	"golang.org/x/sys/unix"

	"github.com/stealthrocket/pylldb"
)

// Frame is a pylldb.Frame backed by a frame-pointer-chain walk: rbp at
// address fp holds the caller's saved rbp, and the 8 bytes above it hold
// the return address into the caller. This is strictly weaker than
// DWARF CFI (it is wrong for -fomit-frame-pointer builds and any frame a
// leaf-call inlined away), which is exactly the gap the register-scan
// heuristic papers over when symbolic recovery fails.
type Frame struct {
	proc  *Process
	pc    uint64
	fp    uint64
	regs  unix.PtraceRegs
	isTop bool
}

func (f *Frame) FunctionName() string {
	return f.proc.syms.functionAt(f.pc)
}

// Variable always reports unavailable: there is no DWARF variable
// resolution in this backend, so the frame-recovery engine's direct-lookup
// strategies (1 and 2) always fall through to the register heuristic here.
func (f *Frame) Variable(name string) pylldb.Value {
	return pylldb.Invalid()
}

// Register reports a named x86-64 GPR's content. Only the innermost frame
// of a Thread's walk has a live register snapshot; parent frames recovered
// by the fp chain know only pc/fp, matching what a real debugger's older
// frames expose without CFI-restored registers.
func (f *Frame) Register(name string) pylldb.Value {
	if !f.isTop {
		return pylldb.Invalid()
	}
	v, ok := gprValue(&f.regs, name)
	if !ok {
		return pylldb.Invalid()
	}
	return pylldb.LiteralValue(f.proc, v, nil)
}

func (f *Frame) Parent() (pylldb.Frame, bool) {
	if f.fp == 0 {
		return nil, false
	}
	savedBP, ok1 := f.proc.ReadBytes(pylldb.Addr(f.fp), 8)
	retAddr, ok2 := f.proc.ReadBytes(pylldb.Addr(f.fp+8), 8)
	if !ok1 || !ok2 {
		return nil, false
	}
	parentFP := binary.LittleEndian.Uint64(savedBP)
	parentPC := binary.LittleEndian.Uint64(retAddr)
	if parentFP == 0 || parentPC == 0 {
		return nil, false
	}
	return &Frame{proc: f.proc, pc: parentPC, fp: parentFP}, true
}

func gprValue(regs *unix.PtraceRegs, name string) (uint64, bool) {
	switch name {
	case "rax":
		return regs.Rax, true
	case "rbx":
		return regs.Rbx, true
	case "rcx":
		return regs.Rcx, true
	case "rdx":
		return regs.Rdx, true
	case "rsp":
		return regs.Rsp, true
	case "rbp":
		return regs.Rbp, true
	case "rdi":
		return regs.Rdi, true
	case "rsi":
		return regs.Rsi, true
	case "r8":
		return regs.R8, true
	case "r9":
		return regs.R9, true
	case "r10":
		return regs.R10, true
	case "r11":
		return regs.R11, true
	case "r12":
		return regs.R12, true
	case "r13":
		return regs.R13, true
	case "r14":
		return regs.R14, true
	case "r15":
		return regs.R15, true
	default:
		return 0, false
	}
}
