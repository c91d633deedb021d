package pylldb

// gprNames is the x86-64 general-purpose register enumeration order the
// frame-recovery heuristic scans. Surviving candidates are returned in
// this order, so it doubles as the heuristic's tie-break.
var gprNames = []string{
	"rax", "rbx", "rcx", "rdx", "rsp", "rbp", "rdi", "rsi",
	"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15",
}
