// Command pylldb is a minimal standalone driver for the command surface:
// attach to a running CPython process by pid and serve py-bt/py-list/
// py-locals/py-up/py-down from an interactive stdin loop. It stands in for
// the real host debugger's command prompt.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/stealthrocket/pylldb"
	"github.com/stealthrocket/pylldb/ptraceproc"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pylldb: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		pid        int
		dictLayout string
	)
	flags := pflag.NewFlagSet("pylldb", pflag.ExitOnError)
	flags.IntVar(&pid, "pid", 0, "pid of the CPython process to attach to")
	flags.StringVar(&dictLayout, "dict-layout", "packed",
		"PyDictObject.ma_keys layout of the attached build: \"packed\" (>=3.6) or \"direct\" (<3.6)")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}
	if pid == 0 {
		return fmt.Errorf("--pid is required")
	}

	layout, err := parseDictLayout(dictLayout)
	if err != nil {
		return err
	}

	proc, err := ptraceproc.Attach(pid, layout)
	if err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	defer proc.Detach()

	thread, err := ptraceproc.NewThread(proc)
	if err != nil {
		return fmt.Errorf("read registers: %w", err)
	}

	session := pylldb.NewSession(proc)
	dbg := &driver{thread: thread}
	session.Register(dbg)

	return repl(dbg)
}

func parseDictLayout(s string) (pylldb.DictLayout, error) {
	switch s {
	case "packed":
		return pylldb.DictLayoutPacked, nil
	case "direct":
		return pylldb.DictLayoutDirect, nil
	default:
		return 0, fmt.Errorf("unknown --dict-layout %q (want \"packed\" or \"direct\")", s)
	}
}

// driver is the thin pylldb.Debugger adapter around a single attached
// thread: its frame list never changes, since this binary has no continue/
// step command and the debuggee stays stopped for its whole lifetime.
type driver struct {
	thread   *ptraceproc.Thread
	commands map[string]func(args []string) string
}

func (d *driver) RegisterCommand(name string, handler func(args []string) string) {
	if d.commands == nil {
		d.commands = make(map[string]func(args []string) string)
	}
	d.commands[name] = handler
}

func (d *driver) RegisterTypeSummary(typeName string, fn func(pylldb.Value) string) {}

func (d *driver) SelectedFrame() (pylldb.Frame, bool) {
	frames := d.thread.Frames()
	if len(frames) == 0 {
		return nil, false
	}
	return frames[0], true
}

func (d *driver) CurrentThread() (pylldb.Thread, bool) {
	return d.thread, true
}

// repl reads "command arg..." lines from stdin until EOF, dispatching each
// into the command surface registered on d.
func repl(d *driver) error {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(os.Stdout, "(pylldb) ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		handler, ok := d.commands[fields[0]]
		if !ok {
			fmt.Fprintf(os.Stdout, "unknown command %q\n", fields[0])
			continue
		}
		fmt.Fprintln(os.Stdout, handler(fields[1:]))
	}
}
