//go:build linux && amd64

package ptraceproc

import (
	"log"
	"sync"
)

// onceLogger mirrors pylldb's logging.go: rate-limit a recurring,
// non-fatal error class to a single log.Printf.
type onceLogger struct {
	once sync.Once
}

func (o *onceLogger) Printf(format string, args ...any) {
	o.once.Do(func() {
		log.Printf(format, args...)
	})
}

var onceSymbolLoadFailed onceLogger
