package pylldb

import (
	"log"
	"sync"
)

// onceLogger rate-limits a recurring, non-fatal error class to a single
// log.Printf: a warning that would otherwise fire once per frame of a deep
// stack prints one time. Every error this package logs is already being
// swallowed (the extension never raises to the host debugger); these logs
// exist purely so a developer attached to stderr can see what degraded.
type onceLogger struct {
	once sync.Once
}

func (o *onceLogger) Printf(format string, args ...any) {
	o.once.Do(func() {
		log.Printf(format, args...)
	})
}

var (
	onceTypeLookupFailed onceLogger
	onceSplitDictSkipped onceLogger
	onceSourceReadFailed onceLogger
	oncePprofWriteFailed onceLogger
)
