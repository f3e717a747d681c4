/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Mar 11 13:41:33 2019 mstenber
 * Last modified: Fri Mar 22 09:27:12 2019 mstenber
 * Edit time:     48 min
 *
 */

// mlog is maybe-log. It is a small wrapper of standard 'log' (only
// Printf-style calls), which prints only what matches a file
// pattern:
//
// - the pattern comes from the MLOG environment variable, or from
// SetPattern (the readfs command line exposes it as --mlog); what is
// not printed costs next to nothing (by default, everything is off)
//
// - call stack depth is used to indent the output automatically, so
// nested step machines are readable in traces
//
// - every line carries the goroutine id, which tells the executor
// goroutine apart from storage transfer goroutines
package mlog

import (
	"fmt"
	"log"
	"os"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fingon/go-readfs/util/gid"
)

const (
	stateUninitialized int32 = iota
	stateDisabled
	stateEnabled
)

const maxDepth = 100

// EnvironmentVariable is consulted on first use if SetPattern has not
// been called.
const EnvironmentVariable = "MLOG"

// status is accessed atomically; everything in the struct below only
// with the mutex held.
var status = stateUninitialized

var state struct {
	sync.Mutex
	logger     *log.Logger
	pattern    string
	re         *regexp.Regexp
	fileDebug  map[string]bool
	minDepth   int
	callers    []uintptr
	dumpGids   bool
	configured bool
}

func init() {
	state.logger = log.New(os.Stderr, "", log.Ltime|log.Lmicroseconds)
	state.dumpGids = true
	Reset()
}

// Reset forgets the depth baseline and the pattern, so that the next
// log call re-reads the environment.
func Reset() {
	state.Lock()
	defer state.Unlock()
	state.minDepth = maxDepth
	state.callers = make([]uintptr, maxDepth)
	state.configured = false
	atomic.StoreInt32(&status, stateUninitialized)
}

// IsEnabled can be used to check if mlog is in use at all before
// doing something expensive.
func IsEnabled() bool {
	return atomic.LoadInt32(&status) != stateDisabled
}

// SetLogger overrides the output logger. The returned function
// restores the previous one.
func SetLogger(l *log.Logger) (undo func()) {
	state.Lock()
	defer state.Unlock()
	old := state.logger
	state.logger = l
	return func() {
		state.Lock()
		defer state.Unlock()
		state.logger = old
	}
}

// SetPattern sets the file regular expression, overriding the
// environment. The returned function restores the previous pattern.
func SetPattern(p string) (undo func()) {
	state.Lock()
	defer state.Unlock()
	old := state.pattern
	usePattern(p)
	return func() {
		state.Lock()
		defer state.Unlock()
		usePattern(old)
	}
}

// SetGoroutineIDs toggles goroutine id prefixes. Mostly for tests
// that compare exact output.
func SetGoroutineIDs(enabled bool) {
	state.Lock()
	defer state.Unlock()
	state.dumpGids = enabled
}

func usePattern(p string) {
	state.pattern = p
	state.configured = true
	state.fileDebug = make(map[string]bool)
	if p == "" {
		state.re = nil
		atomic.StoreInt32(&status, stateDisabled)
		return
	}
	state.re = regexp.MustCompile(p)
	atomic.StoreInt32(&status, stateEnabled)
}

// Printf is drop-in replacement of log.Printf. It has to find out
// the calling file with runtime.Caller, so Printf2 is cheaper.
func Printf(format string, args ...interface{}) {
	if atomic.LoadInt32(&status) == stateDisabled {
		return
	}
	_, file, _, ok := runtime.Caller(1)
	if !ok {
		return
	}
	Printf2(file, format, args...)
}

// Printf2 is given the name of the file by hand, and therefore costs
// an atomic load when logging is off.
func Printf2(file string, format string, args ...interface{}) {
	if atomic.LoadInt32(&status) == stateDisabled {
		return
	}
	state.Lock()
	defer state.Unlock()
	if !state.configured {
		usePattern(os.Getenv(EnvironmentVariable))
	}
	if state.re == nil {
		return
	}
	debug, ok := state.fileDebug[file]
	if !ok {
		debug = state.re.MatchString(file)
		state.fileDebug[file] = debug
	}
	if !debug {
		return
	}
	depth := runtime.Callers(1, state.callers)
	if depth < state.minDepth {
		state.minDepth = depth
	}
	depth -= state.minDepth
	if depth > 0 {
		format = strings.Repeat(".", depth) + format
	}
	if state.dumpGids {
		format = fmt.Sprintf("%8d %s", gid.GetGoroutineID(), format)
	}
	state.logger.Printf(format, args...)
}
