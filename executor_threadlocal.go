package corert

import (
	"runtime"
	"sync"
)

// getGoroutineID parses the calling goroutine's id out of a runtime stack
// dump. Go has no public goroutine-local storage, so this is the same
// workaround eventloop's loop.go uses for isLoopThread/loopGoroutineID —
// corert needs the identical trick for local_executor()/LocalExecutor() to
// find which Executor, if any, owns the calling goroutine.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}

var executorByGoroutine sync.Map // goroutineID uint64 -> *Executor

// bindToCurrentGoroutine records ex as owned by the calling goroutine, for
// LocalExecutor to find. Called at the top of Run and of runUntil (which
// backs ExecFuture's fallback and RunAndBlockOn*).
func (ex *Executor) bindToCurrentGoroutine() {
	gid := getGoroutineID()
	ex.boundGoroutineID.Store(gid)
	executorByGoroutine.Store(gid, ex)
}

func (ex *Executor) unbindFromGoroutine() {
	gid := ex.boundGoroutineID.Swap(0)
	if gid != 0 {
		executorByGoroutine.Delete(gid)
	}
}

// isRunThread reports whether the calling goroutine is the one currently
// running ex.Run, mirroring eventloop's isLoopThread.
func (ex *Executor) isRunThread() bool {
	bound := ex.boundGoroutineID.Load()
	return bound != 0 && bound == getGoroutineID()
}

// LocalExecutor returns the Executor bound to the calling goroutine by a
// currently in-progress Run, RunAndBlockOn* or ExecFuture-fallback call, or
// nil if none is bound.
func LocalExecutor() *Executor {
	v, ok := executorByGoroutine.Load(getGoroutineID())
	if !ok {
		return nil
	}
	return v.(*Executor)
}
