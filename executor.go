package corert

import (
	"math/rand"
	"runtime"
	"sync/atomic"
	"time"
)

// execSeriesReset bounds how many consecutive synchronous ExecFuture
// calls may nest on one goroutine's stack before the executor forces a
// trampoline through the local queue instead of polling inline. Spec.md
// leaves the exact constant open within [64, 256]; resolved to 107 (§9
// of SPEC_FULL.md).
const execSeriesReset = 107

// maxSharedPullBatch bounds how many tasks a round pulls from an
// executor's own shared mailbox in one go, per spec §4.1's "MAX_BATCH = 16".
const maxSharedPullBatch = 16

var executorIDCounter atomic.Uint64

// Executor is a single-threaded, cooperative task scheduler. Exactly one
// goroutine may ever call Run/RunAndBlockOn* on a given Executor at a
// time; every other method documented as thread-confined must only be
// called from within that goroutine.
//
// Grounded on eventloop's Loop (loop.go): same single-owner ready-queue
// plus background-maintenance-pass shape, generalised from
// callback/timer/promise scheduling to polling generic Future values.
type Executor struct {
	id     uint64
	cfg    config
	logger Logger

	pool *TaskPool

	// local and global are the executor's two ready queues (spec §3):
	// local holds Local tasks, global holds Global tasks this executor
	// currently owns but hasn't shared away. Both are popped from the
	// tail (LIFO) within a round, per spec §4.1's cache-locality rationale.
	local  *readyQueue
	global *readyQueue

	// shared is this executor's own mailbox: other executors steal from
	// it, and this executor dumps its own overflow into it on
	// SpawnGlobal, and drains it back out during each round.
	shared *SharedExecutorTaskList
	state  SubscribedState
	rng    *rand.Rand

	execSeries int // inline ExecFuture polls since the round began, reset each round

	sleeping *SleepingSet
	io       IoWorker
	threads  *LocalThreadWorkerPool

	boundGoroutineID atomic.Uint64
	running          atomic.Bool
	stopRequested    atomic.Bool

	scratch []*Task // reusable buffer for batch drains
}

// NewExecutor constructs an Executor per opts, registering it with the
// global work-sharing registry. The returned Executor is not yet running;
// call Run (or RunAndBlockOnLocal/RunAndBlockOnGlobal) from the goroutine
// that should own it.
func NewExecutor(opts ...Option) (*Executor, error) {
	cfg := resolveOptions(opts)

	var io IoWorker
	if cfg.ioWorkerEnabled {
		w, err := newPlatformIoWorker()
		if err != nil {
			return nil, NewOpError("NewExecutor", ErrKindIo, err)
		}
		io = w
	}

	id := executorIDCounter.Add(1)
	ex := &Executor{
		id:       id,
		cfg:      cfg,
		logger:   cfg.logger,
		pool:     newTaskPool(),
		local:    newReadyQueue(),
		global:   newReadyQueue(),
		shared:   newSharedExecutorTaskList(id),
		rng:      rand.New(rand.NewSource(int64(id))), //nolint:gosec // scheduling jitter, not security sensitive
		sleeping: newSleepingSet(),
		io:       io,
		threads:  newLocalThreadWorkerPool(cfg.threadWorkers, cfg.bufferCap),
		scratch:  make([]*Task, 0, cfg.bufferCap),
	}
	globalRegistry.register(id, ex.shared)
	return ex, nil
}

// ID returns the executor's process-wide unique identifier.
func (ex *Executor) ID() uint64 { return ex.id }

// log emits entry through ex.logger, skipping the allocation in LogEntry
// construction entirely when the level isn't enabled.
func (ex *Executor) log(level LogLevel, category string, taskID uint64, msg string, err error) {
	if !ex.logger.IsEnabled(level) {
		return
	}
	ex.logger.Log(LogEntry{
		Level:      level,
		Category:   category,
		ExecutorID: ex.id,
		TaskID:     taskID,
		Message:    msg,
		Err:        err,
		Timestamp:  time.Now(),
	})
}

// IoWorker returns the executor's embedded IoWorker, or nil if
// WithIOWorker(false) was supplied at construction.
func (ex *Executor) IoWorker() IoWorker { return ex.io }

// queueFor returns the ready queue a task of the given locality belongs
// in on this executor.
func (ex *Executor) queueFor(locality Locality) *readyQueue {
	if locality == Global {
		return ex.global
	}
	return ex.local
}

// SpawnResult is the handle returned by SpawnLocal/SpawnGlobal/ExecFuture:
// a pointer the caller polls via Done to learn when the spawned future's
// result and error have been stashed.
type SpawnResult[T any] struct {
	task   *Task
	result T
	err    error
	done   bool
}

// Done reports whether the spawned future has completed.
func (r *SpawnResult[T]) Done() bool { return r.done }

// Value returns the completed future's result and error; call only after
// Done reports true.
func (r *SpawnResult[T]) Value() (T, error) { return r.result, r.err }

// SpawnLocal schedules f on this executor only; f (and anything it
// closes over) must never be accessed from another goroutine. Must be
// called from the executor's own run thread; while the executor is bound to
// a goroutine, a call from any other goroutine panics with ErrWrongThread.
func SpawnLocal[T any](ex *Executor, f Future[T]) *SpawnResult[T] {
	if ex.boundGoroutineID.Load() != 0 && !ex.isRunThread() {
		panic(ErrWrongThread)
	}
	r := &SpawnResult[T]{}
	adapter := newFutureAdapter(f, &r.result, &r.err, &r.done)
	t := ex.pool.get(ex, Local, callerName(), adapter)
	r.task = t
	ex.local.pushBack(t)
	ex.log(LevelDebug, "schedule", t.id, "spawn local", nil)
	return r
}

// SpawnGlobal schedules f so that it may be migrated to and polled by any
// registered Executor during work sharing; f must therefore be safe for
// concurrent access by whichever executor currently holds it (the type
// system cannot enforce this in Go, unlike a Send-bound generic in the
// teacher's source ecosystem, so it is the caller's responsibility).
//
// Per spec §4.1's work-sharing rule: if the local global queue would
// exceed workSharingLevel after this spawn, max(1, level/2) of its
// oldest entries are drained into this executor's own shared mailbox,
// where any registered executor (including this one, later) may steal
// them back.
func SpawnGlobal[T any](ex *Executor, f Future[T]) *SpawnResult[T] {
	r := &SpawnResult[T]{}
	adapter := newFutureAdapter(f, &r.result, &r.err, &r.done)
	t := ex.pool.get(ex, Global, callerName(), adapter)
	r.task = t
	ex.global.pushBack(t)
	ex.log(LevelDebug, "schedule", t.id, "spawn global", nil)
	ex.shedExcessWork()
	return r
}

// ExecFuture polls f inline on the calling goroutine, without going
// through a ready queue at all, for as long as execSeries (bounded by
// execSeriesReset within one round) permits — the trivial-value and
// synchronous-chain fast paths spec §8 scenarios 1 and 3 test. If f is
// still Pending when the series bound is hit, or never completes
// synchronously at all, it is spawned locally and the call blocks,
// driving the executor, until it completes.
func ExecFuture[T any](ex *Executor, f Future[T]) (T, error) {
	if ex.execSeries >= execSeriesReset {
		r := SpawnLocal(ex, f)
		ex.runUntil(func() bool { return r.Done() })
		return r.Value()
	}
	ex.execSeries++
	cx := &Context{ex: ex}
	v, state, err := f.Poll(cx)
	if state == Pending {
		r := SpawnLocal(ex, f)
		ex.runUntil(func() bool { return r.Done() })
		return r.Value()
	}
	return v, err
}

func callerName() string {
	pc, _, _, ok := runtime.Caller(2)
	if !ok {
		return "spawn"
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "spawn"
	}
	return fn.Name()
}

// wake re-enqueues t on its owning executor. For Local tasks this must be
// called from ex's own run thread (true of every built-in caller); Global
// tasks may be woken from any goroutine, landing on ex.shared so the next
// round's mailbox pull picks them up even if ex is mid-iteration on
// another core.
func (ex *Executor) wake(t *Task) {
	ex.log(LevelDebug, "schedule", t.id, "wake", nil)
	if t.locality == Global && !ex.isRunThread() {
		ex.shared.Push(t)
		return
	}
	ex.queueFor(t.locality).pushBack(t)
}

// Run drives the executor's scheduling loop until Stop is requested
// (via StopExecutor(ex.ID()) or StopAllExecutors), or forever if no stop
// is ever requested. It returns as soon as a stop is observed; tasks still
// queued at that point are abandoned without being polled. Must be called from the goroutine that will own this
// executor; that goroutine is pinned with runtime.LockOSThread for the
// duration, mirroring the thread affinity eventloop's poller requires.
func (ex *Executor) Run() error {
	if ex.isRunThread() {
		return NewOpError("Executor.Run", ErrKindInvalidState, nil)
	}
	if !ex.running.CompareAndSwap(false, true) {
		return NewOpError("Executor.Run", ErrKindInvalidState, nil)
	}
	defer ex.running.Store(false)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	ex.bindToCurrentGoroutine()
	defer ex.unbindFromGoroutine()
	defer ex.teardown()

	for {
		if ex.stopRequested.Load() || ex.state.Stop {
			return nil
		}
		stop := ex.runRound()
		if stop {
			return nil
		}
		if ex.idle() {
			ex.maybeSleep()
		}
	}
}

func (ex *Executor) teardown() {
	globalRegistry.unregister(ex.id)
	if ex.io != nil {
		_ = ex.io.Close()
	}
	ex.threads.Close()
}

// runUntil drives rounds until done reports true or the executor is asked
// to stop; used by ExecFuture and RunAndBlockOn*.
func (ex *Executor) runUntil(done func() bool) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	ex.bindToCurrentGoroutine()
	defer ex.unbindFromGoroutine()
	for !done() {
		if ex.stopRequested.Load() || ex.state.Stop {
			return
		}
		if stop := ex.runRound(); stop {
			return
		}
		if ex.idle() && !done() {
			ex.maybeSleep()
		}
	}
}

// RunAndBlockOnLocal spawns f locally and blocks (driving the executor)
// until it completes, returning the final value/error, or
// ErrStoppedBeforeCompletion if the executor was stopped first.
func RunAndBlockOnLocal[T any](ex *Executor, f Future[T]) (T, error) {
	r := SpawnLocal(ex, f)
	ex.runUntil(func() bool { return r.Done() })
	if !r.Done() {
		var zero T
		return zero, ErrStoppedBeforeCompletion
	}
	return r.Value()
}

// RunAndBlockOnGlobal is RunAndBlockOnLocal's Global-task counterpart.
func RunAndBlockOnGlobal[T any](ex *Executor, f Future[T]) (T, error) {
	r := SpawnGlobal(ex, f)
	ex.runUntil(func() bool { return r.Done() })
	if !r.Done() {
		var zero T
		return zero, ErrStoppedBeforeCompletion
	}
	return r.Value()
}

// idle reports whether the executor currently has no ready work at all,
// used to decide whether the maintenance pass may sleep briefly.
func (ex *Executor) idle() bool {
	return ex.local.len() == 0 && ex.global.len() == 0
}

// maybeSleep blocks up to 1ms (per spec §4.1 step 6) so an otherwise-empty
// executor doesn't spin its core at 100%, waking early on any I/O
// completion.
func (ex *Executor) maybeSleep() {
	budget := time.Millisecond
	if at, ok := ex.sleeping.NextWake(); ok {
		if d := time.Until(at); d < budget {
			if d < 0 {
				d = 0
			}
			budget = d
		}
	}
	if ex.io != nil {
		ex.io.MustPoll(budget)
		return
	}
	time.Sleep(budget)
}

// runRound executes one scheduling round: a snapshot count of each ready
// queue's length is taken, that many tasks are popped from the tail
// (LIFO) and polled, then the executor tops up its global queue and runs
// the seven-step background maintenance pass. Returns true if the
// executor should stop.
//
// Grounded on eventloop's tick() (loop.go) for the overall
// drain-then-maintain shape, generalised from eventloop's FIFO job
// closures to polling suspended Future values in LIFO order, per spec
// §4.1's explicit round/LIFO contract.
func (ex *Executor) runRound() bool {
	ex.execSeries = 0

	nLocal := ex.local.len()
	for i := 0; i < nLocal; i++ {
		t, ok := ex.local.popBack()
		if !ok {
			break
		}
		ex.pollTask(t)
	}

	nGlobal := ex.global.len()
	for i := 0; i < nGlobal; i++ {
		t, ok := ex.global.popBack()
		if !ok {
			break
		}
		ex.pollTask(t)
	}

	if ex.cfg.workSharingLevel <= 0 || ex.global.len() < ex.cfg.workSharingLevel {
		ex.scratch = ex.scratch[:0]
		ex.scratch = ex.shared.TakeBatch(ex.scratch, maxSharedPullBatch)
		for _, t := range ex.scratch {
			ex.global.pushBack(t)
		}
	}

	return ex.backgroundMaintenance()
}

// backgroundMaintenance performs the seven-step pass spec §4.1 prescribes.
// Returns true once the registry has signalled this executor to stop.
func (ex *Executor) backgroundMaintenance() bool {
	// 1. refresh subscription snapshot; stop check.
	globalRegistry.snapshot(ex.id, &ex.state)
	if ex.state.Stop {
		return true
	}

	// 2. pull work from peers if our global queue is empty, starting at a
	// random peer and visiting a random number of them.
	if ex.cfg.workSharingLevel > 0 && ex.global.len() == 0 && len(ex.state.Peers) > 0 {
		n := len(ex.state.Peers)
		start := ex.rng.Intn(n)
		victims := 1 + ex.rng.Intn(n)
		for i := 0; i < victims; i++ {
			peer := ex.state.Peers[(start+i)%n]
			if peer.OwnerID == ex.id {
				continue
			}
			ex.scratch = ex.scratch[:0]
			ex.scratch = peer.TakeBatch(ex.scratch, maxSharedPullBatch)
			for _, t := range ex.scratch {
				ex.global.pushBack(t)
				ex.log(LevelDebug, "schedule", t.id, "steal", nil)
			}
		}
	}

	// 3. drain completed thread-pool jobs back into the local queue.
	jobs := ex.threads.DrainCompleted(nil)
	for _, job := range jobs {
		if job.panic != nil {
			ex.log(LevelError, "threadpool", job.task.id, "job panicked", PanicError{Value: job.panic})
		}
		ex.local.pushBack(job.task)
	}

	// 4. zero-timeout IoWorker poll.
	if ex.io != nil {
		if ex.io.MustPoll(0) {
			ex.log(LevelDebug, "io", 0, "poll made progress", nil)
		}
	}

	// 5. sleeping-set drain.
	due := ex.sleeping.DrainDue(time.Now())
	for _, t := range due {
		ex.queueFor(t.locality).pushBack(t)
		ex.log(LevelDebug, "sleep", t.id, "due", nil)
	}

	// 6. the bounded idle sleep itself is step 6, performed by the
	// Run/runUntil caller via maybeSleep once idle() confirms both
	// queues are empty, so a round that just pulled fresh work doesn't
	// sleep before polling it.

	// 7. opportunistic shrink.
	ex.local.shrinkIfSparse()
	ex.global.shrinkIfSparse()

	return false
}

// shedExcessWork implements spec §4.1's work-sharing rule: once the
// global ready queue exceeds workSharingLevel, shed max(1, level/2) of
// its oldest tasks into this executor's own shared mailbox.
func (ex *Executor) shedExcessWork() {
	level := ex.cfg.workSharingLevel
	if level <= 0 || ex.global.len() <= level {
		return
	}
	shed := level / 2
	if shed < 1 {
		shed = 1
	}
	ex.scratch = ex.scratch[:0]
	ex.scratch = ex.global.drainFront(ex.scratch, shed)
	for _, t := range ex.scratch {
		ex.shared.Push(t)
	}
}

func (ex *Executor) pollTask(t *Task) {
	cx := &Context{task: t, ex: ex}
	complete := t.poll(cx)
	if complete {
		ex.pool.put(t)
		return
	}
	call := t.takeCall()
	ex.applyCall(t, call)
}

// applyCall performs the single deferred action a task requested via
// Context.SetCall immediately before returning Pending, consuming it
// exactly once per poll — the Go realisation of spec §4.3's suspension
// protocol.
func (ex *Executor) applyCall(t *Task, call Call) {
	switch call.Kind {
	case CallNone:
		// Task must be woken by some external event (a Waker tied to an
		// IoRequestData, a collaborator holding it via an AtomicTaskList).
	case CallYieldCurrentGlobalTask:
		ex.global.pushFront(t)
	case CallPushCurrentTaskTo:
		if call.Queue != nil {
			call.Queue.Push(t)
		}
	case CallPushCurrentTaskToAndRemoveIfZero:
		if call.Queue != nil {
			call.Queue.Push(t)
		}
		if call.Counter != nil && call.Counter.Load() == 0 {
			if woken, ok := call.Queue.Pop(); ok {
				ex.pollTask(woken)
			}
		}
	case CallReleaseAtomicBool:
		if call.Bool != nil {
			call.Bool.Store(false)
		}
	case CallPushFnToThreadPool:
		if err := ex.threads.Submit(t, call.Fn); err != nil {
			if err == ErrThreadPoolDisabled {
				// Zero thread workers is a fatal configuration error.
				panic(err)
			}
			// Pool closed: the task is re-queued without Fn having run.
			ex.queueFor(t.locality).pushBack(t)
		}
	}
}
