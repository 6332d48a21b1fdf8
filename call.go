package corert

import "sync/atomic"

// MemoryOrder documents the ordering a CallPushCurrentTaskToAndRemoveIfZero
// consumer intends for its counter load. Go's sync/atomic has no
// relaxed/acquire/release distinction the way Rust's atomics do — every
// operation on atomic.Int64/atomic.Bool is already sequentially
// consistent — so this field is carried only to keep the Call shape
// faithful to the protocol collaborators are specified against; it has no
// behavioural effect in this backend.
type MemoryOrder uint8

const (
	OrderRelaxed MemoryOrder = iota
	OrderAcquire
	OrderRelease
	OrderAcqRel
	OrderSeqCst
)

// CallKind tags the single deferred action a Task may request of its
// Executor immediately before yielding control.
type CallKind uint8

const (
	// CallNone: nothing; the task is simply suspended and must be
	// rewoken by some external event (typically a Waker tied to an
	// IoRequestData, or a collaborator holding the Task via an
	// AtomicTaskList).
	CallNone CallKind = iota
	// CallYieldCurrentGlobalTask: push the task to the front of the
	// global ready queue — a round-robin yield for global tasks.
	CallYieldCurrentGlobalTask
	// CallPushCurrentTaskTo: enqueue the task on an AtomicTaskList (a
	// condvar/channel waiting room implemented by an out-of-scope
	// collaborator).
	CallPushCurrentTaskTo
	// CallPushCurrentTaskToAndRemoveIfZero: enqueue the task on Queue,
	// then load Counter with the (nominal) ordering Order; if the loaded
	// value is zero, pop one task off Queue and re-poll it inline. Used
	// for race-free wait-group/semaphore release: the last releaser both
	// decrements the counter and immediately wakes a waiter, with no
	// window where a woken waiter finds the counter already re-incremented.
	CallPushCurrentTaskToAndRemoveIfZero
	// CallReleaseAtomicBool: store false into Bool (release semantics),
	// paired with a lock handoff completed by the collaborator that reads
	// Bool next.
	CallReleaseAtomicBool
	// CallPushFnToThreadPool: hand (task, Fn) to the LocalThreadWorkerPool;
	// the pool runs Fn on a worker goroutine and, once Fn returns, the
	// executor's maintenance pass re-enqueues the task onto its local queue.
	// With zero thread workers the executor panics with
	// ErrThreadPoolDisabled.
	CallPushFnToThreadPool
)

// Call is the single-slot deferred action a Future sets via
// Context.SetCall immediately before returning Pending, and which the
// Executor consumes immediately after the poll call returns.
//
// Invariant (spec §4.3 / §8): current_call is CallNone both immediately
// before and immediately after every poll. Between the moment a Future
// sets Call and the moment the Executor inspects it, no other code runs on
// this thread — which is what lets Call carry raw pointers/closures
// safely: by construction the referent outlives that window.
type Call struct {
	Kind    CallKind
	Queue   *AtomicTaskList
	Counter *atomic.Int64
	Order   MemoryOrder
	Bool    *atomic.Bool
	Fn      func()
}

// isZero reports whether c is the empty/None call, used by the executor to
// assert the protocol invariant in debug builds.
func (c Call) isZero() bool { return c.Kind == CallNone }
