package corert

import "sync/atomic"

// Locality controls which executor(s) may poll a Task. The type system
// does not enforce it at Spawn time: SpawnLocal and SpawnGlobal accept the
// same Future[T] type. Keeping a Local future off other threads, and making
// a Global future safe to migrate (its closed-over state must not itself be
// thread-confined), is the caller's responsibility, the same way
// eventloop's Submit vs SubmitInternal split trusts the caller not to hand
// internal-priority work across the external queue.
type Locality uint8

const (
	// Local tasks may only be polled by the executor that spawned them.
	Local Locality = iota
	// Global tasks are safe to migrate across executors via work sharing.
	Global
)

// String implements fmt.Stringer.
func (l Locality) String() string {
	if l == Global {
		return "global"
	}
	return "local"
}

var taskIDCounter atomic.Uint64

// Task is an opaque handle to a suspended computation.
//
// Invariant (spec §3/§8): at any instant a Task is referenced by exactly
// one of: an executor ready queue, an AtomicTaskList, the sleeping set, an
// in-flight IoRequestData, a thread-pool job, or the executing stack
// frame. Referencing it from two of those at once is a use-after-free —
// this package never does so, and collaborators built on AtomicTaskList
// must preserve the same discipline.
type Task struct {
	id       uint64
	name     string
	locality Locality
	owner    *Executor
	step     future
	call     Call
}

func newTask(owner *Executor, locality Locality, name string, step future) *Task {
	return &Task{
		id:       taskIDCounter.Add(1),
		name:     name,
		locality: locality,
		owner:    owner,
		step:     step,
	}
}

// ID returns the task's process-wide unique, monotonic identifier.
func (t *Task) ID() uint64 { return t.id }

// Name returns the task's debug name, typically the spawn call site.
func (t *Task) Name() string { return t.name }

// Locality reports whether this task may migrate across executors.
func (t *Task) Locality() Locality { return t.locality }

// Owner returns the executor that currently owns this task.
func (t *Task) Owner() *Executor { return t.owner }

// poll drives the task once, clearing any stale Call first so the
// CallNone-before/after-every-poll invariant holds even if a previous
// caller forgot to consume it. Returns true if the computation completed.
func (t *Task) poll(cx *Context) bool {
	t.call = Call{}
	return t.step.poll(cx)
}

// takeCall removes and returns the Call the just-completed poll set,
// resetting the slot to CallNone.
func (t *Task) takeCall() Call {
	c := t.call
	t.call = Call{}
	return c
}

// TaskPool is a thread-confined arena for Task handles: it recycles freed
// Tasks instead of returning them to the GC, mirroring eventloop's reuse
// of pooled chunk nodes (ingress.go's chunkPool/newChunk/returnChunk) to
// keep a hot scheduling path allocation-light. Unlike chunkPool, TaskPool
// carries no synchronization: it belongs to exactly one Executor and must
// only ever be touched from that executor's own thread.
type TaskPool struct {
	free []*Task
}

func newTaskPool() *TaskPool { return &TaskPool{} }

// get returns a Task configured for (owner, locality, name, step), reusing
// a freed handle when one is available.
func (p *TaskPool) get(owner *Executor, locality Locality, name string, step future) *Task {
	if n := len(p.free); n > 0 {
		t := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		t.id = taskIDCounter.Add(1)
		t.name = name
		t.locality = locality
		t.owner = owner
		t.step = step
		t.call = Call{}
		return t
	}
	return newTask(owner, locality, name, step)
}

// put returns t to the pool once its stepper has signalled completion.
func (p *TaskPool) put(t *Task) {
	t.step.drop()
	t.step = nil
	t.owner = nil
	p.free = append(p.free, t)
}
