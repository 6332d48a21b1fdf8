package corert

// Waker is a notification handle referencing a Task. Calling Wake
// re-enqueues the task on its owning executor so it will be polled again.
//
// Wakers are handed to collaborators (operation futures, sync primitives)
// so they can resume a task once whatever it was waiting for happens. An
// IoWorker completion is always observed on the thread of the Executor
// that owns the waited-on Task (the IoWorker is itself thread-confined),
// so Wake's common case is a same-thread push; the Global-task path
// additionally supports being invoked from a foreign goroutine.
type Waker struct {
	task  *Task
	owner *Executor
}

// NewWaker builds a Waker for t, owned by ex. Operation futures store this
// in their IoRequestData on first poll.
func NewWaker(ex *Executor, t *Task) *Waker {
	return &Waker{task: t, owner: ex}
}

// Task returns the task this waker resumes.
func (w *Waker) Task() *Task { return w.task }

// Wake re-enqueues the referenced task on its owning executor's ready
// queue, to be polled again on that executor's next round.
//
// Local tasks: Wake must be called from the owning executor's own thread
// (true for every built-in caller — IoWorker completions and deadline
// expiries — since the IoWorker is thread-confined to the owning executor).
// Global tasks: Wake is safe to call from any goroutine; it hands the task
// to the owner's cross-thread incoming list, the way a Waker for a Global
// task backed by an AtomicTaskList waiting room would.
func (w *Waker) Wake() {
	if w == nil || w.task == nil || w.owner == nil {
		return
	}
	w.owner.wake(w.task)
}
