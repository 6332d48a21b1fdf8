package corert

// Context is the per-poll handle a Future uses to read back its Task/
// Executor identity, obtain a Waker to resume itself later, and — if it
// must suspend — set the single Call the executor performs right after
// the poll returns.
type Context struct {
	task *Task
	ex   *Executor
}

// Task returns the task currently being polled.
func (cx *Context) Task() *Task { return cx.task }

// Executor returns the executor driving this poll. Collaborators use this
// to reach the ready queues, sleeping set and I/O worker accessors listed
// in spec §4.1 (e.g. to implement sleep/sleep_until/yield_now outside the
// core).
func (cx *Context) Executor() *Executor { return cx.ex }

// Waker returns a Waker that resumes the current task.
func (cx *Context) Waker() *Waker { return NewWaker(cx.ex, cx.task) }

// SetCall records the deferred action the executor must perform
// immediately after this poll returns Pending. It is a programmer error to
// call SetCall more than once per poll, or to call it and then return
// Ready; neither is asserted against. Of several calls before a Pending
// return the last one wins; a call set before a Ready return is discarded.
func (cx *Context) SetCall(c Call) { cx.task.call = c }
