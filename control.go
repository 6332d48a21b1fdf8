package corert

import "time"

// YieldNow returns a future that suspends the current task for exactly one
// round, then completes — spec §6's `yield_now()`, built on the same
// direct-requeue plus `Call::None` idiom the spec names ("implemented via
// a no-op Call::None after re-queueing"). Must only be polled as part of a
// task driven by an Executor (i.e. via SpawnLocal/SpawnGlobal), since it
// needs Context.Task() to re-queue.
func YieldNow() Future[struct{}] { return &yieldNowFuture{} }

type yieldNowFuture struct{ yielded bool }

func (f *yieldNowFuture) Poll(cx *Context) (struct{}, PollState, error) {
	if f.yielded {
		return struct{}{}, Ready, nil
	}
	f.yielded = true
	t := cx.Task()
	// pushFront, not pushBack: runRound drains each queue from the tail
	// (popBack), so a tail-pushed yield would be popped again this same
	// round instead of deferring to the next one.
	cx.Executor().queueFor(t.locality).pushFront(t)
	return struct{}{}, Pending, nil
}

// Sleep returns a future that completes once d has elapsed, via the
// owning executor's sleeping set.
func Sleep(d time.Duration) Future[struct{}] { return SleepUntil(time.Now().Add(d)) }

// SleepUntil returns a future that completes once the wall clock reaches
// at, via the owning executor's sleeping set — spec §6's `sleep_until`.
func SleepUntil(at time.Time) Future[struct{}] { return &sleepFuture{at: at} }

type sleepFuture struct {
	at       time.Time
	inserted bool
}

func (f *sleepFuture) Poll(cx *Context) (struct{}, PollState, error) {
	if f.inserted {
		return struct{}{}, Ready, nil
	}
	f.inserted = true
	cx.Executor().sleeping.Insert(f.at, cx.Task())
	return struct{}{}, Pending, nil
}
