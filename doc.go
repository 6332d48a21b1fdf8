// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package corert provides the core of a per-thread, completion-oriented
// async runtime: a cooperative [Executor] that multiplexes [Task] values
// onto a single OS thread, a per-thread [IoWorker] that owns the
// interaction with the operating system's I/O readiness/completion
// mechanism, and the narrow [Call] suspension protocol that connects them.
//
// # Architecture
//
// Each [Executor] owns exactly one OS thread (bound via
// runtime.LockOSThread), one [IoWorker], one [TaskPool], one [SleepingSet]
// and two ready queues ("local" and "global"). Tasks are lazy, resumable
// computations modelled as [Future] values; the executor is the only
// caller of Poll. A task that cannot make progress sets a [Call] — a
// single-slot deferred action — immediately before returning control, and
// the executor performs that action immediately after the poll returns.
//
// Parallelism comes from running several executors, one per core, not from
// any executor running tasks concurrently. Executors collaborate through a
// small set of cross-thread structures: the global [registry] (executor
// discovery and stop signalling), [SharedExecutorTaskList] (work sharing)
// and [AtomicTaskList] (generic cross-thread task handoff, e.g. for
// condvar/channel waiting rooms built on top of this core).
//
// # Platform support
//
// I/O readiness is implemented using platform-native mechanisms:
//   - Linux: epoll
//   - macOS: kqueue
//   - other: a stub that reports [ErrKindUnsupported] for every operation
//
// # Usage
//
//	ex, err := corert.NewExecutor(corert.WithWorkSharingLevel(64))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	v, err := corert.RunAndBlockOnLocal[int](ex, someFuture)
//
// # Thread safety
//
// The registry/shared-list machinery ([StopExecutor], [StopAllExecutors],
// [AtomicTaskList], [SharedExecutorTaskList]) and [Waker.Wake] for Global
// tasks are safe to call from any goroutine. [SpawnLocal], [SpawnGlobal]
// and [ExecFuture] touch the executor's thread-confined queues and task
// pool, so they must be called only from the executor's own bound thread,
// or before it starts running. Only SpawnLocal checks this: while the
// executor is bound, a call from another goroutine panics with
// [ErrWrongThread]. The type system can't enforce locality any more than
// it enforces Rust's thread-confinement story, so keeping SpawnGlobal's
// futures safe for cross-thread access is the caller's responsibility.
package corert
