package corert

import "time"

// IoRequestData is the per-in-flight-operation record an operation future
// owns for its entire lifetime: the IoWorker writes its result here on
// completion and wakes the stored Waker. The future must not move or
// reuse this value between submission and completion.
type IoRequestData struct {
	// Result is the return slot: a byte/fd count on success, -1 on error
	// (in which case Err is set).
	Result int
	Err    error
	Waker  *Waker

	// Deadline is the absolute instant after which the operation resolves
	// with ErrKindTimedOut instead of completing normally. The zero value
	// means no deadline.
	Deadline time.Time

	// FixedBufIndex identifies a pre-registered zero-copy buffer for
	// network/file-data operations; -1 means "use the caller-supplied
	// buffer argument instead of a registered one". No backend in this
	// package registers buffers: every backend ignores this field and
	// always uses the caller-supplied buffer.
	FixedBufIndex int32
}

// IoWorker is the per-thread submission/completion engine every Executor
// optionally owns. One method per OS operation the runtime supports;
// deadline and fixed-buffer behaviour travel on the IoRequestData each
// call receives, rather than doubling the method set (§9 resolution).
//
// Every method follows the same submission model: record req, attempt the
// operation, and either complete req synchronously (returning true) or
// register interest with the backend's readiness mechanism and return
// false, in which case the backend itself will complete req and invoke
// req.Waker.Wake() once the fd becomes ready and the retried syscall
// succeeds or fails terminally.
type IoWorker interface {
	Socket(domain, typ, proto int, req *IoRequestData) bool
	Accept(fd int, req *IoRequestData) bool
	Connect(fd int, addr []byte, req *IoRequestData) bool
	PollReadable(fd int, req *IoRequestData) bool
	PollWritable(fd int, req *IoRequestData) bool
	Recv(fd int, buf []byte, req *IoRequestData) bool
	Send(fd int, buf []byte, req *IoRequestData) bool
	RecvFrom(fd int, buf []byte, req *IoRequestData) bool
	SendTo(fd int, buf []byte, addr []byte, req *IoRequestData) bool
	Peek(fd int, buf []byte, req *IoRequestData) bool
	PeekFrom(fd int, buf []byte, req *IoRequestData) bool
	Shutdown(fd int, how int, req *IoRequestData) bool

	Open(path string, flags int, mode uint32, req *IoRequestData) bool
	Read(fd int, buf []byte, req *IoRequestData) bool
	Pread(fd int, buf []byte, offset int64, req *IoRequestData) bool
	Write(fd int, buf []byte, req *IoRequestData) bool
	Pwrite(fd int, buf []byte, offset int64, req *IoRequestData) bool
	Fallocate(fd int, offset, length int64, req *IoRequestData) bool
	SyncAll(fd int, req *IoRequestData) bool
	SyncData(fd int, req *IoRequestData) bool
	CloseFile(fd int, req *IoRequestData) bool
	CloseSocket(fd int, req *IoRequestData) bool
	Rename(oldPath, newPath string, req *IoRequestData) bool
	CreateDir(path string, mode uint32, req *IoRequestData) bool
	RemoveFile(path string, req *IoRequestData) bool
	RemoveDir(path string, req *IoRequestData) bool

	// HasWork reports whether any in-flight operation still has a pending
	// deadline. Operations registered with the readiness backend without a
	// deadline are not counted.
	HasWork() bool
	// MustPoll blocks up to timeout for at least one completion, returning
	// true if the backend made progress (the executor should re-check its
	// ready queue) and false on a clean timeout.
	MustPoll(timeout time.Duration) bool

	// Close releases the backend's OS resources (epoll/kqueue fd). Called
	// once, from Executor shutdown.
	Close() error
}

// newPlatformIoWorker is implemented per-platform in ioworker_unix.go
// (linux and darwin share the readiness-based backend) and
// ioworker_other.go (every other GOOS).
func newPlatformIoWorker() (IoWorker, error) {
	return newPlatformIoWorkerImpl()
}
