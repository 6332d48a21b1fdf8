//go:build linux || darwin

package corert

import (
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// unixIoWorker implements IoWorker on Linux and Darwin alike: socket
// operations are readiness-based (register with the platform poller,
// retry on readiness), since no io_uring (or equivalent completion-queue)
// binding exists anywhere in the example corpus this module is grounded
// on. Filesystem metadata/data operations have no non-blocking readiness
// signal on regular files without such a completion interface, so they
// run synchronously inline and complete before the submitting call
// returns — a known, deliberate limitation rather than a hidden one (see
// DESIGN.md).
type unixIoWorker struct {
	poller    osPoller
	deadlines *ioDeadlines
	mu        sync.Mutex
}

func newPlatformIoWorkerImpl() (IoWorker, error) {
	p := newOSPoller()
	if err := p.init(); err != nil {
		return nil, err
	}
	return &unixIoWorker{poller: p, deadlines: newIODeadlines()}, nil
}

func (w *unixIoWorker) Close() error { return w.poller.close() }

func (w *unixIoWorker) HasWork() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.deadlines.len() > 0
}

func (w *unixIoWorker) MustPoll(timeout time.Duration) bool {
	ms := int(timeout / time.Millisecond)
	if timeout < 0 {
		ms = -1
	}
	n, err := w.poller.poll(ms)
	w.mu.Lock()
	expired := w.deadlines.expireDue(time.Now())
	w.mu.Unlock()
	for _, e := range expired {
		if e.fd >= 0 {
			_ = w.poller.unregisterFD(e.fd)
		}
	}
	return err == nil && (n > 0 || len(expired) > 0)
}

// complete writes result/err into req and wakes its waker, cancelling any
// pending deadline for it first.
func (w *unixIoWorker) complete(req *IoRequestData, entry *ioDeadlineEntry, result int, err error) bool {
	w.mu.Lock()
	w.deadlines.cancel(entry)
	w.mu.Unlock()
	if err != nil {
		result = -1
	}
	req.Result = result
	req.Err = err
	if req.Waker != nil {
		req.Waker.Wake()
	}
	return true
}

// submitReadiness implements the "try now, register on EAGAIN" pattern
// common to every socket operation: attempt is the raw syscall; on
// success or a terminal error it completes req immediately (returns
// true); on EAGAIN/EWOULDBLOCK it registers fd with the poller for
// events and returns false, deferring completion to the poller's
// eventual readiness callback.
func (w *unixIoWorker) submitReadiness(fd int, events ioEvents, req *IoRequestData, attempt func() (int, error)) bool {
	entry := w.registerDeadline(req, fd)
	n, err := attempt()
	if err != unix.EAGAIN && err != unix.EWOULDBLOCK {
		return w.complete(req, entry, n, wrapIOErr(err))
	}
	waiter := &readinessWaiter{
		req:  req,
		want: events,
		retry: func() (int, error) {
			return attempt()
		},
		entry:  entry,
		worker: w,
	}
	if regErr := w.poller.registerFD(fd, events, waiter); regErr != nil {
		return w.complete(req, entry, -1, regErr)
	}
	return false
}

// submitSync runs fn inline and completes req with its result, for
// operations with no non-blocking readiness signal (regular-file I/O,
// rename, mkdir, …).
func (w *unixIoWorker) submitSync(req *IoRequestData, fn func() (int, error)) bool {
	entry := w.registerDeadline(req, -1)
	n, err := fn()
	return w.complete(req, entry, n, wrapIOErr(err))
}

// registerDeadline inserts req's deadline, if any, associating it with fd
// (-1 if the operation has no registered fd, e.g. submitSync paths) so an
// expiry can unregister the right fd from the poller.
func (w *unixIoWorker) registerDeadline(req *IoRequestData, fd int) *ioDeadlineEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.deadlines.insert(req, fd)
}

func wrapIOErr(err error) error {
	if err == nil {
		return nil
	}
	return NewOpError("io", ErrKindIo, err)
}

func (w *unixIoWorker) Socket(domain, typ, proto int, req *IoRequestData) bool {
	return w.submitSync(req, func() (int, error) {
		fd, err := unix.Socket(domain, typ|unix.SOCK_NONBLOCK, proto)
		return fd, err
	})
}

func (w *unixIoWorker) Accept(fd int, req *IoRequestData) bool {
	return w.submitReadiness(fd, ioEventRead, req, func() (int, error) {
		nfd, _, err := unix.Accept4(fd, unix.SOCK_NONBLOCK)
		return nfd, err
	})
}

func (w *unixIoWorker) Connect(fd int, addr []byte, req *IoRequestData) bool {
	sa, err := bytesToSockaddr(addr)
	if err != nil {
		return w.complete(req, nil, -1, wrapIOErr(err))
	}
	return w.submitReadiness(fd, ioEventWrite, req, func() (int, error) {
		return 0, unix.Connect(fd, sa)
	})
}

func (w *unixIoWorker) PollReadable(fd int, req *IoRequestData) bool {
	return w.submitReadiness(fd, ioEventRead, req, func() (int, error) {
		return pollReadyNow(fd, unix.POLLIN)
	})
}

func (w *unixIoWorker) PollWritable(fd int, req *IoRequestData) bool {
	return w.submitReadiness(fd, ioEventWrite, req, func() (int, error) {
		return pollReadyNow(fd, unix.POLLOUT)
	})
}

// pollReadyNow checks fd for events without blocking, reporting EAGAIN
// when it is not ready yet so submitReadiness registers it with the poller.
func pollReadyNow(fd int, events int16) (int, error) {
	fds := []unix.PollFd{{Fd: int32(fd), Events: events}}
	n, err := unix.Poll(fds, 0)
	if err != nil {
		return -1, err
	}
	if n == 0 {
		return 0, unix.EAGAIN
	}
	return 0, nil
}

func (w *unixIoWorker) Recv(fd int, buf []byte, req *IoRequestData) bool {
	return w.submitReadiness(fd, ioEventRead, req, func() (int, error) {
		return unix.Read(fd, buf)
	})
}

func (w *unixIoWorker) Send(fd int, buf []byte, req *IoRequestData) bool {
	return w.submitReadiness(fd, ioEventWrite, req, func() (int, error) {
		return unix.Write(fd, buf)
	})
}

func (w *unixIoWorker) RecvFrom(fd int, buf []byte, req *IoRequestData) bool {
	return w.submitReadiness(fd, ioEventRead, req, func() (int, error) {
		n, _, err := unix.Recvfrom(fd, buf, 0)
		return n, err
	})
}

func (w *unixIoWorker) SendTo(fd int, buf []byte, addr []byte, req *IoRequestData) bool {
	sa, err := bytesToSockaddr(addr)
	if err != nil {
		return w.complete(req, nil, -1, wrapIOErr(err))
	}
	return w.submitReadiness(fd, ioEventWrite, req, func() (int, error) {
		return len(buf), unix.Sendto(fd, buf, 0, sa)
	})
}

func (w *unixIoWorker) Peek(fd int, buf []byte, req *IoRequestData) bool {
	return w.submitReadiness(fd, ioEventRead, req, func() (int, error) {
		n, _, err := unix.Recvfrom(fd, buf, unix.MSG_PEEK)
		return n, err
	})
}

func (w *unixIoWorker) PeekFrom(fd int, buf []byte, req *IoRequestData) bool {
	return w.submitReadiness(fd, ioEventRead, req, func() (int, error) {
		n, _, err := unix.Recvfrom(fd, buf, unix.MSG_PEEK)
		return n, err
	})
}

func (w *unixIoWorker) Shutdown(fd int, how int, req *IoRequestData) bool {
	return w.submitSync(req, func() (int, error) {
		return 0, unix.Shutdown(fd, how)
	})
}

func (w *unixIoWorker) Open(path string, flags int, mode uint32, req *IoRequestData) bool {
	return w.submitSync(req, func() (int, error) {
		return unix.Open(path, flags, mode)
	})
}

func (w *unixIoWorker) Read(fd int, buf []byte, req *IoRequestData) bool {
	return w.submitSync(req, func() (int, error) { return unix.Read(fd, buf) })
}

func (w *unixIoWorker) Pread(fd int, buf []byte, offset int64, req *IoRequestData) bool {
	return w.submitSync(req, func() (int, error) { return unix.Pread(fd, buf, offset) })
}

func (w *unixIoWorker) Write(fd int, buf []byte, req *IoRequestData) bool {
	return w.submitSync(req, func() (int, error) { return unix.Write(fd, buf) })
}

func (w *unixIoWorker) Pwrite(fd int, buf []byte, offset int64, req *IoRequestData) bool {
	return w.submitSync(req, func() (int, error) { return unix.Pwrite(fd, buf, offset) })
}

func (w *unixIoWorker) Fallocate(fd int, offset, length int64, req *IoRequestData) bool {
	return w.submitSync(req, func() (int, error) {
		return 0, unix.Fallocate(fd, 0, offset, length)
	})
}

func (w *unixIoWorker) SyncAll(fd int, req *IoRequestData) bool {
	return w.submitSync(req, func() (int, error) { return 0, unix.Fsync(fd) })
}

func (w *unixIoWorker) SyncData(fd int, req *IoRequestData) bool {
	return w.submitSync(req, func() (int, error) { return 0, fdatasync(fd) })
}

func (w *unixIoWorker) CloseFile(fd int, req *IoRequestData) bool {
	return w.submitSync(req, func() (int, error) { return 0, unix.Close(fd) })
}

func (w *unixIoWorker) CloseSocket(fd int, req *IoRequestData) bool {
	_ = w.poller.unregisterFD(fd)
	return w.submitSync(req, func() (int, error) { return 0, unix.Close(fd) })
}

func (w *unixIoWorker) Rename(oldPath, newPath string, req *IoRequestData) bool {
	return w.submitSync(req, func() (int, error) { return 0, os.Rename(oldPath, newPath) })
}

func (w *unixIoWorker) CreateDir(path string, mode uint32, req *IoRequestData) bool {
	return w.submitSync(req, func() (int, error) { return 0, unix.Mkdir(path, mode) })
}

func (w *unixIoWorker) RemoveFile(path string, req *IoRequestData) bool {
	return w.submitSync(req, func() (int, error) { return 0, unix.Unlink(path) })
}

func (w *unixIoWorker) RemoveDir(path string, req *IoRequestData) bool {
	return w.submitSync(req, func() (int, error) { return 0, unix.Rmdir(path) })
}

// bytesToSockaddr decodes the wire form collaborators pass to
// Connect/SendTo: a 2-byte big-endian port followed by a 4- or 16-byte IP,
// avoiding a net.Addr dependency in the core (addressing is explicitly a
// collaborator concern per spec §1's Non-goals).
func bytesToSockaddr(addr []byte) (unix.Sockaddr, error) {
	if len(addr) < 2 {
		return nil, NewOpError("io", ErrKindInvalidState, unix.EINVAL)
	}
	port := int(addr[0])<<8 | int(addr[1])
	ip := addr[2:]
	switch len(ip) {
	case 4:
		var sa unix.SockaddrInet4
		sa.Port = port
		copy(sa.Addr[:], ip)
		return &sa, nil
	case 16:
		var sa unix.SockaddrInet6
		sa.Port = port
		copy(sa.Addr[:], ip)
		return &sa, nil
	default:
		return nil, NewOpError("io", ErrKindInvalidState, unix.EINVAL)
	}
}
