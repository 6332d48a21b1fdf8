//go:build linux

package corert

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// maxPolledFDs bounds direct-indexed FD storage; matches the teacher's
// own choice of a fixed array over a map for O(1) lookup.
const maxPolledFDs = 65536

// epollPoller is grounded on eventloop's FastPoller (poller_linux.go):
// same direct FD-indexed array plus RWMutex discipline, same
// version-counter staleness guard around EpollWait, narrowed to corert's
// one-shot "retry and complete" readiness model instead of a persistent
// callback per fd.
type epollPoller struct {
	epfd     int32
	version  atomic.Uint64
	eventBuf [256]unix.EpollEvent
	waiters  [maxPolledFDs]readinessWaiter
	mu       sync.RWMutex
	closed   atomic.Bool
}

func (p *epollPoller) init() error {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return err
	}
	p.epfd = int32(epfd)
	return nil
}

func (p *epollPoller) close() error {
	p.closed.Store(true)
	if p.epfd > 0 {
		return unix.Close(int(p.epfd))
	}
	return nil
}

func (p *epollPoller) registerFD(fd int, events ioEvents, w *readinessWaiter) error {
	if p.closed.Load() {
		return NewOpError("poller.registerFD", ErrKindInvalidState, unix.EBADF)
	}
	if fd < 0 || fd >= maxPolledFDs {
		return NewOpError("poller.registerFD", ErrKindInvalidState, unix.EINVAL)
	}
	p.mu.Lock()
	p.waiters[fd] = *w
	p.waiters[fd].active = true
	p.version.Add(1)
	p.mu.Unlock()

	ev := &unix.EpollEvent{Events: toEpollBits(events), Fd: int32(fd)}
	if err := unix.EpollCtl(int(p.epfd), unix.EPOLL_CTL_ADD, fd, ev); err != nil {
		if err == unix.EEXIST {
			err = unix.EpollCtl(int(p.epfd), unix.EPOLL_CTL_MOD, fd, ev)
		}
		if err != nil {
			p.mu.Lock()
			p.waiters[fd] = readinessWaiter{}
			p.mu.Unlock()
			return NewOpError("poller.registerFD", ErrKindIo, err)
		}
	}
	return nil
}

func (p *epollPoller) unregisterFD(fd int) error {
	if fd < 0 || fd >= maxPolledFDs {
		return NewOpError("poller.unregisterFD", ErrKindInvalidState, unix.EINVAL)
	}
	p.mu.Lock()
	p.waiters[fd] = readinessWaiter{}
	p.version.Add(1)
	p.mu.Unlock()
	_ = unix.EpollCtl(int(p.epfd), unix.EPOLL_CTL_DEL, fd, nil)
	return nil
}

func (p *epollPoller) poll(timeoutMs int) (int, error) {
	if p.closed.Load() {
		return 0, NewOpError("poller.poll", ErrKindInvalidState, nil)
	}
	v := p.version.Load()
	n, err := unix.EpollWait(int(p.epfd), p.eventBuf[:], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, NewOpError("poller.poll", ErrKindIo, err)
	}
	if p.version.Load() != v {
		return 0, nil
	}
	processed := 0
	for i := 0; i < n; i++ {
		fd := int(p.eventBuf[i].Fd)
		if fd < 0 || fd >= maxPolledFDs {
			continue
		}
		p.mu.Lock()
		w := p.waiters[fd]
		if w.active {
			p.waiters[fd] = readinessWaiter{}
		}
		p.mu.Unlock()
		if !w.active {
			continue
		}
		completeReadinessWaiter(&w)
		processed++
	}
	return processed, nil
}

func toEpollBits(events ioEvents) uint32 {
	var bits uint32
	if events&ioEventRead != 0 {
		bits |= unix.EPOLLIN
	}
	if events&ioEventWrite != 0 {
		bits |= unix.EPOLLOUT
	}
	return bits
}

func newOSPoller() osPoller { return &epollPoller{} }
