//go:build darwin

package corert

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// kqueuePoller is grounded on eventloop's darwin FastPoller
// (poller_darwin.go): same kqueue usage and dynamic-growth fd slice,
// narrowed to corert's one-shot "retry and complete" readiness model.
type kqueuePoller struct {
	kq       int32
	eventBuf [256]unix.Kevent_t
	waiters  []readinessWaiter
	mu       sync.RWMutex
	closed   atomic.Bool
}

func (p *kqueuePoller) init() error {
	kq, err := unix.Kqueue()
	if err != nil {
		return err
	}
	unix.CloseOnExec(kq)
	p.kq = int32(kq)
	p.waiters = make([]readinessWaiter, 1024)
	return nil
}

func (p *kqueuePoller) close() error {
	p.closed.Store(true)
	if p.kq > 0 {
		return unix.Close(int(p.kq))
	}
	return nil
}

func (p *kqueuePoller) growLocked(fd int) {
	if fd < len(p.waiters) {
		return
	}
	n := make([]readinessWaiter, fd*2+1)
	copy(n, p.waiters)
	p.waiters = n
}

func (p *kqueuePoller) registerFD(fd int, events ioEvents, w *readinessWaiter) error {
	if p.closed.Load() {
		return NewOpError("poller.registerFD", ErrKindInvalidState, unix.EBADF)
	}
	if fd < 0 {
		return NewOpError("poller.registerFD", ErrKindInvalidState, unix.EINVAL)
	}
	p.mu.Lock()
	p.growLocked(fd)
	p.waiters[fd] = *w
	p.waiters[fd].active = true
	p.mu.Unlock()

	kevents := toKevents(fd, events, unix.EV_ADD|unix.EV_ENABLE)
	if len(kevents) > 0 {
		if _, err := unix.Kevent(int(p.kq), kevents, nil, nil); err != nil {
			p.mu.Lock()
			p.waiters[fd] = readinessWaiter{}
			p.mu.Unlock()
			return NewOpError("poller.registerFD", ErrKindIo, err)
		}
	}
	return nil
}

func (p *kqueuePoller) unregisterFD(fd int) error {
	if fd < 0 {
		return NewOpError("poller.unregisterFD", ErrKindInvalidState, unix.EINVAL)
	}
	p.mu.Lock()
	var events ioEvents
	if fd < len(p.waiters) {
		events = p.waiters[fd].want
		p.waiters[fd] = readinessWaiter{}
	}
	p.mu.Unlock()
	kevents := toKevents(fd, events, unix.EV_DELETE)
	if len(kevents) > 0 {
		_, _ = unix.Kevent(int(p.kq), kevents, nil, nil)
	}
	return nil
}

func (p *kqueuePoller) poll(timeoutMs int) (int, error) {
	if p.closed.Load() {
		return 0, NewOpError("poller.poll", ErrKindInvalidState, nil)
	}
	var ts *unix.Timespec
	if timeoutMs >= 0 {
		ts = &unix.Timespec{
			Sec:  int64(timeoutMs / 1000),
			Nsec: int64((timeoutMs % 1000) * 1000000),
		}
	}
	n, err := unix.Kevent(int(p.kq), nil, p.eventBuf[:], ts)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, NewOpError("poller.poll", ErrKindIo, err)
	}
	processed := 0
	for i := 0; i < n; i++ {
		fd := int(p.eventBuf[i].Ident)
		if fd < 0 {
			continue
		}
		p.mu.Lock()
		var w readinessWaiter
		if fd < len(p.waiters) {
			w = p.waiters[fd]
			if w.active {
				p.waiters[fd] = readinessWaiter{}
			}
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

func toKevents(fd int, events ioEvents, flags uint16) []unix.Kevent_t {
	var kevents []unix.Kevent_t
	if events&ioEventRead != 0 {
		kevents = append(kevents, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: flags})
	}
	if events&ioEventWrite != 0 {
		kevents = append(kevents, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: flags})
	}
	return kevents
}

func newOSPoller() osPoller { return &kqueuePoller{} }
