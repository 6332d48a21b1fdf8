//go:build !linux && !darwin

package corert

import "time"

// unsupportedIoWorker is the fallback for platforms with neither an epoll
// nor a kqueue backend implemented; every operation reports
// ErrKindUnsupported per spec §7 rather than silently degrading.
type unsupportedIoWorker struct{}

func newPlatformIoWorkerImpl() (IoWorker, error) {
	return unsupportedIoWorker{}, nil
}

func (unsupportedIoWorker) unsupported(req *IoRequestData) bool {
	req.Result = -1
	req.Err = NewOpError("io", ErrKindUnsupported, nil)
	if req.Waker != nil {
		req.Waker.Wake()
	}
	return true
}

func (w unsupportedIoWorker) Socket(domain, typ, proto int, req *IoRequestData) bool { return w.unsupported(req) }
func (w unsupportedIoWorker) Accept(fd int, req *IoRequestData) bool                 { return w.unsupported(req) }
func (w unsupportedIoWorker) Connect(fd int, addr []byte, req *IoRequestData) bool   { return w.unsupported(req) }
func (w unsupportedIoWorker) PollReadable(fd int, req *IoRequestData) bool           { return w.unsupported(req) }
func (w unsupportedIoWorker) PollWritable(fd int, req *IoRequestData) bool           { return w.unsupported(req) }
func (w unsupportedIoWorker) Recv(fd int, buf []byte, req *IoRequestData) bool       { return w.unsupported(req) }
func (w unsupportedIoWorker) Send(fd int, buf []byte, req *IoRequestData) bool       { return w.unsupported(req) }
func (w unsupportedIoWorker) RecvFrom(fd int, buf []byte, req *IoRequestData) bool   { return w.unsupported(req) }
func (w unsupportedIoWorker) SendTo(fd int, buf []byte, addr []byte, req *IoRequestData) bool {
	return w.unsupported(req)
}
func (w unsupportedIoWorker) Peek(fd int, buf []byte, req *IoRequestData) bool     { return w.unsupported(req) }
func (w unsupportedIoWorker) PeekFrom(fd int, buf []byte, req *IoRequestData) bool { return w.unsupported(req) }
func (w unsupportedIoWorker) Shutdown(fd int, how int, req *IoRequestData) bool    { return w.unsupported(req) }
func (w unsupportedIoWorker) Open(path string, flags int, mode uint32, req *IoRequestData) bool {
	return w.unsupported(req)
}
func (w unsupportedIoWorker) Read(fd int, buf []byte, req *IoRequestData) bool { return w.unsupported(req) }
func (w unsupportedIoWorker) Pread(fd int, buf []byte, offset int64, req *IoRequestData) bool {
	return w.unsupported(req)
}
func (w unsupportedIoWorker) Write(fd int, buf []byte, req *IoRequestData) bool { return w.unsupported(req) }
func (w unsupportedIoWorker) Pwrite(fd int, buf []byte, offset int64, req *IoRequestData) bool {
	return w.unsupported(req)
}
func (w unsupportedIoWorker) Fallocate(fd int, offset, length int64, req *IoRequestData) bool {
	return w.unsupported(req)
}
func (w unsupportedIoWorker) SyncAll(fd int, req *IoRequestData) bool     { return w.unsupported(req) }
func (w unsupportedIoWorker) SyncData(fd int, req *IoRequestData) bool   { return w.unsupported(req) }
func (w unsupportedIoWorker) CloseFile(fd int, req *IoRequestData) bool  { return w.unsupported(req) }
func (w unsupportedIoWorker) CloseSocket(fd int, req *IoRequestData) bool { return w.unsupported(req) }
func (w unsupportedIoWorker) Rename(oldPath, newPath string, req *IoRequestData) bool {
	return w.unsupported(req)
}
func (w unsupportedIoWorker) CreateDir(path string, mode uint32, req *IoRequestData) bool {
	return w.unsupported(req)
}
func (w unsupportedIoWorker) RemoveFile(path string, req *IoRequestData) bool { return w.unsupported(req) }
func (w unsupportedIoWorker) RemoveDir(path string, req *IoRequestData) bool  { return w.unsupported(req) }

func (w unsupportedIoWorker) HasWork() bool               { return false }
func (w unsupportedIoWorker) MustPoll(time.Duration) bool { return false }
func (w unsupportedIoWorker) Close() error                { return nil }
