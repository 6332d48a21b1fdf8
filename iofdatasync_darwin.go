//go:build darwin

package corert

import "golang.org/x/sys/unix"

// Darwin has no fdatasync syscall; unix.Fsync is the nearest available
// durability barrier (fcntl F_FULLFSYNC is stronger but not exposed by
// golang.org/x/sys/unix on every Darwin version, so this mirrors what a
// readiness-based, no-io_uring backend can actually offer here).
func fdatasync(fd int) error { return unix.Fsync(fd) }
