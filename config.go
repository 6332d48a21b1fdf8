package corert

import "runtime"

// ReusePort selects how a listener socket binds SO_REUSEPORT.
type ReusePort uint8

const (
	// ReusePortDisabled never sets SO_REUSEPORT.
	ReusePortDisabled ReusePort = iota
	// ReusePortDefault sets SO_REUSEPORT once, letting the kernel load
	// balance across every socket bound to the same address.
	ReusePortDefault
	// ReusePortCPU sets SO_REUSEPORT and additionally pins the listener to
	// the executor's bound CPU core, where the platform exposes that
	// affinity (Linux only in this implementation).
	ReusePortCPU
)

// reusePortCPUSupported reports whether ReusePortCPU is accepted on the
// current platform; BindConfig.Normalize degrades to
// ReusePortDefault where it is not.
const reusePortCPUSupported = runtime.GOOS == "linux"

// BindConfig describes how a listening socket is bound. This package only
// defines, defaults and normalizes it; no IoWorker method takes it.
type BindConfig struct {
	BacklogSize  int
	OnlyV6       bool
	ReuseAddress bool
	ReusePort    ReusePort
}

// DefaultBindConfig returns the configuration used when a caller supplies
// none: a 1024-entry backlog, dual-stack binding, SO_REUSEADDR set, and
// SO_REUSEPORT set without per-core pinning.
func DefaultBindConfig() BindConfig {
	return BindConfig{
		BacklogSize:  1024,
		OnlyV6:       false,
		ReuseAddress: true,
		ReusePort:    ReusePortDefault,
	}
}

// Normalize returns a copy of c with platform-unsupported settings
// downgraded to their nearest supported equivalent, instead of failing at
// bind time.
func (c BindConfig) Normalize() BindConfig {
	if c.ReusePort == ReusePortCPU && !reusePortCPUSupported {
		c.ReusePort = ReusePortDefault
	}
	return c
}

// config holds an Executor's resolved construction-time settings.
type config struct {
	coreID           int
	hasCoreID        bool
	ioWorkerEnabled  bool
	workSharingLevel int
	threadWorkers    int
	bufferCap        int
	logger           Logger
}

func defaultConfig() config {
	return config{
		ioWorkerEnabled:  true,
		workSharingLevel: 0,
		threadWorkers:    0,
		bufferCap:        64,
		logger:           NewNoopLogger(),
	}
}

// Option configures an Executor at construction time.
type Option interface {
	apply(*config)
}

type optionFunc func(*config)

func (f optionFunc) apply(c *config) { f(c) }

// WithCoreID records the OS core index the executor is meant to run on.
// The value is stored only: the executor does not pin its thread to that
// core and does not expose the value.
func WithCoreID(id int) Option {
	return optionFunc(func(c *config) {
		c.coreID = id
		c.hasCoreID = true
	})
}

// WithIOWorker enables or disables the executor's embedded IoWorker. A
// caller that only ever spawns CPU-bound futures can disable it to skip
// the per-iteration poll syscall entirely.
func WithIOWorker(enabled bool) Option {
	return optionFunc(func(c *config) { c.ioWorkerEnabled = enabled })
}

// WithWorkSharingLevel sets the global ready-queue depth above which
// SpawnGlobal sheds excess Global tasks into the executor's own shared
// list, where peers may steal them during their maintenance pass (spec
// §4.1's work-sharing high-water mark). Zero disables sharing.
func WithWorkSharingLevel(level int) Option {
	return optionFunc(func(c *config) { c.workSharingLevel = level })
}

// WithThreadWorkers sets the number of OS-thread workers backing the
// executor's LocalThreadWorkerPool, used for CallPushFnToThreadPool jobs.
// Zero disables the pool; a CallPushFnToThreadPool request then makes the
// executor panic with ErrThreadPoolDisabled.
func WithThreadWorkers(n int) Option {
	return optionFunc(func(c *config) { c.threadWorkers = n })
}

// WithBufferCap sets the initial capacity reserved for the executor's
// work-sharing batch buffer and the buffer size of its thread pool's job
// and completion channels.
func WithBufferCap(n int) Option {
	return optionFunc(func(c *config) { c.bufferCap = n })
}

// WithLogger sets the Logger the executor reports scheduling and I/O
// events to. Defaults to NewNoopLogger.
func WithLogger(l Logger) Option {
	return optionFunc(func(c *config) {
		if l != nil {
			c.logger = l
		}
	})
}

func resolveOptions(opts []Option) config {
	c := defaultConfig()
	for _, o := range opts {
		if o != nil {
			o.apply(&c)
		}
	}
	return c
}
