package ppos

import (
	"time"

	"github.com/joeycumines/go-catrate"
)

// runtimeOptions holds configuration resolved before a Runtime is
// constructed.
type runtimeOptions struct {
	logger      Logger
	tickPeriod  time.Duration
	maxTasks    int
	onOverload  func(error)
	onFatal     func(*InvariantError)
	rateLimiter *catrate.Limiter
}

// RuntimeOption configures a Runtime at construction time.
type RuntimeOption interface {
	apply(*runtimeOptions)
}

type runtimeOptionFunc func(*runtimeOptions)

func (f runtimeOptionFunc) apply(o *runtimeOptions) { f(o) }

// WithLogger sets the Logger used by this Runtime; otherwise the global
// logger configured via SetStructuredLogger is used.
func WithLogger(logger Logger) RuntimeOption {
	return runtimeOptionFunc(func(o *runtimeOptions) { o.logger = logger })
}

// WithTickPeriod overrides the Quantum Accountant's tick period (default
// 1ms). Intended for tests that want to run many ticks quickly.
func WithTickPeriod(d time.Duration) RuntimeOption {
	return runtimeOptionFunc(func(o *runtimeOptions) { o.tickPeriod = d })
}

// WithMaxTasks bounds the number of tasks a Runtime will allocate TCBs for;
// Spawn returns ErrOutOfMemory once the bound is reached. Zero means
// unbounded.
func WithMaxTasks(n int) RuntimeOption {
	return runtimeOptionFunc(func(o *runtimeOptions) { o.maxTasks = n })
}

// WithOnOverload registers a callback invoked when the dispatcher detects
// it is spinning without making progress (ready queue, sleep queue, and
// suspended-count all empty would normally mean termination; this instead
// fires when the dispatcher is forced to poll because of a pending
// sleeper with no other runnable work, at a rate bounded by the configured
// rate limiter).
func WithOnOverload(fn func(error)) RuntimeOption {
	return runtimeOptionFunc(func(o *runtimeOptions) { o.onOverload = fn })
}

// WithOnFatal registers a callback invoked immediately before the runtime
// terminates the process due to an invariant violation in a scheduler
// data structure. If unset, the default handler logs and calls
// os.Exit(1).
func WithOnFatal(fn func(*InvariantError)) RuntimeOption {
	return runtimeOptionFunc(func(o *runtimeOptions) { o.onFatal = fn })
}

// WithRateLimiter supplies a *catrate.Limiter used to throttle the
// dispatcher's repeated idle-poll diagnostic (and the OnOverload callback
// fired with it) so a long wait on a sleeper does not flood the log. If unset, a
// default limiter of 5 events/second per category is used.
func WithRateLimiter(l *catrate.Limiter) RuntimeOption {
	return runtimeOptionFunc(func(o *runtimeOptions) { o.rateLimiter = l })
}

func resolveRuntimeOptions(opts []RuntimeOption) *runtimeOptions {
	cfg := &runtimeOptions{
		tickPeriod: TickPeriod,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.apply(cfg)
	}
	if cfg.rateLimiter == nil {
		cfg.rateLimiter = catrate.NewLimiter(map[time.Duration]int{time.Second: 5})
	}
	return cfg
}
