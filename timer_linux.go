//go:build linux

package ppos

import (
	"time"

	"golang.org/x/sys/unix"
)

// startTimer is the Linux Timer Service: a timerfd on a monotonic clock,
// armed for period and watched through an epoll instance, the same
// epoll-driven readiness pattern used for I/O polling rather than a
// goroutine-per-fd model. Falls back to the portable ticker
// implementation if any setup syscall fails (e.g. a restrictive container
// seccomp profile blocking timerfd_create).
func (rt *Runtime) startTimer(period time.Duration) func() {
	tfd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, 0)
	if err != nil {
		return rt.startPortableTimer(period)
	}

	spec := durationToItimerspec(period)
	if err := unix.TimerfdSettime(tfd, 0, &spec, nil); err != nil {
		_ = unix.Close(tfd)
		return rt.startPortableTimer(period)
	}

	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		_ = unix.Close(tfd)
		return rt.startPortableTimer(period)
	}

	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, tfd, &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(tfd),
	}); err != nil {
		_ = unix.Close(tfd)
		_ = unix.Close(epfd)
		return rt.startPortableTimer(period)
	}

	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		events := make([]unix.EpollEvent, 1)
		buf := make([]byte, 8)
		for {
			select {
			case <-done:
				return
			default:
			}
			n, err := unix.EpollWait(epfd, events, int(period/time.Millisecond)+1)
			if err != nil {
				if err == unix.EINTR {
					continue
				}
				return
			}
			if n <= 0 {
				continue
			}
			// drain the expiration counter; a backlog (the process was
			// descheduled for multiple periods) collapses to one tick,
			// same as the portable ticker's channel semantics.
			_, _ = unix.Read(tfd, buf)
			rt.tick()
		}
	}()

	var closed bool
	return func() {
		if closed {
			return
		}
		closed = true
		close(done)
		<-stopped
		_ = unix.Close(tfd)
		_ = unix.Close(epfd)
	}
}

func (rt *Runtime) startPortableTimer(period time.Duration) func() {
	ticker := time.NewTicker(period)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				rt.tick()
			case <-done:
				return
			}
		}
	}()
	var stopped bool
	return func() {
		if stopped {
			return
		}
		stopped = true
		ticker.Stop()
		close(done)
	}
}

func durationToItimerspec(d time.Duration) unix.ItimerSpec {
	sec := int64(d / time.Second)
	nsec := int64(d % time.Second)
	ts := unix.Timespec{Sec: sec, Nsec: nsec}
	return unix.ItimerSpec{Interval: ts, Value: ts}
}
