// Package netready exposes the "provisioning complete" signal of the network
// glue. The controller pipelines never wait for it.
package netready

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"github.com/womat/debug"
)

// Probe reports whether the network is ready.
type Probe func() bool

// Signal is the provisioning state.
type Signal struct {
	ready atomic.Bool
}

// Ready returns true once provisioning is complete.
func (s *Signal) Ready() bool {
	return s.ready.Load()
}

// Set changes the provisioning state.
func (s *Signal) Set(ready bool) {
	if s.ready.Swap(ready) != ready {
		debug.InfoLog.Printf("network ready: %v", ready)
	}
}

// Watch polls probe every interval and updates s until ctx is done.
func Watch(ctx context.Context, s *Signal, probe Probe, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		s.Set(probe())

		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// HasIP reports whether any interface has a non loopback IPv4 address.
func HasIP() bool {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		debug.ErrorLog.Printf("can't read interface addresses: %v", err)
		return false
	}

	for _, a := range addrs {
		if n, ok := a.(*net.IPNet); ok && !n.IP.IsLoopback() && n.IP.To4() != nil {
			return true
		}
	}
	return false
}
