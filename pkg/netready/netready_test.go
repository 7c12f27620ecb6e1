package netready

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatch(t *testing.T) {
	var s Signal
	var up atomic.Bool

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Watch(ctx, &s, up.Load, time.Millisecond)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	if s.Ready() {
		t.Fatal("ready before the probe succeeded")
	}

	up.Store(true)
	deadline := time.Now().Add(time.Second)
	for !s.Ready() {
		if time.Now().After(deadline) {
			t.Fatal("signal not set after the probe succeeded")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	<-done
}
