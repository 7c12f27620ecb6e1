package encoder

import (
	"bytes"
	"sync"
	"testing"
	"time"
)

func TestEncode(t *testing.T) {
	for _, s := range []uint16{0x0000, 0x0001, 0x0FFF, 0x0FFE, 0x8000, 0xA5A5, 0xFFFF} {
		f := Encode(s)

		if f&1 != 0 {
			t.Errorf("Encode(%#04x) bit 0 = 1, want 0", s)
		}
		if uint16(f>>1) != s {
			t.Errorf("Encode(%#04x) >> 1 = %#04x", s, uint32(f>>1))
		}
		if f.State() != s {
			t.Errorf("Encode(%#04x).State() = %#04x", s, f.State())
		}
		if f>>FrameBits != 0 {
			t.Errorf("Encode(%#04x) = %#x exceeds %d bits", s, uint32(f), FrameBits)
		}
	}
}

func TestSerialTransmitter(t *testing.T) {
	var b bytes.Buffer
	tx := NewSerialTransmitter(&b)

	if err := tx.Transmit(Encode(0xFFFF)); err != nil {
		t.Fatal(err)
	}

	want := []byte{0xFE, 0xFF, 0x01}
	if !bytes.Equal(b.Bytes(), want) {
		t.Errorf("wrote % x, want % x", b.Bytes(), want)
	}
}

// blocking is a transmitter that waits for release before returning.
type blocking struct {
	mu      sync.Mutex
	frames  []TxFrame
	started chan struct{}
	release chan struct{}
}

func (b *blocking) Transmit(f TxFrame) error {
	b.started <- struct{}{}
	<-b.release

	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames = append(b.frames, f)
	return nil
}

func TestQueueDropsPendingFrame(t *testing.T) {
	tx := &blocking{started: make(chan struct{}), release: make(chan struct{})}
	q := NewQueue(tx)

	q.Offer(Encode(1))
	<-tx.started // frame 1 is in flight

	start := time.Now()
	q.Offer(Encode(2))
	q.Offer(Encode(3))
	q.Offer(Encode(4))
	if time.Since(start) > 100*time.Millisecond {
		t.Error("Offer blocked")
	}

	close(tx.release)
	<-tx.started
	if err := q.Close(); err != nil {
		t.Fatal(err)
	}

	want := []TxFrame{Encode(1), Encode(4)}
	if len(tx.frames) != len(want) || tx.frames[0] != want[0] || tx.frames[1] != want[1] {
		t.Errorf("transmitted %v, want %v", tx.frames, want)
	}
	if q.Dropped() != 2 {
		t.Errorf("Dropped() = %d, want 2", q.Dropped())
	}
	if q.Sent() != 2 {
		t.Errorf("Sent() = %d, want 2", q.Sent())
	}
}
