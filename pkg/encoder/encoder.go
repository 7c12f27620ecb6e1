// Package encoder re-serializes a committed controller state for a
// downstream port that emulates a controller.
package encoder

import (
	"io"
	"sync/atomic"

	"github.com/womat/debug"
)

// FrameBits is the count of bits of a TxFrame.
const FrameBits = 17

// TxFrame is the 17 bit frame clocked out by the downstream transmit
// peripheral. Its start condition is triggered by the derived XNOR clock,
// so the frame carries the same dummy cycle as the receive side.
type TxFrame uint32

// Encode shifts the state left by one cycle; bit 0 is the dummy cycle and always low.
func Encode(state uint16) TxFrame {
	return TxFrame(state) << 1
}

// State returns the controller state carried by the frame.
func (f TxFrame) State() uint16 {
	return uint16(f >> 1)
}

// Transmitter arms one outbound transmission.
type Transmitter interface {
	Transmit(TxFrame) error
}

// SerialTransmitter sends frames to a byte serial port, three bytes per frame, least significant byte first.
type SerialTransmitter struct {
	w io.Writer
}

// NewSerialTransmitter returns a transmitter writing to w.
func NewSerialTransmitter(w io.Writer) *SerialTransmitter {
	return &SerialTransmitter{w: w}
}

func (t *SerialTransmitter) Transmit(f TxFrame) error {
	_, err := t.w.Write([]byte{byte(f), byte(f >> 8), byte(f >> 16)})
	return err
}

// Queue is a single slot transmit queue. Offer never blocks: if the previous
// frame is still pending it is replaced by the new one.
type Queue struct {
	slot    chan TxFrame
	tx      Transmitter
	sent    atomic.Uint64
	dropped atomic.Uint64
	done    chan struct{}
}

// NewQueue starts the transmit worker.
func NewQueue(tx Transmitter) *Queue {
	q := &Queue{
		slot: make(chan TxFrame, 1),
		tx:   tx,
		done: make(chan struct{}),
	}

	go q.run()
	return q
}

// Offer queues f for transmission. It must not be called after Close.
func (q *Queue) Offer(f TxFrame) {
	select {
	case q.slot <- f:
		return
	default:
	}

	// the slot is full: drop the pending frame
	select {
	case <-q.slot:
		q.dropped.Add(1)
	default:
	}

	select {
	case q.slot <- f:
	default:
		q.dropped.Add(1)
	}
}

// Sent returns the count of transmitted frames.
func (q *Queue) Sent() uint64 {
	return q.sent.Load()
}

// Dropped returns the count of frames replaced before transmission.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}

// Close stops the worker after the pending frame is transmitted.
func (q *Queue) Close() error {
	close(q.slot)
	<-q.done
	return nil
}

func (q *Queue) run() {
	defer close(q.done)

	for f := range q.slot {
		if err := q.tx.Transmit(f); err != nil {
			debug.ErrorLog.Printf("transmit frame %#05x: %v", uint32(f), err)
			continue
		}
		q.sent.Add(1)
	}
}
