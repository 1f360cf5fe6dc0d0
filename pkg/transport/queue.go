package transport

import (
	"sync/atomic"

	"github.com/pion/transport/v3/packetio"
)

// byteQueue adapts a packetio.Buffer into the polled byte source both
// port implementations share: the producer (peer pipe end or serial
// reader goroutine) pushes bytes in, the polling loop pops them one at
// a time. Each byte is stored as its own packet so ReadByte pops
// exactly one.
type byteQueue struct {
	buf     *packetio.Buffer
	pending atomic.Int64
}

func newByteQueue() *byteQueue {
	return &byteQueue{buf: packetio.NewBuffer()}
}

// push appends every byte of p to the queue.
func (q *byteQueue) push(p []byte) error {
	for _, b := range p {
		if _, err := q.buf.Write([]byte{b}); err != nil {
			return ErrPortClosed
		}
		q.pending.Add(1)
	}
	return nil
}

// available reports whether a byte is buffered.
func (q *byteQueue) available() bool {
	return q.pending.Load() > 0
}

// pop removes and returns one byte, blocking until one arrives or the
// queue closes.
func (q *byteQueue) pop() (byte, error) {
	var one [1]byte
	if _, err := q.buf.Read(one[:]); err != nil {
		return 0, ErrPortClosed
	}
	q.pending.Add(-1)
	return one[0], nil
}

// close shuts the queue down; blocked and future pops fail.
func (q *byteQueue) close() error {
	return q.buf.Close()
}
