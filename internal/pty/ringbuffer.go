package pty

import "sync"

// ringBufferCap is the maximum size of a session's output buffer, per
// spec.md §4.5: "the output buffer is capped at 64 KiB; appending beyond
// the cap drops from the head."
const ringBufferCap = 64 * 1024

// ringBuffer is a fixed-capacity byte buffer that drops its oldest bytes
// when new writes would exceed the cap.
type ringBuffer struct {
	mu   sync.Mutex
	data []byte
}

func newRingBuffer() *ringBuffer {
	return &ringBuffer{data: make([]byte, 0, ringBufferCap)}
}

// Append adds b to the buffer, trimming from the head if the result would
// exceed ringBufferCap.
func (r *ringBuffer) Append(b []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.data = append(r.data, b...)
	if over := len(r.data) - ringBufferCap; over > 0 {
		r.data = r.data[over:]
	}
}

// Bytes returns a copy of the current buffered tail.
func (r *ringBuffer) Bytes() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]byte, len(r.data))
	copy(out, r.data)
	return out
}
