package audio

import (
	"bytes"
	"io"
	"sync"
)

// ChunkBuffer is a thread-safe, unbounded byte buffer that decouples a
// producer appending PCM chunks (the synthesis pipeline) from a consumer
// draining them (playback). Unlike a fixed ring buffer it never drops data;
// synthesized audio must arrive at the consumer intact and in order.
type ChunkBuffer struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
}

// NewChunkBuffer creates an empty chunk buffer.
func NewChunkBuffer() *ChunkBuffer {
	return &ChunkBuffer{}
}

// Append adds a chunk to the buffer. Appends after Close are ignored.
func (b *ChunkBuffer) Append(p []byte) {
	if len(p) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.buf.Write(p)
}

// Read drains buffered bytes into p. It never blocks: when the buffer is
// empty it returns (0, nil) while the producer is still open and
// (0, io.EOF) once the producer has closed and everything is drained.
func (b *ChunkBuffer) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.buf.Len() == 0 {
		if b.closed {
			return 0, io.EOF
		}
		return 0, nil
	}

	n, err := b.buf.Read(p)
	if err == io.EOF {
		err = nil
	}
	return n, err
}

// Len returns the number of buffered bytes not yet read.
func (b *ChunkBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

// Close marks the producer side as finished. Buffered bytes remain readable;
// Read reports io.EOF once they are drained.
func (b *ChunkBuffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}

// Closed reports whether the producer side has finished.
func (b *ChunkBuffer) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}
