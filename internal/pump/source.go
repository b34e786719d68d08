package pump

import (
	"bytes"
	"io"
	"sync"
)

// Source is a byte stream that can tell how many bytes are ready to be read
// without blocking.
type Source interface {
	io.Reader
	// Available returns the number of bytes a Read would return right now.
	// A non-nil error means the stream has ended or failed and nothing more
	// will arrive.
	Available() (int, error)
}

// Buffer is an unbounded in-memory pipe. The writing side is usually an
// exec.Cmd copying the child's output; the pump drains the reading side.
// Read never blocks: it returns 0, nil when nothing is buffered.
type Buffer struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closed error
}

// NewBuffer returns an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Write appends p. It fails once the buffer has been closed.
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed != nil {
		return 0, io.ErrClosedPipe
	}
	return b.buf.Write(p)
}

// Read copies buffered bytes into p.
func (b *Buffer) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.buf.Len() == 0 {
		if b.closed != nil {
			return 0, b.closed
		}
		return 0, nil
	}
	return b.buf.Read(p)
}

func (b *Buffer) Available() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n := b.buf.Len(); n > 0 {
		return n, nil
	}
	return 0, b.closed
}

// CloseWithError marks the end of the stream. Buffered bytes stay readable;
// after they are drained Read and Available report err, or io.EOF when err
// is nil.
func (b *Buffer) CloseWithError(err error) {
	if err == nil {
		err = io.EOF
	}
	b.mu.Lock()
	if b.closed == nil {
		b.closed = err
	}
	b.mu.Unlock()
}

// Close is CloseWithError(nil).
func (b *Buffer) Close() error {
	b.CloseWithError(nil)
	return nil
}
