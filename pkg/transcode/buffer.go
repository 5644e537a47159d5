package transcode

import "sync"

// Buffer holds one encoded JPEG. It must be released exactly once when the
// caller is done with the bytes; Bytes returns nil afterwards.
type Buffer struct {
	data    []byte
	release func()
	once    sync.Once
}

// NewBuffer wraps data. release, if non-nil, runs on the first Release.
func NewBuffer(data []byte, release func()) *Buffer {
	return &Buffer{data: data, release: release}
}

// Bytes returns the JPEG bytes. They are only valid until Release.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Len returns the JPEG size in bytes.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Release hands the memory back. Further calls are no-ops.
func (b *Buffer) Release() {
	b.once.Do(func() {
		b.data = nil
		if b.release != nil {
			b.release()
		}
	})
}
