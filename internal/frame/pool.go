package frame

import "sync"

// smallPool and framePool back GetSmallBuffer/GetBuffer. Frame construction
// happens once per session (building a TgInitAsTarget payload) and once per
// poll iteration (reading a ready byte or a response chunk); pooling avoids
// churning the allocator across the worker's poll loop.
var (
	smallPool = sync.Pool{
		New: func() any {
			buf := make([]byte, 0, 8)
			return &buf
		},
	}
	framePool = sync.Pool{
		New: func() any {
			buf := make([]byte, 0, MaxFrameDataLength+MinFrameLength+1)
			return &buf
		},
	}
)

// GetSmallBuffer returns a byte slice of length size (its contents are not
// cleared), suitable for single-byte ready polls and ACK scratch space.
// The caller must return it with PutBuffer when done.
func GetSmallBuffer(size int) []byte {
	p := smallPool.Get().(*[]byte)
	buf := *p
	if cap(buf) < size {
		buf = make([]byte, 0, size)
	}
	return buf[:size]
}

// GetBuffer returns a byte slice of length size (its contents are not
// cleared), suitable for full information-frame construction. The caller
// must return it with PutBuffer when done.
func GetBuffer(size int) []byte {
	p := framePool.Get().(*[]byte)
	buf := *p
	if cap(buf) < size {
		buf = make([]byte, 0, size)
	}
	return buf[:size]
}

// PutBuffer returns a buffer obtained from GetBuffer or GetSmallBuffer to
// its pool. It is safe to call with a nil or zero-capacity slice.
func PutBuffer(buf []byte) {
	if buf == nil {
		return
	}
	buf = buf[:0]
	switch {
	case cap(buf) >= MaxFrameDataLength:
		framePool.Put(&buf)
	default:
		smallPool.Put(&buf)
	}
}
