package preview

import (
	"sync/atomic"

	"github.com/autopeer-io/blurcam/internal/pkg/metrics"
)

type frame struct {
	data []byte
	seq  uint64
}

// Buffer holds the latest preview frame. Readers never block writers.
// The frame is swapped as a whole, so a reader sees either the old or the new frame.
type Buffer struct {
	latest atomic.Pointer[frame]
	seq    atomic.Uint64
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

// Store replaces the latest frame. The buffer takes ownership of data.
func (b *Buffer) Store(data []byte) {
	b.latest.Store(&frame{data: data, seq: b.seq.Add(1)})
	metrics.PreviewFrameBytes.Set(float64(len(data)))
}

// Load returns the latest frame, or an empty slice before the first frame.
func (b *Buffer) Load() []byte {
	data, _ := b.Latest()
	return data
}

// Latest returns the latest frame and its sequence number. The sequence is zero
// before the first frame and grows with every Store.
func (b *Buffer) Latest() ([]byte, uint64) {
	f := b.latest.Load()
	if f == nil {
		return []byte{}, 0
	}
	return f.data, f.seq
}
