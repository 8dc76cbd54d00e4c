package preview

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/blurcam/internal/blurcam/core"
)

func TestBufferEmptyBeforeFirstFrame(t *testing.T) {
	b := NewBuffer()
	data, seq := b.Latest()
	assert.NotNil(t, data)
	assert.Empty(t, data)
	assert.Zero(t, seq)
}

func TestBufferLastWriterWins(t *testing.T) {
	b := NewBuffer()
	b.Store([]byte("a"))
	b.Store([]byte("bb"))

	data, seq := b.Latest()
	assert.Equal(t, "bb", string(data))
	assert.Equal(t, uint64(2), seq)
}

func TestBufferConcurrentReadersSeeWholeFrames(t *testing.T) {
	b := NewBuffer()
	frames := [][]byte{[]byte("aaaa"), []byte("bbbbbbbb")}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			b.Store(frames[i%2])
		}
	}()
	go func() {
		defer wg.Done()
		for j := 0; j < 1000; j++ {
			got := string(b.Load())
			if got != "" && got != "aaaa" && got != "bbbbbbbb" {
				t.Errorf("partial frame %q", got)
				return
			}
		}
	}()
	wg.Wait()
}

type fakeStream struct {
	frames chan []byte
	closed chan struct{}
	err    error
}

func (s *fakeStream) Next(ctx context.Context) ([]byte, error) {
	select {
	case f, ok := <-s.frames:
		if !ok {
			return nil, s.err
		}
		return f, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *fakeStream) Close() error {
	close(s.closed)
	return nil
}

type fakeCamera struct {
	stream *fakeStream
}

func (c *fakeCamera) Capture(context.Context, json.RawMessage) (core.Artifact, error) {
	return core.Artifact{}, nil
}

func (c *fakeCamera) CheckStatus(context.Context, json.RawMessage) (json.RawMessage, error) {
	return nil, nil
}

func (c *fakeCamera) StartPreview(context.Context) (core.PreviewStream, error) {
	return c.stream, nil
}

func TestWorkerStoresFramesUntilCancelled(t *testing.T) {
	stream := &fakeStream{frames: make(chan []byte), closed: make(chan struct{})}
	buf := NewBuffer()
	w := NewWorker(&fakeCamera{stream: stream}, buf)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	stream.frames <- []byte("frame-1")
	stream.frames <- []byte("frame-2")
	require.Eventually(t, func() bool { return string(buf.Load()) == "frame-2" }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-errCh)
	<-stream.closed
}

func TestWorkerReportsStreamFailure(t *testing.T) {
	stream := &fakeStream{frames: make(chan []byte), closed: make(chan struct{}), err: errors.New("eof")}
	close(stream.frames)

	err := NewWorker(&fakeCamera{stream: stream}, NewBuffer()).Run(context.Background())
	assert.Error(t, err)
}
