package slot

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/blurcam/internal/blurcam/command"
)

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name   string
		tp, ip bool
		want   command.DeviceStatus
	}{
		{"both empty", false, false, command.StatusIdle},
		{"capturing", true, false, command.StatusShooting},
		{"processing", false, true, command.StatusBlurring},
		{"both occupied", true, true, command.StatusBusy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Snapshot
			s[TakePicture] = tt.tp
			s[ImageProcess] = tt.ip
			s[GetOptions] = true // unrelated slots never matter
			assert.Equal(t, tt.want, DeriveStatus(s))
		})
	}
}

func TestAcquireRejectsOccupiedRequirement(t *testing.T) {
	tbl := NewTable()

	tp, err := tbl.Acquire(TakePicture)
	require.NoError(t, err)

	_, err = tbl.Acquire(SetOptions, TakePicture, ImageProcess)
	var occ *OccupiedError
	require.ErrorAs(t, err, &occ)
	assert.Equal(t, TakePicture, occ.Slot)
	assert.ErrorIs(t, err, ErrOccupied)

	// The blocking occupant is unchanged.
	assert.True(t, tbl.Snapshot().Occupied(TakePicture))
	assert.False(t, tbl.Snapshot().Occupied(SetOptions))
	assert.NoError(t, tp.Context().Err())
}

func TestAcquireRequiresOwnSlot(t *testing.T) {
	tbl := NewTable()
	_, err := tbl.Acquire(CheckImageStatus)
	require.NoError(t, err)

	_, err = tbl.Acquire(CheckImageStatus)
	assert.ErrorIs(t, err, ErrOccupied)
}

func TestReleaseIsIdempotent(t *testing.T) {
	tbl := NewTable()
	h, err := tbl.Acquire(GetOptions)
	require.NoError(t, err)

	assert.True(t, h.Release())
	assert.False(t, h.Release())
	assert.False(t, tbl.Snapshot().Occupied(GetOptions))

	select {
	case <-h.Done():
	default:
		t.Fatal("done not closed after release")
	}

	// A stale handle must not clear a newer occupant.
	h2, err := tbl.Acquire(GetOptions)
	require.NoError(t, err)
	assert.False(t, h.Release())
	assert.True(t, tbl.Snapshot().Occupied(GetOptions))
	assert.Greater(t, h2.Token(), h.Token())
}

func TestReplaceSupersedesSoftOccupant(t *testing.T) {
	tbl := NewTable()
	old, err := tbl.Replace(LivePreview)
	require.NoError(t, err)

	cur, err := tbl.Replace(LivePreview)
	require.NoError(t, err)

	assert.ErrorIs(t, context.Cause(old.Context()), ErrSuperseded)
	assert.NoError(t, cur.Context().Err())
	assert.False(t, old.Release())
	assert.True(t, tbl.Snapshot().Occupied(LivePreview))
}

func TestHandoff(t *testing.T) {
	tbl := NewTable()
	tp, err := tbl.Acquire(TakePicture, ImageProcess)
	require.NoError(t, err)
	assert.Equal(t, command.StatusShooting, DeriveStatus(tbl.Snapshot()))

	ip, err := tbl.Handoff(tp, ImageProcess)
	require.NoError(t, err)
	assert.Equal(t, command.StatusBlurring, DeriveStatus(tbl.Snapshot()))
	assert.False(t, tp.Release())

	assert.True(t, ip.Release())
	assert.Equal(t, command.StatusIdle, DeriveStatus(tbl.Snapshot()))
}

func TestHandoffRefusedAfterCancel(t *testing.T) {
	tbl := NewTable()
	tp, err := tbl.Acquire(TakePicture)
	require.NoError(t, err)

	tbl.Cancel(TakePicture, ErrCancelled)
	_, err = tbl.Handoff(tp, ImageProcess)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.False(t, tbl.Snapshot().Occupied(ImageProcess))

	tp.Release()
	assert.Equal(t, command.StatusIdle, DeriveStatus(tbl.Snapshot()))
}

func TestCancelAllWaitsForRelease(t *testing.T) {
	tbl := NewTable()
	var stopped atomic.Int32
	for _, id := range []ID{TakePicture, GetOptions, LivePreview} {
		h, err := tbl.Acquire(id)
		require.NoError(t, err)
		go func() {
			<-h.Context().Done()
			time.Sleep(10 * time.Millisecond)
			stopped.Add(1)
			h.Release()
		}()
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, tbl.CancelAll(ctx))

	assert.Equal(t, int32(3), stopped.Load())
	assert.Equal(t, Snapshot{}, tbl.Snapshot())

	_, err := tbl.Acquire(SetOptions)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = tbl.Replace(LivePreview)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCancelAllAbandonsStuckOccupant(t *testing.T) {
	tbl := NewTable()
	h, err := tbl.Acquire(ImageUpload)
	require.NoError(t, err)

	abandoned := make(chan struct{})
	h.OnAbandon(func() { close(abandoned) })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = tbl.CancelAll(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	select {
	case <-abandoned:
	default:
		t.Fatal("abandon hook not run")
	}
	assert.Equal(t, Snapshot{}, tbl.Snapshot())
	assert.ErrorIs(t, context.Cause(h.Context()), ErrCancelled)

	// The late release is harmless.
	assert.False(t, h.Release())
}

func TestConcurrentAcquireNeverDoubleStarts(t *testing.T) {
	tbl := NewTable()
	var inside [numSlots]atomic.Int32
	var violations atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := ID(i % int(numSlots))
			for j := 0; j < 200; j++ {
				h, err := tbl.Acquire(id, TakePicture, ImageProcess)
				if err != nil {
					continue
				}
				if inside[id].Add(1) != 1 {
					violations.Add(1)
				}
				inside[id].Add(-1)
				h.Release()
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, violations.Load())
	assert.Equal(t, Snapshot{}, tbl.Snapshot())
}
