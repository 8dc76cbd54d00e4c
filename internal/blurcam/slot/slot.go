package slot

import (
	"errors"
	"fmt"

	"github.com/autopeer-io/blurcam/internal/blurcam/command"
)

// ID names one operation category. Each ID has exactly one slot.
type ID int

const (
	TakePicture ID = iota
	ImageProcess
	SetOptions
	GetOptions
	CheckImageStatus
	ImageUpload
	LivePreview

	numSlots
)

var names = [numSlots]string{
	TakePicture:      "TakePicture",
	ImageProcess:     "ImageProcess",
	SetOptions:       "SetOptions",
	GetOptions:       "GetOptions",
	CheckImageStatus: "CheckImageStatus",
	ImageUpload:      "ImageUpload",
	LivePreview:      "LivePreview",
}

func (id ID) String() string {
	if id < 0 || id >= numSlots {
		return fmt.Sprintf("Slot(%d)", int(id))
	}
	return names[id]
}

// Soft slots are stopped silently on cancellation. All others are answered CANCELLED.
func (id ID) Soft() bool {
	return id == LivePreview
}

// All returns every slot ID in declaration order.
func All() []ID {
	ids := make([]ID, 0, numSlots)
	for id := ID(0); id < numSlots; id++ {
		ids = append(ids, id)
	}
	return ids
}

var (
	// ErrOccupied is returned when a required slot holds another operation.
	ErrOccupied = errors.New("slot occupied")

	// ErrClosed is returned once CancelAll has started.
	ErrClosed = errors.New("slot table closed")

	// ErrCancelled is the cancellation cause of operations stopped by CancelAll or Handoff refusal.
	ErrCancelled = errors.New("operation cancelled")

	// ErrSuperseded is the cancellation cause of a soft occupant replaced by a newer one.
	ErrSuperseded = errors.New("operation superseded")
)

// OccupiedError names the slot that blocked an acquisition.
type OccupiedError struct {
	Slot ID
}

func (e *OccupiedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrOccupied, e.Slot)
}

func (e *OccupiedError) Unwrap() error { return ErrOccupied }

// Snapshot is a point-in-time copy of slot occupancy.
type Snapshot [numSlots]bool

// Occupied reports whether id was occupied when the snapshot was taken.
func (s Snapshot) Occupied(id ID) bool {
	return s[id]
}

// DeriveStatus maps the TakePicture and ImageProcess occupancy to a device status.
func DeriveStatus(s Snapshot) command.DeviceStatus {
	tp, ip := s.Occupied(TakePicture), s.Occupied(ImageProcess)
	switch {
	case !tp && !ip:
		return command.StatusIdle
	case !ip:
		return command.StatusShooting
	case !tp:
		return command.StatusBlurring
	default:
		return command.StatusBusy
	}
}
