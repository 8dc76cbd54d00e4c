package command

// Name is the wire name of a control command.
type Name string

const (
	TakePicture      Name = "camera.takePicture"
	SetOptions       Name = "camera.setOptions"
	GetOptions       Name = "camera.getOptions"
	GetLivePreview   Name = "camera.getLivePreview"
	StartLivePreview Name = "camera.startLivePreview"
	GetStatus        Name = "camera.getStatus"
	CheckImageStatus Name = "camera.checkImageStatus"
	UploadImage      Name = "camera.uploadImage"
)

var known = map[Name]struct{}{
	TakePicture:      {},
	SetOptions:       {},
	GetOptions:       {},
	GetLivePreview:   {},
	StartLivePreview: {},
	GetStatus:        {},
	CheckImageStatus: {},
	UploadImage:      {},
}

// Known reports whether n is one of the supported commands.
func (n Name) Known() bool {
	_, ok := known[n]
	return ok
}

// State of an operation as reported in a status envelope.
type State string

const (
	StateInProgress State = "IN_PROGRESS"
	StateDone       State = "DONE"
)

// DeviceStatus is derived from slot occupancy on every GetStatus.
type DeviceStatus string

const (
	StatusIdle     DeviceStatus = "IDLE"
	StatusShooting DeviceStatus = "SHOOTING"
	StatusBlurring DeviceStatus = "BLURRING"
	StatusBusy     DeviceStatus = "BUSY"
)
