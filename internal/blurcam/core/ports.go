package core

import (
	"context"
	"encoding/json"
)

// Artifact is a picture produced by the camera.
type Artifact struct {
	// Path is the local file path of the picture.
	Path string `json:"path"`
}

// Processed is the outcome of processing one Artifact.
type Processed struct {
	Blurred  string `json:"blurred"`
	Original string `json:"original"`
}

// Camera drives capture and the camera-side status and preview APIs.
type Camera interface {
	// Capture takes one picture. params are the caller's takePicture parameters.
	Capture(ctx context.Context, params json.RawMessage) (Artifact, error)

	// CheckStatus answers checkImageStatus. A nil result means no usable status.
	CheckStatus(ctx context.Context, params json.RawMessage) (json.RawMessage, error)

	// StartPreview opens a live preview stream. The stream ends when ctx is done.
	StartPreview(ctx context.Context) (PreviewStream, error)
}

// PreviewStream yields encoded preview frames.
type PreviewStream interface {
	Next(ctx context.Context) ([]byte, error)
	Close() error
}

// Processor post-processes a captured picture.
type Processor interface {
	Process(ctx context.Context, a Artifact) (Processed, error)
}

// OptionStore reads and writes camera options.
type OptionStore interface {
	GetOptions(ctx context.Context, params json.RawMessage) (json.RawMessage, error)
	SetOptions(ctx context.Context, params json.RawMessage) error
}

// Uploader sends a local file to a remote URL and returns the response body.
type Uploader interface {
	Upload(ctx context.Context, sourcePath, destinationURL string) (string, error)
}
