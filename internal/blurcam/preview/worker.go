package preview

import (
	"context"
	"errors"
	"fmt"

	"github.com/autopeer-io/blurcam/internal/blurcam/core"
	"github.com/autopeer-io/blurcam/pkg/log"
)

// Worker copies frames from the camera's live preview into a Buffer.
type Worker struct {
	camera core.Camera
	buffer *Buffer
	log    log.Logger
}

func NewWorker(camera core.Camera, buffer *Buffer) *Worker {
	return &Worker{
		camera: camera,
		buffer: buffer,
		log:    log.WithName("preview"),
	}
}

// Run streams frames until ctx is done or the stream fails. Stopping because
// ctx is done is not an error.
func (w *Worker) Run(ctx context.Context) error {
	stream, err := w.camera.StartPreview(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("start preview: %w", err)
	}
	defer stream.Close()

	w.log.Info("Live preview started")
	defer w.log.Info("Live preview stopped", "reason", context.Cause(ctx))

	for {
		data, err := stream.Next(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("read preview frame: %w", err)
		}
		w.buffer.Store(data)
	}
}
