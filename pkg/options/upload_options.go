package options

import (
	"errors"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*UploadOptions)(nil)

// UploadOptions configures the multipart upload adapter.
type UploadOptions struct {
	// Timeout bounds a whole upload request, body streaming included. Zero disables it.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// ChunkSize is the read buffer used while streaming a file.
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`

	// MimeType overrides content type detection when set.
	MimeType string `json:"mime-type" mapstructure:"mime-type"`
}

// MaxChunkSize caps ChunkSize.
const MaxChunkSize = 1 << 20

func NewUploadOptions() *UploadOptions {
	return &UploadOptions{
		Timeout:   10 * time.Minute,
		ChunkSize: MaxChunkSize,
	}
}

func (o *UploadOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}

	if o.ChunkSize <= 0 || o.ChunkSize > MaxChunkSize {
		errs = append(errs, errors.New("upload.chunk-size must be in (0, 1MiB]"))
	}
	if o.Timeout < 0 {
		errs = append(errs, errors.New("upload.timeout must not be negative"))
	}

	return errs
}

func (o *UploadOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.DurationVar(&o.Timeout, "upload.timeout", o.Timeout, "Timeout of a whole upload request (0 disables it).")
	fs.IntVar(&o.ChunkSize, "upload.chunk-size", o.ChunkSize, "Read buffer size used while streaming a file, at most 1MiB.")
	fs.StringVar(&o.MimeType, "upload.mime-type", o.MimeType, "Force the MIME type of uploaded files instead of detecting it.")
}
