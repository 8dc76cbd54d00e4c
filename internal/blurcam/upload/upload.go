package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/autopeer-io/blurcam/internal/blurcam/core"
	"github.com/autopeer-io/blurcam/internal/pkg/metrics"
	"github.com/autopeer-io/blurcam/pkg/log"
	"github.com/autopeer-io/blurcam/pkg/options"
)

// ErrUnexpectedStatus is returned when the destination answers anything but 202 Accepted.
var ErrUnexpectedStatus = errors.New("unexpected upload response status")

// StatusError carries the response of a rejected upload.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d", ErrUnexpectedStatus, e.StatusCode)
}

func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

// Client uploads files as multipart/form-data. It never retries.
type Client struct {
	http      *http.Client
	chunkSize int
	mimeType  string
	now       func() time.Time
	log       log.Logger
}

var _ core.Uploader = (*Client)(nil)

// New builds a Client from opts. A nil opts uses the defaults.
func New(opts *options.UploadOptions) *Client {
	if opts == nil {
		opts = options.NewUploadOptions()
	}
	chunk := opts.ChunkSize
	if chunk <= 0 || chunk > options.MaxChunkSize {
		chunk = options.MaxChunkSize
	}
	return &Client{
		http:      &http.Client{Timeout: opts.Timeout},
		chunkSize: chunk,
		mimeType:  opts.MimeType,
		now:       time.Now,
		log:       log.WithName("upload"),
	}
}

// Upload sends sourcePath to destinationURL as the "file" part and returns the
// response body of a 202 answer.
func (c *Client) Upload(ctx context.Context, sourcePath, destinationURL string) (string, error) {
	return c.UploadWithFields(ctx, sourcePath, destinationURL, nil)
}

// UploadWithFields is Upload followed by plain-text form fields after the file part.
func (c *Client) UploadWithFields(ctx context.Context, sourcePath, destinationURL string, fields map[string]string) (string, error) {
	f, err := os.Open(sourcePath)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", sourcePath, err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	defer pr.Close()
	mw := multipart.NewWriter(pw)
	if err := mw.SetBoundary(c.boundary()); err != nil {
		return "", fmt.Errorf("set boundary: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, destinationURL, pr)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Connection", "Keep-Alive")
	req.Header.Set("Content-Type", mw.FormDataContentType())

	name := filepath.Base(sourcePath)
	mimeType := c.detectType(f, name)

	go func() {
		pw.CloseWithError(c.writeBody(mw, f, name, mimeType, fields))
	}()

	c.log.Info("Uploading file", "file", sourcePath, "url", destinationURL, "mime", mimeType)
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read upload response: %w", err)
	}

	if resp.StatusCode != http.StatusAccepted {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return string(body), nil
}

func (c *Client) writeBody(mw *multipart.Writer, f *os.File, name, mimeType string, fields map[string]string) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(name)))
	h.Set("Content-Type", mimeType)
	h.Set("Content-Transfer-Encoding", "binary")

	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}

	// chunkReader hides os.File's WriterTo so the copy goes through the bounded buffer.
	n, err := io.CopyBuffer(part, chunkReader{f}, make([]byte, c.chunkSize))
	metrics.UploadBytesTotal.Add(float64(n))
	if err != nil {
		return fmt.Errorf("stream %s: %w", name, err)
	}

	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	return mw.Close()
}

// boundary is unique per call: the current time in milliseconds plus a random part.
func (c *Client) boundary() string {
	return fmt.Sprintf("blurcam%d%s", c.now().UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", ""))
}

func (c *Client) detectType(f *os.File, name string) string {
	if c.mimeType != "" {
		return c.mimeType
	}
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); t != "" {
		return t
	}
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "application/octet-stream"
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "application/octet-stream"
	}
	return http.DetectContentType(head[:n])
}

type chunkReader struct {
	r io.Reader
}

func (c chunkReader) Read(p []byte) (int, error) { return c.r.Read(p) }

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
