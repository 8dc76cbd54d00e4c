package hal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/autopeer-io/blurcam/internal/blurcam/core"
	"github.com/autopeer-io/blurcam/pkg/log"
)

// HTTPCamera talks to the device's local camera API.
type HTTPCamera struct {
	endpoint     string
	dcimDir      string
	pollInterval time.Duration
	client       *http.Client
	log          log.Logger
}

var (
	_ core.Camera      = (*HTTPCamera)(nil)
	_ core.OptionStore = (*HTTPCamera)(nil)
)

// NewHTTPCamera returns a camera client for endpoint. Captured file URLs are
// resolved under dcimDir.
func NewHTTPCamera(endpoint, dcimDir string, pollInterval time.Duration) *HTTPCamera {
	return &HTTPCamera{
		endpoint:     strings.TrimRight(endpoint, "/"),
		dcimDir:      dcimDir,
		pollInterval: pollInterval,
		client:       &http.Client{},
		log:          log.WithName("camera"),
	}
}

// oscResponse is the envelope of /osc/commands/execute and /osc/commands/status.
type oscResponse struct {
	Name    string          `json:"name"`
	State   string          `json:"state"`
	ID      string          `json:"id"`
	Results json.RawMessage `json:"results"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (r *oscResponse) err() error {
	if r.State != "error" {
		return nil
	}
	if r.Error == nil {
		return fmt.Errorf("camera %s failed", r.Name)
	}
	return fmt.Errorf("camera %s failed: %s: %s", r.Name, r.Error.Code, r.Error.Message)
}

func (c *HTTPCamera) Capture(ctx context.Context, params json.RawMessage) (core.Artifact, error) {
	resp, err := c.execute(ctx, "camera.takePicture", params)
	if err != nil {
		return core.Artifact{}, err
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for resp.State == "inProgress" {
		select {
		case <-ctx.Done():
			return core.Artifact{}, context.Cause(ctx)
		case <-ticker.C:
		}
		body, err := c.post(ctx, "/osc/commands/status", map[string]string{"id": resp.ID})
		if err != nil {
			return core.Artifact{}, err
		}
		resp = &oscResponse{}
		if err := json.Unmarshal(body, resp); err != nil {
			return core.Artifact{}, fmt.Errorf("decode status: %w", err)
		}
		if err := resp.err(); err != nil {
			return core.Artifact{}, err
		}
	}

	var results struct {
		FileURL string `json:"fileUrl"`
	}
	if err := json.Unmarshal(resp.Results, &results); err != nil || results.FileURL == "" {
		return core.Artifact{}, errors.New("camera returned no fileUrl")
	}
	path, ok := core.LocalPath(c.dcimDir, results.FileURL)
	if !ok {
		return core.Artifact{}, fmt.Errorf("fileUrl %q is outside DCIM", results.FileURL)
	}
	c.log.Info("Picture captured", "fileUrl", results.FileURL, "path", path)
	return core.Artifact{Path: path}, nil
}

func (c *HTTPCamera) CheckStatus(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	return c.post(ctx, "/osc/commands/status", params)
}

func (c *HTTPCamera) GetOptions(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	resp, err := c.execute(ctx, "camera.getOptions", params)
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (c *HTTPCamera) SetOptions(ctx context.Context, params json.RawMessage) error {
	_, err := c.execute(ctx, "camera.setOptions", params)
	return err
}

// StartPreview opens the MJPEG stream returned by camera.getLivePreview.
func (c *HTTPCamera) StartPreview(ctx context.Context) (core.PreviewStream, error) {
	req, err := c.newRequest(ctx, "/osc/commands/execute", map[string]any{"name": "camera.getLivePreview"})
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("start live preview: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("start live preview: status %d", resp.StatusCode)
	}

	_, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || params["boundary"] == "" {
		resp.Body.Close()
		return nil, fmt.Errorf("live preview is not a multipart stream: %q", resp.Header.Get("Content-Type"))
	}
	return &mjpegStream{body: resp.Body, reader: multipart.NewReader(resp.Body, params["boundary"])}, nil
}

func (c *HTTPCamera) execute(ctx context.Context, name string, params json.RawMessage) (*oscResponse, error) {
	payload := map[string]any{"name": name}
	if len(params) > 0 {
		payload["parameters"] = params
	}
	body, err := c.post(ctx, "/osc/commands/execute", payload)
	if err != nil {
		return nil, err
	}
	resp := &oscResponse{}
	if err := json.Unmarshal(body, resp); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", name, err)
	}
	return resp, resp.err()
}

func (c *HTTPCamera) post(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	req, err := c.newRequest(ctx, path, payload)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("camera %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("camera %s: %w", path, err)
	}
	if resp.StatusCode >= http.StatusBadRequest && !json.Valid(body) {
		return nil, fmt.Errorf("camera %s: status %d", path, resp.StatusCode)
	}
	return body, nil
}

func (c *HTTPCamera) newRequest(ctx context.Context, path string, payload any) (*http.Request, error) {
	var body []byte
	switch p := payload.(type) {
	case json.RawMessage:
		body = p
	default:
		b, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		body = b
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json;charset=utf-8")
	return req, nil
}

type mjpegStream struct {
	body   io.ReadCloser
	reader *multipart.Reader
}

func (s *mjpegStream) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	part, err := s.reader.NextPart()
	if err != nil {
		return nil, err
	}
	defer part.Close()
	return io.ReadAll(part)
}

func (s *mjpegStream) Close() error {
	return s.body.Close()
}
