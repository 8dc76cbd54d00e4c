package upload

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/blurcam/pkg/options"
)

func writeFile(t *testing.T, name string, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestUploadAccepted(t *testing.T) {
	src := writeFile(t, "R0010001.JPG", 3*options.MaxChunkSize+17)

	var (
		gotHeader http.Header
		gotFile   []byte
		gotMime   string
		gotField  string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
		mr, err := r.MultipartReader()
		if !assert.NoError(t, err) {
			return
		}
		for {
			p, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if !assert.NoError(t, err) {
				return
			}
			b, _ := io.ReadAll(p)
			switch p.FormName() {
			case "file":
				gotFile = b
				gotMime = p.Header.Get("Content-Type")
				assert.Equal(t, "R0010001.JPG", p.FileName())
				assert.Equal(t, "binary", p.Header.Get("Content-Transfer-Encoding"))
			case "device":
				gotField = string(b)
			}
		}
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("OK"))
	}))
	defer srv.Close()

	c := New(options.NewUploadOptions())
	body, err := c.UploadWithFields(context.Background(), src, srv.URL, map[string]string{"device": "cam-1"})
	require.NoError(t, err)
	assert.Equal(t, "OK", body)

	want, _ := os.ReadFile(src)
	assert.Equal(t, want, gotFile)
	assert.Equal(t, "image/jpeg", gotMime)
	assert.Equal(t, "cam-1", gotField)
	assert.True(t, strings.HasPrefix(gotHeader.Get("Content-Type"), "multipart/form-data; boundary="))
}

func TestUploadRejectsNon202(t *testing.T) {
	for _, code := range []int{http.StatusOK, http.StatusInternalServerError} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.Copy(io.Discard, r.Body)
			w.WriteHeader(code)
			_, _ = w.Write([]byte("nope"))
		}))

		_, err := New(nil).Upload(context.Background(), writeFile(t, "a.jpg", 10), srv.URL)
		srv.Close()

		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, code, se.StatusCode)
		assert.Equal(t, "nope", se.Body)
		assert.ErrorIs(t, err, ErrUnexpectedStatus)
	}
}

func TestUploadUnreachableDoesNotRetry(t *testing.T) {
	var mu sync.Mutex
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
	}))
	url := srv.URL
	srv.Close()

	_, err := New(nil).Upload(context.Background(), writeFile(t, "a.jpg", 10), url)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnexpectedStatus)
	assert.Zero(t, hits)
}

func TestUploadMissingFile(t *testing.T) {
	_, err := New(nil).Upload(context.Background(), filepath.Join(t.TempDir(), "missing.jpg"), "http://127.0.0.1:1")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestBoundaryUniquePerCall(t *testing.T) {
	c := New(nil)
	fixed := time.UnixMilli(1700000000000)
	c.now = func() time.Time { return fixed }

	a, b := c.boundary(), c.boundary()
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "1700000000000")
	assert.LessOrEqual(t, len(a), 70)
}

func TestDetectType(t *testing.T) {
	c := New(nil)

	short := filepath.Join(t.TempDir(), "page")
	require.NoError(t, os.WriteFile(short, []byte("<html><body>hi</body></html>"), 0o644))
	f, err := os.Open(short)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, "text/html; charset=utf-8", c.detectType(f, "page"))

	// Reading a directory fails, so nothing can be sniffed.
	dir, err := os.Open(t.TempDir())
	require.NoError(t, err)
	defer dir.Close()
	assert.Equal(t, "application/octet-stream", c.detectType(dir, "blob"))
}
