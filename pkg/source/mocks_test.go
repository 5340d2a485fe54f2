package source

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type mockHTTPClient struct {
	mu    sync.Mutex
	data  map[string][]byte
	calls []string
}

func (m *mockHTTPClient) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, url)
	if d, ok := m.data[url]; ok {
		return d, nil
	}
	return nil, errors.New("404 not found")
}

// mockReader は remoteio.InputReader のテスト用モックです。
type mockReader struct {
	files map[string][]byte
}

func (m *mockReader) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	d, ok := m.files[uri]
	if !ok {
		return nil, errors.New("no such file")
	}
	return io.NopCloser(bytes.NewReader(d)), nil
}

func (m *mockReader) List(ctx context.Context, uri string, fn func(string) error) error {
	for name := range m.files {
		if err := fn(name); err != nil {
			return err
		}
	}
	return nil
}

// slowReader は読み込みを遅らせ、同時に開かれた数の最大値を記録します。
type slowReader struct {
	mockReader
	delay time.Duration

	mu       sync.Mutex
	inFlight int
	peak     int
}

func (r *slowReader) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	r.mu.Lock()
	r.inFlight++
	r.peak = max(r.peak, r.inFlight)
	r.mu.Unlock()

	time.Sleep(r.delay)

	r.mu.Lock()
	r.inFlight--
	r.mu.Unlock()
	return r.mockReader.Open(ctx, uri)
}

func (r *slowReader) Peak() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.peak
}

func allowAll(string) (bool, error) { return true, nil }

func pngData(t *testing.T, w, h int) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	require.NoError(t, png.Encode(buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}
