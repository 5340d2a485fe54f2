package adapters

import (
	"context"
	"time"
)

// --- Mocks ---

// mockUploader は FileUploader のテスト用モックです。
type mockUploader struct {
	uploadErr       error
	uploadCalls     int
	lastData        []byte
	lastMimeType    string
	lastDisplayName string

	deleteCalled bool
	lastFileName string
}

func (m *mockUploader) UploadFile(ctx context.Context, data []byte, mimeType, displayName string) (string, string, error) {
	m.uploadCalls++
	m.lastData = data
	m.lastMimeType = mimeType
	m.lastDisplayName = displayName
	if m.uploadErr != nil {
		return "", "", m.uploadErr
	}
	return "https://gemini.api/files/new-file-id", "files/new-file-id", nil
}

func (m *mockUploader) DeleteFile(ctx context.Context, name string) error {
	m.deleteCalled = true
	m.lastFileName = name
	return nil
}

// mockCache は ImageCacher インターフェースを実装します。
type mockCache struct {
	data map[string]any
}

func (m *mockCache) Get(key string) (any, bool) {
	v, ok := m.data[key]
	return v, ok
}

func (m *mockCache) Set(key string, value any, d time.Duration) {
	if m.data == nil {
		m.data = make(map[string]any)
	}
	m.data[key] = value
}
