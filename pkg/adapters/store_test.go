package adapters

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-collage-kit/pkg/asset"
)

var _ asset.Store = (*GeminiAssetStore)(nil)

func encoded(t *testing.T, format string) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 20, 10))
	buf := new(bytes.Buffer)
	switch format {
	case "png":
		require.NoError(t, png.Encode(buf, img))
	default:
		require.NoError(t, jpeg.Encode(buf, img, nil))
	}
	return buf.Bytes()
}

func TestNewGeminiAssetStore(t *testing.T) {
	_, err := NewGeminiAssetStore(nil, nil, 0)
	assert.Error(t, err)
}

func TestGeminiAssetStore_CreateAsset(t *testing.T) {
	ctx := context.Background()

	t.Run("JPEGはそのままアップロードしURIを返す", func(t *testing.T) {
		up := &mockUploader{}
		cache := &mockCache{}
		s, err := NewGeminiAssetStore(up, cache, time.Hour)
		require.NoError(t, err)

		data := encoded(t, "jpeg")
		id, err := s.CreateAsset(ctx, data, "image/jpeg")
		require.NoError(t, err)
		assert.Equal(t, "https://gemini.api/files/new-file-id", id)
		assert.Equal(t, data, up.lastData)
		assert.Equal(t, "image/jpeg", up.lastMimeType)
		assert.True(t, strings.HasPrefix(up.lastDisplayName, "collage-"))
		assert.Equal(t, "files/new-file-id", cache.data[cacheKeyFileAPIName+id])
	})

	t.Run("PNGはJPEGに圧縮してからアップロードする", func(t *testing.T) {
		up := &mockUploader{}
		s, _ := NewGeminiAssetStore(up, nil, 0)

		_, err := s.CreateAsset(ctx, encoded(t, "png"), "")
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", up.lastMimeType)
		assert.Equal(t, []byte{0xFF, 0xD8}, up.lastData[:2])
	})

	t.Run("アップロードの失敗はエラー", func(t *testing.T) {
		uploadErr := errors.New("quota exceeded")
		s, _ := NewGeminiAssetStore(&mockUploader{uploadErr: uploadErr}, nil, 0)

		id, err := s.CreateAsset(ctx, encoded(t, "jpeg"), "image/jpeg")
		assert.ErrorIs(t, err, uploadErr)
		assert.Empty(t, id)
	})

	t.Run("空データはアップロードしない", func(t *testing.T) {
		up := &mockUploader{}
		s, _ := NewGeminiAssetStore(up, nil, 0)
		_, err := s.CreateAsset(ctx, nil, "image/jpeg")
		assert.Error(t, err)
		assert.Zero(t, up.uploadCalls)
	})

	t.Run("Writer経由で1回だけ書き込む", func(t *testing.T) {
		up := &mockUploader{}
		s, _ := NewGeminiAssetStore(up, nil, 0)
		w, err := asset.NewWriter(s, 80, nil)
		require.NoError(t, err)

		res := <-w.Save(ctx, image.NewRGBA(image.Rect(0, 0, 40, 20)))
		require.NoError(t, res.Err)
		assert.Equal(t, "https://gemini.api/files/new-file-id", res.AssetID)
		assert.Equal(t, 1, up.uploadCalls)
	})
}

func TestGeminiAssetStore_DeleteAsset(t *testing.T) {
	ctx := context.Background()

	t.Run("キャッシュ済みのファイル名で削除する", func(t *testing.T) {
		up := &mockUploader{}
		s, _ := NewGeminiAssetStore(up, NewLRUCache(8, time.Hour), time.Hour)

		uri, err := s.CreateAsset(ctx, encoded(t, "jpeg"), "image/jpeg")
		require.NoError(t, err)
		require.NoError(t, s.DeleteAsset(ctx, uri))
		assert.True(t, up.deleteCalled)
		assert.Equal(t, "files/new-file-id", up.lastFileName)
	})

	t.Run("キャッシュに無ければエラー", func(t *testing.T) {
		up := &mockUploader{}
		s, _ := NewGeminiAssetStore(up, &mockCache{}, time.Hour)
		assert.Error(t, s.DeleteAsset(ctx, "https://gemini.api/files/unknown"))
		assert.False(t, up.deleteCalled)
	})

	t.Run("不正な型のキャッシュはエラー", func(t *testing.T) {
		up := &mockUploader{}
		cache := &mockCache{data: map[string]any{cacheKeyFileAPIName + "u": 42}}
		s, _ := NewGeminiAssetStore(up, cache, time.Hour)
		assert.Error(t, s.DeleteAsset(ctx, "u"))
	})
}

func TestLRUCache(t *testing.T) {
	c := NewLRUCache(2, time.Hour)
	c.Set("a", "1", 0)
	c.Set("b", "2", 0)
	c.Set("c", "3", 0)

	_, ok := c.Get("a")
	assert.False(t, ok, "oldest entry is evicted")
	v, ok := c.Get("c")
	require.True(t, ok)
	assert.Equal(t, "3", v)
}

func TestNewGenAIUploader(t *testing.T) {
	_, err := NewGenAIUploader(nil)
	assert.Error(t, err)
}
