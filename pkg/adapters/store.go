package adapters

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shouni/go-gemini-client/pkg/gemini"

	"github.com/shouni/go-collage-kit/pkg/imgutil"
)

const (
	cacheKeyFileAPIName = "gemini_file_name:"

	// UploadCompressionQuality は JPEG 以外の入力をアップロード前に圧縮するときの品質です。
	UploadCompressionQuality = 85
)

// FileUploader は Gemini File API へのアップロードと削除を抽象化するインターフェースです。
type FileUploader interface {
	UploadFile(ctx context.Context, data []byte, mimeType, displayName string) (string, string, error)
	DeleteFile(ctx context.Context, name string) error
}

var _ FileUploader = (gemini.GenerativeModel)(nil)

// ImageCacher はキャッシュ操作を抽象化するインターフェースです。
type ImageCacher interface {
	Get(key string) (any, bool)
	Set(key string, value any, d time.Duration)
}

// GeminiAssetStore はコラージュを Gemini File API にアップロードする asset.Store です。
// 作成したアセットの識別子はアップロード先の URI です。
type GeminiAssetStore struct {
	uploader FileUploader
	cache    ImageCacher
	cacheTTL time.Duration
}

// NewGeminiAssetStore は依存関係を注入して GeminiAssetStore を初期化します。
// cache は nil を許容しますが、その場合 DeleteAsset は使えません。
func NewGeminiAssetStore(uploader FileUploader, cache ImageCacher, cacheTTL time.Duration) (*GeminiAssetStore, error) {
	if uploader == nil {
		return nil, fmt.Errorf("uploader is required")
	}
	return &GeminiAssetStore{uploader: uploader, cache: cache, cacheTTL: cacheTTL}, nil
}

// CreateAsset は data を1回のアップロードで保存し、URI を返します。
func (s *GeminiAssetStore) CreateAsset(ctx context.Context, data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("asset data is empty")
	}

	finalData := data
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if mimeType != "image/jpeg" && strings.HasPrefix(mimeType, "image/") {
		if compressed, err := imgutil.CompressToJPEG(data, UploadCompressionQuality); err == nil {
			finalData = compressed
			mimeType = "image/jpeg"
		} else {
			slog.WarnContext(ctx, "アップロード前の圧縮に失敗しました。元のデータを使います", "mime_type", mimeType, "error", err)
		}
	}

	displayName := "collage-" + uuid.NewString() + ".jpg"
	uri, fileName, err := s.uploader.UploadFile(ctx, finalData, mimeType, displayName)
	if err != nil {
		return "", fmt.Errorf("Gemini File API へのアップロードに失敗しました: %w", err)
	}

	// URI からは削除できないので Name（files/xxxx）を覚えておく
	if s.cache != nil && uri != "" {
		s.cache.Set(cacheKeyFileAPIName+uri, fileName, s.cacheTTL)
	}

	slog.InfoContext(ctx, "コラージュをアップロードしました", "uri", uri, "name", fileName, "bytes", len(finalData))
	return uri, nil
}

// DeleteAsset はキャッシュされたファイル名を使用して Gemini File API からファイルを削除します。
func (s *GeminiAssetStore) DeleteAsset(ctx context.Context, uri string) error {
	if s.cache != nil {
		if val, ok := s.cache.Get(cacheKeyFileAPIName + uri); ok {
			if name, ok := val.(string); ok {
				return s.uploader.DeleteFile(ctx, name)
			}
			slog.WarnContext(ctx, "キャッシュデータが不正な型です", "uri", uri, "type", fmt.Sprintf("%T", val))
		}
	}
	return fmt.Errorf("cannot determine file name for deletion, file not found in cache: %s", uri)
}
