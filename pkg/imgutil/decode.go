package imgutil

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strings"

	"github.com/shouni/go-collage-kit/pkg/domain"
)

// Decode はエンコード済みのバイト列から domain.Image を組み立てます。
func Decode(source string, data []byte) (domain.Image, error) {
	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return domain.Image{}, fmt.Errorf("画像ではないデータです (source: %s, mime: %s)", source, mimeType)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return domain.Image{}, fmt.Errorf("画像のデコードに失敗しました (source: %s): %w", source, err)
	}

	b := img.Bounds()
	return domain.Image{
		Source:   source,
		Data:     data,
		MimeType: mimeType,
		Width:    b.Dx(),
		Height:   b.Dy(),
		Bitmap:   img,
	}, nil
}

// FromBitmap はメモリ上の画像から domain.Image を作ります。Data は空のままです。
func FromBitmap(source string, img image.Image) domain.Image {
	if img == nil {
		return domain.Image{Source: source}
	}
	b := img.Bounds()
	return domain.Image{
		Source: source,
		Width:  b.Dx(),
		Height: b.Dy(),
		Bitmap: img,
	}
}
