package imgutil

import (
	"image/png"
	"io"

	"github.com/shouni/go-collage-kit/pkg/domain"
)

// Fingerprint は画像を PNG に再エンコードしたときのバイト長を返します。
// 内容ハッシュではなく簡易的な同一性の目安であり、長さが偶然一致した別画像も同一とみなされます。
// デコードされていない画像やエンコードに失敗した画像は 0 になり、互いに衝突します。
func Fingerprint(img domain.Image) int {
	if img.Bitmap == nil {
		return 0
	}
	var w countingWriter
	if err := png.Encode(&w, img.Bitmap); err != nil {
		return 0
	}
	return w.n
}

type countingWriter struct {
	n int
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += len(p)
	return len(p), nil
}

var _ io.Writer = (*countingWriter)(nil)
