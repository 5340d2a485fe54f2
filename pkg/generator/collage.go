package generator

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"

	"github.com/shouni/go-collage-kit/pkg/domain"
)

// ErrNoImages は合成対象の画像が1枚もない場合に返されます。
var ErrNoImages = errors.New("no images to compose")

// CollageGenerator は選択された画像を1枚のコラージュに合成します。
type CollageGenerator struct {
	size       image.Point
	background color.Color
	scaler     xdraw.Scaler
}

// NewCollageGenerator は出力サイズを指定して CollageGenerator を初期化します。
func NewCollageGenerator(width, height int) (*CollageGenerator, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid collage size: %dx%d", width, height)
	}
	return &CollageGenerator{
		size:       image.Pt(width, height),
		background: color.White,
		scaler:     xdraw.CatmullRom,
	}, nil
}

// Size は出力画像のサイズを返します。
func (g *CollageGenerator) Size() image.Point {
	return g.size
}

// Compose は images を選択順に並べたコラージュを生成します。
// 先に選ばれた画像ほど左上に配置されます。デコードされていない画像の枠は背景色のままです。
func (g *CollageGenerator) Compose(images []domain.Image) (*image.RGBA, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}

	canvas := image.NewRGBA(image.Rectangle{Max: g.size})
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(g.background), image.Point{}, draw.Src)

	for i, cell := range Layout(len(images), canvas.Bounds()) {
		src := images[i].Bitmap
		if src == nil {
			continue
		}
		g.scaler.Scale(canvas, cell, src, coverRect(src.Bounds(), cell), draw.Src, nil)
	}
	return canvas, nil
}

// Layout は n 枚の画像を2枚ずつの行に割り付けたときの各セルを返します。
// 奇数枚の場合、最後の1枚は行の幅いっぱいを使います。
func Layout(n int, bounds image.Rectangle) []image.Rectangle {
	if n <= 0 {
		return nil
	}

	rows := (n + 1) / 2
	cells := make([]image.Rectangle, 0, n)
	for r := 0; r < rows; r++ {
		y0 := bounds.Min.Y + bounds.Dy()*r/rows
		y1 := bounds.Min.Y + bounds.Dy()*(r+1)/rows

		perRow := 2
		if r == rows-1 && n%2 == 1 {
			perRow = 1
		}
		for c := 0; c < perRow; c++ {
			x0 := bounds.Min.X + bounds.Dx()*c/perRow
			x1 := bounds.Min.X + bounds.Dx()*(c+1)/perRow
			cells = append(cells, image.Rect(x0, y0, x1, y1))
		}
	}
	return cells
}

// coverRect は src から dst と同じ縦横比になる中央部分を切り出す矩形を返します。
func coverRect(src, dst image.Rectangle) image.Rectangle {
	sw, sh := src.Dx(), src.Dy()
	dw, dh := dst.Dx(), dst.Dy()
	if sw == 0 || sh == 0 || dw == 0 || dh == 0 {
		return src
	}

	// sw/sh と dw/dh を整数演算で比較する
	if sw*dh > dw*sh {
		w := dw * sh / dh
		x0 := src.Min.X + (sw-w)/2
		return image.Rect(x0, src.Min.Y, x0+w, src.Max.Y)
	}
	h := dh * sw / dw
	y0 := src.Min.Y + (sh-h)/2
	return image.Rect(src.Min.X, y0, src.Max.X, y0+h)
}
