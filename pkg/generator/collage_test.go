package generator

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-collage-kit/pkg/domain"
)

func solid(w, h int, c color.Color) domain.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, c)
		}
	}
	return domain.Image{Width: w, Height: h, Bitmap: img}
}

// assertNear は補間による誤差を許容して色を比較します。
func assertNear(t *testing.T, want, got color.RGBA) {
	t.Helper()
	near := func(a, b uint8) bool {
		d := int(a) - int(b)
		return d >= -2 && d <= 2
	}
	if !near(want.R, got.R) || !near(want.G, got.G) || !near(want.B, got.B) {
		t.Errorf("color mismatch: want %v, got %v", want, got)
	}
}

func TestNewCollageGenerator(t *testing.T) {
	_, err := NewCollageGenerator(0, 100)
	assert.Error(t, err, "zero width must be rejected")

	g, err := NewCollageGenerator(300, 200)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(300, 200), g.Size())
}

func TestLayout(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 90)

	t.Run("0枚ならセルなし", func(t *testing.T) {
		assert.Empty(t, Layout(0, bounds))
	})

	t.Run("1枚は全面", func(t *testing.T) {
		assert.Equal(t, []image.Rectangle{bounds}, Layout(1, bounds))
	})

	t.Run("2枚は左右に並ぶ", func(t *testing.T) {
		assert.Equal(t, []image.Rectangle{
			image.Rect(0, 0, 50, 90),
			image.Rect(50, 0, 100, 90),
		}, Layout(2, bounds))
	})

	t.Run("3枚は最後の1枚が幅いっぱい", func(t *testing.T) {
		assert.Equal(t, []image.Rectangle{
			image.Rect(0, 0, 50, 45),
			image.Rect(50, 0, 100, 45),
			image.Rect(0, 45, 100, 90),
		}, Layout(3, bounds))
	})

	t.Run("6枚は3行2列でキャンバスを隙間なく覆う", func(t *testing.T) {
		cells := Layout(domain.MaxCollageImages, bounds)
		require.Len(t, cells, 6)
		area := 0
		for _, c := range cells {
			area += c.Dx() * c.Dy()
		}
		assert.Equal(t, bounds.Dx()*bounds.Dy(), area)
	})
}

func TestCollageGenerator_Compose(t *testing.T) {
	g, err := NewCollageGenerator(200, 100)
	require.NoError(t, err)

	t.Run("空の入力はErrNoImages", func(t *testing.T) {
		_, err := g.Compose(nil)
		assert.ErrorIs(t, err, ErrNoImages)
	})

	t.Run("選択順に左から配置される", func(t *testing.T) {
		red := color.RGBA{255, 0, 0, 255}
		blue := color.RGBA{0, 0, 255, 255}

		out, err := g.Compose([]domain.Image{solid(40, 30, red), solid(80, 20, blue)})
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 200, 100), out.Bounds())

		assertNear(t, red, out.RGBAAt(50, 50))
		assertNear(t, blue, out.RGBAAt(150, 50))
	})

	t.Run("デコードされていない画像の枠は背景色", func(t *testing.T) {
		out, err := g.Compose([]domain.Image{{Width: 10, Height: 5}})
		require.NoError(t, err)
		assert.Equal(t, color.RGBA{255, 255, 255, 255}, out.RGBAAt(100, 50))
	})
}

func TestCoverRect(t *testing.T) {
	t.Run("横長の元画像は左右を切る", func(t *testing.T) {
		got := coverRect(image.Rect(0, 0, 400, 100), image.Rect(0, 0, 100, 100))
		assert.Equal(t, image.Rect(150, 0, 250, 100), got)
	})

	t.Run("縦長の元画像は上下を切る", func(t *testing.T) {
		got := coverRect(image.Rect(0, 0, 100, 400), image.Rect(0, 0, 100, 100))
		assert.Equal(t, image.Rect(0, 150, 100, 250), got)
	})
}
