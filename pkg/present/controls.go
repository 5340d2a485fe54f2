package present

import (
	"fmt"

	"github.com/shouni/go-collage-kit/pkg/domain"
)

// Controls は画面上の操作の有効状態とタイトルです。
type Controls struct {
	SaveEnabled  bool
	ClearEnabled bool
	AddEnabled   bool
	Title        string
}

// Derive は画像の枚数から Controls を求めます。
// 保存は偶数枚のときだけ、追加は上限未満のときだけ有効です。
func Derive(count int) Controls {
	title := "Collage"
	if count > 0 {
		title = fmt.Sprintf("%d photos", count)
	}
	return Controls{
		SaveEnabled:  count > 0 && count%2 == 0,
		ClearEnabled: count > 0,
		AddEnabled:   count < domain.MaxCollageImages,
		Title:        title,
	}
}
