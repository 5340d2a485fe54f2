package selection

import "github.com/shouni/go-collage-kit/pkg/domain"

// Decision は候補画像1枚に対する判定結果です。
type Decision int

const (
	// Accept はコラージュへの追加を許可します。
	Accept Decision = iota
	// RejectOrientation は横長でない画像を除外します。
	RejectOrientation
	// RejectDuplicate はフィンガープリントが既出の画像を除外します。
	RejectDuplicate
	// End は上限枚数に達しているため、この選択セッションを終了させます。
	End
)

func (d Decision) String() string {
	switch d {
	case Accept:
		return "accept"
	case RejectOrientation:
		return "reject_orientation"
	case RejectDuplicate:
		return "reject_duplicate"
	case End:
		return "end"
	default:
		return "unknown"
	}
}

// Snapshot は判定時点のコラージュの読み取り専用ビューです。
type Snapshot struct {
	Count int
	Seen  func(fingerprint int) bool
}

// Evaluate は候補画像を次の順で判定します。前段で確定した時点で後段は評価しません。
//
//  1. 容量: 既に上限枚数なら End
//  2. 向き: 幅 <= 高さなら RejectOrientation
//  3. 一意性: フィンガープリントが既出なら RejectDuplicate
func Evaluate(snap Snapshot, img domain.Image, fingerprint int) Decision {
	if !underCapacity(snap.Count) {
		return End
	}
	if !img.IsLandscape() {
		return RejectOrientation
	}
	if snap.Seen != nil && snap.Seen(fingerprint) {
		return RejectDuplicate
	}
	return Accept
}

func underCapacity(count int) bool {
	return count < domain.MaxCollageImages
}
