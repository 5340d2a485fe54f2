package domain

import "image"

// MaxCollageImages はコラージュに含められる画像の最大枚数です。
const MaxCollageImages = 6

// Image はユーザーが選択した1枚の写真です。生成後は変更しません。
type Image struct {
	Source   string      // 取得元（パスや URL）
	Data     []byte      // エンコード済みの元データ
	MimeType string      // Data の MIME タイプ
	Width    int         // ピクセル幅
	Height   int         // ピクセル高さ
	Bitmap   image.Image // デコード済みの画像。デコードできなかった場合は nil
}

// IsLandscape は幅が高さより厳密に大きい場合に true を返します。
// 正方形は横長として扱いません。
func (i Image) IsLandscape() bool {
	return i.Width > i.Height
}

// SaveResult はフォトライブラリへの書き込み結果です。
// AssetID と Err のどちらか一方だけが設定されます。
type SaveResult struct {
	AssetID string
	Err     error
}

// OK は保存に成功した場合に true を返します。
func (r SaveResult) OK() bool {
	return r.Err == nil && r.AssetID != ""
}

// AuthStatus はフォトライブラリへのアクセス許可状態です。
type AuthStatus int

const (
	AuthNotDetermined AuthStatus = iota
	AuthDenied
	AuthAuthorized
)

func (s AuthStatus) String() string {
	switch s {
	case AuthAuthorized:
		return "authorized"
	case AuthDenied:
		return "denied"
	default:
		return "not_determined"
	}
}

// ParseAuthStatus は String の出力を AuthStatus に戻します。不明な値は AuthNotDetermined です。
func ParseAuthStatus(s string) AuthStatus {
	switch s {
	case "authorized":
		return AuthAuthorized
	case "denied":
		return AuthDenied
	default:
		return AuthNotDetermined
	}
}
