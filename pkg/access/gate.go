package access

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-collage-kit/pkg/domain"
	"github.com/shouni/go-collage-kit/pkg/loop"
)

// Library はフォトライブラリのアクセス許可に関する操作を抽象化するインターフェースです。
type Library interface {
	// Authorization は現在の許可状態を返します。
	Authorization(ctx context.Context) (domain.AuthStatus, error)
	// RequestAccess はユーザーに許可を求め、許可されたかどうかを返します。
	RequestAccess(ctx context.Context) (bool, error)
}

// Gate はフォトライブラリへのアクセス可否を確認するコンポーネントです。
type Gate struct {
	library Library
}

// NewGate は Library を注入して Gate を初期化します。
func NewGate(library Library) (*Gate, error) {
	if library == nil {
		return nil, fmt.Errorf("library is required")
	}
	return &Gate{library: library}, nil
}

// CheckAccess はアクセス可否を流すワンショットのストリームを返します。
//
// 許可済みなら true を1つ流して閉じます。それ以外の場合はまず false を流し、
// 許可ダイアログの結果をもう1つ流して閉じます。エラーは false として扱います。
// 呼び出し側はブロックされず、ctx がキャンセルされるとそれ以上値を流さずに閉じます。
func (g *Gate) CheckAccess(ctx context.Context) <-chan bool {
	out := make(chan bool, 2)

	go func() {
		defer close(out)

		status, err := g.library.Authorization(ctx)
		if err != nil {
			slog.WarnContext(ctx, "アクセス許可状態の取得に失敗しました", "error", err)
		}
		if ctx.Err() != nil {
			return
		}
		if err == nil && status == domain.AuthAuthorized {
			out <- true
			return
		}

		out <- false

		granted, err := g.library.RequestAccess(ctx)
		if err != nil {
			slog.WarnContext(ctx, "アクセス許可の要求に失敗しました", "error", err)
			granted = false
		}
		if ctx.Err() != nil {
			return
		}
		slog.InfoContext(ctx, "アクセス許可を確認しました", "previous", status.String(), "granted", granted)
		out <- granted
	}()

	return out
}

// Resolve はストリームの最後の値を返します。値が1つも届かなかった場合は false です。
func Resolve(ctx context.Context, stream <-chan bool) bool {
	last := false
	for {
		select {
		case <-ctx.Done():
			return false
		case v, ok := <-stream:
			if !ok {
				return last
			}
			last = v
		}
	}
}

// Forward はストリームの各値を d 上で fn に渡します。ストリームが閉じると done を d 上で呼びます。
func Forward(stream <-chan bool, d loop.Dispatcher, fn func(granted bool), done func()) {
	go func() {
		for v := range stream {
			v := v
			d.Dispatch(func() { fn(v) })
		}
		if done != nil {
			d.Dispatch(done)
		}
	}()
}

// Static は常に同じ状態を返す Library です。許可モデルを持たない保存先で使います。
type Static domain.AuthStatus

// Authorization は固定の状態を返します。
func (s Static) Authorization(context.Context) (domain.AuthStatus, error) {
	return domain.AuthStatus(s), nil
}

// RequestAccess は固定の状態が許可済みかどうかを返します。
func (s Static) RequestAccess(context.Context) (bool, error) {
	return domain.AuthStatus(s) == domain.AuthAuthorized, nil
}
