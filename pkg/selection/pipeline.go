package selection

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shouni/go-collage-kit/pkg/domain"
	"github.com/shouni/go-collage-kit/pkg/imgutil"
	"github.com/shouni/go-collage-kit/pkg/loop"
	"github.com/shouni/go-collage-kit/pkg/metrics"
)

// Session はパイプラインが読み書きするコラージュの状態です。collage.State が満たします。
type Session interface {
	Len() int
	HasFingerprint(fp int) bool
	RecordFingerprint(fp int)
	Append(img domain.Image) error
}

// EndReason は選択セッションが終了した理由です。
type EndReason string

const (
	EndCapacity    EndReason = "capacity"     // 上限枚数に到達
	EndInputClosed EndReason = "input_closed" // ピッカーが閉じられた
	EndCancelled   EndReason = "cancelled"    // 呼び出し側がキャンセルした

	// EndAccessDenied はフォトライブラリへのアクセスが拒否され、セッションが始まらなかったことを表します。
	EndAccessDenied EndReason = "access_denied"
)

// Summary は1回の選択セッションの集計です。
type Summary struct {
	Offered             int
	Accepted            int
	RejectedOrientation int
	RejectedDuplicate   int
	Reason              EndReason
}

// Pipeline は選択された画像を検証し、受け入れたものを Session に追加します。
type Pipeline struct {
	session     Session
	dispatcher  loop.Dispatcher
	fingerprint func(domain.Image) int
	metrics     *metrics.Metrics
}

// Option は Pipeline の設定を変更します。
type Option func(*Pipeline)

// WithFingerprint はフィンガープリントの計算方法を差し替えます。
func WithFingerprint(fn func(domain.Image) int) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.fingerprint = fn
		}
	}
}

// WithMetrics は判定結果を記録するメトリクスを設定します。
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// New は依存関係を注入して Pipeline を初期化します。
// dispatcher は session を所有する実行コンテキストでなければなりません。
func New(session Session, dispatcher loop.Dispatcher, opts ...Option) (*Pipeline, error) {
	if session == nil {
		return nil, fmt.Errorf("session is required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}

	p := &Pipeline{
		session:     session,
		dispatcher:  dispatcher,
		fingerprint: imgutil.Fingerprint,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Offer は候補画像を判定し、Accept ならフィンガープリントを記録して追加します。
// 所有コンテキスト上で呼び出してください。
func (p *Pipeline) Offer(img domain.Image, fingerprint int) Decision {
	d := Evaluate(Snapshot{Count: p.session.Len(), Seen: p.session.HasFingerprint}, img, fingerprint)
	if d == Accept {
		p.session.RecordFingerprint(fingerprint)
		if err := p.session.Append(img); err != nil {
			// 判定と追加は同じコンテキスト上なので通常は起こらない
			slog.Warn("画像の追加に失敗しました", "source", img.Source, "error", err)
			d = End
		}
	}

	p.metrics.ObserveDecision(d.String())
	slog.Debug("選択画像を判定しました", "source", img.Source, "decision", d.String(), "fingerprint", fingerprint, "count", p.session.Len())
	return d
}

// Run は picks から届く画像を順に判定するセッションを開始します。
// 上限到達、picks のクローズ、キャンセルのいずれかで終了し、
// onComplete は所有コンテキスト上でちょうど1回呼ばれます。
func (p *Pipeline) Run(ctx context.Context, picks <-chan domain.Image, onComplete func(Summary)) *Run {
	ctx, cancel := context.WithCancel(ctx)
	r := &Run{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(r.done)
		defer cancel()

		sum := p.consume(ctx, picks)
		slog.InfoContext(ctx, "選択セッションが終了しました",
			"reason", sum.Reason, "offered", sum.Offered, "accepted", sum.Accepted)

		if onComplete != nil {
			p.dispatcher.Dispatch(func() { onComplete(sum) })
		}
	}()
	return r
}

type offerResult struct {
	decision Decision
	full     bool
	skipped  bool
}

func (p *Pipeline) consume(ctx context.Context, picks <-chan domain.Image) Summary {
	var sum Summary
	for {
		var img domain.Image
		var ok bool
		select {
		case <-ctx.Done():
			sum.Reason = EndCancelled
			return sum
		case img, ok = <-picks:
		}
		if !ok {
			sum.Reason = EndInputClosed
			return sum
		}

		// フィンガープリントの計算は重いので所有コンテキストの外で行う
		fp := p.fingerprint(img)

		resc := make(chan offerResult, 1)
		dispatched := p.dispatcher.Dispatch(func() {
			if ctx.Err() != nil {
				resc <- offerResult{skipped: true}
				return
			}
			d := p.Offer(img, fp)
			resc <- offerResult{decision: d, full: !underCapacity(p.session.Len())}
		})
		if !dispatched {
			sum.Reason = EndCancelled
			return sum
		}

		var res offerResult
		select {
		case <-ctx.Done():
			// キャンセルと同時に判定が終わっていれば State と数を合わせる
			select {
			case res = <-resc:
				if !res.skipped {
					sum.tally(res.decision)
				}
			default:
			}
			sum.Reason = EndCancelled
			return sum
		case res = <-resc:
		}
		if res.skipped {
			sum.Reason = EndCancelled
			return sum
		}

		if res.decision == End {
			sum.Reason = EndCapacity
			return sum
		}
		sum.tally(res.decision)
		if res.full {
			sum.Reason = EndCapacity
			return sum
		}
	}
}

func (s *Summary) tally(d Decision) {
	switch d {
	case Accept:
		s.Offered++
		s.Accepted++
	case RejectOrientation:
		s.Offered++
		s.RejectedOrientation++
	case RejectDuplicate:
		s.Offered++
		s.RejectedDuplicate++
	}
}

// Run は実行中の選択セッションのハンドルです。
type Run struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Cancel はセッションを終了させます。何度呼んでも安全です。
func (r *Run) Cancel() {
	r.once.Do(r.cancel)
}

// Done はセッションの読み取りゴルーチンが終了したときにクローズされます。
func (r *Run) Done() <-chan struct{} {
	return r.done
}
