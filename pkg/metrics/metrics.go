package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics は選択パイプラインと保存処理のメトリクスをまとめたものです。
// nil のままでも各メソッドは安全に呼び出せます。
type Metrics struct {
	decisions    *prometheus.CounterVec
	saves        *prometheus.CounterVec
	saveDuration prometheus.Histogram
}

// New は reg にメトリクスを登録して返します。reg が nil の場合は登録しません。
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		// Labels: "accept", "reject_orientation", "reject_duplicate", "end"
		decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "collage_selection_decisions_total",
			Help: "Selection pipeline decisions by result",
		}, []string{"decision"}),
		saves: f.NewCounterVec(prometheus.CounterOpts{
			Name: "collage_saves_total",
			Help: "Collage save attempts by result",
		}, []string{"result"}),
		saveDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "collage_save_duration_seconds",
			Help:    "Time spent writing a collage to the photo store",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
	}
}

// ObserveDecision は選択パイプラインの判定結果を1件数えます。
func (m *Metrics) ObserveDecision(decision string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(decision).Inc()
}

// ObserveSave は保存結果と所要時間を記録します。
func (m *Metrics) ObserveSave(ok bool, d time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.saves.WithLabelValues(result).Inc()
	m.saveDuration.Observe(d.Seconds())
}
