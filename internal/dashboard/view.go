// Package dashboard はPerson一覧と統計グラフの表示ビューを提供する。
//
// ビューはデータ変更のシグナルを受けてフルリストを再取得する。
// シグナルはデバウンスされ、連続した変更でも再取得は1回に集約される。
// グラフの再構築は一覧の再描画より長いデバウンスで行う。
package dashboard

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/personbook/internal/chart"
	"github.com/hitoshi/personbook/internal/model"
)

// DataSource は一覧データの取得インターフェース。
// client.PersonServiceがそのまま満たす。
type DataSource interface {
	List(ctx context.Context) (persons []*model.Person, fromCache bool, err error)
}

// Renderer は取得結果の描画インターフェース。
type Renderer interface {
	RenderList(persons []*model.Person, fromCache bool)
	RenderCharts(professions, ages, months chart.Dataset)
}

// View はPerson一覧と統計グラフのビュー。
// Notifyで変更シグナルを受け取り、デバウンス後にデータを再取得して描画する。
type View struct {
	source   DataSource
	renderer Renderer

	reloadDebounce time.Duration
	chartDebounce  time.Duration

	signals chan struct{}
}

// NewView はViewを生成する。
func NewView(source DataSource, renderer Renderer, reloadDebounce, chartDebounce time.Duration) *View {
	return &View{
		source:         source,
		renderer:       renderer,
		reloadDebounce: reloadDebounce,
		chartDebounce:  chartDebounce,
		signals:        make(chan struct{}, 1),
	}
}

// Notify は変更シグナルを送る。ノンブロッキングで、処理待ちの
// シグナルが既にある場合は何もしない（いずれにせよ再取得は1回で足りる）。
func (v *View) Notify() {
	select {
	case v.signals <- struct{}{}:
	default:
	}
}

// Run は初回の取得・描画を行った後、変更シグナルを待ち受けるループに入る。
// ctxのキャンセルで終了する。
func (v *View) Run(ctx context.Context) error {
	persons, _ := v.reload(ctx)
	v.renderCharts(persons)

	var chartCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-v.signals:
			// デバウンス: 窓内に届いた後続シグナルをまとめる
			timer := time.NewTimer(v.reloadDebounce)
		drain:
			for {
				select {
				case <-v.signals:
				case <-timer.C:
					break drain
				case <-ctx.Done():
					timer.Stop()
					return nil
				}
			}

			if updated, ok := v.reload(ctx); ok {
				persons = updated

				// グラフは一覧より長いデバウンスで再構築する
				chartCh = time.After(v.chartDebounce)
			}

		case <-chartCh:
			v.renderCharts(persons)
			chartCh = nil
		}
	}
}

// reload はフルリストを再取得して一覧を描画する。
// 取得に失敗した場合は描画を行わず、前回の表示を維持する。
func (v *View) reload(ctx context.Context) ([]*model.Person, bool) {
	persons, fromCache, err := v.source.List(ctx)
	if err != nil {
		slog.Warn("failed to reload persons", slog.String("error", err.Error()))
		return nil, false
	}

	v.renderer.RenderList(persons, fromCache)
	return persons, true
}

// renderCharts は3種類の集計を再計算して描画する。
// 既存のグラフは描画側で破棄・置換される。
func (v *View) renderCharts(persons []*model.Person) {
	v.renderer.RenderCharts(
		chart.ProfessionCounts(persons),
		chart.AgeBuckets(persons),
		chart.MonthlyCounts(persons),
	)
}
