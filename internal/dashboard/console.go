package dashboard

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/hitoshi/personbook/internal/chart"
	"github.com/hitoshi/personbook/internal/model"
)

// ConsoleRenderer は一覧とグラフをテキストで描画するRenderer実装。
type ConsoleRenderer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleRenderer はConsoleRendererを生成する。
func NewConsoleRenderer(out io.Writer) *ConsoleRenderer {
	return &ConsoleRenderer{out: out}
}

var _ Renderer = (*ConsoleRenderer)(nil)

// RenderList はPerson一覧をタブ区切りの表で出力する。
func (r *ConsoleRenderer) RenderList(persons []*model.Person, fromCache bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if fromCache {
		fmt.Fprintln(r.out, "[datos en caché - sin conexión]")
	}

	w := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNOMBRE\tEMAIL\tEDAD\tPROFESIÓN")
	for _, p := range persons {
		fmt.Fprintf(w, "%d\t%s %s\t%s\t%s\t%s\n",
			p.ID, p.FirstName, p.LastName, p.Email,
			deref(p.Age), chart.TranslateProfession(p.Profession))
	}
	w.Flush()
	fmt.Fprintf(r.out, "total: %d\n\n", len(persons))
}

// RenderCharts は3種類の集計を水平バーで出力する。
// 前回の出力を上書きはせず追記する（端末スクロールに任せる）。
func (r *ConsoleRenderer) RenderCharts(professions, ages, months chart.Dataset) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.renderDataset("Profesiones", professions)
	r.renderDataset("Edades", ages)
	r.renderDataset("Por mes", months)
}

func (r *ConsoleRenderer) renderDataset(title string, ds chart.Dataset) {
	fmt.Fprintf(r.out, "-- %s --\n", title)
	for i, label := range ds.Labels {
		fmt.Fprintf(r.out, "%-16s %s %d\n", label, strings.Repeat("#", ds.Data[i]), ds.Data[i])
	}
	fmt.Fprintln(r.out)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
