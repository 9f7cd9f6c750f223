package debug

import (
	"io"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	log "github.com/sirupsen/logrus"
)

// Charts 曲线绘制
type Charts struct {
	Record
}

func legend() charts.GlobalOpts {
	return charts.WithLegendOpts(opts.Legend{
		Type:   "scroll",
		Orient: "vertical",
		Right:  "10",
		Top:    "20",
		Bottom: "20",
	})
}

func (c *Charts) newLine(title, subtitle string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: subtitle,
		}),
		legend(),
		charts.WithXAxisOpts(opts.XAxis{
			Name: "迭代",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale: opts.Bool(true),
		}),
		charts.WithDataZoomOpts(opts.DataZoom{
			Type:       "inside",
			Start:      0,
			End:        100,
			XAxisIndex: []int{0},
		}),
		charts.WithAnimation(true),
	)
	line.SetXAxis(c.Iter)
	return line
}

// columns 按列拆分历史数据
func columns(rows [][]float64, names []string, keep func(int) bool) ([]string, [][]opts.LineData) {
	var series []string
	var items [][]opts.LineData
	for j, name := range names {
		if keep != nil && !keep(j) {
			continue
		}
		data := make([]opts.LineData, len(rows))
		for i, row := range rows {
			data[i].Value = row[j]
		}
		series = append(series, name)
		items = append(items, data)
	}
	return series, items
}

func (c *Charts) network() *charts.Graph {
	graph := charts.NewGraph()
	graph.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "气流网络",
			Subtitle: "区域节点与气流路径, 连线数值为最后一次迭代的主流量 [kg/s]",
		}),
		legend(),
	)
	graph.SetSeriesOptions(
		charts.WithEmphasisOpts(opts.Emphasis{
			Label: &opts.Label{
				Show:     opts.Bool(true),
				Color:    "black",
				Position: "left",
			},
		}),
		charts.WithLineStyleOpts(opts.LineStyle{
			Curveness: 0.3,
		}),
	)
	nodes := make([]opts.GraphNode, len(c.Nodes))
	for i, name := range c.Nodes {
		nodes[i] = opts.GraphNode{
			Name:     name,
			Category: 1,
			Tooltip:  &opts.Tooltip{Show: opts.Bool(true)},
		}
		if c.Free[i] {
			nodes[i].Category = 0
		}
	}
	var last []float64
	if n := len(c.Flow); n > 0 {
		last = c.Flow[n-1]
	}
	links := make([]opts.GraphLink, len(c.Links))
	for i, l := range c.Links {
		links[i] = opts.GraphLink{
			Source: c.Nodes[l.From],
			Target: c.Nodes[l.To],
		}
		if last != nil {
			links[i].Value = float32(last[i])
		}
	}
	graph.AddSeries("气流网络", nodes, links,
		charts.WithGraphChartOpts(opts.GraphChart{
			Categories: []*opts.GraphCategory{
				{Name: "区域", ItemStyle: &opts.ItemStyle{Color: "#1987c7b7"}},
				{Name: "边界", ItemStyle: &opts.ItemStyle{Color: "#c71979b7"}},
			},
			Roam:               opts.Bool(true),
			Force:              &opts.GraphForce{Repulsion: 80},
			EdgeLabel:          &opts.EdgeLabel{Show: opts.Bool(true)},
			FocusNodeAdjacency: opts.Bool(true),
		}))
	return graph
}

// Render 格式化
func (c *Charts) Render(w io.Writer) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	residual := c.newLine("收敛曲线", "相对残差 Σ|SUMF|/ΣSUMAF 随迭代变化")
	data := make([]opts.LineData, len(c.Residual))
	for i, v := range c.Residual {
		data[i].Value = v
	}
	residual.AddSeries("相对残差", data)

	pressure := c.newLine("压力曲线", "待求节点压力随迭代变化 [Pa]")
	names, items := columns(c.Pressure, c.Nodes, func(j int) bool { return c.Free[j] })
	for i := range names {
		pressure.AddSeries(names[i], items[i])
	}

	flow := c.newLine("流量曲线", "连接主流量随迭代变化 [kg/s]")
	linkNames := make([]string, len(c.Links))
	for i, l := range c.Links {
		linkNames[i] = l.Name
	}
	names, items = columns(c.Flow, linkNames, nil)
	for i := range names {
		flow.AddSeries(names[i], items[i])
	}

	page := components.NewPage()
	page.AddCharts(
		c.network(),
		residual,
		pressure,
		flow,
	)
	return page.Render(w)
}

// Handler 发布到网页面
func (c *Charts) Handler(w http.ResponseWriter, _ *http.Request) {
	if err := c.Render(w); err != nil {
		log.WithError(err).Warn("图表输出失败")
	}
}
