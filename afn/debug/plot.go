package debug

import (
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Plot 收敛曲线图片
type Plot struct {
	Record
	Width, Height vg.Length
	Format        string // png, svg, pdf
}

// NewPlot 默认 6x4 英寸 PNG
func NewPlot() *Plot {
	return &Plot{Width: 6 * vg.Inch, Height: 4 * vg.Inch, Format: "png"}
}

// history 正的相对残差，对数坐标下忽略零值
func (p *Plot) history() plotter.XYs {
	xys := make(plotter.XYs, 0, len(p.Residual))
	for i, v := range p.Residual {
		if v > 0 {
			xys = append(xys, plotter.XY{X: float64(p.Iter[i]), Y: v})
		}
	}
	return xys
}

// Render 输出图片
func (p *Plot) Render(w io.Writer) error {
	pl := plot.New()
	pl.Title.Text = "收敛曲线"
	pl.X.Label.Text = "迭代"
	pl.Y.Label.Text = "相对残差"
	p.mu.RLock()
	xys := p.history()
	p.mu.RUnlock()
	if len(xys) > 0 {
		pl.Y.Scale = plot.LogScale{}
		pl.Y.Tick.Marker = plot.LogTicks{Prec: -1}
		line, points, err := plotter.NewLinePoints(xys)
		if err != nil {
			return fmt.Errorf("收敛曲线: %w", err)
		}
		pl.Add(line, points, plotter.NewGrid())
	}
	wt, err := pl.WriterTo(p.Width, p.Height, p.Format)
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}
