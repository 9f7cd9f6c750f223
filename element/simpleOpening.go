package element

import (
	"math"

	"airnet/types"
)

// SimpleOpening 简单矩形开口。
// 两侧密度各自均匀，压差沿高度线性变化，中性面上下可同时双向流动。
// 关闭时按周长裂缝计算。
type SimpleOpening struct {
	Width          float64 `yaml:"width" validate:"gt=0"`              // [m]
	Height         float64 `yaml:"height" validate:"gt=0"`             // [m]
	Discharge      float64 `yaml:"discharge" validate:"gt=0,lte=1"`    // 流量系数
	Coefficient    float64 `yaml:"coefficient" validate:"gte=0"`       // 关闭时单位周长裂缝系数 [kg/(s m)]
	Exponent       float64 `yaml:"exponent" validate:"gte=0.5,lte=1"`  // 关闭时流量指数
	MinDensityDiff float64 `yaml:"min_density_diff" validate:"gte=0"` // 小于此密度差按均匀压差计算 [kg/m3]
}

// NewSimpleOpening 创建开口
func NewSimpleOpening(width, height float64) *SimpleOpening {
	return &SimpleOpening{
		Width:          width,
		Height:         height,
		Discharge:      0.6,
		Coefficient:    0.001,
		Exponent:       0.65,
		MinDensityDiff: 0.0001,
	}
}

// Type 元件类型
func (o *SimpleOpening) Type() types.ComponentType { return SimpleOpeningType }

// Calculate 计算流量。开启时返回两个流道：F[0] 为正向流量，F[1] 为反向流量(负值)。
func (o *SimpleOpening) Calculate(ctx *types.LinkContext, laminar bool, pdrop float64, from, to *types.AirState) (types.Flow, error) {
	ctl, mult, gravity := 1.0, 1.0, types.StdGravity
	if ctx != nil {
		ctl = ctx.Control
		if ctx.Multiplier > 0 {
			mult = ctx.Multiplier
		}
		if ctx.Gravity > 0 {
			gravity = ctx.Gravity
		}
	}
	if ctl <= 0 {
		perimeter := 2.0 * (o.Width + o.Height)
		return powerLaw(o.Coefficient*perimeter*mult, o.Exponent, StandardReference(), laminar, pdrop, from, to), nil
	}

	k := o.Discharge * o.Width * ctl * mult * math.Sqrt2
	if laminar {
		up := from
		if pdrop < 0 {
			up = to
		}
		// 以 1Pa 处孔口特性斜率线性化
		f := types.Flow{N: 1}
		f.DF[0] = 0.5 * k * up.SqrtDensity * o.Height
		f.F[0] = -f.DF[0] * pdrop
		return f, nil
	}

	b := gravity * (from.Density - to.Density)
	if math.Abs(from.Density-to.Density) < o.MinDensityDiff {
		return o.uniform(k, pdrop, from, to), nil
	}
	return o.stratified(k, pdrop, b, from, to), nil
}

// uniform 全高度压差均匀
func (o *SimpleOpening) uniform(k, pdrop float64, from, to *types.AirState) types.Flow {
	f := types.Flow{N: 2}
	offset := types.DifLim
	if math.Abs(pdrop) <= offset {
		rho := (from.Density + to.Density) / 2.0
		df := k * o.Height * math.Sqrt(rho*offset) / offset
		f.F[0] = pdrop * df
		f.DF[0] = df
		return f
	}
	if pdrop > 0 {
		f.F[0] = k * o.Height * from.SqrtDensity * math.Sqrt(pdrop)
		f.DF[0] = 0.5 * f.F[0] / pdrop
	} else {
		f.F[1] = -k * o.Height * to.SqrtDensity * math.Sqrt(-pdrop)
		f.DF[1] = 0.5 * f.F[1] / pdrop
	}
	return f
}

// stratified 压差 a-b*z 沿高度线性变化，分别积分正向与反向区域
func (o *SimpleOpening) stratified(k, a, b float64, from, to *types.AirState) types.Flow {
	g0 := a
	gh := a - b*o.Height
	pos := func(x float64) float64 { return math.Max(x, 0) }

	i12 := 2.0 / (3.0 * b) * (math.Pow(pos(g0), 1.5) - math.Pow(pos(gh), 1.5))
	d12 := (math.Sqrt(pos(g0)) - math.Sqrt(pos(gh))) / b
	i21 := 2.0 / (3.0 * b) * (math.Pow(pos(-gh), 1.5) - math.Pow(pos(-g0), 1.5))
	d21 := (math.Sqrt(pos(-g0)) - math.Sqrt(pos(-gh))) / b

	f := types.Flow{N: 2}
	f.F[0] = k * from.SqrtDensity * i12
	f.DF[0] = k * from.SqrtDensity * d12
	f.F[1] = -k * to.SqrtDensity * i21
	f.DF[1] = -k * to.SqrtDensity * d21
	return f
}
