package element

import (
	"airnet/types"
)

// ConstantFlow 定流量排风或泄压元件。
// 设定流量有效时按固定质量流量，否则退化为自身标准状态下的裂缝。
type ConstantFlow struct {
	Flow        float64   `yaml:"flow" validate:"gte=0"` // 设定质量流量 [kg/s]
	Coefficient float64   `yaml:"coefficient" validate:"gte=0"`
	Exponent    float64   `yaml:"exponent" validate:"gte=0.5,lte=1"`
	Reference   Reference `yaml:"reference"`
}

// NewConstantFlow 创建定流量元件
func NewConstantFlow(flow float64) *ConstantFlow {
	return &ConstantFlow{Flow: flow, Coefficient: 0.001, Exponent: 0.65, Reference: StandardReference()}
}

// Type 元件类型
func (c *ConstantFlow) Type() types.ComponentType { return ConstantFlowType }

// Calculate 计算流量
func (c *ConstantFlow) Calculate(ctx *types.LinkContext, laminar bool, pdrop float64, from, to *types.AirState) (types.Flow, error) {
	flow := c.Flow
	mult := 1.0
	if ctx != nil {
		flow *= ctx.Control
		if ctx.Multiplier > 0 {
			mult = ctx.Multiplier
		}
	}
	flow *= mult
	if flow > types.VerySmallFlow {
		f := types.Flow{N: 1}
		f.F[0] = flow
		if laminar {
			// 初始化线性方程组以流量取反的形式出现
			f.F[0] = -flow
		}
		return f, nil
	}
	return powerLaw(c.Coefficient*mult, c.Exponent, c.Reference, laminar, pdrop, from, to), nil
}

// ConstantPowerFan 定功率风机，流量与压升成反比
type ConstantPowerFan struct{}

// Type 元件类型
func (c *ConstantPowerFan) Type() types.ComponentType { return ConstantPowerFanType }

// Calculate 计算流量，控制值为风机功率系数
func (c *ConstantPowerFan) Calculate(ctx *types.LinkContext, laminar bool, pdrop float64, from, to *types.AirState) (types.Flow, error) {
	ctl := 1.0
	if ctx != nil {
		ctl = ctx.Control
	}
	f := types.Flow{N: 1}
	if laminar || pdrop == 0 {
		f.F[0] = ctl
		f.DF[0] = f.F[0]
		return f, nil
	}
	f.F[0] = -ctl / pdrop
	f.DF[0] = -f.F[0] / pdrop
	return f, nil
}
