package element

import (
	"math"

	"airnet/types"
)

// 风管摩擦计算常量
const (
	ductColebrook = 0.868589 // 2/ln(10)
	ductEps       = 0.001    // 紊流迭代相对收敛精度
	ductInitLam   = 128.0    // 初始化层流系数
	ductLamDyn    = 64.0     // 层流摩擦系数
)

// Duct 圆形风管
type Duct struct {
	Length          float64 `yaml:"length" validate:"gt=0"`           // [m]
	Diameter        float64 `yaml:"diameter" validate:"gt=0"`         // 水力直径 [m]
	Roughness       float64 `yaml:"roughness" validate:"gt=0"`        // 表面粗糙度 [m]
	LaminarFriction float64 `yaml:"laminar_friction" validate:"gte=0"` // 层流动压损失系数，不小于 0.001 时按二次式求解
	DynamicLoss     float64 `yaml:"dynamic_loss" validate:"gte=0"`     // 紊流局部损失系数
}

// NewDuct 创建默认粗糙度风管
func NewDuct(length, diameter float64) *Duct {
	return &Duct{
		Length:          length,
		Diameter:        diameter,
		Roughness:       0.0001,
		LaminarFriction: 0.0001,
		DynamicLoss:     0.0001,
	}
}

// Type 元件类型
func (d *Duct) Type() types.ComponentType { return DuctType }

// Calculate 计算流量
func (d *Duct) Calculate(ctx *types.LinkContext, laminar bool, pdrop float64, from, to *types.AirState) (types.Flow, error) {
	flow := d.flow(laminar, pdrop, from, to)
	if ctx != nil && ctx.Multiplier > 0 && ctx.Multiplier != 1 {
		flow.F[0] *= ctx.Multiplier
		flow.DF[0] *= ctx.Multiplier
	}
	return flow, nil
}

func (d *Duct) flow(laminar bool, pdrop float64, from, to *types.AirState) types.Flow {
	diameter := d.Diameter
	area := diameter * diameter * math.Pi / 4.0
	ld := d.Length / diameter
	g := 1.14 - ductColebrook*math.Log(d.Roughness/diameter)
	aa1 := g

	up := from
	if pdrop < 0 {
		up = to
	}
	flow := types.Flow{N: 1}
	if laminar {
		flow.DF[0] = (2.0 * up.Density * area * diameter) / (up.Viscosity * ductInitLam * ld)
		flow.F[0] = -flow.DF[0] * pdrop
		return flow
	}

	sign := 1.0
	if pdrop < 0 {
		sign = -1.0
	}
	abs := math.Abs(pdrop)
	var cdm, fl float64
	if d.LaminarFriction >= 0.001 {
		a2 := d.LaminarFriction / (2.0 * up.Density * area * area)
		a1 := (up.Viscosity * ductLamDyn * ld) / (2.0 * up.Density * area * diameter)
		cdm = math.Sqrt(a1*a1 + 4.0*a2*abs)
		fl = sign * (cdm - a1) / (2.0 * a2)
		cdm = 1.0 / cdm
	} else {
		cdm = (2.0 * up.Density * area * diameter) / (up.Viscosity * ductLamDyn * ld)
		fl = cdm * pdrop
	}

	ft := fl
	// 雷诺数大于 10 时计算紊流
	if re := math.Abs(fl) * diameter / (up.Viscosity * area); re >= 10.0 {
		s2 := math.Sqrt(2.0*up.Density*abs) * area
		ftt := s2 / math.Sqrt(ld/(g*g)+d.DynamicLoss)
		for {
			ft = ftt
			b := (9.3 * up.Viscosity * area) / (ft * d.Roughness)
			dd := 1.0 + g*b
			g -= (g - aa1 + ductColebrook*math.Log(dd)) / (1.0 + ductColebrook*b/dd)
			ftt = s2 / math.Sqrt(ld/(g*g)+d.DynamicLoss)
			if math.Abs(ftt-ft)/ftt < ductEps {
				break
			}
		}
		ft = sign * ftt
	}

	if math.Abs(fl) <= math.Abs(ft) {
		flow.F[0] = fl
		flow.DF[0] = cdm
	} else {
		flow.F[0] = ft
		flow.DF[0] = 0.5 * ft / pdrop
	}
	return flow
}
