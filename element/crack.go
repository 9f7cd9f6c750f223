package element

import (
	"math"

	"airnet/psychro"
	"airnet/types"
)

// Reference 流量系数的标准测试状态
type Reference struct {
	Temperature   float64 `yaml:"temperature"`                    // [C]
	Pressure      float64 `yaml:"pressure" validate:"gt=0"`       // [Pa]
	HumidityRatio float64 `yaml:"humidity_ratio" validate:"gte=0"` // [kg/kg]
}

// StandardReference 20C 101325Pa 干空气
func StandardReference() Reference {
	return Reference{Temperature: 20.0, Pressure: types.StdBaroPress}
}

// Air 标准状态空气物性
func (r Reference) Air() (density, viscosity float64) {
	return psychro.AirDensity(r.Pressure, r.Temperature, r.HumidityRatio), psychro.Viscosity(r.Temperature)
}

// Crack 幂律裂缝 F = C*dP^n
type Crack struct {
	Coefficient float64   `yaml:"coefficient" validate:"gte=0"`       // 标准状态下 1Pa 压差流量 [kg/s]
	Exponent    float64   `yaml:"exponent" validate:"gte=0.5,lte=1"` // 流量指数
	Reference   Reference `yaml:"reference"`
}

// NewCrack 创建标准状态裂缝
func NewCrack(coef, expn float64) *Crack {
	return &Crack{Coefficient: coef, Exponent: expn, Reference: StandardReference()}
}

// Type 元件类型
func (c *Crack) Type() types.ComponentType { return CrackType }

// Calculate 计算流量
func (c *Crack) Calculate(ctx *types.LinkContext, laminar bool, pdrop float64, from, to *types.AirState) (types.Flow, error) {
	coef := c.Coefficient
	if ctx != nil && ctx.Multiplier > 0 {
		coef *= ctx.Multiplier
	}
	return powerLaw(coef, c.Exponent, c.Reference, laminar, pdrop, from, to), nil
}

// powerLaw 带标准状态修正的幂律流量，层流段与紊流段取较小者
func powerLaw(coef, expn float64, ref Reference, laminar bool, pdrop float64, from, to *types.AirState) types.Flow {
	rhoNorm, visNorm := ref.Air()
	up := from
	if pdrop < 0 {
		up = to
	}
	visAve := (from.Viscosity + to.Viscosity) / 2.0
	tAve := (from.Temperature + to.Temperature) / 2.0
	coef /= up.SqrtDensity
	rhoCor := (up.Temperature + types.KelvinConv) / (tAve + types.KelvinConv)
	ctl := math.Pow(rhoNorm/up.Density/rhoCor, expn-1.0) * math.Pow(visNorm/visAve, 2.0*expn-1.0)
	cdm := coef * up.Density / up.Viscosity * ctl

	flow := types.Flow{N: 1}
	if laminar {
		flow.DF[0] = cdm
		flow.F[0] = -cdm * pdrop
		return flow
	}
	fl := cdm * pdrop
	var ft float64
	if expn == 0.5 {
		ft = coef * up.SqrtDensity * math.Sqrt(math.Abs(pdrop)) * ctl
	} else {
		ft = coef * up.SqrtDensity * math.Pow(math.Abs(pdrop), expn) * ctl
	}
	if pdrop < 0 {
		ft = -ft
	}
	if math.Abs(fl) <= math.Abs(ft) {
		flow.F[0] = fl
		flow.DF[0] = cdm
	} else {
		flow.F[0] = ft
		flow.DF[0] = ft * expn / pdrop
	}
	return flow
}
