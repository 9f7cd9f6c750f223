package element

import (
	"errors"
	"fmt"
	"math"

	"airnet/types"
)

const (
	fanTolerance     = 0.00001 // 试位法收敛精度
	fanMaxIterations = 100     // 试位法最大迭代次数
	fanResidual      = 1e-12   // 相对曲线压升跨度可忽略的残差
)

// DetailedFan 按性能曲线计算的风机。
// 曲线分段保存，每段 5 个系数 (x_min, c1, c2, c3, c4)，末尾追加曲线上限 x_max，
// 压升 y = c1 + c2*x + c3*x^2 + c4*x^3，x 为参考转速下的质量流量。
type DetailedFan struct {
	Coefficients   []float64 `yaml:"coefficients" validate:"min=6"`
	FreeFlow       float64   `yaml:"free_flow" validate:"gt=0"`      // 零压升流量 [kg/s]
	ShutoffPress   float64   `yaml:"shutoff_pressure" validate:"gt=0"` // 零流量压升 [Pa]
	TransitionRate float64   `yaml:"transition_ratio" validate:"gte=0"` // 转速比例律失效的过渡转速比
	CurveDensity   float64   `yaml:"curve_density" validate:"gt=0"`   // 曲线测试空气密度 [kg/m3]
	Coefficient    float64   `yaml:"coefficient" validate:"gte=0"`    // 停机时裂缝系数
	Exponent       float64   `yaml:"exponent" validate:"gte=0.5,lte=1"`
}

// NewDetailedFan 创建风机，曲线需另外设置
func NewDetailedFan() *DetailedFan {
	return &DetailedFan{
		TransitionRate: 0.1,
		CurveDensity:   1.2,
		Coefficient:    0.001,
		Exponent:       0.65,
	}
}

// Type 元件类型
func (f *DetailedFan) Type() types.ComponentType { return DetailedFanType }

// Segments 曲线段数
func (f *DetailedFan) Segments() int { return (len(f.Coefficients) - 1) / 5 }

// Check 校验曲线系数数量
func (f *DetailedFan) Check() error {
	if len(f.Coefficients)%5 != 1 {
		return fmt.Errorf("风机曲线系数数量 %d 应为 5n+1", len(f.Coefficients))
	}
	for i := 5; i < len(f.Coefficients); i += 5 {
		if f.Coefficients[i] <= f.Coefficients[i-5] {
			return errors.New("风机曲线分段流量应递增")
		}
	}
	return nil
}

// rise 第 k 段曲线在 x 处的压升
func (f *DetailedFan) rise(k int, x float64) float64 {
	c := f.Coefficients
	return c[k+1] + x*(c[k+2]+x*(c[k+3]+x*c[k+4]))
}

// Calculate 计算流量，控制值为转速比
func (f *DetailedFan) Calculate(ctx *types.LinkContext, laminar bool, pdrop float64, from, to *types.AirState) (types.Flow, error) {
	ctl := 1.0
	if ctx != nil {
		ctl = ctx.Control
	}
	if ctl <= 0 {
		// 停机按裂缝处理
		return powerLaw(f.Coefficient, f.Exponent, StandardReference(), laminar, pdrop, from, to), nil
	}
	// 参考转速下的压升
	var prise float64
	if ctl >= f.TransitionRate {
		prise = -pdrop * (f.CurveDensity / from.Density) / (ctl * ctl)
	} else {
		prise = -pdrop * (f.CurveDensity / from.Density) / (f.TransitionRate * ctl)
	}

	flow := types.Flow{N: 1}
	var dpdf float64
	if laminar {
		flow.F[0] = -f.FreeFlow * ctl * (1.0 - prise/f.ShutoffPress)
		dpdf = -f.ShutoffPress / f.FreeFlow
	} else {
		cx, k, err := f.solve(prise)
		if err != nil {
			return flow, fmt.Errorf("连接 %s: %w", linkName(ctx), err)
		}
		c := f.Coefficients
		flow.F[0] = cx
		dpdf = c[k+2] + cx*(2.0*c[k+3]+cx*3.0*c[k+4])
	}
	// 换算到实际转速
	flow.F[0] *= (from.Density / f.CurveDensity) * ctl
	if ctl >= f.TransitionRate {
		flow.DF[0] = -ctl / dpdf
	} else {
		flow.DF[0] = -1.0 / dpdf
	}
	return flow, nil
}

// solve 试位法求曲线上压升为 prise 的流量，返回流量与所在曲线段起始位置
func (f *DetailedFan) solve(prise float64) (float64, int, error) {
	c := f.Coefficients
	k := 0
	bx := c[k]
	by := f.rise(k, bx) - prise
	if by < 0.0 {
		return 0, 0, fmt.Errorf("%w: 风机压升过低, 超出性能曲线", types.ErrOutOfRange)
	}
	var dx, dy float64
	for j := 1; ; j++ {
		dx = c[k+5]
		dy = f.rise(k, dx) - prise
		if by*dy <= 0.0 {
			break
		}
		if j >= f.Segments() {
			return 0, 0, fmt.Errorf("%w: 风机压升过高, 超出性能曲线", types.ErrOutOfRange)
		}
		k += 5
		bx, by = dx, dy
	}

	// 直线段首次插值即落在根上，残差只剩舍入误差
	span := math.Abs(by) + math.Abs(dy)
	cy := 0.0
	for l := 1; l <= fanMaxIterations; l++ {
		ccy := cy
		cx := bx - by*((dx-bx)/(dy-by))
		cy = f.rise(k, cx) - prise
		if by*cy == 0.0 || math.Abs(cy) <= fanResidual*span {
			return cx, k, nil
		}
		if by*cy > 0.0 {
			bx, by = cx, cy
			if cy*ccy > 0.0 {
				dy *= 0.5
			}
		} else {
			dx, dy = cx, cy
			if cy*ccy > 0.0 {
				by *= 0.5
			}
		}
		if dx-bx < fanTolerance*cx || dx-bx < fanTolerance {
			return 0.5 * (bx + dx), k, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: 风机曲线迭代超过 %d 次", types.ErrOutOfRange, fanMaxIterations)
}

func linkName(ctx *types.LinkContext) string {
	if ctx == nil {
		return ""
	}
	return ctx.Name
}
