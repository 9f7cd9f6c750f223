package element

import (
	"errors"
	"fmt"
	"math"

	"airnet/types"

	log "github.com/sirupsen/logrus"
)

// OpeningKind 大开口形式
type OpeningKind int

const (
	OpeningRectangular OpeningKind = iota + 1 // 普通矩形开口(平开/推拉)
	OpeningPivoted                            // 水平轴旋转窗
)

// degenerateSize 开启状态下为零的宽度或高度的替代值 [m]
const degenerateSize = 1.0e-6

// OpeningFactor 开口系数表的一行
type OpeningFactor struct {
	Factor    float64 `yaml:"factor" validate:"gte=0,lte=1"`    // 开口系数
	Discharge float64 `yaml:"discharge" validate:"gte=0,lte=1"` // 流量系数
	Width     float64 `yaml:"width" validate:"gte=0,lte=1"`     // 宽度系数
	Height    float64 `yaml:"height" validate:"gte=0,lte=1"`    // 高度系数
}

// DetailedOpening 竖向大开口。
// 沿高度划分 NrInt 个区间，按连接剖面逐段计算双向流量。
type DetailedOpening struct {
	Width       float64         `yaml:"width" validate:"gt=0"`             // 开口宽度 [m]
	Height      float64         `yaml:"height" validate:"gt=0"`            // 开口高度 [m]
	Coefficient float64         `yaml:"coefficient" validate:"gte=0"`      // 关闭时单位长度裂缝系数
	Exponent    float64         `yaml:"exponent" validate:"gte=0.5,lte=1"` // 关闭时流量指数
	Kind        OpeningKind     `yaml:"kind" validate:"oneof=1 2"`
	Extra       float64         `yaml:"extra" validate:"gte=0"` // 矩形开口: 附加裂缝长度; 旋转窗: 转轴高度 [m]
	Factors     []OpeningFactor `yaml:"factors" validate:"min=2,max=4,dive"`

	widthWarn  types.Recurring
	heightWarn types.Recurring
}

// NewDetailedOpening 创建全开时宽高不变的矩形大开口
func NewDetailedOpening(width, height float64) *DetailedOpening {
	return &DetailedOpening{
		Width:       width,
		Height:      height,
		Coefficient: 0.001,
		Exponent:    0.65,
		Kind:        OpeningRectangular,
		Factors: []OpeningFactor{
			{Factor: 0, Discharge: 0.001, Width: 0, Height: 0},
			{Factor: 1, Discharge: 0.6, Width: 1, Height: 1},
		},
	}
}

// Type 元件类型
func (o *DetailedOpening) Type() types.ComponentType { return DetailedOpeningType }

// OpeningHeight 开口竖向高度
func (o *DetailedOpening) OpeningHeight() float64 { return o.Height }

// Check 开口系数表首行为 0，末行为 1，且递增
func (o *DetailedOpening) Check() error {
	n := len(o.Factors)
	if n < 2 {
		return errors.New("开口系数表至少两行")
	}
	if o.Factors[0].Factor != 0 {
		return errors.New("开口系数表首行系数应为 0")
	}
	if o.Factors[n-1].Factor != 1 {
		return errors.New("开口系数表末行系数应为 1")
	}
	for i := 1; i < n; i++ {
		if o.Factors[i].Factor <= o.Factors[i-1].Factor {
			return errors.New("开口系数表应递增")
		}
	}
	if o.Kind == OpeningPivoted && o.Extra > o.Height {
		return fmt.Errorf("转轴高度 %g 超过开口高度 %g", o.Extra, o.Height)
	}
	return nil
}

// interpolate 按开口系数插值宽度、高度与流量系数
func (o *DetailedOpening) interpolate(fact float64) (w, h, cd float64, err error) {
	for i := 1; i < len(o.Factors); i++ {
		lo, hi := o.Factors[i-1], o.Factors[i]
		if fact <= hi.Factor {
			r := (fact - lo.Factor) / (hi.Factor - lo.Factor)
			return lo.Width + r*(hi.Width-lo.Width),
				lo.Height + r*(hi.Height-lo.Height),
				lo.Discharge + r*(hi.Discharge-lo.Discharge), nil
		}
	}
	return 0, 0, 0, fmt.Errorf("%w: 开口系数 %g 超过系数表上限", types.ErrOutOfRange, fact)
}

// Calculate 计算流量，控制值为开口系数
func (o *DetailedOpening) Calculate(ctx *types.LinkContext, laminar bool, pdrop float64, from, to *types.AirState) (types.Flow, error) {
	if ctx == nil || ctx.Profile == nil {
		return types.Flow{}, fmt.Errorf("%w: 大开口 %s 缺少压力剖面", types.ErrInvalidNetwork, linkName(ctx))
	}
	fact := ctx.Control
	wFact, hFact, cFact, err := o.interpolate(fact)
	if err != nil {
		return types.Flow{}, fmt.Errorf("大开口 %s: %w", ctx.Name, err)
	}

	prof := ctx.Profile
	dp := make([]float64, types.NrInt+2)
	for i := range dp {
		dp[i] = pdrop + prof.Dp[i] - ctx.StackDrop
	}

	actLw, actLh, actCD := o.Width, o.Height, 0.0
	if fact == 0 {
		cFact = 0
	} else {
		actLw = o.Width * wFact
		actLh = o.Height * hFact
		actCD = cFact
	}
	cs := o.Coefficient
	lextra, axis := 0.0, 0.0
	switch o.Kind {
	case OpeningRectangular:
		lextra = o.Extra
	case OpeningPivoted:
		axis = o.Extra
		actLw, actLh = o.Width, o.Height
	}
	if ctx.Multiplier > 1.0 {
		cs *= ctx.Multiplier
		if fact > 0 {
			actLw *= ctx.Multiplier
		}
	}
	if fact > 0 {
		fields := log.Fields{"link": ctx.Name, "factor": fact}
		if actLw == 0 {
			o.widthWarn.Warn(fields, "大开口实际宽度为 0, 按 1.0E-6 m 计算")
			actLw = degenerateSize
		}
		if actLh == 0 {
			o.heightWarn.Warn(fields, "大开口实际高度为 0, 按 1.0E-6 m 计算")
			actLh = degenerateSize
		}
	}

	interval := actLh / types.NrInt
	var s sums
	switch {
	case cFact == 0:
		s = closedOpening(dp, cs, o.Exponent, actLw, actLh, interval, lextra)
	case o.Kind == OpeningRectangular:
		s = rectangularOpening(dp, prof, actLw, actCD, interval)
	default:
		s = pivotedOpening(dp, prof, fact, actLw, actLh, actCD, interval, axis)
	}

	flow := types.Flow{N: 1}
	flow.F[0] = s.fma12 - s.fma21
	flow.DF[0] = s.dfma12 - s.dfma21
	if laminar {
		flow.F[0] = -flow.DF[0] * pdrop
		return flow, nil
	}
	if s.fma12 != 0 && s.fma21 != 0 {
		flow.F[1] = s.fma21
	}
	return flow, nil
}

// sums 双向流量及导数累计
type sums struct {
	fma12, fma21   float64 // 正向与反向流量(均为正值) [kg/s]
	dfma12, dfma21 float64 // 导数 [kg/(s Pa)]
}

func (s *sums) add(dp, f, df float64) {
	if dp > 0 {
		s.fma12 += f
		s.dfma12 += df
	} else {
		s.fma21 += f
		s.dfma21 += df
	}
}

// powerSegment 幂律段，|dp| 不大于 offset 时线性化
func powerSegment(pref, expn, dp, offset float64) (f, df float64) {
	if math.Abs(dp) <= offset {
		df = pref * math.Pow(offset, expn) / offset
		if dp <= 0 {
			df = -df
		}
		return dp * df, df
	}
	f = pref * math.Pow(math.Abs(dp), expn)
	return f, f * expn / dp
}

// closedOpening 关闭状态：上下边缝加两侧及附加裂缝
func closedOpening(dp []float64, cs, expn, actLw, actLh, interval, lextra float64) sums {
	var s sums
	offset := types.DifLim
	for _, i := range []int{0, types.NrInt + 1} {
		f, df := powerSegment(cs*actLw, expn, dp[i], offset)
		s.add(dp[i], f, df)
	}
	pref := interval * (2 + lextra/actLh) * cs
	for i := 1; i <= types.NrInt; i++ {
		f, df := powerSegment(pref, expn, dp[i], offset)
		s.add(dp[i], f, df)
	}
	return s
}

// rectangularOpening 开启的矩形开口，逐区间孔口流
func rectangularOpening(dp []float64, prof *types.Profile, actLw, actCD, interval float64) sums {
	var s sums
	offset := types.DifLim * 1e-3
	for i := 1; i <= types.NrInt; i++ {
		rho := prof.RhoF[i]
		if dp[i] <= 0 {
			rho = prof.RhoT[i]
		}
		var f, df float64
		if math.Abs(dp[i]) <= offset {
			df = math.Sqrt(rho*offset) / offset
			if dp[i] <= 0 {
				df = -df
			}
			f = dp[i] * df
		} else {
			f = math.Sqrt(rho * math.Abs(dp[i]))
			df = 0.5 * f / dp[i]
		}
		s.add(dp[i], f, df)
	}
	pref := actLw * actCD * interval * math.Sqrt2
	s.fma12 *= pref
	s.fma21 *= pref
	s.dfma12 *= pref
	s.dfma21 *= pref
	return s
}

// pivotedOpening 水平轴旋转窗，上下矩形段与中部三角形侧缝串联段
func pivotedOpening(dp []float64, prof *types.Profile, fact, actLw, actLh, actCD, interval, axis float64) sums {
	var s sums
	offset := types.DifLim * 1e-3
	alpha := fact * math.Pi / 2
	cosA, tanA := math.Cos(alpha), math.Tan(alpha)
	h2 := axis * (1.0 - cosA)
	h4 := axis + (actLh-axis)*cosA
	if fact == 1.0 {
		h2, h4 = axis, axis
	}
	for i := 1; i <= types.NrInt; i++ {
		h := interval * (float64(i) - 0.5)
		sign := 1.0
		rho := prof.RhoF[i]
		if dp[i] <= 0 {
			sign = -1.0
			rho = prof.RhoT[i]
		}
		var f, df float64
		if h <= h2 || h >= h4 {
			if math.Abs(dp[i]) <= offset {
				df = actCD * actLw * interval * math.Sqrt(2.0*rho*offset) / offset * sign
				f = dp[i] * df
			} else {
				f = actCD * actLw * interval * math.Sqrt(2.0*rho*math.Abs(dp[i]))
				df = 0.5 * f / dp[i]
			}
		} else {
			c1 := actCD * actLw * interval * math.Sqrt(2.0*rho)
			c2 := 2 * actCD * math.Abs(axis-h) * tanA * interval * math.Sqrt(2.0*rho)
			if c1 != 0 && c2 != 0 {
				r := 1/(c1*c1) + 1/(c2*c2)
				if math.Abs(dp[i]) <= offset {
					df = math.Sqrt(offset/r) / offset * sign
					f = dp[i] * df
				} else {
					f = math.Sqrt(math.Abs(dp[i]) / r)
					df = 0.5 * f / dp[i]
				}
			}
		}
		s.add(dp[i], f, df)
	}
	return s
}
