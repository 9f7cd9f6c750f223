package types

import (
	"math"

	"airnet/psychro"
)

// AirState 节点空气物性
type AirState struct {
	Temperature   float64 // 温度 [C]
	HumidityRatio float64 // 湿度比 [kg/kg]
	Density       float64 // 密度 [kg/m3]
	SqrtDensity   float64 // 密度平方根
	Viscosity     float64 // 动力粘度 [kg/(m s)]
}

// NewAirState 由压力、温度、湿度比计算物性
func NewAirState(pb, t, w float64) AirState {
	rho := psychro.AirDensity(pb, t, w)
	return AirState{
		Temperature:   t,
		HumidityRatio: w,
		Density:       rho,
		SqrtDensity:   math.Sqrt(rho),
		Viscosity:     psychro.Viscosity(t),
	}
}

// StandardAir 标准状态空气 20C 101325Pa 干空气
func StandardAir() AirState {
	return NewAirState(StdBaroPress, 20.0, 0.0)
}
