// Package psychro 湿空气物性计算
package psychro

import "math"

const (
	kelvinConv = 273.15  // 摄氏度转开尔文
	gasConst   = 287.0   // 干空气气体常数 [J/(kg K)]
	vaporRatio = 1.6077687
	minHumRat  = 1.0e-5 // 湿度比下限 [kg/kg]
)

// AirDensity 由大气压、干球温度和湿度比计算湿空气密度 [kg/m3]
//
//	pb: 大气压 [Pa]
//	tdb: 干球温度 [C]
//	w: 湿度比 [kg/kg]
func AirDensity(pb, tdb, w float64) float64 {
	return pb / (gasConst * (tdb + kelvinConv) * (1.0 + vaporRatio*math.Max(w, minHumRat)))
}

// Viscosity 空气动力粘度线性拟合 [kg/(m s)]
func Viscosity(tdb float64) float64 {
	return 1.71432e-5 + 4.828e-8*tdb
}

// Gravity 由纬度计算重力加速度 [m/s2]
func Gravity(latitude float64) float64 {
	conv := latitude * 2.0 * math.Pi / 360.0
	s1 := math.Sin(conv)
	s2 := math.Sin(2.0 * conv)
	return 9.780373 * (1.0 + 0.0052891*s1*s1 - 0.0000059*s2*s2)
}
