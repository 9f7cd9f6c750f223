package psychro

import (
	"math"
	"testing"
)

func TestAirDensity(t *testing.T) {
	// 标准状态约 1.2 kg/m3
	rho := AirDensity(101325, 20, 0)
	if math.Abs(rho-1.2041) > 1e-3 {
		t.Errorf("标准空气密度错误: 期望约 1.2041, 实际 %v", rho)
	}
	// 温度升高密度下降
	if AirDensity(101325, 30, 0.008) >= AirDensity(101325, 10, 0.008) {
		t.Errorf("密度应随温度升高而下降")
	}
	// 压力升高密度上升
	if AirDensity(101425, 20, 0.008) <= AirDensity(101325, 20, 0.008) {
		t.Errorf("密度应随压力升高而上升")
	}
}

func TestViscosity(t *testing.T) {
	if got := Viscosity(20); math.Abs(got-1.81088e-5) > 1e-12 {
		t.Errorf("粘度错误: %v", got)
	}
}

func TestGravity(t *testing.T) {
	if g := Gravity(0); math.Abs(g-9.780373) > 1e-9 {
		t.Errorf("赤道重力错误: %v", g)
	}
	if Gravity(90) <= Gravity(0) {
		t.Errorf("极地重力应大于赤道")
	}
}
