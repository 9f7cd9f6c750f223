package afn

import (
	"math"

	"airnet/psychro"
	"airnet/types"
)

// properties 按当前压力刷新节点空气物性，室外节点使用室外温湿度
func (s *Solver) properties() {
	env := &s.Environment
	for i := range s.Network.Nodes {
		n := &s.Network.Nodes[i]
		t, w := n.Temperature, n.HumidityRatio
		if n.External {
			t, w = env.OutdoorTemperature, env.OutdoorHumidityRatio
		}
		s.Air[i] = types.NewAirState(env.BaroPress+s.PZ[i], t, w)
	}
}

// simpleStack 风管系统连接的栈压，按上次流向取上游密度，零流量取平均
func (s *Solver) simpleStack(i types.LinkID) float64 {
	l := &s.Network.Links[i]
	rn, rm := s.Air[l.From].Density, s.Air[l.To].Density
	dh := s.Network.Nodes[l.From].Height - s.Network.Nodes[l.To].Height
	switch {
	case s.AFLOW[i] > 0:
		return types.StdGravity * (rn*dh + l.ToHeight*(rm-rn))
	case s.AFLOW[i] < 0:
		return types.StdGravity * (rm*dh + l.FromHeight*(rm-rn))
	}
	return types.HalfGravity * ((rn+rm)*dh + (l.FromHeight+l.ToHeight)*(rm-rn))
}

// stackPressure 栈压计算使用的节点压力，室外节点取 0
func (s *Solver) stackPressure(n types.NodeID) float64 {
	if s.Network.Nodes[n].External {
		return 0
	}
	return s.PZ[n]
}

// pstack 计算全部连接的栈压，大开口同时生成剖面
func (s *Solver) pstack() {
	pb, g := s.Environment.BaroPress, s.Gravity
	for i := range s.Network.Links {
		s.PS[i] = s.simpleStack(i)
		l := &s.Network.Links[i]
		if l.Distribution {
			continue
		}
		from, to := &s.Network.Nodes[l.From], &s.Network.Nodes[l.To]
		airF, airT := &s.Air[l.From], &s.Air[l.To]
		pzF, pzT := s.stackPressure(l.From), s.stackPressure(l.To)

		dpF, rhoF := s.climb(from, airF, pzF, l.FromHeight)
		dpT, rhoT := s.climb(to, airT, pzT, l.ToHeight)
		h := (l.ToHeight + to.Height) - (l.FromHeight + from.Height)
		s.DpL[i][0] = dpF - dpT + psz(pb+pzF+dpF, rhoF, 0, 0, h, g)
		s.DpL[i][1] = dpF - dpT - psz(pb+pzT+dpT, rhoT, 0, 0, -h, g)

		if prof := s.profiles[i]; prof != nil {
			height := l.Component.(types.Opening).OpeningHeight()
			tf := s.openingTable(from, airF, pzF, l.FromHeight, height, dpF, rhoF)
			tt := s.openingTable(to, airT, pzT, l.ToHeight, height, dpT, rhoT)
			presProfile(prof, tf, tt, height, g)
		}
		s.contexts[i].StackDrop = s.DpL[i][0]
	}
}

// psz 密度线性变化的气柱自 z0 到 z 的压差 [Pa]
func psz(p0, rho0, beta, z0, z, g float64) float64 {
	dz := z - z0
	rho := rho0 + beta*dz/2.0
	return -p0 * (1.0 - math.Exp(-dz*rho*g/p0))
}

// climb 自节点参考面逐层积分到相对高度 z，返回栈压与该高度处密度
func (s *Solver) climb(node *types.Node, air *types.AirState, pz, z float64) (dp, rho float64) {
	pb, g := s.Environment.BaroPress, s.Gravity
	t, x, x0 := air.Temperature, air.HumidityRatio, air.HumidityRatio
	hs := layerHeights(node.Layers, z)
	for k := 1; k < len(hs); k++ {
		a, b := hs[k-1], hs[k]
		if a == b {
			continue
		}
		bt, bx := layerGradient(node.Layers, math.Min(a, b))
		p := pb + pz + dp
		if b > a {
			rho0 := psychro.AirDensity(p, t, x)
			t += (b - a) * bt
			x += (b - a) * bx * x0
			rho1 := psychro.AirDensity(p, t, x)
			dp += psz(p, rho0, (rho1-rho0)/(b-a), a, b, g)
		} else {
			rho1 := psychro.AirDensity(p, t, x)
			t -= (a - b) * bt
			x -= (a - b) * bx * x0
			rho0 := psychro.AirDensity(p, t, x)
			dp -= psz(p, rho0, (rho1-rho0)/(a-b), b, a, g)
		}
	}
	return dp, psychro.AirDensity(pb+pz+dp, t, x)
}

// layerHeights 自 0 到 z 途经的分层边界，按行进方向排列
func layerHeights(layers []types.Layer, z float64) []float64 {
	hs := make([]float64, 1, len(layers)+2)
	switch {
	case z > 0:
		for _, l := range layers {
			if l.Start > 0 && l.Start < z {
				hs = append(hs, l.Start)
			}
		}
	case z < 0:
		for i := len(layers) - 1; i >= 0; i-- {
			if l := layers[i]; l.Start < 0 && l.Start > z {
				hs = append(hs, l.Start)
			}
		}
	}
	return append(hs, z)
}

// layerGradient 高度 h 所在分层的温度梯度与湿度相对梯度
func layerGradient(layers []types.Layer, h float64) (bt, bx float64) {
	for _, l := range layers {
		if l.Start > h {
			break
		}
		bt, bx = l.TempGradient, l.HumidityGradient
	}
	return bt, bx
}
