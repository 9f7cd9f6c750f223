package afn

import "airnet/types"

// climbTable 大开口一侧自底部到顶部各分层点的栈压与密度
type climbTable struct {
	h    []float64 // 高度 [m]
	dp   []float64 // 栈压 [Pa]
	rho  []float64 // 密度 [kg/m3]
	beta []float64 // 段内密度梯度 [kg/m4]
}

// openingTable 由底部结果 (dp0, rho0) 出发，追加开口范围内的分层边界与顶部
func (s *Solver) openingTable(node *types.Node, air *types.AirState, pz, h0, height, dp0, rho0 float64) *climbTable {
	c := &climbTable{h: []float64{h0}, dp: []float64{dp0}, rho: []float64{rho0}}
	top := h0 + height
	for _, l := range node.Layers {
		if l.Start > h0 && l.Start < top {
			dp, rho := s.climb(node, air, pz, l.Start)
			c.h = append(c.h, l.Start)
			c.dp = append(c.dp, dp)
			c.rho = append(c.rho, rho)
		}
	}
	dp, rho := s.climb(node, air, pz, top)
	c.h = append(c.h, top)
	c.dp = append(c.dp, dp)
	c.rho = append(c.rho, rho)
	c.beta = make([]float64, len(c.h)-1)
	for j := range c.beta {
		c.beta[j] = (c.rho[j+1] - c.rho[j]) / (c.h[j+1] - c.h[j])
	}
	return c
}

// segment 自 l 起查找包含高度 h 的段
func (c *climbTable) segment(l int, h float64) int {
	for l < len(c.beta)-1 && h > c.h[l+1] {
		l++
	}
	return l
}

// presProfile 计算大开口底部、NrInt 个区间中点及顶部的压差与两侧密度
func presProfile(prof *types.Profile, from, to *climbTable, height, g float64) {
	interval := height / types.NrInt
	lf, lt := 0, 0
	for i := 0; i < types.NrInt+2; i++ {
		var dz float64
		switch i {
		case 0:
		case types.NrInt + 1:
			dz = height
		default:
			dz = interval * (float64(i) - 0.5)
		}
		hf, ht := from.h[0]+dz, to.h[0]+dz
		lf, lt = from.segment(lf, hf), to.segment(lt, ht)
		zf, zt := hf-from.h[lf], ht-to.h[lt]

		prof.RhoF[i] = from.rho[lf] + from.beta[lf]*zf
		prof.RhoT[i] = to.rho[lt] + to.beta[lt]*zt
		prof.Dp[i] = from.dp[lf] - to.dp[lt] -
			g*(from.rho[lf]*zf+from.beta[lf]*zf*zf/2.0) +
			g*(to.rho[lt]*zt+to.beta[lt]*zt*zt/2.0)
	}
}
