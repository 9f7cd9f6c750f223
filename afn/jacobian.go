package afn

import (
	"fmt"
	"math"

	"airnet/maths"
	"airnet/types"
)

// assemble 计算全部连接流量，累计节点残差并加盖雅可比矩阵。
// laminar 为真时元件返回线性初始化关系。
func (s *Solver) assemble(laminar bool) error {
	for n := range s.Network.Nodes {
		s.SUMF[n], s.SUMAF[n] = 0, 0
		if s.free[n] {
			s.Jac.AD[n] = 0
		} else {
			s.Jac.AD[n] = 1
		}
	}
	clear(s.Jac.AU)
	clear(s.Jac.AL)

	for i := range s.Network.Links {
		l := &s.Network.Links[i]
		n, m := l.From, l.To
		stack := s.DpL[i][0]
		if l.Distribution {
			stack = s.PS[i]
		}
		dp := s.PZ[n] - s.PZ[m] + stack + l.WindPressure
		f, err := l.Component.Calculate(&s.contexts[i], laminar, dp, &s.Air[n], &s.Air[m])
		if err != nil {
			return fmt.Errorf("连接 %d(%s): %w", i, l.Name, err)
		}
		s.DP[i] = dp
		s.NF[i] = f.N
		s.AFLOW[i] = f.F[0]
		s.AFLOW2[i] = 0
		if s.profiles[i] != nil {
			// 大开口反向流量只用于输出
			s.AFLOW2[i] = f.F[1]
		}
		if err := s.accumulate(n, m, f.F[0], f.DF[0]); err != nil {
			return fmt.Errorf("连接 %d(%s): %w", i, l.Name, err)
		}
		if f.N < 2 {
			continue
		}
		s.AFLOW2[i] = f.F[1]
		if err := s.accumulate(n, m, f.F[1], f.DF[1]); err != nil {
			return fmt.Errorf("连接 %d(%s): %w", i, l.Name, err)
		}
	}
	return nil
}

// accumulate 单个流道对两端节点的贡献
func (s *Solver) accumulate(n, m types.NodeID, f, df float64) error {
	if s.free[n] {
		s.SUMF[n] += f
		s.SUMAF[n] += math.Abs(f)
	}
	if s.free[m] {
		s.SUMF[m] -= f
		s.SUMAF[m] += math.Abs(f)
	}
	return s.Jac.Stamp(n, m, s.free[n], s.free[m], df)
}

// linearSolve 分解当前雅可比矩阵并原位求解 b，原矩阵保持不变
func (s *Solver) linearSolve(b []float64) error {
	var a *maths.Skyline
	if s.Config.RemoveZeroColumns {
		a = s.reducer.Reduce()
	} else {
		a = s.factored
		copy(a.AD, s.Jac.AD)
		copy(a.AU, s.Jac.AU)
		copy(a.AL, s.Jac.AL)
	}
	if err := a.Factor(); err != nil {
		return err
	}
	a.Solve(b)
	return nil
}
