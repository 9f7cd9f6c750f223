package afn

import (
	"fmt"
	"math"

	"airnet/types"

	log "github.com/sirupsen/logrus"
)

// solve 牛顿-拉夫森迭代求节点压力。
// 初始化时以线性关系求初值；迭代中相对残差下降缓慢时隔次使用 Steffensen 加速，
// 单步修正不超过 MaxPressure。
func (s *Solver) solve() error {
	cfg := &s.Config
	s.Iter = 0
	s.ACC0, s.ACC1 = 0, 0
	s.Accel = false
	clear(s.PCF)
	clear(s.CEF)

	if cfg.InitFlag != 1 {
		s.State = StateLinearInit
		if err := s.assemble(true); err != nil {
			return err
		}
		for n := range s.PZ {
			if s.free[n] {
				s.PZ[n] = s.SUMF[n]
			}
		}
		if err := s.linearSolve(s.PZ); err != nil {
			return fmt.Errorf("线性初始化: %w", err)
		}
		s.update()
	}

	s.State = StateIterating
	for s.Iter < cfg.MaxIteration {
		s.Iter++
		if err := s.assemble(false); err != nil {
			return err
		}
		converged := true
		ssumf, ssumaf := 0.0, 0.0
		for n := range s.SUMF {
			if !finite(s.SUMF[n]) || !finite(s.SUMAF[n]) {
				s.State = StateFailed
				return fmt.Errorf("%w: 第 %d 次迭代节点 %d(%s) 残差为 %v",
					types.ErrNotConverged, s.Iter, n, s.Network.Nodes[n].Name, s.SUMF[n])
			}
			ssumf += math.Abs(s.SUMF[n])
			ssumaf += s.SUMAF[n]
			if converged {
				if math.Abs(s.SUMF[n]) <= cfg.AbsTol {
					continue
				}
				if math.Abs(s.SUMF[n]/s.SUMAF[n]) > cfg.RelTol {
					converged = false
				}
			}
		}
		s.ACC0 = s.ACC1
		if ssumaf > 0 {
			s.ACC1 = ssumf / ssumaf
		}
		s.Residual = ssumf
		if converged && s.Iter > 1 {
			s.State = StateConverged
			s.update()
			return nil
		}
		if s.Iter >= cfg.MaxIteration {
			break
		}

		copy(s.CCF, s.SUMF)
		if err := s.linearSolve(s.CCF); err != nil {
			return fmt.Errorf("第 %d 次迭代: %w", s.Iter, err)
		}
		if s.Accel {
			s.Accel = false
		} else if s.Iter > 2 && s.ACC1 > 0.5*s.ACC0 {
			s.Accel = true
		}
		s.correct()
		s.update()
	}
	s.State = StateFailed
	return s.notConverged()
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }

// correct 按修正量更新待求节点压力
func (s *Solver) correct() {
	cfg := &s.Config
	for n := range s.PZ {
		if !s.free[n] {
			continue
		}
		s.CEF[n] = 1.0
		var c float64
		if s.Accel {
			c = s.CCF[n] / s.PCF[n]
			if c < cfg.ConvLimit {
				s.CEF[n] = 1.0 / (1.0 - c)
			}
			c = s.CCF[n] * s.CEF[n]
		} else {
			if s.CCF[n] == 0.0 {
				s.CCF[n] = types.TinyValue
			}
			s.PCF[n] = s.CCF[n]
			c = s.CCF[n]
		}
		if math.Abs(c) > cfg.MaxPressure {
			s.CEF[n] *= cfg.MaxPressure / math.Abs(c)
			s.PZ[n] -= s.CCF[n] * s.CEF[n]
		} else {
			s.PZ[n] -= c
		}
	}
}

// update 输出迭代信息
func (s *Solver) update() {
	log.WithFields(log.Fields{
		"state":    s.State,
		"iter":     s.Iter,
		"residual": s.Residual,
		"relative": s.ACC1,
		"accel":    s.Accel,
	}).Trace("气流网络迭代")
	if s.Debug != nil {
		s.Debug.Update(s)
	}
}

// notConverged 首次未收敛返回错误，之后只记录警告并保留最后一次迭代结果
func (s *Solver) notConverged() error {
	s.failures++
	fields := log.Fields{
		"iterations": s.Iter,
		"max":        s.Config.MaxIteration,
		"relative":   s.ACC1,
	}
	if s.failures < 2 {
		log.WithFields(fields).Error("气流网络迭代次数过多, 可调整初始化方式、收敛容差、加速限制或最大迭代次数")
		return fmt.Errorf("%w: 迭代 %d 次, 允许 %d 次", types.ErrNotConverged, s.Iter, s.Config.MaxIteration)
	}
	s.failWarn.Warn(fields, "气流网络迭代次数过多, 继续计算")
	return nil
}
