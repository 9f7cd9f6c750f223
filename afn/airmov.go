package afn

import (
	"math"
	"time"

	"airnet/element"

	log "github.com/sirupsen/logrus"
)

// NodeResult 节点结果
type NodeResult struct {
	Name        string  `json:"name" yaml:"name"`
	Pressure    float64 `json:"pressure" yaml:"pressure"`       // [Pa]
	NetFlow     float64 `json:"net_flow" yaml:"net_flow"`       // 净流入量 [kg/s]
	Density     float64 `json:"density" yaml:"density"`         // [kg/m3]
	Temperature float64 `json:"temperature" yaml:"temperature"` // [C]
}

// LinkResult 连接结果
type LinkResult struct {
	Name      string  `json:"name" yaml:"name"`
	Flow      float64 `json:"flow" yaml:"flow"`           // 起点到终点流量 [kg/s]
	Flow2     float64 `json:"flow2" yaml:"flow2"`         // 终点到起点流量 [kg/s]
	DP        float64 `json:"dp" yaml:"dp"`               // 压差 [Pa]
	Primary   float64 `json:"primary" yaml:"primary"`     // 主流量 [kg/s]
	Secondary float64 `json:"secondary" yaml:"secondary"` // 第二流量 [kg/s]
	Channels  int     `json:"channels" yaml:"channels"`
}

// Result 一次求解的结果
type Result struct {
	Nodes      []NodeResult `json:"nodes" yaml:"nodes"`
	Links      []LinkResult `json:"links" yaml:"links"`
	Iterations int          `json:"iterations" yaml:"iterations"`
	State      string       `json:"state" yaml:"state"`
	Residual   float64      `json:"residual" yaml:"residual"`
}

// Solve 求解节点压力与连接流量。
// 首次未收敛返回 types.ErrNotConverged，之后未收敛只记录警告并返回最后一次迭代结果。
func (s *Solver) Solve() (*Result, error) {
	start := time.Now()
	res, err := s.airmov()
	elapsed := time.Since(start)
	if s.Metrics != nil {
		s.Metrics.ObserveSolve(s.Iter, s.ACC1, elapsed, err == nil && s.State == StateConverged, err)
	}
	if err != nil {
		if s.Debug != nil {
			s.Debug.Error(err)
		}
		return nil, err
	}
	log.WithFields(log.Fields{
		"iterations": s.Iter,
		"state":      s.State,
		"elapsed":    elapsed,
	}).Debug("气流网络求解完成")
	return res, nil
}

func (s *Solver) airmov() (*Result, error) {
	if s.Config.InitFlag == 0 {
		for n := range s.PZ {
			if s.free[n] {
				s.PZ[n] = 0
			}
		}
	}
	s.properties()
	s.pstack()
	if s.Debug != nil {
		s.Debug.Init(s)
	}
	if err := s.solve(); err != nil {
		return nil, err
	}
	return s.report(), nil
}

// report 整理输出流量。
// 单向流取主流量符号分配到 Flow/Flow2，大开口和简单开口的双向流按两个流道分别输出。
func (s *Solver) report() *Result {
	res := &Result{
		Nodes:      make([]NodeResult, len(s.Network.Nodes)),
		Links:      make([]LinkResult, len(s.Network.Links)),
		Iterations: s.Iter,
		State:      s.State.String(),
		Residual:   s.Residual,
	}
	for n := range s.Network.Nodes {
		res.Nodes[n] = NodeResult{
			Name:        s.Network.Nodes[n].Name,
			Pressure:    s.PZ[n],
			Density:     s.Air[n].Density,
			Temperature: s.Air[n].Temperature,
		}
	}
	for i := range s.Network.Links {
		l := &s.Network.Links[i]
		f1, f2 := s.AFLOW[i], s.AFLOW2[i]
		r := LinkResult{
			Name:      l.Name,
			DP:        s.DP[i],
			Primary:   f1,
			Secondary: f2,
			Channels:  s.NF[i],
		}
		if f1 > 0 {
			r.Flow = f1
		} else {
			r.Flow2 = -f1
		}
		switch {
		case s.profiles[i] != nil && f2 != 0:
			r.Flow = f1 + f2
			r.Flow2 = f2
		case l.Component.Type() == element.SimpleOpeningType && f2 != 0:
			if f1 >= 0 {
				r.Flow = f1
				r.Flow2 = math.Abs(f2)
			} else {
				r.Flow = math.Abs(f2)
				r.Flow2 = -f1
			}
		}
		res.Links[i] = r

		net := f1
		if s.NF[i] == 2 {
			net += f2
		}
		res.Nodes[l.From].NetFlow -= net
		res.Nodes[l.To].NetFlow += net
	}
	return res
}
