// Package afn 多区域气流网络求解
package afn

import (
	"fmt"
	"time"

	"airnet/element"
	"airnet/maths"
	"airnet/psychro"
	"airnet/types"

	"github.com/go-playground/validator/v10"
)

// State 求解器状态
type State uint8

const (
	StateUninitialized State = iota // 未初始化
	StateLinearInit                 // 线性初始化
	StateIterating                  // 迭代中
	StateConverged                  // 已收敛
	StateFailed                     // 超出最大迭代次数
)

var stateNames = [...]string{"uninitialized", "linear_init", "iterating", "converged", "failed"}

// String 状态名称
func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Debug 调试接口，求解开始时调用 Init，每次迭代后调用 Update
type Debug interface {
	Init(s *Solver)
	Update(s *Solver)
	Error(err error)
}

// Metrics 求解统计接口，converged 为本次求解是否收敛
type Metrics interface {
	ObserveSolve(iterations int, residual float64, elapsed time.Duration, converged bool, err error)
}

// Solver 气流网络求解器。
// 持有一次求解的全部工作数组，同一求解器不能并发使用。
type Solver struct {
	Network     *types.Network
	Config      types.Config
	Environment types.Environment
	Debug       Debug
	Metrics     Metrics

	PZ    []float64 // 节点压力 [Pa]
	SUMF  []float64 // 节点流量残差 [kg/s]
	SUMAF []float64 // 节点流量绝对值之和 [kg/s]
	PCF   []float64 // 上次未加速的压力修正
	CEF   []float64 // 修正系数
	CCF   []float64 // 本次牛顿修正

	AFLOW  []float64    // 主流量 [kg/s]
	AFLOW2 []float64    // 第二流量 [kg/s]
	DP     []float64    // 连接压差 [Pa]
	PS     []float64    // 风管系统简化栈压 [Pa]
	DpL    [][2]float64 // 分层栈压，正反两个流向 [Pa]
	NF     []int        // 流道数量

	Air     []types.AirState // 节点空气物性
	Gravity float64          // 重力加速度 [m/s2]

	Jac      *maths.Skyline // 雅可比矩阵(未分解)
	Iter     int            // 迭代次数
	ACC0     float64        // 上次相对残差
	ACC1     float64        // 本次相对残差
	Accel    bool           // 本次迭代是否加速
	Residual float64        // 残差绝对值之和 [kg/s]
	State    State

	free     []bool
	contexts []types.LinkContext
	profiles []*types.Profile
	reducer  *maths.SkylineReducer
	factored *maths.Skyline // 不精简时的分解副本

	failures int
	failWarn types.Recurring
}

var validate = validator.New()

// NewSolver 检查网络与参数并分配工作数组
func NewSolver(net *types.Network, cfg types.Config, env types.Environment) (*Solver, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("求解参数错误: %w", err)
	}
	if err := validate.Struct(env); err != nil {
		return nil, fmt.Errorf("环境参数错误: %w", err)
	}
	if err := net.Check(); err != nil {
		return nil, err
	}
	for i := range net.Nodes {
		if err := checkLayers(&net.Nodes[i]); err != nil {
			return nil, err
		}
	}
	n, m := len(net.Nodes), len(net.Links)
	s := &Solver{
		Network:     net,
		Config:      cfg,
		Environment: env,
		PZ:          make([]float64, n),
		SUMF:        make([]float64, n),
		SUMAF:       make([]float64, n),
		PCF:         make([]float64, n),
		CEF:         make([]float64, n),
		CCF:         make([]float64, n),
		AFLOW:       make([]float64, m),
		AFLOW2:      make([]float64, m),
		DP:          make([]float64, m),
		PS:          make([]float64, m),
		DpL:         make([][2]float64, m),
		NF:          make([]int, m),
		Air:         make([]types.AirState, n),
		Gravity:     psychro.Gravity(env.Latitude),
		free:        make([]bool, n),
		contexts:    make([]types.LinkContext, m),
		profiles:    make([]*types.Profile, m),
	}
	pairs := make([][2]int, m)
	for i := range net.Links {
		l := &net.Links[i]
		if err := element.Validate(l.Component); err != nil {
			return nil, fmt.Errorf("连接 %d(%s): %w", i, l.Name, err)
		}
		pairs[i] = [2]int{l.From, l.To}
		s.contexts[i] = types.LinkContext{
			ID:         i,
			Name:       l.Name,
			Multiplier: l.Multiplier,
			Control:    l.Control,
			Gravity:    s.Gravity,
		}
		if _, ok := l.Component.(types.Opening); ok {
			if l.Distribution {
				return nil, fmt.Errorf("%w: 连接 %d(%s) 大开口不能用于风管系统", types.ErrInvalidNetwork, i, l.Name)
			}
			s.profiles[i] = types.NewProfile()
			s.contexts[i].Profile = s.profiles[i]
		}
	}
	s.Jac = maths.NewSkyline(n, pairs, cfg.Symmetric)
	s.reducer = maths.NewSkylineReducer(s.Jac)
	s.factored = s.Jac.Clone()
	s.Reset()
	return s, nil
}

// checkLayers 分层起始高度应递增
func checkLayers(n *types.Node) error {
	for i := 1; i < len(n.Layers); i++ {
		if n.Layers[i].Start <= n.Layers[i-1].Start {
			return fmt.Errorf("%w: 节点 %s 分层起始高度应递增", types.ErrInvalidNetwork, n.Name)
		}
	}
	return nil
}

// Reset 压力恢复为节点初始值并清空连接状态
func (s *Solver) Reset() {
	for i := range s.Network.Nodes {
		node := &s.Network.Nodes[i]
		s.PZ[i] = node.Pressure
		s.free[i] = node.IsFree()
	}
	clear(s.AFLOW)
	clear(s.AFLOW2)
	clear(s.DP)
	clear(s.PS)
	clear(s.DpL)
	s.Iter = 0
	s.State = StateUninitialized
}

// SetControl 修改连接控制值(风机转速比/开口系数)
func (s *Solver) SetControl(link types.LinkID, control float64) {
	s.Network.Links[link].Control = control
	s.contexts[link].Control = control
}

// Profile 大开口连接的当前剖面，其他连接返回 nil
func (s *Solver) Profile(link types.LinkID) *types.Profile { return s.profiles[link] }

// Failures 未收敛次数
func (s *Solver) Failures() int { return s.failures }

// Removed 最近一次精简移除的矩阵列
func (s *Solver) Removed() []int { return s.reducer.Removed() }
