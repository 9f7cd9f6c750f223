package afn

import (
	"errors"
	"math"
	"testing"
	"time"

	"airnet/element"
	"airnet/metrics"
	"airnet/psychro"
	"airnet/types"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zone(name string, t float64) types.Node {
	return types.Node{Name: name, Kind: types.NodeFree, Temperature: t}
}

func fixed(name string, p float64) types.Node {
	return types.Node{Name: name, Kind: types.NodeFixed, Pressure: p, Temperature: 20}
}

func outdoor(name string) types.Node {
	return types.Node{Name: name, Kind: types.NodeFixed, External: true}
}

func link(name string, from, to types.NodeID, c types.Component) types.Link {
	return types.Link{Name: name, From: from, To: to, Component: c, Multiplier: 1, Control: 1}
}

func environment(outdoor float64) types.Environment {
	env := types.DefaultEnvironment()
	env.OutdoorTemperature = outdoor
	return env
}

func newSolver(t *testing.T, net *types.Network, mod func(*types.Config)) *Solver {
	t.Helper()
	cfg := types.DefaultConfig()
	if mod != nil {
		mod(&cfg)
	}
	s, err := NewSolver(net, cfg, environment(20))
	require.NoError(t, err)
	return s
}

// chain 0 Pa 与 10 Pa 边界之间串联两个区域
func chain() *types.Network {
	crack := element.NewCrack(0.001, 0.65)
	return &types.Network{
		Nodes: []types.Node{fixed("low", 0), zone("z1", 20), zone("z2", 20), fixed("high", 10)},
		Links: []types.Link{
			link("high-z2", 3, 2, crack),
			link("z2-z1", 2, 1, crack),
			link("z1-low", 1, 0, crack),
		},
	}
}

func tight(cfg *types.Config) {
	cfg.AbsTol = 1e-15
	cfg.RelTol = 1e-10
}

type countingDebug struct {
	inits, updates int
	err            error
}

func (d *countingDebug) Init(*Solver)    { d.inits++ }
func (d *countingDebug) Update(*Solver)  { d.updates++ }
func (d *countingDebug) Error(err error) { d.err = err }

type lastSolve struct {
	iterations int
	elapsed    time.Duration
	converged  bool
	err        error
	calls      int
}

func (m *lastSolve) ObserveSolve(iterations int, _ float64, elapsed time.Duration, converged bool, err error) {
	m.iterations, m.elapsed, m.converged, m.err = iterations, elapsed, converged, err
	m.calls++
}

func TestChainCrackClosedForm(t *testing.T) {
	s := newSolver(t, chain(), tight)
	dbg, met := &countingDebug{}, &lastSolve{}
	s.Debug, s.Metrics = dbg, met

	res, err := s.Solve()
	require.NoError(t, err)
	assert.Equal(t, "converged", res.State)
	assert.Equal(t, StateConverged, s.State)
	assert.LessOrEqual(t, res.Iterations, s.Config.MaxIteration)
	assert.Equal(t, 1, dbg.inits)
	assert.Equal(t, res.Iterations+1, dbg.updates, "线性初始化与每次迭代各输出一次")
	assert.Equal(t, 1, met.calls)
	assert.Equal(t, res.Iterations, met.iterations)
	assert.True(t, met.converged)

	assert.InDelta(t, 10.0/3.0, res.Nodes[1].Pressure, 0.01)
	assert.InDelta(t, 20.0/3.0, res.Nodes[2].Pressure, 0.01)

	rhoNorm := psychro.AirDensity(types.StdBaroPress, 20, 0)
	flow := s.AFLOW[0]
	for i, l := range s.Network.Links {
		dp := s.DP[i]
		require.Greater(t, dp, 0.0, "压差方向")
		require.Greater(t, s.AFLOW[i], 0.0, "流量方向与压差一致")
		up := s.Air[l.From].Density
		want := 0.001 * math.Pow(dp, 0.65) * math.Pow(rhoNorm/up, 0.65-1)
		assert.InEpsilon(t, want, s.AFLOW[i], 1e-6, "连接 %s", l.Name)
		assert.InEpsilon(t, flow, s.AFLOW[i], 1e-9, "串联流量相等")
		assert.Equal(t, s.AFLOW[i], res.Links[i].Flow)
		assert.Zero(t, res.Links[i].Flow2)
	}
	assert.InDelta(t, 0, res.Nodes[1].NetFlow, 1e-12)
	assert.InDelta(t, 0, res.Nodes[2].NetFlow, 1e-12)
	assert.InEpsilon(t, -flow, res.Nodes[3].NetFlow, 1e-12)
	assert.InEpsilon(t, flow, res.Nodes[0].NetFlow, 1e-9)
}

func TestResolveFromConvergedField(t *testing.T) {
	s := newSolver(t, chain(), tight)
	first, err := s.Solve()
	require.NoError(t, err)

	s.Config.InitFlag = 1
	second, err := s.Solve()
	require.NoError(t, err)
	assert.LessOrEqual(t, second.Iterations, 2)
	opt := cmpopts.EquateApprox(1e-9, 1e-15)
	if diff := cmp.Diff(first.Links, second.Links, opt); diff != "" {
		t.Errorf("重复求解结果不一致 (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first.Nodes, second.Nodes, opt); diff != "" {
		t.Errorf("重复求解节点不一致 (-first +second):\n%s", diff)
	}
}

func TestNonSymmetricMatchesSymmetric(t *testing.T) {
	sym := newSolver(t, chain(), tight)
	want, err := sym.Solve()
	require.NoError(t, err)

	non := newSolver(t, chain(), func(cfg *types.Config) {
		tight(cfg)
		cfg.Symmetric = false
		cfg.RemoveZeroColumns = false
	})
	require.NotNil(t, non.Jac.AL)
	got, err := non.Solve()
	require.NoError(t, err)
	opt := cmpopts.EquateApprox(1e-9, 1e-9)
	if diff := cmp.Diff(want.Nodes, got.Nodes, opt); diff != "" {
		t.Errorf("非对称求解结果不一致 (-sym +non):\n%s", diff)
	}
}

func TestZeroColumnsRemoved(t *testing.T) {
	s := newSolver(t, chain(), nil)
	_, err := s.Solve()
	require.NoError(t, err)
	// 第 1、3 列只含与固定节点的耦合项
	assert.Equal(t, []int{1, 3}, s.Removed())
}

// building 含风管系统、简单开口与定流量排风的多区域网络
func building() *types.Network {
	a, b, c := zone("A", 22), zone("B", 18), zone("C", 24)
	b.Height = 3
	plenum := zone("plenum", 20)
	crack := element.NewCrack(0.01, 0.65)
	net := &types.Network{
		Nodes: []types.Node{outdoor("out"), a, b, c, plenum, outdoor("roof")},
	}
	net.Nodes[5].Height = 4.5
	l := func(name string, from, to types.NodeID, comp types.Component, hf, ht float64) types.Link {
		x := link(name, from, to, comp)
		x.FromHeight, x.ToHeight = hf, ht
		return x
	}
	duct := l("duct", 3, 4, element.NewDuct(5, 0.2), 2.5, 0)
	duct.Distribution = true
	exhaust := l("exhaust", 4, 0, element.NewConstantFlow(0.05), 0, 3)
	exhaust.Distribution = true
	wind := l("out-A", 0, 1, crack, 1, 1)
	wind.WindPressure = 2
	net.Links = []types.Link{
		wind,
		l("stair", 1, 2, crack, 2.5, 0),
		l("B-roof", 2, 5, crack, 1.5, 0),
		l("door", 1, 3, element.NewSimpleOpening(0.8, 2), 0, 0),
		duct,
		exhaust,
		l("out-C", 0, 3, crack, 1, 1),
	}
	return net
}

// balanced 检查每个待求节点的质量守恒
func balanced(t *testing.T, s *Solver, res *Result) {
	t.Helper()
	cfg := s.Config
	for n, r := range res.Nodes {
		if !s.Network.Nodes[n].IsFree() {
			continue
		}
		if math.Abs(r.NetFlow) > cfg.AbsTol && math.Abs(r.NetFlow) > cfg.RelTol*s.SUMAF[n] {
			t.Errorf("节点 %s 质量不守恒: 净流量 %g, 流量和 %g", r.Name, r.NetFlow, s.SUMAF[n])
		}
	}
}

func TestMassConservation(t *testing.T) {
	net := building()
	s, err := NewSolver(net, types.DefaultConfig(), environment(5))
	require.NoError(t, err)
	res, err := s.Solve()
	require.NoError(t, err)
	require.Equal(t, StateConverged, s.State)

	balanced(t, s, res)
	// 排风量由定流量元件决定
	assert.InDelta(t, 0.05, res.Links[5].Flow, 1e-12)
	assert.InDelta(t, 0.05, res.Links[4].Flow, 1e-4)
	assert.Less(t, res.Nodes[4].Pressure, res.Nodes[3].Pressure, "排风使风管负压")
	// 风管系统连接使用简化栈压
	assert.InDelta(t, s.PS[4], s.DP[4]-(s.PZ[3]-s.PZ[4]), 1e-12)
	assert.Equal(t, 2, res.Links[3].Channels)
}

func TestStratifiedBuilding(t *testing.T) {
	net := building()
	net.Nodes[0].Layers = []types.Layer{{Start: 0, TempGradient: -0.4}, {Start: 2, TempGradient: -1}}
	net.Nodes[1].Layers = []types.Layer{{Start: 0, TempGradient: 2}}
	net.Links[0].FromHeight = 2.5
	s, err := NewSolver(net, types.DefaultConfig(), environment(5))
	require.NoError(t, err)
	res, err := s.Solve()
	require.NoError(t, err)
	require.Equal(t, StateConverged, s.State)
	balanced(t, s, res)
	assert.InDelta(t, 0.05, res.Links[5].Flow, 1e-12)

	// out-A: 室外自 0 m 经 2 m 分层爬升到 2.5 m，区域 A 自 0 m 爬升到 1 m，
	// 再以室外侧密度跨越 1 m - 2.5 m 的高差
	pb, g := s.Environment.BaroPress, s.Gravity
	t0 := s.Environment.OutdoorTemperature
	r0 := psychro.AirDensity(pb, t0, 0)
	t1 := t0 - 0.4*2
	r1 := psychro.AirDensity(pb, t1, 0)
	d1 := psz(pb, r0, (r1-r0)/2, 0, 2, g)
	r0 = psychro.AirDensity(pb+d1, t1, 0)
	t2 := t1 - 1*0.5
	r1 = psychro.AirDensity(pb+d1, t2, 0)
	dpF := d1 + psz(pb+d1, r0, (r1-r0)/0.5, 2, 2.5, g)
	rhoF := psychro.AirDensity(pb+dpF, t2, 0)

	ra := psychro.AirDensity(pb, 22, 0)
	rb := psychro.AirDensity(pb, 24, 0)
	dpT := psz(pb, ra, rb-ra, 0, 1, g)

	want := dpF - dpT + psz(pb+dpF, rhoF, 0, 0, -1.5, g)
	assert.InEpsilon(t, want, s.DpL[0][0], 1e-12)
	// 与按平均密度的静压近似一致
	approx := -(psychro.AirDensity(pb, t0, 0)+rhoF)/2*g*2.5 + (ra+rb)/2*g + rhoF*g*1.5
	assert.InDelta(t, approx, s.DpL[0][0], 0.05)
	assert.InDelta(t, s.PZ[0]-s.PZ[1]+s.DpL[0][0]+net.Links[0].WindPressure, s.DP[0], 1e-12)
}

func TestDetailedFanBuilding(t *testing.T) {
	net := building()
	fan := element.NewDetailedFan()
	// 单段直线曲线覆盖正负压升
	fan.Coefficients = []float64{0, 200, -4000, 0, 0, 0.1}
	fan.FreeFlow, fan.ShutoffPress = 0.05, 200
	net.Links[5].Component = fan
	s, err := NewSolver(net, types.DefaultConfig(), environment(5))
	require.NoError(t, err)
	res, err := s.Solve()
	require.NoError(t, err)
	require.Equal(t, StateConverged, s.State)
	balanced(t, s, res)

	// 运行点落在风机曲线上
	rho := s.Air[4].Density
	prise := -s.DP[5] * fan.CurveDensity / rho
	want := (200 - prise) / 4000 * rho / fan.CurveDensity
	assert.InDelta(t, want, res.Links[5].Flow, 1e-6)
	assert.Greater(t, prise, 0.0, "排风机克服负压")
	assert.Less(t, res.Nodes[4].Pressure, res.Nodes[3].Pressure)
	assert.InDelta(t, res.Links[5].Flow, res.Links[4].Flow, 1e-4, "风管与风机串联")
}

func TestLargeOpeningTwoWayFlow(t *testing.T) {
	room := zone("room", 25)
	net := &types.Network{
		Nodes: []types.Node{room, outdoor("out")},
		Links: []types.Link{link("window", 0, 1, element.NewDetailedOpening(1, 2))},
	}
	s, err := NewSolver(net, types.DefaultConfig(), environment(0))
	require.NoError(t, err)
	res, err := s.Solve()
	require.NoError(t, err)

	prof := s.Profile(0)
	require.NotNil(t, prof)
	assert.Zero(t, prof.Dp[0])
	rhoIn, rhoOut := s.Air[0].Density, s.Air[1].Density
	assert.InEpsilon(t, s.Gravity*(rhoOut-rhoIn)*2, prof.Dp[types.NrInt+1], 1e-3)
	for i := 1; i < len(prof.Dp); i++ {
		assert.Greater(t, prof.Dp[i], prof.Dp[i-1], "冷侧在终点，压差随高度增加")
	}

	assert.Less(t, res.Nodes[0].Pressure, 0.0, "暖室底部进风")
	w := res.Links[0]
	assert.Greater(t, w.Flow, 0.0)
	assert.Greater(t, w.Flow2, 0.0)
	assert.InDelta(t, w.Flow, w.Flow2, 1e-5)
	assert.InDelta(t, 0, res.Nodes[0].NetFlow, 1e-5)
	assert.Equal(t, 1, w.Channels)
}

func TestNotConvergedPolicy(t *testing.T) {
	s := newSolver(t, chain(), func(cfg *types.Config) { cfg.MaxIteration = 1 })
	dbg := &countingDebug{}
	s.Debug = dbg

	_, err := s.Solve()
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrNotConverged))
	assert.Equal(t, StateFailed, s.State)
	assert.ErrorIs(t, dbg.err, types.ErrNotConverged)

	res, err := s.Solve()
	require.NoError(t, err, "再次未收敛只记录警告")
	require.NotNil(t, res)
	assert.Equal(t, "failed", res.State)
	assert.Equal(t, 2, s.Failures())
	assert.Equal(t, 1, s.failWarn.Count)
}

func TestNotConvergedMetrics(t *testing.T) {
	s := newSolver(t, chain(), func(cfg *types.Config) { cfg.MaxIteration = 1 })
	reg := metrics.NewRegistry()
	s.Metrics = reg

	_, err := s.Solve()
	require.ErrorIs(t, err, types.ErrNotConverged)
	_, err = s.Solve()
	require.NoError(t, err)
	require.Equal(t, StateFailed, s.State)

	assert.Equal(t, 2.0, testutil.ToFloat64(reg.SolvesTotal.WithLabelValues(metrics.ResultNotConverged)))
	assert.Zero(t, testutil.ToFloat64(reg.SolvesTotal.WithLabelValues(metrics.ResultConverged)))
	assert.Equal(t, 2.0, testutil.ToFloat64(reg.NotConverged))

	s.Config.MaxIteration = types.DefaultMaxIteration
	_, err = s.Solve()
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.SolvesTotal.WithLabelValues(metrics.ResultConverged)))
	assert.Equal(t, 2.0, testutil.ToFloat64(reg.NotConverged))
}

// nanCrack 线性初始化正常，迭代时返回非数值流量
type nanCrack struct{}

func (*nanCrack) Type() types.ComponentType { return types.TypeUnknown }

func (*nanCrack) Calculate(_ *types.LinkContext, laminar bool, dp float64, _, _ *types.AirState) (types.Flow, error) {
	if laminar {
		return types.Flow{F: [2]float64{1e-3 * dp}, DF: [2]float64{1e-3}, N: 1}, nil
	}
	return types.Flow{F: [2]float64{math.NaN()}, DF: [2]float64{1e-3}, N: 1}, nil
}

func TestNonFiniteResidual(t *testing.T) {
	net := chain()
	net.Links[1].Component = &nanCrack{}
	s := newSolver(t, net, nil)
	dbg := &countingDebug{}
	s.Debug = dbg

	res, err := s.Solve()
	require.ErrorIs(t, err, types.ErrNotConverged)
	assert.Nil(t, res)
	assert.Equal(t, StateFailed, s.State)
	assert.Equal(t, 1, s.Iter)
	assert.ErrorIs(t, dbg.err, types.ErrNotConverged)
	assert.Zero(t, s.Failures(), "非数值残差不计入迭代次数超限")
}

func TestSingularNetwork(t *testing.T) {
	net := &types.Network{
		Nodes: []types.Node{fixed("out", 0), zone("a", 20), zone("isolated", 20)},
		Links: []types.Link{link("a-out", 1, 0, element.NewCrack(0.001, 0.65))},
	}
	s := newSolver(t, net, nil)
	_, err := s.Solve()
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrSingular)
}

func TestNewSolverValidation(t *testing.T) {
	crack := element.NewCrack(0.001, 0.65)
	net := &types.Network{
		Nodes: []types.Node{fixed("out", 0), zone("a", 20)},
		Links: []types.Link{link("a-a", 1, 1, crack)},
	}
	_, err := NewSolver(net, types.DefaultConfig(), types.DefaultEnvironment())
	assert.ErrorIs(t, err, types.ErrInvalidNetwork, "首尾节点相同")

	net.Links[0] = link("a-out", 1, 0, element.NewCrack(0.001, 3))
	_, err = NewSolver(net, types.DefaultConfig(), types.DefaultEnvironment())
	assert.ErrorIs(t, err, types.ErrInvalidNetwork, "元件参数")

	net.Links[0] = link("a-out", 1, 0, element.NewDetailedOpening(1, 2))
	net.Links[0].Distribution = true
	_, err = NewSolver(net, types.DefaultConfig(), types.DefaultEnvironment())
	assert.ErrorIs(t, err, types.ErrInvalidNetwork, "风管系统大开口")

	net.Links[0] = link("a-out", 1, 0, crack)
	net.Nodes[1].Layers = []types.Layer{{Start: 2}, {Start: 1}}
	_, err = NewSolver(net, types.DefaultConfig(), types.DefaultEnvironment())
	assert.ErrorIs(t, err, types.ErrInvalidNetwork, "分层顺序")

	net.Nodes[1].Layers = nil
	cfg := types.DefaultConfig()
	cfg.MaxIteration = 0
	_, err = NewSolver(net, cfg, types.DefaultEnvironment())
	assert.Error(t, err)
}

func TestSetControlClosesOpening(t *testing.T) {
	net := building()
	s, err := NewSolver(net, types.DefaultConfig(), environment(5))
	require.NoError(t, err)
	s.SetControl(3, 0)
	res, err := s.Solve()
	require.NoError(t, err)
	assert.Equal(t, 1, res.Links[3].Channels, "关闭的开口按裂缝计算")
}

func BenchmarkSolveBuilding(b *testing.B) {
	net := building()
	s, err := NewSolver(net, types.DefaultConfig(), environment(5))
	if err != nil {
		b.Fatal(err)
	}
	for i := 0; i < b.N; i++ {
		if _, err := s.Solve(); err != nil {
			b.Fatal(err)
		}
	}
}
