package maths

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"airnet/types"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// randomNetwork 生成随机连接并加盖导数，每个节点额外连接到固定边界保证正定
func randomNetwork(rng *rand.Rand, n int, symmetric bool) *Skyline {
	pairs := make([][2]int, 0, 2*n)
	for k := 1; k < n; k++ {
		pairs = append(pairs, [2]int{k - 1, k})
	}
	for i := 0; i < n; i++ {
		pairs = append(pairs, [2]int{rng.Intn(n), rng.Intn(n)})
	}
	s := NewSkyline(n, pairs, symmetric)
	for _, p := range pairs {
		if p[0] == p[1] {
			continue
		}
		s.Stamp(p[0], p[1], true, true, 0.1+rng.Float64())
	}
	for k := 0; k < n; k++ {
		s.Stamp(k, -1, true, false, 0.5+rng.Float64())
	}
	return s
}

// denseSolve 使用 gonum 稠密求解作为参考
func denseSolve(t testing.TB, s *Skyline, b []float64) []float64 {
	var x mat.VecDense
	if err := x.SolveVec(s.Dense(), mat.NewVecDense(len(b), append([]float64(nil), b...))); err != nil {
		t.Fatalf("稠密求解失败 %s", err)
	}
	return x.RawVector().Data
}

func randomVector(rng *rand.Rand, n int) []float64 {
	b := make([]float64, n)
	for i := range b {
		b[i] = rng.Float64()*20 - 10
	}
	return b
}

func TestSkylineIndex(t *testing.T) {
	s := NewSkyline(4, [][2]int{{0, 2}, {1, 3}, {3, 2}}, true)
	// 高度 [0 0 2 2]
	require.Equal(t, []int{0, 0, 0, 2, 4}, s.IK)
	idx, ok := s.Index(0, 2)
	require.True(t, ok)
	assert.Equal(t, 0, idx)
	idx, ok = s.Index(2, 3)
	require.True(t, ok)
	assert.Equal(t, 3, idx)
	_, ok = s.Index(0, 3)
	assert.False(t, ok, "(0,3) 不在轮廓内")
	_, ok = s.Index(0, 1)
	assert.False(t, ok, "第 1 列高度为零")
}

func TestSkylineStamp(t *testing.T) {
	s := NewSkyline(3, [][2]int{{0, 1}, {1, 2}}, false)
	s.Stamp(0, 1, true, true, 2)
	s.Stamp(2, 1, false, true, 3)
	s.Stamp(1, 2, true, true, 1)
	want := mat.NewDense(3, 3, []float64{
		2, -2, 0,
		-2, 6, -1,
		0, -1, 1,
	})
	if !mat.EqualApprox(s.Dense(), want, 1e-12) {
		t.Errorf("加盖结果错误:\n%v", s)
	}
}

func TestSkylineStampOutsideProfile(t *testing.T) {
	s := NewSkyline(3, [][2]int{{0, 1}}, false)
	require.NoError(t, s.Stamp(0, 1, true, true, 2))
	before := s.Dense()

	err := s.Stamp(2, 0, true, true, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "(2,0)")
	assert.True(t, mat.Equal(s.Dense(), before), "失败的加盖不得改动矩阵")

	// 单端待求的连接不需要耦合项
	require.NoError(t, s.Stamp(2, 0, true, false, 5))
	assert.Equal(t, 5.0, s.AD[2])
}

func TestSkylineSymmetricSolve(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, n := range []int{1, 2, 5, 17, 40} {
		s := randomNetwork(rng, n, true)
		b := randomVector(rng, n)
		want := denseSolve(t, s, b)

		require.NoError(t, s.Factor())
		s.Solve(b)
		for i := range b {
			if math.Abs(b[i]-want[i]) > 1e-9*math.Max(1, math.Abs(want[i])) {
				t.Fatalf("n=%d 第 %d 个解不一致: 期望 %v, 实际 %v", n, i, want[i], b[i])
			}
		}
	}
}

func TestSkylineNonSymmetricSolve(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	n := 12
	s := randomNetwork(rng, n, false)
	// 打破对称性
	for c := 1; c < n; c++ {
		for r := c - s.Height(c); r < c; r++ {
			require.NoError(t, s.Add(c, r, 0.05*rng.Float64()))
		}
	}
	require.NotEqual(t, s.Get(0, 1), s.Get(1, 0))
	b := randomVector(rng, n)
	want := denseSolve(t, s, b)

	require.NoError(t, s.Factor())
	s.Solve(b)
	assert.InDeltaSlice(t, want, b, 1e-9)
}

func TestSkylineSymmetricMatchesNonSymmetric(t *testing.T) {
	sym := randomNetwork(rand.New(rand.NewSource(3)), 9, true)
	nsym := randomNetwork(rand.New(rand.NewSource(3)), 9, false)
	b1 := randomVector(rand.New(rand.NewSource(4)), 9)
	b2 := append([]float64(nil), b1...)
	require.NoError(t, sym.Factor())
	require.NoError(t, nsym.Factor())
	sym.Solve(b1)
	nsym.Solve(b2)
	assert.InDeltaSlice(t, b1, b2, 1e-10)
}

func TestSkylineSingular(t *testing.T) {
	// 两个待求节点只相互连接，没有边界
	s := NewSkyline(2, [][2]int{{0, 1}}, true)
	s.Stamp(0, 1, true, true, 2)
	err := s.Factor()
	if !errors.Is(err, types.ErrSingular) {
		t.Fatalf("期望奇异错误, 实际 %v", err)
	}

	z := NewSkyline(3, nil, true)
	z.AD[1], z.AD[2] = 1, 1
	assert.ErrorIs(t, z.Factor(), types.ErrSingular, "首个主元为零")
}

func TestSkylineClone(t *testing.T) {
	s := randomNetwork(rand.New(rand.NewSource(5)), 6, false)
	c := s.Clone()
	require.NoError(t, c.Factor())
	assert.NotEqual(t, s.AD, c.AD, "分解副本不应影响原矩阵")
	s.Zero()
	for _, v := range s.AU {
		assert.Zero(t, v)
	}
	assert.Len(t, s.AU, c.NNZ())
}

func TestSkylineReduce(t *testing.T) {
	// 第 3 列结构上存在但数值为零
	s := NewSkyline(5, [][2]int{{0, 1}, {1, 2}, {0, 3}, {3, 4}}, true)
	s.Stamp(0, 1, true, true, 1.5)
	s.Stamp(1, 2, true, true, 2.5)
	s.Stamp(3, 4, true, true, 0.7)
	for k := 0; k < 5; k++ {
		s.Stamp(k, -1, true, false, 1)
	}
	r := NewSkylineReducer(s)
	reduced := r.Reduce()
	assert.Equal(t, []int{3}, r.Removed())
	assert.Equal(t, 3, r.Saved())
	assert.Equal(t, s.NNZ()-3, reduced.NNZ())

	b := []float64{1, -2, 3, 0.5, 4}
	full := append([]float64(nil), b...)
	f := s.Clone()
	require.NoError(t, f.Factor())
	f.Solve(full)
	require.NoError(t, reduced.Factor())
	reduced.Solve(b)
	assert.Equal(t, full, b, "精简前后求解结果应完全一致")

	// 原矩阵保持不变
	assert.Equal(t, 3.5, s.AD[2])
}

func TestSkylineRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("天际线求解与稠密求解一致", prop.ForAll(
		func(n int, seed int64, symmetric bool) bool {
			rng := rand.New(rand.NewSource(seed))
			s := randomNetwork(rng, n, symmetric)
			b := randomVector(rng, n)
			want := denseSolve(t, s, b)
			if err := s.Factor(); err != nil {
				return false
			}
			s.Solve(b)
			for i := range b {
				if math.Abs(b[i]-want[i]) > 1e-8*math.Max(1, math.Abs(want[i])) {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 30),
		gen.Int64(),
		gen.Bool(),
	))

	properties.Property("精简矩阵求解与原矩阵一致", prop.ForAll(
		func(n int, seed int64) bool {
			rng := rand.New(rand.NewSource(seed))
			s := randomNetwork(rng, n, true)
			// 随机清空部分列
			for k := 1; k < n; k++ {
				if rng.Intn(3) == 0 {
					clear(s.AU[s.IK[k]:s.IK[k+1]])
				}
			}
			b := randomVector(rng, n)
			full := append([]float64(nil), b...)
			f := s.Clone()
			if f.Factor() != nil {
				return false
			}
			f.Solve(full)
			reduced := s.Reduce()
			if reduced.Factor() != nil {
				return false
			}
			reduced.Solve(b)
			for i := range b {
				if math.Abs(b[i]-full[i]) > 1e-12*math.Max(1, math.Abs(full[i])) {
					return false
				}
			}
			return true
		},
		gen.IntRange(2, 30),
		gen.Int64(),
	))

	properties.TestingRun(t)
}

func BenchmarkSkylineFactorSolve(b *testing.B) {
	rng := rand.New(rand.NewSource(7))
	s := randomNetwork(rng, 500, true)
	rhs := randomVector(rng, 500)
	work := s.Clone()
	x := make([]float64, len(rhs))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		copy(work.AD, s.AD)
		copy(work.AU, s.AU)
		copy(x, rhs)
		if err := work.Factor(); err != nil {
			b.Fatal(err)
		}
		work.Solve(x)
	}
}
