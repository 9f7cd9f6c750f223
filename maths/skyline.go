package maths

import (
	"fmt"

	"airnet/types"

	"gonum.org/v1/gonum/mat"
)

// Skyline 轮廓(天际线)存储的稀疏方阵。
// 第 k 列保存对角线以上高度为 h(k) 的连续元素，位于 AU[IK[k]:IK[k+1]]，
// 元素 (r,c) r<c 的位置为 IK[c+1]-c+r。非对称矩阵的下三角按相同位置存于 AL。
type Skyline struct {
	N         int       // 方程数量
	IK        []int     // 列起始偏移，长度 N+1
	AD        []float64 // 对角元，分解后保存主元倒数
	AU        []float64 // 上三角
	AL        []float64 // 下三角，对称时为 nil
	Symmetric bool      // 是否对称
}

// NewSkyline 根据节点对计算列高度并建立存储结构。
// pairs 中任一端为负值的节点对被忽略。
func NewSkyline(n int, pairs [][2]int, symmetric bool) *Skyline {
	h := make([]int, n)
	for _, p := range pairs {
		i, j := p[0], p[1]
		if i < 0 || j < 0 || i >= n || j >= n {
			continue
		}
		k, d := max(i, j), i-j
		if d < 0 {
			d = -d
		}
		h[k] = max(h[k], d)
	}
	return NewSkylineHeights(h, symmetric)
}

// NewSkylineHeights 由列高度直接建立存储结构
func NewSkylineHeights(h []int, symmetric bool) *Skyline {
	n := len(h)
	ik := make([]int, n+1)
	for k := 0; k < n; k++ {
		ik[k+1] = ik[k] + h[k]
	}
	s := &Skyline{
		N:         n,
		IK:        ik,
		AD:        make([]float64, n),
		AU:        make([]float64, ik[n]),
		Symmetric: symmetric,
	}
	if !symmetric {
		s.AL = make([]float64, ik[n])
	}
	return s
}

// NNZ 上三角存储元素数量
func (s *Skyline) NNZ() int { return s.IK[s.N] }

// Height 第 k 列高度
func (s *Skyline) Height(k int) int { return s.IK[k+1] - s.IK[k] }

// Index 返回上三角元素 (row,col) row<col 的存储位置，不在轮廓内时返回 false
func (s *Skyline) Index(row, col int) (int, bool) {
	if row >= col || row < 0 || col >= s.N {
		return 0, false
	}
	if col-row > s.Height(col) {
		return 0, false
	}
	return s.IK[col+1] - col + row, true
}

// Zero 清空数值，保留结构
func (s *Skyline) Zero() {
	clear(s.AD)
	clear(s.AU)
	clear(s.AL)
}

// Clone 深拷贝
func (s *Skyline) Clone() *Skyline {
	c := &Skyline{
		N:         s.N,
		IK:        append([]int(nil), s.IK...),
		AD:        append([]float64(nil), s.AD...),
		AU:        append([]float64(nil), s.AU...),
		Symmetric: s.Symmetric,
	}
	if s.AL != nil {
		c.AL = append([]float64(nil), s.AL...)
	}
	return c
}

// Add 累加元素 (i,j)。对称矩阵中 (i,j) 与 (j,i) 为同一存储位置。
func (s *Skyline) Add(i, j int, v float64) error {
	if i == j {
		if i < 0 || i >= s.N {
			return fmt.Errorf("对角元 %d 越界", i)
		}
		s.AD[i] += v
		return nil
	}
	row, col := min(i, j), max(i, j)
	idx, ok := s.Index(row, col)
	if !ok {
		return fmt.Errorf("元素 (%d,%d) 超出轮廓", i, j)
	}
	if s.Symmetric || i < j {
		s.AU[idx] += v
	} else {
		s.AL[idx] += v
	}
	return nil
}

// Stamp 加盖一条连接的导数贡献。
// 两端均为待求节点时写入两个对角元与耦合项，否则只写入待求端对角元。
// 耦合项不在轮廓内时返回错误，矩阵保持不变。
func (s *Skyline) Stamp(k, l int, freeK, freeL bool, df float64) error {
	switch {
	case freeK && freeL:
		idx, ok := s.Index(min(k, l), max(k, l))
		if !ok {
			return fmt.Errorf("连接 (%d,%d) 不在矩阵轮廓内", k, l)
		}
		s.AD[k] += df
		s.AU[idx] -= df
		if !s.Symmetric {
			s.AL[idx] -= df
		}
		s.AD[l] += df
	case freeL:
		s.AD[l] += df
	case freeK:
		s.AD[k] += df
	}
	return nil
}

// Factor 原位 LDU(对称时 LDLt) 分解，分解后 AD 保存主元倒数
func (s *Skyline) Factor() error {
	n := s.N
	if n == 0 {
		return nil
	}
	ik, ad, au, al := s.IK, s.AD, s.AU, s.AL
	if ad[0] == 0 {
		return fmt.Errorf("%w: 节点 %d 主元为零", types.ErrSingular, 0)
	}
	ad[0] = 1.0 / ad[0]
	for k := 1; k < n; k++ {
		jhk := ik[k]
		lhk := ik[k+1] - jhk
		sumd := 0.0
		if lhk > 0 {
			lhk1 := lhk - 1
			imin1 := k - lhk // 第 k 列首行
			if !s.Symmetric {
				al[jhk] *= ad[imin1]
			}
			if lhk1 != 0 {
				jhj := ik[imin1+1]
				for j := 1; j <= lhk1; j++ {
					jhj1 := ik[imin1+1+j]
					ic := min(j, jhj1-jhj)
					if s.Symmetric {
						if ic > 0 {
							sdot := 0.0
							for i := 0; i < ic; i++ {
								sdot += au[jhj1-ic+i] * au[jhk+j-ic+i]
							}
							au[jhk+j] -= sdot
						}
					} else {
						sdot := 0.0
						if ic > 0 {
							for i := 0; i < ic; i++ {
								sdot += al[jhj1-ic+i] * au[jhk+j-ic+i]
							}
							au[jhk+j] -= sdot
							sdot = 0.0
							for i := 0; i < ic; i++ {
								sdot += au[jhj1-ic+i] * al[jhk+j-ic+i]
							}
						}
						al[jhk+j] = (al[jhk+j] - sdot) * ad[imin1+j]
					}
					jhj = jhj1
				}
			}
			if s.Symmetric {
				for i := 0; i <= lhk1; i++ {
					t1 := au[jhk+i]
					t2 := t1 * ad[imin1+i]
					au[jhk+i] = t2
					sumd += t1 * t2
				}
			} else {
				for i := 0; i <= lhk1; i++ {
					sumd += au[jhk+i] * al[jhk+i]
				}
			}
		}
		if ad[k]-sumd == 0 {
			return fmt.Errorf("%w: 节点 %d 主元为零, 节点可能未直接或间接连接到边界节点", types.ErrSingular, k)
		}
		ad[k] = 1.0 / (ad[k] - sumd)
	}
	return nil
}

// Solve 使用分解结果原位求解，b 输入右端项输出解向量
func (s *Skyline) Solve(b []float64) {
	n := s.N
	if n == 0 {
		return
	}
	ik, ad, au, al := s.IK, s.AD, s.AU, s.AL
	// 前代
	for k := 1; k < n; k++ {
		jhk := ik[k]
		lhk := ik[k+1] - jhk
		if lhk <= 0 {
			continue
		}
		sdot := 0.0
		if s.Symmetric {
			for i := 0; i < lhk; i++ {
				sdot += au[jhk+i] * b[k-lhk+i]
			}
		} else {
			for i := 0; i < lhk; i++ {
				sdot += al[jhk+i] * b[k-lhk+i]
			}
		}
		b[k] -= sdot
	}
	if s.Symmetric {
		for k := 0; k < n; k++ {
			b[k] *= ad[k]
		}
	}
	// 回代
	k := n
	jhk1 := ik[n]
	for k > 0 {
		k--
		if !s.Symmetric {
			b[k] *= ad[k]
		}
		if k == 0 {
			break
		}
		jhk := ik[k]
		t1 := b[k]
		for i := 0; i < jhk1-jhk; i++ {
			b[k-jhk1+jhk+i] -= au[jhk+i] * t1
		}
		jhk1 = jhk
	}
}

// Get 读取元素 (i,j)，轮廓外为零
func (s *Skyline) Get(i, j int) float64 { return s.At(i, j) }

// Reduce 返回移除全零列后的副本，原矩阵不变
func (s *Skyline) Reduce() *Skyline {
	return NewSkylineReducer(s).Reduce()
}

// Dims 实现 mat.Matrix
func (s *Skyline) Dims() (r, c int) { return s.N, s.N }

// At 实现 mat.Matrix，轮廓外元素为零
func (s *Skyline) At(i, j int) float64 {
	if i == j {
		return s.AD[i]
	}
	row, col := min(i, j), max(i, j)
	idx, ok := s.Index(row, col)
	if !ok {
		return 0
	}
	if s.Symmetric || i < j {
		return s.AU[idx]
	}
	return s.AL[idx]
}

// T 实现 mat.Matrix
func (s *Skyline) T() mat.Matrix { return mat.Transpose{Matrix: s} }

// Dense 转换为稠密矩阵
func (s *Skyline) Dense() *mat.Dense { return mat.DenseCopyOf(s) }

// String 格式化输出
func (s *Skyline) String() string {
	return fmt.Sprintf("%v", mat.Formatted(s, mat.Squeeze()))
}
