package maths

// SkylineReducer 移除天际线矩阵中上三角全零的列，仅用于求解。
// 精简后列高度为零，对角元不变，分解与求解结果与原矩阵一致。
type SkylineReducer struct {
	original *Skyline // 原始矩阵，处理过程中保持不变
	reduced  *Skyline // 缓存精简后的矩阵
	removed  []int    // 被移除的列
}

// NewSkylineReducer 创建精简器
func NewSkylineReducer(s *Skyline) *SkylineReducer {
	r := &SkylineReducer{
		original: s,
		reduced: &Skyline{
			N:         s.N,
			IK:        make([]int, s.N+1),
			AD:        make([]float64, s.N),
			AU:        make([]float64, 0, s.NNZ()),
			Symmetric: s.Symmetric,
		},
	}
	if !s.Symmetric {
		r.reduced.AL = make([]float64, 0, s.NNZ())
	}
	return r
}

// Reduce 按原始矩阵当前数值重新计算精简矩阵
func (r *SkylineReducer) Reduce() *Skyline {
	src, dst := r.original, r.reduced
	dst.AU = dst.AU[:0]
	if dst.AL != nil {
		dst.AL = dst.AL[:0]
	}
	r.removed = r.removed[:0]
	copy(dst.AD, src.AD)
	dst.IK[0] = 0
	for k := 0; k < src.N; k++ {
		jhk, jhk1 := src.IK[k], src.IK[k+1]
		if jhk1 <= jhk {
			dst.IK[k+1] = dst.IK[k]
			continue
		}
		if r.zeroColumn(jhk, jhk1) {
			r.removed = append(r.removed, k)
			dst.IK[k+1] = dst.IK[k]
			continue
		}
		dst.AU = append(dst.AU, src.AU[jhk:jhk1]...)
		if dst.AL != nil {
			dst.AL = append(dst.AL, src.AL[jhk:jhk1]...)
		}
		dst.IK[k+1] = dst.IK[k] + jhk1 - jhk
	}
	return dst
}

func (r *SkylineReducer) zeroColumn(from, to int) bool {
	for i := from; i < to; i++ {
		if r.original.AU[i] != 0 {
			return false
		}
		if r.original.AL != nil && r.original.AL[i] != 0 {
			return false
		}
	}
	return true
}

// Removed 最近一次精简移除的列
func (r *SkylineReducer) Removed() []int { return r.removed }

// Reduced 缓存的精简矩阵
func (r *SkylineReducer) Reduced() *Skyline { return r.reduced }

// Saved 精简节省的存储元素数量
func (r *SkylineReducer) Saved() int { return r.original.NNZ() - r.reduced.NNZ() }
