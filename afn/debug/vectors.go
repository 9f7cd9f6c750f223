package debug

import (
	"fmt"
	"io"

	"airnet/afn"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// Vectors 逐次输出雅可比矩阵与节点向量
type Vectors struct {
	W     io.Writer
	Dense bool // 同时输出稠密矩阵
}

// Init 输出网络规模与矩阵轮廓
func (v *Vectors) Init(s *afn.Solver) {
	fmt.Fprintf(v.W, "# 节点 %d, 连接 %d, 矩阵非零元 %d\n",
		len(s.Network.Nodes), len(s.Network.Links), s.Jac.NNZ())
	v.vector("IK", intsToFloats(s.Jac.IK))
}

// Update 输出当前矩阵与节点向量
func (v *Vectors) Update(s *afn.Solver) {
	fmt.Fprintf(v.W, "## 迭代 %d %s 加速=%t\n", s.Iter, s.State, s.Accel)
	v.vector("AD", s.Jac.AD)
	v.vector("AU", s.Jac.AU)
	if s.Jac.AL != nil {
		v.vector("AL", s.Jac.AL)
	}
	v.vector("SUMF", s.SUMF)
	v.vector("PZ", s.PZ)
	if v.Dense {
		fmt.Fprintf(v.W, "J = %v\n", mat.Formatted(s.Jac.Dense(), mat.Prefix("    "), mat.Squeeze()))
	}
}

// Error 输出错误
func (v *Vectors) Error(err error) {
	fmt.Fprintf(v.W, "!! %v\n", err)
	log.WithError(err).Debug("向量输出结束")
}

func (v *Vectors) vector(name string, x []float64) {
	fmt.Fprintf(v.W, "%-5s", name)
	for _, f := range x {
		fmt.Fprintf(v.W, " %13.6e", f)
	}
	fmt.Fprintln(v.W)
}

func intsToFloats(x []int) []float64 {
	f := make([]float64, len(x))
	for i, v := range x {
		f[i] = float64(v)
	}
	return f
}
